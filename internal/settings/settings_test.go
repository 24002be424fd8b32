package settings

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"octolabel/internal/catalog"
	logx "octolabel/pkg/logx"
)

func TestValuesEventMergesOverride(t *testing.T) {
	t.Parallel()
	v := Values{Events: map[catalog.ID]EventOverride{
		catalog.PrintingProgress: {Enabled: Ptr(true), Step: Ptr(25)},
		catalog.Startup:          {Message: Ptr("hello {name}")},
	}}

	prog, ok := v.Event(catalog.PrintingProgress)
	if !ok {
		t.Fatal("progress not found")
	}
	if !prog.Enabled || *prog.Step != 25 || prog.Message != "{name}" {
		t.Fatalf("progress merged = %+v (step %d)", prog, *prog.Step)
	}

	start, _ := v.Event(catalog.Startup)
	if start.Enabled {
		t.Fatal("startup should stay disabled")
	}
	if start.Message != "hello {name}" {
		t.Fatalf("startup message = %q", start.Message)
	}

	if _, ok := v.Event("nope"); ok {
		t.Fatal("unknown id must not resolve")
	}
}

func TestValuesEventIgnoresEnabledOnInternal(t *testing.T) {
	t.Parallel()
	v := Values{Events: map[catalog.ID]EventOverride{
		catalog.Test: {Enabled: Ptr(false), Message: Ptr("ping")},
	}}
	def, _ := v.Event(catalog.Test)
	if !def.Enabled {
		t.Fatal("test event enabled flag must not be user-settable")
	}
	if def.Message != "ping" {
		t.Fatalf("message = %q", def.Message)
	}
}

func TestValuesApplyMergesPerField(t *testing.T) {
	t.Parallel()
	var v Values
	v.Apply(Values{
		Username: Ptr("alice"),
		Events:   map[catalog.ID]EventOverride{catalog.Startup: {Message: Ptr("boot")}},
	})
	v.Apply(Values{
		PrinterIP: Ptr("10.0.0.9"),
		Events:    map[catalog.ID]EventOverride{catalog.Startup: {Enabled: Ptr(true)}},
	})

	g := v.Global()
	if g.Username != "alice" || g.PrinterAddress != "10.0.0.9" {
		t.Fatalf("global = %+v", g)
	}
	ov := v.Events[catalog.Startup]
	if ov.Message == nil || *ov.Message != "boot" || ov.Enabled == nil || !*ov.Enabled {
		t.Fatalf("override = %+v", ov)
	}
}

func TestFileStoreRoundTripAndNoCache(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "nested", "settings.json")
	st, err := Open(Config{Driver: "file", Path: path}, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	acc := NewAccessor(st, logx.Nop())
	ctx := context.Background()

	if g, err := acc.Global(ctx); err != nil || g != (GlobalOptions{}) {
		t.Fatalf("empty store global = %+v, %v", g, err)
	}

	if err := acc.Save(ctx, Values{PrinterIP: Ptr("printer.local")}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	g, err := acc.Global(ctx)
	if err != nil || g.PrinterAddress != "printer.local" {
		t.Fatalf("after save global = %+v, %v", g, err)
	}

	// An out-of-band edit (host UI) is visible on the next read.
	doc := `{"printerip":"other.local","events":{"startup":{"enabled":true}}}`
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatal(err)
	}
	g, _ = acc.Global(ctx)
	if g.PrinterAddress != "other.local" {
		t.Fatalf("printer address = %q, want other.local", g.PrinterAddress)
	}
	def, err := acc.Event(ctx, catalog.Startup)
	if err != nil || !def.Enabled {
		t.Fatalf("startup = %+v, %v", def, err)
	}
}

func TestFileStoreRejectsCorruptDocument(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "settings.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}
	st, err := Open(Config{Path: path}, logx.Nop())
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()
	if _, err := st.Load(context.Background()); err == nil || !strings.Contains(err.Error(), "decode") {
		t.Fatalf("Load err = %v, want decode error", err)
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	t.Parallel()
	if _, err := Open(Config{Driver: "etcd"}, logx.Nop()); !errors.Is(err, ErrUnknownDriver) {
		t.Fatalf("err = %v, want ErrUnknownDriver", err)
	}
}

func TestAccessorEventUnknown(t *testing.T) {
	t.Parallel()
	acc := NewAccessor(NewMemoryStore(Values{}), logx.Nop())
	if _, err := acc.Event(context.Background(), "bogus"); !errors.Is(err, catalog.ErrUnknownEvent) {
		t.Fatalf("err = %v", err)
	}
	if err := acc.Save(context.Background(), Values{Events: map[catalog.ID]EventOverride{"bogus": {}}}); !errors.Is(err, catalog.ErrUnknownEvent) {
		t.Fatalf("save err = %v", err)
	}
}

func TestRestrictions(t *testing.T) {
	t.Parallel()
	v := Values{
		ConsumerKey:  Ptr("k"),
		ScriptBefore: Ptr("/bin/true"),
		Username:     Ptr("bob"),
		Events: map[catalog.ID]EventOverride{
			catalog.Test:    {Message: Ptr("x")},
			catalog.Startup: {Enabled: Ptr(true)},
		},
	}
	StripNever(&v)
	if _, ok := v.Events[catalog.Test]; ok {
		t.Fatal("events.test must be stripped")
	}
	RedactAdmin(&v)
	if v.ConsumerKey != nil || v.ScriptBefore != nil || v.Username == nil {
		t.Fatalf("redacted = %+v", v)
	}

	if err := CheckPatch(Values{Events: map[catalog.ID]EventOverride{catalog.Test: {}}}, true); !errors.Is(err, ErrRestricted) {
		t.Fatalf("events.test patch err = %v", err)
	}
	if err := CheckPatch(Values{ScriptAfter: Ptr("/x")}, false); !errors.Is(err, ErrRestricted) {
		t.Fatalf("non-admin script patch err = %v", err)
	}
	if err := CheckPatch(Values{ScriptAfter: Ptr("/x")}, true); err != nil {
		t.Fatalf("admin script patch err = %v", err)
	}
}

type countingNotifier struct{ n int }

func (c *countingNotifier) NotifyTest(context.Context) bool {
	c.n++
	return true
}

func TestMonitorFiresOnIdentityChangeOnly(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	acc := NewAccessor(NewMemoryStore(Values{Username: Ptr("alice"), URL: Ptr("http://x")}), logx.Nop())
	n := &countingNotifier{}
	m := NewMonitor(acc, n, logx.Nop())

	changed, err := m.OnSettingsSave(ctx, Values{Username: Ptr("alice"), PrinterIP: Ptr("1.2.3.4")})
	if err != nil || changed {
		t.Fatalf("identical identity: changed=%v err=%v", changed, err)
	}
	if n.n != 0 {
		t.Fatalf("test notifications = %d, want 0", n.n)
	}

	changed, err = m.OnSettingsSave(ctx, Values{Username: Ptr("bob")})
	if err != nil || !changed {
		t.Fatalf("username change: changed=%v err=%v", changed, err)
	}
	if n.n != 1 {
		t.Fatalf("test notifications = %d, want 1", n.n)
	}
}
