package notify

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"octolabel/internal/catalog"
	"octolabel/internal/eventbus"
	"octolabel/internal/labelprinter"
	"octolabel/internal/settings"
	"octolabel/internal/telemetry"
	logx "octolabel/pkg/logx"
)

type fakeSender struct {
	messages []string
	err      error
}

func (f *fakeSender) Send(_ context.Context, _ string, message string) (labelprinter.Delivery, error) {
	f.messages = append(f.messages, message)
	return labelprinter.Delivery{StatusCode: 200}, f.err
}

func newTestDispatcher(t *testing.T, v settings.Values, tel telemetry.Accessor) (*Dispatcher, *fakeSender) {
	t.Helper()
	acc := settings.NewAccessor(settings.NewMemoryStore(v), logx.Nop())
	s := &fakeSender{}
	return NewDispatcher(acc, tel, s, nil, logx.Nop()), s
}

func enable(id catalog.ID, msg string, step *int) settings.Values {
	o := settings.EventOverride{Enabled: settings.Ptr(true), Step: step}
	if msg != "" {
		o.Message = settings.Ptr(msg)
	}
	return settings.Values{Events: map[catalog.ID]settings.EventOverride{id: o}}
}

func TestProgressStepRule(t *testing.T) {
	t.Parallel()
	for _, step := range []int{1, 5, 10, 25} {
		d, s := newTestDispatcher(t, enable(catalog.PrintingProgress, "", settings.Ptr(step)), nil)
		for p := 0; p <= 100; p++ {
			before := len(s.messages)
			got := d.Notify(context.Background(), catalog.PrintingProgress, Data{KeyProgress: p})
			want := p > 0 && p < 100 && p%step == 0
			if got != want {
				t.Fatalf("step=%d p=%d: Notify = %v, want %v", step, p, got, want)
			}
			if delivered := len(s.messages) > before; delivered != want {
				t.Fatalf("step=%d p=%d: delivered = %v, want %v", step, p, delivered, want)
			}
		}
	}
}

func TestProgressStepZeroAndBadValues(t *testing.T) {
	t.Parallel()
	d, s := newTestDispatcher(t, enable(catalog.PrintingProgress, "", settings.Ptr(0)), nil)
	if d.Notify(context.Background(), catalog.PrintingProgress, Data{KeyProgress: 50}) {
		t.Fatal("step 0 must never fire")
	}

	d, s = newTestDispatcher(t, enable(catalog.PrintingProgress, "", nil), nil)
	tests := []Data{nil, {KeyProgress: "50"}, {KeyProgress: 55.5}}
	for _, data := range tests {
		if out := d.Dispatch(context.Background(), catalog.PrintingProgress, data); out.Status != StatusGated {
			t.Fatalf("data %v: status = %s, want gated", data, out.Status)
		}
	}
	if !d.Notify(context.Background(), catalog.PrintingProgress, Data{KeyProgress: 50.7}) {
		t.Fatal("float progress is truncated and should fire with default step")
	}
	if len(s.messages) != 1 {
		t.Fatalf("messages = %d, want 1", len(s.messages))
	}
}

func TestUnknownEventNotDelivered(t *testing.T) {
	t.Parallel()
	d, s := newTestDispatcher(t, settings.Values{}, nil)
	out := d.Dispatch(context.Background(), catalog.ID("bogus"), nil)
	if out.Status != StatusUnknownEvent {
		t.Fatalf("status = %s", out.Status)
	}
	if d.Notify(context.Background(), catalog.ID("bogus"), nil) || len(s.messages) != 0 {
		t.Fatal("unknown event must not deliver")
	}
}

func TestDisabledEventSuppressed(t *testing.T) {
	t.Parallel()
	v := settings.Values{Events: map[catalog.ID]settings.EventOverride{
		catalog.PrintingDone: {Enabled: settings.Ptr(false)},
	}}
	d, s := newTestDispatcher(t, v, nil)
	out := d.Dispatch(context.Background(), catalog.PrintingDone, Data{KeyTime: 10, KeyTimeFormatted: "0:00:10"})
	if out.Status != StatusDisabled || len(s.messages) != 0 {
		t.Fatalf("status = %s, messages = %v", out.Status, s.messages)
	}
	if d.Notify(context.Background(), catalog.PrintingStarted, nil) {
		t.Fatal("printing_started is disabled by default")
	}
}

func TestMissingVariableStillDelivers(t *testing.T) {
	t.Parallel()
	d, s := newTestDispatcher(t, enable(catalog.PrintingStarted, "Started {path} {missing}", nil), nil)
	out := d.Dispatch(context.Background(), catalog.PrintingStarted, Data{"path": "benchy.gcode"})
	if out.Status != StatusDelivered {
		t.Fatalf("status = %s", out.Status)
	}
	if out.Missing != "missing" {
		t.Fatalf("missing = %q", out.Missing)
	}
	msg := s.messages[0]
	for _, want := range []string{"Started {path} {missing}", "missing", "{path}", "{name}"} {
		if !strings.Contains(msg, want) {
			t.Fatalf("message %q lacks %q", msg, want)
		}
	}
}

func TestNameSeededAndCallerWins(t *testing.T) {
	t.Parallel()
	d, s := newTestDispatcher(t, settings.Values{}, nil)
	d.Notify(context.Background(), catalog.PrintingDone, nil)
	if s.messages[0] != "Printing process : done" {
		t.Fatalf("message = %q", s.messages[0])
	}
	d.Notify(context.Background(), catalog.PrintingDone, Data{KeyName: "custom"})
	if s.messages[1] != "custom" {
		t.Fatalf("message = %q", s.messages[1])
	}
}

func TestTelemetryEnrichment(t *testing.T) {
	t.Parallel()
	left, spent := 3725, 60
	tel := telemetry.Static{PrintTimeLeft: &left, PrintTime: &spent}
	d, s := newTestDispatcher(t, enable(catalog.PrintingPaused, "{remaining_formatted} left, {spent} {spent_formatted}", nil), tel)

	d.Notify(context.Background(), catalog.PrintingPaused, nil)
	if want := "1:02:05 left, 60 0:01:00"; s.messages[0] != want {
		t.Fatalf("message = %q, want %q", s.messages[0], want)
	}

	d.Notify(context.Background(), catalog.PrintingPaused, Data{KeySpent: "caller"})
	if want := "1:02:05 left, caller 0:01:00"; s.messages[1] != want {
		t.Fatalf("message = %q, want %q", s.messages[1], want)
	}
}

type failingTelemetry struct{}

func (failingTelemetry) Current(context.Context) (telemetry.Snapshot, error) {
	return telemetry.Snapshot{}, errors.New("offline")
}

func TestTelemetryErrorIsSkipped(t *testing.T) {
	t.Parallel()
	d, s := newTestDispatcher(t, settings.Values{}, failingTelemetry{})
	if !d.Notify(context.Background(), catalog.PrintingDone, nil) {
		t.Fatal("telemetry failure must not block delivery")
	}
	if len(s.messages) != 1 {
		t.Fatalf("messages = %v", s.messages)
	}
}

func TestDeliveryFailurePublished(t *testing.T) {
	t.Parallel()
	bus := eventbus.New()
	ch, unsub := bus.Subscribe(4)
	defer unsub()

	acc := settings.NewAccessor(settings.NewMemoryStore(settings.Values{}), logx.Nop())
	s := &fakeSender{err: labelprinter.ErrNoPrinterAddress}
	d := NewDispatcher(acc, nil, s, bus, logx.Nop())

	if d.Notify(context.Background(), catalog.PrintingDone, nil) {
		t.Fatal("Notify should report failure")
	}
	select {
	case e := <-ch:
		o, ok := e.Data.(Outcome)
		if e.Type != eventbus.NotificationFailed || !ok || o.Status != StatusDeliveryFailed || o.ID == "" {
			t.Fatalf("event = %+v", e)
		}
	case <-time.After(time.Second):
		t.Fatal("no event published")
	}
}

func TestNotifyTestAlwaysEnabled(t *testing.T) {
	t.Parallel()
	v := settings.Values{Events: map[catalog.ID]settings.EventOverride{
		catalog.Test: {Enabled: settings.Ptr(false)},
	}}
	d, s := newTestDispatcher(t, v, nil)
	if !d.NotifyTest(context.Background()) || len(s.messages) != 1 {
		t.Fatal("test event should deliver")
	}
}

func TestFormatDuration(t *testing.T) {
	t.Parallel()
	tests := map[int]string{
		0:      "0:00:00",
		59:     "0:00:59",
		3725:   "1:02:05",
		86399:  "23:59:59",
		90061:  "1 day, 1:01:01",
		180000: "2 days, 2:00:00",
		-5:     "0:00:00",
	}
	for in, want := range tests {
		if got := FormatDuration(in); got != want {
			t.Fatalf("FormatDuration(%d) = %q, want %q", in, got, want)
		}
	}
}

func TestRender(t *testing.T) {
	t.Parallel()
	tests := []struct {
		tmpl string
		data Data
		want string
	}{
		{"{name}", Data{"name": "Print done"}, "Print done"},
		{"{progress}%", Data{"progress": 50.0}, "50%"},
		{"{{literal}} {a}", Data{"a": 1}, "{literal} 1"},
		{"open {brace", nil, "open {brace"},
		{"{a:>5}", Data{"a": "x"}, "x"},
	}
	for _, tt := range tests {
		res := Render(tt.tmpl, tt.data)
		if !res.Rendered() || res.Text != tt.want {
			t.Fatalf("Render(%q) = %+v, want %q", tt.tmpl, res, tt.want)
		}
	}

	res := Render("{b} {zzz}", Data{"b": 1, "a": 2})
	if res.Rendered() || res.Missing != "zzz" {
		t.Fatalf("res = %+v", res)
	}
	if strings.Join(res.Available, ",") != "a,b" {
		t.Fatalf("available = %v", res.Available)
	}
}

func TestRenderFieldAccessors(t *testing.T) {
	t.Parallel()
	data := Data{
		"name":  "Benchy",
		"job":   map[string]any{"file": map[string]any{"path": "a.gcode"}},
		"tags":  []any{"pla", "0.2mm"},
		"color": map[string]string{"hex": "#fff"},
	}
	tests := []struct {
		tmpl    string
		want    string
		missing string
	}{
		{"{job.file.path}", "a.gcode", ""},
		{"{job[file][path]}", "a.gcode", ""},
		{"{tags[1]}", "0.2mm", ""},
		{"{name[0]}", "B", ""},
		{"{color.hex}", "#fff", ""},
		{"{nope.attr}", "", "nope"},
		{"{nope[0]}", "", "nope"},
		{"{tags[5]}", "", "tags[5]"},
		{"{job.size}", "", "job.size"},
		{"{name.upper}", "", "name.upper"},
	}
	for _, tt := range tests {
		res := Render(tt.tmpl, data)
		if res.Missing != tt.missing {
			t.Fatalf("Render(%q).Missing = %q, want %q", tt.tmpl, res.Missing, tt.missing)
		}
		if tt.missing == "" && res.Text != tt.want {
			t.Fatalf("Render(%q) = %q, want %q", tt.tmpl, res.Text, tt.want)
		}
		if tt.missing != "" && !strings.Contains(res.Text, "`{"+tt.missing+"}`") {
			t.Fatalf("Render(%q) warning = %q", tt.tmpl, res.Text)
		}
	}
}

func TestHistoryBounded(t *testing.T) {
	t.Parallel()
	h := NewHistory(3)
	for i := 0; i < 5; i++ {
		h.Append(Outcome{Message: string(rune('a' + i))})
	}
	got := h.Snapshot()
	if len(got) != 3 || got[0].Message != "c" || got[2].Message != "e" {
		t.Fatalf("snapshot = %+v", got)
	}
}
