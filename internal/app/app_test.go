package app

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"octolabel/internal/catalog"
	"octolabel/internal/eventbus"
	"octolabel/internal/hostevents"
	"octolabel/internal/notify"
	"octolabel/internal/runtime/supervisor"
	"octolabel/internal/settings"
	logx "octolabel/pkg/logx"
)

func writeConfig(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "config.yaml")
	body := fmt.Sprintf(`
logging: {level: error, console: false}
api: {addr: "127.0.0.1:0"}
settings: {driver: file, path: %q}
`, filepath.Join(dir, "settings.json"))
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestAppDeliversHostEvent(t *testing.T) {
	t.Parallel()
	var got []string
	printer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		got = append(got, r.PostForm.Get("text"))
	}))
	defer printer.Close()

	dir := t.TempDir()
	a, err := NewApp(writeConfig(t, dir))
	if err != nil {
		t.Fatalf("NewApp: %v", err)
	}
	ctx := context.Background()
	defer func() { _ = a.Stop(ctx) }()

	if a.Telemetry() != nil {
		t.Fatal("telemetry should be disabled without octoprint.url")
	}

	out, ok, err := a.HostEvent(ctx, hostevents.HostEvent{Name: hostevents.PrintDone, Payload: map[string]any{"time": 3725}})
	if err != nil || !ok {
		t.Fatalf("HostEvent: ok=%v err=%v", ok, err)
	}
	if out.Status != notify.StatusDeliveryFailed {
		t.Fatalf("status without printer address = %s", out.Status)
	}

	err = a.Settings().Save(ctx, settings.Values{
		PrinterIP: settings.Ptr(printer.URL),
		Events: map[catalog.ID]settings.EventOverride{
			catalog.PrintingDone: {Message: settings.Ptr("{name} in {time_formatted}")},
		},
	})
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	out, _, _ = a.HostEvent(ctx, hostevents.HostEvent{Name: hostevents.PrintDone, Payload: map[string]any{"time": 3725}})
	if out.Status != notify.StatusDelivered {
		t.Fatalf("status = %s (%s)", out.Status, out.Error)
	}
	if len(got) != 1 || got[0] != "Printing process : done in 1:02:05" {
		t.Fatalf("printed = %v", got)
	}
}

func TestAppStartRecordsHistory(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	a, err := NewApp(writeConfig(t, dir))
	if err != nil {
		t.Fatalf("NewApp: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := a.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}

	if _, err := a.Progress(ctx, "local", "a.gcode", 10); err != nil {
		t.Fatalf("Progress: %v", err)
	}
	deadline := time.Now().Add(2 * time.Second)
	for len(a.History().Snapshot()) == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	h := a.History().Snapshot()
	if len(h) != 1 || h[0].Status != notify.StatusDisabled {
		t.Fatalf("history = %+v", h)
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer stopCancel()
	if err := a.Stop(stopCtx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if err := a.Stop(stopCtx); err != nil {
		t.Fatalf("second Stop: %v", err)
	}
}

func TestNewAppRejectsBadConfig(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	if err := os.WriteFile(path, []byte(`{"settings":{"driver":"mongo"}}`), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := NewApp(path)
	if err == nil || !strings.Contains(err.Error(), "settings.driver") {
		t.Fatalf("err = %v", err)
	}
}

// flakyBus hands out one already-closed subscription, then delegates.
type flakyBus struct {
	eventbus.Bus
	mu     sync.Mutex
	closed bool
}

func (b *flakyBus) Subscribe(buffer int) (<-chan eventbus.Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.closed {
		b.closed = true
		ch := make(chan eventbus.Event)
		close(ch)
		return ch, func() {}
	}
	return b.Bus.Subscribe(buffer)
}

func TestRecorderRestartsAfterClosedSubscription(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bus := &flakyBus{Bus: eventbus.New()}
	a := &App{
		log:     logx.Nop(),
		bus:     bus,
		history: notify.NewHistory(10),
		sup:     supervisor.New(ctx, logx.Nop()),
	}
	a.startRecorder()

	deadline := time.Now().Add(3 * time.Second)
	for len(a.History().Snapshot()) == 0 && time.Now().Before(deadline) {
		bus.Publish(eventbus.Event{Type: eventbus.NotificationDelivered, Data: notify.Outcome{Event: catalog.Startup}})
		time.Sleep(20 * time.Millisecond)
	}
	if len(a.History().Snapshot()) == 0 {
		t.Fatal("recorder did not resume after restart")
	}

	var restarts int
	for _, st := range a.sup.Snapshot() {
		if st.Name == "eventbus.history" {
			restarts = st.Restarts
		}
	}
	if restarts < 1 {
		t.Fatalf("restarts = %d", restarts)
	}

	cancel()
	waitCtx, waitCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer waitCancel()
	if err := a.sup.Wait(waitCtx); err != nil {
		t.Fatalf("Wait: %v", err)
	}
}
