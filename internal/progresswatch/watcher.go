// Package progresswatch polls the print server on a cron schedule and turns
// completion changes into progress callbacks, for hosts that do not push
// progress events themselves.
package progresswatch

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/robfig/cron/v3"

	"octolabel/internal/telemetry"
	logx "octolabel/pkg/logx"
)

const DefaultSchedule = "@every 10s"

type Config struct {
	Enabled  bool
	Schedule string
}

// ProgressFunc receives a whole-percent completion change.
type ProgressFunc func(ctx context.Context, location, path string, progress float64)

type Watcher struct {
	tel      telemetry.Accessor
	progress ProgressFunc
	log      logx.Logger
	schedule cron.Schedule

	mu   sync.Mutex
	c    *cron.Cron
	last int
}

var parser = cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// New validates the schedule. An empty schedule uses DefaultSchedule.
func New(cfg Config, tel telemetry.Accessor, fn ProgressFunc, log logx.Logger) (*Watcher, error) {
	if log.IsZero() {
		log = logx.Nop()
	}
	spec := strings.TrimSpace(cfg.Schedule)
	if spec == "" {
		spec = DefaultSchedule
	}
	sched, err := parser.Parse(spec)
	if err != nil {
		return nil, fmt.Errorf("progress_watch.schedule %q: %w", spec, err)
	}
	return &Watcher{tel: tel, progress: fn, log: log, schedule: sched, last: -1}, nil
}

// Start schedules polling until ctx is done or Stop is called.
func (w *Watcher) Start(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.c != nil {
		return
	}
	w.c = cron.New(cron.WithParser(parser), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	w.c.Schedule(w.schedule, cron.FuncJob(func() { w.Poll(ctx) }))
	w.c.Start()
	w.log.Info("progress watch started")
}

// Stop halts the schedule and waits for a running poll, bounded by ctx.
func (w *Watcher) Stop(ctx context.Context) {
	w.mu.Lock()
	c := w.c
	w.c = nil
	w.mu.Unlock()
	if c == nil {
		return
	}
	select {
	case <-c.Stop().Done():
	case <-ctx.Done():
	}
}

// Poll reads one snapshot and fires the callback when the whole-percent
// completion changed while printing.
func (w *Watcher) Poll(ctx context.Context) {
	snap, err := w.tel.Current(ctx)
	if err != nil {
		w.log.Debug("progress poll failed", logx.Err(err))
		return
	}

	w.mu.Lock()
	if !strings.HasPrefix(snap.State, "Printing") || snap.Completion == nil {
		w.last = -1
		w.mu.Unlock()
		return
	}
	p := int(*snap.Completion)
	changed := p != w.last
	w.last = p
	w.mu.Unlock()

	if changed {
		w.progress(ctx, snap.Origin, snap.File, float64(p))
	}
}
