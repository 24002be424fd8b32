// Package app wires the notification engine to its host surface and owns the
// daemon lifecycle.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"octolabel/internal/api"
	"octolabel/internal/catalog"
	"octolabel/internal/config"
	"octolabel/internal/eventbus"
	"octolabel/internal/hostevents"
	"octolabel/internal/labelprinter"
	"octolabel/internal/notify"
	"octolabel/internal/progresswatch"
	"octolabel/internal/runtime/supervisor"
	"octolabel/internal/script"
	"octolabel/internal/settings"
	"octolabel/internal/telemetry"
	logx "octolabel/pkg/logx"
)

type App struct {
	cfgm *config.Manager
	res  config.Resolved

	log  logx.Logger
	logs *logx.Service
	bus  eventbus.Bus

	store    settings.Store
	acc      *settings.Accessor
	monitor  *settings.Monitor
	tel      telemetry.Accessor
	scripts  *script.Runner
	printer  *labelprinter.Client
	disp     *notify.Dispatcher
	history  *notify.History
	mapper   hostevents.Mapper
	watcher  *progresswatch.Watcher // guarded by mu
	api      *api.Server
	sup      *supervisor.Supervisor

	mu      sync.Mutex
	stopped bool
}

// NewApp loads the config at cfgPath (empty means defaults) and builds every
// component without starting background work.
func NewApp(cfgPath string) (*App, error) {
	cfgm := config.NewManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	res, err := cfg.Resolve()
	if err != nil {
		return nil, err
	}

	logSvc, root := logx.New(loggingConfig(cfg))
	log := root.With(logx.String("comp", "app"))
	cfgm.SetLogger(root.With(logx.String("comp", "config")))

	store, err := settings.Open(settings.Config{
		Driver:      cfg.Settings.Driver,
		Path:        cfg.Settings.Path,
		BusyTimeout: res.SettingsBusyTimeout,
	}, root.With(logx.String("comp", "settings")))
	if err != nil {
		_ = logSvc.Close()
		return nil, fmt.Errorf("open settings: %w", err)
	}
	acc := settings.NewAccessor(store, root.With(logx.String("comp", "settings")))

	var tel telemetry.Accessor
	client, err := telemetry.NewClient(telemetry.Config{
		URL:     cfg.OctoPrint.URL,
		APIKey:  cfg.OctoPrint.APIKey,
		Timeout: res.OctoPrintTimeout,
	})
	switch {
	case errors.Is(err, telemetry.ErrNotConfigured):
		log.Info("octoprint url not set; telemetry enrichment disabled")
	case err != nil:
		_ = store.Close()
		_ = logSvc.Close()
		return nil, err
	default:
		tel = client
	}

	bus := eventbus.New()
	scripts := script.NewRunner(acc, script.Config{Timeout: res.ScriptTimeout}, root.With(logx.String("comp", "script")))
	printer := labelprinter.New(labelprinter.Config{
		Timeout:    res.LabelPrinterTimeout,
		RatePerSec: cfg.LabelPrinter.RatePerSec,
	}, acc, scripts, root.With(logx.String("comp", "labelprinter")))
	disp := notify.NewDispatcher(acc, tel, printer, bus, root.With(logx.String("comp", "notify")))
	monitor := settings.NewMonitor(acc, disp, root.With(logx.String("comp", "settings")))

	a := &App{
		cfgm:    cfgm,
		res:     res,
		log:     log,
		logs:    logSvc,
		bus:     bus,
		store:   store,
		acc:     acc,
		monitor: monitor,
		tel:     tel,
		scripts: scripts,
		printer: printer,
		disp:    disp,
		history: notify.NewHistory(0),
	}
	return a, nil
}

func loggingConfig(cfg *config.Config) logx.Config {
	return logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	}
}

func (a *App) Logger() logx.Logger { return a.log }
func (a *App) Config() *config.Config { return a.cfgm.Get() }
func (a *App) Settings() *settings.Accessor { return a.acc }
func (a *App) Monitor() *settings.Monitor { return a.monitor }
func (a *App) Dispatcher() *notify.Dispatcher { return a.disp }
func (a *App) History() *notify.History { return a.history }
func (a *App) Telemetry() telemetry.Accessor { return a.tel }
func (a *App) Supervisor() *supervisor.Supervisor { return a.sup }

// HostEvent maps a raw host event and dispatches it. ok is false when the
// event never notifies. Cancelling ctx does not abort a started delivery.
func (a *App) HostEvent(ctx context.Context, ev hostevents.HostEvent) (notify.Outcome, bool, error) {
	m, ok, err := a.mapper.Map(ev)
	if err != nil || !ok {
		return notify.Outcome{}, ok, err
	}
	return a.disp.Dispatch(context.WithoutCancel(ctx), m.Event, m.Data), true, nil
}

// Progress dispatches a progress callback.
func (a *App) Progress(ctx context.Context, location, path string, progress float64) (notify.Outcome, error) {
	m, err := a.mapper.Progress(location, path, progress)
	if err != nil {
		return notify.Outcome{}, err
	}
	return a.disp.Dispatch(context.WithoutCancel(ctx), m.Event, m.Data), nil
}

// Done is closed once the app context is cancelled.
func (a *App) Done() <-chan struct{} {
	if a.sup == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return a.sup.Context().Done()
}

// Err returns the first background failure.
func (a *App) Err() error {
	if a.sup == nil {
		return nil
	}
	return a.sup.Err()
}

// Start runs the API server, the config watcher, the outcome recorder and,
// when enabled, the progress watcher.
func (a *App) Start(ctx context.Context) error {
	cfg := a.cfgm.Get()
	a.sup = supervisor.New(ctx, a.log)

	a.cfgm.SetValidator(func(_ context.Context, c *config.Config) error {
		_, err := progresswatch.New(progresswatch.Config{Schedule: c.ProgressWatch.Schedule}, a.tel, nil, logx.Nop())
		return err
	})

	if err := a.applyProgressWatch(a.sup.Context(), cfg.ProgressWatch); err != nil {
		return err
	}

	a.api = api.New(api.Config{
		Addr:            cfg.API.Addr,
		AdminToken:      cfg.API.AdminToken,
		AllowAllOrigins: cfg.API.AllowAllOrigins,
		RequestTimeout:  a.res.APIRequestTimeout,
	}, api.Deps{
		Dispatcher: a.disp,
		Settings:   a.acc,
		Monitor:    a.monitor,
		History:    a.history,
		Bus:        a.bus,
		Health:     func() any { return a.sup.Snapshot() },
	}, a.log.With(logx.String("comp", "api")))

	a.sup.Go("api", a.api.Serve)
	a.sup.Go("config.watch", a.cfgm.Watch)
	a.startRecorder()
	a.startReload()

	a.log.Info("octolabel started",
		logx.String("api", cfg.API.Addr),
		logx.String("settings", cfg.Settings.Driver),
		logx.Bool("telemetry", a.tel != nil),
		logx.Int("events", len(catalog.IDs())),
	)
	return nil
}

// startRecorder keeps notification outcomes in the history ring. A panic or a
// closed subscription restarts it with a fresh subscription. The first
// subscription is taken before returning so no outcome published after Start
// is missed.
func (a *App) startRecorder() {
	events, unsub := a.bus.Subscribe(128)
	a.sup.GoRestart("eventbus.history", 250*time.Millisecond, 10*time.Second, func(ctx context.Context) error {
		if events == nil {
			events, unsub = a.bus.Subscribe(128)
		}
		defer func() {
			unsub()
			events, unsub = nil, nil
		}()
		return a.recordHistory(ctx, events)
	})
}

var errSubscriptionClosed = errors.New("event subscription closed")

func (a *App) recordHistory(ctx context.Context, events <-chan eventbus.Event) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case e, ok := <-events:
			if !ok {
				return errSubscriptionClosed
			}
			if o, isOutcome := e.Data.(notify.Outcome); isOutcome {
				a.history.Append(o)
			}
			a.log.Debug("event", logx.String("type", e.Type), logx.Time("time", e.Time))
		}
	}
}

func (a *App) applyProgressWatch(ctx context.Context, pc config.ProgressWatchConfig) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.stopped {
		return nil
	}
	if a.watcher != nil {
		stopCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		a.watcher.Stop(stopCtx)
		cancel()
		a.watcher = nil
	}
	if !pc.Enabled {
		return nil
	}
	if a.tel == nil {
		a.log.Warn("progress_watch enabled but octoprint.url is empty; not starting")
		return nil
	}
	w, err := progresswatch.New(progresswatch.Config{Enabled: true, Schedule: pc.Schedule}, a.tel,
		func(ctx context.Context, location, path string, progress float64) {
			if _, err := a.Progress(ctx, location, path, progress); err != nil {
				a.log.Warn("progress watch dispatch failed", logx.Err(err))
			}
		}, a.log.With(logx.String("comp", "progresswatch")))
	if err != nil {
		return err
	}
	w.Start(ctx)
	a.watcher = w
	return nil
}

// Stop shuts down background work, then closes the settings store and log
// sinks. Later calls are no-ops.
func (a *App) Stop(ctx context.Context) error {
	a.mu.Lock()
	if a.stopped {
		a.mu.Unlock()
		return nil
	}
	a.stopped = true
	w := a.watcher
	a.watcher = nil
	a.mu.Unlock()
	a.log.Info("stopping")

	if w != nil {
		w.Stop(ctx)
	}
	var errs []error
	if a.sup != nil {
		if err := a.sup.Stop(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if err := a.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close settings: %w", err))
	}
	a.log.Info("stopped")
	_ = a.logs.Close()
	return errors.Join(errs...)
}
