package settings

import (
	"context"
	"fmt"

	"octolabel/internal/catalog"
	logx "octolabel/pkg/logx"
)

// TestNotifier fires the synthetic test notification.
type TestNotifier interface {
	NotifyTest(ctx context.Context) bool
}

// TestNotifierFunc adapts a function to TestNotifier.
type TestNotifierFunc func(ctx context.Context) bool

func (f TestNotifierFunc) NotifyTest(ctx context.Context) bool { return f(ctx) }

// Monitor watches settings saves for identity changes (url, avatar,
// username) and fires the test notification when they change. It is the only
// producer of the test event.
type Monitor struct {
	acc    *Accessor
	notify TestNotifier
	log    logx.Logger
}

func NewMonitor(acc *Accessor, n TestNotifier, log logx.Logger) *Monitor {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Monitor{acc: acc, notify: n, log: log}
}

// OnSettingsSave applies patch and reports whether the identity fingerprint
// changed.
func (m *Monitor) OnSettingsSave(ctx context.Context, patch Values) (bool, error) {
	before, err := m.acc.Global(ctx)
	if err != nil {
		return false, err
	}
	if err := m.acc.Save(ctx, patch); err != nil {
		return false, err
	}
	after, err := m.acc.Global(ctx)
	if err != nil {
		return false, fmt.Errorf("reload settings: %w", err)
	}

	if before.Fingerprint() == after.Fingerprint() {
		return false, nil
	}
	m.log.Info("settings have changed; sending a test message", logx.String("event", string(catalog.Test)))
	if m.notify != nil {
		m.notify.NotifyTest(ctx)
	}
	return true, nil
}
