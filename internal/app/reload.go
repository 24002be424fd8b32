package app

import (
	"context"
	"slices"
	"strings"

	"octolabel/internal/config"
	"octolabel/internal/eventbus"
	logx "octolabel/pkg/logx"
)

// liveSections apply without a restart.
var liveSections = []string{"logging", "progress_watch"}

// startReload fans config reloads out to the components that can follow
// them live.
func (a *App) startReload() {
	sub := a.cfgm.Subscribe(8)
	a.sup.Go0("config.reload", func(ctx context.Context) {
		defer a.cfgm.Unsubscribe(sub)
		last := a.cfgm.Get()
		for {
			select {
			case <-ctx.Done():
				return
			case next, ok := <-sub:
				if !ok {
					return
				}
				next = latest(sub, next)
				a.applyConfig(ctx, last, next)
				last = next
			}
		}
	})
}

// latest drains queued configs and returns the newest.
func latest(ch <-chan *config.Config, cur *config.Config) *config.Config {
	for {
		select {
		case newer, ok := <-ch:
			if !ok || newer == nil {
				return cur
			}
			cur = newer
		default:
			return cur
		}
	}
}

func (a *App) applyConfig(ctx context.Context, prev, next *config.Config) {
	sections, attrs := config.SummarizeConfigChange(prev, next)
	if len(sections) == 0 {
		a.log.Info("config reloaded (no changes)")
		return
	}

	a.logs.Apply(loggingConfig(next))

	if slices.Contains(sections, "progress_watch") {
		if err := a.applyProgressWatch(ctx, next.ProgressWatch); err != nil {
			a.log.Warn("invalid progress_watch config; watcher stopped", logx.Err(err))
		}
	}

	var restart []string
	for _, s := range sections {
		if !slices.Contains(liveSections, s) {
			restart = append(restart, s)
		}
	}
	if len(restart) > 0 {
		a.log.Warn("config sections changed; restart required", logx.String("sections", strings.Join(restart, ",")))
	}

	fields := append([]logx.Field{logx.String("changed", strings.Join(sections, ","))}, attrs...)
	a.log.Info("config reloaded", fields...)
	a.bus.Publish(eventbus.Event{Type: eventbus.ConfigReloaded, Data: sections})
}
