package config

import (
	"strings"

	logx "octolabel/pkg/logx"
)

// SummarizeConfigChange lists the sections that differ and returns log
// fields describing the new values. Secrets (api_key, admin_token) are
// reported only as "_set" booleans.
func SummarizeConfigChange(oldCfg, newCfg *Config) ([]string, []logx.Field) {
	if oldCfg == nil {
		oldCfg = &Config{}
	}
	if newCfg == nil {
		newCfg = &Config{}
	}
	var (
		changed []string
		attrs   []logx.Field
	)
	set := func(s string) bool { return strings.TrimSpace(s) != "" }

	if oldCfg.Logging != newCfg.Logging {
		changed = append(changed, "logging")
		attrs = append(attrs,
			logx.String("logging.level", newCfg.Logging.Level),
			logx.Bool("logging.console", newCfg.Logging.Console),
			logx.Bool("logging.file_enabled", newCfg.Logging.File.Enabled),
		)
	}
	if oldCfg.API.Addr != newCfg.API.Addr ||
		oldCfg.API.AllowAllOrigins != newCfg.API.AllowAllOrigins ||
		oldCfg.API.RequestTimeout != newCfg.API.RequestTimeout ||
		oldCfg.API.AdminToken != newCfg.API.AdminToken {
		changed = append(changed, "api")
		attrs = append(attrs,
			logx.String("api.addr", newCfg.API.Addr),
			logx.Bool("api.allow_all_origins", newCfg.API.AllowAllOrigins),
			logx.Bool("api.admin_token_set", set(newCfg.API.AdminToken)),
		)
	}
	if oldCfg.Settings != newCfg.Settings {
		changed = append(changed, "settings")
		attrs = append(attrs,
			logx.String("settings.driver", newCfg.Settings.Driver),
			logx.String("settings.path", newCfg.Settings.Path),
		)
	}
	if oldCfg.OctoPrint != newCfg.OctoPrint {
		changed = append(changed, "octoprint")
		attrs = append(attrs,
			logx.String("octoprint.url", newCfg.OctoPrint.URL),
			logx.String("octoprint.timeout", newCfg.OctoPrint.Timeout),
			logx.Bool("octoprint.api_key_set", set(newCfg.OctoPrint.APIKey)),
		)
	}
	if oldCfg.LabelPrinter != newCfg.LabelPrinter {
		changed = append(changed, "label_printer")
		attrs = append(attrs,
			logx.String("label_printer.timeout", newCfg.LabelPrinter.Timeout),
			logx.Int("label_printer.rate_per_sec", newCfg.LabelPrinter.RatePerSec),
		)
	}
	if oldCfg.Scripts != newCfg.Scripts {
		changed = append(changed, "scripts")
		attrs = append(attrs, logx.String("scripts.timeout", newCfg.Scripts.Timeout))
	}
	if oldCfg.ProgressWatch != newCfg.ProgressWatch {
		changed = append(changed, "progress_watch")
		attrs = append(attrs,
			logx.Bool("progress_watch.enabled", newCfg.ProgressWatch.Enabled),
			logx.String("progress_watch.schedule", newCfg.ProgressWatch.Schedule),
		)
	}
	return changed, attrs
}
