package config

import (
	"fmt"
	"strings"
	"time"
)

// ParseDurationField parses a non-negative duration; empty means zero.
// path names the field in errors.
func ParseDurationField(path, raw string) (time.Duration, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q: %w", path, raw, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s: duration must be >= 0", path)
	}
	return d, nil
}

// ParseDurationOrDefault is ParseDurationField with def for empty or zero.
func ParseDurationOrDefault(path, raw string, def time.Duration) (time.Duration, error) {
	d, err := ParseDurationField(path, raw)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return def, nil
	}
	return d, nil
}

// Resolved holds the parsed durations of a validated Config.
type Resolved struct {
	APIRequestTimeout   time.Duration
	SettingsBusyTimeout time.Duration
	OctoPrintTimeout    time.Duration
	LabelPrinterTimeout time.Duration
	ScriptTimeout       time.Duration
}

// Resolve parses every duration field. An explicit "0s" script timeout
// disables the bound; an omitted one defaults to 30s.
func (c *Config) Resolve() (Resolved, error) {
	var (
		r   Resolved
		err error
	)
	if r.APIRequestTimeout, err = ParseDurationOrDefault("api.request_timeout", c.API.RequestTimeout, 60*time.Second); err != nil {
		return r, err
	}
	if r.SettingsBusyTimeout, err = ParseDurationOrDefault("settings.busy_timeout", c.Settings.BusyTimeout, 2*time.Second); err != nil {
		return r, err
	}
	if r.OctoPrintTimeout, err = ParseDurationOrDefault("octoprint.timeout", c.OctoPrint.Timeout, 5*time.Second); err != nil {
		return r, err
	}
	if r.LabelPrinterTimeout, err = ParseDurationOrDefault("label_printer.timeout", c.LabelPrinter.Timeout, 10*time.Second); err != nil {
		return r, err
	}
	if strings.TrimSpace(c.Scripts.Timeout) == "" {
		r.ScriptTimeout = 30 * time.Second
	} else if r.ScriptTimeout, err = ParseDurationField("scripts.timeout", c.Scripts.Timeout); err != nil {
		return r, err
	}
	return r, nil
}
