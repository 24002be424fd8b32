package config

import (
	"errors"
	"fmt"
	"strings"

	logx "octolabel/pkg/logx"
)

// Validate checks values that do not depend on other components.
func (c *Config) Validate() error {
	var errs []error
	if !logx.ValidLevel(c.Logging.Level) {
		errs = append(errs, fmt.Errorf("logging.level: unknown level %q", c.Logging.Level))
	}
	switch strings.ToLower(strings.TrimSpace(c.Settings.Driver)) {
	case "", "file", "sqlite":
	default:
		errs = append(errs, fmt.Errorf("settings.driver: unknown driver %q", c.Settings.Driver))
	}
	if c.LabelPrinter.RatePerSec < 0 {
		errs = append(errs, errors.New("label_printer.rate_per_sec must be >= 0"))
	}
	if _, err := c.Resolve(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
