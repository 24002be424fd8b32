package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"octolabel/internal/config"
	"octolabel/internal/progresswatch"
	"octolabel/internal/telemetry"
	logx "octolabel/pkg/logx"
)

func newCheckConfigCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "check-config",
		Short: "Validate the configuration file and print the effective values",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.NewManager(ctx.configPath).Load()
			if err != nil {
				return err
			}
			res, err := cfg.Resolve()
			if err != nil {
				return err
			}
			if _, err := progresswatch.New(progresswatch.Config{Schedule: cfg.ProgressWatch.Schedule}, telemetry.Static{}, nil, logx.Nop()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Key", "Value"}, configRows(cfg, res), nil))
			return nil
		},
	}
}

// configRows lists effective values; secrets are reported as set/unset.
func configRows(cfg *config.Config, res config.Resolved) [][]string {
	set := func(s string) string {
		if s == "" {
			return "unset"
		}
		return "set"
	}
	return [][]string{
		{"logging.level", cfg.Logging.Level},
		{"api.addr", cfg.API.Addr},
		{"api.admin_token", set(cfg.API.AdminToken)},
		{"settings.driver", cfg.Settings.Driver},
		{"settings.path", cfg.Settings.Path},
		{"octoprint.url", cfg.OctoPrint.URL},
		{"octoprint.api_key", set(cfg.OctoPrint.APIKey)},
		{"octoprint.timeout", res.OctoPrintTimeout.String()},
		{"label_printer.timeout", res.LabelPrinterTimeout.String()},
		{"label_printer.rate_per_sec", strconv.Itoa(cfg.LabelPrinter.RatePerSec)},
		{"scripts.timeout", res.ScriptTimeout.String()},
		{"progress_watch.enabled", yesNo(cfg.ProgressWatch.Enabled)},
		{"progress_watch.schedule", cfg.ProgressWatch.Schedule},
	}
}
