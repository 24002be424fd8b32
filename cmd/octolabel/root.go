// Command octolabel prints 3D-print lifecycle notifications on a networked
// label printer.
//
//	octolabel serve -c config.yaml     run the daemon (host API on api.addr)
//	octolabel events                   list events with merged settings
//	octolabel notify printing_done time=3725
//	octolabel render "{name} {progress}%" name=Benchy progress=40
//	octolabel history                  recent outcomes from a running daemon
//	octolabel check-config -c config.yaml
package main

import (
	"github.com/spf13/cobra"

	"octolabel/internal/app"
)

type commandContext struct {
	configPath string
}

// newApp builds the engine without starting the daemon loops.
func (c *commandContext) newApp() (*app.App, error) {
	return app.NewApp(c.configPath)
}

func newRootCommand() *cobra.Command {
	ctx := &commandContext{}

	rootCmd := &cobra.Command{
		Use:           "octolabel",
		Short:         "Label printer notifications for 3D print events",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	rootCmd.PersistentFlags().StringVarP(&ctx.configPath, "config", "c", "", "Configuration file path (JSON or YAML)")

	rootCmd.AddCommand(newServeCommand(ctx))
	rootCmd.AddCommand(newEventsCommand(ctx))
	rootCmd.AddCommand(newNotifyCommand(ctx))
	rootCmd.AddCommand(newRenderCommand())
	rootCmd.AddCommand(newHistoryCommand(ctx))
	rootCmd.AddCommand(newCheckConfigCommand(ctx))
	return rootCmd
}
