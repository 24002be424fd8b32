package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"octolabel/internal/catalog"
	"octolabel/internal/notify"
)

func newNotifyCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "notify <event> [key=value...]",
		Short: "Dispatch one event through the engine and print the outcome",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := catalog.Parse(args[0])
			if err != nil {
				return err
			}
			if def, _ := catalog.Lookup(id); def.Internal {
				return fmt.Errorf("event %q is internal and fires only on identity changes", id)
			}
			data, err := parseVars(args[1:])
			if err != nil {
				return err
			}

			a, err := ctx.newApp()
			if err != nil {
				return err
			}
			defer func() { _ = a.Stop(context.Background()) }()

			if secs, ok := data.Int(notify.KeyTime); ok && id == catalog.PrintingDone {
				if _, set := data[notify.KeyTimeFormatted]; !set {
					data[notify.KeyTimeFormatted] = notify.FormatDuration(secs)
				}
			}
			out := a.Dispatcher().Dispatch(cmd.Context(), id, data)
			printOutcome(cmd, out)
			if out.Status == notify.StatusDeliveryFailed {
				return fmt.Errorf("delivery failed: %s", out.Error)
			}
			return nil
		},
	}
}

func printOutcome(cmd *cobra.Command, o notify.Outcome) {
	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "event:   %s\n", o.Event)
	fmt.Fprintf(w, "status:  %s\n", o.Status)
	if o.Message != "" {
		fmt.Fprintf(w, "message: %s\n", o.Message)
	}
	if o.Error != "" {
		fmt.Fprintf(w, "error:   %s\n", o.Error)
	}
}
