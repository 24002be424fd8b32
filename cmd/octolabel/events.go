package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newEventsCommand(ctx *commandContext) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "events",
		Short: "List events with their merged settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := ctx.newApp()
			if err != nil {
				return err
			}
			defer func() { _ = a.Stop(context.Background()) }()

			defs, err := a.Settings().Events(cmd.Context())
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(defs))
			for _, d := range defs {
				if d.Internal && !all {
					continue
				}
				step := ""
				if d.Step != nil {
					step = strconv.Itoa(*d.Step)
				}
				rows = append(rows, []string{string(d.ID), d.Name, yesNo(d.Enabled), step, d.Message})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"ID", "Name", "Enabled", "Step", "Message"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
			))
			return nil
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "Include internal events")
	return cmd
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
