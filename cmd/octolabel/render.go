package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"octolabel/internal/notify"
)

func newRenderCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "render <template> [key=value...]",
		Short: "Render a message template offline",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := parseVars(args[1:])
			if err != nil {
				return err
			}
			res := notify.Render(args[0], data)
			fmt.Fprintln(cmd.OutOrStdout(), res.Text)
			if !res.Rendered() {
				return fmt.Errorf("missing variable %q (available: %s)", res.Missing, strings.Join(res.Available, ", "))
			}
			return nil
		},
	}
}
