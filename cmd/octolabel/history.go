package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"octolabel/internal/config"
	"octolabel/internal/notify"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var (
		addr  string
		limit int
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent notification outcomes from a running daemon",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				cfg, err := config.NewManager(ctx.configPath).Load()
				if err != nil {
					return err
				}
				addr = cfg.API.Addr
			}
			items, err := fetchHistory(cmd, addr)
			if err != nil {
				return err
			}
			if limit > 0 && len(items) > limit {
				items = items[len(items)-limit:]
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderHistory(items, time.Now()))
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Daemon API address (default: api.addr from config)")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Show at most n entries (0 = all)")
	return cmd
}

func fetchHistory(cmd *cobra.Command, addr string) ([]notify.Outcome, error) {
	base := addr
	if !strings.Contains(base, "://") {
		base = "http://" + base
	}
	req, err := http.NewRequestWithContext(cmd.Context(), http.MethodGet, strings.TrimRight(base, "/")+"/api/history", http.NoBody)
	if err != nil {
		return nil, err
	}
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("query daemon: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("daemon returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	var items []notify.Outcome
	if err := json.NewDecoder(resp.Body).Decode(&items); err != nil {
		return nil, fmt.Errorf("decode history: %w", err)
	}
	return items, nil
}

func renderHistory(items []notify.Outcome, now time.Time) string {
	if len(items) == 0 {
		return "no notifications yet"
	}
	rows := make([][]string, 0, len(items))
	for i := len(items) - 1; i >= 0; i-- {
		o := items[i]
		msg := o.Message
		if o.Error != "" {
			msg = o.Error
		}
		rows = append(rows, []string{
			humanize.RelTime(o.At, now, "ago", "from now"),
			string(o.Event),
			string(o.Status),
			truncate(strings.ReplaceAll(msg, "\n", " "), 60),
		})
	}
	return renderTable([]string{"When", "Event", "Status", "Message"}, rows, nil)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
