// Package telemetry reads the live print job snapshot from OctoPrint.
package telemetry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

var ErrNotConfigured = errors.New("telemetry source not configured")

// Snapshot is the progress part of the printer's current data.
// Nil fields mean the printer did not report a value.
type Snapshot struct {
	PrintTime     *int
	PrintTimeLeft *int
	Completion    *float64
	State         string
	// File is the job's file path and Origin its storage ("local", "sdcard").
	File   string
	Origin string
}

// Accessor supplies the current snapshot.
type Accessor interface {
	Current(ctx context.Context) (Snapshot, error)
}

// Static returns a fixed snapshot. Used when no OctoPrint URL is configured
// and in tests.
type Static Snapshot

func (s Static) Current(context.Context) (Snapshot, error) { return Snapshot(s), nil }

// Config configures the OctoPrint client.
type Config struct {
	URL     string
	APIKey  string
	Timeout time.Duration
}

// Client queries GET <url>/api/job.
type Client struct {
	base   string
	apiKey string
	http   *http.Client
}

func NewClient(cfg Config) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.URL), "/")
	if base == "" {
		return nil, ErrNotConfigured
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		base:   base,
		apiKey: cfg.APIKey,
		http:   &http.Client{Timeout: timeout},
	}, nil
}

type jobResponse struct {
	State string `json:"state"`
	Job   struct {
		File struct {
			Path   string `json:"path"`
			Origin string `json:"origin"`
		} `json:"file"`
	} `json:"job"`
	Progress *struct {
		Completion    *float64 `json:"completion"`
		PrintTime     *float64 `json:"printTime"`
		PrintTimeLeft *float64 `json:"printTimeLeft"`
	} `json:"progress"`
}

func (c *Client) Current(ctx context.Context) (Snapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/api/job", http.NoBody)
	if err != nil {
		return Snapshot{}, fmt.Errorf("build job request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-Api-Key", c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return Snapshot{}, fmt.Errorf("query job: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Snapshot{}, fmt.Errorf("octoprint returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var jr jobResponse
	if err := json.NewDecoder(resp.Body).Decode(&jr); err != nil {
		return Snapshot{}, fmt.Errorf("decode job: %w", err)
	}

	snap := Snapshot{State: jr.State, File: jr.Job.File.Path, Origin: jr.Job.File.Origin}
	if p := jr.Progress; p != nil {
		snap.PrintTime = seconds(p.PrintTime)
		snap.PrintTimeLeft = seconds(p.PrintTimeLeft)
		snap.Completion = p.Completion
	}
	return snap, nil
}

func seconds(v *float64) *int {
	if v == nil {
		return nil
	}
	s := int(*v)
	return &s
}
