// Package labelprinter sends rendered messages to a networked label printer
// (brother_ql_web style API: POST /api/print/text).
package labelprinter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"octolabel/internal/script"
	"octolabel/internal/settings"
	logx "octolabel/pkg/logx"
)

const userAgent = "octolabel/0.1"

var ErrNoPrinterAddress = errors.New("label printer address not configured")

// Label is the request body. Formatting is fixed; only Text varies.
type Label struct {
	Text         string
	FontFamily   string
	FontSize     int
	LabelSize    int
	Align        string
	MarginTop    int
	MarginBottom int
	MarginLeft   int
	MarginRight  int
}

// NewLabel returns a label with the standard formatting.
func NewLabel(text string) Label {
	return Label{
		Text:         text,
		FontFamily:   "DejaVu Sans (Condensed Bold)",
		FontSize:     30,
		LabelSize:    62,
		Align:        "center",
		MarginTop:    24,
		MarginBottom: 45,
		MarginLeft:   35,
		MarginRight:  35,
	}
}

// Form encodes the label as form fields.
func (l Label) Form() url.Values {
	return url.Values{
		"text":          {l.Text},
		"font_family":   {l.FontFamily},
		"font_size":     {strconv.Itoa(l.FontSize)},
		"label_size":    {strconv.Itoa(l.LabelSize)},
		"align":         {l.Align},
		"margin_top":    {strconv.Itoa(l.MarginTop)},
		"margin_bottom": {strconv.Itoa(l.MarginBottom)},
		"margin_left":   {strconv.Itoa(l.MarginLeft)},
		"margin_right":  {strconv.Itoa(l.MarginRight)},
	}
}

// Options supplies the merged global settings (printer address).
type Options interface {
	Global(ctx context.Context) (settings.GlobalOptions, error)
}

// Scripts runs the before/after hooks.
type Scripts interface {
	Run(ctx context.Context, event string, phase script.Phase) script.Result
}

type Config struct {
	// Timeout bounds one HTTP request; 0 means 10s.
	Timeout time.Duration
	// RatePerSec caps prints per second; 0 disables the limiter.
	RatePerSec int
}

// Delivery describes one send attempt.
type Delivery struct {
	URL        string
	StatusCode int
	Took       time.Duration
	Before     script.Result
	After      script.Result
}

type Client struct {
	opts    Options
	scripts Scripts
	http    *http.Client
	limiter *rate.Limiter
	log     logx.Logger
}

func New(cfg Config, opts Options, scripts Scripts, log logx.Logger) *Client {
	if log.IsZero() {
		log = logx.Nop()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	c := &Client{
		opts:    opts,
		scripts: scripts,
		http:    &http.Client{Timeout: timeout},
		log:     log,
	}
	if cfg.RatePerSec > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSec), cfg.RatePerSec)
	}
	return c
}

// Send runs the before script, prints message, then runs the after script.
// Script failures never fail the send; transport and status errors do.
func (c *Client) Send(ctx context.Context, event, message string) (Delivery, error) {
	var d Delivery
	if c.scripts != nil {
		d.Before = c.scripts.Run(ctx, event, script.Before)
	}

	err := c.post(ctx, message, &d)

	if c.scripts != nil {
		d.After = c.scripts.Run(ctx, event, script.After)
	}
	return d, err
}

func (c *Client) post(ctx context.Context, message string, d *Delivery) error {
	g, err := c.opts.Global(ctx)
	if err != nil {
		return fmt.Errorf("label printer settings: %w", err)
	}
	addr := strings.TrimSpace(g.PrinterAddress)
	if addr == "" {
		return ErrNoPrinterAddress
	}
	d.URL = endpoint(addr)

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("label printer rate limit: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.URL, strings.NewReader(NewLabel(message).Form().Encode()))
	if err != nil {
		return fmt.Errorf("build print request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	start := time.Now()
	resp, err := c.http.Do(req)
	d.Took = time.Since(start)
	if err != nil {
		return fmt.Errorf("send label: %w", err)
	}
	defer resp.Body.Close()
	d.StatusCode = resp.StatusCode

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("label printer returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	c.log.Debug("label printed", logx.String("url", d.URL), logx.Duration("took", d.Took))
	return nil
}

// endpoint accepts "host", "host:port" or a full base URL.
func endpoint(addr string) string {
	addr = strings.TrimRight(addr, "/")
	if !strings.Contains(addr, "://") {
		addr = "http://" + addr
	}
	return addr + "/api/print/text"
}
