// Package script runs the optional user scripts around label delivery.
//
// A script never aborts delivery: launch failures, non-zero exits and
// timeouts are captured in the Result and logged.
package script

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"octolabel/internal/settings"
	logx "octolabel/pkg/logx"
)

// Phase selects which configured script runs.
type Phase string

const (
	Before Phase = "before"
	After  Phase = "after"
)

// Options supplies the merged global settings.
type Options interface {
	Global(ctx context.Context) (settings.GlobalOptions, error)
}

// Result is the outcome of one Run. Output is the captured stdout; Err holds
// the launch/exit error if any.
type Result struct {
	Ran    bool
	Output []byte
	Err    error
}

type Config struct {
	// Timeout bounds the process; 0 disables it.
	Timeout time.Duration
}

type Runner struct {
	opts Options
	cfg  Config
	log  logx.Logger
}

func NewRunner(opts Options, cfg Config, log logx.Logger) *Runner {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Runner{opts: opts, cfg: cfg, log: log}
}

// Run executes the script configured for phase, if scripts are allowed and the
// path exists.
func (r *Runner) Run(ctx context.Context, event string, phase Phase) Result {
	if r == nil || r.opts == nil {
		return Result{}
	}
	g, err := r.opts.Global(ctx)
	if err != nil {
		r.log.Warn("script settings unavailable", logx.String("event", event), logx.String("phase", string(phase)), logx.Err(err))
		return Result{Err: err}
	}
	if !g.AllowScripts {
		return Result{}
	}

	var path string
	switch phase {
	case Before:
		path = g.ScriptBefore
	case After:
		path = g.ScriptAfter
	}
	path = strings.TrimSpace(path)
	r.log.Debug("script to start", logx.String("event", event), logx.String("phase", string(phase)), logx.String("path", path))
	if path == "" {
		return Result{}
	}
	if _, err := os.Stat(path); err != nil {
		return Result{}
	}

	res := r.exec(ctx, path, event, phase)
	fields := []logx.Field{
		logx.String("event", event),
		logx.String("phase", string(phase)),
		logx.String("output", string(res.Output)),
	}
	if res.Err != nil {
		r.log.Warn("script failed", append(fields, logx.Err(res.Err))...)
	} else {
		r.log.Debug("script finished", fields...)
	}
	return res
}

func (r *Runner) exec(ctx context.Context, path, event string, phase Phase) Result {
	if r.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, path)
	// Children that inherit stdout must not hold Output() past the deadline.
	cmd.WaitDelay = time.Second
	cmd.Env = append(os.Environ(),
		"OCTOLABEL_EVENT="+event,
		"OCTOLABEL_PHASE="+string(phase),
	)
	out, err := cmd.Output()
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			err = fmt.Errorf("script timed out after %s: %w", r.cfg.Timeout, err)
		}
		return Result{Ran: true, Output: out, Err: err}
	}
	return Result{Ran: true, Output: out}
}
