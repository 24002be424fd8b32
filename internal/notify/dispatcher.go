package notify

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"octolabel/internal/catalog"
	"octolabel/internal/eventbus"
	"octolabel/internal/labelprinter"
	"octolabel/internal/telemetry"
	logx "octolabel/pkg/logx"
)

type Status string

const (
	StatusDelivered      Status = "delivered"
	StatusDeliveryFailed Status = "delivery_failed"
	StatusUnknownEvent   Status = "unknown_event"
	StatusDisabled       Status = "disabled"
	StatusGated          Status = "gated"
	StatusNoSettings     Status = "settings_unavailable"
)

// Outcome describes one Dispatch call.
type Outcome struct {
	ID        string        `json:"id"`
	Event     catalog.ID    `json:"event"`
	Status    Status        `json:"status"`
	Message   string        `json:"message,omitempty"`
	Missing   string        `json:"missing,omitempty"`
	Available []string      `json:"available,omitempty"`
	Error     string        `json:"error,omitempty"`
	HTTPCode  int           `json:"http_code,omitempty"`
	At        time.Time     `json:"at"`
	Took      time.Duration `json:"took"`
}

// EventSource returns the merged configuration of an event.
type EventSource interface {
	Event(ctx context.Context, id catalog.ID) (catalog.EventDefinition, error)
}

// Sender delivers a rendered message.
type Sender interface {
	Send(ctx context.Context, event, message string) (labelprinter.Delivery, error)
}

type Dispatcher struct {
	mu sync.Mutex

	events    EventSource
	telemetry telemetry.Accessor
	sender    Sender
	bus       eventbus.Bus
	log       logx.Logger
}

// NewDispatcher wires the engine. telemetry and bus may be nil.
func NewDispatcher(events EventSource, tel telemetry.Accessor, sender Sender, bus eventbus.Bus, log logx.Logger) *Dispatcher {
	if log.IsZero() {
		log = logx.Nop()
	}
	if bus == nil {
		bus = eventbus.Nop{}
	}
	return &Dispatcher{events: events, telemetry: tel, sender: sender, bus: bus, log: log}
}

// Notify dispatches and reports whether a label was delivered.
func (d *Dispatcher) Notify(ctx context.Context, id catalog.ID, data Data) bool {
	return d.Dispatch(ctx, id, data).Status == StatusDelivered
}

// NotifyTest fires the synthetic test event.
func (d *Dispatcher) NotifyTest(ctx context.Context) bool {
	return d.Notify(ctx, catalog.Test, nil)
}

// Dispatch runs gating, enrichment, rendering and delivery for one event.
// Calls are serialized.
func (d *Dispatcher) Dispatch(ctx context.Context, id catalog.ID, data Data) Outcome {
	d.mu.Lock()
	defer d.mu.Unlock()

	start := time.Now()
	out := d.dispatch(ctx, id, data)
	out.ID = uuid.NewString()
	out.Event = id
	out.At = start
	out.Took = time.Since(start)
	d.publish(out)
	return out
}

func (d *Dispatcher) dispatch(ctx context.Context, id catalog.ID, data Data) Outcome {
	log := d.log.With(logx.String("event", string(id)))

	if !catalog.Known(id) {
		log.Error("notification for unknown event")
		return Outcome{Status: StatusUnknownEvent, Error: catalog.ErrUnknownEvent.Error()}
	}

	def, err := d.events.Event(ctx, id)
	if err != nil {
		log.Error("load event settings failed", logx.Err(err))
		return Outcome{Status: StatusNoSettings, Error: err.Error()}
	}
	if !def.Enabled {
		return Outcome{Status: StatusDisabled}
	}
	if id == catalog.PrintingProgress && !progressFires(def.Step, data) {
		return Outcome{Status: StatusGated}
	}

	vars := data.Clone()
	vars.setDefault(KeyName, def.Name)
	d.enrich(ctx, vars, log)

	res := Render(def.Message, vars)
	if !res.Rendered() {
		log.Warn("template references missing variable", logx.String("missing", res.Missing))
	}
	log.Debug("available variables", logx.Strs("vars", vars.Keys()))
	log.Debug("message", logx.String("text", res.Text))

	out := Outcome{Message: res.Text, Missing: res.Missing, Available: res.Available}
	delivery, err := d.sender.Send(ctx, string(id), res.Text)
	out.HTTPCode = delivery.StatusCode
	if err != nil {
		lvl := log.Error
		if errors.Is(err, labelprinter.ErrNoPrinterAddress) {
			lvl = log.Warn
		}
		lvl("label delivery failed", logx.Err(err))
		out.Status = StatusDeliveryFailed
		out.Error = err.Error()
		return out
	}
	out.Status = StatusDelivered
	log.Info("label delivered", logx.Duration("took", delivery.Took))
	return out
}

// progressFires applies the step rule: 0 < p < 100 and p is a multiple of
// step. A missing or zero step never fires, nor does non-numeric progress.
func progressFires(step *int, data Data) bool {
	if step == nil || *step <= 0 {
		return false
	}
	p, ok := data.Int(KeyProgress)
	if !ok {
		return false
	}
	return p > 0 && p < 100 && p%*step == 0
}

func (d *Dispatcher) enrich(ctx context.Context, vars Data, log logx.Logger) {
	if d.telemetry == nil {
		return
	}
	snap, err := d.telemetry.Current(ctx)
	if err != nil {
		log.Debug("telemetry unavailable", logx.Err(err))
		return
	}
	if snap.PrintTimeLeft != nil {
		vars.setDefault(KeyRemaining, *snap.PrintTimeLeft)
		vars.setDefault(KeyRemainingFormatted, FormatDuration(*snap.PrintTimeLeft))
	}
	if snap.PrintTime != nil {
		vars.setDefault(KeySpent, *snap.PrintTime)
		vars.setDefault(KeySpentFormatted, FormatDuration(*snap.PrintTime))
	}
}

func (d *Dispatcher) publish(o Outcome) {
	typ := eventbus.NotificationSkipped
	switch o.Status {
	case StatusDelivered:
		typ = eventbus.NotificationDelivered
	case StatusDeliveryFailed:
		typ = eventbus.NotificationFailed
	}
	d.bus.Publish(eventbus.Event{Type: typ, Time: o.At, Data: o})
}
