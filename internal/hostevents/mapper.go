// Package hostevents normalizes print-server event names and payloads into
// catalog event ids and notification data.
package hostevents

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"octolabel/internal/catalog"
	"octolabel/internal/notify"
)

var ErrInvalidPayload = errors.New("invalid event payload")

// Host event names as emitted by OctoPrint.
const (
	Startup             = "Startup"
	Shutdown            = "Shutdown"
	PrinterStateChanged = "PrinterStateChanged"
	PrintStarted        = "PrintStarted"
	PrintPaused         = "PrintPaused"
	PrintResumed        = "PrintResumed"
	PrintCancelled      = "PrintCancelled"
	PrintDone           = "PrintDone"
	PrintFailed         = "PrintFailed"
)

// HostEvent is one raw event from the print server.
type HostEvent struct {
	Name    string         `json:"event"`
	Payload map[string]any `json:"payload,omitempty"`
}

// Mapped is a host event resolved to a catalog id.
type Mapped struct {
	Event catalog.ID
	Data  notify.Data
}

var printEvents = map[string]catalog.ID{
	PrintStarted:   catalog.PrintingStarted,
	PrintPaused:    catalog.PrintingPaused,
	PrintResumed:   catalog.PrintingResumed,
	PrintCancelled: catalog.PrintingCancelled,
	PrintFailed:    catalog.PrintingFailed,
}

var printerStates = map[string]catalog.ID{
	"OPERATIONAL": catalog.PrinterStateOperational,
	"ERROR":       catalog.PrinterStateError,
	"UNKNOWN":     catalog.PrinterStateUnknown,
}

type Mapper struct{}

// Map resolves a host event. ok is false for events that never notify.
func (Mapper) Map(ev HostEvent) (m Mapped, ok bool, err error) {
	switch ev.Name {
	case Startup:
		return Mapped{Event: catalog.Startup}, true, nil
	case Shutdown:
		return Mapped{Event: catalog.Shutdown}, true, nil
	case PrinterStateChanged:
		raw, present := ev.Payload["state_id"]
		state, isStr := raw.(string)
		if !present || !isStr {
			return Mapped{}, false, fmt.Errorf("%w: %s requires string state_id", ErrInvalidPayload, ev.Name)
		}
		id, known := printerStates[strings.ToUpper(state)]
		if !known {
			return Mapped{}, false, nil
		}
		return Mapped{Event: id}, true, nil
	case PrintDone:
		secs, valid := notify.AsInt(ev.Payload[notify.KeyTime])
		if !valid || secs < 0 {
			return Mapped{}, false, fmt.Errorf("%w: %s requires numeric time", ErrInvalidPayload, ev.Name)
		}
		data := notify.Data(ev.Payload).Clone()
		data[notify.KeyTimeFormatted] = notify.FormatDuration(secs)
		return Mapped{Event: catalog.PrintingDone, Data: data}, true, nil
	}
	if id, known := printEvents[ev.Name]; known {
		return Mapped{Event: id, Data: notify.Data(ev.Payload).Clone()}, true, nil
	}
	return Mapped{}, false, nil
}

// Progress maps a print progress callback. progress must be within 0..100.
func (Mapper) Progress(location, path string, progress float64) (Mapped, error) {
	if math.IsNaN(progress) || progress < 0 || progress > 100 {
		return Mapped{}, fmt.Errorf("%w: progress %v out of range", ErrInvalidPayload, progress)
	}
	data := notify.Data{notify.KeyProgress: int(progress)}
	if path != "" {
		data["path"] = path
	}
	if location != "" {
		data["location"] = location
	}
	return Mapped{Event: catalog.PrintingProgress, Data: data}, nil
}
