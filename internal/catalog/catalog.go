// Package catalog is the closed registry of event kinds octolabel knows about.
//
// The table is immutable: Defaults and Lookup hand out copies, and
// per-installation overrides live in the settings store only.
package catalog

import (
	"errors"
	"fmt"
)

// ID identifies an event kind.
type ID string

const (
	Startup                 ID = "startup"
	Shutdown                ID = "shutdown"
	PrinterStateOperational ID = "printer_state_operational"
	PrinterStateError       ID = "printer_state_error"
	PrinterStateUnknown     ID = "printer_state_unknown"
	PrintingStarted         ID = "printing_started"
	PrintingPaused          ID = "printing_paused"
	PrintingResumed         ID = "printing_resumed"
	PrintingCancelled       ID = "printing_cancelled"
	PrintingDone            ID = "printing_done"
	PrintingFailed          ID = "printing_failed"
	PrintingProgress        ID = "printing_progress"

	// Test is synthetic: it is only fired by the settings change monitor and
	// is never exposed as user-configurable.
	Test ID = "test"
)

var ErrUnknownEvent = errors.New("unknown event")

// EventDefinition is the default configuration of one event kind.
type EventDefinition struct {
	ID      ID     `json:"id"`
	Name    string `json:"name"`
	Enabled bool   `json:"enabled"`
	Message string `json:"message"`
	// Step is only meaningful for PrintingProgress.
	Step *int `json:"step,omitempty"`
	// Internal marks events that are not user-configurable.
	Internal bool `json:"internal,omitempty"`
}

// Clone returns a deep copy (Step is a pointer).
func (d EventDefinition) Clone() EventDefinition {
	if d.Step != nil {
		v := *d.Step
		d.Step = &v
	}
	return d
}

const defaultMessage = "{name}"

const defaultProgressStep = 10

// order is the stable presentation order (settings UI, CLI listing).
var order = []ID{
	Startup,
	Shutdown,
	PrinterStateOperational,
	PrinterStateError,
	PrinterStateUnknown,
	PrintingStarted,
	PrintingPaused,
	PrintingResumed,
	PrintingCancelled,
	PrintingDone,
	PrintingFailed,
	PrintingProgress,
	Test,
}

var table = func() map[ID]EventDefinition {
	step := defaultProgressStep
	defs := []EventDefinition{
		{ID: Startup, Name: "Octoprint Startup"},
		{ID: Shutdown, Name: "Octoprint Shutdown"},
		{ID: PrinterStateOperational, Name: "Printer state : operational"},
		{ID: PrinterStateError, Name: "Printer state : error"},
		{ID: PrinterStateUnknown, Name: "Printer state : unknown"},
		{ID: PrintingStarted, Name: "Printing process : started"},
		{ID: PrintingPaused, Name: "Printing process : paused"},
		{ID: PrintingResumed, Name: "Printing process : resumed"},
		{ID: PrintingCancelled, Name: "Printing process : cancelled"},
		{ID: PrintingDone, Name: "Printing process : done", Enabled: true},
		{ID: PrintingFailed, Name: "Printing process : failed"},
		{ID: PrintingProgress, Name: "Printing progress", Step: &step},
		{ID: Test, Name: "Test message", Enabled: true, Internal: true},
	}
	m := make(map[ID]EventDefinition, len(defs))
	for _, d := range defs {
		d.Message = defaultMessage
		m[d.ID] = d
	}
	return m
}()

// Defaults returns a fresh copy of every event definition.
func Defaults() map[ID]EventDefinition {
	out := make(map[ID]EventDefinition, len(table))
	for id, d := range table {
		out[id] = d.Clone()
	}
	return out
}

// Lookup returns the default definition for id.
func Lookup(id ID) (EventDefinition, bool) {
	d, ok := table[id]
	if !ok {
		return EventDefinition{}, false
	}
	return d.Clone(), true
}

// Known reports whether id is part of the catalog.
func Known(id ID) bool {
	_, ok := table[id]
	return ok
}

// IDs returns all ids in presentation order.
func IDs() []ID {
	return append([]ID(nil), order...)
}

// Parse validates a raw id string.
func Parse(raw string) (ID, error) {
	id := ID(raw)
	if !Known(id) {
		return "", fmt.Errorf("%w: %q", ErrUnknownEvent, raw)
	}
	return id, nil
}
