// Package notify is the event notification engine.
//
// A Dispatcher takes an event id and its data, decides whether a label should
// be printed (enabled flag, progress step rule), enriches the data with live
// print telemetry, renders the event's message template and hands the text to
// the label printer.
//
// # Rendering
//
// Templates use {variable} placeholders; "{{" and "}}" produce literal braces.
// A template that references a variable absent from the data still produces a
// label: the template text followed by a warning naming the missing variable
// and listing the ones that were available.
//
// # Outcomes
//
// Every call returns an Outcome and publishes it on the event bus as
// notification.delivered, notification.failed or notification.skipped.
// Errors never escape Dispatch; callers get a status instead.
package notify
