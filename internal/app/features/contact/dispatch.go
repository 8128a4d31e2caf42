// internal/app/features/contact/dispatch.go
package contact

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownEvent is returned by Dispatch for an event kind with no handler.
	ErrUnknownEvent = errors.New("contact: unknown event")

	// ErrUnknownField is returned for an input event naming no bound field.
	ErrUnknownField = errors.New("contact: unknown field")
)

// EventKind names a browser event the validator reacts to.
type EventKind string

const (
	EventInput  EventKind = "input"
	EventSubmit EventKind = "submit"
)

// Event is one browser event. Field and Value are set for input events,
// Values for submit events.
type Event struct {
	Kind   EventKind
	Field  string
	Value  string
	Values map[string]string
}

// EventHandler reacts to one event kind.
type EventHandler func(v *Validator, ev Event) error

// Handlers is the dispatch table for browser events.
var Handlers = map[EventKind]EventHandler{
	EventInput:  handleInput,
	EventSubmit: handleSubmit,
}

// Dispatch routes ev to its handler. A disabled validator accepts every
// known event and does nothing.
func Dispatch(v *Validator, ev Event) error {
	h, ok := Handlers[ev.Kind]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownEvent, ev.Kind)
	}
	if v.Disabled() {
		return nil
	}
	return h(v, ev)
}

func handleInput(v *Validator, ev Event) error {
	if !v.Input(ev.Field, ev.Value) {
		return fmt.Errorf("%w: %q", ErrUnknownField, ev.Field)
	}
	return nil
}

func handleSubmit(v *Validator, ev Event) error {
	v.Submit(ev.Values)
	return nil
}
