package formsubmit

import (
	"slices"
	"sync"
)

// FieldSource exposes the current text value of a form field by id.
// Unknown ids read as "".
type FieldSource interface {
	FieldValue(id string) string
}

// Page is the part of a hosting document the handler reads and mutates.
type Page interface {
	FieldSource
	SetTextContent(id, text string)
	Navigate(location string) error
}

// SubmitEvent is the event a form emits on submission.
type SubmitEvent interface {
	PreventDefault()
}

// FormTarget is a form that accepts submit listeners.
type FormTarget interface {
	OnSubmit(listener func(SubmitEvent))
}

// StaticDocument is an in-memory Page safe for concurrent use.
type StaticDocument struct {
	mu          sync.Mutex
	fields      map[string]string
	text        map[string]string
	navigations []string
	forms       map[string]*StaticForm
}

// NewStaticDocument returns a document pre-filled with the given field values.
func NewStaticDocument(fields map[string]string) *StaticDocument {
	d := &StaticDocument{
		fields: make(map[string]string, len(fields)),
		text:   make(map[string]string),
		forms:  make(map[string]*StaticForm),
	}
	for id, v := range fields {
		d.fields[id] = v
	}
	return d
}

// FieldValue returns the current value of field id, or "" when it is unknown.
func (d *StaticDocument) FieldValue(id string) string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.fields[id]
}

// SetField changes a field value, as typing into an input would.
func (d *StaticDocument) SetField(id, value string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.fields[id] = value
}

// SetTextContent replaces the text of element id.
func (d *StaticDocument) SetTextContent(id, text string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.text[id] = text
}

// TextContent returns the text last written to id.
func (d *StaticDocument) TextContent(id string) string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.text[id]
}

// Navigate records location as the page's next destination.
func (d *StaticDocument) Navigate(location string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.navigations = append(d.navigations, location)
	return nil
}

// Navigations returns every location navigated to, oldest first.
func (d *StaticDocument) Navigations() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.navigations...)
}

// Form returns the form with the given id, creating it on first use.
func (d *StaticDocument) Form(id string) *StaticForm {
	d.mu.Lock()
	defer d.mu.Unlock()
	form, ok := d.forms[id]
	if !ok {
		form = &StaticForm{}
		d.forms[id] = form
	}
	return form
}

// StaticForm dispatches submit events to its listeners.
type StaticForm struct {
	mu        sync.Mutex
	listeners []func(SubmitEvent)
}

// OnSubmit adds a listener called on every Submit.
func (f *StaticForm) OnSubmit(listener func(SubmitEvent)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listeners = append(f.listeners, listener)
}

// Submit fires a submit event through every listener and returns it.
func (f *StaticForm) Submit() *Event {
	f.mu.Lock()
	listeners := slices.Clone(f.listeners)
	f.mu.Unlock()

	ev := &Event{}
	for _, listener := range listeners {
		listener(ev)
	}
	return ev
}

// Event is a SubmitEvent that records whether its default was prevented.
type Event struct {
	mu        sync.Mutex
	prevented bool
}

// PreventDefault marks the event so the form's native submission is skipped.
func (e *Event) PreventDefault() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.prevented = true
}

// DefaultPrevented reports whether a listener suppressed the default action.
func (e *Event) DefaultPrevented() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.prevented
}
