// internal/app/features/contact/fields.go
package contact

import (
	"errors"
	"fmt"

	"github.com/dalemusser/contactform/internal/dom"
)

// ErrMissingElement is returned by Bind when the host document lacks one
// of the elements the form needs.
var ErrMissingElement = errors.New("contact: missing element")

// FieldSpec describes one form field: where it lives in the host page and
// which rules apply to it.
type FieldSpec struct {
	Key     string // name used in events and results
	Label   string // name used in messages
	InputID string
	ErrorID string
	Rules   string // validate tag
}

// IDs names every element the validator binds to.
type IDs struct {
	Form    string
	Success string
	Fields  []FieldSpec
}

// DefaultIDs returns the element ids of the stock contact page.
func DefaultIDs() IDs {
	return IDs{
		Form:    "contactForm",
		Success: "successMsg",
		Fields: []FieldSpec{
			{Key: "name", Label: "Full name", InputID: "name", ErrorID: "error-name", Rules: "required"},
			{Key: "email", Label: "Email", InputID: "email", ErrorID: "error-email", Rules: "required,email"},
			{Key: "subject", Label: "Subject", InputID: "subject", ErrorID: "error-subject", Rules: "required"},
			{Key: "message", Label: "Message", InputID: "message", ErrorID: "error-message", Rules: "min=10"},
		},
	}
}

// Field is a bound field: its spec plus the live element handles.
type Field struct {
	Spec  FieldSpec
	Input *dom.Element
	Error *dom.Element
}

// Bindings are the element handles resolved once at bind time. Fields keep
// the order of IDs.Fields, which is also the validation order.
type Bindings struct {
	Form    *dom.Element
	Success *dom.Element
	Fields  []Field
}

// Bind resolves ids against doc. The form is looked up first, so a page
// without a form reports the form id.
func Bind(doc *dom.Document, ids IDs) (*Bindings, error) {
	if doc == nil {
		return nil, fmt.Errorf("%w: no document", ErrMissingElement)
	}
	form := doc.GetElementByID(ids.Form)
	if form == nil {
		return nil, fmt.Errorf("%w: #%s", ErrMissingElement, ids.Form)
	}

	b := &Bindings{Form: form, Fields: make([]Field, 0, len(ids.Fields))}
	for _, spec := range ids.Fields {
		in := doc.GetElementByID(spec.InputID)
		if in == nil {
			return nil, fmt.Errorf("%w: #%s", ErrMissingElement, spec.InputID)
		}
		errEl := doc.GetElementByID(spec.ErrorID)
		if errEl == nil {
			return nil, fmt.Errorf("%w: #%s", ErrMissingElement, spec.ErrorID)
		}
		b.Fields = append(b.Fields, Field{Spec: spec, Input: in, Error: errEl})
	}

	b.Success = doc.GetElementByID(ids.Success)
	if b.Success == nil {
		return nil, fmt.Errorf("%w: #%s", ErrMissingElement, ids.Success)
	}
	return b, nil
}

// Field returns the bound field with the given key.
func (b *Bindings) Field(key string) (*Field, bool) {
	for i := range b.Fields {
		if b.Fields[i].Spec.Key == key {
			return &b.Fields[i], true
		}
	}
	return nil, false
}
