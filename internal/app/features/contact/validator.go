// internal/app/features/contact/validator.go

// Package contact binds to the contact form of a host document and runs
// its validation: inline errors with ARIA state on submit, error clearing
// while the user types, and the success message once everything passes.
package contact

import (
	"github.com/dalemusser/contactform/internal/dom"
	"github.com/dalemusser/contactform/pantry/validate"
	"go.uber.org/zap"
)

// SuccessText is shown after an accepted submit.
const SuccessText = "Thank you! Your message has been sent."

// Outcome is the result of a submit attempt.
type Outcome string

const (
	OutcomeAccepted Outcome = "accepted"
	OutcomeRejected Outcome = "rejected"
	// OutcomeIgnored is returned by a disabled validator.
	OutcomeIgnored Outcome = "ignored"
)

// ValidationResult is the outcome of one Validate pass. Errors holds the
// message of every invalid field keyed by field key; valid fields are absent.
type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors map[string]string `json:"errors"`
}

// Validator runs the contact form rules against one document. A Validator
// whose bindings could not be resolved is disabled and every method is a
// no-op. It is not safe for concurrent use.
type Validator struct {
	doc   *dom.Document
	b     *Bindings
	rules *validate.Validator

	// focusMoved is set when the last Validate or Submit moved focus and
	// cleared by the next keystroke.
	focusMoved bool
}

// Option configures a Validator.
type Option func(*options)

type options struct {
	ids   IDs
	rules *validate.Validator
}

// WithIDs binds to a page that uses different element ids.
func WithIDs(ids IDs) Option {
	return func(o *options) { o.ids = ids }
}

// WithRules replaces the rule engine.
func WithRules(v *validate.Validator) Option {
	return func(o *options) { o.rules = v }
}

// NewRules returns the rule engine with the contact form's messages.
func NewRules() *validate.Validator {
	msgs := validate.DefaultMessages().
		Set("email", "Please enter a valid email address.")
	return validate.New(validate.WithMessages(msgs))
}

// New binds a validator to doc. If binding fails the returned validator
// is disabled and the reason is logged once.
func New(doc *dom.Document, logger *zap.Logger, opts ...Option) *Validator {
	o := options{ids: DefaultIDs()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.rules == nil {
		o.rules = NewRules()
	}

	b, err := Bind(doc, o.ids)
	if err != nil {
		if logger != nil {
			logger.Warn("contact form disabled", zap.Error(err))
		}
		return &Validator{doc: doc, rules: o.rules}
	}
	return &Validator{doc: doc, b: b, rules: o.rules}
}

// Disabled reports whether the validator failed to bind.
func (v *Validator) Disabled() bool {
	return v == nil || v.b == nil
}

// Document returns the document the validator was created for.
func (v *Validator) Document() *dom.Document {
	if v == nil {
		return nil
	}
	return v.doc
}

// Bindings returns the resolved element handles, or nil when disabled.
func (v *Validator) Bindings() *Bindings {
	if v.Disabled() {
		return nil
	}
	return v.b
}

// ClearFieldError empties the field's error text and drops its ARIA state.
func (v *Validator) ClearFieldError(key string) {
	if f := v.field(key); f != nil {
		clearError(f)
	}
}

// ShowFieldError displays message for the field and marks the input invalid.
func (v *Validator) ShowFieldError(key, message string) {
	if f := v.field(key); f != nil {
		showError(f, message)
	}
}

func clearError(f *Field) {
	f.Error.SetTextContent("")
	f.Error.RemoveAttribute("role")
	f.Input.RemoveAttribute("aria-invalid")
	f.Input.RemoveAttribute("aria-describedby")
}

func showError(f *Field, message string) {
	f.Error.SetTextContent(message)
	f.Error.SetAttribute("role", "alert")
	f.Input.SetAttribute("aria-invalid", "true")
	f.Input.SetAttribute("aria-describedby", f.Error.ID())
}

// Validate checks every field, shows an error on each invalid one and
// focuses the first invalid input in document order.
func (v *Validator) Validate() ValidationResult {
	if v.Disabled() {
		return ValidationResult{Errors: map[string]string{}}
	}
	v.focusMoved = false

	values := make([]string, len(v.b.Fields))
	for i := range v.b.Fields {
		values[i] = validate.Trim(v.b.Fields[i].Input.Value())
	}

	for i := range v.b.Fields {
		clearError(&v.b.Fields[i])
	}
	v.b.Success.SetTextContent("")

	var errs validate.Errors
	for i := range v.b.Fields {
		f := &v.b.Fields[i]
		if e := v.rules.Field(f.Spec.Label, values[i], f.Spec.Rules); e != nil {
			showError(f, e.Message)
			e.Field = f.Spec.Key
			errs = append(errs, e)
		}
	}
	res := ValidationResult{Valid: !errs.HasErrors(), Errors: errs.ToMap()}

	if !res.Valid {
		if first := v.b.Form.QueryAttr("aria-invalid", "true"); first != nil {
			first.Focus()
			v.focusMoved = true
		}
	}
	return res
}

// Input applies a keystroke: it stores value on the field and clears the
// field's error when the value is empty or passes the field's format
// rules. It never shows an error.
func (v *Validator) Input(key, value string) bool {
	if v != nil {
		v.focusMoved = false
	}
	f := v.field(key)
	if f == nil {
		return false
	}
	f.Input.SetValue(value)

	trimmed := validate.Trim(value)
	if trimmed == "" {
		clearError(f)
		return true
	}
	if v.rules.Field(f.Spec.Label, trimmed, f.Spec.Rules, "required") == nil {
		clearError(f)
	}
	return true
}

// SetValues stores values on the matching inputs. Keys with no bound
// field are ignored and fields missing from values keep their value.
func (v *Validator) SetValues(values map[string]string) {
	if v.Disabled() {
		return
	}
	for i := range v.b.Fields {
		f := &v.b.Fields[i]
		if val, ok := values[f.Spec.Key]; ok {
			f.Input.SetValue(val)
		}
	}
}

// Submit stores values on the form and validates it. On success the
// form is reset, the success message is shown and focused.
func (v *Validator) Submit(values map[string]string) Outcome {
	if v.Disabled() {
		return OutcomeIgnored
	}
	v.SetValues(values)

	if !v.Validate().Valid {
		v.b.Success.SetTextContent("")
		return OutcomeRejected
	}

	v.b.Success.SetTextContent(SuccessText)
	v.b.Success.SetAttribute("role", "status")
	v.b.Form.Reset()
	for i := range v.b.Fields {
		v.b.Fields[i].Input.RemoveAttribute("aria-invalid")
		v.b.Fields[i].Input.RemoveAttribute("aria-describedby")
	}
	v.b.Success.SetTabIndex(-1)
	v.b.Success.Focus()
	v.focusMoved = true
	return OutcomeAccepted
}

func (v *Validator) field(key string) *Field {
	if v.Disabled() {
		return nil
	}
	f, ok := v.b.Field(key)
	if !ok {
		return nil
	}
	return f
}
