// internal/app/features/contact/state.go
package contact

// FieldState is the visible state of one field.
type FieldState struct {
	Value       string `json:"value"`
	Error       string `json:"error"`
	ErrorRole   string `json:"errorRole,omitempty"`
	Invalid     bool   `json:"invalid"`
	DescribedBy string `json:"describedBy,omitempty"`
}

// FormState is a snapshot of everything the validator controls. It is what
// browsers receive and apply to the live page.
type FormState struct {
	Disabled    bool                  `json:"disabled,omitempty"`
	Fields      map[string]FieldState `json:"fields"`
	Success     string                `json:"success"`
	SuccessRole string                `json:"successRole,omitempty"`
	// Focus is the element the last validate or submit moved focus to.
	// It is empty after a keystroke so clients leave the caret alone.
	Focus       string                `json:"focus,omitempty"`
}

// State reads the current form state from the document.
func (v *Validator) State() FormState {
	if v.Disabled() {
		return FormState{Disabled: true, Fields: map[string]FieldState{}}
	}

	st := FormState{Fields: make(map[string]FieldState, len(v.b.Fields))}
	for _, f := range v.b.Fields {
		fs := FieldState{
			Value: f.Input.Value(),
			Error: f.Error.TextContent(),
		}
		fs.ErrorRole, _ = f.Error.GetAttribute("role")
		inv, _ := f.Input.GetAttribute("aria-invalid")
		fs.Invalid = inv == "true"
		fs.DescribedBy, _ = f.Input.GetAttribute("aria-describedby")
		st.Fields[f.Spec.Key] = fs
	}
	st.Success = v.b.Success.TextContent()
	st.SuccessRole, _ = v.b.Success.GetAttribute("role")

	if v.focusMoved {
		if el := v.doc.ActiveElement(); el != nil {
			st.Focus = el.ID()
		}
	}
	return st
}
