package contact

import (
	"errors"
	"strings"
	"testing"

	"github.com/dalemusser/contactform/internal/dom"
	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

const testPage = `<!DOCTYPE html><html><body>
<form id="contactForm">
  <input id="name" name="name"><small id="error-name"></small>
  <input id="email" name="email" type="email"><small id="error-email"></small>
  <input id="subject" name="subject"><small id="error-subject"></small>
  <textarea id="message" name="message"></textarea><small id="error-message"></small>
  <button type="submit">Send</button>
</form>
<p id="successMsg"></p>
</body></html>`

func parse(t *testing.T, src string) *dom.Document {
	t.Helper()
	doc, err := dom.ParseString(src)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return doc
}

func newTestValidator(t *testing.T) *Validator {
	t.Helper()
	v := New(parse(t, testPage), nil)
	if v.Disabled() {
		t.Fatal("validator disabled on test page")
	}
	return v
}

func validValues() map[string]string {
	return map[string]string{
		"name":    "Jane Doe",
		"email":   "jane@example.com",
		"subject": "Hi",
		"message": "Hello there!",
	}
}

func errorsOf(st FormState) map[string]string {
	out := map[string]string{}
	for k, f := range st.Fields {
		if f.Error != "" {
			out[k] = f.Error
		}
	}
	return out
}

func TestSubmit_SingleMissingField(t *testing.T) {
	tests := []struct {
		field string
		want  string
	}{
		{"name", "Full name is required."},
		{"email", "Email is required."},
		{"subject", "Subject is required."},
		{"message", "Message must be at least 10 characters."},
	}

	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			v := newTestValidator(t)
			values := validValues()
			values[tt.field] = "   "

			if got := v.Submit(values); got != OutcomeRejected {
				t.Fatalf("outcome = %q, want rejected", got)
			}

			st := v.State()
			if diff := cmp.Diff(map[string]string{tt.field: tt.want}, errorsOf(st)); diff != "" {
				t.Errorf("errors mismatch (-want +got):\n%s", diff)
			}
			f := st.Fields[tt.field]
			if !f.Invalid || f.ErrorRole != "alert" || f.DescribedBy != "error-"+tt.field {
				t.Errorf("ARIA state = %+v", f)
			}
			if st.Focus != tt.field {
				t.Errorf("focus = %q, want %q", st.Focus, tt.field)
			}
			if st.Success != "" {
				t.Errorf("success shown on rejection: %q", st.Success)
			}
		})
	}
}

func TestValidate_Email(t *testing.T) {
	tests := []struct {
		value string
		want  string
	}{
		{"a@b.c", ""},
		{"  jane@example.com  ", ""},
		{"not-an-email", "Please enter a valid email address."},
		{"a@b", "Please enter a valid email address."},
		{"a b@c.d", "Please enter a valid email address."},
		{"jane\u00a0doe@example.com", "Please enter a valid email address."},
		{"jane\vdoe@example.com", "Please enter a valid email address."},
		{"a@b\u2028c.d", "Please enter a valid email address."},
		{"\u00a0jane@example.com\ufeff", ""},
		{"", "Email is required."},
		{"\u00a0\u3000", "Email is required."},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			v := newTestValidator(t)
			values := validValues()
			values["email"] = tt.value
			v.SetValues(values)

			res := v.Validate()
			if got := res.Errors["email"]; got != tt.want {
				t.Errorf("email error = %q, want %q", got, tt.want)
			}
			if res.Valid != (tt.want == "") {
				t.Errorf("valid = %v", res.Valid)
			}
		})
	}
}

func TestValidate_MessageLength(t *testing.T) {
	const msg = "Message must be at least 10 characters."
	tests := []struct {
		name  string
		value string
		want  string
	}{
		{"nine", "123456789", msg},
		{"ten", "1234567890", ""},
		{"padded nine", "   123456789   ", msg},
		{"empty", "", msg},
		{"nine runes", "ééééééééé", msg},
		{"ten runes", "éééééééééé", ""},
		{"five emoji", "😀😀😀😀😀", ""},
		{"four emoji", "😀😀😀😀", msg},
		{"nbsp padded nine", "\u00a0123456789\u00a0", msg},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := newTestValidator(t)
			values := validValues()
			values["message"] = tt.value
			v.SetValues(values)

			if got := v.Validate().Errors["message"]; got != tt.want {
				t.Errorf("message error = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestValidate_AllInvalidFocusesFirst(t *testing.T) {
	v := newTestValidator(t)
	res := v.Validate()

	if res.Valid || len(res.Errors) != 4 {
		t.Fatalf("result = %+v, want four errors", res)
	}
	if st := v.State(); st.Focus != "name" {
		t.Errorf("focus = %q, want name", st.Focus)
	}
}

func TestInput_LeavesFocusAlone(t *testing.T) {
	v := newTestValidator(t)
	values := validValues()
	values["name"] = ""
	values["email"] = "bad"
	if got := v.Submit(values); got != OutcomeRejected {
		t.Fatalf("outcome = %q", got)
	}
	if st := v.State(); st.Focus != "name" {
		t.Fatalf("focus after submit = %q, want name", st.Focus)
	}

	v.Input("name", "Jane")
	v.Input("email", "j")
	if st := v.State(); st.Focus != "" {
		t.Errorf("focus after typing = %q, want none", st.Focus)
	}

	if got := v.Submit(validValues()); got != OutcomeAccepted {
		t.Fatalf("outcome = %q", got)
	}
	v.Input("name", "J")
	if st := v.State(); st.Focus != "" {
		t.Errorf("focus after typing past success = %q, want none", st.Focus)
	}
}

func TestValidate_ClearsPreviousErrors(t *testing.T) {
	v := newTestValidator(t)
	v.Validate()

	v.SetValues(validValues())
	if res := v.Validate(); !res.Valid {
		t.Fatalf("result = %+v", res)
	}
	for k, f := range v.State().Fields {
		if f.Error != "" || f.Invalid || f.DescribedBy != "" || f.ErrorRole != "" {
			t.Errorf("%s still marked: %+v", k, f)
		}
	}
}

func TestSubmit_Accepted(t *testing.T) {
	v := newTestValidator(t)
	v.Validate()

	if got := v.Submit(validValues()); got != OutcomeAccepted {
		t.Fatalf("outcome = %q, want accepted", got)
	}

	want := FormState{
		Fields: map[string]FieldState{
			"name":    {},
			"email":   {},
			"subject": {},
			"message": {},
		},
		Success:     SuccessText,
		SuccessRole: "status",
		Focus:       "successMsg",
	}
	if diff := cmp.Diff(want, v.State()); diff != "" {
		t.Errorf("state mismatch (-want +got):\n%s", diff)
	}
	if ti, _ := v.Bindings().Success.GetAttribute("tabindex"); ti != "-1" {
		t.Errorf("success tabindex = %q, want -1", ti)
	}

	// A later pass sees the reset form.
	res := v.Validate()
	if res.Valid || len(res.Errors) != 4 {
		t.Errorf("validate after reset = %+v, want all four empty", res)
	}
	for k, f := range v.State().Fields {
		if f.Value != "" {
			t.Errorf("%s = %q after reset", k, f.Value)
		}
	}
}

func TestSubmit_ResetRestoresDefaults(t *testing.T) {
	src := strings.Replace(testPage, `<input id="subject" name="subject">`, `<input id="subject" name="subject" value="General">`, 1)
	v := New(parse(t, src), nil)

	values := validValues()
	values["subject"] = "Billing"
	if got := v.Submit(values); got != OutcomeAccepted {
		t.Fatalf("outcome = %q", got)
	}
	if got := v.State().Fields["subject"].Value; got != "General" {
		t.Errorf("subject after reset = %q, want default %q", got, "General")
	}
}

func TestInput_RoundTrip(t *testing.T) {
	v := newTestValidator(t)
	values := validValues()
	values["name"] = ""
	values["email"] = "nope"
	v.Submit(values)

	v.Input("name", "Jane")

	got := errorsOf(v.State())
	want := map[string]string{"email": "Please enter a valid email address."}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("errors mismatch (-want +got):\n%s", diff)
	}
	if v.State().Fields["name"].Value != "Jane" {
		t.Error("input value not stored")
	}
}

func TestInput_Relaxation(t *testing.T) {
	v := newTestValidator(t)
	v.Validate()

	steps := []struct {
		field, value string
		wantErr      bool
	}{
		{"email", "still-bad", true},
		{"email", "", false},
		{"email", "still-bad", false},
		{"message", "short", true},
		{"message", "   ", false},
		{"message", "long enough now", false},
		{"subject", " x ", false},
	}
	for _, s := range steps {
		if !v.Input(s.field, s.value) {
			t.Fatalf("Input(%q) rejected", s.field)
		}
		if got := v.State().Fields[s.field].Error != ""; got != s.wantErr {
			t.Errorf("after Input(%q, %q): has error = %v, want %v", s.field, s.value, got, s.wantErr)
		}
	}
}

func TestInput_UnknownField(t *testing.T) {
	v := newTestValidator(t)
	if v.Input("phone", "123") {
		t.Error("Input accepted unknown field")
	}
}

func TestShowAndClearFieldError(t *testing.T) {
	v := newTestValidator(t)
	v.ShowFieldError("subject", "Nope.")

	want := FieldState{Error: "Nope.", ErrorRole: "alert", Invalid: true, DescribedBy: "error-subject"}
	if diff := cmp.Diff(want, v.State().Fields["subject"]); diff != "" {
		t.Errorf("shown state mismatch (-want +got):\n%s", diff)
	}

	v.ClearFieldError("subject")
	if diff := cmp.Diff(FieldState{}, v.State().Fields["subject"]); diff != "" {
		t.Errorf("cleared state mismatch (-want +got):\n%s", diff)
	}
}

func TestBind_MissingElement(t *testing.T) {
	tests := []struct {
		name   string
		src    string
		wantID string
	}{
		{"no form", `<p id="successMsg"></p>`, "#contactForm"},
		{"no success", strings.Replace(testPage, `id="successMsg"`, `id="other"`, 1), "#successMsg"},
		{"no error element", strings.Replace(testPage, `id="error-email"`, `id="x"`, 1), "#error-email"},
		{"no input", strings.Replace(testPage, `<textarea id="message"`, `<textarea id="body"`, 1), "#message"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Bind(parse(t, tt.src), DefaultIDs())
			if !errors.Is(err, ErrMissingElement) {
				t.Fatalf("err = %v, want ErrMissingElement", err)
			}
			if !strings.Contains(err.Error(), tt.wantID) {
				t.Errorf("err = %v, want mention of %s", err, tt.wantID)
			}
		})
	}

	if _, err := Bind(nil, DefaultIDs()); !errors.Is(err, ErrMissingElement) {
		t.Errorf("nil document err = %v", err)
	}
}

func TestDisabledValidator(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	doc := parse(t, `<html><body><p id="successMsg"></p></body></html>`)
	before := doc.String()

	v := New(doc, zap.New(core))
	if !v.Disabled() {
		t.Fatal("validator should be disabled without a form")
	}
	if logs.FilterMessage("contact form disabled").Len() != 1 {
		t.Errorf("want one warning, got %d entries", logs.Len())
	}

	v.ClearFieldError("name")
	v.ShowFieldError("name", "x")
	v.SetValues(validValues())
	if v.Input("name", "x") {
		t.Error("disabled Input reported success")
	}
	if res := v.Validate(); res.Valid || len(res.Errors) != 0 {
		t.Errorf("disabled Validate = %+v", res)
	}
	if got := v.Submit(validValues()); got != OutcomeIgnored {
		t.Errorf("disabled Submit = %q", got)
	}
	if st := v.State(); !st.Disabled || len(st.Fields) != 0 {
		t.Errorf("disabled State = %+v", st)
	}
	if v.Bindings() != nil {
		t.Error("disabled Bindings should be nil")
	}
	if doc.String() != before {
		t.Error("disabled validator wrote to the document")
	}

	var nilV *Validator
	if !nilV.Disabled() || nilV.Document() != nil {
		t.Error("nil validator should be disabled")
	}
}

func TestWithIDs(t *testing.T) {
	src := `<form id="f"><input id="who"><span id="who-err"></span></form><div id="done"></div>`
	ids := IDs{
		Form:    "f",
		Success: "done",
		Fields:  []FieldSpec{{Key: "who", Label: "Name", InputID: "who", ErrorID: "who-err", Rules: "required"}},
	}
	v := New(parse(t, src), nil, WithIDs(ids))
	if v.Disabled() {
		t.Fatal("custom ids did not bind")
	}

	if got := v.Submit(map[string]string{"who": ""}); got != OutcomeRejected {
		t.Errorf("outcome = %q", got)
	}
	if got := v.State().Fields["who"].Error; got != "Name is required." {
		t.Errorf("error = %q", got)
	}
	if got := v.Submit(map[string]string{"who": "Jo"}); got != OutcomeAccepted {
		t.Errorf("outcome = %q", got)
	}
}
