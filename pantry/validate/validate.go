// validate/validate.go

// Package validate checks string form values against comma-separated
// rule tags and turns failures into display messages.
//
// Basic usage:
//
//	v := validate.New()
//	if e := v.Field("Email", value, "required,email"); e != nil {
//	    fmt.Println(e.Message)
//	}
//
// Rules run in tag order and the first failing rule for a field wins.
// Values are checked as given; callers trim them first when leading and
// trailing whitespace should not count.
package validate

import (
	"regexp"
	"strconv"
	"strings"
	"sync"
	"unicode"
	"unicode/utf16"
)

// RuleFunc reports whether value passes the rule. param is the text
// after "=" in the tag ("10" for "min=10"), or empty.
type RuleFunc func(value, param string) bool

// Validator holds named rules and the messages used when they fail.
// It is safe for concurrent use.
type Validator struct {
	mu       sync.RWMutex
	rules    map[string]RuleFunc
	messages *MessageProvider
}

// Option configures the validator.
type Option func(*Validator)

// New creates a validator with the built-in rules.
func New(opts ...Option) *Validator {
	v := &Validator{
		rules:    make(map[string]RuleFunc),
		messages: DefaultMessages(),
	}
	v.registerBuiltinRules()
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// WithMessages sets a custom message provider.
func WithMessages(m *MessageProvider) Option {
	return func(v *Validator) {
		v.messages = m
	}
}

// WithRule registers an additional rule, replacing a built-in of the same name.
func WithRule(name string, fn RuleFunc) Option {
	return func(v *Validator) {
		v.rules[name] = fn
	}
}

// RegisterRule registers a custom validation rule.
func (v *Validator) RegisterRule(name string, fn RuleFunc) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.rules[name] = fn
}

// Field runs the rules of tag against value and returns the first
// failure, or nil. Rules named in skip are not evaluated. Unknown rule
// names are ignored.
func (v *Validator) Field(field, value, tag string, skip ...string) *Error {
	v.mu.RLock()
	defer v.mu.RUnlock()

	for _, r := range ParseTag(tag) {
		if contains(skip, r.Name) {
			continue
		}
		fn, ok := v.rules[r.Name]
		if !ok {
			continue
		}
		if fn(value, r.Param) {
			continue
		}
		return &Error{
			Field:   field,
			Rule:    r.Name,
			Param:   r.Param,
			Value:   value,
			Message: v.messages.Get(r.Name, field, r.Param),
		}
	}
	return nil
}

// Rule is one parsed entry of a tag.
type Rule struct {
	Name  string
	Param string
}

// ParseTag splits "required,min=10" into rules.
func ParseTag(tag string) []Rule {
	var rules []Rule
	for _, part := range strings.Split(tag, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		r := Rule{Name: part}
		if idx := strings.IndexByte(part, '='); idx != -1 {
			r.Name = part[:idx]
			r.Param = part[idx+1:]
		}
		rules = append(rules, r)
	}
	return rules
}

func (v *Validator) registerBuiltinRules() {
	v.rules["required"] = ruleRequired
	v.rules["email"] = ruleEmail
	v.rules["min"] = ruleMin
	v.rules["max"] = ruleMax
	v.rules["len"] = ruleLen
}

// emailRegex is loose: something, "@", something, ".", something, with
// no whitespace anywhere. RE2's \S only excludes ASCII space, so the
// class also rules out \v, Unicode separators and the BOM.
var emailRegex = regexp.MustCompile(`^[^\s\v\p{Z}\x{FEFF}]+@[^\s\v\p{Z}\x{FEFF}]+\.[^\s\v\p{Z}\x{FEFF}]+$`)

// IsSpace reports whether r is whitespace the way browsers trim form
// values: Unicode white space plus the byte order mark.
func IsSpace(r rune) bool {
	return unicode.IsSpace(r) || r == '\uFEFF'
}

// Trim strips leading and trailing whitespace as browsers do.
func Trim(value string) string {
	return strings.TrimFunc(value, IsSpace)
}

func ruleRequired(value, _ string) bool {
	return Trim(value) != ""
}

// ruleEmail passes empty values; pair it with required.
func ruleEmail(value, _ string) bool {
	return value == "" || emailRegex.MatchString(value)
}

// Length counts UTF-16 code units, the length a browser reports for the
// same input. Characters outside the BMP count twice.
func Length(value string) int {
	n := 0
	for _, r := range value {
		n += utf16.RuneLen(r)
	}
	return n
}

func ruleMin(value, param string) bool {
	n, err := strconv.Atoi(param)
	if err != nil {
		return true
	}
	return Length(value) >= n
}

func ruleMax(value, param string) bool {
	n, err := strconv.Atoi(param)
	if err != nil {
		return true
	}
	return Length(value) <= n
}

func ruleLen(value, param string) bool {
	n, err := strconv.Atoi(param)
	if err != nil {
		return true
	}
	return Length(value) == n
}

// Error describes one failed rule.
type Error struct {
	Field   string
	Rule    string
	Param   string
	Value   string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// Errors is a collection of validation errors.
type Errors []*Error

func (e Errors) Error() string {
	if len(e) == 0 {
		return ""
	}
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Message)
	}
	return strings.Join(msgs, "; ")
}

// HasErrors returns true if there are any errors.
func (e Errors) HasErrors() bool {
	return len(e) > 0
}

// ToMap converts errors to a map of field -> first message.
func (e Errors) ToMap() map[string]string {
	result := make(map[string]string, len(e))
	for _, err := range e {
		if _, ok := result[err.Field]; !ok {
			result[err.Field] = err.Message
		}
	}
	return result
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
