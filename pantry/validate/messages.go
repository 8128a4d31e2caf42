// validate/messages.go
package validate

import (
	"fmt"
	"strings"
	"sync"
)

// MessageProvider maps rule names to message templates. Templates may
// use {field} and {param}. A "field.rule" key overrides the plain rule
// key for that one field.
type MessageProvider struct {
	mu       sync.RWMutex
	messages map[string]string
}

// NewMessageProvider creates an empty message provider.
func NewMessageProvider() *MessageProvider {
	return &MessageProvider{messages: make(map[string]string)}
}

// DefaultMessages returns a provider with the built-in English messages.
func DefaultMessages() *MessageProvider {
	m := NewMessageProvider()
	for k, v := range defaultMessages {
		m.messages[k] = v
	}
	return m
}

// Set adds or replaces a message template.
func (m *MessageProvider) Set(key, message string) *MessageProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages[key] = message
	return m
}

// Get returns the formatted message for a failed rule on field.
func (m *MessageProvider) Get(rule, field, param string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if msg, ok := m.messages[field+"."+rule]; ok {
		return format(msg, field, param)
	}
	if msg, ok := m.messages[rule]; ok {
		return format(msg, field, param)
	}
	return fmt.Sprintf("%s validation failed for %s", rule, field)
}

func format(msg, field, param string) string {
	msg = strings.ReplaceAll(msg, "{field}", field)
	return strings.ReplaceAll(msg, "{param}", param)
}

var defaultMessages = map[string]string{
	"required": "{field} is required.",
	"email":    "{field} must be a valid email address.",
	"min":      "{field} must be at least {param} characters.",
	"max":      "{field} must be at most {param} characters.",
	"len":      "{field} must be exactly {param} characters.",
}
