// internal/app/bootstrap/status.go
package bootstrap

import (
	"context"
	"sync/atomic"

	"github.com/dalemusser/contactform/internal/app/features/clock"
	"github.com/dalemusser/contactform/internal/app/features/contact"
	"github.com/dalemusser/contactform/internal/dom"
	"github.com/dalemusser/contactform/pantry/health"
	"go.uber.org/zap"
)

// ComponentStatus records whether the contact form and the clock could
// bind to the current page.
type ComponentStatus struct {
	contact atomic.Value // error or nil
	clock   atomic.Value
}

type probeResult struct{ err error }

// Probe binds both components to doc, logging once for each that is
// disabled, and records the outcome.
func (s *ComponentStatus) Probe(doc *dom.Document, logger *zap.Logger) {
	var contactErr error
	if _, err := contact.Bind(doc, contact.DefaultIDs()); err != nil {
		contactErr = err
		logger.Warn("contact form disabled", zap.Error(err))
	}
	s.contact.Store(probeResult{contactErr})

	var clockErr error
	if doc.GetElementByID(clock.TargetID) == nil {
		clockErr = clock.ErrNoTarget
		logger.Warn("clock display disabled", zap.Error(clockErr))
	}
	s.clock.Store(probeResult{clockErr})
}

// Checks returns health checks reporting the last probe.
func (s *ComponentStatus) Checks() map[string]health.Check {
	check := func(v *atomic.Value) health.Check {
		return func(context.Context) error {
			r, _ := v.Load().(probeResult)
			return r.err
		}
	}
	return map[string]health.Check{
		"contact": check(&s.contact),
		"clock":   check(&s.clock),
	}
}
