// internal/app/features/clock/clock.go

// Package clock keeps a text target showing the current instant as epoch
// milliseconds, refreshed every period.
package clock

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/dalemusser/contactform/internal/dom"
	"go.uber.org/zap"
)

// TargetID is the id of the clock element in the stock page.
const TargetID = "user-time"

// DefaultPeriod is the refresh period when none is configured.
const DefaultPeriod = time.Second

// ErrNoTarget is logged when a display is created without a target.
var ErrNoTarget = errors.New("clock: no target")

// Target receives the clock text.
type Target interface {
	SetText(text string)
}

// FuncTarget adapts a callback to Target.
type FuncTarget func(text string)

func (f FuncTarget) SetText(text string) { f(text) }

type elementTarget struct{ el *dom.Element }

func (t elementTarget) SetText(text string) { t.el.SetTextContent(text) }

// ElementTarget writes the clock text into el. A nil el gives a nil Target.
func ElementTarget(el *dom.Element) Target {
	if el == nil {
		return nil
	}
	return elementTarget{el: el}
}

// Format renders t the way the display shows it.
func Format(t time.Time) string {
	return strconv.FormatInt(t.UnixMilli(), 10)
}

// Display writes the current instant to its target.
type Display struct {
	target Target
	period time.Duration
	now    func() time.Time
}

// Option configures a Display.
type Option func(*Display)

// WithPeriod sets the refresh period. Non-positive values keep the default.
func WithPeriod(d time.Duration) Option {
	return func(c *Display) {
		if d > 0 {
			c.period = d
		}
	}
}

// WithNow replaces the time source.
func WithNow(now func() time.Time) Option {
	return func(c *Display) {
		if now != nil {
			c.now = now
		}
	}
}

// New creates a display for target. A nil target gives a disabled display
// and logs one warning when logger is set.
func New(target Target, logger *zap.Logger, opts ...Option) *Display {
	if f, ok := target.(FuncTarget); ok && f == nil {
		target = nil
	}
	c := &Display{target: target, period: DefaultPeriod, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	if target == nil && logger != nil {
		logger.Warn("clock display disabled", zap.Error(ErrNoTarget))
	}
	return c
}

// Disabled reports whether the display has no target.
func (c *Display) Disabled() bool {
	return c == nil || c.target == nil
}

// Period returns the refresh period.
func (c *Display) Period() time.Duration { return c.period }

// Tick writes the current instant once.
func (c *Display) Tick() {
	if c.Disabled() {
		return
	}
	c.target.SetText(Format(c.now()))
}

// Start writes the current instant immediately and then once per period
// until ctx is done. A disabled display returns at once.
func (c *Display) Start(ctx context.Context) {
	if c.Disabled() {
		return
	}
	c.Tick()

	ticker := time.NewTicker(c.period)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Tick()
		}
	}
}
