// internal/app/features/clock/handler.go
package clock

import (
	"context"
	"net/http"
	"time"

	"github.com/dalemusser/contactform/metrics"
	"github.com/dalemusser/contactform/pantry/errors"
	"github.com/dalemusser/contactform/pantry/sse"
	"go.uber.org/zap"
)

// EventName is the SSE event type carrying the clock text.
const EventName = "time"

// Handler streams the clock over Server-Sent Events.
type Handler struct {
	Period time.Duration
	Now    func() time.Time
	SSE    sse.Config
	Logger *zap.Logger
}

// NewHandler creates a Handler ticking every period.
func NewHandler(period time.Duration, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{Period: period, SSE: sse.DefaultConfig(), Logger: logger}
}

// ServeHTTP sends a time event at once and then every period until the
// client goes away.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	stream, err := sse.NewStream(w, r)
	if err != nil {
		errors.WriteWithLogger(w, errors.Wrap(err, errors.CodeInternalError, "streaming unsupported", http.StatusInternalServerError), h.Logger)
		return
	}
	defer metrics.ClockStreamOpened()()

	err = sse.ServeFunc(r.Context(), stream, h.SSE, func(ctx context.Context, send func(*sse.Event) error) error {
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		var sendErr error
		target := FuncTarget(func(text string) {
			if err := send(sse.NewEventWithType(EventName, text)); err != nil {
				sendErr = err
				cancel()
			}
		})
		New(target, nil, WithPeriod(h.Period), WithNow(h.Now)).Start(ctx)
		return sendErr
	})
	if err != nil {
		h.Logger.Debug("clock stream ended", zap.Error(err))
	}
}
