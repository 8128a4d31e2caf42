// internal/app/features/contact/handler.go
package contact

import (
	"context"
	"errors"
	"net/http"

	"github.com/dalemusser/contactform/httputil"
	"github.com/dalemusser/contactform/internal/dom"
	"github.com/dalemusser/contactform/metrics"
	"github.com/dalemusser/contactform/middleware"
	perrors "github.com/dalemusser/contactform/pantry/errors"
	"github.com/dalemusser/contactform/pantry/websocket"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Sessions hands out a private host document per session.
type Sessions interface {
	Session() *dom.Document
}

// Message types on the websocket session.
const (
	MsgInput  = "input"
	MsgSubmit = "submit"
	MsgState  = "state"
	MsgError  = "error"
)

// InputPayload is the payload of an input message.
type InputPayload struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

// SubmitPayload is the payload of a submit message.
type SubmitPayload struct {
	Values map[string]string `json:"values"`
}

// ErrorPayload is the payload of an error reply.
type ErrorPayload struct {
	Message string `json:"message"`
}

// Values is the JSON body of the validate endpoint.
type Values struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Subject string `json:"subject"`
	Message string `json:"message"`
}

func (v Values) toMap() map[string]string {
	return map[string]string{
		"name":    v.Name,
		"email":   v.Email,
		"subject": v.Subject,
		"message": v.Message,
	}
}

// Handler serves the contact form transports. Every request or websocket
// session works on its own document from Pages.
type Handler struct {
	Pages  Sessions
	Opts   []Option
	WS     websocket.AcceptOptions
	WSConf websocket.Config
	Logger *zap.Logger
}

// NewHandler creates a Handler. originPatterns are the extra origins
// allowed to open a websocket session.
func NewHandler(pages Sessions, logger *zap.Logger, originPatterns []string, opts ...Option) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		Pages:  pages,
		Opts:   opts,
		WS:     websocket.AcceptOptions{OriginPatterns: originPatterns},
		WSConf: websocket.DefaultConfig(),
		Logger: logger,
	}
}

// Mount attaches the contact routes to r.
func (h *Handler) Mount(r chi.Router) {
	r.Post("/contact", h.submitForm)
	r.With(middleware.RequireJSON()).
		Post("/api/contact/validate", perrors.WrapWithLogger(h.validate, h.Logger))
	r.Get("/ws/contact", h.serveWS)
}

func (h *Handler) session() *Validator {
	return New(h.Pages.Session(), nil, h.Opts...)
}

func unavailable() error {
	return perrors.ServiceUnavailable("contact form unavailable")
}

// submitForm is the no-script fallback: the browser posts the form and
// gets the page back with errors or the success message rendered in.
func (h *Handler) submitForm(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			perrors.Write(w, perrors.RequestTooLarge("request body too large"))
			return
		}
		perrors.Write(w, perrors.BadRequest("malformed form body"))
		return
	}

	v := h.session()
	if v.Disabled() {
		perrors.Write(w, unavailable())
		return
	}

	values := make(map[string]string, len(v.b.Fields))
	for _, f := range v.b.Fields {
		values[f.Spec.Key] = r.PostForm.Get(f.Spec.Key)
	}
	outcome := v.Submit(values)
	metrics.ContactSubmission(string(outcome))

	if el := v.Document().ActiveElement(); el != nil {
		el.SetAttribute("autofocus", "")
	}
	status := http.StatusOK
	if outcome == OutcomeRejected {
		status = http.StatusUnprocessableEntity
	}
	httputil.WriteHTML(w, status, v.Document())
}

func (h *Handler) validate(w http.ResponseWriter, r *http.Request) error {
	var body Values
	if err := httputil.BindJSON(r, &body); err != nil {
		if errors.Is(err, httputil.ErrBodyTooLarge) {
			return perrors.RequestTooLarge(err.Error())
		}
		return perrors.BadRequest(err.Error())
	}

	v := h.session()
	if v.Disabled() {
		return unavailable()
	}
	v.SetValues(body.toMap())
	httputil.WriteJSON(w, http.StatusOK, v.Validate())
	return nil
}

// serveWS runs one live session. Each message is applied to the
// session's validator and answered with the resulting state. Bad messages
// get an error reply and the session carries on.
func (h *Handler) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &h.WS)
	if err != nil {
		h.Logger.Debug("websocket accept failed", zap.Error(err))
		return
	}
	defer conn.Close()

	v := h.session()
	if err := conn.WriteMessage(r.Context(), stateMessage(v)); err != nil {
		return
	}

	err = websocket.RunWithConfig(r.Context(), conn, h.WSConf, func(ctx context.Context, _ websocket.MessageType, data []byte) error {
		ev, err := decodeEvent(data)
		if err == nil {
			err = Dispatch(v, ev)
		}
		if err != nil {
			return writeError(ctx, conn, err)
		}
		recordEvent(v, ev)
		return conn.WriteMessage(ctx, stateMessage(v))
	})
	if err != nil && !websocket.IsNormalClose(err) && !errors.Is(err, context.Canceled) {
		h.Logger.Debug("websocket session ended", zap.Error(err))
	}
}

func decodeEvent(data []byte) (Event, error) {
	m, err := websocket.UnmarshalMessage(data)
	if err != nil {
		return Event{}, err
	}
	switch m.Type {
	case MsgInput:
		var p InputPayload
		if err := m.ParsePayload(&p); err != nil {
			return Event{}, err
		}
		return Event{Kind: EventInput, Field: p.Field, Value: p.Value}, nil
	case MsgSubmit:
		var p SubmitPayload
		if err := m.ParsePayload(&p); err != nil {
			return Event{}, err
		}
		return Event{Kind: EventSubmit, Values: p.Values}, nil
	}
	return Event{Kind: EventKind(m.Type)}, nil
}

func recordEvent(v *Validator, ev Event) {
	if v.Disabled() {
		return
	}
	switch ev.Kind {
	case EventInput:
		metrics.ContactLiveEvent(ev.Field)
	case EventSubmit:
		if v.b.Success.TextContent() != "" {
			metrics.ContactSubmission(string(OutcomeAccepted))
		} else {
			metrics.ContactSubmission(string(OutcomeRejected))
		}
	}
}

func stateMessage(v *Validator) *websocket.Message {
	m, _ := websocket.NewMessage(MsgState, v.State())
	return m
}

func writeError(ctx context.Context, conn *websocket.Conn, err error) error {
	m, _ := websocket.NewMessage(MsgError, ErrorPayload{Message: err.Error()})
	return conn.WriteMessage(ctx, m)
}
