// websocket/errors.go
package websocket

import (
	"errors"

	"github.com/coder/websocket"
)

var (
	// ErrConnectionClosed is returned when writing to a closed connection.
	ErrConnectionClosed = errors.New("websocket: connection closed")

	// ErrMissingType is returned for an envelope without a type.
	ErrMissingType = errors.New("websocket: message has no type")
)

// IsNormalClose reports whether err ends a session the ordinary way: the
// peer closed normally or went away.
func IsNormalClose(err error) bool {
	switch websocket.CloseStatus(err) {
	case websocket.StatusNormalClosure, websocket.StatusGoingAway:
		return true
	}
	return false
}
