// sse/errors.go
package sse

import "errors"

var (
	// ErrFlushNotSupported is returned when the response writer cannot flush.
	ErrFlushNotSupported = errors.New("sse: response writer does not support flushing")

	// ErrStreamClosed is returned when sending on a closed stream.
	ErrStreamClosed = errors.New("sse: stream closed")
)
