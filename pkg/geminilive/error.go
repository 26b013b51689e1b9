package geminilive

import (
	"errors"
	"fmt"
)

// ErrClosed is returned when sending on a closed session.
var ErrClosed = errors.New("geminilive: session closed")

// Error is a failure reported by the Live API, either as a rejected
// handshake or as a websocket close frame.
type Error struct {
	// Code is the websocket close code, zero for handshake failures.
	Code int

	// Message is the reason text sent by the server.
	Message string

	// HTTPStatus is set when the handshake was rejected.
	HTTPStatus int
}

// Error implements the error interface.
func (e *Error) Error() string {
	switch {
	case e.HTTPStatus != 0:
		return fmt.Sprintf("geminilive: handshake rejected (HTTP %d): %s", e.HTTPStatus, e.Message)
	case e.Code != 0:
		return fmt.Sprintf("geminilive: closed with code %d: %s", e.Code, e.Message)
	}
	return "geminilive: " + e.Message
}
