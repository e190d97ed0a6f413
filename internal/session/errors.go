package session

import (
	"errors"
	"fmt"
)

var (
	// ErrLoopback is returned when a caller asks the session to send to its
	// own id. Local delivery belongs to the channel multiplexer.
	ErrLoopback = errors.New("send to local peer")

	ErrClosed = errors.New("session closed")
)

// RegistrationError reports that the session could not claim its room code.
type RegistrationError struct {
	Op      string
	Code    string
	Err     error
	Details string
}

func (e *RegistrationError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s %s: %v (%s)", e.Op, e.Code, e.Err, e.Details)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Code, e.Err)
}

func (e *RegistrationError) Unwrap() error {
	return e.Err
}

// ConnectError reports that an outbound connection never opened.
type ConnectError struct {
	Op      string
	Code    string
	Err     error
	Details string
}

func (e *ConnectError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s %s: %v (%s)", e.Op, e.Code, e.Err, e.Details)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Code, e.Err)
}

func (e *ConnectError) Unwrap() error {
	return e.Err
}
