package chat

import (
	"errors"
)

var (
	ErrBadRequest = errors.New("bad request")
	ErrNotFound   = errors.New("not found")
	ErrForbidden  = errors.New("forbidden")

	// ErrSelfChat is returned when a user addresses a message to themselves.
	ErrSelfChat = errors.New("chat with me")
)

// ProtocolError is a client mistake. Message is safe to show the caller.
type ProtocolError struct {
	Kind    error
	Message string
}

func (e *ProtocolError) Error() string { return e.Message }

func (e *ProtocolError) Unwrap() error { return e.Kind }

func badRequest(msg string) error {
	return &ProtocolError{Kind: ErrBadRequest, Message: msg}
}

func notFound(msg string) error {
	return &ProtocolError{Kind: ErrNotFound, Message: msg}
}

func forbidden(msg string) error {
	return &ProtocolError{Kind: ErrForbidden, Message: msg}
}
