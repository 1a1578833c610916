package httpd

import (
	"errors"
	"fmt"

	"github.com/shapestone/shape-httpd/internal/fastparser"
)

var (
	// ErrAddrInUse is returned by Start when the port stays taken after the
	// configured PortReleaser, if any, was asked to release it.
	ErrAddrInUse = errors.New("httpd: address already in use")

	// ErrServerClosed is returned by Stop after the server was already stopped.
	ErrServerClosed = errors.New("httpd: server closed")

	// ErrSourceClosed is returned when a StreamSource is used after Close.
	ErrSourceClosed = errors.New("httpd: stream source closed")

	errSourceNotOpen = errors.New("httpd: stream source not open")

	// errEmptyRequest ends a session whose peer sent nothing.
	errEmptyRequest = errors.New("httpd: empty request")
)

// RequestError is a fault detected while decoding a request or running its
// handler. The session reports it to the client as an error response with
// Status and then ends.
type RequestError struct {
	Status  string // e.g. StatusBadRequest
	Message string // human-readable, logged by the session
	Err     error  // underlying cause, may be nil
}

// Error implements the error interface.
func (e *RequestError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("httpd: %s: %s: %v", e.Status, e.Message, e.Err)
	}
	return fmt.Sprintf("httpd: %s: %s", e.Status, e.Message)
}

// Unwrap returns the underlying cause.
func (e *RequestError) Unwrap() error {
	return e.Err
}

func badRequest(msg string, err error) *RequestError {
	return &RequestError{Status: StatusBadRequest, Message: "BAD REQUEST: " + msg, Err: err}
}

func internalError(msg string, err error) *RequestError {
	return &RequestError{Status: StatusInternalError, Message: "SERVER INTERNAL ERROR: " + msg, Err: err}
}

// decodeFault maps a decoder error to the response the client gets.
// Malformed input is a 400; anything else is a 500.
func decodeFault(err error) *RequestError {
	if errors.Is(err, fastparser.ErrBadRequest) {
		return badRequest("malformed request", err)
	}
	return internalError("decoding request", err)
}
