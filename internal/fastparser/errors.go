package fastparser

import (
	"errors"
	"fmt"
)

var (
	// ErrBadRequest marks malformed input: a request line without method or
	// URI, bad percent-encoding, or a garbled multipart body.
	ErrBadRequest = errors.New("bad request")

	// ErrInternal marks failures that are not the client's fault, such as
	// a boundary table that runs out or an upload that cannot be stored.
	ErrInternal = errors.New("internal error")
)

func (p *Parser) errorf(kind error, format string, args ...interface{}) error {
	msg := fmt.Sprintf(format, args...)
	return fmt.Errorf("%w at line %d: %s", kind, p.line, msg)
}
