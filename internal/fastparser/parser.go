// Package fastparser implements the byte-level decoders behind a request:
// the request line and header block, URL and form parameters, and
// multipart/form-data bodies. It scans bytes directly and builds no AST.
package fastparser

import (
	"bytes"
	"strings"

	"github.com/shapestone/shape-httpd/internal/tokenizer"
)

// Head is the decoded request line and header block of a request.
type Head struct {
	Method  string
	RawURI  string            // request-target as sent
	URI     string            // percent-decoded path, without the query string
	Version string            // empty for a request line without version
	Headers map[string]string // lower-cased names, last occurrence wins
	Params  map[string]string // decoded from the query string
}

// Parser reads lines from an in-memory buffer.
type Parser struct {
	data   []byte
	pos    int
	length int
	line   int // 1-indexed line number for error reporting
}

// initParser initializes a parser in-place (stack-friendly, avoids heap alloc).
func initParser(p *Parser, data []byte) {
	p.data = data
	p.pos = 0
	p.length = len(data)
	p.line = 1
}

// ParseHead decodes the request line and headers at the start of data.
// Uses stack-allocated Parser to avoid heap allocation.
func ParseHead(data []byte) (*Head, error) {
	var p Parser
	initParser(&p, data)
	return p.ParseHead()
}

// ParseHead decodes the request line and, when the request line carries a
// version, the header lines up to the first blank line.
func (p *Parser) ParseHead() (*Head, error) {
	head := &Head{
		Headers: make(map[string]string),
		Params:  make(map[string]string),
	}

	line, ok := p.readLine()
	if !ok {
		return nil, p.errorf(ErrBadRequest, "syntax error")
	}

	fields, fok := tokenizer.Fields(string(line))
	if !fok || len(fields) == 0 {
		return nil, p.errorf(ErrBadRequest, "syntax error")
	}
	head.Method = fields[0]

	if len(fields) < 2 {
		return nil, p.errorf(ErrBadRequest, "missing URI")
	}
	head.RawURI = fields[1]

	var err error
	if qmi := strings.IndexByte(head.RawURI, '?'); qmi >= 0 {
		if err = DecodeParams(head.RawURI[qmi+1:], head.Params); err != nil {
			return nil, err
		}
		head.URI, err = DecodePercent(head.RawURI[:qmi])
	} else {
		head.URI, err = DecodePercent(head.RawURI)
	}
	if err != nil {
		return nil, err
	}

	// A third field is the protocol version. Requests without one carry no
	// header block.
	if len(fields) > 2 {
		head.Version = fields[2]
		p.parseHeaders(head.Headers)
	}

	return head, nil
}

// parseHeaders reads header lines until a blank line or the end of data.
// Lines without a colon are ignored.
func (p *Parser) parseHeaders(into map[string]string) {
	for {
		line, ok := p.readLine()
		if !ok || len(bytes.TrimSpace(line)) == 0 {
			return
		}
		if name, value, ok := splitHeaderLine(line); ok {
			into[name] = value
		}
	}
}

// readLine reads bytes until CRLF, LF or a lone CR, advancing pos.
// Returns the line content (without line ending) and false at end of data.
func (p *Parser) readLine() ([]byte, bool) {
	if p.pos >= p.length {
		return nil, false
	}

	start := p.pos
	for p.pos < p.length {
		switch p.data[p.pos] {
		case '\n':
			line := p.data[start:p.pos]
			p.pos++
			p.line++
			return line, true
		case '\r':
			line := p.data[start:p.pos]
			p.pos++
			if p.pos < p.length && p.data[p.pos] == '\n' {
				p.pos++
			}
			p.line++
			return line, true
		}
		p.pos++
	}

	// No line ending, return remaining data
	return p.data[start:p.pos], true
}
