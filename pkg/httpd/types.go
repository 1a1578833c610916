// Package httpd is a small embeddable HTTP/1.0 server for streaming locally
// produced content to clients such as media players.
//
// Each accepted connection is handled by its own session goroutine that reads
// exactly one request, hands it to a Handler and streams the Response body
// from a StreamSource. There is no keep-alive, chunked encoding or TLS.
//
// # Thread Safety
//
// A Server is safe for concurrent use. Request and Response values belong to
// the session that created them and must not be shared across sessions.
package httpd

import (
	"strings"
)

// Request is a decoded HTTP request.
type Request struct {
	Method     string            // "GET", "POST", etc.
	URI        string            // percent-decoded path, never contains the query string
	Version    string            // "HTTP/1.0"; empty when the request line has none
	Headers    map[string]string // lower-cased names, last occurrence wins
	Params     map[string]string // query string plus, for POST, form fields
	Files      map[string]string // form field name to temporary file path
	RemoteAddr string
	SessionID  string
}

// Header returns the value of the named request header (case-insensitive).
func (r *Request) Header(name string) string {
	return r.Headers[strings.ToLower(name)]
}

// Param returns the named query or form parameter.
func (r *Request) Param(name string) string {
	return r.Params[name]
}

// File returns the temporary path of the uploaded file for the named form
// field. An empty path means the field was absent or the upload was empty.
func (r *Request) File(name string) string {
	return r.Files[name]
}

// Response is what a Handler returns for a request.
type Response struct {
	Status   string       // status line without the version, e.g. "200 OK"
	MimeType string       // sent as Content-Type when not empty
	Headers  Headers      // written in insertion order
	Data     StreamSource // optional body
}

// NewResponse returns a response with the given status, MIME type and body.
func NewResponse(status, mimeType string, data StreamSource) *Response {
	return &Response{Status: status, MimeType: mimeType, Data: data}
}

// NewTextResponse returns a response whose body is text.
func NewTextResponse(status, mimeType, text string) *Response {
	return NewResponse(status, mimeType, NewStringSource(text))
}

// AddHeader appends a response header.
func (r *Response) AddHeader(name, value string) {
	r.Headers.Add(name, value)
}

// Header is a single HTTP header name-value pair.
type Header struct {
	Key   string
	Value string
}

// Headers is an ordered list of response headers.
// Lookups are case-insensitive but the original case is preserved on the wire.
type Headers []Header

// Get returns the first header value for the given key (case-insensitive).
// Returns empty string if not found.
func (h Headers) Get(key string) string {
	for _, hdr := range h {
		if strings.EqualFold(hdr.Key, key) {
			return hdr.Value
		}
	}
	return ""
}

// Has reports whether a header with the given key is present.
func (h Headers) Has(key string) bool {
	for _, hdr := range h {
		if strings.EqualFold(hdr.Key, key) {
			return true
		}
	}
	return false
}

// Values returns all header values for the given key (case-insensitive).
func (h Headers) Values(key string) []string {
	var vals []string
	for _, hdr := range h {
		if strings.EqualFold(hdr.Key, key) {
			vals = append(vals, hdr.Value)
		}
	}
	return vals
}

// Set replaces the first header with the given key and removes the rest,
// or appends the header if it is not present.
func (h *Headers) Set(key, value string) {
	for i, hdr := range *h {
		if !strings.EqualFold(hdr.Key, key) {
			continue
		}
		(*h)[i].Value = value
		rest := (*h)[:i+1]
		for _, later := range (*h)[i+1:] {
			if !strings.EqualFold(later.Key, key) {
				rest = append(rest, later)
			}
		}
		*h = rest
		return
	}
	*h = append(*h, Header{Key: key, Value: value})
}

// Add appends a header without replacing existing ones.
func (h *Headers) Add(key, value string) {
	*h = append(*h, Header{Key: key, Value: value})
}

// Del removes all headers with the given key (case-insensitive).
func (h *Headers) Del(key string) {
	j := 0
	for _, hdr := range *h {
		if !strings.EqualFold(hdr.Key, key) {
			(*h)[j] = hdr
			j++
		}
	}
	*h = (*h)[:j]
}

// Clone returns a copy of the headers.
func (h Headers) Clone() Headers {
	if h == nil {
		return nil
	}
	clone := make(Headers, len(h))
	copy(clone, h)
	return clone
}

// StreamSource is a lazy, forward-only response body.
//
// The session calls Open once, then Read until it returns io.EOF or reads
// zero bytes, then Close. Close is called whenever Open succeeded, even if
// writing to the client failed. A source cannot be reopened after Close.
type StreamSource interface {
	Open() error
	Read(p []byte) (int, error)
	Close() error
}

// Handler produces the response for a decoded request.
//
// Returning an error or a nil response makes the session answer with
// 500 Internal Server Error.
type Handler interface {
	Serve(req *Request) (*Response, error)
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(req *Request) (*Response, error)

// Serve calls f(req).
func (f HandlerFunc) Serve(req *Request) (*Response, error) {
	return f(req)
}
