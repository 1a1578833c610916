package httpd

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"net"
	"runtime/debug"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shapestone/shape-httpd/internal/fastparser"
	"github.com/shapestone/shape-httpd/internal/tokenizer"
)

const (
	// headBufferSize is the size of the single initial read that must hold
	// the request line and headers.
	headBufferSize = 8192

	// bodyChunkSize is the read increment for the rest of the body.
	bodyChunkSize = 512

	// unbounded is the declared body length when there is no usable
	// content-length header.
	unbounded = math.MaxInt64
)

var crlf = []byte("\r\n")

// session handles exactly one request on one connection.
type session struct {
	conn      net.Conn
	handler   Handler
	id        string
	log       zerolog.Logger
	uploads   *uploadStore
	keep      bool
	now       func() time.Time
	responded bool
}

func (s *Server) newSession(conn net.Conn) *session {
	id := uuid.NewString()
	return &session{
		conn:    conn,
		handler: s.handler,
		id:      id,
		log:     s.log.With().Str("session", id).Str("remote", conn.RemoteAddr().String()).Logger(),
		uploads: newUploadStore(s.cfg.TempDir, id),
		keep:    s.cfg.KeepUploads,
		now:     time.Now,
	}
}

// serve runs the session to completion and closes the connection.
func (ss *session) serve() {
	defer ss.conn.Close()
	defer func() {
		if !ss.keep {
			ss.uploads.RemoveAll(&ss.log)
		}
	}()

	req, err := ss.readRequest()
	if err != nil {
		var rerr *RequestError
		switch {
		case errors.As(err, &rerr):
			ss.sendError(rerr)
		case errors.Is(err, errEmptyRequest):
			ss.log.Debug().Msg("connection closed before request")
		default:
			ss.sendError(internalError("reading request", err))
		}
		return
	}

	resp, err := ss.callHandler(req)
	switch {
	case err != nil:
		ss.sendError(internalError(err.Error(), err))
	case resp == nil:
		ss.sendError(internalError("Serve() returned a null response.", nil))
	default:
		ss.respond(resp)
	}
}

// readRequest reads and decodes one request from the connection.
func (ss *session) readRequest() (*Request, error) {
	buf := make([]byte, headBufferSize)
	n, err := ss.conn.Read(buf)
	if n <= 0 {
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, internalError("reading request head", err)
		}
		return nil, errEmptyRequest
	}
	buf = buf[:n]

	head, err := fastparser.ParseHead(buf)
	if err != nil {
		return nil, decodeFault(err)
	}
	req := &Request{
		Method:     head.Method,
		URI:        head.URI,
		Version:    head.Version,
		Headers:    head.Headers,
		Params:     head.Params,
		Files:      make(map[string]string),
		RemoteAddr: ss.conn.RemoteAddr().String(),
		SessionID:  ss.id,
	}
	ss.log.Debug().
		Str("method", req.Method).
		Str("uri", req.URI).
		Str("version", req.Version).
		Interface("headers", req.Headers).
		Msg("request")

	body, err := ss.readBody(buf, declaredLength(req.Headers))
	if err != nil {
		return nil, err
	}

	if strings.EqualFold(req.Method, "POST") {
		if err := ss.decodeBody(req, body); err != nil {
			return nil, err
		}
	}
	if len(req.Params) > 0 {
		ss.log.Debug().Interface("params", req.Params).Msg("params")
	}
	return req, nil
}

// declaredLength returns the content-length of a request, or unbounded when
// the header is absent or not a non-negative integer.
func declaredLength(headers map[string]string) int64 {
	v, ok := headers["content-length"]
	if !ok {
		return unbounded
	}
	n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	if err != nil || n < 0 {
		return unbounded
	}
	return n
}

// readBody returns the request body: whatever followed the header block in
// the initial read, plus what is still to come on the connection.
//
// Reading stops once size bytes have arrived or the peer reports EOF. When
// the initial read held no body bytes, nothing more is read unless the header
// block was complete and a length was declared.
func (ss *session) readBody(initial []byte, size int64) ([]byte, error) {
	split, found := fastparser.IndexHeaderEnd(initial)
	body := append([]byte(nil), initial[split:]...)

	if len(body) > 0 {
		size -= int64(len(body))
	} else if !found || size == unbounded {
		size = 0
	}

	chunk := make([]byte, bodyChunkSize)
	for size > 0 {
		want := bodyChunkSize
		if size < int64(want) {
			want = int(size)
		}
		n, err := ss.conn.Read(chunk[:want])
		body = append(body, chunk[:n]...)
		size -= int64(n)
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, internalError("reading request body", err)
		}
	}
	return body, nil
}

// decodeBody merges the fields of a POST body into req.
func (ss *session) decodeBody(req *Request, body []byte) error {
	primary, ctParams, ok := tokenizer.ParseParams(req.Headers["content-type"])
	if !ok {
		return badRequest("malformed content-type", nil)
	}

	if strings.EqualFold(primary, "multipart/form-data") {
		if len(ctParams) == 0 {
			return badRequest("Content type is multipart/form-data but boundary missing. Usage: GET /example/file.html", nil)
		}
		boundary := ctParams["boundary"]
		if boundary == "" {
			return badRequest("Content type is multipart/form-data but boundary syntax error. Usage: GET /example/file.html", nil)
		}
		if err := fastparser.DecodeMultipart(boundary, body, ss.uploads, req.Params, req.Files); err != nil {
			return decodeFault(err)
		}
		if len(req.Files) > 0 {
			ss.log.Debug().Interface("files", req.Files).Msg("uploads")
		}
		return nil
	}

	form := strings.TrimSpace(string(formText(body)))
	if err := fastparser.DecodeParams(form, req.Params); err != nil {
		return decodeFault(err)
	}
	return nil
}

// formText returns the url-encoded text of a body: chunks of bodyChunkSize
// bytes up to the first chunk boundary where the text so far ends in CRLF,
// or the whole body.
func formText(body []byte) []byte {
	for end := bodyChunkSize; end < len(body); end += bodyChunkSize {
		if bytes.HasSuffix(body[:end], crlf) {
			return body[:end]
		}
	}
	return body
}

// callHandler runs the handler, turning a panic into an error.
func (ss *session) callHandler(req *Request) (resp *Response, err error) {
	defer func() {
		if r := recover(); r != nil {
			ss.log.Error().
				Interface("panic", r).
				Bytes("stack", debug.Stack()).
				Msg("handler panic")
			resp, err = nil, fmt.Errorf("handler panic: %v", r)
		}
	}()
	return ss.handler.Serve(req)
}

// sendError answers the request with the status of rerr and no body.
func (ss *session) sendError(rerr *RequestError) {
	ss.log.Warn().Err(rerr.Err).Str("status", rerr.Status).Msg(rerr.Message)
	ss.respond(&Response{Status: rerr.Status, MimeType: MimePlaintext})
}

// respond writes resp unless the session already wrote a response.
// Write failures are logged and end the session.
func (ss *session) respond(resp *Response) {
	if ss.responded {
		ss.log.Error().Str("status", resp.Status).Msg("response already sent")
		return
	}
	ss.responded = true

	if err := writeResponse(ss.conn, resp, ss.now(), &ss.log); err != nil {
		ss.log.Warn().Err(err).Str("status", resp.Status).Msg("writing response")
		return
	}
	if e := ss.log.Debug(); e.Enabled() {
		e.Interface("response", NodeToInterface(ResponseToNode(resp))).Msg("response sent")
	}
}
