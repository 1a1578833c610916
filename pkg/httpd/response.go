package httpd

import (
	"errors"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/net/http/httpguts"
)

const (
	// streamBufferSize is how much of a body is read from its source per write.
	streamBufferSize = 8192

	// dateFormat is RFC 1123 with an unpadded day, always in GMT.
	dateFormat = "Mon, 2 Jan 2006 15:04:05 GMT"
)

// headPool pools []byte slices for the response head.
var headPool = sync.Pool{
	New: func() interface{} {
		b := make([]byte, 0, 1024)
		return &b
	},
}

// bodyPool pools the fixed-size buffers bodies are streamed through.
var bodyPool = sync.Pool{
	New: func() interface{} {
		b := make([]byte, streamBufferSize)
		return &b
	},
}

// writeResponse writes the status line, headers and body of resp to w.
//
// A Date header is added unless resp already carries one. Headers whose name
// or value would corrupt the response framing are dropped and logged. The
// body, if any, is streamed from resp.Data until it is exhausted.
func writeResponse(w io.Writer, resp *Response, now time.Time, log *zerolog.Logger) error {
	bp := headPool.Get().(*[]byte)
	buf := appendHead((*bp)[:0], resp, now, log)
	_, err := w.Write(buf)
	*bp = buf
	headPool.Put(bp)
	if err != nil {
		return err
	}

	if resp.Data == nil {
		return nil
	}
	return streamBody(w, resp.Data)
}

// appendHead appends the status line and header block of resp to buf.
func appendHead(buf []byte, resp *Response, now time.Time, log *zerolog.Logger) []byte {
	buf = appendStatusLine(buf, resp.Status)
	if resp.MimeType != "" {
		buf = appendHeader(buf, "Content-Type", resp.MimeType)
	}
	if !resp.Headers.Has("Date") {
		buf = appendHeader(buf, "Date", now.UTC().Format(dateFormat))
	}
	for _, h := range resp.Headers {
		if !httpguts.ValidHeaderFieldName(h.Key) || !httpguts.ValidHeaderFieldValue(h.Value) {
			log.Warn().Str("header", h.Key).Msg("dropping invalid response header")
			continue
		}
		buf = appendHeader(buf, h.Key, h.Value)
	}
	return appendCRLF(buf)
}

// streamBody copies src to w through a pooled buffer. src is closed once it
// has been opened, whatever happens to the writes.
func streamBody(w io.Writer, src StreamSource) (err error) {
	if oerr := src.Open(); oerr != nil {
		return oerr
	}
	defer func() {
		if cerr := src.Close(); err == nil && cerr != nil {
			err = cerr
		}
	}()

	bp := bodyPool.Get().(*[]byte)
	defer bodyPool.Put(bp)
	buf := *bp

	for {
		n, rerr := src.Read(buf)
		if n > 0 {
			if _, werr := w.Write(buf[:n]); werr != nil {
				return werr
			}
		}
		if errors.Is(rerr, io.EOF) {
			return nil
		}
		if rerr != nil {
			return rerr
		}
		if n <= 0 {
			return nil
		}
	}
}

// appendCRLF appends \r\n to buf.
func appendCRLF(buf []byte) []byte {
	return append(buf, '\r', '\n')
}

// appendStatusLine appends "HTTP/1.0 STATUS\r\n" to buf.
func appendStatusLine(buf []byte, status string) []byte {
	buf = append(buf, "HTTP/1.0 "...)
	buf = append(buf, status...)
	return appendCRLF(buf)
}

// appendHeader appends "Key: Value\r\n" to buf.
func appendHeader(buf []byte, key, value string) []byte {
	buf = append(buf, key...)
	buf = append(buf, ':', ' ')
	buf = append(buf, value...)
	return appendCRLF(buf)
}
