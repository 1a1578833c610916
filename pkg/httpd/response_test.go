package httpd

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

var (
	testTime   = time.Date(2024, 3, 5, 7, 8, 9, 0, time.FixedZone("CET", 3600))
	testLogger = zerolog.Nop()
)

func TestWriteResponse_Head(t *testing.T) {
	resp := NewTextResponse(StatusOK, MimePlaintext, "hello")
	resp.AddHeader("X-First", "1")
	resp.AddHeader("X-Second", "2")

	var buf bytes.Buffer
	if err := writeResponse(&buf, resp, testTime, &testLogger); err != nil {
		t.Fatalf("writeResponse() error = %v", err)
	}

	want := "HTTP/1.0 200 OK\r\n" +
		"Content-Type: text/plain\r\n" +
		"Date: Tue, 5 Mar 2024 06:08:09 GMT\r\n" +
		"X-First: 1\r\n" +
		"X-Second: 2\r\n" +
		"\r\n" +
		"hello"
	if got := buf.String(); got != want {
		t.Errorf("writeResponse() =\n%q\nwant\n%q", got, want)
	}
}

func TestWriteResponse_CallerDate(t *testing.T) {
	resp := NewResponse(StatusOK, "", nil)
	resp.AddHeader("date", "Thu, 1 Jan 1970 00:00:00 GMT")

	var buf bytes.Buffer
	if err := writeResponse(&buf, resp, testTime, &testLogger); err != nil {
		t.Fatalf("writeResponse() error = %v", err)
	}

	got := buf.String()
	if strings.Count(strings.ToLower(got), "date:") != 1 {
		t.Errorf("expected exactly one Date header:\n%s", got)
	}
	if strings.Contains(got, "Content-Type") {
		t.Errorf("Content-Type written without MIME type:\n%s", got)
	}
	if !strings.HasSuffix(got, "date: Thu, 1 Jan 1970 00:00:00 GMT\r\n\r\n") {
		t.Errorf("caller Date not written verbatim:\n%q", got)
	}
}

func TestWriteResponse_DropsInvalidHeaders(t *testing.T) {
	resp := NewResponse(StatusOK, "", nil)
	resp.AddHeader("X-Good", "ok")
	resp.AddHeader("X-Bad", "split\r\nInjected: yes")
	resp.AddHeader("Bad Name", "v")

	var buf bytes.Buffer
	if err := writeResponse(&buf, resp, testTime, &testLogger); err != nil {
		t.Fatalf("writeResponse() error = %v", err)
	}
	got := buf.String()
	if !strings.Contains(got, "X-Good: ok\r\n") {
		t.Errorf("valid header missing:\n%q", got)
	}
	if strings.Contains(got, "Injected") || strings.Contains(got, "Bad Name") {
		t.Errorf("invalid header written:\n%q", got)
	}
}

func TestWriteResponse_StreamsLargeBody(t *testing.T) {
	data := bytes.Repeat([]byte("0123456789abcdef"), 3*streamBufferSize/16+7)
	src := &countingSource{src: NewBytesSource(data)}
	resp := NewResponse(StatusOK, MimeDefaultBinary, src)

	var buf bytes.Buffer
	if err := writeResponse(&buf, resp, testTime, &testLogger); err != nil {
		t.Fatalf("writeResponse() error = %v", err)
	}

	_, body, _ := strings.Cut(buf.String(), "\r\n\r\n")
	if body != string(data) {
		t.Errorf("body length = %d, want %d", len(body), len(data))
	}
	if src.maxRead > streamBufferSize {
		t.Errorf("read buffer = %d bytes, want at most %d", src.maxRead, streamBufferSize)
	}
	if src.opens != 1 || src.closes != 1 {
		t.Errorf("opens = %d, closes = %d, want 1 and 1", src.opens, src.closes)
	}
}

func TestWriteResponse_ClosesSourceOnWriteError(t *testing.T) {
	src := &countingSource{src: NewStringSource("body")}
	resp := NewResponse(StatusOK, MimePlaintext, src)

	w := &failWriter{after: 1}
	err := writeResponse(w, resp, testTime, &testLogger)
	if !errors.Is(err, errWriteFailed) {
		t.Fatalf("writeResponse() error = %v, want errWriteFailed", err)
	}
	if src.closes != 1 {
		t.Errorf("closes = %d, want 1", src.closes)
	}
}

func TestWriteResponse_HeadWriteErrorSkipsBody(t *testing.T) {
	src := &countingSource{src: NewStringSource("body")}
	resp := NewResponse(StatusOK, MimePlaintext, src)

	err := writeResponse(&failWriter{}, resp, testTime, &testLogger)
	if !errors.Is(err, errWriteFailed) {
		t.Fatalf("writeResponse() error = %v, want errWriteFailed", err)
	}
	if src.opens != 0 {
		t.Errorf("source opened after failed head write")
	}
}

func TestWriteResponse_OpenErrorNoClose(t *testing.T) {
	openErr := errors.New("gone")
	src := NewReaderSource(func() (io.ReadCloser, error) { return nil, openErr })
	resp := NewResponse(StatusOK, MimePlaintext, src)

	var buf bytes.Buffer
	if err := writeResponse(&buf, resp, testTime, &testLogger); !errors.Is(err, openErr) {
		t.Fatalf("writeResponse() error = %v, want %v", err, openErr)
	}
}

func TestStreamBody_ZeroReadEnds(t *testing.T) {
	src := &zeroSource{}
	var buf bytes.Buffer
	if err := streamBody(&buf, src); err != nil {
		t.Fatalf("streamBody() error = %v", err)
	}
	if buf.String() != "ab" {
		t.Errorf("body = %q, want ab", buf.String())
	}
}

// countingSource records how a StreamSource is driven.
type countingSource struct {
	src     StreamSource
	opens   int
	closes  int
	maxRead int
}

func (c *countingSource) Open() error {
	c.opens++
	return c.src.Open()
}

func (c *countingSource) Read(p []byte) (int, error) {
	if len(p) > c.maxRead {
		c.maxRead = len(p)
	}
	return c.src.Read(p)
}

func (c *countingSource) Close() error {
	c.closes++
	return c.src.Close()
}

// zeroSource yields "ab" and then reads of zero bytes without error.
type zeroSource struct{ n int }

func (z *zeroSource) Open() error  { return nil }
func (z *zeroSource) Close() error { return nil }
func (z *zeroSource) Read(p []byte) (int, error) {
	z.n++
	if z.n == 1 {
		return copy(p, "ab"), nil
	}
	if z.n > 2 {
		panic("read after zero-byte read")
	}
	return 0, nil
}

var errWriteFailed = errors.New("write failed")

// failWriter fails every write after the first after writes.
type failWriter struct {
	after  int
	writes int
}

func (w *failWriter) Write(p []byte) (int, error) {
	w.writes++
	if w.writes > w.after {
		return 0, errWriteFailed
	}
	return len(p), nil
}
