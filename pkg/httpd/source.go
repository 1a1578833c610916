package httpd

import (
	"bytes"
	"fmt"
	"io"
	"os"
)

// BytesSource serves a body held in memory.
type BytesSource struct {
	data   []byte
	r      *bytes.Reader
	closed bool
}

// NewBytesSource returns a source that yields data.
func NewBytesSource(data []byte) *BytesSource {
	return &BytesSource{data: data}
}

// NewStringSource returns a source that yields s.
func NewStringSource(s string) *BytesSource {
	return NewBytesSource([]byte(s))
}

// Open implements StreamSource.
func (s *BytesSource) Open() error {
	if s.closed {
		return ErrSourceClosed
	}
	s.r = bytes.NewReader(s.data)
	return nil
}

// Read implements StreamSource.
func (s *BytesSource) Read(p []byte) (int, error) {
	if s.r == nil {
		return 0, errSourceNotOpen
	}
	return s.r.Read(p)
}

// Close implements StreamSource.
func (s *BytesSource) Close() error {
	s.closed = true
	s.r = nil
	return nil
}

// Len returns the number of bytes the source yields.
func (s *BytesSource) Len() int {
	return len(s.data)
}

// FileSource serves a file, or a section of one, from disk.
type FileSource struct {
	path   string
	offset int64
	length int64 // -1 reads to the end of the file
	f      *os.File
	r      io.Reader
	closed bool
}

// NewFileSource returns a source that yields the whole file at path.
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path, length: -1}
}

// NewFileSectionSource returns a source that yields length bytes of the file
// at path starting at offset.
func NewFileSectionSource(path string, offset, length int64) *FileSource {
	return &FileSource{path: path, offset: offset, length: length}
}

// Open implements StreamSource.
func (s *FileSource) Open() error {
	if s.closed {
		return ErrSourceClosed
	}
	f, err := os.Open(s.path)
	if err != nil {
		return err
	}
	if s.offset > 0 {
		if _, err := f.Seek(s.offset, io.SeekStart); err != nil {
			f.Close()
			return fmt.Errorf("httpd: seek %s to %d: %w", s.path, s.offset, err)
		}
	}
	s.f = f
	s.r = f
	if s.length >= 0 {
		s.r = io.LimitReader(f, s.length)
	}
	return nil
}

// Read implements StreamSource.
func (s *FileSource) Read(p []byte) (int, error) {
	if s.r == nil {
		return 0, errSourceNotOpen
	}
	return s.r.Read(p)
}

// Close implements StreamSource.
func (s *FileSource) Close() error {
	s.closed = true
	s.r = nil
	if s.f == nil {
		return nil
	}
	err := s.f.Close()
	s.f = nil
	return err
}

// ReaderSource serves whatever an opener produces, such as a download from a
// remote store. The opener is called once, on Open.
type ReaderSource struct {
	open   func() (io.ReadCloser, error)
	rc     io.ReadCloser
	closed bool
}

// NewReaderSource returns a source backed by the reader open returns.
func NewReaderSource(open func() (io.ReadCloser, error)) *ReaderSource {
	return &ReaderSource{open: open}
}

// Open implements StreamSource.
func (s *ReaderSource) Open() error {
	if s.closed {
		return ErrSourceClosed
	}
	rc, err := s.open()
	if err != nil {
		return err
	}
	s.rc = rc
	return nil
}

// Read implements StreamSource.
func (s *ReaderSource) Read(p []byte) (int, error) {
	if s.rc == nil {
		return 0, errSourceNotOpen
	}
	return s.rc.Read(p)
}

// Close implements StreamSource.
func (s *ReaderSource) Close() error {
	s.closed = true
	if s.rc == nil {
		return nil
	}
	err := s.rc.Close()
	s.rc = nil
	return err
}
