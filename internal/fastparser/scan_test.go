package fastparser

import (
	"reflect"
	"testing"
)

func TestIndexHeaderEnd(t *testing.T) {
	tests := []struct {
		data      string
		wantSplit int
		wantFound bool
	}{
		{"GET / HTTP/1.0\r\n\r\n", 18, true},
		{"POST / HTTP/1.0\r\nA: b\r\n\r\nbody", 25, true},
		{"GET / HTTP/1.0\r\nA: b\r\n", 22, false},
		{"", 0, false},
	}

	for _, tt := range tests {
		split, found := IndexHeaderEnd([]byte(tt.data))
		if split != tt.wantSplit || found != tt.wantFound {
			t.Errorf("IndexHeaderEnd(%q) = (%d, %v), want (%d, %v)", tt.data, split, found, tt.wantSplit, tt.wantFound)
		}
	}
}

func TestBoundaryPositions(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		boundary string
		want     []int
	}{
		{"two parts", "--xx\r\nA\r\n--xx\r\nB\r\n--xx--", "xx", []int{2, 11, 20}},
		{"none", "no delimiter here", "xyz", nil},
		{"partial match then match", "aab", "ab", []int{1}},
		{"adjacent", "abab", "ab", []int{0, 2}},
		{"no overlap", "aaaa", "aa", []int{0, 2}},
		{"empty boundary", "abc", "", nil},
		{"boundary longer than body", "ab", "abc", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BoundaryPositions([]byte(tt.body), []byte(tt.boundary))
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("BoundaryPositions(%q, %q) = %v, want %v", tt.body, tt.boundary, got, tt.want)
			}
		})
	}
}

func TestPartDataOffset(t *testing.T) {
	body := []byte("--b\r\nContent-Type: x\r\n\r\nDATA\r\n--b--")
	if got := PartDataOffset(body, 2); got != 24 {
		t.Errorf("PartDataOffset() = %d, want 24", got)
	}
	if string(body[24:28]) != "DATA" {
		t.Errorf("data at offset = %q", body[24:28])
	}
	if got := PartDataOffset(body, 30); got != len(body) {
		t.Errorf("PartDataOffset() without header end = %d, want %d", got, len(body))
	}
	if got := PartDataOffset(body, 100); got != len(body) {
		t.Errorf("PartDataOffset() past end = %d, want %d", got, len(body))
	}
}

func TestSplitHeaderLine(t *testing.T) {
	tests := []struct {
		line      string
		wantName  string
		wantValue string
		wantOK    bool
	}{
		{"Content-Type: text/plain", "content-type", "text/plain", true},
		{"  X-Custom :  a:b:c  ", "x-custom", "a:b:c", true},
		{"HOST:example.com", "host", "example.com", true},
		{"Empty:", "empty", "", true},
		{"no colon", "", "", false},
	}

	for _, tt := range tests {
		name, value, ok := splitHeaderLine([]byte(tt.line))
		if name != tt.wantName || value != tt.wantValue || ok != tt.wantOK {
			t.Errorf("splitHeaderLine(%q) = (%q, %q, %v), want (%q, %q, %v)",
				tt.line, name, value, ok, tt.wantName, tt.wantValue, tt.wantOK)
		}
	}
}

func TestInternHeaderName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Content-Type", "content-type"},
		{"content-type", "content-type"},
		{"CONTENT-TYPE", "content-type"},
		{"X-Unknown-Header", "x-unknown-header"},
	}
	for _, tt := range tests {
		if got := internHeaderName([]byte(tt.in)); got != tt.want {
			t.Errorf("internHeaderName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func BenchmarkBoundaryPositions(b *testing.B) {
	body := make([]byte, 0, 1<<20)
	for len(body) < cap(body)-64 {
		body = append(body, "some file bytes without the delimiter, repeated \r\n"...)
	}
	body = append(body, "\r\n--shape-boundary--"...)
	boundary := []byte("shape-boundary")

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if len(BoundaryPositions(body, boundary)) != 1 {
			b.Fatal("expected one boundary")
		}
	}
}
