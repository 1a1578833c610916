package fastparser

import "bytes"

var crlfcrlf = []byte("\r\n\r\n")

// IndexHeaderEnd returns the offset just past the first CRLF CRLF in buf,
// i.e. where the body starts. If there is none it returns len(buf), false.
func IndexHeaderEnd(buf []byte) (int, bool) {
	if i := bytes.Index(buf, crlfcrlf); i >= 0 {
		return i + len(crlfcrlf), true
	}
	return len(buf), false
}

// BoundaryPositions returns the offsets in body where boundary begins, in
// order. Matches do not overlap; after a failed partial match the search
// resumes one byte after where that match started.
func BoundaryPositions(body, boundary []byte) []int {
	if len(boundary) == 0 {
		return nil
	}
	var positions []int
	for from := 0; from+len(boundary) <= len(body); {
		i := bytes.Index(body[from:], boundary)
		if i < 0 {
			break
		}
		positions = append(positions, from+i)
		from += i + len(boundary)
	}
	return positions
}

// PartDataOffset returns the offset just past the first CRLF CRLF at or after
// from, which is where a multipart part's data starts. It returns len(body)
// when the part has no complete header block.
func PartDataOffset(body []byte, from int) int {
	if from < 0 {
		from = 0
	}
	if from >= len(body) {
		return len(body)
	}
	if i := bytes.Index(body[from:], crlfcrlf); i >= 0 {
		return from + i + len(crlfcrlf)
	}
	return len(body)
}

// splitHeaderLine splits "Name: value" into a lower-cased trimmed name and a
// trimmed value. Lines without a colon are reported as !ok.
func splitHeaderLine(line []byte) (name, value string, ok bool) {
	colon := bytes.IndexByte(line, ':')
	if colon < 0 {
		return "", "", false
	}
	name = internHeaderName(bytes.TrimSpace(line[:colon]))
	value = string(bytes.TrimSpace(line[colon+1:]))
	return name, value, true
}
