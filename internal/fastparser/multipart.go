package fastparser

import (
	"bytes"

	"github.com/shapestone/shape-httpd/internal/tokenizer"
)

// FileStore spills the contents of uploaded file parts to storage and
// returns a path the request handler can read them from.
type FileStore interface {
	Save(data []byte) (path string, err error)
}

// DecodeMultipart decodes a multipart/form-data body delimited by boundary.
//
// Plain fields (parts without a Content-Type) are stored in params verbatim,
// less the line ending before the next boundary. File parts are copied
// byte-for-byte from body to store: their path goes to files and their
// filename to params, both under the part's name. A file part of zero length
// stores an empty path.
//
// Part contents are sliced from body using the offsets of the boundary
// token, so a boundary that also occurs inside a part's own data splits
// that part.
func DecodeMultipart(boundary string, body []byte, store FileStore, params, files map[string]string) error {
	bnd := []byte(boundary)
	closing := append(append([]byte(nil), bnd...), '-', '-')
	positions := BoundaryPositions(body, bnd)

	var p Parser
	initParser(&p, body)

	count := 1
	line, ok := p.readLine()
	for ok {
		if !bytes.Contains(line, bnd) {
			return p.errorf(ErrBadRequest, "multipart/form-data chunk does not start with boundary")
		}
		if bytes.Contains(line, closing) {
			return nil
		}
		count++

		item := make(map[string]string)
		line, ok = p.readLine()
		for ok && len(bytes.TrimSpace(line)) > 0 {
			if name, value, hok := splitHeaderLine(line); hok {
				item[name] = value
			}
			line, ok = p.readLine()
		}
		if !ok {
			break
		}

		disposition, found := item["content-disposition"]
		if !found {
			return p.errorf(ErrBadRequest, "multipart/form-data part has no content-disposition")
		}
		_, dparams, pok := tokenizer.ParseParams(disposition)
		if !pok {
			return p.errorf(ErrBadRequest, "malformed content-disposition %q", disposition)
		}
		name, found := dparams["name"]
		if !found {
			return p.errorf(ErrBadRequest, "multipart/form-data part has no name")
		}

		if _, isFile := item["content-type"]; !isFile {
			start, end := p.pos, p.length
			for {
				lineStart := p.pos
				line, ok = p.readLine()
				if !ok {
					break
				}
				if bytes.Contains(line, bnd) {
					end = lineStart
					break
				}
			}
			params[name] = string(trimLineEnd(body[start:end]))
			continue
		}

		if count > len(positions) {
			return p.errorf(ErrInternal, "multipart/form-data boundary table exhausted at part %d", count-1)
		}
		offset := PartDataOffset(body, positions[count-2])
		// The part ends before the CRLF and the "--" that precede the next boundary.
		path := ""
		if n := positions[count-1] - offset - 4; n > 0 {
			var err error
			if path, err = store.Save(body[offset : offset+n]); err != nil {
				return p.errorf(ErrInternal, "saving upload %q: %v", name, err)
			}
		}
		files[name] = path
		params[name] = dparams["filename"]

		for {
			line, ok = p.readLine()
			if !ok || bytes.Contains(line, bnd) {
				break
			}
		}
	}
	return nil
}

// trimLineEnd drops one trailing \r\n, \n or \r.
func trimLineEnd(b []byte) []byte {
	if n := len(b); n > 0 && b[n-1] == '\n' {
		b = b[:n-1]
	}
	if n := len(b); n > 0 && b[n-1] == '\r' {
		b = b[:n-1]
	}
	return b
}
