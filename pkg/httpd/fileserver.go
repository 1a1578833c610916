package httpd

import (
	"errors"
	"fmt"
	"hash/fnv"
	"html"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
)

// mimeTypes maps lower-case file extensions to the MIME types the file
// server sends. Anything else is MimeDefaultBinary.
var mimeTypes = map[string]string{
	".css":   "text/css",
	".htm":   MimeHTML,
	".html":  MimeHTML,
	".xml":   MimeXML,
	".txt":   MimePlaintext,
	".asc":   MimePlaintext,
	".json":  MimeJSON,
	".js":    "application/javascript",
	".gif":   "image/gif",
	".jpg":   "image/jpeg",
	".jpeg":  "image/jpeg",
	".png":   "image/png",
	".svg":   "image/svg+xml",
	".mp3":   "audio/mpeg",
	".m4a":   "audio/mp4",
	".flac":  "audio/flac",
	".ogg":   "application/x-ogg",
	".wav":   "audio/wav",
	".m3u":   "audio/mpeg-url",
	".mp4":   "video/mp4",
	".mkv":   "video/x-matroska",
	".ogv":   "video/ogg",
	".webm":  "video/webm",
	".flv":   "video/x-flv",
	".mov":   "video/quicktime",
	".swf":   "application/x-shockwave-flash",
	".pdf":   "application/pdf",
	".doc":   "application/msword",
	".zip":   "application/octet-stream",
	".exe":   "application/octet-stream",
	".class": "application/octet-stream",
}

// MimeTypeFor returns the MIME type for a file name based on its extension.
func MimeTypeFor(name string) string {
	if t, ok := mimeTypes[strings.ToLower(filepath.Ext(name))]; ok {
		return t
	}
	return MimeDefaultBinary
}

var indexFiles = []string{"index.html", "index.htm"}

type fileServer struct {
	root string
	log  zerolog.Logger
}

// FileServer returns a Handler that serves files below root for GET and HEAD.
//
// Directories are answered with their index.html or index.htm, or a generated
// listing. Single byte ranges ("Range: bytes=a-b") are answered with 206
// Partial Content; an ETag derived from the file's path, size and
// modification time allows If-None-Match revalidation.
func FileServer(root string, log *zerolog.Logger) Handler {
	if log == nil {
		nop := zerolog.Nop()
		log = &nop
	}
	return &fileServer{root: root, log: log.With().Str("component", "fileserver").Logger()}
}

// Serve implements Handler.
func (fsrv *fileServer) Serve(req *Request) (*Response, error) {
	method := strings.ToUpper(req.Method)
	if method != "GET" && method != "HEAD" {
		return NewTextResponse(StatusNotImplemented, MimePlaintext, "Method not implemented: "+req.Method), nil
	}

	uri := strings.TrimSpace(strings.ReplaceAll(req.URI, "\\", "/"))
	if strings.Contains(uri, "..") {
		return NewTextResponse(StatusForbidden, MimePlaintext, "FORBIDDEN: Won't serve ../ for security reasons."), nil
	}
	if !strings.HasPrefix(uri, "/") {
		uri = "/" + uri
	}

	path := filepath.Join(fsrv.root, filepath.FromSlash(uri))
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return NewTextResponse(StatusNotFound, MimePlaintext, "Error 404, file not found."), nil
	}
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", uri, err)
	}

	if info.IsDir() {
		if !strings.HasSuffix(uri, "/") {
			uri += "/"
			resp := NewTextResponse(StatusRedirect, MimeHTML,
				"<html><body>Redirected: <a href=\""+html.EscapeString(uri)+"\">"+html.EscapeString(uri)+"</a></body></html>")
			resp.AddHeader("Location", uri)
			return resp, nil
		}
		index, indexInfo := findIndex(path)
		if index == "" {
			return fsrv.listing(uri, path, method == "HEAD")
		}
		path, info = index, indexInfo
	}

	return fsrv.serveFile(req, path, info, method == "HEAD"), nil
}

func findIndex(dir string) (string, os.FileInfo) {
	for _, name := range indexFiles {
		p := filepath.Join(dir, name)
		if st, err := os.Stat(p); err == nil && !st.IsDir() {
			return p, st
		}
	}
	return "", nil
}

// serveFile answers with the file at path, the requested range of it, or
// 304 when the client's copy is current.
func (fsrv *fileServer) serveFile(req *Request, path string, info os.FileInfo, head bool) *Response {
	size := info.Size()
	etag := fileETag(path, info)
	mimeType := MimeTypeFor(path)

	if match := req.Header("if-none-match"); match != "" && (match == "*" || match == etag) {
		resp := NewResponse(StatusNotModified, mimeType, nil)
		resp.AddHeader("ETag", etag)
		return resp
	}

	start, end, ranged, ok := parseRange(req.Header("range"), size)
	if ranged && !ok {
		resp := NewTextResponse(StatusRangeNotSatisfiable, MimePlaintext, "")
		resp.AddHeader("Content-Range", "bytes */"+strconv.FormatInt(size, 10))
		resp.AddHeader("ETag", etag)
		return resp
	}

	var resp *Response
	if ranged {
		length := end - start + 1
		resp = NewResponse(StatusPartialContent, mimeType, NewFileSectionSource(path, start, length))
		resp.AddHeader("Content-Length", strconv.FormatInt(length, 10))
		resp.AddHeader("Content-Range", fmt.Sprintf("bytes %d-%d/%d", start, end, size))
	} else {
		resp = NewResponse(StatusOK, mimeType, NewFileSource(path))
		resp.AddHeader("Content-Length", strconv.FormatInt(size, 10))
	}
	resp.AddHeader("Accept-Ranges", "bytes")
	resp.AddHeader("ETag", etag)
	if head {
		resp.Data = nil
	}

	fsrv.log.Debug().
		Str("path", path).
		Str("status", resp.Status).
		Int64("size", size).
		Msg("serving file")
	return resp
}

// parseRange interprets a "bytes=" Range header against a file of size bytes.
// ranged is false when there is no usable range and the whole file should be
// sent; ok is false when the range cannot be satisfied. Only the first range
// of a list is honored.
func parseRange(header string, size int64) (start, end int64, ranged, ok bool) {
	ranges, found := strings.CutPrefix(strings.TrimSpace(header), "bytes=")
	if !found {
		return 0, 0, false, false
	}
	if i := strings.IndexByte(ranges, ','); i >= 0 {
		ranges = ranges[:i]
	}
	from, to, found := strings.Cut(strings.TrimSpace(ranges), "-")
	if !found {
		return 0, 0, false, false
	}

	if from == "" {
		// Suffix range: the last n bytes.
		n, err := strconv.ParseInt(to, 10, 64)
		if err != nil || n < 0 {
			return 0, 0, false, false
		}
		if n == 0 || size == 0 {
			return 0, 0, true, false
		}
		if n > size {
			n = size
		}
		return size - n, size - 1, true, true
	}

	start, err := strconv.ParseInt(from, 10, 64)
	if err != nil || start < 0 {
		return 0, 0, false, false
	}
	end = size - 1
	if to != "" {
		if end, err = strconv.ParseInt(to, 10, 64); err != nil || end < start {
			return 0, 0, false, false
		}
		if end >= size {
			end = size - 1
		}
	}
	if start >= size {
		return 0, 0, true, false
	}
	return start, end, true, true
}

// fileETag hashes path, size and modification time.
func fileETag(path string, info os.FileInfo) string {
	h := fnv.New64a()
	fmt.Fprintf(h, "%s|%d|%d", path, info.Size(), info.ModTime().UnixNano())
	return "\"" + strconv.FormatUint(h.Sum64(), 16) + "\""
}

// listing renders an HTML index of the directory at path.
func (fsrv *fileServer) listing(uri, path string, head bool) (*Response, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		return NewTextResponse(StatusForbidden, MimePlaintext, "FORBIDDEN: No directory listing."), nil
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].IsDir() != entries[j].IsDir() {
			return entries[i].IsDir()
		}
		return entries[i].Name() < entries[j].Name()
	})

	var sb strings.Builder
	title := html.EscapeString(uri)
	sb.WriteString("<html><head><title>Directory " + title + "</title></head><body><h1>Directory " + title + "</h1>")
	if len(uri) > 1 {
		parent := uri[:strings.LastIndexByte(strings.TrimSuffix(uri, "/"), '/')+1]
		sb.WriteString("<b><a href=\"" + html.EscapeString(parent) + "\">..</a></b><br/>")
	}
	for _, e := range entries {
		name := e.Name()
		href := html.EscapeString(uri + url.PathEscape(name))
		if e.IsDir() {
			sb.WriteString("<b><a href=\"" + href + "/\">" + html.EscapeString(name) + "/</a></b><br/>")
			continue
		}
		sb.WriteString("<a href=\"" + href + "\">" + html.EscapeString(name) + "</a>")
		if info, err := e.Info(); err == nil {
			sb.WriteString(" &nbsp;<font size=2>(" + formatSize(info.Size()) + ")</font>")
		}
		sb.WriteString("<br/>")
	}
	sb.WriteString("</body></html>")

	resp := NewTextResponse(StatusOK, MimeHTML, sb.String())
	if head {
		resp.Data = nil
	}
	return resp, nil
}

func formatSize(n int64) string {
	switch {
	case n < 1024:
		return strconv.FormatInt(n, 10) + " bytes"
	case n < 1024*1024:
		return fmt.Sprintf("%.1f KB", float64(n)/1024)
	default:
		return fmt.Sprintf("%.1f MB", float64(n)/(1024*1024))
	}
}
