package fastparser

import "strings"

// String interning for common header names.
//
// Header names are stored lower-cased. The Go compiler optimizes map lookups
// with string([]byte) keys to avoid allocating the temporary string, so both
// the canonical and the lower-case spelling of a known name resolve to the
// same lower-case string without allocation.

var headerNames = map[string]string{}

func init() {
	for _, name := range []string{
		"Accept",
		"Accept-Encoding",
		"Accept-Language",
		"Cache-Control",
		"Connection",
		"Content-Disposition",
		"Content-Length",
		"Content-Range",
		"Content-Transfer-Encoding",
		"Content-Type",
		"Cookie",
		"Date",
		"Expect",
		"Host",
		"Icy-MetaData",
		"If-Modified-Since",
		"If-None-Match",
		"If-Range",
		"Origin",
		"Range",
		"Referer",
		"Transfer-Encoding",
		"User-Agent",
		"X-Forwarded-For",
		"X-Playback-Session-Id",
		"X-Request-ID",
	} {
		lower := strings.ToLower(name)
		headerNames[name] = lower
		headerNames[lower] = lower
	}
}

// internHeaderName returns the lower-cased header name, interned for known names.
func internHeaderName(b []byte) string {
	if s, ok := headerNames[string(b)]; ok {
		return s
	}
	return strings.ToLower(string(b))
}
