package httpd

// Status lines understood by clients of this server.
const (
	StatusOK                  = "200 OK"
	StatusPartialContent      = "206 Partial Content"
	StatusRedirect            = "301 Moved Permanently"
	StatusNotModified         = "304 Not Modified"
	StatusBadRequest          = "400 Bad Request"
	StatusForbidden           = "403 Forbidden"
	StatusNotFound            = "404 Not Found"
	StatusRangeNotSatisfiable = "416 Requested Range Not Satisfiable"
	StatusInternalError       = "500 Internal Server Error"
	StatusNotImplemented      = "501 Not Implemented"
)

// Common MIME types.
const (
	MimePlaintext     = "text/plain"
	MimeHTML          = "text/html"
	MimeDefaultBinary = "application/octet-stream"
	MimeXML           = "text/xml"
	MimeJSON          = "application/json"
)
