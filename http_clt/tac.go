package http_clt

const (
	HeaderContentType   = "Content-Type"
	HeaderAcceptCharset = "Accept-Charset"
	HeaderConnection    = "Connection"
	HeaderRequestId     = "X-Request-ID"
	ContentTypeJSON     = "application/json;charset=UTF-8"
	CharsetUTF8         = "UTF-8"
)
