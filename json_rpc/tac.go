package json_rpc

import "encoding/json"

// Version is the protocol tag sent in every request envelope.
const Version = "1.0"

// Error is the JSON-RPC error object carried in the "error" member of a response.
// A code that is missing or not an integer leaves Code at 0 and HasCode false;
// Response.ErrorRaw still holds the member as sent.
type Error struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`

	hasCode bool
}

func (e *Error) Error() string {
	return e.Message
}

// HasCode reports whether the error object carried an integer code.
func (e *Error) HasCode() bool {
	return e.hasCode
}

const (
	ErrCodeParseError     = -32700
	ErrCodeInvalidRequest = -32600
	ErrCodeMethodNotFound = -32601
	ErrCodeInvalidParams  = -32602
	ErrCodeInternalError  = -32603
)

// https://www.jsonrpc.org/specification#error_object
// Диапазон -32000 .. -32099 зарезервирован под коды реализации (bitcoind кладет туда свои ошибки)
const (
	ErrCodeServerErrorMin = -32099
	ErrCodeServerErrorMax = -32000
)

// CodeText returns a short name for the standard error codes, or "" for codes the protocol does not define.
func CodeText(code int) string {
	switch code {
	case ErrCodeParseError:
		return "parse error"
	case ErrCodeInvalidRequest:
		return "invalid request"
	case ErrCodeMethodNotFound:
		return "method not found"
	case ErrCodeInvalidParams:
		return "invalid params"
	case ErrCodeInternalError:
		return "internal error"
	}
	if code >= ErrCodeServerErrorMin && code <= ErrCodeServerErrorMax {
		return "server error"
	}
	return ""
}
