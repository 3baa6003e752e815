package json_rpc

import (
	"bytes"
	"encoding/json"
	"reflect"
	"strconv"
)

// Request is the envelope sent for one call. Field order is the wire order.
type Request struct {
	Version string `json:"jsonrpc"`
	Method  string `json:"method"`
	Id      string `json:"id"`
	Params  []any  `json:"params"`
}

// NewRequest builds the envelope for a call. Trailing nil params are dropped.
func NewRequest(method string, params []any, id uint64) Request {
	params = TrimTrailingNulls(params)
	if params == nil {
		params = []any{}
	}
	return Request{
		Version: Version,
		Method:  method,
		Id:      strconv.FormatUint(id, 10),
		Params:  params,
	}
}

// Encode serializes the request envelope for method, params and id.
func Encode(method string, params []any, id uint64) ([]byte, error) {
	req := NewRequest(method, params, id)
	return json.Marshal(&req)
}

// TrimTrailingNulls removes the contiguous run of nil values at the end of params.
// Nils in the middle stay: positional params cannot skip a slot.
func TrimTrailingNulls(params []any) []any {
	n := len(params)
	for n > 0 && isNil(params[n-1]) {
		n--
	}
	return params[:n]
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}

// Response is the decoded reply envelope.
//
// A reply is in the failure variant when its "error" member is present and not null.
// Error is filled only when that member is an object; ErrorRaw keeps it verbatim.
type Response struct {
	Version  string
	Id       json.RawMessage
	Result   json.RawMessage
	Error    *Error
	ErrorRaw json.RawMessage
	// Fields is the whole top-level object, for members not mapped above.
	Fields map[string]json.RawMessage

	errorHasMessage bool
}

// Failed reports whether the reply carries a non-null "error" member.
func (r *Response) Failed() bool {
	return len(r.ErrorRaw) > 0 && !isNullJSON(r.ErrorRaw)
}

// ErrorMessage returns error.message when the error member is an object with a string message.
func (r *Response) ErrorMessage() (string, bool) {
	if r.Error == nil || !r.errorHasMessage {
		return "", false
	}
	return r.Error.Message, true
}

// ResultOrNull returns the result member, or a JSON null when the reply has none.
func (r *Response) ResultOrNull() json.RawMessage {
	if len(r.Result) == 0 {
		return json.RawMessage("null")
	}
	return r.Result
}

// Decode parses a reply body. The body must be well-formed JSON with an object at the top level.
func Decode(body []byte) (*Response, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, &DecodeError{Body: string(body), Err: err}
	}
	if fields == nil {
		// тело "null" парсится без ошибки, но объекта нет
		return nil, &DecodeError{Body: string(body), Err: ErrNotAnObject}
	}

	resp := &Response{
		Id:       fields["id"],
		Result:   fields["result"],
		ErrorRaw: fields["error"],
		Fields:   fields,
	}
	if v, ok := fields["jsonrpc"]; ok {
		_ = json.Unmarshal(v, &resp.Version) // нестроковый тег просто игнорируем
	}
	if len(resp.ErrorRaw) > 0 {
		resp.Error, resp.errorHasMessage = decodeErrorObject(resp.ErrorRaw)
	}
	return resp, nil
}

func decodeErrorObject(raw json.RawMessage) (*Error, bool) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil || obj == nil {
		return nil, false
	}

	e := &Error{Data: obj["data"]}
	if code, ok := obj["code"]; ok && !isNullJSON(code) {
		e.hasCode = json.Unmarshal(code, &e.Code) == nil
	}

	hasMessage := false
	if msg, ok := obj["message"]; ok && !isNullJSON(msg) {
		hasMessage = json.Unmarshal(msg, &e.Message) == nil
	}
	return e, hasMessage
}

func isNullJSON(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
