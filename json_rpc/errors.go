package json_rpc

import (
	"errors"
	"fmt"
)

var (
	ErrNotAnObject  = errors.New("top-level JSON value is not an object")
	ErrEchoMismatch = errors.New("response does not echo the request")
)

// DecodeError is returned by Decode when a reply body is not a JSON object.
type DecodeError struct {
	Body string
	Err  error
}

func (e *DecodeError) Error() string {
	return "decode response: " + e.Err.Error()
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// TransportError means no usable reply was obtained: the request could not be sent,
// the connection failed, or the body was not JSON.
type TransportError struct {
	Op   string // encode, wait, exchange, decode, echo
	Body string // raw reply body, if one was read
	Err  error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("jsonrpc %s: %s", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ProtocolStatusError is returned for any HTTP status other than 200 whose body parsed as JSON.
//
// Message is error.message from the body when there is one, otherwise the HTTP status message.
type ProtocolStatusError struct {
	Message       string
	StatusCode    int
	StatusMessage string
	Body          string
	Response      *Response
}

func (e *ProtocolStatusError) Error() string {
	return fmt.Sprintf("%s (http %d %s)", e.Message, e.StatusCode, e.StatusMessage)
}

// RPCError returns the error object from the body, or nil if the body had none.
func (e *ProtocolStatusError) RPCError() *Error {
	if e.Response == nil {
		return nil
	}
	return e.Response.Error
}

func (e *ProtocolStatusError) Unwrap() error {
	if rpcErr := e.RPCError(); rpcErr != nil {
		return rpcErr
	}
	return nil
}
