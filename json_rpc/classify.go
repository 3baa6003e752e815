package json_rpc

import (
	"github.com/happywbfriends/noderpc/http_clt"
	"net/http"
)

// Classify decides the outcome of an exchange.
//
//   - body is not a JSON object: *TransportError, whatever the status
//   - status != 200: *ProtocolStatusError
//   - status == 200: the decoded Response, no further checks
func Classify(reply http_clt.Reply) (*Response, error) {
	body := string(reply.Body)

	resp, err := Decode(reply.Body)
	if err != nil {
		return nil, &TransportError{Op: "decode", Body: body, Err: err}
	}

	if reply.StatusCode != http.StatusOK {
		message := reply.StatusMessage
		if m, ok := resp.ErrorMessage(); ok {
			message = m
		}
		return nil, &ProtocolStatusError{
			Message:       message,
			StatusCode:    reply.StatusCode,
			StatusMessage: reply.StatusMessage,
			Body:          body,
			Response:      resp,
		}
	}

	return resp, nil
}
