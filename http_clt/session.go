package http_clt

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"github.com/google/uuid"
	"github.com/happywbfriends/nano/logger"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// Endpoint is the node address together with the Basic auth credentials sent on every request.
type Endpoint struct {
	URL      *url.URL
	Username string
	Password string
}

// ParseEndpoint parses rawURL. Credentials embedded in the URL are moved out of it
// and used only when user and password are both empty.
func ParseEndpoint(rawURL, user, password string) (Endpoint, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return Endpoint{}, fmt.Errorf("invalid endpoint url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return Endpoint{}, fmt.Errorf("invalid endpoint url %q: scheme must be http or https", rawURL)
	}
	if u.Host == "" {
		return Endpoint{}, fmt.Errorf("invalid endpoint url %q: missing host", rawURL)
	}

	if u.User != nil {
		if user == "" && password == "" {
			user = u.User.Username()
			password, _ = u.User.Password()
		}
		u.User = nil
	}

	return Endpoint{URL: u, Username: user, Password: password}, nil
}

// Reply is what came back from one exchange. A non-200 status is still a Reply, not an error.
type Reply struct {
	StatusCode    int
	StatusMessage string
	Body          []byte
}

// Session performs exactly one HTTP exchange per call against a fixed endpoint.
type Session struct {
	clt      *http.Client
	endpoint Endpoint
	log      logger.ILogger
}

func NewSession(c *http.Client, ep Endpoint, log logger.ILogger) *Session {
	if c == nil {
		panic("http client is nil")
	}
	if ep.URL == nil {
		panic("endpoint url is nil")
	}
	if log == nil {
		log = logger.NoLogger
	}

	// копия, чтобы вызывающий не мог поменять адрес у живой сессии
	u := *ep.URL
	ep.URL = &u

	return &Session{
		clt:      c,
		endpoint: ep,
		log:      log,
	}
}

// URL returns a copy of the endpoint address without credentials.
func (s *Session) URL() *url.URL {
	u := *s.endpoint.URL
	u.User = nil
	return &u
}

// Exchange POSTs body to the endpoint and reads the status line and the whole response body.
func (s *Session) Exchange(ctx context.Context, body []byte) (Reply, error) {
	requestId := newRequestId(s.log)
	log := s.log
	if requestId != "" {
		log = log.With("x-request-id", requestId)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint.URL.String(), bytes.NewReader(body))
	if err != nil {
		return Reply{}, fmt.Errorf("build request: %w", err)
	}

	// Connection: close - без keep-alive, на каждый вызов свое соединение
	req.Close = true
	req.Header.Set(HeaderAcceptCharset, CharsetUTF8)
	req.Header.Set(HeaderContentType, ContentTypeJSON)
	req.Header.Set(HeaderConnection, "close")
	if requestId != "" {
		req.Header.Set(HeaderRequestId, requestId)
	}
	req.SetBasicAuth(s.endpoint.Username, s.endpoint.Password)

	resp, err := s.clt.Do(req)

	defer SafeResponseCloser(resp, log)

	if err != nil {
		log.Warnf("Error calling %s: %s", s.URL().Redacted(), err.Error())
		return Reply{}, fmt.Errorf("post: %w", err)
	}

	// для 200 и для ошибочных статусов тело читается одинаково
	blob, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Warnf("Error reading body from %s: %s", s.URL().Redacted(), err.Error())
		return Reply{}, fmt.Errorf("read response body: %w", err)
	}

	return Reply{
		StatusCode:    resp.StatusCode,
		StatusMessage: statusMessage(resp),
		Body:          blob,
	}, nil
}

// IsTimeout reports whether err was caused by a deadline on the exchange.
func IsTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var urlErr *url.Error
	return errors.As(err, &urlErr) && urlErr.Timeout()
}

func statusMessage(resp *http.Response) string {
	msg := strings.TrimSpace(strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)))
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	return msg
}

func newRequestId(log logger.ILogger) string {
	UUID, err := uuid.NewRandom()
	if err != nil {
		log.Warnf("Failed generating request id: %s", err)
		return ""
	}
	return UUID.String()
}
