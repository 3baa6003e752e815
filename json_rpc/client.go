package json_rpc

import (
	"context"
	"encoding/json"
	"fmt"
	"github.com/happywbfriends/nano/logger"
	"github.com/happywbfriends/noderpc/http_clt"
	"golang.org/x/time/rate"
	"net/url"
	"strconv"
	"sync/atomic"
	"time"
)

// Client calls remote procedures on one node. Every call takes the next id from the
// session counter, which starts at 0 and advances on success and on failure alike.
type Client struct {
	session     *http_clt.Session
	seq         uint64
	log         logger.ILogger
	metrics     *ClientMetrics
	limiter     *rate.Limiter
	callTimeout time.Duration
	echoCheck   bool
}

type Option func(*Client)

func WithLogger(log logger.ILogger) Option {
	return func(c *Client) {
		if log != nil {
			c.log = log
		}
	}
}

func WithMetrics(m ClientMetrics) Option {
	return func(c *Client) {
		c.metrics = &m
	}
}

// WithRateLimit makes calls wait for a token bucket before hitting the node.
func WithRateLimit(r rate.Limit, burst int) Option {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(r, burst)
	}
}

// WithCallTimeout bounds calls whose context carries no deadline of its own.
func WithCallTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.callTimeout = d
	}
}

// WithEchoCheck rejects successful replies whose id does not echo the request id
// or whose jsonrpc tag is neither "1.0" nor "2.0".
func WithEchoCheck() Option {
	return func(c *Client) {
		c.echoCheck = true
	}
}

func NewClient(s *http_clt.Session, opts ...Option) *Client {
	if s == nil {
		panic("session is nil")
	}
	c := &Client{
		session: s,
		log:     logger.NoLogger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NextId returns the id the next call will use.
func (c *Client) NextId() uint64 {
	return atomic.LoadUint64(&c.seq)
}

func (c *Client) ServerURL() *url.URL {
	return c.session.URL()
}

// Call invokes method and returns the raw "result" member, JSON null when there is none.
// Failures are *TransportError or *ProtocolStatusError.
func (c *Client) Call(ctx context.Context, method string, params ...any) (json.RawMessage, error) {
	resp, err := c.Send(ctx, method, params)
	if err != nil {
		return nil, err
	}
	return resp.ResultOrNull(), nil
}

// CallResult invokes method and unmarshals the result into result.
func (c *Client) CallResult(ctx context.Context, method string, result any, params ...any) error {
	raw, err := c.Call(ctx, method, params...)
	if err != nil {
		return err
	}
	if result == nil {
		return nil
	}
	if err := json.Unmarshal(raw, result); err != nil {
		return fmt.Errorf("unmarshal %s result: %w", method, err)
	}
	return nil
}

// Send invokes method and returns the whole reply envelope.
func (c *Client) Send(ctx context.Context, method string, params []any) (*Response, error) {
	id := atomic.AddUint64(&c.seq, 1) - 1

	start := time.Now()
	resp, err := c.send(ctx, method, params, id)
	if c.metrics != nil {
		c.metrics.observe(time.Since(start), err)
	}
	if err != nil {
		c.log.Warnf("Error calling %s (id %d) on %s: %s", method, id, c.session.URL().Redacted(), err.Error())
	}
	return resp, err
}

func (c *Client) send(ctx context.Context, method string, params []any, id uint64) (*Response, error) {
	if c.callTimeout > 0 {
		if _, ok := ctx.Deadline(); !ok {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, c.callTimeout)
			defer cancel()
		}
	}

	body, err := Encode(method, params, id)
	if err != nil {
		return nil, &TransportError{Op: "encode", Err: err}
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, &TransportError{Op: "wait", Err: err}
		}
	}

	reply, err := c.session.Exchange(ctx, body)
	if err != nil {
		return nil, &TransportError{Op: "exchange", Err: err}
	}

	resp, err := Classify(reply)
	if err != nil {
		return nil, err
	}

	if c.echoCheck {
		if err := checkEcho(resp, id); err != nil {
			return nil, &TransportError{Op: "echo", Body: string(reply.Body), Err: err}
		}
	}
	return resp, nil
}

func checkEcho(resp *Response, id uint64) error {
	if resp.Version != "" && resp.Version != Version && resp.Version != "2.0" {
		return fmt.Errorf("%w: jsonrpc %q", ErrEchoMismatch, resp.Version)
	}

	want := strconv.FormatUint(id, 10)
	var strId string
	if err := json.Unmarshal(resp.Id, &strId); err == nil && strId == want {
		return nil
	}
	var numId uint64
	if err := json.Unmarshal(resp.Id, &numId); err == nil && numId == id {
		return nil
	}
	return fmt.Errorf("%w: id %s, want %q", ErrEchoMismatch, string(resp.Id), want)
}
