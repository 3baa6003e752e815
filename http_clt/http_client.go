package http_clt

import (
	"crypto/tls"
	"errors"
	"github.com/happywbfriends/nano/logger"
	"net"
	"net/http"
	"time"
)

type HttpClientConfig struct {
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" envDefault:"0s"` // 0 - без ограничения, дедлайн задается через ctx
	DialTimeout    time.Duration `env:"DIAL_TIMEOUT" envDefault:"10s"`
	// Ноды обычно поднимаются локально с самоподписанным сертификатом, поэтому по умолчанию проверка выключена
	TLSInsecure   bool   `env:"TLS_INSECURE" envDefault:"true"`
	TLSServerName string `env:"TLS_SERVER_NAME"`
}

func (c HttpClientConfig) Validate() error {
	if c.RequestTimeout < 0 {
		return errors.New("request timeout must not be negative")
	}
	if c.DialTimeout < 0 {
		return errors.New("dial timeout must not be negative")
	}
	return nil
}

// NewHttpClient builds a client that opens a fresh connection for every request.
// TLS trust policy is local to the returned client.
func NewHttpClient(cfg HttpClientConfig) *http.Client {
	if err := cfg.Validate(); err != nil {
		panic(err)
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DisableKeepAlives = true
	transport.MaxIdleConns = 0
	transport.DialContext = (&net.Dialer{
		Timeout: cfg.DialTimeout,
	}).DialContext
	transport.TLSClientConfig = &tls.Config{
		InsecureSkipVerify: cfg.TLSInsecure, //nolint:gosec // самоподписанные сертификаты нод
		ServerName:         cfg.TLSServerName,
	}

	return &http.Client{
		Timeout:   cfg.RequestTimeout,
		Transport: transport,
	}
}

func SafeResponseCloser(r *http.Response, log logger.ILogger) {
	// http://devs.cloudimmunity.com/gotchas-and-common-mistakes-in-go-golang/index.html
	// When a redirect fails both resp and err are non-nil, so the body still has to be closed.
	if r != nil {
		if closeErr := r.Body.Close(); closeErr != nil && log != nil {
			log.Warnf("Error closing http response: %s", closeErr.Error())
		}
	}
}
