// Package rpc_conf loads the node address, credentials and client tuning from the environment.
package rpc_conf

import (
	"errors"
	"fmt"
	"github.com/happywbfriends/nano/config"
	"github.com/happywbfriends/nano/logger"
	"github.com/happywbfriends/noderpc/http_clt"
	"github.com/happywbfriends/noderpc/json_rpc"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"
	"os"
	"time"
)

type Config struct {
	URL      string `env:"RPC_URL" envDefault:"http://127.0.0.1:8332"`
	User     string `env:"RPC_USER"`
	Password string `env:"RPC_PASSWORD"`

	HTTP http_clt.HttpClientConfig `envPrefix:"RPC_HTTP_"`

	CallTimeout time.Duration `env:"RPC_CALL_TIMEOUT" envDefault:"30s"`
	RateLimit   float64       `env:"RPC_RATE_LIMIT" envDefault:"0"` // вызовов в секунду, 0 - без лимита
	RateBurst   int           `env:"RPC_RATE_BURST" envDefault:"1"`
	EchoCheck   bool          `env:"RPC_ECHO_CHECK" envDefault:"false"`

	MetricsNamespace string `env:"RPC_METRICS_NAMESPACE"` // пусто - метрики не собираются
}

// Load reads envFiles (missing files are skipped) into the process environment
// without overriding variables that are already set, then parses and validates Config.
func Load(envFiles ...string) (Config, error) {
	var existing []string
	for _, f := range envFiles {
		if _, err := os.Stat(f); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return Config{}, err
		}
		existing = append(existing, f)
	}
	if len(existing) > 0 {
		if err := godotenv.Load(existing...); err != nil {
			return Config{}, fmt.Errorf("load env files: %w", err)
		}
	}

	// ParseEnv валидирует и сам Config, и вложенный HTTP
	var cfg Config
	if err := config.ParseEnv(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.URL == "" {
		return errors.New("rpc url is empty")
	}
	if c.CallTimeout < 0 {
		return errors.New("call timeout must not be negative")
	}
	if c.RateLimit < 0 {
		return errors.New("rate limit must not be negative")
	}
	if c.RateLimit > 0 && c.RateBurst < 1 {
		return errors.New("rate burst must be at least 1")
	}
	return nil
}

func (c Config) Endpoint() (http_clt.Endpoint, error) {
	return http_clt.ParseEndpoint(c.URL, c.User, c.Password)
}

// NewClient wires a json_rpc.Client from the config. reg is used only when MetricsNamespace is set.
// Flags may have changed the config after Load, so it is validated again.
func (c Config) NewClient(log logger.ILogger, reg prometheus.Registerer) (*json_rpc.Client, error) {
	for _, v := range []config.IValidated{c, c.HTTP} {
		if err := v.Validate(); err != nil {
			return nil, err
		}
	}
	ep, err := c.Endpoint()
	if err != nil {
		return nil, err
	}

	session := http_clt.NewSession(http_clt.NewHttpClient(c.HTTP), ep, log)

	opts := []json_rpc.Option{
		json_rpc.WithLogger(log),
		json_rpc.WithCallTimeout(c.CallTimeout),
	}
	if c.RateLimit > 0 {
		opts = append(opts, json_rpc.WithRateLimit(rate.Limit(c.RateLimit), c.RateBurst))
	}
	if c.EchoCheck {
		opts = append(opts, json_rpc.WithEchoCheck())
	}
	if c.MetricsNamespace != "" {
		m, err := json_rpc.NewClientMetrics(reg, c.MetricsNamespace, ep.URL.Host)
		if err != nil {
			return nil, fmt.Errorf("register metrics: %w", err)
		}
		opts = append(opts, json_rpc.WithMetrics(m))
	}
	return json_rpc.NewClient(session, opts...), nil
}
