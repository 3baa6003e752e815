package rpc_conf

import (
	"context"
	"github.com/happywbfriends/nano/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

var configVars = []string{
	"RPC_URL", "RPC_USER", "RPC_PASSWORD", "RPC_CALL_TIMEOUT", "RPC_RATE_LIMIT", "RPC_RATE_BURST",
	"RPC_ECHO_CHECK", "RPC_METRICS_NAMESPACE", "RPC_HTTP_TLS_INSECURE", "RPC_HTTP_DIAL_TIMEOUT",
	"RPC_HTTP_REQUEST_TIMEOUT", "RPC_HTTP_TLS_SERVER_NAME",
}

// clearEnv unsets the config variables for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range configVars {
		if v, ok := os.LookupEnv(k); ok {
			t.Cleanup(func() { _ = os.Setenv(k, v) })
		} else {
			t.Cleanup(func() { _ = os.Unsetenv(k) })
		}
		_ = os.Unsetenv(k)
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.URL != "http://127.0.0.1:8332" {
		t.Errorf("URL = %q", cfg.URL)
	}
	if !cfg.HTTP.TLSInsecure {
		t.Error("TLS verification must be off by default")
	}
	if cfg.CallTimeout != 30*time.Second || cfg.HTTP.DialTimeout != 10*time.Second {
		t.Errorf("timeouts = %v / %v", cfg.CallTimeout, cfg.HTTP.DialTimeout)
	}
	if cfg.EchoCheck || cfg.RateLimit != 0 || cfg.MetricsNamespace != "" {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Error(err)
	}
}

func TestLoadFromEnvAndFile(t *testing.T) {
	clearEnv(t)

	dir := t.TempDir()
	envFile := filepath.Join(dir, "node.env")
	content := "RPC_URL=https://node.local:18332\nRPC_USER=fromfile\nRPC_PASSWORD=filepass\nRPC_HTTP_TLS_INSECURE=false\n"
	if err := os.WriteFile(envFile, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	// уже выставленная переменная важнее файла
	t.Setenv("RPC_USER", "fromenv")
	t.Setenv("RPC_RATE_LIMIT", "2.5")
	t.Setenv("RPC_RATE_BURST", "3")

	cfg, err := Load(envFile)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.URL != "https://node.local:18332" || cfg.User != "fromenv" || cfg.Password != "filepass" {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.HTTP.TLSInsecure {
		t.Error("RPC_HTTP_TLS_INSECURE=false ignored")
	}
	if cfg.RateLimit != 2.5 || cfg.RateBurst != 3 {
		t.Errorf("rate = %v/%d", cfg.RateLimit, cfg.RateBurst)
	}

	ep, err := cfg.Endpoint()
	if err != nil {
		t.Fatal(err)
	}
	if ep.URL.Host != "node.local:18332" || ep.Username != "fromenv" {
		t.Errorf("endpoint = %+v", ep)
	}
}

func TestLoadBadValue(t *testing.T) {
	clearEnv(t)
	t.Setenv("RPC_CALL_TIMEOUT", "soon")

	if _, err := Load(); err == nil {
		t.Fatal("expected a parse error")
	}
}

func TestLoadValidatesNested(t *testing.T) {
	clearEnv(t)
	t.Setenv("RPC_HTTP_DIAL_TIMEOUT", "-1s")

	_, err := Load()
	if err == nil || !strings.Contains(err.Error(), "dial timeout") {
		t.Fatalf("error = %v, want dial timeout rejected", err)
	}
}

func TestLoadValidatesTopLevel(t *testing.T) {
	clearEnv(t)
	t.Setenv("RPC_RATE_LIMIT", "-2")

	_, err := Load()
	if err == nil || !strings.Contains(err.Error(), "rate limit") {
		t.Fatalf("error = %v, want rate limit rejected", err)
	}
}

func TestValidate(t *testing.T) {
	base := Config{URL: "http://127.0.0.1:8332", RateBurst: 1}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		errText string
	}{
		{"ok", func(c *Config) {}, ""},
		{"empty url", func(c *Config) { c.URL = "" }, "url is empty"},
		{"negative timeout", func(c *Config) { c.CallTimeout = -1 }, "call timeout"},
		{"negative rate", func(c *Config) { c.RateLimit = -1 }, "rate limit"},
		{"zero burst", func(c *Config) { c.RateLimit = 1; c.RateBurst = 0 }, "rate burst"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base
			tt.mutate(&c)
			err := c.Validate()
			if tt.errText == "" {
				if err != nil {
					t.Fatal(err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.errText) {
				t.Fatalf("error = %v, want '%s'", err, tt.errText)
			}
		})
	}
}

func TestNewClient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if u, p, _ := r.BasicAuth(); u != "rpc" || p != "pw" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":null}`))
			return
		}
		_, _ = w.Write([]byte(`{"result":"pong","error":null,"id":"0"}`))
	}))
	defer srv.Close()

	cfg := Config{
		URL:              srv.URL,
		User:             "rpc",
		Password:         "pw",
		CallTimeout:      time.Second,
		RateLimit:        100,
		RateBurst:        1,
		EchoCheck:        true,
		MetricsNamespace: "noderpc",
	}
	reg := prometheus.NewRegistry()
	c, err := cfg.NewClient(logger.NoLogger, reg)
	if err != nil {
		t.Fatal(err)
	}

	res, err := c.Call(context.Background(), "ping")
	if err != nil {
		t.Fatal(err)
	}
	if string(res) != `"pong"` {
		t.Errorf("result = %s", res)
	}
	if n, err := testutil.GatherAndCount(reg); err != nil || n == 0 {
		t.Errorf("metrics not registered: %d, %v", n, err)
	}
}

func TestNewClientRejectsInvalidConfig(t *testing.T) {
	if _, err := (Config{URL: "ftp://x"}).NewClient(logger.NoLogger, prometheus.NewRegistry()); err == nil {
		t.Fatal("expected an error for a non-http url")
	}

	cfg := Config{URL: "http://127.0.0.1:8332", RateBurst: 1}
	cfg.HTTP.DialTimeout = -time.Second
	_, err := cfg.NewClient(logger.NoLogger, prometheus.NewRegistry())
	if err == nil || !strings.Contains(err.Error(), "dial timeout") {
		t.Fatalf("error = %v, want dial timeout rejected", err)
	}
}

func TestNewClientTwiceSharesMetrics(t *testing.T) {
	cfg := Config{URL: "http://127.0.0.1:8332", RateBurst: 1, MetricsNamespace: "noderpc"}
	reg := prometheus.NewRegistry()

	if _, err := cfg.NewClient(logger.NoLogger, reg); err != nil {
		t.Fatal(err)
	}
	if _, err := cfg.NewClient(logger.NoLogger, reg); err != nil {
		t.Fatalf("second client: %v", err)
	}
}
