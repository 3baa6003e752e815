package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"github.com/happywbfriends/nano/logger"
	"github.com/happywbfriends/noderpc/json_rpc"
	"github.com/happywbfriends/noderpc/rpc_conf"
	"github.com/juju/gnuflag"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
	"io"
	"os"
	"strconv"
	"time"
)

const (
	exitOk          = 0
	exitUsage       = 1
	exitTransport   = 2
	exitStatusError = 3
)

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

type flags struct {
	url      string
	user     string
	password string
	envFile  string
	timeout  time.Duration
	insecure bool
	verbose  bool
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	var f flags
	fs := gnuflag.NewFlagSet("noderpc", gnuflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&f.url, "url", "", "node JSON-RPC endpoint, overrides RPC_URL")
	fs.StringVar(&f.user, "user", "", "rpc user, overrides RPC_USER")
	fs.StringVar(&f.password, "password", "", "rpc password, overrides RPC_PASSWORD")
	fs.StringVar(&f.envFile, "env-file", ".env", "dotenv file to read before the environment")
	fs.DurationVar(&f.timeout, "timeout", 0, "call deadline, overrides RPC_CALL_TIMEOUT")
	fs.BoolVar(&f.insecure, "insecure", true, "skip TLS certificate and hostname checks")
	fs.BoolVar(&f.verbose, "verbose", false, "log request details to stderr")
	fs.Usage = func() {
		fmt.Fprintln(stderr, "usage: noderpc [flags] <method> [params...]")
		fs.PrintDefaults()
	}

	if err := fs.Parse(false, args); err != nil {
		return exitUsage
	}

	log := newLogger(stderr, f.verbose)

	rest := fs.Args()
	if len(rest) == 0 {
		fs.Usage()
		return exitUsage
	}
	method, params := rest[0], parseParams(rest[1:])

	cfg, err := rpc_conf.Load(f.envFile)
	if err != nil {
		log.Errorf("Error loading config: %s", err.Error())
		return exitUsage
	}
	applyFlags(fs, f, &cfg)

	client, err := cfg.NewClient(log, nil)
	if err != nil {
		log.Errorf("Error creating client: %s", err.Error())
		return exitUsage
	}

	log.Debugf("Calling %s (id %d, %d params) on %s", method, client.NextId(), len(params), client.ServerURL().Redacted())

	start := time.Now()
	result, err := client.Call(ctx, method, params...)
	if err != nil {
		return reportError(log, stderr, method, err)
	}
	log.Debugf("%s ok in %s", method, time.Since(start))

	if err := printResult(stdout, result); err != nil {
		log.Errorf("Error printing result: %s", err.Error())
		return exitTransport
	}
	return exitOk
}

// newLogger builds the nano zerolog logger writing to stderr. Its level is global for the process.
func newLogger(stderr io.Writer, verbose bool) logger.ILogger {
	level := zerolog.WarnLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	// NewZeroLogger достраивает глобальный логгер zerolog, поэтому вывод задаем заранее
	zlog.Logger = zerolog.New(zerolog.ConsoleWriter{Out: stderr, NoColor: true}).
		Level(level).
		With().Timestamp().
		Logger()
	return logger.NewZeroLogger("noderpc", logger.LogConfig{Level: level.String()})
}

// applyFlags overrides the loaded config with the flags given on the command line.
func applyFlags(fs *gnuflag.FlagSet, f flags, cfg *rpc_conf.Config) {
	fs.Visit(func(fl *gnuflag.Flag) {
		switch fl.Name {
		case "url":
			cfg.URL = f.url
		case "user":
			cfg.User = f.user
		case "password":
			cfg.Password = f.password
		case "timeout":
			cfg.CallTimeout = f.timeout
		case "insecure":
			cfg.HTTP.TLSInsecure = f.insecure
		}
	})
}

// parseParams decodes every argument that is valid JSON; anything else is passed as a string.
func parseParams(args []string) []any {
	params := make([]any, 0, len(args))
	for _, a := range args {
		var v any
		dec := json.NewDecoder(bytes.NewReader([]byte(a)))
		dec.UseNumber()
		if err := dec.Decode(&v); err == nil && !dec.More() {
			params = append(params, v)
			continue
		}
		params = append(params, a)
	}
	return params
}

func reportError(log logger.ILogger, stderr io.Writer, method string, err error) int {
	var statusErr *json_rpc.ProtocolStatusError
	if errors.As(err, &statusErr) {
		msg := statusErr.Message
		log = log.With("status", strconv.Itoa(statusErr.StatusCode))
		if rpcErr := statusErr.RPCError(); rpcErr != nil && rpcErr.HasCode() {
			log = log.With("code", strconv.Itoa(rpcErr.Code))
			if text := json_rpc.CodeText(rpcErr.Code); text != "" {
				log = log.With("code_text", text)
			}
			if rpcErr.Code == json_rpc.ErrCodeMethodNotFound {
				msg = fmt.Sprintf("unknown method %q: %s", method, msg)
			}
		}
		log.Debugf("Status error body: %s", statusErr.Body)
		fmt.Fprintln(stderr, msg)
		return exitStatusError
	}

	var transportErr *json_rpc.TransportError
	if errors.As(err, &transportErr) && transportErr.Body != "" {
		log.Debugf("Raw reply: %s", transportErr.Body)
	}
	fmt.Fprintln(stderr, err.Error())
	return exitTransport
}

func printResult(w io.Writer, result json.RawMessage) error {
	var out bytes.Buffer
	if err := json.Indent(&out, result, "", "  "); err != nil {
		return err
	}
	out.WriteByte('\n')
	_, err := w.Write(out.Bytes())
	return err
}
