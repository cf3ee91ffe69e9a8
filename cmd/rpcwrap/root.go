package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/mnehpets/rpcwrap/config"
	"github.com/mnehpets/rpcwrap/jsonrpc"
	"github.com/mnehpets/rpcwrap/services/arith"
	"github.com/mnehpets/rpcwrap/services/echo"
	"github.com/mnehpets/rpcwrap/services/journal"
	"github.com/mnehpets/rpcwrap/services/products"
)

// globals holds the persistent flags shared by every subcommand.
type globals struct {
	envFile  string
	logLevel string
}

func newRootCmd() *cobra.Command {
	g := &globals{}
	root := &cobra.Command{
		Use:           "rpcwrap",
		Short:         "Serve and call JSON-RPC 2.0 targets",
		Long:          longRoot,
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().StringVar(&g.envFile, "env-file", ".env", "dotenv file loaded before the environment is read")
	root.PersistentFlags().StringVar(&g.logLevel, "log-level", "", "log level: debug, info, warn or error (overrides RPC_LOG_LEVEL)")

	root.AddCommand(newHTTPCmd(g), newTCPCmd(g), newCallCmd(g))
	return root
}

// load reads the configuration and applies the global overrides.
func (g *globals) load() (*config.Config, error) {
	cfg, err := config.Load(g.envFile)
	if err != nil {
		return nil, err
	}
	if g.logLevel != "" {
		cfg.LogLevel = g.logLevel
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// newLogger returns a slog.Logger backed by a charmbracelet logger on w.
func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	h := log.NewWithOptions(w, log.Options{
		Level:           log.Level(level),
		ReportTimestamp: true,
		TimeFormat:      time.TimeOnly,
		Prefix:          "rpcwrap",
	})
	return slog.New(h)
}

func stderrLogger(cfg *config.Config) *slog.Logger {
	return newLogger(os.Stderr, cfg.Level())
}

// serviceNames lists the targets accepted by --service.
var serviceNames = []string{"products", "arith", "journal", "echo"}

// newWrapper builds the Wrapper for the named target.
func newWrapper(name string, cfg *config.Config, logger *slog.Logger) (*jsonrpc.Wrapper, error) {
	opts := []jsonrpc.Option{jsonrpc.WithLogger(logger)}
	var target any
	switch name {
	case "products":
		target = products.New(
			products.Product{ID: 1, Name: "Product 1"},
			products.Product{ID: 2, Name: "Product 2"},
			products.Product{ID: 3, Name: "Product 3"},
		)
	case "arith":
		target = arith.New()
	case "journal":
		target = journal.New(cfg.Journal, logger)
		opts = append(opts, jsonrpc.WithCallbackMethods(journal.CallbackMethods...))
	case "echo":
		target = echo.New()
	default:
		return nil, fmt.Errorf("unknown service %q, want one of %v", name, serviceNames)
	}
	return jsonrpc.NewWrapper(target, opts...)
}

var longRoot = `
rpcwrap exposes a Go value as a JSON-RPC 2.0 service.

Configuration is read from the environment (RPC_HOST, RPC_PORT, RPC_PATH,
RPC_MAX_BODY, RPC_LOG_LEVEL, RPC_GZIP, RPC_ALLOWED_ORIGINS, RPC_JOURNAL),
optionally seeded from a .env file. Flags override the environment.

Examples:
  # Serve the product catalogue over HTTP on the default port
  rpcwrap http --service products

  # Serve ping and echo over TCP
  rpcwrap tcp --service echo --port 7070

  # Call a method on a running HTTP server
  rpcwrap call --method add --params '[1,2,3]'
`
