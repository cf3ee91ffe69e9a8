package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mnehpets/rpcwrap/config"
	"github.com/mnehpets/rpcwrap/endpoint"
	"github.com/mnehpets/rpcwrap/middleware"
	"github.com/mnehpets/rpcwrap/rpchttp"
	"github.com/mnehpets/rpcwrap/rpctcp"
)

const shutdownTimeout = 10 * time.Second

// listenFlags are the flags shared by the server commands.
type listenFlags struct {
	service string
	host    string
	port    int
}

func (f *listenFlags) register(cmd *cobra.Command, defaultService string) {
	cmd.Flags().StringVarP(&f.service, "service", "s", defaultService, "target to serve: products, arith, journal or echo")
	cmd.Flags().StringVarP(&f.host, "host", "H", "", "address to bind to (overrides RPC_HOST)")
	cmd.Flags().IntVarP(&f.port, "port", "p", 0, "port to listen on (overrides RPC_PORT)")
}

// apply copies the flags that were set onto cfg.
func (f *listenFlags) apply(cmd *cobra.Command, cfg *config.Config) error {
	if cmd.Flags().Changed("host") {
		cfg.Host = f.host
	}
	if cmd.Flags().Changed("port") {
		cfg.Port = f.port
	}
	return cfg.Validate()
}

func newHTTPCmd(g *globals) *cobra.Command {
	var (
		lf      listenFlags
		path    string
		gzip    bool
		origins []string
	)
	cmd := &cobra.Command{
		Use:   "http",
		Short: "Serve a target over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := g.load()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("path") {
				cfg.Path = path
			}
			if cmd.Flags().Changed("gzip") {
				cfg.Gzip = gzip
			}
			if cmd.Flags().Changed("origin") {
				cfg.AllowedOrigins = origins
			}
			if err := lf.apply(cmd, cfg); err != nil {
				return err
			}

			logger := stderrLogger(cfg)
			handler, err := newHTTPHandler(lf.service, cfg, logger)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serveHTTP(ctx, cfg.Addr(), handler, logger)
		},
	}
	lf.register(cmd, "arith")
	cmd.Flags().StringVar(&path, "path", "", "endpoint path (overrides RPC_PATH)")
	cmd.Flags().BoolVar(&gzip, "gzip", true, "compress replies (overrides RPC_GZIP)")
	cmd.Flags().StringSliceVar(&origins, "origin", nil, "allowed CORS origin, repeatable (overrides RPC_ALLOWED_ORIGINS)")
	return cmd
}

// newHTTPHandler builds the mux serving the named target at cfg.Path.
func newHTTPHandler(service string, cfg *config.Config, logger *slog.Logger) (http.Handler, error) {
	w, err := newWrapper(service, cfg, logger)
	if err != nil {
		return nil, err
	}
	h, err := rpchttp.NewHandler(w,
		rpchttp.WithLogger(logger),
		rpchttp.WithCompression(cfg.Gzip),
		rpchttp.WithProcessors(
			middleware.NewRequestIDProcessor(),
			middleware.NewAccessLogProcessor(logger),
			middleware.NewAPIHeadersProcessor(middleware.WithAllowedOrigins(cfg.AllowedOrigins...)),
			&middleware.MaxBodyProcessor{Limit: cfg.MaxBody},
		),
	)
	if err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	mux.Handle(cfg.Path, h)
	if cfg.Path != "/" {
		mux.Handle("/", endpoint.HandleFunc(notFound))
	}
	return mux, nil
}

func notFound(_ http.ResponseWriter, _ *http.Request, _ struct{}) (endpoint.Renderer, error) {
	return nil, endpoint.Error(http.StatusNotFound, "", nil)
}

// serveHTTP runs an http.Server until ctx is done, then shuts it down.
func serveHTTP(ctx context.Context, addr string, h http.Handler, logger *slog.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ErrorLog:          slog.NewLogLogger(logger.Handler(), slog.LevelWarn),
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info("http.listen", slog.String("addr", addr))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	logger.Info("http.shutdown")
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func newTCPCmd(g *globals) *cobra.Command {
	var lf listenFlags
	cmd := &cobra.Command{
		Use:   "tcp",
		Short: "Serve a target over TCP, one payload per connection",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := g.load()
			if err != nil {
				return err
			}
			if err := lf.apply(cmd, cfg); err != nil {
				return err
			}

			logger := stderrLogger(cfg)
			w, err := newWrapper(lf.service, cfg, logger)
			if err != nil {
				return err
			}
			srv, err := rpctcp.NewServer(w,
				rpctcp.WithLogger(logger),
				rpctcp.WithMaxPayload(cfg.MaxBody),
			)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return srv.ListenAndServe(ctx, cfg.Addr())
		},
	}
	lf.register(cmd, "echo")
	return cmd
}
