// Package rpctcp serves a jsonrpc.Wrapper over plain TCP.
//
// Each connection carries exactly one payload: the client writes a request
// or batch and half-closes its side, the server dispatches it, writes the
// JSON reply (nothing when no reply is warranted) and closes the connection.
package rpctcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/mnehpets/rpcwrap/jsonrpc"
)

const (
	defaultReadTimeout  = 30 * time.Second
	defaultWriteTimeout = 10 * time.Second
	defaultMaxPayload   = 1 << 20
)

// ErrPayloadTooLarge is logged for connections whose payload exceeds the
// configured limit. Such connections are closed without a reply.
var ErrPayloadTooLarge = errors.New("rpctcp: payload too large")

// Server accepts connections and dispatches one payload per connection.
type Server struct {
	wrapper      *jsonrpc.Wrapper
	log          *slog.Logger
	readTimeout  time.Duration
	writeTimeout time.Duration
	maxPayload   int64

	active sync.WaitGroup
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger. Logging is discarded by default.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.log = l
		}
	}
}

// WithReadTimeout bounds how long a client may take to send its payload.
func WithReadTimeout(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.readTimeout = d
		}
	}
}

// WithWriteTimeout bounds how long writing the reply may take.
func WithWriteTimeout(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.writeTimeout = d
		}
	}
}

// WithMaxPayload caps the payload size in bytes.
func WithMaxPayload(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxPayload = n
		}
	}
}

// NewServer returns a Server dispatching to w.
func NewServer(w *jsonrpc.Wrapper, opts ...Option) (*Server, error) {
	if w == nil {
		return nil, errors.New("rpctcp: wrapper is required")
	}
	s := &Server{
		wrapper:      w,
		log:          slog.New(slog.DiscardHandler),
		readTimeout:  defaultReadTimeout,
		writeTimeout: defaultWriteTimeout,
		maxPayload:   defaultMaxPayload,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// ListenAndServe listens on the TCP address addr and calls Serve.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("rpctcp: listen on %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled, then closes ln
// and waits for in-flight connections to finish. It always returns nil
// after a cancellation.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	defer ln.Close()

	stop := context.AfterFunc(ctx, func() { ln.Close() })
	defer stop()

	s.log.InfoContext(ctx, "tcp.listen", slog.String("addr", ln.Addr().String()))

	var err error
	for {
		conn, aerr := ln.Accept()
		if aerr != nil {
			if ctx.Err() != nil || errors.Is(aerr, net.ErrClosed) {
				break
			}
			var ne net.Error
			if errors.As(aerr, &ne) && ne.Timeout() {
				s.log.WarnContext(ctx, "tcp.accept.retry", slog.String("err", aerr.Error()))
				continue
			}
			err = fmt.Errorf("rpctcp: accept: %w", aerr)
			break
		}

		s.active.Add(1)
		go func() {
			defer s.active.Done()
			s.handle(ctx, conn)
		}()
	}

	s.active.Wait()
	return err
}

// handle runs one payload-reply cycle.
func (s *Server) handle(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	remote := slog.String("remote", conn.RemoteAddr().String())
	start := time.Now()

	payload, err := s.read(conn)
	if err != nil {
		s.log.WarnContext(ctx, "tcp.read.fail", remote, slog.String("err", err.Error()))
		return
	}
	if len(payload) == 0 {
		return
	}

	reply, err := s.wrapper.Process(ctx, payload)
	if err != nil {
		s.log.ErrorContext(ctx, "tcp.process.fail", remote, slog.String("err", err.Error()))
		return
	}
	if reply == nil {
		s.log.DebugContext(ctx, "tcp.reply.none", remote, slog.Duration("elapsed", time.Since(start)))
		return
	}

	b, err := json.Marshal(reply)
	if err != nil {
		s.log.ErrorContext(ctx, "tcp.encode.fail", remote, slog.String("err", err.Error()))
		return
	}
	conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
	if _, err := conn.Write(b); err != nil {
		s.log.WarnContext(ctx, "tcp.write.fail", remote, slog.String("err", err.Error()))
		return
	}
	s.log.DebugContext(ctx, "tcp.reply", remote,
		slog.Int("bytes", len(b)),
		slog.Duration("elapsed", time.Since(start)))
}

// read consumes the payload up to the client's half-close.
func (s *Server) read(conn net.Conn) ([]byte, error) {
	conn.SetReadDeadline(time.Now().Add(s.readTimeout))
	payload, err := io.ReadAll(io.LimitReader(conn, s.maxPayload+1))
	if err != nil {
		return nil, err
	}
	if int64(len(payload)) > s.maxPayload {
		return nil, ErrPayloadTooLarge
	}
	return payload, nil
}
