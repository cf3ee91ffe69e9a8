package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/mnehpets/rpcwrap/endpoint"
)

// AccessLogProcessor logs one line per request once the response is written.
//
// Requests answered with a 5xx status are logged at error level, everything
// else at info.
type AccessLogProcessor struct {
	Logger *slog.Logger
}

// NewAccessLogProcessor returns an AccessLogProcessor writing to logger, or
// to slog.Default when logger is nil.
func NewAccessLogProcessor(logger *slog.Logger) *AccessLogProcessor {
	if logger == nil {
		logger = slog.Default()
	}
	return &AccessLogProcessor{Logger: logger}
}

// Process implements endpoint.Processor.
func (p *AccessLogProcessor) Process(w http.ResponseWriter, r *http.Request, next func(http.ResponseWriter, *http.Request) error) error {
	start := time.Now()
	rec := &responseRecorder{ResponseWriter: w}

	err := next(rec, r)

	status := rec.status
	if err != nil {
		// The handler writes the error response after the chain unwinds.
		status, _ = endpoint.StatusOf(err)
	} else if status == 0 {
		status = http.StatusOK
	}

	attrs := []slog.Attr{
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.Int("status", status),
		slog.Int("bytes", rec.bytes),
		slog.Duration("elapsed", time.Since(start)),
		slog.String("remote", r.RemoteAddr),
	}
	if id := w.Header().Get(RequestIDHeader); id != "" {
		attrs = append(attrs, slog.String("request_id", id))
	}
	level := slog.LevelInfo
	if status >= http.StatusInternalServerError {
		level = slog.LevelError
		if err != nil {
			attrs = append(attrs, slog.String("err", err.Error()))
		}
	}
	p.Logger.LogAttrs(r.Context(), level, "http.request", attrs...)
	return err
}

// responseRecorder captures the status code and body size.
type responseRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (rr *responseRecorder) WriteHeader(status int) {
	if rr.status == 0 {
		rr.status = status
	}
	rr.ResponseWriter.WriteHeader(status)
}

func (rr *responseRecorder) Write(b []byte) (int, error) {
	if rr.status == 0 {
		rr.status = http.StatusOK
	}
	n, err := rr.ResponseWriter.Write(b)
	rr.bytes += n
	return n, err
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (rr *responseRecorder) Unwrap() http.ResponseWriter {
	return rr.ResponseWriter
}

var _ endpoint.Processor = (*AccessLogProcessor)(nil)
