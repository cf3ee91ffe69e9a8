package middleware

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mnehpets/rpcwrap/endpoint"
)

func newTestLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func decodeLogLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("log output is not a single JSON line: %v: %q", err, buf.String())
	}
	return line
}

func TestAccessLogProcessor_Success(t *testing.T) {
	var buf bytes.Buffer
	h := endpoint.Handler(func(_ http.ResponseWriter, _ *http.Request, _ struct{}) (endpoint.Renderer, error) {
		return &endpoint.StringRenderer{Body: "hello"}, nil
	}, NewRequestIDProcessor(), NewAccessLogProcessor(newTestLogger(&buf)))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/rpc", nil))

	line := decodeLogLine(t, &buf)
	if line["msg"] != "http.request" || line["level"] != "INFO" {
		t.Fatalf("unexpected log line %v", line)
	}
	if line["status"] != float64(http.StatusOK) || line["bytes"] != float64(5) {
		t.Fatalf("unexpected status/bytes in %v", line)
	}
	if line["method"] != http.MethodPost || line["path"] != "/rpc" {
		t.Fatalf("unexpected request fields in %v", line)
	}
	if line["request_id"] != rec.Header().Get(RequestIDHeader) {
		t.Fatalf("request_id %v does not match header %q", line["request_id"], rec.Header().Get(RequestIDHeader))
	}
}

func TestAccessLogProcessor_ErrorStatus(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantCode  float64
		wantLevel string
	}{
		{"endpoint error", endpoint.Error(http.StatusUnsupportedMediaType, "", nil), 415, "INFO"},
		{"plain error", errors.New("boom"), 500, "ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			h := endpoint.Handler(func(_ http.ResponseWriter, _ *http.Request, _ struct{}) (endpoint.Renderer, error) {
				return nil, tt.err
			}, NewAccessLogProcessor(newTestLogger(&buf)))

			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/rpc", nil))
			if float64(rec.Code) != tt.wantCode {
				t.Fatalf("expected response %v, got %d", tt.wantCode, rec.Code)
			}
			line := decodeLogLine(t, &buf)
			if line["status"] != tt.wantCode || line["level"] != tt.wantLevel {
				t.Fatalf("unexpected log line %v", line)
			}
		})
	}
}

func TestAccessLogProcessor_NilLoggerUsesDefault(t *testing.T) {
	if p := NewAccessLogProcessor(nil); p.Logger != slog.Default() {
		t.Fatal("expected slog.Default")
	}
}
