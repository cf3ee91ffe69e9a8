package endpoint

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestStringRenderer(t *testing.T) {
	tests := []struct {
		name     string
		preset   string
		r        StringRenderer
		wantCT   string
		wantCode int
		wantBody string
	}{
		{"defaults", "", StringRenderer{Body: "hello"}, "text/plain; charset=utf-8", http.StatusOK, "hello"},
		{"content type", "", StringRenderer{Body: "{}", ContentType: "application/json"}, "application/json", http.StatusOK, "{}"},
		{"preset header wins", "text/csv", StringRenderer{Body: "a,b", ContentType: "text/html"}, "text/csv", http.StatusOK, "a,b"},
		{"status override", "", StringRenderer{Status: http.StatusTeapot}, "text/plain; charset=utf-8", http.StatusTeapot, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			if tt.preset != "" {
				rec.Header().Set("Content-Type", tt.preset)
			}
			if err := tt.r.Render(rec, httptest.NewRequest(http.MethodGet, "/", nil)); err != nil {
				t.Fatalf("Render returned error: %v", err)
			}
			if got := rec.Header().Get("Content-Type"); got != tt.wantCT {
				t.Fatalf("expected Content-Type %q, got %q", tt.wantCT, got)
			}
			if rec.Code != tt.wantCode {
				t.Fatalf("expected status %d, got %d", tt.wantCode, rec.Code)
			}
			if got := rec.Body.String(); got != tt.wantBody {
				t.Fatalf("expected body %q, got %q", tt.wantBody, got)
			}
		})
	}
}

func TestNoContentRenderer(t *testing.T) {
	rec := httptest.NewRecorder()
	if err := (&NoContentRenderer{}).Render(rec, httptest.NewRequest(http.MethodPost, "/", nil)); err != nil {
		t.Fatalf("Render returned error: %v", err)
	}
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected status %d, got %d", http.StatusNoContent, rec.Code)
	}
	if rec.Body.Len() != 0 {
		t.Fatalf("expected empty body, got %q", rec.Body.String())
	}

	rec = httptest.NewRecorder()
	_ = (&NoContentRenderer{Status: http.StatusAccepted}).Render(rec, httptest.NewRequest(http.MethodPost, "/", nil))
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected status %d, got %d", http.StatusAccepted, rec.Code)
	}
}
