package endpoint

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

type textUpper string

func (t *textUpper) UnmarshalText(b []byte) error {
	*t = textUpper(strings.ToUpper(string(b)))
	return nil
}

type decodeParams struct {
	Q      string    `query:"q"`
	N      int       `query:"n"`
	Ok     bool      `query:"ok"`
	Ratio  float64   `query:"ratio"`
	P      *int      `query:"p"`
	Tags   []string  `query:"tag"`
	Upper  textUpper `query:"upper"`
	When   time.Time `query:"when"`
	Accept string    `header:"Accept"`
	Trace  []string  `header:"x-trace"`
	Ignore string    `query:"-"`
	Plain  string
}

func TestUnmarshal_HeaderAndQuery(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?q=hello&n=7&ok=true&ratio=0.5&p=9&tag=a&tag=b&upper=abc&when=2024-01-02T03:04:05Z&Ignore=x&plain=y", nil)
	req.Header.Set("Accept", "application/cbor")
	req.Header.Add("X-Trace", "one")
	req.Header.Add("X-Trace", "two")

	var p decodeParams
	if err := Unmarshal(req, &p); err != nil {
		t.Fatalf("Unmarshal returned error: %v", err)
	}

	if p.Q != "hello" || p.N != 7 || !p.Ok || p.Ratio != 0.5 {
		t.Fatalf("unexpected scalars: %+v", p)
	}
	if p.P == nil || *p.P != 9 {
		t.Fatalf("expected P 9, got %v", p.P)
	}
	if strings.Join(p.Tags, ",") != "a,b" {
		t.Fatalf("expected tags a,b, got %v", p.Tags)
	}
	if p.Upper != "ABC" {
		t.Fatalf("expected Upper %q, got %q", "ABC", p.Upper)
	}
	if !p.When.Equal(time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)) {
		t.Fatalf("unexpected When %v", p.When)
	}
	if p.Accept != "application/cbor" {
		t.Fatalf("expected Accept %q, got %q", "application/cbor", p.Accept)
	}
	if strings.Join(p.Trace, ",") != "one,two" {
		t.Fatalf("expected trace one,two, got %v", p.Trace)
	}
	if p.Ignore != "" || p.Plain != "" {
		t.Fatalf("untagged and ignored fields must stay empty: %+v", p)
	}
}

func TestUnmarshal_MissingValuesLeaveFieldsUnchanged(t *testing.T) {
	p := decodeParams{Q: "keep", N: 3}
	if err := Unmarshal(httptest.NewRequest(http.MethodGet, "/", nil), &p); err != nil {
		t.Fatalf("Unmarshal returned error: %v", err)
	}
	if p.Q != "keep" || p.N != 3 {
		t.Fatalf("expected defaults to survive, got %+v", p)
	}
}

func TestUnmarshal_Body(t *testing.T) {
	var p struct {
		ContentType string `header:"Content-Type"`
		Payload     []byte `body:"payload" maxLength:""`
	}
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"jsonrpc":"2.0"}`))
	req.Header.Set("Content-Type", "application/json")
	if err := Unmarshal(req, &p); err != nil {
		t.Fatalf("Unmarshal returned error: %v", err)
	}
	if string(p.Payload) != `{"jsonrpc":"2.0"}` {
		t.Fatalf("unexpected payload %q", p.Payload)
	}
	if p.ContentType != "application/json" {
		t.Fatalf("unexpected content type %q", p.ContentType)
	}
}

func TestUnmarshal_BodyAsString(t *testing.T) {
	var p struct {
		Text string `body:""`
	}
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("hello"))
	if err := Unmarshal(req, &p); err != nil {
		t.Fatalf("Unmarshal returned error: %v", err)
	}
	if p.Text != "hello" {
		t.Fatalf("expected %q, got %q", "hello", p.Text)
	}
}

func TestUnmarshal_MultipleBodyFieldsFail(t *testing.T) {
	var p struct {
		A string `body:"a"`
		B string `body:"b"`
	}
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("x"))
	err := Unmarshal(req, &p)
	if status, _ := StatusOf(err); status != http.StatusInternalServerError {
		t.Fatalf("expected status %d, got %d (%v)", http.StatusInternalServerError, status, err)
	}
}

func TestUnmarshal_MaxLength(t *testing.T) {
	var p struct {
		Q string `query:"q" maxLength:"3"`
	}
	err := Unmarshal(httptest.NewRequest(http.MethodGet, "/?q=abcd", nil), &p)
	if status, _ := StatusOf(err); status != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d (%v)", http.StatusBadRequest, status, err)
	}

	var def struct {
		Body []byte `body:"b"`
	}
	big := strings.Repeat("x", defaultFieldLimit+1)
	err = Unmarshal(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(big)), &def)
	if status, _ := StatusOf(err); status != http.StatusBadRequest {
		t.Fatalf("expected default limit to apply, got %d (%v)", status, err)
	}
}

func TestUnmarshal_MaxBytesReaderIs413(t *testing.T) {
	var p struct {
		Body []byte `body:"b" maxLength:""`
	}
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(strings.Repeat("x", 64)))
	req.Body = http.MaxBytesReader(rec, req.Body, 16)

	err := Unmarshal(req, &p)
	if status, _ := StatusOf(err); status != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected status %d, got %d (%v)", http.StatusRequestEntityTooLarge, status, err)
	}
	var tooLarge *http.MaxBytesError
	if !errors.As(err, &tooLarge) {
		t.Fatalf("expected *http.MaxBytesError in chain, got %v", err)
	}
}

func TestUnmarshal_NestedStructs(t *testing.T) {
	type inner struct {
		Q string `query:"q"`
	}
	var p struct {
		inner
		Ptr *inner
	}
	if err := Unmarshal(httptest.NewRequest(http.MethodGet, "/?q=v", nil), &p); err != nil {
		t.Fatalf("Unmarshal returned error: %v", err)
	}
	if p.Ptr == nil || p.Ptr.Q != "v" {
		t.Fatalf("expected nested pointer struct to be decoded, got %+v", p.Ptr)
	}
}

func TestUnmarshal_InvalidDestinations(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	var s struct{}
	if err := Unmarshal(req, s); err == nil {
		t.Fatal("expected error for non-pointer dst")
	}
	var n int
	if err := Unmarshal(req, &n); err == nil {
		t.Fatal("expected error for non-struct dst")
	}
	if err := Unmarshal(nil, &s); err == nil {
		t.Fatal("expected error for nil request")
	}

	var pp *struct {
		Q string `query:"q"`
	}
	if err := Unmarshal(httptest.NewRequest(http.MethodGet, "/?q=z", nil), &pp); err != nil {
		t.Fatalf("Unmarshal returned error: %v", err)
	}
	if pp == nil || pp.Q != "z" {
		t.Fatalf("expected pointer params to be allocated, got %+v", pp)
	}
}

func TestUnmarshal_BadMaxLengthTag(t *testing.T) {
	var p struct {
		Q string `query:"q" maxLength:"lots"`
	}
	err := Unmarshal(httptest.NewRequest(http.MethodGet, "/?q=a", nil), &p)
	if status, _ := StatusOf(err); status != http.StatusInternalServerError {
		t.Fatalf("expected status %d, got %d", http.StatusInternalServerError, status)
	}
}
