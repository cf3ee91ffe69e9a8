package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/mnehpets/rpcwrap/endpoint"
)

// RequestIDHeader carries the request id in both directions.
const RequestIDHeader = "X-Request-Id"

// maxRequestIDLength bounds client-supplied ids.
const maxRequestIDLength = 128

type requestIDKey struct{}

// RequestIDProcessor assigns every request an id. A well-formed id sent by
// the client is kept; otherwise a random UUID is generated. The id is echoed
// in the response header and stored in the request context.
type RequestIDProcessor struct {
	// NewID overrides id generation. Defaults to uuid.NewString.
	NewID func() string
}

// NewRequestIDProcessor returns a RequestIDProcessor generating UUIDs.
func NewRequestIDProcessor() *RequestIDProcessor {
	return &RequestIDProcessor{NewID: uuid.NewString}
}

// Process implements endpoint.Processor.
func (p *RequestIDProcessor) Process(w http.ResponseWriter, r *http.Request, next func(http.ResponseWriter, *http.Request) error) error {
	id := r.Header.Get(RequestIDHeader)
	if !validRequestID(id) {
		newID := p.NewID
		if newID == nil {
			newID = uuid.NewString
		}
		id = newID()
	}
	w.Header().Set(RequestIDHeader, id)
	return next(w, r.WithContext(WithRequestID(r.Context(), id)))
}

// validRequestID accepts short ids of printable ASCII.
func validRequestID(id string) bool {
	if id == "" || len(id) > maxRequestIDLength {
		return false
	}
	for i := 0; i < len(id); i++ {
		if id[i] < 0x21 || id[i] > 0x7e {
			return false
		}
	}
	return true
}

// WithRequestID returns a copy of ctx carrying id.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFromContext returns the request id stored by RequestIDProcessor,
// or "" when there is none.
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

var _ endpoint.Processor = (*RequestIDProcessor)(nil)
