package middleware

import (
	"net/http"

	"github.com/mnehpets/rpcwrap/endpoint"
)

// MaxBodyProcessor caps the request body at Limit bytes. Reading past the
// cap fails, and endpoint.Unmarshal reports it as 413 Request Entity Too
// Large. A Limit of zero or less disables the cap.
type MaxBodyProcessor struct {
	Limit int64
}

// Process implements endpoint.Processor.
func (p *MaxBodyProcessor) Process(w http.ResponseWriter, r *http.Request, next func(http.ResponseWriter, *http.Request) error) error {
	if p.Limit > 0 && r.Body != nil && r.Body != http.NoBody {
		if r.ContentLength > p.Limit {
			return endpoint.Error(http.StatusRequestEntityTooLarge, "", nil)
		}
		r.Body = http.MaxBytesReader(w, r.Body, p.Limit)
	}
	return next(w, r)
}

var _ endpoint.Processor = (*MaxBodyProcessor)(nil)
