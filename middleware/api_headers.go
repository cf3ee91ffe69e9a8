package middleware

import (
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/mnehpets/rpcwrap/endpoint"
)

// APIHeadersProcessor sets the response headers every RPC reply carries and
// answers CORS preflight requests.
//
// Defaults from NewAPIHeadersProcessor:
//   - X-Content-Type-Options: nosniff
//   - X-Frame-Options: DENY
//   - Cache-Control: no-store
//   - Referrer-Policy: no-referrer
//   - Content-Security-Policy: default-src 'none'; frame-ancestors 'none'
//   - no CORS headers
type APIHeadersProcessor struct {
	// Empty strings disable the corresponding header.
	FrameOptions          string
	CacheControl          string
	ReferrerPolicy        string
	ContentSecurityPolicy string

	// ContentTypeOptions enables X-Content-Type-Options: nosniff.
	ContentTypeOptions bool

	// CORS enables Cross-Origin Resource Sharing headers. Nil disables them.
	CORS *CORSConfig
}

// CORSConfig configures Cross-Origin Resource Sharing headers.
type CORSConfig struct {
	// AllowedOrigins lists the origins echoed back in
	// Access-Control-Allow-Origin. "*" allows any origin unless
	// AllowCredentials is set.
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
	ExposedHeaders []string

	AllowCredentials bool

	// MaxAge is how long, in seconds, a preflight result may be cached.
	MaxAge int
}

// HeadersOption configures an APIHeadersProcessor.
type HeadersOption func(*APIHeadersProcessor)

// NewAPIHeadersProcessor returns an APIHeadersProcessor with defaults for an
// RPC endpoint.
func NewAPIHeadersProcessor(opts ...HeadersOption) *APIHeadersProcessor {
	p := &APIHeadersProcessor{
		FrameOptions:          "DENY",
		CacheControl:          "no-store",
		ReferrerPolicy:        "no-referrer",
		ContentSecurityPolicy: "default-src 'none'; frame-ancestors 'none'",
		ContentTypeOptions:    true,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// WithAllowedOrigins enables CORS for origins with the defaults an RPC
// endpoint needs: POST and OPTIONS, the content negotiation headers, and the
// request id exposed to scripts. No origins leaves CORS disabled.
func WithAllowedOrigins(origins ...string) HeadersOption {
	return func(p *APIHeadersProcessor) {
		if len(origins) == 0 {
			return
		}
		p.CORS = &CORSConfig{
			AllowedOrigins: origins,
			AllowedMethods: []string{http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Content-Type", RequestIDHeader},
			ExposedHeaders: []string{RequestIDHeader},
			MaxAge:         600,
		}
	}
}

// WithCORS sets the CORS configuration verbatim.
func WithCORS(config *CORSConfig) HeadersOption {
	return func(p *APIHeadersProcessor) {
		p.CORS = config
	}
}

// WithFrameOptions sets X-Frame-Options.
func WithFrameOptions(options string) HeadersOption {
	return func(p *APIHeadersProcessor) {
		p.FrameOptions = options
	}
}

// WithCacheControl sets Cache-Control.
func WithCacheControl(value string) HeadersOption {
	return func(p *APIHeadersProcessor) {
		p.CacheControl = value
	}
}

// Process implements endpoint.Processor.
func (p *APIHeadersProcessor) Process(w http.ResponseWriter, r *http.Request, next func(http.ResponseWriter, *http.Request) error) error {
	h := w.Header()
	setIf(h, "X-Frame-Options", p.FrameOptions)
	setIf(h, "Cache-Control", p.CacheControl)
	setIf(h, "Referrer-Policy", p.ReferrerPolicy)
	setIf(h, "Content-Security-Policy", p.ContentSecurityPolicy)
	if p.ContentTypeOptions {
		h.Set("X-Content-Type-Options", "nosniff")
	}

	if p.CORS != nil {
		setCORSHeaders(w, r, p.CORS)

		// A preflight is an OPTIONS request with Origin and
		// Access-Control-Request-Method; it never reaches the endpoint.
		if r.Method == http.MethodOptions &&
			r.Header.Get("Origin") != "" &&
			r.Header.Get("Access-Control-Request-Method") != "" {
			return endpoint.Error(http.StatusNoContent, "", nil)
		}
	}
	return next(w, r)
}

func setIf(h http.Header, key, value string) {
	if value != "" {
		h.Set(key, value)
	}
}

// setCORSHeaders sets CORS headers for cross-origin requests, those with an
// Origin header.
func setCORSHeaders(w http.ResponseWriter, r *http.Request, config *CORSConfig) {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return
	}
	h := w.Header()
	h.Add("Vary", "Origin")

	switch {
	case slices.Contains(config.AllowedOrigins, origin):
		h.Set("Access-Control-Allow-Origin", origin)
	case slices.Contains(config.AllowedOrigins, "*") && !config.AllowCredentials:
		// '*' with credentials is forbidden by CORS.
		h.Set("Access-Control-Allow-Origin", "*")
	default:
		return
	}

	if config.AllowCredentials {
		h.Set("Access-Control-Allow-Credentials", "true")
	}
	if len(config.ExposedHeaders) > 0 {
		h.Set("Access-Control-Expose-Headers", strings.Join(config.ExposedHeaders, ", "))
	}

	if r.Method == http.MethodOptions {
		if len(config.AllowedMethods) > 0 {
			h.Set("Access-Control-Allow-Methods", strings.Join(config.AllowedMethods, ", "))
		}
		if len(config.AllowedHeaders) > 0 {
			h.Set("Access-Control-Allow-Headers", strings.Join(config.AllowedHeaders, ", "))
		}
		if config.MaxAge > 0 {
			h.Set("Access-Control-Max-Age", strconv.Itoa(config.MaxAge))
		}
	}
}

var _ endpoint.Processor = (*APIHeadersProcessor)(nil)
