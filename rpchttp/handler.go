// Package rpchttp serves a jsonrpc.Wrapper over HTTP.
//
// Each POST body is one payload: a request or a batch. Bodies may be JSON or
// CBOR; the reply is encoded in the type negotiated from the Accept header,
// defaulting to the type of the request. A payload that warrants no reply is
// answered with 204 No Content.
package rpchttp

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/elnormous/contenttype"
	"github.com/klauspost/compress/gzhttp"

	"github.com/mnehpets/rpcwrap/endpoint"
	"github.com/mnehpets/rpcwrap/jsonrpc"
)

var (
	jsonMediaType = contenttype.NewMediaType("application/json")
	cborMediaType = contenttype.NewMediaType("application/cbor")
)

// Handler is the http.Handler of an RPC endpoint.
type Handler struct {
	wrapper    *jsonrpc.Wrapper
	log        *slog.Logger
	processors []endpoint.Processor
	gzip       bool
	codec      *cborCodec
	handler    http.Handler
}

// Option configures a Handler.
type Option func(*Handler)

// WithLogger sets the logger. Logging is discarded by default.
func WithLogger(l *slog.Logger) Option {
	return func(h *Handler) {
		if l != nil {
			h.log = l
		}
	}
}

// WithProcessors runs processors, in order, in front of every request.
func WithProcessors(ps ...endpoint.Processor) Option {
	return func(h *Handler) {
		h.processors = append(h.processors, ps...)
	}
}

// WithCompression gzips replies for clients that accept it.
func WithCompression(enabled bool) Option {
	return func(h *Handler) {
		h.gzip = enabled
	}
}

// NewHandler returns a Handler dispatching to w.
func NewHandler(w *jsonrpc.Wrapper, opts ...Option) (*Handler, error) {
	if w == nil {
		return nil, errors.New("rpchttp: wrapper is required")
	}
	codec, err := newCBORCodec()
	if err != nil {
		return nil, err
	}
	h := &Handler{
		wrapper: w,
		log:     slog.New(slog.DiscardHandler),
		codec:   codec,
	}
	for _, opt := range opts {
		opt(h)
	}

	procs := append([]endpoint.Processor{endpoint.ProcessorFunc(postOnly)}, h.processors...)
	h.handler = endpoint.Handler(h.serve, procs...)
	if h.gzip {
		h.handler = gzhttp.GzipHandler(h.handler)
	}
	return h, nil
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.handler.ServeHTTP(w, r)
}

// postOnly rejects everything but POST before the body is read. OPTIONS
// passes so that a CORS processor further down the chain can answer
// preflights; serve rejects any that get through.
func postOnly(w http.ResponseWriter, r *http.Request, next func(http.ResponseWriter, *http.Request) error) error {
	if r.Method == http.MethodPost || r.Method == http.MethodOptions {
		return next(w, r)
	}
	return methodNotAllowed(w)
}

func methodNotAllowed(w http.ResponseWriter) error {
	w.Header().Set("Allow", http.MethodPost)
	return endpoint.Error(http.StatusMethodNotAllowed, "", nil)
}

type params struct {
	ContentType string `header:"Content-Type"`
	Payload     []byte `body:"payload" maxLength:""`
}

func (h *Handler) serve(w http.ResponseWriter, r *http.Request, p params) (endpoint.Renderer, error) {
	if r.Method != http.MethodPost {
		return nil, methodNotAllowed(w)
	}
	ctx := r.Context()

	reqCBOR := false
	if p.ContentType != "" {
		ct, err := contenttype.GetMediaType(r)
		switch {
		case err != nil:
			return nil, endpoint.Error(http.StatusUnsupportedMediaType, "", err)
		case ct.Matches(jsonMediaType):
		case ct.Matches(cborMediaType):
			reqCBOR = true
		default:
			h.log.WarnContext(ctx, "content_type.unsupported", slog.String("content_type", p.ContentType))
			return nil, endpoint.Error(http.StatusUnsupportedMediaType, "content-type must be application/json or application/cbor", nil)
		}
	}

	available := []contenttype.MediaType{jsonMediaType, cborMediaType}
	if reqCBOR {
		available = []contenttype.MediaType{cborMediaType, jsonMediaType}
	}
	respType, _, err := contenttype.GetAcceptableMediaType(r, available)
	if err != nil {
		return nil, endpoint.Error(http.StatusNotAcceptable, "", err)
	}

	reply, err := h.process(r, reqCBOR, p.Payload)
	if err != nil {
		h.log.ErrorContext(ctx, "http.post.fail", slog.String("err", err.Error()))
		return nil, endpoint.Error(http.StatusInternalServerError, "", err)
	}
	if reply == nil {
		return &endpoint.NoContentRenderer{}, nil
	}

	if respType.Matches(cborMediaType) {
		v, err := h.codec.fromReply(reply)
		if err != nil {
			return nil, err
		}
		return &endpoint.CBORRenderer{Value: v, EncMode: h.codec.enc}, nil
	}
	return &endpoint.JSONRenderer{Value: reply}, nil
}

func (h *Handler) process(r *http.Request, isCBOR bool, body []byte) (*jsonrpc.Reply, error) {
	payload := body
	if isCBOR {
		var err error
		payload, err = h.codec.toJSON(body)
		if err != nil {
			h.log.DebugContext(r.Context(), "cbor.decode.fail", slog.String("err", err.Error()))
			return jsonrpc.NewParseErrorReply(), nil
		}
	}
	return h.wrapper.Process(r.Context(), payload)
}
