package jsonrpc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"slices"

	"golang.org/x/sync/errgroup"
)

var (
	// ErrTargetRequired is returned by NewWrapper for a nil target.
	ErrTargetRequired = errors.New("jsonrpc: target is required")
	// ErrTargetNotObject is returned by NewWrapper for targets that have no
	// named members, such as strings, numbers, booleans and bare funcs.
	ErrTargetNotObject = errors.New("jsonrpc: target must be a map, struct, slice or Service")
)

// Option configures a Wrapper.
type Option func(*config)

type config struct {
	callbacks []string
	strict    bool
	logger    *slog.Logger
}

// WithCallbackMethods names the methods that report their outcome through a
// completion callback passed as their last argument instead of returning it.
func WithCallbackMethods(names ...string) Option {
	return func(c *config) {
		c.callbacks = append(c.callbacks, names...)
	}
}

// WithStrictVersion rejects requests whose jsonrpc member is not "2.0".
func WithStrictVersion() Option {
	return func(c *config) {
		c.strict = true
	}
}

// WithLogger sets the logger used for dispatch diagnostics. Logging is
// discarded by default.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

// Wrapper dispatches JSON-RPC payloads to the operations of a target.
//
// The operation table is reflected once by NewWrapper. A Wrapper is safe for
// concurrent use; it holds no per-request state.
type Wrapper struct {
	service Service // nil for plain targets
	ops     map[string]Operation
	strict  bool
	log     *slog.Logger
}

// NewWrapper builds a Wrapper for target.
//
// A target implementing Service is managed: a method must be registered and
// pass AreParamsValid before it is called. Any other map, struct, slice or
// pointer to one is plain: each callable member may be called by name.
func NewWrapper(target any, opts ...Option) (*Wrapper, error) {
	cfg := &config{logger: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(cfg)
	}

	if IsNil(target) {
		return nil, ErrTargetRequired
	}
	if !isObject(target) {
		return nil, fmt.Errorf("%w: got %T", ErrTargetNotObject, target)
	}

	w := &Wrapper{
		ops:    make(map[string]Operation),
		strict: cfg.strict,
		log:    cfg.logger,
	}
	if svc, ok := target.(Service); ok {
		w.service = svc
	}

	for name, fn := range callableMembers(target) {
		callback := slices.Contains(cfg.callbacks, name) || slices.Contains(cfg.callbacks, lowerFirst(name))
		op, err := adapt(fn, callback)
		if errors.Is(err, ErrCallbackSignature) {
			return nil, fmt.Errorf("jsonrpc: method %s: %w", name, err)
		}
		if err != nil {
			w.log.Debug("rpc.method.skip", slog.String("method", name), slog.String("err", err.Error()))
			continue
		}
		w.ops[name] = op
	}
	return w, nil
}

func isObject(target any) bool {
	v := reflect.ValueOf(target)
	for v.Kind() == reflect.Pointer {
		v = v.Elem()
	}
	switch v.Kind() {
	case reflect.Struct, reflect.Map, reflect.Slice, reflect.Array:
		return true
	}
	// Named non-struct types (e.g. a func type with methods) qualify when they
	// implement Service.
	_, ok := target.(Service)
	return ok
}

// Methods returns the names of the target's callable operations, sorted.
func (w *Wrapper) Methods() []string {
	names := make([]string, 0, len(w.ops))
	for name := range w.ops {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Managed reports whether the target implements Service.
func (w *Wrapper) Managed() bool {
	return w.service != nil
}

// Process decodes payload and dispatches the request or batch it holds.
//
// The Reply is nil when no response is warranted: the payload was a
// notification, or a batch whose every element was a notification. A batch
// is dispatched concurrently; its responses keep the input order.
//
// The returned error is reserved for defects of the target, such as a Service
// whose AreParamsValid returns ErrNotImplemented. Client errors are always
// reported inside the Reply.
func (w *Wrapper) Process(ctx context.Context, payload []byte) (*Reply, error) {
	if !json.Valid(payload) {
		w.log.DebugContext(ctx, "rpc.parse.fail")
		return NewParseErrorReply(), nil
	}

	payload = bytes.TrimSpace(payload)
	if payload[0] != '[' {
		resp, err := w.processOne(ctx, payload)
		if err != nil {
			return nil, err
		}
		if resp == nil {
			return nil, nil
		}
		return &Reply{Responses: []*Response{resp}}, nil
	}

	var elems []json.RawMessage
	if err := json.Unmarshal(payload, &elems); err != nil {
		return NewParseErrorReply(), nil
	}
	w.log.DebugContext(ctx, "rpc.batch.start", slog.Int("size", len(elems)))

	results := make([]*Response, len(elems))
	var g errgroup.Group
	for i, elem := range elems {
		g.Go(func() error {
			resp, err := w.processOne(ctx, elem)
			results[i] = resp
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	responses := slices.DeleteFunc(results, func(r *Response) bool { return r == nil })
	if len(responses) == 0 {
		return nil, nil
	}
	return &Reply{Responses: responses, Batch: true}, nil
}

// request holds the members of a request object that passed shape checks.
type request struct {
	ID     any
	Method string
	Params json.RawMessage
}

// processOne validates and dispatches one request. It returns a nil response
// for notifications.
func (w *Wrapper) processOne(ctx context.Context, raw json.RawMessage) (*Response, error) {
	req, rerr := w.decodeRequest(raw)
	if rerr != nil {
		return rerr, nil
	}

	sendResponse := req.ID != nil
	result, err := w.dispatch(ctx, req)
	if errors.Is(err, ErrNotImplemented) {
		w.log.ErrorContext(ctx, "rpc.service.defect", slog.String("method", req.Method), slog.String("err", err.Error()))
		return nil, fmt.Errorf("jsonrpc: %s: %w", req.Method, err)
	}
	if !sendResponse {
		if err != nil {
			w.log.DebugContext(ctx, "rpc.notification.fail", slog.String("method", req.Method), slog.String("err", err.Error()))
		}
		return nil, nil
	}
	if err != nil {
		rpcErr := mapError(err)
		if _, merr := json.Marshal(rpcErr.Object()); merr != nil {
			w.log.WarnContext(ctx, "rpc.error.encode.fail", slog.String("method", req.Method), slog.String("err", merr.Error()))
			rpcErr = CreateError(CodeServerError, "", merr.Error())
		}
		return BuildResponse(req.ID, rpcErr, nil), nil
	}
	// Encoded here so a result that cannot be serialized fails only its own
	// response.
	encoded, merr := json.Marshal(result)
	if merr != nil {
		w.log.WarnContext(ctx, "rpc.result.encode.fail", slog.String("method", req.Method), slog.String("err", merr.Error()))
		return BuildResponse(req.ID, CreateError(CodeServerError, "", merr.Error()), nil), nil
	}
	return BuildResponse(req.ID, nil, json.RawMessage(encoded)), nil
}

// decodeRequest applies the structural checks in order. A failed check yields
// the invalid-request response to send, even for notifications.
func (w *Wrapper) decodeRequest(raw json.RawMessage) (*request, *Response) {
	invalid := func(id any) *Response {
		return BuildResponse(id, CreateError(CodeInvalidRequest, "", nil), nil)
	}

	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' {
		return nil, invalid(nil)
	}
	var members map[string]json.RawMessage
	if err := json.Unmarshal(raw, &members); err != nil {
		return nil, invalid(nil)
	}

	req := &request{}
	if rawID, ok := members["id"]; ok && !isNullJSON(rawID) {
		id, err := decodeValue(rawID)
		if err != nil || !IsStringOrNumber(id) {
			return nil, invalid(nil)
		}
		req.ID = id
	}

	var method string
	if err := json.Unmarshal(members["method"], &method); err != nil || method == "" {
		return nil, invalid(req.ID)
	}
	req.Method = method

	if params, ok := members["params"]; ok && !isNullJSON(params) {
		params = bytes.TrimSpace(params)
		if params[0] != '{' && params[0] != '[' {
			return nil, invalid(req.ID)
		}
		req.Params = params
	}

	if w.strict {
		var version string
		if err := json.Unmarshal(members["jsonrpc"], &version); err != nil || version != Version {
			return nil, invalid(req.ID)
		}
	}
	return req, nil
}

// dispatch resolves and invokes the operation for req.
func (w *Wrapper) dispatch(ctx context.Context, req *request) (any, error) {
	if w.service != nil {
		if err := w.validateMethod(req.Method); err != nil {
			return nil, err
		}
		// The check sees params the way encoding/json decodes into any:
		// numbers as float64.
		var params any
		if req.Params != nil {
			if err := json.Unmarshal(req.Params, &params); err != nil {
				return nil, CreateError(CodeInvalidParams, "", err.Error())
			}
		}
		if err := ValidateParams(ctx, w.service, req.Method, params); err != nil {
			return nil, err
		}
	}

	op, ok := lookupMember(w.ops, req.Method)
	if !ok {
		return nil, CreateError(CodeMethodNotFound, "", nil)
	}
	return op(ctx, req.Params)
}

// validateMethod checks method against the adapted operation table, so a
// registered member with an unsupported signature is not found.
func (w *Wrapper) validateMethod(method string) error {
	return checkMethod(w.service.Methods(), w.ops, method)
}

// mapError converts an operation failure into a protocol error. Errors
// already carrying an *Error keep its message and data with the code
// normalized; anything else becomes a server error whose data is the error
// text.
func mapError(err error) *Error {
	var rpcErr *Error
	if errors.As(err, &rpcErr) {
		return CreateError(rpcErr.Code, rpcErr.Message, rpcErr.Data)
	}
	return CreateError(CodeServerError, "", err.Error())
}

func lowerFirst(name string) string {
	if name == "" {
		return name
	}
	b := []byte(name)
	if b[0] >= 'A' && b[0] <= 'Z' {
		b[0] += 'a' - 'A'
	}
	return string(b)
}
