package jsonrpc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"unicode"
	"unicode/utf8"
)

// ErrCallbackSignature is returned by NewWrapper when a method named as
// callback style does not take a completion callback as its last parameter.
var ErrCallbackSignature = errors.New("jsonrpc: callback method must take func(error, T) as its last parameter")

// Operation is the uniform calling convention every target member is adapted
// to. params is the raw params member of the request (nil when absent).
type Operation func(ctx context.Context, params json.RawMessage) (any, error)

// Awaiter is implemented by deferred results. An operation returning an
// Awaiter completes when Await returns.
type Awaiter interface {
	Await(ctx context.Context) (any, error)
}

// Future is an Awaiter settled by a function running on its own goroutine.
type Future struct {
	done  chan struct{}
	value any
	err   error
}

// Go runs fn on a new goroutine and returns a Future for its outcome.
func Go(fn func() (any, error)) *Future {
	f := &Future{done: make(chan struct{})}
	go func() {
		defer close(f.done)
		defer func() {
			if r := recover(); r != nil {
				f.err = panicError(r)
			}
		}()
		f.value, f.err = fn()
	}()
	return f
}

// Await blocks until the future settles or ctx is done.
func (f *Future) Await(ctx context.Context) (any, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

var (
	contextType = reflect.TypeFor[context.Context]()
	errorType   = reflect.TypeFor[error]()
)

// signature holds the reflection data of an adaptable func.
type signature struct {
	fn       reflect.Value
	withCtx  bool
	params   []reflect.Type // declared params, minus ctx and callback
	variadic bool
	callback reflect.Type // nil unless callback style
	results  []reflect.Type
}

// adapt turns fn into an Operation. Funcs whose shape cannot be called by the
// dispatcher are rejected.
func adapt(fn reflect.Value, callback bool) (Operation, error) {
	sig, err := parseSignature(fn, callback)
	if err != nil {
		return nil, err
	}
	if sig.callback != nil {
		return sig.callWithCallback, nil
	}
	return sig.call, nil
}

var errUnsupportedSignature = errors.New("jsonrpc: unsupported operation signature")

func parseSignature(fn reflect.Value, callback bool) (*signature, error) {
	ft := fn.Type()
	sig := &signature{fn: fn, variadic: ft.IsVariadic()}

	in := make([]reflect.Type, ft.NumIn())
	for i := range in {
		in[i] = ft.In(i)
	}
	if len(in) > 0 && in[0] == contextType {
		sig.withCtx = true
		in = in[1:]
	}

	if callback {
		if len(in) == 0 || sig.variadic || !isCallbackType(in[len(in)-1]) {
			return nil, ErrCallbackSignature
		}
		sig.callback = in[len(in)-1]
		in = in[:len(in)-1]
	}
	sig.params = in

	sig.results = make([]reflect.Type, ft.NumOut())
	for i := range sig.results {
		sig.results[i] = ft.Out(i)
	}
	switch len(sig.results) {
	case 0, 1:
	case 2:
		if sig.results[1] != errorType {
			return nil, errUnsupportedSignature
		}
	default:
		return nil, errUnsupportedSignature
	}
	return sig, nil
}

// isCallbackType matches func(error) and func(error, T).
func isCallbackType(t reflect.Type) bool {
	if t.Kind() != reflect.Func || t.NumOut() != 0 || t.IsVariadic() {
		return false
	}
	if t.NumIn() < 1 || t.NumIn() > 2 {
		return false
	}
	return t.In(0) == errorType
}

// args decodes params into call arguments. Positional params fill declared
// params in order, named params become the first argument, and absent params
// leave every argument at its zero value.
func (s *signature) args(ctx context.Context, params json.RawMessage) ([]reflect.Value, error) {
	fixed := s.params
	var elem reflect.Type
	if s.variadic {
		elem = fixed[len(fixed)-1].Elem()
		fixed = fixed[:len(fixed)-1]
	}

	args := make([]reflect.Value, 0, len(s.params)+1)
	if s.withCtx {
		args = append(args, reflect.ValueOf(ctx))
	}

	var values []json.RawMessage
	params = bytes.TrimSpace(params)
	switch {
	case isNullJSON(params):
	case params[0] == '[':
		if err := json.Unmarshal(params, &values); err != nil {
			return nil, invalidParams(err)
		}
	default:
		values = []json.RawMessage{params}
	}

	for i, t := range fixed {
		v := reflect.New(t).Elem()
		if i < len(values) {
			if err := decodeInto(values[i], v); err != nil {
				return nil, invalidParams(fmt.Errorf("param %d: %w", i, err))
			}
		}
		args = append(args, v)
	}
	if elem != nil && len(values) > len(fixed) {
		for i, raw := range values[len(fixed):] {
			v := reflect.New(elem).Elem()
			if err := decodeInto(raw, v); err != nil {
				return nil, invalidParams(fmt.Errorf("param %d: %w", len(fixed)+i, err))
			}
			args = append(args, v)
		}
	}
	return args, nil
}

func decodeInto(raw json.RawMessage, v reflect.Value) error {
	return json.Unmarshal(raw, v.Addr().Interface())
}

func invalidParams(err error) *Error {
	return CreateError(CodeInvalidParams, "", err.Error())
}

func (s *signature) call(ctx context.Context, params json.RawMessage) (result any, err error) {
	args, err := s.args(ctx, params)
	if err != nil {
		return nil, err
	}

	defer func() {
		if r := recover(); r != nil {
			result, err = nil, panicError(r)
		}
	}()

	result, err = s.unpack(s.fn.Call(args))
	if err != nil {
		return nil, err
	}
	if a, ok := result.(Awaiter); ok && a != nil {
		return a.Await(ctx)
	}
	return result, nil
}

// unpack converts the return values of a call into a result and error.
func (s *signature) unpack(out []reflect.Value) (any, error) {
	switch len(out) {
	case 0:
		return nil, nil
	case 1:
		if s.results[0] == errorType {
			return nil, asError(out[0])
		}
		return resultValue(out[0]), nil
	default:
		if err := asError(out[1]); err != nil {
			return nil, err
		}
		return resultValue(out[0]), nil
	}
}

func (s *signature) callWithCallback(ctx context.Context, params json.RawMessage) (any, error) {
	args, err := s.args(ctx, params)
	if err != nil {
		return nil, err
	}

	type outcome struct {
		value any
		err   error
	}
	settled := make(chan outcome, 1)
	var once sync.Once
	cb := reflect.MakeFunc(s.callback, func(in []reflect.Value) []reflect.Value {
		once.Do(func() {
			o := outcome{err: asError(in[0])}
			if len(in) > 1 && o.err == nil {
				o.value = resultValue(in[1])
			}
			settled <- o
		})
		return nil
	})
	args = append(args, cb)

	if err := s.invokeCallback(args); err != nil {
		return nil, err
	}

	select {
	case o := <-settled:
		if o.err != nil {
			return nil, o.err
		}
		if a, ok := o.value.(Awaiter); ok && a != nil {
			return a.Await(ctx)
		}
		return o.value, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// invokeCallback starts a callback-style func. A returned error or a panic
// fails the call without waiting for the callback.
func (s *signature) invokeCallback(args []reflect.Value) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = panicError(r)
		}
	}()
	out := s.fn.Call(args)
	for i, t := range s.results {
		if t == errorType {
			if err := asError(out[i]); err != nil {
				return err
			}
		}
	}
	return nil
}

func asError(v reflect.Value) error {
	if !v.IsValid() || (v.Kind() == reflect.Interface && v.IsNil()) {
		return nil
	}
	err, _ := v.Interface().(error)
	return err
}

func resultValue(v reflect.Value) any {
	if !v.IsValid() {
		return nil
	}
	if v.Kind() == reflect.Interface && v.IsNil() {
		return nil
	}
	return v.Interface()
}

// panicError reports a recovered panic as an operation failure.
func panicError(r any) error {
	if err, ok := r.(error); ok {
		return fmt.Errorf("panic: %w", err)
	}
	return fmt.Errorf("panic: %v", r)
}

// lookupMember finds a member by exact name, then by the name with its first
// letter upper-cased.
func lookupMember[V any](members map[string]V, name string) (V, bool) {
	if v, ok := members[name]; ok {
		return v, true
	}
	r, size := utf8.DecodeRuneInString(name)
	if r != utf8.RuneError && unicode.IsLower(r) {
		if v, ok := members[string(unicode.ToUpper(r))+name[size:]]; ok {
			return v, true
		}
	}
	var zero V
	return zero, false
}
