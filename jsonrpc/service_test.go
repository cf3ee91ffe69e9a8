package jsonrpc

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// productService is a managed target modelled on a small product catalogue.
type productService struct {
	ServiceBase
	Label string

	mu       sync.Mutex
	products map[float64]string
}

func newProductService() *productService {
	s := &productService{products: map[float64]string{1: "Product 1", 2: "Product 2"}}
	s.Register("find", "remove", "Label", "missing", "rejected")
	return s
}

func (s *productService) Find(id float64) (map[string]any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	name, ok := s.products[id]
	if !ok {
		return nil, nil
	}
	return map[string]any{"id": id, "name": name}, nil
}

func (s *productService) Remove(id float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.products, id)
}

func (s *productService) Rejected(ctx context.Context) error {
	return errors.New("rejected promises err")
}

// Unregistered is callable but not listed in Methods.
func (s *productService) Unregistered() string { return "nope" }

func (s *productService) AreParamsValid(_ context.Context, method string, params any) (bool, error) {
	switch method {
	case "find", "remove":
		args, ok := params.([]any)
		if !ok || len(args) == 0 {
			return false, nil
		}
		_, ok = args[0].(float64)
		return ok, nil
	case "rejected":
		return true, nil
	}
	return false, nil
}

// bareService forgets to implement AreParamsValid.
type bareService struct {
	ServiceBase
}

func (s *bareService) Ping() string { return "pong" }

func requireRPCError(t *testing.T, err error, code int) *Error {
	t.Helper()
	var rpcErr *Error
	require.True(t, errors.As(err, &rpcErr), "want *Error, got %v", err)
	assert.Equal(t, code, rpcErr.Code)
	return rpcErr
}

func TestServiceBaseRegister(t *testing.T) {
	var b ServiceBase
	assert.Empty(t, b.Methods())

	b.Register("a", "b")
	b.Register("c")
	assert.Equal(t, []string{"a", "b", "c"}, b.Methods())

	methods := b.Methods()
	methods[0] = "changed"
	assert.Equal(t, "a", b.Methods()[0])
}

func TestServiceBaseAreParamsValidNotImplemented(t *testing.T) {
	s := &bareService{}
	ok, err := s.AreParamsValid(context.Background(), "Ping", nil)
	assert.False(t, ok)
	assert.ErrorIs(t, err, ErrNotImplemented)

	err = ValidateParams(context.Background(), s, "Ping", nil)
	assert.ErrorIs(t, err, ErrNotImplemented)
	var rpcErr *Error
	assert.False(t, errors.As(err, &rpcErr))
}

func TestValidateMethod(t *testing.T) {
	s := newProductService()

	assert.NoError(t, ValidateMethod(s, "find"))
	assert.NoError(t, ValidateMethod(s, "remove"))

	rpcErr := requireRPCError(t, ValidateMethod(s, "Unregistered"), CodeMethodNotFound)
	assert.Equal(t, "Method not found", rpcErr.Message)

	// Registered, but no member by that name.
	requireRPCError(t, ValidateMethod(s, "missing"), CodeMethodNotFound)
	// Registered, but the member is a string field.
	requireRPCError(t, ValidateMethod(s, "Label"), CodeMethodNotFound)
	// Contract methods are never operations.
	s.Register("AreParamsValid")
	requireRPCError(t, ValidateMethod(s, "AreParamsValid"), CodeMethodNotFound)
}

func TestValidateParams(t *testing.T) {
	s := newProductService()
	ctx := context.Background()

	assert.NoError(t, ValidateParams(ctx, s, "find", []any{float64(1)}))

	rpcErr := requireRPCError(t, ValidateParams(ctx, s, "find", []any{"abc"}), CodeInvalidParams)
	assert.Equal(t, "Invalid params", rpcErr.Message)
	assert.Nil(t, rpcErr.Data)

	requireRPCError(t, ValidateParams(ctx, s, "unknown", nil), CodeInvalidParams)
}

func TestValidateParamsPassesThroughCheckErrors(t *testing.T) {
	s := &asyncCheckService{err: NewError(-32050, "catalogue unavailable")}
	rpcErr := requireRPCError(t, ValidateParams(context.Background(), s, "lookup", nil), -32050)
	assert.Equal(t, "catalogue unavailable", rpcErr.Message)
}

// asyncCheckService validates params by waiting on another goroutine.
type asyncCheckService struct {
	ServiceBase
	err error
}

func (s *asyncCheckService) Lookup() string { return "found" }

func (s *asyncCheckService) AreParamsValid(ctx context.Context, _ string, _ any) (bool, error) {
	f := Go(func() (any, error) {
		if s.err != nil {
			return nil, s.err
		}
		return true, nil
	})
	v, err := f.Await(ctx)
	if err != nil {
		return false, err
	}
	return v.(bool), nil
}

// pairService registers a method whose signature a Wrapper cannot call.
type pairService struct {
	ServiceBase
}

func (s *pairService) Pair() (int, int) { return 1, 2 }

func (s *pairService) Ping() string { return "pong" }

func (s *pairService) AreParamsValid(context.Context, string, any) (bool, error) {
	return true, nil
}

func TestValidateMethodIgnoresSignature(t *testing.T) {
	s := &pairService{}
	s.Register("pair", "ping")

	assert.NoError(t, ValidateMethod(s, "pair"))
	assert.NoError(t, ValidateMethod(s, "ping"))

	w, err := NewWrapper(s)
	require.NoError(t, err)
	requireRPCError(t, w.validateMethod("pair"), CodeMethodNotFound)
	assert.NoError(t, w.validateMethod("ping"))

	reply, err := w.Process(context.Background(), []byte(`{"jsonrpc":"2.0","id":1,"method":"pair"}`))
	require.NoError(t, err)
	require.NotNil(t, reply)
	assert.Equal(t, CodeMethodNotFound, reply.Responses[0].Error.Code)
}
