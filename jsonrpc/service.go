package jsonrpc

import (
	"context"
	"errors"
	"slices"
	"sync"
)

// ErrNotImplemented is returned by ServiceBase.AreParamsValid. It signals
// that a Service forgot to provide its own params check; the Wrapper reports
// it to its caller as an error instead of answering the client.
var ErrNotImplemented = errors.New("jsonrpc: method not implemented")

// Service is a managed dispatch target. Only methods that are both listed by
// Methods and exist as callable members of the service can be invoked, and
// every call must first pass AreParamsValid.
//
// AreParamsValid receives params decoded generically: nil when absent, a
// []any for positional params or a map[string]any for named params. Numbers
// are float64. It may block; it is called on the request's goroutine.
type Service interface {
	Methods() []string
	AreParamsValid(ctx context.Context, method string, params any) (bool, error)
}

// ServiceBase can be embedded to implement the method registry of a Service.
// The embedding type must still provide AreParamsValid.
type ServiceBase struct {
	mu      sync.RWMutex
	methods []string
}

// Register appends method names to the registry.
func (b *ServiceBase) Register(names ...string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.methods = append(b.methods, names...)
}

// Methods returns a copy of the registered method names, in registration order.
func (b *ServiceBase) Methods() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return slices.Clone(b.methods)
}

// AreParamsValid always fails with ErrNotImplemented.
func (b *ServiceBase) AreParamsValid(context.Context, string, any) (bool, error) {
	return false, ErrNotImplemented
}

// ValidateMethod fails with a method-not-found Error unless method is
// registered on svc and svc has a callable member of that name.
//
// The member's signature is not inspected. A Wrapper applies the same check
// to its adapted operations, so a member whose signature it cannot call is
// also not found there.
func ValidateMethod(svc Service, method string) error {
	return checkMethod(svc.Methods(), callableMembers(svc), method)
}

// checkMethod reports method-not-found unless method is registered and
// resolves to one of members.
func checkMethod[V any](registered []string, members map[string]V, method string) error {
	if !slices.Contains(registered, method) {
		return CreateError(CodeMethodNotFound, "", nil)
	}
	if _, ok := lookupMember(members, method); !ok {
		return CreateError(CodeMethodNotFound, "", nil)
	}
	return nil
}

// ValidateParams fails with an invalid-params Error when svc rejects params.
// Errors returned by AreParamsValid are passed through unchanged.
func ValidateParams(ctx context.Context, svc Service, method string, params any) error {
	ok, err := svc.AreParamsValid(ctx, method, params)
	if err != nil {
		return err
	}
	if !ok {
		return CreateError(CodeInvalidParams, "", nil)
	}
	return nil
}
