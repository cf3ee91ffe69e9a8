// Package products is a managed dispatch target: an in-memory product
// catalogue whose methods are whitelisted and whose params are checked
// before every call.
package products

import (
	"context"
	"math"
	"slices"
	"sync"

	"github.com/cohesivestack/valgo"

	"github.com/mnehpets/rpcwrap/jsonrpc"
)

// CodeDuplicate is the error code of a create for an id already present.
const CodeDuplicate = -32010

// Product is a catalogue entry.
type Product struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Service holds the catalogue. Its exported methods create, remove and find
// are registered; List is callable from Go only.
type Service struct {
	jsonrpc.ServiceBase

	mu       sync.RWMutex
	products []Product
}

// New returns a Service seeded with products.
func New(products ...Product) *Service {
	s := &Service{products: slices.Clone(products)}
	s.Register("create", "remove", "find")
	return s
}

// Create adds p. It completes asynchronously.
func (s *Service) Create(p Product) *jsonrpc.Future {
	return jsonrpc.Go(func() (any, error) {
		s.mu.Lock()
		defer s.mu.Unlock()
		if slices.ContainsFunc(s.products, func(e Product) bool { return e.ID == p.ID }) {
			return nil, jsonrpc.CreateError(CodeDuplicate, "Product exists", p.ID)
		}
		s.products = append(s.products, p)
		return nil, nil
	})
}

// Remove deletes the product with id, if any.
func (s *Service) Remove(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products = slices.DeleteFunc(s.products, func(p Product) bool { return p.ID == id })
}

// Find returns the product with id, or nil.
func (s *Service) Find(ctx context.Context, id int64) (*Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := slices.IndexFunc(s.products, func(p Product) bool { return p.ID == id })
	if i < 0 {
		return nil, nil
	}
	p := s.products[i]
	return &p, nil
}

// List returns a copy of the catalogue.
func (s *Service) List() []Product {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.products)
}

// AreParamsValid implements jsonrpc.Service.
//
// create takes an object with exactly a positive integral id and a non-blank
// name. find and remove take a positional positive integral id.
func (s *Service) AreParamsValid(_ context.Context, method string, params any) (bool, error) {
	switch method {
	case "create":
		obj, ok := params.(map[string]any)
		if !ok {
			return false, nil
		}
		for k := range obj {
			if k != "id" && k != "name" {
				return false, nil
			}
		}
		id, ok := obj["id"].(float64)
		if !ok || !integral(id) {
			return false, nil
		}
		name, ok := obj["name"].(string)
		if !ok {
			return false, nil
		}
		return valgo.Is(valgo.Number(id, "id").GreaterThan(0)).
			Is(valgo.String(name, "name").Not().Blank()).
			Valid(), nil
	case "find", "remove":
		args, ok := params.([]any)
		if !ok || len(args) == 0 {
			return false, nil
		}
		id, ok := args[0].(float64)
		if !ok || !integral(id) {
			return false, nil
		}
		return valgo.Is(valgo.Number(id, "id").GreaterThan(0)).Valid(), nil
	}
	return false, nil
}

func integral(f float64) bool {
	return f == math.Trunc(f) && math.Abs(f) <= 1<<53
}
