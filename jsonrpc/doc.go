// Package jsonrpc is a transport-agnostic JSON-RPC 2.0 dispatcher.
//
// This package implements the JSON-RPC 2.0 specification (https://www.jsonrpc.org/specification).
// A Wrapper takes raw payload bytes, validates every request, calls the
// matching operation of its target and assembles the reply. Transports (see
// rpchttp and rpctcp) only move bytes.
//
// # Basic Usage
//
// Wrap a set of named operations and feed it payloads:
//
//	w, err := jsonrpc.NewWrapper(map[string]any{
//	    "echo": func(v any) any { return v },
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	reply, err := w.Process(ctx, []byte(`{"jsonrpc":"2.0","method":"echo","params":["hi"],"id":1}`))
//
// A nil Reply means nothing must be written back: the payload was a
// notification (no id), or a batch made only of notifications.
//
// # Targets
//
// A target is a map[string]any of funcs, a struct (or pointer to one) whose
// exported methods and func fields are operations, or a slice of funcs
// addressed by index. Wire names resolve by exact match first, then with the
// first letter upper-cased, so "find" reaches a Find method.
//
// A target implementing Service is managed. Its Methods list is a whitelist
// and AreParamsValid must accept the params before the call:
//
//	type Products struct {
//	    jsonrpc.ServiceBase
//	}
//
//	func NewProducts() *Products {
//	    p := &Products{}
//	    p.Register("find")
//	    return p
//	}
//
//	func (p *Products) AreParamsValid(ctx context.Context, method string, params any) (bool, error) {
//	    args, ok := params.([]any)
//	    if !ok || len(args) != 1 {
//	        return false, nil
//	    }
//	    _, ok = args[0].(float64)
//	    return ok, nil
//	}
//
// A Service that leaves AreParamsValid to ServiceBase gets ErrNotImplemented
// back from Process.
//
// # Operation Signatures
//
// Operations may take a leading context.Context followed by any JSON-decodable
// parameters (variadic allowed), and return nothing, a value, an error, or a
// value and an error:
//
//	func(ctx context.Context, a, b int) (int, error)
//	func(item Product) error
//	func(nums ...float64) float64
//
// Positional params fill parameters in order; named params decode into the
// first parameter. A returned Awaiter (such as a Future from Go) is awaited.
// Methods listed with WithCallbackMethods instead take a completion callback
// as their last parameter:
//
//	func(content string, done func(error, int))
//
// # Error Handling
//
// Return an *Error to choose the error object sent to the client:
//
//	return 0, jsonrpc.NewError(jsonrpc.CodeInvalidParams, "division by zero")
//
// Any other error is reported as a server error (-32000) with the error text
// as data. Codes outside the reserved bands are coerced to -32000.
package jsonrpc
