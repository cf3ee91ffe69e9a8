// Package client sends JSON-RPC payloads to rpchttp and rpctcp servers.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/mnehpets/rpcwrap/jsonrpc"
)

// ErrNoReply is returned by Call when the server sent nothing back.
var ErrNoReply = errors.New("client: no reply")

// Sender delivers one raw payload and returns the raw reply, nil when the
// server sent none.
type Sender interface {
	Send(ctx context.Context, payload []byte) ([]byte, error)
}

// Request is an outgoing request object.
type Request struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
	ID      any    `json:"id,omitempty"`
}

// NewRequest returns a request for method. A nil id makes it a
// notification.
func NewRequest(method string, params, id any) Request {
	return Request{JSONRPC: jsonrpc.Version, Method: method, Params: params, ID: id}
}

// Call sends a single request through s and decodes the response. A nil id
// is replaced by a random UUID so the server always answers.
func Call(ctx context.Context, s Sender, method string, params, id any) (*jsonrpc.Response, error) {
	if id == nil {
		id = uuid.NewString()
	}
	payload, err := json.Marshal(NewRequest(method, params, id))
	if err != nil {
		return nil, fmt.Errorf("client: encode request: %w", err)
	}
	b, err := s.Send(ctx, payload)
	if err != nil {
		return nil, err
	}
	if len(b) == 0 {
		return nil, ErrNoReply
	}
	var resp jsonrpc.Response
	if err := json.Unmarshal(b, &resp); err != nil {
		return nil, fmt.Errorf("client: decode response: %w", err)
	}
	return &resp, nil
}

// Notify sends method as a notification through s.
func Notify(ctx context.Context, s Sender, method string, params any) error {
	payload, err := json.Marshal(NewRequest(method, params, nil))
	if err != nil {
		return fmt.Errorf("client: encode request: %w", err)
	}
	_, err = s.Send(ctx, payload)
	return err
}

// Batch sends reqs as one batch and returns the responses the server sent.
// A batch of notifications yields no responses.
func Batch(ctx context.Context, s Sender, reqs ...Request) ([]*jsonrpc.Response, error) {
	payload, err := json.Marshal(reqs)
	if err != nil {
		return nil, fmt.Errorf("client: encode batch: %w", err)
	}
	b, err := s.Send(ctx, payload)
	if err != nil || len(b) == 0 {
		return nil, err
	}
	var resps []*jsonrpc.Response
	if err := json.Unmarshal(b, &resps); err != nil {
		return nil, fmt.Errorf("client: decode batch: %w", err)
	}
	return resps, nil
}

// Decode stores the result of resp in v. An error response is returned as
// its *jsonrpc.Error.
func Decode(resp *jsonrpc.Response, v any) error {
	if resp.Error != nil {
		return resp.Error.Err()
	}
	raw, ok := resp.Result.(json.RawMessage)
	if !ok || v == nil {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("client: decode result: %w", err)
	}
	return nil
}
