package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/mnehpets/rpcwrap/jsonrpc"
)

const maxReplySize = 16 << 20

// StatusError reports an HTTP response that carries no JSON-RPC reply.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("client: http status %d", e.StatusCode)
	}
	return fmt.Sprintf("client: http status %d: %s", e.StatusCode, e.Body)
}

// HTTPClient posts payloads to an rpchttp endpoint.
type HTTPClient struct {
	URL    string
	Client *http.Client
	// Header is added to every request.
	Header http.Header
}

// NewHTTPClient returns an HTTPClient for url using http.DefaultClient.
func NewHTTPClient(url string) *HTTPClient {
	return &HTTPClient{URL: url, Client: http.DefaultClient}
}

// Send implements Sender. A 204 reply yields nil; any status other than 200
// and 204 is a *StatusError.
func (c *HTTPClient) Send(ctx context.Context, payload []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	for k, vs := range c.Header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	hc := c.Client
	if hc == nil {
		hc = http.DefaultClient
	}
	resp, err := hc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxReplySize))
	if err != nil {
		return nil, fmt.Errorf("client: read reply: %w", err)
	}
	switch resp.StatusCode {
	case http.StatusOK:
		return body, nil
	case http.StatusNoContent:
		return nil, nil
	}
	return nil, &StatusError{StatusCode: resp.StatusCode, Body: string(bytes.TrimSpace(body))}
}

// Call sends a single request. See Call.
func (c *HTTPClient) Call(ctx context.Context, method string, params, id any) (*jsonrpc.Response, error) {
	return Call(ctx, c, method, params, id)
}

// Notify sends a notification. See Notify.
func (c *HTTPClient) Notify(ctx context.Context, method string, params any) error {
	return Notify(ctx, c, method, params)
}

// Batch sends a batch. See Batch.
func (c *HTTPClient) Batch(ctx context.Context, reqs ...Request) ([]*jsonrpc.Response, error) {
	return Batch(ctx, c, reqs...)
}
