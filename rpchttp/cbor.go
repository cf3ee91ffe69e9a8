package rpchttp

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/fxamacker/cbor/v2"

	"github.com/mnehpets/rpcwrap/jsonrpc"
)

// cborCodec translates between CBOR envelopes and the JSON text the
// dispatcher consumes.
type cborCodec struct {
	dec cbor.DecMode
	enc cbor.EncMode
}

func newCBORCodec() (*cborCodec, error) {
	dec, err := cbor.DecOptions{
		// Request objects need string keys to become JSON objects.
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		return nil, fmt.Errorf("rpchttp: cbor decoder: %w", err)
	}
	enc, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		return nil, fmt.Errorf("rpchttp: cbor encoder: %w", err)
	}
	return &cborCodec{dec: dec, enc: enc}, nil
}

// toJSON decodes one CBOR data item and re-encodes it as JSON.
func (c *cborCodec) toJSON(b []byte) ([]byte, error) {
	var v any
	if err := c.dec.Unmarshal(b, &v); err != nil {
		return nil, err
	}
	return json.Marshal(v)
}

// fromReply converts reply into generic values ready for CBOR encoding.
// Integral JSON numbers become integers, the rest float64.
func (c *cborCodec) fromReply(reply *jsonrpc.Reply) (any, error) {
	b, err := json.Marshal(reply)
	if err != nil {
		return nil, fmt.Errorf("rpchttp: encode reply: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("rpchttp: encode reply: %w", err)
	}
	return normalizeNumbers(v), nil
}

func normalizeNumbers(v any) any {
	switch t := v.(type) {
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i
		}
		f, _ := t.Float64()
		return f
	case map[string]any:
		for k, e := range t {
			t[k] = normalizeNumbers(e)
		}
		return t
	case []any:
		for i, e := range t {
			t[i] = normalizeNumbers(e)
		}
		return t
	}
	return v
}
