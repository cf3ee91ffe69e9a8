package jsonrpc

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Version is the protocol tag carried by every request and response.
const Version = "2.0"

// Response is a JSON-RPC response object.
//
// Exactly one of Result and Error is serialized: error when Error is set,
// otherwise result, as an explicit null when Result is nil. ID is serialized as
// null unless it is a string or a finite number.
type Response struct {
	ID     any
	Result any
	Error  *ErrorObject
}

// BuildResponse assembles a response. err takes precedence over result.
// Invalid ids are replaced by null.
func BuildResponse(id any, err *Error, result any) *Response {
	resp := &Response{}
	if IsStringOrNumber(id) {
		resp.ID = id
	}
	if err != nil {
		resp.Error = err.Object()
		return resp
	}
	resp.Result = result
	return resp
}

func (r *Response) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(`{"jsonrpc":"2.0",`)
	if r.Error != nil {
		b, err := json.Marshal(r.Error)
		if err != nil {
			return nil, err
		}
		buf.WriteString(`"error":`)
		buf.Write(b)
	} else {
		b, err := json.Marshal(r.Result)
		if err != nil {
			return nil, fmt.Errorf("jsonrpc: marshal result: %w", err)
		}
		buf.WriteString(`"result":`)
		buf.Write(b)
	}
	buf.WriteString(`,"id":`)
	if IsStringOrNumber(r.ID) {
		b, err := json.Marshal(r.ID)
		if err != nil {
			return nil, err
		}
		buf.Write(b)
	} else {
		buf.WriteString("null")
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a response received from a peer. Result is left as a
// json.RawMessage and numeric ids as json.Number.
func (r *Response) UnmarshalJSON(data []byte) error {
	var raw struct {
		JSONRPC string          `json:"jsonrpc"`
		ID      json.RawMessage `json:"id"`
		Result  json.RawMessage `json:"result"`
		Error   *ErrorObject    `json:"error"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.JSONRPC != Version {
		return fmt.Errorf("jsonrpc: unexpected protocol tag %q", raw.JSONRPC)
	}
	id, err := decodeValue(raw.ID)
	if err != nil {
		return fmt.Errorf("jsonrpc: response id: %w", err)
	}
	r.ID = id
	r.Error = raw.Error
	r.Result = nil
	if raw.Error == nil && raw.Result != nil {
		r.Result = raw.Result
	}
	return nil
}

// Reply is the outcome of processing one payload: a single response, or the
// surviving responses of a batch.
type Reply struct {
	Responses []*Response
	Batch     bool
}

func (r *Reply) MarshalJSON() ([]byte, error) {
	if r.Batch {
		return json.Marshal(r.Responses)
	}
	if len(r.Responses) != 1 {
		return nil, fmt.Errorf("jsonrpc: single reply holds %d responses", len(r.Responses))
	}
	return json.Marshal(r.Responses[0])
}

// NewParseErrorReply returns the reply sent for a payload that cannot be
// decoded.
func NewParseErrorReply() *Reply {
	return &Reply{Responses: []*Response{
		BuildResponse(nil, CreateError(CodeParseError, "", nil), nil),
	}}
}

// decodeValue decodes raw generically, keeping numbers as json.Number.
func decodeValue(raw json.RawMessage) (any, error) {
	if isNullJSON(raw) {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}
