package jsonrpc

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Standard JSON-RPC 2.0 error codes, plus the generic server error.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
	CodeServerError    = -32000
)

// Legal code bands. Anything outside them is coerced to CodeServerError.
const (
	minReservedCode    = -32603
	maxReservedCode    = -32600
	minServerErrorCode = -32099
	maxServerErrorCode = -32000
)

var defaultMessages = map[int]string{
	CodeParseError:     "Parse error",
	CodeInvalidRequest: "Invalid request",
	CodeMethodNotFound: "Method not found",
	CodeInvalidParams:  "Invalid params",
	CodeInternalError:  "Internal error",
	CodeServerError:    "Server error",
}

// Error is a protocol error. Operations return it (directly or wrapped) to
// choose the error object sent to the client; any other error returned by an
// operation is reported as a server error.
//
// Error is the control-flow value. The wire value is ErrorObject, built by
// Object when the response is assembled.
type Error struct {
	Code    int
	Message string
	Data    any
}

func (e *Error) Error() string {
	if e.Data != nil {
		return fmt.Sprintf("jsonrpc: %d %s: %v", e.Code, e.Message, e.Data)
	}
	return fmt.Sprintf("jsonrpc: %d %s", e.Code, e.Message)
}

// Object returns the wire representation of e. The code is normalized and an
// empty message replaced by its default, so an Error built as a literal still
// yields a legal error object.
func (e *Error) Object() *ErrorObject {
	code := NormalizeCode(e.Code)
	msg := e.Message
	if msg == "" {
		msg = DefaultMessage(code)
	}
	return &ErrorObject{Code: code, Message: msg, Data: e.Data}
}

// NewError returns an Error with the given code and message and no data.
func NewError(code int, message string) *Error {
	return CreateError(code, message, nil)
}

// CreateError builds a normalized Error. An empty message selects the default
// message of the code. Codes outside the legal bands become CodeServerError;
// message and data supplied by the caller are kept.
func CreateError(code int, message string, data any) *Error {
	code = NormalizeCode(code)
	if message == "" {
		message = DefaultMessage(code)
	}
	return &Error{Code: code, Message: message, Data: data}
}

// NormalizeCode maps code onto the legal bands: [-32603, -32600], -32700 and
// [-32099, -32000]. Any other code yields CodeServerError.
func NormalizeCode(code int) int {
	switch {
	case code == CodeParseError:
		return code
	case code >= minReservedCode && code <= maxReservedCode:
		return code
	case code >= minServerErrorCode && code <= maxServerErrorCode:
		return code
	}
	return CodeServerError
}

// DefaultMessage returns the canonical message for code, or "Server error"
// for codes without one.
func DefaultMessage(code int) string {
	if msg, ok := defaultMessages[code]; ok {
		return msg
	}
	return defaultMessages[CodeServerError]
}

// ErrorObject is the error member of a response.
//
// Data is only serialized when it is non-nil; a zero value such as "" or 0 is
// still sent.
type ErrorObject struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func (o *ErrorObject) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(`{"code":`)
	code, err := json.Marshal(o.Code)
	if err != nil {
		return nil, err
	}
	buf.Write(code)
	buf.WriteString(`,"message":`)
	msg, err := json.Marshal(o.Message)
	if err != nil {
		return nil, err
	}
	buf.Write(msg)
	if o.Data != nil {
		data, err := json.Marshal(o.Data)
		if err != nil {
			return nil, fmt.Errorf("jsonrpc: marshal error data: %w", err)
		}
		buf.WriteString(`,"data":`)
		buf.Write(data)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Err converts a received error object back into an Error.
func (o *ErrorObject) Err() *Error {
	return &Error{Code: o.Code, Message: o.Message, Data: o.Data}
}
