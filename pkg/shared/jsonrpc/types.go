package jsonrpc

import "encoding/json"

// Based on JSON-RPC 2.0 Specification: https://www.jsonrpc.org/specification

// Version is the only protocol version this package speaks.
const Version = "2.0"

// Request represents a JSON-RPC request object as read off the wire.
// ID and Params are kept raw so string, number and null ids round-trip
// byte-exact and params can be decoded per method.
type Request struct {
	Version string          `json:"jsonrpc"`          // MUST be "2.0"
	Method  string          `json:"method"`           // Method to be invoked
	Params  json.RawMessage `json:"params,omitempty"` // Parameters (structured value)
	ID      json.RawMessage `json:"id,omitempty"`     // Request identifier (string, number, or null)
}

// Response represents a JSON-RPC response object.
// Exactly one of Result or Error is set. A nil ID marshals as null,
// which is the required echo for unparseable input.
type Response struct {
	Version string          `json:"jsonrpc"`
	Result  interface{}     `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
	ID      json.RawMessage `json:"id"`
}

// Error represents a JSON-RPC error object.
type Error struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Error codes (subset, based on JSON-RPC spec).
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
)

// NewResult builds a success response echoing the given raw id.
func NewResult(id json.RawMessage, result interface{}) *Response {
	return &Response{Version: Version, Result: result, ID: normalizeID(id)}
}

// NewError builds an error response echoing the given raw id.
func NewError(id json.RawMessage, code int, message string) *Response {
	return &Response{Version: Version, Error: &Error{Code: code, Message: message}, ID: normalizeID(id)}
}

// normalizeID maps an absent id to nil so it marshals as null.
func normalizeID(id json.RawMessage) json.RawMessage {
	if len(id) == 0 {
		return nil
	}
	return id
}
