// Package jsonrpc implements the subset of JSON-RPC 2.0 framing that the
// server speaks: inbound requests and notifications, outbound responses.
package jsonrpc

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ProtocolVersion is the supported JSON-RPC protocol version.
const ProtocolVersion = "2.0"

// Request represents a JSON-RPC request (with an ID) or notification (without ID).
type Request struct {
	JSONRPCVersion string          `json:"jsonrpc"`
	Method         string          `json:"method"`
	Params         json.RawMessage `json:"params,omitempty"`
	ID             *RequestID      `json:"id,omitempty"`
}

// IsNotification reports whether the request carries no ID and therefore
// expects no response envelope.
func (r *Request) IsNotification() bool {
	return r.ID.IsNil()
}

// Type returns "notification" or "request" for log enrichment.
func (r *Request) Type() string {
	if r.IsNotification() {
		return "notification"
	}
	return "request"
}

// Response represents a JSON-RPC response. Exactly one of Result or Error is set.
type Response struct {
	JSONRPCVersion string          `json:"jsonrpc"`
	Result         json.RawMessage `json:"result,omitempty"`
	Error          *Error          `json:"error,omitempty"`
	ID             *RequestID      `json:"id"`
}

// Error is a JSON-RPC error object.
type Error struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Data    any       `json:"data,omitempty"`
}

// NewResultResponse builds a successful JSON-RPC response object.
func NewResultResponse(id *RequestID, result any) (*Response, error) {
	resultBytes, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal result: %w", err)
	}

	return &Response{
		JSONRPCVersion: ProtocolVersion,
		Result:         resultBytes,
		ID:             id,
	}, nil
}

// NewErrorResponse builds an error JSON-RPC response with the given code.
func NewErrorResponse(id *RequestID, code ErrorCode, message string) *Response {
	return &Response{
		JSONRPCVersion: ProtocolVersion,
		Error: &Error{
			Code:    code,
			Message: message,
		},
		ID: id,
	}
}

// DetectRequest decides whether a raw body claims JSON-RPC framing: a JSON
// object carrying jsonrpc:"2.0" and a string-valued method. It is a structural
// predicate, not a validator; bodies that fail it are not errors, they are
// simply not JSON-RPC. Returns the parsed request when the predicate holds.
func DetectRequest(raw []byte) (*Request, bool) {
	trimmed := bytes.TrimLeft(raw, " \t\r\n")
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, false
	}

	var req Request
	if err := json.Unmarshal(trimmed, &req); err != nil {
		return nil, false
	}
	if req.JSONRPCVersion != ProtocolVersion || req.Method == "" {
		return nil, false
	}
	return &req, true
}
