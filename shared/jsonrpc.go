package shared

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

const (
	JSONRPCVersion = "2.0"

	// Standard JSON-RPC 2.0 error codes
	JSONRPCErrorParseError     = -32700 // Invalid JSON was received
	JSONRPCErrorInvalidRequest = -32600 // The JSON sent is not a valid Request object
	JSONRPCErrorMethodNotFound = -32601 // The method does not exist / is not available
	JSONRPCErrorInvalidParams  = -32602 // Invalid method parameter(s)
	JSONRPCErrorInternal       = -32603 // Internal JSON-RPC error
)

// JSONRPCError represents a JSON-RPC 2.0 error object.
type JSONRPCError struct {
	Code    int         `json:"code"`           // Error type code
	Message string      `json:"message"`        // Short error description
	Data    interface{} `json:"data,omitempty"` // Additional error information
}

// Error implements the Go error interface for JSONRPCError.
func (e *JSONRPCError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%d: %s", e.Code, e.Message)
}

// NewJSONRPCError wraps an arbitrary error as an internal JSON-RPC error.
func NewJSONRPCError(err error) *JSONRPCError {
	if err == nil {
		return nil
	}
	return &JSONRPCError{
		Code:    JSONRPCErrorInternal,
		Message: err.Error(),
	}
}

// Message is the parsed form of a single JSON-RPC request. The ID is kept
// as a raw value (string or number per JSON-RPC 2.0); nil means the envelope
// carried no id.
type Message struct {
	ID        *any             `json:"id,omitempty"`
	Timestamp time.Time        `json:"-"`
	Method    *string          `json:"method,omitempty"`
	Params    *json.RawMessage `json:"params,omitempty"`
	Result    *json.RawMessage `json:"result,omitempty"`
	Error     *JSONRPCError    `json:"error,omitempty"`
	JSONRPC   string           `json:"jsonrpc,omitempty"`
}

// JSONRPCResponse represents the structure for sending JSON-RPC responses.
// Exactly one of Result or Error is set.
type JSONRPCResponse struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      *any          `json:"id"` // Must be present and same as request ID; null for parse errors.
	Result  interface{}   `json:"result,omitempty"`
	Error   *JSONRPCError `json:"error,omitempty"`
}

// ParseRequest parses a JSON-RPC request body. Batch arrays are detected and
// reported via the second return value: the A2A endpoint parses them only to
// reject them with an invalid-request error, so no element decoding happens
// for batches.
func ParseRequest(data []byte) (*Message, bool, error) {
	trimmed := bytes.TrimLeft(data, " \t\r\n")
	if len(trimmed) == 0 {
		return nil, false, fmt.Errorf("empty request body")
	}
	if trimmed[0] == '[' {
		return nil, true, nil
	}

	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, false, fmt.Errorf("invalid JSON-RPC message: %w", err)
	}
	msg.Timestamp = time.Now()
	return &msg, false, nil
}

// Validate checks the envelope fields a request must carry.
func (m *Message) Validate() *JSONRPCError {
	if m.JSONRPC != JSONRPCVersion {
		return &JSONRPCError{Code: JSONRPCErrorInvalidRequest, Message: "jsonrpc must be \"2.0\""}
	}
	if m.Method == nil || *m.Method == "" {
		return &JSONRPCError{Code: JSONRPCErrorInvalidRequest, Message: "Method is required"}
	}
	if m.ID == nil {
		return &JSONRPCError{Code: JSONRPCErrorInvalidRequest, Message: "Request id is required"}
	}
	switch (*m.ID).(type) {
	case string, float64, int, int64, json.Number:
	default:
		return &JSONRPCError{Code: JSONRPCErrorInvalidRequest, Message: "Request id must be a string or number"}
	}
	return nil
}

// MarshalJSON ensures the JSONRPC field is properly set before marshaling.
func (m *Message) MarshalJSON() ([]byte, error) {
	type alias Message
	out := alias(*m)
	out.JSONRPC = JSONRPCVersion
	return json.Marshal(out)
}
