package shared

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRequest(t *testing.T) {
	msg, isBatch, err := ParseRequest([]byte(`{"jsonrpc":"2.0","id":"1","method":"tasks/list","params":{}}`))
	require.NoError(t, err)
	assert.False(t, isBatch)
	require.NotNil(t, msg.Method)
	assert.Equal(t, "tasks/list", *msg.Method)
	require.NotNil(t, msg.ID)
	assert.Equal(t, "1", (*msg.ID).(string))

	// Batch arrays are detected, not decoded.
	_, isBatch, err = ParseRequest([]byte(`  [{"jsonrpc":"2.0","id":1,"method":"x"}]`))
	require.NoError(t, err)
	assert.True(t, isBatch)

	_, _, err = ParseRequest([]byte(`{broken`))
	assert.Error(t, err)

	_, _, err = ParseRequest([]byte(`   `))
	assert.Error(t, err)
}

func TestMessageValidate(t *testing.T) {
	method := "tasks/get"
	var id any = "1"
	valid := &Message{JSONRPC: JSONRPCVersion, ID: &id, Method: &method}
	assert.Nil(t, valid.Validate())

	var numID any = float64(7)
	validNum := &Message{JSONRPC: JSONRPCVersion, ID: &numID, Method: &method}
	assert.Nil(t, validNum.Validate())

	wrongVersion := &Message{JSONRPC: "1.0", ID: &id, Method: &method}
	rpcErr := wrongVersion.Validate()
	require.NotNil(t, rpcErr)
	assert.Equal(t, JSONRPCErrorInvalidRequest, rpcErr.Code)

	noMethod := &Message{JSONRPC: JSONRPCVersion, ID: &id}
	require.NotNil(t, noMethod.Validate())

	noID := &Message{JSONRPC: JSONRPCVersion, Method: &method}
	require.NotNil(t, noID.Validate())

	var boolID any = true
	badID := &Message{JSONRPC: JSONRPCVersion, ID: &boolID, Method: &method}
	require.NotNil(t, badID.Validate())
}

func TestJSONRPCErrorAsError(t *testing.T) {
	err := &JSONRPCError{Code: -32001, Message: "Task not found"}
	assert.Equal(t, "-32001: Task not found", err.Error())

	wrapped := NewJSONRPCError(err)
	assert.Equal(t, JSONRPCErrorInternal, wrapped.Code)
	assert.Nil(t, NewJSONRPCError(nil))
}

func TestResponseSerialization(t *testing.T) {
	var id any = "req-1"
	resp := &JSONRPCResponse{
		JSONRPC: JSONRPCVersion,
		ID:      &id,
		Result:  map[string]interface{}{"ok": true},
	}
	data, err := json.Marshal(resp)
	require.NoError(t, err)
	assert.JSONEq(t, `{"jsonrpc":"2.0","id":"req-1","result":{"ok":true}}`, string(data))

	errResp := &JSONRPCResponse{
		JSONRPC: JSONRPCVersion,
		Error:   &JSONRPCError{Code: JSONRPCErrorParseError, Message: "Parse error"},
	}
	data, err = json.Marshal(errResp)
	require.NoError(t, err)
	assert.JSONEq(t, `{"jsonrpc":"2.0","id":null,"error":{"code":-32700,"message":"Parse error"}}`, string(data))
}
