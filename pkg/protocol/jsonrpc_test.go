package protocol

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRequest(t *testing.T) {
	req, err := NewRequest(1, MethodToolsList, nil)
	if err != nil {
		t.Fatalf("Expected NewRequest with nil params to succeed, got error: %v", err)
	}

	if req.JSONRPC != JSONRPCVersion {
		t.Errorf("Expected JSONRPC version to be %q, got %q", JSONRPCVersion, req.JSONRPC)
	}
	if len(req.Params) != 0 {
		t.Errorf("Expected Params to be empty, got %s", string(req.Params))
	}

	req, err = NewRequest(2, MethodToolsCall, CallParams{Name: "echo", Arguments: map[string]interface{}{"x": "v"}})
	require.NoError(t, err)

	var params CallParams
	require.NoError(t, json.Unmarshal(req.Params, &params))
	assert.Equal(t, "echo", params.Name)
	assert.Equal(t, "v", params.Arguments["x"])
}

func TestRequestUnmarshalPresence(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		wantID     bool
		wantMethod bool
		responseID interface{}
	}{
		{"numeric id", `{"jsonrpc":"2.0","id":7,"method":"tools/list"}`, true, true, json.Number("7")},
		{"string id", `{"jsonrpc":"2.0","id":"abc","method":"tools/list"}`, true, true, "abc"},
		{"null id", `{"jsonrpc":"2.0","id":null,"method":"tools/list"}`, true, true, nil},
		{"absent id", `{"jsonrpc":"2.0","method":"notifications/initialized"}`, false, true, NoID},
		{"absent method", `{"jsonrpc":"2.0","id":1}`, true, false, json.Number("1")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var req Request
			require.NoError(t, json.Unmarshal([]byte(tt.input), &req))
			assert.Equal(t, tt.wantID, req.HasID())
			assert.Equal(t, tt.wantMethod, req.HasMethod())
			assert.Equal(t, tt.responseID, req.ResponseID())
		})
	}
}

func TestResponseIDRoundTrip(t *testing.T) {
	var req Request
	require.NoError(t, json.Unmarshal([]byte(`{"id":12345678901234567,"method":"x"}`), &req))

	resp, err := NewResponse(req.ResponseID(), map[string]string{"ok": "yes"})
	require.NoError(t, err)

	data, err := json.Marshal(resp)
	require.NoError(t, err)
	assert.JSONEq(t, `{"jsonrpc":"2.0","id":12345678901234567,"result":{"ok":"yes"}}`, string(data))
}

func TestNewErrorResponse(t *testing.T) {
	resp := NewErrorResponse("No ID", InvalidParams, `No prompt name of "x".`)

	data, err := json.Marshal(resp)
	require.NoError(t, err)
	assert.JSONEq(t, `{"jsonrpc":"2.0","id":"No ID","error":{"code":-32602,"message":"No prompt name of \"x\"."}}`, string(data))
}

func TestResponseClone(t *testing.T) {
	orig, err := NewResponse(nil, map[string]string{"a": "b"})
	require.NoError(t, err)

	clone := orig.Clone()
	clone.ID = 5
	clone.Result[2] = 'z'

	assert.Nil(t, orig.ID)
	assert.JSONEq(t, `{"a":"b"}`, string(orig.Result))
	assert.True(t, orig.HasResult())
}

func TestDecodeMessage(t *testing.T) {
	t.Run("single object", func(t *testing.T) {
		reqs, batch, err := DecodeMessage([]byte(` {"jsonrpc":"2.0","id":1,"method":"Tools/List"}`))
		require.NoError(t, err)
		assert.False(t, batch)
		require.Len(t, reqs, 1)
		assert.Equal(t, MethodToolsList, NormalizeMethod(reqs[0].Method))
	})

	t.Run("batch keeps order and tolerates junk", func(t *testing.T) {
		reqs, batch, err := DecodeMessage([]byte(`[{"id":1,"method":"a"}, 3, {"id":2,"method":"b"}]`))
		require.NoError(t, err)
		assert.True(t, batch)
		require.Len(t, reqs, 3)
		assert.Equal(t, "a", reqs[0].Method)
		assert.False(t, reqs[1].HasMethod())
		assert.Equal(t, "b", reqs[2].Method)
	})

	t.Run("empty batch", func(t *testing.T) {
		reqs, batch, err := DecodeMessage([]byte(`[]`))
		require.NoError(t, err)
		assert.True(t, batch)
		assert.Empty(t, reqs)
	})

	t.Run("invalid json", func(t *testing.T) {
		_, _, err := DecodeMessage([]byte(`{not json`))
		assert.Error(t, err)
	})

	t.Run("empty body", func(t *testing.T) {
		_, _, err := DecodeMessage([]byte("  "))
		assert.Error(t, err)
	})
}

func TestLifecycleMethods(t *testing.T) {
	for _, m := range LifecycleMethods() {
		assert.True(t, IsLifecycleMethod(m), m)
	}
	assert.True(t, IsLifecycleMethod("TOOLS/LIST"))
	assert.False(t, IsLifecycleMethod(MethodToolsCall))
	assert.False(t, IsLifecycleMethod(MethodCancelled))

	assert.Equal(t, "tools", MethodPrefix(MethodToolsList))
	assert.Equal(t, "initialize", MethodPrefix(MethodInitialize))
}

func TestTextResult(t *testing.T) {
	data, err := json.Marshal(TextResult("hello"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"content":[{"type":"text","text":"hello"}],"isError":false}`, string(data))
}
