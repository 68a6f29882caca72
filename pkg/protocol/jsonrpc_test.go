package protocol

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestRequestIsNotification(t *testing.T) {
	tests := []struct {
		name string
		line string
		want bool
	}{
		{"numeric id", `{"jsonrpc":"2.0","id":1,"method":"tools/list"}`, false},
		{"string id", `{"jsonrpc":"2.0","id":"a","method":"tools/list"}`, false},
		{"zero id", `{"jsonrpc":"2.0","id":0,"method":"tools/list"}`, false},
		{"absent id", `{"jsonrpc":"2.0","method":"notifications/initialized"}`, true},
		{"null id", `{"jsonrpc":"2.0","id":null,"method":"notifications/initialized"}`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var req Request
			if err := json.Unmarshal([]byte(tt.line), &req); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if got := req.IsNotification(); got != tt.want {
				t.Errorf("IsNotification() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewResponsePreservesID(t *testing.T) {
	resp, err := NewResponse(float64(7), map[string]string{"ok": "yes"})
	if err != nil {
		t.Fatalf("NewResponse: %v", err)
	}

	data, err := json.Marshal(resp)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var decoded struct {
		JSONRPC string          `json:"jsonrpc"`
		ID      float64         `json:"id"`
		Result  json.RawMessage `json:"result"`
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded.JSONRPC != "2.0" {
		t.Errorf("jsonrpc = %q", decoded.JSONRPC)
	}
	if decoded.ID != 7 {
		t.Errorf("id = %v, want 7", decoded.ID)
	}
	if len(decoded.Result) == 0 {
		t.Error("result missing")
	}
}

func TestErrorResponseWithNullID(t *testing.T) {
	// A parse error is answered with id null because the offending line
	// never yielded an id. The id field must still appear in the frame.
	resp := NewErrorResponse(nil, ParseError, "parse error", "unexpected character")

	data, err := json.Marshal(resp)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	frame := string(data)
	if !strings.Contains(frame, `"id":null`) {
		t.Errorf("frame does not serialize id as null: %s", frame)
	}
	if !strings.Contains(frame, `"code":-32700`) {
		t.Errorf("frame missing parse error code: %s", frame)
	}
	if strings.Contains(frame, `"result"`) {
		t.Errorf("error frame carries a result: %s", frame)
	}
}

func TestErrorCodes(t *testing.T) {
	if ParseError != -32700 || InvalidRequest != -32600 || MethodNotFound != -32601 ||
		InvalidParams != -32602 || InternalError != -32603 {
		t.Error("standard JSON-RPC error codes drifted")
	}
}
