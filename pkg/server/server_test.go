package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/officekit/workspace-mcp/pkg/mcperr"
	"github.com/officekit/workspace-mcp/pkg/protocol"
)

func echoTool(ctx context.Context, args map[string]interface{}) (string, error) {
	text, _ := args["text"].(string)
	return "echo: " + text, nil
}

func newTestServer(t *testing.T, options ...Option) *Server {
	t.Helper()
	base := []Option{
		WithName("test-server"),
		WithVersion("1.2.3"),
		WithTool(protocol.Tool{Name: "echo", Description: "Echo text back"}, echoTool),
	}
	return New(append(base, options...)...)
}

// handle runs one request line and decodes the response frame.
func handle(t *testing.T, s *Server, line string) *protocol.Response {
	t.Helper()
	frame := s.HandleMessage(context.Background(), []byte(line))
	if frame == nil {
		t.Fatalf("no response for line: %s", line)
	}
	var resp protocol.Response
	if err := json.Unmarshal(frame, &resp); err != nil {
		t.Fatalf("response frame is not valid JSON: %v\nframe: %s", err, frame)
	}
	return &resp
}

// toolResult decodes a response's result as a CallToolResult.
func toolResult(t *testing.T, resp *protocol.Response) protocol.CallToolResult {
	t.Helper()
	if resp.Error != nil {
		t.Fatalf("expected a success envelope, got error %d: %s", resp.Error.Code, resp.Error.Message)
	}
	var result protocol.CallToolResult
	if err := json.Unmarshal(resp.Result, &result); err != nil {
		t.Fatalf("decoding tool result: %v", err)
	}
	return result
}

func TestInitialize(t *testing.T) {
	s := newTestServer(t)

	resp := handle(t, s, `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2024-11-05","clientInfo":{"name":"test-client","version":"0.1.0"}}}`)
	if resp.Error != nil {
		t.Fatalf("initialize failed: %v", resp.Error)
	}

	var result protocol.InitializeResult
	if err := json.Unmarshal(resp.Result, &result); err != nil {
		t.Fatalf("decoding result: %v", err)
	}
	if result.ProtocolVersion != protocol.ProtocolVersion {
		t.Errorf("protocolVersion = %q", result.ProtocolVersion)
	}
	if result.ServerInfo.Name != "test-server" || result.ServerInfo.Version != "1.2.3" {
		t.Errorf("serverInfo = %+v", result.ServerInfo)
	}
	if result.Capabilities.Tools == nil {
		t.Error("tools capability not advertised")
	}
	// No prompts registered, so the capability must be absent.
	if result.Capabilities.Prompts != nil {
		t.Error("prompts capability advertised without registrations")
	}
}

func TestInitializeToleratesMalformedParams(t *testing.T) {
	s := newTestServer(t)

	resp := handle(t, s, `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"clientInfo":"not-an-object"}}`)
	if resp.Error != nil {
		t.Fatalf("initialize must not fail on malformed client info: %v", resp.Error)
	}
}

func TestUnknownMethodIsMethodNotFound(t *testing.T) {
	s := newTestServer(t)

	resp := handle(t, s, `{"jsonrpc":"2.0","id":2,"method":"tools/destroy"}`)
	if resp.Error == nil {
		t.Fatal("expected an error envelope")
	}
	if resp.Error.Code != protocol.MethodNotFound {
		t.Errorf("code = %d, want %d", resp.Error.Code, protocol.MethodNotFound)
	}
}

func TestParseErrorAnswersWithNullID(t *testing.T) {
	s := newTestServer(t)

	resp := handle(t, s, `this is not json`)
	if resp.Error == nil {
		t.Fatal("expected an error envelope")
	}
	if resp.Error.Code != protocol.ParseError {
		t.Errorf("code = %d, want %d", resp.Error.Code, protocol.ParseError)
	}
	if resp.ID != nil {
		t.Errorf("id = %v, want null", resp.ID)
	}

	// The server keeps serving after garbage input.
	next := handle(t, s, `{"jsonrpc":"2.0","id":3,"method":"tools/list"}`)
	if next.Error != nil {
		t.Errorf("server stopped serving after a parse error: %v", next.Error)
	}
}

func TestNotificationGetsNoResponse(t *testing.T) {
	s := newTestServer(t)

	for _, line := range []string{
		`{"jsonrpc":"2.0","method":"notifications/initialized"}`,
		`{"jsonrpc":"2.0","id":null,"method":"notifications/initialized"}`,
		`{"jsonrpc":"2.0","method":"tools/bogus"}`,
	} {
		if frame := s.HandleMessage(context.Background(), []byte(line)); frame != nil {
			t.Errorf("notification produced a response: %s", frame)
		}
	}
}

func TestListToolsMatchesRegistry(t *testing.T) {
	s := newTestServer(t,
		WithTool(protocol.Tool{Name: "second"}, echoTool),
		WithTool(protocol.Tool{Name: "third"}, echoTool),
	)

	resp := handle(t, s, `{"jsonrpc":"2.0","id":4,"method":"tools/list"}`)
	var result protocol.ListToolsResult
	if err := json.Unmarshal(resp.Result, &result); err != nil {
		t.Fatalf("decoding result: %v", err)
	}
	if len(result.Tools) != 3 {
		t.Errorf("catalog size = %d, want 3", len(result.Tools))
	}
}

func TestCallToolSuccess(t *testing.T) {
	s := newTestServer(t)

	resp := handle(t, s, `{"jsonrpc":"2.0","id":5,"method":"tools/call","params":{"name":"echo","arguments":{"text":"hello"}}}`)
	result := toolResult(t, resp)
	if result.IsError {
		t.Error("isError set on a successful call")
	}
	if len(result.Content) != 1 || result.Content[0].Text != "echo: hello" {
		t.Errorf("content = %+v", result.Content)
	}
}

func TestUnknownToolIsProtocolError(t *testing.T) {
	s := newTestServer(t)

	// Calling an unregistered tool is a protocol fault, never an isError
	// result.
	resp := handle(t, s, `{"jsonrpc":"2.0","id":6,"method":"tools/call","params":{"name":"no_such_tool"}}`)
	if resp.Error == nil {
		t.Fatal("expected an error envelope")
	}
	if resp.Error.Code != protocol.InvalidParams {
		t.Errorf("code = %d, want %d", resp.Error.Code, protocol.InvalidParams)
	}
	if len(resp.Result) != 0 {
		t.Errorf("error envelope carries a result: %s", resp.Result)
	}
}

func TestHandlerErrorBecomesBusinessError(t *testing.T) {
	s := newTestServer(t, WithTool(protocol.Tool{Name: "failing"},
		func(ctx context.Context, args map[string]interface{}) (string, error) {
			return "", mcperr.Toolf("mailbox unavailable")
		}))

	resp := handle(t, s, `{"jsonrpc":"2.0","id":7,"method":"tools/call","params":{"name":"failing"}}`)
	result := toolResult(t, resp)
	if !result.IsError {
		t.Fatal("isError not set")
	}
	if len(result.Content) != 1 || result.Content[0].Text == "" {
		t.Errorf("business error needs a non-empty message, got %+v", result.Content)
	}

	// One failed call must not affect the next.
	next := handle(t, s, `{"jsonrpc":"2.0","id":8,"method":"tools/call","params":{"name":"echo","arguments":{"text":"still here"}}}`)
	if toolResult(t, next).IsError {
		t.Error("server degraded after a failed tool call")
	}
}

func TestPanickingHandlerIsContained(t *testing.T) {
	s := newTestServer(t, WithTool(protocol.Tool{Name: "panicky"},
		func(ctx context.Context, args map[string]interface{}) (string, error) {
			panic("boom")
		}))

	resp := handle(t, s, `{"jsonrpc":"2.0","id":9,"method":"tools/call","params":{"name":"panicky"}}`)
	result := toolResult(t, resp)
	if !result.IsError {
		t.Fatal("panic did not surface as a business error")
	}

	next := handle(t, s, `{"jsonrpc":"2.0","id":10,"method":"tools/call","params":{"name":"echo","arguments":{}}}`)
	if toolResult(t, next).IsError {
		t.Error("server degraded after a panicking handler")
	}
}

func TestConnectorRunsLazilyAndOnce(t *testing.T) {
	calls := 0
	s := newTestServer(t, WithConnector(func(ctx context.Context) error {
		calls++
		return nil
	}))

	// Neither the handshake nor catalog listing may trigger construction.
	handle(t, s, `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{}}`)
	handle(t, s, `{"jsonrpc":"2.0","id":2,"method":"tools/list"}`)
	if calls != 0 {
		t.Fatalf("connector ran %d times before any tool call", calls)
	}

	handle(t, s, `{"jsonrpc":"2.0","id":3,"method":"tools/call","params":{"name":"echo","arguments":{}}}`)
	handle(t, s, `{"jsonrpc":"2.0","id":4,"method":"tools/call","params":{"name":"echo","arguments":{}}}`)
	if calls != 1 {
		t.Errorf("connector ran %d times, want exactly 1", calls)
	}
}

func TestConnectorFailureIsBusinessError(t *testing.T) {
	s := newTestServer(t, WithConnector(func(ctx context.Context) error {
		return errors.New("not authenticated: run \"workspace-mcp authenticate\" first")
	}))

	resp := handle(t, s, `{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"echo","arguments":{}}}`)
	result := toolResult(t, resp)
	if !result.IsError {
		t.Fatal("connector failure did not surface as a business error")
	}
	if result.Content[0].Text == "" {
		t.Error("connector failure message is empty")
	}
}

func TestStandaloneToolSkipsConnector(t *testing.T) {
	calls := 0
	s := newTestServer(t,
		WithConnector(func(ctx context.Context) error {
			calls++
			return errors.New("no stored credentials")
		}),
		WithStandaloneTool(protocol.Tool{Name: "local_status"},
			func(ctx context.Context, args map[string]interface{}) (string, error) {
				return "all local", nil
			}))

	// The standalone tool answers even though the connector would fail.
	resp := handle(t, s, `{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"local_status"}}`)
	result := toolResult(t, resp)
	if result.IsError {
		t.Fatalf("standalone tool reported an error: %+v", result.Content)
	}
	if len(result.Content) != 1 || result.Content[0].Text != "all local" {
		t.Errorf("content = %+v", result.Content)
	}
	if calls != 0 {
		t.Errorf("connector ran %d times for a standalone tool, want 0", calls)
	}

	// An ordinary tool still goes through the connector and sees the failure.
	other := handle(t, s, `{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"echo","arguments":{}}}`)
	if !toolResult(t, other).IsError {
		t.Error("connector failure did not surface for a connected tool")
	}
	if calls != 1 {
		t.Errorf("connector ran %d times for a connected tool, want 1", calls)
	}
}

func TestPanickingConnectorIsContained(t *testing.T) {
	s := newTestServer(t, WithConnector(func(ctx context.Context) error {
		panic("client construction exploded")
	}))

	resp := handle(t, s, `{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"echo","arguments":{}}}`)
	result := toolResult(t, resp)
	if !result.IsError {
		t.Fatal("connector panic did not surface as a business error")
	}
	if len(result.Content) != 1 || result.Content[0].Text == "" {
		t.Errorf("content = %+v", result.Content)
	}

	// The panic released the connection lock; the next call reaches the
	// connector again rather than deadlocking.
	next := handle(t, s, `{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"echo","arguments":{}}}`)
	if !toolResult(t, next).IsError {
		t.Error("second call did not reach the still-panicking connector")
	}
}

func TestResetConnectionRerunsConnector(t *testing.T) {
	calls := 0
	s := newTestServer(t, WithConnector(func(ctx context.Context) error {
		calls++
		return nil
	}))

	handle(t, s, `{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"echo","arguments":{}}}`)
	s.ResetConnection()
	handle(t, s, `{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"echo","arguments":{}}}`)

	if calls != 2 {
		t.Errorf("connector ran %d times across a reset, want 2", calls)
	}
}

func TestPrompts(t *testing.T) {
	s := newTestServer(t, WithPrompt(protocol.Prompt{
		Name:        "greet",
		Description: "Greet someone by name.",
		Arguments: []protocol.PromptArgument{
			{Name: "who", Required: true},
		},
	}, func(args map[string]string) (string, error) {
		return fmt.Sprintf("Say hello to %s.", args["who"]), nil
	}))

	// The capability is now advertised.
	init := handle(t, s, `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{}}`)
	var initResult protocol.InitializeResult
	if err := json.Unmarshal(init.Result, &initResult); err != nil {
		t.Fatalf("decoding initialize result: %v", err)
	}
	if initResult.Capabilities.Prompts == nil {
		t.Error("prompts capability not advertised")
	}

	list := handle(t, s, `{"jsonrpc":"2.0","id":2,"method":"prompts/list"}`)
	var listResult protocol.ListPromptsResult
	if err := json.Unmarshal(list.Result, &listResult); err != nil {
		t.Fatalf("decoding prompts/list result: %v", err)
	}
	if len(listResult.Prompts) != 1 || listResult.Prompts[0].Name != "greet" {
		t.Errorf("prompt catalog = %+v", listResult.Prompts)
	}

	get := handle(t, s, `{"jsonrpc":"2.0","id":3,"method":"prompts/get","params":{"name":"greet","arguments":{"who":"Ada"}}}`)
	var getResult protocol.GetPromptResult
	if err := json.Unmarshal(get.Result, &getResult); err != nil {
		t.Fatalf("decoding prompts/get result: %v", err)
	}
	if len(getResult.Messages) != 1 || getResult.Messages[0].Role != "user" {
		t.Fatalf("messages = %+v", getResult.Messages)
	}
	if getResult.Messages[0].Content.Text != "Say hello to Ada." {
		t.Errorf("rendered text = %q", getResult.Messages[0].Content.Text)
	}
}

func TestGetPromptMissingRequiredArgument(t *testing.T) {
	s := newTestServer(t, WithPrompt(protocol.Prompt{
		Name:      "greet",
		Arguments: []protocol.PromptArgument{{Name: "who", Required: true}},
	}, func(args map[string]string) (string, error) {
		return "hi", nil
	}))

	resp := handle(t, s, `{"jsonrpc":"2.0","id":1,"method":"prompts/get","params":{"name":"greet"}}`)
	if resp.Error == nil || resp.Error.Code != protocol.InvalidParams {
		t.Errorf("expected invalid params, got %+v", resp.Error)
	}
}

func TestGetPromptUnknownName(t *testing.T) {
	s := newTestServer(t)

	resp := handle(t, s, `{"jsonrpc":"2.0","id":1,"method":"prompts/get","params":{"name":"nope"}}`)
	if resp.Error == nil || resp.Error.Code != protocol.InvalidParams {
		t.Errorf("expected invalid params, got %+v", resp.Error)
	}
}

func TestEveryRequestGetsExactlyOneResponseWithItsID(t *testing.T) {
	s := newTestServer(t)

	for i, line := range []string{
		`{"jsonrpc":"2.0","id":41,"method":"tools/list"}`,
		`{"jsonrpc":"2.0","id":"str-42","method":"no/such"}`,
		`{"jsonrpc":"2.0","id":43,"method":"tools/call","params":{"name":"missing"}}`,
	} {
		resp := handle(t, s, line)
		var req protocol.Request
		if err := json.Unmarshal([]byte(line), &req); err != nil {
			t.Fatalf("line %d: %v", i, err)
		}
		if fmt.Sprintf("%v", resp.ID) != fmt.Sprintf("%v", req.ID) {
			t.Errorf("line %d: response id %v does not match request id %v", i, resp.ID, req.ID)
		}
	}
}
