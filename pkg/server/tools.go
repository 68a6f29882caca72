package server

import (
	"context"
	"encoding/json"
	"runtime/debug"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/officekit/workspace-mcp/pkg/logging"
	"github.com/officekit/workspace-mcp/pkg/mcperr"
	"github.com/officekit/workspace-mcp/pkg/protocol"
)

// handleListTools returns the complete tool catalog. The registry is
// immutable, so the count always equals what was registered at construction.
func (s *Server) handleListTools(log logging.Logger, req *protocol.Request) *protocol.Response {
	tools := s.tools
	if tools == nil {
		tools = []protocol.Tool{}
	}
	log.Debug("listing tools", logging.Int("count", len(tools)))
	return s.result(log, req.ID, protocol.ListToolsResult{Tools: tools})
}

// handleCallTool is the invoker. The contract, in order: an unregistered
// name is a protocol error (invalid params), never a business error; the
// service clients are constructed lazily before the first real invocation; a
// normal return becomes a single text content item; anything escaping the
// handler is logged in full and echoed back only as its user-facing message
// inside an isError envelope, and the process keeps serving.
func (s *Server) handleCallTool(ctx context.Context, log logging.Logger, req *protocol.Request) *protocol.Response {
	var params protocol.CallToolParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, mcperr.InvalidParams("invalid tools/call params: %v", err))
	}
	if params.Name == "" {
		return s.errorResponse(req.ID, mcperr.InvalidParams("tools/call requires a tool name"))
	}

	handler, ok := s.toolHandlers[params.Name]
	if !ok {
		log.Warn("tool not in registry", logging.String("tool", params.Name))
		return s.errorResponse(req.ID, mcperr.UnknownTool(params.Name))
	}

	if !s.standalone[params.Name] {
		if err := s.ensureConnected(ctx, log); err != nil {
			log.Error("service client construction failed",
				logging.String("tool", params.Name),
				logging.ErrorField(err))
			return s.result(log, req.ID, businessError(err))
		}
	}

	args := params.Arguments
	if args == nil {
		args = map[string]interface{}{}
	}

	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "mcp.tool",
		trace.WithAttributes(attribute.String("mcp.tool", params.Name)))
	text, err := s.invoke(ctx, log, params.Name, handler, args)
	span.End()
	log.Debug("tool call finished",
		logging.String("tool", params.Name),
		logging.Bool("is_error", err != nil),
		logging.Duration("duration", time.Since(start)))

	if err != nil {
		s.metrics.RecordToolCall(params.Name, "error", time.Since(start))
		log.Error("tool call failed",
			logging.String("tool", params.Name),
			logging.ErrorField(err))
		return s.result(log, req.ID, businessError(err))
	}

	s.metrics.RecordToolCall(params.Name, "ok", time.Since(start))
	return s.result(log, req.ID, protocol.CallToolResult{
		Content: []protocol.TextContent{protocol.NewTextContent(text)},
		IsError: false,
	})
}

// invoke runs the handler with panic containment. A panicking handler must
// not take the server down; it is logged with its stack and reported as a
// business error.
func (s *Server) invoke(ctx context.Context, log logging.Logger, name string, handler ToolHandler, args map[string]interface{}) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("panic in tool handler",
				logging.String("tool", name),
				logging.Any("panic", r),
				logging.String("stack", string(debug.Stack())))
			err = mcperr.Toolf("tool %s failed unexpectedly", name)
		}
	}()
	return handler(ctx, args)
}

// ensureConnected constructs the underlying service clients on the first
// real tool invocation. A failure leaves the server serving; the client sees
// it inline and can, for instance, run the authenticate flow. A panicking
// connector is contained the same way as a panicking handler, so the
// request still gets its one response.
func (s *Server) ensureConnected(ctx context.Context, log logging.Logger) (err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("panic in connector",
				logging.Any("panic", r),
				logging.String("stack", string(debug.Stack())))
			err = mcperr.Toolf("service client construction failed unexpectedly")
		}
	}()

	s.connMu.Lock()
	defer s.connMu.Unlock()

	if s.connected || s.connect == nil {
		return nil
	}
	if err := s.connect(ctx); err != nil {
		return mcperr.WrapTool(err)
	}
	s.connected = true
	return nil
}

// ResetConnection discards the current service clients so the next tool
// invocation runs the connector again. Used when stored credentials change
// under a running server.
func (s *Server) ResetConnection() {
	s.connMu.Lock()
	defer s.connMu.Unlock()
	s.connected = false
}

// businessError shapes a handler failure as a successful envelope with
// isError set. Only the user-facing message travels; stacks and internals
// stay in the diagnostic log.
func businessError(err error) protocol.CallToolResult {
	return protocol.CallToolResult{
		Content: []protocol.TextContent{protocol.NewTextContent(err.Error())},
		IsError: true,
	}
}
