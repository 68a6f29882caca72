// Package server implements the MCP request dispatcher for workspace-mcp:
// method routing over a closed set, the tool and prompt registries, the tool
// invoker with lazy service-client construction, and the translation of
// failures into the two response shapes the protocol distinguishes.
package server

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/officekit/workspace-mcp/pkg/logging"
	"github.com/officekit/workspace-mcp/pkg/mcperr"
	"github.com/officekit/workspace-mcp/pkg/observability"
	"github.com/officekit/workspace-mcp/pkg/protocol"
)

// ToolHandler executes one tool call. The returned string becomes the single
// text content item of the result; a returned error becomes an isError
// envelope. Handlers validate their own required arguments.
type ToolHandler func(ctx context.Context, args map[string]interface{}) (string, error)

// PromptHandler renders one prompt into the text of its user message.
type PromptHandler func(args map[string]string) (string, error)

// Connector constructs the underlying service clients. It runs at most once,
// on the first real tool invocation, so initialize and tools/list never need
// valid credentials.
type Connector func(ctx context.Context) error

// Server owns the registries and routes parsed requests. Registries are
// built by New and never mutated afterwards; each Server instance has its
// own, so parallel instances under test cannot corrupt each other.
type Server struct {
	name    string
	version string

	tools          []protocol.Tool
	toolHandlers   map[string]ToolHandler
	standalone     map[string]bool
	prompts        []protocol.Prompt
	promptHandlers map[string]PromptHandler

	connect Connector

	// connMu guards connected: requests are serialized by the transport
	// loop, but a token watcher may reset the connection from another
	// goroutine.
	connMu    sync.Mutex
	connected bool

	logger  logging.Logger
	metrics *observability.Metrics
	tracer  trace.Tracer
}

// Option configures a Server
type Option func(*Server)

// WithName sets the server name reported by initialize
func WithName(name string) Option {
	return func(s *Server) { s.name = name }
}

// WithVersion sets the server version reported by initialize
func WithVersion(version string) Option {
	return func(s *Server) { s.version = version }
}

// WithLogger sets the diagnostic logger
func WithLogger(logger logging.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// WithMetrics sets the metrics recorder. A nil recorder is legal and records
// nothing.
func WithMetrics(m *observability.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithConnector sets the lazy service-client constructor
func WithConnector(connect Connector) Option {
	return func(s *Server) { s.connect = connect }
}

// WithTool registers a tool definition and its handler. A duplicate name
// replaces the handler but keeps the first definition, so the advertised
// catalog stays stable.
func WithTool(def protocol.Tool, handler ToolHandler) Option {
	return func(s *Server) {
		if _, exists := s.toolHandlers[def.Name]; !exists {
			s.tools = append(s.tools, def)
		}
		s.toolHandlers[def.Name] = handler
	}
}

// WithStandaloneTool registers a tool that runs without the service
// clients: the connector is skipped for it. Tools that only report local
// state, like credential status, must stay callable when no credentials
// are stored.
func WithStandaloneTool(def protocol.Tool, handler ToolHandler) Option {
	return func(s *Server) {
		WithTool(def, handler)(s)
		s.standalone[def.Name] = true
	}
}

// WithPrompt registers a prompt definition and its handler
func WithPrompt(def protocol.Prompt, handler PromptHandler) Option {
	return func(s *Server) {
		if _, exists := s.promptHandlers[def.Name]; !exists {
			s.prompts = append(s.prompts, def)
		}
		s.promptHandlers[def.Name] = handler
	}
}

// New creates a server. The registries are complete once New returns.
func New(options ...Option) *Server {
	s := &Server{
		name:           "workspace-mcp",
		version:        "0.0.0",
		toolHandlers:   make(map[string]ToolHandler),
		standalone:     make(map[string]bool),
		promptHandlers: make(map[string]PromptHandler),
		logger:         logging.Discard(),
		tracer:         otel.Tracer("workspace-mcp/server"),
	}
	for _, option := range options {
		option(s)
	}
	return s
}

// HandleMessage implements transport.Handler: it parses one line, routes it,
// and returns the serialized response frame, or nil for notifications. Every
// request with a non-null id yields exactly one response with that id.
func (s *Server) HandleMessage(ctx context.Context, line []byte) []byte {
	log := s.logger.WithFields(logging.String("request_id", logging.NewRequestID()))

	var req protocol.Request
	if err := json.Unmarshal(line, &req); err != nil {
		log.Warn("discarding unparseable input line", logging.ErrorField(err))
		s.metrics.RecordRequest("", "parse_error", 0)
		return s.marshal(log, protocol.NewErrorResponse(nil, protocol.ParseError, "parse error", err.Error()))
	}

	if req.IsNotification() {
		s.handleNotification(log, &req)
		return nil
	}

	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "mcp.request",
		trace.WithAttributes(attribute.String("rpc.method", req.Method)))
	resp := s.dispatch(ctx, log, &req)
	status := "ok"
	if resp.Error != nil {
		status = "protocol_error"
	}
	span.SetAttributes(attribute.String("rpc.status", status))
	span.End()
	s.metrics.RecordRequest(req.Method, status, time.Since(start))
	log.Debug("request handled",
		logging.String("method", req.Method),
		logging.String("status", status),
		logging.Duration("duration", time.Since(start)))

	return s.marshal(log, resp)
}

// handleNotification processes an id-less request. notifications/initialized
// acknowledges the handshake; any other notification is dropped after a log
// line, never answered.
func (s *Server) handleNotification(log logging.Logger, req *protocol.Request) {
	switch req.Method {
	case protocol.MethodInitialized:
		log.Debug("client reported initialized")
	default:
		log.Debug("ignoring notification for unsupported method",
			logging.String("method", req.Method))
	}
}

// dispatch routes a request by method name. The method set is closed; any
// other name is method-not-found.
func (s *Server) dispatch(ctx context.Context, log logging.Logger, req *protocol.Request) *protocol.Response {
	switch req.Method {
	case protocol.MethodInitialize:
		return s.handleInitialize(log, req)
	case protocol.MethodListTools:
		return s.handleListTools(log, req)
	case protocol.MethodCallTool:
		return s.handleCallTool(ctx, log, req)
	case protocol.MethodListPrompts:
		return s.handleListPrompts(log, req)
	case protocol.MethodGetPrompt:
		return s.handleGetPrompt(log, req)
	default:
		log.Warn("method not found", logging.String("method", req.Method))
		return s.errorResponse(req.ID, mcperr.UnknownMethod(req.Method))
	}
}

// handleInitialize answers the handshake. Tools are always advertised;
// prompts only when the service registered any.
func (s *Server) handleInitialize(log logging.Logger, req *protocol.Request) *protocol.Response {
	caps := protocol.Capabilities{
		Tools: &protocol.ToolsCapability{},
	}
	if len(s.prompts) > 0 {
		caps.Prompts = &protocol.PromptsCapability{}
	}

	var params protocol.InitializeParams
	if len(req.Params) > 0 {
		// Client info is informational only; a malformed initialize params
		// object does not fail the handshake.
		_ = json.Unmarshal(req.Params, &params)
	}
	if params.ClientInfo != nil {
		log.Info("client connected",
			logging.String("client", params.ClientInfo.Name),
			logging.String("client_version", params.ClientInfo.Version))
	}

	return s.result(log, req.ID, protocol.InitializeResult{
		ProtocolVersion: protocol.ProtocolVersion,
		Capabilities:    caps,
		ServerInfo: protocol.ServerInfo{
			Name:    s.name,
			Version: s.version,
		},
	})
}

// result builds a success response, falling back to an internal error frame
// if the payload cannot be marshaled.
func (s *Server) result(log logging.Logger, id interface{}, payload interface{}) *protocol.Response {
	resp, err := protocol.NewResponse(id, payload)
	if err != nil {
		log.Error("failed to marshal result payload", logging.ErrorField(err))
		return s.errorResponse(id, mcperr.Internal(err))
	}
	return resp
}

// errorResponse translates a protocol fault into its JSON-RPC error envelope.
func (s *Server) errorResponse(id interface{}, pe *mcperr.ProtocolError) *protocol.Response {
	return protocol.NewErrorResponse(id, pe.Code, pe.Message, pe.Data)
}

// marshal serializes a response frame. Serialization of these shapes cannot
// realistically fail, but if it does the failure stays off the output
// stream except as a well-formed internal error envelope.
func (s *Server) marshal(log logging.Logger, resp *protocol.Response) []byte {
	data, err := json.Marshal(resp)
	if err != nil {
		log.Error("failed to marshal response frame", logging.ErrorField(err))
		fallback := protocol.NewErrorResponse(resp.ID, protocol.InternalError, "internal error", nil)
		data, err = json.Marshal(fallback)
		if err != nil {
			return []byte(`{"jsonrpc":"2.0","id":null,"error":{"code":-32603,"message":"internal error"}}`)
		}
	}
	return data
}
