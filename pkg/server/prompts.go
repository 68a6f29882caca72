package server

import (
	"encoding/json"

	"github.com/officekit/workspace-mcp/pkg/logging"
	"github.com/officekit/workspace-mcp/pkg/mcperr"
	"github.com/officekit/workspace-mcp/pkg/protocol"
)

// handleListPrompts returns the prompt catalog.
func (s *Server) handleListPrompts(log logging.Logger, req *protocol.Request) *protocol.Response {
	prompts := s.prompts
	if prompts == nil {
		prompts = []protocol.Prompt{}
	}
	return s.result(log, req.ID, protocol.ListPromptsResult{Prompts: prompts})
}

// handleGetPrompt renders a registered prompt. Unknown names and missing
// required arguments are protocol faults: the prompt catalog, unlike tool
// execution, has no business layer to fail in.
func (s *Server) handleGetPrompt(log logging.Logger, req *protocol.Request) *protocol.Response {
	var params protocol.GetPromptParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, mcperr.InvalidParams("invalid prompts/get params: %v", err))
	}
	if params.Name == "" {
		return s.errorResponse(req.ID, mcperr.InvalidParams("prompts/get requires a prompt name"))
	}

	handler, ok := s.promptHandlers[params.Name]
	if !ok {
		log.Warn("prompt not in registry", logging.String("prompt", params.Name))
		return s.errorResponse(req.ID, mcperr.UnknownPrompt(params.Name))
	}

	def := s.promptByName(params.Name)
	for _, arg := range def.Arguments {
		if !arg.Required {
			continue
		}
		if _, ok := params.Arguments[arg.Name]; !ok {
			return s.errorResponse(req.ID,
				mcperr.InvalidParams("prompt %s requires argument %s", params.Name, arg.Name))
		}
	}

	text, err := handler(params.Arguments)
	if err != nil {
		log.Error("prompt rendering failed",
			logging.String("prompt", params.Name),
			logging.ErrorField(err))
		return s.errorResponse(req.ID, mcperr.InvalidParams("prompt %s: %v", params.Name, err))
	}

	return s.result(log, req.ID, protocol.GetPromptResult{
		Description: def.Description,
		Messages: []protocol.PromptMessage{
			{Role: "user", Content: protocol.NewTextContent(text)},
		},
	})
}

func (s *Server) promptByName(name string) protocol.Prompt {
	for _, p := range s.prompts {
		if p.Name == name {
			return p
		}
	}
	return protocol.Prompt{}
}
