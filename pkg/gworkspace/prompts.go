package gworkspace

import (
	"fmt"
	"strconv"

	"github.com/officekit/workspace-mcp/pkg/mcperr"
	"github.com/officekit/workspace-mcp/pkg/protocol"
	"github.com/officekit/workspace-mcp/pkg/server"
)

const defaultTriageMessages = 10

func (ts *ToolSet) promptOptions() []server.Option {
	return []server.Option{
		server.WithPrompt(protocol.Prompt{
			Name:        "triage_inbox",
			Description: "Review recent unread email and propose what to do with each message.",
			Arguments: []protocol.PromptArgument{
				{Name: "max_messages", Description: "How many messages to review (default 10)", Required: false},
			},
		}, renderTriageInbox),

		server.WithPrompt(protocol.Prompt{
			Name:        "schedule_meeting",
			Description: "Find a free slot and set up a meeting about a topic.",
			Arguments: []protocol.PromptArgument{
				{Name: "topic", Description: "What the meeting is about", Required: true},
				{Name: "duration_minutes", Description: "Meeting length in minutes (default 30)", Required: false},
			},
		}, renderScheduleMeeting),
	}
}

func renderTriageInbox(args map[string]string) (string, error) {
	max := defaultTriageMessages
	if raw, ok := args["max_messages"]; ok && raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return "", mcperr.InvalidParams("max_messages must be a positive integer, got %q", raw)
		}
		max = n
	}

	return fmt.Sprintf(`Triage my inbox.

1. Call gmail_list_messages with query "is:unread" and page_size %d.
2. For each message, decide one of: reply now, archive, needs follow-up, or delete.
3. For anything marked reply now, call gmail_get_message to read the full body before drafting.
4. Summarize your decisions as a short table when done.`, max), nil
}

func renderScheduleMeeting(args map[string]string) (string, error) {
	topic := args["topic"]
	duration := 30
	if raw, ok := args["duration_minutes"]; ok && raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return "", mcperr.InvalidParams("duration_minutes must be a positive integer, got %q", raw)
		}
		duration = n
	}

	return fmt.Sprintf(`Schedule a %d-minute meeting about %q.

1. Call calendar_list_events for the next five business days to find free slots during working hours.
2. Propose the earliest slot that fits %d minutes.
3. Once I confirm, call calendar_create_event with the agreed time and invite the attendees I name.
4. Use contacts_search if you need to resolve a name to an email address.`, duration, topic, duration), nil
}
