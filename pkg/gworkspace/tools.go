package gworkspace

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/officekit/workspace-mcp/pkg/pagination"
	"github.com/officekit/workspace-mcp/pkg/protocol"
	"github.com/officekit/workspace-mcp/pkg/server"
)

// ToolSet binds the Google Workspace tool surface to a server. It owns the
// lazily constructed Clients bundle and the pagination tracker the listing
// tools share.
type ToolSet struct {
	connect func(ctx context.Context) (*Clients, error)
	status  func(ctx context.Context) (string, error)

	clients *Clients
	pages   *pagination.Tracker
}

// NewToolSet creates a tool set. connect builds the service clients on
// first use; status implements the auth_status tool without requiring the
// clients to exist.
func NewToolSet(connect func(ctx context.Context) (*Clients, error), status func(ctx context.Context) (string, error)) *ToolSet {
	return &ToolSet{
		connect: connect,
		status:  status,
		pages:   pagination.NewTracker(),
	}
}

// Connect implements server.Connector.
func (ts *ToolSet) Connect(ctx context.Context) error {
	clients, err := ts.connect(ctx)
	if err != nil {
		return err
	}
	ts.clients = clients
	return nil
}

// SetClients injects a pre-built Clients bundle, bypassing lazy
// construction. Used by tests with fakes.
func (ts *ToolSet) SetClients(clients *Clients) {
	ts.clients = clients
}

// Reset drops the current clients so the next Connect rebuilds them, for
// instance after the stored token changed on disk.
func (ts *ToolSet) Reset() {
	ts.clients = nil
}

// schema is a shorthand for inline JSON Schema documents.
func schema(s string) json.RawMessage {
	return json.RawMessage(s)
}

// Options returns the server options registering every tool, every prompt
// and the lazy connector of this set.
func (ts *ToolSet) Options() []server.Option {
	opts := []server.Option{
		server.WithConnector(ts.Connect),

		server.WithTool(protocol.Tool{
			Name:        "gmail_list_messages",
			Description: "List Gmail messages. Returns one page with a next-page cursor; pass the cursor back to continue.",
			InputSchema: schema(`{
				"type": "object",
				"properties": {
					"query": {"type": "string", "description": "Gmail search query (e.g. 'from:me is:unread')"},
					"page_size": {"type": "integer", "description": "Messages per page (default 25, max 100)"},
					"cursor": {"type": "string", "description": "Opaque cursor from a previous page"}
				}
			}`),
		}, ts.handleGmailListMessages),

		server.WithTool(protocol.Tool{
			Name:        "gmail_get_message",
			Description: "Get a Gmail message by ID, including its body.",
			InputSchema: schema(`{
				"type": "object",
				"properties": {
					"message_id": {"type": "string", "description": "The message ID to retrieve"}
				},
				"required": ["message_id"]
			}`),
		}, ts.handleGmailGetMessage),

		server.WithTool(protocol.Tool{
			Name:        "gmail_send_message",
			Description: "Send an email from the authenticated account.",
			InputSchema: schema(`{
				"type": "object",
				"properties": {
					"to": {"type": "string", "description": "Recipient email address"},
					"subject": {"type": "string", "description": "Email subject"},
					"body": {"type": "string", "description": "Plain-text email body"}
				},
				"required": ["to", "subject", "body"]
			}`),
		}, ts.handleGmailSendMessage),

		server.WithTool(protocol.Tool{
			Name:        "calendar_list_events",
			Description: "List events on the primary calendar. Returns one page with a next-page cursor.",
			InputSchema: schema(`{
				"type": "object",
				"properties": {
					"time_min": {"type": "string", "description": "RFC3339 timestamp for the earliest event"},
					"time_max": {"type": "string", "description": "RFC3339 timestamp for the latest event"},
					"page_size": {"type": "integer", "description": "Events per page (default 25, max 100)"},
					"cursor": {"type": "string", "description": "Opaque cursor from a previous page"}
				}
			}`),
		}, ts.handleCalendarListEvents),

		server.WithTool(protocol.Tool{
			Name:        "calendar_create_event",
			Description: "Create an event on the primary calendar and invite attendees.",
			InputSchema: schema(`{
				"type": "object",
				"properties": {
					"summary": {"type": "string", "description": "Event title"},
					"start_time": {"type": "string", "description": "Start in RFC3339 format"},
					"end_time": {"type": "string", "description": "End in RFC3339 format"},
					"description": {"type": "string", "description": "Event description"},
					"attendees": {"type": "array", "items": {"type": "string"}, "description": "Attendee email addresses"}
				},
				"required": ["summary", "start_time", "end_time"]
			}`),
		}, ts.handleCalendarCreateEvent),

		server.WithTool(protocol.Tool{
			Name:        "calendar_delete_event",
			Description: "Delete an event from the primary calendar.",
			InputSchema: schema(`{
				"type": "object",
				"properties": {
					"event_id": {"type": "string", "description": "The event ID to delete"}
				},
				"required": ["event_id"]
			}`),
		}, ts.handleCalendarDeleteEvent),

		server.WithTool(protocol.Tool{
			Name:        "contacts_list",
			Description: "List contacts. Returns one page with a next-page cursor.",
			InputSchema: schema(`{
				"type": "object",
				"properties": {
					"page_size": {"type": "integer", "description": "Contacts per page (default 25, max 100)"},
					"cursor": {"type": "string", "description": "Opaque cursor from a previous page"}
				}
			}`),
		}, ts.handleContactsList),

		server.WithTool(protocol.Tool{
			Name:        "contacts_search",
			Description: "Search contacts by name, email or phone number.",
			InputSchema: schema(`{
				"type": "object",
				"properties": {
					"query": {"type": "string", "description": "Search query"},
					"page_size": {"type": "integer", "description": "Maximum results (default 25, max 100)"}
				},
				"required": ["query"]
			}`),
		}, ts.handleContactsSearch),

		// Status must answer before any credentials exist, so it opts out
		// of the lazy client construction.
		server.WithStandaloneTool(protocol.Tool{
			Name:        "auth_status",
			Description: "Report whether stored credentials are present and usable.",
			InputSchema: schema(`{"type": "object", "properties": {}}`),
		}, ts.handleAuthStatus),
	}

	return append(opts, ts.promptOptions()...)
}

func (ts *ToolSet) handleGmailListMessages(ctx context.Context, args map[string]interface{}) (string, error) {
	query := stringArg(args, "query")
	cursor := stringArg(args, "cursor")
	pageSize := pagination.ClampPageSize(intArg(args, "page_size", 0))

	page, err := ts.clients.Gmail.ListMessages(ctx, query, int64(pageSize), cursor)
	if err != nil {
		return "", err
	}

	pageNo := ts.pages.Observe(cursor, page.NextCursor)

	var b strings.Builder
	fmt.Fprintf(&b, "Messages: %s\n", pagination.Summary(pageNo, pageSize, len(page.Messages)))
	for i, msg := range page.Messages {
		fmt.Fprintf(&b, "%d. [%s] From: %s | Subject: %s | Date: %s\n",
			pagination.StartIndex(pageNo, pageSize)+i, msg.ID, msg.From, msg.Subject, msg.Date)
	}
	writeCursorFooter(&b, page.NextCursor)
	return b.String(), nil
}

func (ts *ToolSet) handleGmailGetMessage(ctx context.Context, args map[string]interface{}) (string, error) {
	id, err := requireStringArg(args, "message_id")
	if err != nil {
		return "", err
	}

	msg, err := ts.clients.Gmail.GetMessage(ctx, id)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\n", msg.From)
	fmt.Fprintf(&b, "To: %s\n", msg.To)
	fmt.Fprintf(&b, "Subject: %s\n", msg.Subject)
	fmt.Fprintf(&b, "Date: %s\n\n", msg.Date)
	if msg.Body != "" {
		b.WriteString(msg.Body)
	} else {
		b.WriteString(msg.Snippet)
	}
	return b.String(), nil
}

func (ts *ToolSet) handleGmailSendMessage(ctx context.Context, args map[string]interface{}) (string, error) {
	to, err := requireStringArg(args, "to")
	if err != nil {
		return "", err
	}
	subject, err := requireStringArg(args, "subject")
	if err != nil {
		return "", err
	}
	body, err := requireStringArg(args, "body")
	if err != nil {
		return "", err
	}

	sent, err := ts.clients.Gmail.SendMessage(ctx, to, subject, body)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Sent message %s to %s", sent.ID, to), nil
}

func (ts *ToolSet) handleCalendarListEvents(ctx context.Context, args map[string]interface{}) (string, error) {
	timeMin, err := timeArg(args, "time_min")
	if err != nil {
		return "", err
	}
	timeMax, err := timeArg(args, "time_max")
	if err != nil {
		return "", err
	}
	cursor := stringArg(args, "cursor")
	pageSize := pagination.ClampPageSize(intArg(args, "page_size", 0))

	page, err := ts.clients.Calendar.ListEvents(ctx, timeMin, timeMax, int64(pageSize), cursor)
	if err != nil {
		return "", err
	}

	pageNo := ts.pages.Observe(cursor, page.NextCursor)

	var b strings.Builder
	fmt.Fprintf(&b, "Events: %s\n", pagination.Summary(pageNo, pageSize, len(page.Events)))
	for i, event := range page.Events {
		fmt.Fprintf(&b, "%d. [%s] %s | %s to %s\n",
			pagination.StartIndex(pageNo, pageSize)+i, event.ID, event.Summary, event.Start, event.End)
	}
	writeCursorFooter(&b, page.NextCursor)
	return b.String(), nil
}

func (ts *ToolSet) handleCalendarCreateEvent(ctx context.Context, args map[string]interface{}) (string, error) {
	summary, err := requireStringArg(args, "summary")
	if err != nil {
		return "", err
	}
	start, err := requireTimeArg(args, "start_time")
	if err != nil {
		return "", err
	}
	end, err := requireTimeArg(args, "end_time")
	if err != nil {
		return "", err
	}

	created, err := ts.clients.Calendar.CreateEvent(ctx, Event{
		Summary:     summary,
		Description: stringArg(args, "description"),
		Start:       start.Format("2006-01-02T15:04:05Z07:00"),
		End:         end.Format("2006-01-02T15:04:05Z07:00"),
		Attendees:   stringSliceArg(args, "attendees"),
	})
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Created event %s (%s, %s to %s)", created.ID, created.Summary, created.Start, created.End), nil
}

func (ts *ToolSet) handleCalendarDeleteEvent(ctx context.Context, args map[string]interface{}) (string, error) {
	id, err := requireStringArg(args, "event_id")
	if err != nil {
		return "", err
	}
	if err := ts.clients.Calendar.DeleteEvent(ctx, id); err != nil {
		return "", err
	}
	return fmt.Sprintf("Deleted event %s", id), nil
}

func (ts *ToolSet) handleContactsList(ctx context.Context, args map[string]interface{}) (string, error) {
	cursor := stringArg(args, "cursor")
	pageSize := pagination.ClampPageSize(intArg(args, "page_size", 0))

	page, err := ts.clients.Contacts.ListContacts(ctx, int64(pageSize), cursor)
	if err != nil {
		return "", err
	}

	pageNo := ts.pages.Observe(cursor, page.NextCursor)

	var b strings.Builder
	fmt.Fprintf(&b, "Contacts: %s\n", pagination.Summary(pageNo, pageSize, len(page.Contacts)))
	for i, contact := range page.Contacts {
		fmt.Fprintf(&b, "%d. %s | %s | %s (%s)\n",
			pagination.StartIndex(pageNo, pageSize)+i, contact.Name, contact.Email, contact.Phone, contact.ResourceName)
	}
	writeCursorFooter(&b, page.NextCursor)
	return b.String(), nil
}

func (ts *ToolSet) handleContactsSearch(ctx context.Context, args map[string]interface{}) (string, error) {
	query, err := requireStringArg(args, "query")
	if err != nil {
		return "", err
	}
	pageSize := pagination.ClampPageSize(intArg(args, "page_size", 0))

	contacts, err := ts.clients.Contacts.SearchContacts(ctx, query, int64(pageSize))
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%d contacts matching %q\n", len(contacts), query)
	for i, contact := range contacts {
		fmt.Fprintf(&b, "%d. %s | %s | %s (%s)\n",
			i+1, contact.Name, contact.Email, contact.Phone, contact.ResourceName)
	}
	return b.String(), nil
}

func (ts *ToolSet) handleAuthStatus(ctx context.Context, args map[string]interface{}) (string, error) {
	if ts.status == nil {
		return "no credential store configured", nil
	}
	return ts.status(ctx)
}

// writeCursorFooter appends the opaque next-page cursor, which the client
// echoes back verbatim; the displayed page number is never sent upstream.
func writeCursorFooter(b *strings.Builder, nextCursor string) {
	if nextCursor == "" {
		b.WriteString("No more pages.\n")
		return
	}
	fmt.Fprintf(b, "Next cursor: %s (pass as \"cursor\" to fetch the next page)\n", nextCursor)
}
