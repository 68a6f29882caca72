// Package gworkspace wraps the Google Workspace APIs consumed by the tool
// surface: Gmail, Calendar and People. The protocol core only ever sees the
// small interfaces defined here; the concrete Google clients behind them are
// constructed lazily, on the first real tool invocation.
package gworkspace

import (
	"context"
	"time"
)

// Message is the projection of a Gmail message the tools work with.
type Message struct {
	ID       string
	ThreadID string
	From     string
	To       string
	Subject  string
	Date     string
	Snippet  string
	Body     string
}

// MessagePage is one page of a Gmail listing. NextCursor is the opaque
// upstream token for the following page, empty on the last page.
type MessagePage struct {
	Messages   []Message
	NextCursor string
}

// GmailAPI is the mail surface consumed by the tools.
type GmailAPI interface {
	ListMessages(ctx context.Context, query string, pageSize int64, cursor string) (*MessagePage, error)
	GetMessage(ctx context.Context, id string) (*Message, error)
	SendMessage(ctx context.Context, to, subject, body string) (*Message, error)
}

// Event is the projection of a calendar event the tools work with. Times
// are RFC3339 strings as the Calendar API hands them out.
type Event struct {
	ID          string
	Summary     string
	Description string
	Start       string
	End         string
	Attendees   []string
}

// EventPage is one page of a calendar listing.
type EventPage struct {
	Events     []Event
	NextCursor string
}

// CalendarAPI is the calendar surface consumed by the tools.
type CalendarAPI interface {
	ListEvents(ctx context.Context, timeMin, timeMax time.Time, pageSize int64, cursor string) (*EventPage, error)
	CreateEvent(ctx context.Context, event Event) (*Event, error)
	DeleteEvent(ctx context.Context, id string) error
}

// Contact is the projection of a People API person the tools work with.
type Contact struct {
	ResourceName string
	Name         string
	Email        string
	Phone        string
}

// ContactPage is one page of a contact listing.
type ContactPage struct {
	Contacts   []Contact
	NextCursor string
}

// ContactsAPI is the contacts surface consumed by the tools.
type ContactsAPI interface {
	ListContacts(ctx context.Context, pageSize int64, cursor string) (*ContactPage, error)
	SearchContacts(ctx context.Context, query string, pageSize int64) ([]Contact, error)
}

// Clients bundles the three service surfaces behind one lazy construction
// point.
type Clients struct {
	Gmail    GmailAPI
	Calendar CalendarAPI
	Contacts ContactsAPI
}
