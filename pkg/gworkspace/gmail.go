package gworkspace

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	gmail "google.golang.org/api/gmail/v1"
)

// gmailService implements GmailAPI over the Gmail REST API, acting as the
// authenticated user.
type gmailService struct {
	svc *gmail.Service
}

func (g *gmailService) ListMessages(ctx context.Context, query string, pageSize int64, cursor string) (*MessagePage, error) {
	call := g.svc.Users.Messages.List("me").MaxResults(pageSize).Context(ctx)
	if query != "" {
		call = call.Q(query)
	}
	if cursor != "" {
		call = call.PageToken(cursor)
	}

	resp, err := call.Do()
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}

	page := &MessagePage{NextCursor: resp.NextPageToken}
	for _, ref := range resp.Messages {
		// The list endpoint returns bare references; headers come from a
		// metadata-only fetch per message.
		msg, err := g.svc.Users.Messages.Get("me", ref.Id).
			Format("metadata").
			MetadataHeaders("From", "To", "Subject", "Date").
			Context(ctx).Do()
		if err != nil {
			page.Messages = append(page.Messages, Message{ID: ref.Id, ThreadID: ref.ThreadId})
			continue
		}
		page.Messages = append(page.Messages, fromGmailMessage(msg, false))
	}
	return page, nil
}

func (g *gmailService) GetMessage(ctx context.Context, id string) (*Message, error) {
	msg, err := g.svc.Users.Messages.Get("me", id).Format("full").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to get message %s: %w", id, err)
	}
	result := fromGmailMessage(msg, true)
	return &result, nil
}

func (g *gmailService) SendMessage(ctx context.Context, to, subject, body string) (*Message, error) {
	var raw strings.Builder
	fmt.Fprintf(&raw, "To: %s\r\n", to)
	fmt.Fprintf(&raw, "Subject: %s\r\n", subject)
	raw.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n")
	raw.WriteString("\r\n")
	raw.WriteString(body)

	sent, err := g.svc.Users.Messages.Send("me", &gmail.Message{
		Raw: base64.URLEncoding.EncodeToString([]byte(raw.String())),
	}).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to send message: %w", err)
	}

	return &Message{ID: sent.Id, ThreadID: sent.ThreadId, To: to, Subject: subject}, nil
}

// fromGmailMessage projects the API message onto the tool-facing shape.
func fromGmailMessage(msg *gmail.Message, withBody bool) Message {
	m := Message{
		ID:       msg.Id,
		ThreadID: msg.ThreadId,
		Snippet:  msg.Snippet,
	}
	if msg.Payload == nil {
		return m
	}
	for _, header := range msg.Payload.Headers {
		switch strings.ToLower(header.Name) {
		case "from":
			m.From = header.Value
		case "to":
			m.To = header.Value
		case "subject":
			m.Subject = header.Value
		case "date":
			m.Date = header.Value
		}
	}
	if withBody {
		m.Body = extractBody(msg.Payload)
	}
	return m
}

// extractBody pulls the first text/plain part out of a message payload.
func extractBody(part *gmail.MessagePart) string {
	if part.MimeType == "text/plain" && part.Body != nil && part.Body.Data != "" {
		// The API emits base64url, padded or not depending on the part.
		decoded, err := base64.URLEncoding.DecodeString(part.Body.Data)
		if err != nil {
			decoded, err = base64.RawURLEncoding.DecodeString(part.Body.Data)
			if err != nil {
				return ""
			}
		}
		return string(decoded)
	}
	for _, child := range part.Parts {
		if body := extractBody(child); body != "" {
			return body
		}
	}
	return ""
}
