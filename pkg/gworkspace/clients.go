package gworkspace

import (
	"context"
	"fmt"
	"net/http"

	calendar "google.golang.org/api/calendar/v3"
	gmail "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
	people "google.golang.org/api/people/v1"
)

// NewClients constructs the real Google service clients over an
// authenticated HTTP client. Called by the invoker on the first tool call,
// never at server startup.
func NewClients(ctx context.Context, httpClient *http.Client) (*Clients, error) {
	gmailSvc, err := gmail.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gmail service: %w", err)
	}

	calendarSvc, err := calendar.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("failed to create Calendar service: %w", err)
	}

	peopleSvc, err := people.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("failed to create People service: %w", err)
	}

	return &Clients{
		Gmail:    &gmailService{svc: gmailSvc},
		Calendar: &calendarService{svc: calendarSvc},
		Contacts: &contactsService{svc: peopleSvc},
	}, nil
}
