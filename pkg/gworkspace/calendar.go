package gworkspace

import (
	"context"
	"fmt"
	"time"

	calendar "google.golang.org/api/calendar/v3"
)

// calendarService implements CalendarAPI over the primary calendar of the
// authenticated user.
type calendarService struct {
	svc *calendar.Service
}

func (c *calendarService) ListEvents(ctx context.Context, timeMin, timeMax time.Time, pageSize int64, cursor string) (*EventPage, error) {
	call := c.svc.Events.List("primary").
		SingleEvents(true).
		OrderBy("startTime").
		MaxResults(pageSize).
		Context(ctx)
	if !timeMin.IsZero() {
		call = call.TimeMin(timeMin.Format(time.RFC3339))
	}
	if !timeMax.IsZero() {
		call = call.TimeMax(timeMax.Format(time.RFC3339))
	}
	if cursor != "" {
		call = call.PageToken(cursor)
	}

	resp, err := call.Do()
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}

	page := &EventPage{NextCursor: resp.NextPageToken}
	for _, item := range resp.Items {
		page.Events = append(page.Events, fromCalendarEvent(item))
	}
	return page, nil
}

func (c *calendarService) CreateEvent(ctx context.Context, event Event) (*Event, error) {
	apiEvent := &calendar.Event{
		Summary:     event.Summary,
		Description: event.Description,
		Start:       &calendar.EventDateTime{DateTime: event.Start},
		End:         &calendar.EventDateTime{DateTime: event.End},
	}
	for _, email := range event.Attendees {
		apiEvent.Attendees = append(apiEvent.Attendees, &calendar.EventAttendee{Email: email})
	}

	created, err := c.svc.Events.Insert("primary", apiEvent).SendUpdates("all").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to create event: %w", err)
	}
	result := fromCalendarEvent(created)
	return &result, nil
}

func (c *calendarService) DeleteEvent(ctx context.Context, id string) error {
	if err := c.svc.Events.Delete("primary", id).SendUpdates("all").Context(ctx).Do(); err != nil {
		return fmt.Errorf("failed to delete event %s: %w", id, err)
	}
	return nil
}

// fromCalendarEvent projects the API event onto the tool-facing shape.
// All-day events carry a date instead of a datetime; either works for
// display.
func fromCalendarEvent(event *calendar.Event) Event {
	e := Event{
		ID:          event.Id,
		Summary:     event.Summary,
		Description: event.Description,
	}
	if event.Start != nil {
		e.Start = event.Start.DateTime
		if e.Start == "" {
			e.Start = event.Start.Date
		}
	}
	if event.End != nil {
		e.End = event.End.DateTime
		if e.End == "" {
			e.End = event.End.Date
		}
	}
	for _, attendee := range event.Attendees {
		e.Attendees = append(e.Attendees, attendee.Email)
	}
	return e
}
