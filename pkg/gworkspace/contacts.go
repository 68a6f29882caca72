package gworkspace

import (
	"context"
	"fmt"

	people "google.golang.org/api/people/v1"
)

const personFields = "names,emailAddresses,phoneNumbers"

// contactsService implements ContactsAPI over the People API connections of
// the authenticated user.
type contactsService struct {
	svc *people.Service
}

func (c *contactsService) ListContacts(ctx context.Context, pageSize int64, cursor string) (*ContactPage, error) {
	call := c.svc.People.Connections.List("people/me").
		PersonFields(personFields).
		PageSize(pageSize).
		Context(ctx)
	if cursor != "" {
		call = call.PageToken(cursor)
	}

	resp, err := call.Do()
	if err != nil {
		return nil, fmt.Errorf("failed to list contacts: %w", err)
	}

	page := &ContactPage{NextCursor: resp.NextPageToken}
	for _, person := range resp.Connections {
		page.Contacts = append(page.Contacts, fromPerson(person))
	}
	return page, nil
}

func (c *contactsService) SearchContacts(ctx context.Context, query string, pageSize int64) ([]Contact, error) {
	resp, err := c.svc.People.SearchContacts().
		Query(query).
		ReadMask(personFields).
		PageSize(pageSize).
		Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to search contacts: %w", err)
	}

	contacts := make([]Contact, 0, len(resp.Results))
	for _, result := range resp.Results {
		if result.Person != nil {
			contacts = append(contacts, fromPerson(result.Person))
		}
	}
	return contacts, nil
}

// fromPerson projects the API person onto the tool-facing shape, taking the
// primary (first) value of each multi-valued field.
func fromPerson(person *people.Person) Contact {
	c := Contact{ResourceName: person.ResourceName}
	if len(person.Names) > 0 {
		c.Name = person.Names[0].DisplayName
	}
	if len(person.EmailAddresses) > 0 {
		c.Email = person.EmailAddresses[0].Value
	}
	if len(person.PhoneNumbers) > 0 {
		c.Phone = person.PhoneNumbers[0].Value
	}
	return c
}
