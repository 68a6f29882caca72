package auth

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	calendar "google.golang.org/api/calendar/v3"
	gmail "google.golang.org/api/gmail/v1"
	people "google.golang.org/api/people/v1"
)

// Scopes requested during authorization. Gmail needs read and send,
// calendar needs full event access, contacts are read-only.
var Scopes = []string{
	gmail.GmailReadonlyScope,
	gmail.GmailSendScope,
	calendar.CalendarEventsScope,
	people.ContactsReadonlyScope,
}

// Authenticator runs the OAuth2 authorization-code flow against Google and
// produces HTTP clients from the stored token.
type Authenticator struct {
	config *oauth2.Config
	store  TokenStore
}

// NewAuthenticator reads the OAuth client configuration (the
// credentials.json downloaded from the Google Cloud console) and binds it
// to a token store.
func NewAuthenticator(credentialsPath string, store TokenStore) (*Authenticator, error) {
	data, err := os.ReadFile(credentialsPath)
	if err != nil {
		return nil, fmt.Errorf("reading OAuth client configuration %s: %w", credentialsPath, err)
	}

	config, err := google.ConfigFromJSON(data, Scopes...)
	if err != nil {
		return nil, fmt.Errorf("parsing OAuth client configuration: %w", err)
	}

	return &Authenticator{config: config, store: store}, nil
}

// AuthURL returns the consent URL the user must open in a browser.
// redirectURL is the local callback address that will receive the code.
func (a *Authenticator) AuthURL(redirectURL, state string) string {
	config := *a.config
	config.RedirectURL = redirectURL
	return config.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

// Exchange trades the authorization code for a token and persists it.
func (a *Authenticator) Exchange(ctx context.Context, redirectURL, code string) (*oauth2.Token, error) {
	config := *a.config
	config.RedirectURL = redirectURL

	token, err := config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchanging authorization code: %w", err)
	}
	if err := a.store.Save(token); err != nil {
		return nil, err
	}
	return token, nil
}

// Client returns an HTTP client that attaches and refreshes the stored
// token. It fails when no token has been stored yet, which callers surface
// as an instruction to run the authenticate command.
func (a *Authenticator) Client(ctx context.Context) (*http.Client, error) {
	token, err := a.store.Load()
	if err != nil {
		if err == ErrNoToken {
			return nil, fmt.Errorf("not authenticated: run \"workspace-mcp authenticate\" first")
		}
		return nil, err
	}

	// TokenSource refreshes transparently; persist the rotated token so
	// refreshes survive restarts.
	source := a.config.TokenSource(ctx, token)
	return oauth2.NewClient(ctx, &savingSource{source: source, store: a.store, last: token}), nil
}

// Status describes the stored credential in one line for the auth_status
// tool.
func (a *Authenticator) Status(ctx context.Context) (string, error) {
	token, err := a.store.Load()
	if err != nil {
		if err == ErrNoToken {
			return "not authenticated: run \"workspace-mcp authenticate\" to connect a Google account", nil
		}
		return "", err
	}
	if token.Valid() {
		return fmt.Sprintf("authenticated, access token valid until %s", token.Expiry.Format("2006-01-02 15:04:05 MST")), nil
	}
	if token.RefreshToken != "" {
		return "authenticated, access token expired but refreshable", nil
	}
	return "stored token expired with no refresh token: run \"workspace-mcp authenticate\" again", nil
}

// savingSource wraps a TokenSource and writes rotated tokens back to the
// store.
type savingSource struct {
	source oauth2.TokenSource
	store  TokenStore
	last   *oauth2.Token
}

func (s *savingSource) Token() (*oauth2.Token, error) {
	token, err := s.source.Token()
	if err != nil {
		return nil, err
	}
	if token.AccessToken != s.last.AccessToken {
		s.last = token
		// Best effort; a failed save only costs a refresh next run.
		_ = s.store.Save(token)
	}
	return token, nil
}
