package auth

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"
)

const callbackTimeout = 5 * time.Minute

// CallbackServer is a one-shot local HTTP listener that receives the OAuth
// redirect during the interactive authorization flow.
type CallbackServer struct {
	listener net.Listener
	state    string
}

// NewCallbackServer listens on a loopback port. Pass addr ":0" to pick a
// free port; RedirectURL reports the resulting address.
func NewCallbackServer(addr, state string) (*CallbackServer, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("starting callback listener: %w", err)
	}
	return &CallbackServer{listener: listener, state: state}, nil
}

// RedirectURL returns the URL to register as the OAuth redirect target.
func (s *CallbackServer) RedirectURL() string {
	return fmt.Sprintf("http://%s/callback", s.listener.Addr().String())
}

// WaitForCode serves until a single redirect arrives, then returns the
// authorization code. It validates the state parameter and times out after
// five minutes. The HTTP server is fully shut down before returning.
func (s *CallbackServer) WaitForCode(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, callbackTimeout)
	defer cancel()

	type outcome struct {
		code string
		err  error
	}
	results := make(chan outcome, 1)

	mux := http.NewServeMux()
	mux.HandleFunc("/callback", func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		if errMsg := query.Get("error"); errMsg != "" {
			http.Error(w, "Authorization denied. You can close this window.", http.StatusBadRequest)
			results <- outcome{err: fmt.Errorf("authorization denied: %s", errMsg)}
			return
		}
		if query.Get("state") != s.state {
			http.Error(w, "State mismatch. You can close this window.", http.StatusBadRequest)
			results <- outcome{err: fmt.Errorf("state parameter mismatch")}
			return
		}
		code := query.Get("code")
		if code == "" {
			http.Error(w, "Missing authorization code.", http.StatusBadRequest)
			results <- outcome{err: fmt.Errorf("redirect carried no authorization code")}
			return
		}
		fmt.Fprintln(w, "Authorization complete. You can close this window.")
		results <- outcome{code: code}
	})

	server := &http.Server{Handler: mux}
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.Serve(s.listener)
	}()

	var result outcome
	select {
	case result = <-results:
	case <-ctx.Done():
		result = outcome{err: fmt.Errorf("waiting for authorization redirect: %w", ctx.Err())}
	case err := <-serveErr:
		return "", fmt.Errorf("callback server: %w", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = server.Shutdown(shutdownCtx)
	<-serveErr

	return result.code, result.err
}
