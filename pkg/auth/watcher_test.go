package auth

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/officekit/workspace-mcp/pkg/logging"
)

func TestWatchTokenFiresOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "token.json")
	if err := os.WriteFile(path, []byte("{}"), 0o600); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changed := make(chan struct{}, 4)
	done := make(chan error, 1)
	go func() {
		done <- WatchToken(ctx, path, logging.Discard(), func() {
			changed <- struct{}{}
		})
	}()

	// Let the watcher establish itself before mutating the file.
	time.Sleep(100 * time.Millisecond)
	if err := os.WriteFile(path, []byte(`{"access_token":"new"}`), 0o600); err != nil {
		t.Fatal(err)
	}

	select {
	case <-changed:
	case <-time.After(5 * time.Second):
		t.Fatal("token write did not trigger the watcher")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("WatchToken = %v, want nil on cancellation", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop on cancellation")
	}
}

func TestWatchTokenIgnoresSiblingFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "token.json")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changed := make(chan struct{}, 4)
	go func() {
		_ = WatchToken(ctx, path, logging.Discard(), func() {
			changed <- struct{}{}
		})
	}()

	time.Sleep(100 * time.Millisecond)
	if err := os.WriteFile(filepath.Join(dir, "other.json"), []byte("{}"), 0o600); err != nil {
		t.Fatal(err)
	}

	select {
	case <-changed:
		t.Error("a sibling file triggered the token watcher")
	case <-time.After(500 * time.Millisecond):
	}
}
