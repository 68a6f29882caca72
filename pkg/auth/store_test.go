package auth

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"golang.org/x/oauth2"
)

func TestFileStoreRoundTrip(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "nested", "token.json"))

	token := &oauth2.Token{
		AccessToken:  "access-abc",
		RefreshToken: "refresh-def",
		TokenType:    "Bearer",
		Expiry:       time.Now().Add(time.Hour).Round(time.Second),
	}
	if err := store.Save(token); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.AccessToken != token.AccessToken || loaded.RefreshToken != token.RefreshToken {
		t.Errorf("loaded token differs: %+v", loaded)
	}
	if !loaded.Expiry.Equal(token.Expiry) {
		t.Errorf("expiry = %v, want %v", loaded.Expiry, token.Expiry)
	}
}

func TestFileStorePermissions(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("file modes are not meaningful on windows")
	}

	store := NewFileStore(filepath.Join(t.TempDir(), "token.json"))
	if err := store.Save(&oauth2.Token{AccessToken: "secret"}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	info, err := os.Stat(store.Path())
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if mode := info.Mode().Perm(); mode != 0o600 {
		t.Errorf("token file mode = %o, want 600", mode)
	}
}

func TestFileStoreMissingToken(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "token.json"))

	if _, err := store.Load(); err != ErrNoToken {
		t.Errorf("Load on missing file = %v, want ErrNoToken", err)
	}

	// Deleting a token that was never stored is fine.
	if err := store.Delete(); err != nil {
		t.Errorf("Delete on missing file = %v", err)
	}
}

func TestFileStoreDelete(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "token.json"))

	if err := store.Save(&oauth2.Token{AccessToken: "x"}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := store.Delete(); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := store.Load(); err != ErrNoToken {
		t.Errorf("Load after Delete = %v, want ErrNoToken", err)
	}
}

func TestFileStoreCorruptToken(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}

	if _, err := NewFileStore(path).Load(); err == nil || err == ErrNoToken {
		t.Errorf("Load on corrupt file = %v, want a parse failure", err)
	}
}
