// Package config resolves the on-disk layout of the server: where the
// OAuth client configuration, the stored token and the diagnostic log
// live.
package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const appDirName = "workspace-mcp"

// Config holds resolved file locations.
type Config struct {
	// Dir is the application configuration directory.
	Dir string

	// CredentialsPath is the OAuth client configuration (credentials.json
	// from the Google Cloud console). Required at startup.
	CredentialsPath string

	// TokenPath is where the OAuth token is stored after authorization.
	TokenPath string

	// LogPath is the diagnostic log file. Logs never go to stdout, which
	// carries the wire protocol.
	LogPath string
}

// Resolve computes file locations under dir, defaulting to
// os.UserConfigDir()/workspace-mcp, and creates the directory.
func Resolve(dir string) (*Config, error) {
	if dir == "" {
		base, err := os.UserConfigDir()
		if err != nil {
			return nil, fmt.Errorf("resolving user config directory: %w", err)
		}
		dir = filepath.Join(base, appDirName)
	}

	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	return &Config{
		Dir:             dir,
		CredentialsPath: filepath.Join(dir, "credentials.json"),
		TokenPath:       filepath.Join(dir, "token.json"),
		LogPath:         filepath.Join(dir, "workspace-mcp.log"),
	}, nil
}

// RequireCredentials verifies the OAuth client configuration exists. The
// server refuses to start without it; tokens, by contrast, are only needed
// once a tool call touches a Google API.
func (c *Config) RequireCredentials() error {
	if _, err := os.Stat(c.CredentialsPath); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("missing OAuth client configuration: download credentials.json from the Google Cloud console and place it at %s", c.CredentialsPath)
		}
		return fmt.Errorf("checking %s: %w", c.CredentialsPath, err)
	}
	return nil
}
