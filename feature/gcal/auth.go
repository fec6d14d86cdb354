package gcal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gcal "google.golang.org/api/calendar/v3"
)

// ErrMissingToken is returned when OAuth credentials are configured but the
// auth command has not stored a token yet.
var ErrMissingToken = errors.New("no OAuth token stored, run the auth command first")

// HTTPClient returns an authorized client for the Calendar API. A service
// account key is used directly; an OAuth client secret needs a stored token.
func HTTPClient(ctx context.Context, cfg Config) (*http.Client, error) {
	raw, err := os.ReadFile(cfg.CredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read credentials: %w", err)
	}

	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return nil, fmt.Errorf("failed to parse credentials: %w", err)
	}

	if head.Type == "service_account" {
		jwt, err := google.JWTConfigFromJSON(raw, gcal.CalendarScope)
		if err != nil {
			return nil, fmt.Errorf("failed to parse service account: %w", err)
		}
		return jwt.Client(ctx), nil
	}

	oauthCfg, err := google.ConfigFromJSON(raw, gcal.CalendarScope)
	if err != nil {
		return nil, fmt.Errorf("failed to parse client secret: %w", err)
	}
	token, err := LoadToken(cfg.TokenFile)
	if err != nil {
		return nil, err
	}
	return oauthCfg.Client(ctx, token), nil
}

// OAuthConfig reads the OAuth client secret for the installed-app flow.
func OAuthConfig(cfg Config) (*oauth2.Config, error) {
	raw, err := os.ReadFile(cfg.CredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read credentials: %w", err)
	}
	oauthCfg, err := google.ConfigFromJSON(raw, gcal.CalendarScope)
	if err != nil {
		return nil, fmt.Errorf("failed to parse client secret: %w", err)
	}
	return oauthCfg, nil
}

// LoadToken reads a token written by SaveToken.
func LoadToken(path string) (*oauth2.Token, error) {
	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrMissingToken
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read token: %w", err)
	}
	var token oauth2.Token
	if err := json.Unmarshal(raw, &token); err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}
	return &token, nil
}

// SaveToken writes the token with owner-only permissions.
func SaveToken(path string, token *oauth2.Token) error {
	raw, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("failed to encode token: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create token directory: %w", err)
	}
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		return fmt.Errorf("failed to write token: %w", err)
	}
	return nil
}
