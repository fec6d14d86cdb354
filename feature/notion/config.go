package notion

import (
	"strings"
	"time"
)

// Config holds configuration for the Notion API client.
type Config struct {
	// BaseURL is the API root.
	BaseURL string `mapstructure:"base_url" default:"https://api.notion.com/v1"`
	// Version is sent as the Notion-Version header.
	Version string `mapstructure:"version" default:"2022-06-28"`
	// Tokens lists integration tokens per workspace as "workspace=token" pairs
	// separated by commas.
	Tokens string `mapstructure:"tokens" default:""`
	// TimeoutSeconds bounds a single API request.
	TimeoutSeconds int `mapstructure:"timeout_seconds" default:"30"`
}

// TokenMap parses Tokens. Malformed pairs are ignored.
func (c Config) TokenMap() map[string]string {
	tokens := make(map[string]string)
	for _, pair := range strings.Split(c.Tokens, ",") {
		workspace, token, ok := strings.Cut(pair, "=")
		workspace, token = strings.TrimSpace(workspace), strings.TrimSpace(token)
		if !ok || workspace == "" || token == "" {
			continue
		}
		tokens[workspace] = token
	}
	return tokens
}

// Timeout returns the request timeout.
func (c Config) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}
