package ical

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"calendar-sync/core/reconcile"
)

// maxFeedSize caps the downloaded body.
const maxFeedSize = 32 << 20

// Fetcher downloads feeds over HTTP.
type Fetcher struct {
	client    *http.Client
	userAgent string
}

// NewFetcher creates a fetcher. A nil client gets the configured timeout.
func NewFetcher(cfg Config, client *http.Client) *Fetcher {
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout()}
	}
	return &Fetcher{client: client, userAgent: cfg.UserAgent}
}

// Fetch returns the raw feed body.
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create feed request: %w", err)
	}
	req.Header.Set("Accept", "text/calendar")
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &reconcile.CommunicationError{Op: "ical.fetch", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &reconcile.CommunicationError{Op: "ical.fetch", Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedSize))
	if err != nil {
		return nil, &reconcile.CommunicationError{Op: "ical.fetch", Err: err}
	}
	return body, nil
}
