package sync

import (
	"context"
	"fmt"
	"net/http"

	"calendar-sync/core/reconcile"
)

// Pinger notifies a push monitor (e.g. Uptime Kuma) that a run succeeded.
type Pinger struct {
	url    string
	client *http.Client
}

// NewPinger returns nil when url is empty.
func NewPinger(url string, client *http.Client) *Pinger {
	if url == "" {
		return nil
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &Pinger{url: url, client: client}
}

// Ping sends a GET request to the push URL.
func (p *Pinger) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return fmt.Errorf("failed to create push request: %w", err)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return &reconcile.CommunicationError{Op: "push", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return &reconcile.CommunicationError{Op: "push", Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}
	return nil
}
