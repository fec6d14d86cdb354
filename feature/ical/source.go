package ical

import (
	"context"
	"fmt"
	"time"

	"calendar-sync/core/event"

	"go.uber.org/zap"
)

// Source lists the events of configured feeds.
type Source struct {
	fetcher *Fetcher
	logger  *zap.Logger
}

// NewSource creates a feed source.
func NewSource(fetcher *Fetcher, logger *zap.Logger) *Source {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Source{fetcher: fetcher, logger: logger}
}

// ListEvents downloads and parses the feed. Events starting before since are
// dropped unless they are recurring roots.
func (s *Source) ListEvents(ctx context.Context, feed Feed, since time.Time) ([]*event.FeedEvent, error) {
	s.logger.Info("Getting events from feed", zap.String("feed", feed.Name))

	body, err := s.fetcher.Fetch(ctx, feed.URL)
	if err != nil {
		return nil, fmt.Errorf("feed %s: %w", feed.Name, err)
	}

	parsed, err := Parse(feed, body, s.logger)
	if err != nil {
		return nil, err
	}

	events := parsed[:0]
	for _, e := range parsed {
		if e.Date.Start.Before(since) && !e.IsRecurring() {
			continue
		}
		events = append(events, e)
	}
	return events, nil
}
