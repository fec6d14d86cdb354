package notion

import (
	"context"
	"fmt"
	"time"

	"calendar-sync/core/event"
	"calendar-sync/core/utils"

	"go.uber.org/zap"
)

// DefaultCutoff is how far back pages are read.
const DefaultCutoff = 30 * 24 * time.Hour

// Source lists the dated pages of configured databases.
type Source struct {
	client *Client
	schema *SchemaCache
	clock  utils.Clock
	cutoff time.Duration
	logger *zap.Logger
}

// NewSource creates a source. A non-positive cutoff means DefaultCutoff.
func NewSource(client *Client, schema *SchemaCache, clock utils.Clock, cutoff time.Duration, logger *zap.Logger) *Source {
	if cutoff <= 0 {
		cutoff = DefaultCutoff
	}
	if clock == nil {
		clock = utils.SystemClock{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Source{client: client, schema: schema, clock: clock, cutoff: cutoff, logger: logger}
}

// ListRecords returns the events of every page with a date, newest first,
// stopping at the first page that started before the cutoff. A page that
// cannot be converted fails the whole listing.
func (s *Source) ListRecords(ctx context.Context, db Database) ([]*event.SourceEvent, error) {
	s.logger.Info("Getting pages from Notion", zap.String("database", db.Name))

	schema, err := s.schema.Get(ctx, db)
	if err != nil {
		return nil, fmt.Errorf("failed to get schema of %s: %w", db.Name, err)
	}
	ids, err := schema.PropertyIDs(db.TitleProperty, db.DateProperty, db.TagProperty())
	if err != nil {
		// The schema may have changed since it was cached.
		s.schema.Invalidate(db.Name)
		return nil, err
	}

	q := Query{
		Filter:           &Filter{Property: db.DateProperty, Date: &DateCondition{IsNotEmpty: true}},
		Sorts:            []Sort{{Property: db.DateProperty, Direction: "descending"}},
		FilterProperties: ids,
	}

	since := s.clock.Now().Add(-s.cutoff)
	var events []*event.SourceEvent
	for pages, err := range s.client.Pages(ctx, db, q) {
		if err != nil {
			return nil, err
		}
		for _, page := range pages {
			e, err := PageToEvent(page, db)
			if err != nil {
				return nil, fmt.Errorf("page %s: %w", page.ID, err)
			}
			if e.Date.Start.Before(since) {
				s.logger.Debug("Reached cutoff", zap.String("database", db.Name), zap.Int("events", len(events)))
				return events, nil
			}
			events = append(events, e)
		}
	}
	return events, nil
}
