package reconcile

import (
	"context"
	"time"

	"calendar-sync/core/event"
)

// DefaultMaxCreateAge is the default age beyond which missing events are not created.
const DefaultMaxCreateAge = 5 * 24 * time.Hour

// Destination is the mutating side of a destination calendar.
type Destination[T event.Reconcilable] interface {
	// Create inserts the event and returns its new destination id.
	Create(ctx context.Context, e T) (string, error)
	// Update overwrites the event identified by its DestinationID.
	Update(ctx context.Context, e T) error
	// Delete removes the event identified by its DestinationID.
	Delete(ctx context.Context, e T) error
}

// SeriesDestination is a Destination able to expand a recurring root into
// its concrete instances.
type SeriesDestination interface {
	Destination[*event.FeedEvent]
	// ListInstances returns every instance of a created root.
	ListInstances(ctx context.Context, root *event.FeedEvent) ([]*event.FeedEvent, error)
}

// ActionType represents the type of decision taken for an event.
type ActionType string

const (
	// ActionCreate inserts a source-only event into the destination.
	ActionCreate ActionType = "create"
	// ActionUpdate overwrites a destination event with its source version.
	ActionUpdate ActionType = "update"
	// ActionReset reverts a destination exception to the shape of its root.
	ActionReset ActionType = "reset"
	// ActionDelete removes a destination-only event.
	ActionDelete ActionType = "delete"
	// ActionSkipStale records a source-only event too old to be created.
	ActionSkipStale ActionType = "skip_stale"
	// ActionNone means both sides already agree.
	ActionNone ActionType = "none"
)

// Action represents one decision of the driver.
type Action struct {
	// Type specifies the decision.
	Type ActionType `json:"type"`

	// Key is the cross-system key of the unit the event belongs to.
	Key string `json:"key"`

	// Title is the event title, for reporting.
	Title string `json:"title"`

	// Reason explains why this action was taken.
	Reason string `json:"reason"`

	// DestinationID is the destination id touched (or assigned on create).
	DestinationID string `json:"destination_id,omitempty"`

	// Executed is false in dry-run mode and when the mutation failed.
	Executed bool `json:"executed"`
}

// UnitFailure records a unit that could not be reconciled.
type UnitFailure struct {
	Key   string `json:"key"`
	Error string `json:"error"`
}

// Summary provides aggregate counts for a run.
type Summary struct {
	// Units is the number of matched keys.
	Units int `json:"units"`

	Created   int `json:"created"`
	Updated   int `json:"updated"`
	Reset     int `json:"reset"`
	Deleted   int `json:"deleted"`
	Skipped   int `json:"skipped"`
	Unchanged int `json:"unchanged"`

	// Failed counts units aborted by an error.
	Failed int `json:"failed"`
}

// Report contains every decision of a run.
type Report struct {
	// Actions lists every mutating or skipped decision. No-ops are only counted.
	Actions []Action `json:"actions"`

	// Summary provides aggregate counts.
	Summary Summary `json:"summary"`

	// Failures lists units aborted by an error.
	Failures []UnitFailure `json:"failures,omitempty"`

	// DryRun is true when no mutation was performed.
	DryRun bool `json:"dry_run"`
}

func (r *Report) record(a Action) {
	switch a.Type {
	case ActionNone:
		r.Summary.Unchanged++
		return
	case ActionCreate:
		r.Summary.Created++
	case ActionUpdate:
		r.Summary.Updated++
	case ActionReset:
		r.Summary.Reset++
	case ActionDelete:
		r.Summary.Deleted++
	case ActionSkipStale:
		r.Summary.Skipped++
	}
	r.Actions = append(r.Actions, a)
}

func (r *Report) fail(key string, err error) {
	r.Summary.Failed++
	r.Failures = append(r.Failures, UnitFailure{Key: key, Error: err.Error()})
}

// Options controls driver behavior.
type Options struct {
	// MaxCreateAge suppresses creation of events that started longer ago.
	// Zero means DefaultMaxCreateAge.
	MaxCreateAge time.Duration

	// DryRun records every decision without mutating the destination.
	DryRun bool
}
