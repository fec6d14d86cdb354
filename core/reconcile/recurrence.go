package reconcile

import (
	"fmt"

	"calendar-sync/core/event"
)

// ExceptionPair is a source exception matched with its destination counterpart.
// Either side may be nil, never both.
type ExceptionPair struct {
	Source      *event.FeedEvent
	Destination *event.FeedEvent
}

// Root returns the single member of a series group without a RecurrenceStart.
// An empty group has no root.
func Root(group []*event.FeedEvent) (*event.FeedEvent, error) {
	if len(group) == 0 {
		return nil, nil
	}

	uid := group[0].SeriesUID
	var root *event.FeedEvent
	roots := 0
	for _, e := range group {
		if e.SeriesUID != uid {
			return nil, &MalformedGroupError{
				Key:    uid,
				Reason: fmt.Sprintf("mixed series uid %q", e.SeriesUID),
			}
		}
		if !e.IsException() {
			root = e
			roots++
		}
	}

	if roots != 1 {
		return nil, &MalformedGroupError{
			Key:    uid,
			Reason: fmt.Sprintf("expected exactly one root, found %d", roots),
		}
	}
	return root, nil
}

// Exceptions returns the members of a group that override an occurrence of
// root with something different from what the root alone would produce.
func Exceptions(group []*event.FeedEvent, root *event.FeedEvent) []*event.FeedEvent {
	if root == nil {
		return nil
	}

	var out []*event.FeedEvent
	for _, e := range group {
		if !e.IsException() {
			continue
		}
		if differsFromRoot(e, root) {
			out = append(out, e)
		}
	}
	return out
}

func differsFromRoot(e, root *event.FeedEvent) bool {
	return !e.RecurrenceStart.Equal(e.Date.Start) ||
		e.Title != root.Title ||
		e.Location != root.Location ||
		e.Status != root.Status ||
		e.Date.Duration() != root.Date.Duration()
}

// MatchExceptions pairs each source exception with the first unclaimed
// equivalent destination exception, in input order. Unclaimed destination
// exceptions are emitted with a nil source.
func MatchExceptions(source, destination []*event.FeedEvent) []ExceptionPair {
	claimed := make([]bool, len(destination))
	pairs := make([]ExceptionPair, 0, len(source)+len(destination))

	for _, s := range source {
		pair := ExceptionPair{Source: s}
		for i, d := range destination {
			if claimed[i] || !FeedEquivalent(s, d) {
				continue
			}
			claimed[i] = true
			pair.Destination = d
			break
		}
		pairs = append(pairs, pair)
	}

	for i, d := range destination {
		if !claimed[i] {
			pairs = append(pairs, ExceptionPair{Destination: d})
		}
	}
	return pairs
}
