package reconcile

import (
	"sort"

	"calendar-sync/core/event"
)

// Pair groups the source and destination events sharing one key.
// At least one side is non-empty.
type Pair[T any] struct {
	Key         string
	Source      []T
	Destination []T
}

// Match performs a full outer join of both event sets by key.
// Pairs are sorted by key; element order within a group follows the input.
func Match[T any](source, destination []T, key func(T) string) []Pair[T] {
	union := make(map[string]*Pair[T])

	for _, item := range source {
		k := key(item)
		p, ok := union[k]
		if !ok {
			p = &Pair[T]{Key: k}
			union[k] = p
		}
		p.Source = append(p.Source, item)
	}

	for _, item := range destination {
		k := key(item)
		p, ok := union[k]
		if !ok {
			p = &Pair[T]{Key: k}
			union[k] = p
		}
		p.Destination = append(p.Destination, item)
	}

	pairs := make([]Pair[T], 0, len(union))
	for _, p := range union {
		pairs = append(pairs, *p)
	}

	// Sort results by key for deterministic output
	sort.Slice(pairs, func(i, j int) bool {
		return pairs[i].Key < pairs[j].Key
	})

	return pairs
}

// RecordKey returns the cross-system key of a record event.
func RecordKey(e *event.SourceEvent) string {
	return e.RecordID
}

// SeriesKey returns the cross-system key of a feed event.
func SeriesKey(e *event.FeedEvent) string {
	return e.SeriesUID
}

// single unpacks a group that must hold at most one event.
func single[T any](key string, group []T) (T, bool, error) {
	var zero T
	switch len(group) {
	case 0:
		return zero, false, nil
	case 1:
		return group[0], true, nil
	default:
		return zero, false, &MalformedGroupError{Key: key, Reason: "duplicate record id"}
	}
}
