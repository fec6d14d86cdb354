package reconcile

import (
	"slices"
	"time"

	"calendar-sync/core/event"
)

// RecordsEquivalent reports whether two record events agree on every synced field.
func RecordsEquivalent(a, b *event.SourceEvent) bool {
	return a.Date.Equal(b.Date) &&
		a.Title == b.Title &&
		a.Tag == b.Tag
}

// FeedEquivalent reports whether two feed events agree on every synced field.
func FeedEquivalent(a, b *event.FeedEvent) bool {
	return a.Date.Equal(b.Date) &&
		a.Title == b.Title &&
		a.Location == b.Location &&
		a.Status == b.Status &&
		a.ExceptionRule == b.ExceptionRule &&
		slices.EqualFunc(a.ExcludedDates, b.ExcludedDates, time.Time.Equal)
}
