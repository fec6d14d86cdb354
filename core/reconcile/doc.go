// Package reconcile computes and applies the difference between the events a
// source holds and the events a destination calendar holds.
//
// Each run recomputes the full diff; no reconciliation state is persisted.
//
// # Architecture
//
// The package is built from four pieces, leaves first:
//
// 1. Equivalence: field-scoped equality per event variant (RecordsEquivalent,
//    FeedEquivalent). Identity fields are never compared.
//
// 2. Matcher: a full outer join of source and destination events by their
//    cross-system key (Match). Every key present on either side yields exactly
//    one Pair, so nothing is silently dropped.
//
// 3. Recurrence splitting: for feed series, Root extracts the series root,
//    Exceptions the occurrence overrides that actually differ from it, and
//    MatchExceptions pairs source and destination overrides greedily.
//
// 4. Driver: walks every pair and decides between create, update, delete,
//    reset and no-op, suppressing creation of stale events, then performs the
//    decision through a Destination.
//
// # Errors
//
// A MalformedGroupError or a destination error aborts the current unit only.
// The driver keeps going with the next unit and returns all unit failures
// combined, together with the Report of everything it decided.
//
// # Usage Example
//
//	driver := reconcile.NewDriver(reconcile.Options{}, utils.SystemClock{}, logger)
//
//	// Records: one event per record id
//	report, err := driver.ReconcileRecords(ctx, calendar, notionEvents, calendarEvents)
//
//	// Feeds: series roots plus exceptions
//	report, err := driver.ReconcileSeries(ctx, calendar, feedEvents, calendarEvents)
package reconcile
