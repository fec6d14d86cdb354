// Package sync runs the synchronization jobs. Each configured Notion database
// and iCalendar feed is one target: its source and destination events are
// fetched concurrently, reconciled, journaled and optionally archived.
//
// Runs are serialized per service. They can be triggered from the CLI, the
// HTTP API or the cron scheduler.
package sync
