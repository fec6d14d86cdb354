// Package history keeps a journal of synchronization runs.
//
// Every run of a sync target (a Notion database or an iCalendar feed) is stored
// as one Run row holding the action counts and the failure, if any. The journal
// is write-mostly: it serves the GET /sync/runs endpoint and is never consulted
// by the reconciliation engine.
//
// # Repository
//
// Repository abstracts the storage. GormRepository persists runs through GORM
// (MySQL or SQLite); NopRepository is used when the journal is disabled.
package history
