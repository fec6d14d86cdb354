// Package notion reads dated pages of Notion databases as source events.
//
// A Client talks to the Notion HTTP API with one integration token per
// workspace. A SchemaCache keeps database objects between runs so that
// queries can restrict the returned properties. Source combines both into
// the record listing consumed by the sync jobs.
package notion
