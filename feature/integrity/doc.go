// Package integrity provides health checks of the sync targets.
//
// Unlike the 'sync' package which reconciles events, this package validates
// that every configured target can be synced at all: credentials, schemas
// and remote resources.
//
// # Checks Provided
//
//   - Databases: the Notion schema is readable and holds the configured title,
//     date and tag properties; the destination Google calendar is accessible.
//   - Feeds: the .ics feed downloads and parses; the destination calendar is accessible.
//   - Storage: the report archive bucket exists (only when archiving is enabled).
//
// # HTTP Endpoints
//
//   - GET /integrity : Runs all checks.
//   - GET /integrity/databases : Runs the database checks.
//   - GET /integrity/feeds : Runs the feed checks.
//   - GET /integrity/storage : Runs the bucket check (supports ?fix=true).
package integrity
