// Package database handles database connections for the run journal.
//
// It provides a wrapper around GORM to configure MySQL or SQLite connections
// based on the application's configuration. The synchronizer never reads
// reconciliation state back from the database; it only records what each run did
// (see core/history).
//
// # Connect
//
// Connect opens the configured driver, tunes the connection pool and pings the
// database within the configured timeout. The journal is optional, so callers
// should treat a connection failure as a warning.
//
// # Usage
//
//	db, err := database.Connect(cfg.Database)
//	if err != nil {
//	    logger.Warn("Run journal disabled", zap.Error(err))
//	}
package database
