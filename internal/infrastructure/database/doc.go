// Package database provides the optional SQLite store of the LaCrosse gateway.
//
// The gateway keeps no sensor state on disk: publish decisions always
// start fresh after a restart. The database only records which device
// ids the radio has heard, so operators can find ids that are missing
// from the sensors section of the config (see gateway.SightingRecorder).
//
// The package provides:
//   - Open with WAL mode, busy timeout and 0600 file permissions
//   - Schema migrations embedded into the binary (package migrations)
//   - A health check used by the HTTP API
//
// Usage:
//
//	db, err := database.Open(cfg.Database)
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    return err
//	}
package database
