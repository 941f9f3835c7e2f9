// Package database handles database connections for the SQL catalog mirror.
//
// It provides a wrapper around GORM (Go Object Relational Mapping) to properly configure
// MySQL or SQLite connections based on the application's configuration.
//
// # Connect
//
// Connect establishes a connection, applies pool settings and verifies it with a ping
// bounded by the configured timeout. The catalog package owns the schema.
//
// # Usage
//
//	db, err := database.Connect(cfg.Database)
//	if err != nil {
//	    log.Fatal("Database connection failed", err)
//	}
package database
