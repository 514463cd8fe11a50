// This file is used to run database migrations
// How to run:
// go run cmd/migrate/main.go                        # Migrate the default SQLite database
// go run cmd/migrate/main.go -db path/to/blog.db    # Migrate a specific SQLite file
// go run cmd/migrate/main.go -dsn postgres://...    # Migrate a Postgres database
package main

import (
	"flag"
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/hanulsoft/blogpilot/internal/constants"
	"github.com/hanulsoft/blogpilot/internal/db"
)

func main() {
	// .env is optional, the environment may already be set
	_ = godotenv.Load()

	var (
		sqlitePath = flag.String("db", "", "SQLite database path (defaults to env or data/blogpilot.db)")
		dsn        = flag.String("dsn", "", "Postgres DSN (optional, overrides SQLite)")
	)
	flag.Parse()

	opts := db.Options{
		SQLitePath: os.Getenv(constants.EnvDBPath),
		DSN:        os.Getenv(constants.EnvDBDSN),
	}
	if *sqlitePath != "" {
		opts.SQLitePath = *sqlitePath
	}
	if *dsn != "" {
		opts.DSN = *dsn
	}
	if opts.SQLitePath == "" {
		opts.SQLitePath = db.DefaultSQLitePath
	}

	database, err := db.New(opts)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}

	if err := db.Migrate(database); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}

	log.Println("Migrations applied successfully")
}
