// internal/database/db.go
package database

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// DB is the global connection pool. nil means persistence is disabled and
// the server runs purely in memory, which is the default.
var DB *pgxpool.Pool

// ConnectDB opens the pool from DATABASE_URL. Call once at startup, only
// when DATABASE_URL is set.
func ConnectDB() {
	connStr := os.Getenv("DATABASE_URL")
	if connStr == "" {
		log.Printf("database: DATABASE_URL not set, result persistence disabled")
		return
	}

	config, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		log.Fatalf("unable to parse pgx config: %v", err)
	}

	DB, err = pgxpool.NewWithConfig(context.Background(), config)
	if err != nil {
		log.Fatalf("unable to create pgx pool: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := DB.Ping(ctx); err != nil {
		log.Fatalf("db ping error: %v", err)
	}
}

// Enabled reports whether result persistence is on.
func Enabled() bool { return DB != nil }
