package testutil

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"reservation-api/internal/config"
	"reservation-api/internal/db"
)

// OpenInMemoryDB opens a migrated, shared-cache in-memory SQLite database
// that is closed when the test ends. name must be unique per test.
func OpenInMemoryDB(t *testing.T, name string) *sql.DB {
	t.Helper()
	ctx := context.Background()
	d, err := db.InitDB(ctx, db.DriverSQLite, "file:"+name+"?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })
	if err := db.RunMigrations(ctx, d, db.DriverSQLite); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return d
}

// Config returns settings suitable for tests: cheap bcrypt and a relaxed
// global rate limit.
func Config() *config.Config {
	return &config.Config{
		Port:       "0",
		Env:        "test",
		JWTSecret:  "test-secret",
		TokenTTL:   7 * 24 * time.Hour,
		BcryptCost: 4,
		DB:         config.DBConfig{Driver: db.DriverSQLite},
		RateLimit: config.RateLimitConfig{
			RPS:              1000,
			Burst:            1000,
			LoginMaxAttempts: 5,
			LoginWindow:      15 * time.Minute,
		},
	}
}

// SeedRestaurant inserts a restaurant row directly and returns its id.
func SeedRestaurant(t *testing.T, d *sql.DB, name, location string) int {
	t.Helper()
	res, err := d.Exec(`INSERT INTO restaurants (name, location) VALUES (?, ?)`, name, location)
	if err != nil {
		t.Fatalf("seed restaurant: %v", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		t.Fatalf("seed restaurant id: %v", err)
	}
	return int(id)
}
