package postgres

import (
	"context"
	"database/sql"
	"time"

	// Import the PostgreSQL driver.
	_ "github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/rankmarg/mastery/internal/profile"
	"github.com/rankmarg/mastery/store"
)

// PostgreSQL is the production database: the scheduler's batch writer
// and the platform's readers share it concurrently.

type DB struct {
	db      *sql.DB
	profile *profile.Profile
}

func NewDB(profile *profile.Profile) (store.Driver, error) {
	if profile == nil {
		return nil, errors.New("profile is nil")
	}

	db, err := sql.Open("postgres", profile.DSN)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open database: %s", profile.DSN)
	}

	// Pool sized for the bounded batch fan-out plus a couple of readers.
	db.SetMaxOpenConns(12)
	db.SetMaxIdleConns(4)
	db.SetConnMaxLifetime(2 * time.Hour)
	db.SetConnMaxIdleTime(15 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, errors.Wrap(err, "failed to ping database")
	}

	driver := DB{db: db, profile: profile}
	return &driver, nil
}

func (d *DB) GetDB() *sql.DB {
	return d.db
}

func (d *DB) Close() error {
	return d.db.Close()
}

func (d *DB) IsInitialized(ctx context.Context) (bool, error) {
	var exists bool
	if err := d.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name = 'attempt')`,
	).Scan(&exists); err != nil {
		return false, errors.Wrap(err, "failed to check initialization")
	}
	return exists, nil
}
