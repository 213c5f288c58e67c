package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"

	// Import the SQLite driver.
	_ "modernc.org/sqlite"

	"github.com/rankmarg/mastery/internal/profile"
	"github.com/rankmarg/mastery/store"
)

type DB struct {
	db      *sql.DB
	profile *profile.Profile
}

// NewDB opens a SQLite database using the DSN from the profile.
func NewDB(profile *profile.Profile) (store.Driver, error) {
	if profile == nil {
		return nil, errors.New("profile is nil")
	}

	// journal_mode=WAL allows the batch writer and due-schedule readers
	// to coexist; busy_timeout absorbs short write contention.
	db, err := sql.Open("sqlite", profile.DSN+"?_pragma=busy_timeout(10000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open database: %s", profile.DSN)
	}

	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(time.Hour)

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
	var count int
	if err := d.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'attempt'`,
	).Scan(&count); err != nil {
		return false, errors.Wrap(err, "failed to check initialization")
	}
	return count > 0, nil
}
