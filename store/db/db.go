package db

import (
	"github.com/pkg/errors"

	"github.com/rankmarg/mastery/internal/profile"
	"github.com/rankmarg/mastery/store"
	"github.com/rankmarg/mastery/store/db/postgres"
	"github.com/rankmarg/mastery/store/db/sqlite"
)

// PostgreSQL is the production database; SQLite covers development and
// tests. Adding another driver means implementing store.Driver in a new
// subpackage and extending this switch.

// NewDBDriver creates new db driver based on profile.
func NewDBDriver(profile *profile.Profile) (store.Driver, error) {
	var driver store.Driver
	var err error

	switch profile.Driver {
	case "sqlite":
		driver, err = sqlite.NewDB(profile)
	case "postgres":
		driver, err = postgres.NewDB(profile)
	default:
		return nil, errors.New("unknown db driver: only 'postgres' and 'sqlite' are supported")
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to create db driver")
	}
	return driver, nil
}
