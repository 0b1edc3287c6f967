// Package store wires the local persistent store: it opens the sqlite
// database, runs embedded migrations, and hands out the repositories.
//
// The store is the only resource shared between the caller's context and
// the background sync goroutine. Writes are serialized through a single
// connection; readers see the last committed state.
package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"github.com/ptms/syncore/internal/client/repositories/metadata"
	"github.com/ptms/syncore/internal/client/repositories/notes"
	"github.com/ptms/syncore/internal/client/repositories/reference"
	"github.com/ptms/syncore/internal/client/repositories/reports"
	"github.com/ptms/syncore/internal/client/store/migrations"
)

// Repositories groups the typed repositories backed by one database.
type Repositories struct {
	Reports   reports.Repository
	Notes     notes.Repository
	Reference reference.Repository
	Metadata  metadata.Repository
}

// RunMigrations applies all embedded goose migrations.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}

	return goose.UpContext(ctx, db, ".")
}

// Open opens (creating if necessary) the local database at dsn, applies
// migrations, and returns the repositories plus the raw handle for
// transaction composition.
func Open(ctx context.Context, dsn string) (*Repositories, *sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}

	// WAL lets readers proceed while the sync goroutine writes;
	// busy_timeout serializes concurrent writers instead of failing them.
	for _, pragma := range []string{
		`PRAGMA journal_mode = WAL`,
		`PRAGMA busy_timeout = 5000`,
		`PRAGMA foreign_keys = ON`,
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("apply pragma: %w", err)
		}
	}

	if err := RunMigrations(ctx, db); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("run migrations: %w", err)
	}

	repos := &Repositories{
		Reports:   reports.NewSQLiteRepository(db),
		Notes:     notes.NewSQLiteRepository(db),
		Reference: reference.NewSQLiteRepository(db),
		Metadata:  metadata.NewSQLiteRepository(db),
	}
	return repos, db, nil
}
