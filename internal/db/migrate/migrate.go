// Package migrate runs SQL migrations from a filesystem against a
// sqlite database.
//
// Migrations are the .sql files in the root of the filesystem, ordered
// by filename. The position of a file in that order is its sequence
// number. Every applied migration is recorded in a migrations table,
// on later runs the recorded history is checked against the files
// before anything new runs. Removing or renaming an applied migration
// file is an error.
package migrate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"time"
)

var (
	// ErrNoTable indicates the migrations table does not exist.
	ErrNoTable = errors.New("migrations table does not exist")
	// ErrMigrationsMismatch indicates the recorded migration history does
	// not match the migration files that are available now.
	ErrMigrationsMismatch = errors.New("migrations mismatch")
)

// Metadata is recorded alongside every migration that runs. It has no
// effect on the migrations themselves and exists to answer "what
// version applied this" questions later.
type Metadata struct {
	AppVersion string
	Timestamp  time.Time
}

// Migration is a migration that was applied.
type Migration struct {
	// Sequence is the position of the migration, starting at 0.
	Sequence int
	Filename string
	Metadata Metadata
}

// Equal checks if two migrations are equal.
func (m Migration) Equal(other Migration) bool {
	return m.Sequence == other.Sequence &&
		m.Filename == other.Filename &&
		m.Metadata.AppVersion == other.Metadata.AppVersion &&
		m.Metadata.Timestamp.Equal(other.Metadata.Timestamp)
}

// MigrationError wraps an error that occurred while executing a
// specific migration file.
type MigrationError struct {
	Sequence int
	Filename string
	Err      error
}

func (m MigrationError) Error() string {
	return fmt.Sprintf("migration [%d] %q failed: %v", m.Sequence, m.Filename, m.Err)
}

func (m MigrationError) Unwrap() error {
	return m.Err
}

const createTableQuery = `CREATE TABLE IF NOT EXISTS migrations (
	sequence    INTEGER PRIMARY KEY,
	filename    TEXT NOT NULL,
	app_version TEXT NOT NULL,
	timestamp   TIMESTAMP NOT NULL
)
`

// RunFS applies the pending migrations from fileSys and returns the
// migrations that were applied on this run, an empty slice if there
// were none. Everything happens in a single transaction, if any
// migration fails none of them stick.
//
// Only .sql files in the root of fileSys are considered, directories
// and other files are skipped. The files are assumed to fit in memory.
func RunFS(ctx context.Context, db *sql.DB, fileSys fs.FS, meta Metadata) ([]Migration, error) {
	files, err := sqlFiles(fileSys)
	if err != nil {
		return nil, err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}

	if _, err := tx.ExecContext(ctx, createTableQuery); err != nil {
		return nil, rollback(tx, fmt.Errorf("failed to create migrations table: %w", err))
	}

	applied, err := queryWith(func(q string) (*sql.Rows, error) {
		return tx.QueryContext(ctx, q)
	})
	if err != nil {
		return nil, rollback(tx, err)
	}

	ran, err := apply(ctx, tx, applied, files, meta)
	if err != nil {
		return nil, rollback(tx, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return ran, nil
}

// QueryMigrations returns the recorded migration history of db.
// If the migrations table does not exist yet, it returns ErrNoTable.
func QueryMigrations(ctx context.Context, db *sql.DB) ([]Migration, error) {
	return queryWith(func(q string) (*sql.Rows, error) {
		return db.QueryContext(ctx, q)
	})
}

// apply checks the recorded history against the files and executes the
// files that have not run yet.
func apply(ctx context.Context, tx *sql.Tx, applied []Migration, files []sqlFile, meta Metadata) ([]Migration, error) {
	if len(applied) > len(files) {
		return nil, fmt.Errorf(
			"found %d applied migrations but only %d files: %w",
			len(applied), len(files), ErrMigrationsMismatch,
		)
	}

	for i, m := range applied {
		if m.Sequence != i {
			return nil, fmt.Errorf(
				"applied migration %d recorded with sequence %d", i, m.Sequence,
			)
		}

		if m.Filename != files[i].name {
			return nil, fmt.Errorf(
				"applied migration %d was %q, file is now %q: %w",
				i, m.Filename, files[i].name, ErrMigrationsMismatch,
			)
		}
	}

	const insertQuery = `INSERT INTO migrations (sequence, filename, app_version, timestamp) VALUES (?, ?, ?, ?)`

	ran := make([]Migration, 0, len(files)-len(applied))
	for i, f := range files[len(applied):] {
		m := Migration{
			Sequence: len(applied) + i,
			Filename: f.name,
			Metadata: meta,
		}

		if _, err := tx.ExecContext(ctx, f.content); err != nil {
			return nil, MigrationError{
				Sequence: m.Sequence,
				Filename: m.Filename,
				Err:      err,
			}
		}

		_, err := tx.ExecContext(ctx, insertQuery, m.Sequence, m.Filename, m.Metadata.AppVersion, m.Metadata.Timestamp)
		if err != nil {
			return nil, fmt.Errorf("failed to record migration: %w", err)
		}

		ran = append(ran, m)
	}

	return ran, nil
}

func queryWith(rowsFunc func(q string) (*sql.Rows, error)) ([]Migration, error) {
	const q = `SELECT sequence, filename, app_version, timestamp FROM migrations ORDER BY sequence`

	rows, err := rowsFunc(q)
	if err != nil {
		if strings.Contains(err.Error(), "no such table") {
			return nil, ErrNoTable
		}
		return nil, fmt.Errorf("failed to query migrations: %w", err)
	}
	defer rows.Close()

	migrations := make([]Migration, 0)
	for rows.Next() {
		var m Migration
		err := rows.Scan(&m.Sequence, &m.Filename, &m.Metadata.AppVersion, &m.Metadata.Timestamp)
		if err != nil {
			return nil, fmt.Errorf("failed to scan migration: %w", err)
		}

		migrations = append(migrations, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate over rows: %w", err)
	}

	return migrations, nil
}

type sqlFile struct {
	name    string
	content string
}

// sqlFiles loads the .sql files in the root of fileSys, sorted by name.
func sqlFiles(fileSys fs.FS) ([]sqlFile, error) {
	entries, err := fs.ReadDir(fileSys, ".")
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations directory: %w", err)
	}

	files := make([]sqlFile, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}

		content, err := fs.ReadFile(fileSys, entry.Name())
		if err != nil {
			return nil, fmt.Errorf("failed to read migration %q: %w", entry.Name(), err)
		}

		files = append(files, sqlFile{
			name:    entry.Name(),
			content: string(content),
		})
	}

	// ReadDir already sorts by filename, but the sequence numbers depend
	// on the order, so we do not want to rely on that implicitly.
	sort.Slice(files, func(i, j int) bool {
		return files[i].name < files[j].name
	})

	return files, nil
}

func rollback(tx *sql.Tx, err error) error {
	rErr := tx.Rollback()
	if rErr != nil {
		return errors.Join(err, rErr)
	}

	return err
}
