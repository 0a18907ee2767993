// Package store creates the gravity.db SQLite database consumed by Pi-hole.
package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

// FileName is the name of the database file inside the target directory.
const FileName = "gravity.db"

// archiveDateLayout formats the suffix appended to rotated databases.
const archiveDateLayout = "2006-01-02"

//go:embed schema.sql
var embeddedSchema string

var (
	// ErrSchemaNotFound is returned when the schema definition cannot be read.
	ErrSchemaNotFound = errors.New("database schema not found")
	// ErrInit is returned when the database cannot be rotated or created.
	ErrInit = errors.New("database initialisation failed")
	// ErrWrite is returned when rows cannot be written to the database.
	ErrWrite = errors.New("database write failed")
)

// Store is an open gravity database.
type Store struct {
	db   *sql.DB
	path string
}

// Counts holds the number of rows in the tables populated from gravity.yaml.
type Counts struct {
	Groups      int
	Adlists     int
	Memberships int
}

// LoadSchema returns the schema SQL. An empty path selects the built-in schema.
func LoadSchema(path string) (string, error) {
	if path == "" {
		return embeddedSchema, nil
	}
	data, err := os.ReadFile(path) // #nosec G304 -- path is provided via flags.
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrSchemaNotFound, err)
	}
	return string(data), nil
}

// ArchivePath returns the name a database at path is rotated to on the given day.
func ArchivePath(path string, now time.Time) string {
	return path + ".old-" + now.Format(archiveDateLayout)
}

// Rotate moves an existing database at path out of the way and returns the
// archive location, or an empty string when there was nothing to rotate.
// An archive from earlier the same day is overwritten.
func Rotate(path string, now time.Time) (string, error) {
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("%w: stat %s: %w", ErrInit, path, err)
	}
	if !info.Mode().IsRegular() {
		return "", fmt.Errorf("%w: %s is not a regular file", ErrInit, path)
	}

	archive := ArchivePath(path, now)
	if err := os.Rename(path, archive); err != nil {
		return "", fmt.Errorf("%w: archive %s: %w", ErrInit, path, err)
	}
	return archive, nil
}

// Create opens a new database at path and applies schema to it.
func Create(path string, schema string) (*Store, error) {
	// Foreign keys are enabled per connection through the DSN.
	db, err := sql.Open("sqlite", path+"?_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("%w: opening database: %w", ErrInit, err)
	}
	// A single connection keeps ":memory:" databases intact and serialises writers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: applying schema: %w", ErrInit, err)
	}

	return &Store{db: db, path: path}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// BeginTx starts a transaction on the database.
func (s *Store) BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error) {
	return s.db.BeginTx(ctx, opts)
}

// Counts returns the row counts of the group, adlist and adlist_by_group tables.
func (s *Store) Counts(ctx context.Context) (Counts, error) {
	var c Counts
	queries := []struct {
		query string
		dest  *int
	}{
		{`SELECT COUNT(*) FROM "group"`, &c.Groups},
		{`SELECT COUNT(*) FROM adlist`, &c.Adlists},
		{`SELECT COUNT(*) FROM adlist_by_group`, &c.Memberships},
	}
	for _, q := range queries {
		if err := s.db.QueryRowContext(ctx, q.query).Scan(q.dest); err != nil {
			return Counts{}, fmt.Errorf("counting rows: %w", err)
		}
	}
	return c, nil
}

// Initializer prepares a fresh database in a target directory.
type Initializer struct {
	// SchemaPath overrides the built-in schema when set.
	SchemaPath string
	// Now returns the current time, used for the archive suffix.
	Now func() time.Time
	Log *slog.Logger
}

// Initialize archives any database in dir and creates a new, empty one.
// The schema is resolved first so a missing schema leaves the old database alone.
func (i *Initializer) Initialize(dir string) (*Store, error) {
	log := i.Log
	if log == nil {
		log = slog.Default()
	}
	now := time.Now
	if i.Now != nil {
		now = i.Now
	}

	schema, err := LoadSchema(i.SchemaPath)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("%w: creating database directory: %w", ErrInit, err)
	}

	path := filepath.Join(dir, FileName)
	archive, err := Rotate(path, now())
	if err != nil {
		return nil, err
	}
	if archive != "" {
		log.Info("archived previous database", "path", path, "archive", archive)
	}

	s, err := Create(path, schema)
	if err != nil {
		return nil, err
	}
	log.Debug("created database", "path", path)
	return s, nil
}
