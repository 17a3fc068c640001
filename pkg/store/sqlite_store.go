package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/chazu/volgrad/pkg/gradient"
	"github.com/chazu/volgrad/pkg/volume"
	_ "modernc.org/sqlite" // register pure-Go SQLite driver
)

// ErrNotFound is returned by Load and Delete for unknown keys.
var ErrNotFound = errors.New("store: field not found")

const fieldsSchema = `
CREATE TABLE IF NOT EXISTS gradient_fields (
    key           TEXT PRIMARY KEY,
    dim_x         INTEGER NOT NULL,
    dim_y         INTEGER NOT NULL,
    dim_z         INTEGER NOT NULL,
    mode          TEXT NOT NULL,
    min_magnitude REAL NOT NULL,
    max_magnitude REAL NOT NULL,
    voxels        BLOB NOT NULL,
    created_at    INTEGER NOT NULL
);
`

// Open opens a SQLite database using the modernc.org/sqlite driver.
// Use ":memory:" for an in-memory database; it is pinned to a single
// connection because every connection would otherwise see its own database.
func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if dsn == ":memory:" {
		db.SetMaxOpenConns(1)
	}
	return db, nil
}

// EnsureSchema creates the gradient_fields table if it does not already exist.
func EnsureSchema(db *sql.DB) error {
	_, err := db.Exec(fieldsSchema)
	return err
}

// Entry describes a cached field without its voxel payload.
type Entry struct {
	Key          string
	Dims         volume.Dims
	Mode         gradient.Mode
	MinMagnitude float64
	MaxMagnitude float64
	CreatedAt    time.Time
}

// SQLiteStore keeps gradient field snapshots in a SQLite database.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteStore creates a new SQLite-backed store and ensures its schema
// exists in the provided database.
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	if db == nil {
		return nil, fmt.Errorf("store: db is nil")
	}
	if err := EnsureSchema(db); err != nil {
		return nil, fmt.Errorf("store: ensure schema: %w", err)
	}
	return &SQLiteStore{db: db, now: time.Now}, nil
}

// Save stores f under key, replacing any previous snapshot.
func (s *SQLiteStore) Save(ctx context.Context, key string, f *gradient.Field) error {
	if key == "" {
		return fmt.Errorf("store: key must be set")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	d := f.Dims()
	_, err := s.db.ExecContext(ctx, `INSERT INTO gradient_fields
    (key, dim_x, dim_y, dim_z, mode, min_magnitude, max_magnitude, voxels, created_at)
    VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
    ON CONFLICT(key) DO UPDATE SET
        dim_x = excluded.dim_x, dim_y = excluded.dim_y, dim_z = excluded.dim_z,
        mode = excluded.mode,
        min_magnitude = excluded.min_magnitude, max_magnitude = excluded.max_magnitude,
        voxels = excluded.voxels, created_at = excluded.created_at`,
		key, d.X, d.Y, d.Z, f.Mode.String(), f.MinMagnitude(), f.MaxMagnitude(),
		EncodeVoxels(f.Voxels()), s.now().UnixNano())
	if err != nil {
		return fmt.Errorf("store: save %q: %w", key, err)
	}
	return nil
}

// Load restores the field stored under key, including its interpolation mode.
func (s *SQLiteStore) Load(ctx context.Context, key string) (*gradient.Field, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	var (
		d    volume.Dims
		mode string
		blob []byte
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT dim_x, dim_y, dim_z, mode, voxels FROM gradient_fields WHERE key = ?`, key).
		Scan(&d.X, &d.Y, &d.Z, &mode, &blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("store: load %q: %w", key, err)
	}

	voxels, err := DecodeVoxels(blob)
	if err != nil {
		return nil, err
	}
	f, err := gradient.FromVoxels(d, voxels)
	if err != nil {
		return nil, fmt.Errorf("store: load %q: %w", key, err)
	}
	m, err := gradient.ParseMode(mode)
	if err != nil {
		return nil, fmt.Errorf("store: load %q: %w", key, err)
	}
	f.Mode = m
	return f, nil
}

// List returns all cached entries ordered by key.
func (s *SQLiteStore) List(ctx context.Context) ([]Entry, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	rows, err := s.db.QueryContext(ctx, `SELECT key, dim_x, dim_y, dim_z, mode, min_magnitude, max_magnitude, created_at
    FROM gradient_fields ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("store: list: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e       Entry
			mode    string
			created int64
		)
		if err := rows.Scan(&e.Key, &e.Dims.X, &e.Dims.Y, &e.Dims.Z, &mode, &e.MinMagnitude, &e.MaxMagnitude, &created); err != nil {
			return nil, fmt.Errorf("store: list: %w", err)
		}
		if e.Mode, err = gradient.ParseMode(mode); err != nil {
			return nil, fmt.Errorf("store: list %q: %w", e.Key, err)
		}
		e.CreatedAt = time.Unix(0, created)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: list: %w", err)
	}
	return out, nil
}

// Delete removes the snapshot stored under key.
func (s *SQLiteStore) Delete(ctx context.Context, key string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM gradient_fields WHERE key = ?`, key)
	if err != nil {
		return fmt.Errorf("store: delete %q: %w", key, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: delete %q: %w", key, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %q", ErrNotFound, key)
	}
	return nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
