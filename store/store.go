package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/RyanBlaney/sonido-key/algorithms/chroma"
	"github.com/RyanBlaney/sonido-key/algorithms/tonal"
	"github.com/RyanBlaney/sonido-key/logging"
)

var ErrNotFound = errors.New("analysis not found")

const schema = `
CREATE TABLE IF NOT EXISTS analyses (
	id          TEXT PRIMARY KEY,
	path        TEXT NOT NULL,
	size        INTEGER NOT NULL,
	mod_time    INTEGER NOT NULL,
	config_key  TEXT NOT NULL,
	key_name    TEXT NOT NULL,
	histogram   TEXT NOT NULL,
	windows     INTEGER NOT NULL,
	expected    INTEGER NOT NULL,
	sample_rate INTEGER NOT NULL,
	channels    INTEGER NOT NULL,
	duration    INTEGER NOT NULL,
	created_at  INTEGER NOT NULL,
	UNIQUE (path, size, mod_time, config_key)
);
CREATE INDEX IF NOT EXISTS idx_analyses_path ON analyses(path);
`

// Fingerprint identifies one version of a file analysed with one set of
// settings
type Fingerprint struct {
	Path     string
	Size     int64
	ModTime  time.Time
	CacheKey string
}

// FingerprintFile stats path and pairs it with cacheKey
func FingerprintFile(path, cacheKey string) (Fingerprint, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return Fingerprint{}, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return Fingerprint{}, err
	}
	return Fingerprint{
		Path:     abs,
		Size:     info.Size(),
		ModTime:  info.ModTime(),
		CacheKey: cacheKey,
	}, nil
}

// Record is a stored analysis result. Windows counts the windows
// processed, Expected the count estimated before averaging.
type Record struct {
	ID          string
	Fingerprint Fingerprint
	Key         tonal.KeyEstimate
	Histogram   chroma.PitchHistogram
	Windows     int
	Expected    int
	SampleRate  int
	Channels    int
	Duration    time.Duration
	CreatedAt   time.Time
}

// Store caches analysis results in a SQLite database
type Store struct {
	db     *sql.DB
	logger logging.Logger
}

// Open opens or creates the database at path
func Open(ctx context.Context, path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	return &Store{
		db: db,
		logger: logging.WithFields(logging.Fields{
			"component": "result_store",
			"database":  path,
		}),
	}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// Lookup returns the record stored for fp, or ErrNotFound
func (s *Store) Lookup(ctx context.Context, fp Fingerprint) (*Record, error) {
	const query = `SELECT id, key_name, histogram, windows, expected, sample_rate, channels,
		duration, created_at FROM analyses
		WHERE path = ? AND size = ? AND mod_time = ? AND config_key = ?`

	var (
		rec       = Record{Fingerprint: fp}
		keyName   string
		histogram string
		duration  int64
		createdAt int64
	)

	err := s.db.QueryRowContext(ctx, query, fp.Path, fp.Size, fp.ModTime.UnixNano(), fp.CacheKey).
		Scan(&rec.ID, &keyName, &histogram, &rec.Windows, &rec.Expected, &rec.SampleRate,
			&rec.Channels, &duration, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query analysis: %w", err)
	}

	if rec.Key, err = tonal.ParseKey(keyName); err != nil {
		return nil, fmt.Errorf("corrupt analysis %s: %w", rec.ID, err)
	}
	if err := json.Unmarshal([]byte(histogram), &rec.Histogram); err != nil {
		return nil, fmt.Errorf("corrupt analysis %s: %w", rec.ID, err)
	}
	rec.Duration = time.Duration(duration)
	rec.CreatedAt = time.Unix(0, createdAt)

	s.logger.Debug("Cache hit", logging.Fields{
		"id":   rec.ID,
		"path": fp.Path,
	})

	return &rec, nil
}

// Save stores rec, replacing any record with the same fingerprint
func (s *Store) Save(ctx context.Context, rec *Record) error {
	histogram, err := json.Marshal(rec.Histogram)
	if err != nil {
		return fmt.Errorf("failed to encode histogram: %w", err)
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}

	const stmt = `INSERT OR REPLACE INTO analyses
		(id, path, size, mod_time, config_key, key_name, histogram, windows, expected,
		sample_rate, channels, duration, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	fp := rec.Fingerprint
	_, err = s.db.ExecContext(ctx, stmt,
		rec.ID, fp.Path, fp.Size, fp.ModTime.UnixNano(), fp.CacheKey,
		rec.Key.String(), string(histogram), rec.Windows, rec.Expected,
		rec.SampleRate, rec.Channels, int64(rec.Duration), rec.CreatedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("failed to save analysis: %w", err)
	}

	s.logger.Debug("Analysis saved", logging.Fields{
		"id":   rec.ID,
		"path": fp.Path,
		"key":  rec.Key.String(),
	})

	return nil
}
