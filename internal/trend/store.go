// Package trend persists per-commit metric samples so advisory gates can
// compare a run against the history of the branch instead of a fixed
// threshold.
package trend

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Sample is one recorded metric value for a commit.
type Sample struct {
	Metric     string    `json:"metric"`
	Commit     string    `json:"commit"`
	Branch     string    `json:"branch"`
	Value      float64   `json:"value"`
	RecordedAt time.Time `json:"recordedAt"`
}

// Store provides persistence for metric samples in a SQLite database
// under the tool's state directory.
type Store struct {
	conn   *sql.DB
	logger *slog.Logger
	dbPath string
}

// OpenStore opens or creates the trend database at <stateDir>/trends.db.
func OpenStore(stateDir string, logger *slog.Logger) (*Store, error) {
	if err := os.MkdirAll(stateDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}

	dbPath := filepath.Join(stateDir, "trends.db")
	dbExists := fileExists(dbPath)

	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open trend database: %w", err)
	}

	// Set pragmas for performance
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}

	for _, pragma := range pragmas {
		if _, err := conn.Exec(pragma); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	store := &Store{
		conn:   conn,
		logger: logger,
		dbPath: dbPath,
	}

	if !dbExists {
		logger.Debug("creating trend database", "path", dbPath)
	}
	if err := store.initializeSchema(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to initialize trend schema: %w", err)
	}

	return store, nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func (s *Store) initializeSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS samples (
			metric TEXT NOT NULL,
			commit_hash TEXT NOT NULL,
			branch TEXT NOT NULL,
			value REAL NOT NULL,
			recorded_at TEXT NOT NULL,
			PRIMARY KEY (metric, commit_hash)
		);
		CREATE INDEX IF NOT EXISTS idx_samples_metric_time ON samples(metric, recorded_at DESC);

		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY
		);
		INSERT OR REPLACE INTO schema_version (version) VALUES (1);
	`

	_, err := s.conn.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}

// Record inserts or replaces the sample for its metric and commit.
// Re-running the gates on the same commit overwrites the previous value
// so amended runs do not pollute the history.
func (s *Store) Record(sample Sample) error {
	_, err := s.conn.Exec(`
		INSERT OR REPLACE INTO samples (metric, commit_hash, branch, value, recorded_at)
		VALUES (?, ?, ?, ?, ?)
	`,
		sample.Metric,
		sample.Commit,
		sample.Branch,
		sample.Value,
		sample.RecordedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to record sample: %w", err)
	}

	s.logger.Debug("recorded trend sample",
		"metric", sample.Metric,
		"commit", sample.Commit,
		"value", sample.Value,
	)

	return nil
}

// Last returns the most recently recorded sample for a metric, or nil
// if the metric has no history yet.
func (s *Store) Last(metric string) (*Sample, error) {
	row := s.conn.QueryRow(`
		SELECT metric, commit_hash, branch, value, recorded_at
		FROM samples WHERE metric = ?
		ORDER BY recorded_at DESC
		LIMIT 1
	`, metric)

	sample, err := scanSample(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query last sample: %w", err)
	}
	return sample, nil
}

// Get returns the sample recorded for a metric at an exact commit, or
// nil if that commit was never measured.
func (s *Store) Get(metric, commit string) (*Sample, error) {
	row := s.conn.QueryRow(`
		SELECT metric, commit_hash, branch, value, recorded_at
		FROM samples WHERE metric = ? AND commit_hash = ?
	`, metric, commit)

	sample, err := scanSample(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query sample for commit: %w", err)
	}
	return sample, nil
}

// LastForBranch returns the most recent sample recorded on a branch, or
// nil if the branch has no history for the metric.
func (s *Store) LastForBranch(metric, branch string) (*Sample, error) {
	row := s.conn.QueryRow(`
		SELECT metric, commit_hash, branch, value, recorded_at
		FROM samples WHERE metric = ? AND branch = ?
		ORDER BY recorded_at DESC
		LIMIT 1
	`, metric, branch)

	sample, err := scanSample(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query last branch sample: %w", err)
	}
	return sample, nil
}

// History returns up to limit samples for a metric, newest first.
func (s *Store) History(metric string, limit int) ([]Sample, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 500 {
		limit = 500
	}

	rows, err := s.conn.Query(`
		SELECT metric, commit_hash, branch, value, recorded_at
		FROM samples WHERE metric = ?
		ORDER BY recorded_at DESC
		LIMIT ?
	`, metric, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query sample history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var samples []Sample
	for rows.Next() {
		sample, err := scanSample(rows)
		if err != nil {
			return nil, err
		}
		samples = append(samples, *sample)
	}

	return samples, rows.Err()
}

// Metrics lists the distinct metric names that have recorded samples.
func (s *Store) Metrics() ([]string, error) {
	rows, err := s.conn.Query("SELECT DISTINCT metric FROM samples ORDER BY metric")
	if err != nil {
		return nil, fmt.Errorf("failed to list metrics: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var metrics []string
	for rows.Next() {
		var m string
		if err := rows.Scan(&m); err != nil {
			return nil, err
		}
		metrics = append(metrics, m)
	}

	return metrics, rows.Err()
}

// Prune removes samples older than the given retention window and
// returns the number removed.
func (s *Store) Prune(retention time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-retention).Format(time.RFC3339)

	result, err := s.conn.Exec("DELETE FROM samples WHERE recorded_at < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune samples: %w", err)
	}

	return result.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSample(row rowScanner) (*Sample, error) {
	var sample Sample
	var recordedAt string

	err := row.Scan(
		&sample.Metric,
		&sample.Commit,
		&sample.Branch,
		&sample.Value,
		&recordedAt,
	)
	if err != nil {
		return nil, err
	}

	if t, err := time.Parse(time.RFC3339, recordedAt); err == nil {
		sample.RecordedAt = t
	}

	return &sample, nil
}
