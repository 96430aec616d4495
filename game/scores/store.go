// Package scores keeps the board of finished runs in SQLite. It uses the
// pure-Go modernc.org/sqlite driver so the binary stays CGO free.
package scores

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/wricardo/resource-rush/game/service"
)

// ErrNilRun is returned when SaveRun is called without a record
var ErrNilRun = errors.New("scores: nil run")

// Store manages the SQLite database holding finished runs
type Store struct {
	db *sql.DB
}

var _ service.ScoreBoard = (*Store)(nil)

// Open creates or opens the score database at dbPath, creating parent
// directories and the schema as needed. A leading ~ expands to the home
// directory.
func Open(dbPath string) (*Store, error) {
	if dbPath != "" && dbPath[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("scores: cannot expand home directory: %w", err)
		}
		dbPath = filepath.Join(home, dbPath[1:])
	}

	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("scores: cannot create directory %s: %w", dir, err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("scores: cannot open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("scores: cannot connect to database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("scores: migration failed: %w", err)
	}

	return store, nil
}

func (s *Store) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS runs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL UNIQUE,
			session_id TEXT NOT NULL,
			config_id TEXT NOT NULL,
			outcome TEXT NOT NULL,
			level INTEGER NOT NULL,
			max_levels INTEGER NOT NULL,
			resources INTEGER NOT NULL DEFAULT 0,
			moves INTEGER NOT NULL DEFAULT 0,
			lives INTEGER NOT NULL DEFAULT 0,
			finished_at INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_runs_config_id ON runs(config_id);
		CREATE INDEX IF NOT EXISTS idx_runs_top ON runs(config_id, level DESC, resources DESC);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// SaveRun records a finished run and sets its ID. Saving the same run id
// twice keeps the first record.
func (s *Store) SaveRun(ctx context.Context, run *service.RunRecord) error {
	if run == nil {
		return ErrNilRun
	}
	if run.FinishedAt.IsZero() {
		run.FinishedAt = time.Now()
	}

	result, err := s.db.ExecContext(ctx,
		`INSERT INTO runs
		 (run_id, session_id, config_id, outcome, level, max_levels, resources, moves, lives, finished_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(run_id) DO NOTHING`,
		run.RunID,
		run.SessionID,
		run.ConfigID,
		run.Outcome,
		run.Level,
		run.MaxLevels,
		run.Resources,
		run.Moves,
		run.Lives,
		run.FinishedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("scores: cannot save run: %w", err)
	}

	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return nil
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("scores: cannot get inserted ID: %w", err)
	}
	run.ID = id
	return nil
}

// TopRuns returns the best runs, victories first, then by level reached,
// resources collected and fewest moves. An empty configID covers every
// config.
func (s *Store) TopRuns(ctx context.Context, configID string, limit int) ([]*service.RunRecord, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, run_id, session_id, config_id, outcome, level, max_levels,
		        resources, moves, lives, finished_at
		 FROM runs
		 WHERE ? = '' OR config_id = ?
		 ORDER BY CASE outcome WHEN 'victory' THEN 0 ELSE 1 END,
		          level DESC, resources DESC, moves ASC, finished_at ASC
		 LIMIT ?`,
		configID, configID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("scores: cannot query runs: %w", err)
	}
	defer rows.Close()

	var runs []*service.RunRecord
	for rows.Next() {
		var run service.RunRecord
		var finishedAt int64
		if err := rows.Scan(
			&run.ID,
			&run.RunID,
			&run.SessionID,
			&run.ConfigID,
			&run.Outcome,
			&run.Level,
			&run.MaxLevels,
			&run.Resources,
			&run.Moves,
			&run.Lives,
			&finishedAt,
		); err != nil {
			return nil, fmt.Errorf("scores: cannot scan row: %w", err)
		}
		run.FinishedAt = time.UnixMilli(finishedAt)
		runs = append(runs, &run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("scores: row iteration error: %w", err)
	}
	return runs, nil
}

// BestLevel returns the highest level reached for a config, or 0 when no
// run has been recorded
func (s *Store) BestLevel(ctx context.Context, configID string) (int, error) {
	var level sql.NullInt64
	err := s.db.QueryRowContext(ctx,
		"SELECT MAX(level) FROM runs WHERE config_id = ?",
		configID,
	).Scan(&level)
	if err != nil {
		return 0, fmt.Errorf("scores: cannot query best level: %w", err)
	}
	if !level.Valid {
		return 0, nil
	}
	return int(level.Int64), nil
}
