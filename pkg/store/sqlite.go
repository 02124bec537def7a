package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/dmarquez/rlaunch/pkg/models"
)

// SQLiteStore is a SQLite-based implementation of the launch history store
type SQLiteStore struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteStore creates a new SQLite store
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	// WAL plus a busy timeout: the exporter reads history while the run
	// command writes to it
	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=10000&_synchronous=NORMAL", dbPath)

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Serialize writes to avoid SQLITE_BUSY
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(30 * time.Minute)

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// initSchema creates the database schema
func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS launches (
		id TEXT PRIMARY KEY,
		run_id TEXT NOT NULL,
		engine TEXT NOT NULL,
		program TEXT NOT NULL,
		args TEXT NOT NULL,
		redis_address TEXT,
		tune BOOLEAN NOT NULL DEFAULT 0,
		num_processes INTEGER NOT NULL,
		status TEXT NOT NULL,
		exit_code INTEGER DEFAULT 0,
		exit_reason TEXT,
		started_at DATETIME NOT NULL,
		finished_at DATETIME
	);

	CREATE INDEX IF NOT EXISTS idx_launches_run_id ON launches(run_id);
	CREATE INDEX IF NOT EXISTS idx_launches_started_at ON launches(started_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// RecordLaunch inserts a new launch in running state
func (s *SQLiteStore) RecordLaunch(record *models.LaunchRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	args, err := json.Marshal(record.Args)
	if err != nil {
		return fmt.Errorf("failed to marshal args: %w", err)
	}

	_, err = s.db.Exec(`
		INSERT INTO launches
		(id, run_id, engine, program, args, redis_address, tune, num_processes,
		 status, exit_code, exit_reason, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, record.ID, record.RunID, record.Engine, record.Program, string(args),
		record.RedisAddress, record.Tune, record.NumProcesses, record.Status,
		record.ExitCode, record.ExitReason, record.StartedAt, record.FinishedAt)
	if err != nil {
		return fmt.Errorf("failed to record launch: %w", err)
	}
	return nil
}

// FinishLaunch records the trainer's exit for a launch
func (s *SQLiteStore) FinishLaunch(id string, status models.LaunchStatus, exitCode int, exitReason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.db.Exec(`
		UPDATE launches
		SET status = ?, exit_code = ?, exit_reason = ?, finished_at = ?
		WHERE id = ?
	`, status, exitCode, exitReason, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to finish launch: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// GetLaunch retrieves one launch by id
func (s *SQLiteStore) GetLaunch(id string) (*models.LaunchRecord, error) {
	row := s.db.QueryRow(`
		SELECT id, run_id, engine, program, args, redis_address, tune,
		       num_processes, status, exit_code, exit_reason, started_at, finished_at
		FROM launches WHERE id = ?
	`, id)

	record, err := scanLaunch(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return record, err
}

// ListLaunches returns the most recent launches, newest first
func (s *SQLiteStore) ListLaunches(limit int) ([]*models.LaunchRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.Query(`
		SELECT id, run_id, engine, program, args, redis_address, tune,
		       num_processes, status, exit_code, exit_reason, started_at, finished_at
		FROM launches
		ORDER BY started_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list launches: %w", err)
	}
	defer rows.Close()

	var records []*models.LaunchRecord
	for rows.Next() {
		record, err := scanLaunch(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanLaunch(row rowScanner) (*models.LaunchRecord, error) {
	var record models.LaunchRecord
	var argsJSON string
	var redisAddress, exitReason sql.NullString
	var finishedAt sql.NullTime

	err := row.Scan(&record.ID, &record.RunID, &record.Engine, &record.Program,
		&argsJSON, &redisAddress, &record.Tune, &record.NumProcesses,
		&record.Status, &record.ExitCode, &exitReason, &record.StartedAt, &finishedAt)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(argsJSON), &record.Args); err != nil {
		return nil, fmt.Errorf("failed to unmarshal args: %w", err)
	}
	record.RedisAddress = redisAddress.String
	record.ExitReason = exitReason.String
	if finishedAt.Valid {
		t := finishedAt.Time
		record.FinishedAt = &t
	}

	return &record, nil
}

// Close closes the database
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// HealthCheck verifies the database connection
func (s *SQLiteStore) HealthCheck() error {
	return s.db.Ping()
}
