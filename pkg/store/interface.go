package store

import (
	"github.com/dmarquez/rlaunch/pkg/models"
)

// Store defines the interface for launch history persistence
// Both SQLite and the in-memory store implement this interface
type Store interface {
	// RecordLaunch inserts a new launch in running state
	RecordLaunch(record *models.LaunchRecord) error

	// FinishLaunch records the trainer's exit for a launch
	FinishLaunch(id string, status models.LaunchStatus, exitCode int, exitReason string) error

	// GetLaunch retrieves one launch by id
	GetLaunch(id string) (*models.LaunchRecord, error)

	// ListLaunches returns the most recent launches, newest first
	ListLaunches(limit int) ([]*models.LaunchRecord, error)

	// Lifecycle
	Close() error
	HealthCheck() error
}

// Config holds history database configuration
type Config struct {
	Type string // "sqlite" or "memory"
	Path string // SQLite database path
}

// NewStore creates a store based on configuration
func NewStore(config Config) (Store, error) {
	switch config.Type {
	case "memory":
		return NewMemoryStore(), nil
	case "sqlite", "":
		path := config.Path
		if path == "" {
			path = "rlaunch.db"
		}
		return NewSQLiteStore(path)
	default:
		return nil, ErrUnsupportedDatabase
	}
}

var ErrUnsupportedDatabase = NewError("unsupported database type")

// ErrNotFound is returned when a launch id does not exist
var ErrNotFound = NewError("launch not found")

// NewError creates a new error with message
func NewError(message string) error {
	return &storeError{message: message}
}

type storeError struct {
	message string
}

func (e *storeError) Error() string {
	return e.message
}
