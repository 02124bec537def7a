package store

import (
	"sort"
	"sync"
	"time"

	"github.com/dmarquez/rlaunch/pkg/models"
)

// MemoryStore is an in-memory implementation of the launch history store,
// used in tests and for --history-db=off runs
type MemoryStore struct {
	mu       sync.RWMutex
	launches map[string]*models.LaunchRecord
}

// NewMemoryStore creates a new in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		launches: make(map[string]*models.LaunchRecord),
	}
}

// RecordLaunch inserts a new launch in running state
func (s *MemoryStore) RecordLaunch(record *models.LaunchRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *record
	s.launches[record.ID] = &copied
	return nil
}

// FinishLaunch records the trainer's exit for a launch
func (s *MemoryStore) FinishLaunch(id string, status models.LaunchStatus, exitCode int, exitReason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.launches[id]
	if !ok {
		return ErrNotFound
	}

	now := time.Now()
	record.Status = status
	record.ExitCode = exitCode
	record.ExitReason = exitReason
	record.FinishedAt = &now
	return nil
}

// GetLaunch retrieves one launch by id
func (s *MemoryStore) GetLaunch(id string) (*models.LaunchRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.launches[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *record
	return &copied, nil
}

// ListLaunches returns the most recent launches, newest first
func (s *MemoryStore) ListLaunches(limit int) ([]*models.LaunchRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 50
	}

	records := make([]*models.LaunchRecord, 0, len(s.launches))
	for _, record := range s.launches {
		copied := *record
		records = append(records, &copied)
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].StartedAt.After(records[j].StartedAt)
	})

	if len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

// Close is a no-op for the memory store
func (s *MemoryStore) Close() error {
	return nil
}

// HealthCheck is a no-op for the memory store
func (s *MemoryStore) HealthCheck() error {
	return nil
}
