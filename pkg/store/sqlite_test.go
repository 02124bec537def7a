package store

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/dmarquez/rlaunch/pkg/models"
)

func newTestSQLite(t *testing.T) *SQLiteStore {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "history.db")
	s, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testRecord(id string, startedAt time.Time) *models.LaunchRecord {
	return &models.LaunchRecord{
		ID:           id,
		RunID:        "run-" + id,
		Engine:       "events",
		Program:      "/usr/bin/python3",
		Args:         []string{"ppo/main.py", "--run-id", "run-" + id, "--num-processes", "4"},
		RedisAddress: "10.0.0.1:6379",
		Tune:         true,
		NumProcesses: 4,
		Status:       models.LaunchStatusRunning,
		StartedAt:    startedAt,
	}
}

func TestSQLiteStore_RecordAndGet(t *testing.T) {
	s := newTestSQLite(t)

	record := testRecord("launch-1", time.Now())
	if err := s.RecordLaunch(record); err != nil {
		t.Fatalf("RecordLaunch failed: %v", err)
	}

	got, err := s.GetLaunch("launch-1")
	if err != nil {
		t.Fatalf("GetLaunch failed: %v", err)
	}
	if got.RunID != "run-launch-1" {
		t.Errorf("Expected run id run-launch-1, got %s", got.RunID)
	}
	if !reflect.DeepEqual(got.Args, record.Args) {
		t.Errorf("Args round trip mismatch: %v", got.Args)
	}
	if got.Status != models.LaunchStatusRunning {
		t.Errorf("Expected running status, got %s", got.Status)
	}
	if got.FinishedAt != nil {
		t.Error("Expected nil finished_at for a running launch")
	}
}

func TestSQLiteStore_FinishLaunch(t *testing.T) {
	s := newTestSQLite(t)

	if err := s.RecordLaunch(testRecord("launch-2", time.Now())); err != nil {
		t.Fatalf("RecordLaunch failed: %v", err)
	}
	if err := s.FinishLaunch("launch-2", models.LaunchStatusFailed, 1, "error"); err != nil {
		t.Fatalf("FinishLaunch failed: %v", err)
	}

	got, err := s.GetLaunch("launch-2")
	if err != nil {
		t.Fatalf("GetLaunch failed: %v", err)
	}
	if got.Status != models.LaunchStatusFailed {
		t.Errorf("Expected failed status, got %s", got.Status)
	}
	if got.ExitCode != 1 {
		t.Errorf("Expected exit code 1, got %d", got.ExitCode)
	}
	if got.FinishedAt == nil {
		t.Error("Expected finished_at to be set")
	}
}

func TestSQLiteStore_FinishUnknownLaunch(t *testing.T) {
	s := newTestSQLite(t)

	err := s.FinishLaunch("missing", models.LaunchStatusCompleted, 0, "success")
	if err != ErrNotFound {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestSQLiteStore_ListNewestFirst(t *testing.T) {
	s := newTestSQLite(t)

	base := time.Now().Add(-time.Hour)
	for i, id := range []string{"old", "mid", "new"} {
		if err := s.RecordLaunch(testRecord(id, base.Add(time.Duration(i)*time.Minute))); err != nil {
			t.Fatalf("RecordLaunch failed: %v", err)
		}
	}

	records, err := s.ListLaunches(2)
	if err != nil {
		t.Fatalf("ListLaunches failed: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("Expected 2 records, got %d", len(records))
	}
	if records[0].ID != "new" || records[1].ID != "mid" {
		t.Errorf("Expected newest first, got %s, %s", records[0].ID, records[1].ID)
	}
}

func TestSQLiteStore_GetUnknownLaunch(t *testing.T) {
	s := newTestSQLite(t)

	if _, err := s.GetLaunch("missing"); err != ErrNotFound {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestSQLiteStore_HealthCheck(t *testing.T) {
	s := newTestSQLite(t)

	if err := s.HealthCheck(); err != nil {
		t.Errorf("HealthCheck failed: %v", err)
	}
}

func TestNewStore_Config(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "cfg.db")

	s, err := NewStore(Config{Type: "sqlite", Path: dbPath})
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	s.Close()

	if _, err := os.Stat(dbPath); err != nil {
		t.Errorf("Expected database file at %s: %v", dbPath, err)
	}

	if _, err := NewStore(Config{Type: "oracle"}); err != ErrUnsupportedDatabase {
		t.Errorf("Expected ErrUnsupportedDatabase, got %v", err)
	}

	mem, err := NewStore(Config{Type: "memory"})
	if err != nil {
		t.Fatalf("NewStore memory failed: %v", err)
	}
	if _, ok := mem.(*MemoryStore); !ok {
		t.Errorf("Expected MemoryStore, got %T", mem)
	}
}
