package stores

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stackup-io/stackup/pkg/engine"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(Config{Path: filepath.Join(t.TempDir(), "test.db")})
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	if err := store.Init(context.Background()); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSQLiteStore_RequiresPath(t *testing.T) {
	if _, err := NewSQLiteStore(Config{}); err == nil {
		t.Fatal("Expected error for empty path")
	}
}

func TestSQLiteStore_InstalledState(t *testing.T) {
	store := newTestStore(t)

	installed, err := store.IsInstalled("core-infra")
	if err != nil {
		t.Fatalf("IsInstalled failed: %v", err)
	}
	if installed {
		t.Error("Expected not installed initially")
	}

	if err := store.MarkInstalled("core-infra"); err != nil {
		t.Fatalf("MarkInstalled failed: %v", err)
	}
	// Upsert: marking twice must not fail.
	if err := store.MarkInstalled("core-infra"); err != nil {
		t.Fatalf("Second MarkInstalled failed: %v", err)
	}

	installed, _ = store.IsInstalled("core-infra")
	if !installed {
		t.Error("Expected installed after marking")
	}

	if err := store.ClearInstalled("core-infra"); err != nil {
		t.Fatalf("ClearInstalled failed: %v", err)
	}
	installed, _ = store.IsInstalled("core-infra")
	if installed {
		t.Error("Expected not installed after clearing")
	}
}

func TestSQLiteStore_RecordAndGetRun(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	started := time.Now().Add(-time.Minute)
	report := &engine.RunReport{
		RunID:       "run-1",
		Plan:        engine.Plan{Components: []string{"a", "b", "c"}},
		StartedAt:   started,
		CompletedAt: time.Now(),
		Failed:      "b",
		Results: []engine.ComponentResult{
			{ComponentID: "a", Status: engine.StatusInstalled, Duration: 1200 * time.Millisecond},
			{ComponentID: "b", Status: engine.StatusFailed, Duration: 300 * time.Millisecond,
				Err: errors.New("compose up failed")},
			{ComponentID: "c", Status: engine.StatusPending},
		},
	}

	if err := store.RecordRun(ctx, report); err != nil {
		t.Fatalf("RecordRun failed: %v", err)
	}

	run, err := store.GetRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if run.FailedComponent != "b" {
		t.Errorf("Expected failed component b, got %q", run.FailedComponent)
	}
	if run.Total != 3 || run.Installed != 1 || run.Failed != 1 || run.Pending != 1 {
		t.Errorf("Unexpected counts: %+v", run)
	}

	comps, err := store.ListRunComponents(ctx, "run-1")
	if err != nil {
		t.Fatalf("ListRunComponents failed: %v", err)
	}
	if len(comps) != 3 {
		t.Fatalf("Expected 3 component records, got %d", len(comps))
	}
	if comps[0].ComponentID != "a" || comps[1].ComponentID != "b" || comps[2].ComponentID != "c" {
		t.Errorf("Component records out of plan order: %+v", comps)
	}
	if comps[1].Error == "" {
		t.Error("Expected error message recorded for failed component")
	}
	if comps[0].Duration != 1200*time.Millisecond {
		t.Errorf("Expected duration preserved, got %s", comps[0].Duration)
	}
}

func TestSQLiteStore_GetRun_NotFound(t *testing.T) {
	store := newTestStore(t)
	if _, err := store.GetRun(context.Background(), "missing"); err == nil {
		t.Fatal("Expected error for missing run")
	}
}

func TestSQLiteStore_ListRuns_NewestFirst(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for i, id := range []string{"run-old", "run-new"} {
		report := &engine.RunReport{
			RunID:       id,
			StartedAt:   time.Now().Add(time.Duration(i) * time.Hour),
			CompletedAt: time.Now().Add(time.Duration(i)*time.Hour + time.Minute),
		}
		if err := store.RecordRun(ctx, report); err != nil {
			t.Fatalf("RecordRun failed: %v", err)
		}
	}

	runs, err := store.ListRuns(ctx, 10, 0)
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("Expected 2 runs, got %d", len(runs))
	}
	if runs[0].ID != "run-new" {
		t.Errorf("Expected newest run first, got %s", runs[0].ID)
	}
}

func TestSQLiteStore_Events(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.RecordRun(ctx, &engine.RunReport{
		RunID: "run-1", StartedAt: time.Now(), CompletedAt: time.Now(),
	}); err != nil {
		t.Fatalf("RecordRun failed: %v", err)
	}

	for _, msg := range []string{"first", "second"} {
		if err := store.AppendEvent(ctx, &Event{
			RunID:   "run-1",
			Level:   EventLevelInfo,
			Message: msg,
		}); err != nil {
			t.Fatalf("AppendEvent failed: %v", err)
		}
	}

	events, err := store.ListEvents(ctx, "run-1", 10)
	if err != nil {
		t.Fatalf("ListEvents failed: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("Expected 2 events, got %d", len(events))
	}
	if events[0].Message != "first" || events[1].Message != "second" {
		t.Errorf("Events out of order: %+v", events)
	}
}

func TestSQLiteStore_HealthCheck(t *testing.T) {
	store := newTestStore(t)
	if err := store.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck failed: %v", err)
	}

	uninitialized := &SQLiteStore{}
	if err := uninitialized.HealthCheck(context.Background()); err == nil {
		t.Error("Expected error for uninitialized store")
	}
}

func TestSQLiteStore_MigrationsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	for i := 0; i < 2; i++ {
		store, err := NewSQLiteStore(Config{Path: path})
		if err != nil {
			t.Fatalf("NewSQLiteStore failed: %v", err)
		}
		if err := store.Init(context.Background()); err != nil {
			t.Fatalf("Init #%d failed: %v", i+1, err)
		}
		_ = store.Close()
	}
}
