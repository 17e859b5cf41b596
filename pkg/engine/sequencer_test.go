package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
)

// recordingAction counts invocations and optionally fails.
type recordingAction struct {
	mu    sync.Mutex
	calls int
	fail  error
}

func (a *recordingAction) Install(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls++
	return a.fail
}

func (a *recordingAction) Calls() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calls
}

// failingStore returns an error from every method.
type failingStore struct{}

func (failingStore) IsInstalled(string) (bool, error) { return false, errors.New("disk gone") }
func (failingStore) MarkInstalled(string) error       { return errors.New("disk gone") }
func (failingStore) ClearInstalled(string) error      { return errors.New("disk gone") }

// captureRecorder keeps the last recorded report.
type captureRecorder struct {
	report *RunReport
}

func (c *captureRecorder) RecordRun(_ context.Context, report *RunReport) error {
	c.report = report
	return nil
}

func newTestRegistry(t *testing.T, actions map[string]*recordingAction) *Registry {
	t.Helper()
	r := NewRegistry()
	register := func(id string, deps ...string) {
		if actions[id] == nil {
			actions[id] = &recordingAction{}
		}
		if err := r.Register(Component{ID: id, DependsOn: deps, Action: actions[id]}); err != nil {
			t.Fatalf("Register(%s) failed: %v", id, err)
		}
	}
	register("a")
	register("b", "a")
	register("c", "a")
	return r
}

func TestSequencer_Run_InstallsInOrder(t *testing.T) {
	actions := map[string]*recordingAction{}
	r := newTestRegistry(t, actions)
	state := NewMemoryStore()
	seq := NewSequencer(r, state, nil)

	plan, err := r.Resolve([]string{"b", "c"})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	report, err := seq.Run(context.Background(), plan, RunOptions{})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	for _, id := range []string{"a", "b", "c"} {
		if actions[id].Calls() != 1 {
			t.Errorf("Expected 1 call for %s, got %d", id, actions[id].Calls())
		}
		installed, _ := state.IsInstalled(id)
		if !installed {
			t.Errorf("Expected %s marked installed", id)
		}
	}
	installed, skipped, failed, pending := report.Counts()
	if installed != 3 || skipped != 0 || failed != 0 || pending != 0 {
		t.Errorf("Unexpected counts: installed=%d skipped=%d failed=%d pending=%d",
			installed, skipped, failed, pending)
	}
}

func TestSequencer_Run_SkipsInstalledUnlessForced(t *testing.T) {
	actions := map[string]*recordingAction{}
	r := newTestRegistry(t, actions)
	state := NewMemoryStore()
	_ = state.MarkInstalled("a")
	seq := NewSequencer(r, state, nil)

	plan, _ := r.Resolve([]string{"a"})

	if _, err := seq.Run(context.Background(), plan, RunOptions{}); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if actions["a"].Calls() != 0 {
		t.Errorf("Expected skip, action ran %d time(s)", actions["a"].Calls())
	}

	if _, err := seq.Run(context.Background(), plan, RunOptions{Force: true}); err != nil {
		t.Fatalf("Forced run failed: %v", err)
	}
	if actions["a"].Calls() != 1 {
		t.Errorf("Expected forced re-run, got %d call(s)", actions["a"].Calls())
	}
}

func TestSequencer_Run_DependencyNotSatisfied(t *testing.T) {
	actions := map[string]*recordingAction{}
	r := newTestRegistry(t, actions)
	state := NewMemoryStore()
	seq := NewSequencer(r, state, nil)

	// Plan naming b directly while a is absent from state: neither runs.
	plan := Plan{Components: []string{"b"}}

	_, err := seq.Run(context.Background(), plan, RunOptions{})
	if err == nil {
		t.Fatal("Expected dependency error")
	}
	if !IsKind(err, KindDependencyNotSatisfied) {
		t.Errorf("Expected KindDependencyNotSatisfied, got %s", KindOf(err))
	}
	if actions["a"].Calls() != 0 || actions["b"].Calls() != 0 {
		t.Errorf("Expected no actions executed, got a=%d b=%d",
			actions["a"].Calls(), actions["b"].Calls())
	}
}

func TestSequencer_Run_FailFast(t *testing.T) {
	// a succeeds, b fails, c never executes; a stays installed, b and c
	// have no marker.
	actions := map[string]*recordingAction{
		"b": {fail: errors.New("compose up failed")},
	}
	r := newTestRegistry(t, actions)
	state := NewMemoryStore()
	seq := NewSequencer(r, state, nil)

	plan, _ := r.Resolve([]string{"b", "c"})

	report, err := seq.Run(context.Background(), plan, RunOptions{})
	if err == nil {
		t.Fatal("Expected run error")
	}
	if !IsKind(err, KindActionFailure) {
		t.Errorf("Expected KindActionFailure, got %s", KindOf(err))
	}
	if got := ComponentOf(err); got != "b" {
		t.Errorf("Expected failing component b, got %q", got)
	}
	if report.Failed != "b" {
		t.Errorf("Expected report.Failed=b, got %q", report.Failed)
	}

	if actions["c"].Calls() != 0 {
		t.Errorf("Expected c never executed, got %d call(s)", actions["c"].Calls())
	}
	if installed, _ := state.IsInstalled("a"); !installed {
		t.Error("Expected a marked installed")
	}
	for _, id := range []string{"b", "c"} {
		if installed, _ := state.IsInstalled(id); installed {
			t.Errorf("Expected %s not installed", id)
		}
	}

	statuses := map[string]ComponentStatus{}
	for _, res := range report.Results {
		statuses[res.ComponentID] = res.Status
	}
	if statuses["a"] != StatusInstalled || statuses["b"] != StatusFailed || statuses["c"] != StatusPending {
		t.Errorf("Unexpected statuses: %v", statuses)
	}
}

func TestSequencer_Run_ResumesAfterPartialFailure(t *testing.T) {
	actions := map[string]*recordingAction{
		"b": {fail: errors.New("transient install failure")},
	}
	r := newTestRegistry(t, actions)
	state := NewMemoryStore()
	seq := NewSequencer(r, state, nil)

	plan, _ := r.Resolve([]string{"b", "c"})

	if _, err := seq.Run(context.Background(), plan, RunOptions{}); err == nil {
		t.Fatal("Expected first run to fail")
	}

	// Clear the failure and re-run the same plan without force: a is
	// skipped, b retried, c installed.
	actions["b"].fail = nil
	if _, err := seq.Run(context.Background(), plan, RunOptions{}); err != nil {
		t.Fatalf("Second run failed: %v", err)
	}

	if actions["a"].Calls() != 1 {
		t.Errorf("Expected a executed once across both runs, got %d", actions["a"].Calls())
	}
	if actions["b"].Calls() != 2 {
		t.Errorf("Expected b executed twice, got %d", actions["b"].Calls())
	}
	if actions["c"].Calls() != 1 {
		t.Errorf("Expected c executed once, got %d", actions["c"].Calls())
	}
}

func TestSequencer_Run_StateStoreFailure(t *testing.T) {
	actions := map[string]*recordingAction{}
	r := newTestRegistry(t, actions)
	seq := NewSequencer(r, failingStore{}, nil)

	plan, _ := r.Resolve([]string{"a"})

	_, err := seq.Run(context.Background(), plan, RunOptions{})
	if !IsKind(err, KindStateStore) {
		t.Errorf("Expected KindStateStore, got %v", err)
	}
}

func TestSequencer_Run_CancelledContext(t *testing.T) {
	actions := map[string]*recordingAction{}
	r := newTestRegistry(t, actions)
	seq := NewSequencer(r, NewMemoryStore(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	plan, _ := r.Resolve([]string{"a"})
	if _, err := seq.Run(ctx, plan, RunOptions{}); err == nil {
		t.Fatal("Expected error from cancelled context")
	}
	if actions["a"].Calls() != 0 {
		t.Errorf("Expected no execution after cancel, got %d", actions["a"].Calls())
	}
}

func TestSequencer_Run_RecordsHistory(t *testing.T) {
	actions := map[string]*recordingAction{}
	r := newTestRegistry(t, actions)
	recorder := &captureRecorder{}
	seq := NewSequencer(r, NewMemoryStore(), nil).WithRecorder(recorder)

	plan, _ := r.Resolve([]string{"b"})
	report, err := seq.Run(context.Background(), plan, RunOptions{})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if recorder.report == nil {
		t.Fatal("Expected recorded report")
	}
	if recorder.report.RunID != report.RunID {
		t.Errorf("Recorded run ID %s does not match %s", recorder.report.RunID, report.RunID)
	}
}
