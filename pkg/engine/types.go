package engine

import (
	"context"
	"time"
)

// Action is the side-effecting installation step of a component. Actions
// are opaque to the engine: they may run external commands, write files,
// start containers, and block on health probes. An action returning nil
// means the component is installed and its marker may be persisted.
type Action interface {
	// Install performs the component's installation.
	Install(ctx context.Context) error
}

// ActionFunc adapts a plain function to the Action interface.
type ActionFunc func(ctx context.Context) error

// Install implements Action.
func (f ActionFunc) Install(ctx context.Context) error {
	return f(ctx)
}

// Component describes one installable unit of the stack.
type Component struct {
	// ID is the unique component identifier, e.g. "core-infra".
	ID string

	// Description is a one-line human-readable summary shown by the CLI.
	Description string

	// DependsOn lists component IDs that must be installed first. Every
	// listed ID must already be registered.
	DependsOn []string

	// Action performs the installation. Must be non-nil.
	Action Action
}

// Plan is a dependency-respecting execution order over component IDs.
// It is produced per run and never persisted.
type Plan struct {
	// Components holds the ordered component IDs. Every dependency of an
	// entry appears earlier in the slice.
	Components []string
}

// ComponentStatus is the per-component outcome within a run.
type ComponentStatus string

const (
	// StatusPending means the component has not been reached yet. This is
	// also its status when an earlier component aborted the run.
	StatusPending ComponentStatus = "pending"

	// StatusSkipped means the installed marker was present and Force was off.
	StatusSkipped ComponentStatus = "skipped"

	// StatusInstalled means the action succeeded and the marker was written.
	StatusInstalled ComponentStatus = "installed"

	// StatusFailed means the action returned an error. Failed status is
	// never persisted; a later run retries the component from scratch.
	StatusFailed ComponentStatus = "failed"
)

// IsTerminal reports whether the status is a final per-run outcome.
func (s ComponentStatus) IsTerminal() bool {
	return s == StatusSkipped || s == StatusInstalled || s == StatusFailed
}

// RunOptions controls a single Sequencer run.
type RunOptions struct {
	// Force re-runs components even when their installed marker exists.
	Force bool
}

// ComponentResult records the outcome of one component within a run.
type ComponentResult struct {
	ComponentID string
	Status      ComponentStatus
	Duration    time.Duration
	Err         error
}

// RunReport summarizes one Sequencer run.
type RunReport struct {
	// RunID uniquely identifies the run.
	RunID string

	// Plan is the execution order the run followed.
	Plan Plan

	// Results holds per-component outcomes in plan order. Components after
	// an aborting failure remain StatusPending.
	Results []ComponentResult

	StartedAt   time.Time
	CompletedAt time.Time

	// Failed names the component that aborted the run, empty on success.
	Failed string
}

// Counts tallies the report by status.
func (r *RunReport) Counts() (installed, skipped, failed, pending int) {
	for _, res := range r.Results {
		switch res.Status {
		case StatusInstalled:
			installed++
		case StatusSkipped:
			skipped++
		case StatusFailed:
			failed++
		default:
			pending++
		}
	}
	return installed, skipped, failed, pending
}
