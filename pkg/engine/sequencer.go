package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/stackup-io/stackup/pkg/telemetry"
)

// RunRecorder receives the final report of a run for persistence. The
// SQLite history store implements it; a nil recorder disables history.
type RunRecorder interface {
	RecordRun(ctx context.Context, report *RunReport) error
}

// Sequencer executes a plan strictly in order. Components are never run
// in parallel: later components depend on side effects of earlier ones
// (running containers, written files) and actions provide no isolation.
//
// Concurrent runs against the same state store are unsupported; the
// engine takes no lock and the results are undefined.
type Sequencer struct {
	registry *Registry
	state    StateStore
	log      *telemetry.Logger

	recorder RunRecorder
	metrics  *telemetry.Metrics
	tracer   trace.Tracer
}

// NewSequencer creates a sequencer over the given registry and state store.
func NewSequencer(registry *Registry, state StateStore, log *telemetry.Logger) *Sequencer {
	if log == nil {
		log = telemetry.NopLogger()
	}
	return &Sequencer{
		registry: registry,
		state:    state,
		log:      log.NewComponentLogger("sequencer"),
	}
}

// WithRecorder attaches a run-history recorder.
func (s *Sequencer) WithRecorder(r RunRecorder) *Sequencer {
	s.recorder = r
	return s
}

// WithMetrics attaches a metrics collector.
func (s *Sequencer) WithMetrics(m *telemetry.Metrics) *Sequencer {
	s.metrics = m
	return s
}

// WithTracer attaches an OpenTelemetry tracer.
func (s *Sequencer) WithTracer(t trace.Tracer) *Sequencer {
	s.tracer = t
	return s
}

// Run executes the plan. It stops at the first failure and returns the
// error alongside the report; installed markers written before the
// failure stay intact, so a later force-free run resumes at the failed
// component. Side effects are not rolled back.
func (s *Sequencer) Run(ctx context.Context, plan Plan, opts RunOptions) (*RunReport, error) {
	report := &RunReport{
		RunID:     uuid.New().String(),
		Plan:      plan,
		Results:   make([]ComponentResult, len(plan.Components)),
		StartedAt: time.Now(),
	}
	for i, id := range plan.Components {
		report.Results[i] = ComponentResult{ComponentID: id, Status: StatusPending}
	}

	log := s.log.WithRunID(report.RunID)
	log.Infof("starting run: %d component(s), force=%v", len(plan.Components), opts.Force)
	if s.metrics != nil {
		s.metrics.RunStarted()
	}

	if s.tracer != nil {
		var span trace.Span
		ctx, span = s.tracer.Start(ctx, "sequencer.run",
			trace.WithAttributes(
				attribute.String("run.id", report.RunID),
				attribute.Int("run.components", len(plan.Components)),
				attribute.Bool("run.force", opts.Force),
			))
		defer span.End()
	}

	runErr := s.executePlan(ctx, plan, opts, report, log)

	report.CompletedAt = time.Now()
	if s.metrics != nil {
		status := "succeeded"
		if runErr != nil {
			status = "failed"
		}
		s.metrics.RunCompleted(status, report.CompletedAt.Sub(report.StartedAt))
	}
	if runErr != nil {
		if span := trace.SpanFromContext(ctx); span.IsRecording() {
			span.SetStatus(codes.Error, runErr.Error())
		}
	}

	if s.recorder != nil {
		// History is best effort; a recording failure never masks the
		// run outcome.
		if err := s.recorder.RecordRun(ctx, report); err != nil {
			log.WithError(err).Warn("failed to record run history")
		}
	}

	installed, skipped, failed, pending := report.Counts()
	log.Infof("run finished: installed=%d skipped=%d failed=%d pending=%d",
		installed, skipped, failed, pending)

	return report, runErr
}

// executePlan walks the plan in order, fail-fast.
func (s *Sequencer) executePlan(
	ctx context.Context,
	plan Plan,
	opts RunOptions,
	report *RunReport,
	log *telemetry.Logger,
) error {
	for i, id := range plan.Components {
		if err := ctx.Err(); err != nil {
			return NewError(KindActionFailure, "run cancelled", err).WithComponent(id)
		}

		comp, ok := s.registry.Get(id)
		if !ok {
			// Plans come from Resolve over the same registry, so this is a
			// caller bug rather than user input.
			return NewError(KindUnknownComponent,
				fmt.Sprintf("plan references unregistered component %q", id), nil).
				WithComponent(id)
		}

		result, err := s.runComponent(ctx, comp, opts, log)
		report.Results[i] = result
		if err != nil {
			report.Failed = id
			return err
		}
	}
	return nil
}

// runComponent handles one plan entry: skip check, dependency re-check,
// action execution, marker persistence.
func (s *Sequencer) runComponent(
	ctx context.Context,
	comp *Component,
	opts RunOptions,
	log *telemetry.Logger,
) (ComponentResult, error) {
	clog := log.WithField("component", comp.ID)
	result := ComponentResult{ComponentID: comp.ID}
	start := time.Now()

	installed, err := s.state.IsInstalled(comp.ID)
	if err != nil {
		result.Status = StatusFailed
		result.Err = NewError(KindStateStore, "failed to read installed state", err).
			WithComponent(comp.ID)
		return result, result.Err
	}
	if installed && !opts.Force {
		clog.Info("already installed, skipping")
		result.Status = StatusSkipped
		result.Duration = time.Since(start)
		if s.metrics != nil {
			s.metrics.ComponentFinished(comp.ID, string(StatusSkipped), result.Duration)
		}
		return result, nil
	}

	// Dependencies are re-checked against persisted state, not against this
	// run's results: a dependency may have been installed by an earlier run,
	// or the plan may name a component directly while its dependency is
	// absent. Persisted state is trusted as-is; the engine does not
	// re-verify that the external system still matches the marker.
	for _, dep := range comp.DependsOn {
		depInstalled, err := s.state.IsInstalled(dep)
		if err != nil {
			result.Status = StatusFailed
			result.Err = NewError(KindStateStore, "failed to read dependency state", err).
				WithComponent(comp.ID)
			return result, result.Err
		}
		if !depInstalled {
			result.Status = StatusFailed
			result.Err = NewError(KindDependencyNotSatisfied,
				fmt.Sprintf("dependency %q of %q is not installed", dep, comp.ID), nil).
				WithComponent(comp.ID)
			clog.WithError(result.Err).Error("dependency check failed")
			return result, result.Err
		}
	}

	clog.Info("installing")
	actionCtx := ctx
	if s.tracer != nil {
		var span trace.Span
		actionCtx, span = s.tracer.Start(ctx, "component.install",
			trace.WithAttributes(attribute.String("component.id", comp.ID)))
		defer span.End()
	}

	if err := comp.Action.Install(actionCtx); err != nil {
		result.Status = StatusFailed
		result.Duration = time.Since(start)
		// Probe timeouts and any other action error surface uniformly as an
		// action failure wrapping the cause.
		ierr := NewError(KindActionFailure, "install action failed", err).
			WithComponent(comp.ID)
		result.Err = ierr
		clog.WithError(err).Errorf("install failed after %s", result.Duration.Round(time.Millisecond))
		if s.metrics != nil {
			s.metrics.ComponentFinished(comp.ID, string(StatusFailed), result.Duration)
		}
		return result, ierr
	}

	if err := s.state.MarkInstalled(comp.ID); err != nil {
		result.Status = StatusFailed
		result.Duration = time.Since(start)
		result.Err = NewError(KindStateStore, "failed to persist installed marker", err).
			WithComponent(comp.ID)
		return result, result.Err
	}

	result.Status = StatusInstalled
	result.Duration = time.Since(start)
	clog.Infof("installed in %s", result.Duration.Round(time.Millisecond))
	if s.metrics != nil {
		s.metrics.ComponentFinished(comp.ID, string(StatusInstalled), result.Duration)
	}
	return result, nil
}
