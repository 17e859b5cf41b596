package health

import (
	"context"
	"fmt"
	"time"

	"github.com/stackup-io/stackup/pkg/engine"
	"github.com/stackup-io/stackup/pkg/telemetry"
)

// Check probes an external readiness signal once. A false result with a
// nil error means "not ready yet" and schedules another attempt;
// transient conditions such as connection refused must map to that, not
// to an error. A non-nil error is fatal and stops the probe immediately,
// reserved for conditions retrying cannot fix (malformed target,
// misconfigured command).
type Check func(ctx context.Context) (bool, error)

// RetryPolicy bounds a probe: at most MaxAttempts checks, sleeping
// Interval between attempts (never after the last one).
type RetryPolicy struct {
	MaxAttempts int
	Interval    time.Duration
}

// Validate reports whether the policy is usable.
func (p RetryPolicy) Validate() error {
	if p.MaxAttempts < 1 {
		return engine.NewError(engine.KindInvalidValue,
			fmt.Sprintf("retry policy needs at least 1 attempt, got %d", p.MaxAttempts), nil)
	}
	if p.Interval < 0 {
		return engine.NewError(engine.KindInvalidValue,
			fmt.Sprintf("retry policy interval must be non-negative, got %s", p.Interval), nil)
	}
	return nil
}

// Prober runs probe loops with logging and metrics attached.
type Prober struct {
	log     *telemetry.Logger
	metrics *telemetry.Metrics
}

// NewProber creates a prober. Both arguments may be nil.
func NewProber(log *telemetry.Logger, metrics *telemetry.Metrics) *Prober {
	if log == nil {
		log = telemetry.NopLogger()
	}
	return &Prober{log: log.NewComponentLogger("health"), metrics: metrics}
}

// Await invokes check until it reports ready or the attempt budget runs
// out. On success it returns nil immediately without further waiting.
// Exhausting the budget yields a probe-timeout error, which callers treat
// as fatal for the surrounding component install. Context cancellation
// interrupts the wait.
func (p *Prober) Await(ctx context.Context, target string, check Check, policy RetryPolicy) error {
	if err := policy.Validate(); err != nil {
		return err
	}

	log := p.log.WithField("target", target)
	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		ready, err := check(ctx)
		if err != nil {
			p.recordAttempt(target, "error")
			return engine.NewError(engine.KindActionFailure,
				fmt.Sprintf("probe of %s failed", target), err)
		}
		if ready {
			p.recordAttempt(target, "ready")
			log.Debugf("ready after %d attempt(s)", attempt)
			return nil
		}
		p.recordAttempt(target, "not_ready")
		log.Debugf("not ready (attempt %d/%d)", attempt, policy.MaxAttempts)

		if attempt == policy.MaxAttempts {
			break
		}
		select {
		case <-time.After(policy.Interval):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return engine.NewError(engine.KindProbeTimeout,
		fmt.Sprintf("%s not ready after %d attempt(s)", target, policy.MaxAttempts), nil)
}

func (p *Prober) recordAttempt(target, outcome string) {
	if p.metrics != nil {
		p.metrics.ProbeAttempt(target, outcome)
	}
}

// Await is the plain probe loop without telemetry, for callers that have
// no prober wired.
func Await(ctx context.Context, check Check, policy RetryPolicy) error {
	return NewProber(nil, nil).Await(ctx, "check", check, policy)
}
