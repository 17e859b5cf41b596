package components

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/stackup-io/stackup/pkg/engine"
	"github.com/stackup-io/stackup/pkg/health"
	"github.com/stackup-io/stackup/pkg/telemetry"
)

// ExecAction runs an external command as a component install step. The
// command is a black box: it may install packages, write compose files,
// and start containers. Output is forwarded to the logger line by line.
type ExecAction struct {
	// Name labels the action in logs.
	Name string

	// Argv is the command and its arguments. Must be non-empty.
	Argv []string

	// Dir is the working directory, empty for the current one.
	Dir string

	// Env holds extra KEY=VALUE entries appended to the inherited
	// environment.
	Env []string

	log *telemetry.Logger
}

// WithLogger attaches a logger for command output.
func (a *ExecAction) WithLogger(log *telemetry.Logger) *ExecAction {
	a.log = log
	return a
}

// Install implements engine.Action.
func (a *ExecAction) Install(ctx context.Context) error {
	if len(a.Argv) == 0 {
		return fmt.Errorf("exec action %q has empty argv", a.Name)
	}

	cmd := exec.CommandContext(ctx, a.Argv[0], a.Argv[1:]...)
	cmd.Dir = a.Dir
	if len(a.Env) > 0 {
		cmd.Env = append(cmd.Environ(), a.Env...)
	}

	out, err := cmd.CombinedOutput()
	if a.log != nil {
		for _, line := range strings.Split(strings.TrimSpace(string(out)), "\n") {
			if line != "" {
				a.log.WithField("action", a.Name).Debug(line)
			}
		}
	}
	if err != nil {
		return fmt.Errorf("%s: %q failed: %w", a.Name, strings.Join(a.Argv, " "), err)
	}
	return nil
}

// Steps composes actions to run in order, stopping at the first error.
type Steps []engine.Action

// Install implements engine.Action.
func (s Steps) Install(ctx context.Context) error {
	for _, step := range s {
		if err := step.Install(ctx); err != nil {
			return err
		}
	}
	return nil
}

// ProbeStep adapts a health probe into an action step, so an install can
// be gated on the services it just started.
func ProbeStep(prober *health.Prober, target string, check health.Check, policy health.RetryPolicy) engine.Action {
	return engine.ActionFunc(func(ctx context.Context) error {
		return prober.Await(ctx, target, check, policy)
	})
}
