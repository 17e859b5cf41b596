package commands

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/stackup-io/stackup/pkg/engine"
	"github.com/stackup-io/stackup/pkg/telemetry"
)

func newInstallCommand() *cobra.Command {
	var (
		only       []string
		with       []string
		all        bool
		force      bool
		configOnly bool
		autoYes    bool
	)

	cmd := &cobra.Command{
		Use:   "install",
		Short: "Install stack components",
		Long: `Resolve the requested components into a dependency-ordered plan and
execute it. Components whose installed marker exists are skipped unless
--force is given. The run stops at the first failure; already-written
markers stay intact, so re-running resumes at the failed component.`,
		Example: `  # Install the whole stack
  stackup install --all --yes

  # Install the API gateway and whatever it depends on
  stackup install --only api-gateway

  # Add the optional device discovery module to the core set
  stackup install --only core-infra --with device-discovery

  # Re-run everything regardless of markers
  stackup install --all --force --yes

  # Materialize the merged configuration and exit
  stackup install --config-only`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			env, err := newRuntimeEnv(ctx, !configOnly)
			if err != nil {
				return reportFatal(nil, err)
			}
			defer env.close()

			if configOnly {
				path := filepath.Join(env.settings.StateDir, "stackup.yaml")
				if err := os.MkdirAll(env.settings.StateDir, 0o755); err != nil {
					return reportFatal(env.log, err)
				}
				if err := env.store.Materialize(path); err != nil {
					return reportFatal(env.log, err)
				}
				env.log.Infof("configuration written to %s", path)
				return nil
			}

			requested := env.requestedComponents(only, with, all)
			plan, err := env.registry.Resolve(requested)
			if err != nil {
				return reportFatal(env.log, err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Execution plan: %s\n",
				strings.Join(plan.Components, " -> "))
			if !autoYes {
				ok, err := confirm(cmd, "Proceed with installation?")
				if err != nil {
					return reportFatal(env.log, err)
				}
				if !ok {
					env.log.Info("installation declined")
					return nil
				}
			}

			tracer, err := telemetry.NewTracer(telemetry.TracingConfig{
				Enabled:  env.settings.TraceExport != "none",
				Exporter: env.settings.TraceExport,
			}, "stackup", cmd.Root().Version)
			if err != nil {
				return reportFatal(env.log, err)
			}
			defer func() { _ = tracer.Shutdown(ctx) }()

			seq := engine.NewSequencer(env.registry, env.state, env.log).
				WithMetrics(env.metrics).
				WithTracer(tracer.Tracer())
			if env.history != nil {
				seq.WithRecorder(env.history)
			}

			report, runErr := seq.Run(ctx, plan, engine.RunOptions{Force: force})
			printReport(cmd, report)
			if runErr != nil {
				return reportFatal(env.log, runErr)
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&only, "only", nil, "restrict to the named components plus their dependencies")
	cmd.Flags().StringArrayVar(&with, "with", nil, "add a component to the requested set (repeatable)")
	cmd.Flags().BoolVar(&all, "all", false, "request every registered component")
	cmd.Flags().BoolVar(&force, "force", false, "re-run components whose installed marker exists")
	cmd.Flags().BoolVar(&configOnly, "config-only", false, "materialize configuration and exit without installing")
	cmd.Flags().BoolVarP(&autoYes, "yes", "y", false, "skip the confirmation prompt")

	return cmd
}

// confirm prompts on stdin; anything but y/yes declines.
func confirm(cmd *cobra.Command, prompt string) (bool, error) {
	fmt.Fprintf(cmd.OutOrStdout(), "%s [y/N]: ", prompt)
	reader := bufio.NewReader(cmd.InOrStdin())
	line, err := reader.ReadString('\n')
	if err != nil && line == "" {
		return false, nil
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes", nil
}

// printReport writes the per-component outcomes.
func printReport(cmd *cobra.Command, report *engine.RunReport) {
	if report == nil {
		return
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "\nRun %s\n", report.RunID)
	for _, res := range report.Results {
		fmt.Fprintf(out, "  %-18s %-10s %s\n",
			res.ComponentID, res.Status, res.Duration.Round(time.Millisecond))
	}
	installed, skipped, failed, pending := report.Counts()
	fmt.Fprintf(out, "installed=%d skipped=%d failed=%d pending=%d\n",
		installed, skipped, failed, pending)
}

// reportFatal logs the failing component and error kind, then returns the
// error so the process exits non-zero.
func reportFatal(log *telemetry.Logger, err error) error {
	if log == nil {
		return err
	}
	l := log.WithField("kind", string(engine.KindOf(err)))
	if comp := engine.ComponentOf(err); comp != "" {
		l = l.WithField("component", comp)
	}
	l.WithError(err).Error("fatal")
	return err
}
