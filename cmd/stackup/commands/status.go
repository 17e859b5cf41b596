package commands

import (
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/stackup-io/stackup/pkg/health"
)

func newStatusCommand() *cobra.Command {
	var (
		withHealth bool
		history    int
	)

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show installed state and service health",
		Long: `Print the installed state of every registered component. With --health
each core service is probed once; with --history the most recent runs are
listed from the history database.`,
		Example: `  # Installed state only
  stackup status

  # Include a one-shot health probe of the core services
  stackup status --health

  # Show the last five runs
  stackup status --history 5`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			env, err := newRuntimeEnv(ctx, true)
			if err != nil {
				return reportFatal(nil, err)
			}
			defer env.close()

			out := cmd.OutOrStdout()
			for _, id := range env.registry.IDs() {
				installed, err := env.state.IsInstalled(id)
				if err != nil {
					return reportFatal(env.log, err)
				}
				state := "not installed"
				if installed {
					state = "installed"
				}
				fmt.Fprintf(out, "%-18s %s\n", id, state)
			}

			if withHealth {
				fmt.Fprintln(out)
				printHealth(cmd, env)
			}

			if history > 0 && env.history != nil {
				runs, err := env.history.ListRuns(ctx, history, 0)
				if err != nil {
					return reportFatal(env.log, err)
				}
				fmt.Fprintln(out)
				for _, run := range runs {
					outcome := "succeeded"
					if run.FailedComponent != "" {
						outcome = "failed at " + run.FailedComponent
					}
					fmt.Fprintf(out, "%s  %s  installed=%d skipped=%d failed=%d  %s\n",
						run.ID, run.StartedAt.Format(time.RFC3339),
						run.Installed, run.Skipped, run.Failed, outcome)
				}
			}

			return nil
		},
	}

	cmd.Flags().BoolVar(&withHealth, "health", false, "probe each core service once")
	cmd.Flags().IntVar(&history, "history", 0, "show the N most recent runs")

	return cmd
}

// printHealth runs every core service check exactly once.
func printHealth(cmd *cobra.Command, env *runtimeEnv) {
	cfg := env.settings
	client := &http.Client{Timeout: cfg.ProbeHTTPTimeout}
	checks := []struct {
		name  string
		check health.Check
	}{
		{"docker-daemon", health.CommandCheck(cfg.DockerBin, "info")},
		{"timescaledb", health.TCPCheck(cfg.TimescaleDBAddr(), cfg.ProbeHTTPTimeout)},
		{"redis", health.TCPCheck(cfg.RedisAddr(), cfg.ProbeHTTPTimeout)},
		{"vault", health.HTTPCheck(client, cfg.VaultAddr)},
		{"prometheus", health.HTTPCheck(client, cfg.PrometheusAddr)},
		{"grafana", health.HTTPCheck(client, cfg.GrafanaAddr)},
	}

	out := cmd.OutOrStdout()
	for _, c := range checks {
		ready, err := c.check(cmd.Context())
		switch {
		case err != nil:
			fmt.Fprintf(out, "%-18s error: %v\n", c.name, err)
		case ready:
			fmt.Fprintf(out, "%-18s healthy\n", c.name)
		default:
			fmt.Fprintf(out, "%-18s unreachable\n", c.name)
		}
	}
}
