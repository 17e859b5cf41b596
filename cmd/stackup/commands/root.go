package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	overridePath string
	stateBackend string
	verbose      bool
)

// Execute runs the root command.
func Execute(ctx context.Context, version, commit, buildDate string) error {
	rootCmd := newRootCommand(version, commit, buildDate)
	return rootCmd.ExecuteContext(ctx)
}

func newRootCommand(version, commit, buildDate string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "stackup",
		Short: "stackup - monitoring stack bring-up sequencer",
		Long: `stackup provisions a Docker-based monitoring stack on a single host.

It resolves the dependency graph of installable components, executes each
component's installer strictly in order, gates every step on external
health probes, and records installed state so an interrupted run resumes
where it failed.

Components:
  environment       directories and Docker daemon checks
  core-infra        TimescaleDB, Redis, Vault, Prometheus, Grafana
  auth              authentication module
  api-gateway       API gateway module
  cluster           cluster management module
  device-discovery  device discovery module
  monitoring        monitoring module`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
		SilenceErrors: true,
	}

	// Persistent flags available to all commands
	rootCmd.PersistentFlags().StringVarP(&overridePath, "config", "c", "", "configuration override file (YAML)")
	rootCmd.PersistentFlags().StringVar(&stateBackend, "state-store", "marker", "installed-state backend (marker, sqlite)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")

	// Add subcommands
	rootCmd.AddCommand(newInstallCommand())
	rootCmd.AddCommand(newPlanCommand())
	rootCmd.AddCommand(newStatusCommand())
	rootCmd.AddCommand(newConfigCommand())

	return rootCmd
}
