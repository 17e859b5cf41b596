package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/stackup-io/stackup/pkg/config"
)

func newConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and validate configuration",
	}

	cmd.AddCommand(newConfigShowCommand())
	cmd.AddCommand(newConfigValidateCommand())
	cmd.AddCommand(newConfigWatchCommand())

	return cmd
}

func newConfigShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the merged configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := newRuntimeEnv(cmd.Context(), false)
			if err != nil {
				return reportFatal(nil, err)
			}
			raw, err := yaml.Marshal(env.store.Snapshot())
			if err != nil {
				return reportFatal(env.log, err)
			}
			fmt.Fprint(cmd.OutOrStdout(), string(raw))
			return nil
		},
	}
}

func newConfigValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the merged configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			// newRuntimeEnv already parses and validates the typed settings.
			env, err := newRuntimeEnv(cmd.Context(), false)
			if err != nil {
				return reportFatal(nil, err)
			}
			env.log.Info("configuration is valid")
			fmt.Fprintln(cmd.OutOrStdout(), "OK")
			return nil
		},
	}
}

func newConfigWatchCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Re-validate the override file on every change",
		Long: `Watch the override file given via --config and re-validate it whenever
it changes. Useful while editing overrides. When metrics are enabled the
/metrics endpoint is served for the lifetime of the watch.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if overridePath == "" {
				return fmt.Errorf("config watch requires --config")
			}
			env, err := newRuntimeEnv(cmd.Context(), false)
			if err != nil {
				return reportFatal(nil, err)
			}

			if env.settings.MetricsEnabled {
				go func() {
					if err := env.metrics.Serve(); err != nil {
						env.log.WithError(err).Warn("metrics listener stopped")
					}
				}()
			}

			watcher := config.NewWatcher(overridePath, env.log)
			return watcher.Watch(cmd.Context(), func(store *config.Store) error {
				if _, err := config.NewSettings(store); err != nil {
					return err
				}
				env.log.Info("configuration is valid")
				return nil
			})
		},
	}
}
