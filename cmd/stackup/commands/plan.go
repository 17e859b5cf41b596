package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newPlanCommand() *cobra.Command {
	var (
		only []string
		with []string
		all  bool
	)

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Show the execution plan without installing",
		Long: `Resolve the requested components into a dependency-ordered plan and
print it alongside the current installed state. Nothing is executed.`,
		Example: `  # Plan for the whole stack
  stackup plan --all

  # What would installing the cluster module entail?
  stackup plan --only cluster`,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := newRuntimeEnv(cmd.Context(), true)
			if err != nil {
				return reportFatal(nil, err)
			}
			defer env.close()

			requested := env.requestedComponents(only, with, all)
			plan, err := env.registry.Resolve(requested)
			if err != nil {
				return reportFatal(env.log, err)
			}

			out := cmd.OutOrStdout()
			for i, id := range plan.Components {
				comp, _ := env.registry.Get(id)
				installed, err := env.state.IsInstalled(id)
				if err != nil {
					return reportFatal(env.log, err)
				}
				state := "not installed"
				if installed {
					state = "installed"
				}
				fmt.Fprintf(out, "%2d. %-18s %-14s %s\n", i+1, id, state, comp.Description)
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&only, "only", nil, "restrict to the named components plus their dependencies")
	cmd.Flags().StringArrayVar(&with, "with", nil, "add a component to the requested set (repeatable)")
	cmd.Flags().BoolVar(&all, "all", false, "request every registered component")

	return cmd
}
