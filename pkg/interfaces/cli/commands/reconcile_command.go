package commands

import (
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vsinha/fuelrecon/pkg/interfaces/cli/output"
)

func newReconcileCommand(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile",
		Short: "Reconcile every demand line against its fulfillment lines",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := opts.open(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			start := time.Now()
			results, runErr := a.Orchestrator.ReconcileAll(ctx, a.RunContext())
			if runErr != nil {
				a.Logger.Error("reconciliation incomplete", zap.Error(runErr))
			}

			config := opts.outputConfig(a)
			config.Elapsed = time.Since(start)
			if err := output.Reconciliation(results, config); err != nil {
				return err
			}
			return runErr
		},
	}
}
