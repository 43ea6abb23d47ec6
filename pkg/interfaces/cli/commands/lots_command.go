package commands

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vsinha/fuelrecon/pkg/domain/entities"
	"github.com/vsinha/fuelrecon/pkg/interfaces/cli/output"
)

func newLotsCommand(opts *Options) *cobra.Command {
	var (
		product   string
		reconcile bool
	)

	cmd := &cobra.Command{
		Use:   "lots",
		Short: "List density lots",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := opts.open(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			// Lots are created while lines are bound, so a fresh store needs a pass first
			if reconcile {
				if _, err := a.Orchestrator.ReconcileAll(ctx, a.RunContext()); err != nil {
					a.Logger.Warn("reconciliation incomplete", zap.Error(err))
				}
			}

			lots, err := a.Lots.ListLots(ctx, entities.ProductID(product))
			if err != nil {
				return err
			}
			return output.Lots(lots, opts.outputConfig(a))
		},
	}

	cmd.Flags().StringVar(&product, "product", "", "Only list lots of this product")
	cmd.Flags().BoolVar(&reconcile, "reconcile", false, "Reconcile all demand lines before listing")
	return cmd
}
