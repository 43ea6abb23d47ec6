package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/vsinha/fuelrecon/pkg/interfaces/cli/output"
)

const dateLayout = "2006-01-02"

func newReportCommand(opts *Options) *cobra.Command {
	var start, end string

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Compute the normalized flow report for a date window",
		Long: `Compute opening, incoming, outgoing and closing normalized quantities per product
and internal location. Dates are inclusive of start and exclusive of end (YYYY-MM-DD).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			from, err := time.Parse(dateLayout, start)
			if err != nil {
				return fmt.Errorf("invalid --start %q: %w", start, err)
			}
			to, err := time.Parse(dateLayout, end)
			if err != nil {
				return fmt.Errorf("invalid --end %q: %w", end, err)
			}

			ctx := cmd.Context()
			a, err := opts.open(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			rows, err := a.Reports.OpenReport(ctx, a.Config.Company, from, to)
			if err != nil {
				return err
			}
			return output.Report(rows, opts.outputConfig(a))
		},
	}

	cmd.Flags().StringVar(&start, "start", "", "Window start date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&end, "end", "", "Window end date (YYYY-MM-DD)")
	_ = cmd.MarkFlagRequired("start")
	_ = cmd.MarkFlagRequired("end")
	return cmd
}
