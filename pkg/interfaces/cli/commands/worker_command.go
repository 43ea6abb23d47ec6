package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/vsinha/fuelrecon/pkg/app"
)

// WorkerConfig holds the schedule of the background worker
type WorkerConfig struct {
	Interval     time.Duration
	ReportWindow time.Duration
}

func newWorkerCommand(opts *Options) *cobra.Command {
	var (
		interval     time.Duration
		reportWindow time.Duration
	)

	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Start the background reconciliation worker",
		Long: `Reconcile every demand line on a fixed interval. With --report-window the flow
report is also refreshed on the same interval for the trailing window.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			a, err := opts.open(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			wc := WorkerConfig{Interval: a.Config.Scheduler.Interval, ReportWindow: reportWindow}
			if interval > 0 {
				wc.Interval = interval
			}
			return RunWorker(ctx, a, wc)
		},
	}

	cmd.Flags().DurationVar(&interval, "interval", 0, "Reconciliation interval (overrides scheduler.interval)")
	cmd.Flags().DurationVar(&reportWindow, "report-window", 0, "Trailing window of the refreshed flow report (0 disables)")
	return cmd
}

// RunWorker schedules the reconciliation jobs and blocks until ctx is cancelled
func RunWorker(ctx context.Context, a *app.App, wc WorkerConfig) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		scheduler, err := gocron.NewScheduler()
		if err != nil {
			return err
		}

		_, err = scheduler.NewJob(
			gocron.DurationJob(wc.Interval),
			gocron.NewTask(func() {
				results, err := a.Orchestrator.ReconcileAll(ctx, a.RunContext())
				if err != nil {
					a.Logger.Error("failed to reconcile demand lines", zap.Error(err))
				}
				a.Logger.Info("reconciliation pass finished", zap.Int("demands", len(results)))
			}),
			gocron.WithName("reconcile"),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
			gocron.WithStartAt(gocron.WithStartImmediately()),
		)
		if err != nil {
			return err
		}

		if wc.ReportWindow > 0 {
			_, err = scheduler.NewJob(
				gocron.DurationJob(wc.Interval),
				gocron.NewTask(func() {
					end := a.RunContext().Now()
					if _, err := a.Reports.OpenReport(ctx, a.Config.Company, end.Add(-wc.ReportWindow), end); err != nil {
						a.Logger.Error("failed to refresh flow report", zap.Error(err))
					}
				}),
				gocron.WithName("flow-report"),
				gocron.WithSingletonMode(gocron.LimitModeReschedule),
			)
			if err != nil {
				return err
			}
		}

		a.Logger.Info("starting worker", zap.Duration("interval", wc.Interval))
		scheduler.Start()

		<-ctx.Done()

		return scheduler.Shutdown()
	})

	if err := g.Wait(); err != nil {
		a.Logger.Error("worker error", zap.Error(err))
		return err
	}
	a.Logger.Info("worker shutting down gracefully")
	return nil
}
