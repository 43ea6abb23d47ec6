package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vsinha/fuelrecon/pkg/app"
	"github.com/vsinha/fuelrecon/pkg/infrastructure/config"
	"github.com/vsinha/fuelrecon/pkg/infrastructure/logger"
	"github.com/vsinha/fuelrecon/pkg/interfaces/cli/output"
)

// Options holds the flags shared by every command
type Options struct {
	ConfigDir   string
	ScenarioDir string
	RulesFile   string
	Company     string
	Format      string
	OutputDir   string
	Verbose     bool

	// Out receives command output; nil means stdout
	Out io.Writer
	// Logger overrides the logger built from configuration
	Logger *zap.Logger
}

// NewRootCommand builds the fuelrecon command tree bound to opts
func NewRootCommand(opts *Options) *cobra.Command {
	root := &cobra.Command{
		Use:   "fuelrecon",
		Short: "Dual-quantity fuel reconciliation",
		Long: `fuelrecon keeps fuel fulfillment lines in step with the demand lines they serve.
Every quantity is tracked twice: nominal (as measured) and normalized (at the reference
temperature). Demand changes are turned into push or attach requests and routed through
the configured rules.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.ConfigDir, "config-dir", "", "Directory holding fuelrecon.yaml")
	flags.StringVar(&opts.ScenarioDir, "scenario", "", "Path to scenario directory containing CSV files")
	flags.StringVar(&opts.RulesFile, "rules", "", "Routing rules YAML file (defaults to rules.yaml in the scenario)")
	flags.StringVar(&opts.Company, "company", "", "Company to reconcile for (overrides config)")
	flags.StringVar(&opts.Format, "format", "", "Output format: text, json, csv (xlsx for reports)")
	flags.StringVar(&opts.OutputDir, "output", "", "Output directory for results (optional)")
	flags.BoolVarP(&opts.Verbose, "verbose", "v", false, "Enable verbose output")

	root.AddCommand(
		newReconcileCommand(opts),
		newReportCommand(opts),
		newLotsCommand(opts),
		newServeCommand(opts),
		newWorkerCommand(opts),
	)
	return root
}

// Execute runs the command line with process arguments
func Execute(ctx context.Context) error {
	return NewRootCommand(&Options{}).ExecuteContext(ctx)
}

// load reads configuration and applies flag overrides
func (o *Options) load() (config.Config, error) {
	cfg, err := config.LoadConfig(o.ConfigDir)
	if err != nil {
		return config.Config{}, err
	}
	if o.Company != "" {
		cfg.Company = o.Company
	}
	if o.Verbose {
		cfg.Logging.Level = "debug"
	}

	switch {
	case o.RulesFile != "":
		cfg.RulesFile = o.RulesFile
	case cfg.RulesFile == "" && o.ScenarioDir != "":
		candidate := filepath.Join(o.ScenarioDir, "rules.yaml")
		if _, err := os.Stat(candidate); err == nil {
			cfg.RulesFile = candidate
		}
	}
	return cfg, nil
}

func (o *Options) newLogger(cfg config.Config) (*zap.Logger, error) {
	if o.Logger != nil {
		return o.Logger, nil
	}
	return logger.New(&logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
}

// open builds the application and seeds the scenario directory when one is given
func (o *Options) open(ctx context.Context) (*app.App, error) {
	cfg, err := o.load()
	if err != nil {
		return nil, err
	}
	log, err := o.newLogger(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	if o.ScenarioDir != "" {
		if err := a.LoadScenarioDir(ctx, o.ScenarioDir); err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to load scenario: %w", err)
		}
	}
	return a, nil
}

func (o *Options) outputConfig(a *app.App) output.Config {
	format := o.Format
	if format == "" {
		format = a.Config.Report.Format
	}
	return output.Config{
		Format:    format,
		OutputDir: o.OutputDir,
		Verbose:   o.Verbose,
		Writer:    o.Out,
	}
}
