package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/vsinha/fuelrecon/pkg/application/services/lots"
	"github.com/vsinha/fuelrecon/pkg/application/services/moves"
	"github.com/vsinha/fuelrecon/pkg/application/services/orchestration"
	"github.com/vsinha/fuelrecon/pkg/application/services/planning"
	"github.com/vsinha/fuelrecon/pkg/application/services/procurement"
	"github.com/vsinha/fuelrecon/pkg/application/services/report"
	"github.com/vsinha/fuelrecon/pkg/domain/entities"
	"github.com/vsinha/fuelrecon/pkg/domain/repositories"
	"github.com/vsinha/fuelrecon/pkg/domain/services"
	"github.com/vsinha/fuelrecon/pkg/infrastructure/config"
	"github.com/vsinha/fuelrecon/pkg/infrastructure/events"
	"github.com/vsinha/fuelrecon/pkg/infrastructure/locks"
	"github.com/vsinha/fuelrecon/pkg/infrastructure/repositories/csv"
	"github.com/vsinha/fuelrecon/pkg/infrastructure/repositories/gormdb"
	"github.com/vsinha/fuelrecon/pkg/infrastructure/repositories/memory"
	"github.com/vsinha/fuelrecon/pkg/infrastructure/repositories/yamlrules"
)

// App holds the repositories and services of one running instance
type App struct {
	Config config.Config
	Logger *zap.Logger

	Catalog     repositories.CatalogRepository
	Demands     repositories.DemandRepository
	Fulfillment repositories.FulfillmentRepository
	Lots        repositories.LotRepository
	Rules       repositories.RuleRepository
	ReportRows  repositories.ReportRepository
	Events      *events.InMemoryEventStore

	Units        services.Units
	Ledger       *services.QuantityLedger
	Runner       *procurement.Runner
	Orchestrator *orchestration.ReconciliationOrchestrator
	Moves        *moves.Service
	Reports      *report.Service

	db     *gorm.DB
	locker locks.Locker
}

// New wires an application from configuration. An empty database driver keeps
// every repository in memory; a configured driver opens the gorm store.
func New(ctx context.Context, cfg config.Config, log *zap.Logger) (*App, error) {
	if log == nil {
		log = zap.NewNop()
	}
	a := &App{Config: cfg, Logger: log, Events: events.NewInMemoryEventStore(log)}
	a.Events.Subscribe(nil, events.LogHandler(log.Named("events")))

	// Step 1: Storage
	if cfg.Database.Driver == "" {
		a.Catalog = memory.NewCatalogRepository()
		a.Demands = memory.NewDemandRepository()
		a.Fulfillment = memory.NewFulfillmentRepository()
		a.Lots = memory.NewLotRepository()
		a.Rules = memory.NewRuleRepository()
		a.ReportRows = memory.NewReportRepository()
	} else {
		db, err := gormdb.Open(gormdb.Options{
			Driver:          cfg.Database.Driver,
			DSN:             cfg.Database.DSN,
			MaxOpenConns:    cfg.Database.MaxOpenConns,
			MaxIdleConns:    cfg.Database.MaxIdleConns,
			ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
			LogLevel:        cfg.Database.LogLevel,
		}, log)
		if err != nil {
			return nil, err
		}
		a.db = db
		a.Catalog = gormdb.NewCatalogRepository(db)
		a.Demands = gormdb.NewDemandRepository(db)
		a.Fulfillment = gormdb.NewFulfillmentRepository(db)
		a.Lots = gormdb.NewLotRepository(db)
		a.Rules = gormdb.NewRuleRepository(db)
		a.ReportRows = gormdb.NewReportRepository(db)
	}

	// Step 2: Order lock
	if cfg.Redis.Enabled {
		locker, err := locks.NewRedisLocker(locks.RedisOptions{
			Host:     cfg.Redis.Host,
			Port:     cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			TTL:      cfg.Redis.LockTTL,
		}, log)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.locker = locker
	} else {
		a.locker = locks.NewKeyedMutex()
	}

	// Step 3: Units known to the store feed the ledger
	units, err := a.Catalog.ListUnits(ctx)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to load units: %w", err)
	}
	a.Units = services.NewUnits(units...)
	a.Ledger = services.NewQuantityLedger(a.Units, cfg.RunContext().Policy().Method)

	// Step 4: Services
	binder := lots.NewBinder(a.Lots, a.Events, log)
	dispatcher := procurement.NewDispatcher(a.Fulfillment, a.Demands, a.Lots, binder, a.Ledger, a.Events, log)
	a.Runner, err = procurement.NewRunner(a.Rules, a.Catalog, dispatcher.Handlers(), a.Events, log)
	if err != nil {
		a.Close()
		return nil, err
	}
	splitter := planning.NewDemandSplitter(a.Catalog, a.Fulfillment, a.Ledger, log)
	a.Orchestrator = orchestration.NewReconciliationOrchestrator(
		a.Demands, a.Fulfillment, a.Lots, splitter, a.Runner, a.Ledger, a.locker, a.Events, log)
	a.Moves = moves.NewService(a.Fulfillment, a.Catalog, a.Ledger.Method(), a.Events, log)
	aggregator := report.NewAggregator(a.Catalog, a.Fulfillment, cfg.Report.Concurrency, log)
	a.Reports = report.NewService(aggregator, a.ReportRows, a.Events, log)

	// Step 5: Routing rules file
	if cfg.RulesFile != "" {
		rules, err := yamlrules.FromFile(cfg.RulesFile)
		if err != nil {
			a.Close()
			return nil, err
		}
		if err := a.LoadRules(ctx, rules); err != nil {
			a.Close()
			return nil, err
		}
	}
	return a, nil
}

// RunContext returns the per-call context for the configured company and rounding
func (a *App) RunContext() entities.RunContext {
	return a.Config.RunContext()
}

// LoadRules replaces the routing rules and checks every action has a handler
func (a *App) LoadRules(ctx context.Context, rules []*entities.Rule) error {
	if err := a.Rules.LoadRules(ctx, rules); err != nil {
		return fmt.Errorf("failed to load rules: %w", err)
	}
	return a.Runner.Validate(ctx)
}

// Seed stores a CSV scenario. Units are added to the ledger as well.
func (a *App) Seed(ctx context.Context, sc *csv.Scenario) error {
	for _, u := range sc.Units {
		if err := a.Catalog.SaveUnit(ctx, u); err != nil {
			return fmt.Errorf("failed to save unit %s: %w", u.Code, err)
		}
	}
	a.Units.Add(sc.Units...)

	for _, p := range sc.Products {
		if err := a.Catalog.SaveProduct(ctx, p); err != nil {
			return fmt.Errorf("failed to save product %s: %w", p.ID, err)
		}
	}
	for _, l := range sc.Locations {
		if err := a.Catalog.SaveLocation(ctx, l); err != nil {
			return fmt.Errorf("failed to save location %s: %w", l.ID, err)
		}
	}
	for _, d := range sc.Demands {
		if d.Company == "" {
			d.Company = a.Config.Company
		}
		if err := a.Demands.SaveDemandLine(ctx, d); err != nil {
			return fmt.Errorf("failed to save demand line %s: %w", d.ID, err)
		}
	}
	for _, d := range sc.Details {
		if err := a.Fulfillment.SaveDetail(ctx, d); err != nil {
			return fmt.Errorf("failed to save detail %s: %w", d.ID, err)
		}
	}

	a.Logger.Info("scenario loaded",
		zap.Int("units", len(sc.Units)),
		zap.Int("products", len(sc.Products)),
		zap.Int("locations", len(sc.Locations)),
		zap.Int("demands", len(sc.Demands)),
		zap.Int("details", len(sc.Details)),
	)
	return nil
}

// LoadScenarioDir reads a CSV scenario directory and seeds it
func (a *App) LoadScenarioDir(ctx context.Context, dir string) error {
	sc, err := csv.NewLoader().LoadScenario(dir)
	if err != nil {
		return err
	}
	return a.Seed(ctx, sc)
}

// Close releases the database and lock connections
func (a *App) Close() {
	if closer, ok := a.locker.(*locks.RedisLocker); ok {
		if err := closer.Close(); err != nil {
			a.Logger.Warn("failed to close redis locker", zap.Error(err))
		}
	}
	if a.db != nil {
		if err := gormdb.Close(a.db); err != nil {
			a.Logger.Warn("failed to close database", zap.Error(err))
		}
	}
}
