package orchestration

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/vsinha/fuelrecon/pkg/application/dto"
	"github.com/vsinha/fuelrecon/pkg/application/services/planning"
	"github.com/vsinha/fuelrecon/pkg/application/services/procurement"
	"github.com/vsinha/fuelrecon/pkg/domain/entities"
	"github.com/vsinha/fuelrecon/pkg/domain/repositories"
	"github.com/vsinha/fuelrecon/pkg/domain/services"
	"github.com/vsinha/fuelrecon/pkg/infrastructure/events"
	"github.com/vsinha/fuelrecon/pkg/infrastructure/locks"
)

// ReconciliationOrchestrator coordinates the demand splitter and the procurement runner
// for one demand line at a time, under a lock on the demand's order
type ReconciliationOrchestrator struct {
	demands     repositories.DemandRepository
	fulfillment repositories.FulfillmentRepository
	lots        repositories.LotRepository
	splitter    *planning.DemandSplitter
	runner      *procurement.Runner
	ledger      *services.QuantityLedger
	locker      locks.Locker
	publisher   events.Publisher
	logger      *zap.Logger
}

// NewReconciliationOrchestrator creates a new reconciliation orchestrator
func NewReconciliationOrchestrator(
	demands repositories.DemandRepository,
	fulfillment repositories.FulfillmentRepository,
	lots repositories.LotRepository,
	splitter *planning.DemandSplitter,
	runner *procurement.Runner,
	ledger *services.QuantityLedger,
	locker locks.Locker,
	publisher events.Publisher,
	logger *zap.Logger,
) *ReconciliationOrchestrator {
	if locker == nil {
		locker = locks.NewKeyedMutex()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReconciliationOrchestrator{
		demands:     demands,
		fulfillment: fulfillment,
		lots:        lots,
		splitter:    splitter,
		runner:      runner,
		ledger:      ledger,
		locker:      locker,
		publisher:   publisher,
		logger:      logger,
	}
}

// UpdateDemand changes the target and density of a demand line and reconciles its
// fulfillment. With rc.SkipReconciliation set only the demand is saved.
func (o *ReconciliationOrchestrator) UpdateDemand(
	ctx context.Context,
	rc entities.RunContext,
	id string,
	target entities.DualQuantity,
	density entities.Density,
	strict bool,
) (*dto.ReconciliationResult, error) {
	if target.Nominal.IsNegative() || target.Normalized.IsNegative() {
		return nil, entities.NewValidationError("target", "target quantity cannot be negative, got %s", target)
	}
	if density.Fact.IsNegative() || density.Reference.IsNegative() {
		return nil, entities.NewValidationError("density", "density cannot be negative")
	}

	var result *dto.ReconciliationResult
	err := o.withDemandLock(ctx, id, func(demand *entities.DemandLine) error {
		// Step 1: Persist the new target. The baseline keeps the target the existing
		// lines were planned for until a pass reconciles the new one.
		previous := demand.EffectiveTarget()
		if !demand.HasReconciled {
			demand.Reconciled = previous
			demand.HasReconciled = true
		}
		demand.Target = target
		demand.Density = density
		if err := o.demands.SaveDemandLine(ctx, demand); err != nil {
			return fmt.Errorf("failed to save demand line %s: %w", demand.ID, err)
		}
		o.publish(events.NewDemandUpdatedEvent(demand, previous, rc.Now()))

		if rc.SkipReconciliation {
			result = &dto.ReconciliationResult{DemandLineID: demand.ID, GroupID: demand.GroupID}
			return nil
		}

		// Step 2: Plan and dispatch the difference
		var err error
		result, err = o.reconcile(ctx, rc, demand, strict)
		return err
	})
	return result, err
}

// Reconcile re-runs reconciliation of a demand line against its current target.
// A reduction that failed in an earlier pass is retried.
func (o *ReconciliationOrchestrator) Reconcile(
	ctx context.Context,
	rc entities.RunContext,
	id string,
	strict bool,
) (*dto.ReconciliationResult, error) {
	var result *dto.ReconciliationResult
	err := o.withDemandLock(ctx, id, func(demand *entities.DemandLine) error {
		var err error
		result, err = o.reconcile(ctx, rc, demand, strict)
		return err
	})
	return result, err
}

// ReconcileAll reconciles every demand line, collecting per-request failures in each result.
// Errors that prevent a demand from being planned are joined and returned after all demands ran.
func (o *ReconciliationOrchestrator) ReconcileAll(ctx context.Context, rc entities.RunContext) ([]*dto.ReconciliationResult, error) {
	demands, err := o.demands.ListDemandLines(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list demand lines: %w", err)
	}

	var (
		results []*dto.ReconciliationResult
		errs    []error
	)
	for _, d := range demands {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		result, err := o.Reconcile(ctx, rc, d.ID, false)
		if err != nil {
			o.logger.Warn("reconciliation failed", zap.String("demand", d.ID), zap.Error(err))
			errs = append(errs, fmt.Errorf("demand %s: %w", d.ID, err))
			continue
		}
		results = append(results, result)
	}
	return results, errors.Join(errs...)
}

// InvoiceValues returns what the invoicing collaborator should copy for the demand line
func (o *ReconciliationOrchestrator) InvoiceValues(ctx context.Context, id string) (services.InvoiceLineValues, error) {
	demand, err := o.demands.GetDemandLine(ctx, id)
	if err != nil {
		return services.InvoiceLineValues{}, err
	}
	lines, err := o.fulfillment.LinesForDemand(ctx, id)
	if err != nil {
		return services.InvoiceLineValues{}, err
	}
	delivered, err := o.ledger.Net(demand, lines, services.DoneBasis)
	if err != nil {
		return services.InvoiceLineValues{}, err
	}

	var lot *entities.LotIdentity
	for _, l := range lines {
		if l.LotID == "" || l.State == entities.LineCancelled || services.Direction(demand, l) != services.Incoming {
			continue
		}
		if lot, err = o.lots.GetLot(ctx, l.LotID); err != nil {
			return services.InvoiceLineValues{}, err
		}
		break
	}
	return services.PrepareInvoiceLine(demand, delivered, lot), nil
}

func (o *ReconciliationOrchestrator) reconcile(
	ctx context.Context,
	rc entities.RunContext,
	demand *entities.DemandLine,
	strict bool,
) (*dto.ReconciliationResult, error) {
	prior := demand.Baseline(demand.EffectiveTarget())
	requests, err := o.splitter.Plan(ctx, rc, demand, prior)
	if err != nil {
		return nil, fmt.Errorf("failed to plan demand line %s: %w", demand.ID, err)
	}
	result := &dto.ReconciliationResult{DemandLineID: demand.ID, Requests: requests, Run: &dto.RunResult{}}
	if len(requests) > 0 {
		run, runErr := o.runner.Run(ctx, rc, requests, strict)
		if run != nil {
			result.Run = run
		}
		if runErr != nil {
			var agg *entities.AggregateFailure
			if !errors.As(runErr, &agg) {
				return nil, runErr
			}
			err = runErr
		}
	}

	// Handlers may have created the group on the demand
	fresh, getErr := o.demands.GetDemandLine(ctx, demand.ID)
	if getErr != nil {
		return nil, getErr
	}
	result.GroupID = fresh.GroupID

	// Only a clean pass moves the baseline, so failed reductions stay pending
	if err == nil && !result.Run.Failed() && len(result.Run.Degraded) == 0 {
		reconciled := fresh.EffectiveTarget()
		if !fresh.HasReconciled || !fresh.Reconciled.Equal(reconciled, rc.Policy()) {
			fresh.MarkReconciled()
			if saveErr := o.demands.SaveDemandLine(ctx, fresh); saveErr != nil {
				return nil, fmt.Errorf("failed to save demand line %s: %w", fresh.ID, saveErr)
			}
		}
	}

	o.logger.Info("demand reconciled",
		zap.String("demand", demand.ID),
		zap.String("group", result.GroupID),
		zap.Int("requests", len(requests)),
		zap.Int("created", len(result.Run.Created)),
		zap.Int("updated", len(result.Run.Updated)),
		zap.Int("failed", result.Run.Failure.Count()))
	return result, err
}

// withDemandLock runs fn on a fresh copy of the demand while holding its order lock
func (o *ReconciliationOrchestrator) withDemandLock(ctx context.Context, id string, fn func(*entities.DemandLine) error) error {
	demand, err := o.demands.GetDemandLine(ctx, id)
	if err != nil {
		return err
	}
	key := demand.Order
	if key == "" {
		key = demand.ID
	}

	unlock, err := o.locker.Lock(ctx, key)
	if err != nil {
		return fmt.Errorf("failed to lock order %s: %w", key, err)
	}
	defer unlock()

	// Re-read under the lock
	demand, err = o.demands.GetDemandLine(ctx, id)
	if err != nil {
		return err
	}
	return fn(demand)
}

func (o *ReconciliationOrchestrator) publish(e events.Event) {
	if err := events.Publish(o.publisher, e); err != nil {
		o.logger.Warn("failed to publish event", zap.String("type", e.Type()), zap.Error(err))
	}
}
