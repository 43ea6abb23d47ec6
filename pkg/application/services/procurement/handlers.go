package procurement

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vsinha/fuelrecon/pkg/application/services/lots"
	"github.com/vsinha/fuelrecon/pkg/domain/entities"
	"github.com/vsinha/fuelrecon/pkg/domain/repositories"
	"github.com/vsinha/fuelrecon/pkg/domain/services"
	"github.com/vsinha/fuelrecon/pkg/infrastructure/events"
)

// Dispatcher implements the pull, push and buy handlers on top of the fulfillment repository
type Dispatcher struct {
	fulfillment repositories.FulfillmentRepository
	demands     repositories.DemandRepository
	lots        repositories.LotRepository
	binder      *lots.Binder
	units       services.Units
	method      entities.RoundingMethod
	publisher   events.Publisher
	logger      *zap.Logger
}

// NewDispatcher creates a dispatcher
func NewDispatcher(
	fulfillment repositories.FulfillmentRepository,
	demands repositories.DemandRepository,
	lotRepo repositories.LotRepository,
	binder *lots.Binder,
	ledger *services.QuantityLedger,
	publisher events.Publisher,
	logger *zap.Logger,
) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		fulfillment: fulfillment,
		demands:     demands,
		lots:        lotRepo,
		binder:      binder,
		units:       ledger.Units(),
		method:      ledger.Method(),
		publisher:   publisher,
		logger:      logger,
	}
}

// Handlers returns the static action registry served by the dispatcher
func (d *Dispatcher) Handlers() map[entities.RuleAction]Handler {
	return map[entities.RuleAction]Handler{
		entities.ActionPull: d.Pull,
		entities.ActionPush: d.Push,
		entities.ActionBuy:  d.Buy,
	}
}

// Pull moves goods from the rule's source location to the requested location
func (d *Dispatcher) Pull(ctx context.Context, rc entities.RunContext, batch []Procurement) (Outcome, error) {
	return d.each(ctx, rc, batch, func(p Procurement) ([]*entities.FulfillmentLine, error) {
		line, err := d.create(ctx, rc, p, p.Rule.Source, p.Request.Location, entities.LineConfirmed)
		if err != nil {
			return nil, err
		}
		return []*entities.FulfillmentLine{line}, nil
	})
}

// Push moves goods into the requested location and chains them on to the rule's push destination
func (d *Dispatcher) Push(ctx context.Context, rc entities.RunContext, batch []Procurement) (Outcome, error) {
	return d.each(ctx, rc, batch, func(p Procurement) ([]*entities.FulfillmentLine, error) {
		first, err := d.create(ctx, rc, p, p.Rule.Source, p.Request.Location, entities.LineConfirmed)
		if err != nil {
			return nil, err
		}
		if p.Rule.PushTo == "" || p.Rule.PushTo == p.Request.Location || first.Destination != p.Request.Location {
			return []*entities.FulfillmentLine{first}, nil
		}

		onward := p
		onward.Request.DemandLineID = ""
		onward.Request.Values.GroupID = first.GroupID
		onward.Request.Values.LotID = first.LotID
		next, err := d.create(ctx, rc, onward, first.Destination, p.Rule.PushTo, entities.LineDraft)
		if err != nil {
			return nil, err
		}
		first.DestLineIDs = append(first.DestLineIDs, next.ID)
		if err := d.fulfillment.SaveLine(ctx, first); err != nil {
			return nil, err
		}
		return []*entities.FulfillmentLine{first, next}, nil
	})
}

// Buy plans a receipt from the supplier location; the line stays draft until confirmed
func (d *Dispatcher) Buy(ctx context.Context, rc entities.RunContext, batch []Procurement) (Outcome, error) {
	return d.each(ctx, rc, batch, func(p Procurement) ([]*entities.FulfillmentLine, error) {
		line, err := d.create(ctx, rc, p, p.Rule.Source, p.Request.Location, entities.LineDraft)
		if err != nil {
			return nil, err
		}
		return []*entities.FulfillmentLine{line}, nil
	})
}

// each runs fn for every push request and adjusts attach targets for attach requests,
// collecting per-request failures
func (d *Dispatcher) each(
	ctx context.Context,
	rc entities.RunContext,
	batch []Procurement,
	fn func(p Procurement) ([]*entities.FulfillmentLine, error),
) (Outcome, error) {
	var outcome Outcome
	failure := &entities.AggregateFailure{}

	for _, p := range batch {
		if p.Request.Kind == entities.AttachRequest {
			updated, err := d.adjust(ctx, rc, p)
			if err != nil {
				failure.Add(&entities.RequestError{Index: p.Index, Request: p.Request, Err: err})
				continue
			}
			outcome.Updated = append(outcome.Updated, updated...)
			continue
		}

		created, err := fn(p)
		if err != nil {
			failure.Add(&entities.RequestError{Index: p.Index, Request: p.Request, Err: err})
			continue
		}
		outcome.Created = append(outcome.Created, created...)
	}

	if failure.Count() > 0 {
		return outcome, failure
	}
	return outcome, nil
}

// create persists a new line for the request. A negative quantity reverses the direction.
func (d *Dispatcher) create(
	ctx context.Context,
	rc entities.RunContext,
	p Procurement,
	source, destination entities.LocationID,
	state entities.LineState,
) (*entities.FulfillmentLine, error) {
	req := p.Request
	group, err := d.ensureGroup(ctx, req)
	if err != nil {
		return nil, err
	}

	qty := req.Quantity
	if qty.Sign(rc.Policy()) < 0 {
		qty = qty.Neg()
		source, destination = destination, source
	}

	line, err := entities.NewFulfillmentLine(req.Product, qty, req.Density, req.UoM, source, destination)
	if err != nil {
		return nil, err
	}
	line.ID = uuid.NewString()
	line.GroupID = group.ID
	line.State = state
	line.Origin = req.Origin
	line.RuleID = p.Rule.ID
	line.Priority = req.Values.Priority
	line.PlannedDate = req.Values.PlannedDate
	line.Company = req.Values.Company
	line.CreatedAt = rc.Now()
	line.AttachDemand(req.DemandLineID)

	if _, err := d.binder.BindLine(ctx, line, req.Values.LotID); err != nil {
		return nil, err
	}
	if err := d.fulfillment.SaveLine(ctx, line); err != nil {
		return nil, fmt.Errorf("failed to save fulfillment line: %w", err)
	}

	d.logger.Debug("fulfillment line created",
		zap.String("line", line.ID),
		zap.String("rule", p.Rule.ID),
		zap.Stringer("quantity", line.Quantity))
	if err := events.Publish(d.publisher, events.NewFulfillmentEvent(events.FulfillmentCreatedEvent, line, req.DemandLineID, rc.Now())); err != nil {
		d.logger.Warn("failed to publish fulfillment event", zap.Error(err))
	}
	return line, nil
}

// adjust applies an attach delta to the request's open target lines in plan order.
// Increases go to the last planned target; decreases are taken from the last target
// backwards, never below what was already done.
func (d *Dispatcher) adjust(ctx context.Context, rc entities.RunContext, p Procurement) ([]*entities.FulfillmentLine, error) {
	req := p.Request
	all, err := d.fulfillment.LinesByIDs(ctx, req.AttachTo)
	if err != nil {
		return nil, err
	}
	var targets []*entities.FulfillmentLine
	for _, l := range all {
		if l.Open() {
			targets = append(targets, l)
		}
	}
	if len(targets) == 0 {
		return nil, entities.NewValidationError("attach", "no open fulfillment line left for %s", req.DemandLineID)
	}
	entities.SortByPlan(targets)

	changed := make(map[string]bool)
	for _, l := range targets {
		moved, err := d.followDensity(ctx, rc, l, req.Density)
		if err != nil {
			return nil, err
		}
		changed[l.ID] = moved
	}

	for _, dim := range []entities.Dimension{entities.Nominal, entities.Normalized} {
		amount := req.Quantity.Get(dim)
		switch {
		case amount.IsPositive():
			last := targets[len(targets)-1]
			delta, err := d.toLine(amount, req.UoM, last, dim)
			if err != nil {
				return nil, err
			}
			last.Quantity = last.Quantity.With(dim, last.Quantity.Get(dim).Add(delta))
			changed[last.ID] = true
		case amount.IsNegative():
			left := amount.Neg()
			for i := len(targets) - 1; i >= 0 && left.IsPositive(); i-- {
				l := targets[i]
				room, err := d.fromLine(l.Remaining().Get(dim), l, req.UoM, dim)
				if err != nil {
					return nil, err
				}
				if !room.IsPositive() {
					continue
				}
				take := decimal.Min(room, left)
				reduce, err := d.toLine(take, req.UoM, l, dim)
				if err != nil {
					return nil, err
				}
				l.Quantity = l.Quantity.With(dim, l.Quantity.Get(dim).Sub(reduce))
				left = left.Sub(take)
				changed[l.ID] = true
			}
			if rc.Policy().Round(left).IsPositive() {
				return nil, entities.NewValidationError("attach",
					"cannot reduce %s lines of %s by %s, only %s open", dim, req.DemandLineID, amount.Neg(), amount.Neg().Sub(left))
			}
		}
	}

	var updated []*entities.FulfillmentLine
	for _, l := range targets {
		if req.Density.Fact.IsPositive() && !l.Density.Fact.Equal(req.Density.Fact) {
			l.Density.Fact = req.Density.Fact
			changed[l.ID] = true
		}
		if !changed[l.ID] {
			continue
		}
		if err := d.fulfillment.SaveLine(ctx, l); err != nil {
			return nil, fmt.Errorf("failed to save fulfillment line: %w", err)
		}
		if err := events.Publish(d.publisher, events.NewFulfillmentEvent(events.FulfillmentUpdatedEvent, l, req.DemandLineID, rc.Now())); err != nil {
			d.logger.Warn("failed to publish fulfillment event", zap.Error(err))
		}
		updated = append(updated, l)
	}
	return updated, nil
}

// followDensity moves an unexecuted lot-bound line, and the unexecuted lines it feeds,
// to the lot of a corrected reference density. Once goods moved on the old lot the
// correction is a LotConflict.
func (d *Dispatcher) followDensity(
	ctx context.Context,
	rc entities.RunContext,
	line *entities.FulfillmentLine,
	density entities.Density,
) (bool, error) {
	if line.LotID == "" || !density.HasReference() {
		return false, nil
	}
	bound, err := d.lots.GetLot(ctx, line.LotID)
	if err != nil {
		return false, err
	}
	if entities.SameDensity(bound.Density, density.Reference) {
		return false, nil
	}
	if !line.Done.IsZero(rc.Policy()) {
		return false, &entities.LotConflict{
			LineID:     line.ID,
			BoundLotID: line.LotID,
			Reason:     fmt.Sprintf("reference density changed from %s to %s after %s was executed", bound.Density, density.Reference, line.Done),
		}
	}

	corrected, err := d.binder.Bind(ctx, line.Product, density.Reference)
	if err != nil {
		return false, err
	}
	if err := d.rebind(ctx, line, corrected, density.Reference); err != nil {
		return false, err
	}

	if len(line.DestLineIDs) > 0 {
		onward, err := d.fulfillment.LinesByIDs(ctx, line.DestLineIDs)
		if err != nil {
			return false, err
		}
		for _, next := range onward {
			if !next.Open() || next.LotID != bound.ID || !next.Done.IsZero(rc.Policy()) {
				continue
			}
			if err := d.rebind(ctx, next, corrected, density.Reference); err != nil {
				return false, err
			}
			if err := d.fulfillment.SaveLine(ctx, next); err != nil {
				return false, fmt.Errorf("failed to save fulfillment line: %w", err)
			}
		}
	}

	d.logger.Info("fulfillment line moved to corrected lot",
		zap.String("line", line.ID),
		zap.String("from", bound.Label),
		zap.String("to", corrected.Label))
	return true, nil
}

func (d *Dispatcher) rebind(ctx context.Context, line *entities.FulfillmentLine, lot *entities.LotIdentity, reference decimal.Decimal) error {
	line.LotID = ""
	line.Density.Reference = reference
	return d.binder.Attach(ctx, line, lot, "")
}

// toLine converts a demand-unit amount into the line's unit
func (d *Dispatcher) toLine(v decimal.Decimal, uom string, line *entities.FulfillmentLine, dim entities.Dimension) (decimal.Decimal, error) {
	if dim == entities.Normalized || uom == line.UoM {
		return v, nil
	}
	return d.units.Convert(v, uom, line.UoM, d.method)
}

// fromLine converts a line-unit amount into the demand unit
func (d *Dispatcher) fromLine(v decimal.Decimal, line *entities.FulfillmentLine, uom string, dim entities.Dimension) (decimal.Decimal, error) {
	if dim == entities.Normalized || uom == line.UoM {
		return v, nil
	}
	return d.units.Convert(v, line.UoM, uom, d.method)
}

// ensureGroup returns the request's group, creating it on first dispatch and
// following the demand's partner when it changed
func (d *Dispatcher) ensureGroup(ctx context.Context, req entities.FulfillmentRequest) (*entities.FulfillmentGroup, error) {
	var demand *entities.DemandLine
	if req.DemandLineID != "" {
		var err error
		demand, err = d.demands.GetDemandLine(ctx, req.DemandLineID)
		if err != nil {
			return nil, err
		}
	}

	var group *entities.FulfillmentGroup
	switch {
	case demand != nil && demand.GroupID != "":
		g, err := d.fulfillment.GetGroup(ctx, demand.GroupID)
		if err != nil && !errors.Is(err, entities.ErrNotFound) {
			return nil, err
		}
		group = g
	case req.Values.GroupID != "":
		g, err := d.fulfillment.GetGroup(ctx, req.Values.GroupID)
		if err != nil && !errors.Is(err, entities.ErrNotFound) {
			return nil, err
		}
		group = g
	case req.DemandLineID != "":
		g, err := d.fulfillment.FindGroupByDemand(ctx, req.DemandLineID)
		if err != nil {
			return nil, err
		}
		group = g
	}

	if group == nil {
		group = &entities.FulfillmentGroup{
			ID:           uuid.NewString(),
			DemandLineID: req.DemandLineID,
			MovePolicy:   entities.MoveDirect,
			Company:      req.Values.Company,
		}
		if demand != nil {
			group.Partner = demand.Partner
		}
		if err := d.fulfillment.SaveGroup(ctx, group); err != nil {
			return nil, fmt.Errorf("failed to save fulfillment group: %w", err)
		}
	} else if demand != nil && group.Partner != demand.Partner {
		group.Partner = demand.Partner
		if err := d.fulfillment.SaveGroup(ctx, group); err != nil {
			return nil, fmt.Errorf("failed to save fulfillment group: %w", err)
		}
	}

	if demand != nil && demand.GroupID != group.ID {
		demand.GroupID = group.ID
		if err := d.demands.SaveDemandLine(ctx, demand); err != nil {
			return nil, fmt.Errorf("failed to link group to demand: %w", err)
		}
	}
	return group, nil
}
