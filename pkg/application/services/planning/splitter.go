package planning

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vsinha/fuelrecon/pkg/domain/entities"
	"github.com/vsinha/fuelrecon/pkg/domain/repositories"
	"github.com/vsinha/fuelrecon/pkg/domain/services"
)

// DemandSplitter turns the gap between a demand line's target and what already
// moved for it into attach and push fulfillment requests
type DemandSplitter struct {
	catalog     repositories.CatalogRepository
	fulfillment repositories.FulfillmentRepository
	ledger      *services.QuantityLedger
	logger      *zap.Logger
}

// NewDemandSplitter creates a demand splitter
func NewDemandSplitter(
	catalog repositories.CatalogRepository,
	fulfillment repositories.FulfillmentRepository,
	ledger *services.QuantityLedger,
	logger *zap.Logger,
) *DemandSplitter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DemandSplitter{
		catalog:     catalog,
		fulfillment: fulfillment,
		ledger:      ledger,
		logger:      logger,
	}
}

// Plan computes the requests needed to bring the demand's fulfillment in line with its target.
// prior is the target the existing lines were last reconciled against; a dimension whose
// delta is negative only produces a reduction when its target decreased from prior.
func (s *DemandSplitter) Plan(
	ctx context.Context,
	rc entities.RunContext,
	demand *entities.DemandLine,
	prior entities.DualQuantity,
) ([]entities.FulfillmentRequest, error) {
	if !demand.IsActive() {
		return nil, nil
	}
	product, err := s.catalog.GetProduct(ctx, demand.Product)
	if err != nil {
		return nil, fmt.Errorf("failed to load product of demand %s: %w", demand.ID, err)
	}
	policy := rc.Policy()
	target := demand.EffectiveTarget()
	if !product.Type.Trackable() {
		return nil, nil
	}

	lines, err := s.fulfillment.LinesForDemand(ctx, demand.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load fulfillment lines of demand %s: %w", demand.ID, err)
	}
	net, err := s.ledger.Net(demand, lines, services.PlannedBasis)
	if err != nil {
		return nil, err
	}

	delta := target.Sub(net).Round(policy)
	for _, dim := range []entities.Dimension{entities.Nominal, entities.Normalized} {
		if delta.Get(dim).IsNegative() && policy.Compare(target.Get(dim), prior.Get(dim)) >= 0 {
			delta = delta.With(dim, decimal.Zero)
		}
	}
	if delta.IsZero(policy) {
		return nil, nil
	}

	targets, open, committed, err := s.attachTargets(demand, lines)
	if err != nil {
		return nil, err
	}

	var requests []entities.FulfillmentRequest
	if len(targets) == 0 {
		push := s.request(rc, demand, entities.PushRequest, delta)
		requests = append(requests, push)
	} else {
		attach, push := splitDelta(delta, committed.Sub(net), open)
		if !attach.IsZero(policy) {
			req := s.request(rc, demand, entities.AttachRequest, attach)
			req.AttachTo = targets
			requests = append(requests, req)
		}
		if !push.IsZero(policy) {
			requests = append(requests, s.request(rc, demand, entities.PushRequest, push))
		}
	}

	s.logger.Debug("demand planned",
		zap.String("demand", demand.ID),
		zap.Stringer("delta", delta),
		zap.Int("requests", len(requests)))
	return requests, nil
}

// attachTargets returns the open incoming lines of the demand, their combined remaining
// quantity, and the quantity committed through them: their planned quantity plus what
// the settled lines already moved.
func (s *DemandSplitter) attachTargets(
	demand *entities.DemandLine,
	lines []*entities.FulfillmentLine,
) ([]string, entities.DualQuantity, entities.DualQuantity, error) {
	var (
		ids     []string
		settled []*entities.FulfillmentLine
	)
	open := entities.DualQuantity{}
	planned := entities.DualQuantity{}
	for _, line := range lines {
		if !line.Open() {
			settled = append(settled, line)
			continue
		}
		if !line.IsAttachedTo(demand.ID) || services.Direction(demand, line) != services.Incoming {
			continue
		}
		qty, err := s.ledger.ToDemandUnit(demand, line, line.Quantity)
		if err != nil {
			return nil, entities.DualQuantity{}, entities.DualQuantity{}, err
		}
		remaining, err := s.ledger.ToDemandUnit(demand, line, line.Remaining().ClampZero())
		if err != nil {
			return nil, entities.DualQuantity{}, entities.DualQuantity{}, err
		}
		ids = append(ids, line.ID)
		planned = planned.Add(qty)
		open = open.Add(remaining)
	}

	settledNet, err := s.ledger.Net(demand, settled, services.PlannedBasis)
	if err != nil {
		return nil, entities.DualQuantity{}, entities.DualQuantity{}, err
	}
	return ids, open, planned.Add(settledNet), nil
}

// splitDelta divides delta between the open attach targets and a new push.
// carried is the committed quantity of the targets beyond the net flow (open returns
// they must still cover); it is attached and the rest of delta pushed. A negative push
// is clipped: the targets give up as much as they still have open before a reversal is pushed.
// attach + push == delta in both dimensions.
func splitDelta(delta, carried, open entities.DualQuantity) (attach, push entities.DualQuantity) {
	for _, dim := range []entities.Dimension{entities.Nominal, entities.Normalized} {
		a := carried.Get(dim)
		p := delta.Get(dim).Sub(a)
		if p.IsNegative() {
			room := open.Get(dim).Add(a)
			if room.IsPositive() {
				take := decimal.Min(p.Neg(), room)
				a = a.Sub(take)
				p = p.Add(take)
			}
		}
		attach = attach.With(dim, a)
		push = push.With(dim, p)
	}
	return attach, push
}

func (s *DemandSplitter) request(
	rc entities.RunContext,
	demand *entities.DemandLine,
	kind entities.RequestKind,
	qty entities.DualQuantity,
) entities.FulfillmentRequest {
	company := demand.Company
	if company == "" {
		company = rc.Company
	}
	return entities.FulfillmentRequest{
		Kind:         kind,
		Product:      demand.Product,
		Quantity:     qty,
		Density:      demand.Density,
		UoM:          demand.UoM,
		Location:     demand.Destination,
		Origin:       demand.Order,
		DemandLineID: demand.ID,
		Values: entities.ProcurementValues{
			Company:     company,
			PlannedDate: demand.PlannedDate,
			GroupID:     demand.GroupID,
		},
	}
}
