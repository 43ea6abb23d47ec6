package moves

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vsinha/fuelrecon/pkg/domain/entities"
	"github.com/vsinha/fuelrecon/pkg/domain/repositories"
	"github.com/vsinha/fuelrecon/pkg/infrastructure/events"
)

// Service merges, splits and executes persisted fulfillment lines
type Service struct {
	fulfillment repositories.FulfillmentRepository
	catalog     repositories.CatalogRepository
	method      entities.RoundingMethod
	publisher   events.Publisher
	logger      *zap.Logger
}

// NewService creates a moves service
func NewService(
	fulfillment repositories.FulfillmentRepository,
	catalog repositories.CatalogRepository,
	method entities.RoundingMethod,
	publisher events.Publisher,
	logger *zap.Logger,
) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		fulfillment: fulfillment,
		catalog:     catalog,
		method:      method,
		publisher:   publisher,
		logger:      logger,
	}
}

// Merge merges the lines with the given IDs into the first one
func (s *Service) Merge(ctx context.Context, rc entities.RunContext, ids []string) (*entities.FulfillmentLine, error) {
	lines, err := s.fulfillment.LinesByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	survivor, merged, err := MergeLines(lines)
	if err != nil {
		return nil, err
	}

	for _, l := range append([]*entities.FulfillmentLine{survivor}, merged...) {
		if err := s.fulfillment.SaveLine(ctx, l); err != nil {
			return nil, fmt.Errorf("failed to save line %s: %w", l.ID, err)
		}
	}

	mergedIDs := make([]string, 0, len(merged))
	for _, l := range merged {
		mergedIDs = append(mergedIDs, l.ID)
	}
	s.logger.Info("fulfillment lines merged",
		zap.String("survivor", survivor.ID),
		zap.Strings("merged", mergedIDs))
	s.publish(events.NewFulfillmentMergedEvent(survivor, mergedIDs, rc.Now()))
	return survivor, nil
}

// Split carves qty out of the line into a new line and returns remainder and split pieces
func (s *Service) Split(
	ctx context.Context,
	rc entities.RunContext,
	id string,
	qty decimal.Decimal,
	normalizedOverride *decimal.Decimal,
) (*entities.FulfillmentLine, *entities.FulfillmentLine, error) {
	line, err := s.fulfillment.GetLine(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	rounding, err := s.rounding(ctx, rc, line.UoM)
	if err != nil {
		return nil, nil, err
	}

	remainder, split, err := SplitLine(line, qty, normalizedOverride, rounding, uuid.NewString())
	if err != nil {
		return nil, nil, err
	}
	split.CreatedAt = rc.Now()
	if err := s.fulfillment.SaveLine(ctx, split); err != nil {
		return nil, nil, fmt.Errorf("failed to save line %s: %w", split.ID, err)
	}
	if err := s.fulfillment.SaveLine(ctx, remainder); err != nil {
		return nil, nil, fmt.Errorf("failed to save line %s: %w", remainder.ID, err)
	}

	s.publish(events.NewFulfillmentSplitEvent(remainder, split, rc.Now()))
	return remainder, split, nil
}

// Complete records an executed quantity for the line. lotID is the lot of the
// physical quant that was moved, empty when unknown.
func (s *Service) Complete(
	ctx context.Context,
	rc entities.RunContext,
	lineID string,
	done entities.DualQuantity,
	at time.Time,
	lotID string,
) (*entities.FulfillmentLineDetail, error) {
	line, err := s.fulfillment.GetLine(ctx, lineID)
	if err != nil {
		return nil, err
	}
	if !line.Open() {
		return nil, entities.NewValidationError("state", "line %s is %s", line.ID, line.State)
	}
	if done.Nominal.IsNegative() || done.Normalized.IsNegative() || done.IsZero(rc.Policy()) {
		return nil, entities.NewValidationError("done", "done quantity must be positive, got %s", done)
	}
	if lotID != "" && line.LotID != "" && lotID != line.LotID {
		return nil, &entities.LotConflict{
			LineID:         line.ID,
			BoundLotID:     line.LotID,
			RequestedLotID: lotID,
			Reason:         "reserved quant does not match the lot restriction of the line",
		}
	}
	if line.LotID == "" {
		line.LotID = lotID
	}
	if at.IsZero() {
		at = rc.Now()
	}

	detail := &entities.FulfillmentLineDetail{
		ID:          uuid.NewString(),
		LineID:      line.ID,
		Product:     line.Product,
		Source:      line.Source,
		Destination: line.Destination,
		LotID:       line.LotID,
		Done:        done,
		Date:        at,
	}
	if err := s.fulfillment.SaveDetail(ctx, detail); err != nil {
		return nil, fmt.Errorf("failed to save detail: %w", err)
	}

	line.Done = line.Done.Add(done)
	if rc.Policy().Compare(line.Done.Nominal, line.Quantity.Nominal) >= 0 {
		line.State = entities.LineDone
	} else {
		line.State = entities.LinePartiallyAvailable
	}
	if err := s.fulfillment.SaveLine(ctx, line); err != nil {
		return nil, fmt.Errorf("failed to save line %s: %w", line.ID, err)
	}

	s.publish(events.NewFulfillmentEvent(events.FulfillmentUpdatedEvent, line, "", rc.Now()))
	return detail, nil
}

// SetDoneNormalized sets the done normalized quantity of a line on its details.
// A line without details gets one; a single detail is overwritten; with several
// details the total must already match.
func (s *Service) SetDoneNormalized(ctx context.Context, rc entities.RunContext, lineID string, qty decimal.Decimal) error {
	line, err := s.fulfillment.GetLine(ctx, lineID)
	if err != nil {
		return err
	}
	details, err := s.fulfillment.DetailsByLine(ctx, lineID)
	if err != nil {
		return err
	}

	switch len(details) {
	case 0:
		detail := &entities.FulfillmentLineDetail{
			ID:          uuid.NewString(),
			LineID:      line.ID,
			Product:     line.Product,
			Source:      line.Source,
			Destination: line.Destination,
			LotID:       line.LotID,
			Done:        entities.NewDualQuantity(decimal.Zero, qty),
			Date:        rc.Now(),
		}
		if err := s.fulfillment.SaveDetail(ctx, detail); err != nil {
			return fmt.Errorf("failed to save detail: %w", err)
		}
	case 1:
		details[0].Done.Normalized = qty
		if err := s.fulfillment.SaveDetail(ctx, details[0]); err != nil {
			return fmt.Errorf("failed to save detail: %w", err)
		}
	default:
		total := decimal.Zero
		for _, d := range details {
			total = total.Add(d.Done.Normalized)
		}
		if rc.Policy().Compare(total, qty) != 0 {
			return entities.NewValidationError("done",
				"cannot set the done normalized quantity of line %s directly, it has %d details", line.ID, len(details))
		}
	}

	line.Done.Normalized = qty
	return s.fulfillment.SaveLine(ctx, line)
}

func (s *Service) rounding(ctx context.Context, rc entities.RunContext, uom string) (entities.Rounding, error) {
	unit, err := s.catalog.GetUnit(ctx, uom)
	if err != nil {
		return entities.Rounding{}, err
	}
	r := unit.Policy(s.method)
	if !r.Precision.IsPositive() {
		return rc.Policy(), nil
	}
	return r, nil
}

func (s *Service) publish(e events.Event) {
	if err := events.Publish(s.publisher, e); err != nil {
		s.logger.Warn("failed to publish event", zap.String("type", e.Type()), zap.Error(err))
	}
}
