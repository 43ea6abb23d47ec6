package lots

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/vsinha/fuelrecon/pkg/domain/entities"
	"github.com/vsinha/fuelrecon/pkg/domain/repositories"
	"github.com/vsinha/fuelrecon/pkg/infrastructure/events"
)

// Binder finds or creates the density lot of a product and binds it to fulfillment lines
type Binder struct {
	repo      repositories.LotRepository
	publisher events.Publisher
	logger    *zap.Logger
	inflight  singleflight.Group
	clock     func() time.Time
}

// NewBinder creates a lot binder
func NewBinder(repo repositories.LotRepository, publisher events.Publisher, logger *zap.Logger) *Binder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Binder{
		repo:      repo,
		publisher: publisher,
		logger:    logger,
		clock:     time.Now,
	}
}

// Bind returns the lot of product for the reference density, creating it on first use.
// Concurrent first use of the same (product, density) creates a single lot.
func (b *Binder) Bind(ctx context.Context, product entities.ProductID, density decimal.Decimal) (*entities.LotIdentity, error) {
	if !density.IsPositive() {
		return nil, entities.NewValidationError("density", "reference density must be positive, got %s", density)
	}

	key := entities.LotKey(product, density)
	v, err, _ := b.inflight.Do(key, func() (interface{}, error) {
		return b.findOrCreate(ctx, product, density)
	})
	if err != nil {
		return nil, err
	}
	return v.(*entities.LotIdentity), nil
}

func (b *Binder) findOrCreate(ctx context.Context, product entities.ProductID, density decimal.Decimal) (*entities.LotIdentity, error) {
	lot, err := b.repo.FindLot(ctx, product, density)
	if err != nil {
		return nil, fmt.Errorf("failed to look up lot: %w", err)
	}
	if lot != nil {
		return lot, nil
	}

	lot, err = entities.NewLotIdentity(product, density)
	if err != nil {
		return nil, err
	}
	lot.ID = uuid.NewString()
	lot.CreatedAt = b.clock()

	if err := b.repo.CreateLot(ctx, lot); err != nil {
		if !errors.Is(err, entities.ErrAlreadyExists) {
			return nil, fmt.Errorf("failed to create lot: %w", err)
		}
		// another process created it between find and create
		existing, ferr := b.repo.FindLot(ctx, product, density)
		if ferr != nil || existing == nil {
			return nil, fmt.Errorf("failed to reload lot %s: %w", lot.Key(), err)
		}
		return existing, nil
	}

	b.logger.Info("lot created",
		zap.String("lot", lot.ID),
		zap.String("product", string(product)),
		zap.String("label", lot.Label))
	if err := events.Publish(b.publisher, events.NewLotEvent(events.LotCreatedEvent, lot, "", lot.CreatedAt)); err != nil {
		b.logger.Warn("failed to publish lot event", zap.Error(err))
	}
	return lot, nil
}

// Attach binds lot to line. reservedLotID is the lot a reservation already recorded
// for the physical quant, empty when there is none.
func (b *Binder) Attach(ctx context.Context, line *entities.FulfillmentLine, lot *entities.LotIdentity, reservedLotID string) error {
	conflict := func(reason string) error {
		return &entities.LotConflict{
			LineID:         line.ID,
			BoundLotID:     line.LotID,
			RequestedLotID: lot.ID,
			Reason:         reason,
		}
	}

	switch {
	case lot.Product != line.Product:
		return conflict(fmt.Sprintf("lot belongs to product %s", lot.Product))
	case reservedLotID != "" && reservedLotID != lot.ID:
		return conflict(fmt.Sprintf("quant already reserved on lot %s", reservedLotID))
	case line.LotID != "" && line.LotID != lot.ID:
		return conflict("line is bound to another lot")
	case line.Density.HasReference() && !entities.SameDensity(line.Density.Reference, lot.Density):
		return conflict(fmt.Sprintf("line density %s differs from lot density %s", line.Density.Reference, lot.Density))
	}

	if line.LotID == lot.ID {
		return nil
	}
	line.LotID = lot.ID
	if err := events.Publish(b.publisher, events.NewLotEvent(events.LotBoundEvent, lot, line.ID, b.clock())); err != nil {
		b.logger.Warn("failed to publish lot event", zap.Error(err))
	}
	return nil
}

// BindLine binds the line to the lot of its reference density, honoring a restricted lot.
// Lines without a reference density and without restriction are left unbound.
func (b *Binder) BindLine(ctx context.Context, line *entities.FulfillmentLine, restrictLotID string) (*entities.LotIdentity, error) {
	var lot *entities.LotIdentity
	var err error

	switch {
	case restrictLotID != "":
		lot, err = b.repo.GetLot(ctx, restrictLotID)
	case line.Density.HasReference():
		lot, err = b.Bind(ctx, line.Product, line.Density.Reference)
	default:
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := b.Attach(ctx, line, lot, restrictLotID); err != nil {
		return nil, err
	}
	return lot, nil
}
