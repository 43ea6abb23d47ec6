package gormdb

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/vsinha/fuelrecon/pkg/domain/entities"
	"github.com/vsinha/fuelrecon/pkg/domain/repositories"
)

// LotRepository persists density lots with a unique (product, density) index
type LotRepository struct {
	db *gorm.DB
}

// NewLotRepository creates a lot repository
func NewLotRepository(db *gorm.DB) *LotRepository {
	return &LotRepository{db: db}
}

// Verify interface compliance
var _ repositories.LotRepository = (*LotRepository)(nil)

// FindLot returns the lot of the product at the density, or nil
func (r *LotRepository) FindLot(ctx context.Context, product entities.ProductID, density decimal.Decimal) (*entities.LotIdentity, error) {
	var models []LotModel
	err := r.db.WithContext(ctx).
		Where("product_id = ? AND density_key = ?", string(product), densityKey(density)).
		Limit(1).
		Find(&models).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to find lot")
	}
	if len(models) == 0 {
		return nil, nil
	}
	return models[0].toDomain(), nil
}

// CreateLot inserts a lot; the unique index turns concurrent duplicates into ErrAlreadyExists
func (r *LotRepository) CreateLot(ctx context.Context, lot *entities.LotIdentity) error {
	err := r.db.WithContext(ctx).Create(lotFromDomain(lot)).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("lot %s: %w", lot.Key(), entities.ErrAlreadyExists)
	}
	return errors.Wrap(err, "failed to create lot")
}

// GetLot retrieves a lot by ID
func (r *LotRepository) GetLot(ctx context.Context, id string) (*entities.LotIdentity, error) {
	var m LotModel
	if err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "lot", id)
	}
	return m.toDomain(), nil
}

// ListLots returns the lots of a product, or every lot when product is empty
func (r *LotRepository) ListLots(ctx context.Context, product entities.ProductID) ([]*entities.LotIdentity, error) {
	query := r.db.WithContext(ctx).Order("product_id, density_key")
	if product != "" {
		query = query.Where("product_id = ?", string(product))
	}
	var models []LotModel
	if err := query.Find(&models).Error; err != nil {
		return nil, errors.Wrap(err, "failed to list lots")
	}
	lots := make([]*entities.LotIdentity, len(models))
	for i := range models {
		lots[i] = models[i].toDomain()
	}
	return lots, nil
}
