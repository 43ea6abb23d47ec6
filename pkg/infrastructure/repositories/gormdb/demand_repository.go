package gormdb

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/vsinha/fuelrecon/pkg/domain/entities"
	"github.com/vsinha/fuelrecon/pkg/domain/repositories"
)

// DemandRepository persists demand lines
type DemandRepository struct {
	db *gorm.DB
}

// NewDemandRepository creates a demand repository
func NewDemandRepository(db *gorm.DB) *DemandRepository {
	return &DemandRepository{db: db}
}

// Verify interface compliance
var _ repositories.DemandRepository = (*DemandRepository)(nil)

// GetDemandLine retrieves a demand line by ID
func (r *DemandRepository) GetDemandLine(ctx context.Context, id string) (*entities.DemandLine, error) {
	var m DemandLineModel
	if err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "demand line", id)
	}
	return m.toDomain(), nil
}

// SaveDemandLine inserts or replaces a demand line
func (r *DemandRepository) SaveDemandLine(ctx context.Context, line *entities.DemandLine) error {
	return errors.Wrap(r.db.WithContext(ctx).Save(demandFromDomain(line)).Error, "failed to save demand line")
}

// ListDemandLines returns every demand line ordered by ID
func (r *DemandRepository) ListDemandLines(ctx context.Context) ([]*entities.DemandLine, error) {
	var models []DemandLineModel
	if err := r.db.WithContext(ctx).Order("id").Find(&models).Error; err != nil {
		return nil, errors.Wrap(err, "failed to list demand lines")
	}
	demands := make([]*entities.DemandLine, len(models))
	for i := range models {
		demands[i] = models[i].toDomain()
	}
	return demands, nil
}
