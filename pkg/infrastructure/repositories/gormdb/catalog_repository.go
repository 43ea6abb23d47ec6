package gormdb

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/vsinha/fuelrecon/pkg/domain/entities"
	"github.com/vsinha/fuelrecon/pkg/domain/repositories"
)

// CatalogRepository persists products, units and locations
type CatalogRepository struct {
	db *gorm.DB
}

// NewCatalogRepository creates a catalog repository
func NewCatalogRepository(db *gorm.DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

// Verify interface compliance
var _ repositories.CatalogRepository = (*CatalogRepository)(nil)

// GetProduct retrieves a product by ID
func (r *CatalogRepository) GetProduct(ctx context.Context, id entities.ProductID) (*entities.Product, error) {
	var m ProductModel
	if err := r.db.WithContext(ctx).First(&m, "id = ?", string(id)).Error; err != nil {
		return nil, notFound(err, "product", string(id))
	}
	return m.toDomain(), nil
}

// ListProducts returns every product ordered by ID
func (r *CatalogRepository) ListProducts(ctx context.Context) ([]*entities.Product, error) {
	var models []ProductModel
	if err := r.db.WithContext(ctx).Order("id").Find(&models).Error; err != nil {
		return nil, errors.Wrap(err, "failed to list products")
	}
	products := make([]*entities.Product, len(models))
	for i := range models {
		products[i] = models[i].toDomain()
	}
	return products, nil
}

// SaveProduct inserts or replaces a product
func (r *CatalogRepository) SaveProduct(ctx context.Context, product *entities.Product) error {
	return errors.Wrap(r.db.WithContext(ctx).Save(productFromDomain(product)).Error, "failed to save product")
}

// GetUnit retrieves a unit of measure by code
func (r *CatalogRepository) GetUnit(ctx context.Context, code string) (*entities.UnitOfMeasure, error) {
	var m UnitModel
	if err := r.db.WithContext(ctx).First(&m, "code = ?", code).Error; err != nil {
		return nil, notFound(err, "unit", code)
	}
	return m.toDomain(), nil
}

// SaveUnit inserts or replaces a unit of measure
func (r *CatalogRepository) SaveUnit(ctx context.Context, unit *entities.UnitOfMeasure) error {
	return errors.Wrap(r.db.WithContext(ctx).Save(unitFromDomain(unit)).Error, "failed to save unit")
}

// ListUnits returns every unit ordered by code
func (r *CatalogRepository) ListUnits(ctx context.Context) ([]*entities.UnitOfMeasure, error) {
	var models []UnitModel
	if err := r.db.WithContext(ctx).Order("code").Find(&models).Error; err != nil {
		return nil, errors.Wrap(err, "failed to list units")
	}
	units := make([]*entities.UnitOfMeasure, len(models))
	for i := range models {
		units[i] = models[i].toDomain()
	}
	return units, nil
}

// GetLocation retrieves a location by ID
func (r *CatalogRepository) GetLocation(ctx context.Context, id entities.LocationID) (*entities.Location, error) {
	var m LocationModel
	if err := r.db.WithContext(ctx).First(&m, "id = ?", string(id)).Error; err != nil {
		return nil, notFound(err, "location", string(id))
	}
	return m.toDomain(), nil
}

// SaveLocation inserts or replaces a location
func (r *CatalogRepository) SaveLocation(ctx context.Context, location *entities.Location) error {
	return errors.Wrap(r.db.WithContext(ctx).Save(locationFromDomain(location)).Error, "failed to save location")
}

// LocationsByCompany returns the company's locations with the given usage ordered by ID
func (r *CatalogRepository) LocationsByCompany(ctx context.Context, company string, usage entities.LocationUsage) ([]*entities.Location, error) {
	var models []LocationModel
	err := r.db.WithContext(ctx).
		Where("company = ? AND usage = ?", company, int(usage)).
		Order("id").
		Find(&models).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to list locations")
	}
	locations := make([]*entities.Location, len(models))
	for i := range models {
		locations[i] = models[i].toDomain()
	}
	return locations, nil
}

// notFound maps gorm's missing record error onto the domain sentinel
func notFound(err error, kind, id string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s %s: %w", kind, id, entities.ErrNotFound)
	}
	return errors.Wrapf(err, "failed to load %s %s", kind, id)
}
