package repositories

import (
	"context"

	"github.com/vsinha/fuelrecon/pkg/domain/entities"
)

// CatalogRepository provides access to product, unit and location master data
type CatalogRepository interface {
	GetProduct(ctx context.Context, id entities.ProductID) (*entities.Product, error)
	ListProducts(ctx context.Context) ([]*entities.Product, error)
	SaveProduct(ctx context.Context, product *entities.Product) error

	GetUnit(ctx context.Context, code string) (*entities.UnitOfMeasure, error)
	SaveUnit(ctx context.Context, unit *entities.UnitOfMeasure) error
	ListUnits(ctx context.Context) ([]*entities.UnitOfMeasure, error)

	GetLocation(ctx context.Context, id entities.LocationID) (*entities.Location, error)
	SaveLocation(ctx context.Context, location *entities.Location) error
	// LocationsByCompany returns the locations of a company with the given usage, sorted by ID
	LocationsByCompany(ctx context.Context, company string, usage entities.LocationUsage) ([]*entities.Location, error)
}
