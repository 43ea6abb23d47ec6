package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/vsinha/fuelrecon/pkg/domain/entities"
	"github.com/vsinha/fuelrecon/pkg/domain/repositories"
)

// CatalogRepository provides in-memory master data storage
type CatalogRepository struct {
	mu        sync.RWMutex
	products  map[entities.ProductID]*entities.Product
	units     map[string]*entities.UnitOfMeasure
	locations map[entities.LocationID]*entities.Location
}

// NewCatalogRepository creates a new in-memory catalog repository
func NewCatalogRepository() *CatalogRepository {
	return &CatalogRepository{
		products:  make(map[entities.ProductID]*entities.Product),
		units:     make(map[string]*entities.UnitOfMeasure),
		locations: make(map[entities.LocationID]*entities.Location),
	}
}

// Verify interface compliance
var _ repositories.CatalogRepository = (*CatalogRepository)(nil)

// GetProduct returns a product by ID
func (r *CatalogRepository) GetProduct(ctx context.Context, id entities.ProductID) (*entities.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.products[id]
	if !ok {
		return nil, fmt.Errorf("product %s: %w", id, entities.ErrNotFound)
	}
	return p, nil
}

// ListProducts returns every product sorted by ID
func (r *CatalogRepository) ListProducts(ctx context.Context) ([]*entities.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	products := make([]*entities.Product, 0, len(r.products))
	for _, p := range r.products {
		products = append(products, p)
	}
	sort.Slice(products, func(i, j int) bool { return products[i].ID < products[j].ID })
	return products, nil
}

// SaveProduct inserts or replaces a product
func (r *CatalogRepository) SaveProduct(ctx context.Context, product *entities.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.products[product.ID] = product
	return nil
}

// GetUnit returns a unit of measure by code
func (r *CatalogRepository) GetUnit(ctx context.Context, code string) (*entities.UnitOfMeasure, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.units[code]
	if !ok {
		return nil, fmt.Errorf("unit of measure %s: %w", code, entities.ErrNotFound)
	}
	return u, nil
}

// SaveUnit inserts or replaces a unit of measure
func (r *CatalogRepository) SaveUnit(ctx context.Context, unit *entities.UnitOfMeasure) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.units[unit.Code] = unit
	return nil
}

// ListUnits returns every unit of measure
func (r *CatalogRepository) ListUnits(ctx context.Context) ([]*entities.UnitOfMeasure, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	units := make([]*entities.UnitOfMeasure, 0, len(r.units))
	for _, u := range r.units {
		units = append(units, u)
	}
	sort.Slice(units, func(i, j int) bool { return units[i].Code < units[j].Code })
	return units, nil
}

// GetLocation returns a location by ID
func (r *CatalogRepository) GetLocation(ctx context.Context, id entities.LocationID) (*entities.Location, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	l, ok := r.locations[id]
	if !ok {
		return nil, fmt.Errorf("location %s: %w", id, entities.ErrNotFound)
	}
	return l, nil
}

// SaveLocation inserts or replaces a location
func (r *CatalogRepository) SaveLocation(ctx context.Context, location *entities.Location) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.locations[location.ID] = location
	return nil
}

// LocationsByCompany returns the company's locations with the given usage
func (r *CatalogRepository) LocationsByCompany(ctx context.Context, company string, usage entities.LocationUsage) ([]*entities.Location, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*entities.Location
	for _, l := range r.locations {
		if l.Company == company && l.Usage == usage {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
