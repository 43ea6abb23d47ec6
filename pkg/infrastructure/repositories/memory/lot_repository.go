package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/shopspring/decimal"
	"github.com/vsinha/fuelrecon/pkg/domain/entities"
	"github.com/vsinha/fuelrecon/pkg/domain/repositories"
)

// LotRepository provides in-memory lot storage with a (product, density) unique index
type LotRepository struct {
	mu    sync.RWMutex
	byID  map[string]*entities.LotIdentity
	byKey map[string]*entities.LotIdentity
}

// NewLotRepository creates a new in-memory lot repository
func NewLotRepository() *LotRepository {
	return &LotRepository{
		byID:  make(map[string]*entities.LotIdentity),
		byKey: make(map[string]*entities.LotIdentity),
	}
}

// Verify interface compliance
var _ repositories.LotRepository = (*LotRepository)(nil)

// FindLot returns the lot for (product, density), or nil
func (r *LotRepository) FindLot(ctx context.Context, product entities.ProductID, density decimal.Decimal) (*entities.LotIdentity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.byKey[entities.LotKey(product, density)], nil
}

// CreateLot stores a new lot, rejecting a duplicate (product, density)
func (r *LotRepository) CreateLot(ctx context.Context, lot *entities.LotIdentity) error {
	if lot.ID == "" {
		return fmt.Errorf("lot id cannot be empty")
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	key := lot.Key()
	if _, exists := r.byKey[key]; exists {
		return fmt.Errorf("lot %s: %w", key, entities.ErrAlreadyExists)
	}
	r.byKey[key] = lot
	r.byID[lot.ID] = lot
	return nil
}

// GetLot returns a lot by ID
func (r *LotRepository) GetLot(ctx context.Context, id string) (*entities.LotIdentity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	lot, ok := r.byID[id]
	if !ok {
		return nil, fmt.Errorf("lot %s: %w", id, entities.ErrNotFound)
	}
	return lot, nil
}

// ListLots returns the lots of a product, or every lot when product is empty
func (r *LotRepository) ListLots(ctx context.Context, product entities.ProductID) ([]*entities.LotIdentity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var lots []*entities.LotIdentity
	for _, lot := range r.byID {
		if product == "" || lot.Product == product {
			lots = append(lots, lot)
		}
	}
	sort.Slice(lots, func(i, j int) bool {
		if lots[i].Product != lots[j].Product {
			return lots[i].Product < lots[j].Product
		}
		return lots[i].Density.LessThan(lots[j].Density)
	})
	return lots, nil
}
