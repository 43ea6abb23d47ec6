package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/vsinha/fuelrecon/pkg/domain/entities"
	"github.com/vsinha/fuelrecon/pkg/domain/repositories"
)

// DemandRepository provides in-memory demand line storage
type DemandRepository struct {
	mu      sync.RWMutex
	demands map[string]entities.DemandLine
}

// NewDemandRepository creates a new in-memory demand repository
func NewDemandRepository() *DemandRepository {
	return &DemandRepository{
		demands: make(map[string]entities.DemandLine),
	}
}

// Verify interface compliance
var _ repositories.DemandRepository = (*DemandRepository)(nil)

// GetDemandLine returns a copy of the stored demand line
func (r *DemandRepository) GetDemandLine(ctx context.Context, id string) (*entities.DemandLine, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.demands[id]
	if !ok {
		return nil, fmt.Errorf("demand line %s: %w", id, entities.ErrNotFound)
	}
	return &d, nil
}

// SaveDemandLine inserts or replaces a demand line
func (r *DemandRepository) SaveDemandLine(ctx context.Context, line *entities.DemandLine) error {
	if line == nil || line.ID == "" {
		return fmt.Errorf("demand line id cannot be empty")
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	r.demands[line.ID] = *line
	return nil
}

// ListDemandLines returns every demand line sorted by ID
func (r *DemandRepository) ListDemandLines(ctx context.Context) ([]*entities.DemandLine, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	lines := make([]*entities.DemandLine, 0, len(r.demands))
	for id := range r.demands {
		d := r.demands[id]
		lines = append(lines, &d)
	}
	sort.Slice(lines, func(i, j int) bool { return lines[i].ID < lines[j].ID })
	return lines, nil
}
