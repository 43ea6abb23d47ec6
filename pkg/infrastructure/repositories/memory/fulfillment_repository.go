package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/vsinha/fuelrecon/pkg/domain/entities"
	"github.com/vsinha/fuelrecon/pkg/domain/repositories"
)

// FulfillmentRepository provides in-memory storage for groups, lines and details
type FulfillmentRepository struct {
	mu      sync.RWMutex
	groups  map[string]entities.FulfillmentGroup
	lines   map[string]*entities.FulfillmentLine
	details map[string][]entities.FulfillmentLineDetail // keyed by line ID
}

// NewFulfillmentRepository creates a new in-memory fulfillment repository
func NewFulfillmentRepository() *FulfillmentRepository {
	return &FulfillmentRepository{
		groups:  make(map[string]entities.FulfillmentGroup),
		lines:   make(map[string]*entities.FulfillmentLine),
		details: make(map[string][]entities.FulfillmentLineDetail),
	}
}

// Verify interface compliance
var _ repositories.FulfillmentRepository = (*FulfillmentRepository)(nil)

// GetGroup returns a group by ID
func (r *FulfillmentRepository) GetGroup(ctx context.Context, id string) (*entities.FulfillmentGroup, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	g, ok := r.groups[id]
	if !ok {
		return nil, fmt.Errorf("fulfillment group %s: %w", id, entities.ErrNotFound)
	}
	return &g, nil
}

// SaveGroup inserts or replaces a group
func (r *FulfillmentRepository) SaveGroup(ctx context.Context, group *entities.FulfillmentGroup) error {
	if group.ID == "" {
		return fmt.Errorf("fulfillment group id cannot be empty")
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	r.groups[group.ID] = *group
	return nil
}

// FindGroupByDemand returns the group created for a demand line, or nil
func (r *FulfillmentRepository) FindGroupByDemand(ctx context.Context, demandLineID string) (*entities.FulfillmentGroup, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for id := range r.groups {
		if g := r.groups[id]; g.DemandLineID == demandLineID {
			return &g, nil
		}
	}
	return nil, nil
}

// GetLine returns a copy of a line
func (r *FulfillmentRepository) GetLine(ctx context.Context, id string) (*entities.FulfillmentLine, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	l, ok := r.lines[id]
	if !ok {
		return nil, fmt.Errorf("fulfillment line %s: %w", id, entities.ErrNotFound)
	}
	return l.Clone(), nil
}

// SaveLine inserts or replaces a line
func (r *FulfillmentRepository) SaveLine(ctx context.Context, line *entities.FulfillmentLine) error {
	if line.ID == "" {
		return fmt.Errorf("fulfillment line id cannot be empty")
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	r.lines[line.ID] = line.Clone()
	return nil
}

// LinesByIDs returns copies of the requested lines in the given order
func (r *FulfillmentRepository) LinesByIDs(ctx context.Context, ids []string) ([]*entities.FulfillmentLine, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	lines := make([]*entities.FulfillmentLine, 0, len(ids))
	for _, id := range ids {
		l, ok := r.lines[id]
		if !ok {
			return nil, fmt.Errorf("fulfillment line %s: %w", id, entities.ErrNotFound)
		}
		lines = append(lines, l.Clone())
	}
	return lines, nil
}

// LinesForDemand returns copies of every line attached to the demand line in plan order
func (r *FulfillmentRepository) LinesForDemand(ctx context.Context, demandLineID string) ([]*entities.FulfillmentLine, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var lines []*entities.FulfillmentLine
	for _, l := range r.lines {
		if l.IsAttachedTo(demandLineID) {
			lines = append(lines, l.Clone())
		}
	}
	entities.SortByPlan(lines)
	return lines, nil
}

// AllLines returns copies of every stored line sorted by ID
func (r *FulfillmentRepository) AllLines(ctx context.Context) ([]*entities.FulfillmentLine, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	lines := make([]*entities.FulfillmentLine, 0, len(r.lines))
	for _, l := range r.lines {
		lines = append(lines, l.Clone())
	}
	sort.Slice(lines, func(i, j int) bool { return lines[i].ID < lines[j].ID })
	return lines, nil
}

// SaveDetail inserts or replaces an execution detail
func (r *FulfillmentRepository) SaveDetail(ctx context.Context, detail *entities.FulfillmentLineDetail) error {
	if detail.ID == "" || detail.LineID == "" {
		return fmt.Errorf("detail id and line id are required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	details := r.details[detail.LineID]
	for i := range details {
		if details[i].ID == detail.ID {
			details[i] = *detail
			return nil
		}
	}
	r.details[detail.LineID] = append(details, *detail)
	return nil
}

// DetailsByLine returns the execution details of a line in insertion order
func (r *FulfillmentRepository) DetailsByLine(ctx context.Context, lineID string) ([]*entities.FulfillmentLineDetail, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	details := r.details[lineID]
	out := make([]*entities.FulfillmentLineDetail, 0, len(details))
	for i := range details {
		d := details[i]
		out = append(out, &d)
	}
	return out, nil
}

// DetailsTouching returns details entering or leaving location before the given time, ordered by date
func (r *FulfillmentRepository) DetailsTouching(ctx context.Context, location entities.LocationID, before time.Time) ([]*entities.FulfillmentLineDetail, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*entities.FulfillmentLineDetail
	for _, details := range r.details {
		for i := range details {
			d := details[i]
			if d.Touches(location) && d.Date.Before(before) {
				out = append(out, &d)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}
