package gormdb

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/vsinha/fuelrecon/pkg/domain/entities"
	"github.com/vsinha/fuelrecon/pkg/domain/repositories"
)

// FulfillmentRepository persists fulfillment groups, lines and their details
type FulfillmentRepository struct {
	db *gorm.DB
}

// NewFulfillmentRepository creates a fulfillment repository
func NewFulfillmentRepository(db *gorm.DB) *FulfillmentRepository {
	return &FulfillmentRepository{db: db}
}

// Verify interface compliance
var _ repositories.FulfillmentRepository = (*FulfillmentRepository)(nil)

// GetGroup retrieves a group by ID
func (r *FulfillmentRepository) GetGroup(ctx context.Context, id string) (*entities.FulfillmentGroup, error) {
	var m FulfillmentGroupModel
	if err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "fulfillment group", id)
	}
	return m.toDomain(), nil
}

// SaveGroup inserts or replaces a group
func (r *FulfillmentRepository) SaveGroup(ctx context.Context, group *entities.FulfillmentGroup) error {
	return errors.Wrap(r.db.WithContext(ctx).Save(groupFromDomain(group)).Error, "failed to save fulfillment group")
}

// FindGroupByDemand returns the group created for the demand line, or nil
func (r *FulfillmentRepository) FindGroupByDemand(ctx context.Context, demandLineID string) (*entities.FulfillmentGroup, error) {
	var models []FulfillmentGroupModel
	err := r.db.WithContext(ctx).
		Where("demand_line_id = ?", demandLineID).
		Order("id").
		Limit(1).
		Find(&models).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to find fulfillment group")
	}
	if len(models) == 0 {
		return nil, nil
	}
	return models[0].toDomain(), nil
}

// GetLine retrieves a line by ID
func (r *FulfillmentRepository) GetLine(ctx context.Context, id string) (*entities.FulfillmentLine, error) {
	var m FulfillmentLineModel
	if err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "fulfillment line", id)
	}
	return m.toDomain(), nil
}

// SaveLine inserts or replaces a line and its demand links in one transaction
func (r *FulfillmentRepository) SaveLine(ctx context.Context, line *entities.FulfillmentLine) error {
	if line.ID == "" {
		return fmt.Errorf("fulfillment line id is required")
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(lineFromDomain(line)).Error; err != nil {
			return errors.Wrap(err, "failed to save fulfillment line")
		}
		if err := tx.Where("line_id = ?", line.ID).Delete(&LineDemandModel{}).Error; err != nil {
			return errors.Wrap(err, "failed to clear demand links")
		}
		if len(line.DemandLineIDs) == 0 {
			return nil
		}
		links := make([]LineDemandModel, 0, len(line.DemandLineIDs))
		for _, id := range line.DemandLineIDs {
			links = append(links, LineDemandModel{LineID: line.ID, DemandLineID: id})
		}
		return errors.Wrap(tx.Create(&links).Error, "failed to save demand links")
	})
}

// LinesByIDs returns the requested lines in the given order
func (r *FulfillmentRepository) LinesByIDs(ctx context.Context, ids []string) ([]*entities.FulfillmentLine, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var models []FulfillmentLineModel
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&models).Error; err != nil {
		return nil, errors.Wrap(err, "failed to load fulfillment lines")
	}
	byID := make(map[string]*FulfillmentLineModel, len(models))
	for i := range models {
		byID[models[i].ID] = &models[i]
	}

	lines := make([]*entities.FulfillmentLine, 0, len(ids))
	for _, id := range ids {
		m, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("fulfillment line %s: %w", id, entities.ErrNotFound)
		}
		lines = append(lines, m.toDomain())
	}
	return lines, nil
}

// LinesForDemand returns every line attached to the demand line in plan order
func (r *FulfillmentRepository) LinesForDemand(ctx context.Context, demandLineID string) ([]*entities.FulfillmentLine, error) {
	var models []FulfillmentLineModel
	err := r.db.WithContext(ctx).
		Joins("JOIN fulfillment_line_demands ON fulfillment_line_demands.line_id = fulfillment_lines.id").
		Where("fulfillment_line_demands.demand_line_id = ?", demandLineID).
		Order("fulfillment_lines.planned_date, fulfillment_lines.created_at, fulfillment_lines.id").
		Find(&models).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to load lines for demand")
	}
	lines := make([]*entities.FulfillmentLine, len(models))
	for i := range models {
		lines[i] = models[i].toDomain()
	}
	return lines, nil
}

// SaveDetail inserts or replaces an execution detail
func (r *FulfillmentRepository) SaveDetail(ctx context.Context, detail *entities.FulfillmentLineDetail) error {
	if detail.ID == "" || detail.LineID == "" {
		return fmt.Errorf("detail id and line id are required")
	}
	return errors.Wrap(r.db.WithContext(ctx).Save(detailFromDomain(detail)).Error, "failed to save detail")
}

// DetailsByLine returns the execution details of a line ordered by date
func (r *FulfillmentRepository) DetailsByLine(ctx context.Context, lineID string) ([]*entities.FulfillmentLineDetail, error) {
	var models []LineDetailModel
	if err := r.db.WithContext(ctx).Where("line_id = ?", lineID).Order("date, id").Find(&models).Error; err != nil {
		return nil, errors.Wrap(err, "failed to load details")
	}
	return detailsToDomain(models), nil
}

// DetailsTouching returns details entering or leaving location before the given time, ordered by date
func (r *FulfillmentRepository) DetailsTouching(ctx context.Context, location entities.LocationID, before time.Time) ([]*entities.FulfillmentLineDetail, error) {
	var models []LineDetailModel
	err := r.db.WithContext(ctx).
		Where("(source = ? OR destination = ?) AND date < ?", string(location), string(location), before).
		Order("date, id").
		Find(&models).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to load details")
	}
	return detailsToDomain(models), nil
}

func detailsToDomain(models []LineDetailModel) []*entities.FulfillmentLineDetail {
	details := make([]*entities.FulfillmentLineDetail, len(models))
	for i := range models {
		details[i] = models[i].toDomain()
	}
	return details
}
