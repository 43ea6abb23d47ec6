package gormdb

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/vsinha/fuelrecon/pkg/domain/entities"
	"github.com/vsinha/fuelrecon/pkg/domain/repositories"
)

// ReportRepository keeps the rows of the last flow report
type ReportRepository struct {
	db *gorm.DB
}

// NewReportRepository creates a report repository
func NewReportRepository(db *gorm.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

// Verify interface compliance
var _ repositories.ReportRepository = (*ReportRepository)(nil)

// ReplaceRows truncates the report table and inserts rows in one transaction
func (r *ReportRepository) ReplaceRows(ctx context.Context, rows []entities.FlowReportRow) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&ReportRowModel{}).Error; err != nil {
			return errors.Wrap(err, "failed to clear report rows")
		}
		if len(rows) == 0 {
			return nil
		}
		models := make([]ReportRowModel, len(rows))
		for i, row := range rows {
			models[i] = reportRowFromDomain(row)
		}
		return errors.Wrap(tx.CreateInBatches(models, 500).Error, "failed to insert report rows")
	})
}

// Rows returns the stored rows in insertion order
func (r *ReportRepository) Rows(ctx context.Context) ([]entities.FlowReportRow, error) {
	var models []ReportRowModel
	if err := r.db.WithContext(ctx).Order("id").Find(&models).Error; err != nil {
		return nil, errors.Wrap(err, "failed to load report rows")
	}
	rows := make([]entities.FlowReportRow, len(models))
	for i := range models {
		rows[i] = models[i].toDomain()
	}
	return rows, nil
}
