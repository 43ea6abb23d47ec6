package memory

import (
	"context"
	"sync"

	"github.com/vsinha/fuelrecon/pkg/domain/entities"
	"github.com/vsinha/fuelrecon/pkg/domain/repositories"
)

// ReportRepository keeps the rows of the last flow report
type ReportRepository struct {
	mu   sync.RWMutex
	rows []entities.FlowReportRow
}

// NewReportRepository creates an empty report repository
func NewReportRepository() *ReportRepository {
	return &ReportRepository{}
}

// Verify interface compliance
var _ repositories.ReportRepository = (*ReportRepository)(nil)

// ReplaceRows swaps the stored rows for a copy of rows
func (r *ReportRepository) ReplaceRows(ctx context.Context, rows []entities.FlowReportRow) error {
	fresh := append([]entities.FlowReportRow(nil), rows...)
	r.mu.Lock()
	r.rows = fresh
	r.mu.Unlock()
	return nil
}

// Rows returns a copy of the stored rows
func (r *ReportRepository) Rows(ctx context.Context) ([]entities.FlowReportRow, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return append([]entities.FlowReportRow(nil), r.rows...), nil
}
