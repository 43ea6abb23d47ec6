package repositories

import (
	"context"

	"github.com/vsinha/fuelrecon/pkg/domain/entities"
)

// ReportRepository stores the last generated flow report
type ReportRepository interface {
	// ReplaceRows discards every stored row and stores rows in one step
	ReplaceRows(ctx context.Context, rows []entities.FlowReportRow) error
	Rows(ctx context.Context) ([]entities.FlowReportRow, error)
}
