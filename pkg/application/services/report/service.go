package report

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/vsinha/fuelrecon/pkg/domain/entities"
	"github.com/vsinha/fuelrecon/pkg/domain/repositories"
	"github.com/vsinha/fuelrecon/pkg/infrastructure/events"
)

// Service runs the flow report and stores its rows
type Service struct {
	aggregator *Aggregator
	rows       repositories.ReportRepository
	publisher  events.Publisher
	logger     *zap.Logger
	clock      func() time.Time
}

// NewService creates a report service
func NewService(aggregator *Aggregator, rows repositories.ReportRepository, publisher events.Publisher, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		aggregator: aggregator,
		rows:       rows,
		publisher:  publisher,
		logger:     logger,
		clock:      time.Now,
	}
}

// OpenReport aggregates the window and replaces the stored report rows.
// On error the previously stored rows are left untouched.
func (s *Service) OpenReport(ctx context.Context, company string, start, end time.Time) ([]entities.FlowReportRow, error) {
	startedAt := s.clock()
	rows, err := s.aggregator.Aggregate(ctx, company, start, end)
	if err != nil {
		return nil, err
	}
	if err := s.rows.ReplaceRows(ctx, rows); err != nil {
		return nil, fmt.Errorf("failed to store report rows: %w", err)
	}

	s.logger.Info("flow report generated",
		zap.String("company", company),
		zap.Time("start", start),
		zap.Time("end", end),
		zap.Int("rows", len(rows)),
		zap.Duration("elapsed", s.clock().Sub(startedAt)))
	if err := events.Publish(s.publisher, events.NewReportGeneratedEvent(company, start, end, len(rows), s.clock())); err != nil {
		s.logger.Warn("failed to publish event", zap.Error(err))
	}
	return rows, nil
}

// Rows returns the rows of the last report
func (s *Service) Rows(ctx context.Context) ([]entities.FlowReportRow, error) {
	return s.rows.Rows(ctx)
}
