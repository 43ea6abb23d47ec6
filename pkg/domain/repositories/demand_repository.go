package repositories

import (
	"context"

	"github.com/vsinha/fuelrecon/pkg/domain/entities"
)

// DemandRepository provides access to demand lines
type DemandRepository interface {
	GetDemandLine(ctx context.Context, id string) (*entities.DemandLine, error)
	SaveDemandLine(ctx context.Context, line *entities.DemandLine) error
	ListDemandLines(ctx context.Context) ([]*entities.DemandLine, error)
}
