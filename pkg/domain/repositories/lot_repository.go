package repositories

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/vsinha/fuelrecon/pkg/domain/entities"
)

// LotRepository provides access to density lots.
// CreateLot returns entities.ErrAlreadyExists when the (product, density) pair is taken.
type LotRepository interface {
	FindLot(ctx context.Context, product entities.ProductID, density decimal.Decimal) (*entities.LotIdentity, error)
	CreateLot(ctx context.Context, lot *entities.LotIdentity) error
	GetLot(ctx context.Context, id string) (*entities.LotIdentity, error)
	ListLots(ctx context.Context, product entities.ProductID) ([]*entities.LotIdentity, error)
}
