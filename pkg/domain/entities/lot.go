package entities

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// LotIdentity binds a density at 15°C to a physical batch of a product.
// There is at most one lot per (product, density).
type LotIdentity struct {
	ID        string
	Product   ProductID
	Density   decimal.Decimal
	Label     string
	CreatedAt time.Time
}

// NewLotIdentity creates a lot labeled by its density
func NewLotIdentity(product ProductID, density decimal.Decimal) (*LotIdentity, error) {
	if string(product) == "" {
		return nil, fmt.Errorf("product cannot be empty")
	}
	if !density.IsPositive() {
		return nil, fmt.Errorf("lot density must be positive, got %s", density)
	}
	density = density.Round(densityPlaces)
	return &LotIdentity{
		Product: product,
		Density: density,
		Label:   LotLabel(density),
	}, nil
}

// LotLabel is the human label of a density lot
func LotLabel(density decimal.Decimal) string {
	return "D15-" + density.StringFixed(densityPlaces)
}

// LotKey is the uniqueness key of a lot
func LotKey(product ProductID, density decimal.Decimal) string {
	return fmt.Sprintf("%s|%s", product, density.StringFixed(densityPlaces))
}

// Key returns the uniqueness key of the lot
func (l *LotIdentity) Key() string {
	return LotKey(l.Product, l.Density)
}
