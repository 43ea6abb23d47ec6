package services

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/vsinha/fuelrecon/pkg/domain/entities"
)

// Units indexes units of measure by code
type Units map[string]*entities.UnitOfMeasure

// NewUnits builds a Units index
func NewUnits(units ...*entities.UnitOfMeasure) Units {
	idx := make(Units, len(units))
	for _, u := range units {
		idx[u.Code] = u
	}
	return idx
}

// Add indexes more units, replacing units with the same code
func (u Units) Add(units ...*entities.UnitOfMeasure) {
	for _, unit := range units {
		u[unit.Code] = unit
	}
}

// Lookup returns the unit with the given code
func (u Units) Lookup(code string) (*entities.UnitOfMeasure, error) {
	unit, ok := u[code]
	if !ok {
		return nil, fmt.Errorf("unit of measure %q not found", code)
	}
	return unit, nil
}

// ConvertQuantity converts qty expressed in from into to, rounded to the target unit precision
func ConvertQuantity(
	qty decimal.Decimal,
	from, to *entities.UnitOfMeasure,
	method entities.RoundingMethod,
) (decimal.Decimal, error) {
	if from.Code == to.Code {
		return to.Policy(method).Round(qty), nil
	}
	if from.Category != to.Category {
		return decimal.Zero, fmt.Errorf(
			"cannot convert %s to %s: units belong to different categories (%s, %s)",
			from.Code, to.Code, from.Category, to.Category)
	}
	reference := qty.Div(from.Factor)
	return to.Policy(method).Round(reference.Mul(to.Factor)), nil
}

// Convert converts qty between two unit codes
func (u Units) Convert(qty decimal.Decimal, from, to string, method entities.RoundingMethod) (decimal.Decimal, error) {
	src, err := u.Lookup(from)
	if err != nil {
		return decimal.Zero, err
	}
	dst, err := u.Lookup(to)
	if err != nil {
		return decimal.Zero, err
	}
	return ConvertQuantity(qty, src, dst, method)
}
