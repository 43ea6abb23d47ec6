package entities

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Dimension selects one of the two quantity measures tracked for every movement
type Dimension int

const (
	Nominal Dimension = iota
	Normalized
)

// String method for Dimension enum
func (d Dimension) String() string {
	switch d {
	case Nominal:
		return "Nominal"
	case Normalized:
		return "Normalized"
	default:
		return "Unknown"
	}
}

// RoundingMethod represents how a value is rounded to a precision step
type RoundingMethod int

const (
	HalfUp RoundingMethod = iota
	HalfEven
)

// String method for RoundingMethod enum
func (m RoundingMethod) String() string {
	switch m {
	case HalfUp:
		return "HalfUp"
	case HalfEven:
		return "HalfEven"
	default:
		return "Unknown"
	}
}

// ParseRoundingMethod converts a configuration value into a RoundingMethod
func ParseRoundingMethod(value string) (RoundingMethod, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "half-up", "half_up", "halfup":
		return HalfUp, nil
	case "half-even", "half_even", "halfeven", "bank", "bankers":
		return HalfEven, nil
	default:
		return HalfUp, fmt.Errorf("unknown rounding method: %s", value)
	}
}

// Rounding is the precision policy used when quantities are compared or converted
type Rounding struct {
	Precision decimal.Decimal // rounding step, e.g. 0.001
	Method    RoundingMethod
}

// DefaultRounding rounds half-up to a thousandth
var DefaultRounding = Rounding{Precision: decimal.New(1, -3), Method: HalfUp}

// NewRounding creates a validated Rounding policy
func NewRounding(precision decimal.Decimal, method RoundingMethod) (Rounding, error) {
	if !precision.IsPositive() {
		return Rounding{}, fmt.Errorf("rounding precision must be positive, got %s", precision)
	}
	return Rounding{Precision: precision, Method: method}, nil
}

// Round rounds v to the nearest multiple of the precision step
func (r Rounding) Round(v decimal.Decimal) decimal.Decimal {
	if !r.Precision.IsPositive() {
		return v
	}
	steps := v.Div(r.Precision)
	if r.Method == HalfEven {
		steps = steps.RoundBank(0)
	} else {
		steps = steps.Round(0)
	}
	return steps.Mul(r.Precision)
}

// IsZero reports whether v rounds to zero
func (r Rounding) IsZero(v decimal.Decimal) bool {
	return r.Round(v).IsZero()
}

// Compare returns -1, 0 or 1 comparing a and b at the rounding precision
func (r Rounding) Compare(a, b decimal.Decimal) int {
	return r.Round(a.Sub(b)).Sign()
}

// DualQuantity carries a nominal volume and its temperature-normalized (15°C) equivalent
type DualQuantity struct {
	Nominal    decimal.Decimal `json:"nominal"`
	Normalized decimal.Decimal `json:"normalized"`
}

// NewDualQuantity builds a DualQuantity from both dimensions
func NewDualQuantity(nominal, normalized decimal.Decimal) DualQuantity {
	return DualQuantity{Nominal: nominal, Normalized: normalized}
}

// DualFromFloat builds a DualQuantity from float values
func DualFromFloat(nominal, normalized float64) DualQuantity {
	return DualQuantity{
		Nominal:    decimal.NewFromFloat(nominal),
		Normalized: decimal.NewFromFloat(normalized),
	}
}

// Get returns the value of a single dimension
func (q DualQuantity) Get(d Dimension) decimal.Decimal {
	if d == Normalized {
		return q.Normalized
	}
	return q.Nominal
}

// With returns a copy of q with one dimension replaced
func (q DualQuantity) With(d Dimension, v decimal.Decimal) DualQuantity {
	if d == Normalized {
		q.Normalized = v
	} else {
		q.Nominal = v
	}
	return q
}

// Add returns the per-dimension sum
func (q DualQuantity) Add(other DualQuantity) DualQuantity {
	return DualQuantity{
		Nominal:    q.Nominal.Add(other.Nominal),
		Normalized: q.Normalized.Add(other.Normalized),
	}
}

// Sub returns the per-dimension difference
func (q DualQuantity) Sub(other DualQuantity) DualQuantity {
	return DualQuantity{
		Nominal:    q.Nominal.Sub(other.Nominal),
		Normalized: q.Normalized.Sub(other.Normalized),
	}
}

// Neg flips the sign of both dimensions
func (q DualQuantity) Neg() DualQuantity {
	return DualQuantity{Nominal: q.Nominal.Neg(), Normalized: q.Normalized.Neg()}
}

// ClampZero replaces negative dimensions with zero
func (q DualQuantity) ClampZero() DualQuantity {
	return DualQuantity{
		Nominal:    decimal.Max(q.Nominal, decimal.Zero),
		Normalized: decimal.Max(q.Normalized, decimal.Zero),
	}
}

// Round rounds both dimensions with the given policy
func (q DualQuantity) Round(r Rounding) DualQuantity {
	return DualQuantity{Nominal: r.Round(q.Nominal), Normalized: r.Round(q.Normalized)}
}

// IsZero reports whether both dimensions round to zero
func (q DualQuantity) IsZero(r Rounding) bool {
	return r.IsZero(q.Nominal) && r.IsZero(q.Normalized)
}

// Equal compares both dimensions at the rounding precision
func (q DualQuantity) Equal(other DualQuantity, r Rounding) bool {
	return q.Sub(other).IsZero(r)
}

// Sign returns the sign driving the direction of a movement: nominal first, normalized when nominal is zero
func (q DualQuantity) Sign(r Rounding) int {
	if s := r.Round(q.Nominal).Sign(); s != 0 {
		return s
	}
	return r.Round(q.Normalized).Sign()
}

func (q DualQuantity) String() string {
	return fmt.Sprintf("(%s, %s@15C)", q.Nominal.String(), q.Normalized.String())
}

// Density holds the measured density and the density reduced to 15°C
type Density struct {
	Fact      decimal.Decimal `json:"fact"`
	Reference decimal.Decimal `json:"reference"`
}

// HasReference reports whether a normalized quantity is meaningful for this density
func (d Density) HasReference() bool {
	return d.Reference.IsPositive()
}

// densityPlaces is the precision at which two densities are considered the same lot
const densityPlaces = 4

// SameDensity compares two density values at lot precision
func SameDensity(a, b decimal.Decimal) bool {
	return a.Round(densityPlaces).Equal(b.Round(densityPlaces))
}
