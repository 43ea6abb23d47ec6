package services

import (
	"github.com/shopspring/decimal"
	"github.com/vsinha/fuelrecon/pkg/domain/entities"
)

// FlowDirection classifies a fulfillment line relative to a demand line
type FlowDirection int

const (
	Neutral FlowDirection = iota
	Incoming
	Outgoing
)

// String method for FlowDirection enum
func (d FlowDirection) String() string {
	switch d {
	case Incoming:
		return "Incoming"
	case Outgoing:
		return "Outgoing"
	default:
		return "Neutral"
	}
}

// Basis selects which quantity of a line the ledger sums
type Basis int

const (
	PlannedBasis Basis = iota // line quantity, what the line is committed to move
	DoneBasis                 // executed quantity
)

// QuantityLedger computes how much has moved for a demand line, per dimension.
// Quantities flowing toward the demand destination are positive, returns are negative.
type QuantityLedger struct {
	units  Units
	method entities.RoundingMethod
}

// NewQuantityLedger creates a ledger converting nominal quantities with the given rounding method
func NewQuantityLedger(units Units, method entities.RoundingMethod) *QuantityLedger {
	return &QuantityLedger{units: units, method: method}
}

// Direction classifies line relative to demand
func Direction(demand *entities.DemandLine, line *entities.FulfillmentLine) FlowDirection {
	switch {
	case line.Destination == demand.Destination && line.Source != demand.Destination:
		return Incoming
	case line.Source == demand.Destination && line.Destination != demand.Destination:
		return Outgoing
	default:
		return Neutral
	}
}

// NetFlow returns the signed quantity moved for demand in one dimension
func (l *QuantityLedger) NetFlow(
	demand *entities.DemandLine,
	lines []*entities.FulfillmentLine,
	dim entities.Dimension,
	basis Basis,
) (decimal.Decimal, error) {
	net, err := l.Net(demand, lines, basis)
	if err != nil {
		return decimal.Zero, err
	}
	return net.Get(dim), nil
}

// Net returns the signed quantity moved for demand in both dimensions
func (l *QuantityLedger) Net(
	demand *entities.DemandLine,
	lines []*entities.FulfillmentLine,
	basis Basis,
) (entities.DualQuantity, error) {
	total := entities.DualQuantity{}
	for _, line := range lines {
		if line.State == entities.LineCancelled || !line.IsAttachedTo(demand.ID) {
			continue
		}
		dir := Direction(demand, line)
		if dir == Neutral {
			continue
		}

		qty := line.Quantity
		if basis == DoneBasis {
			qty = line.Done
		}
		moved, err := l.ToDemandUnit(demand, line, qty)
		if err != nil {
			return entities.DualQuantity{}, err
		}

		if dir == Incoming {
			total = total.Add(moved)
		} else {
			total = total.Sub(moved)
		}
	}
	return total, nil
}

// ToDemandUnit expresses a quantity of line in the unit of measure of demand.
// Only the nominal dimension is converted; normalized volumes share one reference unit.
func (l *QuantityLedger) ToDemandUnit(
	demand *entities.DemandLine,
	line *entities.FulfillmentLine,
	qty entities.DualQuantity,
) (entities.DualQuantity, error) {
	if line.UoM == demand.UoM {
		return qty, nil
	}
	nominal, err := l.units.Convert(qty.Nominal, line.UoM, demand.UoM, l.method)
	if err != nil {
		return entities.DualQuantity{}, err
	}
	return entities.NewDualQuantity(nominal, qty.Normalized), nil
}

// Units returns the unit index used for conversions
func (l *QuantityLedger) Units() Units {
	return l.units
}

// Method returns the rounding method used for conversions
func (l *QuantityLedger) Method() entities.RoundingMethod {
	return l.method
}
