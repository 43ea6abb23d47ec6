package entities

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DemandKind distinguishes sales demand from purchase demand
type DemandKind int

const (
	SaleDemand DemandKind = iota
	PurchaseDemand
)

// String method for DemandKind enum
func (k DemandKind) String() string {
	switch k {
	case SaleDemand:
		return "Sale"
	case PurchaseDemand:
		return "Purchase"
	default:
		return "Unknown"
	}
}

// ParseDemandKind converts a textual demand kind
func ParseDemandKind(value string) (DemandKind, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "sale", "sales":
		return SaleDemand, nil
	case "purchase":
		return PurchaseDemand, nil
	default:
		return SaleDemand, fmt.Errorf("unknown demand kind: %s", value)
	}
}

// DemandState represents the lifecycle state of a demand line
type DemandState int

const (
	DemandOpen DemandState = iota
	DemandConfirmed
	DemandDone
	DemandCancelled
)

// String method for DemandState enum
func (s DemandState) String() string {
	switch s {
	case DemandOpen:
		return "Open"
	case DemandConfirmed:
		return "Confirmed"
	case DemandDone:
		return "Done"
	case DemandCancelled:
		return "Cancelled"
	default:
		return "Unknown"
	}
}

// InvoicePolicy decides what quantity is due for invoicing
type InvoicePolicy int

const (
	InvoiceOnOrder InvoicePolicy = iota
	InvoiceOnDelivery
)

// String method for InvoicePolicy enum
func (p InvoicePolicy) String() string {
	switch p {
	case InvoiceOnOrder:
		return "OnOrder"
	case InvoiceOnDelivery:
		return "OnDelivery"
	default:
		return "Unknown"
	}
}

// DemandLine is a sales or purchase request for a product at a location.
// Fulfillment lines reference the demand lines they fulfill; the demand keeps
// only the group they are dispatched into.
type DemandLine struct {
	ID            string
	Order         string // top-level order, also the reconciliation lock key
	Kind          DemandKind
	Product       ProductID
	Target        DualQuantity
	Density       Density
	UoM           string
	State         DemandState
	Source        LocationID
	Destination   LocationID
	Partner       string
	Company       string
	GroupID       string
	InvoicePolicy InvoicePolicy
	Invoiced      DualQuantity
	PlannedDate   time.Time

	// Reconciled is the effective target of the last pass that finished without failures
	Reconciled    DualQuantity
	HasReconciled bool
}

// NewDemandLine creates a validated DemandLine in the open state
func NewDemandLine(
	id, order string,
	kind DemandKind,
	product ProductID,
	target DualQuantity,
	density Density,
	uom string,
	source, destination LocationID,
) (*DemandLine, error) {
	if id == "" {
		return nil, fmt.Errorf("demand line id cannot be empty")
	}
	if string(product) == "" {
		return nil, fmt.Errorf("product cannot be empty")
	}
	if uom == "" {
		return nil, fmt.Errorf("unit of measure cannot be empty")
	}
	if string(destination) == "" {
		return nil, fmt.Errorf("destination location cannot be empty")
	}
	if target.Nominal.IsNegative() || target.Normalized.IsNegative() {
		return nil, fmt.Errorf("target quantity cannot be negative, got %s", target)
	}
	if density.Fact.IsNegative() || density.Reference.IsNegative() {
		return nil, fmt.Errorf("density cannot be negative")
	}
	if order == "" {
		order = id
	}

	return &DemandLine{
		ID:          id,
		Order:       order,
		Kind:        kind,
		Product:     product,
		Target:      target,
		Density:     density,
		UoM:         uom,
		State:       DemandOpen,
		Source:      source,
		Destination: destination,
	}, nil
}

// EffectiveTarget returns the target with the normalized dimension zeroed when no reference density is known
func (d *DemandLine) EffectiveTarget() DualQuantity {
	if !d.Density.HasReference() {
		return DualQuantity{Nominal: d.Target.Nominal, Normalized: decimal.Zero}
	}
	return d.Target
}

// IsActive reports whether the demand still drives fulfillment
func (d *DemandLine) IsActive() bool {
	return d.State == DemandOpen || d.State == DemandConfirmed
}

// Baseline returns the target the fulfillment was last reconciled against,
// or fallback when no pass has completed yet
func (d *DemandLine) Baseline(fallback DualQuantity) DualQuantity {
	if !d.HasReconciled {
		return fallback
	}
	return d.Reconciled
}

// MarkReconciled records the current effective target as reconciled
func (d *DemandLine) MarkReconciled() {
	d.Reconciled = d.EffectiveTarget()
	d.HasReconciled = true
}
