package entities

import (
	"fmt"
	"time"
)

// RequestKind tells whether a request adjusts planned movements or commits new ones
type RequestKind int

const (
	PushRequest   RequestKind = iota // needs a brand-new movement
	AttachRequest                    // absorbed by already planned movements
)

// String method for RequestKind enum
func (k RequestKind) String() string {
	switch k {
	case PushRequest:
		return "Push"
	case AttachRequest:
		return "Attach"
	default:
		return "Unknown"
	}
}

// ProcurementValues carries the context a request is dispatched with
type ProcurementValues struct {
	Company     string
	Priority    string
	PlannedDate time.Time
	GroupID     string
	LotID       string // restrict the created line to this lot
}

// FulfillmentRequest asks for a quantity of product at a location on behalf of a demand line
type FulfillmentRequest struct {
	Kind         RequestKind
	Product      ProductID
	Quantity     DualQuantity
	Density      Density
	UoM          string
	Location     LocationID
	Origin       string
	DemandLineID string
	AttachTo     []string
	Values       ProcurementValues
}

// Describe returns a short human description used in error messages
func (r FulfillmentRequest) Describe() string {
	if r.DemandLineID == "" {
		return fmt.Sprintf("%s %s in %s", r.Kind, r.Product, r.Location)
	}
	return fmt.Sprintf("%s %s in %s for %s", r.Kind, r.Product, r.Location, r.DemandLineID)
}
