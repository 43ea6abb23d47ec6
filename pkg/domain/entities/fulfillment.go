package entities

import (
	"fmt"
	"sort"
	"time"
)

// LineState represents the execution state of a fulfillment line
type LineState int

const (
	LineDraft LineState = iota
	LineConfirmed
	LineAssigned
	LinePartiallyAvailable
	LineDone
	LineCancelled
)

// String method for LineState enum
func (s LineState) String() string {
	switch s {
	case LineDraft:
		return "Draft"
	case LineConfirmed:
		return "Confirmed"
	case LineAssigned:
		return "Assigned"
	case LinePartiallyAvailable:
		return "PartiallyAvailable"
	case LineDone:
		return "Done"
	case LineCancelled:
		return "Cancelled"
	default:
		return "Unknown"
	}
}

// Terminal reports whether no further movement can happen on the line
func (s LineState) Terminal() bool {
	return s == LineDone || s == LineCancelled
}

// MovePolicy controls how lines of a group are shipped
type MovePolicy int

const (
	MoveDirect MovePolicy = iota // ship as soon as possible
	MoveOne                      // ship everything at once
)

// String method for MovePolicy enum
func (p MovePolicy) String() string {
	switch p {
	case MoveDirect:
		return "Direct"
	case MoveOne:
		return "One"
	default:
		return "Unknown"
	}
}

// FulfillmentGroup groups the lines created for one demand context
type FulfillmentGroup struct {
	ID           string
	DemandLineID string
	Partner      string
	MovePolicy   MovePolicy
	Company      string
}

// FulfillmentLine is a concrete movement of product between two locations
type FulfillmentLine struct {
	ID            string
	GroupID       string
	Product       ProductID
	Quantity      DualQuantity
	Done          DualQuantity
	Density       Density
	UoM           string
	Source        LocationID
	Destination   LocationID
	State         LineState
	LotID         string
	DemandLineIDs []string // demand lines this line is attached to
	DestLineIDs   []string // downstream lines fed by this line
	Origin        string
	RuleID        string
	Priority      string
	PlannedDate   time.Time
	Company       string
	CreatedAt     time.Time
}

// NewFulfillmentLine creates a validated FulfillmentLine in the draft state
func NewFulfillmentLine(
	product ProductID,
	quantity DualQuantity,
	density Density,
	uom string,
	source, destination LocationID,
) (*FulfillmentLine, error) {
	if string(product) == "" {
		return nil, fmt.Errorf("product cannot be empty")
	}
	if uom == "" {
		return nil, fmt.Errorf("unit of measure cannot be empty")
	}
	if string(source) == "" || string(destination) == "" {
		return nil, fmt.Errorf("source and destination locations are required")
	}
	if source == destination {
		return nil, fmt.Errorf("source and destination cannot be the same: %s", source)
	}

	return &FulfillmentLine{
		Product:     product,
		Quantity:    quantity,
		Density:     density,
		UoM:         uom,
		Source:      source,
		Destination: destination,
		State:       LineDraft,
	}, nil
}

// Open reports whether the line can still be changed
func (l *FulfillmentLine) Open() bool {
	return !l.State.Terminal()
}

// Remaining returns the quantity not yet executed
func (l *FulfillmentLine) Remaining() DualQuantity {
	return l.Quantity.Sub(l.Done)
}

// IsAttachedTo reports whether the line fulfills the given demand line
func (l *FulfillmentLine) IsAttachedTo(demandLineID string) bool {
	for _, id := range l.DemandLineIDs {
		if id == demandLineID {
			return true
		}
	}
	return false
}

// AttachDemand links the line to a demand line once
func (l *FulfillmentLine) AttachDemand(demandLineID string) {
	if demandLineID == "" || l.IsAttachedTo(demandLineID) {
		return
	}
	l.DemandLineIDs = append(l.DemandLineIDs, demandLineID)
}

// SortByPlan orders lines by planned date, then creation time, then ID
func SortByPlan(lines []*FulfillmentLine) {
	sort.SliceStable(lines, func(i, j int) bool {
		a, b := lines[i], lines[j]
		if !a.PlannedDate.Equal(b.PlannedDate) {
			return a.PlannedDate.Before(b.PlannedDate)
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
}

// Clone returns a deep copy of the line
func (l *FulfillmentLine) Clone() *FulfillmentLine {
	c := *l
	c.DemandLineIDs = append([]string(nil), l.DemandLineIDs...)
	c.DestLineIDs = append([]string(nil), l.DestLineIDs...)
	return &c
}

// FulfillmentLineDetail records a quantity actually executed for a line
type FulfillmentLineDetail struct {
	ID          string
	LineID      string
	Product     ProductID
	Source      LocationID
	Destination LocationID
	LotID       string
	Done        DualQuantity
	Date        time.Time
}

// Touches reports whether the detail moves goods into or out of the location
func (d *FulfillmentLineDetail) Touches(location LocationID) bool {
	return d.Source == location || d.Destination == location
}
