package events

import (
	"time"

	"github.com/vsinha/fuelrecon/pkg/domain/entities"
)

const (
	DemandUpdatedEvent = "demand.updated"

	FulfillmentCreatedEvent = "fulfillment.created"
	FulfillmentUpdatedEvent = "fulfillment.updated"
	FulfillmentMergedEvent  = "fulfillment.merged"
	FulfillmentSplitEvent   = "fulfillment.split"

	LotCreatedEvent = "lot.created"
	LotBoundEvent   = "lot.bound"

	ProcurementFailedEvent = "procurement.failed"
	ReportGeneratedEvent   = "report.generated"
)

type DemandUpdated struct {
	DemandLineID string                `json:"demand_line_id"`
	Previous     entities.DualQuantity `json:"previous"`
	Target       entities.DualQuantity `json:"target"`
	Density      entities.Density      `json:"density"`
}

type FulfillmentChanged struct {
	LineID       string                `json:"line_id"`
	GroupID      string                `json:"group_id"`
	DemandLineID string                `json:"demand_line_id,omitempty"`
	Quantity     entities.DualQuantity `json:"quantity"`
}

type FulfillmentMerged struct {
	SurvivorID string                `json:"survivor_id"`
	MergedIDs  []string              `json:"merged_ids"`
	Quantity   entities.DualQuantity `json:"quantity"`
}

type FulfillmentSplit struct {
	LineID    string                `json:"line_id"`
	NewLineID string                `json:"new_line_id"`
	Split     entities.DualQuantity `json:"split"`
	Remainder entities.DualQuantity `json:"remainder"`
}

type LotBound struct {
	LotID  string `json:"lot_id"`
	Label  string `json:"label"`
	LineID string `json:"line_id,omitempty"`
}

type ProcurementFailed struct {
	Index   int    `json:"index"`
	Product string `json:"product"`
	Reason  string `json:"reason"`
}

type ReportGenerated struct {
	Company string    `json:"company"`
	Start   time.Time `json:"start"`
	End     time.Time `json:"end"`
	Rows    int       `json:"rows"`
}

func NewDemandUpdatedEvent(demand *entities.DemandLine, previous entities.DualQuantity, at time.Time) Event {
	return NewEvent(DemandUpdatedEvent, DemandStream(demand.ID), DemandUpdated{
		DemandLineID: demand.ID,
		Previous:     previous,
		Target:       demand.Target,
		Density:      demand.Density,
	}, at)
}

func NewFulfillmentEvent(eventType string, line *entities.FulfillmentLine, demandLineID string, at time.Time) Event {
	return NewEvent(eventType, LineStream(line.ID), FulfillmentChanged{
		LineID:       line.ID,
		GroupID:      line.GroupID,
		DemandLineID: demandLineID,
		Quantity:     line.Quantity,
	}, at)
}

func NewFulfillmentMergedEvent(survivor *entities.FulfillmentLine, merged []string, at time.Time) Event {
	return NewEvent(FulfillmentMergedEvent, LineStream(survivor.ID), FulfillmentMerged{
		SurvivorID: survivor.ID,
		MergedIDs:  merged,
		Quantity:   survivor.Quantity,
	}, at)
}

func NewFulfillmentSplitEvent(remainder, split *entities.FulfillmentLine, at time.Time) Event {
	return NewEvent(FulfillmentSplitEvent, LineStream(remainder.ID), FulfillmentSplit{
		LineID:    remainder.ID,
		NewLineID: split.ID,
		Split:     split.Quantity,
		Remainder: remainder.Quantity,
	}, at)
}

func NewLotEvent(eventType string, lot *entities.LotIdentity, lineID string, at time.Time) Event {
	return NewEvent(eventType, LotStream(lot.ID), LotBound{LotID: lot.ID, Label: lot.Label, LineID: lineID}, at)
}

func NewProcurementFailedEvent(failure *entities.RequestError, at time.Time) Event {
	return NewEvent(ProcurementFailedEvent, ProcurementStream, ProcurementFailed{
		Index:   failure.Index,
		Product: string(failure.Request.Product),
		Reason:  failure.Err.Error(),
	}, at)
}

func NewReportGeneratedEvent(company string, start, end time.Time, rows int, at time.Time) Event {
	return NewEvent(ReportGeneratedEvent, ReportStream(company), ReportGenerated{
		Company: company,
		Start:   start,
		End:     end,
		Rows:    rows,
	}, at)
}
