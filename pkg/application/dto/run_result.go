package dto

import (
	"github.com/vsinha/fuelrecon/pkg/domain/entities"
)

// RunResult contains the outcome of one procurement run
type RunResult struct {
	Created    []*entities.FulfillmentLine
	Updated    []*entities.FulfillmentLine
	Dispatched []int // indices of requests handed to a handler
	Skipped    []int // indices of requests with nothing to procure
	Degraded   []*entities.HandlerMissing
	Failure    *entities.AggregateFailure
}

// Failed reports whether any request failed
func (r *RunResult) Failed() bool {
	return r.Failure.Count() > 0
}

// Lines returns created and updated lines
func (r *RunResult) Lines() []*entities.FulfillmentLine {
	lines := make([]*entities.FulfillmentLine, 0, len(r.Created)+len(r.Updated))
	lines = append(lines, r.Created...)
	return append(lines, r.Updated...)
}

// ReconciliationResult is returned to the order-entry collaborator after a demand change
type ReconciliationResult struct {
	DemandLineID string
	GroupID      string
	Requests     []entities.FulfillmentRequest
	Run          *RunResult
}
