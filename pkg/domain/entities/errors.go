package entities

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrValidation      = errors.New("validation failed")
	ErrRoutingNotFound = errors.New("routing not found")
	ErrLotConflict     = errors.New("lot conflict")
	ErrHandlerMissing  = errors.New("handler missing")
	ErrNotFound        = errors.New("not found")
	ErrAlreadyExists   = errors.New("already exists")
)

// ValidationError reports a rejected input
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// NewValidationError creates a ValidationError
func NewValidationError(field, format string, args ...interface{}) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// RoutingNotFound reports that no rule serves a request's product and location
type RoutingNotFound struct {
	Request FulfillmentRequest
}

func (e *RoutingNotFound) Error() string {
	return fmt.Sprintf("no rule has been found to replenish %q in %q", e.Request.Product, e.Request.Location)
}

func (e *RoutingNotFound) Is(target error) bool {
	return target == ErrRoutingNotFound
}

// LotConflict reports that a line cannot be bound to the requested lot
type LotConflict struct {
	LineID         string
	BoundLotID     string
	RequestedLotID string
	Reason         string
}

func (e *LotConflict) Error() string {
	msg := fmt.Sprintf("line %s bound to lot %q cannot take lot %q", e.LineID, e.BoundLotID, e.RequestedLotID)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

func (e *LotConflict) Is(target error) bool {
	return target == ErrLotConflict
}

// HandlerMissing reports a rule action with no registered handler
type HandlerMissing struct {
	Action RuleAction
}

func (e *HandlerMissing) Error() string {
	return fmt.Sprintf("no handler registered for action %q", e.Action)
}

func (e *HandlerMissing) Is(target error) bool {
	return target == ErrHandlerMissing
}

// RequestError attributes a failure to one request of a run
type RequestError struct {
	Index   int
	Request FulfillmentRequest
	Err     error
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("request %d (%s): %v", e.Index, e.Request.Describe(), e.Err)
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// AggregateFailure collects every per-request failure of a run
type AggregateFailure struct {
	Failures []*RequestError
}

func (e *AggregateFailure) Error() string {
	msgs := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		msgs = append(msgs, f.Err.Error())
	}
	return strings.Join(msgs, "\n")
}

func (e *AggregateFailure) Unwrap() []error {
	errs := make([]error, 0, len(e.Failures))
	for _, f := range e.Failures {
		errs = append(errs, f)
	}
	return errs
}

// Count returns the number of collected failures
func (e *AggregateFailure) Count() int {
	if e == nil {
		return 0
	}
	return len(e.Failures)
}

// Add appends a failure
func (e *AggregateFailure) Add(f *RequestError) {
	e.Failures = append(e.Failures, f)
}
