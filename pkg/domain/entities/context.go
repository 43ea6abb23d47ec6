package entities

import "time"

// RunContext is passed explicitly to every entry point of a reconciliation pass
type RunContext struct {
	Company            string
	SkipReconciliation bool
	Rounding           Rounding
	Clock              func() time.Time
}

// NewRunContext creates a RunContext with the default rounding and wall clock
func NewRunContext(company string) RunContext {
	return RunContext{Company: company, Rounding: DefaultRounding, Clock: time.Now}
}

// Now returns the current time of the run
func (c RunContext) Now() time.Time {
	if c.Clock == nil {
		return time.Now()
	}
	return c.Clock()
}

// Policy returns the rounding policy, falling back to the default
func (c RunContext) Policy() Rounding {
	if !c.Rounding.Precision.IsPositive() {
		return DefaultRounding
	}
	return c.Rounding
}
