package entities

import "fmt"

// RuleAction is the tag telling the procurement runner how a rule is fulfilled
type RuleAction string

const (
	ActionPull     RuleAction = "pull"
	ActionPush     RuleAction = "push"
	ActionPullPush RuleAction = "pull_push"
	ActionBuy      RuleAction = "buy"
)

// Normalize maps combined actions onto the handler that serves them
func (a RuleAction) Normalize() RuleAction {
	if a == ActionPullPush {
		return ActionPull
	}
	return a
}

// Rule routes a product need at a location to a supply location
type Rule struct {
	ID       string
	Name     string
	Action   RuleAction
	Product  ProductID // empty applies to every product
	Location LocationID
	Source   LocationID
	PushTo   LocationID // optional onward destination for push rules
	Sequence int
	Company  string
}

// NewRule creates a validated Rule
func NewRule(id string, action RuleAction, location, source LocationID) (*Rule, error) {
	if id == "" {
		return nil, fmt.Errorf("rule id cannot be empty")
	}
	if action == "" {
		return nil, fmt.Errorf("rule action cannot be empty")
	}
	if string(location) == "" {
		return nil, fmt.Errorf("rule location cannot be empty")
	}
	if string(source) == "" {
		return nil, fmt.Errorf("rule source location cannot be empty")
	}
	return &Rule{ID: id, Name: id, Action: action, Location: location, Source: source}, nil
}

// Matches reports whether the rule serves the product at the location for the company
func (r *Rule) Matches(product ProductID, location LocationID, company string) bool {
	if r.Location != location {
		return false
	}
	if r.Product != "" && r.Product != product {
		return false
	}
	if r.Company != "" && company != "" && r.Company != company {
		return false
	}
	return true
}

// Better reports whether r should be preferred over other for the same need
func (r *Rule) Better(other *Rule) bool {
	if other == nil {
		return true
	}
	if (r.Product != "") != (other.Product != "") {
		return r.Product != ""
	}
	if r.Sequence != other.Sequence {
		return r.Sequence < other.Sequence
	}
	return r.ID < other.ID
}
