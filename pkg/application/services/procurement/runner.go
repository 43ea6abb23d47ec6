package procurement

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/vsinha/fuelrecon/pkg/application/dto"
	"github.com/vsinha/fuelrecon/pkg/domain/entities"
	"github.com/vsinha/fuelrecon/pkg/domain/repositories"
	"github.com/vsinha/fuelrecon/pkg/infrastructure/events"
)

const defaultPriority = "0"

// Procurement is a request paired with the rule resolved for it
type Procurement struct {
	Index   int
	Request entities.FulfillmentRequest
	Rule    *entities.Rule
}

// Outcome lists the lines a handler created or changed
type Outcome struct {
	Created []*entities.FulfillmentLine
	Updated []*entities.FulfillmentLine
}

// Handler fulfills a batch of procurements sharing one rule action.
// Returning an *entities.AggregateFailure attributes failures to individual requests;
// any other error fails the whole batch.
type Handler func(ctx context.Context, rc entities.RunContext, batch []Procurement) (Outcome, error)

// Runner resolves routing rules for fulfillment requests and dispatches them by action
type Runner struct {
	rules     repositories.RuleRepository
	catalog   repositories.CatalogRepository
	handlers  map[entities.RuleAction]Handler
	publisher events.Publisher
	logger    *zap.Logger
}

// NewRunner creates a runner. The pull and push actions must have a handler.
func NewRunner(
	rules repositories.RuleRepository,
	catalog repositories.CatalogRepository,
	handlers map[entities.RuleAction]Handler,
	publisher events.Publisher,
	logger *zap.Logger,
) (*Runner, error) {
	for _, action := range []entities.RuleAction{entities.ActionPull, entities.ActionPush} {
		if handlers[action] == nil {
			return nil, &entities.HandlerMissing{Action: action}
		}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	registry := make(map[entities.RuleAction]Handler, len(handlers))
	for action, h := range handlers {
		registry[action] = h
	}
	return &Runner{
		rules:     rules,
		catalog:   catalog,
		handlers:  registry,
		publisher: publisher,
		logger:    logger,
	}, nil
}

// Validate checks that every configured rule action has a registered handler
func (r *Runner) Validate(ctx context.Context) error {
	rules, err := r.rules.ListRules(ctx)
	if err != nil {
		return fmt.Errorf("failed to list rules: %w", err)
	}
	var missing []error
	seen := make(map[entities.RuleAction]bool)
	for _, rule := range rules {
		action := rule.Action.Normalize()
		if seen[action] {
			continue
		}
		seen[action] = true
		if r.handlers[action] == nil {
			missing = append(missing, &entities.HandlerMissing{Action: action})
		}
	}
	return errors.Join(missing...)
}

// Run dispatches requests. Per-request failures never stop sibling requests; they are
// returned as one *entities.AggregateFailure error when strict, or in RunResult.Failure otherwise.
func (r *Runner) Run(
	ctx context.Context,
	rc entities.RunContext,
	requests []entities.FulfillmentRequest,
	strict bool,
) (*dto.RunResult, error) {
	result := &dto.RunResult{}
	failure := &entities.AggregateFailure{}
	policy := rc.Policy()

	groups := make(map[entities.RuleAction][]Procurement)
	for i, req := range requests {
		req = r.withDefaults(ctx, rc, req)

		product, err := r.catalog.GetProduct(ctx, req.Product)
		if err != nil {
			failure.Add(&entities.RequestError{Index: i, Request: req, Err: err})
			continue
		}
		if !product.Type.Trackable() || req.Quantity.IsZero(policy) {
			result.Skipped = append(result.Skipped, i)
			continue
		}

		rule, err := r.rules.FindRule(ctx, req.Product, req.Location, req.Values.Company)
		if err != nil {
			failure.Add(&entities.RequestError{Index: i, Request: req, Err: err})
			continue
		}
		if rule == nil {
			failure.Add(&entities.RequestError{Index: i, Request: req, Err: &entities.RoutingNotFound{Request: req}})
			continue
		}

		action := rule.Action.Normalize()
		groups[action] = append(groups[action], Procurement{Index: i, Request: req, Rule: rule})
	}

	actions := make([]entities.RuleAction, 0, len(groups))
	for action := range groups {
		actions = append(actions, action)
	}
	sort.Slice(actions, func(i, j int) bool { return actions[i] < actions[j] })

	for _, action := range actions {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		batch := groups[action]
		handler := r.handlers[action]
		if handler == nil {
			r.logger.Error("no handler registered for rule action, skipping requests",
				zap.String("action", string(action)),
				zap.Int("requests", len(batch)))
			result.Degraded = append(result.Degraded, &entities.HandlerMissing{Action: action})
			continue
		}

		outcome, err := handler(ctx, rc, batch)
		result.Created = append(result.Created, outcome.Created...)
		result.Updated = append(result.Updated, outcome.Updated...)

		failed := make(map[int]bool)
		if err != nil {
			var agg *entities.AggregateFailure
			if errors.As(err, &agg) {
				for _, f := range agg.Failures {
					failure.Add(f)
					failed[f.Index] = true
				}
			} else {
				for _, p := range batch {
					failure.Add(&entities.RequestError{Index: p.Index, Request: p.Request, Err: err})
					failed[p.Index] = true
				}
			}
		}
		for _, p := range batch {
			if !failed[p.Index] {
				result.Dispatched = append(result.Dispatched, p.Index)
			}
		}
	}
	sort.Ints(result.Dispatched)

	if failure.Count() == 0 {
		return result, nil
	}

	sort.SliceStable(failure.Failures, func(i, j int) bool {
		return failure.Failures[i].Index < failure.Failures[j].Index
	})
	for _, f := range failure.Failures {
		r.logger.Warn("procurement failed",
			zap.Int("index", f.Index),
			zap.String("product", string(f.Request.Product)),
			zap.String("location", string(f.Request.Location)),
			zap.Error(f.Err))
		if err := events.Publish(r.publisher, events.NewProcurementFailedEvent(f, rc.Now())); err != nil {
			r.logger.Warn("failed to publish procurement event", zap.Error(err))
		}
	}

	result.Failure = failure
	if strict {
		return result, failure
	}
	return result, nil
}

// withDefaults fills company, priority and planned date left empty by the caller
func (r *Runner) withDefaults(ctx context.Context, rc entities.RunContext, req entities.FulfillmentRequest) entities.FulfillmentRequest {
	if req.Values.Company == "" {
		if loc, err := r.catalog.GetLocation(ctx, req.Location); err == nil && loc.Company != "" {
			req.Values.Company = loc.Company
		} else {
			req.Values.Company = rc.Company
		}
	}
	if req.Values.Priority == "" {
		req.Values.Priority = defaultPriority
	}
	if req.Values.PlannedDate.IsZero() {
		req.Values.PlannedDate = rc.Now()
	}
	return req
}
