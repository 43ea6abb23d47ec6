package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/vsinha/fuelrecon/pkg/domain/entities"
	"github.com/vsinha/fuelrecon/pkg/domain/repositories"
)

// RuleRepository provides in-memory routing rules
type RuleRepository struct {
	mu    sync.RWMutex
	rules map[string]*entities.Rule
}

// NewRuleRepository creates a new in-memory rule repository
func NewRuleRepository() *RuleRepository {
	return &RuleRepository{rules: make(map[string]*entities.Rule)}
}

// Verify interface compliance
var _ repositories.RuleRepository = (*RuleRepository)(nil)

// LoadRules adds rules to the repository
func (r *RuleRepository) LoadRules(ctx context.Context, rules []*entities.Rule) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, rule := range rules {
		if rule.ID == "" {
			return fmt.Errorf("rule id cannot be empty")
		}
		r.rules[rule.ID] = rule
	}
	return nil
}

// FindRule returns the preferred matching rule, or nil when none matches
func (r *RuleRepository) FindRule(ctx context.Context, product entities.ProductID, location entities.LocationID, company string) (*entities.Rule, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var best *entities.Rule
	for _, rule := range r.rules {
		if rule.Matches(product, location, company) && rule.Better(best) {
			best = rule
		}
	}
	return best, nil
}

// ListRules returns every rule sorted by sequence then ID
func (r *RuleRepository) ListRules(ctx context.Context) ([]*entities.Rule, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rules := make([]*entities.Rule, 0, len(r.rules))
	for _, rule := range r.rules {
		rules = append(rules, rule)
	}
	sort.Slice(rules, func(i, j int) bool {
		if rules[i].Sequence != rules[j].Sequence {
			return rules[i].Sequence < rules[j].Sequence
		}
		return rules[i].ID < rules[j].ID
	})
	return rules, nil
}
