package repositories

import (
	"context"

	"github.com/vsinha/fuelrecon/pkg/domain/entities"
)

// RuleRepository provides access to routing rules
type RuleRepository interface {
	// FindRule returns the preferred rule for the need, or nil when none matches
	FindRule(ctx context.Context, product entities.ProductID, location entities.LocationID, company string) (*entities.Rule, error)
	ListRules(ctx context.Context) ([]*entities.Rule, error)
	LoadRules(ctx context.Context, rules []*entities.Rule) error
}
