package gormdb

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/vsinha/fuelrecon/pkg/domain/entities"
	"github.com/vsinha/fuelrecon/pkg/domain/repositories"
)

// RuleRepository persists routing rules
type RuleRepository struct {
	db *gorm.DB
}

// NewRuleRepository creates a rule repository
func NewRuleRepository(db *gorm.DB) *RuleRepository {
	return &RuleRepository{db: db}
}

// Verify interface compliance
var _ repositories.RuleRepository = (*RuleRepository)(nil)

// FindRule returns the preferred rule for the need, or nil when none matches
func (r *RuleRepository) FindRule(ctx context.Context, product entities.ProductID, location entities.LocationID, company string) (*entities.Rule, error) {
	var models []RuleModel
	if err := r.db.WithContext(ctx).Where("location = ?", string(location)).Find(&models).Error; err != nil {
		return nil, errors.Wrap(err, "failed to find rule")
	}

	var best *entities.Rule
	for i := range models {
		rule := models[i].toDomain()
		if rule.Matches(product, location, company) && rule.Better(best) {
			best = rule
		}
	}
	return best, nil
}

// ListRules returns every rule ordered by sequence then ID
func (r *RuleRepository) ListRules(ctx context.Context) ([]*entities.Rule, error) {
	var models []RuleModel
	if err := r.db.WithContext(ctx).Order("sequence, id").Find(&models).Error; err != nil {
		return nil, errors.Wrap(err, "failed to list rules")
	}
	rules := make([]*entities.Rule, len(models))
	for i := range models {
		rules[i] = models[i].toDomain()
	}
	return rules, nil
}

// LoadRules replaces every stored rule
func (r *RuleRepository) LoadRules(ctx context.Context, rules []*entities.Rule) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&RuleModel{}).Error; err != nil {
			return errors.Wrap(err, "failed to clear rules")
		}
		for _, rule := range rules {
			if err := tx.Create(ruleFromDomain(rule)).Error; err != nil {
				return errors.Wrapf(err, "failed to save rule %s", rule.ID)
			}
		}
		return nil
	})
}
