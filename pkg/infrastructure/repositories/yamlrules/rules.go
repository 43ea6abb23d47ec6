package yamlrules

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/vsinha/fuelrecon/pkg/domain/entities"
)

// File models a routing rules file
type File struct {
	Rules []RuleEntry `yaml:"rules"`
}

// RuleEntry is one routing rule as written in YAML
type RuleEntry struct {
	ID       string `yaml:"id"`
	Name     string `yaml:"name"`
	Action   string `yaml:"action"`
	Product  string `yaml:"product"`
	Location string `yaml:"location"`
	Source   string `yaml:"source"`
	PushTo   string `yaml:"push_to"`
	Sequence int    `yaml:"sequence"`
	Company  string `yaml:"company"`
}

// FromYAML parses and validates routing rules from raw YAML bytes
func FromYAML(data []byte) ([]*entities.Rule, error) {
	var file File
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("invalid rules yaml: %w", err)
	}

	seen := make(map[string]bool, len(file.Rules))
	rules := make([]*entities.Rule, 0, len(file.Rules))
	for i, entry := range file.Rules {
		rule, err := entry.toRule()
		if err != nil {
			return nil, fmt.Errorf("rule %d: %w", i+1, err)
		}
		if seen[rule.ID] {
			return nil, fmt.Errorf("rule %d: duplicate rule id %s", i+1, rule.ID)
		}
		seen[rule.ID] = true
		rules = append(rules, rule)
	}
	return rules, nil
}

// FromFile reads routing rules from the given path
func FromFile(path string) ([]*entities.Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return FromYAML(data)
}

func (s RuleEntry) toRule() (*entities.Rule, error) {
	// Unknown actions are kept; Runner.Validate reports them at startup.
	rule, err := entities.NewRule(s.ID, entities.RuleAction(s.Action), entities.LocationID(s.Location), entities.LocationID(s.Source))
	if err != nil {
		return nil, err
	}
	if s.Name != "" {
		rule.Name = s.Name
	}
	rule.Product = entities.ProductID(s.Product)
	rule.PushTo = entities.LocationID(s.PushTo)
	rule.Sequence = s.Sequence
	rule.Company = s.Company
	return rule, nil
}
