package testing

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/vsinha/fuelrecon/pkg/domain/entities"
	"github.com/vsinha/fuelrecon/pkg/infrastructure/repositories/memory"
)

// BuildFuelTestData builds the single-warehouse fuel scenario: liters, diesel and gasoline,
// the ACME warehouse with its customer and vendor locations, and the deliver and receive routes.
func BuildFuelTestData() (*memory.CatalogRepository, *memory.RuleRepository, *entities.UnitOfMeasure) {
	ctx := context.Background()
	catalog := memory.NewCatalogRepository()
	rules := memory.NewRuleRepository()

	liter, err := entities.NewUnitOfMeasure("L", "volume", decimal.NewFromInt(1), decimal.New(1, -3))
	if err != nil {
		panic(err)
	}
	if err := catalog.SaveUnit(ctx, liter); err != nil {
		panic(err)
	}

	for _, id := range []entities.ProductID{"DIESEL", "GASOLINE"} {
		product, err := entities.NewProduct(id, string(id), "Fuels", entities.Storable, "L")
		if err != nil {
			panic(err)
		}
		if err := catalog.SaveProduct(ctx, product); err != nil {
			panic(err)
		}
	}

	locations := []*entities.Location{
		{ID: "WH/Stock", Company: "ACME", Usage: entities.Internal},
		{ID: "Customers", Company: "ACME", Usage: entities.Customer},
		{ID: "Export", Company: "ACME", Usage: entities.Customer},
		{ID: "Vendors", Usage: entities.Supplier},
	}
	for _, l := range locations {
		if err := catalog.SaveLocation(ctx, l); err != nil {
			panic(err)
		}
	}

	deliver := mustCreateRule("deliver", entities.ActionPullPush, "Customers", "WH/Stock")
	receive := mustCreateRule("receive", entities.ActionBuy, "WH/Stock", "Vendors")
	if err := rules.LoadRules(ctx, []*entities.Rule{deliver, receive}); err != nil {
		panic(err)
	}
	return catalog, rules, liter
}

// Density builds a density pair from decimal strings
func Density(fact, reference string) entities.Density {
	return entities.Density{Fact: decimal.RequireFromString(fact), Reference: decimal.RequireFromString(reference)}
}

// MustCreateSaleLine is a helper for tests - panics on validation error.
// The line ships from WH/Stock with an empty target.
func MustCreateSaleLine(id, order string, product entities.ProductID, destination entities.LocationID, density entities.Density) *entities.DemandLine {
	line, err := entities.NewDemandLine(id, order, entities.SaleDemand, product, entities.DualQuantity{}, density, "L", "WH/Stock", destination)
	if err != nil {
		panic(err)
	}
	return line
}

func mustCreateRule(id string, action entities.RuleAction, location, source entities.LocationID) *entities.Rule {
	rule, err := entities.NewRule(id, action, location, source)
	if err != nil {
		panic(err)
	}
	return rule
}
