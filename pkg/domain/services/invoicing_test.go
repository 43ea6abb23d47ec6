package services

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/vsinha/fuelrecon/pkg/domain/entities"
)

func TestQuantityToInvoice(t *testing.T) {
	delivered := entities.DualFromFloat(60, 58.8)

	tests := []struct {
		name       string
		policy     entities.InvoicePolicy
		invoiced   entities.DualQuantity
		nominal    string
		normalized string
	}{
		{"on_order", entities.InvoiceOnOrder, entities.DualQuantity{}, "100", "98"},
		{"on_order_partially_invoiced", entities.InvoiceOnOrder, entities.DualFromFloat(30, 29.4), "70", "68.6"},
		{"on_delivery", entities.InvoiceOnDelivery, entities.DualQuantity{}, "60", "58.8"},
		{"on_delivery_over_invoiced", entities.InvoiceOnDelivery, entities.DualFromFloat(100, 98), "-40", "-39.2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			demand := testDemand(t)
			demand.InvoicePolicy = tt.policy
			demand.Invoiced = tt.invoiced

			got := QuantityToInvoice(demand, delivered)
			if !got.Nominal.Equal(decimal.RequireFromString(tt.nominal)) {
				t.Errorf("nominal = %s, want %s", got.Nominal, tt.nominal)
			}
			if !got.Normalized.Equal(decimal.RequireFromString(tt.normalized)) {
				t.Errorf("normalized = %s, want %s", got.Normalized, tt.normalized)
			}
		})
	}
}

func TestPrepareInvoiceLine_UsesLotDensity(t *testing.T) {
	demand := testDemand(t)
	lot, err := entities.NewLotIdentity("DIESEL", decimal.RequireFromString("0.9150"))
	if err != nil {
		t.Fatalf("NewLotIdentity() error = %v", err)
	}
	lot.ID = "lot-1"

	values := PrepareInvoiceLine(demand, entities.DualQuantity{}, lot)
	if values.LotID != "lot-1" {
		t.Errorf("LotID = %s, want lot-1", values.LotID)
	}
	if !values.Density.Reference.Equal(decimal.RequireFromString("0.915")) {
		t.Errorf("reference density = %s, want 0.915", values.Density.Reference)
	}
	if !values.Density.Fact.Equal(demand.Density.Fact) {
		t.Errorf("density fact = %s, want %s", values.Density.Fact, demand.Density.Fact)
	}
}
