package services

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/vsinha/fuelrecon/pkg/domain/entities"
)

func testUnits() Units {
	liter, _ := entities.NewUnitOfMeasure("L", "volume", decimal.NewFromInt(1), decimal.New(1, -3))
	m3, _ := entities.NewUnitOfMeasure("m3", "volume", decimal.New(1, -3), decimal.New(1, -3))
	kg, _ := entities.NewUnitOfMeasure("kg", "weight", decimal.NewFromInt(1), decimal.New(1, -3))
	return NewUnits(liter, m3, kg)
}

func testDemand(t *testing.T) *entities.DemandLine {
	t.Helper()
	density := entities.Density{Fact: decimal.RequireFromString("0.92"), Reference: decimal.RequireFromString("0.92")}
	d, err := entities.NewDemandLine("SO1-1", "SO1", entities.SaleDemand, "DIESEL",
		entities.DualFromFloat(100, 98), density, "L", "WH/Stock", "Customers")
	if err != nil {
		t.Fatalf("NewDemandLine() error = %v", err)
	}
	return d
}

func line(src, dst entities.LocationID, nominal, normalized float64, uom string, demands ...string) *entities.FulfillmentLine {
	return &entities.FulfillmentLine{
		ID:            string(src) + ">" + string(dst),
		Product:       "DIESEL",
		Quantity:      entities.DualFromFloat(nominal, normalized),
		UoM:           uom,
		Source:        src,
		Destination:   dst,
		State:         entities.LineConfirmed,
		DemandLineIDs: demands,
	}
}

func TestDirection(t *testing.T) {
	demand := testDemand(t)

	tests := []struct {
		name     string
		line     *entities.FulfillmentLine
		expected FlowDirection
	}{
		{"delivery", line("WH/Stock", "Customers", 1, 1, "L"), Incoming},
		{"return", line("Customers", "WH/Stock", 1, 1, "L"), Outgoing},
		{"internal_transfer", line("WH/Input", "WH/Stock", 1, 1, "L"), Neutral},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Direction(demand, tt.line); got != tt.expected {
				t.Errorf("Direction() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestQuantityLedger_Net(t *testing.T) {
	ledger := NewQuantityLedger(testUnits(), entities.HalfUp)
	demand := testDemand(t)

	cancelled := line("WH/Stock", "Customers", 50, 49, "L", "SO1-1")
	cancelled.State = entities.LineCancelled

	tests := []struct {
		name       string
		lines      []*entities.FulfillmentLine
		nominal    string
		normalized string
	}{
		{
			name:       "no_lines",
			nominal:    "0",
			normalized: "0",
		},
		{
			name:       "delivery_minus_return",
			lines:      []*entities.FulfillmentLine{line("WH/Stock", "Customers", 100, 98, "L", "SO1-1"), line("Customers", "WH/Stock", 10, 9.8, "L", "SO1-1")},
			nominal:    "90",
			normalized: "88.2",
		},
		{
			name:       "unattached_and_cancelled_ignored",
			lines:      []*entities.FulfillmentLine{line("WH/Stock", "Customers", 100, 98, "L", "SO2-1"), cancelled},
			nominal:    "0",
			normalized: "0",
		},
		{
			name:       "converted_to_demand_unit",
			lines:      []*entities.FulfillmentLine{line("WH/Stock", "Customers", 0.0125, 12.2, "m3", "SO1-1")},
			nominal:    "12.5",
			normalized: "12.2",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			net, err := ledger.Net(demand, tt.lines, PlannedBasis)
			if err != nil {
				t.Fatalf("Net() error = %v", err)
			}
			if !net.Nominal.Equal(decimal.RequireFromString(tt.nominal)) {
				t.Errorf("nominal = %s, want %s", net.Nominal, tt.nominal)
			}
			if !net.Normalized.Equal(decimal.RequireFromString(tt.normalized)) {
				t.Errorf("normalized = %s, want %s", net.Normalized, tt.normalized)
			}
		})
	}
}

func TestQuantityLedger_DoneBasis(t *testing.T) {
	ledger := NewQuantityLedger(testUnits(), entities.HalfUp)
	demand := testDemand(t)

	l := line("WH/Stock", "Customers", 100, 98, "L", "SO1-1")
	l.Done = entities.DualFromFloat(40, 39.2)

	got, err := ledger.NetFlow(demand, []*entities.FulfillmentLine{l}, entities.Normalized, DoneBasis)
	if err != nil {
		t.Fatalf("NetFlow() error = %v", err)
	}
	if !got.Equal(decimal.RequireFromString("39.2")) {
		t.Errorf("NetFlow() = %s, want 39.2", got)
	}
}

func TestQuantityLedger_IncompatibleUnits(t *testing.T) {
	ledger := NewQuantityLedger(testUnits(), entities.HalfUp)
	demand := testDemand(t)

	_, err := ledger.Net(demand, []*entities.FulfillmentLine{line("WH/Stock", "Customers", 1, 1, "kg", "SO1-1")}, PlannedBasis)
	if err == nil {
		t.Fatal("expected conversion error")
	}
	expected := "cannot convert kg to L: units belong to different categories (weight, volume)"
	if err.Error() != expected {
		t.Errorf("error = %q, want %q", err.Error(), expected)
	}
}

func TestConvertQuantity_Rounding(t *testing.T) {
	liter, _ := entities.NewUnitOfMeasure("L", "volume", decimal.NewFromInt(1), decimal.NewFromInt(1))
	hl, _ := entities.NewUnitOfMeasure("hl", "volume", decimal.New(1, -2), decimal.New(1, -2))

	tests := []struct {
		name     string
		qty      string
		method   entities.RoundingMethod
		expected string
	}{
		{"half_up", "2.5", entities.HalfUp, "3"},
		{"half_even", "2.5", entities.HalfEven, "2"},
		{"half_even_odd", "3.5", entities.HalfEven, "4"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ConvertQuantity(decimal.RequireFromString(tt.qty), liter, liter, tt.method)
			if err != nil {
				t.Fatalf("ConvertQuantity() error = %v", err)
			}
			if !got.Equal(decimal.RequireFromString(tt.expected)) {
				t.Errorf("ConvertQuantity() = %s, want %s", got, tt.expected)
			}
		})
	}

	got, err := ConvertQuantity(decimal.NewFromInt(250), liter, hl, entities.HalfUp)
	if err != nil {
		t.Fatalf("ConvertQuantity() error = %v", err)
	}
	if !got.Equal(decimal.RequireFromString("2.5")) {
		t.Errorf("ConvertQuantity(250 L -> hl) = %s, want 2.5", got)
	}
}
