package planning

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vsinha/fuelrecon/pkg/domain/entities"
	"github.com/vsinha/fuelrecon/pkg/domain/services"
	"github.com/vsinha/fuelrecon/pkg/infrastructure/repositories/memory"
)

type fixture struct {
	catalog     *memory.CatalogRepository
	fulfillment *memory.FulfillmentRepository
	splitter    *DemandSplitter
	rc          entities.RunContext
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	catalog := memory.NewCatalogRepository()
	fulfillment := memory.NewFulfillmentRepository()

	liter, err := entities.NewUnitOfMeasure("L", "volume", decimal.NewFromInt(1), decimal.New(1, -3))
	require.NoError(t, err)
	require.NoError(t, catalog.SaveUnit(ctx, liter))
	for _, p := range []struct {
		id  entities.ProductID
		typ entities.ProductType
	}{{"DIESEL", entities.Storable}, {"FREIGHT", entities.Service}} {
		product, err := entities.NewProduct(p.id, string(p.id), "Fuel", p.typ, "L")
		require.NoError(t, err)
		require.NoError(t, catalog.SaveProduct(ctx, product))
	}

	ledger := services.NewQuantityLedger(services.NewUnits(liter), entities.HalfUp)
	return &fixture{
		catalog:     catalog,
		fulfillment: fulfillment,
		splitter:    NewDemandSplitter(catalog, fulfillment, ledger, nil),
		rc:          entities.NewRunContext("ACME"),
	}
}

func demandLine(t *testing.T, product entities.ProductID, nominal, normalized float64, reference string) *entities.DemandLine {
	t.Helper()
	density := entities.Density{Fact: decimal.RequireFromString("0.92"), Reference: decimal.RequireFromString(reference)}
	d, err := entities.NewDemandLine("SO1-1", "SO1", entities.SaleDemand, product,
		entities.DualFromFloat(nominal, normalized), density, "L", "WH/Stock", "Customers")
	require.NoError(t, err)
	return d
}

func (f *fixture) addLine(t *testing.T, id string, qty, done entities.DualQuantity, state entities.LineState) {
	t.Helper()
	require.NoError(t, f.fulfillment.SaveLine(context.Background(), &entities.FulfillmentLine{
		ID:            id,
		Product:       "DIESEL",
		Quantity:      qty,
		Done:          done,
		UoM:           "L",
		Source:        "WH/Stock",
		Destination:   "Customers",
		State:         state,
		DemandLineIDs: []string{"SO1-1"},
	}))
}

func assertQty(t *testing.T, expected, actual entities.DualQuantity) {
	t.Helper()
	assert.True(t, expected.Equal(actual, entities.DefaultRounding), "expected %s, got %s", expected, actual)
}

func TestPlan_NewDemandPushesFullTarget(t *testing.T) {
	f := newFixture(t)
	demand := demandLine(t, "DIESEL", 100, 98, "0.92")

	requests, err := f.splitter.Plan(context.Background(), f.rc, demand, entities.DualQuantity{})
	require.NoError(t, err)
	require.Len(t, requests, 1)

	req := requests[0]
	assert.Equal(t, entities.PushRequest, req.Kind)
	assertQty(t, entities.DualFromFloat(100, 98), req.Quantity)
	assert.Equal(t, "SO1-1", req.DemandLineID)
	assert.Equal(t, entities.LocationID("Customers"), req.Location)
	assert.Equal(t, "SO1", req.Origin)
	assert.Equal(t, "ACME", req.Values.Company)
	assert.True(t, req.Density.Reference.Equal(decimal.RequireFromString("0.92")))
}

func TestPlan_DensityCorrectionAttachesNormalizedOnly(t *testing.T) {
	f := newFixture(t)
	f.addLine(t, "L1", entities.DualFromFloat(100, 98), entities.DualQuantity{}, entities.LineConfirmed)
	demand := demandLine(t, "DIESEL", 100, 97, "0.92")

	requests, err := f.splitter.Plan(context.Background(), f.rc, demand, entities.DualFromFloat(100, 98))
	require.NoError(t, err)
	require.Len(t, requests, 1)

	req := requests[0]
	assert.Equal(t, entities.AttachRequest, req.Kind)
	assertQty(t, entities.DualFromFloat(0, -1), req.Quantity)
	assert.Equal(t, []string{"L1"}, req.AttachTo)
}

func TestPlan_NoRequests(t *testing.T) {
	tests := []struct {
		name    string
		product entities.ProductID
		target  entities.DualQuantity
		prior   entities.DualQuantity
		lines   []entities.DualQuantity
		state   entities.DemandState
	}{
		{
			name:    "unchanged_target_is_idempotent",
			product: "DIESEL",
			target:  entities.DualFromFloat(100, 98),
			prior:   entities.DualFromFloat(100, 98),
			lines:   []entities.DualQuantity{entities.DualFromFloat(100, 98)},
		},
		{
			name:    "non_trackable_product",
			product: "FREIGHT",
			target:  entities.DualFromFloat(1, 1),
		},
		{
			name:    "zero_target",
			product: "DIESEL",
		},
		{
			name:    "over_fulfilled_without_decrease",
			product: "DIESEL",
			target:  entities.DualFromFloat(100, 98),
			prior:   entities.DualFromFloat(100, 98),
			lines:   []entities.DualQuantity{entities.DualFromFloat(105, 103)},
		},
		{
			name:    "cancelled_demand",
			product: "DIESEL",
			target:  entities.DualFromFloat(100, 98),
			state:   entities.DemandCancelled,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			for i, q := range tt.lines {
				f.addLine(t, "L"+string(rune('1'+i)), q, entities.DualQuantity{}, entities.LineConfirmed)
			}
			demand := demandLine(t, tt.product, 0, 0, "0.92")
			demand.Target = tt.target
			demand.State = tt.state

			requests, err := f.splitter.Plan(context.Background(), f.rc, demand, tt.prior)
			require.NoError(t, err)
			assert.Empty(t, requests)
		})
	}
}

func TestPlan_WithoutReferenceDensityIgnoresNormalized(t *testing.T) {
	f := newFixture(t)
	demand := demandLine(t, "DIESEL", 100, 98, "0")

	requests, err := f.splitter.Plan(context.Background(), f.rc, demand, entities.DualQuantity{})
	require.NoError(t, err)
	require.Len(t, requests, 1)
	assertQty(t, entities.DualFromFloat(100, 0), requests[0].Quantity)
}

func TestPlan_IncreaseWithOpenLinePushesNewLine(t *testing.T) {
	f := newFixture(t)
	f.addLine(t, "L1", entities.DualFromFloat(100, 98), entities.DualQuantity{}, entities.LineAssigned)
	demand := demandLine(t, "DIESEL", 150, 147, "0.92")

	requests, err := f.splitter.Plan(context.Background(), f.rc, demand, entities.DualFromFloat(100, 98))
	require.NoError(t, err)
	require.Len(t, requests, 1)
	assert.Equal(t, entities.PushRequest, requests[0].Kind)
	assertQty(t, entities.DualFromFloat(50, 49), requests[0].Quantity)
	assert.Empty(t, requests[0].AttachTo)
}

func TestPlan_OpenReturnIsCoveredByOpenLine(t *testing.T) {
	f := newFixture(t)
	f.addLine(t, "L1", entities.DualFromFloat(100, 98), entities.DualQuantity{}, entities.LineConfirmed)
	require.NoError(t, f.fulfillment.SaveLine(context.Background(), &entities.FulfillmentLine{
		ID:            "R1",
		Product:       "DIESEL",
		Quantity:      entities.DualFromFloat(10, 9.8),
		UoM:           "L",
		Source:        "Customers",
		Destination:   "WH/Stock",
		State:         entities.LineConfirmed,
		DemandLineIDs: []string{"SO1-1"},
	}))
	demand := demandLine(t, "DIESEL", 100, 98, "0.92")

	requests, err := f.splitter.Plan(context.Background(), f.rc, demand, entities.DualFromFloat(100, 98))
	require.NoError(t, err)
	require.Len(t, requests, 1)
	assert.Equal(t, entities.AttachRequest, requests[0].Kind)
	assert.Equal(t, []string{"L1"}, requests[0].AttachTo)
	assertQty(t, entities.DualFromFloat(10, 9.8), requests[0].Quantity)
}

func TestPlan_OverExecutedLineHasNoNegativeRoom(t *testing.T) {
	f := newFixture(t)
	f.addLine(t, "L1", entities.DualFromFloat(100, 98), entities.DualFromFloat(105, 102.9), entities.LinePartiallyAvailable)
	demand := demandLine(t, "DIESEL", 90, 88.2, "0.92")

	requests, err := f.splitter.Plan(context.Background(), f.rc, demand, entities.DualFromFloat(100, 98))
	require.NoError(t, err)
	require.Len(t, requests, 1)
	assert.Equal(t, entities.PushRequest, requests[0].Kind)
	assertQty(t, entities.DualFromFloat(-10, -9.8), requests[0].Quantity)
}

func TestPlan_IncreaseAfterDeliveryPushesNewLine(t *testing.T) {
	f := newFixture(t)
	f.addLine(t, "L1", entities.DualFromFloat(100, 98), entities.DualFromFloat(100, 98), entities.LineDone)
	demand := demandLine(t, "DIESEL", 120, 117.6, "0.92")

	requests, err := f.splitter.Plan(context.Background(), f.rc, demand, entities.DualFromFloat(100, 98))
	require.NoError(t, err)
	require.Len(t, requests, 1)
	assert.Equal(t, entities.PushRequest, requests[0].Kind)
	assertQty(t, entities.DualFromFloat(20, 19.6), requests[0].Quantity)
}

func TestPlan_ZeroTargetReleasesOpenLine(t *testing.T) {
	f := newFixture(t)
	f.addLine(t, "L1", entities.DualFromFloat(100, 98), entities.DualQuantity{}, entities.LineConfirmed)
	demand := demandLine(t, "DIESEL", 0, 0, "0.92")

	requests, err := f.splitter.Plan(context.Background(), f.rc, demand, entities.DualFromFloat(100, 98))
	require.NoError(t, err)
	require.Len(t, requests, 1)
	assert.Equal(t, entities.AttachRequest, requests[0].Kind)
	assertQty(t, entities.DualFromFloat(-100, -98), requests[0].Quantity)
}

func TestPlan_DecreaseBeyondOpenQuantitySplits(t *testing.T) {
	f := newFixture(t)
	f.addLine(t, "L1", entities.DualFromFloat(100, 98), entities.DualFromFloat(80, 78.4), entities.LinePartiallyAvailable)
	demand := demandLine(t, "DIESEL", 10, 9.8, "0.92")

	requests, err := f.splitter.Plan(context.Background(), f.rc, demand, entities.DualFromFloat(100, 98))
	require.NoError(t, err)
	require.Len(t, requests, 2)

	assert.Equal(t, entities.AttachRequest, requests[0].Kind)
	assertQty(t, entities.DualFromFloat(-20, -19.6), requests[0].Quantity)
	assert.Equal(t, entities.PushRequest, requests[1].Kind)
	assertQty(t, entities.DualFromFloat(-70, -68.6), requests[1].Quantity)
}

func TestSplitDelta_SumsToDelta(t *testing.T) {
	values := []float64{-150, -20, -1, -0.001, 0, 0.001, 1, 20, 150}
	opens := []entities.DualQuantity{
		entities.DualFromFloat(0, 0),
		entities.DualFromFloat(20, 19.6),
		entities.DualFromFloat(100, 98),
	}
	carries := []entities.DualQuantity{
		entities.DualFromFloat(0, 0),
		entities.DualFromFloat(10, 9.8),
	}

	for _, open := range opens {
		for _, carried := range carries {
			for _, n := range values {
				for _, m := range values {
					delta := entities.DualFromFloat(n, m)
					attach, push := splitDelta(delta, carried, open)
					if !attach.Add(push).Equal(delta, entities.DefaultRounding) {
						t.Errorf("open %s carried %s delta %s: attach %s + push %s != delta", open, carried, delta, attach, push)
					}
					for _, dim := range []entities.Dimension{entities.Nominal, entities.Normalized} {
						if attach.Get(dim).Add(open.Get(dim)).IsNegative() {
							t.Errorf("open %s delta %s: attach %s reduces more than is open", open, delta, attach)
						}
						if delta.Get(dim).IsPositive() && push.Get(dim).IsNegative() {
							t.Errorf("open %s carried %s delta %s: increase pushed %s", open, carried, delta, push)
						}
					}
				}
			}
		}
	}
}
