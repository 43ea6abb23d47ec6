package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vsinha/fuelrecon/pkg/domain/entities"
	"github.com/vsinha/fuelrecon/pkg/infrastructure/config"
)

const scenarioDir = "../../example/scenario"

func testConfig() config.Config {
	return config.Config{
		Environment: "test",
		Company:     "ACME",
		Rounding:    config.RoundingConfig{Precision: "0.001", Method: "half-up"},
		Report:      config.ReportConfig{Concurrency: 2},
		RulesFile:   filepath.Join(scenarioDir, "rules.yaml"),
	}
}

func newTestApp(t *testing.T, cfg config.Config) *App {
	t.Helper()
	ctx := context.Background()
	a, err := New(ctx, cfg, nil)
	require.NoError(t, err)
	t.Cleanup(a.Close)
	require.NoError(t, a.LoadScenarioDir(ctx, scenarioDir))
	return a
}

func TestApp_ReconcileScenario(t *testing.T) {
	ctx := context.Background()
	a := newTestApp(t, testConfig())

	results, err := a.Orchestrator.ReconcileAll(ctx, a.RunContext())
	require.NoError(t, err)
	require.Len(t, results, 3)

	byDemand := make(map[string][]*entities.FulfillmentLine)
	for _, r := range results {
		require.False(t, r.Run.Failed(), "demand %s: %v", r.DemandLineID, r.Run.Failure)
		byDemand[r.DemandLineID] = r.Run.Created
	}

	require.Len(t, byDemand["SO1-1"], 1)
	sale := byDemand["SO1-1"][0]
	assert.Equal(t, entities.LocationID("WH/Stock"), sale.Source)
	assert.Equal(t, entities.LocationID("Customers"), sale.Destination)
	assert.True(t, sale.Quantity.Equal(entities.DualFromFloat(100, 98), a.RunContext().Policy()))

	// No reference density: only the nominal dimension is requested
	require.Len(t, byDemand["SO2-1"], 1)
	assert.True(t, byDemand["SO2-1"][0].Quantity.Normalized.IsZero())

	require.Len(t, byDemand["PO1-1"], 1)
	purchase := byDemand["PO1-1"][0]
	assert.Equal(t, entities.LocationID("Vendors"), purchase.Source)
	assert.Equal(t, entities.LineDraft, purchase.State)

	// A second pass is a no-op
	again, err := a.Orchestrator.ReconcileAll(ctx, a.RunContext())
	require.NoError(t, err)
	for _, r := range again {
		assert.Empty(t, r.Requests, "demand %s", r.DemandLineID)
	}
}

func TestApp_FlowReportFromHistory(t *testing.T) {
	ctx := context.Background()
	a := newTestApp(t, testConfig())

	start := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	rows, err := a.Reports.OpenReport(ctx, "ACME", start, end)
	require.NoError(t, err)
	require.Len(t, rows, 1)

	row := rows[0]
	assert.Equal(t, entities.ProductID("DIESEL"), row.Product)
	assert.Equal(t, "Fuels", row.Category)
	assert.True(t, row.Opening.Equal(decimal.NewFromInt(780)), "opening %s", row.Opening)
	assert.True(t, row.Incoming.IsZero())
	assert.True(t, row.Outgoing.Equal(decimal.NewFromInt(196)), "outgoing %s", row.Outgoing)
	assert.True(t, row.Closing.Equal(decimal.NewFromInt(584)), "closing %s", row.Closing)
}

func TestApp_SQLiteStore(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig()
	cfg.Database = config.DatabaseConfig{
		Driver:       "sqlite",
		DSN:          "file:" + filepath.Join(t.TempDir(), "fuelrecon.db"),
		MaxOpenConns: 1,
		LogLevel:     "silent",
	}
	a := newTestApp(t, cfg)

	result, err := a.Orchestrator.UpdateDemand(ctx, a.RunContext(), "SO1-1",
		entities.DualFromFloat(100, 98), entities.Density{
			Fact:      decimal.RequireFromString("0.92"),
			Reference: decimal.RequireFromString("0.92"),
		}, true)
	require.NoError(t, err)
	require.Len(t, result.Run.Created, 1)

	lines, err := a.Fulfillment.LinesForDemand(ctx, "SO1-1")
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.NotEmpty(t, lines[0].LotID)

	lots, err := a.Lots.ListLots(ctx, "DIESEL")
	require.NoError(t, err)
	require.Len(t, lots, 1)
	assert.Equal(t, "D15-0.9200", lots[0].Label)

	// Units persisted by the scenario are picked up by a fresh instance
	again, err := New(ctx, cfg, nil)
	require.NoError(t, err)
	defer again.Close()
	_, err = again.Units.Lookup("M3")
	assert.NoError(t, err)
}

func TestApp_UnknownRuleActionFailsStartup(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
rules:
  - id: ship
    action: dropship
    location: Customers
    source: Vendors
`), 0644))

	cfg := testConfig()
	cfg.RulesFile = path
	_, err := New(context.Background(), cfg, nil)
	assert.ErrorIs(t, err, entities.ErrHandlerMissing)
}
