package main

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vsinha/fuelrecon/pkg/app"
	"github.com/vsinha/fuelrecon/pkg/domain/entities"
	"github.com/vsinha/fuelrecon/pkg/infrastructure/config"
)

func main() {
	ctx := context.Background()

	cfg := config.Config{
		Company:   "ACME",
		Rounding:  config.RoundingConfig{Precision: "0.001", Method: "half-up"},
		Report:    config.ReportConfig{Concurrency: 2},
		RulesFile: "example/scenario/rules.yaml",
	}

	a, err := app.New(ctx, cfg, nil)
	if err != nil {
		fmt.Printf("❌ Startup failed: %v\n", err)
		return
	}
	defer a.Close()

	if err := a.LoadScenarioDir(ctx, "example/scenario"); err != nil {
		fmt.Printf("❌ Scenario failed: %v\n", err)
		return
	}

	rc := a.RunContext()

	// Initial pass creates one line per demand
	fmt.Println("⛽ Reconciling demand lines...")
	results, err := a.Orchestrator.ReconcileAll(ctx, rc)
	if err != nil {
		fmt.Printf("❌ Reconciliation failed: %v\n", err)
		return
	}
	for _, r := range results {
		if r.Run == nil {
			continue
		}
		for _, line := range r.Run.Lines() {
			fmt.Printf("  %s -> %s: %s %s (%s → %s)\n",
				r.DemandLineID, line.ID, line.Product, line.Quantity, line.Source, line.Destination)
		}
	}
	fmt.Println()

	// The customer takes more diesel at a slightly lower density
	fmt.Println("📝 Updating SO1-1 to 120 L / 117.5 L...")
	density := entities.Density{Fact: decimal.RequireFromString("0.91"), Reference: decimal.RequireFromString("0.92")}
	result, err := a.Orchestrator.UpdateDemand(ctx, rc, "SO1-1", entities.DualFromFloat(120, 117.5), density, true)
	if err != nil {
		fmt.Printf("❌ Update failed: %v\n", err)
		return
	}
	for _, req := range result.Requests {
		fmt.Printf("  %s\n", req.Describe())
	}

	values, err := a.Orchestrator.InvoiceValues(ctx, "SO1-1")
	if err != nil {
		fmt.Printf("❌ Invoice failed: %v\n", err)
		return
	}
	fmt.Printf("🧾 Invoice: %s %s (lot %q)\n", values.Quantity, values.UoM, values.LotID)
	fmt.Println()

	// Flow report over February, driven by the historical details
	start := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	rows, err := a.Reports.OpenReport(ctx, cfg.Company, start, end)
	if err != nil {
		fmt.Printf("❌ Report failed: %v\n", err)
		return
	}
	fmt.Println("📊 Flow report (normalized):")
	for _, row := range rows {
		fmt.Printf("  %s @ %s: opening %s, in %s, out %s, closing %s\n",
			row.Product, row.Location, row.Opening, row.Incoming, row.Outgoing, row.Closing)
	}
}
