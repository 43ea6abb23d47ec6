package output

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/vsinha/fuelrecon/pkg/application/dto"
	"github.com/vsinha/fuelrecon/pkg/domain/entities"
	"github.com/vsinha/fuelrecon/pkg/infrastructure/export"
)

// Config holds configuration for output generation
type Config struct {
	Format    string // text, json, csv or xlsx (reports only)
	OutputDir string
	Verbose   bool
	Elapsed   time.Duration
	Writer    io.Writer
}

func (c Config) writer() io.Writer {
	if c.Writer == nil {
		return os.Stdout
	}
	return c.Writer
}

// Reconciliation prints the requests and lines produced for each demand
func Reconciliation(results []*dto.ReconciliationResult, config Config) error {
	switch config.Format {
	case "text", "":
		return reconciliationText(results, config)
	case "json":
		return writeJSON(results, config, "reconciliation.json")
	case "csv":
		return writeCSV(lineHeader, lineRows(results), config, "fulfillment_lines.csv")
	default:
		return fmt.Errorf("unsupported output format: %s", config.Format)
	}
}

// Report prints flow report rows
func Report(rows []entities.FlowReportRow, config Config) error {
	switch config.Format {
	case "text", "":
		return reportText(rows, config)
	case "json":
		return writeJSON(rows, config, "flow_report.json")
	case "csv":
		return writeCSV(reportHeader, reportRows(rows), config, "flow_report.csv")
	case "xlsx":
		return saveReportXLSX(rows, config)
	default:
		return fmt.Errorf("unsupported output format: %s", config.Format)
	}
}

// Lots prints lot identities
func Lots(lots []*entities.LotIdentity, config Config) error {
	switch config.Format {
	case "text", "":
		tw := newTable(config)
		tw.AppendHeader(table.Row{"ID", "Product", "Density", "Label"})
		for _, lot := range lots {
			tw.AppendRow(table.Row{lot.ID, lot.Product, lot.Density.StringFixed(4), lot.Label})
		}
		tw.Render()
		return nil
	case "json":
		return writeJSON(lots, config, "lots.json")
	case "csv":
		rows := make([][]string, 0, len(lots))
		for _, lot := range lots {
			rows = append(rows, []string{lot.ID, string(lot.Product), lot.Density.StringFixed(4), lot.Label})
		}
		return writeCSV([]string{"id", "product", "density", "label"}, rows, config, "lots.csv")
	default:
		return fmt.Errorf("unsupported output format: %s", config.Format)
	}
}

var (
	lineHeader   = []string{"demand", "line", "product", "source", "destination", "nominal", "normalized", "state", "lot"}
	reportHeader = []string{"product", "location", "category", "opening", "incoming", "outgoing", "closing"}
)

func newTable(config Config) table.Writer {
	tw := table.NewWriter()
	tw.SetOutputMirror(config.writer())
	tw.SetStyle(table.StyleLight)
	return tw
}

func reconciliationText(results []*dto.ReconciliationResult, config Config) error {
	w := config.writer()
	var pushes, attaches, failures int
	for _, r := range results {
		for _, req := range r.Requests {
			if req.Kind == entities.PushRequest {
				pushes++
			} else {
				attaches++
			}
		}
		if r.Run != nil {
			failures += r.Run.Failure.Count()
		}
	}

	fmt.Fprintf(w, "Reconciliation Summary\n")
	fmt.Fprintf(w, "======================\n\n")
	fmt.Fprintf(w, "Demands:  %d\n", len(results))
	fmt.Fprintf(w, "Push:     %d\n", pushes)
	fmt.Fprintf(w, "Attach:   %d\n", attaches)
	fmt.Fprintf(w, "Failures: %d\n", failures)
	if config.Elapsed > 0 {
		fmt.Fprintf(w, "Elapsed:  %v\n", config.Elapsed)
	}
	fmt.Fprintln(w)

	rows := lineRows(results)
	if len(rows) > 0 {
		tw := newTable(config)
		tw.AppendHeader(table.Row{"Demand", "Line", "Product", "Source", "Destination", "Nominal", "Normalized", "State", "Lot"})
		for _, row := range rows {
			tw.AppendRow(toTableRow(row))
		}
		tw.SetColumnConfigs([]table.ColumnConfig{
			{Number: 6, Align: text.AlignRight},
			{Number: 7, Align: text.AlignRight},
		})
		tw.Render()
	}

	if config.Verbose {
		for _, r := range results {
			if r.Run == nil {
				continue
			}
			for _, d := range r.Run.Degraded {
				fmt.Fprintf(w, "warning: %s: %v\n", r.DemandLineID, d)
			}
			if r.Run.Failed() {
				fmt.Fprintf(w, "failed: %s: %v\n", r.DemandLineID, r.Run.Failure)
			}
		}
	}
	return nil
}

func reportText(rows []entities.FlowReportRow, config Config) error {
	tw := newTable(config)
	tw.AppendHeader(table.Row{"Product", "Location", "Category", "Opening", "Incoming", "Outgoing", "Closing"})
	for _, row := range reportRows(rows) {
		tw.AppendRow(toTableRow(row))
	}
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 4, Align: text.AlignRight},
		{Number: 5, Align: text.AlignRight},
		{Number: 6, Align: text.AlignRight},
		{Number: 7, Align: text.AlignRight},
	})
	tw.Render()
	return nil
}

func lineRows(results []*dto.ReconciliationResult) [][]string {
	var rows [][]string
	for _, r := range results {
		if r.Run == nil {
			continue
		}
		for _, line := range r.Run.Lines() {
			rows = append(rows, []string{
				r.DemandLineID,
				line.ID,
				string(line.Product),
				string(line.Source),
				string(line.Destination),
				line.Quantity.Nominal.String(),
				line.Quantity.Normalized.String(),
				line.State.String(),
				line.LotID,
			})
		}
	}
	return rows
}

func reportRows(rows []entities.FlowReportRow) [][]string {
	out := make([][]string, 0, len(rows))
	for _, row := range rows {
		out = append(out, []string{
			string(row.Product),
			string(row.Location),
			row.Category,
			row.Opening.String(),
			row.Incoming.String(),
			row.Outgoing.String(),
			row.Closing.String(),
		})
	}
	return out
}

func toTableRow(values []string) table.Row {
	row := make(table.Row, len(values))
	for i, v := range values {
		row[i] = v
	}
	return row
}

func writeJSON(v interface{}, config Config, filename string) error {
	jsonData, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if config.OutputDir == "" {
		_, err = fmt.Fprintln(config.writer(), string(jsonData))
		return err
	}

	path, err := outputPath(config, filename)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, jsonData, 0644); err != nil {
		return fmt.Errorf("failed to write JSON file: %w", err)
	}
	if config.Verbose {
		fmt.Fprintf(config.writer(), "JSON results saved to: %s\n", path)
	}
	return nil
}

func writeCSV(header []string, rows [][]string, config Config, filename string) error {
	w := config.writer()
	var file *os.File
	if config.OutputDir != "" {
		path, err := outputPath(config, filename)
		if err != nil {
			return err
		}
		file, err = os.Create(path)
		if err != nil {
			return fmt.Errorf("failed to create CSV file: %w", err)
		}
		defer file.Close()
		w = file
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	if err := cw.WriteAll(rows); err != nil {
		return fmt.Errorf("failed to write CSV: %w", err)
	}
	if file != nil && config.Verbose {
		fmt.Fprintf(config.writer(), "CSV results saved to: %s\n", file.Name())
	}
	return nil
}

func outputPath(config Config, filename string) (string, error) {
	if err := os.MkdirAll(config.OutputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	return filepath.Join(config.OutputDir, strings.TrimPrefix(filename, "/")), nil
}

func saveReportXLSX(rows []entities.FlowReportRow, config Config) error {
	if config.OutputDir == "" {
		return export.WriteFlowReport(config.writer(), rows)
	}
	path, err := outputPath(config, "flow_report.xlsx")
	if err != nil {
		return err
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create xlsx file: %w", err)
	}
	defer file.Close()
	if err := export.WriteFlowReport(file, rows); err != nil {
		return err
	}
	if config.Verbose {
		fmt.Fprintf(os.Stderr, "Report saved to: %s\n", path)
	}
	return nil
}
