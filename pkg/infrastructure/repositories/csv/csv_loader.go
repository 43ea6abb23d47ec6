package csv

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vsinha/fuelrecon/pkg/domain/entities"
)

// Scenario is a complete data set loaded from a directory of CSV files
type Scenario struct {
	Units     []*entities.UnitOfMeasure
	Products  []*entities.Product
	Locations []*entities.Location
	Demands   []*entities.DemandLine
	Details   []*entities.FulfillmentLineDetail
}

// Loader handles loading reconciliation data from CSV files
type Loader struct{}

// NewLoader creates a new CSV loader
func NewLoader() *Loader {
	return &Loader{}
}

var (
	unitsHeader     = []string{"code", "category", "factor", "rounding"}
	productsHeader  = []string{"id", "name", "category", "type", "uom"}
	locationsHeader = []string{"id", "name", "company", "usage"}
	demandsHeader   = []string{"id", "order", "kind", "product", "nominal", "normalized", "density_fact", "density_reference", "uom", "source", "destination", "partner", "invoice_policy"}
	detailsHeader   = []string{"id", "line_id", "product", "source", "destination", "lot_id", "done_nominal", "done_normalized", "date"}
)

// LoadScenario loads units.csv, products.csv, locations.csv and demands.csv from dir.
// details.csv is optional.
func (l *Loader) LoadScenario(dir string) (*Scenario, error) {
	var (
		s   Scenario
		err error
	)
	if s.Units, err = l.LoadUnits(filepath.Join(dir, "units.csv")); err != nil {
		return nil, err
	}
	if s.Products, err = l.LoadProducts(filepath.Join(dir, "products.csv")); err != nil {
		return nil, err
	}
	if s.Locations, err = l.LoadLocations(filepath.Join(dir, "locations.csv")); err != nil {
		return nil, err
	}
	if s.Demands, err = l.LoadDemands(filepath.Join(dir, "demands.csv")); err != nil {
		return nil, err
	}

	detailsFile := filepath.Join(dir, "details.csv")
	if _, statErr := os.Stat(detailsFile); statErr == nil {
		if s.Details, err = l.LoadDetails(detailsFile); err != nil {
			return nil, err
		}
	}
	return &s, nil
}

// LoadUnits loads units of measure from a CSV file
func (l *Loader) LoadUnits(filename string) ([]*entities.UnitOfMeasure, error) {
	var units []*entities.UnitOfMeasure
	err := readRecords(filename, "units", unitsHeader, func(record []string) error {
		factor, err := parseDecimal("factor", record[2])
		if err != nil {
			return err
		}
		rounding, err := parseDecimal("rounding", record[3])
		if err != nil {
			return err
		}
		unit, err := entities.NewUnitOfMeasure(record[0], record[1], factor, rounding)
		if err != nil {
			return err
		}
		units = append(units, unit)
		return nil
	})
	return units, err
}

// LoadProducts loads products from a CSV file
func (l *Loader) LoadProducts(filename string) ([]*entities.Product, error) {
	var products []*entities.Product
	err := readRecords(filename, "products", productsHeader, func(record []string) error {
		productType, err := entities.ParseProductType(record[3])
		if err != nil {
			return err
		}
		product, err := entities.NewProduct(entities.ProductID(record[0]), record[1], record[2], productType, record[4])
		if err != nil {
			return err
		}
		products = append(products, product)
		return nil
	})
	return products, err
}

// LoadLocations loads stock locations from a CSV file
func (l *Loader) LoadLocations(filename string) ([]*entities.Location, error) {
	var locations []*entities.Location
	err := readRecords(filename, "locations", locationsHeader, func(record []string) error {
		if record[0] == "" {
			return fmt.Errorf("location id cannot be empty")
		}
		usage, err := entities.ParseLocationUsage(record[3])
		if err != nil {
			return err
		}
		locations = append(locations, &entities.Location{
			ID:      entities.LocationID(record[0]),
			Name:    record[1],
			Company: record[2],
			Usage:   usage,
		})
		return nil
	})
	return locations, err
}

// LoadDemands loads demand lines from a CSV file
func (l *Loader) LoadDemands(filename string) ([]*entities.DemandLine, error) {
	var demands []*entities.DemandLine
	err := readRecords(filename, "demands", demandsHeader, func(record []string) error {
		demand, err := parseDemand(record)
		if err != nil {
			return err
		}
		demands = append(demands, demand)
		return nil
	})
	return demands, err
}

// LoadDetails loads executed movement details from a CSV file
func (l *Loader) LoadDetails(filename string) ([]*entities.FulfillmentLineDetail, error) {
	var details []*entities.FulfillmentLineDetail
	err := readRecords(filename, "details", detailsHeader, func(record []string) error {
		done, err := parseDual(record[6], record[7])
		if err != nil {
			return err
		}
		date, err := time.Parse(time.RFC3339, record[8])
		if err != nil {
			if date, err = time.Parse("2006-01-02", record[8]); err != nil {
				return fmt.Errorf("invalid date format: %s (expected RFC3339 or YYYY-MM-DD)", record[8])
			}
		}
		details = append(details, &entities.FulfillmentLineDetail{
			ID:          record[0],
			LineID:      record[1],
			Product:     entities.ProductID(record[2]),
			Source:      entities.LocationID(record[3]),
			Destination: entities.LocationID(record[4]),
			LotID:       record[5],
			Done:        done,
			Date:        date,
		})
		return nil
	})
	return details, err
}

// Helper functions for parsing CSV records

func readRecords(filename, kind string, expectedHeader []string, fn func(record []string) error) error {
	file, err := os.Open(filename)
	if err != nil {
		return fmt.Errorf("failed to open %s file %s: %w", kind, filename, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.TrimLeadingSpace = true
	records, err := reader.ReadAll()
	if err != nil {
		return fmt.Errorf("failed to read %s CSV: %w", kind, err)
	}

	if len(records) < 2 {
		return fmt.Errorf("%s CSV must have header and at least one data row", kind)
	}

	// Validate header
	header := records[0]
	if !validateHeader(header, expectedHeader) {
		return fmt.Errorf("%s CSV header mismatch. Expected: %v, Got: %v", kind, expectedHeader, header)
	}

	for i, record := range records[1:] {
		if len(record) != len(expectedHeader) {
			return fmt.Errorf("%s CSV row %d: expected %d columns, got %d", kind, i+2, len(expectedHeader), len(record))
		}
		for j := range record {
			record[j] = strings.TrimSpace(record[j])
		}
		if err := fn(record); err != nil {
			return fmt.Errorf("%s CSV row %d: %w", kind, i+2, err)
		}
	}
	return nil
}

func validateHeader(actual, expected []string) bool {
	if len(actual) != len(expected) {
		return false
	}

	for i, col := range expected {
		if strings.ToLower(strings.TrimSpace(actual[i])) != col {
			return false
		}
	}

	return true
}

func parseDemand(record []string) (*entities.DemandLine, error) {
	kind, err := entities.ParseDemandKind(record[2])
	if err != nil {
		return nil, err
	}
	target, err := parseDual(record[4], record[5])
	if err != nil {
		return nil, err
	}
	fact, err := parseOptionalDecimal("density_fact", record[6])
	if err != nil {
		return nil, err
	}
	reference, err := parseOptionalDecimal("density_reference", record[7])
	if err != nil {
		return nil, err
	}
	policy, err := parseInvoicePolicy(record[12])
	if err != nil {
		return nil, err
	}

	demand, err := entities.NewDemandLine(
		record[0],
		record[1],
		kind,
		entities.ProductID(record[3]),
		target,
		entities.Density{Fact: fact, Reference: reference},
		record[8],
		entities.LocationID(record[9]),
		entities.LocationID(record[10]),
	)
	if err != nil {
		return nil, err
	}
	demand.Partner = record[11]
	demand.InvoicePolicy = policy
	return demand, nil
}

func parseDual(nominal, normalized string) (entities.DualQuantity, error) {
	n, err := parseDecimal("nominal", nominal)
	if err != nil {
		return entities.DualQuantity{}, err
	}
	m, err := parseOptionalDecimal("normalized", normalized)
	if err != nil {
		return entities.DualQuantity{}, err
	}
	return entities.NewDualQuantity(n, m), nil
}

func parseDecimal(field, s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid %s: %s", field, s)
	}
	return d, nil
}

func parseOptionalDecimal(field, s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	return parseDecimal(field, s)
}

func parseInvoicePolicy(s string) (entities.InvoicePolicy, error) {
	switch strings.ToLower(s) {
	case "", "order":
		return entities.InvoiceOnOrder, nil
	case "delivery":
		return entities.InvoiceOnDelivery, nil
	default:
		return entities.InvoiceOnOrder, fmt.Errorf("invalid invoice_policy: %s (expected: order or delivery)", s)
	}
}
