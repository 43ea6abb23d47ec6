package entities

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ProductID represents a unique product identifier
type ProductID string

// LocationID represents a unique stock location identifier
type LocationID string

// ProductType represents how a product is tracked in stock
type ProductType int

const (
	Storable ProductType = iota
	Consumable
	Service
)

// String method for ProductType enum
func (t ProductType) String() string {
	switch t {
	case Storable:
		return "Storable"
	case Consumable:
		return "Consumable"
	case Service:
		return "Service"
	default:
		return "Unknown"
	}
}

// Trackable reports whether movements are generated for the product type
func (t ProductType) Trackable() bool {
	return t == Storable || t == Consumable
}

// ParseProductType converts a textual product type
func ParseProductType(value string) (ProductType, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "storable", "product":
		return Storable, nil
	case "consumable", "consu":
		return Consumable, nil
	case "service":
		return Service, nil
	default:
		return Service, fmt.Errorf("unknown product type: %s", value)
	}
}

// Product represents a fuel grade or any other stocked article
type Product struct {
	ID       ProductID
	Name     string
	Category string
	Type     ProductType
	UoM      string
}

// NewProduct creates a validated Product
func NewProduct(id ProductID, name, category string, productType ProductType, uom string) (*Product, error) {
	if string(id) == "" {
		return nil, fmt.Errorf("product id cannot be empty")
	}
	if uom == "" {
		return nil, fmt.Errorf("unit of measure cannot be empty")
	}
	return &Product{
		ID:       id,
		Name:     name,
		Category: category,
		Type:     productType,
		UoM:      uom,
	}, nil
}

// UnitOfMeasure describes a unit relative to the reference unit of its category.
// Factor is the number of units per reference unit; Rounding is the precision step.
type UnitOfMeasure struct {
	Code     string
	Category string
	Factor   decimal.Decimal
	Rounding decimal.Decimal
}

// NewUnitOfMeasure creates a validated UnitOfMeasure
func NewUnitOfMeasure(code, category string, factor, rounding decimal.Decimal) (*UnitOfMeasure, error) {
	if code == "" {
		return nil, fmt.Errorf("unit code cannot be empty")
	}
	if !factor.IsPositive() {
		return nil, fmt.Errorf("unit factor must be positive, got %s", factor)
	}
	if !rounding.IsPositive() {
		return nil, fmt.Errorf("unit rounding must be positive, got %s", rounding)
	}
	return &UnitOfMeasure{
		Code:     code,
		Category: category,
		Factor:   factor,
		Rounding: rounding,
	}, nil
}

// Policy returns the rounding policy of the unit for the given method
func (u UnitOfMeasure) Policy(method RoundingMethod) Rounding {
	return Rounding{Precision: u.Rounding, Method: method}
}

// LocationUsage represents the role of a location in the supply chain
type LocationUsage int

const (
	Internal LocationUsage = iota
	Supplier
	Customer
	Transit
)

// String method for LocationUsage enum
func (u LocationUsage) String() string {
	switch u {
	case Internal:
		return "Internal"
	case Supplier:
		return "Supplier"
	case Customer:
		return "Customer"
	case Transit:
		return "Transit"
	default:
		return "Unknown"
	}
}

// ParseLocationUsage converts a textual location usage
func ParseLocationUsage(value string) (LocationUsage, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "internal":
		return Internal, nil
	case "supplier":
		return Supplier, nil
	case "customer":
		return Customer, nil
	case "transit":
		return Transit, nil
	default:
		return Internal, fmt.Errorf("unknown location usage: %s", value)
	}
}

// Location represents a stock location owned by a company
type Location struct {
	ID      LocationID
	Name    string
	Company string
	Usage   LocationUsage
}
