package gormdb

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vsinha/fuelrecon/pkg/domain/entities"
)

// StringList stores a list of IDs as a JSON array column
type StringList []string

// Value implements driver.Valuer
func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	data, err := json.Marshal([]string(l))
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Scan implements sql.Scanner
func (l *StringList) Scan(value interface{}) error {
	var data []byte
	switch v := value.(type) {
	case nil:
		*l = nil
		return nil
	case string:
		data = []byte(v)
	case []byte:
		data = v
	default:
		return fmt.Errorf("cannot scan %T into StringList", value)
	}
	var out []string
	if err := json.Unmarshal(data, &out); err != nil {
		return err
	}
	if len(out) == 0 {
		out = nil
	}
	*l = out
	return nil
}

// UnitModel is the persistence model of a unit of measure
type UnitModel struct {
	Code     string          `gorm:"primaryKey;size:32"`
	Category string          `gorm:"size:64;not null"`
	Factor   decimal.Decimal `gorm:"type:decimal(20,9);not null"`
	Rounding decimal.Decimal `gorm:"type:decimal(20,9);not null"`
}

// TableName returns the table name for GORM
func (UnitModel) TableName() string { return "units" }

func (m *UnitModel) toDomain() *entities.UnitOfMeasure {
	return &entities.UnitOfMeasure{Code: m.Code, Category: m.Category, Factor: m.Factor, Rounding: m.Rounding}
}

func unitFromDomain(u *entities.UnitOfMeasure) *UnitModel {
	return &UnitModel{Code: u.Code, Category: u.Category, Factor: u.Factor, Rounding: u.Rounding}
}

// ProductModel is the persistence model of a product
type ProductModel struct {
	ID       string `gorm:"primaryKey;size:64"`
	Name     string `gorm:"size:255"`
	Category string `gorm:"size:255"`
	Type     int    `gorm:"not null"`
	UoM      string `gorm:"column:uom;size:32;not null"`
}

// TableName returns the table name for GORM
func (ProductModel) TableName() string { return "products" }

func (m *ProductModel) toDomain() *entities.Product {
	return &entities.Product{
		ID:       entities.ProductID(m.ID),
		Name:     m.Name,
		Category: m.Category,
		Type:     entities.ProductType(m.Type),
		UoM:      m.UoM,
	}
}

func productFromDomain(p *entities.Product) *ProductModel {
	return &ProductModel{ID: string(p.ID), Name: p.Name, Category: p.Category, Type: int(p.Type), UoM: p.UoM}
}

// LocationModel is the persistence model of a stock location
type LocationModel struct {
	ID      string `gorm:"primaryKey;size:128"`
	Name    string `gorm:"size:255"`
	Company string `gorm:"size:64;index:idx_locations_company_usage,priority:1"`
	Usage   int    `gorm:"not null;index:idx_locations_company_usage,priority:2"`
}

// TableName returns the table name for GORM
func (LocationModel) TableName() string { return "locations" }

func (m *LocationModel) toDomain() *entities.Location {
	return &entities.Location{
		ID:      entities.LocationID(m.ID),
		Name:    m.Name,
		Company: m.Company,
		Usage:   entities.LocationUsage(m.Usage),
	}
}

func locationFromDomain(l *entities.Location) *LocationModel {
	return &LocationModel{ID: string(l.ID), Name: l.Name, Company: l.Company, Usage: int(l.Usage)}
}

// DemandLineModel is the persistence model of a demand line
type DemandLineModel struct {
	ID                   string          `gorm:"primaryKey;size:64"`
	OrderRef             string          `gorm:"size:64;index"`
	Kind                 int             `gorm:"not null"`
	ProductID            string          `gorm:"size:64;not null"`
	TargetNominal        decimal.Decimal `gorm:"type:decimal(20,6);not null;default:0"`
	TargetNormalized     decimal.Decimal `gorm:"type:decimal(20,6);not null;default:0"`
	DensityFact          decimal.Decimal `gorm:"type:decimal(10,6);not null;default:0"`
	DensityReference     decimal.Decimal `gorm:"type:decimal(10,6);not null;default:0"`
	UoM                  string          `gorm:"column:uom;size:32;not null"`
	State                int             `gorm:"not null"`
	Source               string          `gorm:"size:128"`
	Destination          string          `gorm:"size:128;not null"`
	Partner              string          `gorm:"size:128"`
	Company              string          `gorm:"size:64"`
	GroupID              string          `gorm:"size:64"`
	InvoicePolicy        int             `gorm:"not null"`
	InvoicedNominal      decimal.Decimal `gorm:"type:decimal(20,6);not null;default:0"`
	InvoicedNormalized   decimal.Decimal `gorm:"type:decimal(20,6);not null;default:0"`
	PlannedDate          time.Time
	ReconciledNominal    decimal.Decimal `gorm:"type:decimal(20,6);not null;default:0"`
	ReconciledNormalized decimal.Decimal `gorm:"type:decimal(20,6);not null;default:0"`
	HasReconciled        bool            `gorm:"not null;default:false"`
	UpdatedAt            time.Time
}

// TableName returns the table name for GORM
func (DemandLineModel) TableName() string { return "demand_lines" }

func (m *DemandLineModel) toDomain() *entities.DemandLine {
	return &entities.DemandLine{
		ID:            m.ID,
		Order:         m.OrderRef,
		Kind:          entities.DemandKind(m.Kind),
		Product:       entities.ProductID(m.ProductID),
		Target:        entities.NewDualQuantity(m.TargetNominal, m.TargetNormalized),
		Density:       entities.Density{Fact: m.DensityFact, Reference: m.DensityReference},
		UoM:           m.UoM,
		State:         entities.DemandState(m.State),
		Source:        entities.LocationID(m.Source),
		Destination:   entities.LocationID(m.Destination),
		Partner:       m.Partner,
		Company:       m.Company,
		GroupID:       m.GroupID,
		InvoicePolicy: entities.InvoicePolicy(m.InvoicePolicy),
		Invoiced:      entities.NewDualQuantity(m.InvoicedNominal, m.InvoicedNormalized),
		PlannedDate:   m.PlannedDate,
		Reconciled:    entities.NewDualQuantity(m.ReconciledNominal, m.ReconciledNormalized),
		HasReconciled: m.HasReconciled,
	}
}

func demandFromDomain(d *entities.DemandLine) *DemandLineModel {
	return &DemandLineModel{
		ID:                   d.ID,
		OrderRef:             d.Order,
		Kind:                 int(d.Kind),
		ProductID:            string(d.Product),
		TargetNominal:        d.Target.Nominal,
		TargetNormalized:     d.Target.Normalized,
		DensityFact:          d.Density.Fact,
		DensityReference:     d.Density.Reference,
		UoM:                  d.UoM,
		State:                int(d.State),
		Source:               string(d.Source),
		Destination:          string(d.Destination),
		Partner:              d.Partner,
		Company:              d.Company,
		GroupID:              d.GroupID,
		InvoicePolicy:        int(d.InvoicePolicy),
		InvoicedNominal:      d.Invoiced.Nominal,
		InvoicedNormalized:   d.Invoiced.Normalized,
		PlannedDate:          d.PlannedDate,
		ReconciledNominal:    d.Reconciled.Nominal,
		ReconciledNormalized: d.Reconciled.Normalized,
		HasReconciled:        d.HasReconciled,
	}
}

// FulfillmentGroupModel is the persistence model of a fulfillment group
type FulfillmentGroupModel struct {
	ID           string `gorm:"primaryKey;size:64"`
	DemandLineID string `gorm:"size:64;index"`
	Partner      string `gorm:"size:128"`
	MovePolicy   int    `gorm:"not null"`
	Company      string `gorm:"size:64"`
}

// TableName returns the table name for GORM
func (FulfillmentGroupModel) TableName() string { return "fulfillment_groups" }

func (m *FulfillmentGroupModel) toDomain() *entities.FulfillmentGroup {
	return &entities.FulfillmentGroup{
		ID:           m.ID,
		DemandLineID: m.DemandLineID,
		Partner:      m.Partner,
		MovePolicy:   entities.MovePolicy(m.MovePolicy),
		Company:      m.Company,
	}
}

func groupFromDomain(g *entities.FulfillmentGroup) *FulfillmentGroupModel {
	return &FulfillmentGroupModel{
		ID:           g.ID,
		DemandLineID: g.DemandLineID,
		Partner:      g.Partner,
		MovePolicy:   int(g.MovePolicy),
		Company:      g.Company,
	}
}

// FulfillmentLineModel is the persistence model of a fulfillment line
type FulfillmentLineModel struct {
	ID                 string          `gorm:"primaryKey;size:64"`
	GroupID            string          `gorm:"size:64;index"`
	ProductID          string          `gorm:"size:64;not null"`
	QuantityNominal    decimal.Decimal `gorm:"type:decimal(20,6);not null;default:0"`
	QuantityNormalized decimal.Decimal `gorm:"type:decimal(20,6);not null;default:0"`
	DoneNominal        decimal.Decimal `gorm:"type:decimal(20,6);not null;default:0"`
	DoneNormalized     decimal.Decimal `gorm:"type:decimal(20,6);not null;default:0"`
	DensityFact        decimal.Decimal `gorm:"type:decimal(10,6);not null;default:0"`
	DensityReference   decimal.Decimal `gorm:"type:decimal(10,6);not null;default:0"`
	UoM                string          `gorm:"column:uom;size:32;not null"`
	Source             string          `gorm:"size:128;not null"`
	Destination        string          `gorm:"size:128;not null"`
	State              int             `gorm:"not null"`
	LotID              string          `gorm:"size:64;index"`
	DemandLineIDs      StringList      `gorm:"type:text"`
	DestLineIDs        StringList      `gorm:"type:text"`
	Origin             string          `gorm:"size:128"`
	RuleID             string          `gorm:"size:64"`
	Priority           string          `gorm:"size:8"`
	PlannedDate        time.Time
	Company            string    `gorm:"size:64"`
	CreatedAt          time.Time `gorm:"autoCreateTime:false"`
	UpdatedAt          time.Time
}

// TableName returns the table name for GORM
func (FulfillmentLineModel) TableName() string { return "fulfillment_lines" }

func (m *FulfillmentLineModel) toDomain() *entities.FulfillmentLine {
	return &entities.FulfillmentLine{
		ID:            m.ID,
		GroupID:       m.GroupID,
		Product:       entities.ProductID(m.ProductID),
		Quantity:      entities.NewDualQuantity(m.QuantityNominal, m.QuantityNormalized),
		Done:          entities.NewDualQuantity(m.DoneNominal, m.DoneNormalized),
		Density:       entities.Density{Fact: m.DensityFact, Reference: m.DensityReference},
		UoM:           m.UoM,
		Source:        entities.LocationID(m.Source),
		Destination:   entities.LocationID(m.Destination),
		State:         entities.LineState(m.State),
		LotID:         m.LotID,
		DemandLineIDs: []string(m.DemandLineIDs),
		DestLineIDs:   []string(m.DestLineIDs),
		Origin:        m.Origin,
		RuleID:        m.RuleID,
		Priority:      m.Priority,
		PlannedDate:   m.PlannedDate,
		Company:       m.Company,
		CreatedAt:     m.CreatedAt,
	}
}

func lineFromDomain(l *entities.FulfillmentLine) *FulfillmentLineModel {
	return &FulfillmentLineModel{
		ID:                 l.ID,
		GroupID:            l.GroupID,
		ProductID:          string(l.Product),
		QuantityNominal:    l.Quantity.Nominal,
		QuantityNormalized: l.Quantity.Normalized,
		DoneNominal:        l.Done.Nominal,
		DoneNormalized:     l.Done.Normalized,
		DensityFact:        l.Density.Fact,
		DensityReference:   l.Density.Reference,
		UoM:                l.UoM,
		Source:             string(l.Source),
		Destination:        string(l.Destination),
		State:              int(l.State),
		LotID:              l.LotID,
		DemandLineIDs:      StringList(l.DemandLineIDs),
		DestLineIDs:        StringList(l.DestLineIDs),
		Origin:             l.Origin,
		RuleID:             l.RuleID,
		Priority:           l.Priority,
		PlannedDate:        l.PlannedDate,
		Company:            l.Company,
		CreatedAt:          l.CreatedAt,
	}
}

// LineDemandModel links a fulfillment line to the demand lines it is attached to
type LineDemandModel struct {
	LineID       string `gorm:"primaryKey;size:64"`
	DemandLineID string `gorm:"primaryKey;size:64;index"`
}

// TableName returns the table name for GORM
func (LineDemandModel) TableName() string { return "fulfillment_line_demands" }

// LineDetailModel is the persistence model of an executed movement detail
type LineDetailModel struct {
	ID             string          `gorm:"primaryKey;size:64"`
	LineID         string          `gorm:"size:64;not null;index"`
	ProductID      string          `gorm:"size:64;not null"`
	Source         string          `gorm:"size:128;not null;index"`
	Destination    string          `gorm:"size:128;not null;index"`
	LotID          string          `gorm:"size:64"`
	DoneNominal    decimal.Decimal `gorm:"type:decimal(20,6);not null;default:0"`
	DoneNormalized decimal.Decimal `gorm:"type:decimal(20,6);not null;default:0"`
	Date           time.Time       `gorm:"not null;index"`
}

// TableName returns the table name for GORM
func (LineDetailModel) TableName() string { return "fulfillment_line_details" }

func (m *LineDetailModel) toDomain() *entities.FulfillmentLineDetail {
	return &entities.FulfillmentLineDetail{
		ID:          m.ID,
		LineID:      m.LineID,
		Product:     entities.ProductID(m.ProductID),
		Source:      entities.LocationID(m.Source),
		Destination: entities.LocationID(m.Destination),
		LotID:       m.LotID,
		Done:        entities.NewDualQuantity(m.DoneNominal, m.DoneNormalized),
		Date:        m.Date,
	}
}

func detailFromDomain(d *entities.FulfillmentLineDetail) *LineDetailModel {
	return &LineDetailModel{
		ID:             d.ID,
		LineID:         d.LineID,
		ProductID:      string(d.Product),
		Source:         string(d.Source),
		Destination:    string(d.Destination),
		LotID:          d.LotID,
		DoneNominal:    d.Done.Nominal,
		DoneNormalized: d.Done.Normalized,
		Date:           d.Date,
	}
}

// LotModel is the persistence model of a lot identity. (product, density) is unique.
type LotModel struct {
	ID         string          `gorm:"primaryKey;size:64"`
	ProductID  string          `gorm:"size:64;not null;uniqueIndex:idx_lots_product_density,priority:1"`
	DensityKey string          `gorm:"size:16;not null;uniqueIndex:idx_lots_product_density,priority:2"`
	Density    decimal.Decimal `gorm:"type:decimal(10,4);not null"`
	Label      string          `gorm:"size:64;not null"`
	CreatedAt  time.Time
}

// TableName returns the table name for GORM
func (LotModel) TableName() string { return "lots" }

func (m *LotModel) toDomain() *entities.LotIdentity {
	return &entities.LotIdentity{
		ID:        m.ID,
		Product:   entities.ProductID(m.ProductID),
		Density:   m.Density,
		Label:     m.Label,
		CreatedAt: m.CreatedAt,
	}
}

func lotFromDomain(l *entities.LotIdentity) *LotModel {
	return &LotModel{
		ID:         l.ID,
		ProductID:  string(l.Product),
		DensityKey: densityKey(l.Density),
		Density:    l.Density,
		Label:      l.Label,
		CreatedAt:  l.CreatedAt,
	}
}

func densityKey(d decimal.Decimal) string {
	return d.StringFixed(4)
}

// RuleModel is the persistence model of a routing rule
type RuleModel struct {
	ID       string `gorm:"primaryKey;size:64"`
	Name     string `gorm:"size:255"`
	Action   string `gorm:"size:32;not null"`
	Product  string `gorm:"size:64"`
	Location string `gorm:"size:128;not null;index"`
	Source   string `gorm:"size:128;not null"`
	PushTo   string `gorm:"size:128"`
	Sequence int    `gorm:"not null;default:0"`
	Company  string `gorm:"size:64"`
}

// TableName returns the table name for GORM
func (RuleModel) TableName() string { return "rules" }

func (m *RuleModel) toDomain() *entities.Rule {
	return &entities.Rule{
		ID:       m.ID,
		Name:     m.Name,
		Action:   entities.RuleAction(m.Action),
		Product:  entities.ProductID(m.Product),
		Location: entities.LocationID(m.Location),
		Source:   entities.LocationID(m.Source),
		PushTo:   entities.LocationID(m.PushTo),
		Sequence: m.Sequence,
		Company:  m.Company,
	}
}

func ruleFromDomain(r *entities.Rule) *RuleModel {
	return &RuleModel{
		ID:       r.ID,
		Name:     r.Name,
		Action:   string(r.Action),
		Product:  string(r.Product),
		Location: string(r.Location),
		Source:   string(r.Source),
		PushTo:   string(r.PushTo),
		Sequence: r.Sequence,
		Company:  r.Company,
	}
}

// ReportRowModel is one row of the last flow report
type ReportRowModel struct {
	ID        uint            `gorm:"primaryKey"`
	ProductID string          `gorm:"size:64;not null"`
	Location  string          `gorm:"size:128;not null"`
	Category  string          `gorm:"size:255"`
	Opening   decimal.Decimal `gorm:"type:decimal(20,6);not null;default:0"`
	Incoming  decimal.Decimal `gorm:"type:decimal(20,6);not null;default:0"`
	Outgoing  decimal.Decimal `gorm:"type:decimal(20,6);not null;default:0"`
	Closing   decimal.Decimal `gorm:"type:decimal(20,6);not null;default:0"`
}

// TableName returns the table name for GORM
func (ReportRowModel) TableName() string { return "flow_report_rows" }

func (m *ReportRowModel) toDomain() entities.FlowReportRow {
	return entities.FlowReportRow{
		Product:  entities.ProductID(m.ProductID),
		Location: entities.LocationID(m.Location),
		Category: m.Category,
		Opening:  m.Opening,
		Incoming: m.Incoming,
		Outgoing: m.Outgoing,
		Closing:  m.Closing,
	}
}

func reportRowFromDomain(r entities.FlowReportRow) ReportRowModel {
	return ReportRowModel{
		ProductID: string(r.Product),
		Location:  string(r.Location),
		Category:  r.Category,
		Opening:   r.Opening,
		Incoming:  r.Incoming,
		Outgoing:  r.Outgoing,
		Closing:   r.Closing,
	}
}

// AllModels lists every model managed by AutoMigrate
func AllModels() []interface{} {
	return []interface{}{
		&UnitModel{},
		&ProductModel{},
		&LocationModel{},
		&DemandLineModel{},
		&FulfillmentGroupModel{},
		&FulfillmentLineModel{},
		&LineDemandModel{},
		&LineDetailModel{},
		&LotModel{},
		&RuleModel{},
		&ReportRowModel{},
	}
}
