package handler

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/vsinha/fuelrecon/pkg/application/dto"
	"github.com/vsinha/fuelrecon/pkg/domain/entities"
	"github.com/vsinha/fuelrecon/pkg/domain/services"
)

// LineView is the JSON shape of a fulfillment line
type LineView struct {
	ID             string          `json:"id"`
	GroupID        string          `json:"group_id,omitempty"`
	Product        string          `json:"product"`
	Source         string          `json:"source"`
	Destination    string          `json:"destination"`
	Nominal        decimal.Decimal `json:"nominal"`
	Normalized     decimal.Decimal `json:"normalized"`
	DoneNominal    decimal.Decimal `json:"done_nominal"`
	DoneNormalized decimal.Decimal `json:"done_normalized"`
	UoM            string          `json:"uom"`
	State          string          `json:"state"`
	LotID          string          `json:"lot_id,omitempty"`
	DemandLineIDs  []string        `json:"demand_line_ids,omitempty"`
}

// RequestView is the JSON shape of a fulfillment request
type RequestView struct {
	Kind       string          `json:"kind"`
	Product    string          `json:"product"`
	Location   string          `json:"location"`
	Nominal    decimal.Decimal `json:"nominal"`
	Normalized decimal.Decimal `json:"normalized"`
	AttachTo   []string        `json:"attach_to,omitempty"`
}

// ReconciliationView is the JSON shape of a reconciliation result
type ReconciliationView struct {
	DemandLineID string        `json:"demand_line_id"`
	GroupID      string        `json:"group_id,omitempty"`
	Requests     []RequestView `json:"requests"`
	Created      []LineView    `json:"created"`
	Updated      []LineView    `json:"updated"`
	Failures     []string      `json:"failures,omitempty"`
	Warnings     []string      `json:"warnings,omitempty"`
}

// InvoiceView is the JSON shape of invoice line values
type InvoiceView struct {
	DemandLineID     string          `json:"demand_line_id"`
	Product          string          `json:"product"`
	UoM              string          `json:"uom"`
	Nominal          decimal.Decimal `json:"nominal"`
	Normalized       decimal.Decimal `json:"normalized"`
	DensityFact      decimal.Decimal `json:"density_fact"`
	DensityReference decimal.Decimal `json:"density_reference"`
	LotID            string          `json:"lot_id,omitempty"`
}

// LotView is the JSON shape of a lot identity
type LotView struct {
	ID      string          `json:"id"`
	Product string          `json:"product"`
	Density decimal.Decimal `json:"density"`
	Label   string          `json:"label"`
}

// DetailView is the JSON shape of an executed movement detail
type DetailView struct {
	ID         string          `json:"id"`
	LineID     string          `json:"line_id"`
	LotID      string          `json:"lot_id,omitempty"`
	Nominal    decimal.Decimal `json:"nominal"`
	Normalized decimal.Decimal `json:"normalized"`
	Date       time.Time       `json:"date"`
}

func lineView(l *entities.FulfillmentLine) LineView {
	return LineView{
		ID:             l.ID,
		GroupID:        l.GroupID,
		Product:        string(l.Product),
		Source:         string(l.Source),
		Destination:    string(l.Destination),
		Nominal:        l.Quantity.Nominal,
		Normalized:     l.Quantity.Normalized,
		DoneNominal:    l.Done.Nominal,
		DoneNormalized: l.Done.Normalized,
		UoM:            l.UoM,
		State:          l.State.String(),
		LotID:          l.LotID,
		DemandLineIDs:  l.DemandLineIDs,
	}
}

func lineViews(lines []*entities.FulfillmentLine) []LineView {
	views := make([]LineView, 0, len(lines))
	for _, l := range lines {
		views = append(views, lineView(l))
	}
	return views
}

func reconciliationView(r *dto.ReconciliationResult) *ReconciliationView {
	if r == nil {
		return nil
	}
	v := &ReconciliationView{
		DemandLineID: r.DemandLineID,
		GroupID:      r.GroupID,
		Requests:     make([]RequestView, 0, len(r.Requests)),
		Created:      []LineView{},
		Updated:      []LineView{},
	}
	for _, req := range r.Requests {
		v.Requests = append(v.Requests, RequestView{
			Kind:       req.Kind.String(),
			Product:    string(req.Product),
			Location:   string(req.Location),
			Nominal:    req.Quantity.Nominal,
			Normalized: req.Quantity.Normalized,
			AttachTo:   req.AttachTo,
		})
	}
	if r.Run != nil {
		v.Created = lineViews(r.Run.Created)
		v.Updated = lineViews(r.Run.Updated)
		for _, d := range r.Run.Degraded {
			v.Warnings = append(v.Warnings, d.Error())
		}
		if r.Run.Failure != nil {
			for _, f := range r.Run.Failure.Failures {
				v.Failures = append(v.Failures, f.Error())
			}
		}
	}
	return v
}

func invoiceView(v services.InvoiceLineValues) InvoiceView {
	return InvoiceView{
		DemandLineID:     v.DemandLineID,
		Product:          string(v.Product),
		UoM:              v.UoM,
		Nominal:          v.Quantity.Nominal,
		Normalized:       v.Quantity.Normalized,
		DensityFact:      v.Density.Fact,
		DensityReference: v.Density.Reference,
		LotID:            v.LotID,
	}
}

func detailView(d *entities.FulfillmentLineDetail) DetailView {
	return DetailView{
		ID:         d.ID,
		LineID:     d.LineID,
		LotID:      d.LotID,
		Nominal:    d.Done.Nominal,
		Normalized: d.Done.Normalized,
		Date:       d.Date,
	}
}

func lotViews(lots []*entities.LotIdentity) []LotView {
	views := make([]LotView, 0, len(lots))
	for _, l := range lots {
		views = append(views, LotView{ID: l.ID, Product: string(l.Product), Density: l.Density, Label: l.Label})
	}
	return views
}
