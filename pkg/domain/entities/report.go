package entities

import "github.com/shopspring/decimal"

// FlowReportRow is the normalized-quantity flow of a product through a location over a window.
// Outgoing is a positive magnitude; Closing = Opening + Incoming - Outgoing.
type FlowReportRow struct {
	Product  ProductID       `json:"product"`
	Location LocationID      `json:"location"`
	Category string          `json:"category"`
	Opening  decimal.Decimal `json:"opening"`
	Incoming decimal.Decimal `json:"incoming"`
	Outgoing decimal.Decimal `json:"outgoing"`
	Closing  decimal.Decimal `json:"closing"`
}
