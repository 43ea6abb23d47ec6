package services

import (
	"github.com/vsinha/fuelrecon/pkg/domain/entities"
)

// InvoiceLineValues is what the invoicing collaborator copies onto its own line
type InvoiceLineValues struct {
	DemandLineID string
	Product      entities.ProductID
	UoM          string
	Quantity     entities.DualQuantity
	Density      entities.Density
	LotID        string
}

// QuantityToInvoice returns the quantity still due for invoicing.
// On-order lines invoice their target; on-delivery lines invoice what was delivered.
func QuantityToInvoice(demand *entities.DemandLine, delivered entities.DualQuantity) entities.DualQuantity {
	base := delivered
	if demand.InvoicePolicy == entities.InvoiceOnOrder {
		base = demand.EffectiveTarget()
	}
	return base.Sub(demand.Invoiced)
}

// PrepareInvoiceLine builds the invoice values for a demand line.
// The density of the bound lot wins over the demand's own reference density.
func PrepareInvoiceLine(
	demand *entities.DemandLine,
	delivered entities.DualQuantity,
	lot *entities.LotIdentity,
) InvoiceLineValues {
	values := InvoiceLineValues{
		DemandLineID: demand.ID,
		Product:      demand.Product,
		UoM:          demand.UoM,
		Quantity:     QuantityToInvoice(demand, delivered),
		Density:      demand.Density,
	}
	if lot != nil {
		values.LotID = lot.ID
		values.Density.Reference = lot.Density
	}
	return values
}
