package shared

import (
	"sort"

	"github.com/shopspring/decimal"
	"github.com/vsinha/fuelrecon/pkg/domain/entities"
)

// FlowBucket accumulates normalized quantities of one product at one location
type FlowBucket struct {
	Category string
	Opening  decimal.Decimal
	Incoming decimal.Decimal
	Outgoing decimal.Decimal
	Closing  decimal.Decimal
}

type bucketKey struct {
	product  entities.ProductID
	location entities.LocationID
}

// FlowBuckets manages flow buckets by product and location
type FlowBuckets map[bucketKey]*FlowBucket

// NewFlowBuckets creates a new empty bucket map
func NewFlowBuckets() FlowBuckets {
	return make(FlowBuckets)
}

// Ensure returns the bucket for a product and location, creating it if needed
func (fb FlowBuckets) Ensure(product entities.ProductID, location entities.LocationID, category string) *FlowBucket {
	key := bucketKey{product: product, location: location}
	b, ok := fb[key]
	if !ok {
		b = &FlowBucket{Category: category}
		fb[key] = b
	}
	return b
}

// Merge adds every bucket of other into fb
func (fb FlowBuckets) Merge(other FlowBuckets) {
	for key, src := range other {
		dst, ok := fb[key]
		if !ok {
			copied := *src
			fb[key] = &copied
			continue
		}
		dst.Opening = dst.Opening.Add(src.Opening)
		dst.Incoming = dst.Incoming.Add(src.Incoming)
		dst.Outgoing = dst.Outgoing.Add(src.Outgoing)
		dst.Closing = dst.Closing.Add(src.Closing)
	}
}

// Rows returns one report row per bucket ordered by location then product
func (fb FlowBuckets) Rows() []entities.FlowReportRow {
	rows := make([]entities.FlowReportRow, 0, len(fb))
	for key, b := range fb {
		rows = append(rows, entities.FlowReportRow{
			Product:  key.product,
			Location: key.location,
			Category: b.Category,
			Opening:  b.Opening,
			Incoming: b.Incoming,
			Outgoing: b.Outgoing,
			Closing:  b.Closing,
		})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Location != rows[j].Location {
			return rows[i].Location < rows[j].Location
		}
		return rows[i].Product < rows[j].Product
	})
	return rows
}
