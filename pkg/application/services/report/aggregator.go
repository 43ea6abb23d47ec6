package report

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/vsinha/fuelrecon/pkg/application/services/shared"
	"github.com/vsinha/fuelrecon/pkg/domain/entities"
	"github.com/vsinha/fuelrecon/pkg/domain/repositories"
)

// Aggregator computes normalized flow per product and internal location over a window
type Aggregator struct {
	catalog     repositories.CatalogRepository
	fulfillment repositories.FulfillmentRepository
	logger      *zap.Logger
	concurrency int
}

// NewAggregator creates an aggregator. concurrency bounds the per-location fan-out, 0 means unbounded.
func NewAggregator(
	catalog repositories.CatalogRepository,
	fulfillment repositories.FulfillmentRepository,
	concurrency int,
	logger *zap.Logger,
) *Aggregator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Aggregator{
		catalog:     catalog,
		fulfillment: fulfillment,
		logger:      logger,
		concurrency: concurrency,
	}
}

// Aggregate returns one row per product and internal location of the company.
// Details dated before start feed the opening balance, details in [start, end)
// feed incoming and outgoing.
func (a *Aggregator) Aggregate(ctx context.Context, company string, start, end time.Time) ([]entities.FlowReportRow, error) {
	if end.Before(start) {
		return nil, entities.NewValidationError("end", "report end %s is before start %s",
			end.Format(time.RFC3339), start.Format(time.RFC3339))
	}

	locations, err := a.catalog.LocationsByCompany(ctx, company, entities.Internal)
	if err != nil {
		return nil, fmt.Errorf("failed to list locations: %w", err)
	}

	categories := &categoryCache{catalog: a.catalog, byProduct: make(map[entities.ProductID]string)}
	results := make([]shared.FlowBuckets, len(locations))

	g, gctx := errgroup.WithContext(ctx)
	if a.concurrency > 0 {
		g.SetLimit(a.concurrency)
	}
	for i, loc := range locations {
		i, loc := i, loc
		g.Go(func() error {
			buckets, err := a.aggregateLocation(gctx, loc.ID, start, end, categories)
			if err != nil {
				return fmt.Errorf("location %s: %w", loc.ID, err)
			}
			results[i] = buckets
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	all := shared.NewFlowBuckets()
	for _, b := range results {
		all.Merge(b)
	}
	rows := all.Rows()

	a.logger.Debug("flow report aggregated",
		zap.String("company", company),
		zap.Int("locations", len(locations)),
		zap.Int("rows", len(rows)))
	return rows, nil
}

func (a *Aggregator) aggregateLocation(
	ctx context.Context,
	location entities.LocationID,
	start, end time.Time,
	categories *categoryCache,
) (shared.FlowBuckets, error) {
	details, err := a.fulfillment.DetailsTouching(ctx, location, end)
	if err != nil {
		return nil, err
	}

	buckets := shared.NewFlowBuckets()
	for _, d := range details {
		incoming := d.Destination == location
		if !incoming && d.Source != location {
			continue
		}
		if !d.Date.Before(end) {
			continue
		}

		category, err := categories.get(ctx, d.Product)
		if err != nil {
			return nil, err
		}
		b := buckets.Ensure(d.Product, location, category)
		qty := d.Done.Normalized

		switch {
		case d.Date.Before(start) && incoming:
			b.Opening = b.Opening.Add(qty)
		case d.Date.Before(start):
			b.Opening = b.Opening.Sub(qty)
		case incoming:
			b.Incoming = b.Incoming.Add(qty)
		default:
			b.Outgoing = b.Outgoing.Add(qty)
		}
	}

	for _, b := range buckets {
		b.Closing = b.Opening.Add(b.Incoming).Sub(b.Outgoing)
	}
	return buckets, nil
}

// categoryCache resolves product categories once per aggregation
type categoryCache struct {
	catalog   repositories.CatalogRepository
	mu        sync.Mutex
	byProduct map[entities.ProductID]string
}

func (c *categoryCache) get(ctx context.Context, id entities.ProductID) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if category, ok := c.byProduct[id]; ok {
		return category, nil
	}
	product, err := c.catalog.GetProduct(ctx, id)
	if err != nil {
		return "", err
	}
	c.byProduct[id] = product.Category
	return product.Category, nil
}
