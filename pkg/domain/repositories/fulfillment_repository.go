package repositories

import (
	"context"
	"time"

	"github.com/vsinha/fuelrecon/pkg/domain/entities"
)

// FulfillmentRepository provides access to fulfillment groups, lines and executed details
type FulfillmentRepository interface {
	GetGroup(ctx context.Context, id string) (*entities.FulfillmentGroup, error)
	SaveGroup(ctx context.Context, group *entities.FulfillmentGroup) error
	FindGroupByDemand(ctx context.Context, demandLineID string) (*entities.FulfillmentGroup, error)

	GetLine(ctx context.Context, id string) (*entities.FulfillmentLine, error)
	SaveLine(ctx context.Context, line *entities.FulfillmentLine) error
	LinesByIDs(ctx context.Context, ids []string) ([]*entities.FulfillmentLine, error)
	// LinesForDemand returns every line attached to the demand line, in entities.SortByPlan order
	LinesForDemand(ctx context.Context, demandLineID string) ([]*entities.FulfillmentLine, error)

	SaveDetail(ctx context.Context, detail *entities.FulfillmentLineDetail) error
	DetailsByLine(ctx context.Context, lineID string) ([]*entities.FulfillmentLineDetail, error)
	// DetailsTouching returns details moving goods into or out of the location strictly before the given time
	DetailsTouching(ctx context.Context, location entities.LocationID, before time.Time) ([]*entities.FulfillmentLineDetail, error)
}
