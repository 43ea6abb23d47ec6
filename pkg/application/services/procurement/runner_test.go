package procurement

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/vsinha/fuelrecon/pkg/application/services/lots"
	"github.com/vsinha/fuelrecon/pkg/domain/entities"
	"github.com/vsinha/fuelrecon/pkg/domain/services"
	"github.com/vsinha/fuelrecon/pkg/infrastructure/events"
	"github.com/vsinha/fuelrecon/pkg/infrastructure/repositories/memory"
)

// MockHandler records the batches handed to a rule action
type MockHandler struct {
	mock.Mock
}

func (m *MockHandler) Handle(ctx context.Context, rc entities.RunContext, batch []Procurement) (Outcome, error) {
	args := m.Called(ctx, rc, batch)
	return args.Get(0).(Outcome), args.Error(1)
}

type env struct {
	catalog     *memory.CatalogRepository
	rules       *memory.RuleRepository
	demands     *memory.DemandRepository
	fulfillment *memory.FulfillmentRepository
	lotRepo     *memory.LotRepository
	store       *events.InMemoryEventStore
	dispatcher  *Dispatcher
	rc          entities.RunContext
}

var fixedNow = time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)

func newEnv(t *testing.T) *env {
	t.Helper()
	ctx := context.Background()
	e := &env{
		catalog:     memory.NewCatalogRepository(),
		rules:       memory.NewRuleRepository(),
		demands:     memory.NewDemandRepository(),
		fulfillment: memory.NewFulfillmentRepository(),
		lotRepo:     memory.NewLotRepository(),
		store:       events.NewInMemoryEventStore(nil),
		rc:          entities.NewRunContext("ACME"),
	}
	e.rc.Clock = func() time.Time { return fixedNow }

	liter, err := entities.NewUnitOfMeasure("L", "volume", decimal.NewFromInt(1), decimal.New(1, -3))
	require.NoError(t, err)
	m3, err := entities.NewUnitOfMeasure("m3", "volume", decimal.New(1, -3), decimal.New(1, -6))
	require.NoError(t, err)
	require.NoError(t, e.catalog.SaveUnit(ctx, liter))
	require.NoError(t, e.catalog.SaveUnit(ctx, m3))

	for _, p := range []struct {
		id  entities.ProductID
		typ entities.ProductType
	}{{"DIESEL", entities.Storable}, {"GASOLINE", entities.Storable}, {"FREIGHT", entities.Service}} {
		product, err := entities.NewProduct(p.id, string(p.id), "Fuel", p.typ, "L")
		require.NoError(t, err)
		require.NoError(t, e.catalog.SaveProduct(ctx, product))
	}
	for _, l := range []*entities.Location{
		{ID: "WH/Stock", Company: "ACME", Usage: entities.Internal},
		{ID: "WH/Tank", Company: "ACME", Usage: entities.Internal},
		{ID: "Customers", Company: "RETAIL", Usage: entities.Customer},
		{ID: "Vendors", Usage: entities.Supplier},
	} {
		require.NoError(t, e.catalog.SaveLocation(ctx, l))
	}

	deliver, _ := entities.NewRule("deliver", entities.ActionPullPush, "Customers", "WH/Stock")
	receive, _ := entities.NewRule("receive", entities.ActionBuy, "WH/Stock", "Vendors")
	fill, _ := entities.NewRule("fill-tank", entities.ActionPush, "WH/Tank", "Vendors")
	fill.PushTo = "WH/Stock"
	require.NoError(t, e.rules.LoadRules(ctx, []*entities.Rule{deliver, receive, fill}))

	ledger := services.NewQuantityLedger(services.NewUnits(liter, m3), entities.HalfUp)
	binder := lots.NewBinder(e.lotRepo, e.store, nil)
	e.dispatcher = NewDispatcher(e.fulfillment, e.demands, e.lotRepo, binder, ledger, e.store, nil)
	return e
}

func (e *env) runner(t *testing.T, handlers map[entities.RuleAction]Handler) *Runner {
	t.Helper()
	if handlers == nil {
		handlers = e.dispatcher.Handlers()
	}
	r, err := NewRunner(e.rules, e.catalog, handlers, e.store, nil)
	require.NoError(t, err)
	return r
}

func pushRequest(product entities.ProductID, location entities.LocationID, nominal, normalized float64) entities.FulfillmentRequest {
	return entities.FulfillmentRequest{
		Kind:     entities.PushRequest,
		Product:  product,
		Quantity: entities.DualFromFloat(nominal, normalized),
		Density:  entities.Density{Fact: decimal.RequireFromString("0.92"), Reference: decimal.RequireFromString("0.92")},
		UoM:      "L",
		Location: location,
		Origin:   "SO1",
	}
}

func TestRun_RoutingFailureDoesNotStopSiblings(t *testing.T) {
	e := newEnv(t)
	runner := e.runner(t, nil)

	requests := []entities.FulfillmentRequest{
		pushRequest("DIESEL", "Customers", 100, 98),
		pushRequest("DIESEL", "Nowhere", 50, 49),
		pushRequest("GASOLINE", "WH/Stock", 30, 29),
	}

	result, err := runner.Run(context.Background(), e.rc, requests, false)
	require.NoError(t, err)

	assert.Equal(t, []int{0, 2}, result.Dispatched)
	assert.Len(t, result.Created, 2)
	require.NotNil(t, result.Failure)
	require.Len(t, result.Failure.Failures, 1)

	failure := result.Failure.Failures[0]
	assert.Equal(t, 1, failure.Index)
	var routing *entities.RoutingNotFound
	require.ErrorAs(t, failure, &routing)
	assert.Equal(t, entities.LocationID("Nowhere"), routing.Request.Location)
	assert.Len(t, e.store.EventsOfType(events.ProcurementFailedEvent), 1)
}

func TestRun_StrictModeReturnsAggregate(t *testing.T) {
	e := newEnv(t)
	runner := e.runner(t, nil)

	requests := []entities.FulfillmentRequest{
		pushRequest("DIESEL", "Nowhere", 1, 1),
		pushRequest("GASOLINE", "Elsewhere", 1, 1),
	}

	result, err := runner.Run(context.Background(), e.rc, requests, true)
	require.Error(t, err)
	require.NotNil(t, result)

	var agg *entities.AggregateFailure
	require.ErrorAs(t, err, &agg)
	assert.Equal(t, 2, agg.Count())
	assert.Equal(t,
		"no rule has been found to replenish \"DIESEL\" in \"Nowhere\"\n"+
			"no rule has been found to replenish \"GASOLINE\" in \"Elsewhere\"",
		err.Error())
	assert.True(t, errors.Is(err, entities.ErrRoutingNotFound))
}

func TestRun_SkipsWithoutRoutingLookup(t *testing.T) {
	e := newEnv(t)
	handler := &MockHandler{}
	runner := e.runner(t, map[entities.RuleAction]Handler{
		entities.ActionPull: handler.Handle,
		entities.ActionPush: handler.Handle,
	})

	requests := []entities.FulfillmentRequest{
		pushRequest("FREIGHT", "Nowhere", 1, 0),
		pushRequest("DIESEL", "Nowhere", 0, 0.0001),
	}

	result, err := runner.Run(context.Background(), e.rc, requests, true)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1}, result.Skipped)
	handler.AssertNotCalled(t, "Handle", mock.Anything, mock.Anything, mock.Anything)
}

func TestRun_GroupsByNormalizedActionAndFillsDefaults(t *testing.T) {
	e := newEnv(t)
	pull := &MockHandler{}
	push := &MockHandler{}
	runner := e.runner(t, map[entities.RuleAction]Handler{
		entities.ActionPull: pull.Handle,
		entities.ActionPush: push.Handle,
	})

	pull.On("Handle", mock.Anything, mock.Anything, mock.MatchedBy(func(batch []Procurement) bool {
		if len(batch) != 1 {
			return false
		}
		v := batch[0].Request.Values
		return batch[0].Rule.ID == "deliver" && v.Company == "RETAIL" && v.Priority == "0" && v.PlannedDate.Equal(fixedNow)
	})).Return(Outcome{}, nil).Once()

	result, err := runner.Run(context.Background(), e.rc, []entities.FulfillmentRequest{
		pushRequest("DIESEL", "Customers", 10, 9),
		pushRequest("DIESEL", "WH/Stock", 10, 9),
	}, false)
	require.NoError(t, err)

	pull.AssertExpectations(t)
	push.AssertNotCalled(t, "Handle", mock.Anything, mock.Anything, mock.Anything)
	assert.Equal(t, []int{0}, result.Dispatched)
	require.Len(t, result.Degraded, 1)
	assert.Equal(t, entities.ActionBuy, result.Degraded[0].Action)
	assert.Nil(t, result.Failure)
}

func TestRun_HandlerErrorAttributedToBatch(t *testing.T) {
	e := newEnv(t)
	pull := &MockHandler{}
	runner := e.runner(t, map[entities.RuleAction]Handler{
		entities.ActionPull: pull.Handle,
		entities.ActionPush: pull.Handle,
	})
	pull.On("Handle", mock.Anything, mock.Anything, mock.Anything).Return(Outcome{}, errors.New("warehouse closed"))

	result, err := runner.Run(context.Background(), e.rc, []entities.FulfillmentRequest{
		pushRequest("DIESEL", "Customers", 10, 9),
		pushRequest("GASOLINE", "Customers", 10, 9),
	}, false)
	require.NoError(t, err)
	require.Equal(t, 2, result.Failure.Count())
	assert.Empty(t, result.Dispatched)
	assert.Equal(t, "warehouse closed\nwarehouse closed", result.Failure.Error())
}

func TestNewRunner_RequiresCoreHandlers(t *testing.T) {
	e := newEnv(t)
	_, err := NewRunner(e.rules, e.catalog, map[entities.RuleAction]Handler{
		entities.ActionPull: e.dispatcher.Pull,
	}, nil, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, entities.ErrHandlerMissing))
}

func TestRunner_Validate(t *testing.T) {
	e := newEnv(t)
	complete := e.runner(t, nil)
	assert.NoError(t, complete.Validate(context.Background()))

	partial := e.runner(t, map[entities.RuleAction]Handler{
		entities.ActionPull: e.dispatcher.Pull,
		entities.ActionPush: e.dispatcher.Push,
	})
	err := partial.Validate(context.Background())
	require.Error(t, err)
	var missing *entities.HandlerMissing
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, entities.ActionBuy, missing.Action)
}
