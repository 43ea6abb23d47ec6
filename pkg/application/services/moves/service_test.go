package moves

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vsinha/fuelrecon/pkg/domain/entities"
	"github.com/vsinha/fuelrecon/pkg/infrastructure/events"
	"github.com/vsinha/fuelrecon/pkg/infrastructure/repositories/memory"
)

type serviceEnv struct {
	repo    *memory.FulfillmentRepository
	store   *events.InMemoryEventStore
	service *Service
	rc      entities.RunContext
}

func newServiceEnv(t *testing.T) *serviceEnv {
	t.Helper()
	catalog := memory.NewCatalogRepository()
	liter, err := entities.NewUnitOfMeasure("L", "volume", decimal.NewFromInt(1), decimal.New(1, -3))
	require.NoError(t, err)
	require.NoError(t, catalog.SaveUnit(context.Background(), liter))

	e := &serviceEnv{
		repo:  memory.NewFulfillmentRepository(),
		store: events.NewInMemoryEventStore(nil),
		rc:    entities.NewRunContext("ACME"),
	}
	e.service = NewService(e.repo, catalog, entities.HalfUp, e.store, nil)
	return e
}

func (e *serviceEnv) save(t *testing.T, lines ...*entities.FulfillmentLine) {
	t.Helper()
	for _, l := range lines {
		require.NoError(t, e.repo.SaveLine(context.Background(), l))
	}
}

func TestService_SplitAndMerge(t *testing.T) {
	ctx := context.Background()
	e := newServiceEnv(t)
	e.save(t, newLine("1", "lot-a", 100, 98))

	remainder, split, err := e.service.Split(ctx, e.rc, "1", decimal.NewFromInt(25), nil)
	require.NoError(t, err)
	assert.True(t, split.Quantity.Equal(entities.DualFromFloat(25, 24.5), liters))

	stored, err := e.repo.GetLine(ctx, "1")
	require.NoError(t, err)
	assert.True(t, stored.Quantity.Equal(remainder.Quantity, liters))

	merged, err := e.service.Merge(ctx, e.rc, []string{"1", split.ID})
	require.NoError(t, err)
	assert.True(t, merged.Quantity.Equal(entities.DualFromFloat(100, 98), liters))

	gone, err := e.repo.GetLine(ctx, split.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.LineCancelled, gone.State)

	assert.Len(t, e.store.EventsOfType(events.FulfillmentSplitEvent), 1)
	assert.Len(t, e.store.EventsOfType(events.FulfillmentMergedEvent), 1)
}

func TestService_MergeRejectsRepeatedLine(t *testing.T) {
	ctx := context.Background()
	e := newServiceEnv(t)
	e.save(t, newLine("1", "lot-a", 100, 98))

	_, err := e.service.Merge(ctx, e.rc, []string{"1", "1"})
	assert.True(t, errors.Is(err, entities.ErrValidation))

	stored, err := e.repo.GetLine(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, entities.LineConfirmed, stored.State)
	assert.True(t, stored.Quantity.Equal(entities.DualFromFloat(100, 98), liters))
	assert.Empty(t, e.store.EventsOfType(events.FulfillmentMergedEvent))
}

func TestService_Complete(t *testing.T) {
	ctx := context.Background()
	e := newServiceEnv(t)
	e.save(t, newLine("1", "lot-a", 100, 98))
	at := time.Date(2024, 2, 1, 10, 0, 0, 0, time.UTC)

	detail, err := e.service.Complete(ctx, e.rc, "1", entities.DualFromFloat(40, 39.1), at, "")
	require.NoError(t, err)
	assert.Equal(t, "lot-a", detail.LotID)
	assert.Equal(t, at, detail.Date)

	line, _ := e.repo.GetLine(ctx, "1")
	assert.Equal(t, entities.LinePartiallyAvailable, line.State)

	_, err = e.service.Complete(ctx, e.rc, "1", entities.DualFromFloat(60, 58.7), at, "lot-b")
	require.Error(t, err)
	assert.True(t, errors.Is(err, entities.ErrLotConflict))

	_, err = e.service.Complete(ctx, e.rc, "1", entities.DualFromFloat(60, 58.7), at, "lot-a")
	require.NoError(t, err)
	line, _ = e.repo.GetLine(ctx, "1")
	assert.Equal(t, entities.LineDone, line.State)
	assert.True(t, line.Done.Equal(entities.DualFromFloat(100, 97.8), liters))

	_, err = e.service.Complete(ctx, e.rc, "1", entities.DualFromFloat(1, 1), at, "")
	assert.True(t, errors.Is(err, entities.ErrValidation))
}

func TestService_SetDoneNormalized(t *testing.T) {
	ctx := context.Background()
	at := time.Date(2024, 2, 1, 10, 0, 0, 0, time.UTC)

	t.Run("no_details_creates_one", func(t *testing.T) {
		e := newServiceEnv(t)
		e.save(t, newLine("1", "", 100, 98))

		require.NoError(t, e.service.SetDoneNormalized(ctx, e.rc, "1", decimal.NewFromInt(50)))
		details, _ := e.repo.DetailsByLine(ctx, "1")
		require.Len(t, details, 1)
		assert.True(t, details[0].Done.Normalized.Equal(decimal.NewFromInt(50)))
	})

	t.Run("single_detail_is_overwritten", func(t *testing.T) {
		e := newServiceEnv(t)
		e.save(t, newLine("1", "", 100, 98))
		_, err := e.service.Complete(ctx, e.rc, "1", entities.DualFromFloat(50, 49), at, "")
		require.NoError(t, err)

		require.NoError(t, e.service.SetDoneNormalized(ctx, e.rc, "1", decimal.RequireFromString("48.5")))
		details, _ := e.repo.DetailsByLine(ctx, "1")
		require.Len(t, details, 1)
		assert.True(t, details[0].Done.Normalized.Equal(decimal.RequireFromString("48.5")))
		line, _ := e.repo.GetLine(ctx, "1")
		assert.True(t, line.Done.Normalized.Equal(decimal.RequireFromString("48.5")))
	})

	t.Run("many_details_must_match", func(t *testing.T) {
		e := newServiceEnv(t)
		e.save(t, newLine("1", "", 100, 98))
		_, err := e.service.Complete(ctx, e.rc, "1", entities.DualFromFloat(20, 19), at, "")
		require.NoError(t, err)
		_, err = e.service.Complete(ctx, e.rc, "1", entities.DualFromFloat(20, 19.5), at, "")
		require.NoError(t, err)

		err = e.service.SetDoneNormalized(ctx, e.rc, "1", decimal.NewFromInt(40))
		assert.True(t, errors.Is(err, entities.ErrValidation))
		assert.NoError(t, e.service.SetDoneNormalized(ctx, e.rc, "1", decimal.RequireFromString("38.5")))
	})
}
