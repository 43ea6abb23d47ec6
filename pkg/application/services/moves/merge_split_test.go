package moves

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vsinha/fuelrecon/pkg/domain/entities"
)

var liters = entities.Rounding{Precision: decimal.New(1, -3), Method: entities.HalfUp}

func newLine(id, lot string, nominal, normalized float64) *entities.FulfillmentLine {
	return &entities.FulfillmentLine{
		ID:            id,
		GroupID:       "G1",
		Product:       "DIESEL",
		Quantity:      entities.DualFromFloat(nominal, normalized),
		Density:       entities.Density{Fact: decimal.RequireFromString("0.92"), Reference: decimal.RequireFromString("0.92")},
		UoM:           "L",
		Source:        "WH/Stock",
		Destination:   "Customers",
		State:         entities.LineConfirmed,
		LotID:         lot,
		DemandLineIDs: []string{"SO1-" + id},
	}
}

func TestMergeLines_DifferentLotsConflict(t *testing.T) {
	tests := []struct {
		name string
		a, b string
	}{
		{"two_lots", "lot-a", "lot-b"},
		{"bound_and_unbound", "lot-a", ""},
		{"unbound_and_bound", "", "lot-b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := MergeLines([]*entities.FulfillmentLine{newLine("1", tt.a, 10, 9), newLine("2", tt.b, 5, 4)})
			require.Error(t, err)
			assert.True(t, errors.Is(err, entities.ErrLotConflict))
		})
	}
}

func TestMergeLines_SameLotSumsQuantities(t *testing.T) {
	a := newLine("1", "lot-a", 60, 58.8)
	a.Done = entities.DualFromFloat(10, 9.8)
	a.PlannedDate = time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC)
	b := newLine("2", "lot-a", 40, 39.15)
	b.PlannedDate = time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	b.DestLineIDs = []string{"next"}

	survivor, merged, err := MergeLines([]*entities.FulfillmentLine{a, b})
	require.NoError(t, err)

	assert.Equal(t, "1", survivor.ID)
	assert.Equal(t, "lot-a", survivor.LotID)
	assert.True(t, survivor.Quantity.Normalized.Equal(decimal.RequireFromString("97.95")))
	assert.True(t, survivor.Quantity.Nominal.Equal(decimal.NewFromInt(100)))
	assert.True(t, survivor.Done.Equal(entities.DualFromFloat(10, 9.8), liters))
	assert.ElementsMatch(t, []string{"SO1-1", "SO1-2"}, survivor.DemandLineIDs)
	assert.Equal(t, []string{"next"}, survivor.DestLineIDs)
	assert.Equal(t, b.PlannedDate, survivor.PlannedDate)

	require.Len(t, merged, 1)
	assert.Equal(t, entities.LineCancelled, merged[0].State)
	assert.True(t, merged[0].Quantity.IsZero(liters))

	// inputs are untouched
	assert.True(t, a.Quantity.Equal(entities.DualFromFloat(60, 58.8), liters))
}

func TestMergeLines_Incompatible(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(l *entities.FulfillmentLine)
		field  string
	}{
		{"product", func(l *entities.FulfillmentLine) { l.Product = "GASOLINE" }, "product"},
		{"source", func(l *entities.FulfillmentLine) { l.Source = "WH/Tank" }, "source"},
		{"destination", func(l *entities.FulfillmentLine) { l.Destination = "Other" }, "destination"},
		{"uom", func(l *entities.FulfillmentLine) { l.UoM = "m3" }, "uom"},
		{"group", func(l *entities.FulfillmentLine) { l.GroupID = "G2" }, "group"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newLine("2", "", 5, 4)
			tt.mutate(b)
			_, _, err := MergeLines([]*entities.FulfillmentLine{newLine("1", "", 10, 9), b})

			var verr *entities.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}

	done := newLine("2", "", 5, 4)
	done.State = entities.LineDone
	_, _, err := MergeLines([]*entities.FulfillmentLine{newLine("1", "", 10, 9), done})
	assert.True(t, errors.Is(err, entities.ErrValidation))

	_, _, err = MergeLines([]*entities.FulfillmentLine{newLine("1", "", 10, 9)})
	assert.True(t, errors.Is(err, entities.ErrValidation))
}

func TestMergeLines_DuplicateIDs(t *testing.T) {
	a := newLine("1", "lot-a", 100, 98)
	_, _, err := MergeLines([]*entities.FulfillmentLine{a, a.Clone()})

	var verr *entities.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "lines", verr.Field)
}

func TestSplitLine_Proportional(t *testing.T) {
	line := newLine("1", "lot-a", 100, 98)
	line.Done = entities.DualFromFloat(5, 4.9)

	remainder, split, err := SplitLine(line, decimal.NewFromInt(30), nil, liters, "new")
	require.NoError(t, err)

	assert.Equal(t, "1", remainder.ID)
	assert.Equal(t, "new", split.ID)
	assert.True(t, split.Quantity.Equal(entities.DualFromFloat(30, 29.4), liters), "split %s", split.Quantity)
	assert.True(t, remainder.Quantity.Equal(entities.DualFromFloat(70, 68.6), liters), "remainder %s", remainder.Quantity)
	assert.Equal(t, "lot-a", split.LotID)
	assert.Equal(t, "lot-a", remainder.LotID)
	assert.True(t, split.Done.IsZero(liters))
	assert.True(t, remainder.Done.Equal(line.Done, liters))
}

func TestSplitLine_PartiallyDoneLine(t *testing.T) {
	line := newLine("1", "lot-a", 100, 98)
	line.Done = entities.DualFromFloat(80, 78.4)
	line.State = entities.LinePartiallyAvailable

	for _, q := range []string{"20", "50"} {
		_, _, err := SplitLine(line, decimal.RequireFromString(q), nil, liters, "new")
		assert.True(t, errors.Is(err, entities.ErrValidation), "split %s: got %v", q, err)
	}

	remainder, split, err := SplitLine(line, decimal.NewFromInt(15), nil, liters, "new")
	require.NoError(t, err)
	assert.True(t, split.Quantity.Equal(entities.DualFromFloat(15, 14.7), liters), "split %s", split.Quantity)
	assert.True(t, remainder.Quantity.Equal(entities.DualFromFloat(85, 83.3), liters), "remainder %s", remainder.Quantity)
	assert.True(t, remainder.Remaining().Equal(entities.DualFromFloat(5, 4.9), liters), "remaining %s", remainder.Remaining())

	tooMuch := decimal.NewFromInt(20)
	_, _, err = SplitLine(line, decimal.NewFromInt(15), &tooMuch, liters, "new")
	assert.True(t, errors.Is(err, entities.ErrValidation))
}

func TestSplitLine_NormalizedOverride(t *testing.T) {
	line := newLine("1", "lot-a", 100, 98)
	override := decimal.RequireFromString("29.1")

	remainder, split, err := SplitLine(line, decimal.NewFromInt(30), &override, liters, "new")
	require.NoError(t, err)
	assert.True(t, split.Quantity.Normalized.Equal(override))
	assert.True(t, remainder.Quantity.Normalized.Equal(decimal.RequireFromString("68.9")))

	tooMuch := decimal.NewFromInt(99)
	_, _, err = SplitLine(line, decimal.NewFromInt(30), &tooMuch, liters, "new")
	assert.True(t, errors.Is(err, entities.ErrValidation))
}

func TestSplitLine_InvalidQuantity(t *testing.T) {
	line := newLine("1", "", 100, 98)
	for _, q := range []string{"0", "-1", "100", "120", "0.0001"} {
		t.Run(q, func(t *testing.T) {
			_, _, err := SplitLine(line, decimal.RequireFromString(q), nil, liters, "new")
			assert.True(t, errors.Is(err, entities.ErrValidation), "got %v", err)
		})
	}
}

func TestSplitThenMerge_RoundTrip(t *testing.T) {
	quantities := []string{"0.001", "1", "33.333", "50", "99.999"}
	originals := []*entities.FulfillmentLine{
		newLine("1", "lot-a", 100, 98),
		newLine("2", "lot-b", 100, 91.237),
		newLine("3", "", 100, 0),
	}

	for _, original := range originals {
		for _, q := range quantities {
			remainder, split, err := SplitLine(original, decimal.RequireFromString(q), nil, liters, "piece")
			require.NoError(t, err)

			merged, _, err := MergeLines([]*entities.FulfillmentLine{remainder, split})
			require.NoError(t, err)
			assert.True(t, merged.Quantity.Equal(original.Quantity, liters),
				"line %s split %s: merged %s, original %s", original.ID, q, merged.Quantity, original.Quantity)
			assert.Equal(t, original.LotID, merged.LotID)
		}
	}
}
