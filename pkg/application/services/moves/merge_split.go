package moves

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/vsinha/fuelrecon/pkg/domain/entities"
)

// MergeLines folds lines into the first one. Lines must share product, locations,
// unit of measure, group and lot. The survivor carries the summed quantities and
// links; the other lines are returned cancelled with zero quantities.
func MergeLines(lines []*entities.FulfillmentLine) (*entities.FulfillmentLine, []*entities.FulfillmentLine, error) {
	if len(lines) < 2 {
		return nil, nil, entities.NewValidationError("lines", "at least two lines are needed to merge, got %d", len(lines))
	}
	seen := make(map[string]bool, len(lines))
	for _, l := range lines {
		if seen[l.ID] {
			return nil, nil, entities.NewValidationError("lines", "line %s is listed more than once", l.ID)
		}
		seen[l.ID] = true
		if !l.Open() {
			return nil, nil, entities.NewValidationError("state", "line %s is %s and cannot be merged", l.ID, l.State)
		}
	}

	survivor := lines[0].Clone()
	merged := make([]*entities.FulfillmentLine, 0, len(lines)-1)
	for _, other := range lines[1:] {
		if err := compatible(survivor, other); err != nil {
			return nil, nil, err
		}

		survivor.Quantity = survivor.Quantity.Add(other.Quantity)
		survivor.Done = survivor.Done.Add(other.Done)
		for _, id := range other.DemandLineIDs {
			survivor.AttachDemand(id)
		}
		survivor.DestLineIDs = union(survivor.DestLineIDs, other.DestLineIDs)
		if !other.PlannedDate.IsZero() && (survivor.PlannedDate.IsZero() || other.PlannedDate.Before(survivor.PlannedDate)) {
			survivor.PlannedDate = other.PlannedDate
		}

		gone := other.Clone()
		gone.State = entities.LineCancelled
		gone.Quantity = entities.DualQuantity{}
		gone.Done = entities.DualQuantity{}
		merged = append(merged, gone)
	}
	return survivor, merged, nil
}

// compatible checks the distinguishing fields of two lines
func compatible(a, b *entities.FulfillmentLine) error {
	if a.LotID != b.LotID {
		return &entities.LotConflict{
			LineID:         b.ID,
			BoundLotID:     a.LotID,
			RequestedLotID: b.LotID,
			Reason:         "lines bound to different lots cannot be merged",
		}
	}
	if a.Density.HasReference() && b.Density.HasReference() && !entities.SameDensity(a.Density.Reference, b.Density.Reference) {
		return &entities.LotConflict{
			LineID:     b.ID,
			BoundLotID: a.LotID,
			Reason:     "lines with different reference densities cannot be merged",
		}
	}

	var field string
	switch {
	case a.Product != b.Product:
		field = "product"
	case a.Source != b.Source:
		field = "source"
	case a.Destination != b.Destination:
		field = "destination"
	case a.UoM != b.UoM:
		field = "uom"
	case a.GroupID != b.GroupID:
		field = "group"
	default:
		return nil
	}
	return entities.NewValidationError(field, "lines %s and %s differ and cannot be merged", a.ID, b.ID)
}

func union(a, b []string) []string {
	seen := make(map[string]bool, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, s := range append(append([]string(nil), a...), b...) {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out
}

// SplitLine carves qty (nominal, in the line's unit) out of the unexecuted part of line into
// a new line with newID. The normalized part follows the nominal ratio rounded with rounding,
// unless normalizedOverride is given. The remainder keeps the line ID and the done quantity;
// both pieces keep the lot.
func SplitLine(
	line *entities.FulfillmentLine,
	qty decimal.Decimal,
	normalizedOverride *decimal.Decimal,
	rounding entities.Rounding,
	newID string,
) (remainder, split *entities.FulfillmentLine, err error) {
	if !line.Open() {
		return nil, nil, entities.NewValidationError("state", "line %s is %s and cannot be split", line.ID, line.State)
	}
	total := line.Quantity
	open := line.Remaining().ClampZero()
	qty = rounding.Round(qty)
	if !qty.IsPositive() || rounding.Compare(qty, open.Nominal) >= 0 {
		return nil, nil, entities.NewValidationError("quantity", "split quantity must be between 0 and %s, got %s", open.Nominal, qty)
	}

	var normalized decimal.Decimal
	if normalizedOverride != nil {
		normalized = *normalizedOverride
		if normalized.IsNegative() || (total.Normalized.IsPositive() && normalized.GreaterThan(open.Normalized)) {
			return nil, nil, entities.NewValidationError("normalized", "normalized split must be between 0 and %s, got %s", open.Normalized, normalized)
		}
	} else {
		normalized = decimal.Min(rounding.Round(total.Normalized.Mul(qty).Div(total.Nominal)), open.Normalized)
	}

	split = line.Clone()
	split.ID = newID
	split.Quantity = entities.NewDualQuantity(qty, normalized)
	split.Done = entities.DualQuantity{}

	remainder = line.Clone()
	remainder.Quantity = total.Sub(split.Quantity)
	return remainder, split, nil
}
