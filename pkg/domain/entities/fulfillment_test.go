package entities

import (
	"testing"
)

func TestFulfillmentLine_Validation(t *testing.T) {
	testCases := []struct {
		name        string
		product     ProductID
		uom         string
		source      LocationID
		destination LocationID
		expectError string
	}{
		{"empty product", "", "L", "WH/Stock", "Customers", "product cannot be empty"},
		{"empty uom", "DIESEL", "", "WH/Stock", "Customers", "unit of measure cannot be empty"},
		{"missing location", "DIESEL", "L", "", "Customers", "source and destination locations are required"},
		{"same location", "DIESEL", "L", "WH/Stock", "WH/Stock", "source and destination cannot be the same: WH/Stock"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewFulfillmentLine(tc.product, DualFromFloat(1, 1), Density{}, tc.uom, tc.source, tc.destination)
			if err == nil || err.Error() != tc.expectError {
				t.Errorf("Expected error %q, got %v", tc.expectError, err)
			}
		})
	}
}

func TestFulfillmentLine_LinksAndClone(t *testing.T) {
	line, err := NewFulfillmentLine("DIESEL", DualFromFloat(100, 98), Density{}, "L", "WH/Stock", "Customers")
	if err != nil {
		t.Fatalf("NewFulfillmentLine() error = %v", err)
	}
	line.AttachDemand("SO1-1")
	line.AttachDemand("SO1-1")
	line.AttachDemand("")
	if len(line.DemandLineIDs) != 1 {
		t.Fatalf("Expected one linked demand, got %v", line.DemandLineIDs)
	}

	clone := line.Clone()
	clone.DemandLineIDs[0] = "other"
	if !line.IsAttachedTo("SO1-1") {
		t.Error("Expected clone to not share link slices")
	}

	line.Done = DualFromFloat(40, 39)
	if !line.Remaining().Equal(DualFromFloat(60, 59), DefaultRounding) {
		t.Errorf("Remaining() = %s, want (60, 59)", line.Remaining())
	}

	for _, state := range []LineState{LineDone, LineCancelled} {
		line.State = state
		if line.Open() {
			t.Errorf("Expected %v line to be closed", state)
		}
	}
}
