package export

import (
	"bytes"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/vsinha/fuelrecon/pkg/domain/entities"
)

func TestWriteFlowReport(t *testing.T) {
	rows := []entities.FlowReportRow{
		{
			Product:  "DIESEL",
			Location: "WH/Stock",
			Category: "Fuels",
			Opening:  decimal.NewFromInt(800),
			Incoming: decimal.NewFromInt(500),
			Outgoing: decimal.NewFromInt(198),
			Closing:  decimal.NewFromInt(1102),
		},
		{
			Product:  "GASOLINE",
			Location: "WH/Tank1",
			Category: "Fuels",
			Opening:  decimal.RequireFromString("12.5"),
			Closing:  decimal.RequireFromString("12.5"),
		},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteFlowReport(&buf, rows))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{ReportSheet}, f.GetSheetList())

	got, err := f.GetRows(ReportSheet)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, []string{"Product", "Location", "Category", "Opening", "Incoming", "Outgoing", "Closing"}, got[0])
	assert.Equal(t, []string{"DIESEL", "WH/Stock", "Fuels", "800", "500", "198", "1102"}, got[1])
	assert.Equal(t, "12.5", got[2][3])
}

func TestWriteFlowReport_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteFlowReport(&buf, nil))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	got, err := f.GetRows(ReportSheet)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}
