package csv

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vsinha/fuelrecon/pkg/domain/entities"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(strings.TrimLeft(content, "\n")), 0o644))
}

func writeScenario(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, dir, "units.csv", `
code,category,factor,rounding
L,volume,1,0.001
m3,volume,0.001,0.000001
`)
	writeFile(t, dir, "products.csv", `
id,name,category,type,uom
DIESEL,Diesel B7,Fuels/Diesel,storable,L
FREIGHT,Freight,Services,service,L
`)
	writeFile(t, dir, "locations.csv", `
id,name,company,usage
WH/Stock,Stock,ACME,internal
Customers,Customers,ACME,customer
`)
	writeFile(t, dir, "demands.csv", `
id,order,kind,product,nominal,normalized,density_fact,density_reference,uom,source,destination,partner,invoice_policy
SO1-1,SO1,sale,DIESEL,100,98,0.92,0.92,L,WH/Stock,Customers,RETAIL,delivery
SO2-1,SO2,sale,DIESEL,50,,,,L,WH/Stock,Customers,RETAIL,
`)
	return dir
}

func TestLoader_LoadScenario(t *testing.T) {
	dir := writeScenario(t)
	writeFile(t, dir, "details.csv", `
id,line_id,product,source,destination,lot_id,done_nominal,done_normalized,date
D1,L1,DIESEL,Customers,WH/Stock,,10,9.8,2024-03-02
D2,L2,DIESEL,WH/Stock,Customers,lot-1,5,4.9,2024-03-02T10:00:00Z
`)

	scenario, err := NewLoader().LoadScenario(dir)
	require.NoError(t, err)

	assert.Len(t, scenario.Units, 2)
	assert.Len(t, scenario.Products, 2)
	assert.Equal(t, entities.Service, scenario.Products[1].Type)
	assert.Len(t, scenario.Locations, 2)
	assert.Equal(t, entities.Customer, scenario.Locations[1].Usage)

	require.Len(t, scenario.Demands, 2)
	first := scenario.Demands[0]
	assert.Equal(t, "SO1", first.Order)
	assert.Equal(t, entities.InvoiceOnDelivery, first.InvoicePolicy)
	assert.True(t, first.Target.Normalized.Equal(decimal.NewFromInt(98)))
	assert.True(t, first.Density.Reference.Equal(decimal.RequireFromString("0.92")))
	assert.False(t, scenario.Demands[1].Density.HasReference())

	require.Len(t, scenario.Details, 2)
	assert.Equal(t, "lot-1", scenario.Details[1].LotID)
	assert.Equal(t, 10, scenario.Details[1].Date.Hour())
}

func TestLoader_DetailsAreOptional(t *testing.T) {
	scenario, err := NewLoader().LoadScenario(writeScenario(t))
	require.NoError(t, err)
	assert.Empty(t, scenario.Details)
}

func TestLoader_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "header_mismatch",
			content: "id,name,category,kind,uom\nDIESEL,Diesel,Fuels,storable,L\n",
			wantErr: "products CSV header mismatch",
		},
		{
			name:    "unknown_type",
			content: "id,name,category,type,uom\nDIESEL,Diesel,Fuels,liquid,L\n",
			wantErr: "products CSV row 2: unknown product type: liquid",
		},
		{
			name:    "header_only",
			content: "id,name,category,type,uom\n",
			wantErr: "products CSV must have header and at least one data row",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeFile(t, dir, "products.csv", tt.content)
			_, err := NewLoader().LoadProducts(filepath.Join(dir, "products.csv"))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
