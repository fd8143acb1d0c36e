package catalog

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/ikkim/storefront-backend/internal/app/repository"
	"github.com/ikkim/storefront-backend/internal/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func buildWorkbook(t *testing.T, products, options [][]interface{}) *bytes.Buffer {
	f := excelize.NewFile()
	defer f.Close()

	require.NoError(t, f.SetSheetName("Sheet1", ProductsSheet))
	writeRows(t, f, ProductsSheet, append([][]interface{}{{"name", "description", "price", "stock", "image_url"}}, products...))
	if options != nil {
		_, err := f.NewSheet(OptionsSheet)
		require.NoError(t, err)
		writeRows(t, f, OptionsSheet, append([][]interface{}{{"product_name", "option_type", "value", "additional_price", "stock"}}, options...))
	}

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf
}

func writeRows(t *testing.T, f *excelize.File, sheet string, rows [][]interface{}) {
	for i, row := range rows {
		cellName, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cellName, &row))
	}
}

func TestRead(t *testing.T) {
	buf := buildWorkbook(t,
		[][]interface{}{
			{"T-Shirt", "Cotton tee", 10000, 20, "https://img.example/tee.png"},
			{"Mug", "", 8000, 5},
		},
		[][]interface{}{
			{"T-Shirt", "Size", "M", 0, 10},
			{"T-Shirt", "Size", "L", 2000, 10},
			{"T-Shirt", "Color", "Red", -500, 8},
		},
	)

	products, err := Read(buf)
	require.NoError(t, err)
	require.Len(t, products, 2)

	tee := products[0]
	assert.Equal(t, "T-Shirt", tee.Name)
	assert.Equal(t, 10000.0, tee.Price)
	assert.Equal(t, 20, tee.StockQuantity)
	require.Len(t, tee.OptionTypes, 2)
	assert.Equal(t, "Size", tee.OptionTypes[0].Name)
	assert.Equal(t, 0, tee.OptionTypes[0].Position)
	require.Len(t, tee.OptionTypes[0].Values, 2)
	assert.Equal(t, 2000.0, tee.OptionTypes[0].Values[1].AdditionalPrice)
	assert.Equal(t, "Color", tee.OptionTypes[1].Name)
	assert.Equal(t, -500.0, tee.OptionTypes[1].Values[0].AdditionalPrice)

	assert.Empty(t, products[1].OptionTypes)
	assert.Empty(t, products[1].ImageURL)
}

func TestRead_WithoutOptionsSheet(t *testing.T) {
	products, err := Read(buildWorkbook(t, [][]interface{}{{"Mug", "", 8000, 5}}, nil))
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "Mug", products[0].Name)
	assert.Empty(t, products[0].OptionTypes)
}

func TestRead_Rejections(t *testing.T) {
	tests := []struct {
		name     string
		products [][]interface{}
		options  [][]interface{}
		wantRow  int
		wantText string
	}{
		{"missing name", [][]interface{}{{"", "x", 100, 1}}, nil, 2, "name is required"},
		{"bad price", [][]interface{}{{"Mug", "", "free", 1}}, nil, 2, "invalid price"},
		{"negative stock", [][]interface{}{{"Mug", "", 100, -1}}, nil, 2, "invalid stock"},
		{"duplicate", [][]interface{}{{"Mug", "", 100, 1}, {"Mug", "", 100, 1}}, nil, 3, "duplicate product"},
		{"option for unknown product", [][]interface{}{{"Mug", "", 100, 1}}, [][]interface{}{{"Cup", "Size", "S", 0, 1}}, 2, "unknown product"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Read(buildWorkbook(t, tt.products, tt.options))
			var rowErr *RowError
			require.True(t, errors.As(err, &rowErr), "got %v", err)
			assert.Equal(t, tt.wantRow, rowErr.Row)
			assert.Contains(t, err.Error(), tt.wantText)
		})
	}
}

func TestImport(t *testing.T) {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	defer db.CleanupTestDB(testDB)

	productRepo := repository.NewProductRepository(testDB)
	optionRepo := repository.NewOptionRepository(testDB)
	ctx := context.Background()

	read := func() *bytes.Buffer {
		return buildWorkbook(t,
			[][]interface{}{{"T-Shirt", "", 10000, 20}, {"Mug", "", 8000, 5}},
			[][]interface{}{{"T-Shirt", "Size", "M", 0, 10}, {"T-Shirt", "Size", "L", 2000, 10}},
		)
	}

	products, err := Read(read())
	require.NoError(t, err)
	result, err := Import(ctx, products, productRepo, optionRepo)
	require.NoError(t, err)
	assert.Equal(t, ImportResult{Created: 2}, result)

	tee, err := productRepo.FindByName(ctx, "T-Shirt")
	require.NoError(t, err)
	require.Len(t, tee.OptionTypes, 1)
	require.Len(t, tee.OptionTypes[0].Values, 2)
	assert.Equal(t, tee.ID, tee.OptionTypes[0].Values[1].ProductID)

	products, err = Read(read())
	require.NoError(t, err)
	result, err = Import(ctx, products, productRepo, optionRepo)
	require.NoError(t, err)
	assert.Equal(t, ImportResult{Skipped: 2}, result)
}
