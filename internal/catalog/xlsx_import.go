// Package catalog loads products and their option types from an xlsx
// workbook.
//
// The workbook has two sheets. "Products" holds one product per row:
//
//	name | description | price | stock | image_url
//
// "Options" holds one option value per row, grouped into option types by
// (product name, option type name) in first-seen order:
//
//	product_name | option_type | value | additional_price | stock
//
// The first row of each sheet is a header.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/internal/app/repository"
	"github.com/ikkim/storefront-backend/pkg/logger"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

const (
	ProductsSheet = "Products"
	OptionsSheet  = "Options"
)

// RowError points at the offending cell row of a sheet.
type RowError struct {
	Sheet string
	Row   int // 1-based, as shown by spreadsheet tools
	Err   error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("%s row %d: %v", e.Sheet, e.Row, e.Err)
}

func (e *RowError) Unwrap() error { return e.Err }

// Read parses the workbook into products with their option types attached.
func Read(r io.Reader) ([]model.Product, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	rows, err := f.GetRows(ProductsSheet)
	if err != nil {
		return nil, fmt.Errorf("read %s sheet: %w", ProductsSheet, err)
	}

	var products []model.Product
	index := make(map[string]int)
	for i, row := range rows {
		if i == 0 || blank(row) {
			continue
		}
		product, err := parseProduct(row)
		if err != nil {
			return nil, &RowError{Sheet: ProductsSheet, Row: i + 1, Err: err}
		}
		if _, dup := index[product.Name]; dup {
			return nil, &RowError{Sheet: ProductsSheet, Row: i + 1, Err: fmt.Errorf("duplicate product %q", product.Name)}
		}
		index[product.Name] = len(products)
		products = append(products, product)
	}

	// Options sheet is optional.
	idx, err := f.GetSheetIndex(OptionsSheet)
	if err != nil {
		return nil, fmt.Errorf("find %s sheet: %w", OptionsSheet, err)
	}
	if idx < 0 {
		return products, nil
	}
	rows, err = f.GetRows(OptionsSheet)
	if err != nil {
		return nil, fmt.Errorf("read %s sheet: %w", OptionsSheet, err)
	}
	for i, row := range rows {
		if i == 0 || blank(row) {
			continue
		}
		productName, typeName, value, err := parseOption(row)
		if err != nil {
			return nil, &RowError{Sheet: OptionsSheet, Row: i + 1, Err: err}
		}
		pi, ok := index[productName]
		if !ok {
			return nil, &RowError{Sheet: OptionsSheet, Row: i + 1, Err: fmt.Errorf("unknown product %q", productName)}
		}
		addOption(&products[pi], typeName, value)
	}
	return products, nil
}

func blank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

func cell(row []string, i int) string {
	if i < len(row) {
		return strings.TrimSpace(row[i])
	}
	return ""
}

func parseProduct(row []string) (model.Product, error) {
	product := model.Product{
		Name:        cell(row, 0),
		Description: cell(row, 1),
		ImageURL:    cell(row, 4),
	}
	if product.Name == "" {
		return product, errors.New("name is required")
	}

	price, err := strconv.ParseFloat(cell(row, 2), 64)
	if err != nil || price < 0 {
		return product, fmt.Errorf("invalid price %q", cell(row, 2))
	}
	product.Price = price

	stock, err := parseStock(cell(row, 3))
	if err != nil {
		return product, err
	}
	product.StockQuantity = stock
	return product, nil
}

func parseOption(row []string) (string, string, model.OptionValue, error) {
	productName, typeName := cell(row, 0), cell(row, 1)
	value := model.OptionValue{Value: cell(row, 2)}
	if productName == "" || typeName == "" || value.Value == "" {
		return "", "", value, errors.New("product_name, option_type and value are required")
	}

	if raw := cell(row, 3); raw != "" {
		delta, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return "", "", value, fmt.Errorf("invalid additional_price %q", raw)
		}
		value.AdditionalPrice = delta
	}

	stock, err := parseStock(cell(row, 4))
	if err != nil {
		return "", "", value, err
	}
	value.StockQuantity = stock
	return productName, typeName, value, nil
}

func parseStock(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	stock, err := strconv.Atoi(raw)
	if err != nil || stock < 0 {
		return 0, fmt.Errorf("invalid stock %q", raw)
	}
	return stock, nil
}

func addOption(product *model.Product, typeName string, value model.OptionValue) {
	for i := range product.OptionTypes {
		if product.OptionTypes[i].Name == typeName {
			product.OptionTypes[i].Values = append(product.OptionTypes[i].Values, value)
			return
		}
	}
	product.OptionTypes = append(product.OptionTypes, model.OptionType{
		Name:     typeName,
		Position: len(product.OptionTypes),
		Values:   []model.OptionValue{value},
	})
}

// ImportResult counts what Import did.
type ImportResult struct {
	Created int
	Skipped int
}

// Import creates every product that does not exist yet, matched by name, so
// re-running a seed is harmless. Existing products are left untouched.
func Import(ctx context.Context, products []model.Product, productRepo repository.ProductRepository, optionRepo repository.OptionRepository) (ImportResult, error) {
	var result ImportResult
	for i := range products {
		product := products[i]

		_, err := productRepo.FindByName(ctx, product.Name)
		switch {
		case err == nil:
			result.Skipped++
			continue
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return result, fmt.Errorf("look up %q: %w", product.Name, err)
		}

		optionTypes := product.OptionTypes
		product.OptionTypes = nil
		if err := productRepo.Create(ctx, &product); err != nil {
			return result, fmt.Errorf("create %q: %w", product.Name, err)
		}
		for j := range optionTypes {
			optionTypes[j].ProductID = product.ID
			if err := optionRepo.CreateType(ctx, &optionTypes[j]); err != nil {
				return result, fmt.Errorf("create option %q of %q: %w", optionTypes[j].Name, product.Name, err)
			}
		}
		result.Created++
	}

	logger.Info("Catalog import finished", map[string]interface{}{
		"created": result.Created,
		"skipped": result.Skipped,
	})
	return result, nil
}
