// Package report renders order data for operators.
package report

import (
	"fmt"
	"io"
	"time"

	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/xuri/excelize/v2"
)

const ordersSheet = "Orders"

var orderHeaders = []string{
	"주문번호", "주문 ID", "사용자 ID", "주문 상태", "결제 수단", "결제 상태",
	"총 금액", "상품", "정산 필요", "주문 일시",
}

// WriteOrdersXLSX writes one row per order to w as an xlsx workbook.
func WriteOrdersXLSX(w io.Writer, orders []model.Order) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", ordersSheet); err != nil {
		return err
	}

	for col, header := range orderHeaders {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(ordersSheet, cell, header); err != nil {
			return err
		}
	}

	for i, order := range orders {
		row := []interface{}{
			order.OrderNumber,
			order.ID,
			order.UserID,
			string(order.Status),
			string(order.PaymentMethod),
			string(order.PaymentStatus),
			order.TotalAmount,
			itemSummary(order.OrderItems),
			order.NeedsReconciliation,
			order.CreatedAt.Format(time.RFC3339),
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(ordersSheet, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	return f.Write(w)
}

func itemSummary(items []model.OrderItem) string {
	if len(items) == 0 {
		return ""
	}
	first := items[0].ProductName
	if items[0].OptionSnapshot != "" {
		first += " (" + items[0].OptionSnapshot + ")"
	}
	first += fmt.Sprintf(" x%d", items[0].Quantity)
	if len(items) == 1 {
		return first
	}
	return fmt.Sprintf("%s 외 %d건", first, len(items)-1)
}
