package reports

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"restoran-pos/internal/models"
)

const (
	ordersSheet = "Orders"
	itemsSheet  = "Items"
)

var orderHeader = []any{
	"Order Number", "Created At", "Type", "Status", "Payment Status", "Table", "Customer",
	"Subtotal", "Discount", "Service Charge", "Tax", "Delivery", "Total", "Paid",
}

var itemHeader = []any{"Order Number", "Item", "Variant", "Quantity", "Unit Price", "Line Total", "Status"}

// WriteOrdersWorkbook renders orders as an xlsx workbook with one row per order and one row
// per order line.
func WriteOrdersWorkbook(w io.Writer, orders []models.Order, tableNumbers map[uint]string) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", ordersSheet); err != nil {
		return err
	}
	if _, err := f.NewSheet(itemsSheet); err != nil {
		return err
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	money, err := f.NewStyle(&excelize.Style{NumFmt: 4}) // #,##0.00
	if err != nil {
		return err
	}

	if err := writeRow(f, ordersSheet, 1, orderHeader); err != nil {
		return err
	}
	if err := writeRow(f, itemsSheet, 1, itemHeader); err != nil {
		return err
	}

	itemRow := 2
	for i := range orders {
		o := &orders[i]
		table := ""
		if o.TableID != nil {
			table = tableNumbers[*o.TableID]
		}
		row := []any{
			o.OrderNumber,
			o.CreatedAt.Format("2006-01-02 15:04"),
			string(o.OrderType),
			string(o.Status),
			string(o.PaymentStatus),
			table,
			o.CustomerName,
			o.Subtotal.InexactFloat64(),
			o.Discount.Amount.InexactFloat64(),
			o.ServiceCharge.Amount.InexactFloat64(),
			o.Tax.Amount.InexactFloat64(),
			o.DeliveryCharge.InexactFloat64(),
			o.TotalAmount.InexactFloat64(),
			o.PaidTotal().InexactFloat64(),
		}
		if err := writeRow(f, ordersSheet, i+2, row); err != nil {
			return err
		}

		for _, it := range o.Items {
			line := []any{
				o.OrderNumber,
				it.Name,
				it.Variant,
				it.Quantity,
				it.Price.InexactFloat64(),
				it.LineTotal.InexactFloat64(),
				string(it.Status),
			}
			if err := writeRow(f, itemsSheet, itemRow, line); err != nil {
				return err
			}
			itemRow++
		}
	}

	last := len(orders) + 1
	if err := f.SetCellStyle(ordersSheet, "A1", "N1", bold); err != nil {
		return err
	}
	if err := f.SetCellStyle(itemsSheet, "A1", "G1", bold); err != nil {
		return err
	}
	if last > 1 {
		if err := f.SetCellStyle(ordersSheet, "H2", fmt.Sprintf("N%d", last), money); err != nil {
			return err
		}
	}
	if itemRow > 2 {
		if err := f.SetCellStyle(itemsSheet, "E2", fmt.Sprintf("F%d", itemRow-1), money); err != nil {
			return err
		}
	}
	if err := f.SetColWidth(ordersSheet, "A", "A", 22); err != nil {
		return err
	}
	if err := f.SetColWidth(itemsSheet, "A", "B", 22); err != nil {
		return err
	}

	_, err = f.WriteTo(w)
	return err
}

func writeRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheet, cell, &values)
}
