package docs

import (
	"context"

	"github.com/xuri/excelize/v2"

	"github.com/infusitech/invoices_backend/models"
)

var invoiceRegisterHeadings = []interface{}{
	"InvoiceNumber", "Client", "InvoiceDate", "DueDate", "Subtotal",
	"Tax", "Total", "Paid", "Balance", "Status",
}

// BuildInvoiceRegister renders the invoice collection as a spreadsheet,
// one row per invoice. Amounts are written as floats so spreadsheet
// formulas work on the columns.
func BuildInvoiceRegister(ctx context.Context, invoices []*models.Invoice) (*excelize.File, error) {
	f := excelize.NewFile()
	sheetName := "Sheet1"
	if _, err := f.NewSheet(sheetName); err != nil {
		return nil, err
	}

	if err := f.SetSheetRow(sheetName, "A1", &invoiceRegisterHeadings); err != nil {
		return nil, err
	}

	for i, inv := range invoices {
		dueDate := ""
		if inv.DueDate != nil {
			dueDate = formatDocumentDate(*inv.DueDate)
		}
		subtotal, _ := inv.Subtotal.Float64()
		tax, _ := inv.TaxAmount.Float64()
		total, _ := inv.Total.Float64()
		paid, _ := inv.TotalPaid.Float64()
		balance, _ := inv.RemainingBalance().Float64()

		row := []interface{}{
			inv.InvoiceNumber,
			inv.ClientName,
			formatDocumentDate(inv.InvoiceDate),
			dueDate,
			subtotal,
			tax,
			total,
			paid,
			balance,
			string(inv.CurrentStatus),
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(sheetName, cell, &row); err != nil {
			return nil, err
		}
	}

	return f, nil
}
