package docs

import (
	"bytes"
	"fmt"
	"html/template"
	"time"

	"github.com/infusitech/invoices_backend/models"
)

// invoiceDocumentTemplate is the self-contained HTML handed to the client
// for download. Styling is inline so the file renders and prints with no
// external assets; the theme's primary color is woven through the chrome.
var invoiceDocumentTemplate = template.Must(template.New("invoiceDocument").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="UTF-8">
<style>
  body { font-family: Arial, sans-serif; padding: 40px; color: #333; }
  .header { display: flex; justify-content: space-between; margin-bottom: 40px; border-bottom: 3px solid {{.PrimaryColor}}; padding-bottom: 20px; }
  .logo { max-width: 150px; max-height: 80px; }
  .company-info { text-align: right; }
  .company-name { font-size: 24px; font-weight: bold; color: {{.PrimaryColor}}; margin: 0; }
  .invoice-title { font-size: 32px; font-weight: bold; color: {{.PrimaryColor}}; margin: 30px 0; }
  .invoice-details { margin-bottom: 30px; }
  .client-info { background: #f3f4f6; padding: 20px; border-radius: 8px; margin-bottom: 30px; }
  table { width: 100%; border-collapse: collapse; margin: 30px 0; }
  th { background: {{.PrimaryColor}}; color: white; padding: 12px; text-align: left; }
  td { padding: 12px; border-bottom: 1px solid #e5e7eb; }
  .amount { text-align: right; }
  .total-section { text-align: right; margin-top: 30px; }
  .total-row { font-size: 20px; font-weight: bold; color: {{.PrimaryColor}}; margin-top: 10px; }
  .balance-row { font-size: 20px; font-weight: bold; color: #dc2626; margin-top: 10px; }
  .notes { margin-top: 40px; padding: 20px; background: #f9fafb; border-left: 4px solid {{.PrimaryColor}}; }
  .footer { margin-top: 60px; text-align: center; color: #6b7280; font-size: 12px; border-top: 1px solid #e5e7eb; padding-top: 20px; }
</style>
</head>
<body>
<div class="header">
  <div>{{if .Logo}}<img src="{{.Logo}}" class="logo" alt="Company Logo">{{end}}</div>
  <div class="company-info">
    <p class="company-name">{{.CompanyName}}</p>
    {{if .CompanyAddress}}<p style="margin: 5px 0;">{{.CompanyAddress}}</p>{{end}}
  </div>
</div>

<div class="invoice-title">INVOICE</div>

<div class="invoice-details">
  <p><strong>Invoice Number:</strong> {{.InvoiceNumber}}</p>
  <p><strong>Date:</strong> {{.InvoiceDate}}</p>
  {{if .DueDate}}<p><strong>Due Date:</strong> {{.DueDate}}</p>{{end}}
  <p><strong>Status:</strong> {{.Status}}</p>
</div>

<div class="client-info">
  <p style="margin: 0 0 10px 0; font-weight: bold; font-size: 16px;">Bill To:</p>
  <p style="margin: 5px 0;"><strong>{{.ClientName}}</strong></p>
  {{if .ClientAddress}}<p style="margin: 5px 0;">{{.ClientAddress}}</p>{{end}}
  {{if .ClientEmail}}<p style="margin: 5px 0;">{{.ClientEmail}}</p>{{end}}
</div>

<table>
  <thead>
    <tr>
      <th style="width: 70%;">Description</th>
      <th style="width: 30%;" class="amount">Amount</th>
    </tr>
  </thead>
  <tbody>
    {{range .Items}}<tr>
      <td>{{.Description}}</td>
      <td class="amount">GH₵ {{.Amount}}</td>
    </tr>
    {{end}}
  </tbody>
</table>

<div class="total-section">
  <div style="margin: 5px 0;">Subtotal: GH₵ {{.Subtotal}}</div>
  {{if .TaxAmount}}<div style="margin: 5px 0;">Tax ({{.TaxRate}}%): GH₵ {{.TaxAmount}}</div>{{end}}
  {{if .HasPayments}}
  <div style="margin: 5px 0;">Amount Paid: GH₵ {{.TotalPaid}}</div>
  <div class="balance-row">Balance Due: GH₵ {{.Balance}}</div>
  {{else}}
  <div class="total-row">Total: GH₵ {{.Total}}</div>
  {{end}}
</div>

{{if .Notes}}
<div class="notes">
  <p style="margin: 0 0 10px 0; font-weight: bold;">Notes:</p>
  <p style="margin: 0;">{{.Notes}}</p>
</div>
{{end}}

<div class="footer">
  <p>Thank you for your business!</p>
  <p>{{.CompanyName}}</p>
</div>
</body>
</html>
`))

type invoiceDocumentData struct {
	PrimaryColor   string
	Logo           template.URL
	CompanyName    string
	CompanyAddress string
	InvoiceNumber  string
	InvoiceDate    string
	DueDate        string
	Status         string
	ClientName     string
	ClientAddress  string
	ClientEmail    string
	Items          []invoiceDocumentItem
	Subtotal       string
	TaxRate        string
	TaxAmount      string
	Total          string
	TotalPaid      string
	Balance        string
	HasPayments    bool
	Notes          string
}

type invoiceDocumentItem struct {
	Description string
	Amount      string
}

const documentDateLayout = "02/01/2006"

// RenderInvoiceDocument produces the downloadable HTML for an invoice.
func RenderInvoiceDocument(invoice *models.Invoice, profile *models.CompanyProfile, logo string, theme *models.Theme) (string, error) {
	data := invoiceDocumentData{
		PrimaryColor:   theme.PrimaryHex(),
		Logo:           template.URL(logo),
		CompanyName:    profile.Name,
		CompanyAddress: profile.Address,
		InvoiceNumber:  invoice.InvoiceNumber,
		InvoiceDate:    invoice.InvoiceDate.Format(documentDateLayout),
		Status:         string(invoice.CurrentStatus),
		ClientName:     invoice.ClientName,
		ClientAddress:  invoice.ClientAddress,
		ClientEmail:    invoice.ClientEmail,
		Subtotal:       invoice.Subtotal.StringFixed(2),
		Total:          invoice.Total.StringFixed(2),
		TotalPaid:      invoice.TotalPaid.StringFixed(2),
		Balance:        invoice.RemainingBalance().StringFixed(2),
		HasPayments:    len(invoice.Payments) > 0,
		Notes:          invoice.Notes,
	}
	if invoice.DueDate != nil {
		data.DueDate = invoice.DueDate.Format(documentDateLayout)
	}
	if invoice.TaxAmount.IsPositive() {
		data.TaxRate = invoice.TaxRate.String()
		data.TaxAmount = invoice.TaxAmount.StringFixed(2)
	}
	for _, item := range invoice.Items {
		data.Items = append(data.Items, invoiceDocumentItem{
			Description: item.Description,
			Amount:      item.Amount.StringFixed(2),
		})
	}

	var buf bytes.Buffer
	if err := invoiceDocumentTemplate.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// InvoiceDocumentFilename is the download name for an invoice document.
func InvoiceDocumentFilename(invoice *models.Invoice) string {
	return fmt.Sprintf("Invoice-%s.html", invoice.InvoiceNumber)
}

func formatDocumentDate(t time.Time) string {
	return t.Format(documentDateLayout)
}
