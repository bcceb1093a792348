package docs

import (
	"bytes"
	"fmt"
	"html/template"
	"time"

	"github.com/infusitech/invoices_backend/models"
)

var receiptDocumentTemplate = template.Must(template.New("receiptDocument").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="UTF-8">
<style>
  body { font-family: Arial, sans-serif; padding: 40px; color: #333; }
  .header { background: {{.PrimaryColor}}; color: white; padding: 30px; text-align: center; margin-bottom: 30px; }
  .receipt-title { font-size: 32px; font-weight: bold; margin: 0; }
  .company-info { text-align: center; margin-bottom: 30px; }
  .company-name { font-size: 20px; font-weight: bold; }
  .details { background: #f3f4f6; padding: 20px; border-radius: 8px; margin-bottom: 20px; }
  .detail-row { display: flex; justify-content: space-between; margin: 10px 0; }
  .payment-amount { background: #dbeafe; padding: 20px; text-align: center; font-size: 28px; font-weight: bold; color: {{.PrimaryColor}}; border-radius: 8px; margin: 30px 0; }
  .notes { margin: 30px 0; padding: 20px; background: #f9fafb; border-left: 4px solid {{.PrimaryColor}}; }
  .footer { text-align: center; margin-top: 60px; color: #6b7280; font-size: 12px; border-top: 1px solid #e5e7eb; padding-top: 20px; }
</style>
</head>
<body>
<div class="header">
  <div class="receipt-title">RECEIPT</div>
</div>

<div class="company-info">
  {{if .Logo}}<img src="{{.Logo}}" style="max-width: 150px; max-height: 80px; margin-bottom: 15px;" alt="Logo">{{end}}
  <div class="company-name">{{.CompanyName}}</div>
  {{if .CompanyAddress}}<div>{{.CompanyAddress}}</div>{{end}}
</div>

<div class="details">
  <div class="detail-row"><strong>Receipt Number:</strong><span>{{.ReceiptNumber}}</span></div>
  <div class="detail-row"><strong>Invoice Number:</strong><span>{{.InvoiceNumber}}</span></div>
  <div class="detail-row"><strong>Customer:</strong><span>{{.ClientName}}</span></div>
  <div class="detail-row"><strong>Invoice Total:</strong><span>GH₵ {{.InvoiceTotal}}</span></div>
</div>

<div class="details">
  <div class="detail-row"><strong>Payment Method:</strong><span>{{.PaymentMethod}}</span></div>
  <div class="detail-row"><strong>Payment Date:</strong><span>{{.PaymentDate}}</span></div>
  <div class="detail-row"><strong>Total Amount Paid:</strong><span>GH₵ {{.TotalPaid}}</span></div>
  <div class="detail-row"><strong>Balance:</strong><span>GH₵ {{.Balance}}</span></div>
</div>

<div class="payment-amount">Amount Paid: GH₵ {{.Amount}}</div>

{{if .Notes}}
<div class="notes">
  <p style="margin: 0 0 10px 0; font-weight: bold;">Payment Notes:</p>
  <p style="margin: 0;">{{.Notes}}</p>
</div>
{{end}}

<div class="footer">
  <p>Thank you for your payment!</p>
  <p>{{.CompanyName}}</p>
  <p>Generated on {{.GeneratedOn}}</p>
</div>
</body>
</html>
`))

type receiptDocumentData struct {
	PrimaryColor   string
	Logo           template.URL
	CompanyName    string
	CompanyAddress string
	ReceiptNumber  string
	InvoiceNumber  string
	ClientName     string
	InvoiceTotal   string
	PaymentMethod  string
	PaymentDate    string
	TotalPaid      string
	Balance        string
	Amount         string
	Notes          string
	GeneratedOn    string
}

// RenderReceiptDocument produces the downloadable HTML receipt for one
// payment. The output is deterministic for a fixed generatedAt, which keeps
// renders reproducible in tests.
func RenderReceiptDocument(invoice *models.Invoice, payment *models.Payment, profile *models.CompanyProfile, logo string, theme *models.Theme, generatedAt time.Time) (string, error) {
	data := receiptDocumentData{
		PrimaryColor:   theme.PrimaryHex(),
		Logo:           template.URL(logo),
		CompanyName:    profile.Name,
		CompanyAddress: profile.Address,
		ReceiptNumber:  payment.ReceiptNumber,
		InvoiceNumber:  invoice.InvoiceNumber,
		ClientName:     invoice.ClientName,
		InvoiceTotal:   invoice.Total.StringFixed(2),
		PaymentMethod:  payment.PaymentMethod,
		PaymentDate:    formatDocumentDate(payment.PaymentDate),
		TotalPaid:      invoice.TotalPaid.StringFixed(2),
		Balance:        invoice.RemainingBalance().StringFixed(2),
		Amount:         payment.Amount.StringFixed(2),
		Notes:          payment.Notes,
		GeneratedOn:    formatDocumentDate(generatedAt),
	}

	var buf bytes.Buffer
	if err := receiptDocumentTemplate.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// ReceiptDocumentFilename is the download name for a receipt document.
func ReceiptDocumentFilename(payment *models.Payment) string {
	return fmt.Sprintf("%s.html", payment.ReceiptNumber)
}
