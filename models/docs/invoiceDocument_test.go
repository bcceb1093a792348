package docs_test

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/infusitech/invoices_backend/models"
	"github.com/infusitech/invoices_backend/models/docs"
)

func d(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

func sampleInvoice() *models.Invoice {
	sent := time.Date(2026, 1, 12, 0, 0, 0, 0, time.UTC)
	due := time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)
	return &models.Invoice{
		ID:            1,
		InvoiceNumber: "INF-2026-001",
		ClientName:    "Acme Ltd",
		ClientAddress: "12 Ring Road, Accra",
		ClientEmail:   "billing@acme.example",
		InvoiceDate:   time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC),
		DueDate:       &due,
		SentDate:      &sent,
		Notes:         "Payment due within 30 days",
		TaxRate:       d("5"),
		Subtotal:      d("90"),
		TaxAmount:     d("4.5"),
		Total:         d("94.5"),
		TotalPaid:     d("0"),
		CurrentStatus: models.InvoiceStatusSent,
		Items: []models.InvoiceItem{
			{Description: "Consulting", Quantity: d("2"), UnitRate: d("50"), Discount: d("10"), Amount: d("90")},
		},
	}
}

func sampleProfile() *models.CompanyProfile {
	return &models.CompanyProfile{Name: "Infusi Technologies Limited", Address: "Ghana"}
}

func TestRenderInvoiceDocument(t *testing.T) {
	theme := models.DefaultTheme()
	html, err := docs.RenderInvoiceDocument(sampleInvoice(), sampleProfile(), "", &theme)
	if err != nil {
		t.Fatalf("RenderInvoiceDocument: %v", err)
	}

	for _, want := range []string{
		"INF-2026-001",
		"Acme Ltd",
		"12 Ring Road, Accra",
		"billing@acme.example",
		"Infusi Technologies Limited",
		"Consulting",
		"GH₵ 90.00",
		"Subtotal: GH₵ 90.00",
		"Tax (5%): GH₵ 4.50",
		"Total: GH₵ 94.50",
		"Payment due within 30 days",
		"#2563eb",
		"10/01/2026",
		"10/02/2026",
	} {
		if !strings.Contains(html, want) {
			t.Errorf("document missing %q", want)
		}
	}
	if strings.Contains(html, "<img") {
		t.Error("document must not carry a logo tag when no logo is set")
	}
	if strings.Contains(html, "Balance Due") {
		t.Error("unpaid invoice must show a plain total, not a balance")
	}
}

func TestRenderInvoiceDocumentWithPayments(t *testing.T) {
	invoice := sampleInvoice()
	invoice.TotalPaid = d("40")
	invoice.Payments = []models.Payment{{ReceiptNumber: "REC-20260115-001", Amount: d("40")}}

	theme := models.DefaultTheme()
	html, err := docs.RenderInvoiceDocument(invoice, sampleProfile(), "", &theme)
	if err != nil {
		t.Fatalf("RenderInvoiceDocument: %v", err)
	}
	for _, want := range []string{
		"Amount Paid: GH₵ 40.00",
		"Balance Due: GH₵ 54.50",
	} {
		if !strings.Contains(html, want) {
			t.Errorf("document missing %q", want)
		}
	}
}

func TestRenderInvoiceDocumentUsesThemeColor(t *testing.T) {
	invoice := sampleInvoice()
	theme := models.Theme{Primary: "green", Secondary: "blue", Accent: "blue", Background: "blue"}
	html, err := docs.RenderInvoiceDocument(invoice, sampleProfile(), "", &theme)
	if err != nil {
		t.Fatalf("RenderInvoiceDocument: %v", err)
	}
	if !strings.Contains(html, "#176636") {
		t.Error("green primary must render #176636")
	}
	if strings.Contains(html, "#2563eb") {
		t.Error("default blue must not leak into a green-themed document")
	}
}

func TestRenderInvoiceDocumentEmbedsLogo(t *testing.T) {
	logo := "data:image/png;base64,iVBORw0KGgo="
	theme := models.DefaultTheme()
	html, err := docs.RenderInvoiceDocument(sampleInvoice(), sampleProfile(), logo, &theme)
	if err != nil {
		t.Fatalf("RenderInvoiceDocument: %v", err)
	}
	if !strings.Contains(html, logo) {
		t.Error("logo data URI must be embedded verbatim")
	}
}

func TestRenderInvoiceDocumentEscapesClientInput(t *testing.T) {
	invoice := sampleInvoice()
	invoice.ClientName = `<script>alert("x")</script>`

	theme := models.DefaultTheme()
	html, err := docs.RenderInvoiceDocument(invoice, sampleProfile(), "", &theme)
	if err != nil {
		t.Fatalf("RenderInvoiceDocument: %v", err)
	}
	if strings.Contains(html, "<script>") {
		t.Error("client-supplied fields must be escaped")
	}
}

func TestInvoiceDocumentFilename(t *testing.T) {
	if got := docs.InvoiceDocumentFilename(sampleInvoice()); got != "Invoice-INF-2026-001.html" {
		t.Fatalf("InvoiceDocumentFilename = %q", got)
	}
}

func TestRenderInvoiceDocumentIsDeterministic(t *testing.T) {
	theme := models.DefaultTheme()
	first, err := docs.RenderInvoiceDocument(sampleInvoice(), sampleProfile(), "", &theme)
	if err != nil {
		t.Fatalf("RenderInvoiceDocument: %v", err)
	}
	second, err := docs.RenderInvoiceDocument(sampleInvoice(), sampleProfile(), "", &theme)
	if err != nil {
		t.Fatalf("RenderInvoiceDocument: %v", err)
	}
	if first != second {
		t.Fatal("same inputs must render identical documents")
	}
}
