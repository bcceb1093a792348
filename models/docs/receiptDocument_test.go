package docs_test

import (
	"strings"
	"testing"
	"time"

	"github.com/infusitech/invoices_backend/models"
	"github.com/infusitech/invoices_backend/models/docs"
)

func samplePayment() *models.Payment {
	return &models.Payment{
		ID:            1,
		InvoiceId:     1,
		ReceiptNumber: "REC-20260115-001",
		PaymentDate:   time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC),
		Amount:        d("40"),
		PaymentMethod: "Mobile Money",
		Notes:         "First instalment",
	}
}

func TestRenderReceiptDocument(t *testing.T) {
	invoice := sampleInvoice()
	invoice.TotalPaid = d("40")
	generatedAt := time.Date(2026, 1, 15, 16, 45, 0, 0, time.UTC)

	theme := models.DefaultTheme()
	html, err := docs.RenderReceiptDocument(invoice, samplePayment(), sampleProfile(), "", &theme, generatedAt)
	if err != nil {
		t.Fatalf("RenderReceiptDocument: %v", err)
	}

	for _, want := range []string{
		"RECEIPT",
		"REC-20260115-001",
		"INF-2026-001",
		"Acme Ltd",
		"Infusi Technologies Limited",
		"Mobile Money",
		"15/01/2026",
		"Invoice Total:</strong><span>GH₵ 94.50",
		"Total Amount Paid:</strong><span>GH₵ 40.00",
		"Balance:</strong><span>GH₵ 54.50",
		"Amount Paid: GH₵ 40.00",
		"First instalment",
		"Generated on 15/01/2026",
	} {
		if !strings.Contains(html, want) {
			t.Errorf("receipt missing %q", want)
		}
	}
}

func TestRenderReceiptDocumentIsDeterministic(t *testing.T) {
	invoice := sampleInvoice()
	invoice.TotalPaid = d("40")
	generatedAt := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)

	theme := models.DefaultTheme()
	first, err := docs.RenderReceiptDocument(invoice, samplePayment(), sampleProfile(), "", &theme, generatedAt)
	if err != nil {
		t.Fatalf("RenderReceiptDocument: %v", err)
	}
	second, err := docs.RenderReceiptDocument(invoice, samplePayment(), sampleProfile(), "", &theme, generatedAt)
	if err != nil {
		t.Fatalf("RenderReceiptDocument: %v", err)
	}
	if first != second {
		t.Fatal("same inputs must render identical receipts")
	}
}

func TestReceiptDocumentFilename(t *testing.T) {
	if got := docs.ReceiptDocumentFilename(samplePayment()); got != "REC-20260115-001.html" {
		t.Fatalf("ReceiptDocumentFilename = %q", got)
	}
}
