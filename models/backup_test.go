package models_test

import (
	"errors"
	"testing"

	"github.com/infusitech/invoices_backend/models"
	"github.com/infusitech/invoices_backend/utils"
)

func TestParseBackupRejectsMalformedInput(t *testing.T) {
	cases := []struct {
		name string
		data string
	}{
		{"not json", "<html>not a backup</html>"},
		{"empty", ""},
		{"wrong invoices type", `{"invoices": "nope"}`},
		{"invoice missing number", `{"invoices": [{"client_name": "Acme"}]}`},
		{"invoice missing client", `{"invoices": [{"invoice_number": "INF-2026-001"}]}`},
		{"item missing description", `{"invoices": [{"invoice_number": "INF-2026-001", "client_name": "Acme", "items": [{"quantity": "1"}]}]}`},
		{"invalid theme value", `{"invoices": [], "settings": {"theme": {"primary": "magenta", "secondary": "blue", "accent": "blue", "background": "blue"}}}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := models.ParseBackup([]byte(tc.data))
			if !errors.Is(err, utils.ErrImportFormat) {
				t.Fatalf("ParseBackup error = %v, want ErrImportFormat", err)
			}
		})
	}
}

func TestParseBackupAcceptsPartialSettings(t *testing.T) {
	data := `{"invoices": [], "settings": {"company_name": "Acme Ltd"}}`
	backup, err := models.ParseBackup([]byte(data))
	if err != nil {
		t.Fatalf("ParseBackup: %v", err)
	}
	if backup.Settings == nil || backup.Settings.CompanyName == nil || *backup.Settings.CompanyName != "Acme Ltd" {
		t.Fatalf("partial settings not preserved: %+v", backup.Settings)
	}
	if backup.Settings.Theme != nil || backup.Settings.Logo != nil {
		t.Fatal("absent keys must stay nil")
	}
}

func TestParseBackupIgnoresUnknownKeys(t *testing.T) {
	data := `{"invoices": [], "settings": {"company_name": "Acme"}, "exported_by": "someone", "version": 3}`
	if _, err := models.ParseBackup([]byte(data)); err != nil {
		t.Fatalf("unknown top-level keys must be ignored, got %v", err)
	}
}

func TestParseBackupFullInvoice(t *testing.T) {
	data := `{
		"invoices": [{
			"invoice_number": "INF-2026-002",
			"client_name": "Acme Ltd",
			"invoice_date": "2026-01-10T00:00:00Z",
			"tax_rate": "5",
			"items": [{"description": "Consulting", "quantity": "2", "unit_rate": "50", "discount": "10"}],
			"payments": [{"receipt_number": "REC-20260115-001", "payment_date": "2026-01-15T00:00:00Z", "amount": "40", "payment_method": "Cash"}]
		}]
	}`
	backup, err := models.ParseBackup([]byte(data))
	if err != nil {
		t.Fatalf("ParseBackup: %v", err)
	}
	if len(backup.Invoices) != 1 {
		t.Fatalf("invoices = %d, want 1", len(backup.Invoices))
	}
	inv := backup.Invoices[0]
	if len(inv.Items) != 1 || len(inv.Payments) != 1 {
		t.Fatalf("items = %d payments = %d, want 1 each", len(inv.Items), len(inv.Payments))
	}
}
