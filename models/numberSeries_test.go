package models_test

import (
	"testing"
	"time"

	"github.com/infusitech/invoices_backend/models"
)

func TestFormatInvoiceNumber(t *testing.T) {
	cases := []struct {
		year int
		seq  int64
		want string
	}{
		{2026, 1, "INF-2026-001"},
		{2026, 42, "INF-2026-042"},
		{2026, 999, "INF-2026-999"},
		{2027, 1000, "INF-2027-1000"},
	}
	for _, tc := range cases {
		if got := models.FormatInvoiceNumber(tc.year, tc.seq); got != tc.want {
			t.Errorf("FormatInvoiceNumber(%d, %d) = %q, want %q", tc.year, tc.seq, got, tc.want)
		}
	}
}

func TestFormatReceiptNumber(t *testing.T) {
	date := time.Date(2026, 8, 31, 14, 0, 0, 0, time.UTC)
	if got := models.FormatReceiptNumber(date, 7); got != "REC-20260831-007" {
		t.Fatalf("FormatReceiptNumber = %q, want REC-20260831-007", got)
	}
}

func TestParseInvoiceNumber(t *testing.T) {
	year, seq, ok := models.ParseInvoiceNumber("INF-2026-042")
	if !ok || year != 2026 || seq != 42 {
		t.Fatalf("ParseInvoiceNumber = (%d, %d, %v), want (2026, 42, true)", year, seq, ok)
	}

	for _, bad := range []string{"", "INF-26-042", "INV-2026-042", "INF-2026-42", "INF-2026-042-x"} {
		if _, _, ok := models.ParseInvoiceNumber(bad); ok {
			t.Errorf("ParseInvoiceNumber(%q) accepted, want rejection", bad)
		}
	}
}

func TestParseReceiptNumber(t *testing.T) {
	period, seq, ok := models.ParseReceiptNumber("REC-20260831-007")
	if !ok || period != "20260831" || seq != 7 {
		t.Fatalf("ParseReceiptNumber = (%q, %d, %v), want (20260831, 7, true)", period, seq, ok)
	}

	for _, bad := range []string{"", "REC-2026-007", "INF-20260831-007"} {
		if _, _, ok := models.ParseReceiptNumber(bad); ok {
			t.Errorf("ParseReceiptNumber(%q) accepted, want rejection", bad)
		}
	}
}

func TestFormatParseRoundTrip(t *testing.T) {
	number := models.FormatInvoiceNumber(2026, 123)
	year, seq, ok := models.ParseInvoiceNumber(number)
	if !ok || year != 2026 || seq != 123 {
		t.Fatalf("round trip of %q = (%d, %d, %v)", number, year, seq, ok)
	}
}
