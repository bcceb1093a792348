package utils_test

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/infusitech/invoices_backend/utils"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestCalculateItemAmount(t *testing.T) {
	cases := []struct {
		name     string
		qty      string
		rate     string
		discount string
		want     string
	}{
		{"no discount", "2", "50", "0", "100"},
		{"with discount", "2", "50", "10", "90"},
		{"fractional qty", "1.5", "10", "0", "15"},
		{"discount equals line value", "1", "25", "25", "0"},
		{"fractional rate", "3", "33.33", "0", "99.99"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := utils.CalculateItemAmount(dec(tc.qty), dec(tc.rate), dec(tc.discount))
			if !got.Equal(dec(tc.want)) {
				t.Fatalf("CalculateItemAmount(%s, %s, %s) = %s, want %s",
					tc.qty, tc.rate, tc.discount, got, tc.want)
			}
		})
	}
}

func TestCalculateTaxAmount(t *testing.T) {
	cases := []struct {
		name     string
		subtotal string
		rate     string
		want     string
	}{
		{"five percent", "90", "5", "4.5"},
		{"zero rate", "100", "0", "0"},
		{"negative rate treated as zero", "100", "-5", "0"},
		{"twelve and a half percent", "200", "12.5", "25"},
		{"small subtotal rounds once", "0.125", "8", "0.01"},
		{"fractional cents round half up", "10.01", "7.5", "0.7508"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := utils.CalculateTaxAmount(dec(tc.subtotal), dec(tc.rate))
			if !got.Equal(dec(tc.want)) {
				t.Fatalf("CalculateTaxAmount(%s, %s) = %s, want %s",
					tc.subtotal, tc.rate, got, tc.want)
			}
		})
	}
}

func TestInvoiceTotalsWorkedExample(t *testing.T) {
	// One line: qty 2 x rate 50 - discount 10, taxed at 5%.
	amount := utils.CalculateItemAmount(dec("2"), dec("50"), dec("10"))
	subtotal := utils.CalculateSubtotal([]decimal.Decimal{amount})
	tax := utils.CalculateTaxAmount(subtotal, dec("5"))
	total := utils.CalculateTotal(subtotal, tax)

	if !subtotal.Equal(dec("90")) {
		t.Errorf("subtotal = %s, want 90", subtotal)
	}
	if !tax.Equal(dec("4.5")) {
		t.Errorf("tax = %s, want 4.5", tax)
	}
	if !total.Equal(dec("94.5")) {
		t.Errorf("total = %s, want 94.5", total)
	}
}

func TestCalculateSubtotalEmpty(t *testing.T) {
	if got := utils.CalculateSubtotal(nil); !got.Equal(decimal.Zero) {
		t.Fatalf("CalculateSubtotal(nil) = %s, want 0", got)
	}
}
