package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/infusitech/invoices_backend/utils"
)

// DeriveInvoiceStatus computes the display status from the financial state.
//
// Precedence is load-bearing: full or partial payment always wins over
// sent/overdue classification, so a part-paid overdue invoice reports
// "partial". Callers must never set the status directly; the stored column
// is a cache that is overwritten with this result on every load and
// mutation.
func DeriveInvoiceStatus(
	total decimal.Decimal,
	totalPaid decimal.Decimal,
	sentDate *time.Time,
	dueDate *time.Time,
	cancelledAt *time.Time,
	today time.Time,
) InvoiceStatus {
	if cancelledAt != nil {
		return InvoiceStatusCancelled
	}
	if totalPaid.GreaterThanOrEqual(total) {
		return InvoiceStatusPaid
	}
	if totalPaid.GreaterThan(decimal.Zero) {
		return InvoiceStatusPartial
	}
	if sentDate == nil {
		return InvoiceStatusDraft
	}
	if dueDate != nil && dueDate.Before(utils.TruncateToDate(today)) {
		return InvoiceStatusOverdue
	}
	return InvoiceStatusSent
}
