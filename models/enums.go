package models

type InvoiceStatus string

const (
	InvoiceStatusDraft     InvoiceStatus = "draft"
	InvoiceStatusSent      InvoiceStatus = "sent"
	InvoiceStatusPartial   InvoiceStatus = "partial"
	InvoiceStatusPaid      InvoiceStatus = "paid"
	InvoiceStatusOverdue   InvoiceStatus = "overdue"
	InvoiceStatusCancelled InvoiceStatus = "cancelled"
)

func (s InvoiceStatus) IsValid() bool {
	switch s {
	case InvoiceStatusDraft, InvoiceStatusSent, InvoiceStatusPartial,
		InvoiceStatusPaid, InvoiceStatusOverdue, InvoiceStatusCancelled:
		return true
	default:
		return false
	}
}

type ActivityType string

const (
	ActivityTypeCreated   ActivityType = "created"
	ActivityTypeUpdated   ActivityType = "updated"
	ActivityTypeSent      ActivityType = "sent"
	ActivityTypePayment   ActivityType = "payment"
	ActivityTypeViewed    ActivityType = "viewed"
	ActivityTypeCancelled ActivityType = "cancelled"
)

// Suggested payment methods; free-form values are also accepted.
const (
	PaymentMethodBankTransfer = "Bank Transfer"
	PaymentMethodCash         = "Cash"
	PaymentMethodCheque       = "Cheque"
	PaymentMethodMobileMoney  = "Mobile Money"
	PaymentMethodOther        = "Other"
)

// SuggestedPaymentMethods returns the methods a client can offer as
// choices when recording a payment.
func SuggestedPaymentMethods() []string {
	return []string{
		PaymentMethodBankTransfer,
		PaymentMethodCash,
		PaymentMethodCheque,
		PaymentMethodMobileMoney,
		PaymentMethodOther,
	}
}
