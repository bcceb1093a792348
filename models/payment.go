package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/infusitech/invoices_backend/config"
	"github.com/infusitech/invoices_backend/utils"
)

// Payment is one entry in an invoice's append-only payment ledger.
// Payments are never edited; a mistake is corrected by deleting and
// re-recording through the invoice.
type Payment struct {
	ID            int             `gorm:"primary_key" json:"id"`
	InvoiceId     int             `gorm:"index;not null" json:"invoice_id"`
	ReceiptNumber string          `gorm:"size:255;not null;uniqueIndex" json:"receipt_number"`
	SequenceNo    int64           `gorm:"not null" json:"sequence_no"`
	PaymentDate   time.Time       `gorm:"not null" json:"payment_date"`
	Amount        decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"amount"`
	PaymentMethod string          `gorm:"size:100;not null" json:"payment_method"`
	Notes         string          `gorm:"type:text" json:"notes"`
	CreatedAt     time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

type NewPayment struct {
	PaymentDate   time.Time       `json:"payment_date" binding:"required"`
	Amount        decimal.Decimal `json:"amount" binding:"required"`
	PaymentMethod string          `json:"payment_method" binding:"required"`
	Notes         string          `json:"notes"`
}

func (input *NewPayment) validate(_ context.Context) error {
	if input.Amount.LessThanOrEqual(decimal.Zero) {
		return errors.New("payment amount must be greater than zero")
	}
	if input.PaymentMethod == "" {
		return errors.New("payment method is required")
	}
	return nil
}

// RecordPayment appends a payment to the invoice's ledger and moves the
// invoice's paid total and status in the same transaction. The invoice row
// is locked FOR UPDATE so two concurrent payments cannot both pass the
// balance check.
func RecordPayment(ctx context.Context, invoiceId int, input *NewPayment) (*Payment, error) {
	if err := input.validate(ctx); err != nil {
		return nil, err
	}

	db := config.GetDB()
	now := time.Now()

	release := seriesLock(ctx, SeriesModuleReceipt)
	defer release()

	tx := db.Begin()
	defer func() { _ = tx.Rollback().Error }()

	var invoice Invoice
	err := tx.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&invoice, invoiceId).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.ErrorRecordNotFound
	}
	if err != nil {
		return nil, err
	}
	if invoice.CancelledAt != nil {
		return nil, errors.New("payments cannot be recorded on a cancelled invoice")
	}
	if input.Amount.GreaterThan(invoice.RemainingBalance()) {
		return nil, utils.ErrExceedsBalance
	}

	period := now.Format("20060102")
	seqNo, err := nextSeriesNumber(tx, SeriesModuleReceipt, period)
	if err != nil {
		return nil, err
	}

	payment := Payment{
		InvoiceId:     invoiceId,
		ReceiptNumber: FormatReceiptNumber(now, seqNo),
		SequenceNo:    seqNo,
		PaymentDate:   input.PaymentDate,
		Amount:        input.Amount,
		PaymentMethod: input.PaymentMethod,
		Notes:         input.Notes,
	}
	if err := tx.WithContext(ctx).Create(&payment).Error; err != nil {
		return nil, err
	}

	invoice.TotalPaid = invoice.TotalPaid.Add(input.Amount)
	invoice.CurrentStatus = invoice.deriveStatus(now)
	if err := tx.WithContext(ctx).Model(&invoice).
		Updates(map[string]interface{}{
			"TotalPaid":     invoice.TotalPaid,
			"CurrentStatus": invoice.CurrentStatus,
		}).Error; err != nil {
		return nil, err
	}

	description := fmt.Sprintf("Payment of GH₵%s received via %s",
		input.Amount.StringFixed(2), input.PaymentMethod)
	if err := saveActivity(tx, invoiceId, ActivityTypePayment, description, map[string]interface{}{
		"receipt_number": payment.ReceiptNumber,
		"amount":         input.Amount.StringFixed(2),
	}); err != nil {
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

func GetPayment(ctx context.Context, invoiceId int, paymentId int) (*Payment, error) {
	db := config.GetDB()
	var result Payment

	err := db.WithContext(ctx).
		Where("invoice_id = ?", invoiceId).
		First(&result, paymentId).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.ErrorRecordNotFound
	}
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func GetPayments(ctx context.Context, invoiceId int) ([]*Payment, error) {
	db := config.GetDB()
	var results []*Payment

	err := db.WithContext(ctx).
		Where("invoice_id = ?", invoiceId).
		Order("payment_date DESC, id DESC").
		Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}
