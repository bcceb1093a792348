package models

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/infusitech/invoices_backend/config"
	"github.com/infusitech/invoices_backend/utils"
)

type Invoice struct {
	ID            int             `gorm:"primary_key" json:"id"`
	InvoiceNumber string          `gorm:"size:255;not null;uniqueIndex" json:"invoice_number"`
	SequenceNo    int64           `gorm:"not null" json:"sequence_no"`
	ClientName    string          `gorm:"size:255;not null" json:"client_name" binding:"required"`
	ClientAddress string          `gorm:"type:text" json:"client_address"`
	ClientEmail   string          `gorm:"size:255" json:"client_email"`
	ClientPhone   string          `gorm:"size:50" json:"client_phone"`
	InvoiceDate   time.Time       `gorm:"not null" json:"invoice_date" binding:"required"`
	DueDate       *time.Time      `json:"due_date"`
	Notes         string          `gorm:"type:text" json:"notes"`
	Terms         string          `gorm:"type:text" json:"terms"`
	TaxRate       decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"tax_rate"`
	Subtotal      decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"subtotal"`
	TaxAmount     decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"tax_amount"`
	Total         decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"total"`
	TotalPaid     decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"total_paid"`
	CurrentStatus InvoiceStatus   `gorm:"size:20;not null" json:"current_status"`
	SentDate      *time.Time      `json:"sent_date"`
	CancelledAt   *time.Time      `json:"cancelled_at"`
	CancelReason  string          `gorm:"type:text" json:"cancel_reason"`
	Items         []InvoiceItem   `gorm:"foreignKey:InvoiceId" json:"items"`
	Payments      []Payment       `gorm:"foreignKey:InvoiceId" json:"payments"`
	Activities    []Activity      `gorm:"foreignKey:InvoiceId" json:"activities"`
	CreatedAt     time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type InvoiceItem struct {
	ID          int             `gorm:"primary_key" json:"id"`
	InvoiceId   int             `gorm:"index;not null" json:"invoice_id"`
	Description string          `gorm:"size:255;not null" json:"description" binding:"required"`
	Quantity    decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"quantity"`
	UnitRate    decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"unit_rate"`
	Discount    decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"discount"`
	Amount      decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"amount"`
	CreatedAt   time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewInvoice struct {
	ClientName    string           `json:"client_name" binding:"required"`
	ClientAddress string           `json:"client_address"`
	ClientEmail   string           `json:"client_email"`
	ClientPhone   string           `json:"client_phone"`
	InvoiceDate   time.Time        `json:"invoice_date" binding:"required"`
	DueDate       *time.Time       `json:"due_date"`
	Notes         string           `json:"notes"`
	Terms         string           `json:"terms"`
	TaxRate       decimal.Decimal  `json:"tax_rate"`
	Items         []NewInvoiceItem `json:"items" binding:"required"`
}

type NewInvoiceItem struct {
	Description string          `json:"description" binding:"required"`
	Quantity    decimal.Decimal `json:"quantity" binding:"required"`
	UnitRate    decimal.Decimal `json:"unit_rate"`
	Discount    decimal.Decimal `json:"discount"`
}

// RemainingBalance is the amount still due on the invoice.
func (inv Invoice) RemainingBalance() decimal.Decimal {
	return inv.Total.Sub(inv.TotalPaid)
}

// validate input for both create & update.
func (input *NewInvoice) validate(_ context.Context) error {
	if len(input.Items) == 0 {
		return errors.New("at least one line item is required")
	}
	for _, item := range input.Items {
		if item.Description == "" {
			return errors.New("item description is required")
		}
		if item.Quantity.LessThanOrEqual(decimal.Zero) {
			return errors.New("item quantity must be greater than zero")
		}
		if item.UnitRate.IsNegative() {
			return errors.New("item unit rate cannot be negative")
		}
		if item.Discount.IsNegative() {
			return errors.New("item discount cannot be negative")
		}
		// A discount larger than the line value would push the amount
		// negative. Rejected outright rather than clamped.
		if item.Discount.GreaterThan(item.Quantity.Mul(item.UnitRate)) {
			return errors.New("item discount cannot exceed the line amount")
		}
	}
	if input.TaxRate.IsNegative() {
		return errors.New("tax rate cannot be negative")
	}
	if input.ClientEmail != "" && !utils.IsValidEmail(input.ClientEmail) {
		return errors.New("client email is not valid")
	}
	if input.ClientPhone != "" {
		if err := utils.ValidatePhoneNumber(input.ClientPhone, utils.CountryCode); err != nil {
			return errors.New("client phone number is not valid")
		}
	}
	return nil
}

// mapInvoiceItems computes per-line amounts for the given input.
func mapInvoiceItems(input []NewInvoiceItem) []InvoiceItem {
	items := make([]InvoiceItem, 0, len(input))
	for _, item := range input {
		items = append(items, InvoiceItem{
			Description: item.Description,
			Quantity:    item.Quantity,
			UnitRate:    item.UnitRate,
			Discount:    item.Discount,
			Amount:      utils.CalculateItemAmount(item.Quantity, item.UnitRate, item.Discount),
		})
	}
	return items
}

// applyDerivedTotals recomputes subtotal, tax and total from the items.
// Derived columns are caches only: they are overwritten here on every
// mutation and never accepted from input.
func (inv *Invoice) applyDerivedTotals() {
	amounts := make([]decimal.Decimal, 0, len(inv.Items))
	for _, item := range inv.Items {
		amounts = append(amounts, item.Amount)
	}
	inv.Subtotal = utils.CalculateSubtotal(amounts)
	inv.TaxAmount = utils.CalculateTaxAmount(inv.Subtotal, inv.TaxRate)
	inv.Total = utils.CalculateTotal(inv.Subtotal, inv.TaxAmount)
}

func (inv *Invoice) deriveStatus(today time.Time) InvoiceStatus {
	return DeriveInvoiceStatus(inv.Total, inv.TotalPaid, inv.SentDate, inv.DueDate, inv.CancelledAt, today)
}

// refreshStatus overwrites the cached status column when the derived value
// moved (e.g. an invoice crossing its due date between loads).
func refreshInvoiceStatus(ctx context.Context, db *gorm.DB, inv *Invoice) error {
	derived := inv.deriveStatus(time.Now())
	if derived == inv.CurrentStatus {
		return nil
	}
	inv.CurrentStatus = derived
	return db.WithContext(ctx).Model(inv).UpdateColumn("current_status", derived).Error
}

func CreateInvoice(ctx context.Context, input *NewInvoice) (*Invoice, error) {
	if err := input.validate(ctx); err != nil {
		return nil, err
	}

	db := config.GetDB()
	now := time.Now()
	year := now.Year()

	invoice := Invoice{
		ClientName:    input.ClientName,
		ClientAddress: input.ClientAddress,
		ClientEmail:   input.ClientEmail,
		ClientPhone:   input.ClientPhone,
		InvoiceDate:   input.InvoiceDate,
		DueDate:       input.DueDate,
		Notes:         input.Notes,
		Terms:         input.Terms,
		TaxRate:       input.TaxRate,
		Items:         mapInvoiceItems(input.Items),
	}
	invoice.applyDerivedTotals()
	invoice.CurrentStatus = invoice.deriveStatus(now)

	release := seriesLock(ctx, SeriesModuleInvoice)
	defer release()

	tx := db.Begin()
	defer func() { _ = tx.Rollback().Error }()

	seqNo, err := nextSeriesNumber(tx, SeriesModuleInvoice, strconv.Itoa(year))
	if err != nil {
		return nil, err
	}
	invoice.SequenceNo = seqNo
	invoice.InvoiceNumber = FormatInvoiceNumber(year, seqNo)

	if err := tx.WithContext(ctx).Create(&invoice).Error; err != nil {
		return nil, err
	}
	if err := saveActivity(tx, invoice.ID, ActivityTypeCreated, "Invoice created", nil); err != nil {
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return &invoice, nil
}

// UpdateInvoice replaces the invoice's editable fields and line items in a
// single transaction. The input is validated in full before anything is
// touched, so a rejected edit leaves the original invoice intact.
func UpdateInvoice(ctx context.Context, id int, input *NewInvoice) (*Invoice, error) {
	if err := input.validate(ctx); err != nil {
		return nil, err
	}

	existing, err := utils.FetchModel[Invoice](ctx, id, "Items", "Payments")
	if err != nil {
		return nil, err
	}
	if existing.CancelledAt != nil {
		return nil, errors.New("cancelled invoices cannot be edited")
	}

	items := mapInvoiceItems(input.Items)
	staged := *existing
	staged.ClientName = input.ClientName
	staged.ClientAddress = input.ClientAddress
	staged.ClientEmail = input.ClientEmail
	staged.ClientPhone = input.ClientPhone
	staged.InvoiceDate = input.InvoiceDate
	staged.DueDate = input.DueDate
	staged.Notes = input.Notes
	staged.Terms = input.Terms
	staged.TaxRate = input.TaxRate
	staged.Items = items
	staged.applyDerivedTotals()

	// Payments already recorded must stay within the new total.
	if staged.Total.LessThan(staged.TotalPaid) {
		return nil, errors.New("invoice total cannot be reduced below the amount already paid")
	}
	staged.CurrentStatus = staged.deriveStatus(time.Now())

	db := config.GetDB()
	tx := db.Begin()
	defer func() { _ = tx.Rollback().Error }()

	if err := tx.WithContext(ctx).Model(&Invoice{ID: id}).
		Updates(map[string]interface{}{
			"ClientName":    staged.ClientName,
			"ClientAddress": staged.ClientAddress,
			"ClientEmail":   staged.ClientEmail,
			"ClientPhone":   staged.ClientPhone,
			"InvoiceDate":   staged.InvoiceDate,
			"DueDate":       staged.DueDate,
			"Notes":         staged.Notes,
			"Terms":         staged.Terms,
			"TaxRate":       staged.TaxRate,
			"Subtotal":      staged.Subtotal,
			"TaxAmount":     staged.TaxAmount,
			"Total":         staged.Total,
			"CurrentStatus": staged.CurrentStatus,
		}).Error; err != nil {
		return nil, err
	}
	if err := tx.WithContext(ctx).Model(&Invoice{ID: id}).
		Session(&gorm.Session{FullSaveAssociations: true}).
		Association("Items").
		Unscoped().Replace(&items); err != nil {
		return nil, err
	}
	if err := saveActivity(tx, id, ActivityTypeUpdated, "Invoice updated", nil); err != nil {
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	staged.Items = items
	return &staged, nil
}

// MarkInvoiceSent stamps the sent date. Re-marking an already sent invoice
// overwrites the date and appends another activity entry.
func MarkInvoiceSent(ctx context.Context, id int, sentDate time.Time) (*Invoice, error) {
	invoice, err := utils.FetchModel[Invoice](ctx, id, "Items", "Payments")
	if err != nil {
		return nil, err
	}
	if invoice.CancelledAt != nil {
		return nil, errors.New("cancelled invoices cannot be marked as sent")
	}

	invoice.SentDate = &sentDate
	invoice.CurrentStatus = invoice.deriveStatus(time.Now())

	db := config.GetDB()
	tx := db.Begin()
	defer func() { _ = tx.Rollback().Error }()

	if err := tx.WithContext(ctx).Model(invoice).
		Updates(map[string]interface{}{
			"SentDate":      invoice.SentDate,
			"CurrentStatus": invoice.CurrentStatus,
		}).Error; err != nil {
		return nil, err
	}
	if err := saveActivity(tx, id, ActivityTypeSent, "Invoice sent to client", nil); err != nil {
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return invoice, nil
}

// CancelInvoice voids an invoice that has no payments against it.
func CancelInvoice(ctx context.Context, id int, reason string) (*Invoice, error) {
	invoice, err := utils.FetchModel[Invoice](ctx, id, "Items", "Payments")
	if err != nil {
		return nil, err
	}
	if invoice.CancelledAt != nil {
		return nil, errors.New("invoice is already cancelled")
	}
	if len(invoice.Payments) > 0 {
		return nil, errors.New("invoices with recorded payments cannot be cancelled")
	}

	now := time.Now()
	invoice.CancelledAt = &now
	invoice.CancelReason = reason
	invoice.CurrentStatus = InvoiceStatusCancelled

	db := config.GetDB()
	tx := db.Begin()
	defer func() { _ = tx.Rollback().Error }()

	if err := tx.WithContext(ctx).Model(invoice).
		Updates(map[string]interface{}{
			"CancelledAt":   invoice.CancelledAt,
			"CancelReason":  invoice.CancelReason,
			"CurrentStatus": invoice.CurrentStatus,
		}).Error; err != nil {
		return nil, err
	}
	description := "Invoice cancelled"
	if reason != "" {
		description = fmt.Sprintf("Invoice cancelled: %s", reason)
	}
	if err := saveActivity(tx, id, ActivityTypeCancelled, description, nil); err != nil {
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return invoice, nil
}

// DeleteInvoice removes the invoice and its items, payments and activities.
// Hard delete, no undo; the invoice number is never reused because the
// series only moves forward.
func DeleteInvoice(ctx context.Context, id int) (*Invoice, error) {
	result, err := utils.FetchModel[Invoice](ctx, id, "Items", "Payments", "Activities")
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	tx := db.Begin()
	defer func() { _ = tx.Rollback().Error }()

	if err := tx.WithContext(ctx).Where("invoice_id = ?", id).Delete(&Payment{}).Error; err != nil {
		return nil, err
	}
	if err := tx.WithContext(ctx).Where("invoice_id = ?", id).Delete(&Activity{}).Error; err != nil {
		return nil, err
	}
	if err := tx.WithContext(ctx).Where("invoice_id = ?", id).Delete(&InvoiceItem{}).Error; err != nil {
		return nil, err
	}
	if err := tx.WithContext(ctx).Delete(&Invoice{}, id).Error; err != nil {
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return result, nil
}

// RecordInvoiceViewed appends the audit-only activity written when an
// invoice document is downloaded. No financial field changes.
func RecordInvoiceViewed(ctx context.Context, id int) error {
	if err := utils.ValidateResourceId[Invoice](ctx, id); err != nil {
		return err
	}
	db := config.GetDB()
	return saveActivity(db.WithContext(ctx), id, ActivityTypeViewed, "Invoice document downloaded", nil)
}

func GetInvoice(ctx context.Context, id int) (*Invoice, error) {
	result, err := utils.FetchModel[Invoice](ctx, id, "Items", "Payments", "Activities")
	if err != nil {
		return nil, err
	}
	db := config.GetDB()
	if err := refreshInvoiceStatus(ctx, db, result); err != nil {
		return nil, err
	}
	return result, nil
}

func GetInvoices(ctx context.Context, status *InvoiceStatus, clientName *string) ([]*Invoice, error) {
	db := config.GetDB()
	var results []*Invoice

	dbCtx := db.WithContext(ctx).Preload("Items").Preload("Payments")
	if clientName != nil && len(*clientName) > 0 {
		dbCtx = dbCtx.Where("client_name LIKE ?", "%"+*clientName+"%")
	}
	if err := dbCtx.Order("created_at DESC").Find(&results).Error; err != nil {
		return nil, err
	}

	// Status is derived; refresh before filtering so an invoice that
	// crossed its due date since the last write is reported as overdue.
	filtered := results[:0]
	for _, inv := range results {
		if err := refreshInvoiceStatus(ctx, db, inv); err != nil {
			return nil, err
		}
		if status != nil && inv.CurrentStatus != *status {
			continue
		}
		filtered = append(filtered, inv)
	}
	return filtered, nil
}
