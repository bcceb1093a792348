package models

import (
	"context"
	"encoding/json"
	"time"

	"gorm.io/gorm"

	"github.com/infusitech/invoices_backend/config"
)

// Activity is the append-only audit trail of an invoice. Entries are written
// inside the same transaction as the mutation they record and are never
// updated, pruned or reordered.
type Activity struct {
	ID          int          `gorm:"primary_key" json:"id"`
	InvoiceId   int          `gorm:"index;not null" json:"invoice_id"`
	ActionType  ActivityType `gorm:"size:20;not null" json:"action_type"`
	Description string       `gorm:"type:text;not null" json:"description"`
	Metadata    string       `gorm:"type:text" json:"metadata,omitempty"`
	CreatedAt   time.Time    `gorm:"autoCreateTime" json:"created_at"`
}

func saveActivity(tx *gorm.DB, invoiceId int, actionType ActivityType, description string, metadata interface{}) error {
	activity := Activity{
		InvoiceId:   invoiceId,
		ActionType:  actionType,
		Description: description,
	}
	if metadata != nil {
		b, _ := json.Marshal(metadata)
		activity.Metadata = string(b)
	}
	return tx.Create(&activity).Error
}

func GetActivities(ctx context.Context, invoiceId int) ([]*Activity, error) {
	db := config.GetDB()
	var results []*Activity

	err := db.WithContext(ctx).
		Where("invoice_id = ?", invoiceId).
		Order("created_at DESC, id DESC").
		Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}
