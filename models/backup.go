package models

import (
	"context"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/infusitech/invoices_backend/config"
	"github.com/infusitech/invoices_backend/utils"
)

// Backup is the portable snapshot of the whole application state.
// Settings keys are pointers so a partial settings object imports only
// what it carries.
type Backup struct {
	Invoices []*Invoice      `json:"invoices"`
	Settings *BackupSettings `json:"settings,omitempty"`
}

type BackupSettings struct {
	CompanyName    *string `json:"company_name,omitempty"`
	CompanyAddress *string `json:"company_address,omitempty"`
	CompanyEmail   *string `json:"company_email,omitempty"`
	CompanyPhone   *string `json:"company_phone,omitempty"`
	CompanyWebsite *string `json:"company_website,omitempty"`
	Theme          *Theme  `json:"theme,omitempty"`
	Logo           *string `json:"logo,omitempty"`
}

// ExportBackup assembles the full snapshot: every invoice with its items,
// payments and activities, plus the current settings.
func ExportBackup(ctx context.Context) (*Backup, error) {
	db := config.GetDB()
	var invoices []*Invoice
	err := db.WithContext(ctx).
		Preload("Items").
		Preload("Payments").
		Preload("Activities").
		Order("created_at ASC").
		Find(&invoices).Error
	if err != nil {
		return nil, err
	}

	theme, err := GetTheme(ctx)
	if err != nil {
		return nil, err
	}
	profile, err := GetCompanyProfile(ctx)
	if err != nil {
		return nil, err
	}
	logo, err := GetLogo(ctx)
	if err != nil {
		return nil, err
	}

	settings := BackupSettings{
		CompanyName:    &profile.Name,
		CompanyAddress: &profile.Address,
		CompanyEmail:   &profile.Email,
		CompanyPhone:   &profile.Phone,
		CompanyWebsite: &profile.Website,
		Theme:          theme,
	}
	if logo != "" {
		settings.Logo = &logo
	}

	return &Backup{Invoices: invoices, Settings: &settings}, nil
}

// ParseBackup decodes and sanity-checks an uploaded snapshot. Unknown keys
// are ignored; structurally broken input is rejected before any write.
func ParseBackup(data []byte) (*Backup, error) {
	var backup Backup
	if err := utils.UnmarshalFromJSON(data, &backup); err != nil {
		return nil, utils.ErrImportFormat
	}
	for _, inv := range backup.Invoices {
		if inv == nil || inv.InvoiceNumber == "" || inv.ClientName == "" {
			return nil, utils.ErrImportFormat
		}
		for _, item := range inv.Items {
			if item.Description == "" {
				return nil, utils.ErrImportFormat
			}
		}
	}
	if backup.Settings != nil && backup.Settings.Theme != nil {
		if err := backup.Settings.Theme.validate(context.Background()); err != nil {
			return nil, utils.ErrImportFormat
		}
	}
	return &backup, nil
}

// ImportBackup restores a snapshot in one transaction. When the snapshot
// carries an invoices array the existing collection is replaced wholesale;
// derived columns are recomputed from items and payments rather than
// trusted, and the number series are advanced past every imported number.
func ImportBackup(ctx context.Context, data []byte) (*Backup, error) {
	backup, err := ParseBackup(data)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	now := time.Now()

	tx := db.Begin()
	defer func() { _ = tx.Rollback().Error }()

	if backup.Invoices != nil {
		for _, model := range []interface{}{&Payment{}, &Activity{}, &InvoiceItem{}, &Invoice{}} {
			if err := tx.WithContext(ctx).Where("1 = 1").Delete(model).Error; err != nil {
				return nil, err
			}
		}

		for _, inv := range backup.Invoices {
			inv.ID = 0
			for i := range inv.Items {
				inv.Items[i].ID = 0
				inv.Items[i].InvoiceId = 0
				inv.Items[i].Amount = utils.CalculateItemAmount(
					inv.Items[i].Quantity, inv.Items[i].UnitRate, inv.Items[i].Discount)
			}
			totalPaid := decimal.Zero
			for i := range inv.Payments {
				inv.Payments[i].ID = 0
				inv.Payments[i].InvoiceId = 0
				totalPaid = totalPaid.Add(inv.Payments[i].Amount)
			}
			for i := range inv.Activities {
				inv.Activities[i].ID = 0
				inv.Activities[i].InvoiceId = 0
			}

			inv.applyDerivedTotals()
			inv.TotalPaid = totalPaid
			inv.CurrentStatus = inv.deriveStatus(now)

			if err := tx.WithContext(ctx).Create(inv).Error; err != nil {
				return nil, err
			}

			if year, seq, ok := ParseInvoiceNumber(inv.InvoiceNumber); ok {
				if err := advanceSeriesAtLeast(tx, SeriesModuleInvoice, strconv.Itoa(year), seq); err != nil {
					return nil, err
				}
			}
			for _, payment := range inv.Payments {
				if period, seq, ok := ParseReceiptNumber(payment.ReceiptNumber); ok {
					if err := advanceSeriesAtLeast(tx, SeriesModuleReceipt, period, seq); err != nil {
						return nil, err
					}
				}
			}
		}
	}

	var touchedKeys []string
	if s := backup.Settings; s != nil {
		profile, err := GetCompanyProfile(ctx)
		if err != nil {
			return nil, err
		}
		profileTouched := false
		if s.CompanyName != nil {
			profile.Name = *s.CompanyName
			profileTouched = true
		}
		if s.CompanyAddress != nil {
			profile.Address = *s.CompanyAddress
			profileTouched = true
		}
		if s.CompanyEmail != nil {
			profile.Email = *s.CompanyEmail
			profileTouched = true
		}
		if s.CompanyPhone != nil {
			profile.Phone = *s.CompanyPhone
			profileTouched = true
		}
		if s.CompanyWebsite != nil {
			profile.Website = *s.CompanyWebsite
			profileTouched = true
		}
		if profileTouched {
			raw, err := utils.MarshalToJSON(profile)
			if err != nil {
				return nil, err
			}
			if err := upsertSetting(tx, SettingKeyCompanyProfile, raw); err != nil {
				return nil, err
			}
			touchedKeys = append(touchedKeys, settingCacheKey(SettingKeyCompanyProfile))
		}
		if s.Theme != nil {
			raw, err := utils.MarshalToJSON(s.Theme)
			if err != nil {
				return nil, err
			}
			if err := upsertSetting(tx, SettingKeyTheme, raw); err != nil {
				return nil, err
			}
			touchedKeys = append(touchedKeys, settingCacheKey(SettingKeyTheme))
		}
		if s.Logo != nil {
			if err := upsertSetting(tx, SettingKeyLogo, *s.Logo); err != nil {
				return nil, err
			}
			touchedKeys = append(touchedKeys, settingCacheKey(SettingKeyLogo))
		}
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	if len(touchedKeys) > 0 {
		_ = config.RemoveRedisKey(touchedKeys...)
	}
	return backup, nil
}
