package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/infusitech/invoices_backend/config"
	"github.com/infusitech/invoices_backend/utils"
)

// Setting is a single key/value configuration row. Values are JSON except
// for the logo, which is stored as a raw data URI string.
type Setting struct {
	Key       string    `gorm:"primaryKey;size:100" json:"key"`
	Value     string    `gorm:"type:longtext" json:"value"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

const (
	SettingKeyTheme          = "theme"
	SettingKeyCompanyProfile = "company_profile"
	SettingKeyLogo           = "logo"
)

// Theme holds one palette selection per slot. Slots are independent; a
// brown primary with a green background is a valid theme.
type Theme struct {
	Primary    string `json:"primary"`
	Secondary  string `json:"secondary"`
	Accent     string `json:"accent"`
	Background string `json:"background"`
}

// themePalette maps slot -> palette value -> hex code rendered into
// exported documents. The five values per slot mirror the picker in the UI.
var themePalette = map[string]map[string]string{
	"primary": {
		"blue":  "#2563eb",
		"brown": "#92400e",
		"gold":  "#ca8a04",
		"black": "#111827",
		"green": "#176636",
	},
	"secondary": {
		"blue":  "#dbeafe",
		"brown": "#fef3c7",
		"gold":  "#fef9c3",
		"black": "#f3f4f6",
		"green": "#EAF1C8",
	},
	"accent": {
		"blue":  "#3b82f6",
		"brown": "#d97706",
		"gold":  "#ca8a04",
		"black": "#111827",
		"green": "#73B37F",
	},
	"background": {
		"blue":  "#eff6ff",
		"brown": "#fffbeb",
		"gold":  "#fefce8",
		"black": "#f9fafb",
		"green": "#EAF1C8",
	},
}

func DefaultTheme() Theme {
	return Theme{Primary: "blue", Secondary: "blue", Accent: "blue", Background: "blue"}
}

func (t *Theme) validate(_ context.Context) error {
	slots := map[string]string{
		"primary":    t.Primary,
		"secondary":  t.Secondary,
		"accent":     t.Accent,
		"background": t.Background,
	}
	for slot, value := range slots {
		if _, ok := themePalette[slot][value]; !ok {
			return fmt.Errorf("%s is not a valid %s color", value, slot)
		}
	}
	return nil
}

// Hex resolves the slot's selection to its hex code, falling back to the
// default palette when the stored value is unknown.
func (t Theme) Hex(slot string) string {
	palette, ok := themePalette[slot]
	if !ok {
		return themePalette["primary"]["blue"]
	}
	if hex, ok := palette[t.valueFor(slot)]; ok {
		return hex
	}
	return palette["blue"]
}

func (t Theme) valueFor(slot string) string {
	switch slot {
	case "primary":
		return t.Primary
	case "secondary":
		return t.Secondary
	case "accent":
		return t.Accent
	case "background":
		return t.Background
	default:
		return ""
	}
}

// PrimaryHex is the color stamped on exported documents.
func (t Theme) PrimaryHex() string {
	return t.Hex("primary")
}

type CompanyProfile struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Website string `json:"website"`
}

func DefaultCompanyProfile() CompanyProfile {
	return CompanyProfile{Name: "Infusi Technologies Limited", Address: "Ghana"}
}

func (p *CompanyProfile) validate(_ context.Context) error {
	if p.Name == "" {
		return errors.New("company name is required")
	}
	if p.Email != "" && !utils.IsValidEmail(p.Email) {
		return errors.New("company email is not valid")
	}
	if p.Phone != "" {
		if err := utils.ValidatePhoneNumber(p.Phone, utils.CountryCode); err != nil {
			return errors.New("company phone number is not valid")
		}
	}
	return nil
}

func settingCacheKey(key string) string {
	return "Setting:" + key
}

func getSettingValue(ctx context.Context, key string) (string, bool, error) {
	var cached string
	if found, _ := config.GetRedisObject(settingCacheKey(key), &cached); found {
		return cached, true, nil
	}

	db := config.GetDB()
	var setting Setting
	err := db.WithContext(ctx).First(&setting, "`key` = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}

	if err := config.SetRedisObject(settingCacheKey(key), setting.Value, time.Hour); err != nil {
		logger := config.GetLogger()
		config.LogError(logger, "settings.go", "getSettingValue", "SetRedisObject", key, err)
	}
	return setting.Value, true, nil
}

func upsertSetting(tx *gorm.DB, key string, value string) error {
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&Setting{Key: key, Value: value}).Error
}

func setSettingValue(ctx context.Context, key string, value string) error {
	db := config.GetDB()
	if err := upsertSetting(db.WithContext(ctx), key, value); err != nil {
		return err
	}
	return config.RemoveRedisKey(settingCacheKey(key))
}

// GetTheme loads the saved theme. Missing or unparseable rows fall back to
// the default rather than failing the request.
func GetTheme(ctx context.Context) (*Theme, error) {
	raw, found, err := getSettingValue(ctx, SettingKeyTheme)
	if err != nil {
		return nil, err
	}
	theme := DefaultTheme()
	if !found {
		return &theme, nil
	}
	if err := utils.UnmarshalFromJSON([]byte(raw), &theme); err != nil {
		logger := config.GetLogger()
		config.LogError(logger, "settings.go", "GetTheme", "Unmarshal", raw, err)
		theme = DefaultTheme()
	}
	return &theme, nil
}

func SaveTheme(ctx context.Context, input *Theme) (*Theme, error) {
	if err := input.validate(ctx); err != nil {
		return nil, err
	}
	raw, err := utils.MarshalToJSON(input)
	if err != nil {
		return nil, err
	}
	if err := setSettingValue(ctx, SettingKeyTheme, raw); err != nil {
		return nil, err
	}
	return input, nil
}

func GetCompanyProfile(ctx context.Context) (*CompanyProfile, error) {
	raw, found, err := getSettingValue(ctx, SettingKeyCompanyProfile)
	if err != nil {
		return nil, err
	}
	profile := DefaultCompanyProfile()
	if !found {
		return &profile, nil
	}
	if err := utils.UnmarshalFromJSON([]byte(raw), &profile); err != nil {
		logger := config.GetLogger()
		config.LogError(logger, "settings.go", "GetCompanyProfile", "Unmarshal", raw, err)
		profile = DefaultCompanyProfile()
	}
	return &profile, nil
}

func SaveCompanyProfile(ctx context.Context, input *CompanyProfile) (*CompanyProfile, error) {
	if err := input.validate(ctx); err != nil {
		return nil, err
	}
	raw, err := utils.MarshalToJSON(input)
	if err != nil {
		return nil, err
	}
	if err := setSettingValue(ctx, SettingKeyCompanyProfile, raw); err != nil {
		return nil, err
	}
	return input, nil
}

// GetLogo returns the stored logo data URI, empty when none is set.
func GetLogo(ctx context.Context) (string, error) {
	raw, found, err := getSettingValue(ctx, SettingKeyLogo)
	if err != nil || !found {
		return "", err
	}
	return raw, nil
}

func SaveLogo(ctx context.Context, dataURI string) error {
	return setSettingValue(ctx, SettingKeyLogo, dataURI)
}

func RemoveLogo(ctx context.Context) error {
	db := config.GetDB()
	if err := db.WithContext(ctx).Delete(&Setting{Key: SettingKeyLogo}).Error; err != nil {
		return err
	}
	return config.RemoveRedisKey(settingCacheKey(SettingKeyLogo))
}
