package models

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/bsm/redislock"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/infusitech/invoices_backend/config"
)

// NumberSeries is the durable sequence generator behind invoice and receipt
// numbers. One row per (module, period); NextSeq only moves forward, so
// deleting documents never frees their numbers for reuse.
type NumberSeries struct {
	ID        int       `gorm:"primary_key" json:"id"`
	Module    string    `gorm:"size:50;not null;uniqueIndex:idx_series_module_period,priority:1" json:"module"`
	Period    string    `gorm:"size:20;not null;uniqueIndex:idx_series_module_period,priority:2" json:"period"`
	NextSeq   int64     `gorm:"not null;default:0" json:"next_seq"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

const (
	SeriesModuleInvoice = "invoice"
	SeriesModuleReceipt = "receipt"
)

var (
	invoiceNumberPattern = regexp.MustCompile(`^INF-(\d{4})-(\d{3,})$`)
	receiptNumberPattern = regexp.MustCompile(`^REC-(\d{8})-(\d{3,})$`)
)

// nextSeriesNumber allocates the next sequence inside the caller's
// transaction. The row is locked FOR UPDATE so concurrent allocations
// serialize on the database even when the redis lock is unavailable.
func nextSeriesNumber(tx *gorm.DB, module string, period string) (int64, error) {
	var series NumberSeries
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("module = ? AND period = ?", module, period).
		First(&series).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		series = NumberSeries{Module: module, Period: period, NextSeq: 1}
		if err := tx.Create(&series).Error; err != nil {
			return 0, err
		}
		return 1, nil
	}
	if err != nil {
		return 0, err
	}

	series.NextSeq++
	if err := tx.Model(&series).Update("next_seq", series.NextSeq).Error; err != nil {
		return 0, err
	}
	return series.NextSeq, nil
}

// advanceSeriesAtLeast moves the series forward so future allocations start
// after seq. Used by backup import; never moves the series backwards.
func advanceSeriesAtLeast(tx *gorm.DB, module string, period string, seq int64) error {
	var series NumberSeries
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("module = ? AND period = ?", module, period).
		First(&series).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return tx.Create(&NumberSeries{Module: module, Period: period, NextSeq: seq}).Error
	}
	if err != nil {
		return err
	}
	if series.NextSeq >= seq {
		return nil
	}
	return tx.Model(&series).Update("next_seq", seq).Error
}

// seriesLock obtains a best-effort redis lock for a series key.
// Reliability must not depend on redis: the FOR UPDATE row lock in
// nextSeriesNumber serializes allocation regardless. Callers always get a
// release func, which is a no-op when the lock was not obtained.
func seriesLock(ctx context.Context, key string) func() {
	locker := config.GetRedisLock()
	if locker == nil {
		return func() {}
	}
	lock, err := locker.Obtain(ctx, "series:"+key, 10*time.Second, nil)
	if err != nil {
		if err != redislock.ErrNotObtained {
			logger := config.GetLogger()
			config.LogError(logger, "numberSeries.go", "seriesLock", "Obtain", key, err)
		}
		return func() {}
	}
	return func() {
		_ = lock.Release(ctx)
	}
}

func FormatInvoiceNumber(year int, seq int64) string {
	return fmt.Sprintf("INF-%d-%03d", year, seq)
}

func FormatReceiptNumber(date time.Time, seq int64) string {
	return fmt.Sprintf("REC-%s-%03d", date.Format("20060102"), seq)
}

// ParseInvoiceNumber extracts the year and sequence from an invoice number.
func ParseInvoiceNumber(number string) (year int, seq int64, ok bool) {
	m := invoiceNumberPattern.FindStringSubmatch(number)
	if m == nil {
		return 0, 0, false
	}
	year, _ = strconv.Atoi(m[1])
	seq, _ = strconv.ParseInt(m[2], 10, 64)
	return year, seq, true
}

// ParseReceiptNumber extracts the day period and sequence from a receipt
// number.
func ParseReceiptNumber(number string) (period string, seq int64, ok bool) {
	m := receiptNumberPattern.FindStringSubmatch(number)
	if m == nil {
		return "", 0, false
	}
	seq, _ = strconv.ParseInt(m[2], 10, 64)
	return m[1], seq, true
}
