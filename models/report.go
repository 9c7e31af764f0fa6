package models

import (
	"context"
	"fmt"
	"time"

	"github.com/mmdatafocus/returns_backend/config"
)

// Report is one ledger fact: the quantity a store returned of a product in a period.
// (store_id, period, product_id) is unique.
type Report struct {
	ID             int             `gorm:"primary_key" json:"id"`
	StoreId        int             `gorm:"not null;uniqueIndex:idx_report_cell,priority:1" json:"store_id"`
	Period         string          `gorm:"size:10;not null;uniqueIndex:idx_report_cell,priority:2;index:idx_report_period" json:"period"`
	ProductId      int             `gorm:"not null;uniqueIndex:idx_report_cell,priority:3;index" json:"product_id"`
	Quantity       int             `gorm:"not null" json:"quantity"`
	DefectCategory *DefectCategory `gorm:"size:50" json:"defect_category"`
	Comment        string          `gorm:"type:text" json:"comment"`
	ImageRef       string          `gorm:"size:255" json:"image_ref"`
	CreatedAt      time.Time       `gorm:"autoCreateTime" json:"created_at"`
	Store          *Account        `gorm:"foreignKey:StoreId" json:"store,omitempty"`
	Product        *Product        `gorm:"foreignKey:ProductId" json:"product,omitempty"`
}

// GetReportsByPeriod returns every fact of the period. Store and Product are
// not loaded; callers resolve them through the matrix or the dataloaders.
func GetReportsByPeriod(ctx context.Context, period string) ([]*Report, error) {
	if _, err := ParsePeriod(period); err != nil {
		return nil, err
	}
	db := config.GetDB()
	if db == nil {
		return nil, ErrStorageUnavailable
	}
	var results []*Report
	if err := db.WithContext(ctx).
		Where("period = ?", period).
		Order("id ASC").
		Find(&results).Error; err != nil {
		return nil, storageErr(err)
	}
	return results, nil
}

// GetStoreReports is the store's own view of a period; cached per store and period.
func GetStoreReports(ctx context.Context, storeId int, period string) ([]*Report, error) {
	if _, err := ParsePeriod(period); err != nil {
		return nil, err
	}
	key, _ := ReportCacheKey(period, fmt.Sprintf("StoreReports:%d:%s", storeId, period))
	var cached []*Report
	if ok := GetCachedReport(period, key, &cached); ok {
		return cached, nil
	}
	db := config.GetDB()
	if db == nil {
		return nil, ErrStorageUnavailable
	}
	var results []*Report
	if err := db.WithContext(ctx).
		Where("store_id = ? AND period = ?", storeId, period).
		Order("product_id ASC").
		Find(&results).Error; err != nil {
		return nil, storageErr(err)
	}
	SetCachedReport(period, key, results)
	return results, nil
}

// GetCellReports returns the facts behind one matrix cell. More than one
// row means the uniqueness invariant was broken.
func GetCellReports(ctx context.Context, period string, storeId int, productId int) ([]*Report, error) {
	if _, err := ParsePeriod(period); err != nil {
		return nil, err
	}
	db := config.GetDB()
	if db == nil {
		return nil, ErrStorageUnavailable
	}
	var results []*Report
	if err := db.WithContext(ctx).
		Where("period = ? AND store_id = ? AND product_id = ?", period, storeId, productId).
		Order("id ASC").
		Find(&results).Error; err != nil {
		return nil, storageErr(err)
	}
	return results, nil
}

// ListReportedPeriods returns the distinct periods with at least one fact, newest first.
func ListReportedPeriods(ctx context.Context) ([]string, error) {
	db := config.GetDB()
	if db == nil {
		return nil, ErrStorageUnavailable
	}
	var periods []string
	if err := db.WithContext(ctx).Model(&Report{}).Distinct("period").Order("period DESC").Pluck("period", &periods).Error; err != nil {
		return nil, storageErr(err)
	}
	return periods, nil
}
