package models

import (
	"context"
	"time"

	"github.com/mmdatafocus/returns_backend/config"
	"github.com/mmdatafocus/returns_backend/utils"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PeriodLock marks a period closed; submissions for it are rejected.
type PeriodLock struct {
	Period    string    `gorm:"primaryKey;size:10" json:"period"`
	ClosedBy  int       `json:"closed_by"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"closed_at"`
}

func isPeriodClosedTx(tx *gorm.DB, period string) (bool, error) {
	var count int64
	if err := tx.Model(&PeriodLock{}).Where("period = ?", period).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func IsPeriodClosed(ctx context.Context, period string) (bool, error) {
	if _, err := ParsePeriod(period); err != nil {
		return false, err
	}
	db := config.GetDB()
	if db == nil {
		return false, ErrStorageUnavailable
	}
	closed, err := isPeriodClosedTx(db.WithContext(ctx), period)
	if err != nil {
		return false, storageErr(err)
	}
	return closed, nil
}

// ClosePeriod is idempotent; closing an already closed period keeps the first lock.
func ClosePeriod(ctx context.Context, period string) (*PeriodLock, error) {
	if _, err := ParsePeriod(period); err != nil {
		return nil, err
	}
	db := config.GetDB()
	if db == nil {
		return nil, ErrStorageUnavailable
	}
	lock := PeriodLock{Period: period}
	if accountId, ok := utils.GetAccountIdFromContext(ctx); ok {
		lock.ClosedBy = accountId
	}
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// submissions hold their store row until commit; waiting on every store
		// row means no submission that saw the period open commits after this
		var stores []Account
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Select("id").
			Where("role = ?", AccountRoleStore).
			Order("id ASC").
			Find(&stores).Error; err != nil {
			return err
		}
		result := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&lock)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected > 0 {
			if err := writePeriodEvent(ctx, tx, ReportEventPeriodClosed, period); err != nil {
				return err
			}
		}
		return tx.First(&lock, "period = ?", period).Error
	})
	if err != nil {
		return nil, storageErr(err)
	}
	InvalidatePeriodCache(period)
	logPeriodChange(ctx, "period closed", period)
	return &lock, nil
}

func ReopenPeriod(ctx context.Context, period string) error {
	if _, err := ParsePeriod(period); err != nil {
		return err
	}
	db := config.GetDB()
	if db == nil {
		return ErrStorageUnavailable
	}
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Where("period = ?", period).Delete(&PeriodLock{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrRecordNotFound
		}
		return writePeriodEvent(ctx, tx, ReportEventPeriodReopened, period)
	})
	if err != nil {
		return storageErr(err)
	}
	InvalidatePeriodCache(period)
	logPeriodChange(ctx, "period reopened", period)
	return nil
}

func logPeriodChange(ctx context.Context, msg string, period string) {
	loginId, _ := utils.GetLoginIdFromContext(ctx)
	config.GetLogger().WithFields(logrus.Fields{
		"field":    "PeriodLock",
		"period":   period,
		"login_id": loginId,
	}).Info(msg)
}

func ListClosedPeriods(ctx context.Context) ([]*PeriodLock, error) {
	db := config.GetDB()
	if db == nil {
		return nil, ErrStorageUnavailable
	}
	var results []*PeriodLock
	if err := db.WithContext(ctx).Order("period DESC").Find(&results).Error; err != nil {
		return nil, storageErr(err)
	}
	return results, nil
}

func writePeriodEvent(ctx context.Context, tx *gorm.DB, eventType string, period string) error {
	if !config.PubSubEnabled() {
		return nil
	}
	cid, _ := utils.GetCorrelationIdFromContext(ctx)
	return tx.Create(&ReportEvent{
		EventType:     eventType,
		Period:        period,
		PublishStatus: OutboxPublishStatusPending,
		CorrelationId: cid,
	}).Error
}
