package models

import (
	"context"
	"log"

	"github.com/mmdatafocus/returns_backend/config"
	"gorm.io/gorm"
)

func MigrateTable() {
	if err := Migrate(); err != nil {
		log.Fatal(err)
	}
}

// Migrate creates or updates every table; callers decide how to fail.
func Migrate() error {
	db := config.GetDB()
	if db == nil {
		return ErrStorageUnavailable
	}
	return db.AutoMigrate(
		&Account{},
		&Product{},
		&Report{},
		&PeriodLock{},
		&ReportEvent{},
	)
}

// ResetData deletes every row of the portal's tables and clears caches.
func ResetData(ctx context.Context) error {
	db := config.GetDB()
	if db == nil {
		return ErrStorageUnavailable
	}
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, model := range []interface{}{&Report{}, &ReportEvent{}, &PeriodLock{}, &Product{}, &Account{}} {
			if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(model).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return storageErr(err)
	}
	if err := config.ClearRedis(ctx); err != nil {
		config.LogError(config.GetLogger(), "migration.go", "ResetData", "ClearRedis", nil, err)
	}
	return nil
}
