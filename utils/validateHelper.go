package utils

import (
	"context"
	"errors"
	"reflect"

	"github.com/mmdatafocus/returns_backend/config"
	"gorm.io/gorm"
)

// ExistingIds returns the subset of ids that exist for model T.
func ExistingIds[T any](ctx context.Context, tx *gorm.DB, ids []int) (map[int]bool, error) {
	var model T
	found := make(map[int]bool, len(ids))
	unqIds := UniqueSlice(ids)
	if len(unqIds) == 0 {
		return found, nil
	}
	var existing []int
	if err := dbOrDefault(tx).WithContext(ctx).Model(&model).Where("id IN ?", unqIds).Pluck("id", &existing).Error; err != nil {
		return nil, err
	}
	for _, id := range existing {
		found[id] = true
	}
	return found, nil
}

// ValidateUnique fails when another row (other than exceptId) holds value in column.
func ValidateUnique[T any](ctx context.Context, tx *gorm.DB, column string, value interface{}, exceptId interface{}) error {
	var count int64
	var err error
	if exceptId == nil || reflect.ValueOf(exceptId).IsZero() {
		count, err = ResourceCountWhere[T](ctx, tx, column+" = ?", value)
	} else {
		count, err = ResourceCountWhere[T](ctx, tx, column+" = ? AND NOT id = ?", value, exceptId)
	}

	if err != nil {
		return err
	}
	if count > 0 {
		return errors.New("duplicate " + column)
	}
	return nil
}

// count records, using WHERE $condition
func ResourceCountWhere[T any](ctx context.Context, tx *gorm.DB, condition string, value ...interface{}) (int64, error) {
	var model T
	var count int64
	if err := dbOrDefault(tx).WithContext(ctx).Model(&model).Where(condition, value...).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func dbOrDefault(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return config.GetDB()
}
