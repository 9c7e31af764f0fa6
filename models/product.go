package models

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/mmdatafocus/returns_backend/config"
	"github.com/mmdatafocus/returns_backend/utils"
	"gorm.io/gorm"
)

// Product is a catalog item stores can report returns against.
// Column order in the matrix follows CreatedAt then ID.
type Product struct {
	ID        int       `gorm:"primary_key" json:"id"`
	Name      string    `gorm:"size:100;not null" json:"name"`
	IsMaster  *bool     `gorm:"not null;default:true" json:"is_master"`
	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewProduct struct {
	Name     string `json:"name" validate:"required,max=100"`
	IsMaster *bool  `json:"is_master"`
}

/*
caches:
	Product:$id
	ProductList@$catalogGeneration
*/

const productListCacheKey = "ProductList"

// RemoveInstanceRedis drops the cached product; the list is retired by
// InvalidateAllReportCaches bumping the catalog generation.
func (p Product) RemoveInstanceRedis() error {
	return utils.RemoveRedisItem[Product](strconv.Itoa(p.ID))
}

func CreateProduct(ctx context.Context, input *NewProduct) (*Product, error) {
	db := config.GetDB()
	if db == nil {
		return nil, ErrStorageUnavailable
	}
	if err := utils.ValidateStruct(input); err != nil {
		return nil, err
	}
	isMaster := true
	if input.IsMaster != nil {
		isMaster = *input.IsMaster
	}
	product := Product{
		Name:     strings.TrimSpace(input.Name),
		IsMaster: &isMaster,
	}
	if product.Name == "" {
		return nil, fmt.Errorf("%w: product name is required", ErrInvalidInput)
	}
	if err := db.WithContext(ctx).Create(&product).Error; err != nil {
		return nil, storageErr(err)
	}
	if err := product.RemoveInstanceRedis(); err != nil {
		config.LogError(config.GetLogger(), "product.go", "CreateProduct", "RemoveInstanceRedis", product.ID, err)
	}
	InvalidateAllReportCaches()
	return &product, nil
}

// RenameProduct keeps existing reports; they display under the new name.
func RenameProduct(ctx context.Context, id int, name string) (*Product, error) {
	db := config.GetDB()
	if db == nil {
		return nil, ErrStorageUnavailable
	}
	name = strings.TrimSpace(name)
	if name == "" || len([]rune(name)) > 100 {
		return nil, fmt.Errorf("%w: product name must be 1 to 100 characters", ErrInvalidInput)
	}
	var product Product
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&product, id).Error; err != nil {
			return err
		}
		if err := tx.Model(&product).Update("name", name).Error; err != nil {
			return err
		}
		return tx.First(&product, id).Error
	})
	if err != nil {
		return nil, storageErr(err)
	}
	if err := product.RemoveInstanceRedis(); err != nil {
		config.LogError(config.GetLogger(), "product.go", "RenameProduct", "RemoveInstanceRedis", id, err)
	}
	InvalidateAllReportCaches()
	return &product, nil
}

// DeleteProduct removes the product and every report referencing it.
func DeleteProduct(ctx context.Context, id int) (*Product, error) {
	db := config.GetDB()
	if db == nil {
		return nil, ErrStorageUnavailable
	}
	var product Product
	var removed int64
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&product, id).Error; err != nil {
			return err
		}
		result := tx.Where("product_id = ?", id).Delete(&Report{})
		if result.Error != nil {
			return result.Error
		}
		removed = result.RowsAffected
		return tx.Delete(&product).Error
	})
	if err != nil {
		return nil, storageErr(err)
	}
	if err := product.RemoveInstanceRedis(); err != nil {
		config.LogError(config.GetLogger(), "product.go", "DeleteProduct", "RemoveInstanceRedis", id, err)
	}
	InvalidateAllReportCaches()
	config.GetLogger().WithField("product_id", id).WithField("reports_removed", removed).Info("product deleted")
	return &product, nil
}

func GetProduct(ctx context.Context, id int) (*Product, error) {
	db := config.GetDB()
	if db == nil {
		return nil, ErrStorageUnavailable
	}
	var result Product
	if err := db.WithContext(ctx).First(&result, id).Error; err != nil {
		return nil, storageErr(err)
	}
	return &result, nil
}

// ListProducts returns the catalog in matrix column order.
func ListProducts(ctx context.Context) ([]*Product, error) {
	key := catalogCacheKey(productListCacheKey)
	var cached []*Product
	if key != "" {
		if ok, err := config.GetRedisObject(key, &cached); err == nil && ok {
			return cached, nil
		}
	}
	db := config.GetDB()
	if db == nil {
		return nil, ErrStorageUnavailable
	}
	var results []*Product
	if err := db.WithContext(ctx).Order("created_at ASC").Order("id ASC").Find(&results).Error; err != nil {
		return nil, storageErr(err)
	}
	if key != "" {
		if err := config.SetRedisObject(key, results, utils.GetCacheLifespan()); err != nil {
			config.LogError(config.GetLogger(), "product.go", "ListProducts", "SetRedisObject", nil, err)
		}
	}
	return results, nil
}

// GetProductsByIds is used by the product dataloader.
func GetProductsByIds(ctx context.Context, ids []int) ([]*Product, error) {
	db := config.GetDB()
	if db == nil {
		return nil, ErrStorageUnavailable
	}
	var results []*Product
	if err := db.WithContext(ctx).Where("id IN ?", utils.UniqueSlice(ids)).Find(&results).Error; err != nil {
		return nil, storageErr(err)
	}
	return results, nil
}
