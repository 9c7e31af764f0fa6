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

// Account is either the HQ administrator or a store.
// StoreCode is set iff Role is STORE.
type Account struct {
	ID        int         `gorm:"primary_key" json:"id"`
	LoginId   string      `gorm:"size:100;not null;uniqueIndex" json:"login_id"`
	Secret    string      `gorm:"size:255;not null" json:"-"`
	Name      string      `gorm:"size:100;not null" json:"name"`
	Role      AccountRole `gorm:"size:10;not null;index" json:"role"`
	StoreCode *string     `gorm:"size:20;uniqueIndex" json:"store_code"`
	Phone     string      `gorm:"size:20" json:"phone"`
	CreatedAt time.Time   `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time   `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewAccount struct {
	LoginId   string      `json:"login_id" validate:"required,max=100"`
	Secret    string      `json:"secret" validate:"omitempty,min=8,max=72"`
	Name      string      `json:"name" validate:"required,max=100"`
	Role      AccountRole `json:"role" validate:"required"`
	StoreCode string      `json:"store_code" validate:"max=20"`
	Phone     string      `json:"phone" validate:"max=20"`
}

type AccountUpdate struct {
	LoginId   string `json:"login_id" validate:"required,max=100"`
	Name      string `json:"name" validate:"required,max=100"`
	StoreCode string `json:"store_code" validate:"max=20"`
	Phone     string `json:"phone" validate:"max=20"`
	// optional; rotates the secret when set
	Secret string `json:"secret" validate:"omitempty,min=8,max=72"`
}

const generatedSecretLength = 8

/*
caches:
	Account:$id
*/

func (a Account) RemoveInstanceRedis() error {
	return utils.RemoveRedisItem[Account](strconv.Itoa(a.ID))
}

func (a *Account) IsStore() bool {
	return a.Role == AccountRoleStore
}

func (a *Account) StoreCodeValue() string {
	return utils.DereferencePtr(a.StoreCode)
}

func normalizeStoreFields(role AccountRole, storeCode string, phone string) (*string, string, error) {
	storeCode = strings.TrimSpace(storeCode)
	if role == AccountRoleStore && storeCode == "" {
		return nil, "", fmt.Errorf("%w: store code is required for store accounts", ErrInvalidInput)
	}
	if role == AccountRoleHQ && storeCode != "" {
		return nil, "", fmt.Errorf("%w: store code is only allowed for store accounts", ErrInvalidInput)
	}
	phone = strings.TrimSpace(phone)
	if phone != "" {
		if err := utils.ValidatePhoneNumber(phone, "JP"); err != nil {
			return nil, "", fmt.Errorf("%w: phone number: %v", ErrInvalidInput, err)
		}
		formatted, err := utils.FormatPhoneNumber(phone, "JP")
		if err == nil {
			phone = formatted
		}
	}
	return utils.NilIfEmpty(storeCode), phone, nil
}

func validateAccountKeys(ctx context.Context, tx *gorm.DB, loginId string, storeCode *string, exceptId int) error {
	if err := utils.ValidateUnique[Account](ctx, tx, "login_id", loginId, exceptId); err != nil {
		if strings.HasPrefix(err.Error(), "duplicate") {
			return fmt.Errorf("%w: login id %q", ErrDuplicateKey, loginId)
		}
		return err
	}
	if storeCode != nil {
		if err := utils.ValidateUnique[Account](ctx, tx, "store_code", *storeCode, exceptId); err != nil {
			if strings.HasPrefix(err.Error(), "duplicate") {
				return fmt.Errorf("%w: store code %q", ErrDuplicateKey, *storeCode)
			}
			return err
		}
	}
	return nil
}

// CreateAccount returns the account and, when the input carried no secret,
// the generated plaintext secret. It is never stored or returned again.
func CreateAccount(ctx context.Context, input *NewAccount) (*Account, string, error) {
	db := config.GetDB()
	if db == nil {
		return nil, "", ErrStorageUnavailable
	}
	if err := utils.ValidateStruct(input); err != nil {
		return nil, "", err
	}
	if !input.Role.IsValid() {
		return nil, "", fmt.Errorf("%w: account role", ErrInvalidInput)
	}
	storeCode, phone, err := normalizeStoreFields(input.Role, input.StoreCode, input.Phone)
	if err != nil {
		return nil, "", err
	}

	generated := ""
	secret := input.Secret
	if secret == "" {
		if secret, err = utils.GenerateSecret(generatedSecretLength); err != nil {
			return nil, "", err
		}
		generated = secret
	}
	hashed, err := utils.HashPassword(secret)
	if err != nil {
		return nil, "", err
	}

	account := Account{
		LoginId:   strings.TrimSpace(input.LoginId),
		Secret:    string(hashed),
		Name:      strings.TrimSpace(input.Name),
		Role:      input.Role,
		StoreCode: storeCode,
		Phone:     phone,
	}

	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := validateAccountKeys(ctx, tx, account.LoginId, account.StoreCode, 0); err != nil {
			return err
		}
		return tx.Create(&account).Error
	})
	if err != nil {
		return nil, "", storageErr(err)
	}
	if account.IsStore() {
		InvalidateAllReportCaches()
	}
	return &account, generated, nil
}

func GetAccount(ctx context.Context, id int) (*Account, error) {
	db := config.GetDB()
	if db == nil {
		return nil, ErrStorageUnavailable
	}
	var result Account
	if err := db.WithContext(ctx).First(&result, id).Error; err != nil {
		return nil, storageErr(err)
	}
	return &result, nil
}

// GetAccountCached reads Account:$id from redis, falling back to the database.
func GetAccountCached(ctx context.Context, id int) (*Account, error) {
	cached, err := utils.RetrieveRedis[Account](strconv.Itoa(id))
	if err != nil {
		config.LogError(config.GetLogger(), "account.go", "GetAccountCached", "RetrieveRedis", id, err)
	}
	if cached != nil {
		return cached, nil
	}
	account, err := GetAccount(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := utils.StoreRedis(account, strconv.Itoa(id)); err != nil {
		config.LogError(config.GetLogger(), "account.go", "GetAccountCached", "StoreRedis", id, err)
	}
	return account, nil
}

// ListStores returns all store accounts ordered by store code.
func ListStores(ctx context.Context) ([]*Account, error) {
	db := config.GetDB()
	if db == nil {
		return nil, ErrStorageUnavailable
	}
	var results []*Account
	if err := db.WithContext(ctx).
		Where("role = ?", AccountRoleStore).
		Order("store_code ASC").Order("id ASC").
		Find(&results).Error; err != nil {
		return nil, storageErr(err)
	}
	return results, nil
}

// UpdateAccount renames, recodes or changes the login id; a non-empty Secret rotates it.
func UpdateAccount(ctx context.Context, id int, input *AccountUpdate) (*Account, error) {
	db := config.GetDB()
	if db == nil {
		return nil, ErrStorageUnavailable
	}
	if err := utils.ValidateStruct(input); err != nil {
		return nil, err
	}

	var account Account
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&account, id).Error; err != nil {
			return err
		}
		storeCode, phone, err := normalizeStoreFields(account.Role, input.StoreCode, input.Phone)
		if err != nil {
			return err
		}
		loginId := strings.TrimSpace(input.LoginId)
		if err := validateAccountKeys(ctx, tx, loginId, storeCode, id); err != nil {
			return err
		}
		updates := map[string]interface{}{
			"login_id":   loginId,
			"name":       strings.TrimSpace(input.Name),
			"store_code": storeCode,
			"phone":      phone,
		}
		if input.Secret != "" {
			hashed, err := utils.HashPassword(input.Secret)
			if err != nil {
				return err
			}
			updates["secret"] = string(hashed)
		}
		if err := tx.Model(&account).Updates(updates).Error; err != nil {
			return err
		}
		return tx.First(&account, id).Error
	})
	if err != nil {
		return nil, storageErr(err)
	}
	if err := account.RemoveInstanceRedis(); err != nil {
		config.LogError(config.GetLogger(), "account.go", "UpdateAccount", "RemoveInstanceRedis", id, err)
	}
	if account.IsStore() {
		InvalidateAllReportCaches()
	}
	return &account, nil
}

// RotateAccountSecret replaces the secret; an empty secret generates one and returns it.
func RotateAccountSecret(ctx context.Context, id int, secret string) (string, error) {
	db := config.GetDB()
	if db == nil {
		return "", ErrStorageUnavailable
	}
	generated := ""
	if secret == "" {
		var err error
		if secret, err = utils.GenerateSecret(generatedSecretLength); err != nil {
			return "", err
		}
		generated = secret
	} else if len(secret) < 8 || len(secret) > 72 {
		return "", fmt.Errorf("%w: secret must be between 8 and 72 characters", ErrInvalidInput)
	}
	hashed, err := utils.HashPassword(secret)
	if err != nil {
		return "", err
	}
	result := db.WithContext(ctx).Model(&Account{}).Where("id = ?", id).Update("secret", string(hashed))
	if result.Error != nil {
		return "", storageErr(result.Error)
	}
	if result.RowsAffected == 0 {
		return "", ErrRecordNotFound
	}
	return generated, nil
}

// DeleteAccount removes the account and every report it owns in one transaction.
func DeleteAccount(ctx context.Context, id int) (*Account, error) {
	db := config.GetDB()
	if db == nil {
		return nil, ErrStorageUnavailable
	}
	var account Account
	var removed int64
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&account, id).Error; err != nil {
			return err
		}
		result := tx.Where("store_id = ?", id).Delete(&Report{})
		if result.Error != nil {
			return result.Error
		}
		removed = result.RowsAffected
		return tx.Delete(&account).Error
	})
	if err != nil {
		return nil, storageErr(err)
	}
	if err := account.RemoveInstanceRedis(); err != nil {
		config.LogError(config.GetLogger(), "account.go", "DeleteAccount", "RemoveInstanceRedis", id, err)
	}
	if account.IsStore() {
		InvalidateAllReportCaches()
	}
	config.GetLogger().WithField("account_id", id).WithField("reports_removed", removed).Info("account deleted")
	return &account, nil
}

// GetAccountsByIds is used by the store dataloader.
func GetAccountsByIds(ctx context.Context, ids []int) ([]*Account, error) {
	db := config.GetDB()
	if db == nil {
		return nil, ErrStorageUnavailable
	}
	var results []*Account
	if err := db.WithContext(ctx).Where("id IN ?", utils.UniqueSlice(ids)).Find(&results).Error; err != nil {
		return nil, storageErr(err)
	}
	return results, nil
}
