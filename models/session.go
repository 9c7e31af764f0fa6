package models

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/mmdatafocus/returns_backend/config"
	"github.com/mmdatafocus/returns_backend/utils"
	"gorm.io/gorm"
)

type LoginInfo struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
	AccountId int         `json:"account_id"`
	Name      string      `json:"name"`
	Role      AccountRole `json:"role"`
	StoreCode string      `json:"store_code,omitempty"`
}

var (
	dummySecretOnce sync.Once
	dummySecretHash string
)

// compared against when the login id is unknown so both paths cost a bcrypt round
func getDummySecretHash() string {
	dummySecretOnce.Do(func() {
		hashed, _ := utils.HashPassword("unknown-login-placeholder")
		dummySecretHash = string(hashed)
	})
	return dummySecretHash
}

// Login checks credentials and issues a signed session token.
func Login(ctx context.Context, loginId string, secret string) (*LoginInfo, error) {
	db := config.GetDB()
	if db == nil {
		return nil, ErrStorageUnavailable
	}
	var account Account
	err := db.WithContext(ctx).Where("login_id = ?", strings.TrimSpace(loginId)).Take(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			_ = utils.ComparePassword(getDummySecretHash(), secret)
			return nil, ErrInvalidCredentials
		}
		return nil, storageErr(err)
	}
	if err := utils.ComparePassword(account.Secret, secret); err != nil {
		return nil, ErrInvalidCredentials
	}

	token, claims, err := utils.JwtGenerate(account.ID, string(account.Role), config.TokenLifespan())
	if err != nil {
		return nil, err
	}
	config.GetLogger().WithField("account_id", account.ID).Info("login")
	return &LoginInfo{
		Token:     token,
		ExpiresAt: time.Unix(claims.ExpiresAt, 0).UTC(),
		AccountId: account.ID,
		Name:      account.Name,
		Role:      account.Role,
		StoreCode: account.StoreCodeValue(),
	}, nil
}

func revokedTokenKey(tokenId string) string {
	return "RevokedToken:" + tokenId
}

// Logout revokes the token until it would have expired anyway.
// Without redis the token stays valid until expiry.
func Logout(ctx context.Context, tokenId string, expiresAt time.Time) error {
	if tokenId == "" {
		return nil
	}
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}
	return config.SetRedisValue(revokedTokenKey(tokenId), "1", ttl)
}

func IsTokenRevoked(tokenId string) (bool, error) {
	if tokenId == "" {
		return false, nil
	}
	_, ok, err := config.GetRedisValue(revokedTokenKey(tokenId))
	return ok, err
}
