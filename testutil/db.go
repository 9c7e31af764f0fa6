// Package testutil opens throwaway SQLite databases wired into config for tests.
package testutil

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/mmdatafocus/returns_backend/appctx"
	"github.com/mmdatafocus/returns_backend/config"
	"github.com/mmdatafocus/returns_backend/models"
	"github.com/mmdatafocus/returns_backend/utils"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// OpenDB installs a fresh in-memory database as config.GetDB() and migrates it.
// A single connection keeps every goroutine on the same in-memory database.
func OpenDB(t testing.TB) *gorm.DB {
	t.Helper()
	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared&_foreign_keys=on"
	db, err := gorm.Open(sqlite.Open(dsn), config.GormConfig())
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	prev := config.GetDB()
	config.SetDB(db)
	require.NoError(t, models.Migrate())
	t.Cleanup(func() {
		config.SetDB(prev)
		_ = sqlDB.Close()
	})
	return db
}

func CreateStore(t testing.TB, name string, code string) *models.Account {
	t.Helper()
	account, _, err := models.CreateAccount(context.Background(), &models.NewAccount{
		LoginId:   "store_" + code,
		Secret:    "store_password123",
		Name:      name,
		Role:      models.AccountRoleStore,
		StoreCode: code,
	})
	require.NoError(t, err)
	return account
}

func CreateAdmin(t testing.TB) *models.Account {
	t.Helper()
	account, _, err := models.CreateAccount(context.Background(), &models.NewAccount{
		LoginId: "admin",
		Secret:  "admin_password123",
		Name:    "本部管理者",
		Role:    models.AccountRoleHQ,
	})
	require.NoError(t, err)
	return account
}

func CreateProducts(t testing.TB, names ...string) []*models.Product {
	t.Helper()
	products := make([]*models.Product, 0, len(names))
	for _, name := range names {
		p, err := models.CreateProduct(context.Background(), &models.NewProduct{Name: name})
		require.NoError(t, err)
		products = append(products, p)
	}
	return products
}

// SessionContext returns a context carrying a session for account.
func SessionContext(account *models.Account) context.Context {
	return utils.SetSessionInContext(context.Background(), &appctx.Session{
		AccountId: account.ID,
		LoginId:   account.LoginId,
		Name:      account.Name,
		Role:      string(account.Role),
		StoreCode: account.StoreCodeValue(),
	})
}
