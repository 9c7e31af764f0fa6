// seed-dev resets the database to a demo dataset: the HQ admin, five products
// and four stores with sample returns for 2026-01-A.
//
// Usage (from backend directory):
//
//	DB_USER=... DB_PASSWORD=... DB_HOST=... DB_PORT=... DB_NAME=... go run ./cmd/seed-dev
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/mmdatafocus/returns_backend/config"
	"github.com/mmdatafocus/returns_backend/models"
)

const seedPeriod = "2026-01-A"

var seedProducts = []string{"ダンボールA", "化粧箱B", "緩衝材C", "パレットD", "PPバンドE"}

var seedStores = []struct {
	Name    string
	Code    string
	LoginId string
}{
	{"中野店", "2017", "store_nakano"},
	{"新宿店", "2018", "store_shinjuku"},
	{"渋谷店", "2019", "store_shibuya"},
	{"池袋店", "2020", "store_ikebukuro"},
}

func main() {
	ctx := context.Background()
	config.ConnectDatabaseWithRetry()
	if os.Getenv("REDIS_ADDRESS") != "" {
		config.ConnectRedisWithRetry()
	}
	if err := models.Migrate(); err != nil {
		fmt.Fprintf(os.Stderr, "migrate: %v\n", err)
		os.Exit(1)
	}
	if err := models.ResetData(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "reset: %v\n", err)
		os.Exit(1)
	}

	if _, _, err := models.CreateAccount(ctx, &models.NewAccount{
		LoginId: "admin",
		Secret:  envOr("SEED_ADMIN_SECRET", "admin_password123"),
		Name:    "本部管理者",
		Role:    models.AccountRoleHQ,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "create admin: %v\n", err)
		os.Exit(1)
	}

	var productIds []int
	for _, name := range seedProducts {
		p, err := models.CreateProduct(ctx, &models.NewProduct{Name: name})
		if err != nil {
			fmt.Fprintf(os.Stderr, "create product %s: %v\n", name, err)
			os.Exit(1)
		}
		productIds = append(productIds, p.ID)
	}

	storeSecret := envOr("SEED_STORE_SECRET", "store_password123")
	for si, s := range seedStores {
		store, _, err := models.CreateAccount(ctx, &models.NewAccount{
			LoginId:   s.LoginId,
			Secret:    storeSecret,
			Name:      s.Name,
			Role:      models.AccountRoleStore,
			StoreCode: s.Code,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "create store %s: %v\n", s.Name, err)
			os.Exit(1)
		}

		var items []*models.LineItem
		for pi, productId := range productIds {
			// fixed pattern so reruns are comparable
			if (si+pi)%3 == 0 {
				continue
			}
			items = append(items, &models.LineItem{
				ProductId: productId,
				Quantity:  (si*len(productIds)+pi)%10 + 1,
				Comment:   "品質不良のため返品",
			})
		}
		result, err := models.SubmitReports(ctx, store.ID, seedPeriod, items)
		if err != nil {
			fmt.Fprintf(os.Stderr, "submit %s: %v\n", s.Name, err)
			os.Exit(1)
		}
		fmt.Printf("%s (%s): %d lines, %d total\n", s.Name, s.Code, len(result.Reports), result.TotalQuantity)
	}
	fmt.Println("seed finished")
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
