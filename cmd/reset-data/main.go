// reset-data deletes every report, period lock, product and account, then
// recreates the HQ admin.
//
// Usage:
//
//	RESET_CONFIRM=yes ADMIN_SECRET=... go run ./cmd/reset-data
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/mmdatafocus/returns_backend/config"
	"github.com/mmdatafocus/returns_backend/models"
)

func main() {
	if os.Getenv("RESET_CONFIRM") != "yes" {
		fmt.Fprintln(os.Stderr, "refusing to reset without RESET_CONFIRM=yes")
		os.Exit(2)
	}
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

	loginId := os.Getenv("ADMIN_LOGIN_ID")
	if loginId == "" {
		loginId = "admin"
	}
	_, generated, err := models.CreateAccount(ctx, &models.NewAccount{
		LoginId: loginId,
		Secret:  os.Getenv("ADMIN_SECRET"),
		Name:    "本部管理者",
		Role:    models.AccountRoleHQ,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "create admin: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("reset finished; admin login id: %s\n", loginId)
	if generated != "" {
		fmt.Printf("generated admin secret: %s\n", generated)
	}
}
