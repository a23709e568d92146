// seed-admin creates or updates the admin console user.
//
// Usage (from backend directory):
//
//	DB_USER=... DB_PASSWORD=... DB_HOST=... DB_PORT=... DB_NAME=... go run ./cmd/seed-admin
//
// The password can be overridden with SEED_ADMIN_PASSWORD.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/buretifund/bursary_backend/config"
	"github.com/buretifund/bursary_backend/models"
	"github.com/buretifund/bursary_backend/utils"
	"gorm.io/gorm"
)

const (
	adminUsername = "bursaryAdmin"
	adminEmail    = "admin@bureticdf.go.ke"
)

func main() {
	ctx := context.Background()
	config.ConnectDatabaseWithRetry()
	db := config.GetDB()
	if db == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil). Set DB_* env vars.")
		os.Exit(1)
	}

	if err := models.Migrate(db); err != nil {
		fmt.Fprintf(os.Stderr, "migration failed: %v\n", err)
		os.Exit(1)
	}

	password := os.Getenv("SEED_ADMIN_PASSWORD")
	if password == "" {
		password = "ChangeMe-Bursary1"
	}

	hashed, err := utils.HashPassword(password)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to hash password: %v\n", err)
		os.Exit(1)
	}
	hashedStr := string(hashed)

	var existing models.User
	err = db.WithContext(ctx).Where("username = ?", adminUsername).First(&existing).Error
	if err != nil {
		if err != gorm.ErrRecordNotFound {
			fmt.Fprintf(os.Stderr, "failed to lookup user: %v\n", err)
			os.Exit(1)
		}
		u := models.User{
			Username:   adminUsername,
			Email:      adminEmail,
			FirstName:  "Bursary",
			LastName:   "Admin",
			Password:   hashedStr,
			Role:       models.UserRoleAdmin,
			IsActive:   utils.NewTrue(),
			IsVerified: utils.NewTrue(),
		}
		if err := db.WithContext(ctx).Create(&u).Error; err != nil {
			fmt.Fprintf(os.Stderr, "failed to create admin user: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Created admin user: username=%q\n", adminUsername)
		return
	}

	if err := db.WithContext(ctx).Model(&models.User{}).Where("username = ?", adminUsername).Updates(map[string]any{
		"password":  hashedStr,
		"role":      models.UserRoleAdmin,
		"is_active": utils.NewTrue(),
	}).Error; err != nil {
		fmt.Fprintf(os.Stderr, "failed to update admin user: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Updated admin user: username=%q\n", adminUsername)
}
