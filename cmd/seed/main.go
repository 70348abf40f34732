// Seeds demo users so the approval flow can be exercised locally:
// two managers and two finance staff, all verified, password "password123".
package main

import (
	"context"
	"errors"
	"log"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"bonusdesk/internal/config"
	"bonusdesk/internal/db"
	"bonusdesk/internal/model"
	"bonusdesk/internal/repository"
)

const seedPassword = "password123"

var seedUsers = []model.User{
	{Name: "Amira Hassan", Email: "amira.manager@bonusdesk.local", Role: model.RoleManager},
	{Name: "Omar Farid", Email: "omar.manager@bonusdesk.local", Role: model.RoleManager},
	{Name: "Lina Said", Email: "lina.finance@bonusdesk.local", Role: model.RoleFinanceStaff},
	{Name: "Karim Adel", Email: "karim.finance@bonusdesk.local", Role: model.RoleFinanceStaff},
}

func main() {
	log.Println("Starting seed script...")

	cfg := config.Load()

	gormDB, err := db.NewMySQL(cfg.MySQLDSN)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	if err := gormDB.AutoMigrate(&model.User{}, &model.Bonus{}, &model.BonusComment{}); err != nil {
		log.Fatalf("Failed to migrate: %v", err)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(seedPassword), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("Failed to hash password: %v", err)
	}

	ctx := context.Background()
	userRepo := repository.NewUserRepository(gormDB)

	created := 0
	for _, user := range seedUsers {
		if _, err := userRepo.FindByEmail(ctx, user.Email); err == nil {
			log.Printf("User %s already exists, skipping", user.Email)
			continue
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Fatalf("Failed to check user %s: %v", user.Email, err)
		}

		user.PasswordHash = string(hashed)
		user.IsActive = true
		if err := userRepo.Create(ctx, &user); err != nil {
			log.Fatalf("Failed to create user %s: %v", user.Email, err)
		}
		created++
	}

	log.Printf("Seed complete: %d users created (password %q)", created, seedPassword)
}
