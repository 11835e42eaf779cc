package database

import (
	"fmt"
	"log"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"trentora-system/internal/database/models"
)

func NewConnection(dsn string) (*gorm.DB, error) {
	if dsn == "" {
		log.Fatal("DSN is required")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		log.Fatalf("failed to get sql.DB: %v", err)
	}

	sqlDB.SetMaxOpenConns(20)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping DB: %w", err)
	}

	return db, nil
}

// Migrate creates or updates every table the service owns.
func Migrate(db *gorm.DB) error {
	db.AutoMigrate(&models.User{})
	db.AutoMigrate(&models.Company{})
	db.AutoMigrate(&models.ChildAccount{})
	db.AutoMigrate(&models.DiscountTier{})
	db.AutoMigrate(&models.CompanyOrder{})
	db.AutoMigrate(&models.Product{})
	db.AutoMigrate(&models.Order{})
	db.AutoMigrate(&models.OrderItem{})
	db.AutoMigrate(&models.GuestPricingSettings{})
	return nil
}

// SeedSiteAdmin creates the back-office administrator account if the
// configured email does not exist yet. No-op when email is empty.
func SeedSiteAdmin(db *gorm.DB, email, password string) error {
	if email == "" || password == "" {
		return nil
	}

	var count int64
	if err := db.Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	admin := models.User{
		Email:    email,
		Password: string(hashed),
		Role:     models.RoleSiteAdmin,
		IsActive: true,
	}
	return db.Create(&admin).Error
}

// SeedGuestPricingSettings ensures the single settings row exists.
func SeedGuestPricingSettings(db *gorm.DB) error {
	var count int64
	if err := db.Model(&models.GuestPricingSettings{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	settings := models.GuestPricingSettings{
		ID:           1,
		Enabled:      true,
		LoginMessage: "Please log in to view prices.",
	}
	return db.Create(&settings).Error
}

// ReconcileChildRoles repairs drift between child account rows and the
// role column: every user referenced by a child row must carry the
// company_child role. Historically these two signals desynchronized.
func ReconcileChildRoles(db *gorm.DB) (int64, error) {
	res := db.Model(&models.User{}).
		Where("role <> ?", models.RoleCompanyChild).
		Where("id IN (?)", db.Model(&models.ChildAccount{}).Select("user_id")).
		Update("role", models.RoleCompanyChild)
	return res.RowsAffected, res.Error
}
