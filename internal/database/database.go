package database

import (
	"errors"
	"fmt"

	"forex-signal-go/internal/config"
	"forex-signal-go/internal/models"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// NewDatabase creates a new database connection and performs auto-migration.
func NewDatabase(cfg *config.Config) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(cfg.Database.DSN), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := Migrate(db, cfg); err != nil {
		return nil, err
	}

	return db, nil
}

// Migrate creates the schema and seeds the admin account from config.
func Migrate(db *gorm.DB, cfg *config.Config) error {
	err := db.AutoMigrate(
		&models.User{},
		&models.SignalRecord{},
		&models.SupportTicket{},
		&models.TicketReply{},
	)
	if err != nil {
		return fmt.Errorf("failed to auto-migrate database: %w", err)
	}

	if cfg.Auth.AdminUsername != "" && cfg.Auth.AdminPassword != "" {
		if err := seedAdmin(db, cfg); err != nil {
			return err
		}
	}

	return nil
}

// seedAdmin creates the configured admin user if it does not exist yet.
func seedAdmin(db *gorm.DB, cfg *config.Config) error {
	var existing models.User
	err := db.Where("username = ?", cfg.Auth.AdminUsername).First(&existing).Error
	if err == nil {
		return nil // already seeded
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("failed to look up admin user: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(cfg.Auth.AdminPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash admin password: %w", err)
	}

	admin := models.User{
		Username:     cfg.Auth.AdminUsername,
		Email:        cfg.Auth.AdminEmail,
		PasswordHash: string(hash),
		IsAdmin:      true,
	}
	if err := db.Create(&admin).Error; err != nil {
		return fmt.Errorf("failed to seed admin user '%s': %w", cfg.Auth.AdminUsername, err)
	}

	return nil
}
