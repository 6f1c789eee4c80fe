package database

import (
	"fmt"

	"github.com/medvault/medvault/internal/config"
	"github.com/medvault/medvault/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func Connect(cfg *config.Config) (*gorm.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		cfg.DBHost, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBPort,
	)

	// TranslateError so unique-constraint violations come back as
	// gorm.ErrDuplicatedKey; the replay guard depends on that.
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, err
	}

	return db, nil
}

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.RefreshSession{},
		&models.UsedRefreshID{},
		&models.MedicalRecord{},
		&models.AccessRequest{},
		&models.ShareCode{},
		&models.AuditEvent{},
	)
}
