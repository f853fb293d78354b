package repository

import (
	"fmt"

	"github.com/noteduco342/om-realtime/internal/config"
	"github.com/noteduco342/om-realtime/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func InitDB(cfg config.DBConfig) (*gorm.DB, error) {
	// Build connection string
	dsn := fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		cfg.Host,
		cfg.User,
		cfg.Password,
		cfg.Name,
		cfg.Port,
		cfg.SSLMode,
	)

	// TranslateError maps unique violations to gorm.ErrDuplicatedKey
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, err
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}

	return db, nil
}

// Migrate registers the custom join tables and auto-migrates all models.
func Migrate(db *gorm.DB) error {
	if err := db.SetupJoinTable(&models.Chat{}, "Users", &models.ChatParticipant{}); err != nil {
		return err
	}
	if err := db.SetupJoinTable(&models.User{}, "Chats", &models.ChatParticipant{}); err != nil {
		return err
	}
	if err := db.SetupJoinTable(&models.Message{}, "ReadByUsers", &models.MessageRead{}); err != nil {
		return err
	}

	return db.AutoMigrate(
		&models.User{},
		&models.Chat{},
		&models.ChatParticipant{},
		&models.Message{},
		&models.MessageRead{},
	)
}
