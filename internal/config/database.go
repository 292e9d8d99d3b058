package config

import (
	"fmt"
	"log"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"vantagebuild/proposal-engine/internal/models"
)

func InitDatabase(cfg *Config) (*gorm.DB, error) {
	dsn := cfg.GetDatabaseDSN()

	logLevel := logger.Silent
	if cfg.Server.Env == "development" {
		logLevel = logger.Info
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	log.Println("✅ Database connected successfully")

	// Auto migrate
	if err := db.AutoMigrate(
		&models.Organization{},
		&models.User{},
		&models.Project{},
		&models.Advisor{},
		&models.RfpInvite{},
		&models.FeeItem{},
		&models.ScopeItem{},
		&models.Proposal{},
		&models.FeeLineItem{},
		&models.SelectedService{},
		&models.MilestoneAdjustment{},
		&models.OrganizationPolicy{},
		&models.ProposalDocument{},
		&models.ProposalEvaluation{},
	); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	log.Println("✅ Database migration completed")

	return db, nil
}
