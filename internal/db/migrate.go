package db

import (
	"towerads/internal/models"
)

func AutoMigrate(db *DB) error {
	if db == nil || db.Gorm == nil || db.SQL == nil {
		return nil
	}

	return db.Gorm.AutoMigrate(
		&models.Placement{},
		&models.MediationConfig{},
		&models.MediationState{},
		&models.ProviderState{},
		&models.Impression{},
		&models.ImpressionAttempt{},
		&models.Campaign{},
		&models.Creative{},
		&models.CreativeOrder{},
		&models.PricingPlan{},
		&models.Ad{},
		&models.LedgerEntry{},
		&models.PublisherBalance{},
	)
}
