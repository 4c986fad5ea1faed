package db

import (
	"reelmarket/internal/models"
)

func AutoMigrate(db *DB) error {
	if db == nil || db.Gorm == nil || db.SQL == nil {
		return nil
	}

	return db.Gorm.AutoMigrate(
		&models.User{},
		&models.Market{},
		&models.Outcome{},
		&models.Bet{},
		&models.Resolution{},
		&models.TrendsetterEvent{},
		&models.TasteMatch{},
	)
}
