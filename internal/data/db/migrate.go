package db

import (
	"gorm.io/gorm"

	types "github.com/yungbote/buyerdesk-backend/internal/domain"
)

// AutoMigrateAll creates or updates every workspace table.
func AutoMigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(types.Models()...)
}
