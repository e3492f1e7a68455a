package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// WatchlistEntry represents a symbol a user is tracking.
// A user can hold each symbol at most once.
type WatchlistEntry struct {
	ID         uint            `gorm:"primaryKey" json:"id"`
	UserID     uint            `gorm:"uniqueIndex:idx_user_symbol" json:"user_id"`
	User       User            `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Symbol     string          `gorm:"uniqueIndex:idx_user_symbol;not null" json:"symbol"`
	Name       string          `json:"name"`
	AddedPrice decimal.Decimal `gorm:"type:decimal(15,4)" json:"added_price"`
	Notes      string          `json:"notes"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// MigrateWatchlistModels runs database migrations for watchlist models
func MigrateWatchlistModels(db *gorm.DB) error {
	return db.AutoMigrate(&WatchlistEntry{})
}
