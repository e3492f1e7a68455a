package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// MarketDataRetentionDays is how long quote rows are kept before cleanup
const MarketDataRetentionDays = 90

// MarketData represents one fetched quote for a symbol. Rows are
// append-only and purged after the retention window.
type MarketData struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	Symbol        string          `gorm:"index:idx_symbol_timestamp;not null" json:"symbol"`
	Price         decimal.Decimal `gorm:"type:decimal(15,4)" json:"price"`
	Open          decimal.Decimal `gorm:"type:decimal(15,4)" json:"open"`
	High          decimal.Decimal `gorm:"type:decimal(15,4)" json:"high"`
	Low           decimal.Decimal `gorm:"type:decimal(15,4)" json:"low"`
	Volume        int64           `json:"volume"`
	ChangePercent decimal.Decimal `gorm:"type:decimal(10,4)" json:"change_percent"`
	Timestamp     time.Time       `gorm:"index:idx_symbol_timestamp" json:"timestamp"`
	CreatedAt     time.Time       `json:"created_at"`
}

// MigrateMarketDataModels runs database migrations for market data models
func MigrateMarketDataModels(db *gorm.DB) error {
	return db.AutoMigrate(&MarketData{})
}
