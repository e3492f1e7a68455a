package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Alert condition constants
const (
	ConditionAbove = "above"
	ConditionBelow = "below"
)

// PriceAlert represents a user-defined price threshold that fires once
// when crossed and stays latched until explicitly reset.
type PriceAlert struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	UserID      uint            `gorm:"index:idx_alert_user" json:"user_id"`
	User        User            `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Symbol      string          `gorm:"index:idx_alert_symbol;not null" json:"symbol"`
	TargetPrice decimal.Decimal `gorm:"type:decimal(15,4)" json:"target_price"`
	Condition   string          `json:"condition"` // above, below
	Triggered   bool            `gorm:"default:false" json:"triggered"`
	TriggeredAt *time.Time      `json:"triggered_at"`
	Active      bool            `gorm:"default:true" json:"active"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// ValidAlertConditions returns the supported alert conditions
func ValidAlertConditions() []string {
	return []string{ConditionAbove, ConditionBelow}
}

// IsValidAlertCondition checks if the condition is supported
func IsValidAlertCondition(condition string) bool {
	for _, valid := range ValidAlertConditions() {
		if condition == valid {
			return true
		}
	}
	return false
}

// MigrateAlertModels runs database migrations for alert models
func MigrateAlertModels(db *gorm.DB) error {
	return db.AutoMigrate(&PriceAlert{})
}
