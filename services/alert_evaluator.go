package services

import (
	"fmt"
	"log"
	"strings"
	"time"

	"stockwatch_backend/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// AlertNotification is the payload delivered to a user when an alert fires
type AlertNotification struct {
	AlertID      uint            `json:"alertId"`
	Symbol       string          `json:"symbol"`
	TargetPrice  decimal.Decimal `json:"targetPrice"`
	CurrentPrice decimal.Decimal `json:"currentPrice"`
	Condition    string          `json:"condition"`
	Message      string          `json:"message"`
}

// FiredAlert pairs a triggered alert record with its notification payload
type FiredAlert struct {
	Alert        models.PriceAlert
	Notification AlertNotification
}

// AlertEvaluator checks stored alerts against incoming prices and flips
// their trigger latch when a threshold is crossed.
type AlertEvaluator struct {
	db *gorm.DB
}

// NewAlertEvaluator creates a new alert evaluator
func NewAlertEvaluator(db *gorm.DB) *AlertEvaluator {
	return &AlertEvaluator{db: db}
}

// Evaluate fires all active, untriggered alerts for a symbol that the
// current price satisfies. The comparison is inclusive at the boundary in
// both directions. Per-alert persistence errors are logged and skipped so
// one bad record never aborts the batch.
func (e *AlertEvaluator) Evaluate(symbol string, currentPrice decimal.Decimal) []FiredAlert {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))

	var alerts []models.PriceAlert
	if err := e.db.Where("symbol = ? AND active = ? AND triggered = ?", symbol, true, false).
		Find(&alerts).Error; err != nil {
		log.Printf("Error loading alerts for %s: %v", symbol, err)
		return nil
	}

	if len(alerts) == 0 {
		return nil
	}

	fired := make([]FiredAlert, 0, len(alerts))
	for i := range alerts {
		alert := &alerts[i]

		shouldTrigger := false
		switch alert.Condition {
		case models.ConditionAbove:
			shouldTrigger = currentPrice.GreaterThanOrEqual(alert.TargetPrice)
		case models.ConditionBelow:
			shouldTrigger = currentPrice.LessThanOrEqual(alert.TargetPrice)
		}

		if !shouldTrigger {
			continue
		}

		now := time.Now()
		// Compare-and-set on the trigger latch: if another pass already
		// fired this alert, zero rows match and no duplicate goes out.
		result := e.db.Model(&models.PriceAlert{}).
			Where("id = ? AND triggered = ?", alert.ID, false).
			Updates(map[string]interface{}{
				"triggered":    true,
				"active":       false,
				"triggered_at": now,
			})
		if result.Error != nil {
			log.Printf("Error triggering alert %d for %s: %v", alert.ID, symbol, result.Error)
			continue
		}
		if result.RowsAffected == 0 {
			continue
		}

		alert.Triggered = true
		alert.Active = false
		alert.TriggeredAt = &now

		direction := "risen above"
		if alert.Condition == models.ConditionBelow {
			direction = "fallen below"
		}

		notification := AlertNotification{
			AlertID:      alert.ID,
			Symbol:       alert.Symbol,
			TargetPrice:  alert.TargetPrice,
			CurrentPrice: currentPrice,
			Condition:    alert.Condition,
			Message: fmt.Sprintf("%s has %s $%s. Current price: $%s",
				alert.Symbol, direction, alert.TargetPrice.String(), currentPrice.String()),
		}

		fired = append(fired, FiredAlert{Alert: *alert, Notification: notification})
		log.Printf("Alert %d triggered for user %d: %s", alert.ID, alert.UserID, notification.Message)
	}

	return fired
}
