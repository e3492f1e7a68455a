package services

import (
	"strings"
	"testing"

	"stockwatch_backend/models"

	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}

	if err := models.MigrateUserModels(db); err != nil {
		t.Fatalf("Failed to migrate user models: %v", err)
	}
	if err := models.MigrateAlertModels(db); err != nil {
		t.Fatalf("Failed to migrate alert models: %v", err)
	}
	if err := models.MigrateWatchlistModels(db); err != nil {
		t.Fatalf("Failed to migrate watchlist models: %v", err)
	}
	if err := models.MigrateMarketDataModels(db); err != nil {
		t.Fatalf("Failed to migrate market data models: %v", err)
	}

	return db
}

func createAlert(t *testing.T, db *gorm.DB, symbol string, target float64, condition string) *models.PriceAlert {
	t.Helper()

	alert := models.PriceAlert{
		UserID:      1,
		Symbol:      symbol,
		TargetPrice: decimal.NewFromFloat(target),
		Condition:   condition,
		Active:      true,
	}
	if err := db.Create(&alert).Error; err != nil {
		t.Fatalf("Failed to create alert: %v", err)
	}
	return &alert
}

func TestEvaluateFiresAboveAtBoundary(t *testing.T) {
	db := openTestDB(t)
	evaluator := NewAlertEvaluator(db)
	createAlert(t, db, "AAPL", 150, models.ConditionAbove)

	fired := evaluator.Evaluate("AAPL", decimal.NewFromFloat(150.00))
	if len(fired) != 1 {
		t.Fatalf("Expected 1 fired alert at boundary, got %d", len(fired))
	}

	n := fired[0].Notification
	if !strings.Contains(n.Message, "AAPL") {
		t.Errorf("Message should name the symbol, got %q", n.Message)
	}
	if !strings.Contains(n.Message, "risen above") {
		t.Errorf("Message should name the direction, got %q", n.Message)
	}
	if !strings.Contains(n.Message, "$150") {
		t.Errorf("Message should name the target price, got %q", n.Message)
	}

	var stored models.PriceAlert
	if err := db.First(&stored, fired[0].Alert.ID).Error; err != nil {
		t.Fatalf("Failed to reload alert: %v", err)
	}
	if !stored.Triggered || stored.Active || stored.TriggeredAt == nil {
		t.Errorf("Expected triggered=true active=false triggeredAt set, got triggered=%v active=%v triggeredAt=%v",
			stored.Triggered, stored.Active, stored.TriggeredAt)
	}
}

func TestEvaluateFiresBelowAtBoundary(t *testing.T) {
	db := openTestDB(t)
	evaluator := NewAlertEvaluator(db)
	createAlert(t, db, "MSFT", 300, models.ConditionBelow)

	fired := evaluator.Evaluate("MSFT", decimal.NewFromFloat(300))
	if len(fired) != 1 {
		t.Fatalf("Expected 1 fired alert at boundary, got %d", len(fired))
	}
	if !strings.Contains(fired[0].Notification.Message, "fallen below") {
		t.Errorf("Message should name the direction, got %q", fired[0].Notification.Message)
	}
}

func TestEvaluateDoesNotFireWhenThresholdNotCrossed(t *testing.T) {
	db := openTestDB(t)
	evaluator := NewAlertEvaluator(db)
	createAlert(t, db, "AAPL", 150, models.ConditionAbove)
	createAlert(t, db, "AAPL", 100, models.ConditionBelow)

	fired := evaluator.Evaluate("AAPL", decimal.NewFromFloat(120))
	if len(fired) != 0 {
		t.Fatalf("Expected no fired alerts at 120, got %d", len(fired))
	}
}

func TestEvaluateNormalizesSymbolCase(t *testing.T) {
	db := openTestDB(t)
	evaluator := NewAlertEvaluator(db)
	createAlert(t, db, "AAPL", 150, models.ConditionAbove)

	fired := evaluator.Evaluate("aapl", decimal.NewFromFloat(151))
	if len(fired) != 1 {
		t.Fatalf("Expected lowercase input to match stored symbol, got %d fired", len(fired))
	}
}

func TestTriggeredAlertDoesNotRefire(t *testing.T) {
	db := openTestDB(t)
	evaluator := NewAlertEvaluator(db)
	alert := createAlert(t, db, "AAPL", 150, models.ConditionAbove)

	if fired := evaluator.Evaluate("AAPL", decimal.NewFromFloat(155)); len(fired) != 1 {
		t.Fatalf("Expected first evaluation to fire, got %d", len(fired))
	}

	// Same and higher prices must not re-fire the latch
	if fired := evaluator.Evaluate("AAPL", decimal.NewFromFloat(155)); len(fired) != 0 {
		t.Fatalf("Expected no re-fire at same price, got %d", len(fired))
	}
	if fired := evaluator.Evaluate("AAPL", decimal.NewFromFloat(200)); len(fired) != 0 {
		t.Fatalf("Expected no re-fire at higher price, got %d", len(fired))
	}

	var stored models.PriceAlert
	db.First(&stored, alert.ID)
	if !stored.Triggered || stored.Active {
		t.Errorf("Latch must stay set: triggered=%v active=%v", stored.Triggered, stored.Active)
	}
}

func TestResetReArmsAlert(t *testing.T) {
	db := openTestDB(t)
	evaluator := NewAlertEvaluator(db)
	alert := createAlert(t, db, "AAPL", 150, models.ConditionAbove)

	if fired := evaluator.Evaluate("AAPL", decimal.NewFromFloat(155)); len(fired) != 1 {
		t.Fatalf("Expected first evaluation to fire, got %d", len(fired))
	}

	err := db.Model(&models.PriceAlert{}).Where("id = ?", alert.ID).Updates(map[string]interface{}{
		"triggered":    false,
		"triggered_at": nil,
		"active":       true,
	}).Error
	if err != nil {
		t.Fatalf("Failed to reset alert: %v", err)
	}

	var stored models.PriceAlert
	db.First(&stored, alert.ID)
	if stored.Triggered || !stored.Active || stored.TriggeredAt != nil {
		t.Fatalf("Reset should clear the latch: triggered=%v active=%v triggeredAt=%v",
			stored.Triggered, stored.Active, stored.TriggeredAt)
	}

	if fired := evaluator.Evaluate("AAPL", decimal.NewFromFloat(160)); len(fired) != 1 {
		t.Fatalf("Expected reset alert to fire again, got %d", len(fired))
	}
}

func TestCompareAndSetGuardsAgainstDoubleFire(t *testing.T) {
	db := openTestDB(t)
	evaluator := NewAlertEvaluator(db)
	alert := createAlert(t, db, "AAPL", 150, models.ConditionAbove)

	// Simulate a concurrent pass flipping the latch between the read and
	// the update: the CAS update must then match zero rows.
	db.Model(&models.PriceAlert{}).Where("id = ?", alert.ID).Update("triggered", true)

	if fired := evaluator.Evaluate("AAPL", decimal.NewFromFloat(155)); len(fired) != 0 {
		t.Fatalf("Expected no fire for a latched alert, got %d", len(fired))
	}
}
