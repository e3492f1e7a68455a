package controllers

import (
	"net/http"
	"strconv"
	"strings"

	"stockwatch_backend/middleware"
	"stockwatch_backend/models"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// AlertController handles price alert CRUD for the authenticated user
type AlertController struct {
	db *gorm.DB
}

// NewAlertController creates a new alert controller
func NewAlertController(db *gorm.DB) *AlertController {
	return &AlertController{db: db}
}

// GetAlerts returns the caller's alerts
// GET /api/alerts
func (ac *AlertController) GetAlerts(c *gin.Context) {
	userID, _ := middleware.GetUserIDFromContext(c)

	var alerts []models.PriceAlert
	if err := ac.db.Where("user_id = ?", userID).Order("created_at DESC").Find(&alerts).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch alerts"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": alerts})
}

// GetTriggeredAlerts returns the caller's most recently triggered alerts
// GET /api/alerts/triggered?limit=10
func (ac *AlertController) GetTriggeredAlerts(c *gin.Context) {
	userID, _ := middleware.GetUserIDFromContext(c)
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	if limit <= 0 {
		limit = 10
	}

	var alerts []models.PriceAlert
	if err := ac.db.Where("user_id = ? AND triggered = ?", userID, true).
		Order("triggered_at DESC").Limit(limit).Find(&alerts).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch triggered alerts"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": alerts})
}

// CreateAlert creates a price alert for the caller
// POST /api/alerts
func (ac *AlertController) CreateAlert(c *gin.Context) {
	userID, _ := middleware.GetUserIDFromContext(c)

	var request struct {
		Symbol      string  `json:"symbol" binding:"required"`
		TargetPrice float64 `json:"targetPrice" binding:"required"`
		Condition   string  `json:"condition" binding:"required"`
	}

	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if !models.IsValidAlertCondition(request.Condition) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":            "Invalid condition",
			"valid_conditions": models.ValidAlertConditions(),
		})
		return
	}

	alert := models.PriceAlert{
		UserID:      userID,
		Symbol:      strings.ToUpper(strings.TrimSpace(request.Symbol)),
		TargetPrice: decimal.NewFromFloat(request.TargetPrice),
		Condition:   request.Condition,
		Active:      true,
	}

	if err := ac.db.Create(&alert).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create alert"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": alert})
}

// UpdateAlert partially updates one of the caller's alerts
// PUT /api/alerts/:id
func (ac *AlertController) UpdateAlert(c *gin.Context) {
	alert, ok := ac.ownedAlert(c)
	if !ok {
		return
	}

	var request struct {
		TargetPrice *float64 `json:"targetPrice"`
		Condition   *string  `json:"condition"`
		Active      *bool    `json:"active"`
	}

	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	updates := map[string]interface{}{}
	if request.TargetPrice != nil {
		updates["target_price"] = decimal.NewFromFloat(*request.TargetPrice)
	}
	if request.Condition != nil {
		if !models.IsValidAlertCondition(*request.Condition) {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":            "Invalid condition",
				"valid_conditions": models.ValidAlertConditions(),
			})
			return
		}
		updates["condition"] = *request.Condition
	}
	if request.Active != nil {
		updates["active"] = *request.Active
	}

	if len(updates) > 0 {
		if err := ac.db.Model(alert).Updates(updates).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update alert"})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{"data": alert})
}

// ResetAlert clears the trigger latch so the alert can fire again
// POST /api/alerts/:id/reset
func (ac *AlertController) ResetAlert(c *gin.Context) {
	alert, ok := ac.ownedAlert(c)
	if !ok {
		return
	}

	updates := map[string]interface{}{
		"triggered":    false,
		"triggered_at": nil,
		"active":       true,
	}
	if err := ac.db.Model(alert).Updates(updates).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to reset alert"})
		return
	}

	alert.Triggered = false
	alert.TriggeredAt = nil
	alert.Active = true

	c.JSON(http.StatusOK, gin.H{"data": alert})
}

// DeleteAlert removes one of the caller's alerts
// DELETE /api/alerts/:id
func (ac *AlertController) DeleteAlert(c *gin.Context) {
	alert, ok := ac.ownedAlert(c)
	if !ok {
		return
	}

	if err := ac.db.Delete(alert).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete alert"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Alert removed"})
}

// ownedAlert loads the alert from the :id param and enforces ownership.
// Writes the error response itself when the lookup fails.
func (ac *AlertController) ownedAlert(c *gin.Context) (*models.PriceAlert, bool) {
	userID, _ := middleware.GetUserIDFromContext(c)
	id := c.Param("id")

	var alert models.PriceAlert
	if err := ac.db.First(&alert, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "Alert not found"})
			return nil, false
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch alert"})
		return nil, false
	}

	if alert.UserID != userID {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authorized"})
		return nil, false
	}

	return &alert, true
}
