package controllers

import (
	"net/http"
	"strings"

	"stockwatch_backend/middleware"
	"stockwatch_backend/models"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// WatchlistController handles watchlist CRUD for the authenticated user
type WatchlistController struct {
	db *gorm.DB
}

// NewWatchlistController creates a new watchlist controller
func NewWatchlistController(db *gorm.DB) *WatchlistController {
	return &WatchlistController{db: db}
}

// GetWatchlist returns the caller's watchlist entries
// GET /api/watchlist
func (wc *WatchlistController) GetWatchlist(c *gin.Context) {
	userID, _ := middleware.GetUserIDFromContext(c)

	var entries []models.WatchlistEntry
	if err := wc.db.Where("user_id = ?", userID).Order("created_at DESC").Find(&entries).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch watchlist"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": entries})
}

// AddToWatchlist adds a symbol to the caller's watchlist
// POST /api/watchlist
func (wc *WatchlistController) AddToWatchlist(c *gin.Context) {
	userID, _ := middleware.GetUserIDFromContext(c)

	var request struct {
		Symbol     string   `json:"symbol" binding:"required"`
		Name       string   `json:"name" binding:"required"`
		AddedPrice *float64 `json:"addedPrice"`
		Notes      string   `json:"notes"`
	}

	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	symbol := strings.ToUpper(strings.TrimSpace(request.Symbol))

	// One row per (user, symbol)
	var existing models.WatchlistEntry
	if err := wc.db.Where("user_id = ? AND symbol = ?", userID, symbol).First(&existing).Error; err == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Symbol already in watchlist"})
		return
	}

	entry := models.WatchlistEntry{
		UserID: userID,
		Symbol: symbol,
		Name:   request.Name,
		Notes:  request.Notes,
	}
	if request.AddedPrice != nil {
		entry.AddedPrice = decimal.NewFromFloat(*request.AddedPrice)
	}

	if err := wc.db.Create(&entry).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to add to watchlist"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": entry})
}

// UpdateWatchlistEntry partially updates one of the caller's entries
// PUT /api/watchlist/:id
func (wc *WatchlistController) UpdateWatchlistEntry(c *gin.Context) {
	userID, _ := middleware.GetUserIDFromContext(c)
	id := c.Param("id")

	var entry models.WatchlistEntry
	if err := wc.db.First(&entry, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "Watchlist entry not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch watchlist entry"})
		return
	}

	if entry.UserID != userID {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authorized"})
		return
	}

	var request struct {
		Name       *string  `json:"name"`
		Notes      *string  `json:"notes"`
		AddedPrice *float64 `json:"addedPrice"`
	}

	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	updates := map[string]interface{}{}
	if request.Name != nil {
		updates["name"] = *request.Name
	}
	if request.Notes != nil {
		updates["notes"] = *request.Notes
	}
	if request.AddedPrice != nil {
		updates["added_price"] = decimal.NewFromFloat(*request.AddedPrice)
	}

	if len(updates) > 0 {
		if err := wc.db.Model(&entry).Updates(updates).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update watchlist entry"})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{"data": entry})
}

// DeleteWatchlistEntry removes one of the caller's entries
// DELETE /api/watchlist/:id
func (wc *WatchlistController) DeleteWatchlistEntry(c *gin.Context) {
	userID, _ := middleware.GetUserIDFromContext(c)
	id := c.Param("id")

	var entry models.WatchlistEntry
	if err := wc.db.First(&entry, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "Watchlist entry not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch watchlist entry"})
		return
	}

	if entry.UserID != userID {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authorized"})
		return
	}

	if err := wc.db.Delete(&entry).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete watchlist entry"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Watchlist entry removed"})
}
