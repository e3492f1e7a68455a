package controllers

import (
	"net/http"
	"strconv"
	"strings"

	"stockwatch_backend/models"
	"stockwatch_backend/scheduler"
	"stockwatch_backend/services"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// MarketController serves market data requests, backed by the local quote
// store with the quote source as fallback
type MarketController struct {
	db        *gorm.DB
	quotes    services.QuoteSource
	scheduler *scheduler.Scheduler
}

// NewMarketController creates a new market controller
func NewMarketController(db *gorm.DB, quotes services.QuoteSource, sched *scheduler.Scheduler) *MarketController {
	return &MarketController{db: db, quotes: quotes, scheduler: sched}
}

// GetMarketData returns the current quote for a symbol
// GET /api/market/:symbol
func (mc *MarketController) GetMarketData(c *gin.Context) {
	symbol := strings.ToUpper(c.Param("symbol"))

	quote, err := mc.quotes.GetQuote(symbol)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch market data for " + symbol})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": quote})
}

// GetHistoricalData returns a historical series for charting. Served from
// the local store when enough rows exist, otherwise from the quote source.
// GET /api/market/:symbol/history?interval=1day&limit=30
func (mc *MarketController) GetHistoricalData(c *gin.Context) {
	symbol := strings.ToUpper(c.Param("symbol"))
	interval := c.DefaultQuery("interval", "1day")
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "30"))
	if limit <= 0 {
		limit = 30
	}

	var rows []models.MarketData
	if err := mc.db.Where("symbol = ?", symbol).
		Order("timestamp DESC").Limit(limit).Find(&rows).Error; err == nil && len(rows) >= limit {
		// Newest-first from the store; charts want chronological order
		for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
			rows[i], rows[j] = rows[j], rows[i]
		}
		c.JSON(http.StatusOK, gin.H{"data": rows, "source": "store"})
		return
	}

	bars, err := mc.quotes.GetHistoricalData(symbol, interval, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch historical data for " + symbol})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": bars, "source": "provider"})
}

// SearchSymbols searches for symbols by code or name
// GET /api/market/search?q=
func (mc *MarketController) SearchSymbols(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Search query required"})
		return
	}

	results, err := mc.quotes.SearchSymbols(query)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Symbol search failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": results})
}

// GetBulkMarketData returns quotes for multiple symbols at once
// POST /api/market/bulk
func (mc *MarketController) GetBulkMarketData(c *gin.Context) {
	var request struct {
		Symbols []string `json:"symbols" binding:"required"`
	}

	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Symbols array required"})
		return
	}

	quotes, err := mc.quotes.GetBulkQuotes(request.Symbols)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch bulk quotes"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": quotes})
}

// RefreshMarketData runs one fetch cycle synchronously, outside the
// schedule. Diagnostic path for operators.
// POST /api/market/refresh
func (mc *MarketController) RefreshMarketData(c *gin.Context) {
	mc.scheduler.RunFetchCycle()
	c.JSON(http.StatusOK, gin.H{"message": "Market data refresh completed"})
}
