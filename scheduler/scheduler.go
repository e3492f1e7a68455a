// Package scheduler drives the periodic market data pipeline:
// it pulls the distinct set of watched symbols, fetches quotes
// concurrently, persists them, broadcasts price updates, evaluates price
// alerts, and purges quote rows past the retention window.
package scheduler

import (
	"context"
	"log"
	"sync"
	"time"

	"stockwatch_backend/models"
	"stockwatch_backend/services"

	"github.com/go-co-op/gocron"
	"gorm.io/gorm"
)

// Scheduler manages the fetch and cleanup jobs
type Scheduler struct {
	cron          *gocron.Scheduler
	db            *gorm.DB
	quotes        services.QuoteSource
	evaluator     *services.AlertEvaluator
	hub           *services.RealtimeHub
	archive       *services.QuoteArchive
	fetchInterval time.Duration

	// cycleMu keeps fetch cycles from overlapping: a new cycle waits for
	// the in-flight one (scheduled or manually triggered) to resolve.
	cycleMu sync.Mutex
}

// NewScheduler creates a scheduler with injected collaborators.
// The archive may be nil when MongoDB mirroring is not configured.
func NewScheduler(db *gorm.DB, quotes services.QuoteSource, evaluator *services.AlertEvaluator,
	hub *services.RealtimeHub, archive *services.QuoteArchive, fetchInterval time.Duration) *Scheduler {
	if fetchInterval <= 0 {
		fetchInterval = 5 * time.Minute
	}
	return &Scheduler{
		cron:          gocron.NewScheduler(time.UTC),
		db:            db,
		quotes:        quotes,
		evaluator:     evaluator,
		hub:           hub,
		archive:       archive,
		fetchInterval: fetchInterval,
	}
}

// Start registers and starts all scheduled jobs
func (s *Scheduler) Start() {
	log.Println("Starting scheduler...")

	// Fetch quotes for all watched symbols on the configured cadence
	s.cron.Every(s.intervalSeconds()).Seconds().SingletonMode().Do(func() {
		s.RunFetchCycle()
	})

	// Purge old quote rows daily at midnight
	s.cron.Every(1).Day().At("00:00").Do(func() {
		s.CleanupOldData()
	})

	s.cron.StartAsync()
	log.Printf("Scheduler started (fetch interval: %v)", s.fetchInterval)
}

// Stop prevents new cycles from starting. An in-flight cycle finishes.
func (s *Scheduler) Stop() {
	s.cron.Stop()
	log.Println("Scheduler stopped")
}

// RunFetchCycle executes one fetch cycle synchronously. Also used as the
// operator-facing manual trigger.
func (s *Scheduler) RunFetchCycle() {
	s.cycleMu.Lock()
	defer s.cycleMu.Unlock()

	symbols, err := s.watchedSymbols()
	if err != nil {
		log.Printf("Error loading watched symbols: %v", err)
		return
	}
	if len(symbols) == 0 {
		log.Println("No symbols to fetch")
		return
	}

	log.Printf("Fetching data for %d symbols...", len(symbols))

	// Fan out one fetch per symbol; a failed symbol is logged and skipped
	// so it never takes the rest of the cycle down with it.
	quotes := make([]*services.Quote, len(symbols))
	var wg sync.WaitGroup
	for i, symbol := range symbols {
		wg.Add(1)
		go func(i int, symbol string) {
			defer wg.Done()
			quote, err := s.quotes.GetQuote(symbol)
			if err != nil {
				log.Printf("Error fetching %s: %v", symbol, err)
				return
			}
			quotes[i] = quote
		}(i, symbol)
	}
	wg.Wait()

	updated := 0
	for _, quote := range quotes {
		if quote == nil {
			continue
		}

		// Per symbol: persist, then broadcast, then evaluate. The alert
		// notification references the price that was just broadcast.
		if err := s.persistQuote(quote); err != nil {
			log.Printf("Error persisting quote for %s: %v", quote.Symbol, err)
			continue
		}

		s.hub.PushPriceUpdate(quote.Symbol, quote)

		for _, fired := range s.evaluator.Evaluate(quote.Symbol, quote.Price) {
			s.hub.PushAlertNotification(fired.Alert.UserID, fired.Notification)
		}

		updated++
	}

	log.Printf("Market data updated for %d symbols", updated)
}

// CleanupOldData removes quote rows older than the retention window
func (s *Scheduler) CleanupOldData() {
	cutoff := time.Now().AddDate(0, 0, -models.MarketDataRetentionDays)

	result := s.db.Where("timestamp < ?", cutoff).Delete(&models.MarketData{})
	if result.Error != nil {
		log.Printf("Error cleaning up old market data: %v", result.Error)
		return
	}

	log.Printf("Cleaned up %d old market data records", result.RowsAffected)
}

// intervalSeconds converts the fetch interval to whole seconds for the
// cron schedule. Sub-second intervals would truncate to zero, so the
// result is clamped to at least one second.
func (s *Scheduler) intervalSeconds() int {
	seconds := int(s.fetchInterval.Seconds())
	if seconds < 1 {
		return 1
	}
	return seconds
}

// watchedSymbols returns the deduplicated set of symbols across all
// watchlist entries
func (s *Scheduler) watchedSymbols() ([]string, error) {
	var symbols []string
	err := s.db.Model(&models.WatchlistEntry{}).Distinct().Pluck("symbol", &symbols).Error
	return symbols, err
}

// persistQuote stores one quote row, mirroring it to the archive when
// configured
func (s *Scheduler) persistQuote(quote *services.Quote) error {
	row := models.MarketData{
		Symbol:        quote.Symbol,
		Price:         quote.Price,
		Open:          quote.Open,
		High:          quote.High,
		Low:           quote.Low,
		Volume:        quote.Volume,
		ChangePercent: quote.ChangePercent,
		Timestamp:     quote.Timestamp,
	}
	if err := s.db.Create(&row).Error; err != nil {
		return err
	}

	if s.archive != nil {
		if err := s.archive.SaveQuote(context.Background(), quote); err != nil {
			log.Printf("Warning: %v", err)
		}
	}
	return nil
}
