package services

import (
	"fmt"
	"math"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// Quote represents a point-in-time snapshot of a symbol's market data
type Quote struct {
	Symbol        string          `json:"symbol"`
	Price         decimal.Decimal `json:"price"`
	Open          decimal.Decimal `json:"open"`
	High          decimal.Decimal `json:"high"`
	Low           decimal.Decimal `json:"low"`
	Volume        int64           `json:"volume"`
	ChangePercent decimal.Decimal `json:"change_percent"`
	Timestamp     time.Time       `json:"timestamp"`
}

// HistoricalBar represents one candle of historical price data
type HistoricalBar struct {
	Date   time.Time       `json:"date"`
	Open   decimal.Decimal `json:"open"`
	High   decimal.Decimal `json:"high"`
	Low    decimal.Decimal `json:"low"`
	Close  decimal.Decimal `json:"close"`
	Volume int64           `json:"volume"`
}

// SymbolMatch represents a symbol search result
type SymbolMatch struct {
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
}

// QuoteSource supplies current and historical quotes for symbols.
// Implementations wrap an external market data provider.
type QuoteSource interface {
	GetQuote(symbol string) (*Quote, error)
	GetBulkQuotes(symbols []string) ([]*Quote, error)
	GetHistoricalData(symbol string, interval string, limit int) ([]HistoricalBar, error)
	SearchSymbols(query string) ([]SymbolMatch, error)
}

// MockQuoteSource generates plausible quotes from a seeded per-symbol
// random walk. It stands in for a real provider integration.
type MockQuoteSource struct {
	mu         sync.Mutex
	rnd        *rand.Rand
	basePrices map[string]float64
}

// Known symbols served by the mock search endpoint
var mockSymbolDirectory = []SymbolMatch{
	{Symbol: "AAPL", Name: "Apple Inc."},
	{Symbol: "GOOGL", Name: "Alphabet Inc."},
	{Symbol: "MSFT", Name: "Microsoft Corporation"},
	{Symbol: "AMZN", Name: "Amazon.com Inc."},
	{Symbol: "TSLA", Name: "Tesla Inc."},
	{Symbol: "NVDA", Name: "NVIDIA Corporation"},
}

// NewMockQuoteSource creates a mock quote source
func NewMockQuoteSource() *MockQuoteSource {
	return &MockQuoteSource{
		rnd:        rand.New(rand.NewSource(time.Now().UnixNano())),
		basePrices: make(map[string]float64),
	}
}

// GetQuote returns a generated quote for a symbol
func (m *MockQuoteSource) GetQuote(symbol string) (*Quote, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return nil, fmt.Errorf("symbol is required")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	base, ok := m.basePrices[symbol]
	if !ok {
		base = m.rnd.Float64()*1000 + 100
	}

	variation := base * 0.05
	price := round2(base + (m.rnd.Float64()-0.5)*variation)
	open := round2(base - m.rnd.Float64()*variation*0.5)
	high := round2(math.Max(price, base+m.rnd.Float64()*variation))
	low := round2(math.Min(price, base-m.rnd.Float64()*variation))

	// Walk the base so consecutive quotes drift like a real series
	m.basePrices[symbol] = price

	return &Quote{
		Symbol:        symbol,
		Price:         decimal.NewFromFloat(price),
		Open:          decimal.NewFromFloat(open),
		High:          decimal.NewFromFloat(high),
		Low:           decimal.NewFromFloat(low),
		Volume:        int64(m.rnd.Intn(10000000)),
		ChangePercent: decimal.NewFromFloat(round2((m.rnd.Float64() - 0.5) * 10)),
		Timestamp:     time.Now(),
	}, nil
}

// GetBulkQuotes returns quotes for multiple symbols
func (m *MockQuoteSource) GetBulkQuotes(symbols []string) ([]*Quote, error) {
	quotes := make([]*Quote, 0, len(symbols))
	for _, symbol := range symbols {
		quote, err := m.GetQuote(symbol)
		if err != nil {
			return nil, err
		}
		quotes = append(quotes, quote)
	}
	return quotes, nil
}

// GetHistoricalData returns a generated daily series ending today
func (m *MockQuoteSource) GetHistoricalData(symbol string, interval string, limit int) ([]HistoricalBar, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return nil, fmt.Errorf("symbol is required")
	}
	if limit <= 0 {
		limit = 30
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	base, ok := m.basePrices[symbol]
	if !ok {
		base = m.rnd.Float64()*1000 + 100
		m.basePrices[symbol] = base
	}

	bars := make([]HistoricalBar, 0, limit)
	price := base
	for i := limit - 1; i >= 0; i-- {
		date := time.Now().AddDate(0, 0, -i)

		variation := price * 0.03
		open := price
		close := round2(price + (m.rnd.Float64()-0.5)*variation)
		high := round2(math.Max(open, close) * (1 + m.rnd.Float64()*0.02))
		low := round2(math.Min(open, close) * (1 - m.rnd.Float64()*0.02))

		bars = append(bars, HistoricalBar{
			Date:   date,
			Open:   decimal.NewFromFloat(round2(open)),
			High:   decimal.NewFromFloat(high),
			Low:    decimal.NewFromFloat(low),
			Close:  decimal.NewFromFloat(close),
			Volume: int64(m.rnd.Intn(10000000)),
		})

		price = close
	}

	return bars, nil
}

// SearchSymbols searches the mock symbol directory
func (m *MockQuoteSource) SearchSymbols(query string) ([]SymbolMatch, error) {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return nil, fmt.Errorf("search query is required")
	}

	results := make([]SymbolMatch, 0)
	for _, entry := range mockSymbolDirectory {
		if strings.Contains(strings.ToLower(entry.Symbol), query) ||
			strings.Contains(strings.ToLower(entry.Name), query) {
			results = append(results, entry)
		}
	}
	return results, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
