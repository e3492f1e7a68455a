package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoDB names for the quote archive
const (
	ArchiveDBName     = "stockwatch"
	ArchiveCollection = "market_data"
)

// QuoteArchive mirrors fetched quotes into MongoDB. It is an optional
// secondary store: construction happens only when MONGODB_URI is set, and
// write failures are logged rather than propagated.
type QuoteArchive struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// archivedQuote is the document shape written to the archive collection.
// Decimal fields are stored as strings to keep exact values.
type archivedQuote struct {
	Symbol        string    `bson:"symbol"`
	Price         string    `bson:"price"`
	Open          string    `bson:"open"`
	High          string    `bson:"high"`
	Low           string    `bson:"low"`
	Volume        int64     `bson:"volume"`
	ChangePercent string    `bson:"change_percent"`
	Timestamp     time.Time `bson:"timestamp"`
}

// NewQuoteArchive connects to MongoDB and prepares the archive collection
func NewQuoteArchive(uri string) (*QuoteArchive, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("MongoDB ping failed: %w", err)
	}

	coll := client.Database(ArchiveDBName).Collection(ArchiveCollection)

	// Index matches the relational store's time-series access pattern
	indexCtx, indexCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer indexCancel()
	_, err = coll.Indexes().CreateOne(indexCtx, mongo.IndexModel{
		Keys: bson.D{{Key: "symbol", Value: 1}, {Key: "timestamp", Value: -1}},
	})
	if err != nil {
		log.Printf("Warning: could not create archive index: %v", err)
	}

	log.Println("Quote archive connected to MongoDB")
	return &QuoteArchive{client: client, coll: coll}, nil
}

// SaveQuote writes one quote document to the archive
func (a *QuoteArchive) SaveQuote(ctx context.Context, quote *Quote) error {
	doc := archivedQuote{
		Symbol:        quote.Symbol,
		Price:         quote.Price.String(),
		Open:          quote.Open.String(),
		High:          quote.High.String(),
		Low:           quote.Low.String(),
		Volume:        quote.Volume,
		ChangePercent: quote.ChangePercent.String(),
		Timestamp:     quote.Timestamp,
	}

	opCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if _, err := a.coll.InsertOne(opCtx, doc); err != nil {
		return fmt.Errorf("failed to archive quote for %s: %w", quote.Symbol, err)
	}
	return nil
}

// Close disconnects the archive client
func (a *QuoteArchive) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := a.client.Disconnect(ctx); err != nil {
		log.Printf("Error closing quote archive: %v", err)
	}
}
