package service

import (
	"context"
	"time"

	"MarketSage/internal/domain/models"
)

// SentimentProvider scores recent news for a symbol. A nil score with a
// nil error means no sentiment is available; callers treat both that and
// an error as "no contribution", never as a fatal condition.
type SentimentProvider interface {
	ScoreSymbol(ctx context.Context, symbol string, recency time.Duration) (*models.SentimentScore, error)
}

// PriceLookup fetches the current market price for verification sweeps.
// ok=false means the price is unavailable and the record stays pending.
type PriceLookup interface {
	CurrentPrice(ctx context.Context, symbol string) (price float64, ok bool, err error)
}
