package backtest

import (
	"time"

	"BNBPredictionBot/internal/models"
)

const (
	BetSize = 100.0 // USDT per simulated prediction

	// A correct call pays 1.96x, so the profit is 0.96 of the bet.
	PayoutMultiplier = 0.96

	HighConfidence   = 75.0
	MediumConfidence = 50.0

	// Candles consumed before the first evaluated window.
	DefaultWarmup = 100
)

// Bucket counts predictions falling into one group
type Bucket struct {
	Total    int     `json:"total"`
	Correct  int     `json:"correct"`
	Accuracy float64 `json:"accuracy"`
}

func (b *Bucket) add(correct bool) {
	b.Total++
	if correct {
		b.Correct++
	}
}

func (b *Bucket) finish() {
	if b.Total > 0 {
		b.Accuracy = float64(b.Correct) / float64(b.Total) * 100
	}
}

type ConfidenceBreakdown struct {
	High   Bucket `json:"high"`   // > 75
	Medium Bucket `json:"medium"` // 50 to 75
	Low    Bucket `json:"low"`    // < 50
}

type ConditionBreakdown struct {
	Trending Bucket `json:"trending"`
	Ranging  Bucket `json:"ranging"`
	Volatile Bucket `json:"volatile"`
}

// BacktestResults aggregates a run of resolved predictions
type BacktestResults struct {
	TotalPredictions     int     `json:"totalPredictions"`
	CorrectPredictions   int     `json:"correctPredictions"`
	IncorrectPredictions int     `json:"incorrectPredictions"`
	Accuracy             float64 `json:"accuracy"`
	WinRate              float64 `json:"winRate"`
	ProfitLoss           float64 `json:"profitLoss"`
	SharpeRatio          float64 `json:"sharpeRatio"`
	MaxDrawdown          float64 `json:"maxDrawdown"`
	AvgConfidence        float64 `json:"avgConfidence"`

	AccuracyByConfidence      ConfidenceBreakdown `json:"accuracyByConfidence"`
	AccuracyByMarketCondition ConditionBreakdown  `json:"accuracyByMarketCondition"`

	Predictions []models.PredictionRecord `json:"predictions"`
}

// Config drives a replay over historical candles
type Config struct {
	Symbol   string
	Interval string

	// Number of windows to evaluate
	Periods int
	Warmup  int
	BetSize float64

	ShowProgress bool
	OutputPath   string // JSON dump, skipped when empty
}

// NewConfig creates default config
func NewConfig() Config {
	return Config{
		Symbol:       "BNBUSDT",
		Interval:     models.CandleInterval5m,
		Periods:      10,
		Warmup:       DefaultWarmup,
		BetSize:      BetSize,
		ShowProgress: true,
	}
}

// Horizon is how far ahead a prediction is judged
func (c Config) Horizon() time.Duration {
	switch c.Interval {
	case models.CandleInterval1m:
		return time.Minute
	case models.CandleInterval15m:
		return 15 * time.Minute
	case models.CandleInterval1h:
		return time.Hour
	default:
		return 5 * time.Minute
	}
}
