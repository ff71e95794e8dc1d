package prediction

import (
	"context"
	"errors"
	"math/big"
	"time"

	"BNBPredictionBot/internal/models"
	"BNBPredictionBot/internal/operations/chain"
	"BNBPredictionBot/internal/operations/price"
	"BNBPredictionBot/internal/services/analysis"
)

var ErrNoPrediction = errors.New("no cached prediction")

// MarketFetcher is the exchange surface the service reads from
type MarketFetcher interface {
	GetEnhancedMarketData(ctx context.Context, symbol, interval string, candleLimit, depthLimit, tradeLimit int) (*models.MarketData, error)
	Get24hrTicker(ctx context.Context, symbol string) (*models.Ticker24h, error)
}

type PriceSource interface {
	GetHybridPrice(ctx context.Context, symbol string) (*price.HybridPrice, error)
}

type RoundSource interface {
	RoundTiming(ctx context.Context) (*chain.RoundTiming, error)
	IsInBettingPhase(ctx context.Context) (bool, error)
	TimeUntilLock(ctx context.Context) (time.Duration, error)
}

type PredictionSaver interface {
	Create(p *models.PredictionRecord) error
}

type Config struct {
	Symbol      string
	Interval    string
	CandleLimit int
	DepthLimit  int
	TradeLimit  int
	CacheTTL    time.Duration
	Horizon     time.Duration
}

func DefaultConfig() Config {
	return Config{
		Symbol:      "BNBUSDT",
		Interval:    "5m",
		CandleLimit: 100,
		DepthLimit:  100,
		TradeLimit:  100,
		CacheTTL:    30 * time.Second,
		Horizon:     5 * time.Minute,
	}
}

type RoundInfo struct {
	CurrentEpoch       *big.Int      `json:"currentEpoch"`
	TimeUntilLock      time.Duration `json:"timeUntilLock"`
	TimeUntilNextRound time.Duration `json:"timeUntilNextRound"`
	IsOptimalTime      bool          `json:"isOptimalTime"`
	BettingOpen        bool          `json:"bettingOpen"`
}

type IndicatorSummary struct {
	RSI    float64 `json:"rsi"`
	Trend  string  `json:"trend"`
	Volume string  `json:"volume"`
}

// Result is one live prediction as shown to users and cached for the API
type Result struct {
	ID              string                           `json:"id,omitempty"`
	Symbol          string                           `json:"symbol"`
	Prediction      analysis.Direction               `json:"prediction"`
	Confidence      float64                          `json:"confidence"`
	CurrentPrice    float64                          `json:"currentPrice"`
	PredictedPrice  float64                          `json:"predictedPrice"`
	PriceRange      analysis.PriceRange              `json:"priceRange"`
	ExpectedChange  float64                          `json:"expectedChange"`
	Reasoning       string                           `json:"reasoning"`
	KeyFactors      []string                         `json:"keyFactors"`
	RiskLevel       string                           `json:"riskLevel"`
	SuggestedAction string                           `json:"suggestedAction"`
	Indicators      IndicatorSummary                 `json:"indicators"`
	MarketCondition analysis.MarketConditionAnalysis `json:"marketCondition"`
	Scores          analysis.CategoryScores          `json:"scores"`
	PriceSource     string                           `json:"priceSource"`
	PriceConfidence float64                          `json:"priceConfidence"`
	Round           *RoundInfo                       `json:"roundInfo,omitempty"`
	Timestamp       time.Time                        `json:"timestamp"`
}
