package prediction

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"BNBPredictionBot/internal/cache"
	"BNBPredictionBot/internal/metrics"
	"BNBPredictionBot/internal/models"
	"BNBPredictionBot/internal/operations/backtest"
	"BNBPredictionBot/internal/services/advisor"
	"BNBPredictionBot/internal/services/analysis"
)

const lockTTL = 10 * time.Second

// Deps are the collaborators of a PredictionService. Rounds, Store, Cache
// and Metrics are optional.
type Deps struct {
	Market  MarketFetcher
	Prices  PriceSource
	Rounds  RoundSource
	Advisor advisor.Advisor
	Store   PredictionSaver
	Cache   cache.Store
	Metrics *metrics.Recorder
	Weights analysis.WeightTable
}

type PredictionService struct {
	cfg      Config
	market   MarketFetcher
	prices   PriceSource
	rounds   RoundSource
	advisor  advisor.Advisor
	store    PredictionSaver
	cache    cache.Store
	metrics  *metrics.Recorder
	analysis *analysis.Analysis
	detector *analysis.ConditionDetector
	scorer   *analysis.Scorer
	log      zerolog.Logger
	now      func() time.Time
}

func NewPredictionService(cfg Config, deps Deps, log zerolog.Logger) *PredictionService {
	def := DefaultConfig()
	if cfg.Symbol == "" {
		cfg.Symbol = def.Symbol
	}
	if cfg.Interval == "" {
		cfg.Interval = def.Interval
	}
	if cfg.CandleLimit <= 0 {
		cfg.CandleLimit = def.CandleLimit
	}
	if cfg.DepthLimit <= 0 {
		cfg.DepthLimit = def.DepthLimit
	}
	if cfg.TradeLimit <= 0 {
		cfg.TradeLimit = def.TradeLimit
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = def.CacheTTL
	}
	if cfg.Horizon <= 0 {
		cfg.Horizon = def.Horizon
	}

	return &PredictionService{
		cfg:      cfg,
		market:   deps.Market,
		prices:   deps.Prices,
		rounds:   deps.Rounds,
		advisor:  deps.Advisor,
		store:    deps.Store,
		cache:    deps.Cache,
		metrics:  deps.Metrics,
		analysis: analysis.NewAnalysis(analysis.DefaultPeriods()),
		detector: analysis.NewConditionDetector(deps.Weights),
		scorer:   analysis.NewScorer(),
		log:      log.With().Str("component", "prediction").Logger(),
		now:      time.Now,
	}
}

func latestKey(symbol string) string {
	return "prediction:latest:" + strings.ToLower(symbol)
}

// GeneratePrediction runs the full live pipeline. Advisor failures are
// returned as is; no fallback call is made up.
func (s *PredictionService) GeneratePrediction(ctx context.Context) (*Result, error) {
	start := s.now()

	if s.cache != nil {
		acquired, err := s.cache.TryLock(ctx, "prediction:lock:"+strings.ToLower(s.cfg.Symbol), lockTTL)
		if err != nil {
			s.log.Warn().Err(err).Msg("prediction lock unavailable")
		} else if !acquired {
			if cached, err := s.Latest(ctx); err == nil {
				s.log.Debug().Msg("prediction in flight, serving cached result")
				return cached, nil
			}
		}
	}

	hp, err := s.prices.GetHybridPrice(ctx, s.cfg.Symbol)
	if err != nil {
		s.metrics.RecordError("price")
		return nil, fmt.Errorf("hybrid price: %w", err)
	}

	round := s.roundInfo(ctx)

	md, err := s.market.GetEnhancedMarketData(ctx, s.cfg.Symbol, s.cfg.Interval, s.cfg.CandleLimit, s.cfg.DepthLimit, s.cfg.TradeLimit)
	if err != nil {
		s.metrics.RecordError("exchange")
		return nil, fmt.Errorf("market data: %w", err)
	}
	md.CurrentPrice = hp.SelectedPrice

	snap, err := s.analysis.Snapshot(md.Candles, md.OrderBook, md.Trades)
	if err != nil {
		return nil, fmt.Errorf("indicator snapshot: %w", err)
	}
	condition := s.detector.Detect(snap)

	advice, err := s.advisor.Advise(ctx, advisor.AdviceRequest{Market: md, Snapshot: snap, Condition: &condition})
	if err != nil {
		s.metrics.RecordError("advisor")
		return nil, fmt.Errorf("advisor: %w", err)
	}
	confidence := advice.Confidence * hp.ConfidenceAdjustment

	pp, err := s.scorer.Predict(analysis.PredictionInput{
		CurrentPrice: hp.SelectedPrice,
		Direction:    advice.Prediction,
		Snapshot:     snap,
		Weights:      &condition.Weights,
	})
	if err != nil {
		return nil, fmt.Errorf("price prediction: %w", err)
	}

	now := s.now()
	result := &Result{
		Symbol:          s.cfg.Symbol,
		Prediction:      advice.Prediction,
		Confidence:      confidence,
		CurrentPrice:    hp.SelectedPrice,
		PredictedPrice:  pp.PredictedPrice,
		PriceRange:      pp.PriceRange,
		ExpectedChange:  pp.ExpectedChange,
		Reasoning:       advice.Reasoning,
		KeyFactors:      advice.KeyFactors,
		RiskLevel:       advice.RiskLevel,
		SuggestedAction: advice.SuggestedAction,
		Indicators: IndicatorSummary{
			RSI:    snap.RSI.Value,
			Trend:  TrendLabel(snap),
			Volume: VolumeLabel(snap.Volume.CurrentVolumeRatio),
		},
		MarketCondition: condition,
		Scores:          pp.Scores,
		PriceSource:     hp.SelectedSource,
		PriceConfidence: hp.ConfidenceAdjustment,
		Round:           round,
		Timestamp:       now,
	}

	s.persist(result, snap)
	s.cacheResult(ctx, result)

	s.metrics.RecordPrediction(string(result.Prediction), string(condition.Primary), confidence)
	s.metrics.RecordLatency("prediction", s.now().Sub(start).Seconds())

	s.log.Info().
		Str("prediction", string(result.Prediction)).
		Float64("confidence", confidence).
		Float64("price", result.CurrentPrice).
		Str("source", result.PriceSource).
		Str("condition", string(condition.Primary)).
		Msg("prediction generated")

	return result, nil
}

func (s *PredictionService) roundInfo(ctx context.Context) *RoundInfo {
	if s.rounds == nil {
		return nil
	}
	timing, err := s.rounds.RoundTiming(ctx)
	if err != nil {
		s.log.Warn().Err(err).Msg("round timing unavailable")
		s.metrics.RecordError("rounds")
		return nil
	}
	untilLock, err := s.rounds.TimeUntilLock(ctx)
	if err != nil {
		s.log.Warn().Err(err).Msg("time until lock unavailable")
		untilLock = 0
	}
	open, err := s.rounds.IsInBettingPhase(ctx)
	if err != nil {
		s.log.Warn().Err(err).Msg("betting phase unavailable")
	}
	return &RoundInfo{
		CurrentEpoch:       timing.CurrentEpoch,
		TimeUntilLock:      untilLock,
		TimeUntilNextRound: timing.TimeUntilNextRound,
		IsOptimalTime:      timing.IsOptimalTime,
		BettingOpen:        open,
	}
}

func (s *PredictionService) persist(result *Result, snap *analysis.IndicatorSnapshot) {
	if s.store == nil {
		return
	}
	rec := &models.PredictionRecord{
		ID:              uuid.New(),
		Symbol:          result.Symbol,
		Timestamp:       result.Timestamp,
		Direction:       string(result.Prediction),
		Confidence:      result.Confidence,
		CurrentPrice:    result.CurrentPrice,
		PredictedPrice:  result.PredictedPrice,
		MarketCondition: backtest.DetermineMarketCondition(snap.ATR.Percent, snap.EMA.Aligned(), snap.Bollinger.Bandwidth),
		Status:          models.PredictionStatusPending,
		ResolveAt:       result.Timestamp.Add(s.cfg.Horizon),
	}
	if err := s.store.Create(rec); err != nil {
		s.log.Error().Err(err).Msg("failed to save prediction")
		s.metrics.RecordError("database")
		return
	}
	result.ID = rec.ID.String()
}

func (s *PredictionService) cacheResult(ctx context.Context, result *Result) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, latestKey(s.cfg.Symbol), result, s.cfg.CacheTTL); err != nil {
		s.log.Warn().Err(err).Msg("failed to cache prediction")
		s.metrics.RecordError("cache")
	}
}

// Latest returns the most recent prediction still in the cache
func (s *PredictionService) Latest(ctx context.Context) (*Result, error) {
	if s.cache == nil {
		return nil, ErrNoPrediction
	}
	var result Result
	if err := s.cache.Get(ctx, latestKey(s.cfg.Symbol), &result); err != nil {
		if errors.Is(err, cache.ErrCacheMiss) {
			return nil, ErrNoPrediction
		}
		return nil, err
	}
	return &result, nil
}

// PredictWindow makes a call from candles alone so the backtest engine can
// replay history through the same aggregator, detector and scorer.
func (s *PredictionService) PredictWindow(ctx context.Context, candles []models.Candle) (*backtest.WindowPrediction, error) {
	snap, err := s.analysis.Snapshot(candles, nil, nil)
	if err != nil {
		return nil, err
	}
	condition := s.detector.Detect(snap)

	md := &models.MarketData{
		Symbol:       s.cfg.Symbol,
		CurrentPrice: snap.Price,
		Candles:      candles,
	}
	advice, err := s.advisor.Advise(ctx, advisor.AdviceRequest{Market: md, Snapshot: snap, Condition: &condition})
	if err != nil {
		return nil, err
	}

	pp, err := s.scorer.Predict(analysis.PredictionInput{
		CurrentPrice: snap.Price,
		Direction:    advice.Prediction,
		Snapshot:     snap,
		Weights:      &condition.Weights,
	})
	if err != nil {
		return nil, err
	}

	return &backtest.WindowPrediction{
		Direction:      string(advice.Prediction),
		Confidence:     advice.Confidence,
		PredictedPrice: pp.PredictedPrice,
		Snapshot:       snap,
	}, nil
}

// MarketSummary renders the 24h ticker as a Markdown message
func (s *PredictionService) MarketSummary(ctx context.Context) (string, error) {
	t, err := s.market.Get24hrTicker(ctx, s.cfg.Symbol)
	if err != nil {
		s.metrics.RecordError("exchange")
		return "", fmt.Errorf("24h ticker: %w", err)
	}

	emoji := "📉"
	if t.PriceChangePercent > 0 {
		emoji = "📈"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s *BNB Market Summary*\n\n", emoji)
	fmt.Fprintf(&b, "💰 Current Price: $%.2f\n", t.LastPrice)
	fmt.Fprintf(&b, "📊 24h Change: %+.2f%%\n", t.PriceChangePercent)
	fmt.Fprintf(&b, "📈 24h High: $%.2f\n", t.HighPrice)
	fmt.Fprintf(&b, "📉 24h Low: $%.2f\n", t.LowPrice)
	fmt.Fprintf(&b, "💹 24h Volume: %.2f BNB", t.Volume)
	return b.String(), nil
}
