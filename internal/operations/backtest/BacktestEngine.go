package backtest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/schollz/progressbar/v3"

	"BNBPredictionBot/internal/models"
	"BNBPredictionBot/internal/services/analysis"
)

var ErrNotEnoughCandles = errors.New("backtest: not enough candles for warmup")

// WindowPrediction is a predictor's call for one candle window
type WindowPrediction struct {
	Direction      string
	Confidence     float64
	PredictedPrice float64
	Snapshot       *analysis.IndicatorSnapshot
}

// Predictor produces a call from candles alone, without live book or trades
type Predictor interface {
	PredictWindow(ctx context.Context, candles []models.Candle) (*WindowPrediction, error)
}

type Engine struct {
	predictor Predictor
	config    Config
	log       zerolog.Logger
	progress  io.Writer
}

func NewEngine(predictor Predictor, config Config, log zerolog.Logger) *Engine {
	if config.Warmup <= 0 {
		config.Warmup = DefaultWarmup
	}
	if config.BetSize <= 0 {
		config.BetSize = BetSize
	}
	return &Engine{
		predictor: predictor,
		config:    config,
		log:       log.With().Str("component", "backtest").Logger(),
		progress:  os.Stderr,
	}
}

// Run replays the trailing Periods windows of candles. Window i predicts the
// close of candle i+1. Windows whose prediction fails are skipped.
func (e *Engine) Run(ctx context.Context, candles []models.Candle) (*BacktestResults, error) {
	if len(candles) < e.config.Warmup+2 {
		return nil, fmt.Errorf("%w: have %d, need %d", ErrNotEnoughCandles, len(candles), e.config.Warmup+2)
	}

	start := e.config.Warmup
	if e.config.Periods > 0 && len(candles)-1-e.config.Periods > start {
		start = len(candles) - 1 - e.config.Periods
	}
	windows := len(candles) - 1 - start

	e.log.Info().
		Str("symbol", e.config.Symbol).
		Int("candles", len(candles)).
		Int("windows", windows).
		Msg("starting backtest")

	var bar *progressbar.ProgressBar
	if e.config.ShowProgress {
		bar = progressbar.NewOptions(windows,
			progressbar.OptionSetWriter(e.progress),
			progressbar.OptionShowCount(),
			progressbar.OptionSetWidth(40),
			progressbar.OptionSetDescription("Replaying"),
		)
	}

	records := make([]models.PredictionRecord, 0, windows)
	for i := start; i < len(candles)-1; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		rec, err := e.evaluate(ctx, candles[:i+1], candles[i+1])
		if bar != nil {
			bar.Add(1)
		}
		if err != nil {
			e.log.Error().Err(err).Int("index", i).Msg("prediction failed, skipping window")
			continue
		}
		records = append(records, *rec)

		if len(records)%10 == 0 {
			correct := 0
			for _, r := range records {
				if r.Correct {
					correct++
				}
			}
			e.log.Debug().
				Int("done", len(records)).
				Float64("accuracy", float64(correct)/float64(len(records))*100).
				Msg("backtest progress")
		}
	}
	if bar != nil {
		bar.Finish()
		fmt.Fprintln(e.progress)
	}

	results := CalculateResults(records, e.config.BetSize)
	e.log.Info().
		Int("predictions", results.TotalPredictions).
		Float64("accuracy", results.Accuracy).
		Float64("pnl", results.ProfitLoss).
		Msg("backtest finished")

	return results, nil
}

func (e *Engine) evaluate(ctx context.Context, window []models.Candle, next models.Candle) (*models.PredictionRecord, error) {
	last := window[len(window)-1]

	pred, err := e.predictor.PredictWindow(ctx, window)
	if err != nil {
		return nil, err
	}

	condition := models.ConditionRanging
	if snap := pred.Snapshot; snap != nil {
		condition = DetermineMarketCondition(snap.ATR.Percent, snap.EMA.Aligned(), snap.Bollinger.Bandwidth)
	}

	rec := &models.PredictionRecord{
		Symbol:          e.config.Symbol,
		Timestamp:       last.CloseTime,
		Direction:       pred.Direction,
		Confidence:      pred.Confidence,
		CurrentPrice:    last.Close,
		PredictedPrice:  pred.PredictedPrice,
		MarketCondition: condition,
		ResolveAt:       next.CloseTime,
	}
	Resolve(rec, next.Close, e.config.BetSize)
	return rec, nil
}
