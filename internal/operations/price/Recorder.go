package price

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"BNBPredictionBot/internal/models"
	"BNBPredictionBot/internal/operations/backtest"
)

// KlineClient is the exchange surface the recorder polls
type KlineClient interface {
	GetKlines(ctx context.Context, symbol, interval string, limit int) ([]models.Candle, error)
	GetCurrentPrice(ctx context.Context, symbol string) (float64, error)
}

type CandleSaver interface {
	SaveBatch(candles []models.Candle) error
}

// CandleStore also finds the stored candle covering an instant
type CandleStore interface {
	CandleSaver
	CloseAt(symbol, interval string, t time.Time) (*models.Candle, error)
}

// PredictionStore lists predictions awaiting an outcome
type PredictionStore interface {
	FindDue(now time.Time) ([]models.PredictionRecord, error)
	Update(rec *models.PredictionRecord) error
}

// PriceRecorder stores closed candles and resolves predictions once their
// horizon has passed.
type PriceRecorder struct {
	client      KlineClient
	candles     CandleStore
	predictions PredictionStore
	symbol      string
	betSize     float64
	log         zerolog.Logger
	now         func() time.Time
}

func NewPriceRecorder(client KlineClient, candles CandleStore, predictions PredictionStore, symbol string, log zerolog.Logger) *PriceRecorder {
	return &PriceRecorder{
		client:      client,
		candles:     candles,
		predictions: predictions,
		symbol:      symbol,
		betSize:     backtest.BetSize,
		log:         log.With().Str("component", "recorder").Logger(),
		now:         time.Now,
	}
}

// StartRecording runs one loop per timeframe plus the resolver. It returns
// immediately; loops stop with ctx.
func (r *PriceRecorder) StartRecording(ctx context.Context) {
	timeframes := map[string]time.Duration{
		models.CandleInterval5m:  5 * time.Minute,
		models.CandleInterval15m: 15 * time.Minute,
		models.CandleInterval1h:  time.Hour,
	}

	if r.candles != nil {
		for timeframe, interval := range timeframes {
			go r.every(ctx, interval, timeframe+" candles", func(ctx context.Context) {
				if err := r.RecordCandles(ctx, timeframe); err != nil {
					r.log.Error().Err(err).Str("timeframe", timeframe).Msg("error recording candles")
				}
			})
		}
	}
	if r.predictions != nil {
		go r.every(ctx, 30*time.Second, "outcomes", func(ctx context.Context) {
			if _, err := r.ResolveDue(ctx); err != nil {
				r.log.Error().Err(err).Msg("error resolving predictions")
			}
		})
	}
}

func (r *PriceRecorder) every(ctx context.Context, interval time.Duration, name string, fn func(context.Context)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	r.log.Info().Str("loop", name).Dur("interval", interval).Msg("starting")
	for {
		select {
		case <-ctx.Done():
			r.log.Info().Str("loop", name).Msg("stopping")
			return
		case <-ticker.C:
			fn(ctx)
		}
	}
}

// RecordCandles upserts the two newest candles so the previous one is
// stored in its final closed state.
func (r *PriceRecorder) RecordCandles(ctx context.Context, timeframe string) error {
	candles, err := r.client.GetKlines(ctx, r.symbol, timeframe, 2)
	if err != nil {
		return err
	}
	if err := r.candles.SaveBatch(candles); err != nil {
		return err
	}
	if len(candles) > 0 {
		r.log.Debug().Str("timeframe", timeframe).Float64("close", candles[len(candles)-1].Close).Msg("recorded candles")
	}
	return nil
}

// ResolveDue settles pending predictions past their horizon and returns how
// many were resolved. A prediction is judged on the close of the 5m candle
// covering its ResolveAt and waits while that candle is still open. Without a
// stored candle the current price is used.
func (r *PriceRecorder) ResolveDue(ctx context.Context) (int, error) {
	now := r.now()
	due, err := r.predictions.FindDue(now)
	if err != nil {
		return 0, err
	}
	if len(due) == 0 {
		return 0, nil
	}

	if r.candles != nil {
		if err := r.RecordCandles(ctx, models.CandleInterval5m); err != nil {
			r.log.Warn().Err(err).Msg("could not refresh candles before resolving")
		}
	}

	var (
		current float64
		fetched bool
	)
	resolved := 0
	for i := range due {
		rec := &due[i]

		outcome, source, err := r.horizonClose(rec, now)
		if err != nil {
			r.log.Error().Err(err).Str("id", rec.ID.String()).Msg("error looking up horizon candle")
			continue
		}
		if source == outcomePending {
			continue
		}
		if source == outcomeCurrent {
			if !fetched {
				if current, err = r.client.GetCurrentPrice(ctx, r.symbol); err != nil {
					return resolved, err
				}
				fetched = true
			}
			outcome = current
		}

		backtest.Resolve(rec, outcome, r.betSize)
		if err := r.predictions.Update(rec); err != nil {
			r.log.Error().Err(err).Str("id", rec.ID.String()).Msg("error saving outcome")
			continue
		}
		resolved++
		r.log.Info().
			Str("id", rec.ID.String()).
			Str("prediction", rec.Direction).
			Str("price_from", source).
			Float64("change", rec.ActualChange).
			Bool("correct", rec.Correct).
			Msg("prediction resolved")
	}
	return resolved, nil
}

const (
	outcomeCandle  = "candle"
	outcomeCurrent = "current"
	outcomePending = "pending"
)

func (r *PriceRecorder) horizonClose(rec *models.PredictionRecord, now time.Time) (float64, string, error) {
	if r.candles == nil {
		return 0, outcomeCurrent, nil
	}
	candle, err := r.candles.CloseAt(r.symbol, models.CandleInterval5m, rec.ResolveAt)
	if err != nil {
		return 0, "", err
	}
	if candle == nil {
		return 0, outcomeCurrent, nil
	}
	if candle.CloseTime.After(now) {
		return 0, outcomePending, nil
	}
	return candle.Close, outcomeCandle, nil
}
