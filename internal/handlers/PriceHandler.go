package handlers

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"BNBPredictionBot/internal/models"
	"BNBPredictionBot/internal/operations/price"
)

type HistoryClient interface {
	GetHistoricalKlines(ctx context.Context, symbol, interval string, total int) ([]models.Candle, error)
}

type Recorder interface {
	StartRecording(ctx context.Context)
}

// PriceHandler backfills stored candles and keeps the recorder running
type PriceHandler struct {
	client   HistoryClient
	candles  price.CandleSaver
	recorder Recorder
	symbol   string
	days     int
	log      zerolog.Logger
}

func NewPriceHandler(client HistoryClient, candles price.CandleSaver, recorder Recorder, symbol string, log zerolog.Logger) *PriceHandler {
	return &PriceHandler{
		client:   client,
		candles:  candles,
		recorder: recorder,
		symbol:   symbol,
		days:     7,
		log:      log.With().Str("component", "price_handler").Logger(),
	}
}

func (h *PriceHandler) Start(ctx context.Context) error {
	if err := h.fetchHistoricalData(ctx); err != nil {
		return err
	}

	h.recorder.StartRecording(ctx)
	return nil
}

func (h *PriceHandler) fetchHistoricalData(ctx context.Context) error {
	timeframes := map[string]time.Duration{
		models.CandleInterval5m:  5 * time.Minute,
		models.CandleInterval15m: 15 * time.Minute,
		models.CandleInterval1h:  time.Hour,
	}

	for timeframe, step := range timeframes {
		total := int(time.Duration(h.days) * 24 * time.Hour / step)
		h.log.Info().Str("timeframe", timeframe).Int("days", h.days).Int("candles", total).Msg("fetching historical data")

		candles, err := h.client.GetHistoricalKlines(ctx, h.symbol, timeframe, total)
		if err != nil {
			return fmt.Errorf("backfill %s: %w", timeframe, err)
		}
		if err := h.candles.SaveBatch(candles); err != nil {
			h.log.Error().Err(err).Str("timeframe", timeframe).Msg("error saving historical candles")
		}
	}

	return nil
}
