package backtest

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"BNBPredictionBot/internal/models"
)

// CandleFetcher pulls history from the exchange
type CandleFetcher interface {
	GetHistoricalKlines(ctx context.Context, symbol, interval string, total int) ([]models.Candle, error)
}

// CandleStore keeps replayed history so later runs can work offline
type CandleStore interface {
	GetRecent(symbol, interval string, limit int) ([]models.Candle, error)
	SaveBatch(candles []models.Candle) error
}

// HistorySource loads the candles a replay runs over. The store is optional.
type HistorySource struct {
	fetcher CandleFetcher
	store   CandleStore
	log     zerolog.Logger
}

func NewHistorySource(fetcher CandleFetcher, store CandleStore, log zerolog.Logger) *HistorySource {
	return &HistorySource{
		fetcher: fetcher,
		store:   store,
		log:     log.With().Str("component", "history").Logger(),
	}
}

// Load fetches total candles from the exchange and stores them. When the
// exchange is unreachable it falls back to stored candles if enough exist.
func (h *HistorySource) Load(ctx context.Context, symbol, interval string, total int) ([]models.Candle, error) {
	candles, err := h.fetcher.GetHistoricalKlines(ctx, symbol, interval, total)
	if err == nil {
		h.log.Info().Int("candles", len(candles)).Str("symbol", symbol).Str("interval", interval).Msg("fetched history")
		if h.store != nil {
			if serr := h.store.SaveBatch(candles); serr != nil {
				h.log.Warn().Err(serr).Msg("failed to store history")
			}
		}
		return candles, nil
	}

	if h.store == nil {
		return nil, fmt.Errorf("load history: %w", err)
	}

	h.log.Warn().Err(err).Msg("exchange history unavailable, using stored candles")
	stored, serr := h.store.GetRecent(symbol, interval, total)
	if serr != nil {
		return nil, fmt.Errorf("load history: %w (store: %v)", err, serr)
	}
	if len(stored) < total {
		return nil, fmt.Errorf("load history: %w (store has %d of %d candles)", err, len(stored), total)
	}
	return stored, nil
}
