package repositories

import (
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"BNBPredictionBot/internal/models"
)

type CandleRepository struct {
	db *gorm.DB
}

// NewCandleRepository creates a new instance of CandleRepository
func NewCandleRepository(db *gorm.DB) *CandleRepository {
	return &CandleRepository{db: db}
}

// SaveBatch upserts candles keyed by symbol, interval and open time. The
// still-forming last candle is overwritten as it updates.
func (r *CandleRepository) SaveBatch(candles []models.Candle) error {
	if len(candles) == 0 {
		return nil
	}
	return r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "symbol"}, {Name: "timeframe"}, {Name: "open_time"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"close_time", "open", "high", "low", "close", "volume",
			"quote_volume", "trade_count", "taker_buy_base_volume", "taker_buy_quote_volume",
		}),
	}).CreateInBatches(candles, 500).Error
}

// GetRecent gets the newest limit candles, returned oldest first
func (r *CandleRepository) GetRecent(symbol, interval string, limit int) ([]models.Candle, error) {
	if symbol == "" || interval == "" {
		return nil, errors.New("invalid symbol or interval")
	}

	var candles []models.Candle
	err := r.db.Where("symbol = ? AND timeframe = ?", symbol, interval).
		Order("open_time DESC").
		Limit(limit).
		Find(&candles).Error
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(candles)-1; i < j; i, j = i+1, j-1 {
		candles[i], candles[j] = candles[j], candles[i]
	}
	return candles, nil
}

// CloseAt returns the close of the candle covering t, nil when none is stored
func (r *CandleRepository) CloseAt(symbol, interval string, t time.Time) (*models.Candle, error) {
	var candle models.Candle
	err := r.db.Where("symbol = ? AND timeframe = ? AND open_time <= ? AND close_time >= ?",
		symbol, interval, t, t).
		First(&candle).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &candle, err
}
