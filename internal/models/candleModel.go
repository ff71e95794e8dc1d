package models

import (
	"time"
)

// Candle is one OHLCV bar. Stored by the recorder so backtests can replay
// history without hitting the exchange.
type Candle struct {
	ID                  uint      `gorm:"primaryKey" json:"-"`
	Symbol              string    `gorm:"uniqueIndex:idx_candle_key;not null" json:"symbol"`
	Interval            string    `gorm:"column:timeframe;uniqueIndex:idx_candle_key;not null" json:"interval"`
	OpenTime            time.Time `gorm:"uniqueIndex:idx_candle_key;not null" json:"openTime"`
	CloseTime           time.Time `gorm:"index" json:"closeTime"`
	Open                float64   `gorm:"type:decimal(20,8)" json:"open"`
	High                float64   `gorm:"type:decimal(20,8)" json:"high"`
	Low                 float64   `gorm:"type:decimal(20,8)" json:"low"`
	Close               float64   `gorm:"type:decimal(20,8)" json:"close"`
	Volume              float64   `gorm:"type:decimal(20,8)" json:"volume"`
	QuoteVolume         float64   `gorm:"type:decimal(20,8)" json:"quoteVolume"`
	TradeCount          int64     `json:"tradeCount"`
	TakerBuyBaseVolume  float64   `gorm:"type:decimal(20,8)" json:"takerBuyBaseVolume"`
	TakerBuyQuoteVolume float64   `gorm:"type:decimal(20,8)" json:"takerBuyQuoteVolume"`
}

const (
	CandleInterval1m  = "1m"
	CandleInterval5m  = "5m"
	CandleInterval15m = "15m"
	CandleInterval1h  = "1h"
)

// TableName sets the table name for Candle model
func (Candle) TableName() string {
	return "candles"
}

// TypicalPrice returns (high+low+close)/3
func (c Candle) TypicalPrice() float64 {
	return (c.High + c.Low + c.Close) / 3
}

// Closes extracts closing prices in order
func Closes(candles []Candle) []float64 {
	closes := make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
	}
	return closes
}

// Volumes extracts volumes in order
func Volumes(candles []Candle) []float64 {
	volumes := make([]float64, len(candles))
	for i, c := range candles {
		volumes[i] = c.Volume
	}
	return volumes
}
