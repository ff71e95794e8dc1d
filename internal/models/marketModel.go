package models

import "time"

// BookLevel is a single (price, quantity) entry of an order book side.
type BookLevel struct {
	Price    float64 `json:"price"`
	Quantity float64 `json:"quantity"`
}

// OrderBookSnapshot holds bids sorted descending and asks sorted ascending.
type OrderBookSnapshot struct {
	Symbol       string      `json:"symbol"`
	LastUpdateID int64       `json:"lastUpdateId"`
	Bids         []BookLevel `json:"bids"`
	Asks         []BookLevel `json:"asks"`
}

// TradeRecord is one executed trade. BuyerIsTaker marks an aggressive buy.
type TradeRecord struct {
	ID           int64     `json:"id"`
	Price        float64   `json:"price"`
	Quantity     float64   `json:"quantity"`
	Time         time.Time `json:"time"`
	BuyerIsTaker bool      `json:"buyerIsTaker"`
}

// Ticker24h is the rolling 24 hour statistics for a symbol.
type Ticker24h struct {
	Symbol             string
	LastPrice          float64
	PriceChange        float64
	PriceChangePercent float64
	HighPrice          float64
	LowPrice           float64
	Volume             float64
	QuoteVolume        float64
	TradeCount         int64
}

// MarketData bundles everything fetched from the exchange for one prediction.
type MarketData struct {
	Symbol                string
	CurrentPrice          float64
	PriceChange24h        float64
	PriceChangePercent24h float64
	Volume24h             float64
	High24h               float64
	Low24h                float64
	Candles               []Candle
	OrderBook             *OrderBookSnapshot
	Trades                []TradeRecord
	Timestamp             time.Time
}
