package analysis

import (
	"fmt"
	"math"

	"BNBPredictionBot/internal/models"
)

// ValidationError reports malformed market data handed to the analyzers
type ValidationError struct {
	Field  string
	Index  int
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("invalid %s[%d]: %s", e.Field, e.Index, e.Reason)
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func invalid(field string, index int, format string, args ...any) error {
	return &ValidationError{Field: field, Index: index, Reason: fmt.Sprintf(format, args...)}
}

func badNumber(v float64) bool {
	return math.IsNaN(v) || math.IsInf(v, 0) || v < 0
}

// ValidateCandles checks OHLC consistency and ascending open times
func ValidateCandles(candles []models.Candle) error {
	if len(candles) == 0 {
		return invalid("candles", -1, "empty window")
	}
	for i, c := range candles {
		for _, v := range []float64{c.Open, c.High, c.Low, c.Close, c.Volume} {
			if badNumber(v) {
				return invalid("candles", i, "negative or non-finite value %v", v)
			}
		}
		if c.High < math.Max(c.Open, c.Close) || c.Low > math.Min(c.Open, c.Close) {
			return invalid("candles", i, "high %.8f / low %.8f do not bound open and close", c.High, c.Low)
		}
		if i > 0 && !c.OpenTime.After(candles[i-1].OpenTime) {
			return invalid("candles", i, "open time %s not after previous candle", c.OpenTime)
		}
	}
	return nil
}

// ValidateOrderBook checks level ordering and that the book is not crossed
func ValidateOrderBook(book *models.OrderBookSnapshot) error {
	if book == nil {
		return nil
	}
	check := func(field string, levels []models.BookLevel, descending bool) error {
		for i, l := range levels {
			if badNumber(l.Quantity) || badNumber(l.Price) || l.Price == 0 {
				return invalid(field, i, "bad level %.8f x %.8f", l.Price, l.Quantity)
			}
			if i == 0 {
				continue
			}
			prev := levels[i-1].Price
			if (descending && l.Price >= prev) || (!descending && l.Price <= prev) {
				return invalid(field, i, "levels out of order")
			}
		}
		return nil
	}
	if err := check("bids", book.Bids, true); err != nil {
		return err
	}
	if err := check("asks", book.Asks, false); err != nil {
		return err
	}
	if len(book.Bids) > 0 && len(book.Asks) > 0 && book.Bids[0].Price >= book.Asks[0].Price {
		return invalid("orderBook", -1, "crossed book, bid %.8f >= ask %.8f", book.Bids[0].Price, book.Asks[0].Price)
	}
	return nil
}

// ValidateTrades checks quantities and that timestamps never go backwards
func ValidateTrades(trades []models.TradeRecord) error {
	for i, t := range trades {
		if badNumber(t.Price) || badNumber(t.Quantity) {
			return invalid("trades", i, "negative or non-finite value")
		}
		if i > 0 && t.Time.Before(trades[i-1].Time) {
			return invalid("trades", i, "timestamp before previous trade")
		}
	}
	return nil
}
