package analysis

import (
	"math"
	"time"

	"BNBPredictionBot/internal/models"
	"BNBPredictionBot/internal/services/indicators"
)

var testStart = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

func candleSeries(closes []float64, spread, volume float64) []models.Candle {
	candles := make([]models.Candle, len(closes))
	for i, c := range closes {
		open := c
		if i > 0 {
			open = closes[i-1]
		}
		candles[i] = models.Candle{
			OpenTime:  testStart.Add(time.Duration(i) * 5 * time.Minute),
			CloseTime: testStart.Add(time.Duration(i+1)*5*time.Minute - time.Millisecond),
			Open:      open,
			High:      math.Max(open, c) + spread,
			Low:       math.Min(open, c) - spread,
			Close:     c,
			Volume:    volume,
		}
	}
	return candles
}

func flatCandles(n int) []models.Candle {
	closes := make([]float64, n)
	for i := range closes {
		closes[i] = 100
	}
	return candleSeries(closes, 1, 10)
}

func risingCandles(n int) []models.Candle {
	closes := make([]float64, n)
	for i := range closes {
		closes[i] = 100 + float64(i)
	}
	return candleSeries(closes, 0.5, 10)
}

func fallingCandles(n int) []models.Candle {
	closes := make([]float64, n)
	for i := range closes {
		closes[i] = 200 - float64(i)
	}
	return candleSeries(closes, 0.5, 10)
}

// neutralSnapshot reads as NORMAL with balanced weights
func neutralSnapshot() *IndicatorSnapshot {
	return &IndicatorSnapshot{
		Price:      600,
		RSI:        RSIReading{Value: 50, Signal: indicators.SignalNeutral},
		EMA:        indicators.EMAAlignment{Fast: 600, Medium: 600, Slow: 600},
		Bollinger:  indicators.BBandsResult{Upper: 610, Middle: 600, Lower: 590, Bandwidth: 20.0 / 600},
		Volume:     VolumeProfile{AverageVolume: 10, CurrentVolume: 10, CurrentVolumeRatio: 1},
		ATR:        indicators.ATRResult{Value: 9, Percent: 1.5, Level: indicators.LevelMedium, Trend: indicators.ATRStable},
		Stochastic: indicators.StochasticResult{K: 50, D: 50, Signal: indicators.SignalNeutral},
		VWAP:       indicators.VWAPResult{Value: 600, Upper: 605, Lower: 595, Position: indicators.PositionBelow},
		MFI:        indicators.MFIResult{Value: 50, Signal: indicators.SignalNeutral},
		OBV:        indicators.OBVResult{Trend: indicators.TrendNeutral},
	}
}

func almostEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}
