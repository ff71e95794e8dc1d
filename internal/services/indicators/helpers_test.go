package indicators

import (
	"math"
	"time"

	"BNBPredictionBot/internal/models"
)

var testStart = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

func flatCandles(n int) []models.Candle {
	candles := make([]models.Candle, n)
	for i := range candles {
		candles[i] = models.Candle{
			OpenTime: testStart.Add(time.Duration(i) * 5 * time.Minute),
			Open:     100, High: 101, Low: 99, Close: 100, Volume: 10,
		}
	}
	return candles
}

func risingCandles(n int) []models.Candle {
	candles := make([]models.Candle, n)
	for i := range candles {
		close := 100 + float64(i)
		candles[i] = models.Candle{
			OpenTime: testStart.Add(time.Duration(i) * 5 * time.Minute),
			Open:     close - 0.5, High: close + 0.5, Low: close - 1, Close: close, Volume: 10,
		}
	}
	return candles
}

func fallingCandles(n int) []models.Candle {
	candles := make([]models.Candle, n)
	for i := range candles {
		close := 200 - float64(i)
		candles[i] = models.Candle{
			OpenTime: testStart.Add(time.Duration(i) * 5 * time.Minute),
			Open:     close + 0.5, High: close + 1, Low: close - 0.5, Close: close, Volume: 10,
		}
	}
	return candles
}

func almostEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
