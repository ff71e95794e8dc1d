package indicators

import (
	"math"

	"BNBPredictionBot/internal/models"
)

// ATRService measures volatility as the average true range
type ATRService struct{}

type ATRResult struct {
	Value   float64
	Percent float64 // ATR relative to the current price, in percent
	Level   string  // LOW, MEDIUM or HIGH
	Trend   string  // INCREASING, DECREASING or STABLE
}

func NewATRService() *ATRService {
	return &ATRService{}
}

// Calculate returns the simple average of the last period true ranges, or 0
// when fewer than period+1 candles are available.
func (s *ATRService) Calculate(candles []models.Candle, period int) float64 {
	if period <= 0 || len(candles) < period+1 {
		return 0
	}
	ranges := s.TrueRanges(candles)
	return mean(ranges[len(ranges)-period:])
}

// Analyze adds the level and trend classification to the ATR value
func (s *ATRService) Analyze(candles []models.Candle, period int) ATRResult {
	res := ATRResult{Level: LevelLow, Trend: ATRStable}
	res.Value = s.Calculate(candles, period)
	if len(candles) == 0 {
		return res
	}

	price := candles[len(candles)-1].Close
	if price > 0 {
		res.Percent = res.Value / price * 100
	}
	switch {
	case res.Percent < 1:
		res.Level = LevelLow
	case res.Percent < 2:
		res.Level = LevelMedium
	default:
		res.Level = LevelHigh
	}

	res.Trend = s.trend(s.TrueRanges(candles))
	return res
}

// TrueRanges returns one true range per candle after the first
func (s *ATRService) TrueRanges(candles []models.Candle) []float64 {
	if len(candles) < 2 {
		return nil
	}
	ranges := make([]float64, 0, len(candles)-1)
	for i := 1; i < len(candles); i++ {
		c := candles[i]
		prevClose := candles[i-1].Close
		tr := math.Max(c.High-c.Low, math.Max(math.Abs(c.High-prevClose), math.Abs(c.Low-prevClose)))
		ranges = append(ranges, tr)
	}
	return ranges
}

// trend compares the recent window of true ranges with the window before it
func (s *ATRService) trend(ranges []float64) string {
	if len(ranges) < 2*ATRTrendWindow {
		return ATRStable
	}
	n := len(ranges)
	recent := mean(ranges[n-ATRTrendWindow:])
	prior := mean(ranges[n-2*ATRTrendWindow : n-ATRTrendWindow])
	if prior <= 0 {
		if recent > 0 {
			return ATRIncreasing
		}
		return ATRStable
	}
	switch {
	case recent > prior*1.1:
		return ATRIncreasing
	case recent < prior*0.9:
		return ATRDecreasing
	}
	return ATRStable
}
