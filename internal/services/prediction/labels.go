package prediction

import "BNBPredictionBot/internal/services/analysis"

const (
	TrendBullish = "Bullish"
	TrendBearish = "Bearish"
	TrendNeutral = "Neutral"

	VolumeHigh         = "High Volume"
	VolumeAboveAverage = "Above Average"
	VolumeBelowAverage = "Below Average"
	VolumeLow          = "Low Volume"
)

// TrendLabel votes EMA alignment, MACD histogram and RSI side
func TrendLabel(snap *analysis.IndicatorSnapshot) string {
	bullish, bearish := 0, 0

	switch {
	case snap.EMA.Bullish:
		bullish++
	case snap.EMA.Bearish:
		bearish++
	}
	if snap.MACD.Histogram > 0 {
		bullish++
	} else {
		bearish++
	}
	if snap.RSI.Value > 50 {
		bullish++
	} else {
		bearish++
	}

	switch {
	case bullish > bearish:
		return TrendBullish
	case bearish > bullish:
		return TrendBearish
	}
	return TrendNeutral
}

func VolumeLabel(ratio float64) string {
	switch {
	case ratio > 1.5:
		return VolumeHigh
	case ratio > 1.0:
		return VolumeAboveAverage
	case ratio > 0.7:
		return VolumeBelowAverage
	}
	return VolumeLow
}
