package indicators

// Qualitative labels shared by the indicator results
const (
	SignalOverbought = "OVERBOUGHT"
	SignalOversold   = "OVERSOLD"
	SignalNeutral    = "NEUTRAL"

	TrendBullish = "BULLISH"
	TrendBearish = "BEARISH"
	TrendNeutral = "NEUTRAL"

	LevelLow    = "LOW"
	LevelMedium = "MEDIUM"
	LevelHigh   = "HIGH"

	ATRIncreasing = "INCREASING"
	ATRDecreasing = "DECREASING"
	ATRStable     = "STABLE"

	PositionAbove = "ABOVE"
	PositionBelow = "BELOW"
)

// Trailing windows used by the trend and divergence comparisons
const (
	ATRTrendWindow      = 20
	OBVTrendWindow      = 10
	OBVDivergenceWindow = 20
	MFIDivergenceSpread = 10.0
)

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func sign(v float64) int {
	if v > 0 {
		return 1
	} else if v < 0 {
		return -1
	}
	return 0
}
