package indicators

// RSIService computes Wilder's smoothed Relative Strength Index
type RSIService struct{}

const (
	RSIOverbought = 70.0
	RSIOversold   = 30.0
	rsiNeutral    = 50.0
)

func NewRSIService() *RSIService {
	return &RSIService{}
}

// Calculate returns the RSI of the latest price. Fewer than period+1 prices
// yields 50. A window with no losses yields 100, unless it also has no gains
// (a flat window), which stays at 50.
func (s *RSIService) Calculate(prices []float64, period int) float64 {
	if period <= 0 || len(prices) < period+1 {
		return rsiNeutral
	}

	var gains, losses float64
	for i := 1; i <= period; i++ {
		change := prices[i] - prices[i-1]
		if change > 0 {
			gains += change
		} else {
			losses -= change
		}
	}

	avgGain := gains / float64(period)
	avgLoss := losses / float64(period)
	p := float64(period)

	// Wilder smoothing over the remaining deltas
	for i := period + 1; i < len(prices); i++ {
		change := prices[i] - prices[i-1]
		gain, loss := 0.0, 0.0
		if change > 0 {
			gain = change
		} else {
			loss = -change
		}
		avgGain = (avgGain*(p-1) + gain) / p
		avgLoss = (avgLoss*(p-1) + loss) / p
	}

	if avgLoss == 0 {
		if avgGain == 0 {
			return rsiNeutral
		}
		return 100
	}

	rs := avgGain / avgLoss
	return 100 - (100 / (1 + rs))
}

// Signal labels an RSI reading
func (s *RSIService) Signal(rsi float64) string {
	switch {
	case rsi > RSIOverbought:
		return SignalOverbought
	case rsi < RSIOversold:
		return SignalOversold
	}
	return SignalNeutral
}
