package indicators

import "BNBPredictionBot/internal/models"

// MFIService computes the Money Flow Index, a volume weighted RSI
type MFIService struct{}

type MFIResult struct {
	Value          float64
	Signal         string
	Divergence     bool
	DivergenceType string // BULLISH when price fell but flow stayed strong, BEARISH for the reverse
}

func NewMFIService() *MFIService {
	return &MFIService{}
}

// Calculate sums positive and negative money flow over the trailing period
// candles. Fewer than period+1 candles yields 50/NEUTRAL.
func (s *MFIService) Calculate(candles []models.Candle, period int) MFIResult {
	res := MFIResult{Value: 50, Signal: SignalNeutral}
	if period <= 0 || len(candles) < period+1 {
		return res
	}

	var positive, negative float64
	start := len(candles) - period
	for i := start; i < len(candles); i++ {
		tp := candles[i].TypicalPrice()
		prev := candles[i-1].TypicalPrice()
		flow := tp * candles[i].Volume
		if tp > prev {
			positive += flow
		} else if tp < prev {
			negative += flow
		}
	}

	switch {
	case negative == 0 && positive == 0:
		res.Value = 50
	case negative == 0:
		res.Value = 100
	default:
		res.Value = 100 - 100/(1+positive/negative)
	}

	if res.Value < 20 {
		res.Signal = SignalOversold
	} else if res.Value > 80 {
		res.Signal = SignalOverbought
	}

	priceMove := candles[len(candles)-1].Close - candles[start-1].Close
	if priceMove > 0 && res.Value < 50-MFIDivergenceSpread {
		res.Divergence = true
		res.DivergenceType = TrendBearish
	} else if priceMove < 0 && res.Value > 50+MFIDivergenceSpread {
		res.Divergence = true
		res.DivergenceType = TrendBullish
	}
	return res
}
