package indicators

import "BNBPredictionBot/internal/models"

type StochasticService struct{}

type StochasticResult struct {
	K      float64
	D      float64
	Signal string
}

func NewStochasticService() *StochasticService {
	return &StochasticService{}
}

// Calculate returns %K over the last period candles. %D is reported equal
// to %K; no smoothing is applied.
func (s *StochasticService) Calculate(candles []models.Candle, period int) StochasticResult {
	k := 50.0
	if period > 0 && len(candles) >= period {
		window := candles[len(candles)-period:]
		lowest, highest := window[0].Low, window[0].High
		for _, c := range window[1:] {
			if c.Low < lowest {
				lowest = c.Low
			}
			if c.High > highest {
				highest = c.High
			}
		}
		if highest != lowest {
			k = (window[len(window)-1].Close - lowest) / (highest - lowest) * 100
		}
	}

	signal := SignalNeutral
	if k < 20 {
		signal = SignalOversold
	} else if k > 80 {
		signal = SignalOverbought
	}

	return StochasticResult{K: k, D: k, Signal: signal}
}
