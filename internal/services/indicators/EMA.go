package indicators

import "github.com/markcheno/go-talib"

// EMAService provides Exponential Moving Average calculations
type EMAService struct{}

// EMAAlignment describes the ordering of a fast, medium and slow EMA
type EMAAlignment struct {
	Fast    float64
	Medium  float64
	Slow    float64
	Bullish bool // fast > medium > slow
	Bearish bool // fast < medium < slow
}

// NewEMAService creates a new EMA service instance
func NewEMAService() *EMAService {
	return &EMAService{}
}

// Calculate returns the EMA of the latest price. The seed is the simple
// average of the first period prices; with fewer prices than period the
// last price is returned unchanged.
func (s *EMAService) Calculate(prices []float64, period int) float64 {
	if len(prices) == 0 {
		return 0
	}
	if period <= 0 || len(prices) < period {
		return prices[len(prices)-1]
	}
	series := s.Series(prices, period)
	return series[len(series)-1]
}

// Series computes EMA for the entire price series. Entries before period-1
// are zero.
func (s *EMAService) Series(prices []float64, period int) []float64 {
	if period <= 0 || len(prices) < period {
		return nil
	}
	if period == 1 {
		out := make([]float64, len(prices))
		copy(out, prices)
		return out
	}
	return talib.Ema(prices, period)
}

// CalculateOne advances an EMA by one price
func (s *EMAService) CalculateOne(price, prevEMA float64, period int) float64 {
	multiplier := 2.0 / float64(period+1)
	return (price-prevEMA)*multiplier + prevEMA
}

// Alignment computes the three EMAs and whether they are strictly ordered
func (s *EMAService) Alignment(prices []float64, fast, medium, slow int) EMAAlignment {
	a := EMAAlignment{
		Fast:   s.Calculate(prices, fast),
		Medium: s.Calculate(prices, medium),
		Slow:   s.Calculate(prices, slow),
	}
	a.Bullish = a.Fast > a.Medium && a.Medium > a.Slow
	a.Bearish = a.Fast < a.Medium && a.Medium < a.Slow
	return a
}

// Aligned reports strict monotonic ordering in either direction
func (a EMAAlignment) Aligned() bool {
	return a.Bullish || a.Bearish
}
