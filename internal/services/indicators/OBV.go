package indicators

import (
	"math"

	"BNBPredictionBot/internal/models"
)

// OBVService tracks On-Balance Volume
type OBVService struct{}

type OBVResult struct {
	Value      float64
	Trend      string
	Divergence bool
}

func NewOBVService() *OBVService {
	return &OBVService{}
}

// Series returns the running OBV, starting at zero for the first candle
func (s *OBVService) Series(candles []models.Candle) []float64 {
	if len(candles) == 0 {
		return nil
	}
	obv := make([]float64, len(candles))
	for i := 1; i < len(candles); i++ {
		switch {
		case candles[i].Close > candles[i-1].Close:
			obv[i] = obv[i-1] + candles[i].Volume
		case candles[i].Close < candles[i-1].Close:
			obv[i] = obv[i-1] - candles[i].Volume
		default:
			obv[i] = obv[i-1]
		}
	}
	return obv
}

func (s *OBVService) Calculate(candles []models.Candle) OBVResult {
	res := OBVResult{Trend: TrendNeutral}
	if len(candles) < 2 {
		return res
	}
	obv := s.Series(candles)
	n := len(obv)
	res.Value = obv[n-1]

	if n >= 2*OBVTrendWindow {
		recent := mean(obv[n-OBVTrendWindow:])
		prior := mean(obv[n-2*OBVTrendWindow : n-OBVTrendWindow])
		res.Trend = obvTrend(recent, prior)
	}

	if n >= OBVDivergenceWindow {
		from := n - OBVDivergenceWindow
		priceDir := sign(candles[n-1].Close - candles[from].Close)
		obvDir := sign(obv[n-1] - obv[from])
		res.Divergence = priceDir*obvDir < 0
	}
	return res
}

func obvTrend(recent, prior float64) string {
	if prior == 0 {
		switch {
		case recent > 0:
			return TrendBullish
		case recent < 0:
			return TrendBearish
		}
		return TrendNeutral
	}
	change := (recent - prior) / math.Abs(prior)
	switch {
	case change > 0.05:
		return TrendBullish
	case change < -0.05:
		return TrendBearish
	}
	return TrendNeutral
}
