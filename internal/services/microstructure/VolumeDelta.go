package microstructure

import (
	"math"

	"BNBPredictionBot/internal/models"
)

const (
	CurrentDeltaWindow = 10
	DeltaTrendWindow   = 30
	deltaTrendShare    = 0.2

	DeltaBullish = "BULLISH"
	DeltaBearish = "BEARISH"
	DeltaNeutral = "NEUTRAL"
)

type VolumeDeltaAnalysis struct {
	CurrentDelta    float64 // signed volume of the last 10 trades
	CumulativeDelta float64
	Trend           string
}

type VolumeDeltaService struct{}

func NewVolumeDeltaService() *VolumeDeltaService {
	return &VolumeDeltaService{}
}

func (s *VolumeDeltaService) Analyze(trades []models.TradeRecord) VolumeDeltaAnalysis {
	res := VolumeDeltaAnalysis{Trend: DeltaNeutral}
	if len(trades) == 0 {
		return res
	}

	deltas := make([]float64, len(trades))
	for i, t := range trades {
		if t.BuyerIsTaker {
			deltas[i] = t.Quantity
		} else {
			deltas[i] = -t.Quantity
		}
		res.CumulativeDelta += deltas[i]
	}

	n := len(deltas)
	res.CurrentDelta = sum(deltas[max(0, n-CurrentDeltaWindow):])

	if n >= 2*DeltaTrendWindow {
		recent := sum(deltas[n-DeltaTrendWindow:])
		prior := sum(deltas[n-2*DeltaTrendWindow : n-DeltaTrendWindow])
		threshold := deltaTrendShare * math.Max(math.Abs(recent), math.Abs(prior))
		switch diff := recent - prior; {
		case diff > threshold:
			res.Trend = DeltaBullish
		case diff < -threshold:
			res.Trend = DeltaBearish
		}
	}
	return res
}

func sum(values []float64) float64 {
	total := 0.0
	for _, v := range values {
		total += v
	}
	return total
}
