package analysis

import (
	"errors"
	"math"

	"github.com/shopspring/decimal"

	"BNBPredictionBot/internal/services/indicators"
	"BNBPredictionBot/internal/services/microstructure"
)

const neutralScore = 50.0

// CategoryScores are each on a 0-100 scale with 50 meaning neutral
type CategoryScores struct {
	OrderBook float64 `json:"orderBook"`
	TradeFlow float64 `json:"tradeFlow"`
	Momentum  float64 `json:"momentum"`
	Trend     float64 `json:"trend"`
	Volume    float64 `json:"volume"`
}

// Total combines the category scores with the weight vector
func (c CategoryScores) Total(w Weights) float64 {
	return c.OrderBook*w.OrderBook +
		c.TradeFlow*w.TradeFlow +
		c.Momentum*w.Momentum +
		c.Trend*w.Trend +
		c.Volume*w.Volume
}

type PriceRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

type PricePrediction struct {
	Direction         Direction      `json:"direction"`
	CurrentPrice      float64        `json:"currentPrice"`
	PredictedPrice    float64        `json:"predictedPrice"`
	PriceRange        PriceRange     `json:"priceRange"`
	ExpectedChange    float64        `json:"expectedChange"` // percent
	TotalScore        float64        `json:"totalScore"`
	DirectionStrength float64        `json:"directionStrength"`
	Scores            CategoryScores `json:"scores"`
}

// PredictionInput is everything the scorer needs. Nil weights fall back to
// DefaultWeights.
type PredictionInput struct {
	CurrentPrice float64
	Direction    Direction
	Snapshot     *IndicatorSnapshot
	Weights      *Weights
}

// Scorer converts an indicator snapshot into a directional price estimate
type Scorer struct{}

func NewScorer() *Scorer {
	return &Scorer{}
}

func (s *Scorer) Predict(in PredictionInput) (*PricePrediction, error) {
	if in.Snapshot == nil {
		return nil, errors.New("snapshot cannot be nil")
	}
	if !in.Direction.Valid() {
		return nil, &ValidationError{Field: "direction", Index: -1, Reason: "must be UP or DOWN, got " + string(in.Direction)}
	}
	if badNumber(in.CurrentPrice) || in.CurrentPrice == 0 {
		return nil, &ValidationError{Field: "currentPrice", Index: -1, Reason: "must be positive"}
	}

	weights := DefaultWeights()
	if in.Weights != nil {
		weights = *in.Weights
	}

	scores := s.Score(in.Snapshot, in.Direction)
	pred := s.Project(in.CurrentPrice, in.Direction, scores.Total(weights), in.Snapshot)
	pred.Scores = scores
	return &pred, nil
}

// Score computes the five category scores. An empty direction skips the
// divergence adjustments, which only make sense against an asserted side.
func (s *Scorer) Score(snap *IndicatorSnapshot, dir Direction) CategoryScores {
	return CategoryScores{
		OrderBook: orderBookScore(snap.OrderBook),
		TradeFlow: tradeFlowScore(snap.TradeFlow),
		Momentum:  momentumScore(snap, dir),
		Trend:     trendScore(snap),
		Volume:    volumeScore(snap, dir),
	}
}

// Project turns a total score into a predicted price and range
func (s *Scorer) Project(current float64, dir Direction, totalScore float64, snap *IndicatorSnapshot) PricePrediction {
	strength := (totalScore - neutralScore) / neutralScore

	movement := 0.3 * snap.ATR.Value
	switch snap.ATR.Trend {
	case indicators.ATRIncreasing:
		movement *= 1.2
	case indicators.ATRDecreasing:
		movement *= 0.8
	}
	switch snap.ATR.Level {
	case indicators.LevelHigh:
		movement *= 1.2
	case indicators.LevelLow:
		movement *= 0.8
	}
	movement *= math.Abs(strength)

	bb, vwap := snap.Bollinger, snap.VWAP
	var predicted float64
	if dir == Up {
		predicted = current + movement
		if totalScore < 75 && bb.Upper > 0 {
			predicted = math.Min(predicted, bb.Upper*0.99)
		}
		if totalScore < 70 && vwap.Upper > 0 {
			predicted = math.Min(predicted, vwap.Upper*0.99)
		}
		predicted = math.Max(current, round(predicted, 2))
	} else {
		predicted = current - movement
		if totalScore > 25 && bb.Lower > 0 {
			predicted = math.Max(predicted, bb.Lower*1.01)
		}
		if totalScore > 30 && vwap.Lower > 0 {
			predicted = math.Max(predicted, vwap.Lower*1.01)
		}
		predicted = math.Min(current, round(predicted, 2))
	}

	confidence := math.Abs(totalScore-neutralScore) / neutralScore
	half := math.Max(0.25*snap.ATR.Value*(1-0.3*confidence), 0.01)
	lo, hi := predicted-half, predicted+half
	if bb.Upper > 0 {
		hi = math.Min(hi, bb.Upper*1.02)
	}
	if bb.Lower > 0 {
		lo = math.Max(lo, bb.Lower*0.98)
	}
	lo, hi = round(lo, 2), round(hi, 2)
	if lo >= hi {
		lo, hi = round(predicted-0.01, 2), round(predicted+0.01, 2)
	}

	return PricePrediction{
		Direction:         dir,
		CurrentPrice:      current,
		PredictedPrice:    predicted,
		PriceRange:        PriceRange{Min: lo, Max: hi},
		ExpectedChange:    round((predicted-current)/current*100, 3),
		TotalScore:        round(totalScore, 2),
		DirectionStrength: round(strength, 4),
	}
}

func orderBookScore(ob *microstructure.OrderBookAnalysis) float64 {
	if ob == nil {
		return neutralScore
	}
	score := ob.WeightedBuyPressure * 100
	if ob.OrderFlowImbalance > 0.15 {
		score += 15
	} else if ob.OrderFlowImbalance < -0.15 {
		score -= 15
	}
	switch ob.WhaleSide {
	case microstructure.SideBid:
		score += 10
	case microstructure.SideAsk:
		score -= 10
	}
	return clamp(score)
}

func tradeFlowScore(tf *microstructure.TradeFlowAnalysis) float64 {
	if tf == nil {
		return neutralScore
	}
	var score float64
	switch r := tf.TimeWeightedBuyRatio; {
	case r > 1.5:
		score = 80
	case r > 1.2:
		score = 70
	case r > 1.0:
		score = 60
	case r > 0.8:
		score = 50
	case r > 0.5:
		score = 30
	default:
		score = 20
	}
	if tf.TradeAcceleration > 0.2 {
		score += 10
	} else if tf.TradeAcceleration < -0.2 {
		score -= 10
	}
	if tf.VolumeWeightedBuyPercent > 60 {
		score += 10
	} else if tf.VolumeWeightedBuyPercent < 40 {
		score -= 10
	}
	if tf.WhaleTradeCount > 3 {
		score += 5
	}
	return clamp(score)
}

func momentumScore(snap *IndicatorSnapshot, dir Direction) float64 {
	score := neutralScore
	if snap.Stochastic.K < 20 {
		score += 20
	} else if snap.Stochastic.K > 80 {
		score -= 20
	}
	if snap.MFI.Value < 20 {
		score += 15
	} else if snap.MFI.Value > 80 {
		score -= 15
	}
	score += divergencePenalty(snap.MFI.Divergence, dir)
	if snap.ATR.Trend == indicators.ATRIncreasing {
		score += 5
	}
	return clamp(score)
}

func trendScore(snap *IndicatorSnapshot) float64 {
	score := neutralScore
	if snap.EMA.Bullish {
		score = 75
	} else if snap.EMA.Bearish {
		score = 25
	}
	if snap.MACD.Histogram > 0 {
		score += 10
	} else if snap.MACD.Histogram < 0 {
		score -= 10
	}
	if snap.VWAP.Value > 0 {
		if snap.VWAP.Position == indicators.PositionAbove {
			score += 10
		} else {
			score -= 10
		}
	}
	return clamp(score)
}

func volumeScore(snap *IndicatorSnapshot, dir Direction) float64 {
	score := neutralScore
	switch snap.OBV.Trend {
	case indicators.TrendBullish:
		score = 70
	case indicators.TrendBearish:
		score = 30
	}
	if snap.VolumeDelta != nil {
		switch snap.VolumeDelta.Trend {
		case microstructure.DeltaBullish:
			score += 15
		case microstructure.DeltaBearish:
			score -= 15
		}
	}
	score += divergencePenalty(snap.OBV.Divergence, dir)
	return clamp(score)
}

// divergencePenalty leans the score against the asserted direction
func divergencePenalty(divergence bool, dir Direction) float64 {
	if !divergence {
		return 0
	}
	switch dir {
	case Up:
		return -10
	case Down:
		return 10
	}
	return 0
}

func clamp(score float64) float64 {
	return math.Max(0, math.Min(100, score))
}

func round(v float64, places int32) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return decimal.NewFromFloat(v).Round(places).InexactFloat64()
}
