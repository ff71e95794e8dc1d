package advisor

import (
	"context"
	"errors"
	"fmt"
	"math"

	"BNBPredictionBot/internal/services/analysis"
)

// ScoreAdvisor decides from the weighted category scores alone. Backtests
// use it where no gateway is available.
type ScoreAdvisor struct {
	scorer *analysis.Scorer
}

func NewScoreAdvisor() *ScoreAdvisor {
	return &ScoreAdvisor{scorer: analysis.NewScorer()}
}

func (a *ScoreAdvisor) Advise(_ context.Context, req AdviceRequest) (*Advice, error) {
	if req.Snapshot == nil {
		return nil, errors.New("score advisor: snapshot cannot be nil")
	}

	weights := analysis.DefaultWeights()
	if req.Condition != nil {
		weights = req.Condition.Weights
	}

	// no direction yet, so divergence adjustments are left out
	scores := a.scorer.Score(req.Snapshot, "")
	total := scores.Total(weights)
	strength := (total - 50) / 50

	dir := analysis.Down
	if total >= 50 {
		dir = analysis.Up
	}

	risk := RiskMedium
	switch {
	case math.Abs(strength) >= 0.4:
		risk = RiskLow
	case math.Abs(strength) < 0.1:
		risk = RiskHigh
	}

	return &Advice{
		Prediction: dir,
		Confidence: 50 + 50*math.Abs(strength),
		Reasoning:  fmt.Sprintf("weighted score %.1f", total),
		KeyFactors: []string{
			fmt.Sprintf("order book %.0f", scores.OrderBook),
			fmt.Sprintf("trade flow %.0f", scores.TradeFlow),
			fmt.Sprintf("momentum %.0f", scores.Momentum),
			fmt.Sprintf("trend %.0f", scores.Trend),
			fmt.Sprintf("volume %.0f", scores.Volume),
		},
		RiskLevel:       risk,
		SuggestedAction: "Offline score only",
	}, nil
}
