package advisor

import (
	"context"
	"errors"

	"BNBPredictionBot/internal/models"
	"BNBPredictionBot/internal/services/analysis"
)

var (
	ErrInvalidResponse   = errors.New("advisor: invalid response")
	ErrTruncatedResponse = errors.New("advisor: response truncated")
)

const (
	RiskLow    = "LOW"
	RiskMedium = "MEDIUM"
	RiskHigh   = "HIGH"
)

// AdviceRequest carries everything an advisor may look at
type AdviceRequest struct {
	Market    *models.MarketData
	Snapshot  *analysis.IndicatorSnapshot
	Condition *analysis.MarketConditionAnalysis
}

// Advice is the directional call. Confidence is 0-100.
type Advice struct {
	Prediction      analysis.Direction `json:"prediction"`
	Confidence      float64            `json:"confidence"`
	Reasoning       string             `json:"reasoning"`
	KeyFactors      []string           `json:"keyFactors"`
	RiskLevel       string             `json:"riskLevel"`
	SuggestedAction string             `json:"suggestedAction"`
}

type Advisor interface {
	Advise(ctx context.Context, req AdviceRequest) (*Advice, error)
}
