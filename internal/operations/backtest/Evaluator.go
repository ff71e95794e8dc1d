package backtest

import (
	"math"

	"BNBPredictionBot/internal/models"
)

// IsCorrect reports whether direction matched the realised move. A flat
// close is wrong for both sides.
func IsCorrect(direction string, actualChange float64) bool {
	return (direction == models.DirectionUp && actualChange > 0) ||
		(direction == models.DirectionDown && actualChange < 0)
}

// PredictionPL is the simulated profit of one call under the 1.96x payout rule
func PredictionPL(direction string, actualChange, betSize float64) float64 {
	if IsCorrect(direction, actualChange) {
		return betSize * PayoutMultiplier
	}
	return -betSize
}

// Resolve fills the outcome fields of rec from the price observed at the horizon
func Resolve(rec *models.PredictionRecord, actualPrice, betSize float64) {
	rec.ActualPrice = actualPrice
	if rec.CurrentPrice != 0 {
		rec.ActualChange = (actualPrice - rec.CurrentPrice) / rec.CurrentPrice * 100
	}
	rec.Correct = IsCorrect(rec.Direction, rec.ActualChange)
	rec.ProfitLoss = PredictionPL(rec.Direction, rec.ActualChange, betSize)
	rec.Status = models.PredictionStatusResolved
}

// DetermineMarketCondition tags a window for the per-condition breakdown
func DetermineMarketCondition(atrPercent float64, emaAligned bool, bandwidth float64) string {
	if atrPercent > 2.5 {
		return models.ConditionVolatile
	}
	if emaAligned && atrPercent > 1.0 {
		return models.ConditionTrending
	}
	return models.ConditionRanging
}

// CalculateResults aggregates resolved records. betSize normalises the
// per-trade return and the drawdown floor.
func CalculateResults(records []models.PredictionRecord, betSize float64) *BacktestResults {
	results := &BacktestResults{Predictions: records}
	if len(records) == 0 {
		results.Predictions = []models.PredictionRecord{}
		return results
	}
	if betSize <= 0 {
		betSize = BetSize
	}

	total := len(records)
	returns := make([]float64, 0, total)
	var confidenceSum, peak, cumulative float64

	for _, r := range records {
		if r.Correct {
			results.CorrectPredictions++
		}
		results.ProfitLoss += r.ProfitLoss
		confidenceSum += r.Confidence
		returns = append(returns, r.ProfitLoss/betSize*100)

		cumulative += r.ProfitLoss
		if cumulative > peak {
			peak = cumulative
		}
		drawdown := (peak - cumulative) / math.Max(peak, betSize) * 100
		if drawdown > results.MaxDrawdown {
			results.MaxDrawdown = drawdown
		}

		switch {
		case r.Confidence > HighConfidence:
			results.AccuracyByConfidence.High.add(r.Correct)
		case r.Confidence >= MediumConfidence:
			results.AccuracyByConfidence.Medium.add(r.Correct)
		default:
			results.AccuracyByConfidence.Low.add(r.Correct)
		}

		switch r.MarketCondition {
		case models.ConditionTrending:
			results.AccuracyByMarketCondition.Trending.add(r.Correct)
		case models.ConditionRanging:
			results.AccuracyByMarketCondition.Ranging.add(r.Correct)
		case models.ConditionVolatile:
			results.AccuracyByMarketCondition.Volatile.add(r.Correct)
		}
	}

	results.TotalPredictions = total
	results.IncorrectPredictions = total - results.CorrectPredictions
	results.Accuracy = float64(results.CorrectPredictions) / float64(total) * 100
	results.WinRate = results.Accuracy
	results.AvgConfidence = confidenceSum / float64(total)
	results.SharpeRatio = sharpe(returns)

	results.AccuracyByConfidence.High.finish()
	results.AccuracyByConfidence.Medium.finish()
	results.AccuracyByConfidence.Low.finish()
	results.AccuracyByMarketCondition.Trending.finish()
	results.AccuracyByMarketCondition.Ranging.finish()
	results.AccuracyByMarketCondition.Volatile.finish()

	return results
}

// sharpe is mean over population std-dev of per-trade % returns, unannualised
func sharpe(returns []float64) float64 {
	if len(returns) == 0 {
		return 0
	}
	avg := 0.0
	for _, r := range returns {
		avg += r
	}
	avg /= float64(len(returns))

	variance := 0.0
	for _, r := range returns {
		variance += math.Pow(r-avg, 2)
	}
	stdDev := math.Sqrt(variance / float64(len(returns)))
	if stdDev == 0 {
		return 0
	}
	return avg / stdDev
}
