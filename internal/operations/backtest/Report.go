package backtest

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/olekukonko/tablewriter"

	"BNBPredictionBot/internal/models"
)

// WriteReport renders results as tables
func WriteReport(w io.Writer, r *BacktestResults) {
	fmt.Fprintln(w, "BACKTEST RESULTS")
	fmt.Fprintln(w)

	summary := tablewriter.NewTable(w, tablewriter.WithHeader([]string{"Metric", "Value"}))
	summary.Append([]string{"Total predictions", fmt.Sprintf("%d", r.TotalPredictions)})
	summary.Append([]string{"Correct", fmt.Sprintf("%d", r.CorrectPredictions)})
	summary.Append([]string{"Incorrect", fmt.Sprintf("%d", r.IncorrectPredictions)})
	summary.Append([]string{"Accuracy", fmt.Sprintf("%.2f%%", r.Accuracy)})
	summary.Append([]string{"Win rate", fmt.Sprintf("%.2f%%", r.WinRate)})
	summary.Append([]string{"Profit/Loss", fmt.Sprintf("$%.2f", r.ProfitLoss)})
	summary.Append([]string{"Sharpe ratio", fmt.Sprintf("%.3f", r.SharpeRatio)})
	summary.Append([]string{"Max drawdown", fmt.Sprintf("%.2f%%", r.MaxDrawdown)})
	summary.Append([]string{"Avg confidence", fmt.Sprintf("%.1f%%", r.AvgConfidence)})
	summary.Render()
	fmt.Fprintln(w)

	groups := tablewriter.NewTable(w, tablewriter.WithHeader([]string{"Group", "Accuracy", "Correct", "Total"}))
	for _, row := range []struct {
		name string
		b    Bucket
	}{
		{"High confidence (>75%)", r.AccuracyByConfidence.High},
		{"Medium confidence (50-75%)", r.AccuracyByConfidence.Medium},
		{"Low confidence (<50%)", r.AccuracyByConfidence.Low},
		{"Trending", r.AccuracyByMarketCondition.Trending},
		{"Ranging", r.AccuracyByMarketCondition.Ranging},
		{"Volatile", r.AccuracyByMarketCondition.Volatile},
	} {
		groups.Append([]string{
			row.name,
			fmt.Sprintf("%.1f%%", row.b.Accuracy),
			fmt.Sprintf("%d", row.b.Correct),
			fmt.Sprintf("%d", row.b.Total),
		})
	}
	groups.Render()
	fmt.Fprintln(w)

	if len(r.Predictions) == 0 {
		return
	}
	fmt.Fprintln(w, "Best predictions:")
	writePredictions(w, Best(r.Predictions, 10))
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Worst predictions:")
	writePredictions(w, Worst(r.Predictions, 10))
	fmt.Fprintln(w)
	fmt.Fprintln(w, Recommendation(r.Accuracy))
}

func writePredictions(w io.Writer, records []models.PredictionRecord) {
	table := tablewriter.NewTable(w,
		tablewriter.WithHeader([]string{"Call", "Price", "Actual", "Change", "Confidence", "P&L"}),
	)
	for _, p := range records {
		table.Append([]string{
			p.Direction,
			fmt.Sprintf("%.2f", p.CurrentPrice),
			fmt.Sprintf("%.2f", p.ActualPrice),
			fmt.Sprintf("%.2f%%", p.ActualChange),
			fmt.Sprintf("%.0f%%", p.Confidence),
			fmt.Sprintf("%.2f", p.ProfitLoss),
		})
	}
	table.Render()
}

// Best returns up to n records with the highest P&L, most profitable first
func Best(records []models.PredictionRecord, n int) []models.PredictionRecord {
	sorted := append([]models.PredictionRecord(nil), records...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].ProfitLoss > sorted[j].ProfitLoss })
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}

// Worst returns up to n records with the lowest P&L
func Worst(records []models.PredictionRecord, n int) []models.PredictionRecord {
	sorted := append([]models.PredictionRecord(nil), records...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].ProfitLoss < sorted[j].ProfitLoss })
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}

func Recommendation(accuracy float64) string {
	switch {
	case accuracy < 55:
		return "Accuracy is below 55%: revisit indicator weights and advisor rules."
	case accuracy < 65:
		return "Accuracy is moderate (55-65%): fine-tune confidence thresholds."
	default:
		return "Accuracy is above 65%: current configuration is performing well."
	}
}

// WriteJSON dumps results to path
func WriteJSON(path string, r *BacktestResults) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal results: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
