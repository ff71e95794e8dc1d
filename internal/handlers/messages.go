package handlers

import (
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"BNBPredictionBot/internal/operations/backtest"
	"BNBPredictionBot/internal/operations/price"
	"BNBPredictionBot/internal/services/analysis"
	"BNBPredictionBot/internal/services/prediction"
)

const (
	startMessage = `🤖 *Welcome to BNB Prediction Bot!*

The bot analyzes the BNB/USDT market and predicts whether the price will go UP or DOWN over the next 5 minutes, for the PancakeSwap Prediction game.

📊 *Commands:*

/predict - Prediction for the next 5 minutes
/market - BNB market overview
/stats - Accuracy of past predictions
/help - How to use the bot
/about - About the bot

⚠️ *Important:*
• For reference only, not investment advice
• Always DYOR before betting
• PancakeSwap Prediction charges a 3% fee

Start with /predict to get your first prediction! 🚀`

	helpMessage = `📚 *HOW TO USE THE BOT*

/predict - Analyze the market and call UP or DOWN with a confidence score
/market - Current price, 24h change, high, low and volume
/stats - Accuracy and P&L of resolved predictions
/help - Show this guide
/about - About the bot

*Reading a prediction:*

📊 *Confidence:*
  • 80-100%: Very high 🔥
  • 70-79%: High ✅
  • 60-69%: Medium 👍
  • 50-59%: Low ⚠️
  • <50%: Very low ❓

📈 *RSI:*
  • >70: Overbought
  • 30-70: Neutral
  • <30: Oversold

*PancakeSwap Prediction:*
• Each round lasts 5 minutes
• 3% fee on the total pool
• Winners split the pool pro rata

🔗 https://pancakeswap.finance/prediction`

	aboutMessage = `ℹ️ *ABOUT BNB PREDICTION BOT*

*Data:* Binance spot market and the Chainlink BNB/USD oracle on BSC
*Analysis:* RSI, MACD, EMA, Bollinger Bands, ATR, Stochastic, VWAP, MFI, OBV, order book and trade flow
*Model:* hosted LLM through Cloudflare AI Gateway

*How it works:*
1. Collect candles, order book and trades
2. Compute indicators and detect the market regime
3. Ask the model for a directional call
4. Project a target price from the weighted scores

⚠️ For reference only. Not financial advice.`

	unknownCommandMessage = "❓ Unknown command.\n\nUse /help to see the available commands."
	chatMessage           = "💬 Hi! I am the BNB price prediction bot.\n\nUse /predict for a prediction or /help for the guide."
	predictLoadingMessage = "🔮 Analyzing the market and generating a prediction...\n⏳ Please wait..."
	marketLoadingMessage  = "📊 Fetching market data..."
	predictErrorMessage   = "❌ Could not generate a prediction. Please try again later."
	marketErrorMessage    = "❌ Could not fetch market data. Please try again later."
	statsErrorMessage     = "❌ Could not load prediction statistics. Please try again later."
	statsDisabledMessage  = "📉 Statistics are unavailable: prediction history is not being stored."
	statsEmptyMessage     = "📉 No resolved predictions yet. Check back in a few minutes."
)

func confidenceEmoji(c float64) string {
	switch {
	case c >= 80:
		return "🔥"
	case c >= 70:
		return "✅"
	case c >= 60:
		return "👍"
	case c >= 50:
		return "⚠️"
	}
	return "❓"
}

func riskEmoji(c float64) string {
	switch {
	case c >= 70:
		return "🟢"
	case c >= 50:
		return "🟡"
	}
	return "🔴"
}

func riskLevel(c float64) string {
	switch {
	case c >= 70:
		return "Low"
	case c >= 50:
		return "Medium"
	}
	return "High"
}

// escape keeps model and enum text from opening Markdown entities
func escape(text string) string {
	return tgbotapi.EscapeText(tgbotapi.ModeMarkdown, text)
}

func rsiStatus(rsi float64) string {
	switch {
	case rsi > 70:
		return "(Overbought)"
	case rsi < 30:
		return "(Oversold)"
	}
	return "(Neutral)"
}

// FormatPrediction renders a prediction for Telegram Markdown
func FormatPrediction(r *prediction.Result) string {
	emoji, call, dot := "📉", "📉 DOWN", "🔴"
	if r.Prediction == analysis.Up {
		emoji, call, dot = "📈", "📈 UP", "🟢"
	}
	changeDot := "🔴"
	if r.ExpectedChange > 0 {
		changeDot = "🟢"
	}
	sourceEmoji, sourceName := "📊", "Binance"
	if r.PriceSource == price.SourceChainlink {
		sourceEmoji, sourceName = "🔗", "Chainlink Oracle"
	}
	priceConfidence := r.PriceConfidence
	if priceConfidence == 0 {
		priceConfidence = 1
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s *BNB PREDICTION - NEXT 5 MINUTES*\n\n", emoji)
	fmt.Fprintf(&b, "🎯 *Prediction:* %s\n", call)
	fmt.Fprintf(&b, "%s *Confidence:* %.1f%%\n", confidenceEmoji(r.Confidence), r.Confidence)
	fmt.Fprintf(&b, "%s *Risk:* %s\n\n", riskEmoji(r.Confidence), riskLevel(r.Confidence))

	fmt.Fprintf(&b, "💰 *Current price:* $%.2f\n", r.CurrentPrice)
	fmt.Fprintf(&b, "%s *Price source:* %s (%.0f%%)\n", sourceEmoji, sourceName, priceConfidence*100)
	fmt.Fprintf(&b, "🎯 *Target price:* %s $%.2f\n", dot, r.PredictedPrice)
	fmt.Fprintf(&b, "%s *Expected change:* %+.2f%%\n\n", changeDot, r.ExpectedChange)

	b.WriteString("📊 *Expected range:*\n")
	fmt.Fprintf(&b, "• Low: $%.2f\n", r.PriceRange.Min)
	fmt.Fprintf(&b, "• High: $%.2f\n", r.PriceRange.Max)

	if r.Round != nil && r.Round.CurrentEpoch != nil {
		fmt.Fprintf(&b, "\n🎲 *Current round:* #%s\n", r.Round.CurrentEpoch.String())
		if secs := int(r.Round.TimeUntilLock.Seconds()); secs > 0 {
			fmt.Fprintf(&b, "⏱️ *Time left:* %d:%02d\n", secs/60, secs%60)
		}
		if r.Round.BettingOpen {
			b.WriteString("🟢 *Betting:* open\n")
		} else {
			b.WriteString("🔒 *Betting:* locked\n")
		}
	}

	b.WriteString("\n📈 *Indicators:*\n")
	fmt.Fprintf(&b, "• RSI: %.2f %s\n", r.Indicators.RSI, rsiStatus(r.Indicators.RSI))
	fmt.Fprintf(&b, "• Trend: %s\n", r.Indicators.Trend)
	fmt.Fprintf(&b, "• Volume: %s\n", r.Indicators.Volume)
	fmt.Fprintf(&b, "• Regime: %s\n\n", escape(string(r.MarketCondition.Primary)))

	fmt.Fprintf(&b, "💡 *Analysis:*\n%s\n\n", escape(r.Reasoning))
	fmt.Fprintf(&b, "⏰ *Time:* %s\n\n", r.Timestamp.UTC().Format("2006-01-02 15:04:05 UTC"))

	b.WriteString("⚠️ For reference only. Crypto prices move fast; manage your risk.\n\n")
	b.WriteString("🎮 https://pancakeswap.finance/prediction")
	return b.String()
}

// FormatStats renders evaluator results over resolved predictions. dayPnL
// is omitted when nil.
func FormatStats(r *backtest.BacktestResults, dayPnL *float64) string {
	var b strings.Builder
	b.WriteString("📊 *PREDICTION STATISTICS*\n\n")
	fmt.Fprintf(&b, "🎯 Predictions: %d (%d correct)\n", r.TotalPredictions, r.CorrectPredictions)
	fmt.Fprintf(&b, "✅ Accuracy: %.2f%%\n", r.Accuracy)
	fmt.Fprintf(&b, "💰 P&L ($%.0f bets): %+.2f\n", backtest.BetSize, r.ProfitLoss)
	if dayPnL != nil {
		fmt.Fprintf(&b, "🕐 Last 24h P&L: %+.2f\n", *dayPnL)
	}
	fmt.Fprintf(&b, "📉 Max drawdown: %.2f%%\n", r.MaxDrawdown)
	fmt.Fprintf(&b, "📐 Sharpe: %.3f\n\n", r.SharpeRatio)

	b.WriteString("*By confidence:*\n")
	fmt.Fprintf(&b, "• High: %.1f%% of %d\n", r.AccuracyByConfidence.High.Accuracy, r.AccuracyByConfidence.High.Total)
	fmt.Fprintf(&b, "• Medium: %.1f%% of %d\n", r.AccuracyByConfidence.Medium.Accuracy, r.AccuracyByConfidence.Medium.Total)
	fmt.Fprintf(&b, "• Low: %.1f%% of %d\n\n", r.AccuracyByConfidence.Low.Accuracy, r.AccuracyByConfidence.Low.Total)

	b.WriteString("*By market:*\n")
	fmt.Fprintf(&b, "• Trending: %.1f%% of %d\n", r.AccuracyByMarketCondition.Trending.Accuracy, r.AccuracyByMarketCondition.Trending.Total)
	fmt.Fprintf(&b, "• Ranging: %.1f%% of %d\n", r.AccuracyByMarketCondition.Ranging.Accuracy, r.AccuracyByMarketCondition.Ranging.Total)
	fmt.Fprintf(&b, "• Volatile: %.1f%% of %d", r.AccuracyByMarketCondition.Volatile.Accuracy, r.AccuracyByMarketCondition.Volatile.Total)
	return b.String()
}
