package advisor

import (
	"fmt"
	"strings"

	"BNBPredictionBot/internal/models"
)

const systemPrompt = `You are an expert cryptocurrency trading analyst specializing in short-term price predictions for the PancakeSwap Prediction game.
Your task is to analyze market data and technical indicators to predict whether BNB price will go UP or DOWN in the next 5 minutes.

You must respond ONLY with a valid JSON object in this exact format:
{
  "prediction": "UP" or "DOWN",
  "confidence": number between 0-100,
  "reasoning": "brief explanation (max 100 characters)",
  "keyFactors": ["factor1", "factor2", "factor3"],
  "riskLevel": "LOW" or "MEDIUM" or "HIGH",
  "suggestedAction": "recommendation (max 50 characters)"
}

IMPORTANT: Keep all text fields concise. Do not include any text before or after the JSON object.`

// BuildPrompt renders market data, indicators and the detected regime
func BuildPrompt(req AdviceRequest) string {
	m, s := req.Market, req.Snapshot
	var b strings.Builder

	fmt.Fprintf(&b, "Analyze the following %s market data and predict the price movement in the next 5 minutes:\n\n", m.Symbol)

	b.WriteString("CURRENT MARKET DATA:\n")
	fmt.Fprintf(&b, "- Current Price: $%.2f\n", m.CurrentPrice)
	fmt.Fprintf(&b, "- 24h Change: %.2f%%\n", m.PriceChangePercent24h)
	fmt.Fprintf(&b, "- 24h High: $%.2f\n", m.High24h)
	fmt.Fprintf(&b, "- 24h Low: $%.2f\n", m.Low24h)
	fmt.Fprintf(&b, "- 24h Volume: %.2f\n\n", m.Volume24h)

	b.WriteString("TECHNICAL INDICATORS:\n")
	fmt.Fprintf(&b, "- RSI: %.2f (%s)\n", s.RSI.Value, s.RSI.Signal)
	fmt.Fprintf(&b, "- MACD: %.4f, Signal: %.4f, Histogram: %.4f %s\n",
		s.MACD.MACD, s.MACD.Signal, s.MACD.Histogram, bullBear(s.MACD.Histogram > 0))
	fmt.Fprintf(&b, "- EMA fast/medium/slow: $%.2f / $%.2f / $%.2f%s\n",
		s.EMA.Fast, s.EMA.Medium, s.EMA.Slow, alignment(s.EMA.Bullish, s.EMA.Bearish))
	fmt.Fprintf(&b, "- Bollinger Bands: upper $%.2f, middle $%.2f, lower $%.2f, %%B %.2f\n",
		s.Bollinger.Upper, s.Bollinger.Middle, s.Bollinger.Lower, s.Bollinger.PercentB)
	fmt.Fprintf(&b, "- ATR: %.4f (%.3f%%, %s, %s)\n", s.ATR.Value, s.ATR.Percent, s.ATR.Level, s.ATR.Trend)
	fmt.Fprintf(&b, "- Stochastic: %%K %.2f (%s)\n", s.Stochastic.K, s.Stochastic.Signal)
	fmt.Fprintf(&b, "- VWAP: $%.2f, price %s (%.3f%%)\n", s.VWAP.Value, s.VWAP.Position, s.VWAP.PriceVsVWAP)
	fmt.Fprintf(&b, "- MFI: %.2f (%s)", s.MFI.Value, s.MFI.Signal)
	if s.MFI.Divergence {
		fmt.Fprintf(&b, ", %s divergence", s.MFI.DivergenceType)
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "- OBV trend: %s", s.OBV.Trend)
	if s.OBV.Divergence {
		b.WriteString(", diverging from price")
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "- Volume Ratio: %.2fx average\n\n", s.Volume.CurrentVolumeRatio)

	if ob := s.OrderBook; ob != nil {
		b.WriteString("ORDER BOOK:\n")
		fmt.Fprintf(&b, "- Buy pressure: %.1f%% (weighted %.1f%%)\n", ob.BuyPressure*100, ob.WeightedBuyPressure*100)
		fmt.Fprintf(&b, "- Imbalance: %.3f, spread %.4f%%, depth %s\n", ob.ImbalanceRatio, ob.BidAskSpreadPercent, ob.DepthQuality)
		fmt.Fprintf(&b, "- Whale orders: %d (%s)\n\n", ob.WhaleOrderCount, ob.WhaleSide)
	}
	if tf := s.TradeFlow; tf != nil {
		b.WriteString("TRADE FLOW:\n")
		fmt.Fprintf(&b, "- Buy/sell ratio: %.2f, aggressive buys %.1f%%\n", tf.BuySellRatio, tf.AggressiveBuyPercent)
		fmt.Fprintf(&b, "- Velocity: %.2f trades/s, acceleration %.2f\n", tf.TradeVelocity, tf.TradeAcceleration)
		fmt.Fprintf(&b, "- Recent trend: %s, whale trades %d\n", tf.RecentTrend, tf.WhaleTradeCount)
		if vd := s.VolumeDelta; vd != nil {
			fmt.Fprintf(&b, "- Volume delta: %.2f (cumulative %.2f, %s)\n", vd.CurrentDelta, vd.CumulativeDelta, vd.Trend)
		}
		b.WriteString("\n")
	}

	if c := req.Condition; c != nil {
		b.WriteString("MARKET REGIME:\n")
		fmt.Fprintf(&b, "- Primary: %s", c.Primary)
		if len(c.Secondary) > 0 {
			secondary := make([]string, len(c.Secondary))
			for i, sc := range c.Secondary {
				secondary[i] = string(sc)
			}
			fmt.Fprintf(&b, " (also %s)", strings.Join(secondary, ", "))
		}
		b.WriteString("\n")
		fmt.Fprintf(&b, "- Volatility %s, trend strength %s, volume %s\n", c.VolatilityLevel, c.TrendStrength, c.VolumeLevel)
		fmt.Fprintf(&b, "- Weights: %s\n\n", c.Weights)
	}

	b.WriteString("RECENT PRICE ACTION (Last 10 candles):\n")
	b.WriteString(formatRecentCandles(m.Candles, 10))

	b.WriteString(`
Based on this data, predict whether the price will go UP or DOWN in the next 5 minutes.
Consider:
1. RSI levels (oversold/overbought)
2. MACD crossovers and momentum
3. EMA trends and crossovers
4. Bollinger Bands position
5. Volume patterns and order flow
6. Recent price action and momentum

Provide your prediction in the required JSON format.`)

	return b.String()
}

func bullBear(bull bool) string {
	if bull {
		return "(Bullish)"
	}
	return "(Bearish)"
}

func alignment(bullish, bearish bool) string {
	switch {
	case bullish:
		return " (bullish alignment)"
	case bearish:
		return " (bearish alignment)"
	}
	return ""
}

func formatRecentCandles(candles []models.Candle, n int) string {
	if len(candles) > n {
		candles = candles[len(candles)-n:]
	}
	var b strings.Builder
	for i, c := range candles {
		change := 0.0
		if c.Open != 0 {
			change = (c.Close - c.Open) / c.Open * 100
		}
		arrow := "down"
		if change > 0 {
			arrow = "up"
		}
		fmt.Fprintf(&b, "%d. %s O: $%.2f C: $%.2f (%+.2f%%)\n", i+1, arrow, c.Open, c.Close, change)
	}
	return b.String()
}
