package analysis

import (
	"fmt"
	"math"
	"strings"

	"BNBPredictionBot/internal/services/indicators"
)

type MarketCondition string

const (
	HighVolatility  MarketCondition = "HIGH_VOLATILITY"
	StrongTrending  MarketCondition = "STRONG_TRENDING"
	Ranging         MarketCondition = "RANGING"
	LowVolume       MarketCondition = "LOW_VOLUME"
	WhaleActivity   MarketCondition = "WHALE_ACTIVITY"
	MomentumExtreme MarketCondition = "MOMENTUM_EXTREME"
	Normal          MarketCondition = "NORMAL"
)

// Regime thresholds
const (
	highVolatilityATRPercent = 2.5
	strongMACDHistogram      = 5.0
	lowVolumeRatio           = 0.7
	highVolumeRatio          = 1.5
	rangingATRPercent        = 1.0
	rangingBandwidth         = 0.02
	whaleOrderThreshold      = 3

	WeightFloor = 0.02
)

const (
	StrengthWeak     = "WEAK"
	StrengthModerate = "MODERATE"
	StrengthStrong   = "STRONG"

	VolumeLow    = "LOW"
	VolumeNormal = "NORMAL"
	VolumeHigh   = "HIGH"
)

// Weights distribute the prediction score over the five signal categories
type Weights struct {
	OrderBook float64 `json:"orderBook"`
	TradeFlow float64 `json:"tradeFlow"`
	Momentum  float64 `json:"momentum"`
	Trend     float64 `json:"trend"`
	Volume    float64 `json:"volume"`
}

// DefaultWeights is the static vector used when no regime detection ran
func DefaultWeights() Weights {
	return Weights{OrderBook: 0.35, TradeFlow: 0.35, Momentum: 0.15, Trend: 0.10, Volume: 0.05}
}

func (w Weights) Sum() float64 {
	return w.OrderBook + w.TradeFlow + w.Momentum + w.Trend + w.Volume
}

// Normalize floors every component then rescales the vector to sum to 1.
// Components sitting on the floor stay there; the rest absorb the scaling.
func (w Weights) Normalize() Weights {
	v := []*float64{&w.OrderBook, &w.TradeFlow, &w.Momentum, &w.Trend, &w.Volume}
	for i := 0; i < 2*len(v); i++ {
		var free, fixed float64
		for _, x := range v {
			*x = math.Max(WeightFloor, *x)
			if *x > WeightFloor {
				free += *x
			} else {
				fixed += *x
			}
		}
		if free == 0 {
			for _, x := range v {
				*x = 1 / float64(len(v))
			}
			break
		}
		if math.Abs(free+fixed-1) < 1e-12 {
			break
		}
		scale := (1 - fixed) / free
		for _, x := range v {
			if *x > WeightFloor {
				*x *= scale
			}
		}
	}
	return w
}

// String prints each weight as a whole percent
func (w Weights) String() string {
	return fmt.Sprintf("OrderBook: %.0f%%, TradeFlow: %.0f%%, Momentum: %.0f%%, Trend: %.0f%%, Volume: %.0f%%",
		w.OrderBook*100, w.TradeFlow*100, w.Momentum*100, w.Trend*100, w.Volume*100)
}

// WeightTable maps a primary regime to its base weight vector
type WeightTable map[MarketCondition]Weights

func DefaultWeightTable() WeightTable {
	return WeightTable{
		Normal:          DefaultWeights(),
		HighVolatility:  {OrderBook: 0.40, TradeFlow: 0.40, Momentum: 0.12, Trend: 0.05, Volume: 0.03},
		StrongTrending:  {OrderBook: 0.25, TradeFlow: 0.25, Momentum: 0.15, Trend: 0.25, Volume: 0.10},
		Ranging:         {OrderBook: 0.30, TradeFlow: 0.30, Momentum: 0.25, Trend: 0.05, Volume: 0.10},
		LowVolume:       {OrderBook: 0.20, TradeFlow: 0.20, Momentum: 0.25, Trend: 0.25, Volume: 0.10},
		WhaleActivity:   {OrderBook: 0.45, TradeFlow: 0.40, Momentum: 0.10, Trend: 0.03, Volume: 0.02},
		MomentumExtreme: {OrderBook: 0.30, TradeFlow: 0.30, Momentum: 0.30, Trend: 0.05, Volume: 0.05},
	}
}

var reasons = map[MarketCondition]string{
	HighVolatility:  "High volatility detected - prioritizing real-time order flow",
	StrongTrending:  "Strong trend detected - increasing trend indicator weight",
	Ranging:         "Ranging market - focusing on momentum and mean reversion",
	LowVolume:       "Low volume - reducing order book reliability",
	WhaleActivity:   "Whale activity detected - prioritizing order book analysis",
	MomentumExtreme: "Momentum extreme - watching for potential reversal",
	Normal:          "Normal market conditions - using balanced weights",
}

type MarketConditionAnalysis struct {
	Primary         MarketCondition   `json:"primaryCondition"`
	Secondary       []MarketCondition `json:"secondaryConditions"`
	Weights         Weights           `json:"weights"`
	Reasoning       string            `json:"reasoning"`
	VolatilityLevel string            `json:"volatilityLevel"`
	TrendStrength   string            `json:"trendStrength"`
	VolumeLevel     string            `json:"volumeLevel"`
}

// Has reports whether the condition was detected as primary or secondary
func (m *MarketConditionAnalysis) Has(c MarketCondition) bool {
	if m.Primary == c {
		return true
	}
	for _, s := range m.Secondary {
		if s == c {
			return true
		}
	}
	return false
}

// ConditionDetector classifies the market regime of a snapshot
type ConditionDetector struct {
	table WeightTable
}

// NewConditionDetector uses the default table for any regime missing from table
func NewConditionDetector(table WeightTable) *ConditionDetector {
	merged := DefaultWeightTable()
	for k, v := range table {
		merged[k] = v
	}
	return &ConditionDetector{table: merged}
}

func (d *ConditionDetector) Detect(snap *IndicatorSnapshot) MarketConditionAnalysis {
	var detected []MarketCondition
	primary := Normal
	mark := func(c MarketCondition, canLead bool) {
		detected = append(detected, c)
		if canLead && primary == Normal {
			primary = c
		}
	}

	if snap.ATR.Percent > highVolatilityATRPercent {
		mark(HighVolatility, true)
	}

	aligned := snap.EMA.Aligned()
	macdStrong := math.Abs(snap.MACD.Histogram) > strongMACDHistogram
	trendStrength := StrengthWeak
	if aligned && macdStrong {
		mark(StrongTrending, true)
		trendStrength = StrengthStrong
	} else if aligned || macdStrong {
		trendStrength = StrengthModerate
	}

	volumeLevel := VolumeNormal
	if ratio := snap.Volume.CurrentVolumeRatio; ratio < lowVolumeRatio {
		mark(LowVolume, true)
		volumeLevel = VolumeLow
	} else if ratio > highVolumeRatio {
		volumeLevel = VolumeHigh
	}

	if snap.ATR.Percent < rangingATRPercent && snap.Bollinger.Bandwidth < rangingBandwidth {
		mark(Ranging, true)
	}

	// whale and momentum readings only ever refine the primary regime
	if snap.WhaleOrderCount() > whaleOrderThreshold {
		mark(WhaleActivity, false)
	}
	if snap.RSI.Value < 25 || snap.RSI.Value > 75 || snap.Stochastic.K < 20 || snap.Stochastic.K > 80 {
		mark(MomentumExtreme, false)
	}

	secondary := make([]MarketCondition, 0, len(detected))
	for _, c := range detected {
		if c != primary {
			secondary = append(secondary, c)
		}
	}

	volatility := snap.ATR.Level
	if volatility == "" {
		volatility = indicators.LevelLow
	}

	return MarketConditionAnalysis{
		Primary:         primary,
		Secondary:       secondary,
		Weights:         d.weights(primary, secondary),
		Reasoning:       reasoning(primary, secondary),
		VolatilityLevel: volatility,
		TrendStrength:   trendStrength,
		VolumeLevel:     volumeLevel,
	}
}

func (d *ConditionDetector) weights(primary MarketCondition, secondary []MarketCondition) Weights {
	w, ok := d.table[primary]
	if !ok {
		w = DefaultWeights()
	}
	if contains(secondary, WhaleActivity) {
		w.OrderBook += 0.05
		w.Trend = math.Max(WeightFloor, w.Trend-0.03)
		w.Volume = math.Max(WeightFloor, w.Volume-0.02)
	}
	if contains(secondary, MomentumExtreme) {
		w.Momentum += 0.05
		w.Volume = math.Max(WeightFloor, w.Volume-0.05)
	}
	return w.Normalize()
}

func reasoning(primary MarketCondition, secondary []MarketCondition) string {
	parts := []string{reasons[primary]}
	if contains(secondary, WhaleActivity) {
		parts = append(parts, "Whale orders present")
	}
	if contains(secondary, MomentumExtreme) {
		parts = append(parts, "Momentum at extreme levels")
	}
	return strings.Join(parts, "; ")
}

func contains(conditions []MarketCondition, c MarketCondition) bool {
	for _, v := range conditions {
		if v == c {
			return true
		}
	}
	return false
}
