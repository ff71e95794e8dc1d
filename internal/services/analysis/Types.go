package analysis

import (
	"BNBPredictionBot/internal/services/indicators"
	"BNBPredictionBot/internal/services/microstructure"
)

// Direction is the side a prediction is made for
type Direction string

const (
	Up   Direction = "UP"
	Down Direction = "DOWN"
)

func (d Direction) Valid() bool {
	return d == Up || d == Down
}

// RSIReading pairs the RSI value with its qualitative label
type RSIReading struct {
	Value  float64
	Signal string
}

// VolumeProfile compares the latest candle volume with the window average
type VolumeProfile struct {
	AverageVolume      float64
	CurrentVolume      float64
	CurrentVolumeRatio float64
}

// IndicatorSnapshot holds every indicator computed for one candle window.
// Book and trade based readings are nil when that data was not supplied.
type IndicatorSnapshot struct {
	Price       float64
	CandleCount int
	WarmedUp    bool // window covers the longest lookback

	RSI        RSIReading
	MACD       indicators.MACDResult
	EMA        indicators.EMAAlignment
	Bollinger  indicators.BBandsResult
	Volume     VolumeProfile
	ATR        indicators.ATRResult
	Stochastic indicators.StochasticResult
	VWAP       indicators.VWAPResult
	MFI        indicators.MFIResult
	OBV        indicators.OBVResult

	OrderBook   *microstructure.OrderBookAnalysis
	TradeFlow   *microstructure.TradeFlowAnalysis
	VolumeDelta *microstructure.VolumeDeltaAnalysis
}

// WhaleOrderCount is zero when no order book was analyzed
func (s *IndicatorSnapshot) WhaleOrderCount() int {
	if s.OrderBook == nil {
		return 0
	}
	return s.OrderBook.WhaleOrderCount
}

// Periods are the lookbacks used by the aggregator
type Periods struct {
	RSI            int
	Bollinger      int
	BollingerK     float64
	EMAFast        int
	EMAMedium      int
	EMASlow        int
	ATR            int
	Stochastic     int
	MFI            int
	OrderBookDepth int
}

// DefaultPeriods are tuned for 5 minute candles
func DefaultPeriods() Periods {
	return Periods{
		RSI:            9,
		Bollinger:      12,
		BollingerK:     2,
		EMAFast:        5,
		EMAMedium:      13,
		EMASlow:        21,
		ATR:            10,
		Stochastic:     9,
		MFI:            9,
		OrderBookDepth: microstructure.DefaultBookDepth,
	}
}

// Longest returns the largest candle lookback
func (p Periods) Longest() int {
	longest := 0
	for _, v := range []int{p.RSI + 1, p.Bollinger, p.EMAFast, p.EMAMedium, p.EMASlow, p.ATR + 1, p.Stochastic, p.MFI + 1} {
		if v > longest {
			longest = v
		}
	}
	return longest
}
