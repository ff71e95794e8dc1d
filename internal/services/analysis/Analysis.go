package analysis

import (
	"BNBPredictionBot/internal/models"
	"BNBPredictionBot/internal/services/indicators"
	"BNBPredictionBot/internal/services/microstructure"
)

// Analysis turns raw candles, book and trades into one IndicatorSnapshot
type Analysis struct {
	periods Periods

	rsi        *indicators.RSIService
	ema        *indicators.EMAService
	macd       *indicators.MACDService
	bbands     *indicators.BBandsService
	atr        *indicators.ATRService
	stochastic *indicators.StochasticService
	vwap       *indicators.VWAPService
	mfi        *indicators.MFIService
	obv        *indicators.OBVService

	book  *microstructure.OrderBookService
	flow  *microstructure.TradeFlowService
	delta *microstructure.VolumeDeltaService
}

func NewAnalysis(periods Periods) *Analysis {
	return &Analysis{
		periods:    periods,
		rsi:        indicators.NewRSIService(),
		ema:        indicators.NewEMAService(),
		macd:       indicators.NewMACDService(),
		bbands:     indicators.NewBBandsService(),
		atr:        indicators.NewATRService(),
		stochastic: indicators.NewStochasticService(),
		vwap:       indicators.NewVWAPService(),
		mfi:        indicators.NewMFIService(),
		obv:        indicators.NewOBVService(),
		book:       microstructure.NewOrderBookService(periods.OrderBookDepth),
		flow:       microstructure.NewTradeFlowService(),
		delta:      microstructure.NewVolumeDeltaService(),
	}
}

// Snapshot computes every indicator for the window. A window shorter than
// the longest lookback still produces a snapshot built from each
// indicator's neutral fallback; only malformed input is an error.
func (a *Analysis) Snapshot(candles []models.Candle, book *models.OrderBookSnapshot, trades []models.TradeRecord) (*IndicatorSnapshot, error) {
	if err := ValidateCandles(candles); err != nil {
		return nil, err
	}
	if err := ValidateOrderBook(book); err != nil {
		return nil, err
	}
	if err := ValidateTrades(trades); err != nil {
		return nil, err
	}

	p := a.periods
	closes := models.Closes(candles)
	rsi := a.rsi.Calculate(closes, p.RSI)

	snap := &IndicatorSnapshot{
		Price:       closes[len(closes)-1],
		CandleCount: len(candles),
		WarmedUp:    len(candles) >= p.Longest(),
		RSI:         RSIReading{Value: rsi, Signal: a.rsi.Signal(rsi)},
		MACD:        a.macd.Calculate(closes),
		EMA:         a.ema.Alignment(closes, p.EMAFast, p.EMAMedium, p.EMASlow),
		Bollinger:   a.bbands.Calculate(closes, p.Bollinger, p.BollingerK),
		Volume:      volumeProfile(models.Volumes(candles)),
		ATR:         a.atr.Analyze(candles, p.ATR),
		Stochastic:  a.stochastic.Calculate(candles, p.Stochastic),
		VWAP:        a.vwap.Calculate(candles),
		MFI:         a.mfi.Calculate(candles, p.MFI),
		OBV:         a.obv.Calculate(candles),
	}

	if book != nil {
		ob := a.book.Analyze(book)
		snap.OrderBook = &ob
	}
	if len(trades) > 0 {
		tf := a.flow.Analyze(trades)
		vd := a.delta.Analyze(trades)
		snap.TradeFlow = &tf
		snap.VolumeDelta = &vd
	}
	return snap, nil
}

func volumeProfile(volumes []float64) VolumeProfile {
	vp := VolumeProfile{CurrentVolumeRatio: 1}
	if len(volumes) == 0 {
		return vp
	}
	total := 0.0
	for _, v := range volumes {
		total += v
	}
	vp.AverageVolume = total / float64(len(volumes))
	vp.CurrentVolume = volumes[len(volumes)-1]
	if vp.AverageVolume > 0 {
		vp.CurrentVolumeRatio = vp.CurrentVolume / vp.AverageVolume
	}
	return vp
}
