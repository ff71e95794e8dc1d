package indicators

import (
	"testing"
	"time"

	"BNBPredictionBot/internal/models"
)

func TestRSI(t *testing.T) {
	rsi := NewRSIService()

	tests := []struct {
		name    string
		candles []models.Candle
		check   func(float64) bool
		want    string
	}{
		{"flat window is neutral", flatCandles(30), func(v float64) bool { return v == 50 }, "50"},
		{"rising window is overbought", risingCandles(30), func(v float64) bool { return v > 70 }, "> 70"},
		{"falling window is oversold", fallingCandles(30), func(v float64) bool { return v < 30 }, "< 30"},
		{"short window is neutral", risingCandles(5), func(v float64) bool { return v == 50 }, "50"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := rsi.Calculate(models.Closes(tt.candles), 9)
			if !tt.check(got) {
				t.Errorf("Expected RSI %s, got %f", tt.want, got)
			}
		})
	}
}

func TestRSIOnlyGainsIsHundred(t *testing.T) {
	got := NewRSIService().Calculate([]float64{1, 2, 3, 4, 5, 6}, 3)
	if got != 100 {
		t.Errorf("Expected 100, got %f", got)
	}
}

func TestRSIWilderSmoothing(t *testing.T) {
	// deltas: +1 +1 -1 | +2 ; seed gain 2/3 loss 1/3, then gain (2/3*2+2)/3
	prices := []float64{10, 11, 12, 11, 13}
	avgGain := (2.0/3*2 + 2) / 3
	avgLoss := (1.0 / 3 * 2) / 3
	want := 100 - 100/(1+avgGain/avgLoss)

	got := NewRSIService().Calculate(prices, 3)
	if !almostEqual(got, want, 1e-9) {
		t.Errorf("Expected %f, got %f", want, got)
	}
}

func TestEMA(t *testing.T) {
	ema := NewEMAService()

	if got := ema.Calculate([]float64{1, 2, 3}, 5); got != 3 {
		t.Errorf("Expected last price 3 for short input, got %f", got)
	}

	// seed (1+2+3)/3 = 2, then (4-2)*0.5+2 = 3, then (5-3)*0.5+3 = 4
	if got := ema.Calculate([]float64{1, 2, 3, 4, 5}, 3); !almostEqual(got, 4, 1e-9) {
		t.Errorf("Expected 4, got %f", got)
	}

	if got := ema.CalculateOne(5, 3, 3); got != 4 {
		t.Errorf("Expected 4, got %f", got)
	}
}

func TestEMAAlignment(t *testing.T) {
	ema := NewEMAService()

	up := ema.Alignment(models.Closes(risingCandles(40)), 5, 13, 21)
	if !up.Bullish || up.Bearish || !up.Aligned() {
		t.Errorf("Expected bullish alignment, got %+v", up)
	}

	down := ema.Alignment(models.Closes(fallingCandles(40)), 5, 13, 21)
	if !down.Bearish || down.Bullish {
		t.Errorf("Expected bearish alignment, got %+v", down)
	}

	flat := ema.Alignment(models.Closes(flatCandles(40)), 5, 13, 21)
	if flat.Aligned() {
		t.Errorf("Expected flat prices not to be aligned, got %+v", flat)
	}
}

func TestMACD(t *testing.T) {
	macd := NewMACDService()

	flat := macd.Calculate(models.Closes(flatCandles(40)))
	if !almostEqual(flat.MACD, 0, 1e-9) || !almostEqual(flat.Histogram, 0, 1e-9) {
		t.Errorf("Expected zero MACD on flat prices, got %+v", flat)
	}

	rising := macd.Calculate(models.Closes(risingCandles(60)))
	if rising.MACD <= 0 {
		t.Errorf("Expected positive MACD on rising prices, got %f", rising.MACD)
	}
	if !almostEqual(rising.Histogram, rising.MACD-rising.Signal, 1e-9) {
		t.Errorf("Expected histogram to equal MACD-signal, got %+v", rising)
	}

	short := macd.Calculate([]float64{100})
	if short.Histogram != 0 || !finite(short.Signal) {
		t.Errorf("Expected degenerate MACD on one price, got %+v", short)
	}
}

func TestBollingerBands(t *testing.T) {
	bb := NewBBandsService()

	flat := bb.Calculate(models.Closes(flatCandles(30)), 12, 2)
	if !almostEqual(flat.Upper, 100, 1e-6) || !almostEqual(flat.Lower, 100, 1e-6) {
		t.Errorf("Expected flat bands at 100, got %+v", flat)
	}
	if !almostEqual(flat.Bandwidth, 0, 1e-6) {
		t.Errorf("Expected zero bandwidth, got %f", flat.Bandwidth)
	}

	short := bb.Calculate([]float64{5, 6}, 12, 2)
	if short.Upper != 6 || short.Middle != 6 || short.Lower != 6 {
		t.Errorf("Expected bands collapsed to 6, got %+v", short)
	}

	// population stddev of 1..4 is sqrt(1.25)
	res := bb.Calculate([]float64{1, 2, 3, 4}, 4, 2)
	if !almostEqual(res.Middle, 2.5, 1e-9) || !almostEqual(res.Upper, 2.5+2*1.118033988749895, 1e-6) {
		t.Errorf("Expected middle 2.5 upper 4.736, got %+v", res)
	}
	if res.PercentB <= 0.5 {
		t.Errorf("Expected %%B above 0.5 for the top price, got %f", res.PercentB)
	}
}

func TestATR(t *testing.T) {
	atr := NewATRService()

	flat := atr.Analyze(flatCandles(30), 10)
	if !almostEqual(flat.Value, 2, 1e-9) {
		t.Errorf("Expected ATR 2, got %f", flat.Value)
	}
	if flat.Level != LevelHigh {
		t.Errorf("Expected HIGH level at 2%%, got %s", flat.Level)
	}
	if flat.Trend != ATRStable {
		t.Errorf("Expected STABLE trend, got %s", flat.Trend)
	}

	if got := atr.Calculate(flatCandles(10), 10); got != 0 {
		t.Errorf("Expected 0 with too few candles, got %f", got)
	}
}

func TestATRTrend(t *testing.T) {
	candles := flatCandles(41)
	for i := 21; i < len(candles); i++ {
		candles[i].High, candles[i].Low = 103, 97
	}
	res := NewATRService().Analyze(candles, 10)
	if res.Trend != ATRIncreasing {
		t.Errorf("Expected INCREASING, got %s", res.Trend)
	}
}

func TestStochastic(t *testing.T) {
	st := NewStochasticService()

	flat := st.Calculate(flatCandles(20), 9)
	if flat.K != 50 || flat.D != flat.K || flat.Signal != SignalNeutral {
		t.Errorf("Expected neutral stochastic, got %+v", flat)
	}

	rising := st.Calculate(risingCandles(20), 9)
	if rising.K <= 80 || rising.Signal != SignalOverbought {
		t.Errorf("Expected overbought, got %+v", rising)
	}

	falling := st.Calculate(fallingCandles(20), 9)
	if falling.K >= 20 || falling.Signal != SignalOversold {
		t.Errorf("Expected oversold, got %+v", falling)
	}

	zero := flatCandles(20)
	for i := range zero {
		zero[i].High, zero[i].Low = 100, 100
	}
	if got := st.Calculate(zero, 9).K; got != 50 {
		t.Errorf("Expected 50 on zero range, got %f", got)
	}
}

func TestVWAP(t *testing.T) {
	vwap := NewVWAPService()

	flat := vwap.Calculate(flatCandles(30))
	if !almostEqual(flat.Value, 100, 1e-9) || !almostEqual(flat.StdDev, 0, 1e-9) {
		t.Errorf("Expected VWAP 100 with no spread, got %+v", flat)
	}

	noVolume := flatCandles(5)
	for i := range noVolume {
		noVolume[i].Volume = 0
	}
	if got := vwap.Calculate(noVolume); got.Value != 0 || got.Upper != 0 {
		t.Errorf("Expected zero VWAP on zero volume, got %+v", got)
	}

	rising := vwap.Calculate(risingCandles(30))
	if rising.Position != PositionAbove || rising.Upper <= rising.Value {
		t.Errorf("Expected price above VWAP with a band, got %+v", rising)
	}
}

func TestMFI(t *testing.T) {
	mfi := NewMFIService()

	if got := mfi.Calculate(risingCandles(5), 9); got.Value != 50 || got.Signal != SignalNeutral {
		t.Errorf("Expected neutral on short input, got %+v", got)
	}

	rising := mfi.Calculate(risingCandles(30), 9)
	if rising.Value != 100 || rising.Signal != SignalOverbought {
		t.Errorf("Expected 100/OVERBOUGHT, got %+v", rising)
	}

	falling := mfi.Calculate(fallingCandles(30), 9)
	if falling.Value != 0 || falling.Signal != SignalOversold {
		t.Errorf("Expected 0/OVERSOLD, got %+v", falling)
	}
	if rising.Divergence || falling.Divergence {
		t.Error("Expected no divergence when flow follows price")
	}
}

func TestMFIDivergence(t *testing.T) {
	// price drifts up overall while the heavy volume lands on down candles
	closes := []float64{100, 103, 102, 105, 104, 107, 106, 109, 108, 110}
	candles := make([]models.Candle, len(closes))
	for i, c := range closes {
		vol := 1.0
		if i > 0 && c < closes[i-1] {
			vol = 50
		}
		candles[i] = models.Candle{Open: c, High: c, Low: c, Close: c, Volume: vol}
	}

	res := NewMFIService().Calculate(candles, 9)
	if !res.Divergence || res.DivergenceType != TrendBearish {
		t.Errorf("Expected bearish divergence, got %+v", res)
	}
}

func TestOBV(t *testing.T) {
	obv := NewOBVService()

	candles := risingCandles(30)
	series := obv.Series(candles)
	for i := 1; i < len(series); i++ {
		if series[i] <= series[i-1] {
			t.Fatalf("Expected strictly increasing OBV at %d, got %f after %f", i, series[i], series[i-1])
		}
	}

	res := obv.Calculate(candles)
	if res.Trend != TrendBullish {
		t.Errorf("Expected BULLISH, got %s", res.Trend)
	}
	if res.Value != 290 {
		t.Errorf("Expected OBV 290, got %f", res.Value)
	}
	if res.Divergence {
		t.Error("Expected no divergence")
	}

	if got := obv.Calculate(risingCandles(1)); got.Value != 0 || got.Trend != TrendNeutral {
		t.Errorf("Expected 0/NEUTRAL on one candle, got %+v", got)
	}

	if got := obv.Calculate(fallingCandles(30)); got.Trend != TrendBearish {
		t.Errorf("Expected BEARISH, got %s", got.Trend)
	}
}

func TestOBVDivergence(t *testing.T) {
	// small up moves on light volume, bigger volume on the few down candles
	candles := make([]models.Candle, 25)
	price := 100.0
	for i := range candles {
		vol := 1.0
		if i > 0 {
			if i%5 == 0 {
				price -= 0.5
				vol = 20
			} else {
				price += 1
			}
		}
		candles[i] = models.Candle{Open: price, High: price + 1, Low: price - 1, Close: price, Volume: vol}
	}

	if res := NewOBVService().Calculate(candles); !res.Divergence {
		t.Errorf("Expected divergence, got %+v", res)
	}
}

func TestVWAPZeroPrice(t *testing.T) {
	candles := flatCandles(5)
	for i := range candles {
		candles[i].Open, candles[i].High, candles[i].Low, candles[i].Close = 0, 0, 0, 0
	}

	res := NewVWAPService().Calculate(candles)
	if res.Value != 0 || res.PriceVsVWAP != 0 {
		t.Errorf("Expected zero VWAP and distance, got %f / %f", res.Value, res.PriceVsVWAP)
	}
}

func TestIndicatorsAreFinite(t *testing.T) {
	zeroPrice := flatCandles(10)
	for i := range zeroPrice {
		zeroPrice[i].Open, zeroPrice[i].High, zeroPrice[i].Low, zeroPrice[i].Close = 0, 0, 0, 0
	}
	// all the volume trades at zero, the last candle at 5 with none
	zeroVWAP := []models.Candle{
		{OpenTime: testStart, Volume: 10},
		{OpenTime: testStart.Add(5 * time.Minute), Open: 5, High: 5, Low: 5, Close: 5},
	}

	inputs := [][]models.Candle{nil, flatCandles(1), flatCandles(2), risingCandles(9), fallingCandles(100), zeroPrice, zeroVWAP}
	for _, candles := range inputs {
		closes := models.Closes(candles)
		values := []float64{
			NewRSIService().Calculate(closes, 9),
			NewEMAService().Calculate(closes, 21),
			NewMACDService().Calculate(closes).Signal,
			NewBBandsService().Calculate(closes, 12, 2).PercentB,
			NewATRService().Analyze(candles, 10).Percent,
			NewStochasticService().Calculate(candles, 9).K,
			NewVWAPService().Calculate(candles).PriceVsVWAP,
			NewMFIService().Calculate(candles, 9).Value,
			NewOBVService().Calculate(candles).Value,
		}
		for i, v := range values {
			if !finite(v) {
				t.Errorf("Expected finite value at %d for %d candles, got %f", i, len(candles), v)
			}
		}
	}
}
