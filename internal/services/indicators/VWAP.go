package indicators

import (
	"math"

	"BNBPredictionBot/internal/models"
)

type VWAPService struct{}

type VWAPResult struct {
	Value       float64
	Upper       float64
	Lower       float64
	StdDev      float64
	PriceVsVWAP float64 // percent distance of the current price from VWAP
	Position    string
}

func NewVWAPService() *VWAPService {
	return &VWAPService{}
}

// Calculate weights the typical price by volume across the whole window.
// Zero total volume yields a zero VWAP with zero bands; a zero VWAP leaves
// PriceVsVWAP at 0.
func (s *VWAPService) Calculate(candles []models.Candle) VWAPResult {
	res := VWAPResult{Position: PositionBelow}
	if len(candles) == 0 {
		return res
	}

	var priceVolume, volume float64
	for _, c := range candles {
		priceVolume += c.TypicalPrice() * c.Volume
		volume += c.Volume
	}
	if volume <= 0 {
		return res
	}
	res.Value = priceVolume / volume

	squares := 0.0
	for _, c := range candles {
		d := c.Close - res.Value
		squares += d * d
	}
	res.StdDev = math.Sqrt(squares / float64(len(candles)))
	res.Upper = res.Value + res.StdDev
	res.Lower = res.Value - res.StdDev

	current := candles[len(candles)-1].Close
	if res.Value > 0 {
		res.PriceVsVWAP = (current - res.Value) / res.Value * 100
	}
	if current > res.Value {
		res.Position = PositionAbove
	}
	return res
}
