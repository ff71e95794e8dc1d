package microstructure

import (
	"math"

	"BNBPredictionBot/internal/models"
)

const (
	largeTradeMultiple = 2.0
	whaleTradeMultiple = 5.0
	// decay constant for the time weighted buy ratio
	tradeDecaySeconds = 60.0
	// ratio reported when there is buying and no selling at all
	maxBuySellRatio = 10.0

	TrendStrongBuy  = "STRONG_BUY"
	TrendBuy        = "BUY"
	TrendNeutral    = "NEUTRAL"
	TrendSell       = "SELL"
	TrendStrongSell = "STRONG_SELL"
)

type TradeFlowAnalysis struct {
	TotalBuyVolume  float64
	TotalSellVolume float64
	BuySellRatio    float64
	BuyCount        int
	SellCount       int

	TimeWeightedBuyRatio float64
	TradeVelocity        float64 // trades per second
	TradeAcceleration    float64 // relative change from first half to second half velocity

	AvgTradeSize    float64
	LargeOrderCount int
	WhaleTradeCount int
	WhaleBuyVolume  float64
	WhaleSellVolume float64

	AggressiveBuyPercent     float64
	AggressiveSellPercent    float64
	VolumeWeightedBuyPercent float64
	RecentTrend              string
}

type TradeFlowService struct{}

func NewTradeFlowService() *TradeFlowService {
	return &TradeFlowService{}
}

// Analyze classifies each trade by its taker side. Ages for the time decay
// are measured from the newest trade so the result depends only on input.
func (s *TradeFlowService) Analyze(trades []models.TradeRecord) TradeFlowAnalysis {
	res := TradeFlowAnalysis{
		BuySellRatio:             1,
		TimeWeightedBuyRatio:     1,
		VolumeWeightedBuyPercent: 50,
		RecentTrend:              TrendNeutral,
	}
	if len(trades) == 0 {
		return res
	}

	newest := trades[len(trades)-1].Time
	var weightedBuy, weightedSell, totalSize float64
	for _, t := range trades {
		totalSize += t.Quantity
		age := newest.Sub(t.Time).Seconds()
		w := math.Exp(-age / tradeDecaySeconds)
		if t.BuyerIsTaker {
			res.TotalBuyVolume += t.Quantity
			res.BuyCount++
			weightedBuy += t.Quantity * w
		} else {
			res.TotalSellVolume += t.Quantity
			res.SellCount++
			weightedSell += t.Quantity * w
		}
	}

	res.BuySellRatio = ratio(res.TotalBuyVolume, res.TotalSellVolume)
	res.TimeWeightedBuyRatio = ratio(weightedBuy, weightedSell)

	res.AvgTradeSize = totalSize / float64(len(trades))
	for _, t := range trades {
		if t.Quantity > res.AvgTradeSize*largeTradeMultiple {
			res.LargeOrderCount++
		}
		if t.Quantity > res.AvgTradeSize*whaleTradeMultiple {
			res.WhaleTradeCount++
			if t.BuyerIsTaker {
				res.WhaleBuyVolume += t.Quantity
			} else {
				res.WhaleSellVolume += t.Quantity
			}
		}
	}

	res.TradeVelocity = velocity(trades)
	if len(trades) >= 4 {
		half := len(trades) / 2
		first, second := velocity(trades[:half]), velocity(trades[half:])
		if first > 0 {
			res.TradeAcceleration = (second - first) / first
		}
	}

	res.AggressiveBuyPercent = float64(res.BuyCount) / float64(len(trades)) * 100
	res.AggressiveSellPercent = float64(res.SellCount) / float64(len(trades)) * 100
	if aggressive := res.TotalBuyVolume + res.TotalSellVolume; aggressive > 0 {
		res.VolumeWeightedBuyPercent = res.TotalBuyVolume / aggressive * 100
	}

	res.RecentTrend = flowTrend(res.BuySellRatio)
	return res
}

// velocity is trades per second across the window, 0 when all trades share a timestamp
func velocity(trades []models.TradeRecord) float64 {
	if len(trades) < 2 {
		return 0
	}
	elapsed := trades[len(trades)-1].Time.Sub(trades[0].Time).Seconds()
	if elapsed <= 0 {
		return 0
	}
	return float64(len(trades)) / elapsed
}

func ratio(buy, sell float64) float64 {
	switch {
	case sell > 0:
		return math.Min(buy/sell, maxBuySellRatio)
	case buy > 0:
		return maxBuySellRatio
	}
	return 1
}

func flowTrend(ratio float64) string {
	switch {
	case ratio > 2:
		return TrendStrongBuy
	case ratio > 1.2:
		return TrendBuy
	case ratio < 0.5:
		return TrendStrongSell
	case ratio < 0.8:
		return TrendSell
	}
	return TrendNeutral
}
