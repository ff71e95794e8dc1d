package microstructure

import (
	"math"

	"BNBPredictionBot/internal/models"
)

const (
	DefaultBookDepth = 20

	// each level is scaled by exp(-decay * distance/mid)
	distanceDecay      = 100.0
	whaleSizeMultiple  = 10.0
	whaleSideDominance = 1.5

	DepthThin   = "THIN"
	DepthNormal = "NORMAL"
	DepthDeep   = "DEEP"

	SideBid      = "BID"
	SideAsk      = "ASK"
	SideBalanced = "BALANCED"
)

type WhaleOrder struct {
	Side     string
	Price    float64
	Quantity float64
}

type OrderBookAnalysis struct {
	BidAskSpread        float64
	BidAskSpreadPercent float64
	TotalBidVolume      float64
	TotalAskVolume      float64
	BuyPressure         float64 // 0-1, share of visible volume on the bid
	ImbalanceRatio      float64 // -1 to 1, positive = more bids
	TopBidPrice         float64
	TopAskPrice         float64
	DepthQuality        string

	WeightedBuyPressure float64
	OrderFlowImbalance  float64

	WhaleOrders     []WhaleOrder
	WhaleOrderCount int
	WhaleBidVolume  float64
	WhaleAskVolume  float64
	WhaleSide       string
}

type OrderBookService struct {
	depth int
}

func NewOrderBookService(depth int) *OrderBookService {
	if depth <= 0 {
		depth = DefaultBookDepth
	}
	return &OrderBookService{depth: depth}
}

// Analyze summarizes the top levels of each side. An empty side leaves the
// pressure metrics at their neutral values.
func (s *OrderBookService) Analyze(book *models.OrderBookSnapshot) OrderBookAnalysis {
	res := OrderBookAnalysis{
		BuyPressure:         0.5,
		WeightedBuyPressure: 0.5,
		DepthQuality:        DepthThin,
		WhaleSide:           SideBalanced,
	}
	if book == nil {
		return res
	}

	bids := topLevels(book.Bids, s.depth)
	asks := topLevels(book.Asks, s.depth)

	if len(bids) > 0 {
		res.TopBidPrice = bids[0].Price
	}
	if len(asks) > 0 {
		res.TopAskPrice = asks[0].Price
	}
	if len(bids) > 0 && len(asks) > 0 {
		res.BidAskSpread = res.TopAskPrice - res.TopBidPrice
		if res.TopBidPrice > 0 {
			res.BidAskSpreadPercent = res.BidAskSpread / res.TopBidPrice * 100
		}
	}

	res.TotalBidVolume = sumQuantity(bids)
	res.TotalAskVolume = sumQuantity(asks)
	total := res.TotalBidVolume + res.TotalAskVolume
	if total > 0 {
		res.BuyPressure = res.TotalBidVolume / total
		res.ImbalanceRatio = (res.TotalBidVolume - res.TotalAskVolume) / total
	}

	switch {
	case total < 50:
		res.DepthQuality = DepthThin
	case total < 200:
		res.DepthQuality = DepthNormal
	default:
		res.DepthQuality = DepthDeep
	}

	s.weighted(&res, bids, asks)
	s.whales(&res, bids, asks)
	return res
}

func (s *OrderBookService) weighted(res *OrderBookAnalysis, bids, asks []models.BookLevel) {
	var mid float64
	switch {
	case len(bids) > 0 && len(asks) > 0:
		mid = (res.TopBidPrice + res.TopAskPrice) / 2
	case len(bids) > 0:
		mid = res.TopBidPrice
	case len(asks) > 0:
		mid = res.TopAskPrice
	}
	if mid <= 0 {
		return
	}

	weight := func(levels []models.BookLevel) float64 {
		sum := 0.0
		for _, l := range levels {
			sum += l.Quantity * math.Exp(-distanceDecay*math.Abs(l.Price-mid)/mid)
		}
		return sum
	}

	wb, wa := weight(bids), weight(asks)
	if wb+wa > 0 {
		res.WeightedBuyPressure = wb / (wb + wa)
		res.OrderFlowImbalance = (wb - wa) / (wb + wa)
	}
}

func (s *OrderBookService) whales(res *OrderBookAnalysis, bids, asks []models.BookLevel) {
	levels := len(bids) + len(asks)
	if levels == 0 {
		return
	}
	threshold := (res.TotalBidVolume + res.TotalAskVolume) / float64(levels) * whaleSizeMultiple

	for _, l := range bids {
		if l.Quantity > threshold {
			res.WhaleOrders = append(res.WhaleOrders, WhaleOrder{Side: SideBid, Price: l.Price, Quantity: l.Quantity})
			res.WhaleBidVolume += l.Quantity
		}
	}
	for _, l := range asks {
		if l.Quantity > threshold {
			res.WhaleOrders = append(res.WhaleOrders, WhaleOrder{Side: SideAsk, Price: l.Price, Quantity: l.Quantity})
			res.WhaleAskVolume += l.Quantity
		}
	}
	res.WhaleOrderCount = len(res.WhaleOrders)

	switch {
	case res.WhaleBidVolume > res.WhaleAskVolume*whaleSideDominance:
		res.WhaleSide = SideBid
	case res.WhaleAskVolume > res.WhaleBidVolume*whaleSideDominance:
		res.WhaleSide = SideAsk
	default:
		res.WhaleSide = SideBalanced
	}
}

func topLevels(levels []models.BookLevel, depth int) []models.BookLevel {
	if len(levels) > depth {
		return levels[:depth]
	}
	return levels
}

func sumQuantity(levels []models.BookLevel) float64 {
	sum := 0.0
	for _, l := range levels {
		sum += l.Quantity
	}
	return sum
}
