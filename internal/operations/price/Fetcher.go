package price

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"BNBPredictionBot/internal/metrics"
	"BNBPredictionBot/internal/operations/chain"
)

var ErrExchangePriceUnavailable = errors.New("price: exchange price unavailable")

const (
	SourceChainlink = chain.SourceChainlink
	SourceBinance   = "BINANCE"

	warnDiffPercent     = 0.2
	criticalDiffPercent = 0.5

	oracleAttempts = 2
)

// OracleSource is the on-chain side of price selection
type OracleSource interface {
	PriceWithRetry(ctx context.Context, attempts int) (*chain.OraclePrice, error)
	IsPriceFresh(ctx context.Context, maxAge time.Duration) bool
}

// ExchangeSource is the exchange side of price selection
type ExchangeSource interface {
	GetCurrentPrice(ctx context.Context, symbol string) (float64, error)
}

type HybridPrice struct {
	OraclePrice            *float64  `json:"chainlinkPrice"`
	ExchangePrice          float64   `json:"binancePrice"`
	SelectedPrice          float64   `json:"selectedPrice"`
	SelectedSource         string    `json:"selectedSource"`
	PriceDifference        float64   `json:"priceDifference"`
	PriceDifferencePercent float64   `json:"priceDifferencePercent"`
	ConfidenceAdjustment   float64   `json:"confidenceAdjustment"`
	Timestamp              time.Time `json:"timestamp"`
}

type PriceComparison struct {
	Oracle            *float64
	Exchange          float64
	Difference        float64
	DifferencePercent float64
	Recommendation    string
}

// HybridPriceService picks between the oracle and exchange price and
// reports how much confidence should be discounted for the choice.
type HybridPriceService struct {
	oracle   OracleSource
	exchange ExchangeSource
	metrics  *metrics.Recorder
	log      zerolog.Logger
	now      func() time.Time
}

// oracle may be nil, in which case the exchange price is always used.
func NewHybridPriceService(oracle OracleSource, exchange ExchangeSource, rec *metrics.Recorder, log zerolog.Logger) *HybridPriceService {
	return &HybridPriceService{
		oracle:   oracle,
		exchange: exchange,
		metrics:  rec,
		log:      log.With().Str("component", "hybrid_price").Logger(),
		now:      time.Now,
	}
}

// GetHybridPrice fetches both prices concurrently. Only an exchange failure is fatal.
func (s *HybridPriceService) GetHybridPrice(ctx context.Context, symbol string) (*HybridPrice, error) {
	var (
		oraclePrice   *float64
		exchangePrice float64
	)

	g, gctx := errgroup.WithContext(ctx)
	if s.oracle != nil {
		g.Go(func() error {
			p, err := s.oracle.PriceWithRetry(gctx, oracleAttempts)
			if err != nil {
				s.log.Warn().Err(err).Msg("oracle price unavailable")
				s.metrics.RecordError("oracle")
				return nil
			}
			oraclePrice = &p.Price
			return nil
		})
	}
	g.Go(func() error {
		p, err := s.exchange.GetCurrentPrice(gctx, symbol)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrExchangePriceUnavailable, err)
		}
		exchangePrice = p
		return nil
	})
	if err := g.Wait(); err != nil {
		s.metrics.RecordError("exchange")
		return nil, err
	}
	if exchangePrice <= 0 {
		return nil, fmt.Errorf("%w: non-positive price %v", ErrExchangePriceUnavailable, exchangePrice)
	}

	selected, source, adjustment := SelectPrice(oraclePrice, exchangePrice)
	hp := &HybridPrice{
		OraclePrice:          oraclePrice,
		ExchangePrice:        exchangePrice,
		SelectedPrice:        selected,
		SelectedSource:       source,
		ConfidenceAdjustment: adjustment,
		Timestamp:            s.now(),
	}
	if oraclePrice != nil {
		hp.PriceDifference = math.Abs(*oraclePrice - exchangePrice)
		hp.PriceDifferencePercent = hp.PriceDifference / exchangePrice * 100
		s.metrics.RecordLastPrice(SourceChainlink, *oraclePrice)
	}
	s.metrics.RecordLastPrice(SourceBinance, exchangePrice)

	if oraclePrice != nil && hp.PriceDifferencePercent > warnDiffPercent {
		ev := s.log.Warn()
		if hp.PriceDifferencePercent > criticalDiffPercent {
			ev = s.log.Error()
		}
		ev.Float64("chainlink", *oraclePrice).
			Float64("binance", exchangePrice).
			Float64("difference", hp.PriceDifference).
			Float64("difference_pct", hp.PriceDifferencePercent).
			Msg("significant price difference detected")
	}

	s.log.Debug().
		Float64("price", hp.SelectedPrice).
		Str("source", hp.SelectedSource).
		Float64("adjustment", hp.ConfidenceAdjustment).
		Bool("oracle_available", oraclePrice != nil).
		Msg("hybrid price")

	return hp, nil
}

// SelectPrice applies the source selection table. Above a 0.5% gap the
// average is used but the source is still reported as the oracle.
func SelectPrice(oracle *float64, exchange float64) (price float64, source string, adjustment float64) {
	if oracle == nil {
		return exchange, SourceBinance, 0.95
	}

	diff := math.Abs(*oracle-exchange) / exchange * 100
	switch {
	case diff < 0.1:
		return *oracle, SourceChainlink, 1.0
	case diff < 0.3:
		return *oracle, SourceChainlink, 0.98
	case diff < 0.5:
		return *oracle, SourceChainlink, 0.95
	default:
		return (*oracle + exchange) / 2, SourceChainlink, 0.90
	}
}

// IsOracleHealthy reports whether the oracle answered within the last minute
func (s *HybridPriceService) IsOracleHealthy(ctx context.Context) bool {
	if s.oracle == nil {
		return false
	}
	return s.oracle.IsPriceFresh(ctx, time.Minute)
}

func (s *HybridPriceService) Compare(ctx context.Context, symbol string) (*PriceComparison, error) {
	hp, err := s.GetHybridPrice(ctx, symbol)
	if err != nil {
		return nil, err
	}

	c := &PriceComparison{
		Oracle:            hp.OraclePrice,
		Exchange:          hp.ExchangePrice,
		Difference:        hp.PriceDifference,
		DifferencePercent: hp.PriceDifferencePercent,
	}
	switch {
	case hp.OraclePrice == nil:
		c.Recommendation = "Use Binance (Chainlink unavailable)"
	case hp.PriceDifferencePercent < 0.1:
		c.Recommendation = "Use Chainlink (prices match)"
	case hp.PriceDifferencePercent < 0.3:
		c.Recommendation = "Use Chainlink (acceptable difference)"
	case hp.PriceDifferencePercent < 0.5:
		c.Recommendation = "Use Chainlink with caution (moderate difference)"
	default:
		c.Recommendation = "Use average (large difference detected)"
	}
	return c, nil
}
