package chain

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const SourceChainlink = "CHAINLINK"

type OraclePrice struct {
	Price     float64
	RoundID   *big.Int
	UpdatedAt time.Time
	Source    string
}

// Age reports how old the answer is relative to now.
func (p OraclePrice) Age(now time.Time) time.Duration {
	return now.Sub(p.UpdatedAt)
}

// Oracle reads the BNB/USD aggregator feed.
type Oracle struct {
	feed *contract
	log  zerolog.Logger

	mu          sync.Mutex
	decimals    int32
	hasDecimals bool

	retryDelay time.Duration
	now        func() time.Time
}

func NewOracle(client *Client, address string, log zerolog.Logger) (*Oracle, error) {
	if address == "" {
		address = DefaultOracleAddress
	}
	feed, err := newContract(client, address, aggregatorABI)
	if err != nil {
		return nil, err
	}
	return &Oracle{
		feed:       feed,
		log:        log.With().Str("component", "oracle").Logger(),
		decimals:   8,
		retryDelay: time.Second,
		now:        time.Now,
	}, nil
}

func (o *Oracle) loadDecimals(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.hasDecimals {
		return nil
	}
	values, err := o.feed.call(ctx, "decimals")
	if err != nil {
		return err
	}
	d, ok := values[0].(uint8)
	if !ok {
		return fmt.Errorf("decimals: unexpected type %T", values[0])
	}
	o.decimals = int32(d)
	o.hasDecimals = true
	return nil
}

// LatestPrice returns answer / 10^decimals from latestRoundData.
func (o *Oracle) LatestPrice(ctx context.Context) (*OraclePrice, error) {
	if err := o.loadDecimals(ctx); err != nil {
		return nil, fmt.Errorf("oracle decimals: %w", err)
	}

	values, err := o.feed.call(ctx, "latestRoundData")
	if err != nil {
		return nil, fmt.Errorf("oracle price: %w", err)
	}
	if len(values) < 4 {
		return nil, fmt.Errorf("oracle price: expected 5 values, got %d", len(values))
	}

	roundID, _ := values[0].(*big.Int)
	answer, ok := values[1].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("oracle price: unexpected answer type %T", values[1])
	}
	updatedAt, ok := values[3].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("oracle price: unexpected updatedAt type %T", values[3])
	}

	price := &OraclePrice{
		Price:     decimal.NewFromBigInt(answer, -o.decimals).InexactFloat64(),
		RoundID:   roundID,
		UpdatedAt: time.Unix(updatedAt.Int64(), 0),
		Source:    SourceChainlink,
	}

	o.log.Debug().
		Float64("price", price.Price).
		Str("round", fmt.Sprint(roundID)).
		Time("updated_at", price.UpdatedAt).
		Msg("oracle price fetched")

	return price, nil
}

// PriceWithRetry calls LatestPrice up to attempts times, waiting
// retryDelay × attempt between failures.
func (o *Oracle) PriceWithRetry(ctx context.Context, attempts int) (*OraclePrice, error) {
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		var price *OraclePrice
		if price, err = o.LatestPrice(ctx); err == nil {
			return price, nil
		}

		o.log.Warn().Err(err).Int("attempt", attempt).Int("of", attempts).Msg("oracle price fetch failed")
		if attempt == attempts {
			break
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Duration(attempt) * o.retryDelay):
		}
	}
	return nil, fmt.Errorf("oracle price after %d attempts: %w", attempts, err)
}

// IsPriceFresh reports whether the latest answer is at most maxAge old.
// Read failures count as stale.
func (o *Oracle) IsPriceFresh(ctx context.Context, maxAge time.Duration) bool {
	price, err := o.LatestPrice(ctx)
	if err != nil {
		o.log.Error().Err(err).Msg("oracle freshness check failed")
		return false
	}
	age := price.Age(o.now())
	o.log.Debug().Dur("age", age).Dur("max", maxAge).Msg("oracle price age")
	return age <= maxAge
}
