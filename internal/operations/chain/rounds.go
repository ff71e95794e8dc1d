package chain

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const (
	// Predictions are best submitted this long before the next round starts.
	optimalLead   = 30 * time.Second
	optimalWindow = 5 * time.Second

	roundPriceDecimals = 8
)

type PredictionRound struct {
	Epoch         *big.Int
	StartTime     time.Time
	LockTime      time.Time
	CloseTime     time.Time
	LockPrice     *float64 // nil until the round locks
	ClosePrice    *float64 // nil until the round closes
	TotalAmount   *big.Int
	BullAmount    *big.Int
	BearAmount    *big.Int
	RewardBaseCal *big.Int
	RewardAmount  *big.Int
	OracleCalled  bool
}

type RoundTiming struct {
	CurrentEpoch          *big.Int
	NextRoundStart        time.Time
	TimeUntilNextRound    time.Duration
	OptimalPredictionTime time.Time
	IsOptimalTime         bool
}

// RoundMonitor reads round state from the prediction game contract.
type RoundMonitor struct {
	game *contract
	log  zerolog.Logger
	now  func() time.Time
}

func NewRoundMonitor(client *Client, address string, log zerolog.Logger) (*RoundMonitor, error) {
	if address == "" {
		address = DefaultPredictionAddress
	}
	game, err := newContract(client, address, predictionABI)
	if err != nil {
		return nil, err
	}
	return &RoundMonitor{
		game: game,
		log:  log.With().Str("component", "rounds").Logger(),
		now:  time.Now,
	}, nil
}

func (m *RoundMonitor) uint256(ctx context.Context, method string) (*big.Int, error) {
	values, err := m.game.call(ctx, method)
	if err != nil {
		return nil, err
	}
	v, ok := values[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("%s: unexpected type %T", method, values[0])
	}
	return v, nil
}

func (m *RoundMonitor) CurrentEpoch(ctx context.Context) (*big.Int, error) {
	return m.uint256(ctx, "currentEpoch")
}

// Interval returns the contract's round length.
func (m *RoundMonitor) Interval(ctx context.Context) (time.Duration, error) {
	v, err := m.uint256(ctx, "intervalSeconds")
	if err != nil {
		return 0, err
	}
	return time.Duration(v.Int64()) * time.Second, nil
}

func (m *RoundMonitor) Round(ctx context.Context, epoch *big.Int) (*PredictionRound, error) {
	values, err := m.game.call(ctx, "rounds", epoch)
	if err != nil {
		return nil, err
	}
	if len(values) != 14 {
		return nil, fmt.Errorf("rounds: expected 14 values, got %d", len(values))
	}

	ints := make([]*big.Int, 13)
	for i := range ints {
		v, ok := values[i].(*big.Int)
		if !ok {
			return nil, fmt.Errorf("rounds: field %d has type %T", i, values[i])
		}
		ints[i] = v
	}
	called, _ := values[13].(bool)

	return &PredictionRound{
		Epoch:         ints[0],
		StartTime:     time.Unix(ints[1].Int64(), 0),
		LockTime:      time.Unix(ints[2].Int64(), 0),
		CloseTime:     time.Unix(ints[3].Int64(), 0),
		LockPrice:     roundPrice(ints[4]),
		ClosePrice:    roundPrice(ints[5]),
		TotalAmount:   ints[8],
		BullAmount:    ints[9],
		BearAmount:    ints[10],
		RewardBaseCal: ints[11],
		RewardAmount:  ints[12],
		OracleCalled:  called,
	}, nil
}

func roundPrice(v *big.Int) *float64 {
	if v.Sign() == 0 {
		return nil
	}
	p := decimal.NewFromBigInt(v, -roundPriceDecimals).InexactFloat64()
	return &p
}

func (m *RoundMonitor) CurrentRound(ctx context.Context) (*PredictionRound, error) {
	epoch, err := m.CurrentEpoch(ctx)
	if err != nil {
		return nil, err
	}
	return m.Round(ctx, epoch)
}

// RoundTiming places now relative to the close of the live round, which is
// when the next round starts.
func (m *RoundMonitor) RoundTiming(ctx context.Context) (*RoundTiming, error) {
	round, err := m.CurrentRound(ctx)
	if err != nil {
		return nil, fmt.Errorf("round timing: %w", err)
	}

	now := m.now()
	optimal := round.CloseTime.Add(-optimalLead)
	timing := &RoundTiming{
		CurrentEpoch:          round.Epoch,
		NextRoundStart:        round.CloseTime,
		TimeUntilNextRound:    round.CloseTime.Sub(now),
		OptimalPredictionTime: optimal,
		IsOptimalTime:         !now.Before(optimal.Add(-optimalWindow)) && !now.After(optimal.Add(optimalWindow)),
	}

	m.log.Debug().
		Str("epoch", timing.CurrentEpoch.String()).
		Dur("until_next", timing.TimeUntilNextRound).
		Bool("optimal", timing.IsOptimalTime).
		Msg("round timing")

	return timing, nil
}

// TimeUntilLock is never negative.
func (m *RoundMonitor) TimeUntilLock(ctx context.Context) (time.Duration, error) {
	round, err := m.CurrentRound(ctx)
	if err != nil {
		return 0, err
	}
	if d := round.LockTime.Sub(m.now()); d > 0 {
		return d, nil
	}
	return 0, nil
}

func (m *RoundMonitor) IsInBettingPhase(ctx context.Context) (bool, error) {
	round, err := m.CurrentRound(ctx)
	if err != nil {
		return false, err
	}
	now := m.now()
	return !now.Before(round.StartTime) && now.Before(round.LockTime), nil
}
