package chain

import (
	"context"
	"errors"
	"math/big"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"
)

type fakeRPC struct {
	mu        sync.Mutex
	responses map[string][]byte
	failures  int
	calls     int
}

func (f *fakeRPC) CallContract(_ context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.failures > 0 {
		f.failures--
		return nil, errors.New("connection reset")
	}
	out, ok := f.responses[string(msg.Data[:4])]
	if !ok {
		return nil, errors.New("execution reverted")
	}
	return out, nil
}

func (f *fakeRPC) Close() {}

func mustABI(t *testing.T, def string) abi.ABI {
	t.Helper()
	parsed, err := abi.JSON(strings.NewReader(def))
	if err != nil {
		t.Fatalf("parse abi: %v", err)
	}
	return parsed
}

func respond(t *testing.T, f *fakeRPC, def, method string, values ...interface{}) {
	t.Helper()
	parsed := mustABI(t, def)
	m := parsed.Methods[method]
	out, err := m.Outputs.Pack(values...)
	if err != nil {
		t.Fatalf("pack %s: %v", method, err)
	}
	if f.responses == nil {
		f.responses = map[string][]byte{}
	}
	f.responses[string(m.ID)] = out
}

func staticDialer(rpc RPCClient) Dialer {
	return func(context.Context, string) (RPCClient, error) { return rpc, nil }
}

func newTestOracle(t *testing.T, rpc *fakeRPC) *Oracle {
	t.Helper()
	client := NewClientWithDialer([]string{"rpc-a"}, staticDialer(rpc), zerolog.Nop())
	oracle, err := NewOracle(client, "", zerolog.Nop())
	if err != nil {
		t.Fatalf("NewOracle: %v", err)
	}
	oracle.retryDelay = time.Millisecond
	return oracle
}

func feedRPC(t *testing.T, answer int64, updatedAt time.Time) *fakeRPC {
	rpc := &fakeRPC{}
	respond(t, rpc, aggregatorABI, "decimals", uint8(8))
	respond(t, rpc, aggregatorABI, "latestRoundData",
		big.NewInt(42), big.NewInt(answer), big.NewInt(updatedAt.Unix()), big.NewInt(updatedAt.Unix()), big.NewInt(42))
	return rpc
}

func TestLatestPrice(t *testing.T) {
	updated := time.Unix(1735689600, 0)
	oracle := newTestOracle(t, feedRPC(t, 60036000000, updated))

	price, err := oracle.LatestPrice(context.Background())
	if err != nil {
		t.Fatalf("LatestPrice: %v", err)
	}
	if price.Price != 600.36 {
		t.Errorf("Expected price 600.36, got %v", price.Price)
	}
	if price.RoundID.Int64() != 42 {
		t.Errorf("Expected round 42, got %v", price.RoundID)
	}
	if !price.UpdatedAt.Equal(updated) {
		t.Errorf("Expected updated at %v, got %v", updated, price.UpdatedAt)
	}
	if price.Source != SourceChainlink {
		t.Errorf("Expected source %s, got %s", SourceChainlink, price.Source)
	}
}

func TestEndpointRotation(t *testing.T) {
	good := feedRPC(t, 60000000000, time.Now())
	var dialed []string
	dial := func(_ context.Context, url string) (RPCClient, error) {
		dialed = append(dialed, url)
		if url == "rpc-a" {
			return nil, errors.New("dial refused")
		}
		return good, nil
	}

	client := NewClientWithDialer([]string{"rpc-a", "rpc-b"}, dial, zerolog.Nop())
	oracle, err := NewOracle(client, "", zerolog.Nop())
	if err != nil {
		t.Fatalf("NewOracle: %v", err)
	}

	price, err := oracle.LatestPrice(context.Background())
	if err != nil {
		t.Fatalf("LatestPrice: %v", err)
	}
	if price.Price != 600 {
		t.Errorf("Expected price 600, got %v", price.Price)
	}
	if client.Endpoint() != "rpc-b" {
		t.Errorf("Expected endpoint rpc-b, got %s", client.Endpoint())
	}
	if len(dialed) != 2 {
		t.Errorf("Expected 2 dials, got %d", len(dialed))
	}
}

// blockingRPC holds CallContract until ctx is done.
type blockingRPC struct {
	started chan struct{}
}

func (b *blockingRPC) CallContract(ctx context.Context, _ ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	close(b.started)
	<-ctx.Done()
	return nil, ctx.Err()
}

func (b *blockingRPC) Close() {}

func TestCancelledCallKeepsEndpoint(t *testing.T) {
	rpc := &blockingRPC{started: make(chan struct{})}
	client := NewClientWithDialer([]string{"rpc-a", "rpc-b"}, staticDialer(rpc), zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() {
		_, err := client.Call(ctx, common.Address{}, []byte{0, 0, 0, 0})
		errc <- err
	}()

	<-rpc.started
	// the in-flight call must not hold the client lock
	done := make(chan string, 1)
	go func() { done <- client.Endpoint() }()
	select {
	case ep := <-done:
		if ep != "rpc-a" {
			t.Errorf("Expected endpoint rpc-a during call, got %s", ep)
		}
	case <-time.After(time.Second):
		t.Fatalf("Expected Endpoint to return while a call is in flight")
	}

	cancel()
	err := <-errc
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
	if errors.Is(err, ErrAllEndpointsFailed) {
		t.Errorf("Expected cancellation not to be reported as endpoint failure")
	}
	if client.Endpoint() != "rpc-a" {
		t.Errorf("Expected endpoint rpc-a after cancel, got %s", client.Endpoint())
	}
}

func TestAllEndpointsFailed(t *testing.T) {
	rpc := &fakeRPC{failures: 100}
	client := NewClientWithDialer([]string{"rpc-a", "rpc-b", "rpc-c"}, staticDialer(rpc), zerolog.Nop())
	oracle, err := NewOracle(client, "", zerolog.Nop())
	if err != nil {
		t.Fatalf("NewOracle: %v", err)
	}

	_, err = oracle.LatestPrice(context.Background())
	if !errors.Is(err, ErrAllEndpointsFailed) {
		t.Fatalf("Expected ErrAllEndpointsFailed, got %v", err)
	}
	if rpc.calls != 3 {
		t.Errorf("Expected one call per endpoint, got %d", rpc.calls)
	}
}

func TestPriceWithRetry(t *testing.T) {
	rpc := feedRPC(t, 61000000000, time.Now())
	rpc.failures = 2
	oracle := newTestOracle(t, rpc)

	price, err := oracle.PriceWithRetry(context.Background(), 3)
	if err != nil {
		t.Fatalf("PriceWithRetry: %v", err)
	}
	if price.Price != 610 {
		t.Errorf("Expected price 610, got %v", price.Price)
	}

	rpc = feedRPC(t, 61000000000, time.Now())
	rpc.failures = 2
	oracle = newTestOracle(t, rpc)
	if _, err := oracle.PriceWithRetry(context.Background(), 2); !errors.Is(err, ErrAllEndpointsFailed) {
		t.Errorf("Expected failure after 2 attempts, got %v", err)
	}
}

func TestIsPriceFresh(t *testing.T) {
	now := time.Unix(1735689600, 0)
	oracle := newTestOracle(t, feedRPC(t, 60000000000, now.Add(-30*time.Second)))
	oracle.now = func() time.Time { return now }

	if !oracle.IsPriceFresh(context.Background(), time.Minute) {
		t.Errorf("Expected 30s old price to be fresh within 60s")
	}
	if oracle.IsPriceFresh(context.Background(), 10*time.Second) {
		t.Errorf("Expected 30s old price to be stale within 10s")
	}

	failing := newTestOracle(t, &fakeRPC{failures: 100})
	if failing.IsPriceFresh(context.Background(), time.Hour) {
		t.Errorf("Expected read failure to count as stale")
	}
}

func roundRPC(t *testing.T, epoch int64, start, lock, closeAt time.Time, lockPrice, closePrice int64) *fakeRPC {
	rpc := &fakeRPC{}
	respond(t, rpc, predictionABI, "currentEpoch", big.NewInt(epoch))
	respond(t, rpc, predictionABI, "intervalSeconds", big.NewInt(300))
	respond(t, rpc, predictionABI, "rounds",
		big.NewInt(epoch),
		big.NewInt(start.Unix()), big.NewInt(lock.Unix()), big.NewInt(closeAt.Unix()),
		big.NewInt(lockPrice), big.NewInt(closePrice),
		big.NewInt(0), big.NewInt(0),
		big.NewInt(1000), big.NewInt(600), big.NewInt(400), big.NewInt(0), big.NewInt(0),
		false,
	)
	return rpc
}

func newTestMonitor(t *testing.T, rpc *fakeRPC, now time.Time) *RoundMonitor {
	t.Helper()
	client := NewClientWithDialer([]string{"rpc-a"}, staticDialer(rpc), zerolog.Nop())
	monitor, err := NewRoundMonitor(client, "", zerolog.Nop())
	if err != nil {
		t.Fatalf("NewRoundMonitor: %v", err)
	}
	monitor.now = func() time.Time { return now }
	return monitor
}

func TestRound(t *testing.T) {
	now := time.Unix(1735689600, 0)
	rpc := roundRPC(t, 7, now.Add(-100*time.Second), now.Add(200*time.Second), now.Add(500*time.Second), 0, 60012000000)
	monitor := newTestMonitor(t, rpc, now)

	round, err := monitor.CurrentRound(context.Background())
	if err != nil {
		t.Fatalf("CurrentRound: %v", err)
	}
	if round.Epoch.Int64() != 7 {
		t.Errorf("Expected epoch 7, got %v", round.Epoch)
	}
	if round.LockPrice != nil {
		t.Errorf("Expected unset lock price, got %v", *round.LockPrice)
	}
	if round.ClosePrice == nil || *round.ClosePrice != 600.12 {
		t.Errorf("Expected close price 600.12, got %v", round.ClosePrice)
	}
	if round.BullAmount.Int64() != 600 || round.BearAmount.Int64() != 400 {
		t.Errorf("Expected bull/bear 600/400, got %v/%v", round.BullAmount, round.BearAmount)
	}

	interval, err := monitor.Interval(context.Background())
	if err != nil {
		t.Fatalf("Interval: %v", err)
	}
	if interval != 5*time.Minute {
		t.Errorf("Expected 5m interval, got %v", interval)
	}
}

func TestRoundTiming(t *testing.T) {
	now := time.Unix(1735689600, 0)
	tests := []struct {
		name    string
		closeIn time.Duration
		optimal bool
	}{
		{"inside window", 32 * time.Second, true},
		{"window edge", 35 * time.Second, true},
		{"too early", 120 * time.Second, false},
		{"too late", 20 * time.Second, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			closeAt := now.Add(tt.closeIn)
			rpc := roundRPC(t, 9, closeAt.Add(-10*time.Minute), closeAt.Add(-5*time.Minute), closeAt, 0, 0)
			timing, err := newTestMonitor(t, rpc, now).RoundTiming(context.Background())
			if err != nil {
				t.Fatalf("RoundTiming: %v", err)
			}
			if timing.IsOptimalTime != tt.optimal {
				t.Errorf("Expected optimal %v, got %v", tt.optimal, timing.IsOptimalTime)
			}
			if timing.TimeUntilNextRound != tt.closeIn {
				t.Errorf("Expected %v until next round, got %v", tt.closeIn, timing.TimeUntilNextRound)
			}
			if !timing.OptimalPredictionTime.Equal(closeAt.Add(-30 * time.Second)) {
				t.Errorf("Expected optimal time 30s before close, got %v", timing.OptimalPredictionTime)
			}
		})
	}
}

func TestBettingPhase(t *testing.T) {
	now := time.Unix(1735689600, 0)

	open := newTestMonitor(t, roundRPC(t, 3, now.Add(-100*time.Second), now.Add(200*time.Second), now.Add(500*time.Second), 0, 0), now)
	inPhase, err := open.IsInBettingPhase(context.Background())
	if err != nil || !inPhase {
		t.Errorf("Expected betting phase before lock, got %v (%v)", inPhase, err)
	}
	untilLock, _ := open.TimeUntilLock(context.Background())
	if untilLock != 200*time.Second {
		t.Errorf("Expected 200s until lock, got %v", untilLock)
	}

	locked := newTestMonitor(t, roundRPC(t, 3, now.Add(-400*time.Second), now.Add(-100*time.Second), now.Add(200*time.Second), 60000000000, 0), now)
	inPhase, err = locked.IsInBettingPhase(context.Background())
	if err != nil || inPhase {
		t.Errorf("Expected no betting phase after lock, got %v (%v)", inPhase, err)
	}
	untilLock, _ = locked.TimeUntilLock(context.Background())
	if untilLock != 0 {
		t.Errorf("Expected 0 until lock, got %v", untilLock)
	}
}
