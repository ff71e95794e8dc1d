package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/rs/zerolog"
)

var ErrAllEndpointsFailed = errors.New("chain: all rpc endpoints failed")

// Public BSC endpoints tried in order.
var DefaultRPCURLs = []string{
	"https://bsc-dataseed.binance.org/",
	"https://bsc-dataseed1.defibit.io/",
	"https://bsc-dataseed1.ninicoin.io/",
	"https://bsc.publicnode.com",
}

const (
	DefaultOracleAddress     = "0x0567F2323251f0Aab15c8dFb1967E4e8A7D42aeE"
	DefaultPredictionAddress = "0x18b2a687610328590bc8f2e5fedde3b582a49cda"
)

// RPCClient is the subset of ethclient.Client the readers need.
type RPCClient interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	Close()
}

// Dialer opens an RPC connection to url.
type Dialer func(ctx context.Context, url string) (RPCClient, error)

func dialEthClient(ctx context.Context, url string) (RPCClient, error) {
	client, err := ethclient.DialContext(ctx, url)
	if err != nil {
		return nil, err
	}
	return client, nil
}

// Client holds one live RPC connection and rotates to the next endpoint
// whenever a call fails.
type Client struct {
	endpoints []string
	dial      Dialer
	log       zerolog.Logger

	mu      sync.Mutex
	current int
	conn    RPCClient
}

func NewClient(endpoints []string, log zerolog.Logger) *Client {
	return NewClientWithDialer(endpoints, dialEthClient, log)
}

func NewClientWithDialer(endpoints []string, dial Dialer, log zerolog.Logger) *Client {
	if len(endpoints) == 0 {
		endpoints = DefaultRPCURLs
	}
	return &Client{
		endpoints: endpoints,
		dial:      dial,
		log:       log.With().Str("component", "chain").Logger(),
	}
}

// Endpoint returns the URL currently in use.
func (c *Client) Endpoint() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.endpoints[c.current]
}

// Call executes an eth_call against to, trying each endpoint once.
// A cancelled ctx returns its error without marking the endpoint as failed.
func (c *Client) Call(ctx context.Context, to common.Address, data []byte) ([]byte, error) {
	var lastErr error
	for i := 0; i < len(c.endpoints); i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		conn, idx, err := c.connection(ctx)
		if err == nil {
			var out []byte
			out, err = conn.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
			if err == nil {
				return out, nil
			}
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		lastErr = err
		c.rotate(idx, err)
	}
	return nil, fmt.Errorf("%w: %v", ErrAllEndpointsFailed, lastErr)
}

// connection returns the live connection and the endpoint index it belongs to,
// dialing the current endpoint when none is open.
func (c *Client) connection(ctx context.Context) (RPCClient, int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		conn, err := c.dial(ctx, c.endpoints[c.current])
		if err != nil {
			return nil, c.current, err
		}
		c.conn = conn
	}
	return c.conn, c.current, nil
}

// rotate drops the connection to endpoint idx and moves to the next one.
// It is a no-op when another call already rotated away from idx.
func (c *Client) rotate(idx int, cause error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if idx != c.current {
		return
	}
	c.log.Warn().Err(cause).Str("endpoint", c.endpoints[c.current]).Msg("rpc endpoint failed, rotating")
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	c.current = (c.current + 1) % len(c.endpoints)
}

func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
}

// contract binds an address to its parsed ABI.
type contract struct {
	client  *Client
	address common.Address
	abi     abi.ABI
}

func newContract(client *Client, address, abiJSON string) (*contract, error) {
	parsed, err := abi.JSON(strings.NewReader(abiJSON))
	if err != nil {
		return nil, fmt.Errorf("parse abi: %w", err)
	}
	return &contract{client: client, address: common.HexToAddress(address), abi: parsed}, nil
}

func (ct *contract) call(ctx context.Context, method string, args ...interface{}) ([]interface{}, error) {
	input, err := ct.abi.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	output, err := ct.client.Call(ctx, ct.address, input)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", method, err)
	}
	values, err := ct.abi.Unpack(method, output)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	return values, nil
}
