package binance

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	gobinance "github.com/adshao/go-binance/v2"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"BNBPredictionBot/internal/models"
)

var ErrEmptyOrderBook = errors.New("binance: order book has no bids or asks")

type Config struct {
	APIKey    string
	SecretKey string
	BaseURL   string // empty for the production endpoint
}

type BinanceClient struct {
	client      *gobinance.Client
	rateLimiter *rate.Limiter
	httpClient  *http.Client
	log         zerolog.Logger

	maxRetries int
	backoff    time.Duration
}

func NewBinanceClient(cfg Config, log zerolog.Logger) *BinanceClient {
	// Create custom HTTP client with timeouts
	httpClient := &http.Client{
		Timeout: time.Second * 10,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 100,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	spotClient := gobinance.NewClient(cfg.APIKey, cfg.SecretKey)
	spotClient.HTTPClient = httpClient
	if cfg.BaseURL != "" {
		spotClient.BaseURL = cfg.BaseURL
	}

	// 10 requests per second with burst of 20
	limiter := rate.NewLimiter(rate.Limit(10), 20)

	return &BinanceClient{
		client:      spotClient,
		rateLimiter: limiter,
		httpClient:  httpClient,
		log:         log.With().Str("component", "binance").Logger(),
		maxRetries:  3,
		backoff:     100 * time.Millisecond,
	}
}

// retry runs call up to maxRetries times, waiting on the rate limiter before
// each attempt and backing off exponentially between failures.
func (c *BinanceClient) retry(ctx context.Context, op string, call func(context.Context) error) error {
	var err error
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if err = c.rateLimiter.Wait(ctx); err != nil {
			return err
		}

		if err = call(ctx); err == nil {
			return nil
		}

		if attempt == c.maxRetries-1 {
			break
		}

		waitTime := time.Duration(math.Pow(2, float64(attempt))) * c.backoff
		c.log.Warn().Err(err).Str("op", op).Int("attempt", attempt+1).Dur("wait", waitTime).Msg("exchange request failed, retrying")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(waitTime):
		}
	}
	return fmt.Errorf("%s failed after %d attempts: %w", op, c.maxRetries, err)
}

// GetKlines fetches the latest limit candles, oldest first
func (c *BinanceClient) GetKlines(ctx context.Context, symbol, interval string, limit int) ([]models.Candle, error) {
	var klines []*gobinance.Kline
	err := c.retry(ctx, "klines", func(ctx context.Context) error {
		var err error
		klines, err = c.client.NewKlinesService().
			Symbol(symbol).
			Interval(interval).
			Limit(limit).
			Do(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}

	candles := make([]models.Candle, 0, len(klines))
	for _, k := range klines {
		candle, err := toCandle(symbol, interval, k)
		if err != nil {
			return nil, err
		}
		candles = append(candles, candle)
	}
	return candles, nil
}

// GetHistoricalKlines pages backwards from now until total candles are
// collected or the exchange runs out of history.
func (c *BinanceClient) GetHistoricalKlines(ctx context.Context, symbol, interval string, total int) ([]models.Candle, error) {
	const pageSize = 1000
	var all []models.Candle
	var endTime int64

	for len(all) < total {
		limit := min(pageSize, total-len(all))
		var klines []*gobinance.Kline
		err := c.retry(ctx, "historical klines", func(ctx context.Context) error {
			svc := c.client.NewKlinesService().Symbol(symbol).Interval(interval).Limit(limit)
			if endTime > 0 {
				svc = svc.EndTime(endTime)
			}
			var err error
			klines, err = svc.Do(ctx)
			return err
		})
		if err != nil {
			return nil, err
		}
		if len(klines) == 0 {
			break
		}

		page := make([]models.Candle, 0, len(klines))
		for _, k := range klines {
			candle, err := toCandle(symbol, interval, k)
			if err != nil {
				return nil, err
			}
			page = append(page, candle)
		}
		all = append(page, all...)
		endTime = klines[0].OpenTime - 1

		if len(klines) < limit {
			break
		}
	}
	return all, nil
}

func (c *BinanceClient) Get24hrTicker(ctx context.Context, symbol string) (*models.Ticker24h, error) {
	var stats []*gobinance.PriceChangeStats
	err := c.retry(ctx, "ticker24h", func(ctx context.Context) error {
		var err error
		stats, err = c.client.NewListPriceChangeStatsService().Symbol(symbol).Do(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	if len(stats) == 0 {
		return nil, fmt.Errorf("no 24h ticker for %s", symbol)
	}

	s := stats[0]
	p := &parser{}
	ticker := &models.Ticker24h{
		Symbol:             symbol,
		LastPrice:          p.float("lastPrice", s.LastPrice),
		PriceChange:        p.float("priceChange", s.PriceChange),
		PriceChangePercent: p.float("priceChangePercent", s.PriceChangePercent),
		HighPrice:          p.float("highPrice", s.HighPrice),
		LowPrice:           p.float("lowPrice", s.LowPrice),
		Volume:             p.float("volume", s.Volume),
		QuoteVolume:        p.float("quoteVolume", s.QuoteVolume),
		TradeCount:         s.Count,
	}
	if p.err != nil {
		return nil, p.err
	}
	return ticker, nil
}

func (c *BinanceClient) GetCurrentPrice(ctx context.Context, symbol string) (float64, error) {
	var prices []*gobinance.SymbolPrice
	err := c.retry(ctx, "price", func(ctx context.Context) error {
		var err error
		prices, err = c.client.NewListPricesService().Symbol(symbol).Do(ctx)
		return err
	})
	if err != nil {
		return 0, err
	}
	if len(prices) == 0 {
		return 0, fmt.Errorf("no price for %s", symbol)
	}
	return parseFloat(prices[0].Price)
}

func (c *BinanceClient) GetOrderBook(ctx context.Context, symbol string, limit int) (*models.OrderBookSnapshot, error) {
	var depth *gobinance.DepthResponse
	err := c.retry(ctx, "depth", func(ctx context.Context) error {
		var err error
		depth, err = c.client.NewDepthService().Symbol(symbol).Limit(limit).Do(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	if len(depth.Bids) == 0 || len(depth.Asks) == 0 {
		return nil, ErrEmptyOrderBook
	}

	book := &models.OrderBookSnapshot{
		Symbol:       symbol,
		LastUpdateID: depth.LastUpdateID,
		Bids:         make([]models.BookLevel, 0, len(depth.Bids)),
		Asks:         make([]models.BookLevel, 0, len(depth.Asks)),
	}
	p := &parser{}
	for _, b := range depth.Bids {
		book.Bids = append(book.Bids, models.BookLevel{Price: p.float("bid price", b.Price), Quantity: p.float("bid qty", b.Quantity)})
	}
	for _, a := range depth.Asks {
		book.Asks = append(book.Asks, models.BookLevel{Price: p.float("ask price", a.Price), Quantity: p.float("ask qty", a.Quantity)})
	}
	if p.err != nil {
		return nil, p.err
	}
	return book, nil
}

// GetRecentTrades returns trades oldest first. A buyer-maker trade is an
// aggressive sell.
func (c *BinanceClient) GetRecentTrades(ctx context.Context, symbol string, limit int) ([]models.TradeRecord, error) {
	var trades []*gobinance.Trade
	err := c.retry(ctx, "trades", func(ctx context.Context) error {
		var err error
		trades, err = c.client.NewRecentTradesService().Symbol(symbol).Limit(limit).Do(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}

	records := make([]models.TradeRecord, 0, len(trades))
	p := &parser{}
	for _, t := range trades {
		records = append(records, models.TradeRecord{
			ID:           t.ID,
			Price:        p.float("trade price", t.Price),
			Quantity:     p.float("trade qty", t.Quantity),
			Time:         time.UnixMilli(t.Time).UTC(),
			BuyerIsTaker: !t.IsBuyerMaker,
		})
	}
	if p.err != nil {
		return nil, p.err
	}
	return records, nil
}

// GetMarketData fetches candles and the 24h ticker concurrently
func (c *BinanceClient) GetMarketData(ctx context.Context, symbol, interval string, limit int) (*models.MarketData, error) {
	var (
		candles []models.Candle
		ticker  *models.Ticker24h
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		candles, err = c.GetKlines(gctx, symbol, interval, limit)
		return err
	})
	g.Go(func() (err error) {
		ticker, err = c.Get24hrTicker(gctx, symbol)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to fetch market data: %w", err)
	}

	return &models.MarketData{
		Symbol:                symbol,
		CurrentPrice:          ticker.LastPrice,
		PriceChange24h:        ticker.PriceChange,
		PriceChangePercent24h: ticker.PriceChangePercent,
		Volume24h:             ticker.Volume,
		High24h:               ticker.HighPrice,
		Low24h:                ticker.LowPrice,
		Candles:               candles,
		Timestamp:             time.Now().UTC(),
	}, nil
}

// GetEnhancedMarketData adds the order book and recent trades
func (c *BinanceClient) GetEnhancedMarketData(ctx context.Context, symbol, interval string, candleLimit, depthLimit, tradeLimit int) (*models.MarketData, error) {
	var (
		data   *models.MarketData
		book   *models.OrderBookSnapshot
		trades []models.TradeRecord
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		data, err = c.GetMarketData(gctx, symbol, interval, candleLimit)
		return err
	})
	g.Go(func() (err error) {
		book, err = c.GetOrderBook(gctx, symbol, depthLimit)
		return err
	})
	g.Go(func() (err error) {
		trades, err = c.GetRecentTrades(gctx, symbol, tradeLimit)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	data.OrderBook = book
	data.Trades = trades
	return data, nil
}

func toCandle(symbol, interval string, k *gobinance.Kline) (models.Candle, error) {
	p := &parser{}
	candle := models.Candle{
		Symbol:              symbol,
		Interval:            interval,
		OpenTime:            time.UnixMilli(k.OpenTime).UTC(),
		CloseTime:           time.UnixMilli(k.CloseTime).UTC(),
		Open:                p.float("open", k.Open),
		High:                p.float("high", k.High),
		Low:                 p.float("low", k.Low),
		Close:               p.float("close", k.Close),
		Volume:              p.float("volume", k.Volume),
		QuoteVolume:         p.float("quoteVolume", k.QuoteAssetVolume),
		TradeCount:          k.TradeNum,
		TakerBuyBaseVolume:  p.float("takerBuyBase", k.TakerBuyBaseAssetVolume),
		TakerBuyQuoteVolume: p.float("takerBuyQuote", k.TakerBuyQuoteAssetVolume),
	}
	return candle, p.err
}

// parser keeps the first parse error so a struct can be filled in one pass
type parser struct {
	err error
}

func (p *parser) float(field, s string) float64 {
	if p.err != nil {
		return 0
	}
	v, err := parseFloat(s)
	if err != nil {
		p.err = fmt.Errorf("parse %s: %w", field, err)
	}
	return v
}

func parseFloat(s string) (float64, error) {
	return strconv.ParseFloat(s, 64)
}
