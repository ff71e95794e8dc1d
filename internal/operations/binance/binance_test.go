package binance

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

const (
	klinesBody = `[
		[1735689600000,"600.10","601.00","599.50","600.80","120.5",1735689899999,"72300.1",340,"70.2","42100.3","0"],
		[1735689900000,"600.80","602.40","600.20","602.00","98.1",1735690199999,"59000.0",280,"50.0","30100.0","0"]
	]`
	tickerBody = `[{"symbol":"BNBUSDT","priceChange":"5.20","priceChangePercent":"0.870","weightedAvgPrice":"598.1",
		"prevClosePrice":"596.80","lastPrice":"602.00","lastQty":"0.5","bidPrice":"601.9","bidQty":"3","askPrice":"602.0",
		"askQty":"4","openPrice":"596.80","highPrice":"610.00","lowPrice":"590.00","volume":"250000.5","quoteVolume":"150000000",
		"openTime":1735603500000,"closeTime":1735689899999,"firstId":1,"lastId":2,"count":120000}]`
	priceBody = `[{"symbol":"BNBUSDT","price":"602.05"}]`
	depthBody = `{"lastUpdateId":1027024,"bids":[["601.90","4.5"],["601.80","2.0"]],"asks":[["602.00","1.5"],["602.10","3.0"]]}`
	tradesBody = `[
		{"id":1,"price":"601.95","qty":"0.8","quoteQty":"481.56","time":1735689890000,"isBuyerMaker":true,"isBestMatch":true},
		{"id":2,"price":"602.00","qty":"1.2","quoteQty":"722.40","time":1735689891000,"isBuyerMaker":false,"isBestMatch":true}
	]`
)

func newTestClient(t *testing.T, handler http.Handler) *BinanceClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	c := NewBinanceClient(Config{BaseURL: server.URL}, zerolog.Nop())
	c.backoff = time.Millisecond
	return c
}

func exchangeMux() *http.ServeMux {
	mux := http.NewServeMux()
	routes := map[string]string{
		"/api/v3/klines":       klinesBody,
		"/api/v3/ticker/24hr":  tickerBody,
		"/api/v3/ticker/price": priceBody,
		"/api/v3/depth":        depthBody,
		"/api/v1/trades":       tradesBody,
	}
	for path, body := range routes {
		body := body
		mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, body)
		})
	}
	return mux
}

func TestGetKlines(t *testing.T) {
	c := newTestClient(t, exchangeMux())

	candles, err := c.GetKlines(context.Background(), "BNBUSDT", "5m", 2)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(candles) != 2 {
		t.Fatalf("Expected 2 candles, got %d", len(candles))
	}
	first := candles[0]
	if first.Open != 600.10 || first.High != 601.00 || first.Close != 600.80 || first.Volume != 120.5 {
		t.Errorf("Unexpected OHLCV %+v", first)
	}
	if first.TradeCount != 340 || first.TakerBuyBaseVolume != 70.2 {
		t.Errorf("Unexpected trade fields %+v", first)
	}
	if !first.OpenTime.Equal(time.UnixMilli(1735689600000)) {
		t.Errorf("Expected open time from milliseconds, got %s", first.OpenTime)
	}
	if first.Symbol != "BNBUSDT" || first.Interval != "5m" {
		t.Errorf("Expected symbol and interval to be set, got %s %s", first.Symbol, first.Interval)
	}
}

func TestGetMarketData(t *testing.T) {
	c := newTestClient(t, exchangeMux())

	data, err := c.GetEnhancedMarketData(context.Background(), "BNBUSDT", "5m", 2, 5, 2)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if data.CurrentPrice != 602 || data.PriceChangePercent24h != 0.87 || data.High24h != 610 {
		t.Errorf("Unexpected ticker fields %+v", data)
	}
	if len(data.Candles) != 2 {
		t.Errorf("Expected 2 candles, got %d", len(data.Candles))
	}
	if data.OrderBook == nil || len(data.OrderBook.Bids) != 2 || data.OrderBook.Bids[0].Price != 601.9 {
		t.Errorf("Unexpected order book %+v", data.OrderBook)
	}
	if len(data.Trades) != 2 {
		t.Fatalf("Expected 2 trades, got %d", len(data.Trades))
	}
	if data.Trades[0].BuyerIsTaker || !data.Trades[1].BuyerIsTaker {
		t.Errorf("Expected buyer-maker trade to be an aggressive sell, got %+v", data.Trades)
	}
}

func TestGetRecentTrades(t *testing.T) {
	c := newTestClient(t, exchangeMux())

	trades, err := c.GetRecentTrades(context.Background(), "BNBUSDT", 2)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(trades) != 2 {
		t.Fatalf("Expected 2 trades, got %d", len(trades))
	}
	if trades[0].ID != 1 || trades[1].ID != 2 || !trades[1].Time.After(trades[0].Time) {
		t.Errorf("Expected trades in ascending time order, got %+v", trades)
	}
	if trades[0].Price != 601.95 || trades[0].Quantity != 0.8 {
		t.Errorf("Unexpected price/qty %+v", trades[0])
	}
	if trades[0].BuyerIsTaker {
		t.Errorf("Expected buyer-maker trade to have a seller taker")
	}
	if !trades[1].BuyerIsTaker {
		t.Errorf("Expected taker-buy trade to have BuyerIsTaker set")
	}
}

func TestGetCurrentPrice(t *testing.T) {
	c := newTestClient(t, exchangeMux())

	price, err := c.GetCurrentPrice(context.Background(), "BNBUSDT")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if price != 602.05 {
		t.Errorf("Expected 602.05, got %f", price)
	}
}

func TestRetriesTransientFailures(t *testing.T) {
	var calls int32
	mux := exchangeMux()
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			fmt.Fprint(w, `{"code":-1000,"msg":"upstream"}`)
			return
		}
		mux.ServeHTTP(w, r)
	})
	c := newTestClient(t, handler)

	if _, err := c.GetCurrentPrice(context.Background(), "BNBUSDT"); err != nil {
		t.Fatalf("Expected success on third attempt, got %v", err)
	}
	if calls != 3 {
		t.Errorf("Expected 3 calls, got %d", calls)
	}
}

func TestRetryGivesUp(t *testing.T) {
	var calls int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, `{"code":-1000,"msg":"down"}`)
	}))

	if _, err := c.GetKlines(context.Background(), "BNBUSDT", "5m", 10); err == nil {
		t.Fatal("Expected error after exhausting retries")
	}
	if calls != 3 {
		t.Errorf("Expected 3 attempts, got %d", calls)
	}
}

func TestEmptyOrderBook(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"lastUpdateId":1,"bids":[],"asks":[]}`)
	}))

	_, err := c.GetOrderBook(context.Background(), "BNBUSDT", 20)
	if !errors.Is(err, ErrEmptyOrderBook) {
		t.Errorf("Expected ErrEmptyOrderBook, got %v", err)
	}
}

func TestGetHistoricalKlinesPages(t *testing.T) {
	const step = int64(300000)
	latest := int64(1735689600000)
	var requests int32

	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		last := latest
		if end := r.URL.Query().Get("endTime"); end != "" {
			endTime, _ := strconv.ParseInt(end, 10, 64)
			last = endTime - endTime%step
		}

		var b strings.Builder
		b.WriteString("[")
		for i := limit - 1; i >= 0; i-- {
			open := last - int64(i)*step
			fmt.Fprintf(&b, `[%d,"1","2","0.5","1.5","10",%d,"15",3,"5","7","0"]`, open, open+step-1)
			if i > 0 {
				b.WriteString(",")
			}
		}
		b.WriteString("]")
		fmt.Fprint(w, b.String())
	}))

	candles, err := c.GetHistoricalKlines(context.Background(), "BNBUSDT", "5m", 2500)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if requests != 3 {
		t.Errorf("Expected 3 pages, got %d", requests)
	}
	if len(candles) != 2500 {
		t.Fatalf("Expected 2500 candles, got %d", len(candles))
	}
	for i := 1; i < len(candles); i++ {
		if !candles[i].OpenTime.After(candles[i-1].OpenTime) {
			t.Fatalf("Expected ascending open times at %d", i)
		}
	}
	if got := candles[len(candles)-1].OpenTime.UnixMilli(); got != latest {
		t.Errorf("Expected newest candle at %d, got %d", latest, got)
	}
}
