package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"BNBPredictionBot/internal/metrics"
	"BNBPredictionBot/internal/models"
	"BNBPredictionBot/internal/operations/price"
	"BNBPredictionBot/internal/services/analysis"
	"BNBPredictionBot/internal/services/prediction"
)

type fakeSender struct {
	mu      sync.Mutex
	sent    []tgbotapi.MessageConfig
	deleted []tgbotapi.DeleteMessageConfig
	updates chan tgbotapi.Update
	stopped bool
	notify  chan struct{}

	// rejectMarkdown fails Markdown sends the way Telegram does on a bad entity
	rejectMarkdown bool
}

func newFakeSender() *fakeSender {
	return &fakeSender{updates: make(chan tgbotapi.Update, 4), notify: make(chan struct{}, 16)}
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	msg, ok := c.(tgbotapi.MessageConfig)
	if !ok {
		return tgbotapi.Message{}, errors.New("unexpected chattable")
	}
	if f.rejectMarkdown && msg.ParseMode == tgbotapi.ModeMarkdown {
		return tgbotapi.Message{}, errors.New("Bad Request: can't parse entities")
	}
	f.sent = append(f.sent, msg)
	f.notify <- struct{}{}
	return tgbotapi.Message{MessageID: len(f.sent)}, nil
}

func (f *fakeSender) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if del, ok := c.(tgbotapi.DeleteMessageConfig); ok {
		f.deleted = append(f.deleted, del)
	}
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeSender) GetUpdatesChan(tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return f.updates
}

func (f *fakeSender) StopReceivingUpdates() {
	f.mu.Lock()
	f.stopped = true
	f.mu.Unlock()
}

func (f *fakeSender) texts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.sent))
	for i, m := range f.sent {
		out[i] = m.Text
	}
	return out
}

type fakePredictor struct {
	result  *prediction.Result
	summary string
	err     error
}

func (f *fakePredictor) GeneratePrediction(context.Context) (*prediction.Result, error) {
	return f.result, f.err
}

func (f *fakePredictor) MarketSummary(context.Context) (string, error) {
	return f.summary, f.err
}

func (f *fakePredictor) Latest(context.Context) (*prediction.Result, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.result == nil {
		return nil, prediction.ErrNoPrediction
	}
	return f.result, nil
}

type fakeHistory struct {
	records []models.PredictionRecord
	err     error
	pnl     float64
	pnlErr  error
	window  time.Duration
}

func (f *fakeHistory) FindResolved(string, int) ([]models.PredictionRecord, error) {
	return f.records, f.err
}

func (f *fakeHistory) GetTotalPnL(_ string, start, end time.Time) (float64, error) {
	f.window = end.Sub(start)
	return f.pnl, f.pnlErr
}

type fakeOracleHealth struct{ healthy bool }

func (f fakeOracleHealth) IsOracleHealthy(context.Context) bool { return f.healthy }

func sampleResult() *prediction.Result {
	return &prediction.Result{
		Symbol:          "BNBUSDT",
		Prediction:      analysis.Up,
		Confidence:      78.4,
		CurrentPrice:    600,
		PredictedPrice:  600.9,
		PriceRange:      analysis.PriceRange{Min: 600.4, Max: 601.4},
		ExpectedChange:  0.15,
		Reasoning:       "bids stacking",
		Indicators:      prediction.IndicatorSummary{RSI: 74, Trend: prediction.TrendBullish, Volume: prediction.VolumeHigh},
		PriceSource:     price.SourceChainlink,
		PriceConfidence: 0.98,
		Round:           &prediction.RoundInfo{CurrentEpoch: big.NewInt(4242), TimeUntilLock: 75 * time.Second, BettingOpen: true},
		Timestamp:       time.Date(2025, 10, 1, 12, 0, 0, 0, time.UTC),
	}
}

func command(chatID int64, text string) tgbotapi.Update {
	word := strings.Fields(text)[0]
	return tgbotapi.Update{Message: &tgbotapi.Message{
		Text:     text,
		Chat:     &tgbotapi.Chat{ID: chatID},
		From:     &tgbotapi.User{ID: 7, UserName: "alice"},
		Entities: []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(word)}},
	}}
}

func TestHandlePredict(t *testing.T) {
	bot := newFakeSender()
	h := NewTelegramHandler(bot, &fakePredictor{result: sampleResult()}, nil, "BNBUSDT", zerolog.Nop())

	h.HandleUpdate(context.Background(), command(42, "/predict"))

	texts := bot.texts()
	if len(texts) != 2 {
		t.Fatalf("Expected loading and result messages, got %d", len(texts))
	}
	if texts[0] != predictLoadingMessage {
		t.Errorf("Expected loading message first, got %q", texts[0])
	}
	if len(bot.deleted) != 1 || bot.deleted[0].MessageID != 1 || bot.deleted[0].ChatID != 42 {
		t.Errorf("Expected loading message to be deleted, got %+v", bot.deleted)
	}
	for _, want := range []string{"📈 UP", "78.4%", "$600.00", "Chainlink Oracle (98%)", "#4242", "1:15", "Betting:* open", "(Overbought)", "bids stacking"} {
		if !strings.Contains(texts[1], want) {
			t.Errorf("Expected prediction message to contain %q", want)
		}
	}
	if bot.sent[1].ParseMode != tgbotapi.ModeMarkdown {
		t.Errorf("Expected Markdown parse mode, got %q", bot.sent[1].ParseMode)
	}
}

func TestPredictionEscapesModelText(t *testing.T) {
	result := sampleResult()
	result.Reasoning = "RSI_14 *very* high, see [chart]"
	result.MarketCondition.Primary = analysis.HighVolatility

	text := FormatPrediction(result)
	if !strings.Contains(text, `RSI\_14 \*very\* high, see \[chart]`) {
		t.Errorf("Expected reasoning to be escaped, got %q", text)
	}
	if !strings.Contains(text, `HIGH\_VOLATILITY`) {
		t.Errorf("Expected regime underscore to be escaped")
	}
}

func TestReplyFallsBackToPlainText(t *testing.T) {
	bot := newFakeSender()
	bot.rejectMarkdown = true
	h := NewTelegramHandler(bot, &fakePredictor{result: sampleResult()}, nil, "BNBUSDT", zerolog.Nop())

	h.HandleUpdate(context.Background(), command(42, "/predict"))

	texts := bot.texts()
	if len(texts) != 2 {
		t.Fatalf("Expected loading and result messages, got %d", len(texts))
	}
	if !strings.Contains(texts[1], "bids stacking") || bot.sent[1].ParseMode != "" {
		t.Errorf("Expected prediction resent without parse mode, got %q (%q)", texts[1], bot.sent[1].ParseMode)
	}
}

func TestHandlePredictFailure(t *testing.T) {
	bot := newFakeSender()
	h := NewTelegramHandler(bot, &fakePredictor{err: errors.New("gateway down")}, nil, "BNBUSDT", zerolog.Nop())

	h.HandleUpdate(context.Background(), command(42, "/predict"))

	texts := bot.texts()
	if len(texts) != 2 || texts[1] != predictErrorMessage {
		t.Errorf("Expected error reply, got %q", texts)
	}
}

func TestHandleMarket(t *testing.T) {
	bot := newFakeSender()
	h := NewTelegramHandler(bot, &fakePredictor{summary: "📈 *BNB Market Summary*"}, nil, "BNBUSDT", zerolog.Nop())

	h.HandleUpdate(context.Background(), command(42, "/market"))

	texts := bot.texts()
	if len(texts) != 2 || texts[1] != "📈 *BNB Market Summary*" {
		t.Errorf("Expected market summary, got %q", texts)
	}
}

func TestHandleStats(t *testing.T) {
	records := []models.PredictionRecord{
		{Direction: models.DirectionUp, Confidence: 80, ActualChange: 0.2, Correct: true, ProfitLoss: 96, MarketCondition: models.ConditionTrending},
		{Direction: models.DirectionDown, Confidence: 60, ActualChange: 0.1, ProfitLoss: -100, MarketCondition: models.ConditionRanging},
	}
	history := &fakeHistory{records: records, pnl: -4}

	tests := []struct {
		name     string
		history  ResolvedSource
		expected string
	}{
		{"disabled", nil, statsDisabledMessage},
		{"empty", &fakeHistory{}, statsEmptyMessage},
		{"failure", &fakeHistory{err: errors.New("db down")}, statsErrorMessage},
		{"results", history, "Accuracy: 50.00%"},
		{"day pnl", history, "Last 24h P&L: -4.00"},
		{"day pnl failure", &fakeHistory{records: records, pnlErr: errors.New("db down")}, "Accuracy: 50.00%"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bot := newFakeSender()
			h := NewTelegramHandler(bot, &fakePredictor{}, tt.history, "BNBUSDT", zerolog.Nop())
			h.HandleUpdate(context.Background(), command(1, "/stats"))

			texts := bot.texts()
			if len(texts) != 1 || !strings.Contains(texts[0], tt.expected) {
				t.Errorf("Expected reply containing %q, got %q", tt.expected, texts)
			}
		})
	}
}

func TestHandleStatsDayWindow(t *testing.T) {
	history := &fakeHistory{records: []models.PredictionRecord{{Direction: models.DirectionUp, Correct: true}}}
	bot := newFakeSender()
	h := NewTelegramHandler(bot, &fakePredictor{}, history, "BNBUSDT", zerolog.Nop())

	h.HandleUpdate(context.Background(), command(1, "/stats"))

	if history.window != 24*time.Hour {
		t.Errorf("Expected a 24h P&L window, got %s", history.window)
	}
	if texts := bot.texts(); len(texts) != 1 || strings.Contains(texts[0], "Last 24h") == false {
		t.Errorf("Expected the 24h line in %q", texts)
	}
}

func TestHandleOtherMessages(t *testing.T) {
	tests := []struct {
		name     string
		update   tgbotapi.Update
		expected string
	}{
		{"start", command(1, "/start"), startMessage},
		{"help", command(1, "/help"), helpMessage},
		{"about", command(1, "/about"), aboutMessage},
		{"unknown", command(1, "/moon"), unknownCommandMessage},
		{"plain text", tgbotapi.Update{Message: &tgbotapi.Message{Text: "hello", Chat: &tgbotapi.Chat{ID: 1}}}, chatMessage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bot := newFakeSender()
			h := NewTelegramHandler(bot, &fakePredictor{}, nil, "BNBUSDT", zerolog.Nop())
			h.HandleUpdate(context.Background(), tt.update)

			texts := bot.texts()
			if len(texts) != 1 || texts[0] != tt.expected {
				t.Errorf("Expected %q, got %q", tt.expected, texts)
			}
		})
	}
}

func TestTelegramStartStopsOnCancel(t *testing.T) {
	bot := newFakeSender()
	h := NewTelegramHandler(bot, &fakePredictor{}, nil, "BNBUSDT", zerolog.Nop())
	bot.updates <- command(1, "/help")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.Start(ctx) }()

	select {
	case <-bot.notify:
	case <-time.After(2 * time.Second):
		t.Fatal("Expected the queued update to be handled")
	}
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Expected clean stop, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Expected Start to return after cancel")
	}
	if !bot.stopped {
		t.Errorf("Expected updates to be stopped")
	}
}

func TestHTTPServer(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics.New(reg).RecordPrediction("UP", "NORMAL", 70)

	tests := []struct {
		name      string
		path      string
		predictor *fakePredictor
		oracle    OracleHealth
		status    int
		contains  string
	}{
		{"health", "/healthz", &fakePredictor{}, nil, http.StatusOK, `"message":"ok"`},
		{"health oracle", "/healthz", &fakePredictor{}, fakeOracleHealth{healthy: true}, http.StatusOK, `"oracle":"healthy"`},
		{"health stale oracle", "/healthz", &fakePredictor{}, fakeOracleHealth{}, http.StatusOK, `"message":"degraded","data":{"oracle":"stale"}`},
		{"metrics", "/metrics", &fakePredictor{}, nil, http.StatusOK, "bnbbot_predictions_total"},
		{"no prediction", "/api/prediction", &fakePredictor{}, nil, http.StatusNotFound, "no recent prediction"},
		{"cache failure", "/api/prediction", &fakePredictor{err: errors.New("redis down")}, nil, http.StatusInternalServerError, "Internal Server Error"},
		{"prediction", "/api/prediction", &fakePredictor{result: sampleResult()}, nil, http.StatusOK, `"prediction":"UP"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := NewHTTPServer(":0", tt.predictor, tt.oracle, reg, zerolog.Nop())
			rec := httptest.NewRecorder()
			server.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))

			if rec.Code != tt.status {
				t.Errorf("Expected status %d, got %d", tt.status, rec.Code)
			}
			if !strings.Contains(rec.Body.String(), tt.contains) {
				t.Errorf("Expected body to contain %q, got %s", tt.contains, rec.Body.String())
			}
		})
	}
}

func TestHTTPServerPredictionPayload(t *testing.T) {
	server := NewHTTPServer(":0", &fakePredictor{result: sampleResult()}, nil, prometheus.NewRegistry(), zerolog.Nop())
	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/prediction", nil))

	var body struct {
		Data prediction.Result `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Data.Confidence != 78.4 || body.Data.Round.CurrentEpoch.Int64() != 4242 {
		t.Errorf("Unexpected payload %+v", body.Data)
	}
}

type fakeHistoryClient struct {
	requested map[string]int
}

func (f *fakeHistoryClient) GetHistoricalKlines(_ context.Context, _, interval string, total int) ([]models.Candle, error) {
	f.requested[interval] = total
	return make([]models.Candle, total), nil
}

type fakeSaver struct {
	saved int
}

func (f *fakeSaver) SaveBatch(candles []models.Candle) error {
	f.saved += len(candles)
	return nil
}

type fakeRecorder struct {
	started bool
}

func (f *fakeRecorder) StartRecording(context.Context) {
	f.started = true
}

func TestPriceHandlerStart(t *testing.T) {
	client := &fakeHistoryClient{requested: map[string]int{}}
	saver := &fakeSaver{}
	recorder := &fakeRecorder{}

	h := NewPriceHandler(client, saver, recorder, "BNBUSDT", zerolog.Nop())
	if err := h.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	expected := map[string]int{"5m": 2016, "15m": 672, "1h": 168}
	for interval, total := range expected {
		if client.requested[interval] != total {
			t.Errorf("Expected %d %s candles, got %d", total, interval, client.requested[interval])
		}
	}
	if saver.saved != 2016+672+168 {
		t.Errorf("Expected all candles saved, got %d", saver.saved)
	}
	if !recorder.started {
		t.Errorf("Expected recorder to start")
	}
}
