package handlers

import (
	"context"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"BNBPredictionBot/internal/models"
	"BNBPredictionBot/internal/operations/backtest"
	"BNBPredictionBot/internal/services/prediction"
)

const statsLimit = 500

// Sender is the part of *tgbotapi.BotAPI the handler uses
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

type Predictor interface {
	GeneratePrediction(ctx context.Context) (*prediction.Result, error)
	MarketSummary(ctx context.Context) (string, error)
}

type ResolvedSource interface {
	FindResolved(symbol string, limit int) ([]models.PredictionRecord, error)
	GetTotalPnL(symbol string, start, end time.Time) (float64, error)
}

type TelegramHandler struct {
	bot       Sender
	predictor Predictor
	history   ResolvedSource
	symbol    string
	log       zerolog.Logger
	wg        sync.WaitGroup
}

// NewTelegramHandler wires the bot commands. history may be nil when
// predictions are not persisted.
func NewTelegramHandler(bot Sender, predictor Predictor, history ResolvedSource, symbol string, log zerolog.Logger) *TelegramHandler {
	return &TelegramHandler{
		bot:       bot,
		predictor: predictor,
		history:   history,
		symbol:    symbol,
		log:       log.With().Str("component", "telegram").Logger(),
	}
}

// Start long-polls for updates until ctx is done. Each update is handled
// in its own goroutine; Start waits for them before returning.
func (h *TelegramHandler) Start(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := h.bot.GetUpdatesChan(u)

	h.log.Info().Msg("telegram bot started")
	defer h.wg.Wait()

	for {
		select {
		case <-ctx.Done():
			h.bot.StopReceivingUpdates()
			h.log.Info().Msg("telegram bot stopped")
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			h.wg.Add(1)
			go func() {
				defer h.wg.Done()
				h.HandleUpdate(ctx, update)
			}()
		}
	}
}

func (h *TelegramHandler) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	msg := update.Message
	if msg == nil || msg.Chat == nil {
		return
	}

	log := h.log.With().Int64("chat", msg.Chat.ID).Logger()
	if msg.From != nil {
		log = log.With().Int64("user", msg.From.ID).Str("username", msg.From.UserName).Logger()
	}

	if !msg.IsCommand() {
		if strings.HasPrefix(msg.Text, "/") {
			h.reply(log, msg.Chat.ID, unknownCommandMessage, false)
			return
		}
		h.reply(log, msg.Chat.ID, chatMessage, false)
		return
	}

	log.Info().Str("command", msg.Command()).Msg("command received")

	switch msg.Command() {
	case "start":
		h.reply(log, msg.Chat.ID, startMessage, true)
	case "help":
		h.reply(log, msg.Chat.ID, helpMessage, true)
	case "about":
		h.reply(log, msg.Chat.ID, aboutMessage, true)
	case "predict":
		h.handlePredict(ctx, log, msg.Chat.ID)
	case "market":
		h.handleMarket(ctx, log, msg.Chat.ID)
	case "stats":
		h.handleStats(log, msg.Chat.ID)
	default:
		h.reply(log, msg.Chat.ID, unknownCommandMessage, false)
	}
}

func (h *TelegramHandler) handlePredict(ctx context.Context, log zerolog.Logger, chatID int64) {
	loading := h.reply(log, chatID, predictLoadingMessage, false)

	result, err := h.predictor.GeneratePrediction(ctx)
	h.remove(log, chatID, loading)
	if err != nil {
		log.Error().Err(err).Msg("error in predict command")
		h.reply(log, chatID, predictErrorMessage, false)
		return
	}

	h.reply(log, chatID, FormatPrediction(result), true)
	log.Info().
		Str("prediction", string(result.Prediction)).
		Float64("confidence", result.Confidence).
		Msg("prediction sent")
}

func (h *TelegramHandler) handleMarket(ctx context.Context, log zerolog.Logger, chatID int64) {
	loading := h.reply(log, chatID, marketLoadingMessage, false)

	summary, err := h.predictor.MarketSummary(ctx)
	h.remove(log, chatID, loading)
	if err != nil {
		log.Error().Err(err).Msg("error in market command")
		h.reply(log, chatID, marketErrorMessage, false)
		return
	}
	h.reply(log, chatID, summary, true)
}

func (h *TelegramHandler) handleStats(log zerolog.Logger, chatID int64) {
	if h.history == nil {
		h.reply(log, chatID, statsDisabledMessage, false)
		return
	}

	records, err := h.history.FindResolved(h.symbol, statsLimit)
	if err != nil {
		log.Error().Err(err).Msg("error in stats command")
		h.reply(log, chatID, statsErrorMessage, false)
		return
	}
	if len(records) == 0 {
		h.reply(log, chatID, statsEmptyMessage, false)
		return
	}

	results := backtest.CalculateResults(records, backtest.BetSize)

	var dayPnL *float64
	now := time.Now()
	if pnl, err := h.history.GetTotalPnL(h.symbol, now.Add(-24*time.Hour), now); err != nil {
		log.Warn().Err(err).Msg("could not sum 24h P&L")
	} else {
		dayPnL = &pnl
	}
	h.reply(log, chatID, FormatStats(results, dayPnL), true)
}

// reply returns the sent message ID, or 0 when sending failed
func (h *TelegramHandler) reply(log zerolog.Logger, chatID int64, text string, markdown bool) int {
	out := tgbotapi.NewMessage(chatID, text)
	if markdown {
		out.ParseMode = tgbotapi.ModeMarkdown
	}
	sent, err := h.bot.Send(out)
	if err != nil && markdown {
		log.Warn().Err(err).Msg("markdown rejected, resending as plain text")
		out.ParseMode = ""
		sent, err = h.bot.Send(out)
	}
	if err != nil {
		log.Error().Err(err).Msg("failed to send message")
		return 0
	}
	return sent.MessageID
}

func (h *TelegramHandler) remove(log zerolog.Logger, chatID int64, messageID int) {
	if messageID == 0 {
		return
	}
	if _, err := h.bot.Request(tgbotapi.NewDeleteMessage(chatID, messageID)); err != nil {
		log.Warn().Err(err).Msg("failed to delete loading message")
	}
}
