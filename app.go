package main

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"BNBPredictionBot/config"
	"BNBPredictionBot/internal/cache"
	"BNBPredictionBot/internal/metrics"
	"BNBPredictionBot/internal/operations/backtest"
	"BNBPredictionBot/internal/operations/binance"
	"BNBPredictionBot/internal/operations/chain"
	"BNBPredictionBot/internal/operations/price"
	"BNBPredictionBot/internal/repositories"
	"BNBPredictionBot/internal/services/advisor"
	"BNBPredictionBot/internal/services/prediction"
)

// app holds the collaborators shared by every command. Persistence and
// redis are optional and left nil when not configured.
type app struct {
	cfg     *config.Config
	log     zerolog.Logger
	metrics *metrics.Recorder

	exchange    *binance.BinanceClient
	rpc         *chain.Client
	cache       cache.Store
	candles     *repositories.CandleRepository
	predictions *repositories.PredictionRepository
}

func newApp(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*app, error) {
	a := &app{
		cfg:     cfg,
		log:     log,
		metrics: metrics.New(prometheus.DefaultRegisterer),
		exchange: binance.NewBinanceClient(binance.Config{
			APIKey:    cfg.Exchange.APIKey,
			SecretKey: cfg.Exchange.SecretKey,
		}, log),
		rpc: chain.NewClient(cfg.Chain.RPCURLs, log),
	}

	if cfg.Database.Enabled() {
		db, err := repositories.Open(repositories.DatabaseConfig{
			Host:     cfg.Database.Host,
			Port:     cfg.Database.Port,
			User:     cfg.Database.User,
			Password: cfg.Database.Password,
			DBName:   cfg.Database.DBName,
		})
		if err != nil {
			a.rpc.Close()
			return nil, err
		}
		a.candles = repositories.NewCandleRepository(db)
		a.predictions = repositories.NewPredictionRepository(db)
		log.Info().Str("host", cfg.Database.Host).Msg("database connected")
	} else {
		log.Warn().Msg("DB_HOST not set, predictions will not be stored")
	}

	if cfg.Redis.Addr != "" {
		rc, err := cache.NewRedisCache(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.Prefix)
		if err != nil {
			a.rpc.Close()
			return nil, err
		}
		a.cache = rc
		log.Info().Str("addr", cfg.Redis.Addr).Msg("redis connected")
	} else {
		a.cache = cache.NewMemoryCache()
	}

	return a, nil
}

func (a *app) Close() {
	if err := a.cache.Close(); err != nil {
		a.log.Warn().Err(err).Msg("error closing cache")
	}
	a.rpc.Close()
}

func (a *app) hybridPrice() (*price.HybridPriceService, error) {
	oracle, err := chain.NewOracle(a.rpc, a.cfg.Chain.OracleAddress, a.log)
	if err != nil {
		return nil, fmt.Errorf("oracle: %w", err)
	}
	return price.NewHybridPriceService(oracle, a.exchange, a.metrics, a.log), nil
}

// livePredictions builds the service used by the bot and the predict command
func (a *app) livePredictions(prices *price.HybridPriceService) (*prediction.PredictionService, error) {
	if err := a.cfg.RequireGateway(); err != nil {
		return nil, err
	}

	deps := prediction.Deps{
		Market: a.exchange,
		Prices: prices,
		Advisor: advisor.NewGatewayClient(advisor.GatewayConfig{
			AccountID:   a.cfg.Gateway.AccountID,
			GatewayID:   a.cfg.Gateway.GatewayID,
			APIKey:      a.cfg.Gateway.APIKey,
			Model:       a.cfg.Gateway.Model,
			Temperature: a.cfg.Gateway.Temperature,
			MaxTokens:   a.cfg.Gateway.MaxTokens,
			Timeout:     a.cfg.Gateway.Timeout,
		}, a.log),
		Cache:   a.cache,
		Metrics: a.metrics,
		Weights: a.cfg.Weights,
	}
	if a.predictions != nil {
		deps.Store = a.predictions
	}
	if !a.cfg.Chain.DisableRoundLookup {
		rounds, err := chain.NewRoundMonitor(a.rpc, a.cfg.Chain.PredictionAddress, a.log)
		if err != nil {
			return nil, fmt.Errorf("round monitor: %w", err)
		}
		deps.Rounds = rounds
	}

	return prediction.NewPredictionService(a.predictionConfig(), deps, a.log), nil
}

// offlinePredictions replays candles through the score advisor
func (a *app) offlinePredictions() *prediction.PredictionService {
	return prediction.NewPredictionService(a.predictionConfig(), prediction.Deps{
		Advisor: advisor.NewScoreAdvisor(),
		Weights: a.cfg.Weights,
	}, a.log)
}

func (a *app) predictionConfig() prediction.Config {
	return prediction.Config{
		Symbol:      a.cfg.Prediction.Symbol,
		Interval:    a.cfg.Prediction.Interval,
		CandleLimit: a.cfg.Prediction.CandleLimit,
		DepthLimit:  a.cfg.Prediction.DepthLimit,
		TradeLimit:  a.cfg.Prediction.TradeLimit,
		CacheTTL:    a.cfg.Redis.CacheTTL,
	}
}

func (a *app) history() *backtest.HistorySource {
	if a.candles == nil {
		return backtest.NewHistorySource(a.exchange, nil, a.log)
	}
	return backtest.NewHistorySource(a.exchange, a.candles, a.log)
}

// recorder requires persistence; callers check cfg.Database.Enabled first
func (a *app) recorder() *price.PriceRecorder {
	return price.NewPriceRecorder(a.exchange, a.candles, a.predictions, a.cfg.Prediction.Symbol, a.log)
}
