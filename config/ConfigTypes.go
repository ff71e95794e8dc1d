package config

import (
	"time"

	"BNBPredictionBot/internal/services/analysis"
)

type Config struct {
	Telegram   TelegramConfig `validate:"-"`
	Gateway    GatewayConfig  `validate:"-"`
	Exchange   ExchangeConfig
	Chain      ChainConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	HTTP       HTTPConfig
	Log        LogConfig
	Prediction PredictionConfig

	// WeightsFile optionally overrides the per-regime weight table
	WeightsFile string
	Weights     analysis.WeightTable `validate:"-"`
}

type TelegramConfig struct {
	Token string `validate:"required"`
}

type GatewayConfig struct {
	AccountID   string        `validate:"required"`
	GatewayID   string        `validate:"required"`
	APIKey      string        `validate:"required"`
	Model       string        `default:"google-ai-studio/gemini-2.5-flash-preview-09-2025" validate:"required"`
	Temperature float64       `default:"0.3" validate:"gte=0,lte=2"`
	MaxTokens   int           `default:"2000" validate:"gt=0"`
	Timeout     time.Duration `default:"30s"`
}

type ExchangeConfig struct {
	APIKey    string
	SecretKey string
}

type ChainConfig struct {
	RPCURLs            []string `validate:"min=1,dive,url"`
	OracleAddress      string   `default:"0x0567F2323251f0Aab15c8dFb1967E4e8A7D42aeE" validate:"eth_addr"`
	PredictionAddress  string   `default:"0x18b2a687610328590bc8f2e5fedde3b582a49cda" validate:"eth_addr"`
	DisableRoundLookup bool
}

// DatabaseConfig is optional; an empty Host disables persistence
type DatabaseConfig struct {
	Host     string
	Port     int `default:"5432" validate:"gt=0,lte=65535"`
	User     string
	Password string
	DBName   string `default:"bnb_prediction"`
}

func (d DatabaseConfig) Enabled() bool {
	return d.Host != ""
}

// RedisConfig is optional; an empty Addr falls back to an in-process cache
type RedisConfig struct {
	Addr     string
	Password string
	DB       int           `validate:"gte=0"`
	Prefix   string        `default:"bnbbot"`
	CacheTTL time.Duration `default:"30s"`
}

type HTTPConfig struct {
	Addr string `default:":8080"`
}

type LogConfig struct {
	Level  string `default:"info" validate:"oneof=trace debug info warn error"`
	Format string `default:"console" validate:"oneof=console json"`
	Output string `default:"stdout"`
}

type PredictionConfig struct {
	Symbol      string `default:"BNBUSDT" validate:"required,uppercase"`
	Interval    string `default:"5m" validate:"oneof=1m 3m 5m 15m 30m 1h"`
	CandleLimit int    `default:"100" validate:"gte=30,lte=1000"`
	DepthLimit  int    `default:"100" validate:"oneof=5 10 20 50 100 500 1000"`
	TradeLimit  int    `default:"100" validate:"gt=0,lte=1000"`
}
