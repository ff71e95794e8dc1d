package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"BNBPredictionBot/internal/operations/chain"
	"BNBPredictionBot/internal/services/analysis"
)

var validate = validator.New()

// Load reads the given env files (".env" when none), then the process
// environment, applies defaults and validates. A missing env file is not an
// error.
func Load(files ...string) (*Config, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("error loading env file: %w", err)
	}

	cfg := &Config{}
	env := &envReader{}

	cfg.Telegram.Token = env.String("TELEGRAM_BOT_TOKEN")

	cfg.Gateway.AccountID = env.String("CLOUDFLARE_ACCOUNT_ID")
	cfg.Gateway.GatewayID = env.String("CLOUDFLARE_GATEWAY_ID")
	cfg.Gateway.APIKey = env.String("GOOGLE_AI_STUDIO_API_KEY")
	cfg.Gateway.Model = env.String("AI_MODEL")
	cfg.Gateway.Temperature = env.Float("AI_TEMPERATURE")
	cfg.Gateway.MaxTokens = env.Int("AI_MAX_TOKENS")
	cfg.Gateway.Timeout = env.Duration("AI_TIMEOUT")

	cfg.Exchange.APIKey = env.String("BINANCE_API_KEY")
	cfg.Exchange.SecretKey = env.String("BINANCE_SECRET_KEY")

	cfg.Chain.RPCURLs = env.List("BSC_RPC_URLS")
	cfg.Chain.OracleAddress = env.String("CHAINLINK_ORACLE_ADDRESS")
	cfg.Chain.PredictionAddress = env.String("PREDICTION_CONTRACT_ADDRESS")
	cfg.Chain.DisableRoundLookup = env.Bool("DISABLE_ROUND_LOOKUP")

	cfg.Database.Host = env.String("DB_HOST")
	cfg.Database.Port = env.Int("DB_PORT")
	cfg.Database.User = env.String("DB_USER")
	cfg.Database.Password = env.String("DB_PASSWORD")
	cfg.Database.DBName = env.String("DB_NAME")

	cfg.Redis.Addr = env.String("REDIS_ADDR")
	cfg.Redis.Password = env.String("REDIS_PASSWORD")
	cfg.Redis.DB = env.Int("REDIS_DB")
	cfg.Redis.Prefix = env.String("REDIS_PREFIX")
	cfg.Redis.CacheTTL = env.Duration("CACHE_TTL")

	cfg.HTTP.Addr = env.String("HTTP_ADDR")

	cfg.Log.Level = strings.ToLower(env.String("LOG_LEVEL"))
	cfg.Log.Format = strings.ToLower(env.String("LOG_FORMAT"))
	cfg.Log.Output = env.String("LOG_OUTPUT")

	cfg.Prediction.Symbol = strings.ToUpper(env.String("SYMBOL"))
	cfg.Prediction.Interval = env.String("INTERVAL")
	cfg.Prediction.CandleLimit = env.Int("CANDLE_LIMIT")
	cfg.Prediction.DepthLimit = env.Int("DEPTH_LIMIT")
	cfg.Prediction.TradeLimit = env.Int("TRADE_LIMIT")

	cfg.WeightsFile = env.String("WEIGHTS_FILE")

	if err := env.Err(); err != nil {
		return nil, err
	}

	if err := defaults.Set(cfg); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}
	if len(cfg.Chain.RPCURLs) == 0 {
		cfg.Chain.RPCURLs = append([]string(nil), chain.DefaultRPCURLs...)
	}

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	if cfg.WeightsFile != "" {
		table, err := LoadWeights(cfg.WeightsFile)
		if err != nil {
			return nil, err
		}
		cfg.Weights = table
	}

	return cfg, nil
}

// RequireGateway reports missing credentials for live predictions
func (c *Config) RequireGateway() error {
	if err := validate.Struct(c.Gateway); err != nil {
		return fmt.Errorf("gateway config: %w", err)
	}
	return nil
}

func (c *Config) RequireTelegram() error {
	if err := validate.Struct(c.Telegram); err != nil {
		return fmt.Errorf("telegram config: %w", err)
	}
	return nil
}

type weightsEntry struct {
	OrderBook float64 `yaml:"order_book" validate:"gte=0,lte=1"`
	TradeFlow float64 `yaml:"trade_flow" validate:"gte=0,lte=1"`
	Momentum  float64 `yaml:"momentum" validate:"gte=0,lte=1"`
	Trend     float64 `yaml:"trend" validate:"gte=0,lte=1"`
	Volume    float64 `yaml:"volume" validate:"gte=0,lte=1"`
}

var knownConditions = map[analysis.MarketCondition]bool{
	analysis.HighVolatility:  true,
	analysis.StrongTrending:  true,
	analysis.Ranging:         true,
	analysis.LowVolume:       true,
	analysis.WhaleActivity:   true,
	analysis.MomentumExtreme: true,
	analysis.Normal:          true,
}

// LoadWeights reads a YAML map of regime name to weight vector. Each vector
// is normalized to sum to 1; regimes left out keep their built-in weights.
func LoadWeights(path string) (analysis.WeightTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read weights file: %w", err)
	}

	var raw map[string]weightsEntry
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse weights file: %w", err)
	}

	table := analysis.WeightTable{}
	for name, entry := range raw {
		condition := analysis.MarketCondition(strings.ToUpper(name))
		if !knownConditions[condition] {
			return nil, fmt.Errorf("weights file: unknown market condition %q", name)
		}
		if err := validate.Struct(entry); err != nil {
			return nil, fmt.Errorf("weights file: %s: %w", name, err)
		}
		w := analysis.Weights{
			OrderBook: entry.OrderBook,
			TradeFlow: entry.TradeFlow,
			Momentum:  entry.Momentum,
			Trend:     entry.Trend,
			Volume:    entry.Volume,
		}
		if w.Sum() == 0 {
			return nil, fmt.Errorf("weights file: %s: all weights are zero", name)
		}
		table[condition] = w.Normalize()
	}
	return table, nil
}

// envReader collects the first parse failure so Load reports it once
type envReader struct {
	err error
}

func (e *envReader) String(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func (e *envReader) fail(key, value string, err error) {
	if e.err == nil {
		e.err = fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
}

func (e *envReader) Int(key string) int {
	v := e.String(key)
	if v == "" {
		return 0
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		e.fail(key, v, err)
	}
	return i
}

func (e *envReader) Float(key string) float64 {
	v := e.String(key)
	if v == "" {
		return 0
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		e.fail(key, v, err)
	}
	return f
}

func (e *envReader) Bool(key string) bool {
	v := e.String(key)
	if v == "" {
		return false
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		e.fail(key, v, err)
	}
	return b
}

func (e *envReader) Duration(key string) time.Duration {
	v := e.String(key)
	if v == "" {
		return 0
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		e.fail(key, v, err)
	}
	return d
}

func (e *envReader) List(key string) []string {
	var out []string
	for _, part := range strings.Split(e.String(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (e *envReader) Err() error {
	return e.err
}
