package advisor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"BNBPredictionBot/internal/services/analysis"
)

const (
	DefaultModel       = "google-ai-studio/gemini-2.5-flash-preview-09-2025"
	DefaultTemperature = 0.3
	DefaultMaxTokens   = 2000

	gatewayURL = "https://gateway.ai.cloudflare.com/v1/%s/%s/compat/chat/completions"
)

type GatewayConfig struct {
	AccountID   string
	GatewayID   string
	APIKey      string
	Model       string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration

	// Endpoint overrides the URL built from the account and gateway IDs
	Endpoint string
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

// GatewayClient asks a hosted model for the directional call through an
// OpenAI-compatible chat completions endpoint.
type GatewayClient struct {
	cfg      GatewayConfig
	endpoint string
	client   *http.Client
	log      zerolog.Logger
}

func NewGatewayClient(cfg GatewayConfig, log zerolog.Logger) *GatewayClient {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = DefaultTemperature
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = fmt.Sprintf(gatewayURL, cfg.AccountID, cfg.GatewayID)
	}

	return &GatewayClient{
		cfg:      cfg,
		endpoint: endpoint,
		client:   &http.Client{Timeout: cfg.Timeout},
		log:      log.With().Str("component", "gateway").Logger(),
	}
}

func (g *GatewayClient) Advise(ctx context.Context, req AdviceRequest) (*Advice, error) {
	if req.Market == nil || req.Snapshot == nil {
		return nil, fmt.Errorf("%w: market data and snapshot are required", ErrInvalidResponse)
	}

	body, err := json.Marshal(chatRequest{
		Model: g.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: BuildPrompt(req)},
		},
		Temperature: g.cfg.Temperature,
		MaxTokens:   g.cfg.MaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+g.cfg.APIKey)

	start := time.Now()
	resp, err := g.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("gateway request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("gateway: unexpected status %d: %s", resp.StatusCode, msg)
	}

	var chat chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chat); err != nil {
		return nil, fmt.Errorf("%w: decode body: %v", ErrInvalidResponse, err)
	}
	if len(chat.Choices) == 0 {
		return nil, fmt.Errorf("%w: no choices", ErrInvalidResponse)
	}

	choice := chat.Choices[0]
	if choice.Message.Content == "" {
		return nil, fmt.Errorf("%w: empty content", ErrInvalidResponse)
	}
	if choice.FinishReason == "length" {
		g.log.Warn().Int("max_tokens", g.cfg.MaxTokens).Msg("gateway response hit the token limit")
	}

	g.log.Debug().
		Dur("took", time.Since(start)).
		Str("finish_reason", choice.FinishReason).
		Msg("gateway response received")

	advice, err := ParseAdvice(choice.Message.Content)
	if err != nil {
		g.log.Error().Err(err).Str("content", choice.Message.Content).Msg("unparseable gateway response")
		return nil, err
	}
	return advice, nil
}

// ParseAdvice decodes the model's JSON reply. Code fences are stripped.
// A reply that does not end in a closing brace is treated as truncated.
func ParseAdvice(content string) (*Advice, error) {
	s := strings.TrimSpace(content)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.ReplaceAll(s, "```", "")
		s = strings.TrimSpace(s)
	}
	if s == "" {
		return nil, fmt.Errorf("%w: empty after removing code fences", ErrInvalidResponse)
	}
	if !strings.HasSuffix(s, "}") {
		return nil, ErrTruncatedResponse
	}

	var raw struct {
		Prediction      string   `json:"prediction"`
		Confidence      float64  `json:"confidence"`
		Reasoning       string   `json:"reasoning"`
		KeyFactors      []string `json:"keyFactors"`
		RiskLevel       string   `json:"riskLevel"`
		SuggestedAction string   `json:"suggestedAction"`
	}
	if err := json.Unmarshal([]byte(s), &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}

	dir := analysis.Direction(raw.Prediction)
	if !dir.Valid() {
		return nil, fmt.Errorf("%w: prediction %q", ErrInvalidResponse, raw.Prediction)
	}

	advice := &Advice{
		Prediction:      dir,
		Confidence:      raw.Confidence,
		Reasoning:       raw.Reasoning,
		KeyFactors:      raw.KeyFactors,
		RiskLevel:       raw.RiskLevel,
		SuggestedAction: raw.SuggestedAction,
	}
	if advice.Confidence == 0 {
		advice.Confidence = 50
	}
	advice.Confidence = clampConfidence(advice.Confidence)
	if advice.Reasoning == "" {
		advice.Reasoning = "No reasoning provided"
	}
	if advice.KeyFactors == nil {
		advice.KeyFactors = []string{}
	}
	if advice.RiskLevel == "" {
		advice.RiskLevel = RiskMedium
	}
	if advice.SuggestedAction == "" {
		advice.SuggestedAction = "Proceed with caution"
	}
	return advice, nil
}

func clampConfidence(c float64) float64 {
	if c < 0 {
		return 0
	}
	if c > 100 {
		return 100
	}
	return c
}
