package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
)

type Config struct {
	Provider string // anthropic | oai_http | gemini | mock

	Model   string
	Timeout time.Duration

	AnthropicAPIKey  string
	AnthropicBaseURL string

	OAIBaseURL string
	OAIAPIKey  string

	GoogleAPIKey string
}

// New picks an engine from cfg.Provider. An empty provider falls back to
// whichever API key is configured, then to the mock engine.
func New(ctx context.Context, cfg Config, httpClient *http.Client) (Engine, error) {
	prov := strings.ToLower(strings.TrimSpace(cfg.Provider))
	if prov == "" {
		switch {
		case cfg.AnthropicAPIKey != "":
			prov = "anthropic"
		case cfg.OAIBaseURL != "":
			prov = "oai_http"
		case cfg.GoogleAPIKey != "":
			prov = "gemini"
		default:
			prov = "mock"
		}
	}
	switch prov {
	case "anthropic":
		return NewAnthropic(AnthropicConfig{
			APIKey:  cfg.AnthropicAPIKey,
			BaseURL: cfg.AnthropicBaseURL,
			Model:   cfg.Model,
			Timeout: cfg.Timeout,
		}, httpClient)
	case "oai_http", "openai":
		return NewOAIHTTP(OAIConfig{
			APIKey:  cfg.OAIAPIKey,
			BaseURL: cfg.OAIBaseURL,
			Model:   cfg.Model,
			Timeout: cfg.Timeout,
		}, httpClient)
	case "gemini":
		return NewGemini(ctx, GeminiConfig{APIKey: cfg.GoogleAPIKey, Model: cfg.Model})
	case "mock":
		return NewMock(), nil
	default:
		return nil, fmt.Errorf("unknown LLM_PROVIDER %q", cfg.Provider)
	}
}
