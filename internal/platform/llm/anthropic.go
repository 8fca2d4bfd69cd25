package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const anthropicVersion = "2023-06-01"

type AnthropicConfig struct {
	APIKey    string
	BaseURL   string
	Model     string
	MaxTokens int
	Timeout   time.Duration
}

// Anthropic talks to the Messages API.
type Anthropic struct {
	cfg        AnthropicConfig
	httpClient *http.Client
}

func NewAnthropic(cfg AnthropicConfig, httpClient *http.Client) (*Anthropic, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("anthropic: api key required")
	}
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.anthropic.com"
	}
	if cfg.Model == "" {
		cfg.Model = "claude-sonnet-4-20250514"
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 1024
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Anthropic{cfg: cfg, httpClient: httpClient}, nil
}

func (a *Anthropic) Name() string { return "anthropic" }

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicRequest struct {
	Model       string             `json:"model"`
	System      string             `json:"system,omitempty"`
	Messages    []anthropicMessage `json:"messages"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature float64            `json:"temperature,omitempty"`
	Stream      bool               `json:"stream,omitempty"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

type anthropicStreamEvent struct {
	Type  string `json:"type"`
	Delta struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"delta"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (a *Anthropic) build(req Request, stream bool) (anthropicRequest, error) {
	msgs := cleanMessages(req.Messages)
	if len(msgs) == 0 {
		return anthropicRequest{}, errNoMessages
	}
	out := anthropicRequest{
		Model:       firstNonEmpty(req.Model, a.cfg.Model),
		System:      strings.TrimSpace(req.System),
		MaxTokens:   a.cfg.MaxTokens,
		Temperature: req.Temperature,
		Stream:      stream,
	}
	if req.MaxTokens > 0 {
		out.MaxTokens = req.MaxTokens
	}
	for _, m := range msgs {
		out.Messages = append(out.Messages, anthropicMessage{Role: m.Role, Content: m.Content})
	}
	return out, nil
}

func (a *Anthropic) do(ctx context.Context, body anthropicRequest, accept string) (*http.Response, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return nil, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.BaseURL+"/v1/messages", &buf)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", accept)
	httpReq.Header.Set("x-api-key", a.cfg.APIKey)
	httpReq.Header.Set("anthropic-version", anthropicVersion)

	resp, err := a.httpClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		resp.Body.Close()
		return nil, newHTTPError(a.Name(), resp, raw)
	}
	return resp, nil
}

func (a *Anthropic) Generate(ctx context.Context, req Request) (string, error) {
	body, err := a.build(req, false)
	if err != nil {
		return "", err
	}
	if a.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.cfg.Timeout)
		defer cancel()
	}
	resp, err := a.do(ctx, body, "application/json")
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var out anthropicResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("anthropic: decode: %w", err)
	}
	var sb strings.Builder
	for _, c := range out.Content {
		if c.Type == "" || c.Type == "text" {
			sb.WriteString(c.Text)
		}
	}
	if strings.TrimSpace(sb.String()) == "" {
		return "", fmt.Errorf("anthropic: empty completion")
	}
	return sb.String(), nil
}

func (a *Anthropic) Stream(ctx context.Context, req Request, onDelta func(string)) (string, error) {
	body, err := a.build(req, true)
	if err != nil {
		return "", err
	}
	resp, err := a.do(ctx, body, "text/event-stream")
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var full strings.Builder
	err = ReadSSE(resp.Body, func(_ string, data string) error {
		var ev anthropicStreamEvent
		if err := json.Unmarshal([]byte(data), &ev); err != nil {
			return nil
		}
		if ev.Type == "error" && ev.Error != nil {
			if ev.Error.Type == "rate_limit_error" || ev.Error.Type == "overloaded_error" {
				return &HTTPError{Provider: a.Name(), StatusCode: http.StatusTooManyRequests, Body: ev.Error.Message}
			}
			return fmt.Errorf("anthropic: stream error: %s", ev.Error.Message)
		}
		if ev.Type == "message_stop" {
			return ErrStreamEnd
		}
		if ev.Type != "content_block_delta" || ev.Delta.Text == "" {
			return nil
		}
		full.WriteString(ev.Delta.Text)
		if onDelta != nil {
			onDelta(ev.Delta.Text)
		}
		return nil
	})
	if err != nil {
		return full.String(), err
	}
	return full.String(), nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
