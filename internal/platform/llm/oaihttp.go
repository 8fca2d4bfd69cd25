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

type OAIConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// OAIHTTP speaks the OpenAI-compatible chat completions protocol.
type OAIHTTP struct {
	cfg        OAIConfig
	httpClient *http.Client
}

func NewOAIHTTP(cfg OAIConfig, httpClient *http.Client) (*OAIHTTP, error) {
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("oai_http: base_url required")
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &OAIHTTP{cfg: cfg, httpClient: httpClient}, nil
}

func (o *OAIHTTP) Name() string { return "oai_http" }

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionRequest struct {
	Model          string         `json:"model"`
	Messages       []chatMessage  `json:"messages"`
	Temperature    float64        `json:"temperature,omitempty"`
	MaxTokens      int            `json:"max_tokens,omitempty"`
	Stream         bool           `json:"stream,omitempty"`
	ResponseFormat map[string]any `json:"response_format,omitempty"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type chatCompletionStreamChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
	Error any `json:"error,omitempty"`
}

func (o *OAIHTTP) build(req Request, stream bool) (chatCompletionRequest, error) {
	msgs := cleanMessages(req.Messages)
	if len(msgs) == 0 {
		return chatCompletionRequest{}, errNoMessages
	}
	out := chatCompletionRequest{
		Model:       firstNonEmpty(req.Model, o.cfg.Model),
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
		Stream:      stream,
	}
	if sys := strings.TrimSpace(req.System); sys != "" {
		out.Messages = append(out.Messages, chatMessage{Role: "system", Content: sys})
	}
	for _, m := range msgs {
		out.Messages = append(out.Messages, chatMessage{Role: m.Role, Content: m.Content})
	}
	if req.JSON {
		out.ResponseFormat = map[string]any{"type": "json_object"}
	}
	return out, nil
}

func (o *OAIHTTP) do(ctx context.Context, body chatCompletionRequest, accept string) (*http.Response, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return nil, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, o.cfg.BaseURL+"/v1/chat/completions", &buf)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", accept)
	if o.cfg.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+o.cfg.APIKey)
	}
	resp, err := o.httpClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		resp.Body.Close()
		return nil, newHTTPError(o.Name(), resp, raw)
	}
	return resp, nil
}

func (o *OAIHTTP) Generate(ctx context.Context, req Request) (string, error) {
	body, err := o.build(req, false)
	if err != nil {
		return "", err
	}
	if o.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.cfg.Timeout)
		defer cancel()
	}
	resp, err := o.do(ctx, body, "application/json")
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var out chatCompletionResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("oai_http: decode: %w", err)
	}
	for _, c := range out.Choices {
		if strings.TrimSpace(c.Message.Content) != "" {
			return c.Message.Content, nil
		}
	}
	return "", fmt.Errorf("oai_http: empty completion")
}

func (o *OAIHTTP) Stream(ctx context.Context, req Request, onDelta func(string)) (string, error) {
	body, err := o.build(req, true)
	if err != nil {
		return "", err
	}
	resp, err := o.do(ctx, body, "text/event-stream")
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var full strings.Builder
	err = ReadSSE(resp.Body, func(_ string, data string) error {
		var chunk chatCompletionStreamChunk
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			return nil
		}
		if chunk.Error != nil {
			b, _ := json.Marshal(chunk.Error)
			return fmt.Errorf("oai_http: stream error: %s", string(b))
		}
		for _, c := range chunk.Choices {
			if c.Delta.Content == "" {
				continue
			}
			full.WriteString(c.Delta.Content)
			if onDelta != nil {
				onDelta(c.Delta.Content)
			}
		}
		return nil
	})
	if err != nil {
		return full.String(), err
	}
	return full.String(), nil
}
