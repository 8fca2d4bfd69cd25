package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	genai "github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type GeminiConfig struct {
	APIKey string
	Model  string
}

type Gemini struct {
	client *genai.Client
	model  string
}

func NewGemini(ctx context.Context, cfg GeminiConfig) (*Gemini, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("gemini: api key required")
	}
	c, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("gemini: client: %w", err)
	}
	model := cfg.Model
	if model == "" {
		model = "gemini-1.5-flash"
	}
	return &Gemini{client: c, model: model}, nil
}

func (g *Gemini) Name() string { return "gemini" }

func (g *Gemini) Close() error { return g.client.Close() }

func (g *Gemini) session(req Request) (*genai.ChatSession, genai.Text, error) {
	msgs := cleanMessages(req.Messages)
	if len(msgs) == 0 {
		return nil, "", errNoMessages
	}
	m := g.client.GenerativeModel(firstNonEmpty(req.Model, g.model))
	if sys := strings.TrimSpace(req.System); sys != "" {
		m.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(sys)}}
	}
	if req.Temperature > 0 {
		m.SetTemperature(float32(req.Temperature))
	}
	if req.MaxTokens > 0 {
		m.SetMaxOutputTokens(int32(req.MaxTokens))
	}
	if req.JSON {
		m.ResponseMIMEType = "application/json"
	}
	cs := m.StartChat()
	for _, msg := range msgs[:len(msgs)-1] {
		role := "user"
		if msg.Role == "assistant" {
			role = "model"
		}
		cs.History = append(cs.History, &genai.Content{Role: role, Parts: []genai.Part{genai.Text(msg.Content)}})
	}
	return cs, genai.Text(msgs[len(msgs)-1].Content), nil
}

func (g *Gemini) Generate(ctx context.Context, req Request) (string, error) {
	cs, last, err := g.session(req)
	if err != nil {
		return "", err
	}
	resp, err := cs.SendMessage(ctx, last)
	if err != nil {
		return "", g.mapErr(err)
	}
	txt := responseText(resp)
	if strings.TrimSpace(txt) == "" {
		return "", fmt.Errorf("gemini: empty completion")
	}
	return txt, nil
}

func (g *Gemini) Stream(ctx context.Context, req Request, onDelta func(string)) (string, error) {
	cs, last, err := g.session(req)
	if err != nil {
		return "", err
	}
	it := cs.SendMessageStream(ctx, last)
	var full strings.Builder
	for {
		resp, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return full.String(), g.mapErr(err)
		}
		delta := responseText(resp)
		if delta == "" {
			continue
		}
		full.WriteString(delta)
		if onDelta != nil {
			onDelta(delta)
		}
	}
	return full.String(), nil
}

// mapErr turns quota exhaustion into a rate-limited HTTPError.
func (g *Gemini) mapErr(err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return &HTTPError{Provider: g.Name(), StatusCode: gerr.Code, Body: gerr.Message}
	}
	if st, ok := status.FromError(err); ok && st.Code() == codes.ResourceExhausted {
		return &HTTPError{Provider: g.Name(), StatusCode: http.StatusTooManyRequests, Body: st.Message()}
	}
	return err
}

func responseText(r *genai.GenerateContentResponse) string {
	if r == nil {
		return ""
	}
	var sb strings.Builder
	for _, c := range r.Candidates {
		if c == nil || c.Content == nil {
			continue
		}
		for _, part := range c.Content.Parts {
			if t, ok := part.(genai.Text); ok {
				sb.WriteString(string(t))
			}
		}
		break
	}
	return sb.String()
}
