package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/yungbote/buyerdesk-backend/internal/pkg/httpx"
)

type Message struct {
	Role    string // "user" or "assistant"
	Content string
}

type Request struct {
	Model       string
	System      string
	Messages    []Message
	MaxTokens   int
	Temperature float64
	// JSON asks the provider for a bare JSON document when it supports it.
	JSON bool
}

// Engine is a completion provider. Stream calls onDelta for every text
// fragment in arrival order and returns their concatenation.
type Engine interface {
	Name() string
	Generate(ctx context.Context, req Request) (string, error)
	Stream(ctx context.Context, req Request, onDelta func(delta string)) (string, error)
}

// HTTPError is a non-2xx upstream response.
type HTTPError struct {
	Provider   string
	StatusCode int
	Body       string
	retryAfter time.Duration
}

func (e *HTTPError) Error() string {
	if e == nil {
		return "upstream http error"
	}
	if e.Body == "" {
		return fmt.Sprintf("%s: upstream status=%d", e.Provider, e.StatusCode)
	}
	return fmt.Sprintf("%s: upstream status=%d body=%s", e.Provider, e.StatusCode, e.Body)
}

func (e *HTTPError) HTTPStatusCode() int { return e.StatusCode }

func (e *HTTPError) RetryAfter() time.Duration { return e.retryAfter }

func (e *HTTPError) RateLimited() bool { return e != nil && e.StatusCode == http.StatusTooManyRequests }

func IsRateLimited(err error) bool {
	var he *HTTPError
	return errors.As(err, &he) && he.RateLimited()
}

func newHTTPError(provider string, resp *http.Response, body []byte) *HTTPError {
	return &HTTPError{
		Provider:   provider,
		StatusCode: resp.StatusCode,
		Body:       strings.TrimSpace(string(body)),
		retryAfter: httpx.RetryAfterDuration(resp, 0, 0),
	}
}

// StripFences removes a surrounding markdown code fence.
func StripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	firstNL := strings.IndexByte(s, '\n')
	if firstNL == -1 {
		return strings.TrimSpace(strings.Trim(s, "`"))
	}
	s = s[firstNL+1:]
	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}
	return strings.TrimSpace(s)
}

func cleanMessages(msgs []Message) []Message {
	out := make([]Message, 0, len(msgs))
	for _, m := range msgs {
		role := strings.ToLower(strings.TrimSpace(m.Role))
		content := strings.TrimSpace(m.Content)
		if content == "" {
			continue
		}
		if role != "assistant" {
			role = "user"
		}
		out = append(out, Message{Role: role, Content: content})
	}
	return out
}

var errNoMessages = errors.New("llm: no messages")
