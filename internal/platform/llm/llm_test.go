package llm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/yungbote/buyerdesk-backend/internal/pkg/httpx"
)

type roundTripperFunc func(req *http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) { return f(req) }

func sseResponse(frames ...string) *http.Response {
	var b strings.Builder
	for _, f := range frames {
		b.WriteString(f)
		b.WriteString("\n\n")
	}
	return &http.Response{
		StatusCode: http.StatusOK,
		Header:     http.Header{"Content-Type": []string{"text/event-stream"}},
		Body:       io.NopCloser(strings.NewReader(b.String())),
	}
}

func TestAnthropicStreamAccumulatesDeltasInOrder(t *testing.T) {
	client := &http.Client{Transport: roundTripperFunc(func(req *http.Request) (*http.Response, error) {
		if req.URL.Path != "/v1/messages" {
			t.Fatalf("path=%s", req.URL.Path)
		}
		if req.Header.Get("x-api-key") != "k" || req.Header.Get("anthropic-version") == "" {
			t.Fatalf("missing auth headers")
		}
		var body anthropicRequest
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if !body.Stream || body.System != "sys" || len(body.Messages) != 1 {
			t.Fatalf("unexpected body: %+v", body)
		}
		return sseResponse(
			"event: message_start\ndata: {\"type\":\"message_start\"}",
			`data: {"type":"content_block_delta","delta":{"type":"text_delta","text":"Hello"}}`,
			`data: {"type":"content_block_delta","delta":{"type":"text_delta","text":" world"}}`,
			`data: {"type":"message_stop"}`,
		), nil
	})}
	a, err := NewAnthropic(AnthropicConfig{APIKey: "k", BaseURL: "http://upstream"}, client)
	if err != nil {
		t.Fatalf("NewAnthropic: %v", err)
	}

	var deltas []string
	full, err := a.Stream(context.Background(), Request{
		System:   "sys",
		Messages: []Message{{Role: "user", Content: "draft"}},
	}, func(d string) { deltas = append(deltas, d) })
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}
	if full != "Hello world" {
		t.Fatalf("full=%q", full)
	}
	if strings.Join(deltas, "|") != "Hello| world" {
		t.Fatalf("deltas=%v", deltas)
	}
}

func TestUpstream429IsRateLimited(t *testing.T) {
	client := &http.Client{Transport: roundTripperFunc(func(req *http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: http.StatusTooManyRequests,
			Header:     http.Header{"Retry-After": []string{"7"}},
			Body:       io.NopCloser(strings.NewReader(`{"error":"slow down"}`)),
		}, nil
	})}
	a, _ := NewAnthropic(AnthropicConfig{APIKey: "k", BaseURL: "http://upstream"}, client)

	_, err := a.Generate(context.Background(), Request{Messages: []Message{{Role: "user", Content: "x"}}})
	if !IsRateLimited(err) {
		t.Fatalf("expected rate limited, got %v", err)
	}
	if !httpx.IsRateLimited(err) {
		t.Fatalf("httpx should see the 429 too")
	}
	var ra httpx.RetryAfterer
	if !errors.As(err, &ra) || ra.RetryAfter() != 7*time.Second {
		t.Fatalf("retry-after hint lost: %v", err)
	}
}

func TestOAIHTTPStreamAndJSONMode(t *testing.T) {
	client := &http.Client{Transport: roundTripperFunc(func(req *http.Request) (*http.Response, error) {
		var body map[string]any
		_ = json.NewDecoder(req.Body).Decode(&body)
		if body["stream"] == true {
			return sseResponse(
				`data: {"choices":[{"delta":{"content":"a"}}]}`,
				`data: {"choices":[{"delta":{"content":"b"}}]}`,
				`data: [DONE]`,
				`data: {"choices":[{"delta":{"content":"ignored"}}]}`,
			), nil
		}
		if _, ok := body["response_format"]; !ok {
			t.Fatalf("json mode not requested")
		}
		return &http.Response{
			StatusCode: http.StatusOK,
			Body:       io.NopCloser(strings.NewReader(`{"choices":[{"message":{"content":"{\"ok\":true}"}}]}`)),
		}, nil
	})}
	o, err := NewOAIHTTP(OAIConfig{BaseURL: "http://upstream"}, client)
	if err != nil {
		t.Fatalf("NewOAIHTTP: %v", err)
	}
	full, err := o.Stream(context.Background(), Request{Messages: []Message{{Content: "x"}}}, nil)
	if err != nil || full != "ab" {
		t.Fatalf("stream full=%q err=%v", full, err)
	}
	out, err := o.Generate(context.Background(), Request{Messages: []Message{{Content: "x"}}, JSON: true})
	if err != nil || out != `{"ok":true}` {
		t.Fatalf("generate out=%q err=%v", out, err)
	}
}

func TestStreamErrorMidFlightKeepsPartial(t *testing.T) {
	client := &http.Client{Transport: roundTripperFunc(func(req *http.Request) (*http.Response, error) {
		return sseResponse(
			`data: {"type":"content_block_delta","delta":{"text":"Part"}}`,
			`data: {"type":"error","error":{"type":"api_error","message":"boom"}}`,
		), nil
	})}
	a, _ := NewAnthropic(AnthropicConfig{APIKey: "k", BaseURL: "http://upstream"}, client)
	full, err := a.Stream(context.Background(), Request{Messages: []Message{{Content: "x"}}}, nil)
	if err == nil {
		t.Fatalf("expected error")
	}
	if full != "Part" {
		t.Fatalf("partial=%q", full)
	}
}

func TestReadSSEMultilineAndComments(t *testing.T) {
	in := ": keepalive\nevent: x\ndata: one\ndata: two\n\ndata: last"
	var got []string
	err := ReadSSE(strings.NewReader(in), func(ev, data string) error {
		got = append(got, ev+"="+data)
		return nil
	})
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Fatalf("unterminated stream err=%v", err)
	}
	if len(got) != 2 || got[0] != "x=one\ntwo" || got[1] != "=last" {
		t.Fatalf("got=%q", got)
	}

	got = nil
	err = ReadSSE(strings.NewReader("data: one\n\ndata: [DONE]"), func(ev, data string) error {
		got = append(got, data)
		return nil
	})
	if err != nil || len(got) != 1 {
		t.Fatalf("terminated stream got=%q err=%v", got, err)
	}
}

func TestTruncatedStreamsAreErrors(t *testing.T) {
	anthropicBody := []string{
		`data: {"type":"content_block_delta","delta":{"text":"Half a sent"}}`,
	}
	oaiBody := []string{
		`data: {"choices":[{"delta":{"content":"Half a sent"}}]}`,
	}
	respond := func(frames []string) *http.Client {
		return &http.Client{Transport: roundTripperFunc(func(req *http.Request) (*http.Response, error) {
			return sseResponse(frames...), nil
		})}
	}

	a, _ := NewAnthropic(AnthropicConfig{APIKey: "k", BaseURL: "http://upstream"}, respond(anthropicBody))
	full, err := a.Stream(context.Background(), Request{Messages: []Message{{Content: "x"}}}, nil)
	if !errors.Is(err, io.ErrUnexpectedEOF) || full != "Half a sent" {
		t.Fatalf("anthropic full=%q err=%v", full, err)
	}

	o, _ := NewOAIHTTP(OAIConfig{BaseURL: "http://upstream"}, respond(oaiBody))
	full, err = o.Stream(context.Background(), Request{Messages: []Message{{Content: "x"}}}, nil)
	if !errors.Is(err, io.ErrUnexpectedEOF) || full != "Half a sent" {
		t.Fatalf("oai full=%q err=%v", full, err)
	}
}

func TestStripFences(t *testing.T) {
	if got := StripFences("```json\n{\"a\":1}\n```"); got != `{"a":1}` {
		t.Fatalf("got=%q", got)
	}
	if got := StripFences(" plain "); got != "plain" {
		t.Fatalf("got=%q", got)
	}
}

func TestFactoryFallsBackToMock(t *testing.T) {
	e, err := New(context.Background(), Config{}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if e.Name() != "mock" {
		t.Fatalf("engine=%s", e.Name())
	}
	if _, err := New(context.Background(), Config{Provider: "nope"}, nil); err == nil {
		t.Fatalf("unknown provider should fail")
	}
	m := &Mock{Err: errors.New("down")}
	if _, err := m.Stream(context.Background(), Request{}, nil); err == nil {
		t.Fatalf("mock error not returned")
	}
}
