// Package draftclient talks to the buyerdesk drafting, template and scrape
// endpoints.
package draftclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/yungbote/buyerdesk-backend/internal/platform/llm"
)

// ErrRateLimited is returned for an upstream 429.
var ErrRateLimited = errors.New("draftclient: rate limited")

// HTTPError is any other non-2xx answer.
type HTTPError struct {
	StatusCode int
	Message    string
}

func (e *HTTPError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("draftclient: status %d", e.StatusCode)
	}
	return fmt.Sprintf("draftclient: status %d: %s", e.StatusCode, e.Message)
}

func (e *HTTPError) HTTPStatusCode() int { return e.StatusCode }

// DraftError reports a draft that failed after streaming began. Message is
// the fallback text the server stored in place of the partial draft.
type DraftError struct {
	Message string
}

func (e *DraftError) Error() string { return "draftclient: draft failed: " + e.Message }

const defaultPollInterval = 3 * time.Second

type Client struct {
	BaseURL string
	Token   string
	HTTP    *http.Client
	// PollInterval paces WaitForAnalysis; zero means 3s.
	PollInterval time.Duration
}

func New(baseURL, token string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   token,
		HTTP:    &http.Client{},
	}
}

type DraftRequest struct {
	BuyerID      string         `json:"buyer_id,omitempty"`
	Command      string         `json:"command"`
	BuyerContext map[string]any `json:"buyerContext,omitempty"`
	Intent       string         `json:"intent,omitempty"`
	Visibility   string         `json:"visibility,omitempty"`
	Stream       bool           `json:"stream"`
}

type DraftResult struct {
	Content string
	// Fallback is set when the server replaced the draft after a failure.
	Fallback bool
	// Item is the persisted workspace item, present when BuyerID was set.
	Item json.RawMessage
}

type Action struct {
	ID      string `json:"id"`
	Label   string `json:"label"`
	Command string `json:"command"`
	Type    string `json:"type"`
}

type frame struct {
	Type  string          `json:"type"`
	Delta *struct {
		Text string `json:"text"`
	} `json:"delta"`
	Item  json.RawMessage `json:"item"`
	Error string          `json:"error"`
}

// Draft streams a draft, calling onDelta for each text fragment in order.
// A server-side failure mid-stream returns a *DraftError with the fallback as
// Content; a stream cut short returns an error wrapping io.ErrUnexpectedEOF.
func (c *Client) Draft(ctx context.Context, req DraftRequest, onDelta func(string)) (*DraftResult, error) {
	req.Stream = true
	resp, err := c.do(ctx, http.MethodPost, "/api/ai/draft", req, "text/event-stream")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	res := &DraftResult{}
	var (
		acc    strings.Builder
		failed *DraftError
	)
	err = llm.ReadSSE(resp.Body, func(_ string, data string) error {
		var f frame
		if err := json.Unmarshal([]byte(data), &f); err != nil {
			return fmt.Errorf("draftclient: decode frame: %w", err)
		}
		switch {
		case f.Type == "item_created":
			res.Item = f.Item
		case f.Type == "error":
			failed = &DraftError{Message: f.Error}
		case f.Delta != nil && (f.Type == "" || f.Type == "content_block_delta"):
			if f.Delta.Text == "" {
				return nil
			}
			acc.WriteString(f.Delta.Text)
			if onDelta != nil {
				onDelta(f.Delta.Text)
			}
		}
		return nil
	})
	res.Content = acc.String()
	if failed != nil {
		res.Content = failed.Message
		res.Fallback = true
		return res, failed
	}
	if err != nil {
		return res, fmt.Errorf("draftclient: draft stream: %w", err)
	}
	return res, nil
}

// Actions asks for suggested next steps without streaming.
func (c *Client) Actions(ctx context.Context, req DraftRequest) ([]Action, error) {
	req.Intent = "actions"
	req.Stream = false
	var out struct {
		Actions []Action `json:"actions"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/api/ai/draft", req, &out); err != nil {
		return nil, err
	}
	return out.Actions, nil
}

type AnalyzeAck struct {
	Accepted       bool   `json:"accepted"`
	TemplateID     string `json:"template_id"`
	AnalysisStatus string `json:"analysis_status"`
}

type TemplateField struct {
	Name         string `json:"name"`
	Label        string `json:"label"`
	FieldType    string `json:"field_type"`
	Required     bool   `json:"required"`
	Page         int    `json:"page"`
	DefaultValue string `json:"default_value,omitempty"`
}

type Template struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	FileURL        string          `json:"file_url"`
	FileType       string          `json:"file_type"`
	AnalysisStatus string          `json:"analysis_status"`
	AnalysisError  string          `json:"analysis_error,omitempty"`
	Attempts       int             `json:"attempts"`
	Fields         []TemplateField `json:"fields"`
}

// Done reports a terminal analysis status.
func (t *Template) Done() bool {
	return t.AnalysisStatus == "completed" || t.AnalysisStatus == "failed"
}

func (c *Client) AnalyzeTemplate(ctx context.Context, templateID, fileURL, fileType string) (*AnalyzeAck, error) {
	body := map[string]any{
		"template_id": templateID,
		"file_url":    fileURL,
		"file_type":   fileType,
		"async":       true,
	}
	var ack AnalyzeAck
	if err := c.doJSON(ctx, http.MethodPost, "/api/offer-templates/"+templateID+"/analyze", body, &ack); err != nil {
		return nil, err
	}
	return &ack, nil
}

func (c *Client) GetTemplate(ctx context.Context, templateID string) (*Template, error) {
	var out struct {
		Template Template `json:"template"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/api/offer-templates/"+templateID, nil, &out); err != nil {
		return nil, err
	}
	return &out.Template, nil
}

// WaitForAnalysis polls until the template reaches completed or failed, or ctx ends.
func (c *Client) WaitForAnalysis(ctx context.Context, templateID string) (*Template, error) {
	interval := c.PollInterval
	if interval <= 0 {
		interval = defaultPollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		t, err := c.GetTemplate(ctx, templateID)
		if err != nil {
			return nil, err
		}
		if t.Done() {
			return t, nil
		}
		select {
		case <-ctx.Done():
			return t, ctx.Err()
		case <-ticker.C:
		}
	}
}

type ListingData struct {
	Address      string   `json:"address"`
	City         string   `json:"city"`
	State        string   `json:"state"`
	ZipCode      string   `json:"zipCode"`
	Price        int64    `json:"price"`
	Bedrooms     int      `json:"bedrooms"`
	Bathrooms    float64  `json:"bathrooms"`
	Sqft         int      `json:"sqft"`
	YearBuilt    int      `json:"yearBuilt"`
	Description  string   `json:"description"`
	Photos       []string `json:"photos"`
	PropertyType string   `json:"propertyType"`
	ListingAgent string   `json:"listingAgent"`
	LotSize      string   `json:"lotSize"`
}

// Scrape returns best-effort listing details for url.
func (c *Client) Scrape(ctx context.Context, url string) (*ListingData, error) {
	var out struct {
		Success bool        `json:"success"`
		Data    ListingData `json:"data"`
		Error   string      `json:"error"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/api/properties/scrape", map[string]string{"url": url}, &out); err != nil {
		return nil, err
	}
	if !out.Success {
		return nil, fmt.Errorf("draftclient: scrape: %s", out.Error)
	}
	return &out.Data, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, body, out any) error {
	resp, err := c.do(ctx, method, path, body, "application/json")
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("draftclient: decode %s: %w", path, err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body any, accept string) (*http.Response, error) {
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		rdr = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, rdr)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", accept)
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	hc := c.HTTP
	if hc == nil {
		hc = http.DefaultClient
	}
	resp, err := hc.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, fmt.Errorf("%w: %s", ErrRateLimited, errorMessage(raw))
	}
	return nil, &HTTPError{StatusCode: resp.StatusCode, Message: errorMessage(raw)}
}

// errorMessage accepts {"error":"..."} and {"error":{"message":"..."}}.
func errorMessage(raw []byte) string {
	var flat struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(raw, &flat) == nil && flat.Error != "" {
		return flat.Error
	}
	var nested struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal(raw, &nested) == nil && nested.Error.Message != "" {
		return nested.Error.Message
	}
	return strings.TrimSpace(string(raw))
}
