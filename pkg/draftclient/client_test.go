package draftclient

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

type roundTripperFunc func(req *http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) { return f(req) }

func respond(status int, contentType, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{contentType}},
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func testClient(fn roundTripperFunc) *Client {
	c := New("http://buyerdesk.test/", "tok")
	c.HTTP = &http.Client{Transport: fn}
	return c
}

func TestDraftAccumulatesFramesWithAndWithoutType(t *testing.T) {
	c := testClient(func(req *http.Request) (*http.Response, error) {
		if req.URL.Path != "/api/ai/draft" || req.Header.Get("Authorization") != "Bearer tok" {
			t.Fatalf("unexpected request %s auth=%q", req.URL.Path, req.Header.Get("Authorization"))
		}
		var body DraftRequest
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil || !body.Stream {
			t.Fatalf("body=%+v err=%v", body, err)
		}
		return respond(http.StatusOK, "text/event-stream",
			"data: {\"type\":\"item_created\",\"item\":{\"id\":\"i1\"}}\n\n"+
				": ping\n\n"+
				"data: {\"type\":\"content_block_delta\",\"delta\":{\"text\":\"Hello\"}}\n\n"+
				"data: {\"delta\":{\"text\":\" world\"}}\n\n"+
				"data: [DONE]\n\n"+
				"data: {\"delta\":{\"text\":\"ignored\"}}\n\n"), nil
	})

	var deltas []string
	res, err := c.Draft(context.Background(), DraftRequest{BuyerID: "b1", Command: "hi"}, func(d string) { deltas = append(deltas, d) })
	if err != nil {
		t.Fatalf("Draft: %v", err)
	}
	if res.Content != "Hello world" {
		t.Fatalf("content=%q", res.Content)
	}
	if len(deltas) != 2 || deltas[0] != "Hello" {
		t.Fatalf("deltas=%v", deltas)
	}
	if !strings.Contains(string(res.Item), "i1") {
		t.Fatalf("item=%s", res.Item)
	}
}

func TestDraftErrorFrameReplacesPartialContent(t *testing.T) {
	c := testClient(func(req *http.Request) (*http.Response, error) {
		return respond(http.StatusOK, "text/event-stream",
			"data: {\"type\":\"content_block_delta\",\"delta\":{\"text\":\"Half\"}}\n\n"+
				"data: {\"type\":\"error\",\"error\":\"Sorry, try again.\"}\n\n"+
				"data: [DONE]\n\n"), nil
	})
	res, err := c.Draft(context.Background(), DraftRequest{Command: "hi"}, nil)
	var de *DraftError
	if !errors.As(err, &de) || de.Message != "Sorry, try again." {
		t.Fatalf("err=%v", err)
	}
	if res.Content != "Sorry, try again." || !res.Fallback {
		t.Fatalf("res=%+v", res)
	}
}

func TestDraftWithoutDoneIsTruncated(t *testing.T) {
	c := testClient(func(req *http.Request) (*http.Response, error) {
		return respond(http.StatusOK, "text/event-stream",
			"data: {\"type\":\"content_block_delta\",\"delta\":{\"text\":\"Half\"}}\n\n"), nil
	})
	res, err := c.Draft(context.Background(), DraftRequest{Command: "hi"}, nil)
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Fatalf("err=%v", err)
	}
	if res.Content != "Half" || res.Fallback {
		t.Fatalf("res=%+v", res)
	}
}

func TestRateLimitAndHTTPErrors(t *testing.T) {
	c := testClient(func(req *http.Request) (*http.Response, error) {
		if strings.HasSuffix(req.URL.Path, "/draft") {
			return respond(http.StatusTooManyRequests, "application/json", `{"error":"busy"}`), nil
		}
		return respond(http.StatusNotFound, "application/json", `{"error":{"message":"template not found","code":"not_found"}}`), nil
	})

	_, err := c.Draft(context.Background(), DraftRequest{Command: "x"}, nil)
	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("draft err=%v", err)
	}
	_, err = c.GetTemplate(context.Background(), "t1")
	var he *HTTPError
	if !errors.As(err, &he) || he.StatusCode != http.StatusNotFound || he.Message != "template not found" {
		t.Fatalf("template err=%v", err)
	}
}

func TestActionsSendsIntent(t *testing.T) {
	c := testClient(func(req *http.Request) (*http.Response, error) {
		var body DraftRequest
		_ = json.NewDecoder(req.Body).Decode(&body)
		if body.Intent != "actions" || body.Stream {
			t.Fatalf("body=%+v", body)
		}
		return respond(http.StatusOK, "application/json", `{"actions":[{"id":"a","label":"Send comps","command":"Pull comps","type":"draft"}]}`), nil
	})
	got, err := c.Actions(context.Background(), DraftRequest{Command: "next?"})
	if err != nil || len(got) != 1 || got[0].Label != "Send comps" {
		t.Fatalf("actions=%+v err=%v", got, err)
	}
}

func TestWaitForAnalysisPollsUntilTerminal(t *testing.T) {
	var polls int32
	c := testClient(func(req *http.Request) (*http.Response, error) {
		switch {
		case req.Method == http.MethodPost && strings.HasSuffix(req.URL.Path, "/analyze"):
			return respond(http.StatusAccepted, "application/json", `{"accepted":true,"template_id":"t1","analysis_status":"pending"}`), nil
		case req.Method == http.MethodGet:
			status := "analyzing"
			if atomic.AddInt32(&polls, 1) >= 3 {
				status = "completed"
			}
			return respond(http.StatusOK, "application/json", `{"template":{"id":"t1","analysis_status":"`+status+`","fields":[{"name":"price"}]}}`), nil
		}
		t.Fatalf("unexpected %s %s", req.Method, req.URL.Path)
		return nil, nil
	})
	c.PollInterval = time.Millisecond

	ack, err := c.AnalyzeTemplate(context.Background(), "t1", "https://example.com/t.pdf", "pdf")
	if err != nil || !ack.Accepted || ack.AnalysisStatus != "pending" {
		t.Fatalf("ack=%+v err=%v", ack, err)
	}
	tpl, err := c.WaitForAnalysis(context.Background(), "t1")
	if err != nil {
		t.Fatalf("WaitForAnalysis: %v", err)
	}
	if tpl.AnalysisStatus != "completed" || len(tpl.Fields) != 1 || atomic.LoadInt32(&polls) != 3 {
		t.Fatalf("tpl=%+v polls=%d", tpl, polls)
	}
}

func TestWaitForAnalysisHonoursContext(t *testing.T) {
	c := testClient(func(req *http.Request) (*http.Response, error) {
		return respond(http.StatusOK, "application/json", `{"template":{"id":"t1","analysis_status":"analyzing"}}`), nil
	})
	c.PollInterval = time.Hour
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := c.WaitForAnalysis(ctx, "t1"); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err=%v", err)
	}
}

func TestScrapeSuccessAndFailure(t *testing.T) {
	ok := true
	c := testClient(func(req *http.Request) (*http.Response, error) {
		if ok {
			return respond(http.StatusOK, "application/json", `{"success":true,"data":{"address":"12 Elm St","zipCode":"78701","price":450000}}`), nil
		}
		return respond(http.StatusOK, "application/json", `{"success":false,"error":"no listing details found"}`), nil
	})
	got, err := c.Scrape(context.Background(), "https://listing")
	if err != nil || got.ZipCode != "78701" || got.Price != 450000 {
		t.Fatalf("got=%+v err=%v", got, err)
	}
	ok = false
	if _, err := c.Scrape(context.Background(), "https://listing"); err == nil || !strings.Contains(err.Error(), "no listing") {
		t.Fatalf("err=%v", err)
	}
}
