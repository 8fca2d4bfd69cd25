package realtime

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/buyerdesk-backend/internal/platform/logger"
)

func mustTestLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	t.Cleanup(log.Sync)
	return log
}

func recvMessage(t *testing.T, ch <-chan SSEMessage, timeout time.Duration) SSEMessage {
	t.Helper()
	select {
	case msg := <-ch:
		return msg
	case <-time.After(timeout):
		t.Fatalf("timed out waiting for SSE message")
	}
	return SSEMessage{}
}

func TestSSEHubOrderingAndReconnect(t *testing.T) {
	hub := NewSSEHub(mustTestLogger(t))
	buyerID := uuid.New()
	channel := BuyerChannel(buyerID)

	clientA := hub.NewSSEClient(uuid.New())
	hub.AddChannel(clientA, channel)

	hub.Broadcast(SSEMessage{Channel: channel, Event: SSEEventItemCreated, Data: map[string]any{"seq": 1}})
	hub.Broadcast(SSEMessage{Channel: channel, Event: SSEEventItemApproved, Data: map[string]any{"seq": 1}})

	if got := recvMessage(t, clientA.Outbound, time.Second); got.Event != SSEEventItemCreated {
		t.Fatalf("first event: got=%s", got.Event)
	}
	if got := recvMessage(t, clientA.Outbound, time.Second); got.Event != SSEEventItemApproved {
		t.Fatalf("second event: got=%s", got.Event)
	}

	hub.CloseClient(clientA)
	hub.CloseClient(clientA)
	if _, ok := <-clientA.Outbound; ok {
		t.Fatalf("clientA outbound should be closed after disconnect")
	}
	if n := hub.Subscribers(channel); n != 0 {
		t.Fatalf("subscribers after close=%d", n)
	}

	clientB := hub.NewSSEClient(uuid.New())
	hub.AddChannel(clientB, channel)
	hub.Broadcast(SSEMessage{Channel: channel, Event: SSEEventStageAdvanced})
	if got := recvMessage(t, clientB.Outbound, time.Second); got.Event != SSEEventStageAdvanced {
		t.Fatalf("reconnect event: got=%s", got.Event)
	}
}

func TestSSEHubChannelsAreIsolated(t *testing.T) {
	hub := NewSSEHub(mustTestLogger(t))
	buyerID := uuid.New()

	agentSide := hub.NewSSEClient(uuid.New())
	hub.AddChannel(agentSide, BuyerChannel(buyerID))
	portal := hub.NewSSEClient(buyerID)
	hub.AddChannel(portal, PortalChannel(buyerID))

	hub.Broadcast(SSEMessage{Channel: BuyerChannel(buyerID), Event: SSEEventItemCreated})

	recvMessage(t, agentSide.Outbound, time.Second)
	select {
	case msg := <-portal.Outbound:
		t.Fatalf("portal received agent-side message: %s", msg.Event)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestServeHTTPWritesEventFrames(t *testing.T) {
	hub := NewSSEHub(mustTestLogger(t))
	client := hub.NewSSEClient(uuid.New())
	channel := PortalChannel(uuid.New())
	hub.AddChannel(client, channel)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.ServeHTTP(w, r, client)
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("content-type=%s", ct)
	}

	hub.Broadcast(SSEMessage{Channel: channel, Event: SSEEventItemApproved, Data: map[string]any{"id": "x"}})

	br := bufio.NewReader(resp.Body)
	eventLine, _ := br.ReadString('\n')
	dataLine, _ := br.ReadString('\n')
	if strings.TrimSpace(eventLine) != "event: ItemApproved" {
		t.Fatalf("event line=%q", eventLine)
	}
	if !strings.HasPrefix(dataLine, "data: ") || !strings.Contains(dataLine, `"event":"ItemApproved"`) {
		t.Fatalf("data line=%q", dataLine)
	}
}

func TestClosedClientIgnoresLateSubscribe(t *testing.T) {
	hub := NewSSEHub(mustTestLogger(t))
	client := hub.NewSSEClient(uuid.New())
	channel := BuyerChannel(uuid.New())

	hub.AddChannel(client, channel)
	hub.CloseClient(client)
	hub.CloseClient(client)
	hub.AddChannel(client, channel)

	if n := hub.Subscribers(channel); n != 0 {
		t.Fatalf("subscribers=%d want 0", n)
	}
	hub.Broadcast(SSEMessage{Channel: channel, Event: SSEEventItemCreated})
}
