package handlers

import (
	"errors"
	"net/http"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/buyerdesk-backend/internal/http/response"
	"github.com/yungbote/buyerdesk-backend/internal/observability"
	"github.com/yungbote/buyerdesk-backend/internal/platform/ctxutil"
	"github.com/yungbote/buyerdesk-backend/internal/platform/logger"
	"github.com/yungbote/buyerdesk-backend/internal/realtime"
	"github.com/yungbote/buyerdesk-backend/internal/services"
)

type RealtimeHandler struct {
	log    *logger.Logger
	hub    *realtime.SSEHub
	buyers services.BuyerService

	mu      sync.RWMutex
	clients map[uuid.UUID]*realtime.SSEClient // key: session id
}

func NewRealtimeHandler(log *logger.Logger, hub *realtime.SSEHub, buyers services.BuyerService) *RealtimeHandler {
	return &RealtimeHandler{
		log:     log.With("handler", "RealtimeHandler"),
		hub:     hub,
		buyers:  buyers,
		clients: make(map[uuid.UUID]*realtime.SSEClient),
	}
}

// homeChannel is subscribed on connect. Brokers start empty and subscribe
// to the buyers they are watching.
func homeChannel(sess *ctxutil.Session) string {
	switch {
	case sess.IsBuyer():
		return realtime.PortalChannel(sess.BuyerID)
	case sess.IsAgent():
		return realtime.AgentChannel(sess.UserID)
	}
	return ""
}

// GET /api/sse/stream, GET /api/portal/stream
func (h *RealtimeHandler) SSEStream(c *gin.Context) {
	sess := ctxutil.GetSession(c.Request.Context())
	if sess == nil || sess.SessionID == uuid.Nil {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", errors.New("missing session id"))
		return
	}

	h.mu.Lock()
	if existing, ok := h.clients[sess.SessionID]; ok {
		h.hub.CloseClient(existing)
		delete(h.clients, sess.SessionID)
	}
	client := h.hub.NewSSEClient(sess.UserID)
	h.clients[sess.SessionID] = client
	h.mu.Unlock()

	h.hub.AddChannel(client, homeChannel(sess))
	observability.Current().RealtimeClientInc()
	h.log.Debug("SSE stream open", "session_id", sess.SessionID.String(), "role", string(sess.Role))

	h.hub.ServeHTTP(c.Writer, c.Request, client)

	h.mu.Lock()
	if h.clients[sess.SessionID] == client {
		delete(h.clients, sess.SessionID)
	}
	h.mu.Unlock()
	h.hub.CloseClient(client)
	observability.Current().RealtimeClientDec()
}

type channelRequest struct {
	BuyerID string `json:"buyer_id"`
}

// POST /api/sse/subscribe
func (h *RealtimeHandler) SSESubscribe(c *gin.Context) {
	client, channel, ok := h.resolve(c)
	if !ok {
		return
	}
	h.hub.AddChannel(client, channel)
	response.RespondOK(c, gin.H{"message": "subscribed", "channel": channel})
}

// POST /api/sse/unsubscribe
func (h *RealtimeHandler) SSEUnsubscribe(c *gin.Context) {
	client, channel, ok := h.resolve(c)
	if !ok {
		return
	}
	h.hub.RemoveChannel(client, channel)
	response.RespondOK(c, gin.H{"message": "unsubscribed", "channel": channel})
}

// resolve maps a buyer id to its agent-side channel after checking the
// session may see that buyer.
func (h *RealtimeHandler) resolve(c *gin.Context) (*realtime.SSEClient, string, bool) {
	sess := ctxutil.GetSession(c.Request.Context())
	if sess == nil || sess.SessionID == uuid.Nil {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", errors.New("missing session id"))
		return nil, "", false
	}
	if sess.IsBuyer() {
		response.RespondError(c, http.StatusForbidden, "forbidden", errors.New("portal sessions cannot change channels"))
		return nil, "", false
	}
	var req channelRequest
	if !bindJSON(c, &req) {
		return nil, "", false
	}
	buyerID, err := parseUUID(strings.TrimSpace(req.BuyerID), "buyer_id")
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_buyer_id", err)
		return nil, "", false
	}
	if _, err := h.buyers.Get(dbcOf(c), buyerID); err != nil {
		response.RespondServiceError(c, "subscribe_failed", err)
		return nil, "", false
	}

	h.mu.RLock()
	client, exists := h.clients[sess.SessionID]
	h.mu.RUnlock()
	if !exists {
		response.RespondError(c, http.StatusConflict, "no_stream", errors.New("no active SSE connection for this session"))
		return nil, "", false
	}
	return client, realtime.BuyerChannel(buyerID), true
}
