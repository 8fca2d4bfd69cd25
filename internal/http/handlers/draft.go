package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	types "github.com/yungbote/buyerdesk-backend/internal/domain"
	"github.com/yungbote/buyerdesk-backend/internal/http/response"
	"github.com/yungbote/buyerdesk-backend/internal/platform/llm"
	"github.com/yungbote/buyerdesk-backend/internal/platform/logger"
	"github.com/yungbote/buyerdesk-backend/internal/services"
)

type DraftHandler struct {
	log     *logger.Logger
	drafter services.DraftingService
}

func NewDraftHandler(log *logger.Logger, drafter services.DraftingService) *DraftHandler {
	return &DraftHandler{log: log.With("handler", "DraftHandler"), drafter: drafter}
}

type draftRequest struct {
	services.DraftRequest
	// Message is accepted as an alias for command.
	Message string `json:"message"`
	Stream  *bool  `json:"stream"`
}

type deltaText struct {
	Text string `json:"text"`
}

type draftFrame struct {
	Type  string      `json:"type"`
	Delta *deltaText  `json:"delta,omitempty"`
	Item  *types.Item `json:"item,omitempty"`
	Error string      `json:"error,omitempty"`
}

// draftStream delays the 200 and the event-stream headers until the first
// delta, so failures before any text can still be answered as JSON errors.
type draftStream struct {
	c       *gin.Context
	started bool
	item    *types.Item
}

func (s *draftStream) start() {
	if s.started {
		return
	}
	s.started = true
	w := s.c.Writer
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	if s.item != nil {
		s.frame(draftFrame{Type: "item_created", Item: s.item})
	}
	w.Flush()
}

func (s *draftStream) frame(f draftFrame) {
	raw, err := json.Marshal(f)
	if err != nil {
		return
	}
	_, _ = fmt.Fprintf(s.c.Writer, "data: %s\n\n", raw)
	s.c.Writer.Flush()
}

func (s *draftStream) delta(text string) {
	s.start()
	s.frame(draftFrame{Type: "content_block_delta", Delta: &deltaText{Text: text}})
}

// fail ends the text with a typed error frame carrying the fallback that
// replaced the partial draft.
func (s *draftStream) fail(fallback string) {
	s.start()
	s.frame(draftFrame{Type: "error", Error: fallback})
}

func (s *draftStream) done() {
	s.start()
	_, _ = fmt.Fprint(s.c.Writer, "data: [DONE]\n\n")
	s.c.Writer.Flush()
}

// POST /api/ai/draft
func (h *DraftHandler) Draft(c *gin.Context) {
	var req draftRequest
	if !bindJSON(c, &req) {
		return
	}
	if strings.TrimSpace(req.Command) == "" {
		req.Command = req.Message
	}
	dr := req.DraftRequest

	if dr.Intent == services.IntentActions {
		actions, err := h.drafter.SuggestActions(dbcOf(c), dr)
		if err != nil {
			response.RespondServiceError(c, "suggest_actions_failed", err)
			return
		}
		response.RespondOK(c, gin.H{"actions": actions})
		return
	}

	if req.Stream != nil && !*req.Stream {
		res, err := h.drafter.StreamDraft(dbcOf(c), dr, services.DraftHooks{})
		if err != nil {
			h.respondDraftError(c, res, err)
			return
		}
		response.RespondOK(c, res)
		return
	}

	stream := &draftStream{c: c}
	res, err := h.drafter.StreamDraft(dbcOf(c), dr, services.DraftHooks{
		OnItem:  func(it *types.Item) { stream.item = it },
		OnDelta: stream.delta,
	})
	if err != nil && !stream.started {
		h.respondDraftError(c, res, err)
		return
	}
	if err != nil {
		h.log.Warn("draft stream ended early", "error", err)
		fallback := services.FallbackApology
		if res != nil {
			fallback = res.Content
		}
		stream.fail(fallback)
	}
	stream.done()
}

// respondDraftError answers before any frame was written. Upstream failures
// use a flat {error} body.
func (h *DraftHandler) respondDraftError(c *gin.Context, res *services.DraftResult, err error) {
	switch {
	case llm.IsRateLimited(err):
		c.JSON(http.StatusTooManyRequests, gin.H{"error": services.FallbackRateLimited})
	case res != nil && res.Fallback:
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "draft failed"})
	default:
		var he *llm.HTTPError
		if errors.As(err, &he) {
			_ = c.Error(err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "draft failed"})
			return
		}
		response.RespondServiceError(c, "draft_failed", err)
	}
}
