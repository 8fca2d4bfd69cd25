package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/buyerdesk-backend/internal/data/repos"
	"github.com/yungbote/buyerdesk-backend/internal/http/response"
	"github.com/yungbote/buyerdesk-backend/internal/services"
)

type ItemHandler struct {
	conversation services.ConversationService
	approvals    services.ApprovalService
}

func NewItemHandler(conversation services.ConversationService, approvals services.ApprovalService) *ItemHandler {
	return &ItemHandler{conversation: conversation, approvals: approvals}
}

func itemFilter(c *gin.Context) (repos.ItemFilter, error) {
	stageIdx, err := queryInt(c, "stage")
	if err != nil {
		return repos.ItemFilter{}, err
	}
	f := repos.ItemFilter{Stage: stageIdx, Limit: queryLimit(c, 200)}
	after, err := queryInt(c, "after_seq")
	if err != nil {
		return repos.ItemFilter{}, err
	}
	if after != nil {
		f.AfterSeq = int64(*after)
	}
	return f, nil
}

// GET /api/buyers/:id/items?stage=&after_seq=&limit=
func (h *ItemHandler) ListItems(c *gin.Context) {
	buyerID, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	f, err := itemFilter(c)
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_query", err)
		return
	}
	out, err := h.conversation.ListItems(dbcOf(c), buyerID, f)
	if err != nil {
		response.RespondServiceError(c, "list_items_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"items": out})
}

type postMessageRequest struct {
	Content string `json:"content"`
	Stage   *int   `json:"stage"`
}

// POST /api/buyers/:id/messages
func (h *ItemHandler) PostMessage(c *gin.Context) {
	buyerID, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	var req postMessageRequest
	if !bindJSON(c, &req) {
		return
	}
	it, err := h.conversation.PostMessage(dbcOf(c), buyerID, req.Content, req.Stage)
	if err != nil {
		response.RespondServiceError(c, "post_message_failed", err)
		return
	}
	response.RespondCreated(c, gin.H{"item": it})
}

// POST /api/buyers/:id/blocks
func (h *ItemHandler) AddBlock(c *gin.Context) {
	buyerID, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	var in services.BlockInput
	if !bindJSON(c, &in) {
		return
	}
	it, err := h.conversation.AddBlock(dbcOf(c), buyerID, in)
	if err != nil {
		response.RespondServiceError(c, "add_block_failed", err)
		return
	}
	response.RespondCreated(c, gin.H{"item": it})
}

// PATCH /api/items/:id
func (h *ItemHandler) EditMessage(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	var req struct {
		Content string `json:"content"`
	}
	if !bindJSON(c, &req) {
		return
	}
	it, err := h.conversation.EditMessage(dbcOf(c), id, req.Content)
	if err != nil {
		response.RespondServiceError(c, "edit_item_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"item": it})
}

// POST /api/items/:id/lock
func (h *ItemHandler) LockMessage(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	it, err := h.conversation.LockMessage(dbcOf(c), id)
	if err != nil {
		response.RespondServiceError(c, "lock_item_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"item": it})
}

// POST /api/items/:id/expanded
func (h *ItemHandler) SetExpanded(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	var req struct {
		Expanded bool `json:"expanded"`
	}
	if !bindJSON(c, &req) {
		return
	}
	it, err := h.conversation.SetExpanded(dbcOf(c), id, req.Expanded)
	if err != nil {
		response.RespondServiceError(c, "update_item_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"item": it})
}

// POST /api/items/:id/approve
func (h *ItemHandler) Approve(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	it, err := h.approvals.Approve(dbcOf(c), id)
	if err != nil {
		response.RespondServiceError(c, "approve_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"item": it})
}

// POST /api/items/:id/reject
func (h *ItemHandler) Reject(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	var req struct {
		Reason string `json:"reason"`
	}
	// An omitted body is a blank reason, which the service rejects.
	if !bindOptionalJSON(c, &req) {
		return
	}
	it, err := h.approvals.Reject(dbcOf(c), id, req.Reason)
	if err != nil {
		response.RespondServiceError(c, "reject_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"item": it})
}

// GET /api/approvals?buyer_id=&limit=
func (h *ItemHandler) ListPending(c *gin.Context) {
	buyerID, err := queryUUID(c, "buyer_id")
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_buyer_id", err)
		return
	}
	out, err := h.approvals.ListPending(dbcOf(c), buyerID, queryLimit(c, 100))
	if err != nil {
		response.RespondServiceError(c, "list_pending_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"items": out})
}
