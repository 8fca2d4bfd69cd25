package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/buyerdesk-backend/internal/data/repos"
	types "github.com/yungbote/buyerdesk-backend/internal/domain"
	"github.com/yungbote/buyerdesk-backend/internal/http/response"
	"github.com/yungbote/buyerdesk-backend/internal/services"
)

type BuyerHandler struct {
	buyers services.BuyerService
	stages services.StageService
}

func NewBuyerHandler(buyers services.BuyerService, stages services.StageService) *BuyerHandler {
	return &BuyerHandler{buyers: buyers, stages: stages}
}

// GET /api/stages
func (h *BuyerHandler) ListStages(c *gin.Context) {
	response.RespondOK(c, gin.H{"stages": h.stages.Catalog().All()})
}

// POST /api/buyers
func (h *BuyerHandler) CreateBuyer(c *gin.Context) {
	var in types.Buyer
	if !bindJSON(c, &in) {
		return
	}
	b, err := h.buyers.Create(dbcOf(c), &in)
	if err != nil {
		response.RespondServiceError(c, "create_buyer_failed", err)
		return
	}
	response.RespondCreated(c, gin.H{"buyer": b})
}

// GET /api/buyers?stage=&q=&limit=&offset=
func (h *BuyerHandler) ListBuyers(c *gin.Context) {
	stageIdx, err := queryInt(c, "stage")
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_stage", err)
		return
	}
	offset, err := queryInt(c, "offset")
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_offset", err)
		return
	}
	f := repos.BuyerFilter{
		Stage: stageIdx,
		Query: strings.TrimSpace(c.Query("q")),
		Limit: queryLimit(c, 100),
	}
	if offset != nil {
		f.Offset = *offset
	}
	out, err := h.buyers.List(dbcOf(c), f)
	if err != nil {
		response.RespondServiceError(c, "list_buyers_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"buyers": out})
}

// GET /api/buyers/:id
func (h *BuyerHandler) GetBuyer(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	b, err := h.buyers.Get(dbcOf(c), id)
	if err != nil {
		response.RespondServiceError(c, "get_buyer_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"buyer": b, "current_stage": h.stages.CurrentStage(b)})
}

// PATCH /api/buyers/:id
func (h *BuyerHandler) UpdateBuyer(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	var patch services.BuyerPatch
	if !bindJSON(c, &patch) {
		return
	}
	b, err := h.buyers.Update(dbcOf(c), id, patch)
	if err != nil {
		response.RespondServiceError(c, "update_buyer_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"buyer": b})
}

// POST /api/buyers/:id/stage
func (h *BuyerHandler) AdvanceStage(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	var req struct {
		Target *int `json:"target"`
	}
	if !bindJSON(c, &req) {
		return
	}
	if req.Target == nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", errMissing("target"))
		return
	}
	b, ev, err := h.stages.AdvanceStage(dbcOf(c), id, *req.Target)
	if err != nil {
		response.RespondServiceError(c, "advance_stage_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"buyer": b, "event": ev})
}
