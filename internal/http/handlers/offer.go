package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/buyerdesk-backend/internal/data/repos"
	"github.com/yungbote/buyerdesk-backend/internal/data/repos/deals"
	types "github.com/yungbote/buyerdesk-backend/internal/domain"
	"github.com/yungbote/buyerdesk-backend/internal/http/response"
	"github.com/yungbote/buyerdesk-backend/internal/services"
)

type OfferHandler struct {
	offers services.OfferService
}

func NewOfferHandler(offers services.OfferService) *OfferHandler {
	return &OfferHandler{offers: offers}
}

// POST /api/offers
func (h *OfferHandler) CreateOffer(c *gin.Context) {
	var in types.Offer
	if !bindJSON(c, &in) {
		return
	}
	o, err := h.offers.Create(dbcOf(c), &in)
	if err != nil {
		response.RespondServiceError(c, "create_offer_failed", err)
		return
	}
	response.RespondCreated(c, gin.H{"offer": o})
}

// GET /api/offers?buyer_id=&status=&sort=created_at|amount&order=asc|desc
func (h *OfferHandler) ListOffers(c *gin.Context) {
	buyerID, err := queryUUID(c, "buyer_id")
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_buyer_id", err)
		return
	}
	f := repos.OfferFilter{
		BuyerID: buyerID,
		Status:  types.OfferStatus(strings.TrimSpace(c.Query("status"))),
		Sort:    deals.OfferSort(strings.TrimSpace(c.Query("sort"))),
		Asc:     strings.EqualFold(c.Query("order"), "asc"),
		Limit:   queryLimit(c, 100),
	}
	out, err := h.offers.List(dbcOf(c), f)
	if err != nil {
		response.RespondServiceError(c, "list_offers_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"offers": out})
}

// GET /api/offers/:id
func (h *OfferHandler) GetOffer(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	o, err := h.offers.Get(dbcOf(c), id)
	if err != nil {
		response.RespondServiceError(c, "get_offer_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"offer": o})
}

// PATCH /api/offers/:id
func (h *OfferHandler) UpdateOffer(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	var patch services.OfferPatch
	if !bindJSON(c, &patch) {
		return
	}
	o, err := h.offers.Update(dbcOf(c), id, patch)
	if err != nil {
		response.RespondServiceError(c, "update_offer_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"offer": o})
}

// POST /api/offers/:id/status
func (h *OfferHandler) SetStatus(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	var req struct {
		Status types.OfferStatus `json:"status"`
	}
	if !bindJSON(c, &req) {
		return
	}
	o, ev, err := h.offers.SetStatus(dbcOf(c), id, req.Status)
	if err != nil {
		response.RespondServiceError(c, "offer_status_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"offer": o, "event": ev})
}
