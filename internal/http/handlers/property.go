package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/buyerdesk-backend/internal/data/repos"
	types "github.com/yungbote/buyerdesk-backend/internal/domain"
	"github.com/yungbote/buyerdesk-backend/internal/http/response"
	"github.com/yungbote/buyerdesk-backend/internal/platform/apierr"
	"github.com/yungbote/buyerdesk-backend/internal/services"
)

type PropertyHandler struct {
	properties services.PropertyService
}

func NewPropertyHandler(properties services.PropertyService) *PropertyHandler {
	return &PropertyHandler{properties: properties}
}

// POST /api/properties/scrape
func (h *PropertyHandler) Scrape(c *gin.Context) {
	var req struct {
		URL string `json:"url"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.URL) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "url required"})
		return
	}
	data, err := h.properties.Scrape(dbcOf(c), req.URL)
	if err != nil {
		ae := apierr.From(err, "scrape_failed")
		msg := ae.Error()
		if ae.Status >= http.StatusInternalServerError {
			_ = c.Error(err)
			msg = "could not fetch listing"
		}
		c.JSON(ae.Status, gin.H{"success": false, "error": msg})
		return
	}
	response.RespondOK(c, gin.H{"success": true, "data": data})
}

// POST /api/properties
// Either a full property or {"url": "..."} to import a listing.
func (h *PropertyHandler) CreateProperty(c *gin.Context) {
	var req struct {
		types.Property
		URL string `json:"url"`
	}
	if !bindJSON(c, &req) {
		return
	}
	var (
		p   *types.Property
		err error
	)
	if url := strings.TrimSpace(req.URL); url != "" && strings.TrimSpace(req.Address) == "" {
		p, err = h.properties.Import(dbcOf(c), url)
	} else {
		p, err = h.properties.Create(dbcOf(c), &req.Property)
	}
	if err != nil {
		response.RespondServiceError(c, "create_property_failed", err)
		return
	}
	response.RespondCreated(c, gin.H{"property": p})
}

// GET /api/properties/:id
func (h *PropertyHandler) GetProperty(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	p, err := h.properties.Get(dbcOf(c), id)
	if err != nil {
		response.RespondServiceError(c, "get_property_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"property": p})
}

// POST /api/buyers/:id/properties
func (h *PropertyHandler) AttachToBuyer(c *gin.Context) {
	buyerID, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	var req struct {
		PropertyID string `json:"property_id"`
		Note       string `json:"note"`
	}
	if !bindJSON(c, &req) {
		return
	}
	propertyID, err := parseUUID(req.PropertyID, "property_id")
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_property_id", err)
		return
	}
	link, err := h.properties.AttachToBuyer(dbcOf(c), buyerID, propertyID, req.Note)
	if err != nil {
		response.RespondServiceError(c, "attach_property_failed", err)
		return
	}
	response.RespondCreated(c, gin.H{"buyer_property": link})
}

// GET /api/buyers/:id/properties?archived=true&favorites=true
func (h *PropertyHandler) ListForBuyer(c *gin.Context) {
	buyerID, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	h.list(c, buyerID.String())
}

func (h *PropertyHandler) list(c *gin.Context, rawBuyerID string) {
	buyerID, err := parseUUID(rawBuyerID, "buyer_id")
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_buyer_id", err)
		return
	}
	f := repos.BuyerPropertyFilter{
		IncludeArchived: c.Query("archived") == "true",
		FavoritesOnly:   c.Query("favorites") == "true",
	}
	out, err := h.properties.ListForBuyer(dbcOf(c), buyerID, f)
	if err != nil {
		response.RespondServiceError(c, "list_properties_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"properties": out})
}

type propertyFlagsRequest struct {
	Favorited *bool `json:"favorited"`
	Archived  *bool `json:"archived"`
}

// PATCH /api/buyers/:id/properties/:propertyId
func (h *PropertyHandler) UpdateFlags(c *gin.Context) {
	buyerID, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	h.updateFlags(c, buyerID.String())
}

func (h *PropertyHandler) updateFlags(c *gin.Context, rawBuyerID string) {
	buyerID, err := parseUUID(rawBuyerID, "buyer_id")
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_buyer_id", err)
		return
	}
	propertyID, ok := paramUUID(c, "propertyId")
	if !ok {
		return
	}
	var req propertyFlagsRequest
	if !bindJSON(c, &req) {
		return
	}
	if req.Favorited == nil && req.Archived == nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", errMissing("favorited or archived"))
		return
	}
	var link *types.BuyerProperty
	if req.Favorited != nil {
		if link, err = h.properties.SetFavorite(dbcOf(c), buyerID, propertyID, *req.Favorited); err != nil {
			response.RespondServiceError(c, "update_property_failed", err)
			return
		}
	}
	if req.Archived != nil {
		if link, err = h.properties.SetArchived(dbcOf(c), buyerID, propertyID, *req.Archived); err != nil {
			response.RespondServiceError(c, "update_property_failed", err)
			return
		}
	}
	response.RespondOK(c, gin.H{"buyer_property": link})
}

// POST /api/buyers/:id/properties/:propertyId/viewed
func (h *PropertyHandler) MarkViewed(c *gin.Context) {
	buyerID, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	h.markViewed(c, buyerID.String())
}

func (h *PropertyHandler) markViewed(c *gin.Context, rawBuyerID string) {
	buyerID, err := parseUUID(rawBuyerID, "buyer_id")
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_buyer_id", err)
		return
	}
	propertyID, ok := paramUUID(c, "propertyId")
	if !ok {
		return
	}
	link, err := h.properties.MarkViewed(dbcOf(c), buyerID, propertyID)
	if err != nil {
		response.RespondServiceError(c, "mark_viewed_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"buyer_property": link})
}
