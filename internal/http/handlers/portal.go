package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/buyerdesk-backend/internal/http/response"
	"github.com/yungbote/buyerdesk-backend/internal/platform/ctxutil"
	"github.com/yungbote/buyerdesk-backend/internal/services"
)

// PortalHandler serves the buyer's own view. Every route resolves the buyer
// from the session, never from the request.
type PortalHandler struct {
	buyers       services.BuyerService
	stages       services.StageService
	conversation services.ConversationService
	artifacts    services.ArtifactService
	properties   *PropertyHandler
}

func NewPortalHandler(
	buyers services.BuyerService,
	stages services.StageService,
	conversation services.ConversationService,
	artifacts services.ArtifactService,
	properties services.PropertyService,
) *PortalHandler {
	return &PortalHandler{
		buyers:       buyers,
		stages:       stages,
		conversation: conversation,
		artifacts:    artifacts,
		properties:   NewPropertyHandler(properties),
	}
}

func portalSession(c *gin.Context) (*ctxutil.Session, bool) {
	sess := ctxutil.GetSession(c.Request.Context())
	if !sess.IsBuyer() {
		response.RespondError(c, http.StatusForbidden, "forbidden", errMissing("buyer session"))
		return nil, false
	}
	return sess, true
}

// GET /api/portal/profile
func (h *PortalHandler) Profile(c *gin.Context) {
	p, err := h.buyers.Profile(dbcOf(c))
	if err != nil {
		response.RespondServiceError(c, "get_profile_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"profile": p})
}

// GET /api/portal/stages
func (h *PortalHandler) Stages(c *gin.Context) {
	p, err := h.buyers.Profile(dbcOf(c))
	if err != nil {
		response.RespondServiceError(c, "get_stages_failed", err)
		return
	}
	response.RespondOK(c, gin.H{
		"stages":        h.stages.Catalog().All(),
		"current_stage": p.CurrentStage,
	})
}

// GET /api/portal/feed?stage=&after_seq=&limit=
func (h *PortalHandler) Feed(c *gin.Context) {
	sess, ok := portalSession(c)
	if !ok {
		return
	}
	f, err := itemFilter(c)
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_query", err)
		return
	}
	out, err := h.conversation.ListBuyerFeed(dbcOf(c), sess.BuyerID, f)
	if err != nil {
		response.RespondServiceError(c, "list_feed_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"items": out})
}

// POST /api/portal/messages
func (h *PortalHandler) PostMessage(c *gin.Context) {
	sess, ok := portalSession(c)
	if !ok {
		return
	}
	var req postMessageRequest
	if !bindJSON(c, &req) {
		return
	}
	it, err := h.conversation.PostMessage(dbcOf(c), sess.BuyerID, req.Content, req.Stage)
	if err != nil {
		response.RespondServiceError(c, "post_message_failed", err)
		return
	}
	response.RespondCreated(c, gin.H{"item": it})
}

// GET /api/portal/properties?favorites=true
func (h *PortalHandler) ListProperties(c *gin.Context) {
	sess, ok := portalSession(c)
	if !ok {
		return
	}
	h.properties.list(c, sess.BuyerID.String())
}

// PATCH /api/portal/properties/:propertyId
func (h *PortalHandler) UpdateProperty(c *gin.Context) {
	sess, ok := portalSession(c)
	if !ok {
		return
	}
	h.properties.updateFlags(c, sess.BuyerID.String())
}

// POST /api/portal/properties/:propertyId/viewed
func (h *PortalHandler) MarkViewed(c *gin.Context) {
	sess, ok := portalSession(c)
	if !ok {
		return
	}
	h.properties.markViewed(c, sess.BuyerID.String())
}

// GET /api/portal/artifacts
func (h *PortalHandler) ListArtifacts(c *gin.Context) {
	sess, ok := portalSession(c)
	if !ok {
		return
	}
	out, err := h.artifacts.List(dbcOf(c), sess.BuyerID)
	if err != nil {
		response.RespondServiceError(c, "list_artifacts_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"artifacts": out})
}

// GET /api/portal/artifacts/:id
func (h *PortalHandler) GetArtifact(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	a, err := h.artifacts.Get(dbcOf(c), id)
	if err != nil {
		response.RespondServiceError(c, "get_artifact_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"artifact": a})
}
