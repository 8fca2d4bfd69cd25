package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/buyerdesk-backend/internal/http/response"
	"github.com/yungbote/buyerdesk-backend/internal/services"
)

type ArtifactHandler struct {
	artifacts services.ArtifactService
}

func NewArtifactHandler(artifacts services.ArtifactService) *ArtifactHandler {
	return &ArtifactHandler{artifacts: artifacts}
}

// POST /api/buyers/:id/artifacts
func (h *ArtifactHandler) CreateArtifact(c *gin.Context) {
	buyerID, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	var req struct {
		Title   string `json:"title"`
		Content string `json:"content"`
	}
	if !bindJSON(c, &req) {
		return
	}
	a, err := h.artifacts.Create(dbcOf(c), buyerID, req.Title, req.Content)
	if err != nil {
		response.RespondServiceError(c, "create_artifact_failed", err)
		return
	}
	response.RespondCreated(c, gin.H{"artifact": a})
}

// GET /api/buyers/:id/artifacts
func (h *ArtifactHandler) ListArtifacts(c *gin.Context) {
	buyerID, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	out, err := h.artifacts.List(dbcOf(c), buyerID)
	if err != nil {
		response.RespondServiceError(c, "list_artifacts_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"artifacts": out})
}

// GET /api/artifacts/:id
func (h *ArtifactHandler) GetArtifact(c *gin.Context) {
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

// POST /api/artifacts/:id/share
func (h *ArtifactHandler) ShareArtifact(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	a, err := h.artifacts.Share(dbcOf(c), id)
	if err != nil {
		response.RespondServiceError(c, "share_artifact_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"artifact": a})
}
