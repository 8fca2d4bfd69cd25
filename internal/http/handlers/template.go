package handlers

import (
	"github.com/gin-gonic/gin"

	types "github.com/yungbote/buyerdesk-backend/internal/domain"
	"github.com/yungbote/buyerdesk-backend/internal/http/response"
	"github.com/yungbote/buyerdesk-backend/internal/services"
)

type TemplateHandler struct {
	templates services.TemplateService
}

func NewTemplateHandler(templates services.TemplateService) *TemplateHandler {
	return &TemplateHandler{templates: templates}
}

// POST /api/offer-templates
func (h *TemplateHandler) CreateTemplate(c *gin.Context) {
	var in types.OfferTemplate
	if !bindJSON(c, &in) {
		return
	}
	t, err := h.templates.Create(dbcOf(c), &in)
	if err != nil {
		response.RespondServiceError(c, "create_template_failed", err)
		return
	}
	response.RespondCreated(c, gin.H{"template": t})
}

// GET /api/offer-templates
func (h *TemplateHandler) ListTemplates(c *gin.Context) {
	out, err := h.templates.List(dbcOf(c))
	if err != nil {
		response.RespondServiceError(c, "list_templates_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"templates": out})
}

// GET /api/offer-templates/:id
func (h *TemplateHandler) GetTemplate(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	t, err := h.templates.Get(dbcOf(c), id)
	if err != nil {
		response.RespondServiceError(c, "get_template_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"template": t})
}

func ack(t *types.OfferTemplate) gin.H {
	return gin.H{
		"accepted":        true,
		"template_id":     t.ID,
		"analysis_status": t.AnalysisStatus,
	}
}

// POST /api/offer-templates/:id/analyze
// Analysis always runs in the background; the body's async flag is ignored.
func (h *TemplateHandler) Analyze(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	var in services.AnalyzeInput
	// An empty body re-analyzes the stored file.
	if !bindOptionalJSON(c, &in) {
		return
	}
	t, err := h.templates.Analyze(dbcOf(c), id, in)
	if err != nil {
		response.RespondServiceError(c, "analyze_template_failed", err)
		return
	}
	response.RespondAccepted(c, ack(t))
}

// POST /api/offer-templates/:id/retry
func (h *TemplateHandler) Retry(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	t, err := h.templates.Retry(dbcOf(c), id)
	if err != nil {
		response.RespondServiceError(c, "retry_template_failed", err)
		return
	}
	response.RespondAccepted(c, ack(t))
}
