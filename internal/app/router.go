package app

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/buyerdesk-backend/internal/http"
	"github.com/yungbote/buyerdesk-backend/internal/observability"
	"github.com/yungbote/buyerdesk-backend/internal/platform/logger"
)

func wireRouter(log *logger.Logger, cfg Config, metrics *observability.Metrics, handlers Handlers, middleware Middleware) *gin.Engine {
	return http.NewRouter(http.RouterConfig{
		Log:              log,
		Metrics:          metrics,
		ServiceName:      "buyerdesk-api",
		CORSOrigins:      cfg.CORSOrigins,
		AuthMiddleware:   middleware.Auth,
		HealthHandler:    handlers.Health,
		BuyerHandler:     handlers.Buyer,
		ItemHandler:      handlers.Item,
		DraftHandler:     handlers.Draft,
		OfferHandler:     handlers.Offer,
		TaskHandler:      handlers.Task,
		PropertyHandler:  handlers.Property,
		ArtifactHandler:  handlers.Artifact,
		TemplateHandler:  handlers.Template,
		DashboardHandler: handlers.Dashboard,
		PortalHandler:    handlers.Portal,
		RealtimeHandler:  handlers.Realtime,
	})
}
