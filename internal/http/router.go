package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/buyerdesk-backend/internal/http/handlers"
	httpMW "github.com/yungbote/buyerdesk-backend/internal/http/middleware"
	"github.com/yungbote/buyerdesk-backend/internal/observability"
	"github.com/yungbote/buyerdesk-backend/internal/platform/ctxutil"
	"github.com/yungbote/buyerdesk-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log         *logger.Logger
	Metrics     *observability.Metrics
	ServiceName string
	CORSOrigins []string

	AuthMiddleware *httpMW.AuthMiddleware

	HealthHandler    *httpH.HealthHandler
	BuyerHandler     *httpH.BuyerHandler
	ItemHandler      *httpH.ItemHandler
	DraftHandler     *httpH.DraftHandler
	OfferHandler     *httpH.OfferHandler
	TaskHandler      *httpH.TaskHandler
	PropertyHandler  *httpH.PropertyHandler
	ArtifactHandler  *httpH.ArtifactHandler
	TemplateHandler  *httpH.TemplateHandler
	DashboardHandler *httpH.DashboardHandler
	PortalHandler    *httpH.PortalHandler
	RealtimeHandler  *httpH.RealtimeHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.CORS(cfg.CORSOrigins))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))
	}

	api := r.Group("/api")
	if cfg.AuthMiddleware != nil {
		api.Use(cfg.AuthMiddleware.RequireAuth())
	}

	// Realtime (SSE), every role; brokers may still pick channels
	if cfg.RealtimeHandler != nil {
		api.GET("/sse/stream", cfg.RealtimeHandler.SSEStream)
		api.POST("/sse/subscribe", cfg.RealtimeHandler.SSESubscribe)
		api.POST("/sse/unsubscribe", cfg.RealtimeHandler.SSEUnsubscribe)
	}

	desk := api.Group("/", httpMW.RequireRole(ctxutil.RoleAgent, ctxutil.RoleBroker), httpMW.RequireWrite())
	{
		// Buyers and stages
		if cfg.BuyerHandler != nil {
			desk.GET("/stages", cfg.BuyerHandler.ListStages)
			desk.POST("/buyers", cfg.BuyerHandler.CreateBuyer)
			desk.GET("/buyers", cfg.BuyerHandler.ListBuyers)
			desk.GET("/buyers/:id", cfg.BuyerHandler.GetBuyer)
			desk.PATCH("/buyers/:id", cfg.BuyerHandler.UpdateBuyer)
			desk.POST("/buyers/:id/stage", cfg.BuyerHandler.AdvanceStage)
		}

		// Conversation items and approvals
		if cfg.ItemHandler != nil {
			desk.GET("/buyers/:id/items", cfg.ItemHandler.ListItems)
			desk.POST("/buyers/:id/messages", cfg.ItemHandler.PostMessage)
			desk.POST("/buyers/:id/blocks", cfg.ItemHandler.AddBlock)
			desk.PATCH("/items/:id", cfg.ItemHandler.EditMessage)
			desk.POST("/items/:id/lock", cfg.ItemHandler.LockMessage)
			desk.POST("/items/:id/expanded", cfg.ItemHandler.SetExpanded)
			desk.POST("/items/:id/approve", cfg.ItemHandler.Approve)
			desk.POST("/items/:id/reject", cfg.ItemHandler.Reject)
			desk.GET("/approvals", cfg.ItemHandler.ListPending)
		}

		// AI drafting
		if cfg.DraftHandler != nil {
			desk.POST("/ai/draft", cfg.DraftHandler.Draft)
		}

		// Offers
		if cfg.OfferHandler != nil {
			desk.POST("/offers", cfg.OfferHandler.CreateOffer)
			desk.GET("/offers", cfg.OfferHandler.ListOffers)
			desk.GET("/offers/:id", cfg.OfferHandler.GetOffer)
			desk.PATCH("/offers/:id", cfg.OfferHandler.UpdateOffer)
			desk.POST("/offers/:id/status", cfg.OfferHandler.SetStatus)
		}

		// Tasks
		if cfg.TaskHandler != nil {
			desk.POST("/tasks", cfg.TaskHandler.CreateTask)
			desk.GET("/tasks", cfg.TaskHandler.ListTasks)
			desk.GET("/tasks/:id", cfg.TaskHandler.GetTask)
			desk.PATCH("/tasks/:id", cfg.TaskHandler.UpdateTask)
			desk.POST("/tasks/:id/status", cfg.TaskHandler.SetStatus)
			desk.DELETE("/tasks/:id", cfg.TaskHandler.DeleteTask)
		}

		// Properties
		if cfg.PropertyHandler != nil {
			desk.POST("/properties/scrape", cfg.PropertyHandler.Scrape)
			desk.POST("/properties", cfg.PropertyHandler.CreateProperty)
			desk.GET("/properties/:id", cfg.PropertyHandler.GetProperty)
			desk.POST("/buyers/:id/properties", cfg.PropertyHandler.AttachToBuyer)
			desk.GET("/buyers/:id/properties", cfg.PropertyHandler.ListForBuyer)
			desk.PATCH("/buyers/:id/properties/:propertyId", cfg.PropertyHandler.UpdateFlags)
			desk.POST("/buyers/:id/properties/:propertyId/viewed", cfg.PropertyHandler.MarkViewed)
		}

		// Artifacts
		if cfg.ArtifactHandler != nil {
			desk.POST("/buyers/:id/artifacts", cfg.ArtifactHandler.CreateArtifact)
			desk.GET("/buyers/:id/artifacts", cfg.ArtifactHandler.ListArtifacts)
			desk.GET("/artifacts/:id", cfg.ArtifactHandler.GetArtifact)
			desk.POST("/artifacts/:id/share", cfg.ArtifactHandler.ShareArtifact)
		}

		// Offer templates
		if cfg.TemplateHandler != nil {
			desk.POST("/offer-templates", cfg.TemplateHandler.CreateTemplate)
			desk.GET("/offer-templates", cfg.TemplateHandler.ListTemplates)
			desk.GET("/offer-templates/:id", cfg.TemplateHandler.GetTemplate)
			desk.POST("/offer-templates/:id/analyze", cfg.TemplateHandler.Analyze)
			desk.POST("/offer-templates/:id/retry", cfg.TemplateHandler.Retry)
		}

		// Dashboard
		if cfg.DashboardHandler != nil {
			desk.GET("/dashboard", cfg.DashboardHandler.Summary)
		}
	}

	portal := api.Group("/portal", httpMW.RequireRole(ctxutil.RoleBuyer))
	{
		if cfg.PortalHandler != nil {
			portal.GET("/profile", cfg.PortalHandler.Profile)
			portal.GET("/stages", cfg.PortalHandler.Stages)
			portal.GET("/feed", cfg.PortalHandler.Feed)
			portal.POST("/messages", cfg.PortalHandler.PostMessage)
			portal.GET("/properties", cfg.PortalHandler.ListProperties)
			portal.PATCH("/properties/:propertyId", cfg.PortalHandler.UpdateProperty)
			portal.POST("/properties/:propertyId/viewed", cfg.PortalHandler.MarkViewed)
			portal.GET("/artifacts", cfg.PortalHandler.ListArtifacts)
			portal.GET("/artifacts/:id", cfg.PortalHandler.GetArtifact)
		}
		if cfg.RealtimeHandler != nil {
			portal.GET("/stream", cfg.RealtimeHandler.SSEStream)
		}
	}

	return r
}
