package app

import (
	"gorm.io/gorm"

	httpH "github.com/yungbote/buyerdesk-backend/internal/http/handlers"
	"github.com/yungbote/buyerdesk-backend/internal/platform/logger"
	"github.com/yungbote/buyerdesk-backend/internal/realtime"
)

type Handlers struct {
	Health    *httpH.HealthHandler
	Buyer     *httpH.BuyerHandler
	Item      *httpH.ItemHandler
	Draft     *httpH.DraftHandler
	Offer     *httpH.OfferHandler
	Task      *httpH.TaskHandler
	Property  *httpH.PropertyHandler
	Artifact  *httpH.ArtifactHandler
	Template  *httpH.TemplateHandler
	Dashboard *httpH.DashboardHandler
	Portal    *httpH.PortalHandler
	Realtime  *httpH.RealtimeHandler
}

func wireHandlers(db *gorm.DB, log *logger.Logger, services Services, sseHub *realtime.SSEHub) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Health:    httpH.NewHealthHandler(db),
		Buyer:     httpH.NewBuyerHandler(services.Buyer, services.Stage),
		Item:      httpH.NewItemHandler(services.Conversation, services.Approval),
		Draft:     httpH.NewDraftHandler(log, services.Drafting),
		Offer:     httpH.NewOfferHandler(services.Offer),
		Task:      httpH.NewTaskHandler(services.Task),
		Property:  httpH.NewPropertyHandler(services.Property),
		Artifact:  httpH.NewArtifactHandler(services.Artifact),
		Template:  httpH.NewTemplateHandler(services.Template),
		Dashboard: httpH.NewDashboardHandler(services.Dashboard),
		Portal: httpH.NewPortalHandler(
			services.Buyer, services.Stage, services.Conversation, services.Artifact, services.Property,
		),
		Realtime: httpH.NewRealtimeHandler(log, sseHub, services.Buyer),
	}
}
