package app

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/yungbote/buyerdesk-backend/internal/domain/stage"
	"github.com/yungbote/buyerdesk-backend/internal/jobs/worker"
	"github.com/yungbote/buyerdesk-backend/internal/pkg/httpx"
	"github.com/yungbote/buyerdesk-backend/internal/platform/envutil"
	"github.com/yungbote/buyerdesk-backend/internal/platform/logger"
	"github.com/yungbote/buyerdesk-backend/internal/realtime"
	"github.com/yungbote/buyerdesk-backend/internal/services"
)

type Services struct {
	Catalog *stage.Catalog
	Notify  services.WorkspaceNotifier

	Auth         services.AuthService
	Buyer        services.BuyerService
	Stage        services.StageService
	Approval     services.ApprovalService
	Conversation services.ConversationService
	Drafting     services.DraftingService
	Offer        services.OfferService
	Task         services.TaskService
	Property     services.PropertyService
	Artifact     services.ArtifactService
	Template     services.TemplateService
	Dashboard    services.DashboardService

	TemplateWorker *worker.Worker
}

func loadCatalog(cfg Config) (*stage.Catalog, error) {
	if cfg.StageCatalogPath == "" {
		return stage.Default(), nil
	}
	c, err := stage.Load(cfg.StageCatalogPath)
	if err != nil {
		return nil, fmt.Errorf("load stage catalog: %w", err)
	}
	return c, nil
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, repos Repos, clients Clients, hub *realtime.SSEHub) (Services, error) {
	log.Info("Wiring services...")

	catalog, err := loadCatalog(cfg)
	if err != nil {
		return Services{}, err
	}

	// With a bus every instance, this one included, delivers through its
	// forwarder; otherwise events go straight to the local hub.
	var emit services.SSEEmitter = &services.HubEmitter{Hub: hub}
	if clients.SSEBus != nil {
		emit = &services.BusEmitter{Bus: clients.SSEBus, Log: log}
	}
	notify := services.NewWorkspaceNotifier(emit)
	retry := httpx.RateLimitPolicy()

	queue := worker.NewQueue(envutil.Int("TEMPLATE_QUEUE_SIZE", 64))
	template := services.NewTemplateService(
		db, log, clients.LLM, clients.Fetch,
		services.TemplateConfig{
			Model:       cfg.LLM.Model,
			MaxBytes:    cfg.TemplateMaxBytes,
			MaxPrompt:   cfg.TemplateMaxPrompt,
			HTTPTimeout: cfg.FetchTimeout,
		},
		retry, repos.OfferTemplate, queue, notify,
	)

	return Services{
		Catalog: catalog,
		Notify:  notify,

		Auth:         services.NewAuthService(log, cfg.JWTSecretKey, cfg.AccessTokenTTL),
		Buyer:        services.NewBuyerService(db, log, catalog, repos.Buyer),
		Stage:        services.NewStageService(db, log, catalog, repos.Buyer, repos.Item, notify),
		Approval:     services.NewApprovalService(db, log, repos.Buyer, repos.Item, repos.Artifact, notify),
		Conversation: services.NewConversationService(db, log, catalog, repos.Buyer, repos.Item, notify),
		Drafting: services.NewDraftingService(
			db, log, catalog, clients.LLM,
			services.DraftingConfig{Model: cfg.LLM.Model, MaxTokens: cfg.DraftMaxTokens},
			repos.Buyer, repos.Item, repos.Artifact, notify,
		),
		Offer:     services.NewOfferService(db, log, repos.Buyer, repos.Item, repos.Offer, notify),
		Task:      services.NewTaskService(db, log, repos.Buyer, repos.Item, repos.Task, notify),
		Property:  services.NewPropertyService(db, log, clients.Scraper, retry, repos.Buyer, repos.Property, repos.BuyerProperty, notify),
		Artifact:  services.NewArtifactService(db, log, repos.Buyer, repos.Item, repos.Artifact, notify),
		Template:  template,
		Dashboard: services.NewDashboardService(log, catalog, repos.Buyer, repos.Item, repos.Task, repos.Offer),

		TemplateWorker: worker.NewWorker(log, queue, template),
	}, nil
}
