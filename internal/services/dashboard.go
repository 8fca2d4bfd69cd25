package services

import (
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/yungbote/buyerdesk-backend/internal/data/repos"
	types "github.com/yungbote/buyerdesk-backend/internal/domain"
	"github.com/yungbote/buyerdesk-backend/internal/domain/stage"
	"github.com/yungbote/buyerdesk-backend/internal/pkg/dbctx"
	"github.com/yungbote/buyerdesk-backend/internal/platform/logger"
)

type StageCount struct {
	Index int    `json:"index"`
	Title string `json:"title"`
	Count int64  `json:"count"`
}

type DashboardSummary struct {
	BuyersByStage    []StageCount                `json:"buyers_by_stage"`
	TotalBuyers      int64                       `json:"total_buyers"`
	PendingApprovals int64                       `json:"pending_approvals"`
	OpenTasks        int64                       `json:"open_tasks"`
	OverdueTasks     int64                       `json:"overdue_tasks"`
	OffersByStatus   map[types.OfferStatus]int64 `json:"offers_by_status"`
	GeneratedAt      time.Time                   `json:"generated_at"`
}

type DashboardService interface {
	Summary(dbc dbctx.Context) (*DashboardSummary, error)
}

type dashboardService struct {
	log     *logger.Logger
	catalog *stage.Catalog
	buyers  repos.BuyerRepo
	items   repos.ItemRepo
	tasks   repos.TaskRepo
	offers  repos.OfferRepo
}

func NewDashboardService(baseLog *logger.Logger, catalog *stage.Catalog, buyers repos.BuyerRepo, items repos.ItemRepo, tasks repos.TaskRepo, offers repos.OfferRepo) DashboardService {
	return &dashboardService{
		log:     baseLog.With("service", "DashboardService"),
		catalog: catalog,
		buyers:  buyers,
		items:   items,
		tasks:   tasks,
		offers:  offers,
	}
}

func (s *dashboardService) Summary(dbc dbctx.Context) (*DashboardSummary, error) {
	sess, err := requireAgent(dbc, accessRead)
	if err != nil {
		return nil, err
	}
	scope := agentScope(sess)
	now := time.Now().UTC()

	var (
		byStage  map[int]int64
		byStatus map[types.OfferStatus]int64
		out      = &DashboardSummary{GeneratedAt: now}
	)
	g, ctx := errgroup.WithContext(dbc.Ctx)
	gdbc := dbc
	gdbc.Ctx = ctx
	g.Go(func() error {
		var err error
		byStage, err = s.buyers.CountByStage(gdbc, scope)
		return err
	})
	g.Go(func() error {
		var err error
		out.PendingApprovals, err = s.items.CountPending(gdbc, scope)
		return err
	})
	g.Go(func() error {
		var err error
		out.OpenTasks, err = s.tasks.CountOpen(gdbc, scope)
		return err
	})
	g.Go(func() error {
		var err error
		out.OverdueTasks, err = s.tasks.CountOverdue(gdbc, scope, now)
		return err
	})
	g.Go(func() error {
		var err error
		byStatus, err = s.offers.CountByStatus(gdbc, scope)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, st := range s.catalog.All() {
		n := byStage[st.Index]
		out.TotalBuyers += n
		out.BuyersByStage = append(out.BuyersByStage, StageCount{Index: st.Index, Title: st.Title, Count: n})
	}
	if byStatus == nil {
		byStatus = map[types.OfferStatus]int64{}
	}
	out.OffersByStatus = byStatus
	return out, nil
}
