package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/buyerdesk-backend/internal/data/repos"
	types "github.com/yungbote/buyerdesk-backend/internal/domain"
	"github.com/yungbote/buyerdesk-backend/internal/domain/stage"
	"github.com/yungbote/buyerdesk-backend/internal/domain/workspace"
	"github.com/yungbote/buyerdesk-backend/internal/observability"
	"github.com/yungbote/buyerdesk-backend/internal/pkg/dbctx"
	"github.com/yungbote/buyerdesk-backend/internal/pkg/errs"
	"github.com/yungbote/buyerdesk-backend/internal/platform/logger"
)

type StageService interface {
	Catalog() *stage.Catalog
	CurrentStage(b *types.Buyer) int
	// AdvanceStage moves a buyer forward any number of stages, or back by
	// exactly one, and records a stage-advanced event in the target stage.
	AdvanceStage(dbc dbctx.Context, buyerID uuid.UUID, target int) (*types.Buyer, *types.Item, error)
}

type stageService struct {
	db      *gorm.DB
	log     *logger.Logger
	catalog *stage.Catalog
	buyers  repos.BuyerRepo
	items   repos.ItemRepo
	notify  WorkspaceNotifier
}

func NewStageService(
	db *gorm.DB,
	baseLog *logger.Logger,
	catalog *stage.Catalog,
	buyers repos.BuyerRepo,
	items repos.ItemRepo,
	notify WorkspaceNotifier,
) StageService {
	if notify == nil {
		notify = NewWorkspaceNotifier(nil)
	}
	return &stageService{
		db:      db,
		log:     baseLog.With("service", "StageService"),
		catalog: catalog,
		buyers:  buyers,
		items:   items,
		notify:  notify,
	}
}

func (s *stageService) Catalog() *stage.Catalog { return s.catalog }

// CurrentStage clamps rows written before a catalog change back into range.
func (s *stageService) CurrentStage(b *types.Buyer) int {
	if b == nil || b.CurrentStage < 0 {
		return 0
	}
	if n := s.catalog.Len(); b.CurrentStage >= n {
		return n - 1
	}
	return b.CurrentStage
}

func (s *stageService) AdvanceStage(dbc dbctx.Context, buyerID uuid.UUID, target int) (*types.Buyer, *types.Item, error) {
	sess, err := requireAgent(dbc, accessWrite)
	if err != nil {
		return nil, nil, err
	}
	var (
		updated *types.Buyer
		event   *types.Item
		from    int
	)
	err = s.db.WithContext(dbc.Ctx).Transaction(func(tx *gorm.DB) error {
		inner := dbc.WithTx(tx)
		b, err := loadBuyer(inner, s.buyers, sess, buyerID, accessWrite)
		if err != nil {
			return err
		}
		from = s.CurrentStage(b)
		if !s.catalog.CanMove(from, target) {
			return fmt.Errorf("buyer %s from stage %d to %d: %w", b.ID, from, target, errs.ErrInvalidStageTransition)
		}
		dest, _ := s.catalog.StageAt(target)
		now := time.Now().UTC()
		if err := s.buyers.UpdateFields(inner, b.ID, map[string]interface{}{
			"current_stage":    target,
			"last_activity_at": now,
			"updated_at":       now,
		}); err != nil {
			return err
		}

		origin, _ := s.catalog.StageAt(from)
		desc := fmt.Sprintf("Moved from %s to %s.", origin.Title, dest.Title)
		if target < from {
			desc = fmt.Sprintf("Moved back from %s to %s.", origin.Title, dest.Title)
		}
		it := workspace.NewItem(b.ID, target, workspace.SystemEvent{
			EventType:   types.EventStageAdvanced,
			Title:       dest.Title,
			Description: desc,
		})
		if event, err = s.items.Create(inner, it); err != nil {
			return err
		}

		next := *b
		next.CurrentStage = target
		next.LastActivityAt = now
		next.UpdatedAt = now
		updated = &next
		return nil
	})
	if err != nil {
		if !errors.Is(err, errs.ErrInvalidStageTransition) {
			s.log.Warn("stage advance failed", "buyer_id", buyerID, "target", target, "error", err)
		}
		return nil, nil, err
	}
	s.log.Info("buyer stage advanced", "buyer_id", updated.ID, "from", from, "to", target)
	observability.Current().IncStageMove(from, target)
	s.notify.StageAdvanced(updated, from, event)
	return updated, event, nil
}
