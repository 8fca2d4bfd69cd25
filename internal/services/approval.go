package services

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/buyerdesk-backend/internal/data/repos"
	types "github.com/yungbote/buyerdesk-backend/internal/domain"
	"github.com/yungbote/buyerdesk-backend/internal/observability"
	"github.com/yungbote/buyerdesk-backend/internal/pkg/dbctx"
	"github.com/yungbote/buyerdesk-backend/internal/pkg/errs"
	"github.com/yungbote/buyerdesk-backend/internal/platform/logger"
)

// ApprovalService is the only path by which buyer-facing AI content becomes
// visible to a buyer.
type ApprovalService interface {
	Approve(dbc dbctx.Context, itemID uuid.UUID) (*types.Item, error)
	Reject(dbc dbctx.Context, itemID uuid.UUID, reason string) (*types.Item, error)
	ListPending(dbc dbctx.Context, buyerID *uuid.UUID, limit int) ([]*types.Item, error)
}

type approvalService struct {
	db        *gorm.DB
	log       *logger.Logger
	buyers    repos.BuyerRepo
	items     repos.ItemRepo
	artifacts repos.ArtifactRepo
	notify    WorkspaceNotifier
}

func NewApprovalService(
	db *gorm.DB,
	baseLog *logger.Logger,
	buyers repos.BuyerRepo,
	items repos.ItemRepo,
	artifacts repos.ArtifactRepo,
	notify WorkspaceNotifier,
) ApprovalService {
	if notify == nil {
		notify = NewWorkspaceNotifier(nil)
	}
	return &approvalService{
		db:        db,
		log:       baseLog.With("service", "ApprovalService"),
		buyers:    buyers,
		items:     items,
		artifacts: artifacts,
		notify:    notify,
	}
}

// decide loads the item and its buyer, applies fn to the in-memory item and
// persists it with a compare-and-set on the prior status.
func (s *approvalService) decide(dbc dbctx.Context, itemID uuid.UUID, fn func(inner dbctx.Context, it *types.Item, by uuid.UUID, now time.Time) error) (*types.Item, *types.Buyer, error) {
	sess, err := requireAgent(dbc, accessWrite)
	if err != nil {
		return nil, nil, err
	}
	var (
		out   *types.Item
		buyer *types.Buyer
	)
	err = s.db.WithContext(dbc.Ctx).Transaction(func(tx *gorm.DB) error {
		inner := dbc.WithTx(tx)
		it, err := s.items.GetByID(inner, itemID)
		if err != nil {
			return err
		}
		if buyer, err = loadBuyer(inner, s.buyers, sess, it.BuyerID, accessWrite); err != nil {
			return err
		}
		from := it.ApprovalStatus
		now := time.Now().UTC()
		if err := fn(inner, it, sess.UserID, now); err != nil {
			return err
		}
		if err := s.items.SaveApproval(inner, it, from); err != nil {
			return err
		}
		if err := s.buyers.Touch(inner, buyer.ID, now); err != nil {
			return err
		}
		it.UpdatedAt = now
		out = it
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return out, buyer, nil
}

func (s *approvalService) Approve(dbc dbctx.Context, itemID uuid.UUID) (*types.Item, error) {
	it, buyer, err := s.decide(dbc, itemID, func(inner dbctx.Context, it *types.Item, by uuid.UUID, now time.Time) error {
		if err := it.Approve(by, now); err != nil {
			return err
		}
		// Artifacts drafted alongside this item go out with it.
		_, err := s.artifacts.ShareByItem(inner, it.ID, now)
		return err
	})
	if err != nil {
		if !errors.Is(err, errs.ErrInvalidTransition) {
			s.log.Warn("approve failed", "item_id", itemID, "error", err)
		}
		return nil, err
	}
	s.log.Info("item approved", "item_id", it.ID, "buyer_id", it.BuyerID)
	observability.Current().IncApproval("approved")
	s.notify.ItemApproved(buyer, it)
	return it, nil
}

func (s *approvalService) Reject(dbc dbctx.Context, itemID uuid.UUID, reason string) (*types.Item, error) {
	it, buyer, err := s.decide(dbc, itemID, func(_ dbctx.Context, it *types.Item, _ uuid.UUID, _ time.Time) error {
		return it.Reject(reason)
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("item rejected", "item_id", it.ID, "buyer_id", it.BuyerID)
	observability.Current().IncApproval("rejected")
	s.notify.ItemRejected(buyer, it)
	return it, nil
}

func (s *approvalService) ListPending(dbc dbctx.Context, buyerID *uuid.UUID, limit int) ([]*types.Item, error) {
	sess, err := requireAgent(dbc, accessRead)
	if err != nil {
		return nil, err
	}
	if buyerID != nil {
		if _, err := loadBuyer(dbc, s.buyers, sess, *buyerID, accessRead); err != nil {
			return nil, err
		}
	}
	return s.items.ListPending(dbc, repos.PendingFilter{
		AgentID: agentScope(sess),
		BuyerID: buyerID,
		Limit:   limit,
	})
}
