package workspace

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/buyerdesk-backend/internal/domain"
	ws "github.com/yungbote/buyerdesk-backend/internal/domain/workspace"
	"github.com/yungbote/buyerdesk-backend/internal/pkg/dbctx"
	"github.com/yungbote/buyerdesk-backend/internal/pkg/errs"
	"github.com/yungbote/buyerdesk-backend/internal/platform/logger"
)

type ItemFilter struct {
	Stage    *int
	Kinds    []types.ItemKind
	AfterSeq int64
	Limit    int
}

type PendingFilter struct {
	AgentID *uuid.UUID
	BuyerID *uuid.UUID
	Limit   int
}

type ItemRepo interface {
	Create(dbc dbctx.Context, it *types.Item) (*types.Item, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Item, error)
	ListByBuyer(dbc dbctx.Context, buyerID uuid.UUID, f ItemFilter) ([]*types.Item, error)
	// ListBuyerVisible is the portal read path; it always applies BuyerVisible.
	ListBuyerVisible(dbc dbctx.Context, buyerID uuid.UUID, f ItemFilter) ([]*types.Item, error)
	ListPending(dbc dbctx.Context, f PendingFilter) ([]*types.Item, error)
	CountPending(dbc dbctx.Context, agentID *uuid.UUID) (int64, error)
	// SaveApproval persists the approval columns only if the stored status is
	// still from. A lost race surfaces as an invalid transition.
	SaveApproval(dbc dbctx.Context, it *types.Item, from types.ApprovalStatus) error
	// SaveDraftContent writes the final text of a streamed draft and clears
	// streaming, only while the row is still streaming and undecided.
	SaveDraftContent(dbc dbctx.Context, it *types.Item) error
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
}

type itemRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewItemRepo(db *gorm.DB, log *logger.Logger) ItemRepo {
	return &itemRepo{db: db, log: log.With("repo", "ItemRepo")}
}

func (r *itemRepo) Create(dbc dbctx.Context, it *types.Item) (*types.Item, error) {
	if it == nil || it.BuyerID == uuid.Nil {
		return nil, fmt.Errorf("missing buyer_id")
	}
	txx := dbc.DB(r.db)
	var maxSeq int64
	if err := txx.Model(&types.Item{}).
		Unscoped().
		Select("COALESCE(MAX(seq), 0)").
		Where("buyer_id = ?", it.BuyerID).
		Scan(&maxSeq).Error; err != nil {
		return nil, err
	}
	it.Seq = maxSeq + 1
	if err := txx.Create(it).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("item seq %d for buyer %s: %w", it.Seq, it.BuyerID, errs.ErrConflict)
		}
		return nil, err
	}
	return it, nil
}

func (r *itemRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Item, error) {
	if id == uuid.Nil {
		return nil, fmt.Errorf("missing item_id")
	}
	var out types.Item
	if err := dbc.DB(r.db).Where("id = ?", id).First(&out).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("item %s: %w", id, errs.ErrNotFound)
		}
		return nil, err
	}
	return &out, nil
}

func (r *itemRepo) list(q *gorm.DB, buyerID uuid.UUID, f ItemFilter) ([]*types.Item, error) {
	if buyerID == uuid.Nil {
		return nil, fmt.Errorf("missing buyer_id")
	}
	limit := f.Limit
	if limit <= 0 || limit > 500 {
		limit = 200
	}
	q = q.Model(&types.Item{}).Where("workspace_item.buyer_id = ?", buyerID)
	if f.Stage != nil {
		q = q.Where("workspace_item.stage_index = ?", *f.Stage)
	}
	if len(f.Kinds) > 0 {
		q = q.Where("workspace_item.kind IN ?", f.Kinds)
	}
	if f.AfterSeq > 0 {
		q = q.Where("workspace_item.seq > ?", f.AfterSeq)
	}
	var out []*types.Item
	if err := q.Order("workspace_item.seq ASC").Limit(limit).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *itemRepo) ListByBuyer(dbc dbctx.Context, buyerID uuid.UUID, f ItemFilter) ([]*types.Item, error) {
	return r.list(dbc.DB(r.db), buyerID, f)
}

func (r *itemRepo) ListBuyerVisible(dbc dbctx.Context, buyerID uuid.UUID, f ItemFilter) ([]*types.Item, error) {
	return r.list(dbc.DB(r.db).Scopes(BuyerVisible), buyerID, f)
}

func (r *itemRepo) pendingQuery(dbc dbctx.Context, agentID, buyerID *uuid.UUID) *gorm.DB {
	q := dbc.DB(r.db).Model(&types.Item{}).
		Where("workspace_item.kind = ? AND workspace_item.audience = ? AND workspace_item.approval_status = ?",
			ws.KindAIExplanation, ws.AudienceBuyer, ws.ApprovalPending)
	if buyerID != nil {
		q = q.Where("workspace_item.buyer_id = ?", *buyerID)
	}
	if agentID != nil {
		q = q.Joins("JOIN buyer ON buyer.id = workspace_item.buyer_id AND buyer.deleted_at IS NULL").
			Where("buyer.agent_id = ?", *agentID)
	}
	return q
}

func (r *itemRepo) ListPending(dbc dbctx.Context, f PendingFilter) ([]*types.Item, error) {
	limit := f.Limit
	if limit <= 0 || limit > 200 {
		limit = 100
	}
	var out []*types.Item
	if err := r.pendingQuery(dbc, f.AgentID, f.BuyerID).
		Order("workspace_item.created_at ASC").
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *itemRepo) CountPending(dbc dbctx.Context, agentID *uuid.UUID) (int64, error) {
	var n int64
	if err := r.pendingQuery(dbc, agentID, nil).Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

func (r *itemRepo) SaveApproval(dbc dbctx.Context, it *types.Item, from types.ApprovalStatus) error {
	if it == nil || it.ID == uuid.Nil {
		return fmt.Errorf("missing item_id")
	}
	res := dbc.DB(r.db).Model(&types.Item{}).
		Where("id = ? AND approval_status = ? AND streaming = ?", it.ID, from, false).
		Updates(map[string]interface{}{
			"approval_status":  it.ApprovalStatus,
			"buyer_visible":    it.BuyerVisible,
			"approved_at":      it.ApprovedAt,
			"approved_by":      it.ApprovedBy,
			"rejection_reason": it.RejectionReason,
			"updated_at":       time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return &errs.TransitionError{Action: "save approval", From: string(from)}
	}
	return nil
}

func (r *itemRepo) SaveDraftContent(dbc dbctx.Context, it *types.Item) error {
	if it == nil || it.ID == uuid.Nil {
		return fmt.Errorf("missing item_id")
	}
	res := dbc.DB(r.db).Model(&types.Item{}).
		Where("id = ? AND streaming = ? AND approval_status IN ?", it.ID, true,
			[]types.ApprovalStatus{ws.ApprovalNone, ws.ApprovalPending}).
		Updates(map[string]interface{}{
			"content":    it.Content,
			"streaming":  false,
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return &errs.TransitionError{Action: "finish draft", From: "decided"}
	}
	return nil
}

func (r *itemRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	if id == uuid.Nil {
		return fmt.Errorf("missing item_id")
	}
	if len(updates) == 0 {
		return nil
	}
	res := dbc.DB(r.db).Model(&types.Item{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("item %s: %w", id, errs.ErrNotFound)
	}
	return nil
}
