package workspace

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/buyerdesk-backend/internal/domain"
	"github.com/yungbote/buyerdesk-backend/internal/pkg/dbctx"
	"github.com/yungbote/buyerdesk-backend/internal/pkg/errs"
	"github.com/yungbote/buyerdesk-backend/internal/platform/logger"
)

type BuyerFilter struct {
	AgentID *uuid.UUID
	Stage   *int
	Query   string
	Limit   int
	Offset  int
}

type BuyerRepo interface {
	Create(dbc dbctx.Context, b *types.Buyer) (*types.Buyer, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Buyer, error)
	List(dbc dbctx.Context, f BuyerFilter) ([]*types.Buyer, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
	Touch(dbc dbctx.Context, id uuid.UUID, at time.Time) error
	CountByStage(dbc dbctx.Context, agentID *uuid.UUID) (map[int]int64, error)
}

type buyerRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewBuyerRepo(db *gorm.DB, log *logger.Logger) BuyerRepo {
	return &buyerRepo{db: db, log: log.With("repo", "BuyerRepo")}
}

func (r *buyerRepo) Create(dbc dbctx.Context, b *types.Buyer) (*types.Buyer, error) {
	if b == nil {
		return nil, fmt.Errorf("missing buyer")
	}
	if err := dbc.DB(r.db).Create(b).Error; err != nil {
		return nil, err
	}
	return b, nil
}

func (r *buyerRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Buyer, error) {
	if id == uuid.Nil {
		return nil, fmt.Errorf("missing buyer_id")
	}
	var out types.Buyer
	if err := dbc.DB(r.db).Where("id = ?", id).First(&out).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("buyer %s: %w", id, errs.ErrNotFound)
		}
		return nil, err
	}
	return &out, nil
}

func (r *buyerRepo) List(dbc dbctx.Context, f BuyerFilter) ([]*types.Buyer, error) {
	limit := f.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	q := dbc.DB(r.db).Model(&types.Buyer{})
	if f.AgentID != nil {
		q = q.Where("agent_id = ?", *f.AgentID)
	}
	if f.Stage != nil {
		q = q.Where("current_stage = ?", *f.Stage)
	}
	if s := strings.TrimSpace(f.Query); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		q = q.Where("LOWER(name) LIKE ? OR LOWER(email) LIKE ?", like, like)
	}
	var out []*types.Buyer
	if err := q.Order("last_activity_at DESC").Limit(limit).Offset(f.Offset).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *buyerRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	if id == uuid.Nil {
		return fmt.Errorf("missing buyer_id")
	}
	if len(updates) == 0 {
		return nil
	}
	res := dbc.DB(r.db).Model(&types.Buyer{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("buyer %s: %w", id, errs.ErrNotFound)
	}
	return nil
}

func (r *buyerRepo) Touch(dbc dbctx.Context, id uuid.UUID, at time.Time) error {
	return dbc.DB(r.db).Model(&types.Buyer{}).
		Where("id = ?", id).
		UpdateColumn("last_activity_at", at.UTC()).Error
}

func (r *buyerRepo) CountByStage(dbc dbctx.Context, agentID *uuid.UUID) (map[int]int64, error) {
	type row struct {
		Stage int
		N     int64
	}
	q := dbc.DB(r.db).Model(&types.Buyer{}).Select("current_stage AS stage, COUNT(*) AS n")
	if agentID != nil {
		q = q.Where("agent_id = ?", *agentID)
	}
	var rows []row
	if err := q.Group("current_stage").Scan(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[int]int64, len(rows))
	for _, rr := range rows {
		out[rr.Stage] = rr.N
	}
	return out, nil
}
