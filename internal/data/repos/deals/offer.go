package deals

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/buyerdesk-backend/internal/domain"
	"github.com/yungbote/buyerdesk-backend/internal/pkg/dbctx"
	"github.com/yungbote/buyerdesk-backend/internal/pkg/errs"
	"github.com/yungbote/buyerdesk-backend/internal/platform/logger"
)

type OfferSort string

const (
	OfferSortCreated OfferSort = "created_at"
	OfferSortAmount  OfferSort = "amount"
)

type OfferFilter struct {
	AgentID *uuid.UUID
	BuyerID *uuid.UUID
	Status  types.OfferStatus
	Sort    OfferSort
	Asc     bool
	Limit   int
}

type OfferRepo interface {
	Create(dbc dbctx.Context, o *types.Offer) (*types.Offer, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Offer, error)
	List(dbc dbctx.Context, f OfferFilter) ([]*types.Offer, error)
	Save(dbc dbctx.Context, o *types.Offer) error
	CountByStatus(dbc dbctx.Context, agentID *uuid.UUID) (map[types.OfferStatus]int64, error)
}

type offerRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewOfferRepo(db *gorm.DB, log *logger.Logger) OfferRepo {
	return &offerRepo{db: db, log: log.With("repo", "OfferRepo")}
}

func (r *offerRepo) Create(dbc dbctx.Context, o *types.Offer) (*types.Offer, error) {
	if o == nil || o.BuyerID == uuid.Nil {
		return nil, fmt.Errorf("missing buyer_id")
	}
	if err := dbc.DB(r.db).Create(o).Error; err != nil {
		return nil, err
	}
	return o, nil
}

func (r *offerRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Offer, error) {
	var out types.Offer
	if err := dbc.DB(r.db).Where("id = ?", id).First(&out).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("offer %s: %w", id, errs.ErrNotFound)
		}
		return nil, err
	}
	return &out, nil
}

func (r *offerRepo) List(dbc dbctx.Context, f OfferFilter) ([]*types.Offer, error) {
	limit := f.Limit
	if limit <= 0 || limit > 200 {
		limit = 100
	}
	q := dbc.DB(r.db).Model(&types.Offer{})
	if f.AgentID != nil {
		q = q.Where("agent_id = ?", *f.AgentID)
	}
	if f.BuyerID != nil {
		q = q.Where("buyer_id = ?", *f.BuyerID)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	dir := "DESC"
	if f.Asc {
		dir = "ASC"
	}
	col := "created_at"
	if f.Sort == OfferSortAmount {
		col = "amount"
	}
	var out []*types.Offer
	if err := q.Order(col + " " + dir).Order("id ASC").Limit(limit).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *offerRepo) Save(dbc dbctx.Context, o *types.Offer) error {
	if o == nil || o.ID == uuid.Nil {
		return fmt.Errorf("missing offer_id")
	}
	return dbc.DB(r.db).Save(o).Error
}

func (r *offerRepo) CountByStatus(dbc dbctx.Context, agentID *uuid.UUID) (map[types.OfferStatus]int64, error) {
	type row struct {
		Status types.OfferStatus
		N      int64
	}
	q := dbc.DB(r.db).Model(&types.Offer{}).Select("status, COUNT(*) AS n")
	if agentID != nil {
		q = q.Where("agent_id = ?", *agentID)
	}
	var rows []row
	if err := q.Group("status").Scan(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[types.OfferStatus]int64, len(rows))
	for _, rr := range rows {
		out[rr.Status] = rr.N
	}
	return out, nil
}
