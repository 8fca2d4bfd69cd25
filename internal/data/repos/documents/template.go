package documents

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/buyerdesk-backend/internal/domain"
	"github.com/yungbote/buyerdesk-backend/internal/pkg/dbctx"
	"github.com/yungbote/buyerdesk-backend/internal/pkg/errs"
	"github.com/yungbote/buyerdesk-backend/internal/platform/logger"
)

type OfferTemplateRepo interface {
	Create(dbc dbctx.Context, t *types.OfferTemplate) (*types.OfferTemplate, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.OfferTemplate, error)
	List(dbc dbctx.Context, agentID *uuid.UUID) ([]*types.OfferTemplate, error)
	// ListByStatus returns templates in one of statuses last touched before
	// cutoff, oldest first.
	ListByStatus(dbc dbctx.Context, statuses []types.AnalysisStatus, cutoff time.Time, limit int) ([]*types.OfferTemplate, error)
	// SetStatus moves analysis_status from one of from to next; RowsAffected
	// zero means another request got there first.
	SetStatus(dbc dbctx.Context, id uuid.UUID, from []types.AnalysisStatus, updates map[string]interface{}) (bool, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
	ReplaceFields(dbc dbctx.Context, id uuid.UUID, fields []*types.OfferTemplateField) error
}

type offerTemplateRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewOfferTemplateRepo(db *gorm.DB, log *logger.Logger) OfferTemplateRepo {
	return &offerTemplateRepo{db: db, log: log.With("repo", "OfferTemplateRepo")}
}

func (r *offerTemplateRepo) Create(dbc dbctx.Context, t *types.OfferTemplate) (*types.OfferTemplate, error) {
	if t == nil {
		return nil, fmt.Errorf("missing template")
	}
	if err := dbc.DB(r.db).Omit("Fields").Create(t).Error; err != nil {
		return nil, err
	}
	return t, nil
}

func (r *offerTemplateRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.OfferTemplate, error) {
	var out types.OfferTemplate
	err := dbc.DB(r.db).
		Preload("Fields", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Where("id = ?", id).
		First(&out).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("offer template %s: %w", id, errs.ErrNotFound)
		}
		return nil, err
	}
	return &out, nil
}

func (r *offerTemplateRepo) List(dbc dbctx.Context, agentID *uuid.UUID) ([]*types.OfferTemplate, error) {
	q := dbc.DB(r.db).Model(&types.OfferTemplate{})
	if agentID != nil {
		q = q.Where("agent_id = ?", *agentID)
	}
	var out []*types.OfferTemplate
	if err := q.Order("created_at DESC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *offerTemplateRepo) ListByStatus(dbc dbctx.Context, statuses []types.AnalysisStatus, cutoff time.Time, limit int) ([]*types.OfferTemplate, error) {
	if len(statuses) == 0 {
		return nil, nil
	}
	if limit <= 0 {
		limit = 50
	}
	var out []*types.OfferTemplate
	err := dbc.DB(r.db).
		Where("analysis_status IN ?", statuses).
		Where("updated_at < ?", cutoff).
		Order("updated_at ASC").
		Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *offerTemplateRepo) SetStatus(dbc dbctx.Context, id uuid.UUID, from []types.AnalysisStatus, updates map[string]interface{}) (bool, error) {
	q := dbc.DB(r.db).Model(&types.OfferTemplate{}).Where("id = ?", id)
	if len(from) > 0 {
		q = q.Where("analysis_status IN ?", from)
	}
	res := q.Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *offerTemplateRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	if len(updates) == 0 {
		return nil
	}
	res := dbc.DB(r.db).Model(&types.OfferTemplate{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("offer template %s: %w", id, errs.ErrNotFound)
	}
	return nil
}

func (r *offerTemplateRepo) ReplaceFields(dbc dbctx.Context, id uuid.UUID, fields []*types.OfferTemplateField) error {
	txx := dbc.DB(r.db)
	if err := txx.Where("template_id = ?", id).Delete(&types.OfferTemplateField{}).Error; err != nil {
		return err
	}
	if len(fields) == 0 {
		return nil
	}
	for i, f := range fields {
		f.TemplateID = id
		f.Position = i
	}
	return txx.Create(&fields).Error
}
