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

type ArtifactRepo interface {
	Create(dbc dbctx.Context, a *types.Artifact) (*types.Artifact, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Artifact, error)
	ListByBuyer(dbc dbctx.Context, buyerID uuid.UUID, visibility types.Visibility) ([]*types.Artifact, error)
	// ShareByItem flips every artifact drafted from itemID to shared.
	ShareByItem(dbc dbctx.Context, itemID uuid.UUID, at time.Time) (int64, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
}

type artifactRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewArtifactRepo(db *gorm.DB, log *logger.Logger) ArtifactRepo {
	return &artifactRepo{db: db, log: log.With("repo", "ArtifactRepo")}
}

func (r *artifactRepo) Create(dbc dbctx.Context, a *types.Artifact) (*types.Artifact, error) {
	if a == nil || a.BuyerID == uuid.Nil {
		return nil, fmt.Errorf("missing buyer_id")
	}
	if err := dbc.DB(r.db).Create(a).Error; err != nil {
		return nil, err
	}
	return a, nil
}

func (r *artifactRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Artifact, error) {
	var out types.Artifact
	if err := dbc.DB(r.db).Where("id = ?", id).First(&out).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("artifact %s: %w", id, errs.ErrNotFound)
		}
		return nil, err
	}
	return &out, nil
}

func (r *artifactRepo) ListByBuyer(dbc dbctx.Context, buyerID uuid.UUID, visibility types.Visibility) ([]*types.Artifact, error) {
	q := dbc.DB(r.db).Where("buyer_id = ?", buyerID)
	if visibility != "" {
		q = q.Where("visibility = ?", visibility)
	}
	var out []*types.Artifact
	if err := q.Order("created_at DESC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *artifactRepo) ShareByItem(dbc dbctx.Context, itemID uuid.UUID, at time.Time) (int64, error) {
	res := dbc.DB(r.db).Model(&types.Artifact{}).
		Where("item_id = ? AND visibility = ?", itemID, types.VisibilityInternal).
		Updates(map[string]interface{}{
			"visibility": types.VisibilityShared,
			"shared_at":  at.UTC(),
		})
	return res.RowsAffected, res.Error
}

func (r *artifactRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	if len(updates) == 0 {
		return nil
	}
	res := dbc.DB(r.db).Model(&types.Artifact{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("artifact %s: %w", id, errs.ErrNotFound)
	}
	return nil
}
