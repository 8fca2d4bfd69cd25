package listings

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/buyerdesk-backend/internal/domain"
	"github.com/yungbote/buyerdesk-backend/internal/pkg/dbctx"
	"github.com/yungbote/buyerdesk-backend/internal/pkg/errs"
	"github.com/yungbote/buyerdesk-backend/internal/platform/logger"
)

type PropertyRepo interface {
	Create(dbc dbctx.Context, p *types.Property) (*types.Property, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Property, error)
	GetBySourceURL(dbc dbctx.Context, url string) (*types.Property, error)
	Save(dbc dbctx.Context, p *types.Property) error
}

type propertyRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPropertyRepo(db *gorm.DB, log *logger.Logger) PropertyRepo {
	return &propertyRepo{db: db, log: log.With("repo", "PropertyRepo")}
}

func (r *propertyRepo) Create(dbc dbctx.Context, p *types.Property) (*types.Property, error) {
	if p == nil {
		return nil, fmt.Errorf("missing property")
	}
	if err := dbc.DB(r.db).Create(p).Error; err != nil {
		return nil, err
	}
	return p, nil
}

func (r *propertyRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Property, error) {
	var out types.Property
	if err := dbc.DB(r.db).Where("id = ?", id).First(&out).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("property %s: %w", id, errs.ErrNotFound)
		}
		return nil, err
	}
	return &out, nil
}

func (r *propertyRepo) GetBySourceURL(dbc dbctx.Context, url string) (*types.Property, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, fmt.Errorf("missing source_url")
	}
	var out types.Property
	if err := dbc.DB(r.db).Where("source_url = ?", url).Order("created_at DESC").First(&out).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("property %s: %w", url, errs.ErrNotFound)
		}
		return nil, err
	}
	return &out, nil
}

func (r *propertyRepo) Save(dbc dbctx.Context, p *types.Property) error {
	if p == nil || p.ID == uuid.Nil {
		return fmt.Errorf("missing property_id")
	}
	return dbc.DB(r.db).Save(p).Error
}

type BuyerPropertyFilter struct {
	IncludeArchived bool
	FavoritesOnly   bool
}

type BuyerPropertyRepo interface {
	// Attach is idempotent per (buyer, property).
	Attach(dbc dbctx.Context, buyerID, propertyID uuid.UUID) (*types.BuyerProperty, error)
	Get(dbc dbctx.Context, buyerID, propertyID uuid.UUID) (*types.BuyerProperty, error)
	ListForBuyer(dbc dbctx.Context, buyerID uuid.UUID, f BuyerPropertyFilter) ([]*types.BuyerProperty, error)
	UpdateFlags(dbc dbctx.Context, buyerID, propertyID uuid.UUID, updates map[string]interface{}) error
	MarkViewed(dbc dbctx.Context, buyerID, propertyID uuid.UUID, at time.Time) error
}

type buyerPropertyRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewBuyerPropertyRepo(db *gorm.DB, log *logger.Logger) BuyerPropertyRepo {
	return &buyerPropertyRepo{db: db, log: log.With("repo", "BuyerPropertyRepo")}
}

func (r *buyerPropertyRepo) Attach(dbc dbctx.Context, buyerID, propertyID uuid.UUID) (*types.BuyerProperty, error) {
	if buyerID == uuid.Nil || propertyID == uuid.Nil {
		return nil, fmt.Errorf("missing buyer_id or property_id")
	}
	row := &types.BuyerProperty{BuyerID: buyerID, PropertyID: propertyID}
	if err := dbc.DB(r.db).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "buyer_id"}, {Name: "property_id"}},
			DoNothing: true,
		}).
		Create(row).Error; err != nil {
		return nil, err
	}
	return r.Get(dbc, buyerID, propertyID)
}

func (r *buyerPropertyRepo) Get(dbc dbctx.Context, buyerID, propertyID uuid.UUID) (*types.BuyerProperty, error) {
	var out types.BuyerProperty
	if err := dbc.DB(r.db).
		Preload("Property").
		Where("buyer_id = ? AND property_id = ?", buyerID, propertyID).
		First(&out).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("buyer property %s/%s: %w", buyerID, propertyID, errs.ErrNotFound)
		}
		return nil, err
	}
	return &out, nil
}

func (r *buyerPropertyRepo) ListForBuyer(dbc dbctx.Context, buyerID uuid.UUID, f BuyerPropertyFilter) ([]*types.BuyerProperty, error) {
	q := dbc.DB(r.db).Preload("Property").Where("buyer_id = ?", buyerID)
	if !f.IncludeArchived {
		q = q.Where("archived = ?", false)
	}
	if f.FavoritesOnly {
		q = q.Where("favorited = ?", true)
	}
	var out []*types.BuyerProperty
	if err := q.Order("created_at DESC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *buyerPropertyRepo) UpdateFlags(dbc dbctx.Context, buyerID, propertyID uuid.UUID, updates map[string]interface{}) error {
	if len(updates) == 0 {
		return nil
	}
	res := dbc.DB(r.db).Model(&types.BuyerProperty{}).
		Where("buyer_id = ? AND property_id = ?", buyerID, propertyID).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("buyer property %s/%s: %w", buyerID, propertyID, errs.ErrNotFound)
	}
	return nil
}

// MarkViewed keeps the first viewed_at.
func (r *buyerPropertyRepo) MarkViewed(dbc dbctx.Context, buyerID, propertyID uuid.UUID, at time.Time) error {
	if err := r.UpdateFlags(dbc, buyerID, propertyID, map[string]interface{}{"viewed": true}); err != nil {
		return err
	}
	return dbc.DB(r.db).Model(&types.BuyerProperty{}).
		Where("buyer_id = ? AND property_id = ? AND viewed_at IS NULL", buyerID, propertyID).
		UpdateColumn("viewed_at", at.UTC()).Error
}
