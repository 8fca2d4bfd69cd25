package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/buyerdesk-backend/internal/data/repos"
	types "github.com/yungbote/buyerdesk-backend/internal/domain"
	"github.com/yungbote/buyerdesk-backend/internal/observability"
	"github.com/yungbote/buyerdesk-backend/internal/pkg/dbctx"
	"github.com/yungbote/buyerdesk-backend/internal/pkg/errs"
	"github.com/yungbote/buyerdesk-backend/internal/pkg/httpx"
	"github.com/yungbote/buyerdesk-backend/internal/platform/logger"
	"github.com/yungbote/buyerdesk-backend/internal/platform/scrape"
)

type ListingScraper interface {
	Fetch(ctx context.Context, rawURL string) (scrape.ListingData, error)
}

type PropertyService interface {
	// Scrape is best effort; an empty page is an error.
	Scrape(dbc dbctx.Context, rawURL string) (scrape.ListingData, error)
	Create(dbc dbctx.Context, in *types.Property) (*types.Property, error)
	// Import scrapes a listing and stores it, reusing a prior import of the same URL.
	Import(dbc dbctx.Context, rawURL string) (*types.Property, error)
	Get(dbc dbctx.Context, id uuid.UUID) (*types.Property, error)
	AttachToBuyer(dbc dbctx.Context, buyerID, propertyID uuid.UUID, note string) (*types.BuyerProperty, error)
	ListForBuyer(dbc dbctx.Context, buyerID uuid.UUID, f repos.BuyerPropertyFilter) ([]*types.BuyerProperty, error)
	MarkViewed(dbc dbctx.Context, buyerID, propertyID uuid.UUID) (*types.BuyerProperty, error)
	SetFavorite(dbc dbctx.Context, buyerID, propertyID uuid.UUID, favorite bool) (*types.BuyerProperty, error)
	SetArchived(dbc dbctx.Context, buyerID, propertyID uuid.UUID, archived bool) (*types.BuyerProperty, error)
}

type propertyService struct {
	db         *gorm.DB
	log        *logger.Logger
	scraper    ListingScraper
	retry      httpx.RetryPolicy
	buyers     repos.BuyerRepo
	properties repos.PropertyRepo
	links      repos.BuyerPropertyRepo
	notify     WorkspaceNotifier
}

func NewPropertyService(
	db *gorm.DB,
	baseLog *logger.Logger,
	scraper ListingScraper,
	retry httpx.RetryPolicy,
	buyers repos.BuyerRepo,
	properties repos.PropertyRepo,
	links repos.BuyerPropertyRepo,
	notify WorkspaceNotifier,
) PropertyService {
	if notify == nil {
		notify = NewWorkspaceNotifier(nil)
	}
	serviceLog := baseLog.With("service", "PropertyService")
	if retry.OnRetry == nil {
		retry.OnRetry = func(attempt int, wait time.Duration, err error) {
			observability.Current().IncOutboundRetry("scrape")
			serviceLog.Warn("scrape rate limited; retrying", "attempt", attempt, "wait", wait.String(), "error", err)
		}
	}
	return &propertyService{
		db:         db,
		log:        serviceLog,
		scraper:    scraper,
		retry:      retry,
		buyers:     buyers,
		properties: properties,
		links:      links,
		notify:     notify,
	}
}

func (s *propertyService) Scrape(dbc dbctx.Context, rawURL string) (scrape.ListingData, error) {
	if _, err := requireAgent(dbc, accessWrite); err != nil {
		return scrape.ListingData{}, err
	}
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return scrape.ListingData{}, errs.Invalid("url required")
	}
	if s.scraper == nil {
		return scrape.ListingData{}, fmt.Errorf("scraper not configured")
	}
	var data scrape.ListingData
	err := s.retry.Do(dbc.Ctx, func(ctx context.Context) error {
		var err error
		data, err = s.scraper.Fetch(ctx, rawURL)
		return err
	})
	if err != nil {
		return scrape.ListingData{}, fmt.Errorf("scrape %s: %w", rawURL, err)
	}
	if data.Empty() {
		return data, errs.Invalid("no listing details found at %s", rawURL)
	}
	return data, nil
}

func (s *propertyService) Create(dbc dbctx.Context, in *types.Property) (*types.Property, error) {
	sess, err := requireAgent(dbc, accessWrite)
	if err != nil {
		return nil, err
	}
	if in == nil {
		return nil, errs.Invalid("property required")
	}
	p := *in
	p.ID = uuid.Nil
	p.CreatedBy = sess.UserID
	p.Address = strings.TrimSpace(p.Address)
	if p.Address == "" {
		return nil, errs.Invalid("address required")
	}
	if p.Price < 0 || p.Bedrooms < 0 || p.Bathrooms < 0 || p.Sqft < 0 {
		return nil, errs.Invalid("numeric fields must not be negative")
	}
	return s.properties.Create(dbc, &p)
}

func (s *propertyService) Import(dbc dbctx.Context, rawURL string) (*types.Property, error) {
	if _, err := requireAgent(dbc, accessWrite); err != nil {
		return nil, err
	}
	rawURL = strings.TrimSpace(rawURL)
	if existing, err := s.properties.GetBySourceURL(dbc, rawURL); err == nil {
		return existing, nil
	}
	data, err := s.Scrape(dbc, rawURL)
	if err != nil {
		return nil, err
	}
	p := propertyFromListing(data)
	p.SourceURL = rawURL
	if p.Address == "" {
		p.Address = rawURL
	}
	return s.Create(dbc, p)
}

func propertyFromListing(d scrape.ListingData) *types.Property {
	return &types.Property{
		Address:      d.Address,
		City:         d.City,
		State:        d.State,
		ZipCode:      d.ZipCode,
		Price:        d.Price,
		Bedrooms:     d.Bedrooms,
		Bathrooms:    d.Bathrooms,
		Sqft:         d.Sqft,
		YearBuilt:    d.YearBuilt,
		LotSize:      d.LotSize,
		PropertyType: d.PropertyType,
		Description:  d.Description,
		Photos:       append([]string(nil), d.Photos...),
		ListingAgent: d.ListingAgent,
	}
}

func (s *propertyService) Get(dbc dbctx.Context, id uuid.UUID) (*types.Property, error) {
	if _, err := requireAgent(dbc, accessRead); err != nil {
		return nil, err
	}
	return s.properties.GetByID(dbc, id)
}

func (s *propertyService) AttachToBuyer(dbc dbctx.Context, buyerID, propertyID uuid.UUID, note string) (*types.BuyerProperty, error) {
	sess, err := requireAgent(dbc, accessWrite)
	if err != nil {
		return nil, err
	}
	var (
		out   *types.BuyerProperty
		buyer *types.Buyer
	)
	err = s.db.WithContext(dbc.Ctx).Transaction(func(tx *gorm.DB) error {
		inner := dbc.WithTx(tx)
		if buyer, err = loadBuyer(inner, s.buyers, sess, buyerID, accessWrite); err != nil {
			return err
		}
		if _, err := s.properties.GetByID(inner, propertyID); err != nil {
			return err
		}
		if out, err = s.links.Attach(inner, buyerID, propertyID); err != nil {
			return err
		}
		if note = strings.TrimSpace(note); note != "" {
			if err := s.links.UpdateFlags(inner, buyerID, propertyID, map[string]interface{}{"agent_note": note}); err != nil {
				return err
			}
			out.AgentNote = note
		}
		return s.buyers.Touch(inner, buyerID, time.Now().UTC())
	})
	if err != nil {
		return nil, err
	}
	s.notify.PropertyUpdated(buyer, out)
	return out, nil
}

func (s *propertyService) ListForBuyer(dbc dbctx.Context, buyerID uuid.UUID, f repos.BuyerPropertyFilter) ([]*types.BuyerProperty, error) {
	sess, err := requireSession(dbc)
	if err != nil {
		return nil, err
	}
	if _, err := loadBuyer(dbc, s.buyers, sess, buyerID, accessRead); err != nil {
		return nil, err
	}
	if sess.IsBuyer() {
		f.IncludeArchived = false
	}
	out, err := s.links.ListForBuyer(dbc, buyerID, f)
	if err != nil {
		return nil, err
	}
	if sess.IsBuyer() {
		for i, bp := range out {
			out[i] = bp.BuyerView()
		}
	}
	return out, nil
}

// setFlags is shared by every flag change. buyerAllowed marks the flags a
// buyer may flip on their own links.
func (s *propertyService) setFlags(dbc dbctx.Context, buyerID, propertyID uuid.UUID, buyerAllowed bool, apply func(inner dbctx.Context) error) (*types.BuyerProperty, error) {
	sess, err := requireSession(dbc)
	if err != nil {
		return nil, err
	}
	if sess.IsBuyer() && !buyerAllowed {
		return nil, errs.ErrForbidden
	}
	var (
		out   *types.BuyerProperty
		buyer *types.Buyer
	)
	err = s.db.WithContext(dbc.Ctx).Transaction(func(tx *gorm.DB) error {
		inner := dbc.WithTx(tx)
		if buyer, err = loadBuyer(inner, s.buyers, sess, buyerID, accessWrite); err != nil {
			return err
		}
		if sess.IsBuyer() {
			link, err := s.links.Get(inner, buyerID, propertyID)
			if err != nil {
				return err
			}
			if link.Archived {
				return fmt.Errorf("property %s: %w", propertyID, errs.ErrNotFound)
			}
		}
		if err := apply(inner); err != nil {
			return err
		}
		out, err = s.links.Get(inner, buyerID, propertyID)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.notify.PropertyUpdated(buyer, out)
	if sess.IsBuyer() {
		return out.BuyerView(), nil
	}
	return out, nil
}

func (s *propertyService) MarkViewed(dbc dbctx.Context, buyerID, propertyID uuid.UUID) (*types.BuyerProperty, error) {
	return s.setFlags(dbc, buyerID, propertyID, true, func(inner dbctx.Context) error {
		return s.links.MarkViewed(inner, buyerID, propertyID, time.Now().UTC())
	})
}

func (s *propertyService) SetFavorite(dbc dbctx.Context, buyerID, propertyID uuid.UUID, favorite bool) (*types.BuyerProperty, error) {
	return s.setFlags(dbc, buyerID, propertyID, true, func(inner dbctx.Context) error {
		return s.links.UpdateFlags(inner, buyerID, propertyID, map[string]interface{}{"favorited": favorite})
	})
}

func (s *propertyService) SetArchived(dbc dbctx.Context, buyerID, propertyID uuid.UUID, archived bool) (*types.BuyerProperty, error) {
	return s.setFlags(dbc, buyerID, propertyID, false, func(inner dbctx.Context) error {
		return s.links.UpdateFlags(inner, buyerID, propertyID, map[string]interface{}{"archived": archived})
	})
}
