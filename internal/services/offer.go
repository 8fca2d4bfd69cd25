package services

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/buyerdesk-backend/internal/data/repos"
	types "github.com/yungbote/buyerdesk-backend/internal/domain"
	"github.com/yungbote/buyerdesk-backend/internal/pkg/dbctx"
	"github.com/yungbote/buyerdesk-backend/internal/pkg/errs"
	"github.com/yungbote/buyerdesk-backend/internal/platform/logger"
)

type OfferPatch struct {
	PropertyID  *uuid.UUID         `json:"property_id"`
	TemplateID  *uuid.UUID         `json:"template_id"`
	Amount      *int64             `json:"amount"`
	Fields      *types.OfferFields `json:"fields"`
	DocumentURL *string            `json:"document_url"`
}

type OfferService interface {
	Create(dbc dbctx.Context, in *types.Offer) (*types.Offer, error)
	Get(dbc dbctx.Context, id uuid.UUID) (*types.Offer, error)
	List(dbc dbctx.Context, f repos.OfferFilter) ([]*types.Offer, error)
	Update(dbc dbctx.Context, id uuid.UUID, patch OfferPatch) (*types.Offer, error)
	// SetStatus records an explicit status change and, for submissions and
	// seller responses, a matching system event in the buyer's workspace.
	SetStatus(dbc dbctx.Context, id uuid.UUID, status types.OfferStatus) (*types.Offer, *types.Item, error)
}

type offerService struct {
	db     *gorm.DB
	log    *logger.Logger
	buyers repos.BuyerRepo
	items  repos.ItemRepo
	offers repos.OfferRepo
	notify WorkspaceNotifier
}

func NewOfferService(
	db *gorm.DB,
	baseLog *logger.Logger,
	buyers repos.BuyerRepo,
	items repos.ItemRepo,
	offers repos.OfferRepo,
	notify WorkspaceNotifier,
) OfferService {
	if notify == nil {
		notify = NewWorkspaceNotifier(nil)
	}
	return &offerService{
		db:     db,
		log:    baseLog.With("service", "OfferService"),
		buyers: buyers,
		items:  items,
		offers: offers,
		notify: notify,
	}
}

var offerEvents = map[types.OfferStatus]types.EventType{
	types.OfferSubmitted: types.EventOfferSubmitted,
	types.OfferCountered: types.EventOfferCountered,
	types.OfferAccepted:  types.EventOfferAccepted,
	types.OfferRejected:  types.EventOfferRejected,
}

func validateOffer(o *types.Offer) error {
	if o.Amount < 0 {
		return errs.Invalid("amount must not be negative")
	}
	f := o.Fields.Data()
	if f.EarnestMoney < 0 {
		return errs.Invalid("earnest_money must not be negative")
	}
	if f.ClosingDate != "" {
		if _, err := time.Parse("2006-01-02", f.ClosingDate); err != nil {
			return errs.Invalid("closing_date must be YYYY-MM-DD")
		}
	}
	return nil
}

func (s *offerService) Create(dbc dbctx.Context, in *types.Offer) (*types.Offer, error) {
	sess, err := requireAgent(dbc, accessWrite)
	if err != nil {
		return nil, err
	}
	if in == nil || in.BuyerID == uuid.Nil {
		return nil, errs.Invalid("buyer_id required")
	}
	buyer, err := loadBuyer(dbc, s.buyers, sess, in.BuyerID, accessWrite)
	if err != nil {
		return nil, err
	}
	o := *in
	o.ID = uuid.Nil
	o.AgentID = sess.UserID
	o.Status = types.OfferDraft
	o.SubmittedAt = nil
	o.DocumentURL = strings.TrimSpace(o.DocumentURL)
	if err := validateOffer(&o); err != nil {
		return nil, err
	}
	out, err := s.offers.Create(dbc, &o)
	if err != nil {
		return nil, err
	}
	s.notify.OfferUpdated(buyer, out)
	return out, nil
}

func (s *offerService) Get(dbc dbctx.Context, id uuid.UUID) (*types.Offer, error) {
	sess, err := requireAgent(dbc, accessRead)
	if err != nil {
		return nil, err
	}
	o, err := s.offers.GetByID(dbc, id)
	if err != nil {
		return nil, err
	}
	if !ownsAgentRow(sess, o.AgentID) {
		return nil, fmt.Errorf("offer %s: %w", id, errs.ErrNotFound)
	}
	return o, nil
}

func (s *offerService) List(dbc dbctx.Context, f repos.OfferFilter) ([]*types.Offer, error) {
	sess, err := requireAgent(dbc, accessRead)
	if err != nil {
		return nil, err
	}
	if f.Status != "" && !f.Status.Valid() {
		return nil, errs.Invalid("unknown status %q", f.Status)
	}
	f.AgentID = agentScope(sess)
	return s.offers.List(dbc, f)
}

func (s *offerService) Update(dbc dbctx.Context, id uuid.UUID, patch OfferPatch) (*types.Offer, error) {
	sess, err := requireAgent(dbc, accessWrite)
	if err != nil {
		return nil, err
	}
	var (
		out   *types.Offer
		buyer *types.Buyer
	)
	err = s.db.WithContext(dbc.Ctx).Transaction(func(tx *gorm.DB) error {
		inner := dbc.WithTx(tx)
		o, err := s.offers.GetByID(inner, id)
		if err != nil {
			return err
		}
		if !ownsAgentRow(sess, o.AgentID) {
			return fmt.Errorf("offer %s: %w", id, errs.ErrNotFound)
		}
		if patch.PropertyID != nil {
			o.PropertyID = patch.PropertyID
		}
		if patch.TemplateID != nil {
			o.TemplateID = patch.TemplateID
		}
		if patch.Amount != nil {
			o.Amount = *patch.Amount
		}
		if patch.Fields != nil {
			o.Fields = datatypes.NewJSONType(*patch.Fields)
		}
		if patch.DocumentURL != nil {
			o.DocumentURL = strings.TrimSpace(*patch.DocumentURL)
		}
		if err := validateOffer(o); err != nil {
			return err
		}
		if err := s.offers.Save(inner, o); err != nil {
			return err
		}
		if buyer, err = s.buyers.GetByID(inner, o.BuyerID); err != nil {
			return err
		}
		out = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.notify.OfferUpdated(buyer, out)
	return out, nil
}

func (s *offerService) SetStatus(dbc dbctx.Context, id uuid.UUID, status types.OfferStatus) (*types.Offer, *types.Item, error) {
	sess, err := requireAgent(dbc, accessWrite)
	if err != nil {
		return nil, nil, err
	}
	if !status.Valid() {
		return nil, nil, errs.Invalid("unknown status %q", status)
	}
	var (
		out   *types.Offer
		event *types.Item
		buyer *types.Buyer
	)
	err = s.db.WithContext(dbc.Ctx).Transaction(func(tx *gorm.DB) error {
		inner := dbc.WithTx(tx)
		o, err := s.offers.GetByID(inner, id)
		if err != nil {
			return err
		}
		if !ownsAgentRow(sess, o.AgentID) {
			return fmt.Errorf("offer %s: %w", id, errs.ErrNotFound)
		}
		now := time.Now().UTC()
		o.ApplyStatus(status, now)
		if err := s.offers.Save(inner, o); err != nil {
			return err
		}
		if buyer, err = s.buyers.GetByID(inner, o.BuyerID); err != nil {
			return err
		}
		out = o
		eventType, ok := offerEvents[status]
		if !ok {
			return nil
		}
		title := fmt.Sprintf("Offer %s: %s", status, formatUSD(o.Amount))
		desc := ""
		if status.SellerSide() {
			desc = "Recorded from the listing side."
		}
		if event, err = appendEvent(inner, s.items, buyer, eventType, title, desc, &o.ID); err != nil {
			return err
		}
		return s.buyers.Touch(inner, buyer.ID, now)
	})
	if err != nil {
		return nil, nil, err
	}
	s.log.Info("offer status changed", "offer_id", out.ID, "status", status)
	s.notify.OfferUpdated(buyer, out)
	if event != nil {
		s.notify.ItemCreated(buyer, event)
	}
	return out, event, nil
}
