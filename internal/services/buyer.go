package services

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/buyerdesk-backend/internal/data/repos"
	types "github.com/yungbote/buyerdesk-backend/internal/domain"
	"github.com/yungbote/buyerdesk-backend/internal/domain/stage"
	"github.com/yungbote/buyerdesk-backend/internal/domain/workspace"
	"github.com/yungbote/buyerdesk-backend/internal/pkg/dbctx"
	"github.com/yungbote/buyerdesk-backend/internal/pkg/errs"
	"github.com/yungbote/buyerdesk-backend/internal/platform/logger"
)

// BuyerPatch carries agent edits. Stage moves go through StageService.
type BuyerPatch struct {
	Name              *string                  `json:"name"`
	Email             *string                  `json:"email"`
	Phone             *string                  `json:"phone"`
	BudgetMin         *int64                   `json:"budget_min"`
	BudgetMax         *int64                   `json:"budget_max"`
	PreApprovalStatus *types.PreApprovalStatus `json:"pre_approval_status"`
	PreApprovalAmount *int64                   `json:"pre_approval_amount"`
	PreferredCities   *[]string                `json:"preferred_cities"`
	PropertyTypes     *[]types.PropertyType    `json:"property_types"`
	MinBeds           *int                     `json:"min_beds"`
	MinBaths          *float64                 `json:"min_baths"`
	MustHaves         *string                  `json:"must_haves"`
	NiceToHaves       *string                  `json:"nice_to_haves"`
	AgentNotes        *string                  `json:"agent_notes"`
}

type BuyerService interface {
	Create(dbc dbctx.Context, in *types.Buyer) (*types.Buyer, error)
	Get(dbc dbctx.Context, id uuid.UUID) (*types.Buyer, error)
	List(dbc dbctx.Context, f repos.BuyerFilter) ([]*types.Buyer, error)
	Update(dbc dbctx.Context, id uuid.UUID, patch BuyerPatch) (*types.Buyer, error)
	// Profile is the portal's view of the signed-in buyer.
	Profile(dbc dbctx.Context) (*types.BuyerProfile, error)
}

type buyerService struct {
	db      *gorm.DB
	log     *logger.Logger
	catalog *stage.Catalog
	buyers  repos.BuyerRepo
}

func NewBuyerService(db *gorm.DB, baseLog *logger.Logger, catalog *stage.Catalog, buyers repos.BuyerRepo) BuyerService {
	return &buyerService{
		db:      db,
		log:     baseLog.With("service", "BuyerService"),
		catalog: catalog,
		buyers:  buyers,
	}
}

func (s *buyerService) Create(dbc dbctx.Context, in *types.Buyer) (*types.Buyer, error) {
	sess, err := requireAgent(dbc, accessWrite)
	if err != nil {
		return nil, err
	}
	if in == nil {
		return nil, errs.Invalid("buyer required")
	}
	b := *in
	b.ID = uuid.Nil
	b.AgentID = sess.UserID
	b.Normalize()
	if err := validateBuyer(&b); err != nil {
		return nil, err
	}
	if !s.catalog.Valid(b.CurrentStage) {
		return nil, errs.Invalid("current_stage %d is outside the stage catalog", b.CurrentStage)
	}
	b.LastActivityAt = time.Now().UTC()
	out, err := s.buyers.Create(dbc, &b)
	if err != nil {
		return nil, err
	}
	s.log.Info("buyer created", "buyer_id", out.ID, "agent_user_id", sess.UserID)
	return out, nil
}

func validateBuyer(b *types.Buyer) error {
	if b.Name == "" {
		return errs.Invalid("name required")
	}
	if b.BudgetMin < 0 || b.BudgetMax < 0 || b.PreApprovalAmount < 0 {
		return errs.Invalid("amounts must not be negative")
	}
	if b.BudgetMax > 0 && b.BudgetMin > b.BudgetMax {
		return errs.Invalid("budget_min exceeds budget_max")
	}
	if b.PreApprovalStatus != "" && !b.PreApprovalStatus.Valid() {
		return errs.Invalid("unknown pre_approval_status %q", b.PreApprovalStatus)
	}
	for _, pt := range b.PropertyTypes {
		if !pt.Valid() {
			return errs.Invalid("unknown property type %q", pt)
		}
	}
	if b.MinBeds < 0 || b.MinBaths < 0 {
		return errs.Invalid("min beds/baths must not be negative")
	}
	return nil
}

func (s *buyerService) Get(dbc dbctx.Context, id uuid.UUID) (*types.Buyer, error) {
	sess, err := requireSession(dbc)
	if err != nil {
		return nil, err
	}
	if sess.IsBuyer() {
		return nil, errs.ErrForbidden
	}
	return loadBuyer(dbc, s.buyers, sess, id, accessRead)
}

func (s *buyerService) List(dbc dbctx.Context, f repos.BuyerFilter) ([]*types.Buyer, error) {
	sess, err := requireAgent(dbc, accessRead)
	if err != nil {
		return nil, err
	}
	f.AgentID = agentScope(sess)
	if f.Stage != nil && !s.catalog.Valid(*f.Stage) {
		return nil, errs.Invalid("stage %d is outside the stage catalog", *f.Stage)
	}
	return s.buyers.List(dbc, f)
}

func (s *buyerService) Update(dbc dbctx.Context, id uuid.UUID, patch BuyerPatch) (*types.Buyer, error) {
	sess, err := requireAgent(dbc, accessWrite)
	if err != nil {
		return nil, err
	}
	var out *types.Buyer
	err = s.db.WithContext(dbc.Ctx).Transaction(func(tx *gorm.DB) error {
		inner := dbc.WithTx(tx)
		b, err := loadBuyer(inner, s.buyers, sess, id, accessWrite)
		if err != nil {
			return err
		}
		applyBuyerPatch(b, patch)
		b.Normalize()
		if err := validateBuyer(b); err != nil {
			return err
		}
		now := time.Now().UTC()
		updates := map[string]interface{}{
			"name":                b.Name,
			"email":               b.Email,
			"phone":               b.Phone,
			"budget_min":          b.BudgetMin,
			"budget_max":          b.BudgetMax,
			"pre_approval_status": b.PreApprovalStatus,
			"pre_approval_amount": b.PreApprovalAmount,
			"preferred_cities":    b.PreferredCities,
			"property_types":      b.PropertyTypes,
			"min_beds":            b.MinBeds,
			"min_baths":           b.MinBaths,
			"must_haves":          b.MustHaves,
			"nice_to_haves":       b.NiceToHaves,
			"agent_notes":         b.AgentNotes,
			"last_activity_at":    now,
			"updated_at":          now,
		}
		if err := s.buyers.UpdateFields(inner, b.ID, updates); err != nil {
			return err
		}
		b.LastActivityAt = now
		b.UpdatedAt = now
		out = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func applyBuyerPatch(b *types.Buyer, p BuyerPatch) {
	if p.Name != nil {
		b.Name = *p.Name
	}
	if p.Email != nil {
		b.Email = *p.Email
	}
	if p.Phone != nil {
		b.Phone = *p.Phone
	}
	if p.BudgetMin != nil {
		b.BudgetMin = *p.BudgetMin
	}
	if p.BudgetMax != nil {
		b.BudgetMax = *p.BudgetMax
	}
	if p.PreApprovalStatus != nil {
		b.PreApprovalStatus = *p.PreApprovalStatus
	}
	if p.PreApprovalAmount != nil {
		b.PreApprovalAmount = *p.PreApprovalAmount
	}
	if p.PreferredCities != nil {
		b.PreferredCities = datatypes.JSONSlice[string](*p.PreferredCities)
	}
	if p.PropertyTypes != nil {
		b.PropertyTypes = datatypes.JSONSlice[workspace.PropertyType](*p.PropertyTypes)
	}
	if p.MinBeds != nil {
		b.MinBeds = *p.MinBeds
	}
	if p.MinBaths != nil {
		b.MinBaths = *p.MinBaths
	}
	if p.MustHaves != nil {
		b.MustHaves = *p.MustHaves
	}
	if p.NiceToHaves != nil {
		b.NiceToHaves = *p.NiceToHaves
	}
	if p.AgentNotes != nil {
		b.AgentNotes = strings.TrimSpace(*p.AgentNotes)
	}
}

func (s *buyerService) Profile(dbc dbctx.Context) (*types.BuyerProfile, error) {
	sess, err := requireSession(dbc)
	if err != nil {
		return nil, err
	}
	if !sess.IsBuyer() {
		return nil, errs.ErrForbidden
	}
	b, err := loadBuyer(dbc, s.buyers, sess, sess.BuyerID, accessRead)
	if err != nil {
		return nil, err
	}
	p := b.Profile()
	return &p, nil
}
