package deals

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type OfferStatus string

const (
	OfferDraft     OfferStatus = "draft"
	OfferSubmitted OfferStatus = "submitted"
	OfferCountered OfferStatus = "countered"
	OfferAccepted  OfferStatus = "accepted"
	OfferRejected  OfferStatus = "rejected"
	OfferWithdrawn OfferStatus = "withdrawn"
)

func (s OfferStatus) Valid() bool {
	switch s {
	case OfferDraft, OfferSubmitted, OfferCountered, OfferAccepted, OfferRejected, OfferWithdrawn:
		return true
	}
	return false
}

// SellerSide statuses record something the listing side did; the agent only
// transcribes them.
func (s OfferStatus) SellerSide() bool {
	return s == OfferCountered || s == OfferAccepted || s == OfferRejected
}

type OfferFields struct {
	EarnestMoney  int64    `json:"earnest_money"`
	ClosingDate   string   `json:"closing_date,omitempty"`
	Contingencies []string `json:"contingencies"`
	Notes         string   `json:"notes,omitempty"`
}

type Offer struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	BuyerID    uuid.UUID  `gorm:"type:uuid;not null;index" json:"buyer_id"`
	PropertyID *uuid.UUID `gorm:"type:uuid;index" json:"property_id,omitempty"`
	TemplateID *uuid.UUID `gorm:"type:uuid;index" json:"template_id,omitempty"`
	AgentID    uuid.UUID  `gorm:"type:uuid;not null;index" json:"agent_id"`

	Amount int64       `gorm:"column:amount;not null;default:0" json:"amount"`
	Status OfferStatus `gorm:"column:status;not null;default:'draft';index" json:"status"`

	Fields datatypes.JSONType[OfferFields] `gorm:"column:fields" json:"fields"`

	SubmittedAt *time.Time `gorm:"column:submitted_at" json:"submitted_at,omitempty"`
	DocumentURL string     `gorm:"column:document_url" json:"document_url,omitempty"`

	CreatedAt time.Time      `gorm:"not null;index" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Offer) TableName() string { return "offer" }

func (o *Offer) BeforeCreate(tx *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	if o.Status == "" {
		o.Status = OfferDraft
	}
	return nil
}

// ApplyStatus records an explicit status change. Submitting stamps
// submitted_at once; later resubmissions keep the first timestamp.
func (o *Offer) ApplyStatus(next OfferStatus, now time.Time) {
	if next == OfferSubmitted && o.SubmittedAt == nil {
		at := now.UTC()
		o.SubmittedAt = &at
	}
	o.Status = next
}
