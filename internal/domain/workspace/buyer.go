package workspace

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type PreApprovalStatus string

const (
	PreApprovalNotStarted PreApprovalStatus = "not_started"
	PreApprovalInProgress PreApprovalStatus = "in_progress"
	PreApprovalApproved   PreApprovalStatus = "pre_approved"
)

func (s PreApprovalStatus) Valid() bool {
	switch s {
	case PreApprovalNotStarted, PreApprovalInProgress, PreApprovalApproved:
		return true
	}
	return false
}

type PropertyType string

const (
	PropertySingleFamily PropertyType = "single_family"
	PropertyCondo        PropertyType = "condo"
	PropertyTownhouse    PropertyType = "townhouse"
	PropertyMultiFamily  PropertyType = "multi_family"
	PropertyLand         PropertyType = "land"
)

func (p PropertyType) Valid() bool {
	switch p {
	case PropertySingleFamily, PropertyCondo, PropertyTownhouse, PropertyMultiFamily, PropertyLand:
		return true
	}
	return false
}

type Buyer struct {
	ID      uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	AgentID uuid.UUID `gorm:"type:uuid;not null;index" json:"agent_id"`

	Name  string `gorm:"column:name;not null" json:"name"`
	Email string `gorm:"column:email;index" json:"email,omitempty"`
	Phone string `gorm:"column:phone" json:"phone,omitempty"`

	BudgetMin         int64             `gorm:"column:budget_min;not null;default:0" json:"budget_min"`
	BudgetMax         int64             `gorm:"column:budget_max;not null;default:0" json:"budget_max"`
	PreApprovalStatus PreApprovalStatus `gorm:"column:pre_approval_status;not null;default:'not_started'" json:"pre_approval_status"`
	PreApprovalAmount int64             `gorm:"column:pre_approval_amount;not null;default:0" json:"pre_approval_amount"`

	PreferredCities datatypes.JSONSlice[string]       `gorm:"column:preferred_cities" json:"preferred_cities"`
	PropertyTypes   datatypes.JSONSlice[PropertyType] `gorm:"column:property_types" json:"property_types"`
	MinBeds         int                               `gorm:"column:min_beds;not null;default:0" json:"min_beds"`
	MinBaths        float64                           `gorm:"column:min_baths;not null;default:0" json:"min_baths"`
	MustHaves       string                            `gorm:"column:must_haves;type:text" json:"must_haves,omitempty"`
	NiceToHaves     string                            `gorm:"column:nice_to_haves;type:text" json:"nice_to_haves,omitempty"`

	CurrentStage int `gorm:"column:current_stage;not null;default:0;index" json:"current_stage"`

	// Never serialized on portal responses; see BuyerProfile.
	AgentNotes string `gorm:"column:agent_notes;type:text" json:"agent_notes,omitempty"`

	LastActivityAt time.Time      `gorm:"column:last_activity_at;index" json:"last_activity_at"`
	CreatedAt      time.Time      `gorm:"not null;index" json:"created_at"`
	UpdatedAt      time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Buyer) TableName() string { return "buyer" }

func (b *Buyer) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	if b.PreApprovalStatus == "" {
		b.PreApprovalStatus = PreApprovalNotStarted
	}
	if b.LastActivityAt.IsZero() {
		b.LastActivityAt = time.Now().UTC()
	}
	return nil
}

// Normalize trims free-text fields and drops blank or duplicate cities.
func (b *Buyer) Normalize() {
	b.Name = strings.TrimSpace(b.Name)
	b.Email = strings.ToLower(strings.TrimSpace(b.Email))
	b.Phone = strings.TrimSpace(b.Phone)
	b.MustHaves = strings.TrimSpace(b.MustHaves)
	b.NiceToHaves = strings.TrimSpace(b.NiceToHaves)
	seen := map[string]bool{}
	cities := make([]string, 0, len(b.PreferredCities))
	for _, c := range b.PreferredCities {
		c = strings.TrimSpace(c)
		key := strings.ToLower(c)
		if c == "" || seen[key] {
			continue
		}
		seen[key] = true
		cities = append(cities, c)
	}
	b.PreferredCities = cities
}

// BuyerProfile is the portal projection of a buyer. Agent notes stay behind.
type BuyerProfile struct {
	ID                uuid.UUID         `json:"id"`
	Name              string            `json:"name"`
	CurrentStage      int               `json:"current_stage"`
	BudgetMin         int64             `json:"budget_min"`
	BudgetMax         int64             `json:"budget_max"`
	PreApprovalStatus PreApprovalStatus `json:"pre_approval_status"`
	PreferredCities   []string          `json:"preferred_cities"`
	PropertyTypes     []PropertyType    `json:"property_types"`
	MinBeds           int               `json:"min_beds"`
	MinBaths          float64           `json:"min_baths"`
}

func (b *Buyer) Profile() BuyerProfile {
	return BuyerProfile{
		ID:                b.ID,
		Name:              b.Name,
		CurrentStage:      b.CurrentStage,
		BudgetMin:         b.BudgetMin,
		BudgetMax:         b.BudgetMax,
		PreApprovalStatus: b.PreApprovalStatus,
		PreferredCities:   append([]string(nil), b.PreferredCities...),
		PropertyTypes:     append([]PropertyType(nil), b.PropertyTypes...),
		MinBeds:           b.MinBeds,
		MinBaths:          b.MinBaths,
	}
}
