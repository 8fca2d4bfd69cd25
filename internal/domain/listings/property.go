package listings

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Property struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedBy uuid.UUID `gorm:"type:uuid;not null;index" json:"created_by"`

	Address      string                      `gorm:"column:address;not null" json:"address"`
	City         string                      `gorm:"column:city;index" json:"city"`
	State        string                      `gorm:"column:state" json:"state"`
	ZipCode      string                      `gorm:"column:zip_code" json:"zip_code"`
	Price        int64                       `gorm:"column:price;not null;default:0" json:"price"`
	Bedrooms     int                         `gorm:"column:bedrooms;not null;default:0" json:"bedrooms"`
	Bathrooms    float64                     `gorm:"column:bathrooms;not null;default:0" json:"bathrooms"`
	Sqft         int                         `gorm:"column:sqft;not null;default:0" json:"sqft"`
	YearBuilt    int                         `gorm:"column:year_built" json:"year_built,omitempty"`
	LotSize      string                      `gorm:"column:lot_size" json:"lot_size,omitempty"`
	PropertyType string                      `gorm:"column:property_type" json:"property_type,omitempty"`
	Description  string                      `gorm:"column:description;type:text" json:"description,omitempty"`
	Photos       datatypes.JSONSlice[string] `gorm:"column:photos" json:"photos"`
	ListingAgent string                      `gorm:"column:listing_agent" json:"listing_agent,omitempty"`
	SourceURL    string                      `gorm:"column:source_url;index" json:"source_url,omitempty"`

	CreatedAt time.Time      `gorm:"not null;index" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Property) TableName() string { return "property" }

func (p *Property) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// BuyerProperty links a property into a buyer's workspace. Buyers may flip
// Viewed and Favorited; Archived and AgentNote belong to the agent.
type BuyerProperty struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	BuyerID    uuid.UUID `gorm:"type:uuid;not null;index:idx_buyer_property_pair,unique,priority:1" json:"buyer_id"`
	PropertyID uuid.UUID `gorm:"type:uuid;not null;index:idx_buyer_property_pair,unique,priority:2" json:"property_id"`

	Viewed    bool       `gorm:"column:viewed;not null;default:false" json:"viewed"`
	ViewedAt  *time.Time `gorm:"column:viewed_at" json:"viewed_at,omitempty"`
	Favorited bool       `gorm:"column:favorited;not null;default:false;index" json:"favorited"`
	Archived  bool       `gorm:"column:archived;not null;default:false;index" json:"archived"`
	AgentNote string     `gorm:"column:agent_note;type:text" json:"agent_note,omitempty"`

	Property *Property `gorm:"foreignKey:PropertyID" json:"property,omitempty"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (BuyerProperty) TableName() string { return "buyer_property" }

// BuyerView is the copy of the link a buyer may see.
func (bp *BuyerProperty) BuyerView() *BuyerProperty {
	out := *bp
	out.AgentNote = ""
	return &out
}

func (bp *BuyerProperty) BeforeCreate(tx *gorm.DB) error {
	if bp.ID == uuid.Nil {
		bp.ID = uuid.New()
	}
	return nil
}
