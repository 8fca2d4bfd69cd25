package documents

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Visibility string

const (
	VisibilityInternal Visibility = "internal"
	VisibilityShared   Visibility = "shared"
)

type AuthorKind string

const (
	AuthorAgent AuthorKind = "agent"
	AuthorAI    AuthorKind = "ai"
)

// Artifact is drafted content kept in a workspace. AI-authored artifacts are
// tied to the draft item that produced them and only become shared when that
// item is approved.
type Artifact struct {
	ID      uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	BuyerID uuid.UUID  `gorm:"type:uuid;not null;index" json:"buyer_id"`
	ItemID  *uuid.UUID `gorm:"type:uuid;index" json:"item_id,omitempty"`

	Author     AuthorKind `gorm:"column:author;not null" json:"author"`
	Title      string     `gorm:"column:title;not null" json:"title"`
	Content    string     `gorm:"column:content;type:text;not null;default:''" json:"content"`
	Visibility Visibility `gorm:"column:visibility;not null;default:'internal';index" json:"visibility"`
	SharedAt   *time.Time `gorm:"column:shared_at" json:"shared_at,omitempty"`

	CreatedAt time.Time      `gorm:"not null;index" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Artifact) TableName() string { return "artifact" }

func (a *Artifact) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.Visibility == "" {
		a.Visibility = VisibilityInternal
	}
	return nil
}
