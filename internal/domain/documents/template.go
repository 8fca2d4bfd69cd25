package documents

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AnalysisStatus string

const (
	AnalysisPending   AnalysisStatus = "pending"
	AnalysisAnalyzing AnalysisStatus = "analyzing"
	AnalysisCompleted AnalysisStatus = "completed"
	AnalysisFailed    AnalysisStatus = "failed"
)

// Terminal statuses end client polling.
func (s AnalysisStatus) Terminal() bool {
	return s == AnalysisCompleted || s == AnalysisFailed
}

type OfferTemplate struct {
	ID      uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	AgentID uuid.UUID `gorm:"type:uuid;not null;index" json:"agent_id"`

	Name     string `gorm:"column:name;not null" json:"name"`
	FileURL  string `gorm:"column:file_url;not null" json:"file_url"`
	FileType string `gorm:"column:file_type;not null" json:"file_type"`

	AnalysisStatus AnalysisStatus `gorm:"column:analysis_status;not null;default:'pending';index" json:"analysis_status"`
	AnalysisError  string         `gorm:"column:analysis_error;type:text" json:"analysis_error,omitempty"`
	Attempts       int            `gorm:"column:attempts;not null;default:0" json:"attempts"`
	AnalyzedAt     *time.Time     `gorm:"column:analyzed_at" json:"analyzed_at,omitempty"`

	Fields []OfferTemplateField `gorm:"foreignKey:TemplateID" json:"fields,omitempty"`

	CreatedAt time.Time      `gorm:"not null;index" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (OfferTemplate) TableName() string { return "offer_template" }

func (t *OfferTemplate) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	if t.AnalysisStatus == "" {
		t.AnalysisStatus = AnalysisPending
	}
	return nil
}

type OfferTemplateField struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	TemplateID uuid.UUID `gorm:"type:uuid;not null;index" json:"template_id"`

	Name         string `gorm:"column:name;not null" json:"name"`
	Label        string `gorm:"column:label" json:"label"`
	FieldType    string `gorm:"column:field_type;not null;default:'text'" json:"field_type"`
	Required     bool   `gorm:"column:required;not null;default:false" json:"required"`
	Page         int    `gorm:"column:page;not null;default:0" json:"page"`
	DefaultValue string `gorm:"column:default_value" json:"default_value,omitempty"`
	Position     int    `gorm:"column:position;not null;default:0" json:"position"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
}

func (OfferTemplateField) TableName() string { return "offer_template_field" }

func (f *OfferTemplateField) BeforeCreate(tx *gorm.DB) error {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	return nil
}
