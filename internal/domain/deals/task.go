package deals

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type TaskPriority string

const (
	PriorityHigh   TaskPriority = "high"
	PriorityMedium TaskPriority = "medium"
	PriorityLow    TaskPriority = "low"
)

func (p TaskPriority) Valid() bool {
	return p == PriorityHigh || p == PriorityMedium || p == PriorityLow
}

// Rank orders high before low.
func (p TaskPriority) Rank() int {
	switch p {
	case PriorityHigh:
		return 0
	case PriorityMedium:
		return 1
	default:
		return 2
	}
}

type TaskStatus string

const (
	TaskTodo       TaskStatus = "todo"
	TaskInProgress TaskStatus = "in_progress"
	TaskComplete   TaskStatus = "complete"
)

func (s TaskStatus) Valid() bool {
	return s == TaskTodo || s == TaskInProgress || s == TaskComplete
}

type Assignee string

const (
	AssigneeAgent      Assignee = "agent"
	AssigneeBuyer      Assignee = "buyer"
	AssigneeThirdParty Assignee = "third_party"
)

func (a Assignee) Valid() bool {
	return a == AssigneeAgent || a == AssigneeBuyer || a == AssigneeThirdParty
}

type Task struct {
	ID      uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	AgentID uuid.UUID  `gorm:"type:uuid;not null;index" json:"agent_id"`
	BuyerID *uuid.UUID `gorm:"type:uuid;index" json:"buyer_id,omitempty"`

	Title       string     `gorm:"column:title;not null" json:"title"`
	Description string     `gorm:"column:description;type:text" json:"description,omitempty"`
	DueDate     *time.Time `gorm:"column:due_date;index" json:"due_date,omitempty"`

	Priority     TaskPriority `gorm:"column:priority;not null;default:'medium';index" json:"priority"`
	Status       TaskStatus   `gorm:"column:status;not null;default:'todo';index" json:"status"`
	Assignee     Assignee     `gorm:"column:assignee;not null;default:'agent';index" json:"assignee"`
	AssigneeName string       `gorm:"column:assignee_name" json:"assignee_name,omitempty"`

	// SourceAction names the system action that generated the task, if any.
	SourceAction string `gorm:"column:source_action" json:"source_action,omitempty"`

	CompletedAt *time.Time `gorm:"column:completed_at" json:"completed_at,omitempty"`

	CreatedAt time.Time      `gorm:"not null;index" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Task) TableName() string { return "task" }

func (t *Task) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

// ApplyStatus is the only way a task changes status. completed_at is stamped
// on entry into complete and cleared on exit; staying complete keeps the
// original stamp.
func (t *Task) ApplyStatus(next TaskStatus, now time.Time) {
	switch {
	case next == TaskComplete && (t.Status != TaskComplete || t.CompletedAt == nil):
		at := now.UTC()
		t.CompletedAt = &at
	case next != TaskComplete:
		t.CompletedAt = nil
	}
	t.Status = next
}

// Overdue reports an open task whose due date has passed.
func (t *Task) Overdue(now time.Time) bool {
	return t.Status != TaskComplete && t.DueDate != nil && t.DueDate.Before(now)
}
