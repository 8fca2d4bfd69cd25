package deals

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/buyerdesk-backend/internal/domain"
	"github.com/yungbote/buyerdesk-backend/internal/pkg/dbctx"
	"github.com/yungbote/buyerdesk-backend/internal/pkg/errs"
	"github.com/yungbote/buyerdesk-backend/internal/platform/logger"
)

type TaskSort string

const (
	TaskSortDueDate  TaskSort = "due_date"
	TaskSortPriority TaskSort = "priority"
	TaskSortCreated  TaskSort = "created_at"
)

type TaskFilter struct {
	AgentID  *uuid.UUID
	BuyerID  *uuid.UUID
	Status   types.TaskStatus
	Priority types.TaskPriority
	Assignee types.Assignee
	OpenOnly bool
	Sort     TaskSort
	Limit    int
}

type TaskRepo interface {
	Create(dbc dbctx.Context, t *types.Task) (*types.Task, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Task, error)
	List(dbc dbctx.Context, f TaskFilter) ([]*types.Task, error)
	Save(dbc dbctx.Context, t *types.Task) error
	Delete(dbc dbctx.Context, id uuid.UUID) error
	CountOpen(dbc dbctx.Context, agentID *uuid.UUID) (int64, error)
	CountOverdue(dbc dbctx.Context, agentID *uuid.UUID, now time.Time) (int64, error)
}

type taskRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewTaskRepo(db *gorm.DB, log *logger.Logger) TaskRepo {
	return &taskRepo{db: db, log: log.With("repo", "TaskRepo")}
}

const priorityRankSQL = "CASE priority WHEN 'high' THEN 0 WHEN 'medium' THEN 1 ELSE 2 END"

func (r *taskRepo) Create(dbc dbctx.Context, t *types.Task) (*types.Task, error) {
	if t == nil {
		return nil, fmt.Errorf("missing task")
	}
	if err := dbc.DB(r.db).Create(t).Error; err != nil {
		return nil, err
	}
	return t, nil
}

func (r *taskRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Task, error) {
	var out types.Task
	if err := dbc.DB(r.db).Where("id = ?", id).First(&out).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("task %s: %w", id, errs.ErrNotFound)
		}
		return nil, err
	}
	return &out, nil
}

func (r *taskRepo) List(dbc dbctx.Context, f TaskFilter) ([]*types.Task, error) {
	limit := f.Limit
	if limit <= 0 || limit > 500 {
		limit = 200
	}
	q := dbc.DB(r.db).Model(&types.Task{})
	if f.AgentID != nil {
		q = q.Where("agent_id = ?", *f.AgentID)
	}
	if f.BuyerID != nil {
		q = q.Where("buyer_id = ?", *f.BuyerID)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.OpenOnly {
		q = q.Where("status <> ?", types.TaskComplete)
	}
	if f.Priority != "" {
		q = q.Where("priority = ?", f.Priority)
	}
	if f.Assignee != "" {
		q = q.Where("assignee = ?", f.Assignee)
	}
	switch f.Sort {
	case TaskSortPriority:
		q = q.Order(priorityRankSQL + " ASC").Order("due_date IS NULL").Order("due_date ASC")
	case TaskSortCreated:
		q = q.Order("created_at DESC")
	default:
		q = q.Order("due_date IS NULL").Order("due_date ASC").Order(priorityRankSQL + " ASC")
	}
	var out []*types.Task
	if err := q.Order("id ASC").Limit(limit).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// Save writes every column, so a cleared completed_at is persisted as NULL.
func (r *taskRepo) Save(dbc dbctx.Context, t *types.Task) error {
	if t == nil || t.ID == uuid.Nil {
		return fmt.Errorf("missing task_id")
	}
	return dbc.DB(r.db).Save(t).Error
}

func (r *taskRepo) Delete(dbc dbctx.Context, id uuid.UUID) error {
	res := dbc.DB(r.db).Where("id = ?", id).Delete(&types.Task{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("task %s: %w", id, errs.ErrNotFound)
	}
	return nil
}

func (r *taskRepo) CountOpen(dbc dbctx.Context, agentID *uuid.UUID) (int64, error) {
	q := dbc.DB(r.db).Model(&types.Task{}).Where("status <> ?", types.TaskComplete)
	if agentID != nil {
		q = q.Where("agent_id = ?", *agentID)
	}
	var n int64
	return n, q.Count(&n).Error
}

func (r *taskRepo) CountOverdue(dbc dbctx.Context, agentID *uuid.UUID, now time.Time) (int64, error) {
	q := dbc.DB(r.db).Model(&types.Task{}).
		Where("status <> ? AND due_date IS NOT NULL AND due_date < ?", types.TaskComplete, now.UTC())
	if agentID != nil {
		q = q.Where("agent_id = ?", *agentID)
	}
	var n int64
	return n, q.Count(&n).Error
}
