package services

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/buyerdesk-backend/internal/data/repos"
	types "github.com/yungbote/buyerdesk-backend/internal/domain"
	"github.com/yungbote/buyerdesk-backend/internal/domain/deals"
	"github.com/yungbote/buyerdesk-backend/internal/pkg/dbctx"
	"github.com/yungbote/buyerdesk-backend/internal/pkg/errs"
	"github.com/yungbote/buyerdesk-backend/internal/platform/ctxutil"
	"github.com/yungbote/buyerdesk-backend/internal/platform/logger"
)

type TaskPatch struct {
	Title        *string             `json:"title"`
	Description  *string             `json:"description"`
	DueDate      *time.Time          `json:"due_date"`
	ClearDueDate bool                `json:"clear_due_date"`
	Priority     *types.TaskPriority `json:"priority"`
	Status       *types.TaskStatus   `json:"status"`
	Assignee     *types.Assignee     `json:"assignee"`
	AssigneeName *string             `json:"assignee_name"`
	BuyerID      *uuid.UUID          `json:"buyer_id"`
}

type TaskService interface {
	Create(dbc dbctx.Context, in *types.Task) (*types.Task, error)
	Get(dbc dbctx.Context, id uuid.UUID) (*types.Task, error)
	List(dbc dbctx.Context, f repos.TaskFilter) ([]*types.Task, error)
	Update(dbc dbctx.Context, id uuid.UUID, patch TaskPatch) (*types.Task, error)
	SetStatus(dbc dbctx.Context, id uuid.UUID, status types.TaskStatus) (*types.Task, error)
	Delete(dbc dbctx.Context, id uuid.UUID) error
}

type taskService struct {
	db     *gorm.DB
	log    *logger.Logger
	buyers repos.BuyerRepo
	items  repos.ItemRepo
	tasks  repos.TaskRepo
	notify WorkspaceNotifier
}

func NewTaskService(
	db *gorm.DB,
	baseLog *logger.Logger,
	buyers repos.BuyerRepo,
	items repos.ItemRepo,
	tasks repos.TaskRepo,
	notify WorkspaceNotifier,
) TaskService {
	if notify == nil {
		notify = NewWorkspaceNotifier(nil)
	}
	return &taskService{
		db:     db,
		log:    baseLog.With("service", "TaskService"),
		buyers: buyers,
		items:  items,
		tasks:  tasks,
		notify: notify,
	}
}

func normalizeTask(t *types.Task) error {
	t.Title = strings.TrimSpace(t.Title)
	t.Description = strings.TrimSpace(t.Description)
	t.AssigneeName = strings.TrimSpace(t.AssigneeName)
	if t.Title == "" {
		return errs.Invalid("title required")
	}
	if t.Priority == "" {
		t.Priority = deals.PriorityMedium
	}
	if !t.Priority.Valid() {
		return errs.Invalid("unknown priority %q", t.Priority)
	}
	if t.Assignee == "" {
		t.Assignee = deals.AssigneeAgent
	}
	if !t.Assignee.Valid() {
		return errs.Invalid("unknown assignee %q", t.Assignee)
	}
	if t.Assignee == deals.AssigneeThirdParty && t.AssigneeName == "" {
		return errs.Invalid("assignee_name required for third-party tasks")
	}
	if t.Assignee != deals.AssigneeThirdParty {
		t.AssigneeName = ""
	}
	return nil
}

func (s *taskService) Create(dbc dbctx.Context, in *types.Task) (*types.Task, error) {
	sess, err := requireAgent(dbc, accessWrite)
	if err != nil {
		return nil, err
	}
	if in == nil {
		return nil, errs.Invalid("task required")
	}
	t := *in
	t.ID = uuid.Nil
	t.AgentID = sess.UserID
	t.CompletedAt = nil
	status := t.Status
	if status == "" {
		status = types.TaskTodo
	}
	if !status.Valid() {
		return nil, errs.Invalid("unknown status %q", status)
	}
	t.Status = types.TaskTodo
	t.ApplyStatus(status, time.Now())
	if err := normalizeTask(&t); err != nil {
		return nil, err
	}
	if t.BuyerID != nil {
		if _, err := loadBuyer(dbc, s.buyers, sess, *t.BuyerID, accessWrite); err != nil {
			return nil, err
		}
	}
	out, err := s.tasks.Create(dbc, &t)
	if err != nil {
		return nil, err
	}
	s.notify.TaskUpdated(out.AgentID, out)
	return out, nil
}

func (s *taskService) load(dbc dbctx.Context, id uuid.UUID, mode access) (*types.Task, error) {
	sess, err := requireAgent(dbc, mode)
	if err != nil {
		return nil, err
	}
	t, err := s.tasks.GetByID(dbc, id)
	if err != nil {
		return nil, err
	}
	if !ownsAgentRow(sess, t.AgentID) {
		return nil, fmt.Errorf("task %s: %w", id, errs.ErrNotFound)
	}
	return t, nil
}

func (s *taskService) Get(dbc dbctx.Context, id uuid.UUID) (*types.Task, error) {
	return s.load(dbc, id, accessRead)
}

func (s *taskService) List(dbc dbctx.Context, f repos.TaskFilter) ([]*types.Task, error) {
	sess, err := requireAgent(dbc, accessRead)
	if err != nil {
		return nil, err
	}
	if f.Status != "" && !f.Status.Valid() {
		return nil, errs.Invalid("unknown status %q", f.Status)
	}
	if f.Priority != "" && !f.Priority.Valid() {
		return nil, errs.Invalid("unknown priority %q", f.Priority)
	}
	if f.Assignee != "" && !f.Assignee.Valid() {
		return nil, errs.Invalid("unknown assignee %q", f.Assignee)
	}
	f.AgentID = agentScope(sess)
	return s.tasks.List(dbc, f)
}

func (s *taskService) Update(dbc dbctx.Context, id uuid.UUID, patch TaskPatch) (*types.Task, error) {
	return s.mutate(dbc, id, func(inner dbctx.Context, sess *ctxutil.Session, t *types.Task, now time.Time) error {
		if patch.Title != nil {
			t.Title = *patch.Title
		}
		if patch.Description != nil {
			t.Description = *patch.Description
		}
		if patch.ClearDueDate {
			t.DueDate = nil
		} else if patch.DueDate != nil {
			d := patch.DueDate.UTC()
			t.DueDate = &d
		}
		if patch.Priority != nil {
			t.Priority = *patch.Priority
		}
		if patch.Assignee != nil {
			t.Assignee = *patch.Assignee
		}
		if patch.AssigneeName != nil {
			t.AssigneeName = *patch.AssigneeName
		}
		if patch.BuyerID != nil {
			if _, err := loadBuyer(inner, s.buyers, sess, *patch.BuyerID, accessWrite); err != nil {
				return err
			}
			t.BuyerID = patch.BuyerID
		}
		if patch.Status != nil {
			if !patch.Status.Valid() {
				return errs.Invalid("unknown status %q", *patch.Status)
			}
			t.ApplyStatus(*patch.Status, now)
		}
		return normalizeTask(t)
	})
}

func (s *taskService) SetStatus(dbc dbctx.Context, id uuid.UUID, status types.TaskStatus) (*types.Task, error) {
	if !status.Valid() {
		return nil, errs.Invalid("unknown status %q", status)
	}
	return s.mutate(dbc, id, func(_ dbctx.Context, _ *ctxutil.Session, t *types.Task, now time.Time) error {
		t.ApplyStatus(status, now)
		return nil
	})
}

// mutate applies fn and saves. A buyer-assigned task entering complete leaves
// a task-completed event in that buyer's workspace.
func (s *taskService) mutate(dbc dbctx.Context, id uuid.UUID, fn func(inner dbctx.Context, sess *ctxutil.Session, t *types.Task, now time.Time) error) (*types.Task, error) {
	sess, err := requireAgent(dbc, accessWrite)
	if err != nil {
		return nil, err
	}
	var (
		out   *types.Task
		buyer *types.Buyer
		event *types.Item
	)
	err = s.db.WithContext(dbc.Ctx).Transaction(func(tx *gorm.DB) error {
		inner := dbc.WithTx(tx)
		t, err := s.load(inner, id, accessWrite)
		if err != nil {
			return err
		}
		wasComplete := t.Status == types.TaskComplete
		now := time.Now().UTC()
		if err := fn(inner, sess, t, now); err != nil {
			return err
		}
		if err := s.tasks.Save(inner, t); err != nil {
			return err
		}
		out = t
		if wasComplete || t.Status != types.TaskComplete || t.BuyerID == nil || t.Assignee != deals.AssigneeBuyer {
			return nil
		}
		if buyer, err = s.buyers.GetByID(inner, *t.BuyerID); err != nil {
			return err
		}
		event, err = appendEvent(inner, s.items, buyer, types.EventTaskCompleted, "Task completed: "+t.Title, "", &t.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.notify.TaskUpdated(out.AgentID, out)
	if event != nil {
		s.notify.ItemCreated(buyer, event)
	}
	return out, nil
}

func (s *taskService) Delete(dbc dbctx.Context, id uuid.UUID) error {
	t, err := s.load(dbc, id, accessWrite)
	if err != nil {
		return err
	}
	if err := s.tasks.Delete(dbc, t.ID); err != nil {
		return err
	}
	s.log.Info("task deleted", "task_id", t.ID)
	return nil
}
