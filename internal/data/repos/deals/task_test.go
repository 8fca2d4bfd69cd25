package deals

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/buyerdesk-backend/internal/data/repos/testutil"
	types "github.com/yungbote/buyerdesk-backend/internal/domain"
	"github.com/yungbote/buyerdesk-backend/internal/domain/deals"
)

func TestTaskListSortsByDueDateWithUndatedLast(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	dbc := testutil.DBC(tx)
	repo := NewTaskRepo(db, testutil.Logger(t))

	agent := uuid.New()
	now := time.Now().UTC().Truncate(time.Second)
	later := now.Add(48 * time.Hour)
	sooner := now.Add(2 * time.Hour)

	mk := func(title string, due *time.Time, p types.TaskPriority) {
		t.Helper()
		if _, err := repo.Create(dbc, &types.Task{
			AgentID: agent, Title: title, DueDate: due, Priority: p,
			Status: types.TaskTodo, Assignee: deals.AssigneeAgent,
		}); err != nil {
			t.Fatalf("Create %s: %v", title, err)
		}
	}
	mk("undated-high", nil, deals.PriorityHigh)
	mk("later-low", &later, deals.PriorityLow)
	mk("sooner-medium", &sooner, deals.PriorityMedium)

	got, err := repo.List(dbc, TaskFilter{AgentID: &agent, Sort: TaskSortDueDate})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	want := []string{"sooner-medium", "later-low", "undated-high"}
	for i, w := range want {
		if got[i].Title != w {
			t.Fatalf("due order[%d]=%s want=%s", i, got[i].Title, w)
		}
	}

	got, err = repo.List(dbc, TaskFilter{AgentID: &agent, Sort: TaskSortPriority})
	if err != nil {
		t.Fatalf("List priority: %v", err)
	}
	if got[0].Title != "undated-high" || got[2].Title != "later-low" {
		t.Fatalf("priority order: %s, %s, %s", got[0].Title, got[1].Title, got[2].Title)
	}
}

func TestTaskSavePersistsClearedCompletedAt(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	dbc := testutil.DBC(tx)
	repo := NewTaskRepo(db, testutil.Logger(t))

	agent := uuid.New()
	task, err := repo.Create(dbc, &types.Task{
		AgentID: agent, Title: "Order inspection",
		Priority: deals.PriorityHigh, Status: types.TaskTodo, Assignee: deals.AssigneeAgent,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	now := time.Now()
	task.ApplyStatus(types.TaskComplete, now)
	if err := repo.Save(dbc, task); err != nil {
		t.Fatalf("Save complete: %v", err)
	}
	if n, _ := repo.CountOpen(dbc, &agent); n != 0 {
		t.Fatalf("open after complete=%d", n)
	}

	task.ApplyStatus(types.TaskInProgress, now.Add(time.Minute))
	if err := repo.Save(dbc, task); err != nil {
		t.Fatalf("Save reopen: %v", err)
	}
	stored, err := repo.GetByID(dbc, task.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if stored.CompletedAt != nil {
		t.Fatalf("completed_at not cleared: %v", stored.CompletedAt)
	}
	if stored.Status != types.TaskInProgress {
		t.Fatalf("status=%s", stored.Status)
	}
}

func TestTaskCountOverdue(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	dbc := testutil.DBC(tx)
	repo := NewTaskRepo(db, testutil.Logger(t))

	agent := uuid.New()
	now := time.Now().UTC()
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)
	for _, tc := range []struct {
		due    *time.Time
		status types.TaskStatus
	}{
		{&past, types.TaskTodo},
		{&past, types.TaskComplete},
		{&future, types.TaskTodo},
		{nil, types.TaskInProgress},
	} {
		if _, err := repo.Create(dbc, &types.Task{
			AgentID: agent, Title: "t", DueDate: tc.due, Status: tc.status,
			Priority: deals.PriorityMedium, Assignee: deals.AssigneeAgent,
		}); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}
	n, err := repo.CountOverdue(dbc, &agent, now)
	if err != nil {
		t.Fatalf("CountOverdue: %v", err)
	}
	if n != 1 {
		t.Fatalf("overdue=%d want=1", n)
	}
}
