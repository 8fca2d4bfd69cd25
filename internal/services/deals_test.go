package services

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/yungbote/buyerdesk-backend/internal/data/repos"
	"github.com/yungbote/buyerdesk-backend/internal/data/repos/testutil"
	types "github.com/yungbote/buyerdesk-backend/internal/domain"
	"github.com/yungbote/buyerdesk-backend/internal/domain/deals"
	"github.com/yungbote/buyerdesk-backend/internal/pkg/errs"
)

func (f *fixture) offerService() OfferService {
	return NewOfferService(f.db, f.log, f.buyers, f.items, f.offers, f.notify)
}

func (f *fixture) taskService() TaskService {
	return NewTaskService(f.db, f.log, f.buyers, f.items, f.tasks, f.notify)
}

func TestOfferSubmitStampsAndRecordsEvent(t *testing.T) {
	f := newFixture(t)
	b := f.seedBuyer(t, 5)
	svc := f.offerService()

	o, err := svc.Create(f.agent(), &types.Offer{
		BuyerID: b.ID,
		Amount:  450000,
		Fields:  datatypes.NewJSONType(types.OfferFields{EarnestMoney: 5000, ClosingDate: "2026-12-01"}),
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if o.Status != types.OfferDraft || o.AgentID != f.agentID {
		t.Fatalf("new offer status=%s agent=%s", o.Status, o.AgentID)
	}

	got, ev, err := svc.SetStatus(f.agent(), o.ID, types.OfferSubmitted)
	if err != nil {
		t.Fatalf("SetStatus: %v", err)
	}
	if got.SubmittedAt == nil {
		t.Fatalf("submitted_at not stamped")
	}
	if ev == nil || ev.EventType != types.EventOfferSubmitted || ev.StageIndex != 5 {
		t.Fatalf("event=%+v", ev)
	}
	if ev.Title != "Offer submitted: $450,000" {
		t.Fatalf("title=%q", ev.Title)
	}

	if _, ev, err = svc.SetStatus(f.agent(), o.ID, types.OfferWithdrawn); err != nil || ev != nil {
		t.Fatalf("withdrawn: ev=%v err=%v", ev, err)
	}
	if _, _, err := svc.SetStatus(f.agent(), o.ID, "lost"); !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("bad status err=%v", err)
	}
}

func TestOfferValidationAndScope(t *testing.T) {
	f := newFixture(t)
	b := f.seedBuyer(t, 5)
	svc := f.offerService()

	_, err := svc.Create(f.agent(), &types.Offer{
		BuyerID: b.ID,
		Fields:  datatypes.NewJSONType(types.OfferFields{ClosingDate: "12/01/2026"}),
	})
	if !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("closing date err=%v", err)
	}
	o, err := svc.Create(f.agent(), &types.Offer{BuyerID: b.ID, Amount: 1})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := svc.Get(f.otherAgent(), o.ID); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("foreign get err=%v", err)
	}
	if _, err := svc.Get(f.broker(), o.ID); err != nil {
		t.Fatalf("broker get: %v", err)
	}
	amount := int64(455000)
	up, err := svc.Update(f.agent(), o.ID, OfferPatch{Amount: &amount})
	if err != nil || up.Amount != amount {
		t.Fatalf("Update: %v", err)
	}
	list, err := svc.List(f.agent(), repos.OfferFilter{BuyerID: &b.ID, Sort: "amount"})
	if err != nil || len(list) != 1 {
		t.Fatalf("List n=%d err=%v", len(list), err)
	}
}

func TestTaskCompletionStampsAndClears(t *testing.T) {
	f := newFixture(t)
	b := f.seedBuyer(t, 6)
	svc := f.taskService()

	task, err := svc.Create(f.agent(), &types.Task{
		BuyerID:  &b.ID,
		Title:    "Upload insurance binder",
		Assignee: deals.AssigneeBuyer,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if task.Priority != deals.PriorityMedium || task.CompletedAt != nil {
		t.Fatalf("defaults priority=%s completed=%v", task.Priority, task.CompletedAt)
	}

	done, err := svc.SetStatus(f.agent(), task.ID, types.TaskComplete)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if done.CompletedAt == nil {
		t.Fatalf("completed_at not set")
	}
	events, err := f.items.ListByBuyer(f.agent(), b.ID, repos.ItemFilter{Kinds: []types.ItemKind{types.KindSystemEvent}})
	if err != nil || len(events) != 1 || events[0].EventType != types.EventTaskCompleted {
		t.Fatalf("task event n=%d err=%v", len(events), err)
	}

	reopened, err := svc.SetStatus(f.agent(), task.ID, types.TaskInProgress)
	if err != nil || reopened.CompletedAt != nil {
		t.Fatalf("reopen completed_at=%v err=%v", reopened.CompletedAt, err)
	}
}

func TestAgentTaskCompletionStaysOutOfWorkspace(t *testing.T) {
	f := newFixture(t)
	b := f.seedBuyer(t, 6)
	svc := f.taskService()
	task, err := svc.Create(f.agent(), &types.Task{BuyerID: &b.ID, Title: "Call listing agent"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := svc.SetStatus(f.agent(), task.ID, types.TaskComplete); err != nil {
		t.Fatalf("complete: %v", err)
	}
	events, err := f.items.ListByBuyer(f.agent(), b.ID, repos.ItemFilter{})
	if err != nil || len(events) != 0 {
		t.Fatalf("agent task leaked: n=%d err=%v", len(events), err)
	}
}

func TestTaskUpdateMovesOnlyToOwnBuyers(t *testing.T) {
	f := newFixture(t)
	mine := f.seedBuyer(t, 1)
	foreign := testutil.SeedBuyer(t, f.db, uuid.New(), 1)
	svc := f.taskService()
	task, err := svc.Create(f.agent(), &types.Task{Title: "Send lender list"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if _, err := svc.Update(f.agent(), task.ID, TaskPatch{BuyerID: &foreign.ID}); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("move to foreign buyer err=%v", err)
	}
	if got, _ := svc.Get(f.agent(), task.ID); got.BuyerID != nil {
		t.Fatalf("task moved anyway: %v", got.BuyerID)
	}
	if _, err := svc.Update(f.broker(), task.ID, TaskPatch{BuyerID: &mine.ID}); !errors.Is(err, errs.ErrForbidden) {
		t.Fatalf("broker move err=%v", err)
	}
	moved, err := svc.Update(f.agent(), task.ID, TaskPatch{BuyerID: &mine.ID})
	if err != nil || moved.BuyerID == nil || *moved.BuyerID != mine.ID {
		t.Fatalf("move to own buyer: %+v err=%v", moved, err)
	}
}

func TestTaskThirdPartyNeedsName(t *testing.T) {
	f := newFixture(t)
	_, err := f.taskService().Create(f.agent(), &types.Task{Title: "Inspection", Assignee: deals.AssigneeThirdParty})
	if !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("err=%v", err)
	}
}

func TestTaskListAndDelete(t *testing.T) {
	f := newFixture(t)
	svc := f.taskService()
	due := time.Now().Add(-time.Hour)
	task, err := svc.Create(f.agent(), &types.Task{Title: "Order appraisal", Priority: deals.PriorityHigh, DueDate: &due})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	list, err := svc.List(f.agent(), repos.TaskFilter{Priority: deals.PriorityHigh, Sort: "due_date"})
	if err != nil || len(list) != 1 {
		t.Fatalf("List n=%d err=%v", len(list), err)
	}
	if _, err := svc.List(f.otherAgent(), repos.TaskFilter{}); err != nil {
		t.Fatalf("other agent list: %v", err)
	}
	if err := svc.Delete(f.broker(), task.ID); !errors.Is(err, errs.ErrForbidden) {
		t.Fatalf("broker delete err=%v", err)
	}
	if err := svc.Delete(f.agent(), task.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := svc.Get(f.agent(), task.ID); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("deleted task err=%v", err)
	}
}
