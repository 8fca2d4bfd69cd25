package services

import (
	"testing"
	"time"

	"gorm.io/datatypes"

	types "github.com/yungbote/buyerdesk-backend/internal/domain"
)

func TestDashboardSummaryCountsAgentBook(t *testing.T) {
	f := newFixture(t)
	b0 := f.seedBuyer(t, 0)
	f.seedBuyer(t, 0)
	b3 := f.seedBuyer(t, 3)
	f.seedDraft(t, b3, "tour recap")

	tasks := f.taskService()
	past := time.Now().Add(-48 * time.Hour)
	if _, err := tasks.Create(f.agent(), &types.Task{Title: "Overdue", DueDate: &past, BuyerID: &b0.ID}); err != nil {
		t.Fatalf("task: %v", err)
	}
	if _, err := tasks.Create(f.agent(), &types.Task{Title: "Done", Status: types.TaskComplete}); err != nil {
		t.Fatalf("task: %v", err)
	}
	if _, err := f.offerService().Create(f.agent(), &types.Offer{BuyerID: b3.ID, Amount: 1, Fields: datatypes.NewJSONType(types.OfferFields{})}); err != nil {
		t.Fatalf("offer: %v", err)
	}

	svc := NewDashboardService(f.log, f.catalog, f.buyers, f.items, f.tasks, f.offers)
	sum, err := svc.Summary(f.agent())
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if len(sum.BuyersByStage) != f.catalog.Len() || sum.BuyersByStage[0].Count != 2 || sum.BuyersByStage[3].Count != 1 {
		t.Fatalf("by stage=%+v", sum.BuyersByStage)
	}
	if sum.TotalBuyers != 3 || sum.PendingApprovals != 1 || sum.OpenTasks != 1 || sum.OverdueTasks != 1 {
		t.Fatalf("summary=%+v", sum)
	}
	if sum.OffersByStatus[types.OfferDraft] != 1 {
		t.Fatalf("offers=%v", sum.OffersByStatus)
	}

	other, err := svc.Summary(f.otherAgent())
	if err != nil || other.TotalBuyers != 0 || other.PendingApprovals != 0 {
		t.Fatalf("other agent summary=%+v err=%v", other, err)
	}
}

func TestDashboardRejectsBuyers(t *testing.T) {
	f := newFixture(t)
	b := f.seedBuyer(t, 0)
	svc := NewDashboardService(f.log, f.catalog, f.buyers, f.items, f.tasks, f.offers)
	if _, err := svc.Summary(f.buyer(b)); err == nil {
		t.Fatalf("buyer read the dashboard")
	}
}
