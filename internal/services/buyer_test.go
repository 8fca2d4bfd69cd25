package services

import (
	"errors"
	"testing"

	"github.com/yungbote/buyerdesk-backend/internal/data/repos"
	types "github.com/yungbote/buyerdesk-backend/internal/domain"
	"github.com/yungbote/buyerdesk-backend/internal/pkg/errs"
)

func (f *fixture) buyerService() BuyerService {
	return NewBuyerService(f.db, f.log, f.catalog, f.buyers)
}

func TestCreateBuyerValidates(t *testing.T) {
	f := newFixture(t)
	svc := f.buyerService()

	if _, err := svc.Create(f.agent(), &types.Buyer{Name: "Sam", CurrentStage: 42}); !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("stage err=%v", err)
	}
	if _, err := svc.Create(f.agent(), &types.Buyer{Name: "Sam", BudgetMin: 500000, BudgetMax: 400000}); !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("budget err=%v", err)
	}
	b, err := svc.Create(f.agent(), &types.Buyer{Name: "Sam", Email: "sam@example.com", BudgetMax: 600000})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if b.AgentID != f.agentID || b.CurrentStage != 0 {
		t.Fatalf("buyer=%+v", b)
	}
	if _, err := svc.Create(f.broker(), &types.Buyer{Name: "X"}); !errors.Is(err, errs.ErrForbidden) {
		t.Fatalf("broker create err=%v", err)
	}
}

func TestUpdateBuyerAndProfileHidesNotes(t *testing.T) {
	f := newFixture(t)
	b := f.seedBuyer(t, 1)
	svc := f.buyerService()

	notes := "Relocating for work; wants short commute."
	beds := 3
	up, err := svc.Update(f.agent(), b.ID, BuyerPatch{AgentNotes: &notes, MinBeds: &beds})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if up.AgentNotes != notes || up.MinBeds != 3 {
		t.Fatalf("patch not applied: %+v", up)
	}
	if _, err := svc.Update(f.otherAgent(), b.ID, BuyerPatch{AgentNotes: &notes}); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("foreign update err=%v", err)
	}

	prof, err := svc.Profile(f.buyer(b))
	if err != nil {
		t.Fatalf("Profile: %v", err)
	}
	if prof.ID != b.ID || prof.MinBeds != 3 {
		t.Fatalf("profile=%+v", prof)
	}
	if _, err := svc.Profile(f.agent()); !errors.Is(err, errs.ErrForbidden) {
		t.Fatalf("agent profile err=%v", err)
	}

	list, err := svc.List(f.agent(), repos.BuyerFilter{})
	if err != nil || len(list) != 1 {
		t.Fatalf("List n=%d err=%v", len(list), err)
	}
}
