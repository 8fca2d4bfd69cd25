package workspace

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/buyerdesk-backend/internal/pkg/errs"
)

type kindCounter map[ItemKind]int

func (k kindCounter) HumanMessage(*Item, HumanMessage) error     { k[KindHumanMessage]++; return nil }
func (k kindCounter) AIExplanation(*Item, AIExplanation) error   { k[KindAIExplanation]++; return nil }
func (k kindCounter) SystemEvent(*Item, SystemEvent) error       { k[KindSystemEvent]++; return nil }
func (k kindCounter) ComponentBlock(*Item, ComponentBlock) error { k[KindComponentBlock]++; return nil }

func TestAcceptDispatchesEveryKind(t *testing.T) {
	buyer := uuid.New()
	items := []*Item{
		NewItem(buyer, 0, HumanMessage{Sender: SenderAgent, Content: "hi"}),
		NewBuyerFacingDraft(buyer, 0, "ctx"),
		NewItem(buyer, 1, SystemEvent{EventType: EventStageAdvanced, Title: "Moved"}),
		NewItem(buyer, 2, ComponentBlock{BlockType: BlockCompTable, Title: "Comps"}),
	}
	counts := kindCounter{}
	for _, it := range items {
		if err := it.Accept(counts); err != nil {
			t.Fatalf("Accept(%s): %v", it.Kind, err)
		}
	}
	for _, k := range []ItemKind{KindHumanMessage, KindAIExplanation, KindSystemEvent, KindComponentBlock} {
		if counts[k] != 1 {
			t.Fatalf("kind %s visited %d times", k, counts[k])
		}
	}

	bogus := &Item{Kind: "poll"}
	if err := bogus.Accept(counts); err == nil {
		t.Fatalf("expected error for unknown kind")
	}
}

func TestApproveTwiceFailsAndKeepsTimestamp(t *testing.T) {
	it := NewBuyerFacingDraft(uuid.New(), 1, "pre-approval")
	if err := it.FinishDraft("Pre-approval confirms $450,000 buying power."); err != nil {
		t.Fatalf("FinishDraft: %v", err)
	}
	agent := uuid.New()
	first := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	if err := it.Approve(agent, first); err != nil {
		t.Fatalf("Approve: %v", err)
	}
	if it.ApprovalStatus != ApprovalApproved || !it.BuyerVisible || !it.VisibleToBuyer() {
		t.Fatalf("unexpected state after approve: %+v", it)
	}

	err := it.Approve(agent, first.Add(time.Hour))
	if !errors.Is(err, errs.ErrInvalidTransition) {
		t.Fatalf("second Approve err=%v want ErrInvalidTransition", err)
	}
	if !it.ApprovedAt.Equal(first) {
		t.Fatalf("approved_at changed: %s", it.ApprovedAt)
	}
	if err := it.Reject("late"); !errors.Is(err, errs.ErrInvalidTransition) {
		t.Fatalf("Reject after approve err=%v", err)
	}
}

func TestRejectIsTerminalAndNeverVisible(t *testing.T) {
	it := NewBuyerFacingDraft(uuid.New(), 1, "")
	if err := it.FinishDraft("Taxes run about 1.2% here."); err != nil {
		t.Fatalf("FinishDraft: %v", err)
	}
	if err := it.Reject("  "); !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("blank reason err=%v", err)
	}
	if err := it.Reject("Needs buyer name correction"); err != nil {
		t.Fatalf("Reject: %v", err)
	}
	if it.ApprovalStatus != ApprovalRejected || it.BuyerVisible || it.VisibleToBuyer() {
		t.Fatalf("rejected item leaked: %+v", it)
	}
	if err := it.Approve(uuid.New(), time.Now()); !errors.Is(err, errs.ErrInvalidTransition) {
		t.Fatalf("Approve after reject err=%v", err)
	}
}

func TestInternalDraftIsNeverGatedOrVisible(t *testing.T) {
	it := NewInternalDraft(uuid.New(), 0, "comps")
	if it.RequiresApproval || it.ApprovalStatus != ApprovalNone {
		t.Fatalf("internal draft should not be gated: %+v", it)
	}
	if it.VisibleToBuyer() {
		t.Fatalf("internal draft visible to buyer")
	}
	if err := it.Approve(uuid.New(), time.Now()); !errors.Is(err, errs.ErrInvalidTransition) {
		t.Fatalf("Approve internal err=%v", err)
	}
}

func TestStreamingDraftCannotBeDecided(t *testing.T) {
	it := NewBuyerFacingDraft(uuid.New(), 1, "offer strategy")
	if !it.Streaming {
		t.Fatalf("new draft should be streaming")
	}
	if err := it.Approve(uuid.New(), time.Now()); !errors.Is(err, errs.ErrInvalidTransition) {
		t.Fatalf("Approve while streaming err=%v", err)
	}
	if err := it.Reject("too early"); !errors.Is(err, errs.ErrInvalidTransition) {
		t.Fatalf("Reject while streaming err=%v", err)
	}
	if it.ApprovalStatus != ApprovalPending || it.VisibleToBuyer() {
		t.Fatalf("streaming draft changed: %+v", it)
	}

	if err := it.FinishDraft("Offer at list with a 10-day inspection window."); err != nil {
		t.Fatalf("FinishDraft: %v", err)
	}
	if err := it.FinishDraft("again"); !errors.Is(err, errs.ErrInvalidTransition) {
		t.Fatalf("second FinishDraft err=%v", err)
	}
	if err := it.Approve(uuid.New(), time.Now()); err != nil {
		t.Fatalf("Approve after finish: %v", err)
	}

	late := NewBuyerFacingDraft(uuid.New(), 1, "x")
	late.ApprovalStatus = ApprovalApproved
	if err := late.FinishDraft("unreviewed"); !errors.Is(err, errs.ErrInvalidTransition) {
		t.Fatalf("FinishDraft on decided draft err=%v", err)
	}
	if late.Content != "" {
		t.Fatalf("decided draft content overwritten: %q", late.Content)
	}
}

func TestBuyerVisibleTracksApprovalStatus(t *testing.T) {
	for _, st := range []ApprovalStatus{ApprovalPending, ApprovalApproved, ApprovalRejected} {
		it := NewItem(uuid.New(), 0, AIExplanation{Audience: AudienceBuyer, RequiresApproval: true, Status: st})
		if it.BuyerVisible != (st == ApprovalApproved) {
			t.Fatalf("status=%s buyer_visible=%v", st, it.BuyerVisible)
		}
	}
}

func TestBuyerMessagesAreImmutable(t *testing.T) {
	now := time.Now()
	buyerMsg := NewItem(uuid.New(), 0, HumanMessage{Sender: SenderBuyer, Content: "Can we tour Saturday?"})
	if !buyerMsg.Locked {
		t.Fatalf("buyer message should be locked at creation")
	}
	if err := buyerMsg.EditContent("changed", now); !errors.Is(err, errs.ErrImmutableItem) {
		t.Fatalf("edit buyer message err=%v", err)
	}

	agentMsg := NewItem(uuid.New(), 0, HumanMessage{Sender: SenderAgent, Content: "draft"})
	if err := agentMsg.EditContent("Saturday at 10 works.", now); err != nil {
		t.Fatalf("edit agent message: %v", err)
	}
	if agentMsg.Content != "Saturday at 10 works." || agentMsg.EditedAt == nil {
		t.Fatalf("edit not applied: %+v", agentMsg)
	}
	agentMsg.Locked = true
	if err := agentMsg.EditContent("again", now); !errors.Is(err, errs.ErrImmutableItem) {
		t.Fatalf("edit locked agent message err=%v", err)
	}
}

func TestSystemEventsAndBlocksAreLocked(t *testing.T) {
	ev := NewItem(uuid.New(), 0, SystemEvent{EventType: EventOfferSubmitted, Title: "Offer submitted"})
	blk := NewItem(uuid.New(), 0, ComponentBlock{BlockType: BlockOfferSummary})
	if !ev.Locked || !blk.Locked {
		t.Fatalf("system items must be locked")
	}
	if !ev.VisibleToBuyer() || !blk.VisibleToBuyer() {
		t.Fatalf("system items should be buyer visible")
	}
}
