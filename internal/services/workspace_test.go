package services

import (
	"errors"
	"testing"

	"github.com/yungbote/buyerdesk-backend/internal/data/repos"
	types "github.com/yungbote/buyerdesk-backend/internal/domain"
	"github.com/yungbote/buyerdesk-backend/internal/domain/workspace"
	"github.com/yungbote/buyerdesk-backend/internal/pkg/errs"
	"github.com/yungbote/buyerdesk-backend/internal/realtime"
)

func TestAdvanceStageRecordsEventInTargetStage(t *testing.T) {
	f := newFixture(t)
	b := f.seedBuyer(t, 0)

	got, ev, err := f.stageService().AdvanceStage(f.agent(), b.ID, 1)
	if err != nil {
		t.Fatalf("AdvanceStage: %v", err)
	}
	if got.CurrentStage != 1 {
		t.Fatalf("current_stage=%d want=1", got.CurrentStage)
	}
	if ev.Kind != types.KindSystemEvent || ev.EventType != types.EventStageAdvanced || ev.StageIndex != 1 {
		t.Fatalf("unexpected event: kind=%s type=%s stage=%d", ev.Kind, ev.EventType, ev.StageIndex)
	}

	one := 1
	items, err := f.items.ListByBuyer(f.agent(), b.ID, repos.ItemFilter{Stage: &one})
	if err != nil {
		t.Fatalf("ListByBuyer: %v", err)
	}
	if len(items) != 1 || items[0].ID != ev.ID {
		t.Fatalf("stage 1 items=%d", len(items))
	}
	if f.emit.on(realtime.PortalChannel(b.ID), realtime.SSEEventStageAdvanced) != 1 {
		t.Fatalf("portal did not hear stage advance")
	}
}

func TestAdvanceStageRejectsInvalidMoves(t *testing.T) {
	f := newFixture(t)
	b := f.seedBuyer(t, 3)
	svc := f.stageService()

	for _, target := range []int{1, 3, -1, 99} {
		_, _, err := svc.AdvanceStage(f.agent(), b.ID, target)
		if !errors.Is(err, errs.ErrInvalidStageTransition) {
			t.Fatalf("target %d: err=%v", target, err)
		}
	}
	if _, _, err := svc.AdvanceStage(f.agent(), b.ID, 2); err != nil {
		t.Fatalf("one step back: %v", err)
	}
	if _, _, err := svc.AdvanceStage(f.broker(), b.ID, 3); !errors.Is(err, errs.ErrForbidden) {
		t.Fatalf("broker err=%v", err)
	}
	if _, _, err := svc.AdvanceStage(f.otherAgent(), b.ID, 3); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("foreign agent err=%v", err)
	}
}

func (f *fixture) seedDraft(t *testing.T, b *types.Buyer, content string) *types.Item {
	t.Helper()
	it := workspace.NewBuyerFacingDraft(b.ID, b.CurrentStage, "draft a note")
	if err := it.FinishDraft(content); err != nil {
		t.Fatalf("finish draft: %v", err)
	}
	out, err := f.items.Create(f.agent(), it)
	if err != nil {
		t.Fatalf("seed draft: %v", err)
	}
	return out
}

func TestRejectedDraftNeverReachesBuyerFeed(t *testing.T) {
	f := newFixture(t)
	b := f.seedBuyer(t, 2)
	draft := f.seedDraft(t, b, "Here are three homes to tour.")
	conv := f.conversationService()

	feed, err := conv.ListBuyerFeed(f.buyer(b), b.ID, repos.ItemFilter{})
	if err != nil {
		t.Fatalf("ListBuyerFeed: %v", err)
	}
	if len(feed) != 0 {
		t.Fatalf("pending draft visible: %d items", len(feed))
	}

	rejected, err := f.approvalService().Reject(f.agent(), draft.ID, "tone is off")
	if err != nil {
		t.Fatalf("Reject: %v", err)
	}
	if rejected.ApprovalStatus != types.ApprovalRejected || rejected.BuyerVisible {
		t.Fatalf("reject state=%s visible=%v", rejected.ApprovalStatus, rejected.BuyerVisible)
	}
	feed, err = conv.ListBuyerFeed(f.buyer(b), b.ID, repos.ItemFilter{})
	if err != nil || len(feed) != 0 {
		t.Fatalf("rejected draft visible: n=%d err=%v", len(feed), err)
	}
	if f.emit.on(realtime.PortalChannel(b.ID), realtime.SSEEventItemRejected) != 0 {
		t.Fatalf("rejection leaked to portal")
	}
	if _, err := f.approvalService().Approve(f.agent(), draft.ID); !errors.Is(err, errs.ErrInvalidTransition) {
		t.Fatalf("approve after reject err=%v", err)
	}
}

func TestApproveTwiceKeepsFirstApproval(t *testing.T) {
	f := newFixture(t)
	b := f.seedBuyer(t, 1)
	draft := f.seedDraft(t, b, "Your pre-approval letter looks good.")
	itemID := draft.ID
	art, err := f.artifacts.Create(f.agent(), &types.Artifact{BuyerID: b.ID, ItemID: &itemID, Author: "ai", Title: "Letter"})
	if err != nil {
		t.Fatalf("seed artifact: %v", err)
	}
	svc := f.approvalService()

	first, err := svc.Approve(f.agent(), draft.ID)
	if err != nil {
		t.Fatalf("Approve: %v", err)
	}
	if first.ApprovedAt == nil || !first.BuyerVisible {
		t.Fatalf("approve did not publish: %+v", first)
	}

	_, err = svc.Approve(f.agent(), draft.ID)
	var te *errs.TransitionError
	if !errors.As(err, &te) || te.From != string(types.ApprovalApproved) {
		t.Fatalf("second approve err=%v", err)
	}
	stored, err := f.items.GetByID(f.agent(), draft.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if !stored.ApprovedAt.Equal(*first.ApprovedAt) {
		t.Fatalf("approved_at moved: %s -> %s", first.ApprovedAt, stored.ApprovedAt)
	}

	shared, err := f.artifacts.GetByID(f.agent(), art.ID)
	if err != nil || shared.Visibility != types.VisibilityShared {
		t.Fatalf("artifact not shared: %+v err=%v", shared, err)
	}
	feed, err := f.conversationService().ListBuyerFeed(f.buyer(b), b.ID, repos.ItemFilter{})
	if err != nil || len(feed) != 1 || feed[0].ID != draft.ID {
		t.Fatalf("approved draft missing from feed: n=%d err=%v", len(feed), err)
	}
	if f.emit.on(realtime.PortalChannel(b.ID), realtime.SSEEventItemApproved) != 1 {
		t.Fatalf("portal did not hear approval")
	}
}

func TestBrokerCannotApprove(t *testing.T) {
	f := newFixture(t)
	b := f.seedBuyer(t, 1)
	draft := f.seedDraft(t, b, "x")
	if _, err := f.approvalService().Approve(f.broker(), draft.ID); !errors.Is(err, errs.ErrForbidden) {
		t.Fatalf("err=%v", err)
	}
	pending, err := f.approvalService().ListPending(f.broker(), nil, 10)
	if err != nil || len(pending) != 1 {
		t.Fatalf("broker pending list n=%d err=%v", len(pending), err)
	}
}

func TestBuyerMessageIsImmutable(t *testing.T) {
	f := newFixture(t)
	b := f.seedBuyer(t, 0)
	conv := f.conversationService()

	msg, err := conv.PostMessage(f.buyer(b), b.ID, "Can we tour Saturday?", nil)
	if err != nil {
		t.Fatalf("PostMessage: %v", err)
	}
	if msg.Sender != types.SenderBuyer || !msg.Locked {
		t.Fatalf("buyer message sender=%s locked=%v", msg.Sender, msg.Locked)
	}
	if _, err := conv.EditMessage(f.agent(), msg.ID, "rewritten"); !errors.Is(err, errs.ErrImmutableItem) {
		t.Fatalf("edit buyer message err=%v", err)
	}

	mine, err := conv.PostMessage(f.agent(), b.ID, "Saturday at 10 works.", nil)
	if err != nil {
		t.Fatalf("agent PostMessage: %v", err)
	}
	edited, err := conv.EditMessage(f.agent(), mine.ID, "Saturday at 11 works.")
	if err != nil || edited.EditedAt == nil {
		t.Fatalf("edit agent message: %v", err)
	}
	if _, err := conv.LockMessage(f.agent(), mine.ID); err != nil {
		t.Fatalf("LockMessage: %v", err)
	}
	if _, err := conv.EditMessage(f.agent(), mine.ID, "again"); !errors.Is(err, errs.ErrImmutableItem) {
		t.Fatalf("edit locked err=%v", err)
	}
}

func TestPostMessageRejectsFutureStage(t *testing.T) {
	f := newFixture(t)
	b := f.seedBuyer(t, 1)
	ahead := 4
	if _, err := f.conversationService().PostMessage(f.agent(), b.ID, "hi", &ahead); !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("err=%v", err)
	}
}

func TestBuyerCannotReadAnotherWorkspace(t *testing.T) {
	f := newFixture(t)
	mine := f.seedBuyer(t, 0)
	other := f.seedBuyer(t, 0)
	if _, err := f.conversationService().ListBuyerFeed(f.buyer(mine), other.ID, repos.ItemFilter{}); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("err=%v", err)
	}
}

func TestAddBlockValidatesType(t *testing.T) {
	f := newFixture(t)
	b := f.seedBuyer(t, 0)
	conv := f.conversationService()
	if _, err := conv.AddBlock(f.agent(), b.ID, BlockInput{BlockType: "hologram", Title: "x"}); !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("err=%v", err)
	}
	blk, err := conv.AddBlock(f.agent(), b.ID, BlockInput{BlockType: workspace.BlockPropertyCard, Title: "12 Elm St", Payload: []byte(`{"price":450000}`)})
	if err != nil {
		t.Fatalf("AddBlock: %v", err)
	}
	out, err := conv.SetExpanded(f.agent(), blk.ID, true)
	if err != nil || !out.Expanded {
		t.Fatalf("SetExpanded: %v", err)
	}
}
