package services

import (
	"errors"
	"testing"

	"github.com/yungbote/buyerdesk-backend/internal/data/repos"
	types "github.com/yungbote/buyerdesk-backend/internal/domain"
	"github.com/yungbote/buyerdesk-backend/internal/domain/documents"
	"github.com/yungbote/buyerdesk-backend/internal/pkg/errs"
	"github.com/yungbote/buyerdesk-backend/internal/realtime"
)

func (f *fixture) artifactService() ArtifactService {
	return NewArtifactService(f.db, f.log, f.buyers, f.items, f.artifacts, f.notify)
}

func TestArtifactSharingAndBuyerReads(t *testing.T) {
	f := newFixture(t)
	b := f.seedBuyer(t, 2)
	svc := f.artifactService()

	a, err := svc.Create(f.agent(), b.ID, "Neighborhood notes", "Schools are rated 8/10.")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if a.Visibility != types.VisibilityInternal {
		t.Fatalf("new artifact visibility=%s", a.Visibility)
	}

	if got, err := svc.List(f.buyer(b), b.ID); err != nil || len(got) != 0 {
		t.Fatalf("buyer saw internal artifacts: n=%d err=%v", len(got), err)
	}
	if _, err := svc.Get(f.buyer(b), a.ID); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("buyer get internal err=%v", err)
	}

	shared, err := svc.Share(f.agent(), a.ID)
	if err != nil {
		t.Fatalf("Share: %v", err)
	}
	if shared.SharedAt == nil {
		t.Fatalf("shared_at not set")
	}
	got, err := svc.List(f.buyer(b), b.ID)
	if err != nil || len(got) != 1 {
		t.Fatalf("buyer list after share: n=%d err=%v", len(got), err)
	}

	feed, err := f.conversationService().ListBuyerFeed(f.buyer(b), b.ID, repos.ItemFilter{})
	if err != nil || len(feed) != 1 {
		t.Fatalf("feed n=%d err=%v", len(feed), err)
	}
	if feed[0].EventType != types.EventDocumentUploaded || feed[0].RelatedID == nil || *feed[0].RelatedID != a.ID {
		t.Fatalf("share event=%+v", feed[0])
	}
	if f.emit.on(realtime.PortalChannel(b.ID), realtime.SSEEventItemCreated) != 1 {
		t.Fatalf("portal not told about the shared document")
	}

	if _, err := svc.Share(f.agent(), a.ID); err != nil {
		t.Fatalf("second Share: %v", err)
	}
	if feed, _ = f.conversationService().ListBuyerFeed(f.buyer(b), b.ID, repos.ItemFilter{}); len(feed) != 1 {
		t.Fatalf("resharing added events: n=%d", len(feed))
	}
}

func TestAIArtifactsOnlyShareThroughApproval(t *testing.T) {
	f := newFixture(t)
	b := f.seedBuyer(t, 2)
	svc := f.artifactService()

	a, err := f.artifacts.Create(f.agent(), &types.Artifact{
		BuyerID: b.ID,
		Author:  documents.AuthorAI,
		Title:   "Market summary",
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := svc.Share(f.agent(), a.ID); !errors.Is(err, errs.ErrInvalidTransition) {
		t.Fatalf("share ai artifact err=%v", err)
	}
	if _, err := svc.Share(f.broker(), a.ID); !errors.Is(err, errs.ErrForbidden) {
		t.Fatalf("broker share err=%v", err)
	}
}
