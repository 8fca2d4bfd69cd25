package services

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/buyerdesk-backend/internal/data/repos"
	"github.com/yungbote/buyerdesk-backend/internal/data/repos/testutil"
	types "github.com/yungbote/buyerdesk-backend/internal/domain"
	"github.com/yungbote/buyerdesk-backend/internal/domain/stage"
	"github.com/yungbote/buyerdesk-backend/internal/pkg/dbctx"
	"github.com/yungbote/buyerdesk-backend/internal/platform/ctxutil"
	"github.com/yungbote/buyerdesk-backend/internal/platform/logger"
	"github.com/yungbote/buyerdesk-backend/internal/realtime"
)

type recordingEmitter struct {
	mu   sync.Mutex
	msgs []realtime.SSEMessage
}

func (r *recordingEmitter) Emit(ctx context.Context, msg realtime.SSEMessage) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, msg)
}

func (r *recordingEmitter) on(channel string, event realtime.SSEEvent) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, m := range r.msgs {
		if m.Channel == channel && m.Event == event {
			n++
		}
	}
	return n
}

// sent returns the payloads emitted on channel for event, oldest first.
func (r *recordingEmitter) sent(channel string, event realtime.SSEEvent) []map[string]any {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []map[string]any
	for _, m := range r.msgs {
		if m.Channel != channel || m.Event != event {
			continue
		}
		if data, ok := m.Data.(map[string]any); ok {
			out = append(out, data)
		}
	}
	return out
}

type fixture struct {
	db        *gorm.DB
	log       *logger.Logger
	catalog   *stage.Catalog
	buyers    repos.BuyerRepo
	items     repos.ItemRepo
	offers    repos.OfferRepo
	tasks     repos.TaskRepo
	props     repos.PropertyRepo
	links     repos.BuyerPropertyRepo
	artifacts repos.ArtifactRepo
	templates repos.OfferTemplateRepo
	emit      *recordingEmitter
	notify    WorkspaceNotifier
	agentID   uuid.UUID
}

// newFixture uses the database handle directly; the SQLite test database has
// a single connection, so an open test transaction would block service writes.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	emit := &recordingEmitter{}
	return &fixture{
		db:        db,
		log:       log,
		catalog:   stage.Default(),
		buyers:    repos.NewBuyerRepo(db, log),
		items:     repos.NewItemRepo(db, log),
		offers:    repos.NewOfferRepo(db, log),
		tasks:     repos.NewTaskRepo(db, log),
		props:     repos.NewPropertyRepo(db, log),
		links:     repos.NewBuyerPropertyRepo(db, log),
		artifacts: repos.NewArtifactRepo(db, log),
		templates: repos.NewOfferTemplateRepo(db, log),
		emit:      emit,
		notify:    NewWorkspaceNotifier(emit),
		agentID:   uuid.New(),
	}
}

func (f *fixture) seedBuyer(t *testing.T, stageIndex int) *types.Buyer {
	t.Helper()
	return testutil.SeedBuyer(t, f.db, f.agentID, stageIndex)
}

func (f *fixture) agent() dbctx.Context {
	return sessionCtx(&ctxutil.Session{UserID: f.agentID, Role: ctxutil.RoleAgent, Name: "Alex Agent"})
}

func (f *fixture) otherAgent() dbctx.Context {
	return sessionCtx(&ctxutil.Session{UserID: uuid.New(), Role: ctxutil.RoleAgent, Name: "Other Agent"})
}

func (f *fixture) broker() dbctx.Context {
	return sessionCtx(&ctxutil.Session{UserID: uuid.New(), Role: ctxutil.RoleBroker, Name: "Bea Broker"})
}

func (f *fixture) buyer(b *types.Buyer) dbctx.Context {
	return sessionCtx(&ctxutil.Session{UserID: uuid.New(), Role: ctxutil.RoleBuyer, Name: b.Name, BuyerID: b.ID})
}

func sessionCtx(s *ctxutil.Session) dbctx.Context {
	return dbctx.Of(ctxutil.WithSession(context.Background(), s))
}

func (f *fixture) stageService() StageService {
	return NewStageService(f.db, f.log, f.catalog, f.buyers, f.items, f.notify)
}

func (f *fixture) approvalService() ApprovalService {
	return NewApprovalService(f.db, f.log, f.buyers, f.items, f.artifacts, f.notify)
}

func (f *fixture) conversationService() ConversationService {
	return NewConversationService(f.db, f.log, f.catalog, f.buyers, f.items, f.notify)
}
