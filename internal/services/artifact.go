package services

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/buyerdesk-backend/internal/data/repos"
	types "github.com/yungbote/buyerdesk-backend/internal/domain"
	"github.com/yungbote/buyerdesk-backend/internal/domain/documents"
	"github.com/yungbote/buyerdesk-backend/internal/pkg/dbctx"
	"github.com/yungbote/buyerdesk-backend/internal/pkg/errs"
	"github.com/yungbote/buyerdesk-backend/internal/platform/logger"
)

type ArtifactService interface {
	Create(dbc dbctx.Context, buyerID uuid.UUID, title, content string) (*types.Artifact, error)
	Get(dbc dbctx.Context, id uuid.UUID) (*types.Artifact, error)
	// List returns every artifact to agents and only shared ones to buyers.
	List(dbc dbctx.Context, buyerID uuid.UUID) ([]*types.Artifact, error)
	// Share publishes an agent-written artifact and records a
	// document-uploaded event in the buyer's current stage. AI artifacts are
	// shared by approving the draft that produced them.
	Share(dbc dbctx.Context, id uuid.UUID) (*types.Artifact, error)
}

type artifactService struct {
	db        *gorm.DB
	log       *logger.Logger
	buyers    repos.BuyerRepo
	items     repos.ItemRepo
	artifacts repos.ArtifactRepo
	notify    WorkspaceNotifier
}

func NewArtifactService(db *gorm.DB, baseLog *logger.Logger, buyers repos.BuyerRepo, items repos.ItemRepo, artifacts repos.ArtifactRepo, notify WorkspaceNotifier) ArtifactService {
	return &artifactService{
		db:        db,
		log:       baseLog.With("service", "ArtifactService"),
		buyers:    buyers,
		items:     items,
		artifacts: artifacts,
		notify:    notify,
	}
}

func (s *artifactService) Create(dbc dbctx.Context, buyerID uuid.UUID, title, content string) (*types.Artifact, error) {
	sess, err := requireAgent(dbc, accessWrite)
	if err != nil {
		return nil, err
	}
	if _, err := loadBuyer(dbc, s.buyers, sess, buyerID, accessWrite); err != nil {
		return nil, err
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, errs.Invalid("title required")
	}
	return s.artifacts.Create(dbc, &types.Artifact{
		BuyerID:    buyerID,
		Author:     documents.AuthorAgent,
		Title:      title,
		Content:    content,
		Visibility: types.VisibilityInternal,
	})
}

func (s *artifactService) Get(dbc dbctx.Context, id uuid.UUID) (*types.Artifact, error) {
	sess, err := requireSession(dbc)
	if err != nil {
		return nil, err
	}
	a, err := s.artifacts.GetByID(dbc, id)
	if err != nil {
		return nil, err
	}
	if _, err := loadBuyer(dbc, s.buyers, sess, a.BuyerID, accessRead); err != nil {
		return nil, err
	}
	if sess.IsBuyer() && a.Visibility != types.VisibilityShared {
		return nil, fmt.Errorf("artifact %s: %w", id, errs.ErrNotFound)
	}
	return a, nil
}

func (s *artifactService) List(dbc dbctx.Context, buyerID uuid.UUID) ([]*types.Artifact, error) {
	sess, err := requireSession(dbc)
	if err != nil {
		return nil, err
	}
	if _, err := loadBuyer(dbc, s.buyers, sess, buyerID, accessRead); err != nil {
		return nil, err
	}
	var vis types.Visibility
	if sess.IsBuyer() {
		vis = types.VisibilityShared
	}
	return s.artifacts.ListByBuyer(dbc, buyerID, vis)
}

func (s *artifactService) Share(dbc dbctx.Context, id uuid.UUID) (*types.Artifact, error) {
	sess, err := requireAgent(dbc, accessWrite)
	if err != nil {
		return nil, err
	}
	a, err := s.artifacts.GetByID(dbc, id)
	if err != nil {
		return nil, err
	}
	buyer, err := loadBuyer(dbc, s.buyers, sess, a.BuyerID, accessWrite)
	if err != nil {
		return nil, err
	}
	if a.Author != documents.AuthorAgent {
		return nil, &errs.TransitionError{Action: "share artifact", From: "awaiting approval"}
	}
	if a.Visibility == types.VisibilityShared {
		return a, nil
	}
	now := time.Now().UTC()
	var event *types.Item
	err = s.db.WithContext(dbc.Ctx).Transaction(func(tx *gorm.DB) error {
		inner := dbc.WithTx(tx)
		if err := s.artifacts.UpdateFields(inner, id, map[string]interface{}{
			"visibility": types.VisibilityShared,
			"shared_at":  now,
		}); err != nil {
			return err
		}
		event, err = appendEvent(inner, s.items, buyer, types.EventDocumentUploaded, "Document shared: "+a.Title, "", &a.ID)
		if err != nil {
			return err
		}
		return s.buyers.Touch(inner, buyer.ID, now)
	})
	if err != nil {
		return nil, err
	}
	s.notify.ItemCreated(buyer, event)
	a.Visibility = types.VisibilityShared
	a.SharedAt = &now
	return a, nil
}
