package services

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/buyerdesk-backend/internal/data/repos"
	types "github.com/yungbote/buyerdesk-backend/internal/domain"
	"github.com/yungbote/buyerdesk-backend/internal/domain/stage"
	"github.com/yungbote/buyerdesk-backend/internal/domain/workspace"
	"github.com/yungbote/buyerdesk-backend/internal/pkg/dbctx"
	"github.com/yungbote/buyerdesk-backend/internal/pkg/errs"
	"github.com/yungbote/buyerdesk-backend/internal/platform/ctxutil"
	"github.com/yungbote/buyerdesk-backend/internal/platform/logger"
)

type BlockInput struct {
	Stage     *int            `json:"stage"`
	BlockType types.BlockType `json:"block_type"`
	Title     string          `json:"title"`
	Payload   json.RawMessage `json:"payload"`
	RelatedID *uuid.UUID      `json:"related_id"`
	Expanded  bool            `json:"expanded"`
}

type ConversationService interface {
	// PostMessage records a human message. Buyer messages are locked on creation.
	PostMessage(dbc dbctx.Context, buyerID uuid.UUID, content string, stageIndex *int) (*types.Item, error)
	EditMessage(dbc dbctx.Context, itemID uuid.UUID, content string) (*types.Item, error)
	LockMessage(dbc dbctx.Context, itemID uuid.UUID) (*types.Item, error)
	AddBlock(dbc dbctx.Context, buyerID uuid.UUID, in BlockInput) (*types.Item, error)
	SetExpanded(dbc dbctx.Context, itemID uuid.UUID, expanded bool) (*types.Item, error)
	// ListItems is the agent's full view of a workspace.
	ListItems(dbc dbctx.Context, buyerID uuid.UUID, f repos.ItemFilter) ([]*types.Item, error)
	// ListBuyerFeed only ever returns buyer-visible items.
	ListBuyerFeed(dbc dbctx.Context, buyerID uuid.UUID, f repos.ItemFilter) ([]*types.Item, error)
}

type conversationService struct {
	db      *gorm.DB
	log     *logger.Logger
	catalog *stage.Catalog
	buyers  repos.BuyerRepo
	items   repos.ItemRepo
	notify  WorkspaceNotifier
}

func NewConversationService(
	db *gorm.DB,
	baseLog *logger.Logger,
	catalog *stage.Catalog,
	buyers repos.BuyerRepo,
	items repos.ItemRepo,
	notify WorkspaceNotifier,
) ConversationService {
	if notify == nil {
		notify = NewWorkspaceNotifier(nil)
	}
	return &conversationService{
		db:      db,
		log:     baseLog.With("service", "ConversationService"),
		catalog: catalog,
		buyers:  buyers,
		items:   items,
		notify:  notify,
	}
}

// stageFor defaults to the buyer's current stage. Explicit stages must exist
// and not be ahead of the buyer.
func (s *conversationService) stageFor(b *types.Buyer, requested *int) (int, error) {
	if requested == nil {
		return b.CurrentStage, nil
	}
	if !s.catalog.Valid(*requested) || *requested > b.CurrentStage {
		return 0, errs.Invalid("stage %d is not open for this buyer", *requested)
	}
	return *requested, nil
}

func (s *conversationService) PostMessage(dbc dbctx.Context, buyerID uuid.UUID, content string, stageIndex *int) (*types.Item, error) {
	sess, err := requireSession(dbc)
	if err != nil {
		return nil, err
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, errs.Invalid("content required")
	}
	var (
		out   *types.Item
		buyer *types.Buyer
	)
	err = s.db.WithContext(dbc.Ctx).Transaction(func(tx *gorm.DB) error {
		inner := dbc.WithTx(tx)
		if buyer, err = loadBuyer(inner, s.buyers, sess, buyerID, accessWrite); err != nil {
			return err
		}
		idx, err := s.stageFor(buyer, stageIndex)
		if err != nil {
			return err
		}
		author := sess.UserID
		msg := workspace.HumanMessage{
			Sender:     senderFor(sess),
			SenderName: sess.Name,
			AuthorID:   &author,
			Content:    content,
		}
		if out, err = s.items.Create(inner, workspace.NewItem(buyer.ID, idx, msg)); err != nil {
			return err
		}
		return s.buyers.Touch(inner, buyer.ID, time.Now().UTC())
	})
	if err != nil {
		return nil, err
	}
	s.notify.ItemCreated(buyer, out)
	return out, nil
}

func senderFor(sess *ctxutil.Session) types.Sender {
	if sess.IsBuyer() {
		return types.SenderBuyer
	}
	return types.SenderAgent
}

// mutate runs fn on an item of a buyer the agent owns and persists updates.
func (s *conversationService) mutate(dbc dbctx.Context, itemID uuid.UUID, fn func(it *types.Item, now time.Time) (map[string]interface{}, error)) (*types.Item, *types.Buyer, error) {
	sess, err := requireAgent(dbc, accessWrite)
	if err != nil {
		return nil, nil, err
	}
	var (
		out   *types.Item
		buyer *types.Buyer
	)
	err = s.db.WithContext(dbc.Ctx).Transaction(func(tx *gorm.DB) error {
		inner := dbc.WithTx(tx)
		it, err := s.items.GetByID(inner, itemID)
		if err != nil {
			return err
		}
		if buyer, err = loadBuyer(inner, s.buyers, sess, it.BuyerID, accessWrite); err != nil {
			return err
		}
		now := time.Now().UTC()
		updates, err := fn(it, now)
		if err != nil {
			return err
		}
		updates["updated_at"] = now
		if err := s.items.UpdateFields(inner, it.ID, updates); err != nil {
			return err
		}
		it.UpdatedAt = now
		out = it
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return out, buyer, nil
}

func (s *conversationService) EditMessage(dbc dbctx.Context, itemID uuid.UUID, content string) (*types.Item, error) {
	it, buyer, err := s.mutate(dbc, itemID, func(it *types.Item, now time.Time) (map[string]interface{}, error) {
		if err := it.EditContent(content, now); err != nil {
			return nil, err
		}
		return map[string]interface{}{"content": it.Content, "edited_at": it.EditedAt}, nil
	})
	if err != nil {
		return nil, err
	}
	s.notify.ItemUpdated(buyer, it)
	return it, nil
}

func (s *conversationService) LockMessage(dbc dbctx.Context, itemID uuid.UUID) (*types.Item, error) {
	it, buyer, err := s.mutate(dbc, itemID, func(it *types.Item, _ time.Time) (map[string]interface{}, error) {
		if it.Kind != types.KindHumanMessage {
			return nil, errs.ErrImmutableItem
		}
		it.Locked = true
		return map[string]interface{}{"locked": true}, nil
	})
	if err != nil {
		return nil, err
	}
	s.notify.ItemUpdated(buyer, it)
	return it, nil
}

func (s *conversationService) SetExpanded(dbc dbctx.Context, itemID uuid.UUID, expanded bool) (*types.Item, error) {
	it, buyer, err := s.mutate(dbc, itemID, func(it *types.Item, _ time.Time) (map[string]interface{}, error) {
		if it.Kind != types.KindComponentBlock {
			return nil, errs.Invalid("only component blocks expand")
		}
		it.Expanded = expanded
		return map[string]interface{}{"expanded": expanded}, nil
	})
	if err != nil {
		return nil, err
	}
	s.notify.ItemUpdated(buyer, it)
	return it, nil
}

func (s *conversationService) AddBlock(dbc dbctx.Context, buyerID uuid.UUID, in BlockInput) (*types.Item, error) {
	sess, err := requireAgent(dbc, accessWrite)
	if err != nil {
		return nil, err
	}
	if !in.BlockType.Valid() {
		return nil, errs.Invalid("unknown block_type %q", in.BlockType)
	}
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, errs.Invalid("title required")
	}
	payload := datatypes.JSON([]byte(`{}`))
	if len(in.Payload) > 0 {
		if !json.Valid(in.Payload) {
			return nil, errs.Invalid("payload must be JSON")
		}
		payload = datatypes.JSON(in.Payload)
	}
	var (
		out   *types.Item
		buyer *types.Buyer
	)
	err = s.db.WithContext(dbc.Ctx).Transaction(func(tx *gorm.DB) error {
		inner := dbc.WithTx(tx)
		if buyer, err = loadBuyer(inner, s.buyers, sess, buyerID, accessWrite); err != nil {
			return err
		}
		idx, err := s.stageFor(buyer, in.Stage)
		if err != nil {
			return err
		}
		out, err = s.items.Create(inner, workspace.NewItem(buyer.ID, idx, workspace.ComponentBlock{
			BlockType: in.BlockType,
			Title:     title,
			Payload:   payload,
			RelatedID: in.RelatedID,
			Expanded:  in.Expanded,
		}))
		return err
	})
	if err != nil {
		return nil, err
	}
	s.notify.ItemCreated(buyer, out)
	return out, nil
}

func (s *conversationService) ListItems(dbc dbctx.Context, buyerID uuid.UUID, f repos.ItemFilter) ([]*types.Item, error) {
	sess, err := requireAgent(dbc, accessRead)
	if err != nil {
		return nil, err
	}
	if _, err := loadBuyer(dbc, s.buyers, sess, buyerID, accessRead); err != nil {
		return nil, err
	}
	return s.items.ListByBuyer(dbc, buyerID, f)
}

func (s *conversationService) ListBuyerFeed(dbc dbctx.Context, buyerID uuid.UUID, f repos.ItemFilter) ([]*types.Item, error) {
	sess, err := requireSession(dbc)
	if err != nil {
		return nil, err
	}
	if _, err := loadBuyer(dbc, s.buyers, sess, buyerID, accessRead); err != nil {
		return nil, err
	}
	return s.items.ListBuyerVisible(dbc, buyerID, f)
}
