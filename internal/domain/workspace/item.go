package workspace

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/buyerdesk-backend/internal/pkg/errs"
)

type ItemKind string

const (
	KindHumanMessage   ItemKind = "human_message"
	KindAIExplanation  ItemKind = "ai_explanation"
	KindSystemEvent    ItemKind = "system_event"
	KindComponentBlock ItemKind = "component_block"
)

type Sender string

const (
	SenderAgent Sender = "agent"
	SenderBuyer Sender = "buyer"
)

type Audience string

const (
	AudienceInternal Audience = "internal"
	AudienceBuyer    Audience = "buyer"
)

type ApprovalStatus string

const (
	ApprovalNone     ApprovalStatus = ""
	ApprovalPending  ApprovalStatus = "pending"
	ApprovalApproved ApprovalStatus = "approved"
	ApprovalRejected ApprovalStatus = "rejected"
)

type EventType string

const (
	EventStageAdvanced    EventType = "stage-advanced"
	EventOfferSubmitted   EventType = "offer-submitted"
	EventOfferCountered   EventType = "offer-countered"
	EventOfferAccepted    EventType = "offer-accepted"
	EventOfferRejected    EventType = "offer-rejected"
	EventDocumentUploaded EventType = "document-uploaded"
	EventTaskCompleted    EventType = "task-completed"
)

type BlockType string

const (
	BlockPropertyCard    BlockType = "property-card"
	BlockCompTable       BlockType = "comp-table"
	BlockOfferSummary    BlockType = "offer-summary"
	BlockTaskChecklist   BlockType = "task-checklist"
	BlockDocumentPreview BlockType = "document-preview"
)

func (b BlockType) Valid() bool {
	switch b {
	case BlockPropertyCard, BlockCompTable, BlockOfferSummary, BlockTaskChecklist, BlockDocumentPreview:
		return true
	}
	return false
}

// Item is one entry in a buyer's workspace feed. The row is single-table:
// only the columns belonging to Kind are meaningful, and callers should go
// through Body or Accept rather than reading them directly.
type Item struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	BuyerID    uuid.UUID `gorm:"type:uuid;not null;index:idx_workspace_item_buyer_seq,unique,priority:1" json:"buyer_id"`
	Seq        int64     `gorm:"column:seq;not null;index:idx_workspace_item_buyer_seq,unique,priority:2" json:"seq"`
	StageIndex int       `gorm:"column:stage_index;not null;index" json:"stage_index"`
	Kind       ItemKind  `gorm:"column:kind;not null;index" json:"kind"`

	// HumanMessage / AIExplanation
	Content string `gorm:"column:content;type:text;not null;default:''" json:"content,omitempty"`

	// HumanMessage
	Sender     Sender     `gorm:"column:sender" json:"sender,omitempty"`
	SenderName string     `gorm:"column:sender_name" json:"sender_name,omitempty"`
	AuthorID   *uuid.UUID `gorm:"type:uuid;column:author_id" json:"author_id,omitempty"`
	Locked     bool       `gorm:"column:locked;not null;default:false" json:"locked"`
	EditedAt   *time.Time `gorm:"column:edited_at" json:"edited_at,omitempty"`

	// AIExplanation
	Context          string         `gorm:"column:context;type:text" json:"context,omitempty"`
	Audience         Audience       `gorm:"column:audience;index" json:"audience,omitempty"`
	RequiresApproval bool           `gorm:"column:requires_approval;not null;default:false" json:"requires_approval"`
	ApprovalStatus   ApprovalStatus `gorm:"column:approval_status;not null;default:'';index" json:"approval_status,omitempty"`
	BuyerVisible     bool           `gorm:"column:buyer_visible;not null;default:false;index" json:"buyer_visible"`
	ApprovedAt       *time.Time     `gorm:"column:approved_at" json:"approved_at,omitempty"`
	ApprovedBy       *uuid.UUID     `gorm:"type:uuid;column:approved_by" json:"approved_by,omitempty"`
	RejectionReason  string         `gorm:"column:rejection_reason;type:text" json:"rejection_reason,omitempty"`

	// Streaming is set while a draft is still being generated. Its content
	// is not final and it cannot be approved or rejected.
	Streaming bool `gorm:"column:streaming;not null;default:false" json:"streaming"`

	// SystemEvent / ComponentBlock
	EventType   EventType      `gorm:"column:event_type;index" json:"event_type,omitempty"`
	BlockType   BlockType      `gorm:"column:block_type" json:"block_type,omitempty"`
	Title       string         `gorm:"column:title" json:"title,omitempty"`
	Description string         `gorm:"column:description;type:text" json:"description,omitempty"`
	Payload     datatypes.JSON `gorm:"column:payload" json:"payload,omitempty"`
	RelatedID   *uuid.UUID     `gorm:"type:uuid;column:related_id;index" json:"related_id,omitempty"`
	Expanded    bool           `gorm:"column:expanded;not null;default:false" json:"expanded"`

	CreatedAt time.Time      `gorm:"not null;index" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Item) TableName() string { return "workspace_item" }

func (it *Item) BeforeCreate(tx *gorm.DB) error {
	if it.ID == uuid.Nil {
		it.ID = uuid.New()
	}
	return nil
}

// ItemBody is the closed set of item kinds. Only this package can add one.
type ItemBody interface {
	Kind() ItemKind
	apply(it *Item)
	accept(it *Item, v ItemVisitor) error
}

// ItemVisitor must handle every kind; adding a kind breaks every visitor at
// compile time.
type ItemVisitor interface {
	HumanMessage(it *Item, m HumanMessage) error
	AIExplanation(it *Item, e AIExplanation) error
	SystemEvent(it *Item, e SystemEvent) error
	ComponentBlock(it *Item, b ComponentBlock) error
}

type HumanMessage struct {
	Sender     Sender
	SenderName string
	AuthorID   *uuid.UUID
	Content    string
	Locked     bool
}

type AIExplanation struct {
	Content          string
	Context          string
	Audience         Audience
	RequiresApproval bool
	Status           ApprovalStatus
	BuyerVisible     bool
	ApprovedAt       *time.Time
	ApprovedBy       *uuid.UUID
	RejectionReason  string
	Streaming        bool
}

type SystemEvent struct {
	EventType   EventType
	Title       string
	Description string
	RelatedID   *uuid.UUID
}

type ComponentBlock struct {
	BlockType BlockType
	Title     string
	Payload   datatypes.JSON
	RelatedID *uuid.UUID
	Expanded  bool
}

func (HumanMessage) Kind() ItemKind   { return KindHumanMessage }
func (AIExplanation) Kind() ItemKind  { return KindAIExplanation }
func (SystemEvent) Kind() ItemKind    { return KindSystemEvent }
func (ComponentBlock) Kind() ItemKind { return KindComponentBlock }

func (m HumanMessage) apply(it *Item) {
	it.Sender = m.Sender
	it.SenderName = m.SenderName
	it.AuthorID = m.AuthorID
	it.Content = m.Content
	// Buyer messages are immutable from the moment they are sent.
	it.Locked = m.Locked || m.Sender == SenderBuyer
}

func (e AIExplanation) apply(it *Item) {
	it.Content = e.Content
	it.Context = e.Context
	it.Audience = e.Audience
	it.RequiresApproval = e.RequiresApproval
	it.ApprovalStatus = e.Status
	it.BuyerVisible = e.Status == ApprovalApproved
	it.ApprovedAt = e.ApprovedAt
	it.ApprovedBy = e.ApprovedBy
	it.RejectionReason = e.RejectionReason
	it.Streaming = e.Streaming
}

func (e SystemEvent) apply(it *Item) {
	it.EventType = e.EventType
	it.Title = e.Title
	it.Description = e.Description
	it.RelatedID = e.RelatedID
	it.Locked = true
}

func (b ComponentBlock) apply(it *Item) {
	it.BlockType = b.BlockType
	it.Title = b.Title
	it.Payload = b.Payload
	it.RelatedID = b.RelatedID
	it.Expanded = b.Expanded
	it.Locked = true
}

func (m HumanMessage) accept(it *Item, v ItemVisitor) error   { return v.HumanMessage(it, m) }
func (e AIExplanation) accept(it *Item, v ItemVisitor) error  { return v.AIExplanation(it, e) }
func (e SystemEvent) accept(it *Item, v ItemVisitor) error    { return v.SystemEvent(it, e) }
func (b ComponentBlock) accept(it *Item, v ItemVisitor) error { return v.ComponentBlock(it, b) }

// NewItem builds an unsaved row for body. Seq is assigned by the repo.
func NewItem(buyerID uuid.UUID, stageIndex int, body ItemBody) *Item {
	it := &Item{BuyerID: buyerID, StageIndex: stageIndex, Kind: body.Kind()}
	body.apply(it)
	return it
}

// NewBuyerFacingDraft is the initial state of every AI draft meant for a buyer.
func NewBuyerFacingDraft(buyerID uuid.UUID, stageIndex int, context string) *Item {
	return NewItem(buyerID, stageIndex, AIExplanation{
		Context:          context,
		Audience:         AudienceBuyer,
		RequiresApproval: true,
		Status:           ApprovalPending,
		Streaming:        true,
	})
}

// NewInternalDraft is agent-only analysis. It never enters the approval gate.
func NewInternalDraft(buyerID uuid.UUID, stageIndex int, context string) *Item {
	return NewItem(buyerID, stageIndex, AIExplanation{
		Context:   context,
		Audience:  AudienceInternal,
		Streaming: true,
	})
}

// Body decodes the row into its kind. Unknown kinds return nil.
func (it *Item) Body() ItemBody {
	switch it.Kind {
	case KindHumanMessage:
		return HumanMessage{
			Sender:     it.Sender,
			SenderName: it.SenderName,
			AuthorID:   it.AuthorID,
			Content:    it.Content,
			Locked:     it.Locked,
		}
	case KindAIExplanation:
		return AIExplanation{
			Content:          it.Content,
			Context:          it.Context,
			Audience:         it.Audience,
			RequiresApproval: it.RequiresApproval,
			Status:           it.ApprovalStatus,
			BuyerVisible:     it.BuyerVisible,
			ApprovedAt:       it.ApprovedAt,
			ApprovedBy:       it.ApprovedBy,
			RejectionReason:  it.RejectionReason,
			Streaming:        it.Streaming,
		}
	case KindSystemEvent:
		return SystemEvent{
			EventType:   it.EventType,
			Title:       it.Title,
			Description: it.Description,
			RelatedID:   it.RelatedID,
		}
	case KindComponentBlock:
		return ComponentBlock{
			BlockType: it.BlockType,
			Title:     it.Title,
			Payload:   it.Payload,
			RelatedID: it.RelatedID,
			Expanded:  it.Expanded,
		}
	}
	return nil
}

func (it *Item) Accept(v ItemVisitor) error {
	body := it.Body()
	if body == nil {
		return fmt.Errorf("unknown item kind %q", it.Kind)
	}
	return body.accept(it, v)
}

// VisibleToBuyer is the in-memory twin of the repo's buyer visibility scope.
func (it *Item) VisibleToBuyer() bool {
	var vis visibility
	_ = it.Accept(&vis)
	return bool(vis)
}

type visibility bool

func (v *visibility) HumanMessage(*Item, HumanMessage) error { *v = true; return nil }
func (v *visibility) AIExplanation(_ *Item, e AIExplanation) error {
	*v = visibility(e.Audience == AudienceBuyer && e.Status == ApprovalApproved && e.BuyerVisible && !e.Streaming)
	return nil
}
func (v *visibility) SystemEvent(*Item, SystemEvent) error       { *v = true; return nil }
func (v *visibility) ComponentBlock(*Item, ComponentBlock) error { *v = true; return nil }

// Approve moves a pending buyer-facing draft to approved and makes it visible.
func (it *Item) Approve(by uuid.UUID, now time.Time) error {
	if err := it.requirePending("approve"); err != nil {
		return err
	}
	at := now.UTC()
	it.ApprovalStatus = ApprovalApproved
	it.BuyerVisible = true
	it.ApprovedAt = &at
	if by != uuid.Nil {
		it.ApprovedBy = &by
	}
	return nil
}

// Reject closes a pending draft for good. The item stays for audit.
func (it *Item) Reject(reason string) error {
	if err := it.requirePending("reject"); err != nil {
		return err
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return errs.Invalid("rejection reason required")
	}
	it.ApprovalStatus = ApprovalRejected
	it.BuyerVisible = false
	it.RejectionReason = reason
	return nil
}

func (it *Item) requirePending(action string) error {
	if it.Kind != KindAIExplanation || it.Audience != AudienceBuyer || it.ApprovalStatus != ApprovalPending {
		return &errs.TransitionError{Action: action, From: string(it.ApprovalStatus)}
	}
	if it.Streaming {
		return &errs.TransitionError{Action: action, From: "streaming"}
	}
	return nil
}

// FinishDraft records the final text of a streamed draft. It only applies to
// a draft that is still streaming and has not been decided.
func (it *Item) FinishDraft(content string) error {
	if it.Kind != KindAIExplanation || !it.Streaming {
		return &errs.TransitionError{Action: "finish draft", From: string(it.ApprovalStatus)}
	}
	if it.ApprovalStatus != ApprovalNone && it.ApprovalStatus != ApprovalPending {
		return &errs.TransitionError{Action: "finish draft", From: string(it.ApprovalStatus)}
	}
	it.Content = content
	it.Streaming = false
	return nil
}

// EditContent rewrites an agent message that has not been locked.
func (it *Item) EditContent(content string, now time.Time) error {
	if it.Kind != KindHumanMessage || it.Sender != SenderAgent || it.Locked {
		return errs.ErrImmutableItem
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return errs.Invalid("content required")
	}
	at := now.UTC()
	it.Content = content
	it.EditedAt = &at
	return nil
}
