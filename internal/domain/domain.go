package domain

import (
	"github.com/yungbote/buyerdesk-backend/internal/domain/deals"
	"github.com/yungbote/buyerdesk-backend/internal/domain/documents"
	"github.com/yungbote/buyerdesk-backend/internal/domain/listings"
	"github.com/yungbote/buyerdesk-backend/internal/domain/workspace"
)

type (
	Buyer             = workspace.Buyer
	BuyerProfile      = workspace.BuyerProfile
	PreApprovalStatus = workspace.PreApprovalStatus
	PropertyType      = workspace.PropertyType

	Item           = workspace.Item
	ItemKind       = workspace.ItemKind
	ItemBody       = workspace.ItemBody
	ItemVisitor    = workspace.ItemVisitor
	HumanMessage   = workspace.HumanMessage
	AIExplanation  = workspace.AIExplanation
	SystemEvent    = workspace.SystemEvent
	ComponentBlock = workspace.ComponentBlock
	ApprovalStatus = workspace.ApprovalStatus
	Audience       = workspace.Audience
	Sender         = workspace.Sender
	EventType      = workspace.EventType
	BlockType      = workspace.BlockType

	Offer        = deals.Offer
	OfferFields  = deals.OfferFields
	OfferStatus  = deals.OfferStatus
	Task         = deals.Task
	TaskStatus   = deals.TaskStatus
	TaskPriority = deals.TaskPriority
	Assignee     = deals.Assignee

	Property      = listings.Property
	BuyerProperty = listings.BuyerProperty

	Artifact           = documents.Artifact
	Visibility         = documents.Visibility
	OfferTemplate      = documents.OfferTemplate
	OfferTemplateField = documents.OfferTemplateField
	AnalysisStatus     = documents.AnalysisStatus
)

const (
	KindHumanMessage   = workspace.KindHumanMessage
	KindAIExplanation  = workspace.KindAIExplanation
	KindSystemEvent    = workspace.KindSystemEvent
	KindComponentBlock = workspace.KindComponentBlock

	ApprovalPending  = workspace.ApprovalPending
	ApprovalApproved = workspace.ApprovalApproved
	ApprovalRejected = workspace.ApprovalRejected

	AudienceInternal = workspace.AudienceInternal
	AudienceBuyer    = workspace.AudienceBuyer

	SenderAgent = workspace.SenderAgent
	SenderBuyer = workspace.SenderBuyer

	EventStageAdvanced    = workspace.EventStageAdvanced
	EventOfferSubmitted   = workspace.EventOfferSubmitted
	EventOfferCountered   = workspace.EventOfferCountered
	EventOfferAccepted    = workspace.EventOfferAccepted
	EventOfferRejected    = workspace.EventOfferRejected
	EventDocumentUploaded = workspace.EventDocumentUploaded
	EventTaskCompleted    = workspace.EventTaskCompleted

	OfferDraft     = deals.OfferDraft
	OfferSubmitted = deals.OfferSubmitted
	OfferCountered = deals.OfferCountered
	OfferAccepted  = deals.OfferAccepted
	OfferRejected  = deals.OfferRejected
	OfferWithdrawn = deals.OfferWithdrawn

	TaskTodo       = deals.TaskTodo
	TaskInProgress = deals.TaskInProgress
	TaskComplete   = deals.TaskComplete

	VisibilityInternal = documents.VisibilityInternal
	VisibilityShared   = documents.VisibilityShared

	AnalysisPending   = documents.AnalysisPending
	AnalysisAnalyzing = documents.AnalysisAnalyzing
	AnalysisCompleted = documents.AnalysisCompleted
	AnalysisFailed    = documents.AnalysisFailed
)

// Models lists every persisted type in migration order.
func Models() []any {
	return []any{
		&workspace.Buyer{},
		&workspace.Item{},
		&deals.Offer{},
		&deals.Task{},
		&listings.Property{},
		&listings.BuyerProperty{},
		&documents.Artifact{},
		&documents.OfferTemplate{},
		&documents.OfferTemplateField{},
	}
}
