package services

import (
	"context"

	"github.com/google/uuid"

	types "github.com/yungbote/buyerdesk-backend/internal/domain"
	"github.com/yungbote/buyerdesk-backend/internal/realtime"
)

// WorkspaceNotifier fans workspace changes out to the agent, buyer and portal
// channels. The portal channel only ever receives buyer-visible payloads.
type WorkspaceNotifier interface {
	ItemCreated(buyer *types.Buyer, it *types.Item)
	ItemUpdated(buyer *types.Buyer, it *types.Item)
	ItemApproved(buyer *types.Buyer, it *types.Item)
	ItemRejected(buyer *types.Buyer, it *types.Item)
	DraftDelta(buyer *types.Buyer, itemID uuid.UUID, delta string)
	StageAdvanced(buyer *types.Buyer, from int, event *types.Item)
	OfferUpdated(buyer *types.Buyer, offer *types.Offer)
	TaskUpdated(agentID uuid.UUID, task *types.Task)
	PropertyUpdated(buyer *types.Buyer, link *types.BuyerProperty)
	TemplateAnalyzed(agentID uuid.UUID, tpl *types.OfferTemplate)
}

type workspaceNotifier struct {
	emit SSEEmitter
}

func NewWorkspaceNotifier(emit SSEEmitter) WorkspaceNotifier {
	return &workspaceNotifier{emit: emit}
}

func (n *workspaceNotifier) send(channel string, event realtime.SSEEvent, data map[string]any) {
	n.emit.Emit(context.Background(), realtime.SSEMessage{Channel: channel, Event: event, Data: data})
}

// agentSide reaches the owning agent's book and the buyer workspace view.
func (n *workspaceNotifier) agentSide(buyer *types.Buyer, event realtime.SSEEvent, data map[string]any) {
	if buyer.AgentID != uuid.Nil {
		n.send(realtime.AgentChannel(buyer.AgentID), event, data)
	}
	n.send(realtime.BuyerChannel(buyer.ID), event, data)
}

func (n *workspaceNotifier) item(buyer *types.Buyer, it *types.Item, event realtime.SSEEvent) {
	if n == nil || n.emit == nil || buyer == nil || it == nil {
		return
	}
	data := map[string]any{"buyer_id": buyer.ID, "item": it}
	n.agentSide(buyer, event, data)
	if it.VisibleToBuyer() {
		n.send(realtime.PortalChannel(buyer.ID), event, data)
	}
}

func (n *workspaceNotifier) ItemCreated(buyer *types.Buyer, it *types.Item) {
	n.item(buyer, it, realtime.SSEEventItemCreated)
}

func (n *workspaceNotifier) ItemUpdated(buyer *types.Buyer, it *types.Item) {
	n.item(buyer, it, realtime.SSEEventItemUpdated)
}

func (n *workspaceNotifier) ItemApproved(buyer *types.Buyer, it *types.Item) {
	n.item(buyer, it, realtime.SSEEventItemApproved)
}

func (n *workspaceNotifier) ItemRejected(buyer *types.Buyer, it *types.Item) {
	n.item(buyer, it, realtime.SSEEventItemRejected)
}

func (n *workspaceNotifier) DraftDelta(buyer *types.Buyer, itemID uuid.UUID, delta string) {
	if n == nil || n.emit == nil || buyer == nil || delta == "" {
		return
	}
	n.send(realtime.BuyerChannel(buyer.ID), realtime.SSEEventDraftDelta, map[string]any{
		"buyer_id": buyer.ID,
		"item_id":  itemID,
		"delta":    delta,
	})
}

func (n *workspaceNotifier) StageAdvanced(buyer *types.Buyer, from int, event *types.Item) {
	if n == nil || n.emit == nil || buyer == nil {
		return
	}
	data := map[string]any{
		"buyer_id": buyer.ID,
		"from":     from,
		"to":       buyer.CurrentStage,
		"item":     event,
	}
	n.agentSide(buyer, realtime.SSEEventStageAdvanced, data)
	n.send(realtime.PortalChannel(buyer.ID), realtime.SSEEventStageAdvanced, map[string]any{
		"buyer_id": buyer.ID,
		"to":       buyer.CurrentStage,
		"item":     event,
	})
}

func (n *workspaceNotifier) OfferUpdated(buyer *types.Buyer, offer *types.Offer) {
	if n == nil || n.emit == nil || buyer == nil || offer == nil {
		return
	}
	n.agentSide(buyer, realtime.SSEEventOfferUpdated, map[string]any{"buyer_id": buyer.ID, "offer": offer})
}

func (n *workspaceNotifier) TaskUpdated(agentID uuid.UUID, task *types.Task) {
	if n == nil || n.emit == nil || task == nil || agentID == uuid.Nil {
		return
	}
	data := map[string]any{"task": task}
	n.send(realtime.AgentChannel(agentID), realtime.SSEEventTaskUpdated, data)
	if task.BuyerID != nil {
		n.send(realtime.BuyerChannel(*task.BuyerID), realtime.SSEEventTaskUpdated, data)
	}
}

func (n *workspaceNotifier) PropertyUpdated(buyer *types.Buyer, link *types.BuyerProperty) {
	if n == nil || n.emit == nil || buyer == nil || link == nil {
		return
	}
	n.agentSide(buyer, realtime.SSEEventPropertyUpdated, map[string]any{"buyer_id": buyer.ID, "property": link})
	if !link.Archived {
		n.send(realtime.PortalChannel(buyer.ID), realtime.SSEEventPropertyUpdated, map[string]any{
			"buyer_id": buyer.ID,
			"property": link.BuyerView(),
		})
	}
}

func (n *workspaceNotifier) TemplateAnalyzed(agentID uuid.UUID, tpl *types.OfferTemplate) {
	if n == nil || n.emit == nil || tpl == nil || agentID == uuid.Nil {
		return
	}
	n.send(realtime.AgentChannel(agentID), realtime.SSEEventTemplateAnalyzed, map[string]any{"template": tpl})
}
