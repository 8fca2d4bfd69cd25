package services

import (
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/yungbote/buyerdesk-backend/internal/data/repos"
	types "github.com/yungbote/buyerdesk-backend/internal/domain"
	"github.com/yungbote/buyerdesk-backend/internal/domain/workspace"
	"github.com/yungbote/buyerdesk-backend/internal/pkg/dbctx"
)

// appendEvent records a system event in the buyer's current stage.
func appendEvent(dbc dbctx.Context, items repos.ItemRepo, buyer *types.Buyer, eventType types.EventType, title, desc string, related *uuid.UUID) (*types.Item, error) {
	return items.Create(dbc, workspace.NewItem(buyer.ID, buyer.CurrentStage, workspace.SystemEvent{
		EventType:   eventType,
		Title:       title,
		Description: desc,
		RelatedID:   related,
	}))
}

// formatUSD renders whole dollars with thousands separators.
func formatUSD(amount int64) string {
	neg := amount < 0
	if neg {
		amount = -amount
	}
	digits := strconv.FormatInt(amount, 10)
	var b strings.Builder
	for i, r := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if neg {
		return "-$" + b.String()
	}
	return "$" + b.String()
}
