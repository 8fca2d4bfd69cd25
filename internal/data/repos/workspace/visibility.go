package workspace

import (
	"gorm.io/gorm"

	ws "github.com/yungbote/buyerdesk-backend/internal/domain/workspace"
)

// BuyerVisible is the only filter buyer-facing reads may use for workspace
// items. AI drafts pass only once approved and flagged visible; internal
// analysis, rejected drafts and drafts still streaming never pass.
func BuyerVisible(db *gorm.DB) *gorm.DB {
	return db.Where(
		"workspace_item.kind <> ? OR (workspace_item.audience = ? AND workspace_item.approval_status = ? AND workspace_item.buyer_visible = ? AND workspace_item.streaming = ?)",
		ws.KindAIExplanation, ws.AudienceBuyer, ws.ApprovalApproved, true, false,
	)
}
