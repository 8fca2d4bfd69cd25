package services

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/yungbote/buyerdesk-backend/internal/data/repos"
	types "github.com/yungbote/buyerdesk-backend/internal/domain"
	"github.com/yungbote/buyerdesk-backend/internal/pkg/dbctx"
	"github.com/yungbote/buyerdesk-backend/internal/pkg/errs"
	"github.com/yungbote/buyerdesk-backend/internal/platform/ctxutil"
)

type access int

const (
	accessRead access = iota
	accessWrite
)

func requireSession(dbc dbctx.Context) (*ctxutil.Session, error) {
	s := ctxutil.GetSession(dbc.Ctx)
	if s == nil || s.UserID == uuid.Nil || !s.Role.Valid() {
		return nil, errs.ErrUnauthorized
	}
	return s, nil
}

// requireAgent admits agents, and brokers for reads.
func requireAgent(dbc dbctx.Context, mode access) (*ctxutil.Session, error) {
	s, err := requireSession(dbc)
	if err != nil {
		return nil, err
	}
	switch {
	case s.IsAgent():
		return s, nil
	case s.IsBroker() && mode == accessRead:
		return s, nil
	}
	return nil, errs.ErrForbidden
}

// agentScope is nil for brokers, who see the whole brokerage.
func agentScope(s *ctxutil.Session) *uuid.UUID {
	if s.IsAgent() {
		id := s.UserID
		return &id
	}
	return nil
}

func canSeeBuyer(s *ctxutil.Session, b *types.Buyer) bool {
	switch {
	case s.IsAgent():
		return b.AgentID == s.UserID
	case s.IsBroker():
		return true
	case s.IsBuyer():
		return b.ID == s.BuyerID
	}
	return false
}

// loadBuyer fetches a buyer the session may see. Buyers outside the session's
// scope read as not found.
func loadBuyer(dbc dbctx.Context, buyers repos.BuyerRepo, s *ctxutil.Session, buyerID uuid.UUID, mode access) (*types.Buyer, error) {
	if mode == accessWrite && !s.CanWrite() {
		return nil, errs.ErrForbidden
	}
	b, err := buyers.GetByID(dbc, buyerID)
	if err != nil {
		return nil, err
	}
	if !canSeeBuyer(s, b) {
		return nil, fmt.Errorf("buyer %s: %w", buyerID, errs.ErrNotFound)
	}
	return b, nil
}

func ownsAgentRow(s *ctxutil.Session, agentID uuid.UUID) bool {
	return s.IsBroker() || (s.IsAgent() && agentID == s.UserID)
}
