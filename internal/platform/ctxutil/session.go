package ctxutil

import (
	"context"

	"github.com/google/uuid"
)

type Role string

const (
	RoleAgent  Role = "agent"
	RoleBroker Role = "broker"
	RoleBuyer  Role = "buyer"
)

func (r Role) Valid() bool {
	return r == RoleAgent || r == RoleBroker || r == RoleBuyer
}

type sessionKey struct{}

// Session is the authenticated caller. It is attached once by the auth
// middleware and passed down explicitly through context.
type Session struct {
	UserID    uuid.UUID
	SessionID uuid.UUID
	Role      Role
	Name      string
	// BuyerID is set only for buyer sessions and scopes every portal read.
	BuyerID uuid.UUID
}

// CanWrite is false for the read-only broker view.
func (s *Session) CanWrite() bool {
	return s != nil && (s.Role == RoleAgent || s.Role == RoleBuyer)
}

func (s *Session) IsAgent() bool  { return s != nil && s.Role == RoleAgent }
func (s *Session) IsBuyer() bool  { return s != nil && s.Role == RoleBuyer }
func (s *Session) IsBroker() bool { return s != nil && s.Role == RoleBroker }

func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

func GetSession(ctx context.Context) *Session {
	if ctx == nil {
		return nil
	}
	if s, ok := ctx.Value(sessionKey{}).(*Session); ok {
		return s
	}
	return nil
}
