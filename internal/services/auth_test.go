package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/buyerdesk-backend/internal/pkg/errs"
	"github.com/yungbote/buyerdesk-backend/internal/platform/ctxutil"
	"github.com/yungbote/buyerdesk-backend/internal/platform/logger"
)

func TestIssueAndParseBuyerToken(t *testing.T) {
	svc := NewAuthService(logger.Nop(), "test-secret", time.Hour)
	userID, buyerID := uuid.New(), uuid.New()

	tok, err := svc.IssueToken(TokenRequest{UserID: userID, Role: ctxutil.RoleBuyer, Name: "Jane", BuyerID: buyerID})
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	ctx, err := svc.SetContextFromToken(context.Background(), tok)
	if err != nil {
		t.Fatalf("SetContextFromToken: %v", err)
	}
	s := ctxutil.GetSession(ctx)
	if s == nil || s.UserID != userID || s.BuyerID != buyerID || !s.IsBuyer() || s.Name != "Jane" {
		t.Fatalf("session=%+v", s)
	}
	if s.SessionID == uuid.Nil {
		t.Fatalf("session id missing")
	}
}

func TestParseTokenRejectsTamperingAndExpiry(t *testing.T) {
	svc := NewAuthService(logger.Nop(), "test-secret", time.Hour)
	other := NewAuthService(logger.Nop(), "other-secret", time.Hour)

	tok, err := other.IssueToken(TokenRequest{UserID: uuid.New(), Role: ctxutil.RoleAgent})
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	if _, err := svc.ParseToken(tok); !errors.Is(err, errs.ErrUnauthorized) {
		t.Fatalf("foreign signature err=%v", err)
	}

	short := NewAuthService(logger.Nop(), "test-secret", time.Nanosecond)
	tok, err = short.IssueToken(TokenRequest{UserID: uuid.New(), Role: ctxutil.RoleAgent})
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	time.Sleep(1100 * time.Millisecond)
	if _, err := svc.ParseToken(tok); !errors.Is(err, errs.ErrUnauthorized) {
		t.Fatalf("expired token err=%v", err)
	}
}

func TestIssueTokenValidatesRole(t *testing.T) {
	svc := NewAuthService(logger.Nop(), "s", 0)
	if _, err := svc.IssueToken(TokenRequest{UserID: uuid.New(), Role: "admin"}); !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("err=%v", err)
	}
	if _, err := svc.IssueToken(TokenRequest{UserID: uuid.New(), Role: ctxutil.RoleBuyer}); !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("buyer without id err=%v", err)
	}
}
