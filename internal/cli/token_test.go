package cli

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/buyerdesk-backend/internal/platform/ctxutil"
	"github.com/yungbote/buyerdesk-backend/internal/platform/logger"
	"github.com/yungbote/buyerdesk-backend/internal/services"
)

func TestTokenRequestValidation(t *testing.T) {
	if _, err := tokenRequest("admin", "", "", "", 0); err == nil {
		t.Fatalf("expected unknown role error")
	}
	if _, err := tokenRequest("buyer", "", "", "", 0); err == nil {
		t.Fatalf("expected missing buyer error")
	}
	if _, err := tokenRequest("agent", "not-a-uuid", "", "", 0); err == nil {
		t.Fatalf("expected invalid user error")
	}
	buyer := uuid.New()
	req, err := tokenRequest(" Buyer ", "", buyer.String(), "Jane", time.Minute)
	if err != nil {
		t.Fatalf("unexpected: %v", err)
	}
	if req.Role != ctxutil.RoleBuyer || req.BuyerID != buyer || req.UserID == uuid.Nil || req.TTL != time.Minute {
		t.Fatalf("unexpected request: %+v", req)
	}
}

func TestTokenCommandIssuesParseableToken(t *testing.T) {
	t.Setenv("JWT_SECRET_KEY", "cli-test-secret")
	user := uuid.New()

	root := NewRootCmd("test")
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"token", "--role", "broker", "--user", user.String()})
	if err := root.Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}

	auth := services.NewAuthService(logger.Nop(), "cli-test-secret", time.Hour)
	sess, err := auth.ParseToken(strings.TrimSpace(out.String()))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if sess.UserID != user || !sess.IsBroker() {
		t.Fatalf("unexpected session: %+v", sess)
	}
}
