package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/buyerdesk-backend/internal/platform/ctxutil"
	"github.com/yungbote/buyerdesk-backend/internal/platform/logger"
	"github.com/yungbote/buyerdesk-backend/internal/services"
)

func newAuthRouter(t *testing.T) (*gin.Engine, services.AuthService) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	auth := services.NewAuthService(logger.Nop(), "test-secret", time.Hour)
	am := NewAuthMiddleware(logger.Nop(), auth)

	r := gin.New()
	api := r.Group("/api", am.RequireAuth(), RequireWrite())
	api.GET("/buyers", func(c *gin.Context) { c.Status(http.StatusOK) })
	api.POST("/buyers", func(c *gin.Context) { c.Status(http.StatusCreated) })
	api.GET("/portal/feed", RequireRole(ctxutil.RoleBuyer), func(c *gin.Context) { c.Status(http.StatusOK) })
	return r, auth
}

func issue(t *testing.T, auth services.AuthService, role ctxutil.Role) string {
	t.Helper()
	req := services.TokenRequest{UserID: uuid.New(), Role: role, Name: "Test"}
	if role == ctxutil.RoleBuyer {
		req.BuyerID = uuid.New()
	}
	tok, err := auth.IssueToken(req)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	return tok
}

func TestRequireAuth(t *testing.T) {
	r, auth := newAuthRouter(t)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/buyers", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("missing token: got=%d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/buyers", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad token: got=%d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/buyers?token="+issue(t, auth, ctxutil.RoleAgent), nil)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("query token: got=%d", rec.Code)
	}
}

func TestBrokerIsReadOnly(t *testing.T) {
	r, auth := newAuthRouter(t)
	tok := issue(t, auth, ctxutil.RoleBroker)

	for _, tc := range []struct {
		method string
		want   int
	}{
		{http.MethodGet, http.StatusOK},
		{http.MethodPost, http.StatusForbidden},
	} {
		req := httptest.NewRequest(tc.method, "/api/buyers", nil)
		req.Header.Set("Authorization", "Bearer "+tok)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		if rec.Code != tc.want {
			t.Fatalf("%s: got=%d want=%d", tc.method, rec.Code, tc.want)
		}
	}
}

func TestRequireRole(t *testing.T) {
	r, auth := newAuthRouter(t)

	for _, tc := range []struct {
		role ctxutil.Role
		want int
	}{
		{ctxutil.RoleBuyer, http.StatusOK},
		{ctxutil.RoleAgent, http.StatusForbidden},
	} {
		req := httptest.NewRequest(http.MethodGet, "/api/portal/feed", nil)
		req.Header.Set("Authorization", "Bearer "+issue(t, auth, tc.role))
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		if rec.Code != tc.want {
			t.Fatalf("%s: got=%d want=%d", tc.role, rec.Code, tc.want)
		}
	}
}
