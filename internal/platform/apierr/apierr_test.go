package apierr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"github.com/yungbote/buyerdesk-backend/internal/pkg/errs"
)

type upstream429 struct{}

func (upstream429) Error() string       { return "slow down" }
func (upstream429) HTTPStatusCode() int { return http.StatusTooManyRequests }

func TestFromMapsDomainErrors(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{fmt.Errorf("load: %w", errs.ErrNotFound), http.StatusNotFound, "not_found"},
		{gorm.ErrRecordNotFound, http.StatusNotFound, "not_found"},
		{&errs.TransitionError{Action: "approve", From: "approved"}, http.StatusConflict, "invalid_transition"},
		{errs.ErrInvalidStageTransition, http.StatusConflict, "invalid_stage_transition"},
		{errs.ErrImmutableItem, http.StatusConflict, "immutable_item"},
		{errs.Invalid("name required"), http.StatusBadRequest, "invalid_request"},
		{errs.ErrForbidden, http.StatusForbidden, "forbidden"},
		{&pgconn.PgError{Code: "23505"}, http.StatusConflict, "duplicate"},
		{fmt.Errorf("draft: %w", upstream429{}), http.StatusTooManyRequests, "rate_limited"},
		{errors.New("disk on fire"), http.StatusInternalServerError, "op_failed"},
	}
	for _, tc := range cases {
		got := From(tc.err, "op_failed")
		if got.Status != tc.status || got.Code != tc.code {
			t.Fatalf("From(%v)=%d/%s want=%d/%s", tc.err, got.Status, got.Code, tc.status, tc.code)
		}
	}
}

func TestFromPassesThroughAPIErrors(t *testing.T) {
	in := New(http.StatusTeapot, "teapot", errors.New("short and stout"))
	if got := From(fmt.Errorf("wrap: %w", in), "x"); got != in {
		t.Fatalf("expected passthrough, got %+v", got)
	}
	if From(nil, "x") != nil {
		t.Fatalf("nil should map to nil")
	}
}
