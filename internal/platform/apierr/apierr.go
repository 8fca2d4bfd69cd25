package apierr

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"github.com/yungbote/buyerdesk-backend/internal/pkg/errs"
	"github.com/yungbote/buyerdesk-backend/internal/pkg/httpx"
)

type Error struct {
	Status int
	Code   string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Code != "" {
		return e.Code
	}
	if e.Status != 0 {
		return fmt.Sprintf("api error (%d)", e.Status)
	}
	return "api error"
}

func (e *Error) Unwrap() error { return e.Err }

func New(status int, code string, err error) *Error {
	return &Error{Status: status, Code: code, Err: err}
}

const pgUniqueViolation = "23505"

// From maps service errors onto HTTP status codes. fallbackCode names the
// operation for anything unrecognised.
func From(err error, fallbackCode string) *Error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	var pgErr *pgconn.PgError
	switch {
	case errors.Is(err, errs.ErrNotFound), errors.Is(err, gorm.ErrRecordNotFound):
		return New(http.StatusNotFound, "not_found", err)
	case errors.Is(err, errs.ErrInvalidTransition):
		return New(http.StatusConflict, "invalid_transition", err)
	case errors.Is(err, errs.ErrInvalidStageTransition):
		return New(http.StatusConflict, "invalid_stage_transition", err)
	case errors.Is(err, errs.ErrImmutableItem):
		return New(http.StatusConflict, "immutable_item", err)
	case errors.Is(err, errs.ErrConflict):
		return New(http.StatusConflict, "conflict", err)
	case errors.Is(err, errs.ErrForbidden):
		return New(http.StatusForbidden, "forbidden", err)
	case errors.Is(err, errs.ErrUnauthorized):
		return New(http.StatusUnauthorized, "unauthorized", err)
	case errors.Is(err, errs.ErrValidation):
		return New(http.StatusBadRequest, "invalid_request", err)
	case errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation:
		return New(http.StatusConflict, "duplicate", err)
	case httpx.IsRateLimited(err):
		return New(http.StatusTooManyRequests, "rate_limited", err)
	}
	return New(http.StatusInternalServerError, fallbackCode, err)
}
