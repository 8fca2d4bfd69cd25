package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/yungbote/buyerdesk-backend/internal/pkg/errs"
	"github.com/yungbote/buyerdesk-backend/internal/platform/ctxutil"
	"github.com/yungbote/buyerdesk-backend/internal/platform/logger"
)

type JWTClaims struct {
	Role    string `json:"role"`
	Name    string `json:"name,omitempty"`
	BuyerID string `json:"buyer_id,omitempty"`
	jwt.RegisteredClaims
}

type TokenRequest struct {
	UserID  uuid.UUID
	Role    ctxutil.Role
	Name    string
	BuyerID uuid.UUID
	TTL     time.Duration
}

type AuthService interface {
	IssueToken(req TokenRequest) (string, error)
	ParseToken(tokenString string) (*ctxutil.Session, error)
	// SetContextFromToken attaches the session carried by tokenString.
	SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error)
	GetAccessTTL() time.Duration
}

type authService struct {
	log          *logger.Logger
	jwtSecretKey string
	accessTTL    time.Duration
}

func NewAuthService(baseLog *logger.Logger, jwtSecretKey string, accessTTL time.Duration) AuthService {
	if accessTTL <= 0 {
		accessTTL = 12 * time.Hour
	}
	return &authService{
		log:          baseLog.With("service", "AuthService"),
		jwtSecretKey: jwtSecretKey,
		accessTTL:    accessTTL,
	}
}

func (as *authService) IssueToken(req TokenRequest) (string, error) {
	if !req.Role.Valid() {
		return "", errs.Invalid("unknown role %q", req.Role)
	}
	if req.UserID == uuid.Nil {
		return "", errs.Invalid("user id required")
	}
	if req.Role == ctxutil.RoleBuyer && req.BuyerID == uuid.Nil {
		return "", errs.Invalid("buyer tokens need a buyer id")
	}
	ttl := req.TTL
	if ttl <= 0 {
		ttl = as.accessTTL
	}
	now := time.Now()
	claims := &JWTClaims{
		Role: string(req.Role),
		Name: strings.TrimSpace(req.Name),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   req.UserID.String(),
			ID:        uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	if req.BuyerID != uuid.Nil {
		claims.BuyerID = req.BuyerID.String()
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(as.jwtSecretKey))
}

func (as *authService) ParseToken(tokenString string) (*ctxutil.Session, error) {
	if tokenString == "" {
		return nil, errs.ErrUnauthorized
	}
	parsedToken, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(as.jwtSecretKey), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", errors.Join(errs.ErrUnauthorized, err))
	}
	claims, ok := parsedToken.Claims.(*JWTClaims)
	if !ok || !parsedToken.Valid {
		return nil, fmt.Errorf("invalid or expired token: %w", errs.ErrUnauthorized)
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("invalid user id in token: %w", errs.ErrUnauthorized)
	}
	role := ctxutil.Role(claims.Role)
	if !role.Valid() {
		return nil, fmt.Errorf("invalid role in token: %w", errs.ErrUnauthorized)
	}
	s := &ctxutil.Session{UserID: userID, Role: role, Name: claims.Name}
	if claims.ID != "" {
		s.SessionID, _ = uuid.Parse(claims.ID)
	}
	if role == ctxutil.RoleBuyer {
		if s.BuyerID, err = uuid.Parse(claims.BuyerID); err != nil {
			return nil, fmt.Errorf("buyer token without buyer id: %w", errs.ErrUnauthorized)
		}
	}
	return s, nil
}

func (as *authService) SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error) {
	s, err := as.ParseToken(tokenString)
	if err != nil {
		return ctx, err
	}
	return ctxutil.WithSession(ctx, s), nil
}

func (as *authService) GetAccessTTL() time.Duration {
	return as.accessTTL
}
