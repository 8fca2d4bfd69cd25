package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/yungbote/buyerdesk-backend/internal/app"
	"github.com/yungbote/buyerdesk-backend/internal/platform/ctxutil"
	"github.com/yungbote/buyerdesk-backend/internal/platform/logger"
	"github.com/yungbote/buyerdesk-backend/internal/services"
)

func newTokenCmd() *cobra.Command {
	var (
		role    string
		userID  string
		buyerID string
		name    string
		ttl     time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an access token signed with JWT_SECRET_KEY",
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := tokenRequest(role, userID, buyerID, name, ttl)
			if err != nil {
				return err
			}
			app.LoadDotEnv()
			log := logger.Nop()
			cfg := app.LoadConfig(log)
			tok, err := services.NewAuthService(log, cfg.JWTSecretKey, cfg.AccessTokenTTL).IssueToken(req)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
	cmd.Flags().StringVar(&role, "role", "agent", "agent, broker or buyer")
	cmd.Flags().StringVar(&userID, "user", "", "user id (random when empty)")
	cmd.Flags().StringVar(&buyerID, "buyer", "", "buyer id, required for buyer tokens")
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "token lifetime (default ACCESS_TOKEN_TTL)")
	return cmd
}

func tokenRequest(role, userID, buyerID, name string, ttl time.Duration) (services.TokenRequest, error) {
	req := services.TokenRequest{
		Role: ctxutil.Role(strings.ToLower(strings.TrimSpace(role))),
		Name: name,
		TTL:  ttl,
	}
	if !req.Role.Valid() {
		return req, fmt.Errorf("unknown role %q", role)
	}
	req.UserID = uuid.New()
	if userID != "" {
		id, err := uuid.Parse(userID)
		if err != nil {
			return req, fmt.Errorf("invalid --user: %w", err)
		}
		req.UserID = id
	}
	if buyerID != "" {
		id, err := uuid.Parse(buyerID)
		if err != nil {
			return req, fmt.Errorf("invalid --buyer: %w", err)
		}
		req.BuyerID = id
	}
	if req.Role == ctxutil.RoleBuyer && req.BuyerID == uuid.Nil {
		return req, fmt.Errorf("--buyer is required for buyer tokens")
	}
	return req, nil
}
