package commands

import (
	"time"

	"github.com/spf13/cobra"

	"scanattend/internal/auth"
)

func newTokenCmd(e *env) *cobra.Command {
	var (
		subject string
		ttl     time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an admin bearer token for the kiosk HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if ttl <= 0 {
				ttl = e.cfg.AdminTokenTTL
			}
			tok, err := auth.Issue(subject, auth.RoleAdmin, e.cfg.JWTIssuer, e.cfg.JWTSigningKey, ttl)
			if err != nil {
				return err
			}
			printf(cmd.OutOrStdout(), "%s\n", tok.Value)
			e.log.Info("admin token issued", "subject", subject, "expires_at", tok.ExpiresAt)
			return nil
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "operator", "token subject")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "token lifetime (defaults to ADMIN_TOKEN_TTL)")
	return cmd
}
