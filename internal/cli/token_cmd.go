package cli

import (
	"fmt"
	"time"

	"github.com/matic113/freelance-platform-sub003/internal/api/middleware"
	"github.com/matic113/freelance-platform-sub003/internal/domain"
	"github.com/spf13/cobra"
)

func newTokenCmd(app *App) *cobra.Command {
	var userID, role string
	var ttl time.Duration

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a signed bearer token for local testing",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !domain.ValidRoles[role] {
				return domain.Errorf(domain.ErrValidation, "unknown role %q", role)
			}
			if !cmd.Flags().Changed("ttl") {
				ttl = app.Config.Auth.TokenTTL
			}
			token, expires, err := middleware.GenerateToken(userID, domain.Role(role), app.Config.Auth.JWTSecret, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			fmt.Fprintf(cmd.ErrOrStderr(), "expires %s\n", expires.Format(time.RFC3339))
			return nil
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "User ID placed in the sub claim")
	cmd.Flags().StringVar(&role, "role", string(domain.RoleClient), "client, freelancer or system")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "Token lifetime (default from config)")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
