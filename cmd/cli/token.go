package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/turtacn/shieldgate/internal/config"
	"github.com/turtacn/shieldgate/internal/domain/models"
	"github.com/turtacn/shieldgate/internal/infrastructure/crypto"
	"github.com/turtacn/shieldgate/internal/infrastructure/kms"
	"github.com/turtacn/shieldgate/pkg/logger"
)

func newTokenCommand(opts *rootOptions) *cobra.Command {
	tokenCmd := &cobra.Command{
		Use:   "token",
		Short: "Manage tenant access tokens",
	}

	var (
		tenantID    string
		name        string
		plan        string
		permissions []string
		ttl         time.Duration
	)
	issueCmd := &cobra.Command{
		Use:   "issue",
		Short: "Issue a signed access token for a tenant",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(opts.configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			log := logger.NewNoopLogger()
			key, err := kms.ResolveSigningKey(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			manager, err := crypto.NewJWTManager(key, cfg.JWT, log)
			if err != nil {
				return err
			}
			tc, err := models.NewTenantContext(tenantID, name, plan, permissions)
			if err != nil {
				return err
			}
			if ttl == 0 {
				ttl = cfg.JWT.AccessTokenTTL
			}
			token, err := manager.IssueWithTTL(cmd.Context(), tc, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	issueCmd.Flags().StringVar(&tenantID, "tenant", "", "tenant id (required)")
	issueCmd.Flags().StringVar(&name, "name", "", "tenant display name")
	issueCmd.Flags().StringVar(&plan, "plan", "starter", "subscription plan")
	issueCmd.Flags().StringSliceVar(&permissions, "permission", nil, "granted permission, repeatable")
	issueCmd.Flags().DurationVar(&ttl, "ttl", 0, "token lifetime (defaults to jwt.access_token_ttl)")
	_ = issueCmd.MarkFlagRequired("tenant")

	tokenCmd.AddCommand(issueCmd)
	return tokenCmd
}
