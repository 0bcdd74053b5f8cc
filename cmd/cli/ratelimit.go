package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/turtacn/shieldgate/internal/config"
	"github.com/turtacn/shieldgate/internal/infrastructure/persistence/redis"
	"github.com/turtacn/shieldgate/internal/infrastructure/ratelimit"
	"github.com/turtacn/shieldgate/pkg/constants"
	"github.com/turtacn/shieldgate/pkg/logger"
)

func newRateLimitCommand(opts *rootOptions) *cobra.Command {
	rlCmd := &cobra.Command{
		Use:   "ratelimit",
		Short: "Inspect and manage rate-limit buckets",
	}

	var scope, id string
	resetCmd := &cobra.Command{
		Use:   "reset",
		Short: "Refill the bucket of a tenant or client address",
		RunE: func(cmd *cobra.Command, args []string) error {
			s := constants.RateLimitScope(scope)
			if s != constants.RateLimitScopeTenant && s != constants.RateLimitScopeIP {
				return fmt.Errorf("scope must be %q or %q", constants.RateLimitScopeTenant, constants.RateLimitScopeIP)
			}
			cfg, err := config.LoadConfig(opts.configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if !cfg.Redis.Enabled {
				return fmt.Errorf("redis is not enabled; local buckets live in the server process")
			}

			log := logger.NewNoopLogger()
			conn := redis.NewRedisConnection(cfg.Redis, log)
			if err := conn.Connect(cmd.Context()); err != nil {
				return fmt.Errorf("connect redis: %w", err)
			}
			defer func() { _ = conn.Close() }()

			limiter, err := ratelimit.NewRedisRateLimiter(conn.GetClient(), ratelimit.ConfigFrom(cfg.RateLimit), log)
			if err != nil {
				return err
			}
			if err := limiter.ResetLimit(cmd.Context(), s, id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "reset %s:%s\n", s, id)
			return nil
		},
	}
	resetCmd.Flags().StringVar(&scope, "scope", string(constants.RateLimitScopeTenant), "bucket scope: tenant or ip")
	resetCmd.Flags().StringVar(&id, "id", "", "tenant id or client address (required)")
	_ = resetCmd.MarkFlagRequired("id")

	rlCmd.AddCommand(resetCmd)
	return rlCmd
}
