package cli

import (
	"encoding/json"
	"errors"

	"github.com/spf13/cobra"

	"github.com/turtacn/shieldgate/internal/application/service"
	"github.com/turtacn/shieldgate/internal/domain/pii"
	"github.com/turtacn/shieldgate/pkg/logger"
)

// ErrBlocked is returned by scan --strict when the message would be rejected.
var ErrBlocked = errors.New("message blocked by guardrails")

func newScanCommand(opts *rootOptions) *cobra.Command {
	var (
		tenant string
		strict bool
	)
	cmd := &cobra.Command{
		Use:   "scan [text|-]",
		Short: "Classify a message and print the guardrail verdict as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := inputText(cmd, args)
			if err != nil {
				return err
			}
			catalog, err := opts.catalog()
			if err != nil {
				return err
			}
			redactor, err := pii.NewRedactor(catalog)
			if err != nil {
				return err
			}

			// Input validation neither audits nor consumes rate-limit tokens.
			guard := service.NewGuardrailAppService(catalog, redactor, nil, nil, nil, nil, logger.NewNoopLogger())
			verdict := guard.ValidateInput(cmd.Context(), text, tenant)

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(verdict); err != nil {
				return err
			}
			if strict && !verdict.IsSafe {
				return ErrBlocked
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&tenant, "tenant", "", "tenant id recorded in logs and spans")
	cmd.Flags().BoolVar(&strict, "strict", false, "exit non-zero when the message is blocked")
	return cmd
}
