package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/turtacn/shieldgate/internal/domain/pii"
)

func newRedactCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "redact [text|-]",
		Short: "Mask personal data in a message",
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

			res := redactor.Redact(text)
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, res.Text)
			for _, c := range res.Categories {
				fmt.Fprintf(cmd.ErrOrStderr(), "redacted: %s (%d)\n", c, len(res.RawMatches[c]))
			}
			return nil
		},
	}
}
