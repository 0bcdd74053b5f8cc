// Package cli implements shieldctl, the operator tool for shieldgate. It runs the same
// guardrail pipeline as the server against local text, issues tenant tokens and resets
// rate-limit buckets.
package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/turtacn/shieldgate/internal/domain/pattern"
)

type rootOptions struct {
	configPath  string
	catalogPath string
}

// NewRootCommand builds the shieldctl command tree.
// NewRootCommand 构建 shieldctl 命令树。
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:   "shieldctl",
		Short: "Operator CLI for the shieldgate request-defense service.",
		Long: `shieldctl runs the shieldgate guardrails against local text and performs
administrative tasks such as issuing tenant tokens and resetting rate limits.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", os.Getenv("SHIELDGATE_CONFIG"), "path to the YAML configuration file")
	root.PersistentFlags().StringVar(&opts.catalogPath, "catalog", "", "rule catalog file (defaults to the built-in catalog)")

	root.AddCommand(
		newScanCommand(opts),
		newRedactCommand(opts),
		newTokenCommand(opts),
		newRateLimitCommand(opts),
	)
	return root
}

// Execute runs shieldctl and exits non-zero on error.
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func (o *rootOptions) catalog() (*pattern.Catalog, error) {
	if o.catalogPath == "" {
		return pattern.DefaultCatalog(), nil
	}
	c, err := pattern.LoadCatalog(o.catalogPath)
	if err != nil {
		return nil, fmt.Errorf("load rule catalog: %w", err)
	}
	return c, nil
}

// inputText joins args, or reads stdin when there are none or the only arg is "-".
func inputText(cmd *cobra.Command, args []string) (string, error) {
	if len(args) > 0 && !(len(args) == 1 && args[0] == "-") {
		return strings.Join(args, " "), nil
	}
	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	return strings.TrimRight(string(data), "\r\n"), nil
}
