package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// NewTokenCommand creates the token command group.
func NewTokenCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Manage browser extension API tokens",
	}
	cmd.AddCommand(newTokenIssueCommand(rootOpts))
	cmd.AddCommand(newTokenRevokeCommand(rootOpts))
	return cmd
}

type issueOptions struct {
	user  string
	label string
}

func newTokenIssueCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &issueOptions{}

	cmd := &cobra.Command{
		Use:   "issue",
		Short: "Issue a new API token for a user",
		Long: `Issue a new API token for a user. The token is printed once; only its
SHA-256 hash is stored.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withBackend(cmd.Context(), rootOpts, func(b Backend) error {
				issued, err := b.Tokens().Issue(cmd.Context(), opts.user, opts.label)
				if err != nil {
					return fmt.Errorf("issue token: %w", err)
				}
				return write(cmd.OutOrStdout(), rootOpts.Format, map[string]any{
					"id":    issued.ID,
					"token": issued.Token,
					"hash":  issued.Hash,
				}, func(w io.Writer) {
					fmt.Fprintf(w, "token: %s\nhash:  %s\n", issued.Token, issued.Hash)
				})
			})
		},
	}

	cmd.Flags().StringVarP(&opts.user, "user", "u", "", "user id the token authenticates as")
	cmd.Flags().StringVarP(&opts.label, "label", "l", "", "free-form label, e.g. the device name")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}

func newTokenRevokeCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "revoke <token-or-hash-prefix>",
		Short: "Revoke API tokens by token, hash or hash prefix",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withBackend(cmd.Context(), rootOpts, func(b Backend) error {
				n, err := b.Tokens().Revoke(cmd.Context(), args[0])
				if err != nil {
					return fmt.Errorf("revoke token: %w", err)
				}
				return write(cmd.OutOrStdout(), rootOpts.Format, map[string]any{"revoked": n},
					func(w io.Writer) { fmt.Fprintf(w, "revoked %d token(s)\n", n) })
			})
		},
	}
}
