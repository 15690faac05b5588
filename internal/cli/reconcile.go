package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// ReconcileResult is the outcome of one reconciliation pass.
type ReconcileResult struct {
	Repaired int `json:"repaired"`
	Rescored int `json:"rescored"`
}

// NewReconcileCommand creates the reconcile command.
func NewReconcileCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile",
		Short: "Recount submission totals from the vote rows",
		Long: `Recount total_craft and total_crap for every submission from its vote
rows, repair any that drifted, and recompute their craft score.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withBackend(cmd.Context(), rootOpts, func(b Backend) error {
				repaired, rescored, err := b.Reconcile(cmd.Context())
				if err != nil {
					return fmt.Errorf("reconcile: %w", err)
				}
				res := ReconcileResult{Repaired: repaired, Rescored: rescored}
				return write(cmd.OutOrStdout(), rootOpts.Format, res, func(w io.Writer) {
					fmt.Fprintf(w, "repaired %d submission(s), rescored %d\n", res.Repaired, res.Rescored)
				})
			})
		},
	}
}
