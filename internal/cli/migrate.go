package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/LabMasd/craftorcrap-sub000/internal/db"
)

// NewMigrateCommand creates the migrate command.
func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the embedded database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withBackend(cmd.Context(), rootOpts, func(b Backend) error {
				if err := b.Migrate(cmd.Context()); err != nil {
					return fmt.Errorf("migrate: %w", err)
				}
				return write(cmd.OutOrStdout(), rootOpts.Format,
					map[string]any{"schema_version": db.SchemaVersion},
					func(w io.Writer) { fmt.Fprintf(w, "schema at version %d\n", db.SchemaVersion) })
			})
		},
	}
}
