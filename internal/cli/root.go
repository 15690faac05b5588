package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"slices"

	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Format string // "json" | "text"

	// Open connects to the backing store. Commands that do not touch the
	// database never call it.
	Open Opener
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for craftctl.
func NewRootCommand(open Opener) *cobra.Command {
	opts := &RootOptions{Open: open}

	cmd := &cobra.Command{
		Use:   "craftctl",
		Short: "craftctl - craft or crap operations tool",
		Long:  "Administrative commands for the craft or crap voting service: schema migration, counter reconciliation and extension API tokens.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(NewMigrateCommand(opts))
	cmd.AddCommand(NewReconcileCommand(opts))
	cmd.AddCommand(NewTokenCommand(opts))

	return cmd
}

// withBackend opens the backend for the duration of fn.
func withBackend(ctx context.Context, opts *RootOptions, fn func(Backend) error) error {
	b, err := opts.Open(ctx)
	if err != nil {
		return err
	}
	defer b.Close()
	return fn(b)
}

// write prints v as JSON or via the text formatter.
func write(w io.Writer, format string, v any, text func(io.Writer)) error {
	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	text(w)
	return nil
}
