package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/homepage/internal/legacy"
	"github.com/mesh-intelligence/homepage/internal/migration"
	"github.com/mesh-intelligence/homepage/pkg/types"
)

func newLegacyCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "legacy",
		Short: "Work with data from the old key/value store",
	}
	cmd.AddCommand(newLegacyImportCmd(a))
	return cmd
}

func newLegacyImportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Load a JSON export of the old store and migrate it",
		Long: `Import copies the top-level keys of a JSON object (bookmarks, folders,
settings) into the legacy store and then opens storage, which migrates them.
A store that has already completed migration ignores newly imported data.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			path := a.storeConfig().LegacyPath

			ls := legacy.New(legacy.WithLogger(a.logger.With("component", "legacy")))
			if err := ls.Open(path); err != nil {
				return systemError("open legacy store: %w", err)
			}
			n, err := ls.ImportFile(ctx, args[0])
			if cerr := ls.Close(); err == nil && cerr != nil {
				return systemError("close legacy store: %w", cerr)
			}
			if err != nil {
				return err
			}

			svc, err := a.open(ctx)
			if err != nil {
				return err
			}
			state, err := migration.New(a.store, nil).State(ctx)
			if err != nil {
				return err
			}

			if a.flags.jsonMode {
				return printJSON(cmd.OutOrStdout(), map[string]any{
					"keys":      n,
					"migration": state,
					"bookmarks": len(svc.AllBookmarks()),
					"folders":   len(svc.Folders()),
				})
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Imported %d keys into %s\n", n, path)
			fmt.Fprintf(out, "Migration %s: %d bookmarks, %d folders\n", state, len(svc.AllBookmarks()), len(svc.Folders()))
			if state == types.MigrationComplete && a.legacy != nil && unmigrated(ctx, a.legacy) {
				fmt.Fprintln(out, "Note: migration had already completed; imported keys were left in the legacy store.")
			}
			return nil
		},
	}
}

// unmigrated reports whether the legacy store still holds data keys after
// migration ran.
func unmigrated(ctx context.Context, ls *legacy.Store) bool {
	values, err := ls.ReadAll(ctx)
	if err != nil {
		return false
	}
	for _, key := range []string{"bookmarks", "folders", "settings"} {
		if _, ok := values[key]; ok {
			return true
		}
	}
	return false
}
