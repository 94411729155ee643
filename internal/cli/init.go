package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newInitCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize homepage storage",
		Long: "Create the configuration and data directories, write a default config.yaml,\n" +
			"open the database and migrate any legacy data.",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			if a.flags.jsonMode {
				return printJSON(cmd.OutOrStdout(), map[string]any{
					"configDir": a.configDir,
					"dataDir":   a.dataDir,
					"folders":   len(svc.Folders()),
					"bookmarks": len(svc.AllBookmarks()),
				})
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Config: %s\n", a.configDir)
			fmt.Fprintf(out, "Data:   %s\n", a.dataDir)
			fmt.Fprintln(out, "homepage initialized successfully")
			return nil
		},
	}
}
