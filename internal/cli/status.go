package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/homepage/internal/homepage"
	"github.com/mesh-intelligence/homepage/pkg/types"
)

type statusOutput struct {
	ConfigDir string `json:"configDir"`
	DataDir   string `json:"dataDir"`
	homepage.Stats
}

func newStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show migration state, counts and storage usage",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			st, err := svc.Stats(cmd.Context())
			if err != nil {
				return err
			}
			if a.flags.jsonMode {
				return printJSON(cmd.OutOrStdout(), statusOutput{ConfigDir: a.configDir, DataDir: a.dataDir, Stats: st})
			}
			printStatus(cmd, a, st)
			return nil
		},
	}
}

func printStatus(cmd *cobra.Command, a *app, st homepage.Stats) {
	out := cmd.OutOrStdout()
	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)
	red := color.New(color.FgRed, color.Bold)
	gray := color.New(color.FgHiBlack)

	fmt.Fprintf(out, "Config:     %s\n", a.configDir)
	fmt.Fprintf(out, "Data:       %s\n", a.dataDir)

	fmt.Fprint(out, "Migration:  ")
	if st.Migration == types.MigrationComplete {
		green.Fprintln(out, st.Migration)
	} else {
		yellow.Fprintln(out, st.Migration)
	}

	fmt.Fprintf(out, "Bookmarks:  %d\n", st.Bookmarks)
	fmt.Fprintf(out, "Folders:    %d\n", st.Folders)

	fmt.Fprint(out, "Updated:    ")
	if st.LastUpdated != nil {
		fmt.Fprintln(out, st.LastUpdated.Local().Format("2006-01-02 15:04:05"))
	} else {
		gray.Fprintln(out, "never")
	}

	fmt.Fprint(out, "Storage:    ")
	if st.Usage == nil {
		gray.Fprintln(out, "unknown")
		return
	}
	line := fmt.Sprintf("%s MB of %s MB (%.1f%%)", st.Usage.UsedMB(), st.Usage.TotalMB(), st.Usage.PercentUsed())
	switch p := st.Usage.PercentUsed(); {
	case p >= 90:
		red.Fprintln(out, line)
	case p >= 75:
		yellow.Fprintln(out, line)
	default:
		green.Fprintln(out, line)
	}
}
