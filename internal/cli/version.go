package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version is the release version of the homepage binary.
const Version = "0.1.0"

const modulePath = "github.com/mesh-intelligence/homepage"

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the homepage version",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "homepage v%s\nmodule: %s\n", Version, modulePath)
			return nil
		},
	}
}
