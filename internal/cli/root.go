// Package cli implements the homepage command-line interface.
package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/homepage/pkg/types"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// rootFlags holds global flag values accessible to all subcommands.
type rootFlags struct {
	configDir string
	dataDir   string
	jsonMode  bool
	verbose   bool
}

// NewRootCmd creates the top-level "homepage" command with global flags
// and all subcommands registered.
func NewRootCmd() *cobra.Command {
	root, _ := newRoot()
	return root
}

func newRoot() (*cobra.Command, *app) {
	a := &app{}
	root := &cobra.Command{
		Use:   "homepage",
		Short: "Local storage for a new-tab bookmark dashboard",
		Long: "homepage keeps the bookmarks, folders, backgrounds and settings of a\n" +
			"new-tab dashboard in a local database and migrates older key/value data.",
		Version: Version,
		// Do not print usage on errors returned by subcommands.
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "version" {
				return nil
			}
			return a.configure(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.close()
		},
	}

	root.PersistentFlags().StringVar(&a.flags.configDir, "config-dir", "", "configuration directory (default: platform config dir)")
	root.PersistentFlags().StringVar(&a.flags.dataDir, "data-dir", "", "data directory (default: platform data dir)")
	root.PersistentFlags().BoolVar(&a.flags.jsonMode, "json", false, "output in JSON format")
	root.PersistentFlags().BoolVarP(&a.flags.verbose, "verbose", "v", false, "log at debug level")

	root.AddCommand(
		newVersionCmd(),
		newInitCmd(a),
		newBookmarkCmd(a),
		newFolderCmd(a),
		newSettingsCmd(a),
		newLegacyCmd(a),
		newStatusCmd(a),
		newServeCmd(a),
	)
	return root, a
}

// Execute runs the root command and exits with the appropriate code.
func Execute() {
	root, a := newRoot()
	err := root.Execute()
	// PersistentPostRunE is skipped when a command fails.
	if cerr := a.close(); err == nil {
		err = cerr
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	os.Exit(exitCode(err))
}

// sysError marks failures of the environment rather than of the request.
type sysError struct{ err error }

func (e *sysError) Error() string { return e.err.Error() }
func (e *sysError) Unwrap() error { return e.err }

func systemError(format string, args ...any) error {
	return &sysError{err: fmt.Errorf(format, args...)}
}

// exitCode maps an error to the process exit status. Storage and
// environment failures exit 2; everything else the user can fix exits 1.
func exitCode(err error) int {
	var se *sysError
	switch {
	case err == nil:
		return exitSuccess
	case errors.As(err, &se),
		errors.Is(err, types.ErrStorageUnavailable),
		errors.Is(err, types.ErrStorageWriteFailed),
		errors.Is(err, types.ErrMigrationFailed):
		return exitSysError
	default:
		return exitUserError
	}
}
