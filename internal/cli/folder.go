package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/homepage/pkg/types"
)

func newFolderCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "folder",
		Short: "Manage folders",
	}
	cmd.AddCommand(
		newFolderListCmd(a),
		newFolderCreateCmd(a),
		newFolderRenameCmd(a),
		newFolderReorderCmd(a),
		newFolderDeleteCmd(a),
		newFolderBackgroundCmd(a),
	)
	return cmd
}

func (a *app) printFolder(cmd *cobra.Command, verb string, f types.Folder) error {
	if a.flags.jsonMode {
		return printJSON(cmd.OutOrStdout(), f)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s folder %s (%s)\n", verb, f.ID, f.Name)
	return nil
}

func newFolderListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List folders in display order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			if a.flags.jsonMode {
				return printJSON(cmd.OutOrStdout(), svc.Folders())
			}
			printFolders(cmd.OutOrStdout(), svc.Folders())
			return nil
		},
	}
}

func newFolderCreateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "create <name>",
		Short: "Create a folder; it inherits the default folder's background",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			f, err := svc.CreateFolder(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return a.printFolder(cmd, "Created", f)
		},
	}
}

func newFolderRenameCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "rename <id> <name>",
		Short: "Rename a folder",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			if err := svc.RenameFolder(cmd.Context(), args[0], args[1]); err != nil {
				return err
			}
			f, err := svc.Folder(args[0])
			if err != nil {
				return err
			}
			return a.printFolder(cmd, "Renamed", f)
		},
	}
}

func newFolderReorderCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "reorder <from> <to>",
		Short: "Move the folder at display position from to position to",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			from, err := parseIndex(args[0], "from")
			if err != nil {
				return err
			}
			to, err := parseIndex(args[1], "to")
			if err != nil {
				return err
			}
			svc, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			if err := svc.ReorderFolders(cmd.Context(), from, to); err != nil {
				return err
			}
			if a.flags.jsonMode {
				return printJSON(cmd.OutOrStdout(), svc.Folders())
			}
			printFolders(cmd.OutOrStdout(), svc.Folders())
			return nil
		},
	}
}

func newFolderDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a folder, moving its bookmarks to the default folder",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			if err := svc.DeleteFolder(cmd.Context(), args[0]); err != nil {
				return err
			}
			if !a.flags.jsonMode {
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted folder %s\n", args[0])
			}
			return nil
		},
	}
}

func newFolderBackgroundCmd(a *app) *cobra.Command {
	var file, url string
	var reset bool
	cmd := &cobra.Command{
		Use:   "background <id>",
		Short: "Show or change a folder's background",
		Long: `Without flags, background shows what the folder displays, following
inheritance from the default folder. --file stores an image, --url points at
a remote image and --clear removes the folder's own background.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			set := 0
			for _, name := range []string{"file", "url", "clear"} {
				if cmd.Flags().Changed(name) {
					set++
				}
			}
			if set > 1 {
				return errors.New("use only one of --file, --url and --clear")
			}

			svc, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			switch {
			case file != "":
				data, _, err := readFile(file)
				if err != nil {
					return fmt.Errorf("read background: %w", err)
				}
				f, err := svc.SetFolderBackground(ctx, args[0], data)
				if err != nil {
					return err
				}
				return a.printFolder(cmd, "Updated background of", f)
			case cmd.Flags().Changed("url"):
				f, err := svc.SetFolderBackgroundURL(ctx, args[0], url)
				if err != nil {
					return err
				}
				return a.printFolder(cmd, "Updated background of", f)
			case reset:
				f, err := svc.ClearFolderBackground(ctx, args[0])
				if err != nil {
					return err
				}
				return a.printFolder(cmd, "Cleared background of", f)
			}

			bg, err := svc.Background(ctx, args[0])
			if err != nil {
				return err
			}
			if a.flags.jsonMode {
				return printJSON(cmd.OutOrStdout(), bg)
			}
			out := cmd.OutOrStdout()
			switch {
			case bg == nil:
				fmt.Fprintln(out, "built-in background")
			case bg.Image != nil:
				fmt.Fprintf(out, "image %s (%s, %d bytes) from folder %s\n", bg.Image.ID, bg.Image.ContentType, bg.Image.Size, bg.SourceFolderID)
			default:
				fmt.Fprintf(out, "url %s from folder %s\n", bg.URL, bg.SourceFolderID)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "image file to store as the background")
	cmd.Flags().StringVar(&url, "url", "", "remote image URL")
	cmd.Flags().BoolVar(&reset, "clear", false, "remove the folder's own background")
	return cmd
}
