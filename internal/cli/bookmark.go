package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/homepage/internal/homepage"
	"github.com/mesh-intelligence/homepage/pkg/types"
)

func newBookmarkCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "bookmark",
		Aliases: []string{"bm"},
		Short:   "Manage bookmarks",
	}
	cmd.AddCommand(
		newBookmarkAddCmd(a),
		newBookmarkListCmd(a),
		newBookmarkEditCmd(a),
		newBookmarkDeleteCmd(a),
		newBookmarkMoveCmd(a),
		newBookmarkSortCmd(a),
		newBookmarkFolderCmd(a),
	)
	return cmd
}

func (a *app) printBookmark(cmd *cobra.Command, verb string, b types.Bookmark) error {
	if a.flags.jsonMode {
		return printJSON(cmd.OutOrStdout(), b)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s bookmark %s (%s)\n", verb, b.ID, b.Title)
	return nil
}

func newBookmarkAddCmd(a *app) *cobra.Command {
	var folderID, iconPath string
	var unique bool
	cmd := &cobra.Command{
		Use:   "add <title> <url>",
		Short: "Add a bookmark to the end of a folder",
		Long: `Add appends a bookmark to a folder, the default folder unless --folder is
given. Without --icon the favicon service is used.

Example:
  homepage bookmark add "Go" https://go.dev
  homepage bookmark add Docs https://pkg.go.dev --folder <id> --unique`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			icon, filename, err := readFile(iconPath)
			if err != nil {
				return fmt.Errorf("read icon: %w", err)
			}
			svc, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			b, err := svc.AddBookmark(cmd.Context(), homepage.NewBookmark{
				Title:           args[0],
				URL:             args[1],
				FolderID:        folderID,
				Icon:            icon,
				IconFilename:    filename,
				RejectDuplicate: unique,
			})
			if err != nil {
				return err
			}
			return a.printBookmark(cmd, "Added", b)
		},
	}
	cmd.Flags().StringVar(&folderID, "folder", "", "folder id (default: the default folder)")
	cmd.Flags().StringVar(&iconPath, "icon", "", "image file to use as the icon")
	cmd.Flags().BoolVar(&unique, "unique", false, "refuse a URL that is already bookmarked")
	return cmd
}

func newBookmarkListCmd(a *app) *cobra.Command {
	var folderID string
	var all bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the bookmarks of a folder in display order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			var bookmarks []types.Bookmark
			if all {
				bookmarks = svc.AllBookmarks()
			} else {
				if folderID == "" {
					folderID = svc.DefaultFolder().ID
				}
				if _, err := svc.Folder(folderID); err != nil {
					return err
				}
				bookmarks = svc.Bookmarks(folderID)
			}
			if a.flags.jsonMode {
				if bookmarks == nil {
					bookmarks = []types.Bookmark{}
				}
				return printJSON(cmd.OutOrStdout(), bookmarks)
			}
			printBookmarks(cmd.OutOrStdout(), bookmarks)
			return nil
		},
	}
	cmd.Flags().StringVar(&folderID, "folder", "", "folder id (default: the default folder)")
	cmd.Flags().BoolVar(&all, "all", false, "list bookmarks of every folder in stored order")
	return cmd
}

func newBookmarkEditCmd(a *app) *cobra.Command {
	var title, url, iconPath string
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change a bookmark's title, URL or icon",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			icon, filename, err := readFile(iconPath)
			if err != nil {
				return fmt.Errorf("read icon: %w", err)
			}
			svc, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			current, err := svc.Bookmark(args[0])
			if err != nil {
				return err
			}
			edit := homepage.BookmarkEdit{Title: current.Title, URL: current.URL, Icon: icon, IconFilename: filename}
			if cmd.Flags().Changed("title") {
				edit.Title = title
			}
			if cmd.Flags().Changed("url") {
				edit.URL = url
			}
			b, err := svc.EditBookmark(cmd.Context(), args[0], edit)
			if err != nil {
				return err
			}
			return a.printBookmark(cmd, "Updated", b)
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "new title")
	cmd.Flags().StringVar(&url, "url", "", "new URL")
	cmd.Flags().StringVar(&iconPath, "icon", "", "image file to use as the icon")
	return cmd
}

func newBookmarkDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a bookmark",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			if err := svc.DeleteBookmark(cmd.Context(), args[0]); err != nil {
				return err
			}
			if !a.flags.jsonMode {
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted bookmark %s\n", args[0])
			}
			return nil
		},
	}
}

func newBookmarkMoveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "move <id> <position>",
		Short: "Move a bookmark to a zero-based position within its folder",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			to, err := parseIndex(args[1], "position")
			if err != nil {
				return err
			}
			svc, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			b, err := svc.Bookmark(args[0])
			if err != nil {
				return err
			}
			if err := svc.MoveBookmark(cmd.Context(), b.FolderID, b.ID, to); err != nil {
				return err
			}
			return a.printFolderBookmarks(cmd, b.FolderID)
		},
	}
}

func newBookmarkSortCmd(a *app) *cobra.Command {
	var folderID string
	cmd := &cobra.Command{
		Use:   "sort",
		Short: "Sort a folder's bookmarks alphabetically by title",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			if folderID == "" {
				folderID = svc.DefaultFolder().ID
			}
			if err := svc.SortFolderBookmarks(cmd.Context(), folderID); err != nil {
				return err
			}
			return a.printFolderBookmarks(cmd, folderID)
		},
	}
	cmd.Flags().StringVar(&folderID, "folder", "", "folder id (default: the default folder)")
	return cmd
}

func newBookmarkFolderCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "folder <id> <folder-id>",
		Short: "Move a bookmark to the end of another folder",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			if err := svc.MoveBookmarkToFolder(cmd.Context(), args[0], args[1]); err != nil {
				return err
			}
			return a.printFolderBookmarks(cmd, args[1])
		},
	}
}

func (a *app) printFolderBookmarks(cmd *cobra.Command, folderID string) error {
	bookmarks := a.svc.Bookmarks(folderID)
	if a.flags.jsonMode {
		if bookmarks == nil {
			bookmarks = []types.Bookmark{}
		}
		return printJSON(cmd.OutOrStdout(), bookmarks)
	}
	printBookmarks(cmd.OutOrStdout(), bookmarks)
	return nil
}
