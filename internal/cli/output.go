package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"text/tabwriter"

	"github.com/mesh-intelligence/homepage/pkg/types"
)

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}

func printBookmarks(w io.Writer, bookmarks []types.Bookmark) {
	if len(bookmarks) == 0 {
		fmt.Fprintln(w, "No bookmarks found.")
		return
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tFOLDER\tORDER\tTITLE\tURL")
	for _, b := range bookmarks {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n", b.ID, b.FolderID, b.Order, truncate(b.Title, 32), truncate(b.URL, 48))
	}
	tw.Flush()
}

func printFolders(w io.Writer, folders []types.Folder) {
	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tORDER\tNAME\tBACKGROUND")
	for _, f := range folders {
		bg := "-"
		switch {
		case f.BackgroundImageID != nil:
			bg = "image " + *f.BackgroundImageID
		case f.BackgroundURL != nil:
			bg = truncate(*f.BackgroundURL, 40)
		case f.InheritBackground:
			bg = "inherited"
		}
		name := f.Name
		if f.IsDefault {
			name += " (default)"
		}
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n", f.ID, f.Order, name, bg)
	}
	tw.Flush()
}

// readFile reads an optional upload named by a flag.
func readFile(path string) ([]byte, string, error) {
	if path == "" {
		return nil, "", nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", err
	}
	return data, filepath.Base(path), nil
}

func parseIndex(s, what string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %s %q is not a number", types.ErrInvalidPosition, what, s)
	}
	return n, nil
}
