package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/homepage/pkg/types"
)

func newSettingsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change display settings",
	}
	cmd.AddCommand(newSettingsShowCmd(a), newSettingsSetCmd(a))
	return cmd
}

func (a *app) printSettings(cmd *cobra.Command, s types.Settings) error {
	if a.flags.jsonMode {
		return printJSON(cmd.OutOrStdout(), s)
	}
	tw := newTable(cmd.OutOrStdout())
	fmt.Fprintf(tw, "iconSize\t%d\n", s.IconSize)
	fmt.Fprintf(tw, "titleSize\t%d\n", s.TitleSize)
	fmt.Fprintf(tw, "titleColor\t%s\n", s.TitleColor)
	fmt.Fprintf(tw, "gridPosition\t%s\n", s.GridPosition)
	fmt.Fprintf(tw, "maxAppsWidth\t%d\n", s.MaxAppsWidth)
	return tw.Flush()
}

func newSettingsShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the display settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			return a.printSettings(cmd, svc.Settings())
		},
	}
}

func newSettingsSetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "set <key=value>...",
		Short: "Change one or more display settings",
		Long: `Set updates settings by their stored names. Values that parse as JSON are
used as-is; anything else is taken as a string.

Example:
  homepage settings set iconSize=80 titleColor=#202020
  homepage settings set gridPosition=top-center`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			patch, err := settingsPatch(args)
			if err != nil {
				return err
			}
			svc, err := a.open(cmd.Context())
			if err != nil {
				return err
			}

			next := svc.Settings()
			dec := json.NewDecoder(bytes.NewReader(patch))
			dec.DisallowUnknownFields()
			if err := dec.Decode(&next); err != nil {
				return fmt.Errorf("%w: %w", types.ErrInvalidSettings, err)
			}
			s, err := svc.UpdateSettings(cmd.Context(), func(s *types.Settings) { *s = next })
			if err != nil {
				return err
			}
			return a.printSettings(cmd, s)
		},
	}
}

// settingsPatch turns key=value arguments into a JSON object.
func settingsPatch(args []string) ([]byte, error) {
	patch := make(map[string]json.RawMessage, len(args))
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("%w: expected key=value, got %q", types.ErrInvalidSettings, arg)
		}
		raw := json.RawMessage(value)
		if !json.Valid(raw) {
			quoted, err := json.Marshal(value)
			if err != nil {
				return nil, err
			}
			raw = quoted
		}
		patch[key] = raw
	}
	return json.Marshal(patch)
}
