package types

import "fmt"

// Grid positions accepted by Settings.GridPosition.
var GridPositions = []string{
	"top-left", "top-center", "top-right",
	"center-left", "center-middle", "center-right",
	"bottom-left", "bottom-center", "bottom-right",
}

// Settings is the global display configuration, stored under SettingsKey.
type Settings struct {
	IconSize     int    `json:"iconSize"`
	TitleSize    int    `json:"titleSize"`
	TitleColor   string `json:"titleColor"`
	GridPosition string `json:"gridPosition"`
	MaxAppsWidth int    `json:"maxAppsWidth"`
}

// DefaultSettings returns the settings used before the user changes anything.
func DefaultSettings() Settings {
	return Settings{
		IconSize:     64,
		TitleSize:    14,
		TitleColor:   "#ffffff",
		GridPosition: "center-middle",
		MaxAppsWidth: 10,
	}
}

// Validate checks ranges and enumerations. It returns an error wrapping
// ErrInvalidSettings.
func (s Settings) Validate() error {
	if s.IconSize < 16 || s.IconSize > 256 {
		return fmt.Errorf("%w: iconSize %d out of range 16-256", ErrInvalidSettings, s.IconSize)
	}
	if s.TitleSize < 6 || s.TitleSize > 48 {
		return fmt.Errorf("%w: titleSize %d out of range 6-48", ErrInvalidSettings, s.TitleSize)
	}
	if !isHexColor(s.TitleColor) {
		return fmt.Errorf("%w: titleColor %q is not a #rrggbb color", ErrInvalidSettings, s.TitleColor)
	}
	known := false
	for _, p := range GridPositions {
		if p == s.GridPosition {
			known = true
			break
		}
	}
	if !known {
		return fmt.Errorf("%w: unknown gridPosition %q", ErrInvalidSettings, s.GridPosition)
	}
	if s.MaxAppsWidth < 1 || s.MaxAppsWidth > 50 {
		return fmt.Errorf("%w: maxAppsWidth %d out of range 1-50", ErrInvalidSettings, s.MaxAppsWidth)
	}
	return nil
}

func isHexColor(s string) bool {
	if len(s) != 7 || s[0] != '#' {
		return false
	}
	for _, r := range s[1:] {
		switch {
		case r >= '0' && r <= '9', r >= 'a' && r <= 'f', r >= 'A' && r <= 'F':
		default:
			return false
		}
	}
	return true
}
