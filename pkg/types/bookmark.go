package types

// Bookmark is a shortcut tile shown in a folder.
type Bookmark struct {
	ID           string  `json:"id"`
	Title        string  `json:"title"`
	URL          string  `json:"url"`
	Icon         string  `json:"icon"`
	CustomIcon   bool    `json:"customIcon"`
	IconFilename *string `json:"iconFilename"`
	FolderID     string  `json:"folderId"`
	Order        int     `json:"order"`
}

// RecordKey returns the bookmark id.
func (b Bookmark) RecordKey() string { return b.ID }

// Folder groups bookmarks and carries an optional background.
// BackgroundFile and BackgroundFilename are the legacy inline image fields;
// they are only present on folders whose image could not be converted.
type Folder struct {
	ID                 string  `json:"id"`
	Name               string  `json:"name"`
	Order              int     `json:"order"`
	IsDefault          bool    `json:"isDefault"`
	BackgroundImageID  *string `json:"backgroundImageId"`
	BackgroundURL      *string `json:"backgroundUrl"`
	InheritBackground  bool    `json:"inheritBackground"`
	BackgroundFile     *string `json:"backgroundFile,omitempty"`
	BackgroundFilename *string `json:"backgroundFilename,omitempty"`
}

// RecordKey returns the folder id.
func (f Folder) RecordKey() string { return f.ID }

// HasOwnBackground reports whether the folder has an image or URL set.
func (f Folder) HasOwnBackground() bool {
	return (f.BackgroundImageID != nil && *f.BackgroundImageID != "") ||
		(f.BackgroundURL != nil && *f.BackgroundURL != "")
}

// StringPtr returns a pointer to s, or nil when s is empty.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// StringValue dereferences p, returning "" for nil.
func StringValue(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
