package types

// BackgroundSource returns the folder whose background should be shown for
// folderID. The default folder uses its own background; other folders use
// their own image when set and otherwise inherit from the default folder.
// ok is false when the built-in background should be shown.
func BackgroundSource(folders []Folder, folderID string) (Folder, bool) {
	var current *Folder
	for i := range folders {
		if folders[i].ID == folderID {
			current = &folders[i]
			break
		}
	}
	if current == nil {
		return Folder{}, false
	}
	if current.IsDefault {
		return *current, current.HasOwnBackground()
	}
	if current.BackgroundImageID != nil && *current.BackgroundImageID != "" {
		return *current, true
	}
	if !current.InheritBackground && current.BackgroundURL != nil && *current.BackgroundURL != "" {
		return *current, true
	}
	def, ok := DefaultFolder(folders)
	if !ok || !def.HasOwnBackground() {
		return Folder{}, false
	}
	return def, true
}
