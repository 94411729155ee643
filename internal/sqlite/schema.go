package sqlite

// Schema DDL for the collection tables. Record collections keep the JSON
// document in data and lift the fields used for lookups into columns.
const (
	createBookmarks = `CREATE TABLE bookmarks (
    id TEXT PRIMARY KEY,
    folder_id TEXT NOT NULL DEFAULT '',
    position INTEGER NOT NULL DEFAULT 0,
    data TEXT NOT NULL
);`

	createFolders = `CREATE TABLE folders (
    id TEXT PRIMARY KEY,
    ord INTEGER NOT NULL DEFAULT 0,
    data TEXT NOT NULL
);`

	createSettings = `CREATE TABLE settings (
    id TEXT PRIMARY KEY,
    data TEXT NOT NULL
);`

	createMetadata = `CREATE TABLE metadata (
    id TEXT PRIMARY KEY,
    data TEXT NOT NULL
);`

	createImages = `CREATE TABLE images (
    id TEXT PRIMARY KEY,
    data BLOB NOT NULL,
    size INTEGER NOT NULL,
    updated_at TEXT NOT NULL
);`
)

// Index DDL.
const (
	idxBookmarksFolder = `CREATE INDEX idx_bookmarks_folder ON bookmarks(folder_id, position);`
	idxFoldersOrder    = `CREATE INDEX idx_folders_ord ON folders(ord);`
)

// schemaDDL lists all CREATE TABLE statements.
var schemaDDL = []string{
	createBookmarks,
	createFolders,
	createSettings,
	createMetadata,
	createImages,
}

// indexDDL lists all CREATE INDEX statements.
var indexDDL = []string{
	idxBookmarksFolder,
	idxFoldersOrder,
}
