// Package types defines the records persisted by the homepage store, the
// collection names they live in, and the standard errors shared by the
// storage, migration, and homepage packages.
package types
