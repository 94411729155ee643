package types

import (
	"errors"
	"fmt"
	"strings"
)

// Storage errors.
var (
	ErrStorageUnavailable = errors.New("storage unavailable")
	ErrStorageWriteFailed = errors.New("storage write failed")
	ErrMigrationFailed    = errors.New("migration failed")
	ErrUnknownCollection  = errors.New("unknown collection")
	ErrInvalidRecord      = errors.New("invalid record")
)

// Homepage operation errors.
var (
	ErrNotFound        = errors.New("not found")
	ErrInvalidName     = errors.New("invalid name")
	ErrDuplicateName   = errors.New("a folder with this name already exists")
	ErrDuplicateURL    = errors.New("bookmark already exists")
	ErrInvalidURL      = errors.New("invalid url")
	ErrDefaultFolder   = errors.New("the default folder cannot be deleted")
	ErrInvalidSettings = errors.New("invalid settings")
	ErrInvalidPosition = errors.New("invalid position")
)

// StorageError carries the operation context of a storage failure. Kind is
// one of the storage sentinels; errors.Is matches both Kind and Err.
type StorageError struct {
	Op         string
	Collection string
	Key        string
	Kind       error
	Err        error
}

func (e *StorageError) Error() string {
	var b strings.Builder
	b.WriteString(e.Op)
	if e.Collection != "" {
		b.WriteString(" ")
		b.WriteString(e.Collection)
		if e.Key != "" {
			fmt.Fprintf(&b, "[%s]", e.Key)
		}
	}
	b.WriteString(": ")
	b.WriteString(e.Kind.Error())
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *StorageError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// WriteFailed wraps err as an ErrStorageWriteFailed for collection and key.
func WriteFailed(op, collection, key string, err error) error {
	return &StorageError{Op: op, Collection: collection, Key: key, Kind: ErrStorageWriteFailed, Err: err}
}

// Unavailable wraps err as an ErrStorageUnavailable.
func Unavailable(op string, err error) error {
	return &StorageError{Op: op, Kind: ErrStorageUnavailable, Err: err}
}
