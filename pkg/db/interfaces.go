package db

import (
	"context"
	"errors"
)

// ErrStoreNotFound is returned when a store handle does not address an existing entries store
var ErrStoreNotFound = errors.New("entries store not found")

// DirectoryStore defines the directory operations
type DirectoryStore interface {
	ReadDirectory(ctx context.Context) ([]DirectoryRecord, error)
	SetEntriesStore(ctx context.Context, directoryRow int, handle StoreHandle) error
}

// EntryStore defines the operations on a member's entries store.
// CreateEntriesStore is idempotent per name: calling it again for a name
// returns the store created before.
type EntryStore interface {
	CreateEntriesStore(ctx context.Context, name string) (StoreHandle, error)
	ReadEntries(ctx context.Context, handle StoreHandle) ([]EntryRecord, error)
	AppendEntries(ctx context.Context, handle StoreHandle, rows []EntryRow) ([]EntryRecord, error)
	UpdateEntryStatus(ctx context.Context, handle StoreHandle, id int, status string) error
}

// Store defines the interface for all row store operations.
// Both the SheetsSQL-backed db.DB and postgres.DB implement this interface.
// Reads validate the source's header against the configured columns before
// decoding any row.
type Store interface {
	DirectoryStore
	EntryStore
}
