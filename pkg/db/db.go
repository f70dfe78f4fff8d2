package db

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/jakechorley/activity-log/pkg/sheetssql"
)

// DB provides row store operations using SheetsSQL. The directory lives in
// one tab; each member's entries live in their own tab addressed by sheet ID.
type DB struct {
	ssql         *sheetssql.DB
	directoryTab string
	directory    *sheetssql.TableSchema
	entries      *sheetssql.TableSchema

	mu     sync.Mutex
	titles map[int64]string
}

// Schemas builds the directory and entry table schemas with configured header overrides
func Schemas(directoryColumns, entryColumns map[string]string) (*sheetssql.TableSchema, *sheetssql.TableSchema, error) {
	directory, err := sheetssql.SchemaFromModel(DirectoryRow{}, directoryColumns)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid directory columns: %w", err)
	}

	entries, err := sheetssql.SchemaFromModel(EntryRow{}, entryColumns)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid entry columns: %w", err)
	}

	return directory, entries, nil
}

// NewDB creates a new database instance
func NewDB(ssql *sheetssql.DB, directoryTab string, directoryColumns, entryColumns map[string]string) (*DB, error) {
	directory, entries, err := Schemas(directoryColumns, entryColumns)
	if err != nil {
		return nil, err
	}

	return &DB{
		ssql:         ssql,
		directoryTab: directoryTab,
		directory:    directory,
		entries:      entries,
		titles:       make(map[int64]string),
	}, nil
}

// ReadDirectory retrieves all member rows
func (db *DB) ReadDirectory(ctx context.Context) ([]DirectoryRecord, error) {
	records, err := sheetssql.SelectAll[DirectoryRow](ctx, db.ssql, db.directoryTab, db.directory)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}

	result := make([]DirectoryRecord, len(records))
	for i, r := range records {
		result[i] = DirectoryRecord{Row: r.Row, DirectoryRow: r.Value}
	}
	return result, nil
}

// SetEntriesStore writes the entries store reference onto a directory row
func (db *DB) SetEntriesStore(ctx context.Context, directoryRow int, handle StoreHandle) error {
	if err := sheetssql.UpdateCell(ctx, db.ssql, db.directoryTab, db.directory, directoryRow, EntriesStoreKey, string(handle)); err != nil {
		return fmt.Errorf("failed to set entries store: %w", err)
	}
	return nil
}

// CreateEntriesStore returns the entries tab titled name, creating it with a
// header row when absent. A tab left behind by an earlier interrupted
// provisioning is adopted.
func (db *DB) CreateEntriesStore(ctx context.Context, name string) (StoreHandle, error) {
	sheetID, err := sheetssql.EnsureTable(ctx, db.ssql, name, db.entries)
	if err != nil {
		return "", fmt.Errorf("failed to create entries store %s: %w", name, err)
	}

	db.mu.Lock()
	db.titles[sheetID] = name
	db.mu.Unlock()

	return StoreHandle(strconv.FormatInt(sheetID, 10)), nil
}

// ReadEntries retrieves all entry rows of one entries tab
func (db *DB) ReadEntries(ctx context.Context, handle StoreHandle) ([]EntryRecord, error) {
	title, err := db.entriesTitle(ctx, handle)
	if err != nil {
		return nil, err
	}

	records, err := sheetssql.SelectAll[EntryRow](ctx, db.ssql, title, db.entries)
	if err != nil {
		return nil, fmt.Errorf("failed to read entries: %w", err)
	}

	result := make([]EntryRecord, len(records))
	for i, r := range records {
		result[i] = EntryRecord{ID: r.Row, EntryRow: r.Value}
	}
	return result, nil
}

// AppendEntries appends entry rows in one request; the sheet row numbers become the entry IDs
func (db *DB) AppendEntries(ctx context.Context, handle StoreHandle, rows []EntryRow) ([]EntryRecord, error) {
	title, err := db.entriesTitle(ctx, handle)
	if err != nil {
		return nil, err
	}

	records, err := sheetssql.InsertAll(ctx, db.ssql, title, db.entries, rows)
	if err != nil {
		return nil, fmt.Errorf("failed to append entries: %w", err)
	}

	result := make([]EntryRecord, len(records))
	for i, r := range records {
		result[i] = EntryRecord{ID: r.Row, EntryRow: r.Value}
	}
	return result, nil
}

// UpdateEntryStatus writes the status cell of one entry row
func (db *DB) UpdateEntryStatus(ctx context.Context, handle StoreHandle, id int, status string) error {
	title, err := db.entriesTitle(ctx, handle)
	if err != nil {
		return err
	}

	if err := sheetssql.UpdateCell(ctx, db.ssql, title, db.entries, id, EntryStatusKey, status); err != nil {
		return fmt.Errorf("failed to update entry status: %w", err)
	}
	return nil
}

// entriesTitle resolves a sheet ID handle to its tab title, refreshing the
// cached tab list once on a miss
func (db *DB) entriesTitle(ctx context.Context, handle StoreHandle) (string, error) {
	sheetID, err := strconv.ParseInt(string(handle), 10, 64)
	if err != nil {
		return "", fmt.Errorf("%w: invalid sheet ID %q", ErrStoreNotFound, handle)
	}

	db.mu.Lock()
	title, ok := db.titles[sheetID]
	db.mu.Unlock()
	if ok {
		return title, nil
	}

	titles, err := db.ssql.SheetTitles(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to list sheets: %w", err)
	}

	db.mu.Lock()
	defer db.mu.Unlock()
	db.titles = titles
	title, ok = titles[sheetID]
	if !ok {
		return "", fmt.Errorf("%w: no sheet with ID %d", ErrStoreNotFound, sheetID)
	}
	return title, nil
}
