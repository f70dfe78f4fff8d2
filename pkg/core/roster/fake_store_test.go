package roster

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jakechorley/activity-log/pkg/db"
)

// fakeStore implements db.Store in memory for testing
type fakeStore struct {
	mu        sync.Mutex
	directory []db.DirectoryRecord
	entries   map[db.StoreHandle][]db.EntryRecord
	created   []string

	readDirectoryErr error
	readEntriesErr   error
	appendErr        error
	updateErr        error
	createErr        error
	setStoreErr      error

	// appendDelay widens the window between reading and writing rows so
	// unserialized appends would interleave
	appendDelay time.Duration
	// block holds each call that checks it until its context expires
	block bool

	appendCalls int
	updateCalls int
}

func newFakeStore(rows ...db.DirectoryRecord) *fakeStore {
	return &fakeStore{
		directory: rows,
		entries:   make(map[db.StoreHandle][]db.EntryRecord),
	}
}

func (f *fakeStore) wait(ctx context.Context) error {
	if !f.block {
		return nil
	}
	<-ctx.Done()
	return ctx.Err()
}

func (f *fakeStore) ReadDirectory(ctx context.Context) ([]db.DirectoryRecord, error) {
	if err := f.wait(ctx); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.readDirectoryErr != nil {
		return nil, f.readDirectoryErr
	}
	return append([]db.DirectoryRecord(nil), f.directory...), nil
}

func (f *fakeStore) SetEntriesStore(ctx context.Context, directoryRow int, handle db.StoreHandle) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.setStoreErr != nil {
		return f.setStoreErr
	}
	for i := range f.directory {
		if f.directory[i].Row == directoryRow {
			f.directory[i].EntriesStore = string(handle)
			return nil
		}
	}
	return fmt.Errorf("no directory row %d", directoryRow)
}

func (f *fakeStore) CreateEntriesStore(ctx context.Context, name string) (db.StoreHandle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return "", f.createErr
	}
	handle := db.StoreHandle("store-" + name)
	if _, ok := f.entries[handle]; !ok {
		f.entries[handle] = nil
		f.created = append(f.created, name)
	}
	return handle, nil
}

func (f *fakeStore) ReadEntries(ctx context.Context, handle db.StoreHandle) ([]db.EntryRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.readEntriesErr != nil {
		return nil, f.readEntriesErr
	}
	records, ok := f.entries[handle]
	if !ok {
		return nil, fmt.Errorf("%w: %s", db.ErrStoreNotFound, handle)
	}
	return append([]db.EntryRecord(nil), records...), nil
}

func (f *fakeStore) AppendEntries(ctx context.Context, handle db.StoreHandle, rows []db.EntryRow) ([]db.EntryRecord, error) {
	if err := f.wait(ctx); err != nil {
		return nil, err
	}

	f.mu.Lock()
	f.appendCalls++
	if f.appendErr != nil {
		f.mu.Unlock()
		return nil, f.appendErr
	}
	next := len(f.entries[handle]) + 2
	f.mu.Unlock()

	if f.appendDelay > 0 {
		time.Sleep(f.appendDelay)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	records := make([]db.EntryRecord, len(rows))
	for i, row := range rows {
		records[i] = db.EntryRecord{ID: next + i, EntryRow: row}
	}
	f.entries[handle] = append(f.entries[handle], records...)
	return records, nil
}

func (f *fakeStore) UpdateEntryStatus(ctx context.Context, handle db.StoreHandle, id int, status string) error {
	if err := f.wait(ctx); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updateCalls++
	if f.updateErr != nil {
		return f.updateErr
	}
	for i := range f.entries[handle] {
		if f.entries[handle][i].ID == id {
			f.entries[handle][i].Status = status
			return nil
		}
	}
	return fmt.Errorf("no entry %d", id)
}

func (f *fakeStore) storedEntries(handle db.StoreHandle) []db.EntryRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]db.EntryRecord(nil), f.entries[handle]...)
}

// setDirectory replaces the directory rows, as an edit of the sheet would
func (f *fakeStore) setDirectory(rows ...db.DirectoryRecord) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.directory = rows
}

// setStatus edits a stored status behind the roster's back
func (f *fakeStore) setStatus(handle db.StoreHandle, id int, status string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.entries[handle] {
		if f.entries[handle][i].ID == id {
			f.entries[handle][i].Status = status
		}
	}
}

func directoryRecord(row int, uid, first, last, signUp, signOff, membership, store string) db.DirectoryRecord {
	return db.DirectoryRecord{
		Row: row,
		DirectoryRow: db.DirectoryRow{
			FirstName:      first,
			LastName:       last,
			UID:            uid,
			SignUpDate:     signUp,
			SignOffDate:    signOff,
			MembershipType: membership,
			EntriesStore:   store,
		},
	}
}
