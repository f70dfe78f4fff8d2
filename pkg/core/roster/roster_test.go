package roster

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jakechorley/activity-log/pkg/db"
	"github.com/jakechorley/activity-log/pkg/sheetssql"
)

func testLogger() *zap.Logger {
	return zap.NewNop()
}

func fixedNow() time.Time {
	return time.Date(2021, time.June, 15, 10, 30, 0, 0, time.Local)
}

func annaRow(store string) db.DirectoryRecord {
	return directoryRecord(2, "u1", "Anna", "Muster", "01.03.2021", "", "Vollmitglied", store)
}

func loadedRoster(t *testing.T, rows ...db.DirectoryRecord) (*fakeStore, *Roster) {
	t.Helper()
	store := newFakeStore(rows...)
	r := New(store, testLogger(), Options{SupportMembershipType: "Fördermitglied", Now: fixedNow})
	require.NoError(t, r.Reload(context.Background()))
	return store, r
}

func TestReload_AnnaMusterScenario(t *testing.T) {
	store, r := loadedRoster(t, annaRow(""))

	u, err := r.User("u1")
	require.NoError(t, err)
	assert.Equal(t, MembershipActive, u.Status())
	assert.Equal(t, Date{Day: 1, Month: 3, Year: 2021}, u.SignUpDate())

	// The missing entries store is provisioned and written back
	assert.Equal(t, []string{"u1"}, store.created)
	assert.Equal(t, "store-u1", store.directory[0].EntriesStore)

	created, err := u.CreateEntries(context.Background(), []ActivityType{ActivityCatering})
	require.NoError(t, err)
	require.Len(t, created, 1)
	assert.Equal(t, 1, store.appendCalls)

	data, err := json.Marshal(created[0].View())
	require.NoError(t, err)

	var view map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &view))
	assert.Equal(t, "catering", view["type"])
	assert.Equal(t, "unconfirmed", view["status"])
	assert.Equal(t, map[string]interface{}{"date": 15.0, "month": 6.0, "year": 2021.0}, view["entryDate"])

	assert.Equal(t, "15.06.2021", store.storedEntries("store-u1")[0].Date)
}

func TestCreateEntries_TwoTypes(t *testing.T) {
	_, r := loadedRoster(t, annaRow(""))
	u, _ := r.User("u1")

	created, err := u.CreateEntries(context.Background(), []ActivityType{ActivityWork, ActivityErrands})
	require.NoError(t, err)
	require.Len(t, created, 2)

	assert.NotEqual(t, created[0].ID(), created[1].ID())
	for _, e := range created {
		assert.True(t, e.Persisted())
		assert.Equal(t, StatusUnconfirmed, e.Status())
		assert.Equal(t, DateOf(fixedNow()), e.Date())
	}
	assert.Len(t, u.Entries(), 2)
}

func TestCreateEntries_Validation(t *testing.T) {
	store, r := loadedRoster(t, annaRow(""))
	u, _ := r.User("u1")

	_, err := u.CreateEntries(context.Background(), nil)
	assert.True(t, errors.Is(err, ErrValidation))

	_, err = u.CreateEntries(context.Background(), []ActivityType{"gardening"})
	assert.True(t, errors.Is(err, ErrValidation))

	created, err := u.CreateEntries(context.Background(), []ActivityType{ActivityWork, ActivityWork})
	require.NoError(t, err)
	assert.Len(t, created, 1)
	assert.Equal(t, 1, store.appendCalls)
}

func TestCreateEntries_StoreFailureAddsNothing(t *testing.T) {
	store, r := loadedRoster(t, annaRow(""))
	u, _ := r.User("u1")

	store.appendErr = errors.New("backend unavailable")
	_, err := u.CreateEntries(context.Background(), []ActivityType{ActivityWork})
	assert.True(t, errors.Is(err, ErrStoreIO))
	assert.Empty(t, u.Entries())
	assert.Equal(t, 1, store.appendCalls, "failed appends are not retried")
}

func TestCreateEntries_Concurrent(t *testing.T) {
	store, r := loadedRoster(t, annaRow(""))
	store.appendDelay = 2 * time.Millisecond
	u, _ := r.User("u1")

	const workers = 8
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := u.CreateEntries(context.Background(), []ActivityType{ActivityWork, ActivityErrands})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}

	entries := u.Entries()
	assert.Len(t, entries, workers*2)

	seen := make(map[EntryID]bool)
	for _, e := range entries {
		assert.False(t, seen[e.ID()], "duplicate id %d", e.ID())
		seen[e.ID()] = true
	}
	assert.Len(t, store.storedEntries("store-u1"), workers*2)
}

func TestUserEntry_Lookup(t *testing.T) {
	_, r := loadedRoster(t, annaRow(""))
	u, _ := r.User("u1")
	created, err := u.CreateEntries(context.Background(), []ActivityType{ActivityWork})
	require.NoError(t, err)
	id := created[0].ID()

	first, err := u.Entry(id)
	require.NoError(t, err)
	second, err := u.Entry(id)
	require.NoError(t, err)
	assert.Equal(t, first.View(), second.View())

	_, err = u.Entry(id + 100)
	assert.True(t, errors.Is(err, ErrNotFound))

	u.mu.Lock()
	u.entries = append(u.entries, &Entry{id: id, persisted: true, activity: ActivityWork, owner: u})
	u.mu.Unlock()
	_, err = u.Entry(id)
	assert.True(t, errors.Is(err, ErrConsistency))
}

func TestReload_DuplicateEntryIDs(t *testing.T) {
	store := newFakeStore(annaRow("s1"))
	store.entries["s1"] = []db.EntryRecord{
		{ID: 2, EntryRow: db.EntryRow{Date: "01.06.2021", Activity: "work", Status: "unconfirmed"}},
		{ID: 2, EntryRow: db.EntryRow{Date: "02.06.2021", Activity: "work", Status: "unconfirmed"}},
	}
	r := New(store, testLogger(), Options{})

	err := r.Reload(context.Background())
	assert.True(t, errors.Is(err, ErrConsistency))
}

func TestUsers_ListsOnlyActive(t *testing.T) {
	_, r := loadedRoster(t,
		annaRow(""),
		directoryRecord(3, "u2", "Ben", "Beispiel", "05.07.2020", "31.12.2022", "Vollmitglied", ""),
		directoryRecord(4, "u3", "Clara", "Copy", "10.10.2019", "", "Fördermitglied", ""),
		directoryRecord(5, "u4", "Dana", "Doe", "11.11.2020", "", "Vollmitglied", ""),
	)

	summaries, err := r.Summaries()
	require.NoError(t, err)
	require.Len(t, summaries, 2)
	assert.Equal(t, "u1", summaries[0].UID)
	assert.Equal(t, "u4", summaries[1].UID)

	inactive, err := r.User("u2")
	require.NoError(t, err)
	assert.Equal(t, MembershipInactive, inactive.Status())

	support, err := r.User("u3")
	require.NoError(t, err)
	assert.Equal(t, MembershipSupport, support.Status())

	_, err = r.User("u9")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestSummaryJSON(t *testing.T) {
	_, r := loadedRoster(t, annaRow(""))
	u, _ := r.User("u1")

	data, err := json.Marshal(u.Detail())
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"firstName": "Anna",
		"lastName": "Muster",
		"uid": "u1",
		"status": "active",
		"signUpDate": {"day": 1, "month": 3, "year": 2021},
		"dataEntries": []
	}`, string(data))
}

func TestReload_SchemaErrorBuildsNoUsers(t *testing.T) {
	store := newFakeStore(annaRow(""))
	store.readDirectoryErr = &sheetssql.SchemaError{Table: "users", Missing: []string{"Unique ID"}}
	r := New(store, testLogger(), Options{})

	err := r.Reload(context.Background())
	assert.True(t, errors.Is(err, ErrSchema))
	var schemaErr *sheetssql.SchemaError
	require.True(t, errors.As(err, &schemaErr))
	assert.Equal(t, []string{"Unique ID"}, schemaErr.Missing)

	assert.Empty(t, store.created)
	_, err = r.Users()
	assert.True(t, errors.Is(err, ErrSchema))
	_, err = r.User("u1")
	assert.True(t, errors.Is(err, ErrSchema))
}

func TestReload_FailureThenRecovery(t *testing.T) {
	store, r := loadedRoster(t, annaRow(""))

	store.readDirectoryErr = errors.New("connection reset")
	err := r.Reload(context.Background())
	assert.True(t, errors.Is(err, ErrStoreIO))
	assert.Error(t, r.Err())
	_, err = r.User("u1")
	assert.True(t, errors.Is(err, ErrStoreIO))

	store.readDirectoryErr = nil
	require.NoError(t, r.Reload(context.Background()))
	assert.NoError(t, r.Err())
	_, err = r.User("u1")
	assert.NoError(t, err)
}

func TestReload_NotLoaded(t *testing.T) {
	r := New(newFakeStore(), testLogger(), Options{})
	_, err := r.Users()
	assert.Error(t, err)
	assert.Error(t, r.Err())
}

func TestReload_InvalidRowFailsWholeReload(t *testing.T) {
	store := newFakeStore(
		annaRow(""),
		directoryRecord(3, "u2", "", "Beispiel", "05.07.2020", "", "Vollmitglied", ""),
	)
	r := New(store, testLogger(), Options{})

	err := r.Reload(context.Background())
	assert.True(t, errors.Is(err, ErrValidation))
	assert.Contains(t, err.Error(), "first_name")
	assert.Contains(t, err.Error(), "row 3")

	_, err = r.Users()
	assert.Error(t, err)
}

func TestReload_BadSignUpDate(t *testing.T) {
	store := newFakeStore(directoryRecord(2, "u1", "Anna", "Muster", "March 2021", "", "Vollmitglied", ""))
	r := New(store, testLogger(), Options{})

	assert.True(t, errors.Is(r.Reload(context.Background()), ErrValidation))
}

func TestReload_DuplicateUID(t *testing.T) {
	store := newFakeStore(
		annaRow(""),
		directoryRecord(3, "u1", "Anna", "Zweite", "01.03.2021", "", "Vollmitglied", ""),
	)
	r := New(store, testLogger(), Options{})

	err := r.Reload(context.Background())
	assert.True(t, errors.Is(err, ErrConsistency))
	assert.Empty(t, store.created)
}

func TestReload_ProvisioningFailure(t *testing.T) {
	store := newFakeStore(annaRow(""))
	store.createErr = errors.New("permission denied")
	r := New(store, testLogger(), Options{})

	err := r.Reload(context.Background())
	assert.True(t, errors.Is(err, ErrStoreIO))
	assert.Contains(t, err.Error(), "failed to provision entries store for u1")
}

func TestReload_DanglingEntriesStore(t *testing.T) {
	store := newFakeStore(annaRow("missing"))
	r := New(store, testLogger(), Options{})

	assert.True(t, errors.Is(r.Reload(context.Background()), ErrConsistency))
}

func TestReload_LoadsExistingEntries(t *testing.T) {
	store := newFakeStore(annaRow("s1"))
	store.entries["s1"] = []db.EntryRecord{
		{ID: 2, EntryRow: db.EntryRow{Date: "01.06.2021", Activity: "work", Status: "accepted"}},
		{ID: 3, EntryRow: db.EntryRow{Date: "02.06.2021", Activity: "errands", Status: "unconfirmed"}},
	}
	r := New(store, testLogger(), Options{})
	require.NoError(t, r.Reload(context.Background()))

	u, err := r.User("u1")
	require.NoError(t, err)
	assert.Len(t, u.Entries(), 2)

	pending := u.PendingEntries()
	require.Len(t, pending, 1)
	assert.Equal(t, EntryID(3), pending[0].ID())
	assert.Empty(t, store.created)
}

func TestPending_GroupsByUser(t *testing.T) {
	store := newFakeStore(
		annaRow("s1"),
		directoryRecord(3, "u2", "Ben", "Beispiel", "05.07.2020", "", "Vollmitglied", "s2"),
		directoryRecord(4, "u3", "Clara", "Copy", "10.10.2019", "01.01.2022", "Vollmitglied", "s3"),
	)
	store.entries["s1"] = []db.EntryRecord{
		{ID: 2, EntryRow: db.EntryRow{Date: "01.06.2021", Activity: "work", Status: "accepted"}},
	}
	store.entries["s2"] = []db.EntryRecord{
		{ID: 2, EntryRow: db.EntryRow{Date: "01.06.2021", Activity: "work", Status: "unconfirmed"}},
		{ID: 3, EntryRow: db.EntryRow{Date: "02.06.2021", Activity: "catering", Status: "rejected"}},
	}
	store.entries["s3"] = []db.EntryRecord{
		{ID: 2, EntryRow: db.EntryRow{Date: "03.06.2021", Activity: "errands", Status: "unconfirmed"}},
	}
	r := New(store, testLogger(), Options{})
	require.NoError(t, r.Reload(context.Background()))

	pending, err := r.Pending()
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, "u2", pending[0].UID)
	require.Len(t, pending[0].DataEntries, 1)
	assert.Equal(t, EntryID(2), pending[0].DataEntries[0].ID)
	assert.Equal(t, "u3", pending[1].UID)
}

func TestReload_Serialized(t *testing.T) {
	store, r := loadedRoster(t, annaRow(""))

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, r.Reload(context.Background()))
		}()
	}
	wg.Wait()

	assert.Equal(t, []string{"u1"}, store.created, "the entries store is provisioned once")
	_, err := r.User("u1")
	assert.NoError(t, err)
}
