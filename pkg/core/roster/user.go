package roster

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/jakechorley/activity-log/pkg/db"
)

var rowValidator = newRowValidator()

// newRowValidator reports failing fields by their column key
func newRowValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		return f.Tag.Get("ssql_key")
	})
	return v
}

// User is a member loaded from the directory, together with their entries.
// A reload updates the same User in place, so pointers handed out earlier
// keep addressing the current state.
type User struct {
	uid string

	store  db.Store
	opts   Options
	logger *zap.Logger

	// writeMu serializes mutations and reloads across the store round trip
	writeMu sync.Mutex
	// mu guards the profile, the entries and the status of each entry
	mu      sync.RWMutex
	profile profile
	entries []*Entry
	// retired is set once a reload no longer finds the user in the directory
	retired bool
}

// profile is the directory part of a user
type profile struct {
	firstName      string
	lastName       string
	membershipType string
	signUpDate     Date
	signOffDate    string
	status         MembershipStatus
	directoryRow   int
	entriesStore   db.StoreHandle
}

// UserSignUpDate is the wire form of a sign-up date
type UserSignUpDate struct {
	Day   int `json:"day"`
	Month int `json:"month"`
	Year  int `json:"year"`
}

// UserSummary is the listing representation of a user
type UserSummary struct {
	FirstName  string           `json:"firstName"`
	LastName   string           `json:"lastName"`
	UID        string           `json:"uid"`
	Status     MembershipStatus `json:"status"`
	SignUpDate UserSignUpDate   `json:"signUpDate"`
}

// UserDetail is a user together with entries
type UserDetail struct {
	UserSummary
	DataEntries []EntryView `json:"dataEntries"`
}

func newUser(uid string, store db.Store, opts Options, logger *zap.Logger) *User {
	return &User{
		uid:    uid,
		store:  store,
		opts:   opts,
		logger: logger.With(zap.String("uid", uid)),
	}
}

// parseDirectoryRow validates a directory row and derives the profile it describes
func parseDirectoryRow(rec db.DirectoryRecord, supportType string) (profile, error) {
	if err := validateDirectoryRow(rec); err != nil {
		return profile{}, err
	}

	signUp, err := ParseDate(rec.SignUpDate)
	if err != nil {
		return profile{}, fmt.Errorf("directory row %d: sign-up date: %w", rec.Row, err)
	}

	return profile{
		firstName:      rec.FirstName,
		lastName:       rec.LastName,
		membershipType: rec.MembershipType,
		signUpDate:     signUp,
		signOffDate:    rec.SignOffDate,
		status:         membershipStatus(rec.DirectoryRow, supportType),
		directoryRow:   rec.Row,
		entriesStore:   db.StoreHandle(rec.EntriesStore),
	}, nil
}

// sync brings u in line with its directory row and stored entries,
// provisioning an entries store if the row has none. Nothing changes in
// memory unless every store call succeeds.
func (u *User) sync(ctx context.Context, p profile) error {
	u.writeMu.Lock()
	defer u.writeMu.Unlock()

	handle, err := u.ensureEntriesStore(ctx, p)
	if err != nil {
		return err
	}
	p.entriesStore = handle

	fresh, err := u.readEntries(ctx, handle)
	if err != nil {
		return err
	}

	u.mu.Lock()
	u.profile = p
	u.entries = u.reconcile(fresh)
	u.retired = false
	u.mu.Unlock()

	u.logger.Debug("Loaded entries", zap.Int("count", len(fresh)))
	return nil
}

// retire marks u as removed from the directory; later mutations fail
func (u *User) retire() {
	u.writeMu.Lock()
	defer u.writeMu.Unlock()

	u.mu.Lock()
	u.retired = true
	u.mu.Unlock()

	u.logger.Info("Member no longer in directory")
}

func validateDirectoryRow(rec db.DirectoryRecord) error {
	err := rowValidator.Struct(rec.DirectoryRow)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return &Error{Kind: KindValidation, Message: fmt.Sprintf("directory row %d", rec.Row), Err: err}
	}

	missing := make([]string, len(fieldErrs))
	for i, fe := range fieldErrs {
		missing[i] = fe.Field()
	}
	return newError(KindValidation, "directory row %d is missing required fields: %s", rec.Row, strings.Join(missing, ", "))
}

// membershipStatus derives the status: a sign-off date makes a member
// inactive, the support membership type makes them a supporter
func membershipStatus(row db.DirectoryRow, supportType string) MembershipStatus {
	switch {
	case row.SignOffDate != "":
		return MembershipInactive
	case supportType != "" && row.MembershipType == supportType:
		return MembershipSupport
	default:
		return MembershipActive
	}
}

// ensureEntriesStore returns the entries store of p, creating one and
// recording it on the directory row when the row has no reference yet.
// Creating is idempotent per uid, so a provisioning interrupted before the
// write-back is completed by the next reload.
func (u *User) ensureEntriesStore(ctx context.Context, p profile) (db.StoreHandle, error) {
	if p.entriesStore != "" {
		return p.entriesStore, nil
	}

	u.logger.Info("Provisioning entries store")

	var handle db.StoreHandle
	err := u.withStore(ctx, "create entries store", func(ctx context.Context) error {
		var err error
		handle, err = u.store.CreateEntriesStore(ctx, u.uid)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("failed to provision entries store for %s: %w", u.uid, err)
	}

	err = u.withStore(ctx, "record entries store", func(ctx context.Context) error {
		return u.store.SetEntriesStore(ctx, p.directoryRow, handle)
	})
	if err != nil {
		return "", fmt.Errorf("failed to provision entries store for %s: %w", u.uid, err)
	}

	u.logger.Debug("Entries store provisioned", zap.String("handle", string(handle)))
	return handle, nil
}

// LoadEntries re-reads the stored entries
func (u *User) LoadEntries(ctx context.Context) error {
	u.writeMu.Lock()
	defer u.writeMu.Unlock()

	u.mu.RLock()
	handle := u.profile.entriesStore
	u.mu.RUnlock()

	fresh, err := u.readEntries(ctx, handle)
	if err != nil {
		return err
	}

	u.mu.Lock()
	u.entries = u.reconcile(fresh)
	u.mu.Unlock()
	return nil
}

// readEntries reads and decodes the stored entries without touching memory.
// writeMu must be held.
func (u *User) readEntries(ctx context.Context, handle db.StoreHandle) ([]*Entry, error) {
	var records []db.EntryRecord
	err := u.withStore(ctx, "read entries", func(ctx context.Context) error {
		var err error
		records, err = u.store.ReadEntries(ctx, handle)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load entries for %s: %w", u.uid, err)
	}

	entries, err := u.adopt(records, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to load entries for %s: %w", u.uid, err)
	}
	return entries, nil
}

// reconcile merges freshly read entries into the loaded ones. An entry whose
// row still holds the same activity and date is kept and takes the stored
// status; everything else is replaced. mu must be held for writing.
func (u *User) reconcile(fresh []*Entry) []*Entry {
	loaded := make(map[EntryID]*Entry, len(u.entries))
	for _, e := range u.entries {
		loaded[e.id] = e
	}

	merged := make([]*Entry, len(fresh))
	for i, f := range fresh {
		if e, ok := loaded[f.id]; ok && e.activity == f.activity && e.date == f.date {
			e.status = f.status
			merged[i] = e
			continue
		}
		merged[i] = f
	}
	return merged
}

// holds reports whether e is one of the loaded entries. mu must be held.
func (u *User) holds(e *Entry) bool {
	for _, loaded := range u.entries {
		if loaded == e {
			return true
		}
	}
	return false
}

// checkCurrent fails once a reload has removed u from the directory. mu must
// be held.
func (u *User) checkCurrent() error {
	if u.retired {
		return newError(KindNotFound, "user %s is no longer in the directory", u.uid)
	}
	return nil
}

// adopt converts stored records into entries owned by u, rejecting IDs that
// repeat among the records or collide with existing
func (u *User) adopt(records []db.EntryRecord, existing []*Entry) ([]*Entry, error) {
	seen := make(map[EntryID]bool, len(existing)+len(records))
	for _, e := range existing {
		seen[e.id] = true
	}

	entries := make([]*Entry, 0, len(records))
	for _, rec := range records {
		e, err := EntryFromRecord(rec)
		if err != nil {
			return nil, err
		}
		if seen[e.id] {
			return nil, newError(KindConsistency, "store returned duplicate entry id %d", e.id)
		}
		seen[e.id] = true
		e.owner = u
		entries = append(entries, e)
	}
	return entries, nil
}

// CreateEntries logs one unconfirmed entry per activity type for today in a
// single append. Nothing is added to memory unless the store confirms the
// whole batch.
func (u *User) CreateEntries(ctx context.Context, types []ActivityType) ([]*Entry, error) {
	today := DateOf(u.opts.now())

	seen := make(map[ActivityType]bool, len(types))
	var rows []db.EntryRow
	for _, t := range types {
		if seen[t] {
			continue
		}
		seen[t] = true

		e, err := NewEntry(t, today)
		if err != nil {
			return nil, err
		}
		rows = append(rows, e.StorageRow())
	}
	if len(rows) == 0 {
		return nil, newError(KindValidation, "no activity type specified")
	}

	u.writeMu.Lock()
	defer u.writeMu.Unlock()

	u.mu.RLock()
	err := u.checkCurrent()
	handle := u.profile.entriesStore
	u.mu.RUnlock()
	if err != nil {
		return nil, err
	}

	var records []db.EntryRecord
	err = u.withStore(ctx, "append entries", func(ctx context.Context) error {
		var err error
		records, err = u.store.AppendEntries(ctx, handle, rows)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create entries for %s: %w", u.uid, err)
	}

	if len(records) != len(rows) {
		return nil, newError(KindConsistency, "store stored %d of %d entries for %s", len(records), len(rows), u.uid)
	}

	u.mu.RLock()
	created, err := u.adopt(records, u.entries)
	u.mu.RUnlock()
	if err != nil {
		return nil, fmt.Errorf("failed to create entries for %s: %w", u.uid, err)
	}

	u.mu.Lock()
	u.entries = append(u.entries, created...)
	u.mu.Unlock()

	u.logger.Info("Entries created", zap.Int("count", len(created)), zap.String("date", today.String()))
	return created, nil
}

// Entry returns the entry with the given ID
func (u *User) Entry(id EntryID) (*Entry, error) {
	u.mu.RLock()
	defer u.mu.RUnlock()

	var found *Entry
	matches := 0
	for _, e := range u.entries {
		if e.id == id {
			found = e
			matches++
		}
	}

	switch matches {
	case 0:
		return nil, newError(KindNotFound, "user %s has no entry %d", u.uid, id)
	case 1:
		return found, nil
	default:
		return nil, newError(KindConsistency, "user %s has %d entries with id %d", u.uid, matches, id)
	}
}

// Entries returns all entries in store order
func (u *User) Entries() []*Entry {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return append([]*Entry(nil), u.entries...)
}

// PendingEntries returns the entries awaiting review in store order
func (u *User) PendingEntries() []*Entry {
	u.mu.RLock()
	defer u.mu.RUnlock()

	var pending []*Entry
	for _, e := range u.entries {
		if e.status == StatusUnconfirmed {
			pending = append(pending, e)
		}
	}
	return pending
}

func (u *User) UID() string { return u.uid }

func (u *User) FirstName() string {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.profile.firstName
}

func (u *User) LastName() string {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.profile.lastName
}

func (u *User) MembershipType() string {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.profile.membershipType
}

// Status returns the membership status derived from the directory row
func (u *User) Status() MembershipStatus {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.profile.status
}

func (u *User) SignUpDate() Date {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.profile.signUpDate
}

func (u *User) EntriesStore() db.StoreHandle {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.profile.entriesStore
}

func (u *User) IsActive() bool { return u.Status() == MembershipActive }

// Summary returns the user without entries
func (u *User) Summary() UserSummary {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.summaryLocked()
}

func (u *User) summaryLocked() UserSummary {
	p := u.profile
	return UserSummary{
		FirstName: p.firstName,
		LastName:  p.lastName,
		UID:       u.uid,
		Status:    p.status,
		SignUpDate: UserSignUpDate{
			Day:   p.signUpDate.Day,
			Month: p.signUpDate.Month,
			Year:  p.signUpDate.Year,
		},
	}
}

// Detail returns the user with every entry
func (u *User) Detail() UserDetail {
	return u.detail(func(*Entry) bool { return true })
}

// PendingDetail returns the user with only the entries awaiting review
func (u *User) PendingDetail() UserDetail {
	return u.detail(func(e *Entry) bool { return e.status == StatusUnconfirmed })
}

func (u *User) detail(include func(*Entry) bool) UserDetail {
	u.mu.RLock()
	defer u.mu.RUnlock()

	views := make([]EntryView, 0, len(u.entries))
	for _, e := range u.entries {
		if include(e) {
			views = append(views, e.viewLocked())
		}
	}
	return UserDetail{UserSummary: u.summaryLocked(), DataEntries: views}
}

// withStore runs one store call under the configured timeout
func (u *User) withStore(ctx context.Context, op string, fn func(context.Context) error) error {
	return callStore(ctx, u.opts.StoreTimeout, op, fn)
}
