package roster

import (
	"context"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/jakechorley/activity-log/pkg/db"
)

// EntryID identifies a persisted entry. IDs are assigned by the row store on
// append and never constructed by clients.
type EntryID int

func (id EntryID) String() string {
	return strconv.Itoa(int(id))
}

// ParseEntryID parses an ID supplied by a client
func ParseEntryID(s string) (EntryID, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, newError(KindValidation, "invalid entry id %q", s)
	}
	return EntryID(n), nil
}

// Entry is one logged activity owned by a User
type Entry struct {
	id        EntryID
	persisted bool
	activity  ActivityType
	date      Date
	status    Status

	// owner is set once the entry belongs to a loaded user; status changes go
	// through the owner's locks and store
	owner *User
}

// EntryDate is the wire form of an entry date
type EntryDate struct {
	Date  int `json:"date"`
	Month int `json:"month"`
	Year  int `json:"year"`
}

// EntryView is the API representation of an entry
type EntryView struct {
	Type      ActivityType `json:"type"`
	ID        EntryID      `json:"id"`
	Status    Status       `json:"status"`
	EntryDate EntryDate    `json:"entryDate"`
}

// NewEntry creates an unconfirmed entry that has not yet been stored
func NewEntry(activity ActivityType, date Date) (*Entry, error) {
	if !activity.Valid() {
		return nil, newError(KindValidation, "unknown activity type %q", activity)
	}
	if !date.valid() {
		return nil, newError(KindValidation, "invalid entry date %s", date)
	}
	return &Entry{activity: activity, date: date, status: StatusUnconfirmed}, nil
}

// EntryFromRecord rebuilds an entry from a stored row. An empty status cell
// reads as unconfirmed.
func EntryFromRecord(rec db.EntryRecord) (*Entry, error) {
	if rec.ID <= 0 {
		return nil, newError(KindConsistency, "entry row has invalid id %d", rec.ID)
	}

	activity, err := ParseActivityType(rec.Activity)
	if err != nil {
		return nil, &Error{Kind: KindConsistency, Message: fmt.Sprintf("entry %d", rec.ID), Err: err}
	}

	date, err := ParseDate(rec.Date)
	if err != nil {
		return nil, &Error{Kind: KindConsistency, Message: fmt.Sprintf("entry %d", rec.ID), Err: err}
	}

	status := StatusUnconfirmed
	if rec.Status != "" {
		status, err = ParseStatus(rec.Status)
		if err != nil {
			return nil, &Error{Kind: KindConsistency, Message: fmt.Sprintf("entry %d", rec.ID), Err: err}
		}
	}

	return &Entry{
		id:        EntryID(rec.ID),
		persisted: true,
		activity:  activity,
		date:      date,
		status:    status,
	}, nil
}

// ID returns the store-assigned ID, or zero before the entry is stored
func (e *Entry) ID() EntryID { return e.id }

// Persisted reports whether the entry has a store-assigned ID
func (e *Entry) Persisted() bool { return e.persisted }

func (e *Entry) Activity() ActivityType { return e.activity }

func (e *Entry) Date() Date { return e.date }

// Status returns the current review status
func (e *Entry) Status() Status {
	if e.owner != nil {
		e.owner.mu.RLock()
		defer e.owner.mu.RUnlock()
	}
	return e.status
}

// IsPending reports whether the entry still awaits review
func (e *Entry) IsPending() bool {
	return e.Status() == StatusUnconfirmed
}

// StorageRow returns the row written to the entries store
func (e *Entry) StorageRow() db.EntryRow {
	return db.EntryRow{
		Date:     e.date.String(),
		Activity: string(e.activity),
		Status:   string(e.Status()),
	}
}

// View returns the API representation
func (e *Entry) View() EntryView {
	if e.owner != nil {
		e.owner.mu.RLock()
		defer e.owner.mu.RUnlock()
	}
	return e.viewLocked()
}

// viewLocked must be called with the owner's read lock held
func (e *Entry) viewLocked() EntryView {
	return EntryView{
		Type:   e.activity,
		ID:     e.id,
		Status: e.status,
		EntryDate: EntryDate{
			Date:  e.date.Day,
			Month: e.date.Month,
			Year:  e.date.Year,
		},
	}
}

func (e *Entry) String() string {
	return fmt.Sprintf("entry %s (%s on %s)", e.id, e.activity, e.date)
}

// Accept marks the entry accepted
func (e *Entry) Accept(ctx context.Context) error {
	return e.transition(ctx, StatusAccepted)
}

// Reject marks the entry rejected
func (e *Entry) Reject(ctx context.Context) error {
	return e.transition(ctx, StatusRejected)
}

// checkTransition enforces the status lifecycle: accepted is terminal
func checkTransition(from, to Status) error {
	if from == StatusAccepted {
		return newError(KindInvalidTransition, "entry is already accepted")
	}
	if to != StatusAccepted && to != StatusRejected {
		return newError(KindInvalidTransition, "cannot move entry to %q", to)
	}
	return nil
}

// transition writes the new status to the store and only then updates memory.
// The current status is read under writeMu, after any reload that refreshed it.
func (e *Entry) transition(ctx context.Context, to Status) error {
	u := e.owner
	if u == nil || !e.persisted {
		return newError(KindValidation, "entry has not been stored")
	}

	u.writeMu.Lock()
	defer u.writeMu.Unlock()

	u.mu.RLock()
	err := u.checkCurrent()
	loaded := u.holds(e)
	from := e.status
	handle := u.profile.entriesStore
	u.mu.RUnlock()

	if err != nil {
		return err
	}
	if !loaded {
		return newError(KindNotFound, "%s was replaced by a reload", e)
	}
	if err := checkTransition(from, to); err != nil {
		return fmt.Errorf("%s: %w", e, err)
	}

	err = u.withStore(ctx, "update entry status", func(ctx context.Context) error {
		return u.store.UpdateEntryStatus(ctx, handle, int(e.id), string(to))
	})
	if err != nil {
		return err
	}

	u.mu.Lock()
	e.status = to
	u.mu.Unlock()

	u.logger.Info("Entry reviewed",
		zap.Int("entry_id", int(e.id)),
		zap.String("from", string(from)),
		zap.String("to", string(to)))
	return nil
}
