package roster

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jakechorley/activity-log/pkg/db"
)

// Default option values
const (
	DefaultStoreTimeout    = 15 * time.Second
	DefaultLoadConcurrency = 4
)

// Options configures how the roster talks to the row store
type Options struct {
	// StoreTimeout bounds every single store call
	StoreTimeout time.Duration

	// SupportMembershipType is the membership type that marks a supporting member
	SupportMembershipType string

	// LoadConcurrency is the number of users loaded in parallel during a reload
	LoadConcurrency int

	// Now returns the current time; entries are dated with its local day
	Now func() time.Time
}

func (o Options) withDefaults() Options {
	if o.StoreTimeout <= 0 {
		o.StoreTimeout = DefaultStoreTimeout
	}
	if o.LoadConcurrency <= 0 {
		o.LoadConcurrency = DefaultLoadConcurrency
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

func (o Options) now() time.Time {
	if o.Now == nil {
		return time.Now()
	}
	return o.Now()
}

// Roster holds every member of the directory keyed by uid
type Roster struct {
	store  db.Store
	opts   Options
	logger *zap.Logger

	// reloadMu serializes reloads
	reloadMu sync.Mutex

	mu      sync.RWMutex
	users   map[string]*User
	order   []*User
	loadErr error
}

// New creates an empty roster. Lookups fail until the first successful Reload.
func New(store db.Store, logger *zap.Logger, opts Options) *Roster {
	return &Roster{
		store:   store,
		opts:    opts.withDefaults(),
		logger:  logger,
		loadErr: newError(KindStoreIO, "roster has not been loaded"),
	}
}

// Reload brings the roster in line with the directory. Users and entries
// that survive keep their identity; users no longer in the directory are
// retired. On failure the roster stays unusable until a later reload succeeds.
func (r *Roster) Reload(ctx context.Context) error {
	r.reloadMu.Lock()
	defer r.reloadMu.Unlock()

	start := time.Now()
	r.logger.Info("Reloading roster")

	r.mu.RLock()
	previous := r.users
	r.mu.RUnlock()

	users, err := r.load(ctx, previous)
	if err != nil {
		r.mu.Lock()
		r.loadErr = err
		r.mu.Unlock()

		r.logger.Error("Roster reload failed", zap.Error(err))
		return err
	}

	byUID := make(map[string]*User, len(users))
	for _, u := range users {
		byUID[u.uid] = u
	}

	r.mu.Lock()
	r.users = byUID
	r.order = users
	r.loadErr = nil
	r.mu.Unlock()

	for uid, u := range previous {
		if _, ok := byUID[uid]; !ok {
			u.retire()
		}
	}

	r.logger.Info("Roster reloaded",
		zap.Int("users", len(users)),
		zap.Duration("duration", time.Since(start)))
	return nil
}

// load reads the directory and syncs one user per row, reusing the users of
// previous by uid
func (r *Roster) load(ctx context.Context, previous map[string]*User) ([]*User, error) {
	var records []db.DirectoryRecord
	err := callStore(ctx, r.opts.StoreTimeout, "read directory", func(ctx context.Context) error {
		var err error
		records, err = r.store.ReadDirectory(ctx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load roster: %w", err)
	}

	rowOf := make(map[string]int, len(records))
	for _, rec := range records {
		if rec.UID == "" {
			continue
		}
		if prev, ok := rowOf[rec.UID]; ok {
			return nil, newError(KindConsistency, "uid %s appears in directory rows %d and %d", rec.UID, prev, rec.Row)
		}
		rowOf[rec.UID] = rec.Row
	}

	r.logger.Debug("Read directory", zap.Int("rows", len(records)))

	users := make([]*User, len(records))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.LoadConcurrency)
	for i, rec := range records {
		i, rec := i, rec
		g.Go(func() error {
			p, err := parseDirectoryRow(rec, r.opts.SupportMembershipType)
			if err != nil {
				return fmt.Errorf("failed to load member in directory row %d: %w", rec.Row, err)
			}

			u, ok := previous[rec.UID]
			if !ok {
				u = newUser(rec.UID, r.store, r.opts, r.logger)
			}
			if err := u.sync(gctx, p); err != nil {
				return fmt.Errorf("failed to load member in directory row %d: %w", rec.Row, err)
			}
			users[i] = u
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return users, nil
}

// Err returns the error of the last reload, or nil when the roster is usable
func (r *Roster) Err() error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.loadErr
}

// Users returns the active users in directory order
func (r *Roster) Users() ([]*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.loadErr != nil {
		return nil, r.loadErr
	}

	var active []*User
	for _, u := range r.order {
		if u.IsActive() {
			active = append(active, u)
		}
	}
	return active, nil
}

// Summaries returns the listing representation of the active users
func (r *Roster) Summaries() ([]UserSummary, error) {
	users, err := r.Users()
	if err != nil {
		return nil, err
	}

	summaries := make([]UserSummary, len(users))
	for i, u := range users {
		summaries[i] = u.Summary()
	}
	return summaries, nil
}

// User returns the user with the given uid regardless of membership status
func (r *Roster) User(uid string) (*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.loadErr != nil {
		return nil, r.loadErr
	}

	u, ok := r.users[uid]
	if !ok {
		return nil, newError(KindNotFound, "no user with uid %q", uid)
	}
	return u, nil
}

// Pending returns every user with entries awaiting review, each carrying
// only those entries, in directory order
func (r *Roster) Pending() ([]UserDetail, error) {
	r.mu.RLock()
	users := r.order
	loadErr := r.loadErr
	r.mu.RUnlock()

	if loadErr != nil {
		return nil, loadErr
	}

	var pending []UserDetail
	for _, u := range users {
		detail := u.PendingDetail()
		if len(detail.DataEntries) > 0 {
			pending = append(pending, detail)
		}
	}
	return pending, nil
}

// callStore runs fn with a deadline and classifies its error
func callStore(ctx context.Context, timeout time.Duration, op string, fn func(context.Context) error) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	if err := fn(ctx); err != nil {
		return classifyStoreError(op, err)
	}
	return nil
}
