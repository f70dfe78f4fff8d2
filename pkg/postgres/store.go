package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jakechorley/activity-log/pkg/db"
)

// ReadDirectory retrieves all member rows in insertion order
func (d *DB) ReadDirectory(ctx context.Context) ([]db.DirectoryRecord, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT row_id, uid, first_name, last_name, signup_date, signoff_date,
		       membership_type, COALESCE(entries_store::text, '')
		FROM member
		ORDER BY row_id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query members: %w", err)
	}
	defer rows.Close()

	var records []db.DirectoryRecord
	for rows.Next() {
		var r db.DirectoryRecord
		if err := rows.Scan(&r.Row, &r.UID, &r.FirstName, &r.LastName, &r.SignUpDate,
			&r.SignOffDate, &r.MembershipType, &r.EntriesStore); err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		records = append(records, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating members: %w", err)
	}

	return records, nil
}

// SetEntriesStore links a member row to its entries store
func (d *DB) SetEntriesStore(ctx context.Context, directoryRow int, handle db.StoreHandle) error {
	tag, err := d.pool.Exec(ctx, `
		UPDATE member SET entries_store = $2::uuid WHERE row_id = $1
	`, directoryRow, string(handle))
	if err != nil {
		return fmt.Errorf("failed to set entries store: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("failed to set entries store: no member row %d", directoryRow)
	}
	return nil
}

// CreateEntriesStore registers an entries store under name, or returns the
// one already registered under it
func (d *DB) CreateEntriesStore(ctx context.Context, name string) (db.StoreHandle, error) {
	var id string
	err := d.pool.QueryRow(ctx, `
		INSERT INTO entries_store (id, name) VALUES ($1::uuid, $2)
		ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		RETURNING id::text
	`, uuid.New().String(), name).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("failed to create entries store %s: %w", name, err)
	}
	return db.StoreHandle(id), nil
}

// ReadEntries retrieves the entries of one store in insertion order
func (d *DB) ReadEntries(ctx context.Context, handle db.StoreHandle) ([]db.EntryRecord, error) {
	storeID, err := parseHandle(handle)
	if err != nil {
		return nil, err
	}

	if err := storeExists(ctx, d.pool, storeID); err != nil {
		return nil, err
	}

	rows, err := d.pool.Query(ctx, `
		SELECT id, entry_date, activity, status
		FROM entry
		WHERE store_id = $1::uuid
		ORDER BY id
	`, storeID)
	if err != nil {
		return nil, fmt.Errorf("failed to query entries: %w", err)
	}
	defer rows.Close()

	var records []db.EntryRecord
	for rows.Next() {
		var r db.EntryRecord
		if err := rows.Scan(&r.ID, &r.Date, &r.Activity, &r.Status); err != nil {
			return nil, fmt.Errorf("failed to scan entry: %w", err)
		}
		records = append(records, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating entries: %w", err)
	}

	return records, nil
}

// AppendEntries inserts all rows in one transaction; either every row gets an ID or none is stored
func (d *DB) AppendEntries(ctx context.Context, handle db.StoreHandle, entries []db.EntryRow) ([]db.EntryRecord, error) {
	storeID, err := parseHandle(handle)
	if err != nil {
		return nil, err
	}

	tx, err := d.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := storeExists(ctx, tx, storeID); err != nil {
		return nil, err
	}

	records := make([]db.EntryRecord, 0, len(entries))
	for _, e := range entries {
		var id int
		err := tx.QueryRow(ctx, `
			INSERT INTO entry (store_id, entry_date, activity, status)
			VALUES ($1::uuid, $2, $3, $4)
			RETURNING id
		`, storeID, e.Date, e.Activity, e.Status).Scan(&id)
		if err != nil {
			return nil, fmt.Errorf("failed to insert entry: %w", err)
		}
		records = append(records, db.EntryRecord{ID: id, EntryRow: e})
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit entries: %w", err)
	}

	return records, nil
}

// UpdateEntryStatus sets the status of one entry
func (d *DB) UpdateEntryStatus(ctx context.Context, handle db.StoreHandle, id int, status string) error {
	storeID, err := parseHandle(handle)
	if err != nil {
		return err
	}

	tag, err := d.pool.Exec(ctx, `
		UPDATE entry SET status = $3 WHERE id = $1 AND store_id = $2::uuid
	`, id, storeID, status)
	if err != nil {
		return fmt.Errorf("failed to update entry status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("failed to update entry status: no entry %d in store %s", id, storeID)
	}
	return nil
}

type queryRower interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func storeExists(ctx context.Context, q queryRower, storeID string) error {
	var exists bool
	if err := q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM entries_store WHERE id = $1::uuid)`, storeID).Scan(&exists); err != nil {
		return fmt.Errorf("failed to look up entries store: %w", err)
	}
	if !exists {
		return fmt.Errorf("%w: %s", db.ErrStoreNotFound, storeID)
	}
	return nil
}

// parseHandle validates a UUID handle and returns its canonical form
func parseHandle(handle db.StoreHandle) (string, error) {
	id, err := uuid.Parse(string(handle))
	if err != nil {
		return "", fmt.Errorf("%w: invalid store ID %q", db.ErrStoreNotFound, handle)
	}
	return id.String(), nil
}
