package sheetssql

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// SheetsClient defines the interface for sheets operations
type SheetsClient interface {
	GetValues(ctx context.Context, spreadsheetID, sheetRange string) ([][]interface{}, error)
	AppendRows(ctx context.Context, spreadsheetID, sheetRange string, values [][]interface{}) (string, error)
	UpdateValues(ctx context.Context, spreadsheetID, sheetRange string, values [][]interface{}) error
	CreateSheet(ctx context.Context, spreadsheetID, sheetTitle string) (int64, error)
	SheetTitles(ctx context.Context, spreadsheetID string) (map[int64]string, error)
}

// DB represents a connection to a Google Sheets "database"
type DB struct {
	client        SheetsClient
	spreadsheetID string
}

// NewDB creates a new Sheets SQL database over one spreadsheet
func NewDB(client SheetsClient, spreadsheetID string) *DB {
	return &DB{
		client:        client,
		spreadsheetID: spreadsheetID,
	}
}

// Client returns the underlying sheets client
func (db *DB) Client() SheetsClient {
	return db.client
}

// SpreadsheetID returns the database spreadsheet ID
func (db *DB) SpreadsheetID() string {
	return db.spreadsheetID
}

// SheetTitles lists the tabs of the spreadsheet keyed by sheet ID
func (db *DB) SheetTitles(ctx context.Context) (map[int64]string, error) {
	return db.client.SheetTitles(ctx, db.spreadsheetID)
}

// binding reads the current header row of a sheet and binds it to the
// schema. Writes bind on every call so columns reordered by hand since the
// last read are still addressed correctly.
func (db *DB) binding(ctx context.Context, title string, schema *TableSchema) (*Binding, error) {
	header, err := db.header(ctx, title)
	if err != nil {
		return nil, err
	}
	return schema.Bind(title, header)
}

func (db *DB) header(ctx context.Context, title string) ([]interface{}, error) {
	values, err := db.client.GetValues(ctx, db.spreadsheetID, quoteTitle(title)+"!1:1")
	if err != nil {
		return nil, fmt.Errorf("failed to read header of %s: %w", title, err)
	}
	if len(values) == 0 {
		return nil, nil
	}
	return values[0], nil
}

// quoteTitle quotes a sheet title for A1 notation so titles that look like
// cell references (e.g. "u1") are not misread
func quoteTitle(title string) string {
	return "'" + strings.ReplaceAll(title, "'", "''") + "'"
}

// columnLetter converts a zero-based column index into its A1 letters
func columnLetter(idx int) string {
	letters := ""
	for idx >= 0 {
		letters = string(rune('A'+idx%26)) + letters
		idx = idx/26 - 1
	}
	return letters
}

// cellRange returns the A1 range of a single cell (row is 1-based)
func cellRange(title string, row, col int) string {
	return fmt.Sprintf("%s!%s%d", quoteTitle(title), columnLetter(col), row)
}

// firstRow extracts the first row number from an A1 range such as "'u1'!A5:C6"
func firstRow(a1 string) (int, error) {
	ref := a1
	if idx := strings.LastIndex(a1, "!"); idx >= 0 {
		ref = a1[idx+1:]
	}
	if idx := strings.Index(ref, ":"); idx >= 0 {
		ref = ref[:idx]
	}
	ref = strings.TrimLeft(ref, "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz$")
	ref = strings.TrimPrefix(ref, "$")

	row, err := strconv.Atoi(ref)
	if err != nil || row < 1 {
		return 0, fmt.Errorf("unexpected range %q", a1)
	}
	return row, nil
}
