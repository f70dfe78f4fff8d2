package sheetssql

import (
	"context"
	"fmt"
)

// Record is a decoded data row together with its 1-based sheet row number
type Record[T any] struct {
	Row   int
	Value T
}

// SelectAll reads a whole sheet, validates the header row against the schema
// and decodes every non-blank data row into T
func SelectAll[T any](ctx context.Context, db *DB, title string, schema *TableSchema) ([]Record[T], error) {
	values, err := db.client.GetValues(ctx, db.spreadsheetID, quoteTitle(title))
	if err != nil {
		return nil, fmt.Errorf("failed to get table %s: %w", title, err)
	}

	var header []interface{}
	if len(values) > 0 {
		header = values[0]
	}

	binding, err := schema.Bind(title, header)
	if err != nil {
		return nil, err
	}

	if len(values) < 2 {
		return []Record[T]{}, nil
	}

	results := make([]Record[T], 0, len(values)-1)
	for i, row := range values[1:] {
		if IsBlank(row) {
			continue
		}

		// Header is row 1, so the first data row is row 2
		rowNum := i + 2
		value, err := Decode[T](binding, row)
		if err != nil {
			return nil, fmt.Errorf("table %s row %d: %w", title, rowNum, err)
		}
		results = append(results, Record[T]{Row: rowNum, Value: value})
	}

	return results, nil
}

// InsertAll appends models as rows in a single request and returns them with
// the row numbers the sheet assigned
func InsertAll[T any](ctx context.Context, db *DB, title string, schema *TableSchema, models []T) ([]Record[T], error) {
	if len(models) == 0 {
		return []Record[T]{}, nil
	}

	binding, err := db.binding(ctx, title, schema)
	if err != nil {
		return nil, err
	}

	rows := make([][]interface{}, 0, len(models))
	for _, model := range models {
		row, err := binding.Encode(model)
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}

	updatedRange, err := db.client.AppendRows(ctx, db.spreadsheetID, quoteTitle(title), rows)
	if err != nil {
		return nil, fmt.Errorf("failed to append to %s: %w", title, err)
	}

	start, err := firstRow(updatedRange)
	if err != nil {
		return nil, fmt.Errorf("failed to locate appended rows in %s: %w", title, err)
	}

	records := make([]Record[T], len(models))
	for i, model := range models {
		records[i] = Record[T]{Row: start + i, Value: model}
	}
	return records, nil
}

// UpdateCell writes a single column of an existing row
func UpdateCell(ctx context.Context, db *DB, title string, schema *TableSchema, row int, key string, value interface{}) error {
	if row < 2 {
		return fmt.Errorf("row %d of %s is not a data row", row, title)
	}

	binding, err := db.binding(ctx, title, schema)
	if err != nil {
		return err
	}

	col, ok := binding.ColumnIndex(key)
	if !ok {
		return fmt.Errorf("table %s has no column for key %s", title, key)
	}

	if err := db.client.UpdateValues(ctx, db.spreadsheetID, cellRange(title, row, col), [][]interface{}{{value}}); err != nil {
		return fmt.Errorf("failed to update %s row %d: %w", title, row, err)
	}
	return nil
}

// CreateTable creates a new sheet with the schema's header row and returns its sheet ID
func CreateTable(ctx context.Context, db *DB, title string, schema *TableSchema) (int64, error) {
	sheetID, err := db.client.CreateSheet(ctx, db.spreadsheetID, title)
	if err != nil {
		return 0, fmt.Errorf("failed to create sheet: %w", err)
	}

	if err := writeHeader(ctx, db, title, schema); err != nil {
		return 0, err
	}
	return sheetID, nil
}

// EnsureTable returns the sheet ID of the sheet titled title, creating it when
// absent. An existing sheet without a header row gets the schema's header; an
// existing header must satisfy the schema.
func EnsureTable(ctx context.Context, db *DB, title string, schema *TableSchema) (int64, error) {
	titles, err := db.SheetTitles(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list sheets: %w", err)
	}

	var sheetID int64
	found := false
	for id, t := range titles {
		if t == title {
			sheetID, found = id, true
			break
		}
	}
	if !found {
		return CreateTable(ctx, db, title, schema)
	}

	header, err := db.header(ctx, title)
	if err != nil {
		return 0, err
	}
	if IsBlank(header) {
		if err := writeHeader(ctx, db, title, schema); err != nil {
			return 0, err
		}
		return sheetID, nil
	}

	if _, err := schema.Bind(title, header); err != nil {
		return 0, err
	}
	return sheetID, nil
}

// writeHeader writes the schema's headers into row 1
func writeHeader(ctx context.Context, db *DB, title string, schema *TableSchema) error {
	if err := db.client.UpdateValues(ctx, db.spreadsheetID, quoteTitle(title)+"!A1", [][]interface{}{schema.Headers()}); err != nil {
		return fmt.Errorf("failed to write headers of %s: %w", title, err)
	}
	return nil
}
