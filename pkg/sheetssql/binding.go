package sheetssql

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// SchemaError reports header columns a sheet is missing
type SchemaError struct {
	Table   string
	Missing []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("table %s is missing required columns: %s", e.Table, strings.Join(e.Missing, ", "))
}

// Binding maps the columns of a schema onto positions in a concrete header row.
// It is resolved once per header read and reused for every data row.
type Binding struct {
	schema  *TableSchema
	indexes []int // column position per schema column
	width   int
}

// Bind resolves every schema column against the header row. All missing
// columns are collected into a single SchemaError.
func (s *TableSchema) Bind(table string, header []interface{}) (*Binding, error) {
	positions := make(map[string]int, len(header))
	for i, cell := range header {
		name := strings.TrimSpace(cellString(cell))
		if name == "" {
			continue
		}
		if _, seen := positions[name]; !seen {
			positions[name] = i
		}
	}

	var missing []string
	indexes := make([]int, len(s.Columns))
	for i, col := range s.Columns {
		idx, ok := positions[col.Header]
		if !ok {
			missing = append(missing, col.Header)
			continue
		}
		indexes[i] = idx
	}

	if len(missing) > 0 {
		return nil, &SchemaError{Table: table, Missing: missing}
	}

	return &Binding{
		schema:  s,
		indexes: indexes,
		width:   len(header),
	}, nil
}

// ColumnIndex returns the zero-based sheet column for the given key
func (b *Binding) ColumnIndex(key string) (int, bool) {
	for i, col := range b.schema.Columns {
		if col.Key == key {
			return b.indexes[i], true
		}
	}
	return 0, false
}

// Decode maps a data row into a new value of the schema's model type
func Decode[T any](b *Binding, row []interface{}) (T, error) {
	var zero T
	t := reflect.TypeOf(zero)
	if t != b.schema.model {
		return zero, fmt.Errorf("cannot decode %s rows into %v", b.schema.Name, t)
	}

	result := reflect.New(t).Elem()
	for i, col := range b.schema.Columns {
		colIdx := b.indexes[i]

		// Column is empty in this row
		if colIdx >= len(row) || row[colIdx] == nil {
			continue
		}

		if err := setFieldValue(result.Field(col.field), row[colIdx]); err != nil {
			return zero, fmt.Errorf("column %s: %w", col.Header, err)
		}
	}

	return result.Interface().(T), nil
}

// Encode lays out a model value as a full-width row matching the header
func (b *Binding) Encode(model interface{}) ([]interface{}, error) {
	v := reflect.ValueOf(model)
	if v.Kind() == reflect.Ptr {
		v = v.Elem()
	}
	if v.Type() != b.schema.model {
		return nil, fmt.Errorf("cannot encode %v into %s rows", v.Type(), b.schema.Name)
	}

	row := make([]interface{}, b.width)
	for i := range row {
		row[i] = ""
	}
	for i, col := range b.schema.Columns {
		row[b.indexes[i]] = v.Field(col.field).Interface()
	}

	return row, nil
}

// IsBlank reports whether every cell in the row is empty
func IsBlank(row []interface{}) bool {
	for _, cell := range row {
		if strings.TrimSpace(cellString(cell)) != "" {
			return false
		}
	}
	return true
}

// setFieldValue converts a sheet cell value to the appropriate Go type and sets it on the field
func setFieldValue(field reflect.Value, cellValue interface{}) error {
	if !field.CanSet() {
		return fmt.Errorf("field cannot be set")
	}

	cellStr := strings.TrimSpace(cellString(cellValue))

	switch field.Kind() {
	case reflect.String:
		field.SetString(cellStr)

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if cellStr == "" {
			field.SetInt(0)
			return nil
		}
		intVal, err := strconv.ParseInt(cellStr, 10, 64)
		if err != nil {
			return fmt.Errorf("failed to parse int: %w", err)
		}
		field.SetInt(intVal)

	case reflect.Bool:
		if cellStr == "" {
			field.SetBool(false)
			return nil
		}
		boolVal, err := strconv.ParseBool(cellStr)
		if err != nil {
			return fmt.Errorf("failed to parse bool: %w", err)
		}
		field.SetBool(boolVal)

	default:
		return fmt.Errorf("unsupported field type: %s", field.Kind())
	}

	return nil
}

// cellString renders a cell as text; the API returns formatted strings but
// numbers can appear when a different render option is used
func cellString(cell interface{}) string {
	switch v := cell.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}
