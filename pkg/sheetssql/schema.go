package sheetssql

import (
	"fmt"
	"reflect"
	"strings"
)

// Column binds a struct field to a header in the sheet
type Column struct {
	Key    string // stable field key, from the ssql_key tag
	Header string // header text expected in the first row
	Type   string // e.g., "text", "date", "int", "bool"
	field  int
}

// TableSchema defines the structure of one row kind
type TableSchema struct {
	Name    string
	Columns []Column
	model   reflect.Type
}

// SchemaFromModel builds a TableSchema by reflecting on a struct definition.
// Fields must have `ssql_key`, `ssql_header` and `ssql_type` tags. The headers
// map overrides the default header text per key, so the sheet layout can be
// configured without touching the model.
func SchemaFromModel(model interface{}, headers map[string]string) (*TableSchema, error) {
	t := reflect.TypeOf(model)

	// Handle pointer to struct
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("model must be a struct, got %s", t.Kind())
	}

	known := make(map[string]bool)
	columns := make([]Column, 0, t.NumField())

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)

		key := field.Tag.Get("ssql_key")
		if key == "" {
			return nil, fmt.Errorf("field %s.%s missing 'ssql_key' tag", t.Name(), field.Name)
		}

		header := field.Tag.Get("ssql_header")
		if header == "" {
			return nil, fmt.Errorf("field %s.%s missing 'ssql_header' tag", t.Name(), field.Name)
		}
		if override, ok := headers[key]; ok && override != "" {
			header = override
		}

		typeTag := field.Tag.Get("ssql_type")
		if typeTag == "" {
			return nil, fmt.Errorf("field %s.%s missing 'ssql_type' tag", t.Name(), field.Name)
		}

		known[key] = true
		columns = append(columns, Column{
			Key:    key,
			Header: header,
			Type:   typeTag,
			field:  i,
		})
	}

	if len(columns) == 0 {
		return nil, fmt.Errorf("struct %s has no fields", t.Name())
	}

	for key := range headers {
		if !known[key] {
			return nil, fmt.Errorf("unknown column key %q for %s", key, t.Name())
		}
	}

	return &TableSchema{
		Name:    toSnakeCase(t.Name()),
		Columns: columns,
		model:   t,
	}, nil
}

// Headers returns the header row for a new sheet
func (s *TableSchema) Headers() []interface{} {
	headers := make([]interface{}, len(s.Columns))
	for i, col := range s.Columns {
		headers[i] = col.Header
	}
	return headers
}

// Column returns the column registered under key
func (s *TableSchema) Column(key string) (Column, bool) {
	for _, col := range s.Columns {
		if col.Key == key {
			return col, true
		}
	}
	return Column{}, false
}

// toSnakeCase converts PascalCase to snake_case
func toSnakeCase(s string) string {
	var result strings.Builder
	for i, r := range s {
		if i > 0 && r >= 'A' && r <= 'Z' {
			result.WriteRune('_')
		}
		result.WriteRune(r)
	}
	return strings.ToLower(result.String())
}
