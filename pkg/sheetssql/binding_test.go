package sheetssql

import (
	"errors"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBind_ReorderedHeader(t *testing.T) {
	schema, err := SchemaFromModel(TestMember{}, nil)
	require.NoError(t, err)

	b, err := schema.Bind("members", []interface{}{"Notes", "Visits", "First name", "Unique ID"})
	require.NoError(t, err)

	idx, ok := b.ColumnIndex("first_name")
	require.True(t, ok)
	assert.Equal(t, 2, idx)

	member, err := Decode[TestMember](b, []interface{}{"ignored", "7", "Anna", "u1"})
	require.NoError(t, err)
	assert.Equal(t, TestMember{ID: "u1", FirstName: "Anna", Visits: 7}, member)
}

func TestBind_MissingColumns(t *testing.T) {
	schema, err := SchemaFromModel(TestMember{}, nil)
	require.NoError(t, err)

	_, err = schema.Bind("members", []interface{}{"First name"})
	require.Error(t, err)

	var schemaErr *SchemaError
	require.True(t, errors.As(err, &schemaErr))
	assert.Equal(t, "members", schemaErr.Table)
	assert.Equal(t, []string{"Unique ID", "Visits"}, schemaErr.Missing)
	assert.Contains(t, err.Error(), "Unique ID, Visits")
}

func TestBind_EmptyHeader(t *testing.T) {
	schema, err := SchemaFromModel(TestMember{}, nil)
	require.NoError(t, err)

	_, err = schema.Bind("members", nil)
	var schemaErr *SchemaError
	require.True(t, errors.As(err, &schemaErr))
	assert.Len(t, schemaErr.Missing, 3)
}

func TestDecode_ShortRow(t *testing.T) {
	schema, err := SchemaFromModel(TestMember{}, nil)
	require.NoError(t, err)
	b, err := schema.Bind("members", []interface{}{"Unique ID", "First name", "Visits"})
	require.NoError(t, err)

	member, err := Decode[TestMember](b, []interface{}{"u2"})
	require.NoError(t, err)
	assert.Equal(t, TestMember{ID: "u2"}, member)
}

func TestDecode_WrongType(t *testing.T) {
	schema, err := SchemaFromModel(TestMember{}, nil)
	require.NoError(t, err)
	b, err := schema.Bind("members", schema.Headers())
	require.NoError(t, err)

	_, err = Decode[struct{ ID string }](b, []interface{}{"u1"})
	assert.Error(t, err)
}

func TestEncode_FollowsHeaderLayout(t *testing.T) {
	schema, err := SchemaFromModel(TestMember{}, nil)
	require.NoError(t, err)
	b, err := schema.Bind("members", []interface{}{"Visits", "Comment", "Unique ID", "First name"})
	require.NoError(t, err)

	row, err := b.Encode(TestMember{ID: "u3", FirstName: "Ben", Visits: 2})
	require.NoError(t, err)
	assert.Equal(t, []interface{}{2, "", "u3", "Ben"}, row)
}

func TestIsBlank(t *testing.T) {
	assert.True(t, IsBlank(nil))
	assert.True(t, IsBlank([]interface{}{"", "  ", nil}))
	assert.False(t, IsBlank([]interface{}{"", "x"}))
}

func TestSetFieldValue_String(t *testing.T) {
	type TestStruct struct {
		Name string
	}

	var s TestStruct
	field := reflect.ValueOf(&s).Elem().Field(0)

	err := setFieldValue(field, " test value ")
	assert.NoError(t, err)
	assert.Equal(t, "test value", s.Name)
}

func TestSetFieldValue_Int(t *testing.T) {
	type TestStruct struct {
		Count int
	}

	var s TestStruct
	field := reflect.ValueOf(&s).Elem().Field(0)

	assert.NoError(t, setFieldValue(field, "42"))
	assert.Equal(t, 42, s.Count)

	assert.NoError(t, setFieldValue(field, float64(7)))
	assert.Equal(t, 7, s.Count)

	assert.NoError(t, setFieldValue(field, ""))
	assert.Equal(t, 0, s.Count)

	err := setFieldValue(field, "not a number")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse int")
}

func TestSetFieldValue_Bool(t *testing.T) {
	type TestStruct struct {
		Active bool
	}

	var s TestStruct
	field := reflect.ValueOf(&s).Elem().Field(0)

	assert.NoError(t, setFieldValue(field, "true"))
	assert.True(t, s.Active)

	assert.NoError(t, setFieldValue(field, "false"))
	assert.False(t, s.Active)
}
