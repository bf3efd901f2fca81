package toml

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arkdb/internal/table"
)

func TestParseBasicSchema(t *testing.T) {
	const schema = `
[[tables]]
name = "people"

  [[tables.columns]]
  name = "name"
  type = "string"

  [[tables.columns]]
  name = "age"
  type = "int"

indexes = []
`
	p := NewParser()
	s, err := p.Parse(strings.NewReader(schema))
	require.NoError(t, err)
	require.Len(t, s.Tables, 1)

	people := s.Tables[0]
	assert.Equal(t, "people", people.Name)
	require.Len(t, people.Columns, 2)
	assert.Equal(t, table.ColumnSpec{Name: "name", Type: table.String}, people.Columns[0])
	assert.Equal(t, table.ColumnSpec{Name: "age", Type: table.Int}, people.Columns[1])
}

func TestParseLinkColumnRequiresTarget(t *testing.T) {
	const schema = `
[[tables]]
name = "posts"

  [[tables.columns]]
  name = "author"
  type = "link"
`
	_, err := NewParser().Parse(strings.NewReader(schema))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "names no target table")
}

func TestParseLinkColumnWithTarget(t *testing.T) {
	const schema = `
[[tables]]
name = "posts"

  [[tables.columns]]
  name = "author"
  type = "link"
  target = "people"
`
	s, err := NewParser().Parse(strings.NewReader(schema))
	require.NoError(t, err)
	require.Len(t, s.Tables, 1)
	assert.Equal(t, "people", s.Tables[0].Columns[0].Target)
}

func TestParseDuplicateTableName(t *testing.T) {
	const schema = `
[[tables]]
name = "people"
  [[tables.columns]]
  name = "age"
  type = "int"

[[tables]]
name = "people"
  [[tables.columns]]
  name = "age"
  type = "int"
`
	_, err := NewParser().Parse(strings.NewReader(schema))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate table name")
}

func TestParseDuplicateColumnName(t *testing.T) {
	const schema = `
[[tables]]
name = "people"
  [[tables.columns]]
  name = "age"
  type = "int"
  [[tables.columns]]
  name = "age"
  type = "string"
`
	_, err := NewParser().Parse(strings.NewReader(schema))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate column name")
}

func TestParseEmptyTableRejected(t *testing.T) {
	const schema = `
[[tables]]
name = "empty"
`
	_, err := NewParser().Parse(strings.NewReader(schema))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no columns")
}

func TestParseUnknownColumnType(t *testing.T) {
	const schema = `
[[tables]]
name = "people"
  [[tables.columns]]
  name = "age"
  type = "uint128"
`
	_, err := NewParser().Parse(strings.NewReader(schema))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown column type")
}

func TestParseIndexesValidated(t *testing.T) {
	const schemaOK = `
[[tables]]
name = "people"
indexes = ["name"]
  [[tables.columns]]
  name = "name"
  type = "string"
`
	s, err := NewParser().Parse(strings.NewReader(schemaOK))
	require.NoError(t, err)
	assert.Equal(t, []string{"name"}, s.Tables[0].Indexes)

	const schemaBadCol = `
[[tables]]
name = "people"
indexes = ["missing"]
  [[tables.columns]]
  name = "name"
  type = "string"
`
	_, err = NewParser().Parse(strings.NewReader(schemaBadCol))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no such column")

	const schemaBadType = `
[[tables]]
name = "people"
indexes = ["active"]
  [[tables.columns]]
  name = "active"
  type = "bool"
`
	_, err = NewParser().Parse(strings.NewReader(schemaBadType))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not indexable")
}

func TestParseFileNotFound(t *testing.T) {
	_, err := NewParser().ParseFile("/nonexistent/schema.toml")
	require.Error(t, err)
}
