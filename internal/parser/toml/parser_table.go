package toml

import (
	"errors"
	"fmt"
	"strings"

	"arkdb/internal/table"
)

// tomlTable maps [[tables]].
type tomlTable struct {
	Name    string       `toml:"name"`
	Columns []tomlColumn `toml:"columns"`
	Indexes []string     `toml:"indexes"`
}

func (c *converter) convertTable(tt *tomlTable) (TableSpec, error) {
	if err := c.validateTableName(tt.Name); err != nil {
		return TableSpec{}, err
	}

	cols, err := c.convertColumns(tt)
	if err != nil {
		return TableSpec{}, err
	}

	if err := c.validateIndexes(tt, cols); err != nil {
		return TableSpec{}, err
	}

	return TableSpec{Name: tt.Name, Columns: cols, Indexes: tt.Indexes}, nil
}

// convertColumns populates a table's column layout from the TOML
// column definitions, rejecting a table with no columns or with two
// columns whose names are equal ignoring case.
func (c *converter) convertColumns(tt *tomlTable) ([]table.ColumnSpec, error) {
	cols := make([]table.ColumnSpec, 0, len(tt.Columns))
	seen := make(map[string]bool, len(tt.Columns))
	for i := range tt.Columns {
		col, err := c.convertColumn(&tt.Columns[i])
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", tt.Columns[i].Name, err)
		}
		lower := strings.ToLower(col.Name)
		if seen[lower] {
			return nil, fmt.Errorf("duplicate column name %q", col.Name)
		}
		seen[lower] = true
		cols = append(cols, col)
	}
	if len(cols) == 0 {
		return nil, errors.New("table has no columns")
	}
	return cols, nil
}

// validateIndexes checks that every column named in indexes actually
// exists on the table and is of an indexable type, matching what
// Table.AddIndex itself will later enforce — catching a typo here
// gives a clearer error than failing deep inside table creation.
func (c *converter) validateIndexes(tt *tomlTable, cols []table.ColumnSpec) error {
	byName := make(map[string]table.ColumnType, len(cols))
	for _, col := range cols {
		byName[col.Name] = col.Type
	}
	for _, name := range tt.Indexes {
		typ, ok := byName[name]
		if !ok {
			return fmt.Errorf("index: no such column %q", name)
		}
		switch typ {
		case table.Int, table.String, table.Enum:
		default:
			return fmt.Errorf("index: column %q is %s, not indexable", name, typ)
		}
	}
	return nil
}
