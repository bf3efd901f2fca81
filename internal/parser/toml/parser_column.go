package toml

import (
	"errors"
	"fmt"
	"strings"

	"arkdb/internal/table"
)

// tomlColumn maps [[tables.columns]]. Target names the destination
// table for a link/linklist/subtable column.
type tomlColumn struct {
	Name   string `toml:"name"`
	Type   string `toml:"type"`
	Target string `toml:"target"`
}

var columnTypes = map[string]table.ColumnType{
	"int":       table.Int,
	"bool":      table.Bool,
	"float":     table.Float,
	"double":    table.Double,
	"string":    table.String,
	"enum":      table.Enum,
	"binary":    table.Binary,
	"mixed":     table.Mixed,
	"timestamp": table.Timestamp,
	"subtable":  table.Subtable,
	"link":      table.Link,
	"linklist":  table.LinkList,
}

func (c *converter) convertColumn(tc *tomlColumn) (table.ColumnSpec, error) {
	if strings.TrimSpace(tc.Name) == "" {
		return table.ColumnSpec{}, errors.New("column name is empty")
	}

	typ, ok := columnTypes[strings.ToLower(strings.TrimSpace(tc.Type))]
	if !ok {
		return table.ColumnSpec{}, fmt.Errorf("unknown column type %q", tc.Type)
	}

	if (typ == table.Link || typ == table.LinkList) && tc.Target == "" {
		return table.ColumnSpec{}, fmt.Errorf("column %q is %s but names no target table", tc.Name, typ)
	}

	return table.ColumnSpec{Name: tc.Name, Type: typ, Target: tc.Target}, nil
}
