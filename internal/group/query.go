package group

import (
	"fmt"

	"arkdb/internal/query"
	"arkdb/internal/table"
)

// NewQuery builds a query.Query over the named table, wiring a
// TableResolver back into this Group so predicates that cross a
// Link/LinkList column (Subquery, Aggregate, PostOp with a nested
// Path) can follow it into whichever table it targets.
func (g *Group) NewQuery(tableName string, pred query.Predicate) (*query.Query, error) {
	t := g.GetTable(tableName)
	if t == nil {
		return nil, fmt.Errorf("group: query: no such table %q", tableName)
	}
	return query.New(t, pred, g.resolveTable), nil
}

// resolveTable satisfies query.TableResolver, giving Query access to
// every table in the Group by name.
func (g *Group) resolveTable(name string) (*table.Table, error) {
	t := g.GetTable(name)
	if t == nil {
		return nil, fmt.Errorf("group: no such table %q", name)
	}
	return t, nil
}
