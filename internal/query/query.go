package query

import (
	"fmt"
	"sort"

	"arkdb/internal/table"
)

// Query binds a predicate tree to a concrete table, with an optional
// distinct/sort/limit pipeline applied to the matching rows, per
// spec.md §4.8's query-object model.
type Query struct {
	tbl     *table.Table
	resolve TableResolver
	pred    Predicate
	args    []any

	distinctCols []string
	sortCols     []string
	sortDesc     []bool
	limit        int // 0 means unlimited
}

// New builds a query over tbl matching pred. resolve may be nil if
// pred never crosses a Link/LinkList column into another table.
func New(tbl *table.Table, pred Predicate, resolve TableResolver) *Query {
	return &Query{tbl: tbl, pred: pred, resolve: resolve}
}

// WithArgs binds positional arguments substituted for Arg value nodes
// at evaluation time. Calling it again replaces the previous binding.
func (q *Query) WithArgs(args ...any) *Query {
	q.args = args
	return q
}

// Distinct deduplicates the result on the given columns, keeping the
// first matching row for each distinct combination, per spec.md
// §4.8's "distinct: first wins" rule. Must be applied before Sort to
// match the original's pipeline order.
func (q *Query) Distinct(cols ...string) *Query {
	q.distinctCols = cols
	return q
}

// Sort orders the result by cols, each either ascending ("name") or
// descending ("-name"). The sort is stable, so rows tied on every
// sort column keep their scan order.
func (q *Query) Sort(cols ...string) *Query {
	q.sortCols = q.sortCols[:0]
	q.sortDesc = q.sortDesc[:0]
	for _, c := range cols {
		desc := false
		if len(c) > 0 && c[0] == '-' {
			desc = true
			c = c[1:]
		}
		q.sortCols = append(q.sortCols, c)
		q.sortDesc = append(q.sortDesc, desc)
	}
	return q
}

// Limit caps the result to the first n rows after distinct/sort.
func (q *Query) Limit(n int) *Query {
	q.limit = n
	return q
}

func (q *Query) newEvaluator() *evaluator {
	return &evaluator{tbl: q.tbl, resolve: q.resolve, args: q.args}
}

// FindFirst returns the first matching row, or -1 if none matches.
func (q *Query) FindFirst() (int, error) {
	e := q.newEvaluator()
	rows, seeded, err := q.candidateRows(e)
	if err != nil {
		return -1, err
	}
	if seeded {
		sort.Ints(rows)
		for _, r := range rows {
			ok, err := e.eval(q.pred, r)
			if err != nil {
				return -1, err
			}
			if ok {
				return r, nil
			}
		}
		return -1, nil
	}
	for r := 0; r < q.tbl.NumRows(); r++ {
		ok, err := e.eval(q.pred, r)
		if err != nil {
			return -1, err
		}
		if ok {
			return r, nil
		}
	}
	return -1, nil
}

// FindAll returns every matching row, then applies the
// distinct/sort/limit pipeline in that order, per spec.md §4.8's
// descriptor pipeline.
func (q *Query) FindAll() ([]int, error) {
	e := q.newEvaluator()
	rows, err := q.matchAll(e)
	if err != nil {
		return nil, err
	}
	rows, err = q.applyDistinct(rows)
	if err != nil {
		return nil, err
	}
	rows, err = q.applySort(rows)
	if err != nil {
		return nil, err
	}
	if q.limit > 0 && len(rows) > q.limit {
		rows = rows[:q.limit]
	}
	return rows, nil
}

func (q *Query) matchAll(e *evaluator) ([]int, error) {
	candidates, seeded, err := q.candidateRows(e)
	if err != nil {
		return nil, err
	}
	var out []int
	if seeded {
		sort.Ints(candidates)
		for _, r := range candidates {
			ok, err := e.eval(q.pred, r)
			if err != nil {
				return nil, err
			}
			if ok {
				out = append(out, r)
			}
		}
		return out, nil
	}
	for r := 0; r < q.tbl.NumRows(); r++ {
		ok, err := e.eval(q.pred, r)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, r)
		}
	}
	return out, nil
}

func (q *Query) applyDistinct(rows []int) ([]int, error) {
	if len(q.distinctCols) == 0 {
		return rows, nil
	}
	seen := map[string]struct{}{}
	var out []int
	for _, r := range rows {
		key, err := q.rowKey(r, q.distinctCols)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, r)
	}
	return out, nil
}

func (q *Query) rowKey(row int, cols []string) (string, error) {
	key := ""
	for _, c := range cols {
		i := q.tbl.ColumnIndex(c)
		if i < 0 {
			return "", &ConstructionError{Msg: fmt.Sprintf("no such column %q", c)}
		}
		v, err := scalar(q.tbl, c, q.tbl.Specs()[i].Type, row)
		if err != nil {
			return "", err
		}
		key += fmt.Sprintf("\x00%v", v)
	}
	return key, nil
}

func (q *Query) applySort(rows []int) ([]int, error) {
	if len(q.sortCols) == 0 {
		return rows, nil
	}
	specs := make([]table.ColumnType, len(q.sortCols))
	for i, c := range q.sortCols {
		idx := q.tbl.ColumnIndex(c)
		if idx < 0 {
			return nil, &ConstructionError{Msg: fmt.Sprintf("no such column %q", c)}
		}
		specs[i] = q.tbl.Specs()[idx].Type
	}
	var sortErr error
	sort.SliceStable(rows, func(i, j int) bool {
		for k, c := range q.sortCols {
			a, err := scalar(q.tbl, c, specs[k], rows[i])
			if err != nil {
				sortErr = err
				return false
			}
			b, err := scalar(q.tbl, c, specs[k], rows[j])
			if err != nil {
				sortErr = err
				return false
			}
			cmp := compareAny(a, b)
			if cmp == 0 {
				continue
			}
			if q.sortDesc[k] {
				return cmp > 0
			}
			return cmp < 0
		}
		return false
	})
	return rows, sortErr
}

func compareAny(a, b any) int {
	if af, ok := toFloat64(a); ok {
		if bf, ok := toFloat64(b); ok {
			switch {
			case af < bf:
				return -1
			case af > bf:
				return 1
			default:
				return 0
			}
		}
	}
	as, aok := a.(string)
	bs, bok := b.(string)
	if aok && bok {
		switch {
		case as < bs:
			return -1
		case as > bs:
			return 1
		default:
			return 0
		}
	}
	return 0
}
