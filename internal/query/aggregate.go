package query

import "math"

// Count returns the number of rows FindAll would return, so Distinct
// and Limit both apply (Sort does not change the count).
func (q *Query) Count() (int, error) {
	rows, err := q.FindAll()
	if err != nil {
		return 0, err
	}
	return len(rows), nil
}

// aggregateColumn reduces the named column over the query's matching
// rows with reduce, skipping any row whose value isn't numeric or is
// NaN, per spec.md §4.8's null-skipping rule. The returned count is
// the number of rows that contributed a value (0 when none did).
func (q *Query) aggregateColumn(col string, reduce func(acc float64, v float64, n int) float64) (float64, int, error) {
	idx := q.tbl.ColumnIndex(col)
	if idx < 0 {
		return 0, 0, &ConstructionError{Msg: "no such column \"" + col + "\""}
	}
	typ := q.tbl.Specs()[idx].Type
	rows, err := q.FindAll()
	if err != nil {
		return 0, 0, err
	}
	var acc float64
	n := 0
	for _, r := range rows {
		v, err := scalar(q.tbl, col, typ, r)
		if err != nil {
			return 0, 0, err
		}
		f, ok := toFloat64(v)
		if !ok || math.IsNaN(f) {
			continue
		}
		acc = reduce(acc, f, n)
		n++
	}
	return acc, n, nil
}

// Sum totals the named numeric column, treating an empty match as 0.
func (q *Query) Sum(col string) (float64, error) {
	sum, _, err := q.aggregateColumn(col, func(acc, v float64, n int) float64 { return acc + v })
	return sum, err
}

// Min returns the named column's smallest value across matching rows,
// and false if no row contributed one.
func (q *Query) Min(col string) (float64, bool, error) {
	var min float64
	have := false
	_, n, err := q.aggregateColumn(col, func(acc, v float64, i int) float64 {
		if !have || v < min {
			min = v
			have = true
		}
		return acc
	})
	if err != nil {
		return 0, false, err
	}
	return min, n > 0 && have, nil
}

// Max returns the named column's largest value across matching rows,
// and false if no row contributed one.
func (q *Query) Max(col string) (float64, bool, error) {
	var max float64
	have := false
	_, n, err := q.aggregateColumn(col, func(acc, v float64, i int) float64 {
		if !have || v > max {
			max = v
			have = true
		}
		return acc
	})
	if err != nil {
		return 0, false, err
	}
	return max, n > 0 && have, nil
}

// Average returns the named column's mean across matching rows, and
// false if no row contributed one (never dividing by zero).
func (q *Query) Average(col string) (float64, bool, error) {
	sum, n, err := q.aggregateColumn(col, func(acc, v float64, i int) float64 { return acc + v })
	if err != nil {
		return 0, false, err
	}
	if n == 0 {
		return 0, false, nil
	}
	return sum / float64(n), true, nil
}
