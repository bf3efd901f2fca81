package query

import (
	"fmt"
	"math"

	"arkdb/internal/table"
)

// TableResolver looks up another table by name, for Path steps that
// cross a Link/LinkList column into a different table. Query obtains
// one from internal/group when it is built via Group.NewQuery, which
// passes Group.resolveTable (a lookup through Group.GetTable).
type TableResolver func(name string) (*table.Table, error)

// ConstructionError reports a predicate or path that cannot be
// evaluated against a table's current schema: an unknown column, a
// type mismatch between a predicate and the column it names, or a
// path step through a column that isn't a Link/LinkList/Subtable.
// Detected lazily, the first time the query actually runs, per
// spec.md §4.8's "mismatched column type is a construction error
// raised at find/execute time" failure rule.
type ConstructionError struct {
	Path Path
	Msg  string
}

func (e *ConstructionError) Error() string {
	if len(e.Path) == 0 {
		return fmt.Sprintf("query: construction error: %s", e.Msg)
	}
	return fmt.Sprintf("query: construction error at %v: %s", e.Path, e.Msg)
}

// evaluator binds a predicate/value-node tree to one row of a concrete
// table, resolving column paths and substituting query arguments as it
// goes. A fresh evaluator is cheap; Query reuses one per Find/Execute
// call rather than per row, since it carries no per-row state.
type evaluator struct {
	tbl     *table.Table
	resolve TableResolver
	args    []any
}

func (e *evaluator) arg(i int) (any, error) {
	if i < 0 || i >= len(e.args) {
		return nil, fmt.Errorf("query: argument %d out of range (%d supplied)", i, len(e.args))
	}
	return e.args[i], nil
}

func (e *evaluator) resolveTarget(name string) (*table.Table, error) {
	if e.resolve == nil {
		return nil, &ConstructionError{Msg: fmt.Sprintf("path crosses into table %q but no table resolver is attached", name)}
	}
	t, err := e.resolve(name)
	if err != nil {
		return nil, &ConstructionError{Msg: fmt.Sprintf("path target table %q: %v", name, err)}
	}
	return t, nil
}

// rowsFor follows path from row in tbl and returns the table the path
// ends in along with every row of it the path selects. A leaf step with
// Key == KeyNone, or one naming a column that is not a Link/LinkList, is
// read in place, so the rows returned are those holding the leaf column.
// A Link/LinkList leaf step with any other Key is itself followed, so
// the rows returned are its targets (Subquery and PostOpSize rely on
// this to reach a link list's elements).
func (e *evaluator) rowsFor(tbl *table.Table, path Path, row int) (*table.Table, []int, error) {
	cur := tbl
	rows := []int{row}
	for i, step := range path {
		idx := cur.ColumnIndex(step.Column)
		if idx < 0 {
			return nil, nil, &ConstructionError{Path: path, Msg: fmt.Sprintf("no such column %q", step.Column)}
		}
		spec := cur.Specs()[idx]
		traversable := spec.Type == table.Link || spec.Type == table.LinkList
		if i == len(path)-1 && (step.Key == KeyNone || !traversable) {
			return cur, rows, nil
		}
		switch spec.Type {
		case table.Link:
			target, err := e.resolveTarget(spec.Target)
			if err != nil {
				return nil, nil, err
			}
			var next []int
			for _, r := range rows {
				if t := cur.GetLink(step.Column, r); t >= 0 {
					next = append(next, int(t))
				}
			}
			cur, rows = target, next
		case table.LinkList:
			target, err := e.resolveTarget(spec.Target)
			if err != nil {
				return nil, nil, err
			}
			var next []int
			for _, r := range rows {
				targets, err := cur.GetLinkList(step.Column, r)
				if err != nil {
					return nil, nil, &ConstructionError{Path: path, Msg: err.Error()}
				}
				sel, err := e.selectLinkListRows(targets, step)
				if err != nil {
					return nil, nil, err
				}
				next = append(next, sel...)
			}
			cur, rows = target, next
		default:
			return nil, nil, &ConstructionError{Path: path, Msg: fmt.Sprintf("column %q is %s, not traversable", step.Column, spec.Type)}
		}
	}
	return cur, rows, nil
}

func (e *evaluator) selectLinkListRows(targets []int64, step PathStep) ([]int, error) {
	switch step.Key {
	case KeyFirst:
		if len(targets) == 0 {
			return nil, nil
		}
		return []int{int(targets[0])}, nil
	case KeyLast:
		if len(targets) == 0 {
			return nil, nil
		}
		return []int{int(targets[len(targets)-1])}, nil
	case KeyIndex:
		if step.Index < 0 || step.Index >= len(targets) {
			return nil, nil
		}
		return []int{int(targets[step.Index])}, nil
	case KeyArg:
		v, err := e.arg(step.Index)
		if err != nil {
			return nil, err
		}
		n, ok := v.(int)
		if !ok || n < 0 || n >= len(targets) {
			return nil, nil
		}
		return []int{int(targets[n])}, nil
	default: // KeyAll, or KeyNone used loosely on a collection step
		out := make([]int, len(targets))
		for i, t := range targets {
			out[i] = int(t)
		}
		return out, nil
	}
}

// scalar reads the raw Go value a column holds at row, per its
// declared ColumnType, for use by the comparison/arithmetic evaluators.
func scalar(tbl *table.Table, name string, typ table.ColumnType, row int) (any, error) {
	switch typ {
	case table.Int:
		return tbl.GetInt(name, row), nil
	case table.Bool:
		return tbl.GetBool(name, row), nil
	case table.Float:
		return float64(tbl.GetFloat(name, row)), nil
	case table.Double:
		return tbl.GetDouble(name, row), nil
	case table.String, table.Enum:
		return tbl.GetString(name, row), nil
	case table.Timestamp:
		return tbl.GetTimestamp(name, row), nil
	case table.Binary:
		return tbl.GetBinary(name, row), nil
	case table.Link:
		return tbl.GetLink(name, row), nil
	default:
		return nil, &ConstructionError{Msg: fmt.Sprintf("column %q is %s, not a scalar value", name, typ)}
	}
}

func (e *evaluator) evalColumn(path Path, row int) (any, table.ColumnType, error) {
	cur, rows, err := e.rowsFor(e.tbl, path, row)
	if err != nil {
		return nil, "", err
	}
	if len(rows) == 0 {
		return nil, "", nil
	}
	idx := cur.ColumnIndex(path.Leaf())
	if idx < 0 {
		return nil, "", &ConstructionError{Path: path, Msg: fmt.Sprintf("no such column %q", path.Leaf())}
	}
	typ := cur.Specs()[idx].Type
	v, err := scalar(cur, path.Leaf(), typ, rows[0])
	return v, typ, err
}

func (e *evaluator) evalValue(v ValueNode, row int) (any, error) {
	switch n := v.(type) {
	case Constant:
		return n.V, nil
	case Arg:
		return e.arg(n.Index)
	case ColumnRef:
		val, _, err := e.evalColumn(n.Path, row)
		return val, err
	case Arithmetic:
		return e.evalArithmetic(n, row)
	case Aggregate:
		return e.evalAggregate(n, row)
	case PostOp:
		return e.evalPostOp(n, row)
	default:
		return nil, &ConstructionError{Msg: fmt.Sprintf("unknown value node %T", v)}
	}
}

func (e *evaluator) evalArithmetic(n Arithmetic, row int) (any, error) {
	lv, err := e.evalValue(n.Left, row)
	if err != nil {
		return nil, err
	}
	rv, err := e.evalValue(n.Right, row)
	if err != nil {
		return nil, err
	}
	l, ok := toFloat64(lv)
	if !ok {
		return nil, &ConstructionError{Msg: "arithmetic: left operand is not numeric"}
	}
	r, ok := toFloat64(rv)
	if !ok {
		return nil, &ConstructionError{Msg: "arithmetic: right operand is not numeric"}
	}
	switch n.Op {
	case ArithAdd:
		return l + r, nil
	case ArithSub:
		return l - r, nil
	case ArithMul:
		return l * r, nil
	case ArithDiv:
		if r == 0 {
			return nil, fmt.Errorf("query: division by zero")
		}
		return l / r, nil
	default:
		return nil, &ConstructionError{Msg: fmt.Sprintf("unknown arithmetic operator %q", n.Op)}
	}
}

func (e *evaluator) evalAggregate(n Aggregate, row int) (any, error) {
	cur, rows, err := e.rowsFor(e.tbl, n.Path, row)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		if n.Op == AggSum {
			return 0.0, nil
		}
		return nil, nil
	}
	idx := cur.ColumnIndex(n.Path.Leaf())
	if idx < 0 {
		return nil, &ConstructionError{Path: n.Path, Msg: fmt.Sprintf("no such column %q", n.Path.Leaf())}
	}
	typ := cur.Specs()[idx].Type
	var sum float64
	var count int
	var min, max float64
	haveMin := false
	for _, r := range rows {
		v, err := scalar(cur, n.Path.Leaf(), typ, r)
		if err != nil {
			return nil, err
		}
		f, ok := toFloat64(v)
		if !ok {
			continue // non-numeric value treated as null for aggregation
		}
		if math.IsNaN(f) {
			continue
		}
		sum += f
		count++
		if !haveMin || f < min {
			min = f
			haveMin = true
		}
		if f > max || count == 1 {
			max = f
		}
	}
	switch n.Op {
	case AggSum:
		return sum, nil
	case AggMin:
		if !haveMin {
			return nil, nil
		}
		return min, nil
	case AggMax:
		if count == 0 {
			return nil, nil
		}
		return max, nil
	case AggAvg:
		if count == 0 {
			return nil, nil
		}
		return sum / float64(count), nil
	default:
		return nil, &ConstructionError{Msg: fmt.Sprintf("unknown aggregate operator %q", n.Op)}
	}
}

func (e *evaluator) evalPostOp(n PostOp, row int) (any, error) {
	switch n.Kind {
	case PostOpSize:
		cur, rows, err := e.rowsFor(e.tbl, n.Path, row)
		_ = cur
		if err != nil {
			return nil, err
		}
		return len(rows), nil
	case PostOpType:
		cur, rows, err := e.rowsFor(e.tbl, n.Path, row)
		if err != nil {
			return nil, err
		}
		if len(rows) == 0 {
			return "", nil
		}
		idx := cur.ColumnIndex(n.Path.Leaf())
		if idx < 0 {
			return nil, &ConstructionError{Path: n.Path, Msg: fmt.Sprintf("no such column %q", n.Path.Leaf())}
		}
		return string(cur.Specs()[idx].Type), nil
	default:
		return nil, &ConstructionError{Msg: fmt.Sprintf("unknown post-op %q", n.Kind)}
	}
}

func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

// eval evaluates p against row, resolving column paths and aggregates
// through e.
func (e *evaluator) eval(p Predicate, row int) (bool, error) {
	switch n := p.(type) {
	case True:
		return true, nil
	case False:
		return false, nil
	case Not:
		v, err := e.eval(n.Inner, row)
		return !v, err
	case And:
		l, err := e.eval(n.Left, row)
		if err != nil || !l {
			return false, err
		}
		return e.eval(n.Right, row)
	case Or:
		l, err := e.eval(n.Left, row)
		if err != nil {
			return false, err
		}
		if l {
			return true, nil
		}
		return e.eval(n.Right, row)
	case Equality:
		return e.evalEquality(n, row)
	case Relational:
		return e.evalRelational(n, row)
	case StringOp:
		return e.evalStringOp(n, row)
	case Between:
		return e.evalBetween(n, row)
	case GeoWithin:
		return e.evalGeoWithin(n, row)
	case Subquery:
		return e.evalSubquery(n, row)
	case Expression:
		v, err := e.evalValue(n.Value, row)
		if err != nil {
			return false, err
		}
		b, ok := v.(bool)
		if !ok {
			return false, &ConstructionError{Msg: "expression predicate did not evaluate to a bool"}
		}
		return b, nil
	default:
		return false, &ConstructionError{Msg: fmt.Sprintf("unknown predicate node %T", p)}
	}
}

func (e *evaluator) evalEquality(n Equality, row int) (bool, error) {
	lv, _, err := e.evalColumn(n.Path, row)
	if err != nil {
		return false, err
	}
	rv, err := e.evalValue(n.Value, row)
	if err != nil {
		return false, err
	}
	eq := valuesEqual(lv, rv)
	if n.Op == OpNE {
		return !eq, nil
	}
	return eq, nil
}

func valuesEqual(a, b any) bool {
	if af, ok := toFloat64(a); ok {
		if bf, ok := toFloat64(b); ok {
			return af == bf
		}
	}
	return a == b
}

func (e *evaluator) evalRelational(n Relational, row int) (bool, error) {
	lv, _, err := e.evalColumn(n.Path, row)
	if err != nil {
		return false, err
	}
	rv, err := e.evalValue(n.Value, row)
	if err != nil {
		return false, err
	}
	l, ok := toFloat64(lv)
	if !ok {
		return false, &ConstructionError{Path: n.Path, Msg: "relational comparison against a non-numeric column"}
	}
	r, ok := toFloat64(rv)
	if !ok {
		return false, &ConstructionError{Path: n.Path, Msg: "relational comparison against a non-numeric value"}
	}
	switch n.Op {
	case OpLT:
		return l < r, nil
	case OpLE:
		return l <= r, nil
	case OpGT:
		return l > r, nil
	case OpGE:
		return l >= r, nil
	default:
		return false, &ConstructionError{Msg: fmt.Sprintf("relational predicate does not support operator %q", n.Op)}
	}
}

func (e *evaluator) evalStringOp(n StringOp, row int) (bool, error) {
	lv, typ, err := e.evalColumn(n.Path, row)
	if err != nil {
		return false, err
	}
	if typ != table.String && typ != table.Enum {
		return false, &ConstructionError{Path: n.Path, Msg: fmt.Sprintf("string predicate against %s column", typ)}
	}
	s, _ := lv.(string)
	target := n.Value
	if !n.CaseSensitive {
		s = toLower(s)
		target = toLower(target)
	}
	switch n.Match {
	case StringEqual:
		return s == target, nil
	case StringContains:
		return contains(s, target), nil
	case StringBeginsWith:
		return len(s) >= len(target) && s[:len(target)] == target, nil
	case StringEndsWith:
		return len(s) >= len(target) && s[len(s)-len(target):] == target, nil
	default:
		return false, &ConstructionError{Msg: fmt.Sprintf("unknown string match mode %q", n.Match)}
	}
}

func toLower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}

func contains(s, substr string) bool {
	if len(substr) == 0 {
		return true
	}
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return true
		}
	}
	return false
}

func (e *evaluator) evalBetween(n Between, row int) (bool, error) {
	lv, _, err := e.evalColumn(n.Path, row)
	if err != nil {
		return false, err
	}
	lo, err := e.evalValue(n.Low, row)
	if err != nil {
		return false, err
	}
	hi, err := e.evalValue(n.High, row)
	if err != nil {
		return false, err
	}
	v, ok := toFloat64(lv)
	loF, okLo := toFloat64(lo)
	hiF, okHi := toFloat64(hi)
	if !ok || !okLo || !okHi {
		return false, &ConstructionError{Path: n.Path, Msg: "between predicate requires numeric operands"}
	}
	return v >= loF && v <= hiF, nil
}

func (e *evaluator) evalGeoWithin(n GeoWithin, row int) (bool, error) {
	latV, _, err := e.evalColumn(n.Point.LatPath, row)
	if err != nil {
		return false, err
	}
	lngV, _, err := e.evalColumn(n.Point.LngPath, row)
	if err != nil {
		return false, err
	}
	lat, ok1 := toFloat64(latV)
	lng, ok2 := toFloat64(lngV)
	if !ok1 || !ok2 {
		return false, &ConstructionError{Msg: "geoWithin requires numeric lat/lng columns"}
	}
	switch s := n.Shape.(type) {
	case GeoBox:
		return lat >= s.MinLat && lat <= s.MaxLat && lng >= s.MinLng && lng <= s.MaxLng, nil
	case GeoCircle:
		dLat := (lat - s.CenterLat) * metersPerDegree
		dLng := (lng - s.CenterLng) * metersPerDegree
		dist := math.Hypot(dLat, dLng)
		return dist <= s.RadiusMeters, nil
	case GeoPolygon:
		return pointInPolygon(lat, lng, s.Vertices), nil
	default:
		return false, &ConstructionError{Msg: fmt.Sprintf("unknown geo shape %T", n.Shape)}
	}
}

// pointInPolygon is the standard even-odd ray-casting test over the
// planar [lat,lng] vertex list.
func pointInPolygon(lat, lng float64, verts [][2]float64) bool {
	in := false
	n := len(verts)
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		yi, xi := verts[i][0], verts[i][1]
		yj, xj := verts[j][0], verts[j][1]
		if ((yi > lat) != (yj > lat)) &&
			(lng < (xj-xi)*(lat-yi)/(yj-yi)+xi) {
			in = !in
		}
	}
	return in
}

func (e *evaluator) evalSubquery(n Subquery, row int) (bool, error) {
	cur, rows, err := e.rowsFor(e.tbl, n.Path, row)
	if err != nil {
		return false, err
	}
	inner := &evaluator{tbl: cur, resolve: e.resolve, args: e.args}
	for _, r := range rows {
		ok, err := inner.eval(n.Inner, r)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}
