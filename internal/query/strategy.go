package query

import (
	"arkdb/internal/strix"
	"arkdb/internal/table"
)

// candidateRows picks the row set a query actually has to run its
// predicate over. A single-step Equality/StringEqual against an
// indexed column seeds the set from the index (the "indexed equality"
// strategy); every other shape falls back to a full scan over every
// row, which the predicate evaluator itself still has to confirm
// (the index only narrows candidates, it never replaces evaluation,
// since the root predicate may combine the indexed comparison with
// other conditions via And/Or).
func (q *Query) candidateRows(e *evaluator) ([]int, bool, error) {
	ix, key, ok := indexSeed(q.pred, q.tbl, e)
	if !ok {
		return nil, false, nil
	}
	rows, err := ix.FindAll(key)
	if err != nil {
		return nil, false, err
	}
	return rows, true, nil
}

// indexSeed looks for a top-level Equality or StringOp(equal) node
// against an indexed, single-step column and, if found, returns the
// index and the encoded key to seed candidates from. It looks at the
// root node and, through nested Ands, at the left branch first and then
// the right, using the first indexable leaf it finds and letting the
// rest of the predicate filter the result. Or and Not are never seeded.
func indexSeed(p Predicate, tbl *table.Table, e *evaluator) (*strix.Index, []byte, bool) {
	switch n := p.(type) {
	case And:
		if ix, key, ok := indexSeed(n.Left, tbl, e); ok {
			return ix, key, ok
		}
		return indexSeed(n.Right, tbl, e)
	case Equality:
		if n.Op != OpEQ || len(n.Path) != 1 {
			return nil, nil, false
		}
		c, ok := n.Value.(Constant)
		if !ok {
			return nil, nil, false
		}
		ix, ok := tbl.Index(n.Path.Leaf())
		if !ok {
			return nil, nil, false
		}
		key, ok := encodeIndexKey(c.V)
		if !ok {
			return nil, nil, false
		}
		return ix, key, true
	case StringOp:
		if n.Match != StringEqual || !n.CaseSensitive || len(n.Path) != 1 {
			return nil, nil, false
		}
		ix, ok := tbl.Index(n.Path.Leaf())
		if !ok {
			return nil, nil, false
		}
		return ix, strix.KeyBytesString(n.Value), true
	default:
		return nil, nil, false
	}
}

func encodeIndexKey(v any) ([]byte, bool) {
	switch n := v.(type) {
	case int:
		return strix.KeyBytesInt(int64(n)), true
	case int64:
		return strix.KeyBytesInt(n), true
	case string:
		return strix.KeyBytesString(n), true
	default:
		return nil, false
	}
}
