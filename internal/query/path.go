package query

// PathKey selects which element(s) of a collection step a Path
// descends into, per spec.md §4.8's path grammar ("column + key:
// string/int/FIRST/LAST/ALL sentinel/arg slot").
type PathKey int

const (
	// KeyNone marks a plain scalar column reference; no collection
	// step is taken.
	KeyNone PathKey = iota
	// KeyFirst selects a LinkList step's first target row.
	KeyFirst
	// KeyLast selects a LinkList step's last target row.
	KeyLast
	// KeyAll selects every target row a LinkList step reaches.
	// Subquery and Aggregate/PostOp value nodes use every selected row;
	// a scalar Equality/Relational/StringOp reads only the first one.
	KeyAll
	// KeyIndex selects the target row at the fixed position Index.
	KeyIndex
	// KeyArg selects the target row at the position named by the
	// Index'th query argument, resolved at evaluation time.
	KeyArg
)

// PathStep names one column to read and, for a Link or LinkList
// column that is not the path's last step, how to pick the row(s) to
// continue into.
type PathStep struct {
	Column string
	Key    PathKey
	Index  int // meaningful when Key == KeyIndex or KeyArg
}

// Path is a sequence of column steps, e.g. Col("age") for a plain
// column, or a Link-then-column chain built with Through for a nested
// reference.
type Path []PathStep

// Col builds the common single-step path naming a plain column.
func Col(name string) Path { return Path{{Column: name, Key: KeyNone}} }

// Through extends p with one more step reached by following the named
// Link/LinkList column, defaulting to KeyAll (every target row) until
// narrowed with At/First/Last.
func (p Path) Through(name string) Path {
	return append(append(Path(nil), p...), PathStep{Column: name, Key: KeyAll})
}

// First narrows the path's most recently added collection step to its
// first target row.
func (p Path) First() Path { return p.withLastKey(KeyFirst, 0) }

// Last narrows the path's most recently added collection step to its
// last target row.
func (p Path) Last() Path { return p.withLastKey(KeyLast, 0) }

// At narrows the path's most recently added collection step to the
// target row at the fixed position i.
func (p Path) At(i int) Path { return p.withLastKey(KeyIndex, i) }

func (p Path) withLastKey(k PathKey, index int) Path {
	out := append(Path(nil), p...)
	if len(out) > 0 {
		out[len(out)-1].Key = k
		out[len(out)-1].Index = index
	}
	return out
}

// Leaf returns the path's last step's column name, the one actually
// read for a scalar value.
func (p Path) Leaf() string { return p[len(p)-1].Column }
