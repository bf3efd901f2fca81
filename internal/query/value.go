package query

// ValueNode is satisfied by every expression value node: Constant,
// Arg, ColumnRef, Arithmetic, Aggregate, and PostOp.
type ValueNode interface{ valueNode() }

// Constant is a literal baked into the query at construction time.
type Constant struct{ V any }

func (Constant) valueNode() {}

// Arg references the n'th positional argument supplied to WithArgs,
// substituted in at Find/Execute time per spec.md §4.8's "argument
// substitution"; an out-of-range index is a user-visible error at
// evaluation, not a construction error, since the same Query can be
// re-run with a different argument count.
type Arg struct{ Index int }

func (Arg) valueNode() {}

// ColumnRef reads the scalar value at the end of Path for the current
// row.
type ColumnRef struct{ Path Path }

func (ColumnRef) valueNode() {}

// ArithOp names one of the four numeric binary operators.
type ArithOp string

const (
	ArithAdd ArithOp = "+"
	ArithSub ArithOp = "-"
	ArithMul ArithOp = "*"
	ArithDiv ArithOp = "/"
)

// Arithmetic combines two numeric value nodes.
type Arithmetic struct {
	Op          ArithOp
	Left, Right ValueNode
}

func (Arithmetic) valueNode() {}

// AggregateOp names one of the four collection-reducing aggregates.
type AggregateOp string

const (
	AggMin AggregateOp = "min"
	AggMax AggregateOp = "max"
	AggSum AggregateOp = "sum"
	AggAvg AggregateOp = "average"
)

// Aggregate reduces the column reached by Path — which must cross at
// least one Link/LinkList step — across every row the path selects,
// skipping nulls, per spec.md §4.8's null-skipping aggregate rule. An
// empty selection makes AggMin/AggMax/AggAvg evaluate to nil and
// AggSum evaluate to zero.
type Aggregate struct {
	Path Path
	Op   AggregateOp
}

func (Aggregate) valueNode() {}

// PostOpKind names a collection-level operator that doesn't descend
// into element values.
type PostOpKind string

const (
	// PostOpSize evaluates to the number of rows Path selects (e.g. a
	// LinkList's element count).
	PostOpSize PostOpKind = "@size"
	// PostOpType evaluates to the declared ColumnType name of Path's
	// leaf column, as a string.
	PostOpType PostOpKind = "@type"
)

// PostOp applies Kind to Path without descending into its elements.
type PostOp struct {
	Path Path
	Kind PostOpKind
}

func (PostOp) valueNode() {}
