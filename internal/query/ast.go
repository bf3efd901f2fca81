// Package query implements the predicate/query engine (C8) of spec.md
// §4.8: a small expression AST built over a *table.Table, an
// indexed-equality strategy that seeds candidate rows from a column's
// search index when the predicate allows it, and a distinct/sort/limit
// descriptor pipeline applied to the result. Every predicate the index
// cannot seed is evaluated row by row over a full scan; there is no
// integer leaf-scan, string short-circuit or subquery strategy.
package query

// Predicate is satisfied by every boolean predicate node spec.md §4.8
// names: True, False, Not, And, Or, Equality, Relational, StringOp,
// Between, GeoWithin, Subquery, and Expression.
type Predicate interface{ predicateNode() }

// True always matches; False never does. Both exist mainly so And/Or
// trees built programmatically have a neutral element to start from.
type True struct{}
type False struct{}

func (True) predicateNode()  {}
func (False) predicateNode() {}

// Not inverts Inner.
type Not struct{ Inner Predicate }

// And and Or combine two predicates; both short-circuit during
// evaluation (Or stops at the first true branch, And at the first
// false one).
type And struct{ Left, Right Predicate }
type Or struct{ Left, Right Predicate }

func (Not) predicateNode() {}
func (And) predicateNode() {}
func (Or) predicateNode()  {}

// CompareOp names one of the six scalar comparison operators.
type CompareOp string

const (
	OpEQ CompareOp = "=="
	OpNE CompareOp = "!="
	OpLT CompareOp = "<"
	OpLE CompareOp = "<="
	OpGT CompareOp = ">"
	OpGE CompareOp = ">="
)

// Equality compares the column named by Path against Value for == or
// !=. It is the node the indexed-equality strategy looks for: when Op
// is OpEQ, Value is a Constant, and the leaf column carries a search
// index, Find/FindAll seed their candidate set from the index instead
// of scanning every row.
type Equality struct {
	Path  Path
	Op    CompareOp
	Value ValueNode
}

// Relational compares an ordered column against Value for <, <=, >,
// >=. It is evaluated row by row; no index or leaf-scan strategy
// narrows its candidates.
type Relational struct {
	Path  Path
	Op    CompareOp
	Value ValueNode
}

func (Equality) predicateNode()   {}
func (Relational) predicateNode() {}

// StringMatch names a string comparison mode.
type StringMatch string

const (
	StringEqual      StringMatch = "equal"
	StringContains   StringMatch = "contains"
	StringBeginsWith StringMatch = "begins_with"
	StringEndsWith   StringMatch = "ends_with"
)

// StringOp matches a String/Enum column against a literal, optionally
// case-insensitively. A case-sensitive StringEqual match against an
// indexed column uses the same indexed-equality strategy as Equality.
type StringOp struct {
	Path          Path
	Match         StringMatch
	Value         string
	CaseSensitive bool
}

func (StringOp) predicateNode() {}

// Between is inclusive on both ends: Low <= column <= High.
type Between struct {
	Path      Path
	Low, High ValueNode
}

func (Between) predicateNode() {}

// GeoPoint names the two columns holding a row's planar coordinates.
type GeoPoint struct{ LatPath, LngPath Path }

// GeoShape is satisfied by GeoBox, GeoCircle and GeoPolygon, the three
// region kinds GeoWithin tests against using the planar (Euclidean)
// metric.
type GeoShape interface{ geoShapeNode() }

// GeoBox is an axis-aligned lat/lng rectangle.
type GeoBox struct{ MinLat, MinLng, MaxLat, MaxLng float64 }

// GeoCircle is a planar disc: points within RadiusMeters of the
// center, where one degree of latitude and one degree of longitude
// are both treated as 111,320 meters (no spherical correction).
type GeoCircle struct{ CenterLat, CenterLng, RadiusMeters float64 }

// GeoPolygon is a simple (non self-intersecting) polygon given as
// [lat,lng] vertices; the edge from the last vertex back to the first
// is implicit.
type GeoPolygon struct{ Vertices [][2]float64 }

func (GeoBox) geoShapeNode()     {}
func (GeoCircle) geoShapeNode()  {}
func (GeoPolygon) geoShapeNode() {}

// metersPerDegree is the planar approximation GeoCircle uses to turn a
// meter radius into a degree radius; both axes use the same constant,
// so the metric is Euclidean, not spherical.
const metersPerDegree = 111320.0

// GeoWithin tests whether the row's point, read from Point, falls
// within Shape.
type GeoWithin struct {
	Point GeoPoint
	Shape GeoShape
}

func (GeoWithin) predicateNode() {}

// Subquery matches when at least one row reached by following Path
// (a Link or LinkList column) satisfies Inner. An empty LinkList never
// matches, regardless of Inner.
type Subquery struct {
	Path  Path
	Inner Predicate
}

func (Subquery) predicateNode() {}

// Expression wraps a boolean-valued node tree as a predicate, for
// conditions built from Arithmetic/Aggregate/PostOp nodes that don't
// fit the comparison shapes above (e.g. "a.@size > b.@size" is instead
// expressed as a Relational over two Aggregate/PostOp value nodes, but
// a bare boolean column reached through a Path reads as an Expression
// over a ColumnRef).
type Expression struct{ Value ValueNode }

func (Expression) predicateNode() {}
