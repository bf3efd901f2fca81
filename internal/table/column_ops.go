package table

import (
	"time"

	"arkdb/internal/column"
)

// columnOps is the uniform operation set spec.md §4.5 requires every
// column support "in lock-step" regardless of its concrete type:
// add/remove/relocate/swap/clear a row. Each typed column in
// internal/column has its own Insert signature (it takes a
// type-specific value), so AddEmptyRows/InsertRow go through
// insertEmpty, which supplies that type's zero value.
type columnOps interface {
	Len() int
	insertEmpty(i int) error
	Remove(i int) error
	MoveLastOver(i int) error
	SwapRows(i, j int) error
	Clear() error
}

type intOps struct{ c *column.IntColumn }

func (a intOps) Len() int                  { return a.c.Len() }
func (a intOps) insertEmpty(i int) error   { return a.c.Insert(i, 0) }
func (a intOps) Remove(i int) error        { return a.c.Remove(i) }
func (a intOps) MoveLastOver(i int) error  { return a.c.MoveLastOver(i) }
func (a intOps) SwapRows(i, j int) error   { return a.c.SwapRows(i, j) }
func (a intOps) Clear() error              { return a.c.Clear() }

type boolOps struct{ c *column.BoolColumn }

func (a boolOps) Len() int                 { return a.c.Len() }
func (a boolOps) insertEmpty(i int) error  { return a.c.Insert(i, false) }
func (a boolOps) Remove(i int) error       { return a.c.Remove(i) }
func (a boolOps) MoveLastOver(i int) error { return a.c.MoveLastOver(i) }
func (a boolOps) SwapRows(i, j int) error  { return a.c.SwapRows(i, j) }
func (a boolOps) Clear() error             { return a.c.Clear() }

type floatOps struct{ c *column.FloatColumn }

func (a floatOps) Len() int                 { return a.c.Len() }
func (a floatOps) insertEmpty(i int) error  { return a.c.Insert(i, 0) }
func (a floatOps) Remove(i int) error       { return a.c.Remove(i) }
func (a floatOps) MoveLastOver(i int) error { return a.c.MoveLastOver(i) }
func (a floatOps) SwapRows(i, j int) error  { return a.c.SwapRows(i, j) }
func (a floatOps) Clear() error             { return a.c.Clear() }

type doubleOps struct{ c *column.DoubleColumn }

func (a doubleOps) Len() int                 { return a.c.Len() }
func (a doubleOps) insertEmpty(i int) error  { return a.c.Insert(i, 0) }
func (a doubleOps) Remove(i int) error       { return a.c.Remove(i) }
func (a doubleOps) MoveLastOver(i int) error { return a.c.MoveLastOver(i) }
func (a doubleOps) SwapRows(i, j int) error  { return a.c.SwapRows(i, j) }
func (a doubleOps) Clear() error             { return a.c.Clear() }

type timestampOps struct{ c *column.TimestampColumn }

func (a timestampOps) Len() int                 { return a.c.Len() }
func (a timestampOps) insertEmpty(i int) error  { return a.c.Insert(i, time.Time{}) }
func (a timestampOps) Remove(i int) error       { return a.c.Remove(i) }
func (a timestampOps) MoveLastOver(i int) error { return a.c.MoveLastOver(i) }
func (a timestampOps) SwapRows(i, j int) error  { return a.c.SwapRows(i, j) }
func (a timestampOps) Clear() error             { return a.c.Clear() }

type stringOps struct{ c *column.StringColumn }

func (a stringOps) Len() int                 { return a.c.Len() }
func (a stringOps) insertEmpty(i int) error  { return a.c.Insert(i, "") }
func (a stringOps) Remove(i int) error       { return a.c.Remove(i) }
func (a stringOps) MoveLastOver(i int) error { return a.c.MoveLastOver(i) }
func (a stringOps) SwapRows(i, j int) error  { return a.c.SwapRows(i, j) }
func (a stringOps) Clear() error             { return a.c.Clear() }

type enumOps struct{ c *column.EnumColumn }

func (a enumOps) Len() int                 { return a.c.Len() }
func (a enumOps) insertEmpty(i int) error  { return a.c.Insert(i, "") }
func (a enumOps) Remove(i int) error       { return a.c.Remove(i) }
func (a enumOps) MoveLastOver(i int) error { return a.c.MoveLastOver(i) }
func (a enumOps) SwapRows(i, j int) error  { return a.c.SwapRows(i, j) }
func (a enumOps) Clear() error             { return a.c.Clear() }

type binaryOps struct{ c *column.BinaryColumn }

func (a binaryOps) Len() int                 { return a.c.Len() }
func (a binaryOps) insertEmpty(i int) error  { return a.c.Insert(i, nil) }
func (a binaryOps) Remove(i int) error       { return a.c.Remove(i) }
func (a binaryOps) MoveLastOver(i int) error { return a.c.MoveLastOver(i) }
func (a binaryOps) SwapRows(i, j int) error  { return a.c.SwapRows(i, j) }
func (a binaryOps) Clear() error             { return a.c.Clear() }

type mixedOps struct{ c *column.MixedColumn }

func (a mixedOps) Len() int                 { return a.c.Len() }
func (a mixedOps) insertEmpty(i int) error  { return a.c.InsertNull(i) }
func (a mixedOps) Remove(i int) error       { return a.c.Remove(i) }
func (a mixedOps) MoveLastOver(i int) error { return a.c.MoveLastOver(i) }
func (a mixedOps) SwapRows(i, j int) error  { return a.c.SwapRows(i, j) }
func (a mixedOps) Clear() error             { return a.c.Clear() }

type subtableOps struct{ c *column.SubtableColumn }

func (a subtableOps) Len() int                 { return a.c.Len() }
func (a subtableOps) insertEmpty(i int) error  { return a.c.Insert(i) }
func (a subtableOps) Remove(i int) error       { return a.c.Remove(i) }
func (a subtableOps) MoveLastOver(i int) error { return a.c.MoveLastOver(i) }
func (a subtableOps) SwapRows(i, j int) error  { return a.c.SwapRows(i, j) }
func (a subtableOps) Clear() error             { return a.c.Clear() }

type linkOps struct{ c *column.LinkColumn }

func (a linkOps) Len() int                 { return a.c.Len() }
func (a linkOps) insertEmpty(i int) error  { return a.c.Insert(i, column.NullRow) }
func (a linkOps) Remove(i int) error       { return a.c.Remove(i) }
func (a linkOps) MoveLastOver(i int) error { return a.c.MoveLastOver(i) }
func (a linkOps) SwapRows(i, j int) error  { return a.c.SwapRows(i, j) }
func (a linkOps) Clear() error             { return a.c.Clear() }

type linkListOps struct{ c *column.LinkListColumn }

func (a linkListOps) Len() int                 { return a.c.Len() }
func (a linkListOps) insertEmpty(i int) error  { return a.c.Insert(i) }
func (a linkListOps) Remove(i int) error       { return a.c.Remove(i) }
func (a linkListOps) MoveLastOver(i int) error { return a.c.MoveLastOver(i) }
func (a linkListOps) SwapRows(i, j int) error  { return a.c.SwapRows(i, j) }
func (a linkListOps) Clear() error             { return a.c.Clear() }
