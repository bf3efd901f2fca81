// Package main contains the cli implementation of the arkdb tool. It
// uses cobra for the command tree, mirroring the database library's
// own internal/txn and internal/group packages, and never touches
// their data structures directly once a DB is open.
package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"arkdb"
	schema "arkdb/internal/parser"
	"arkdb/internal/query"
	"arkdb/internal/table"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "arkdb",
		Short: "Embedded object database core tool",
	}

	rootCmd.AddCommand(createCmd())
	rootCmd.AddCommand(statCmd())
	rootCmd.AddCommand(queryCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func createCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create <schema.toml> <file>",
		Short: "Create a new database file from a TOML table-spec schema",
		Args:  cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			return runCreate(args[0], args[1])
		},
	}
	return cmd
}

func runCreate(schemaPath, dataPath string) error {
	sc, err := schema.ParseFile(schemaPath)
	if err != nil {
		return fmt.Errorf("failed to parse schema %q: %w", schemaPath, err)
	}

	db, err := arkdb.Open(dataPath, arkdb.OpenOptions{})
	if err != nil {
		return fmt.Errorf("failed to open %q: %w", dataPath, err)
	}
	defer func() { _ = db.Close() }()

	return db.Update(func(tx *arkdb.Tx) error {
		for _, st := range sc.Tables {
			t, err := tx.Group().AddTable(st.Name, st.Columns)
			if err != nil {
				return fmt.Errorf("failed to create table %q: %w", st.Name, err)
			}
			for _, col := range st.Indexes {
				if err := t.AddIndex(col); err != nil {
					return fmt.Errorf("failed to index %q.%q: %w", st.Name, col, err)
				}
			}
			fmt.Printf("created table %q (%d columns, %d indexes)\n", st.Name, len(st.Columns), len(st.Indexes))
		}
		return nil
	})
}

func statCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stat <file>",
		Short: "Print arena and table statistics for a database file",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return runStat(args[0])
		},
	}
	return cmd
}

func runStat(dataPath string) error {
	db, err := arkdb.Open(dataPath, arkdb.OpenOptions{})
	if err != nil {
		return fmt.Errorf("failed to open %q: %w", dataPath, err)
	}
	defer func() { _ = db.Close() }()

	return db.View(func(tx *arkdb.Tx) error {
		g := tx.Group()
		fmt.Printf("file length: %d bytes\n", g.FileLength())
		fmt.Printf("version: %d\n", g.Version())
		names := g.TableNames()
		fmt.Printf("tables: %d\n", len(names))
		for _, name := range names {
			t := g.GetTable(name)
			fmt.Printf("  %-20s %6d rows  %2d columns\n", name, t.NumRows(), len(t.Specs()))
		}
		return nil
	})
}

func queryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query <file> <table> <predicate>",
		Short: "Run a predicate against a table and print matching rows",
		Long: `Predicate syntax is a minimal "col op value" clause, optionally several
joined with &&, e.g.:

  arkdb query data.ark people "age >= 18 && name begins_with J"

Supported operators: == != < <= > >= contains begins_with ends_with`,
		Args: cobra.ExactArgs(3),
		RunE: func(_ *cobra.Command, args []string) error {
			return runQuery(args[0], args[1], args[2])
		},
	}
	return cmd
}

func runQuery(dataPath, tableName, predicateText string) error {
	db, err := arkdb.Open(dataPath, arkdb.OpenOptions{})
	if err != nil {
		return fmt.Errorf("failed to open %q: %w", dataPath, err)
	}
	defer func() { _ = db.Close() }()

	return db.View(func(tx *arkdb.Tx) error {
		g := tx.Group()
		t := g.GetTable(tableName)
		if t == nil {
			return fmt.Errorf("no such table %q", tableName)
		}

		pred, err := parsePredicate(t, predicateText)
		if err != nil {
			return fmt.Errorf("failed to parse predicate: %w", err)
		}

		q, err := g.NewQuery(tableName, pred)
		if err != nil {
			return err
		}
		rows, err := q.FindAll()
		if err != nil {
			return fmt.Errorf("query failed: %w", err)
		}

		fmt.Printf("%d matching row(s)\n", len(rows))
		for _, r := range rows {
			printRow(t, r)
		}
		return nil
	})
}

// parsePredicate understands a flat "col op value [&& col op value]*"
// clause list, the smallest grammar that exercises every comparison
// strategy in internal/query without reimplementing a general
// expression parser for a CLI demo tool.
func parsePredicate(t *table.Table, text string) (query.Predicate, error) {
	clauses := strings.Split(text, "&&")
	var pred query.Predicate = query.True{}
	for i, clause := range clauses {
		p, err := parseClause(t, strings.TrimSpace(clause))
		if err != nil {
			return nil, err
		}
		if i == 0 {
			pred = p
		} else {
			pred = query.And{Left: pred, Right: p}
		}
	}
	return pred, nil
}

var stringOps = map[string]query.StringMatch{
	"contains":    query.StringContains,
	"begins_with": query.StringBeginsWith,
	"ends_with":   query.StringEndsWith,
}

func parseClause(t *table.Table, clause string) (query.Predicate, error) {
	fields := strings.Fields(clause)
	if len(fields) < 3 {
		for op, match := range stringOps {
			if idx := strings.Index(clause, " "+op+" "); idx >= 0 {
				col := strings.TrimSpace(clause[:idx])
				val := strings.TrimSpace(clause[idx+len(op)+2:])
				return query.StringOp{Path: query.Col(col), Match: match, Value: val, CaseSensitive: true}, nil
			}
		}
		return nil, fmt.Errorf("cannot parse clause %q", clause)
	}

	col := fields[0]
	opTok := fields[1]
	val := strings.Join(fields[2:], " ")

	if match, ok := stringOps[opTok]; ok {
		return query.StringOp{Path: query.Col(col), Match: match, Value: val, CaseSensitive: true}, nil
	}

	idx := t.ColumnIndex(col)
	if idx < 0 {
		return nil, fmt.Errorf("no such column %q", col)
	}
	typ := t.Specs()[idx].Type

	value := parseLiteral(typ, val)

	switch opTok {
	case "==":
		if typ == table.String || typ == table.Enum {
			return query.StringOp{Path: query.Col(col), Match: query.StringEqual, Value: val, CaseSensitive: true}, nil
		}
		return query.Equality{Path: query.Col(col), Op: query.OpEQ, Value: query.Constant{V: value}}, nil
	case "!=":
		return query.Equality{Path: query.Col(col), Op: query.OpNE, Value: query.Constant{V: value}}, nil
	case "<":
		return query.Relational{Path: query.Col(col), Op: query.OpLT, Value: query.Constant{V: value}}, nil
	case "<=":
		return query.Relational{Path: query.Col(col), Op: query.OpLE, Value: query.Constant{V: value}}, nil
	case ">":
		return query.Relational{Path: query.Col(col), Op: query.OpGT, Value: query.Constant{V: value}}, nil
	case ">=":
		return query.Relational{Path: query.Col(col), Op: query.OpGE, Value: query.Constant{V: value}}, nil
	default:
		return nil, fmt.Errorf("unsupported operator %q", opTok)
	}
}

func parseLiteral(typ table.ColumnType, s string) any {
	switch typ {
	case table.Int, table.Link:
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n
		}
	case table.Float, table.Double:
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
	case table.Bool:
		if b, err := strconv.ParseBool(s); err == nil {
			return b
		}
	}
	return s
}

func printRow(t *table.Table, row int) {
	var parts []string
	for _, spec := range t.Specs() {
		switch spec.Type {
		case table.Int:
			parts = append(parts, fmt.Sprintf("%s=%d", spec.Name, t.GetInt(spec.Name, row)))
		case table.Bool:
			parts = append(parts, fmt.Sprintf("%s=%t", spec.Name, t.GetBool(spec.Name, row)))
		case table.Float:
			parts = append(parts, fmt.Sprintf("%s=%g", spec.Name, t.GetFloat(spec.Name, row)))
		case table.Double:
			parts = append(parts, fmt.Sprintf("%s=%g", spec.Name, t.GetDouble(spec.Name, row)))
		case table.String, table.Enum:
			parts = append(parts, fmt.Sprintf("%s=%q", spec.Name, t.GetString(spec.Name, row)))
		default:
			parts = append(parts, fmt.Sprintf("%s=<%s>", spec.Name, spec.Type))
		}
	}
	fmt.Printf("  [%d] %s\n", row, strings.Join(parts, " "))
}
