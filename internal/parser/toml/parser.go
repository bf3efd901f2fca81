// Package toml provides a parser for the arkdb TOML table-spec format:
// it reads a schema definition from a .toml file and converts it into
// a Schema of internal/table.ColumnSpec-backed table definitions that
// cmd/arkdb's create command feeds straight into Group.AddTable.
package toml

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/BurntSushi/toml"

	"arkdb/internal/table"
)

// schemaFile is the top-level TOML document: a flat list of tables,
// each a flat list of columns plus an optional list of column names to
// build a search index over.
type schemaFile struct {
	Tables []tomlTable `toml:"tables"`
}

// TableSpec is one parsed [[tables]] entry: a name, its column layout
// ready for table.New/Group.AddTable, and the columns AddIndex should
// be called for once the table exists.
type TableSpec struct {
	Name    string
	Columns []table.ColumnSpec
	Indexes []string
}

// Schema is the parsed document: every table, in declaration order.
type Schema struct {
	Tables []TableSpec
}

// Parser reads arkdb TOML schema files.
type Parser struct{}

// NewParser creates a new TOML schema parser.
func NewParser() *Parser { return &Parser{} }

// ParseFile opens the file at path and parses it as a schema.
func (p *Parser) ParseFile(path string) (*Schema, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("toml: open file %q: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	return p.Parse(f)
}

// Parse reads TOML content from r and returns the corresponding Schema.
func (p *Parser) Parse(r io.Reader) (*Schema, error) {
	var sf schemaFile
	if _, err := toml.NewDecoder(r).Decode(&sf); err != nil {
		return nil, fmt.Errorf("toml: decode error: %w", err)
	}
	return newConverter(&sf).convert()
}

type converter struct {
	sf         *schemaFile
	seenTables map[string]bool
}

func newConverter(sf *schemaFile) *converter {
	return &converter{sf: sf, seenTables: make(map[string]bool, len(sf.Tables))}
}

func (c *converter) convert() (*Schema, error) {
	schema := &Schema{Tables: make([]TableSpec, 0, len(c.sf.Tables))}
	for i := range c.sf.Tables {
		ts, err := c.convertTable(&c.sf.Tables[i])
		if err != nil {
			return nil, fmt.Errorf("toml: table %q: %w", c.sf.Tables[i].Name, err)
		}
		schema.Tables = append(schema.Tables, ts)
	}
	return schema, nil
}

func (c *converter) validateTableName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("table name is empty")
	}
	lower := strings.ToLower(name)
	if c.seenTables[lower] {
		return fmt.Errorf("duplicate table name %q", name)
	}
	c.seenTables[lower] = true
	return nil
}
