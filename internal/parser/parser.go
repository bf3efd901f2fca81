// Package schema provides file-extension dispatch for reading arkdb
// table-spec schema files in whichever format their extension names.
// Only TOML is implemented; a future format gets its own subpackage
// and one more case in ParseFile, the same shape smf used to dispatch
// between schema dump formats.
package schema

import (
	"path/filepath"

	"arkdb/internal/parser/toml"
)

// ParseFile reads the schema file at path, dispatching on its
// extension.
func ParseFile(path string) (*toml.Schema, error) {
	switch filepath.Ext(path) {
	case ".toml":
		return toml.NewParser().ParseFile(path)
	default:
		return nil, &UnsupportedFormatError{Path: path}
	}
}

// UnsupportedFormatError reports a schema file whose extension names
// no known format.
type UnsupportedFormatError struct {
	Path string
}

func (e *UnsupportedFormatError) Error() string {
	return "unsupported file format: " + e.Path
}
