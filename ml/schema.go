package ml

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v2"
)

// ColumnSchema is the ordered list of feature columns a trained classifier
// expects. It is fixed at training time and never mutated after load.
type ColumnSchema struct {
	columns []string
	index   map[string]int
}

// NewColumnSchema builds a schema from column names in model order.
// Names must be non-empty and unique.
func NewColumnSchema(columns []string) (*ColumnSchema, error) {
	if len(columns) == 0 {
		return nil, configErr("new schema", ErrEmptySchema)
	}
	index := make(map[string]int, len(columns))
	for i, name := range columns {
		if name == "" {
			return nil, configErr("new schema", fmt.Errorf("column %d has an empty name", i))
		}
		if _, dup := index[name]; dup {
			return nil, configErr("new schema", fmt.Errorf("duplicate column %q", name))
		}
		index[name] = i
	}
	return &ColumnSchema{
		columns: append([]string(nil), columns...),
		index:   index,
	}, nil
}

// ParseSchema decodes a schema artifact. The payload is a JSON or YAML list
// of column names.
func ParseSchema(data []byte) (*ColumnSchema, error) {
	if len(data) == 0 {
		return nil, configErr("parse schema", errors.New("schema payload is empty"))
	}
	var columns []string
	if err := yaml.Unmarshal(data, &columns); err != nil {
		return nil, configErr("parse schema", err)
	}
	return NewColumnSchema(columns)
}

// LoadSchema reads a schema artifact from disk.
func LoadSchema(path string) (*ColumnSchema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, configErr("load schema", err)
	}
	return ParseSchema(data)
}

// Columns returns a copy of the column names in model order.
func (s *ColumnSchema) Columns() []string {
	if s == nil {
		return nil
	}
	return append([]string(nil), s.columns...)
}

// Len returns the number of columns.
func (s *ColumnSchema) Len() int {
	if s == nil {
		return 0
	}
	return len(s.columns)
}

// Has reports whether the schema contains the named column.
func (s *ColumnSchema) Has(name string) bool {
	if s == nil {
		return false
	}
	_, ok := s.index[name]
	return ok
}

// Equal reports whether names matches the schema column for column.
func (s *ColumnSchema) Equal(names []string) bool {
	if s == nil || len(names) != len(s.columns) {
		return false
	}
	for i, name := range names {
		if s.columns[i] != name {
			return false
		}
	}
	return true
}
