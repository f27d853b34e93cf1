// Package table holds the columnar representation handed to storage.
package table

import (
	"fmt"
)

type ColumnType string

const (
	ColumnType_String     ColumnType = "string"
	ColumnType_Int32      ColumnType = "int32"
	ColumnType_Int64      ColumnType = "int64"
	ColumnType_Decimal    ColumnType = "decimal"
	ColumnType_Timestamp  ColumnType = "timestamp"
	ColumnType_Bool       ColumnType = "bool"
	ColumnType_Json       ColumnType = "json"
	ColumnType_StringList ColumnType = "string_list"
	ColumnType_Null       ColumnType = "null"
)

// IsObject reports whether values of the type are nested structures that are
// stringified before storage.
func (ct ColumnType) IsObject() bool {
	return ct == ColumnType_Json || ct == ColumnType_StringList
}

// IsInteger reports whether the type is one of the widening integer types.
func (ct ColumnType) IsInteger() bool {
	return ct == ColumnType_Int32 || ct == ColumnType_Int64 || ct == ColumnType_Decimal
}

type Column struct {
	Name   string
	Type   ColumnType
	Values []interface{}
}

func NewColumn(name string, t ColumnType, values []interface{}) *Column {
	return &Column{Name: name, Type: t, Values: values}
}

// NullColumn is a column of the given length holding only nulls.
func NullColumn(name string, length int) *Column {
	return &Column{Name: name, Type: ColumnType_Null, Values: make([]interface{}, length)}
}

func (c *Column) Len() int {
	return len(c.Values)
}

func (c *Column) IsAllNull() bool {
	for _, v := range c.Values {
		if v != nil {
			return false
		}
	}
	return true
}

// Table is an ordered set of equally long columns.
type Table struct {
	columns []*Column
	rows    int
}

func NewTable(rows int) *Table {
	return &Table{columns: make([]*Column, 0), rows: rows}
}

// FromRecords builds a table of untyped columns. Column order follows the
// first appearance of each key across records; keys absent from a record
// are null in that row.
func FromRecords(records []map[string]interface{}) *Table {
	t := NewTable(len(records))
	order := make([]string, 0)
	seen := make(map[string]bool)
	for _, r := range records {
		for _, k := range sortedKeys(r) {
			if !seen[k] {
				seen[k] = true
				order = append(order, k)
			}
		}
	}
	for _, name := range order {
		values := make([]interface{}, len(records))
		for i, r := range records {
			values[i] = r[name]
		}
		t.columns = append(t.columns, NewColumn(name, ColumnType_String, values))
	}
	return t
}

func (t *Table) Len() int {
	return t.rows
}

func (t *Table) Columns() []*Column {
	return t.columns
}

func (t *Table) ColumnNames() []string {
	names := make([]string, 0, len(t.columns))
	for _, c := range t.columns {
		names = append(names, c.Name)
	}
	return names
}

func (t *Table) Column(name string) (*Column, bool) {
	for _, c := range t.columns {
		if c.Name == name {
			return c, true
		}
	}
	return nil, false
}

// SetColumn replaces the column with the same name or appends a new one.
func (t *Table) SetColumn(c *Column) error {
	if c.Len() != t.rows {
		return fmt.Errorf("column '%s' has %d values, table has %d rows", c.Name, c.Len(), t.rows)
	}
	for i, existing := range t.columns {
		if existing.Name == c.Name {
			t.columns[i] = c
			return nil
		}
	}
	t.columns = append(t.columns, c)
	return nil
}

// ReplaceColumn swaps one column for zero or more columns at the same position.
func (t *Table) ReplaceColumn(name string, replacements []*Column) error {
	for _, c := range replacements {
		if c.Len() != t.rows {
			return fmt.Errorf("column '%s' has %d values, table has %d rows", c.Name, c.Len(), t.rows)
		}
	}
	for i, existing := range t.columns {
		if existing.Name == name {
			cols := make([]*Column, 0, len(t.columns)-1+len(replacements))
			cols = append(cols, t.columns[:i]...)
			cols = append(cols, replacements...)
			cols = append(cols, t.columns[i+1:]...)
			t.columns = cols
			return nil
		}
	}
	t.columns = append(t.columns, replacements...)
	return nil
}

func (t *Table) DropColumn(name string) {
	for i, c := range t.columns {
		if c.Name == name {
			t.columns = append(t.columns[:i], t.columns[i+1:]...)
			return
		}
	}
}

// Row returns the values of row i keyed by column name.
func (t *Table) Row(i int) map[string]interface{} {
	row := make(map[string]interface{}, len(t.columns))
	for _, c := range t.columns {
		row[c.Name] = c.Values[i]
	}
	return row
}

func (t *Table) Rows() []map[string]interface{} {
	rows := make([]map[string]interface{}, 0, t.rows)
	for i := 0; i < t.rows; i++ {
		rows = append(rows, t.Row(i))
	}
	return rows
}

// Concat appends the rows of other. Columns missing on either side are
// filled with nulls; types are kept from the receiver when both sides have
// the column.
func (t *Table) Concat(other *Table) *Table {
	out := NewTable(t.rows + other.rows)
	names := t.ColumnNames()
	for _, n := range other.ColumnNames() {
		if _, ok := t.Column(n); !ok {
			names = append(names, n)
		}
	}
	for _, n := range names {
		values := make([]interface{}, 0, out.rows)
		colType := ColumnType_Null
		if c, ok := t.Column(n); ok {
			values = append(values, c.Values...)
			colType = c.Type
		} else {
			values = append(values, make([]interface{}, t.rows)...)
		}
		if c, ok := other.Column(n); ok {
			values = append(values, c.Values...)
			if colType == ColumnType_Null {
				colType = c.Type
			}
		} else {
			values = append(values, make([]interface{}, other.rows)...)
		}
		out.columns = append(out.columns, NewColumn(n, colType, values))
	}
	return out
}

// Reorder moves the named columns to the front in the given order; other
// columns keep their relative order after them.
func (t *Table) Reorder(names []string) {
	front := make([]*Column, 0, len(t.columns))
	used := make(map[string]bool)
	for _, n := range names {
		if c, ok := t.Column(n); ok && !used[n] {
			front = append(front, c)
			used[n] = true
		}
	}
	for _, c := range t.columns {
		if !used[c.Name] {
			front = append(front, c)
		}
	}
	t.columns = front
}
