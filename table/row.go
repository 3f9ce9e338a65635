// Package table defines the row, filter, and changeset model shared by every
// storage backend, along with the Storage capability they implement.
package table

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Row is an ordered mapping from column name to string value. Columns keep
// the position of their first Set; replacing a value does not reorder it.
type Row struct {
	columns []string
	values  map[string]string
}

// NewRow creates an empty Row.
func NewRow() *Row {
	return &Row{values: make(map[string]string)}
}

// Set assigns value to column, appending the column if it is new.
func (r *Row) Set(column, value string) *Row {
	if r.values == nil {
		r.values = make(map[string]string)
	}
	if _, exists := r.values[column]; !exists {
		r.columns = append(r.columns, column)
	}
	r.values[column] = value
	return r
}

// Get returns the value for column and whether it is present.
func (r *Row) Get(column string) (string, bool) {
	if r == nil {
		return "", false
	}
	v, ok := r.values[column]
	return v, ok
}

// Fields returns column names in insertion order.
func (r *Row) Fields() []string {
	if r == nil {
		return nil
	}
	out := make([]string, len(r.columns))
	copy(out, r.columns)
	return out
}

func (r *Row) Len() int {
	if r == nil {
		return 0
	}
	return len(r.columns)
}

// Clone returns an independent copy of the row.
func (r *Row) Clone() *Row {
	clone := NewRow()
	for _, c := range r.Fields() {
		clone.Set(c, r.values[c])
	}
	return clone
}

func (r *Row) String() string {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, c := range r.Fields() {
		if i > 0 {
			buf.WriteString(", ")
		}
		fmt.Fprintf(&buf, "%s: %q", c, r.values[c])
	}
	buf.WriteByte('}')
	return buf.String()
}

// MarshalJSON writes the row as a JSON object with keys in insertion order.
func (r *Row) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, c := range r.Fields() {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeJSONPair(&buf, c, r.values[c]); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a flat JSON object of string values, keeping key order.
func (r *Row) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("row: expected object, got %v", tok)
	}

	*r = Row{values: make(map[string]string)}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("row: expected string key, got %v", keyTok)
		}

		var value string
		if err := dec.Decode(&value); err != nil {
			return fmt.Errorf("row: column %q: %w", key, err)
		}
		r.Set(key, value)
	}

	_, err = dec.Token()
	return err
}

func writeJSONPair(buf *bytes.Buffer, key, value string) error {
	k, err := json.Marshal(key)
	if err != nil {
		return err
	}
	v, err := json.Marshal(value)
	if err != nil {
		return err
	}
	buf.Write(k)
	buf.WriteByte(':')
	buf.Write(v)
	return nil
}

// RowSet is an append-only, ordered collection of rows. Order is significant:
// it is the order rows were returned or inserted.
type RowSet struct {
	rows []*Row
}

// NewRowSet creates a RowSet holding the given rows.
func NewRowSet(rows ...*Row) *RowSet {
	rs := &RowSet{}
	for _, row := range rows {
		rs.Append(row)
	}
	return rs
}

func (rs *RowSet) Append(row *Row) {
	rs.rows = append(rs.rows, row)
}

func (rs *RowSet) Len() int {
	if rs == nil {
		return 0
	}
	return len(rs.rows)
}

// At returns the row at index i. It panics if i is out of range.
func (rs *RowSet) At(i int) *Row {
	return rs.rows[i]
}

// Rows returns a copy of the row slice.
func (rs *RowSet) Rows() []*Row {
	if rs == nil {
		return nil
	}
	out := make([]*Row, len(rs.rows))
	copy(out, rs.rows)
	return out
}
