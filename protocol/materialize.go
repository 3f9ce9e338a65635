package protocol

import (
	"encoding/json"
	"strconv"

	"github.com/tailored-agentic-units/storageproxy/table"
)

// Materialize turns a columnar result into rows, pairing columns[i] with
// value[i] and keeping both column and row order. Column names must be
// unique and every row must have exactly one value per column.
func Materialize(result *SelectResult) (*table.RowSet, error) {
	rs := table.NewRowSet()
	if result == nil || len(result.Data) == 0 {
		return rs, nil
	}
	if len(result.Columns) == 0 {
		return nil, protocolErrorf(OpSelect, nil, "%d rows without columns", len(result.Data))
	}

	seen := make(map[string]int, len(result.Columns))
	for i, column := range result.Columns {
		if first, dup := seen[column]; dup {
			return nil, protocolErrorf(OpSelect, nil, "column %q repeated at %d and %d", column, first, i)
		}
		seen[column] = i
	}

	for i, values := range result.Data {
		if len(values) != len(result.Columns) {
			return nil, protocolErrorf(OpSelect, nil, "row %d has %d values for %d columns", i, len(values), len(result.Columns))
		}

		row := table.NewRow()
		for j, column := range result.Columns {
			value, ok := scalar(values[j])
			if !ok {
				return nil, protocolErrorf(OpSelect, nil, "row %d column %q is not a scalar", i, column)
			}
			row.Set(column, value)
		}
		rs.Append(row)
	}

	return rs, nil
}

func scalar(v any) (string, bool) {
	switch t := v.(type) {
	case nil:
		return "", true
	case string:
		return t, true
	case json.Number:
		return t.String(), true
	case bool:
		return strconv.FormatBool(t), true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	default:
		return "", false
	}
}
