// Package protocol translates table storage calls into the executor's JSON
// wire format and interprets its replies.
//
// Two operations are supported:
//
//	{"op":"select","params":{"table":..,"key":..,"condition":[[col,op,value],...]}}
//	{"op":"commit","params":{"data":[{"table":..,<row fields>},...]}}
//
// Replies carry a status code, zero meaning success, and either a result
// payload or fault detail.
package protocol

import (
	"bytes"
	"encoding/json"

	"github.com/tailored-agentic-units/storageproxy/table"
)

// Operation tags.
const (
	OpSelect = "select"
	OpCommit = "commit"
)

// TableField is the discriminator column carried by every commit record.
const TableField = "table"

// Request is the envelope sent to the executor.
type Request struct {
	Op     string `json:"op"`
	Params any    `json:"params"`
}

// SelectParams are the parameters of a select request.
type SelectParams struct {
	BlockHash string      `json:"blockHash"`
	Num       int64       `json:"num"`
	Table     string      `json:"table"`
	Key       string      `json:"key"`
	Condition [][3]string `json:"condition"`
}

// CommitParams are the parameters of a commit request. Data holds one
// record per changed row.
type CommitParams struct {
	BlockHash string         `json:"blockHash"`
	Num       int64          `json:"num"`
	Data      []CommitRecord `json:"data"`
}

// CommitRecord is one row routed to Table. It encodes as a flat object
// whose first key is the table discriminator followed by the row fields.
type CommitRecord struct {
	Table string
	Row   *table.Row
}

func (r CommitRecord) MarshalJSON() ([]byte, error) {
	fields, err := r.Row.MarshalJSON()
	if err != nil {
		return nil, err
	}
	name, err := json.Marshal(r.Table)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.WriteString(`{"` + TableField + `":`)
	buf.Write(name)
	if len(fields) > 2 {
		buf.WriteByte(',')
		buf.Write(fields[1 : len(fields)-1])
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// EncodeFilter converts a filter into its wire array, one [column, op,
// value] triple per predicate in order. An empty filter yields an empty,
// non-nil array.
func EncodeFilter(filter *table.Filter) [][3]string {
	preds := filter.Predicates()
	out := make([][3]string, 0, len(preds))
	for _, p := range preds {
		out = append(out, [3]string{p.Column, p.Op.Token(), p.Value})
	}
	return out
}

// EncodeSelect builds a select request.
func EncodeSelect(block table.BlockContext, tableName, key string, filter *table.Filter) *Request {
	return &Request{
		Op: OpSelect,
		Params: SelectParams{
			BlockHash: block.Hash.String(),
			Num:       block.Height,
			Table:     tableName,
			Key:       key,
			Condition: EncodeFilter(filter),
		},
	}
}

// EncodeCommit flattens the changesets into one record per row. A row that
// carries its own "table" column is rejected since the discriminator would
// be ambiguous.
func EncodeCommit(block table.BlockContext, changes []*table.Changeset) (*Request, error) {
	records := make([]CommitRecord, 0)
	for _, cs := range changes {
		if cs == nil {
			continue
		}
		for _, row := range cs.Rows.Rows() {
			if row == nil {
				continue
			}
			if _, clash := row.Get(TableField); clash {
				return nil, protocolErrorf(OpCommit, nil, "table %q: row carries reserved column %q", cs.Info.Name, TableField)
			}
			records = append(records, CommitRecord{Table: cs.Info.Name, Row: row})
		}
	}

	return &Request{
		Op: OpCommit,
		Params: CommitParams{
			BlockHash: block.Hash.String(),
			Num:       block.Height,
			Data:      records,
		},
	}, nil
}

// Marshal encodes the request to JSON.
func (r *Request) Marshal() ([]byte, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, protocolErrorf(r.Op, err, "encode request")
	}
	return data, nil
}
