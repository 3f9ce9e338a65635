package protocol

import (
	"bytes"
	"encoding/json"

	"github.com/tailored-agentic-units/storageproxy/table"
)

// StatusOK is the response code for success.
const StatusOK = 0

// Response is the envelope returned by the executor. Result stays raw until
// the caller knows which operation it answers. Code is required.
type Response struct {
	Code    *int            `json:"code"`
	Message string          `json:"message,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
}

// SelectResult is the columnar payload of a successful select.
type SelectResult struct {
	Columns []string `json:"columns"`
	Data    [][]any  `json:"data"`
}

// CommitResult is the payload of a successful commit.
type CommitResult struct {
	Count *json.Number `json:"count"`
}

// ParseResponse decodes the envelope. It does not interpret Result. An
// envelope without a code is a protocol error.
func ParseResponse(op string, data []byte) (*Response, error) {
	var resp Response
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, protocolErrorf(op, err, "decode response")
	}
	if resp.Code == nil {
		return nil, protocolErrorf(op, nil, "missing code")
	}
	return &resp, nil
}

// Fault returns a FaultError when the response carries a non-zero code.
func (r *Response) Fault(op string) error {
	if *r.Code == StatusOK {
		return nil
	}
	return &FaultError{Op: op, Code: *r.Code, Message: r.Message}
}

func (r *Response) hasResult() bool {
	trimmed := bytes.TrimSpace(r.Result)
	return len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null"))
}

// DecodeSelectResponse interprets a select reply. A success without a
// result, or with no rows, is an empty RowSet.
func DecodeSelectResponse(data []byte) (*table.RowSet, error) {
	resp, err := ParseResponse(OpSelect, data)
	if err != nil {
		return nil, err
	}
	if err := resp.Fault(OpSelect); err != nil {
		return nil, err
	}
	if !resp.hasResult() {
		return table.NewRowSet(), nil
	}

	var result SelectResult
	dec := json.NewDecoder(bytes.NewReader(resp.Result))
	dec.UseNumber()
	if err := dec.Decode(&result); err != nil {
		return nil, protocolErrorf(OpSelect, err, "decode result")
	}
	return Materialize(&result)
}

// DecodeCommitResponse interprets a commit reply and returns the number of
// rows the executor accepted.
func DecodeCommitResponse(data []byte) (int, error) {
	resp, err := ParseResponse(OpCommit, data)
	if err != nil {
		return 0, err
	}
	if err := resp.Fault(OpCommit); err != nil {
		return 0, err
	}
	if !resp.hasResult() {
		return 0, protocolErrorf(OpCommit, nil, "missing result")
	}

	var result CommitResult
	dec := json.NewDecoder(bytes.NewReader(resp.Result))
	dec.UseNumber()
	if err := dec.Decode(&result); err != nil {
		return 0, protocolErrorf(OpCommit, err, "decode result")
	}
	if result.Count == nil {
		return 0, protocolErrorf(OpCommit, nil, "missing result.count")
	}

	count, err := result.Count.Int64()
	if err != nil {
		return 0, protocolErrorf(OpCommit, err, "result.count %q is not an integer", result.Count.String())
	}
	if count < 0 {
		return 0, protocolErrorf(OpCommit, nil, "result.count %d is negative", count)
	}
	return int(count), nil
}
