package remote_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/tailored-agentic-units/storageproxy/messaging"
	"github.com/tailored-agentic-units/storageproxy/observability"
)

// mockExecutor answers select and commit requests the way the ledger's
// storage executor does. Table "e" always faults. Committed rows are kept in
// memory and served back by select, keyed by the value of the first column.
type mockExecutor struct {
	mu       sync.Mutex
	rows     map[string][][2][]string
	requests atomic.Int32
}

func newMockExecutor() *mockExecutor {
	e := &mockExecutor{rows: make(map[string][][2][]string)}
	e.rows["t_test\x00LiSi"] = [][2][]string{{{"Name", "id"}, {"LiSi", "1"}}}
	return e
}

func (e *mockExecutor) Request(ctx context.Context, msg *messaging.Message) (*messaging.Message, error) {
	e.requests.Add(1)
	return messaging.NewResponse(msg, e.respond(msg.Payload)).Build(), nil
}

type wireRequest struct {
	Op     string `json:"op"`
	Params struct {
		Table     string            `json:"table"`
		Key       string            `json:"key"`
		Condition [][3]string       `json:"condition"`
		Data      []json.RawMessage `json:"data"`
	} `json:"params"`
}

func (e *mockExecutor) respond(payload []byte) []byte {
	var req wireRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return []byte(`{"code":-2,"message":"bad request"}`)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	switch req.Op {
	case "select":
		if req.Params.Table == "e" {
			return []byte(`{"code":-1,"message":"mock exception"}`)
		}
		stored := e.rows[req.Params.Table+"\x00"+req.Params.Key]
		if len(stored) == 0 {
			return []byte(`{"code":0}`)
		}

		var columns []string
		data := [][]string{}
		for _, row := range stored {
			if !matches(row, req.Params.Condition) {
				continue
			}
			columns = row[0]
			data = append(data, row[1])
		}
		if len(data) == 0 {
			return []byte(`{"code":0}`)
		}
		out, _ := json.Marshal(map[string]any{
			"code":   0,
			"result": map[string]any{"columns": columns, "data": data},
		})
		return out

	case "commit":
		count := 0
		for _, raw := range req.Params.Data {
			columns, values, tableName := flatten(raw)
			if tableName == "e" {
				return []byte(`{"code":-1,"message":"mock exception"}`)
			}
			if len(values) == 0 {
				continue
			}
			key := tableName + "\x00" + values[0]
			e.rows[key] = [][2][]string{{columns, values}}
			count++
		}
		out, _ := json.Marshal(map[string]any{"code": 0, "result": map[string]any{"count": count}})
		return out
	}

	return []byte(`{"code":-3,"message":"unknown op"}`)
}

func matches(row [2][]string, condition [][3]string) bool {
	for _, c := range condition {
		if c[1] != "eq" {
			continue
		}
		found := false
		for i, col := range row[0] {
			if col == c[0] && row[1][i] == c[2] {
				found = true
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// flatten splits a commit record into ordered columns and values, pulling out
// the table discriminator.
func flatten(raw json.RawMessage) (columns, values []string, tableName string) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	if _, err := dec.Token(); err != nil {
		return nil, nil, ""
	}
	for dec.More() {
		kt, _ := dec.Token()
		vt, _ := dec.Token()
		k, _ := kt.(string)
		v, _ := vt.(string)
		if k == "table" {
			tableName = v
			continue
		}
		columns = append(columns, k)
		values = append(values, v)
	}
	return columns, values, tableName
}

// failingTransport fails every request with err and counts the attempts.
type failingTransport struct {
	err      error
	attempts atomic.Int32
}

func (f *failingTransport) Request(ctx context.Context, msg *messaging.Message) (*messaging.Message, error) {
	f.attempts.Add(1)
	return nil, f.err
}

// scriptedTransport replies with the next payload from its script, or with
// the transport error when the entry is nil.
type scriptedTransport struct {
	mu       sync.Mutex
	script   [][]byte
	attempts int
}

var errLinkDown = errors.New("link down")

func (s *scriptedTransport) Request(ctx context.Context, msg *messaging.Message) (*messaging.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.attempts
	s.attempts++
	if i >= len(s.script) || s.script[i] == nil {
		return nil, errLinkDown
	}
	return messaging.NewResponse(msg, s.script[i]).Build(), nil
}

// recorder keeps every event it observes.
type recorder struct {
	mu     sync.Mutex
	events []observability.Event
}

func (r *recorder) OnEvent(ctx context.Context, event observability.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recorder) Count(eventType observability.EventType) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for _, e := range r.events {
		if e.Type == eventType {
			n++
		}
	}
	return n
}
