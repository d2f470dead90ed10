package net

import (
	"encoding/json"
	"fmt"

	"github.com/crawld/server/internal/core/store"
)

// MaxFrame bounds one newline-delimited JSON frame in either direction.
const MaxFrame = 64 * 1024

// Request is one inbound frame. Op selects which fields matter:
//
//	hello  name, secret, seq
//	cmd    name, args, seq
//	sub    tables, seq
type Request struct {
	Op     string          `json:"op"`
	Seq    uint64          `json:"seq"`
	Name   string          `json:"name,omitempty"`
	Secret string          `json:"secret,omitempty"`
	Args   json.RawMessage `json:"args,omitempty"`
	Tables []string        `json:"tables,omitempty"`
}

// Reply answers one request by seq. Identity is set on a successful hello.
type Reply struct {
	Op       string `json:"op"`
	Seq      uint64 `json:"seq"`
	OK       bool   `json:"ok"`
	Error    string `json:"error,omitempty"`
	Identity uint64 `json:"identity,omitempty"`
}

// RowUpdate publishes one committed row write. Row is absent for deletes;
// Key identifies the row either way.
type RowUpdate struct {
	Op    string `json:"op"`
	Table string `json:"table"`
	Kind  string `json:"kind"`
	Key   any    `json:"key"`
	Row   any    `json:"row,omitempty"`
}

// MarshalFrame renders v as one newline-terminated frame.
func MarshalFrame(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	if len(data)+1 > MaxFrame {
		return nil, fmt.Errorf("frame too large: %d bytes", len(data)+1)
	}
	return append(data, '\n'), nil
}

// MarshalRow renders a journal event as a row frame. Marshal once, send to
// every subscriber.
func MarshalRow(ev store.RowEvent) ([]byte, error) {
	return MarshalFrame(RowUpdate{
		Op:    "row",
		Table: ev.Table,
		Kind:  ev.Kind.String(),
		Key:   ev.Key,
		Row:   ev.Row,
	})
}

func reply(seq uint64, err string) *Reply {
	return &Reply{Op: "reply", Seq: seq, OK: err == "", Error: err}
}
