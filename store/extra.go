package store

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Extra holds the object keys a record does not model, in document order, so
// rewriting a file never drops fields written by other tools.
type Extra = OrderedMap[json.RawMessage]

// SplitExtra returns the keys of the JSON object data that are not in known.
// It returns nil when there are none.
func SplitExtra(data []byte, known ...string) (*Extra, error) {
	var all Extra
	if err := json.Unmarshal(data, &all); err != nil {
		return nil, err
	}
	for _, k := range known {
		all.Delete(k)
	}
	if all.Len() == 0 {
		return nil, nil
	}
	return &all, nil
}

// JoinExtra appends extra's keys to the encoded object fields. Keys already
// present in fields win.
func JoinExtra(fields []byte, extra *Extra) ([]byte, error) {
	if extra.Len() == 0 {
		return fields, nil
	}
	var present map[string]json.RawMessage
	if err := json.Unmarshal(fields, &present); err != nil {
		return nil, err
	}

	obj := bytes.TrimSpace(fields)
	if len(obj) < 2 || obj[len(obj)-1] != '}' {
		return nil, fmt.Errorf("expected JSON object, got %q", obj)
	}
	var buf bytes.Buffer
	buf.Write(obj[:len(obj)-1])
	empty := len(present) == 0
	for _, k := range extra.Keys() {
		if _, ok := present[k]; ok {
			continue
		}
		if !empty {
			buf.WriteByte(',')
		}
		empty = false
		if err := encodeRaw(&buf, k); err != nil {
			return nil, err
		}
		buf.WriteByte(':')
		v, _ := extra.Get(k)
		if err := encodeRaw(&buf, v); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
