// Package diff produces minimal, invertible edit scripts between two
// canonical texts, and composes them into positional edits.
package diff

import (
	"encoding/json"
	"fmt"
)

// Code classifies an op segment.
type Code int

const (
	Delete Code = -1
	Equal  Code = 0
	Insert Code = 1
)

// Op is one segment of an edit script. The script reproduces the old
// text by concatenating payloads with Code != Insert and the new text
// by concatenating payloads with Code != Delete.
type Op struct {
	Code Code
	Text string
}

// MarshalJSON encodes an op as the two-element array [code, text].
func (o Op) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]any{int(o.Code), o.Text})
}

// UnmarshalJSON decodes the [code, text] array form.
func (o *Op) UnmarshalJSON(data []byte) error {
	var raw [2]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("op must be a [code, text] pair: %w", err)
	}
	var code int
	if err := json.Unmarshal(raw[0], &code); err != nil {
		return fmt.Errorf("op code: %w", err)
	}
	if code < -1 || code > 1 {
		return fmt.Errorf("op code out of range: %d", code)
	}
	var text string
	if err := json.Unmarshal(raw[1], &text); err != nil {
		return fmt.Errorf("op text: %w", err)
	}
	o.Code = Code(code)
	o.Text = text
	return nil
}

// ReconstructOld concatenates payloads with code != Insert.
func ReconstructOld(ops []Op) string {
	var size int
	for _, op := range ops {
		if op.Code != Insert {
			size += len(op.Text)
		}
	}
	buf := make([]byte, 0, size)
	for _, op := range ops {
		if op.Code != Insert {
			buf = append(buf, op.Text...)
		}
	}
	return string(buf)
}

// ReconstructNew concatenates payloads with code != Delete.
func ReconstructNew(ops []Op) string {
	var size int
	for _, op := range ops {
		if op.Code != Delete {
			size += len(op.Text)
		}
	}
	buf := make([]byte, 0, size)
	for _, op := range ops {
		if op.Code != Delete {
			buf = append(buf, op.Text...)
		}
	}
	return string(buf)
}

// roundTrips reports whether ops reproduce both inputs exactly.
func roundTrips(ops []Op, a, b string) bool {
	return ReconstructOld(ops) == a && ReconstructNew(ops) == b
}

// normalize drops empty payloads and merges runs of identical codes.
// The order of the remaining ops is kept as given.
func normalize(ops []Op) []Op {
	out := make([]Op, 0, len(ops))
	for _, op := range ops {
		if op.Text == "" {
			continue
		}
		if n := len(out); n > 0 && out[n-1].Code == op.Code {
			out[n-1].Text += op.Text
			continue
		}
		out = append(out, op)
	}
	return out
}
