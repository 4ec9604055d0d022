package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strings"

	"scriptum/api/internal/store"
)

// exportCSV writes one row per segment with its text and time bounds.
// The UTF-8 BOM keeps Excel happy with non-ASCII transcripts.
func exportCSV(v *store.Version) (*Result, error) {
	var buf bytes.Buffer
	buf.WriteString("\ufeff")
	w := csv.NewWriter(&buf)
	if err := w.Write([]string{"Source", "Text", "Start Time", "End Time"}); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}

	for _, seg := range segments(v.Words) {
		row := []string{v.Doc, seg.text, "", ""}
		if seg.start != nil {
			row[2] = fmt.Sprintf("%.3f", *seg.start)
		}
		if seg.end != nil {
			row[3] = fmt.Sprintf("%.3f", *seg.end)
		}
		if err := w.Write(row); err != nil {
			return nil, fmt.Errorf("write csv row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}

	return &Result{
		Data:     buf.Bytes(),
		Filename: sanitizeFilename(v.Doc) + ".csv",
		MimeType: "text/csv; charset=utf-8",
	}, nil
}

type segment struct {
	text  string
	start *float64
	end   *float64
}

// segments groups words into newline-delimited segments with their
// time bounds.
func segments(words []store.Word) []segment {
	var out []segment
	var cur segment
	var parts []string
	flush := func() {
		cur.text = strings.Join(strings.Fields(strings.Join(parts, "")), " ")
		if cur.text != "" || cur.start != nil {
			out = append(out, cur)
		}
		cur = segment{}
		parts = nil
	}
	for _, w := range words {
		if w.IsNewline() {
			flush()
			continue
		}
		parts = append(parts, w.Word)
		if w.Start != nil && cur.start == nil {
			cur.start = w.Start
		}
		if w.End != nil {
			cur.end = w.End
		}
	}
	flush()
	return out
}
