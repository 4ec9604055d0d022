package diff

import (
	"errors"
	"sort"
)

// Edit is one positional replacement against a base text: the byte
// range [Start, End) is replaced by Ins. A pure insertion has
// Start == End; a pure deletion has Ins == "".
type Edit struct {
	Start int    `json:"start"`
	End   int    `json:"end"`
	Ins   string `json:"ins"`
}

// ErrUnmergeable is returned by Merge when the two edit streams touch
// overlapping ranges of the base text.
var ErrUnmergeable = errors.New("edits overlap, cannot auto-merge")

// ToEdits converts an edit script into positional edits against the
// script's old text. A delete opens a pending replacement, an insert
// that follows fills it, and an equal (or end of stream) flushes it.
func ToEdits(ops []Op) []Edit {
	var edits []Edit
	pos := 0
	pending := -1
	pendingEnd := 0
	pendingIns := ""

	flush := func() {
		if pending >= 0 {
			edits = append(edits, Edit{Start: pending, End: pendingEnd, Ins: pendingIns})
			pending = -1
			pendingIns = ""
		}
	}

	for _, op := range ops {
		switch op.Code {
		case Equal:
			flush()
			pos += len(op.Text)
		case Delete:
			flush()
			pending = pos
			pos += len(op.Text)
			pendingEnd = pos
		case Insert:
			if pending < 0 {
				pending = pos
				pendingEnd = pos
			}
			pendingIns += op.Text
			flush()
		}
	}
	flush()
	return edits
}

// Overlaps reports whether two edits against the same base collide:
// two pure insertions at the same position, an insertion inside a
// replaced range, or two replacements whose ranges intersect.
func Overlaps(a, b Edit) bool {
	aIns := a.Start == a.End
	bIns := b.Start == b.End
	switch {
	case aIns && bIns:
		return a.Start == b.Start
	case aIns:
		return a.Start >= b.Start && a.Start < b.End
	case bIns:
		return b.Start >= a.Start && b.Start < a.End
	default:
		return a.Start < b.End && b.Start < a.End
	}
}

// Apply splices edits into base. Edits are applied in descending start
// order (larger end first on ties) so earlier positions stay valid.
func Apply(base string, edits []Edit) string {
	sorted := make([]Edit, len(edits))
	copy(sorted, edits)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Start != sorted[j].Start {
			return sorted[i].Start > sorted[j].Start
		}
		return sorted[i].End > sorted[j].End
	})
	out := base
	for _, e := range sorted {
		out = out[:e.Start] + e.Ins + out[e.End:]
	}
	return out
}

// Merge composes two edit streams derived from a common base. When no
// edit from one stream overlaps an edit from the other, the union
// applies cleanly and the merged text is returned; otherwise
// ErrUnmergeable.
func Merge(base, latest, mine string) (string, error) {
	latestEdits := ToEdits(Diff(base, latest))
	mineEdits := ToEdits(Diff(base, mine))
	for _, le := range latestEdits {
		for _, me := range mineEdits {
			if Overlaps(le, me) {
				return "", ErrUnmergeable
			}
		}
	}
	union := make([]Edit, 0, len(latestEdits)+len(mineEdits))
	union = append(union, latestEdits...)
	union = append(union, mineEdits...)
	return Apply(base, union), nil
}
