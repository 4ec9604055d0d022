package align

import (
	"math"
	"strings"

	"scriptum/api/internal/diff"
	"scriptum/api/internal/store"
)

// carryLookahead bounds how far ahead the carry-over matcher scans in
// the previous sequence before giving up on a token.
const carryLookahead = 64

// ComposeText concatenates word payloads into the version text.
func ComposeText(words []store.Word) string {
	var b strings.Builder
	for _, w := range words {
		b.WriteString(w.Word)
	}
	return b.String()
}

// Sanitize coerces incoming word tokens into the stored shape:
// negative times clamp to zero, NaN and Inf become null, and an end
// before its start is dropped.
func Sanitize(words []store.Word) []store.Word {
	out := make([]store.Word, len(words))
	for i, w := range words {
		out[i] = store.Word{
			Word:        w.Word,
			Start:       cleanNumber(w.Start),
			End:         cleanNumber(w.End),
			Probability: cleanNumber(w.Probability),
		}
		if out[i].Start != nil && out[i].End != nil && *out[i].End < *out[i].Start {
			out[i].End = nil
		}
	}
	return out
}

func cleanNumber(v *float64) *float64 {
	if v == nil {
		return nil
	}
	f := *v
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	if f < 0 {
		f = 0
	}
	return ptr(f)
}

// CarryOver enriches tokens that arrive without timings or probability
// by matching them against the previous version's sequence with a
// bounded forward scan.
func CarryOver(prev, words []store.Word) []store.Word {
	if len(prev) == 0 || len(words) == 0 {
		return words
	}
	out := make([]store.Word, len(words))
	copy(out, words)
	cursor := 0
	for i, w := range out {
		if w.IsNewline() {
			continue
		}
		timed := (w.Start != nil && *w.Start > 0) || (w.End != nil && *w.End > 0)
		hasProb := w.Probability != nil
		if timed && hasProb {
			continue
		}
		match := -1
		limit := cursor + carryLookahead
		if limit > len(prev) {
			limit = len(prev)
		}
		for j := cursor; j < limit; j++ {
			if prev[j].Word == w.Word {
				match = j
				break
			}
		}
		if match < 0 {
			continue
		}
		cursor = match + 1
		if !timed {
			out[i].Start = prev[match].Start
			out[i].End = prev[match].End
		}
		if !hasProb {
			out[i].Probability = prev[match].Probability
		}
	}
	return out
}

// EnsureWordsMatchText guards against editors that submit stale word
// arrays: when the submitted tokens carry no timing or probability data
// and do not compose to the submitted text, the text is retokenized
// and timings are carried over from the old tokens by subsequence
// match.
func EnsureWordsMatchText(text string, words []store.Word) []store.Word {
	for _, w := range words {
		if w.Start != nil || w.End != nil || w.Probability != nil {
			return words
		}
	}
	if relaxed(ComposeText(words)) == relaxed(text) {
		return words
	}
	fresh := TokenizeWords(text)
	return carryBySubsequence(words, fresh)
}

// carryBySubsequence copies timing fields across the equal pairs of a
// token-level longest common subsequence.
func carryBySubsequence(old, fresh []store.Word) []store.Word {
	if len(old) == 0 || len(fresh) == 0 {
		return fresh
	}
	oldStrings := make([]string, len(old))
	for i, w := range old {
		oldStrings[i] = w.Word
	}
	freshStrings := make([]string, len(fresh))
	for i, w := range fresh {
		freshStrings[i] = w.Word
	}
	out := make([]store.Word, len(fresh))
	copy(out, fresh)
	for _, m := range diff.Matches(oldStrings, freshStrings) {
		src := old[m[0]]
		if src.Start != nil {
			out[m[1]].Start = src.Start
		}
		if src.End != nil {
			out[m[1]].End = src.End
		}
		if src.Probability != nil {
			out[m[1]].Probability = src.Probability
		}
	}
	return out
}

// SegmentWindow splits words into the tokens before, inside, and after
// the segment range [startSeg, endSeg]. Newline separators on the
// window's outer edges stay with the surrounding slices, so
// before+window+after always reassembles the input.
func SegmentWindow(words []store.Word, startSeg, endSeg int) (before, window, after []store.Word) {
	seg := 0
	for i, w := range words {
		switch {
		case seg < startSeg:
			before = append(before, words[i])
		case seg <= endSeg:
			if w.IsNewline() && seg == endSeg {
				after = append(after, words[i])
			} else {
				window = append(window, words[i])
			}
		default:
			after = append(after, words[i])
		}
		if w.IsNewline() {
			seg++
		}
	}
	return before, window, after
}

// relaxed collapses text for loose equality: newlines become spaces and
// whitespace runs shrink to one space.
func relaxed(s string) string {
	s = strings.ReplaceAll(s, "\r", "")
	s = strings.ReplaceAll(s, "\u00a0", " ")
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.Join(strings.Fields(s), " ")
}
