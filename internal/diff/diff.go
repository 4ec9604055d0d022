package diff

import (
	"regexp"
	"strings"
	"time"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// DefaultBudget bounds a single diff computation. On exhaustion the
// engine falls back to coarser strategies rather than failing.
const DefaultBudget = 800 * time.Millisecond

// wordPattern tokenizes chunk text for word-level refinement:
// whitespace runs, letter/digit/mark runs, then any single other rune.
var wordPattern = regexp.MustCompile(`\s+|[\p{L}\p{N}\p{M}]+|[^\s\p{L}\p{N}\p{M}]`)

// Tokenize splits s into whitespace runs, word runs, and single
// punctuation runes. Concatenating the tokens reproduces s.
func Tokenize(s string) []string {
	if s == "" {
		return nil
	}
	return wordPattern.FindAllString(s, -1)
}

// Diff computes an invertible edit script taking a to b. Inputs must
// already be canonical; the ops round-trip both of them exactly.
func Diff(a, b string) []Op {
	return DiffWithBudget(a, b, DefaultBudget)
}

// DiffWithBudget is Diff with an explicit soft time budget.
func DiffWithBudget(a, b string, budget time.Duration) []Op {
	if a == b {
		if a == "" {
			return nil
		}
		return []Op{{Equal, a}}
	}
	deadline := time.Now().Add(budget)

	if ops := lineAnchoredDiff(a, b, deadline); ops != nil && roundTrips(ops, a, b) {
		return ops
	}
	if ops := trimmedCharDiff(a, b, deadline); ops != nil && roundTrips(ops, a, b) {
		return ops
	}
	if ops := semanticDiff(a, b); roundTrips(ops, a, b) {
		return ops
	}
	return normalize([]Op{{Delete, a}, {Insert, b}})
}

// splitLines splits on '\n' keeping the newline on each line, so the
// concatenation of the pieces reproduces the input.
func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for {
		i := strings.IndexByte(s, '\n')
		if i < 0 {
			if s != "" {
				out = append(out, s)
			}
			return out
		}
		out = append(out, s[:i+1])
		s = s[i+1:]
	}
}

// lineAnchoredDiff strips common prefix and suffix lines, then diffs
// the middle: a 1:1 replaced line refines directly at word level,
// anything larger goes through line Myers with word refinement of
// paired delete/insert chunks.
func lineAnchoredDiff(a, b string, deadline time.Time) []Op {
	la, lb := splitLines(a), splitLines(b)

	prefix := 0
	for prefix < len(la) && prefix < len(lb) && la[prefix] == lb[prefix] {
		prefix++
	}
	suffix := 0
	for suffix < len(la)-prefix && suffix < len(lb)-prefix &&
		la[len(la)-1-suffix] == lb[len(lb)-1-suffix] {
		suffix++
	}

	midA := la[prefix : len(la)-suffix]
	midB := lb[prefix : len(lb)-suffix]

	var ops []Op
	if p := strings.Join(la[:prefix], ""); p != "" {
		ops = append(ops, Op{Equal, p})
	}

	mid, err := middleDiff(midA, midB, deadline)
	if err != nil {
		return nil
	}
	ops = append(ops, mid...)

	if s := strings.Join(la[len(la)-suffix:], ""); s != "" {
		ops = append(ops, Op{Equal, s})
	}
	return normalize(ops)
}

func middleDiff(midA, midB []string, deadline time.Time) ([]Op, error) {
	if len(midA) == 0 && len(midB) == 0 {
		return nil, nil
	}
	if len(midA) == 1 && len(midB) == 1 {
		return wordDiff(midA[0], midB[0], deadline), nil
	}

	lineOps, err := myers(midA, midB, deadline)
	if err != nil {
		return nil, err
	}

	// Pair each deletion chunk with the insertion chunk that follows it
	// and refine the pair at word granularity; lone chunks stay raw.
	var out []Op
	for i := 0; i < len(lineOps); i++ {
		op := lineOps[i]
		if op.Code == Delete && i+1 < len(lineOps) && lineOps[i+1].Code == Insert {
			out = append(out, wordDiff(op.Text, lineOps[i+1].Text, deadline)...)
			i++
			continue
		}
		out = append(out, op)
	}
	return out, nil
}

// wordDiff refines a replaced chunk pair at token granularity, falling
// back to character Myers when token reconstruction fails.
func wordDiff(a, b string, deadline time.Time) []Op {
	ops, err := myers(Tokenize(a), Tokenize(b), deadline)
	if err == nil && roundTrips(ops, a, b) {
		return ops
	}
	return charDiff(a, b, deadline)
}

func charDiff(a, b string, deadline time.Time) []Op {
	ops, err := myers(splitRunes(a), splitRunes(b), deadline)
	if err == nil && roundTrips(ops, a, b) {
		return ops
	}
	return normalize([]Op{{Delete, a}, {Insert, b}})
}

// trimmedCharDiff strips the common rune prefix and suffix, then runs
// character Myers over what remains.
func trimmedCharDiff(a, b string, deadline time.Time) []Op {
	ra, rb := []rune(a), []rune(b)
	prefix := 0
	for prefix < len(ra) && prefix < len(rb) && ra[prefix] == rb[prefix] {
		prefix++
	}
	suffix := 0
	for suffix < len(ra)-prefix && suffix < len(rb)-prefix &&
		ra[len(ra)-1-suffix] == rb[len(rb)-1-suffix] {
		suffix++
	}

	midA := string(ra[prefix : len(ra)-suffix])
	midB := string(rb[prefix : len(rb)-suffix])

	var ops []Op
	if prefix > 0 {
		ops = append(ops, Op{Equal, string(ra[:prefix])})
	}
	mid, err := myers(splitRunes(midA), splitRunes(midB), deadline)
	if err != nil {
		return nil
	}
	ops = append(ops, mid...)
	if suffix > 0 {
		ops = append(ops, Op{Equal, string(ra[len(ra)-suffix:])})
	}
	return normalize(ops)
}

// semanticDiff is the third-party fallback: diffmatchpatch with
// semantic cleanup, converted to our op form.
func semanticDiff(a, b string) []Op {
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffCleanupSemantic(dmp.DiffMain(a, b, false))
	ops := make([]Op, 0, len(diffs))
	for _, d := range diffs {
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			ops = append(ops, Op{Delete, d.Text})
		case diffmatchpatch.DiffInsert:
			ops = append(ops, Op{Insert, d.Text})
		default:
			ops = append(ops, Op{Equal, d.Text})
		}
	}
	return normalize(ops)
}
