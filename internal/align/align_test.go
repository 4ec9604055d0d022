package align

import (
	"strings"
	"testing"

	"scriptum/api/internal/store"
)

func word(text string, start, end float64) store.Word {
	return store.Word{Word: text, Start: ptr(start), End: ptr(end)}
}

func bare(text string) store.Word { return store.Word{Word: text} }

func TestTokenizeWordsReassembles(t *testing.T) {
	cases := []string{
		"hello world",
		"hello  world\nsecond line",
		"\nleading newline",
		"trailing newline\n",
		"",
		"tabs\tand  spaces",
	}
	for _, text := range cases {
		toks := TokenizeWords(text)
		if got := ComposeText(toks); got != text {
			t.Fatalf("TokenizeWords(%q) reassembles to %q", text, got)
		}
	}
}

func TestTokenizeWordsNewlineTokens(t *testing.T) {
	toks := TokenizeWords("one\ntwo\nthree")
	var newlines int
	for _, w := range toks {
		if w.IsNewline() {
			newlines++
		}
	}
	if newlines != 2 {
		t.Fatalf("expected 2 newline tokens, got %d in %v", newlines, toks)
	}
}

func TestRealignKeepsUnchangedTimings(t *testing.T) {
	baseline := []store.Word{
		word("hello", 0.0, 0.5),
		word(" ", 0.5, 0.6),
		word("world", 0.6, 1.0),
	}
	res := Realign(baseline, "hello world")
	if got := ComposeText(res.Words); got != "hello world" {
		t.Fatalf("composed %q", got)
	}
	first := res.Words[0]
	if first.Start == nil || *first.Start != 0.0 || first.End == nil || *first.End != 0.5 {
		t.Fatalf("hello lost its timing: %+v", first)
	}
	last := res.Words[len(res.Words)-1]
	if last.Start == nil || *last.Start != 0.6 {
		t.Fatalf("world lost its timing: %+v", last)
	}
	if len(res.Blocks) != 0 {
		t.Fatalf("no timings changed, expected no blocks, got %v", res.Blocks)
	}
}

func TestRealignInterpolatesInsertion(t *testing.T) {
	baseline := []store.Word{
		word("alpha", 0.0, 1.0),
		word(" ", 1.0, 1.1),
		word("charlie", 2.0, 3.0),
	}
	res := Realign(baseline, "alpha bravo charlie")
	var bravo *store.Word
	for i := range res.Words {
		if res.Words[i].Word == "bravo" {
			bravo = &res.Words[i]
		}
	}
	if bravo == nil || bravo.Start == nil || bravo.End == nil {
		t.Fatalf("bravo not timed: %v", res.Words)
	}
	if *bravo.Start < 1.0-Epsilon || *bravo.End > 2.0+Epsilon {
		t.Fatalf("bravo outside window [1.0, 2.0]: start=%v end=%v", *bravo.Start, *bravo.End)
	}
	if *bravo.End-*bravo.Start < MinWordDuration-Epsilon {
		t.Fatalf("bravo shorter than minimum duration: %+v", bravo)
	}
	if len(res.Blocks) == 0 {
		t.Fatal("expected a timing block for the changed segment")
	}
}

func TestRealignMonotonic(t *testing.T) {
	baseline := []store.Word{
		word("one", 0.0, 0.4),
		word(" ", 0.4, 0.5),
		word("two", 0.5, 0.9),
		bare("\n"),
		word("three", 1.0, 1.4),
	}
	res := Realign(baseline, "one inserted two\nthree four")
	prevEnd := 0.0
	for i, w := range res.Words {
		if w.IsNewline() || strings.TrimSpace(w.Word) == "" {
			continue
		}
		if w.Start == nil || w.End == nil {
			t.Fatalf("word %d %q has no timing", i, w.Word)
		}
		if *w.Start < prevEnd-Epsilon {
			t.Fatalf("word %d %q start %v precedes previous end %v", i, w.Word, *w.Start, prevEnd)
		}
		if *w.End < *w.Start {
			t.Fatalf("word %d %q end before start", i, w.Word)
		}
		prevEnd = *w.End
	}
	if err := Validate(res.Words); err != nil {
		t.Fatalf("realigned words fail validation: %v", err)
	}
}

func TestIsFake(t *testing.T) {
	cases := []struct {
		v    float64
		want bool
	}{
		{9999999990.1, true},
		{999999999.0, false},
		{9999999991, true},
		{0.5, false},
		{12345, false},
	}
	for _, tc := range cases {
		if got := IsFake(tc.v); got != tc.want {
			t.Fatalf("IsFake(%v) = %v, want %v", tc.v, got, tc.want)
		}
	}
}

func TestValidateRejects(t *testing.T) {
	fake := []store.Word{word("x", 9999999990.1, 9999999990.2)}
	if err := Validate(fake); err == nil {
		t.Fatal("expected fake timing rejection")
	}
	backwards := []store.Word{{Word: "x", Start: ptr(2.0), End: ptr(1.0)}}
	if err := Validate(backwards); err == nil {
		t.Fatal("expected end-before-start rejection")
	}
	nonMono := []store.Word{word("a", 1.0, 2.0), word(" ", 2.0, 2.0), word("b", 0.5, 2.5)}
	if err := Validate(nonMono); err == nil {
		t.Fatal("expected non-monotonic rejection")
	}
}

func TestValidateAcceptsNil(t *testing.T) {
	words := []store.Word{bare("hello"), bare(" "), bare("world")}
	if err := Validate(words); err != nil {
		t.Fatalf("untimed words should validate: %v", err)
	}
}

func TestSanitize(t *testing.T) {
	neg := -1.0
	words := []store.Word{
		{Word: "a", Start: &neg, End: ptr(0.5)},
		{Word: "b", Start: ptr(1.0), End: ptr(0.5)},
	}
	out := Sanitize(words)
	if *out[0].Start != 0 {
		t.Fatalf("negative start should clamp to 0: %v", *out[0].Start)
	}
	if out[1].End != nil {
		t.Fatal("end before start should be dropped")
	}
}

func TestCarryOver(t *testing.T) {
	prev := []store.Word{
		word("hello", 0.0, 0.5),
		word(" ", 0.5, 0.6),
		word("world", 0.6, 1.0),
	}
	incoming := []store.Word{bare("hello"), bare(" "), bare("world"), bare("!")}
	out := CarryOver(prev, incoming)
	if out[0].Start == nil || *out[0].Start != 0.0 {
		t.Fatalf("hello did not inherit timing: %+v", out[0])
	}
	if out[2].End == nil || *out[2].End != 1.0 {
		t.Fatalf("world did not inherit timing: %+v", out[2])
	}
	if out[3].Start != nil {
		t.Fatalf("new token should stay untimed: %+v", out[3])
	}
}

func TestEnsureWordsMatchText(t *testing.T) {
	stale := []store.Word{bare("completely"), bare(" "), bare("different")}
	out := EnsureWordsMatchText("hello world", stale)
	if got := ComposeText(out); got != "hello world" {
		t.Fatalf("retokenized words compose to %q", got)
	}

	timed := []store.Word{word("anything", 0, 1)}
	if got := EnsureWordsMatchText("hello", timed); len(got) != 1 || got[0].Word != "anything" {
		t.Fatal("timed words must pass through untouched")
	}
}
