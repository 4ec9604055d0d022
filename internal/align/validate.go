package align

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"scriptum/api/internal/store"
)

var (
	// ErrFakeTiming flags placeholder timing values that some upstream
	// tools emit instead of null.
	ErrFakeTiming = errors.New("fake timing value")
	// ErrInvalidTiming flags end-before-start or non-monotonic words.
	ErrInvalidTiming = errors.New("invalid timing")
)

var fakePattern = regexp.MustCompile(`^999999999\d`)

// IsFake reports whether v's decimal representation begins with the
// 999999999 placeholder prefix.
func IsFake(v float64) bool {
	return fakePattern.MatchString(strconv.FormatFloat(v, 'f', -1, 64))
}

// HasFake reports whether any word carries a fake start or end.
func HasFake(words []store.Word) bool {
	for _, w := range words {
		if w.Start != nil && IsFake(*w.Start) {
			return true
		}
		if w.End != nil && IsFake(*w.End) {
			return true
		}
	}
	return false
}

// Validate rejects word sequences that must never be persisted: fake
// placeholder timings, end < start, and non-monotonic transitions
// between consecutive word tokens beyond Epsilon.
func Validate(words []store.Word) error {
	prevEnd := 0.0
	havePrev := false
	for i, w := range words {
		if w.Start != nil && IsFake(*w.Start) {
			return fmt.Errorf("word %d start %v: %w", i, *w.Start, ErrFakeTiming)
		}
		if w.End != nil && IsFake(*w.End) {
			return fmt.Errorf("word %d end %v: %w", i, *w.End, ErrFakeTiming)
		}
		if w.Start != nil && w.End != nil && *w.End < *w.Start {
			return fmt.Errorf("word %d end %v before start %v: %w", i, *w.End, *w.Start, ErrInvalidTiming)
		}
		if w.IsNewline() || strings.TrimSpace(w.Word) == "" {
			continue
		}
		if w.Start != nil && w.End != nil {
			if havePrev && *w.Start < prevEnd-Epsilon {
				return fmt.Errorf("word %d start %v precedes previous end %v: %w", i, *w.Start, prevEnd, ErrInvalidTiming)
			}
			prevEnd = *w.End
			havePrev = true
		}
	}
	return nil
}

// StripTimings returns a copy of words with all timing and probability
// fields cleared. Used when incoming timings fail validation but the
// textual save should still proceed.
func StripTimings(words []store.Word) []store.Word {
	out := make([]store.Word, len(words))
	for i, w := range words {
		out[i] = store.Word{Word: w.Word}
	}
	return out
}
