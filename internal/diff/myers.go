package diff

import (
	"errors"
	"time"
)

// errBudget aborts a Myers run when the soft time budget is spent; the
// caller cascades to a coarser strategy.
var errBudget = errors.New("diff budget exhausted")

// budgetCheckInterval controls how often the inner loop looks at the
// clock. Checking every diagonal is too hot for large inputs.
const budgetCheckInterval = 64

// myers computes a token-level edit script between sequences a and b
// using the O(ND) greedy algorithm. Tie-break is fixed so output is
// byte-identical across runs and platforms: at the lower extreme
// (k == -d), or when k < d and v[k-1] < v[k+1], the down move
// (insertion) wins; otherwise, including the upper extreme (k == d),
// the right move (deletion).
func myers(a, b []string, deadline time.Time) ([]Op, error) {
	n, m := len(a), len(b)
	if n == 0 && m == 0 {
		return nil, nil
	}
	max := n + m
	offset := max
	v := make([]int, 2*max+1)
	trace := make([][]int, 0, max+1)

	for d := 0; d <= max; d++ {
		if d%budgetCheckInterval == 0 && !deadline.IsZero() && time.Now().After(deadline) {
			return nil, errBudget
		}
		snapshot := make([]int, len(v))
		copy(snapshot, v)
		trace = append(trace, snapshot)
		for k := -d; k <= d; k += 2 {
			var x int
			if k == -d || (k != d && v[offset+k-1] < v[offset+k+1]) {
				x = v[offset+k+1]
			} else {
				x = v[offset+k-1] + 1
			}
			y := x - k
			for x < n && y < m && a[x] == b[y] {
				x++
				y++
			}
			v[offset+k] = x
			if x >= n && y >= m {
				return backtrack(a, b, trace, d), nil
			}
		}
	}
	return nil, errors.New("diff did not converge")
}

// backtrack replays the trace from the final d back to the origin and
// emits ops front-to-back.
func backtrack(a, b []string, trace [][]int, d int) []Op {
	n, m := len(a), len(b)
	offset := n + m
	x, y := n, m

	type step struct {
		op   Code
		text string
	}
	var rev []step

	for ; d > 0; d-- {
		v := trace[d]
		k := x - y
		var prevK int
		if k == -d || (k != d && v[offset+k-1] < v[offset+k+1]) {
			prevK = k + 1
		} else {
			prevK = k - 1
		}
		prevX := trace[d][offset+prevK]
		prevY := prevX - prevK

		for x > prevX && y > prevY {
			x--
			y--
			rev = append(rev, step{Equal, a[x]})
		}
		if prevK == k+1 {
			y--
			rev = append(rev, step{Insert, b[y]})
		} else {
			x--
			rev = append(rev, step{Delete, a[x]})
		}
	}
	for x > 0 && y > 0 {
		x--
		y--
		rev = append(rev, step{Equal, a[x]})
	}

	ops := make([]Op, 0, len(rev))
	for i := len(rev) - 1; i >= 0; i-- {
		ops = append(ops, Op{rev[i].op, rev[i].text})
	}
	return normalize(ops)
}

// Matches returns the (i, j) index pairs of a longest common
// subsequence of two token slices, in ascending order. The pairing is
// deterministic: it follows the same tie-break as myers.
func Matches(a, b []string) [][2]int {
	n, m := len(a), len(b)
	if n == 0 || m == 0 {
		return nil
	}
	max := n + m
	offset := max
	v := make([]int, 2*max+1)
	trace := make([][]int, 0, max+1)

	final := -1
	for d := 0; d <= max && final < 0; d++ {
		snapshot := make([]int, len(v))
		copy(snapshot, v)
		trace = append(trace, snapshot)
		for k := -d; k <= d; k += 2 {
			var x int
			if k == -d || (k != d && v[offset+k-1] < v[offset+k+1]) {
				x = v[offset+k+1]
			} else {
				x = v[offset+k-1] + 1
			}
			y := x - k
			for x < n && y < m && a[x] == b[y] {
				x++
				y++
			}
			v[offset+k] = x
			if x >= n && y >= m {
				final = d
				break
			}
		}
	}

	var rev [][2]int
	x, y := n, m
	for d := final; d > 0; d-- {
		v := trace[d]
		k := x - y
		var prevK int
		if k == -d || (k != d && v[offset+k-1] < v[offset+k+1]) {
			prevK = k + 1
		} else {
			prevK = k - 1
		}
		prevX := v[offset+prevK]
		prevY := prevX - prevK
		for x > prevX && y > prevY {
			x--
			y--
			rev = append(rev, [2]int{x, y})
		}
		if prevK == k+1 {
			y--
		} else {
			x--
		}
	}
	for x > 0 && y > 0 {
		x--
		y--
		rev = append(rev, [2]int{x, y})
	}

	out := make([][2]int, 0, len(rev))
	for i := len(rev) - 1; i >= 0; i-- {
		out = append(out, rev[i])
	}
	return out
}

// splitRunes explodes s into per-rune strings for character Myers.
func splitRunes(s string) []string {
	out := make([]string, 0, len(s))
	for _, r := range s {
		out = append(out, string(r))
	}
	return out
}
