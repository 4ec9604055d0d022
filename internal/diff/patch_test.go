package diff

import "testing"

func TestToEdits(t *testing.T) {
	base := "alpha bravo charlie"
	ops := Diff(base, "alpha BRAVO charlie")
	edits := ToEdits(ops)
	if len(edits) != 1 {
		t.Fatalf("expected 1 edit, got %v", edits)
	}
	e := edits[0]
	if base[e.Start:e.End] != "bravo" || e.Ins != "BRAVO" {
		t.Fatalf("unexpected edit %+v over %q", e, base)
	}
}

func TestToEditsPureInsert(t *testing.T) {
	base := "alpha charlie"
	edits := ToEdits(Diff(base, "alpha bravo charlie"))
	if len(edits) != 1 {
		t.Fatalf("expected 1 edit, got %v", edits)
	}
	if edits[0].Start != edits[0].End {
		t.Fatalf("insertion should be zero-width: %+v", edits[0])
	}
}

func TestApplyInverts(t *testing.T) {
	pairs := [][2]string{
		{"hello world", "hello brave new world"},
		{"one\ntwo\nthree", "one\n2\nthree\nfour"},
		{"", "from nothing"},
		{"to nothing", ""},
	}
	for _, p := range pairs {
		edits := ToEdits(Diff(p[0], p[1]))
		if got := Apply(p[0], edits); got != p[1] {
			t.Fatalf("Apply(%q) = %q, want %q", p[0], got, p[1])
		}
	}
}

func TestOverlaps(t *testing.T) {
	cases := []struct {
		name string
		a, b Edit
		want bool
	}{
		{"same insert point", Edit{5, 5, "x"}, Edit{5, 5, "y"}, true},
		{"distinct insert points", Edit{5, 5, "x"}, Edit{6, 6, "y"}, false},
		{"insert inside replace", Edit{4, 4, "x"}, Edit{2, 6, "y"}, true},
		{"insert at replace end", Edit{6, 6, "x"}, Edit{2, 6, "y"}, false},
		{"replaces intersect", Edit{2, 6, "x"}, Edit{5, 9, "y"}, true},
		{"replaces adjacent", Edit{2, 5, "x"}, Edit{5, 9, "y"}, false},
	}
	for _, tc := range cases {
		if got := Overlaps(tc.a, tc.b); got != tc.want {
			t.Fatalf("%s: Overlaps(%+v, %+v) = %v, want %v", tc.name, tc.a, tc.b, got, tc.want)
		}
		if got := Overlaps(tc.b, tc.a); got != tc.want {
			t.Fatalf("%s: Overlaps not symmetric", tc.name)
		}
	}
}

func TestMergeDisjointEdits(t *testing.T) {
	base := "alpha bravo charlie"
	latest := "alpha bravo charlie delta"
	mine := "alpha BRAVO charlie"
	merged, err := Merge(base, latest, mine)
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	if merged != "alpha BRAVO charlie delta" {
		t.Fatalf("merged = %q", merged)
	}
}

func TestMergeOrderIndependent(t *testing.T) {
	base := "one two three four"
	x := "ONE two three four"
	y := "one two three FOUR"
	m1, err := Merge(base, x, y)
	if err != nil {
		t.Fatalf("merge x,y: %v", err)
	}
	m2, err := Merge(base, y, x)
	if err != nil {
		t.Fatalf("merge y,x: %v", err)
	}
	if m1 != m2 {
		t.Fatalf("merge not order independent: %q vs %q", m1, m2)
	}
	if m1 != "ONE two three FOUR" {
		t.Fatalf("merged = %q", m1)
	}
}

func TestMergeOverlapRejected(t *testing.T) {
	base := "alpha bravo charlie"
	if _, err := Merge(base, "alpha beta charlie", "alpha BRAVO charlie"); err != ErrUnmergeable {
		t.Fatalf("expected ErrUnmergeable, got %v", err)
	}
}
