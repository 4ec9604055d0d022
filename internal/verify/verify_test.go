package verify

import (
	"encoding/json"
	"testing"

	"scriptum/api/internal/canon"
	"scriptum/api/internal/diff"
	"scriptum/api/internal/store"
)

func mustOps(t *testing.T, a, b string) string {
	t.Helper()
	data, err := json.Marshal(diff.Diff(a, b))
	if err != nil {
		t.Fatalf("marshal ops: %v", err)
	}
	return string(data)
}

func version(doc string, n int, text string) *store.Version {
	return &store.Version{
		Doc:        doc,
		Version:    n,
		Text:       text,
		BaseSHA256: canon.SHA256Hex(canon.Canonicalize(text)),
	}
}

func TestChainNoVersions(t *testing.T) {
	res := Chain(nil, nil, nil)
	if !res.Ok || res.Reason != ReasonNoVersion {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestChainMissingV1(t *testing.T) {
	res := Chain(nil, version("d", 3, "text"), nil)
	if res.Ok || res.Reason != ReasonMissingV1 {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestChainConverges(t *testing.T) {
	texts := []string{
		"hello world",
		"hello world!",
		"hello brave world!",
		"hello brave new world!",
	}
	v1 := version("d", 1, texts[0])
	latest := version("d", len(texts), texts[len(texts)-1])
	var edits []store.EditRecord
	for i := 1; i < len(texts); i++ {
		edits = append(edits, store.EditRecord{
			Doc:           "d",
			ParentVersion: i,
			ChildVersion:  i + 1,
			TextOps:       mustOps(t, texts[i-1], texts[i]),
		})
	}
	res := Chain(v1, latest, edits)
	if !res.Ok {
		t.Fatalf("chain should verify: %+v", res)
	}
	if res.Hash != latest.BaseSHA256 {
		t.Fatalf("hash %s != %s", res.Hash, latest.BaseSHA256)
	}
}

func TestChainSkipsOriginRecords(t *testing.T) {
	v1 := version("d", 1, "one")
	v3 := version("d", 3, "three")
	edits := []store.EditRecord{
		{ParentVersion: 1, ChildVersion: 2, TextOps: mustOps(t, "one", "two")},
		{ParentVersion: 1, ChildVersion: 3, TextOps: mustOps(t, "one", "three")},
		{ParentVersion: 2, ChildVersion: 3, TextOps: mustOps(t, "two", "three")},
	}
	res := Chain(v1, v3, edits)
	if !res.Ok {
		t.Fatalf("chain with origin records should verify: %+v", res)
	}
}

func TestChainBadOps(t *testing.T) {
	v1 := version("d", 1, "one")
	v2 := version("d", 2, "two")
	edits := []store.EditRecord{
		{ParentVersion: 1, ChildVersion: 2, TextOps: `{"not":"an array"}`},
	}
	res := Chain(v1, v2, edits)
	if res.Ok || res.Reason != ReasonBadOps || res.At != 2 {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestChainOpsMismatch(t *testing.T) {
	v1 := version("d", 1, "one")
	v2 := version("d", 2, "two")
	edits := []store.EditRecord{
		{ParentVersion: 1, ChildVersion: 2, TextOps: mustOps(t, "unrelated", "two")},
	}
	res := Chain(v1, v2, edits)
	if res.Ok || res.Reason != ReasonOpsMismatch || res.At != 2 {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestChainHashMismatch(t *testing.T) {
	v1 := version("d", 1, "one")
	latest := version("d", 2, "two")
	latest.BaseSHA256 = "0000000000000000000000000000000000000000000000000000000000000000"
	edits := []store.EditRecord{
		{ParentVersion: 1, ChildVersion: 2, TextOps: mustOps(t, "one", "two")},
	}
	res := Chain(v1, latest, edits)
	if res.Ok || res.Reason != ReasonHashMismatch {
		t.Fatalf("unexpected result %+v", res)
	}
	if res.Got == "" || res.Expected != latest.BaseSHA256 {
		t.Fatalf("mismatch details missing: %+v", res)
	}
}
