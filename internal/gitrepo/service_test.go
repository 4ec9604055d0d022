package gitrepo

import (
	"testing"
)

func TestCommitVersionAndHashes(t *testing.T) {
	svc := New(t.TempDir())
	doc := "folder/file.opus"

	h1, err := svc.CommitVersion(doc, 1, "hello world", "Avery")
	if err != nil {
		t.Fatalf("commit v1: %v", err)
	}
	if h1 == "" {
		t.Fatal("empty commit hash")
	}
	h2, err := svc.CommitVersion(doc, 2, "hello world!", "Avery")
	if err != nil {
		t.Fatalf("commit v2: %v", err)
	}
	if h1 == h2 {
		t.Fatal("distinct versions should commit distinct hashes")
	}

	hashes, err := svc.CommitHashes(doc)
	if err != nil {
		t.Fatalf("hashes: %v", err)
	}
	if hashes[1] != h1 || hashes[2] != h2 {
		t.Fatalf("hash map %v, want 1:%s 2:%s", hashes, h1, h2)
	}
}

func TestCommitHashesMissingRepo(t *testing.T) {
	svc := New(t.TempDir())
	hashes, err := svc.CommitHashes("never/saved.opus")
	if err != nil {
		t.Fatalf("hashes: %v", err)
	}
	if len(hashes) != 0 {
		t.Fatalf("expected empty map, got %v", hashes)
	}
}

func TestRepoPathFlattens(t *testing.T) {
	svc := New("/base")
	p := svc.repoPath(`a/b\c d`)
	if p != "/base/a__b__c_d" {
		t.Fatalf("repoPath = %q", p)
	}
}
