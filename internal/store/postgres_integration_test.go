package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"scriptum/api/internal/canon"
)

func getTestDatabaseURL(t *testing.T) string {
	t.Helper()
	url := os.Getenv("SCRIPTUM_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("SCRIPTUM_TEST_DATABASE_URL not set; skipping integration test")
	}
	return url
}

func openTestStore(t *testing.T) *PostgresStore {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	ctx := context.Background()
	db, err := Open(ctx, getTestDatabaseURL(t))
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := ApplyMigrations(ctx, db, "../../db/migrations"); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	return NewPostgresStore(db)
}

func testDoc(t *testing.T) string {
	return fmt.Sprintf("test/%s-%d.opus", t.Name(), time.Now().UnixNano())
}

func TestInsertVersionsAreGapFree(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	doc := testDoc(t)

	first, err := s.Insert(ctx, InsertParams{Doc: doc, Text: "one"})
	if err != nil {
		t.Fatalf("insert v1: %v", err)
	}
	if first.Version != 1 {
		t.Fatalf("first version = %d", first.Version)
	}

	parent := 1
	second, err := s.Insert(ctx, InsertParams{
		Doc:                doc,
		ParentVersion:      &parent,
		ExpectedBaseSHA256: first.BaseSHA256,
		Text:               "two",
	})
	if err != nil {
		t.Fatalf("insert v2: %v", err)
	}
	if second.Version != 2 {
		t.Fatalf("second version = %d", second.Version)
	}

	history, err := s.History(ctx, doc)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	for i, m := range history {
		if m.Version != i+1 {
			t.Fatalf("versions not gap-free: %+v", history)
		}
	}
}

func TestInsertConflictExclusivity(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	doc := testDoc(t)

	first, err := s.Insert(ctx, InsertParams{Doc: doc, Text: "base"})
	if err != nil {
		t.Fatalf("insert v1: %v", err)
	}

	const writers = 6
	var wg sync.WaitGroup
	var mu sync.Mutex
	wins, conflicts := 0, 0
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			parent := 1
			_, err := s.Insert(ctx, InsertParams{
				Doc:                doc,
				ParentVersion:      &parent,
				ExpectedBaseSHA256: first.BaseSHA256,
				Text:               fmt.Sprintf("base %d", i),
			})
			mu.Lock()
			defer mu.Unlock()
			var conflict *Conflict
			switch {
			case err == nil:
				wins++
			case errors.As(err, &conflict):
				conflicts++
				if conflict.Latest == nil || conflict.Latest.Version != 2 {
					t.Errorf("conflict should report latest v2: %+v", conflict)
				}
			default:
				t.Errorf("writer %d: %v", i, err)
			}
		}(i)
	}
	wg.Wait()
	if wins != 1 || conflicts != writers-1 {
		t.Fatalf("wins=%d conflicts=%d", wins, conflicts)
	}
}

func TestInsertCanonicalizesAndHashes(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	doc := testDoc(t)

	res, err := s.Insert(ctx, InsertParams{Doc: doc, Text: "line one   \r\nline two"})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	want := canon.Canonicalize("line one   \r\nline two")
	v, err := s.Get(ctx, doc, res.Version)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if v.Text != want {
		t.Fatalf("stored text %q, want %q", v.Text, want)
	}
	if v.BaseSHA256 != canon.SHA256Hex(want) {
		t.Fatalf("hash mismatch")
	}
}

func TestWordsPagingBySegment(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	doc := testDoc(t)

	words := []Word{
		{Word: "a", Start: ptr(0.0), End: ptr(0.2)},
		{Word: "\n"},
		{Word: "b", Start: ptr(0.3), End: ptr(0.5)},
		{Word: "\n"},
		{Word: "c", Start: ptr(0.6), End: ptr(0.8)},
	}
	res, err := s.Insert(ctx, InsertParams{Doc: doc, Text: "a\nb\nc", Words: words})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	page, err := s.Words(ctx, doc, res.Version, 1, 1)
	if err != nil {
		t.Fatalf("words: %v", err)
	}
	if composeWords(page) != "b" {
		t.Fatalf("segment 1 = %q", composeWords(page))
	}

	all, err := s.Words(ctx, doc, res.Version, -1, 0)
	if err != nil {
		t.Fatalf("all words: %v", err)
	}
	if composeWords(all) != "a\nb\nc" {
		t.Fatalf("all = %q", composeWords(all))
	}
}

func TestReplaceConfirmationsSwapsSet(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	doc := testDoc(t)

	res, err := s.Insert(ctx, InsertParams{Doc: doc, Text: "abcdef"})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	put := func(items []Confirmation) {
		t.Helper()
		if err := s.ReplaceConfirmations(ctx, doc, res.Version, res.BaseSHA256, items); err != nil {
			t.Fatalf("replace: %v", err)
		}
	}
	put([]Confirmation{
		{StartOffset: 0, EndOffset: 3, Exact: "abc"},
		{StartOffset: 3, EndOffset: 6, Exact: "def"},
	})
	put([]Confirmation{{StartOffset: 0, EndOffset: 6, Exact: "abcdef"}})

	items, err := s.Confirmations(ctx, doc, res.Version)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 1 || items[0].Exact != "abcdef" {
		t.Fatalf("confirmations not replaced: %+v", items)
	}
}

func TestEditRecordsReplayable(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	doc := testDoc(t)

	first, err := s.Insert(ctx, InsertParams{Doc: doc, Text: "hello world"})
	if err != nil {
		t.Fatalf("insert v1: %v", err)
	}
	parent := 1
	if _, err := s.Insert(ctx, InsertParams{
		Doc:                doc,
		ParentVersion:      &parent,
		ExpectedBaseSHA256: first.BaseSHA256,
		Text:               "hello world!",
	}); err != nil {
		t.Fatalf("insert v2: %v", err)
	}

	edits, err := s.Edits(ctx, doc)
	if err != nil {
		t.Fatalf("edits: %v", err)
	}
	var found bool
	for _, e := range edits {
		if e.ParentVersion == 1 && e.ChildVersion == 2 {
			found = true
			if e.TextOps == "" {
				t.Fatal("edit record has no ops")
			}
		}
	}
	if !found {
		t.Fatalf("parent→child record missing: %+v", edits)
	}
}
