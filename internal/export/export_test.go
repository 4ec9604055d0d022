package export

import (
	"strings"
	"testing"

	"scriptum/api/internal/store"
)

func ptr(v float64) *float64 { return &v }

func testVersion() *store.Version {
	return &store.Version{
		Doc:        "folder/episode.opus",
		Version:    3,
		BaseSHA256: "abc123",
		Text:       "hello world\nsecond line",
		Words: []store.Word{
			{Word: "hello", Start: ptr(0.0), End: ptr(0.5)},
			{Word: " "},
			{Word: "world", Start: ptr(0.5), End: ptr(1.0)},
			{Word: "\n"},
			{Word: "second", Start: ptr(1.2), End: ptr(1.6)},
			{Word: " "},
			{Word: "line", Start: ptr(1.6), End: ptr(2.0)},
		},
	}
}

func TestExportCSV(t *testing.T) {
	svc := NewService()
	res, err := svc.Export(testVersion(), "csv")
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	body := string(res.Data)
	if !strings.HasPrefix(body, "\ufeff") {
		t.Fatal("csv should start with a BOM")
	}
	if !strings.Contains(body, "hello world,0.000,1.000") {
		t.Fatalf("first segment row missing: %s", body)
	}
	if !strings.Contains(body, "second line,1.200,2.000") {
		t.Fatalf("second segment row missing: %s", body)
	}
	if res.MimeType != "text/csv; charset=utf-8" {
		t.Fatalf("mime %q", res.MimeType)
	}
	if !strings.HasSuffix(res.Filename, ".csv") {
		t.Fatalf("filename %q", res.Filename)
	}
}

func TestExportUnknownFormat(t *testing.T) {
	svc := NewService()
	if _, err := svc.Export(testVersion(), "docx"); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestTranscriptHTML(t *testing.T) {
	html := transcriptHTML(testVersion())
	for _, want := range []string{"folder/episode.opus", "version 3", "hello world", "second line"} {
		if !strings.Contains(html, want) {
			t.Fatalf("html missing %q", want)
		}
	}
	v := testVersion()
	v.Words = []store.Word{{Word: "<script>alert(1)</script>"}}
	if strings.Contains(transcriptHTML(v), "<script>alert") {
		t.Fatal("html must escape transcript text")
	}
}

func TestSanitizeFilename(t *testing.T) {
	if got := sanitizeFilename("folder/episode one.opus"); got != "folder-episode-oneopus" {
		t.Fatalf("sanitize = %q", got)
	}
	if sanitizeFilename("") != "transcript" {
		t.Fatal("empty title should fall back")
	}
}
