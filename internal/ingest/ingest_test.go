package ingest

import (
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b.json", `{"uid":"u2","url":"https://two","title":"Two","content":"second doc"}`)
	writeFile(t, dir, "a.json", `{"uid":"u1","url":"https://one","title":"One","content":"first doc","sector":"ldes"}`)
	writeFile(t, dir, "notes.txt", "not a document")

	docs, err := LoadDir(dir, log.New(io.Discard, "", 0))
	if err != nil {
		t.Fatalf("LoadDir: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("expected 2 documents, got %d", len(docs))
	}
	if docs[0].UID != "u1" || docs[1].UID != "u2" {
		t.Errorf("documents should sort by filename: %v", docs)
	}
	if docs[0].Sector != "ldes" || docs[0].Text != "first doc" {
		t.Errorf("doc fields = %+v", docs[0])
	}
}

func TestLoadDirSkipsBadFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "good.json", `{"uid":"ok","url":"https://ok","content":"text"}`)
	writeFile(t, dir, "broken.json", `{not json`)
	writeFile(t, dir, "empty.json", `{"uid":"e","url":"https://e","content":""}`)

	docs, err := LoadDir(dir, log.New(io.Discard, "", 0))
	if err != nil {
		t.Fatalf("LoadDir: %v", err)
	}
	if len(docs) != 1 || docs[0].UID != "ok" {
		t.Fatalf("docs = %v", docs)
	}
}

func TestLoadDirFillsMissingUID(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "doc.json", `{"url":"https://example.com/a","title":"A","content":"text"}`)

	docs, err := LoadDir(dir, log.New(io.Discard, "", 0))
	if err != nil {
		t.Fatal(err)
	}
	if len(docs) != 1 {
		t.Fatalf("docs = %v", docs)
	}
	if docs[0].UID != UID("https://example.com/a", "A") {
		t.Errorf("UID = %q", docs[0].UID)
	}
}

func TestUIDStable(t *testing.T) {
	a := UID("https://example.com", "Title")
	b := UID("https://example.com", "Title")
	if a != b {
		t.Errorf("UID must be deterministic: %s vs %s", a, b)
	}
	if len(a) != 32 {
		t.Errorf("UID should be a 32-char hex digest, got %q", a)
	}
	if a == UID("https://example.org", "Title") {
		t.Error("different sources must hash differently")
	}
}

func TestLoadJSONL(t *testing.T) {
	input := strings.Join([]string{
		`{"uid":"u1","url":"https://one","content":"first"}`,
		``,
		`{"uid":"u2","url":"https://two","content":"second","sector":"psh"}`,
	}, "\n")

	docs, err := LoadJSONL(strings.NewReader(input))
	if err != nil {
		t.Fatalf("LoadJSONL: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("expected 2 documents, got %d", len(docs))
	}
	if docs[1].Sector != "psh" {
		t.Errorf("Sector = %q", docs[1].Sector)
	}
}

func TestLoadJSONLMalformedLineFails(t *testing.T) {
	input := "{\"uid\":\"u1\",\"content\":\"ok\"}\nnot json\n"
	if _, err := LoadJSONL(strings.NewReader(input)); err == nil {
		t.Fatal("malformed line must fail the load")
	}
}

func TestLoadSources(t *testing.T) {
	input := "url,sector\nhttps://a.example/news,ldes\nhttps://b.example/pr\n\n"
	sources, err := LoadSources(strings.NewReader(input))
	if err != nil {
		t.Fatalf("LoadSources: %v", err)
	}
	if len(sources) != 2 {
		t.Fatalf("sources = %v", sources)
	}
	if sources[0].URL != "https://a.example/news" || sources[0].Sector != "ldes" {
		t.Errorf("sources[0] = %+v", sources[0])
	}
	if sources[1].Sector != "" {
		t.Errorf("sources[1] = %+v", sources[1])
	}
}

func TestLoadSourcesNoHeader(t *testing.T) {
	sources, err := LoadSources(strings.NewReader("https://a.example,caes\n"))
	if err != nil {
		t.Fatal(err)
	}
	if len(sources) != 1 || sources[0].URL != "https://a.example" {
		t.Errorf("sources = %v", sources)
	}
}
