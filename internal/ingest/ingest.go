// Package ingest loads scraped documents and source lists from disk.
package ingest

import (
	"bufio"
	"crypto/md5"
	"encoding/csv"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sightline/sightline/pkg/sightline/pipeline"
)

// docFile is the on-disk shape written by the fetcher.
type docFile struct {
	UID     string `json:"uid"`
	URL     string `json:"url"`
	Title   string `json:"title"`
	Content string `json:"content"`
	Sector  string `json:"sector,omitempty"`
}

// UID derives a stable document identifier from the source identity.
func UID(parts ...string) string {
	sum := md5.Sum([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])
}

// LoadDir reads every .json document file in dir, sorted by filename.
// Malformed or empty files are logged and skipped so one bad scrape does
// not block the batch.
func LoadDir(dir string, logger *log.Logger) ([]pipeline.Document, error) {
	if logger == nil {
		logger = log.Default()
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read document dir: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".json") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	docs := make([]pipeline.Document, 0, len(names))
	for _, name := range names {
		path := filepath.Join(dir, name)
		raw, err := os.ReadFile(path)
		if err != nil {
			logger.Printf("ingest: skipping %s: %v", name, err)
			continue
		}
		var df docFile
		if err := json.Unmarshal(raw, &df); err != nil {
			logger.Printf("ingest: skipping %s: %v", name, err)
			continue
		}
		if df.Content == "" {
			logger.Printf("ingest: skipping %s: empty content", name)
			continue
		}
		docs = append(docs, toDocument(df))
	}
	return docs, nil
}

// LoadJSONL reads one document per line from r. A malformed line fails the
// load; unlike a scrape directory, a JSONL batch is a single artifact.
func LoadJSONL(r io.Reader) ([]pipeline.Document, error) {
	var docs []pipeline.Document
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 1024*1024), 16*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		var df docFile
		if err := json.Unmarshal([]byte(text), &df); err != nil {
			return nil, fmt.Errorf("jsonl line %d: %w", line, err)
		}
		docs = append(docs, toDocument(df))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("jsonl read: %w", err)
	}
	return docs, nil
}

func toDocument(df docFile) pipeline.Document {
	uid := df.UID
	if uid == "" {
		uid = UID(df.URL, df.Title)
	}
	return pipeline.Document{
		UID:    uid,
		URL:    df.URL,
		Title:  df.Title,
		Text:   df.Content,
		Sector: df.Sector,
	}
}

// Source is one row of the fetcher's input list.
type Source struct {
	URL    string
	Sector string
}

// LoadSources parses a CSV of url[,sector] rows. A header row starting
// with "url" is skipped.
func LoadSources(r io.Reader) ([]Source, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read sources: %w", err)
	}

	var sources []Source
	for i, rec := range records {
		if len(rec) == 0 {
			continue
		}
		url := strings.TrimSpace(rec[0])
		if url == "" {
			continue
		}
		if i == 0 && strings.EqualFold(url, "url") {
			continue
		}
		src := Source{URL: url}
		if len(rec) > 1 {
			src.Sector = strings.TrimSpace(rec[1])
		}
		sources = append(sources, src)
	}
	return sources, nil
}
