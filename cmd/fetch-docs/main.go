// Command fetch-docs downloads source documents listed in a CSV and writes
// them as JSON files ready for the pipeline.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/sightline/sightline/internal/ingest"
)

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

const maxAttempts = 5

// docFile mirrors the shape the pipeline's ingest layer reads.
type docFile struct {
	UID     string `json:"uid"`
	URL     string `json:"url"`
	Title   string `json:"title"`
	Content string `json:"content"`
	Sector  string `json:"sector,omitempty"`
}

func main() {
	var (
		sourcesPath = flag.String("sources", "", "CSV of url[,sector] rows (required)")
		outDir      = flag.String("out", "data/raw", "Output directory for document JSON files")
	)
	flag.Parse()

	if *sourcesPath == "" {
		log.Fatal("--sources required")
	}

	f, err := os.Open(*sourcesPath)
	if err != nil {
		log.Fatal("Failed to open sources:", err)
	}
	sources, err := ingest.LoadSources(f)
	f.Close()
	if err != nil {
		log.Fatal("Failed to parse sources:", err)
	}
	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		log.Fatal("Failed to create output dir:", err)
	}

	log.Printf("Fetching %d sources...", len(sources))

	client := &http.Client{Timeout: 30 * time.Second}
	fetched := 0
	for _, src := range sources {
		body, contentType, err := fetchWithRetry(client, src.URL)
		if err != nil {
			log.Printf("Failed to fetch %s: %v", src.URL, err)
			continue
		}
		if !strings.Contains(contentType, "text/html") {
			log.Printf("Unsupported content type for %s: %s", src.URL, contentType)
			continue
		}

		title, text := extractHTML(string(body))
		if text == "" {
			log.Printf("No text extracted from %s", src.URL)
			continue
		}

		doc := docFile{
			UID:     ingest.UID(src.URL, src.Sector),
			URL:     src.URL,
			Title:   title,
			Content: text,
			Sector:  src.Sector,
		}
		path := filepath.Join(*outDir, docFilename(doc.UID, src.URL))
		if err := writeDoc(path, doc); err != nil {
			log.Printf("Failed to write %s: %v", path, err)
			continue
		}
		fetched++
		log.Printf("Saved %s -> %s", src.URL, path)
	}

	log.Printf("Done: %d/%d sources fetched", fetched, len(sources))
}

// fetchWithRetry gets a URL with exponential backoff plus jitter.
func fetchWithRetry(client *http.Client, target string) ([]byte, string, error) {
	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			delay := time.Duration(1<<(attempt-1))*time.Second + time.Duration(rand.Int63n(int64(time.Second)))
			time.Sleep(delay)
		}
		body, contentType, err := fetchOnce(client, target)
		if err == nil {
			return body, contentType, nil
		}
		lastErr = err
		log.Printf("Attempt %d failed for %s: %v", attempt+1, target, err)
	}
	return nil, "", lastErr
}

func fetchOnce(client *http.Client, target string) ([]byte, string, error) {
	req, err := http.NewRequest(http.MethodGet, target, nil)
	if err != nil {
		return nil, "", err
	}
	req.Header.Set("User-Agent", userAgent)
	resp, err := client.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", err
	}
	return body, resp.Header.Get("Content-Type"), nil
}

// extractHTML pulls the page title and visible text, skipping script and
// style subtrees.
func extractHTML(s string) (title, text string) {
	doc, err := html.Parse(strings.NewReader(s))
	if err != nil {
		return "", strings.TrimSpace(s)
	}

	var buf strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style":
				return
			case "title":
				if title == "" && n.FirstChild != nil && n.FirstChild.Type == html.TextNode {
					title = strings.TrimSpace(n.FirstChild.Data)
				}
			}
		}
		if n.Type == html.TextNode {
			if trimmed := strings.TrimSpace(n.Data); trimmed != "" {
				buf.WriteString(trimmed)
				buf.WriteByte('\n')
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return title, strings.TrimSpace(buf.String())
}

func docFilename(uid, target string) string {
	name := uid
	if u, err := url.Parse(target); err == nil {
		name = fmt.Sprintf("%s_%s%s", uid, u.Host, strings.ReplaceAll(u.Path, "/", "_"))
	}
	return name + ".json"
}

func writeDoc(path string, doc docFile) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
