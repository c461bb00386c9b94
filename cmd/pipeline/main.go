// Command pipeline runs the document extraction batch: load scraped
// documents, extract project records, and upsert them into the database.
package main

import (
	"context"
	"flag"
	"log"
	"os"

	"github.com/robfig/cron/v3"

	"github.com/sightline/sightline/internal/ingest"
	"github.com/sightline/sightline/internal/llm"
	"github.com/sightline/sightline/pkg/sightline"
	"github.com/sightline/sightline/pkg/sightline/config"
	"github.com/sightline/sightline/pkg/sightline/extract"
	"github.com/sightline/sightline/pkg/sightline/pipeline"
	"github.com/sightline/sightline/pkg/sightline/schema"
	"github.com/sightline/sightline/pkg/sightline/store/sqlite"
)

func main() {
	var (
		configPath = flag.String("config", "", "Config YAML path (required)")
		jsonlPath  = flag.String("jsonl", "", "JSONL document file (overrides the raw dir)")
		schedule   = flag.String("schedule", "", "Cron expression for periodic runs (overrides config)")
	)
	flag.Parse()

	if *configPath == "" {
		log.Fatal("--config required")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	sch, err := schema.Load(cfg.Schema.Fields, cfg.Schema.Categories)
	if err != nil {
		log.Fatal("Failed to load schema:", err)
	}

	ctx := context.Background()

	st, err := sqlite.Open(ctx, cfg.Database.Path, sch)
	if err != nil {
		log.Fatal("Failed to open database:", err)
	}
	defer st.Close()

	model, err := extract.NewModelExtractor(extract.NewGazetteer(sch), sch)
	if err != nil {
		log.Fatal("Failed to build model extractor:", err)
	}

	var resolver *extract.Resolver
	if cfg.LLM.BaseURL != "" && cfg.LLM.Model != "" {
		client := &llm.Client{
			BaseURL: cfg.LLM.BaseURL,
			APIKey:  cfg.APIKey(),
			Model:   cfg.LLM.Model,
		}
		resolver, err = extract.NewResolver(client, sch, extract.WithCacheSize(cfg.LLM.CacheSize))
		if err != nil {
			log.Fatal("Failed to build resolver:", err)
		}
	} else {
		log.Print("No LLM endpoint configured, running without LLM assistance")
	}

	p := pipeline.New(pipeline.Options{Schema: sch, Model: model, Resolver: resolver})

	engine, err := sightline.New(sightline.Options{
		Schema:   sch,
		Store:    st,
		Pipeline: p,
		Workers:  cfg.MaxWorkers,
	})
	if err != nil {
		log.Fatal("Failed to build engine:", err)
	}

	runOnce := func() {
		docs, err := loadDocuments(cfg, *jsonlPath)
		if err != nil {
			log.Print("Failed to load documents: ", err)
			return
		}
		if len(docs) == 0 {
			log.Print("No documents to process")
			return
		}
		for i := range docs {
			if docs[i].Sector == "" {
				docs[i].Sector = cfg.Sector
			}
		}
		summary, err := engine.ProcessBatch(ctx, docs)
		if err != nil {
			log.Print("Batch failed: ", err)
			return
		}
		log.Printf("Run %s complete: %d/%d documents processed", summary.RunID, summary.Processed, summary.Submitted)
	}

	spec := cfg.Schedule
	if *schedule != "" {
		spec = *schedule
	}
	if spec == "" {
		runOnce()
		return
	}

	c := cron.New()
	if _, err := c.AddFunc(spec, runOnce); err != nil {
		log.Fatal("Invalid schedule:", err)
	}
	log.Printf("Scheduled runs with %q", spec)
	runOnce()
	c.Run()
}

func loadDocuments(cfg *config.Config, jsonlPath string) ([]pipeline.Document, error) {
	if jsonlPath != "" {
		f, err := os.Open(jsonlPath)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return ingest.LoadJSONL(f)
	}
	return ingest.LoadDir(cfg.Data.RawDir, nil)
}
