// Command projects prints the persisted project records, or past batch
// runs with -runs.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"text/tabwriter"

	"github.com/sightline/sightline/pkg/sightline/config"
	"github.com/sightline/sightline/pkg/sightline/schema"
	"github.com/sightline/sightline/pkg/sightline/store/sqlite"
)

func main() {
	var (
		configPath = flag.String("config", "", "Config YAML path (required)")
		showRuns   = flag.Bool("runs", false, "List batch runs instead of projects")
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

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	defer w.Flush()

	if *showRuns {
		runs, err := st.Runs(ctx)
		if err != nil {
			log.Fatal("Failed to list runs:", err)
		}
		fmt.Fprintln(w, "RUN\tSTARTED\tSUBMITTED\tPROCESSED")
		for _, r := range runs {
			fmt.Fprintf(w, "%s\t%s\t%d\t%d\n", r.ID, r.StartedAt.Format("2006-01-02 15:04:05"), r.Submitted, r.Processed)
		}
		return
	}

	projects, err := st.Projects(ctx)
	if err != nil {
		log.Fatal("Failed to list projects:", err)
	}

	fields := sch.Fields()
	for i, f := range fields {
		if i > 0 {
			fmt.Fprint(w, "\t")
		}
		fmt.Fprint(w, f)
	}
	fmt.Fprintln(w)
	for _, p := range projects {
		for i, f := range fields {
			if i > 0 {
				fmt.Fprint(w, "\t")
			}
			fmt.Fprint(w, p[f])
		}
		fmt.Fprintln(w)
	}
}
