// Package pipeline composes the per-document extraction flow:
// clean → {rules, technologies, model, LLM} → merge → categorize → validate.
package pipeline

import (
	"context"
	"strings"

	"github.com/sightline/sightline/pkg/sightline/category"
	"github.com/sightline/sightline/pkg/sightline/extract"
	"github.com/sightline/sightline/pkg/sightline/schema"
	"github.com/sightline/sightline/pkg/sightline/textnorm"
	"github.com/sightline/sightline/pkg/sightline/validate"
)

// Document is one unit of pipeline work. Created by the ingestion layer,
// consumed exactly once, never mutated.
type Document struct {
	UID    string
	URL    string
	Title  string
	Text   string
	Sector string
}

// Result is the outcome of one document's pipeline run. Issues carries the
// validation errors; a document with issues still yields a partially valid
// record.
type Result struct {
	UID    string
	Record map[string]string
	Issues []string
}

// Pipeline runs the full extraction flow for single documents. Safe for
// concurrent use: all shared state is read-only after construction except
// the resolver's own cache.
type Pipeline struct {
	schema    *schema.Schema
	model     *extract.ModelExtractor
	resolver  *extract.Resolver
	matcher   *category.Matcher
	validator *validate.Validator
}

// Options wires a pipeline's collaborators. Resolver may be nil to run
// without LLM assistance.
type Options struct {
	Schema   *schema.Schema
	Model    *extract.ModelExtractor
	Resolver *extract.Resolver
}

// New creates a pipeline.
func New(opts Options) *Pipeline {
	return &Pipeline{
		schema:    opts.Schema,
		model:     opts.Model,
		resolver:  opts.Resolver,
		matcher:   category.NewMatcher(opts.Schema),
		validator: validate.New(opts.Schema),
	}
}

const defaultSector = "ldes"

// Process runs one document through the pipeline and returns the validated
// record plus validation issues. Extraction-source failures inside the
// stages degrade to empty contributions; Process itself only fails on an
// unusable document.
func (p *Pipeline) Process(ctx context.Context, doc Document) Result {
	sector := doc.Sector
	if sector == "" {
		sector = defaultSector
	}
	text := textnorm.Normalize(doc.Text)

	// Probabilistic sources first: model spans, then LLM resolution of
	// whatever terminology the model left ambiguous. LLM wins collisions
	// between the two.
	specs := p.model.Extract(text)
	if p.resolver != nil {
		resolved := p.resolver.Resolve(ctx, text, flatten(specs), sector)
		specs = extract.Merge(specs, resolved)
	}

	p.categorize(specs)

	// Literal regex matches overlay last: explicit beats probabilistic.
	record := flatten(specs)
	for field, value := range extract.Rules(text) {
		record[field] = value
	}

	if vocab, ok := p.schema.Categories(schema.FieldTechnology); ok {
		if techs := extract.Technologies(text, vocab); len(techs) > 0 {
			record[schema.FieldTechnology] = strings.Join(techs, ", ")
		}
	}

	record = textnorm.CleanRecord(p.schema, record)
	validated, issues := p.validator.Validate(record)

	return Result{UID: doc.UID, Record: validated, Issues: issues}
}

// categorize canonicalizes categorical values in place and standardizes the
// developer name. A category match caps the field's confidence at the
// match confidence.
func (p *Pipeline) categorize(specs extract.Fields) {
	for field, f := range specs {
		if kind, ok := p.schema.Kind(field); ok && kind == schema.KindCategorical {
			canonical, matchConf := p.matcher.Match(field, f.Value)
			if matchConf < f.Confidence {
				f.Confidence = matchConf
			}
			f.Value = canonical
			specs[field] = f
		}
		if field == schema.FieldDeveloper {
			f.Value = textnorm.StandardizeCompanyName(f.Value)
			specs[field] = f
		}
	}
}

func flatten(specs extract.Fields) map[string]string {
	out := make(map[string]string, len(specs))
	for field, f := range specs {
		out[field] = f.Value
	}
	return out
}
