package schema

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Kind classifies how a field's values are cleaned and validated.
type Kind string

const (
	KindDirect      Kind = "direct"
	KindCategorical Kind = "categorical"
	KindDate        Kind = "date"
	KindCapacity    Kind = "capacity"
	KindCost        Kind = "cost"
)

// Canonical field names referenced by the pipeline itself.
const (
	FieldProjectName = "Project name"
	FieldTechnology  = "Technology"
	FieldDeveloper   = "Developer"
	FieldLocation    = "Location"
	FieldCODYear     = "Expected COD year"
	FieldEnergyMWh   = "Energy Capacity (MWh)"
	FieldPowerMW     = "Discharging Power Capacity (MW)"
	FieldDurationH   = "Duration (hours)"
)

// Schema is the project field schema plus the category vocabularies for
// categorical fields. Immutable after Load; safe for concurrent reads.
type Schema struct {
	order      []string
	kinds      map[string]Kind
	categories map[string][]string
}

type fieldsFile struct {
	Fields []struct {
		Name string `yaml:"name"`
		Kind Kind   `yaml:"kind"`
	} `yaml:"fields"`
}

type categoriesFile struct {
	Categories map[string][]string `yaml:"categories"`
}

// Load reads the field schema and category table from YAML files.
// Every categorical field must have a category vocabulary; a missing
// vocabulary is a configuration error, not a silent pass-through.
func Load(fieldsPath, categoriesPath string) (*Schema, error) {
	data, err := os.ReadFile(fieldsPath)
	if err != nil {
		return nil, fmt.Errorf("load fields: %w", err)
	}
	var ff fieldsFile
	if err := yaml.Unmarshal(data, &ff); err != nil {
		return nil, fmt.Errorf("parse fields: %w", err)
	}

	data, err = os.ReadFile(categoriesPath)
	if err != nil {
		return nil, fmt.Errorf("load categories: %w", err)
	}
	var cf categoriesFile
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, fmt.Errorf("parse categories: %w", err)
	}

	return New(fieldsToPairs(ff), cf.Categories)
}

func fieldsToPairs(ff fieldsFile) []FieldDef {
	defs := make([]FieldDef, len(ff.Fields))
	for i, f := range ff.Fields {
		defs[i] = FieldDef{Name: f.Name, Kind: f.Kind}
	}
	return defs
}

// FieldDef declares one schema field.
type FieldDef struct {
	Name string
	Kind Kind
}

// New builds a schema from field declarations and category vocabularies.
func New(defs []FieldDef, categories map[string][]string) (*Schema, error) {
	s := &Schema{
		kinds:      make(map[string]Kind, len(defs)),
		categories: make(map[string][]string, len(categories)),
	}
	for _, d := range defs {
		if d.Name == "" {
			return nil, fmt.Errorf("schema: field with empty name")
		}
		switch d.Kind {
		case KindDirect, KindCategorical, KindDate, KindCapacity, KindCost:
		default:
			return nil, fmt.Errorf("schema: field %q has unknown kind %q", d.Name, d.Kind)
		}
		if _, dup := s.kinds[d.Name]; dup {
			return nil, fmt.Errorf("schema: duplicate field %q", d.Name)
		}
		s.kinds[d.Name] = d.Kind
		s.order = append(s.order, d.Name)
	}
	for field, vocab := range categories {
		s.categories[field] = append([]string(nil), vocab...)
	}
	for _, d := range defs {
		if d.Kind == KindCategorical {
			if len(s.categories[d.Name]) == 0 {
				return nil, fmt.Errorf("schema: categorical field %q has no categories", d.Name)
			}
		}
	}
	return s, nil
}

// Fields returns field names in declaration order.
func (s *Schema) Fields() []string {
	return append([]string(nil), s.order...)
}

// Kind returns the kind of a declared field.
func (s *Schema) Kind(field string) (Kind, bool) {
	k, ok := s.kinds[field]
	return k, ok
}

// Has reports whether field is declared in the schema.
func (s *Schema) Has(field string) bool {
	_, ok := s.kinds[field]
	return ok
}

// Categories returns the vocabulary for a field, in vocabulary order.
func (s *Schema) Categories(field string) ([]string, bool) {
	vocab, ok := s.categories[field]
	if !ok {
		return nil, false
	}
	return append([]string(nil), vocab...), true
}

// ColumnName maps a field name to its relational column name:
// lowercased, spaces to underscores, parentheses stripped.
func ColumnName(field string) string {
	col := strings.ToLower(field)
	col = strings.ReplaceAll(col, "(", "")
	col = strings.ReplaceAll(col, ")", "")
	col = strings.ReplaceAll(col, " ", "_")
	return col
}
