// Package sqlite implements store.Store on SQLite. The projects table
// schema is derived from the field schema: date fields map to DATE,
// capacity and cost fields to NUMERIC, everything else to VARCHAR(255),
// with the project name as primary key.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/sightline/sightline/pkg/sightline/internalerr"
	"github.com/sightline/sightline/pkg/sightline/schema"
	"github.com/sightline/sightline/pkg/sightline/store"
)

type sqliteStore struct {
	db     *sql.DB
	schema *schema.Schema

	// field name -> column name, in schema order
	fields  []string
	columns map[string]string
	numeric map[string]bool
}

// Open opens (creating if needed) a SQLite database for the given field
// schema, with WAL mode enabled so concurrent batch workers can write.
func Open(ctx context.Context, path string, s *schema.Schema) (store.Store, error) {
	if !s.Has(schema.FieldProjectName) {
		return nil, fmt.Errorf("sqlite: %w: schema has no %q field", internalerr.ErrInvalidConfig, schema.FieldProjectName)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, err
	}

	st := &sqliteStore{
		db:      db,
		schema:  s,
		fields:  s.Fields(),
		columns: make(map[string]string),
		numeric: make(map[string]bool),
	}
	for _, field := range st.fields {
		st.columns[field] = schema.ColumnName(field)
		lower := strings.ToLower(field)
		st.numeric[field] = strings.Contains(lower, "capacity") || strings.Contains(lower, "cost")
	}

	if err := st.initSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return st, nil
}

func (s *sqliteStore) Close() error {
	return s.db.Close()
}

func (s *sqliteStore) initSchema(ctx context.Context) error {
	var cols []string
	for _, field := range s.fields {
		col := s.columns[field]
		var colType string
		switch {
		case field == schema.FieldProjectName:
			colType = "VARCHAR(255) PRIMARY KEY"
		case strings.Contains(strings.ToLower(field), "date"):
			colType = "DATE"
		case s.numeric[field]:
			colType = "NUMERIC"
		default:
			colType = "VARCHAR(255)"
		}
		cols = append(cols, fmt.Sprintf("%q %s", col, colType))
	}

	ddl := fmt.Sprintf("CREATE TABLE IF NOT EXISTS projects (%s);", strings.Join(cols, ", "))
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return err
	}

	const runsDDL = `
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	submitted INTEGER NOT NULL,
	processed INTEGER NOT NULL,
	started_at TEXT NOT NULL,
	finished_at TEXT NOT NULL
);`
	_, err := s.db.ExecContext(ctx, runsDDL)
	return err
}

var numericValueRe = regexp.MustCompile(`-?\d+(?:\.\d+)?`)

// columnValue converts a validated field value to its column
// representation. NUMERIC columns store the bare magnitude: "100.00 MWh"
// becomes 100.00 and "$50.00M" becomes 50.00.
func (s *sqliteStore) columnValue(field, value string) any {
	if !s.numeric[field] {
		return value
	}
	m := numericValueRe.FindString(value)
	if m == "" {
		return nil
	}
	f, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return nil
	}
	return f
}

// UpsertProject inserts or updates a project row keyed by project name.
func (s *sqliteStore) UpsertProject(ctx context.Context, p store.Project) error {
	name := p[schema.FieldProjectName]
	if name == "" {
		return fmt.Errorf("upsert project: %w: missing %s", internalerr.ErrInvalidInput, schema.FieldProjectName)
	}

	var (
		cols         []string
		placeholders []string
		updates      []string
		args         []any
	)
	for _, field := range s.fields {
		value, ok := p[field]
		if !ok {
			continue
		}
		col := s.columns[field]
		cols = append(cols, strconv.Quote(col))
		placeholders = append(placeholders, "?")
		args = append(args, s.columnValue(field, value))
		if field != schema.FieldProjectName {
			updates = append(updates, fmt.Sprintf("%q=excluded.%q", col, col))
		}
	}

	stmt := fmt.Sprintf(
		"INSERT INTO projects (%s) VALUES (%s)",
		strings.Join(cols, ", "), strings.Join(placeholders, ", "),
	)
	if len(updates) > 0 {
		stmt += fmt.Sprintf(
			" ON CONFLICT(%q) DO UPDATE SET %s",
			s.columns[schema.FieldProjectName], strings.Join(updates, ", "),
		)
	} else {
		stmt += fmt.Sprintf(" ON CONFLICT(%q) DO NOTHING", s.columns[schema.FieldProjectName])
	}

	_, err := s.db.ExecContext(ctx, stmt, args...)
	return err
}

// Projects returns every persisted project row, mapped back to field names.
func (s *sqliteStore) Projects(ctx context.Context) ([]store.Project, error) {
	var quoted []string
	for _, field := range s.fields {
		quoted = append(quoted, strconv.Quote(s.columns[field]))
	}
	rows, err := s.db.QueryContext(ctx,
		fmt.Sprintf("SELECT %s FROM projects", strings.Join(quoted, ", ")))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var projects []store.Project
	for rows.Next() {
		scan := make([]any, len(s.fields))
		for i := range scan {
			scan[i] = new(sql.NullString)
		}
		if err := rows.Scan(scan...); err != nil {
			return nil, err
		}
		p := make(store.Project, len(s.fields))
		for i, field := range s.fields {
			ns := scan[i].(*sql.NullString)
			if ns.Valid && ns.String != "" {
				p[field] = ns.String
			}
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

// RecordRun persists one batch-run accounting row.
func (s *sqliteStore) RecordRun(ctx context.Context, r store.Run) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO runs (id, submitted, processed, started_at, finished_at) VALUES (?, ?, ?, ?, ?)",
		r.ID, r.Submitted, r.Processed,
		r.StartedAt.UTC().Format(time.RFC3339),
		r.FinishedAt.UTC().Format(time.RFC3339),
	)
	return err
}

// Runs returns recorded batch runs, most recent first.
func (s *sqliteStore) Runs(ctx context.Context) ([]store.Run, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, submitted, processed, started_at, finished_at FROM runs ORDER BY started_at DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []store.Run
	for rows.Next() {
		var r store.Run
		var started, finished string
		if err := rows.Scan(&r.ID, &r.Submitted, &r.Processed, &started, &finished); err != nil {
			return nil, err
		}
		if t, err := time.Parse(time.RFC3339, started); err == nil {
			r.StartedAt = t
		}
		if t, err := time.Parse(time.RFC3339, finished); err == nil {
			r.FinishedAt = t
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
