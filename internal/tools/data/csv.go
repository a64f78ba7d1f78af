// Package data provides tabular data tools. CSV files are parsed once per
// modification and queried through an in-memory SQLite database.
package data

import (
	"context"
	"database/sql"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/bobmcallan/humcp/internal/cache"
	"github.com/bobmcallan/humcp/internal/common"
	"github.com/bobmcallan/humcp/internal/registry"
	"github.com/bobmcallan/humcp/internal/tools/result"
)

// Cache defaults for parsed CSV files.
const (
	DefaultCacheTTL     = 10 * time.Minute
	DefaultCacheEntries = 32
	DefaultHeadRows     = 5
)

var (
	selectQuery = regexp.MustCompile(`(?is)^\s*SELECT\s+.+\s+FROM\s+`)
	forbidden   = regexp.MustCompile(`(?i)\b(INSERT|UPDATE|DELETE|DROP|CREATE|ALTER|TRUNCATE|EXEC|EXECUTE|ATTACH|DETACH|COPY|LOAD|INSTALL|PRAGMA|REPLACE|VACUUM)\b`)
	unsafeIdent = regexp.MustCompile(`[^a-zA-Z0-9_]`)
)

// Table is a parsed CSV file.
type Table struct {
	Columns []string
	Rows    [][]string
	Size    int64
}

// PathInput names a CSV file.
type PathInput struct {
	Path string `json:"path" jsonschema:"description=Path of the CSV file"`
}

// HeadInput is the argument of csv_head.
type HeadInput struct {
	Path string `json:"path" jsonschema:"description=Path of the CSV file"`
	Rows *int   `json:"rows,omitempty" jsonschema:"description=Number of rows to return,default=5"`
}

// QueryInput is the argument of csv_query.
type QueryInput struct {
	Path     string `json:"path" jsonschema:"description=Path of the CSV file"`
	SQLQuery string `json:"sql_query" jsonschema:"description=SELECT statement; the table is named after the file stem"`
}

// CSV serves the csv_* tools.
type CSV struct {
	workDir string
	tables  *cache.Cache[*Table]
	logger  *common.Logger
}

// NewCSV creates the CSV tools. Relative paths resolve against workDir.
// A nil tables cache gets the package defaults.
func NewCSV(workDir string, tables *cache.Cache[*Table], logger *common.Logger) *CSV {
	if tables == nil {
		tables = cache.New[*Table](DefaultCacheTTL, DefaultCacheEntries)
	}
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	return &CSV{workDir: workDir, tables: tables, logger: logger}
}

// Register adds the CSV tools to r.
func (c *CSV) Register(r registry.Registrar) error {
	return registry.RegisterAll(r,
		named(registry.Typed(c.listColumns), "csv_list_columns", "List the column names of a CSV file."),
		named(registry.Typed(c.head), "csv_head", "Return the first rows of a CSV file."),
		named(registry.Typed(c.describe), "csv_describe", "Describe a CSV file: size, columns, row count and sample rows."),
		named(registry.Typed(c.query), "csv_query", "Run a read-only SQL SELECT over a CSV file."),
	)
}

func named(t registry.Tool, name, description string) registry.Tool {
	t.Name = name
	t.Description = description
	return t
}

func (c *CSV) resolve(p string) string {
	if !filepath.IsAbs(p) {
		base := c.workDir
		if base == "" {
			base = "."
		}
		p = filepath.Join(base, p)
	}
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return p
}

// load returns the parsed table, reusing the cached parse while the file is
// unchanged.
func (c *CSV) load(p string) (*Table, string, error) {
	path := c.resolve(p)
	if !strings.EqualFold(filepath.Ext(path), ".csv") {
		return nil, path, fmt.Errorf("Not a CSV: %s", p)
	}
	key, err := cache.FileKey(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, path, fmt.Errorf("File not found: %s", p)
		}
		return nil, path, err
	}
	if t, ok := c.tables.Get(key); ok {
		return t, path, nil
	}

	c.tables.InvalidatePrefix(path + "|")
	t, err := parseFile(path)
	if err != nil {
		return nil, path, err
	}
	c.tables.Set(key, t)
	c.logger.Debug().Str("path", path).Int("rows", len(t.Rows)).Msg("parsed CSV file")
	return t, path, nil
}

func parseFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("CSV file is empty: %s", filepath.Base(path))
	}
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	return &Table{Columns: header, Rows: records, Size: info.Size()}, nil
}

// record maps a row onto the header. Missing trailing cells become "".
func (t *Table) record(row []string) map[string]string {
	m := make(map[string]string, len(t.Columns))
	for i, col := range t.Columns {
		if i < len(row) {
			m[col] = row[i]
		} else {
			m[col] = ""
		}
	}
	return m
}

func (t *Table) head(n int) []map[string]string {
	if n < 0 || n > len(t.Rows) {
		n = len(t.Rows)
	}
	out := make([]map[string]string, n)
	for i := 0; i < n; i++ {
		out[i] = t.record(t.Rows[i])
	}
	return out
}

func (c *CSV) listColumns(_ context.Context, in PathInput) (result.Result, error) {
	t, _, err := c.load(in.Path)
	if err != nil {
		return result.Fail("%v", err), nil
	}
	return result.OK(map[string]any{"columns": t.Columns, "column_count": len(t.Columns)}), nil
}

func (c *CSV) head(_ context.Context, in HeadInput) (result.Result, error) {
	t, _, err := c.load(in.Path)
	if err != nil {
		return result.Fail("%v", err), nil
	}
	n := DefaultHeadRows
	if in.Rows != nil {
		n = *in.Rows
	}
	rows := t.head(n)
	return result.OK(map[string]any{"rows": rows, "row_count": len(rows)}), nil
}

func (c *CSV) describe(_ context.Context, in PathInput) (result.Result, error) {
	t, path, err := c.load(in.Path)
	if err != nil {
		return result.Fail("%v", err), nil
	}
	return result.OK(map[string]any{
		"file_name":       filepath.Base(path),
		"file_size_bytes": t.Size,
		"columns":         t.Columns,
		"column_count":    len(t.Columns),
		"row_count":       len(t.Rows),
		"sample_rows":     t.head(DefaultHeadRows),
	}), nil
}

// ValidateQuery accepts a single read-only SELECT statement and returns it
// without any trailing statements.
func ValidateQuery(q string) (string, error) {
	q, _, _ = strings.Cut(strings.TrimSpace(q), ";")
	if forbidden.MatchString(q) {
		return "", errors.New("Query contains disallowed SQL keywords (only SELECT allowed)")
	}
	if !selectQuery.MatchString(q) {
		return "", errors.New("Only SELECT queries are allowed")
	}
	return q, nil
}

// TableName is the SQL table a CSV file is loaded into.
func TableName(path string) string {
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	name := unsafeIdent.ReplaceAllString(stem, "_")
	if name == "" || (name[0] >= '0' && name[0] <= '9') {
		name = "t_" + name
	}
	return name
}

func (c *CSV) query(ctx context.Context, in QueryInput) (result.Result, error) {
	q, err := ValidateQuery(in.SQLQuery)
	if err != nil {
		c.logger.Warn().Str("path", in.Path).Err(err).Msg("SQL query rejected")
		return result.Fail("%v", err), nil
	}
	t, path, err := c.load(in.Path)
	if err != nil {
		return result.Fail("%v", err), nil
	}

	table := TableName(path)
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	if stem != table {
		q = regexp.MustCompile(`(?i)\b`+regexp.QuoteMeta(stem)+`\b`).ReplaceAllString(q, table)
	}

	columns, rows, err := runQuery(ctx, t, table, q)
	if err != nil {
		c.logger.Warn().Str("path", path).Err(err).Msg("CSV query failed")
		return result.Fail("%v", err), nil
	}
	c.logger.Info().Str("path", path).Int("rows", len(rows)).Msg("queried CSV file")
	return result.OK(map[string]any{"rows": rows, "row_count": len(rows), "columns": columns}), nil
}

// runQuery loads t into a private in-memory database and runs q against it.
func runQuery(ctx context.Context, t *Table, table, q string) ([]string, []map[string]any, error) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, nil, err
	}
	defer db.Close()
	// Every connection to :memory: is a separate database.
	db.SetMaxOpenConns(1)

	cols := columnNames(t.Columns)
	quoted := make([]string, len(cols))
	marks := make([]string, len(cols))
	for i, col := range cols {
		quoted[i] = quoteIdent(col)
		marks[i] = "?"
	}
	if _, err := db.ExecContext(ctx, fmt.Sprintf("CREATE TABLE %s (%s)", quoteIdent(table), strings.Join(quoted, ", "))); err != nil {
		return nil, nil, fmt.Errorf("create table: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, err
	}
	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf("INSERT INTO %s VALUES (%s)", quoteIdent(table), strings.Join(marks, ", ")))
	if err != nil {
		tx.Rollback()
		return nil, nil, err
	}
	args := make([]any, len(cols))
	for _, row := range t.Rows {
		for i := range cols {
			args[i] = nil
			if i < len(row) {
				args[i] = cell(row[i])
			}
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			stmt.Close()
			tx.Rollback()
			return nil, nil, fmt.Errorf("load rows: %w", err)
		}
	}
	stmt.Close()
	if err := tx.Commit(); err != nil {
		return nil, nil, err
	}

	rs, err := db.QueryContext(ctx, q)
	if err != nil {
		return nil, nil, err
	}
	defer rs.Close()

	names, err := rs.Columns()
	if err != nil {
		return nil, nil, err
	}
	out := []map[string]any{}
	for rs.Next() {
		vals := make([]any, len(names))
		ptrs := make([]any, len(names))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rs.Scan(ptrs...); err != nil {
			return nil, nil, err
		}
		row := make(map[string]any, len(names))
		for i, name := range names {
			if b, ok := vals[i].([]byte); ok {
				vals[i] = string(b)
			}
			row[name] = vals[i]
		}
		out = append(out, row)
	}
	return names, out, rs.Err()
}

// cell converts a CSV cell to the SQL value it is stored as: integers and
// floats are numeric, empty cells are NULL.
func cell(s string) any {
	if s == "" {
		return nil
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}

// columnNames fills blank headers and makes duplicates unique.
func columnNames(header []string) []string {
	seen := make(map[string]int, len(header))
	out := make([]string, len(header))
	for i, h := range header {
		name := strings.TrimSpace(h)
		if name == "" {
			name = fmt.Sprintf("column_%d", i+1)
		}
		if n := seen[strings.ToLower(name)]; n > 0 {
			name = fmt.Sprintf("%s_%d", name, n+1)
		}
		seen[strings.ToLower(name)]++
		out[i] = name
	}
	return out
}

func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
