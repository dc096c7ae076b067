// Package preview evaluates formula pipelines against a mock dataset.
//
// The dataset is loaded into a DuckDB table and the rendered formula is run
// as a SELECT over it, so users can see what a pipeline would produce before
// wiring it into a real model.
package preview

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/leapstack-labs/leapmix/pkg/core"
	"github.com/leapstack-labs/leapmix/pkg/formula"

	_ "github.com/marcboeker/go-duckdb" // duckdb driver
)

// DefaultTable is the table name datasets are loaded into.
const DefaultTable = "mock_data"

// DefaultLimit caps the rows returned for row-level (NONE) pipelines.
const DefaultLimit = 20

// ErrGroupByNeedsAggregation is returned when grouping a pipeline that does
// not aggregate.
var ErrGroupByNeedsAggregation = errors.New("group by requires an aggregation")

// DB is a DuckDB session holding loaded datasets.
type DB struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open connects to DuckDB. An empty path opens an in-memory database.
func Open(ctx context.Context, path string, logger *slog.Logger) (*DB, error) {
	if path == "" {
		path = ":memory:"
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open duckdb connection: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping duckdb: %w", err)
	}

	d := New(db, logger)
	d.logger.Debug("opened duckdb", slog.String("path", path))
	return d, nil
}

// New wraps an existing connection.
func New(db *sql.DB, logger *slog.Logger) *DB {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &DB{db: db, logger: logger}
}

// Close closes the database connection.
func (d *DB) Close() error {
	if d.db != nil {
		d.logger.Debug("closing database connection")
		return d.db.Close()
	}
	return nil
}

// Load replaces table with the contents of ds.
func (d *DB) Load(ctx context.Context, table string, ds *core.MockDataset) error {
	if d.db == nil {
		return fmt.Errorf("database connection not established")
	}
	if len(ds.Columns) == 0 {
		return fmt.Errorf("dataset has no columns")
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, CreateTableSQL(table, ds)); err != nil {
		return fmt.Errorf("failed to create table %s: %w", table, err)
	}

	stmt, err := tx.PrepareContext(ctx, InsertSQL(table, ds))
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for i, row := range ds.Rows {
		if _, err := stmt.ExecContext(ctx, row...); err != nil {
			return fmt.Errorf("failed to insert row %d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}

	d.logger.Debug("loaded dataset",
		slog.String("table", table),
		slog.Int("columns", len(ds.Columns)),
		slog.Int("rows", len(ds.Rows)))
	return nil
}

// Request describes one preview evaluation.
type Request struct {
	Table    string
	Pipeline formula.Pipeline
	// GroupBy lists dataset columns to break an aggregated result down by
	GroupBy []string
	// Limit caps returned rows; <= 0 means DefaultLimit
	Limit int
}

// Result is the output of Evaluate.
type Result struct {
	SQL     string   `json:"sql"`
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

// Evaluate runs the pipeline against a loaded table. Column names in the
// pipeline are bound to the dataset's columns with Bind.
func (d *DB) Evaluate(ctx context.Context, ds *core.MockDataset, req Request) (*Result, error) {
	if d.db == nil {
		return nil, fmt.Errorf("database connection not established")
	}

	query, err := BuildQuery(ds, req)
	if err != nil {
		return nil, err
	}
	d.logger.Debug("evaluating pipeline", slog.String("sql", query))

	rows, err := d.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer func() { _ = rows.Close() }()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read columns: %w", err)
	}

	res := &Result{SQL: query, Columns: cols}
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		res.Rows = append(res.Rows, values)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return res, nil
}

// BuildQuery renders the SELECT for a request.
func BuildQuery(ds *core.MockDataset, req Request) (string, error) {
	table := req.Table
	if table == "" {
		table = DefaultTable
	}
	limit := req.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}

	p := Bind(req.Pipeline, ds)
	expr := p.Formula()

	var groups []string
	for _, g := range req.GroupBy {
		i := columnIndexFold(ds, g)
		if i < 0 {
			return "", fmt.Errorf("unknown group by column %q", g)
		}
		groups = append(groups, QuoteIdent(ds.Columns[i]))
	}

	var b strings.Builder
	switch {
	case len(groups) > 0:
		if p.Aggregation.IsNone() {
			return "", ErrGroupByNeedsAggregation
		}
		list := strings.Join(groups, ", ")
		fmt.Fprintf(&b, "SELECT %s, %s AS value FROM %s GROUP BY %s ORDER BY %s LIMIT %d",
			list, expr, QuoteIdent(table), list, list, limit)
	case !p.Aggregation.IsNone():
		fmt.Fprintf(&b, "SELECT %s AS value FROM %s", expr, QuoteIdent(table))
	default:
		if i := ds.ColumnIndex(dateColumn(ds)); i >= 0 {
			fmt.Fprintf(&b, "SELECT %s, %s AS value FROM %s LIMIT %d",
				QuoteIdent(ds.Columns[i]), expr, QuoteIdent(table), limit)
		} else {
			fmt.Fprintf(&b, "SELECT %s AS value FROM %s LIMIT %d", expr, QuoteIdent(table), limit)
		}
	}
	return b.String(), nil
}

func dateColumn(ds *core.MockDataset) string {
	if idx := ds.IndicesByRole(core.ColumnRoleDate); len(idx) > 0 {
		return ds.Columns[idx[0]]
	}
	return ""
}
