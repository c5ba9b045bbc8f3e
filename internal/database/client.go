package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/rpad300/godmode-sub011/internal/graph"
	"github.com/rpad300/godmode-sub011/internal/types"
)

// querier is the subset of sql.DB/sql.Tx the client runs on, so the same
// code serves pooled and transaction-scoped calls.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Client implements graph.RowClient over SQLite. The properties column is
// stored as a JSON TEXT blob and decoded back into a map on read; every other
// column travels as a scalar.
type Client struct {
	db *DB
	q  querier
}

// NewClient wraps an open database as a graph row client.
func NewClient(db *DB) *Client {
	return &Client{db: db, q: db.conn}
}

// jsonColumns are the columns serialized as JSON text.
var jsonColumns = map[string]bool{"properties": true}

// Select fetches rows matching every filter, decoding JSON columns.
func (c *Client) Select(ctx context.Context, table string, filters []graph.Filter, limit int) ([]map[string]any, error) {
	where, args, err := buildWhere(filters)
	if err != nil {
		return nil, err
	}
	query := "SELECT * FROM " + table + where
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := c.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapSQLError("select failed", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, mapSQLError("select failed", err)
	}

	var result []map[string]any
	for rows.Next() {
		values := make([]any, len(columns))
		pointers := make([]any, len(columns))
		for i := range values {
			pointers[i] = &values[i]
		}
		if err := rows.Scan(pointers...); err != nil {
			return nil, mapSQLError("scan failed", err)
		}
		row := make(map[string]any, len(columns))
		for i, col := range columns {
			row[col] = decodeColumn(col, values[i])
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, mapSQLError("select failed", err)
	}
	return result, nil
}

// Upsert inserts the row or overwrites its non-key columns on conflict.
func (c *Client) Upsert(ctx context.Context, table string, row map[string]any, conflictColumns []string) error {
	if len(row) == 0 {
		return types.NewError(types.ErrStore, "upsert requires at least one column")
	}

	columns := make([]string, 0, len(row))
	for col := range row {
		columns = append(columns, col)
	}
	sort.Strings(columns)

	conflict := make(map[string]bool, len(conflictColumns))
	for _, col := range conflictColumns {
		conflict[col] = true
	}

	placeholders := make([]string, len(columns))
	args := make([]any, len(columns))
	var updates []string
	for i, col := range columns {
		placeholders[i] = "?"
		value, err := encodeColumn(col, row[col])
		if err != nil {
			return err
		}
		args[i] = value
		if !conflict[col] {
			updates = append(updates, fmt.Sprintf("%s = excluded.%s", col, col))
		}
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		table, strings.Join(columns, ", "), strings.Join(placeholders, ", "))
	if len(conflictColumns) > 0 {
		query += fmt.Sprintf(" ON CONFLICT (%s) DO UPDATE SET %s",
			strings.Join(conflictColumns, ", "), strings.Join(updates, ", "))
	}

	if _, err := c.q.ExecContext(ctx, query, args...); err != nil {
		return mapSQLError("upsert failed", err)
	}
	return nil
}

// Delete removes rows matching every filter.
func (c *Client) Delete(ctx context.Context, table string, filters []graph.Filter) (int64, error) {
	where, args, err := buildWhere(filters)
	if err != nil {
		return 0, err
	}
	result, err := c.q.ExecContext(ctx, "DELETE FROM "+table+where, args...)
	if err != nil {
		return 0, mapSQLError("delete failed", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, mapSQLError("delete failed", err)
	}
	return affected, nil
}

// Count returns the number of rows matching every filter.
func (c *Client) Count(ctx context.Context, table string, filters []graph.Filter) (int64, error) {
	where, args, err := buildWhere(filters)
	if err != nil {
		return 0, err
	}
	rows, err := c.q.QueryContext(ctx, "SELECT COUNT(*) FROM "+table+where, args...)
	if err != nil {
		return 0, mapSQLError("count failed", err)
	}
	defer rows.Close()

	var count int64
	if rows.Next() {
		if err := rows.Scan(&count); err != nil {
			return 0, mapSQLError("count failed", err)
		}
	}
	return count, rows.Err()
}

// Distinct returns the distinct values of one column.
func (c *Client) Distinct(ctx context.Context, table string, column string, filters []graph.Filter) ([]any, error) {
	where, args, err := buildWhere(filters)
	if err != nil {
		return nil, err
	}
	rows, err := c.q.QueryContext(ctx,
		fmt.Sprintf("SELECT DISTINCT %s FROM %s%s", column, table, where), args...)
	if err != nil {
		return nil, mapSQLError("distinct failed", err)
	}
	defer rows.Close()

	var values []any
	for rows.Next() {
		var value any
		if err := rows.Scan(&value); err != nil {
			return nil, mapSQLError("distinct failed", err)
		}
		values = append(values, value)
	}
	return values, rows.Err()
}

// WithTx runs fn against a transaction-scoped client. Nested calls reuse the
// outer transaction rather than opening a second one.
func (c *Client) WithTx(ctx context.Context, fn func(graph.RowClient) error) error {
	if _, nested := c.q.(*sql.Tx); nested {
		return fn(c)
	}
	return c.db.WithTx(ctx, func(tx *sql.Tx) error {
		return fn(&Client{db: c.db, q: tx})
	})
}

// Ping verifies connectivity.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.db.Health(ctx); err != nil {
		return types.WrapError(types.ErrConnectionFailed, "database unreachable", err)
	}
	return nil
}

// buildWhere renders filters as an AND-joined WHERE clause.
func buildWhere(filters []graph.Filter) (string, []any, error) {
	if len(filters) == 0 {
		return "", nil, nil
	}
	clauses := make([]string, 0, len(filters))
	var args []any
	for _, f := range filters {
		clause, clauseArgs, err := buildClause(f)
		if err != nil {
			return "", nil, err
		}
		clauses = append(clauses, clause)
		args = append(args, clauseArgs...)
	}
	return " WHERE " + strings.Join(clauses, " AND "), args, nil
}

func buildClause(f graph.Filter) (string, []any, error) {
	switch f.Op {
	case graph.OpEq:
		if f.Value == nil {
			return f.Column + " IS NULL", nil, nil
		}
		return f.Column + " = ?", []any{f.Value}, nil
	case graph.OpIn:
		values, ok := f.Value.([]any)
		if !ok {
			return "", nil, types.NewError(types.ErrStore, "IN filter requires a slice value")
		}
		if len(values) == 0 {
			// empty set matches nothing
			return "1 = 0", nil, nil
		}
		placeholders := strings.Repeat("?, ", len(values)-1) + "?"
		return fmt.Sprintf("%s IN (%s)", f.Column, placeholders), values, nil
	case graph.OpOr:
		parts, ok := f.Value.([]graph.Filter)
		if !ok {
			return "", nil, types.NewError(types.ErrStore, "OR filter requires nested filters")
		}
		if len(parts) == 0 {
			return "1 = 0", nil, nil
		}
		clauses := make([]string, 0, len(parts))
		var args []any
		for _, part := range parts {
			clause, clauseArgs, err := buildClause(part)
			if err != nil {
				return "", nil, err
			}
			clauses = append(clauses, clause)
			args = append(args, clauseArgs...)
		}
		return "(" + strings.Join(clauses, " OR ") + ")", args, nil
	default:
		return "", nil, types.NewError(types.ErrStore, fmt.Sprintf("unknown filter op %q", f.Op))
	}
}

// encodeColumn marshals JSON columns and passes scalars through.
func encodeColumn(column string, value any) (any, error) {
	if !jsonColumns[column] {
		return value, nil
	}
	if value == nil {
		return "{}", nil
	}
	data, err := json.Marshal(value)
	if err != nil {
		return nil, types.WrapError(types.ErrStore,
			fmt.Sprintf("failed to encode %s column", column), err)
	}
	return string(data), nil
}

// decodeColumn unmarshals JSON columns and normalizes []byte to string.
func decodeColumn(column string, value any) any {
	raw, isBytes := value.([]byte)
	if isBytes {
		value = string(raw)
	}
	if !jsonColumns[column] {
		return value
	}
	text, ok := value.(string)
	if !ok || text == "" {
		return map[string]any{}
	}
	var props map[string]any
	if err := json.Unmarshal([]byte(text), &props); err != nil {
		return map[string]any{}
	}
	return props
}

// mapSQLError classifies driver errors: a missing table is a pending
// migration (SCHEMA_MISSING), everything else a store fault.
func mapSQLError(message string, err error) error {
	if strings.Contains(err.Error(), "no such table") {
		return types.WrapError(types.ErrSchemaMissing, "graph tables not migrated", err)
	}
	return types.NewRetryableError(types.ErrStore, message, err)
}
