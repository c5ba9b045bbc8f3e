package graph

import (
	"context"
	"fmt"
	"sync"

	"github.com/rpad300/godmode-sub011/internal/types"
)

// memClient is an in-memory RowClient used across the package tests. It
// stores rows as column-keyed maps per table and evaluates the filter
// contract the same way the SQLite client does.
type memClient struct {
	mu     sync.Mutex
	tables map[string][]map[string]any

	// schemaMissing makes every call fail like unmigrated tables.
	schemaMissing bool
	// failNext injects one error on the next call touching the named table.
	failNext map[string]error
}

func newMemClient() *memClient {
	return &memClient{
		tables:   map[string][]map[string]any{},
		failNext: map[string]error{},
	}
}

func (m *memClient) err(table string) error {
	if m.schemaMissing {
		return types.NewError(types.ErrSchemaMissing, "graph tables not migrated")
	}
	if err, ok := m.failNext[table]; ok {
		delete(m.failNext, table)
		return err
	}
	return nil
}

func (m *memClient) Select(ctx context.Context, table string, filters []Filter, limit int) ([]map[string]any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.err(table); err != nil {
		return nil, err
	}
	var out []map[string]any
	for _, row := range m.tables[table] {
		if !rowMatches(row, filters) {
			continue
		}
		out = append(out, copyRow(row))
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (m *memClient) Upsert(ctx context.Context, table string, row map[string]any, conflictColumns []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.err(table); err != nil {
		return err
	}
	rows := m.tables[table]
	for i, existing := range rows {
		match := len(conflictColumns) > 0
		for _, col := range conflictColumns {
			if fmt.Sprint(existing[col]) != fmt.Sprint(row[col]) {
				match = false
				break
			}
		}
		if match {
			rows[i] = copyRow(row)
			return nil
		}
	}
	m.tables[table] = append(rows, copyRow(row))
	return nil
}

func (m *memClient) Delete(ctx context.Context, table string, filters []Filter) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.err(table); err != nil {
		return 0, err
	}
	var kept []map[string]any
	var deleted int64
	for _, row := range m.tables[table] {
		if rowMatches(row, filters) {
			deleted++
			continue
		}
		kept = append(kept, row)
	}
	m.tables[table] = kept
	return deleted, nil
}

func (m *memClient) Count(ctx context.Context, table string, filters []Filter) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.err(table); err != nil {
		return 0, err
	}
	var n int64
	for _, row := range m.tables[table] {
		if rowMatches(row, filters) {
			n++
		}
	}
	return n, nil
}

func (m *memClient) Distinct(ctx context.Context, table string, column string, filters []Filter) ([]any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.err(table); err != nil {
		return nil, err
	}
	seen := map[string]bool{}
	var out []any
	for _, row := range m.tables[table] {
		if !rowMatches(row, filters) {
			continue
		}
		key := fmt.Sprint(row[column])
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, row[column])
	}
	return out, nil
}

// WithTx runs fn against the same store. The mock does not snapshot, so
// rollback semantics are not exercised here; the SQLite client tests cover
// them against a real transaction.
func (m *memClient) WithTx(ctx context.Context, fn func(RowClient) error) error {
	return fn(m)
}

func (m *memClient) Ping(ctx context.Context) error {
	if m.schemaMissing {
		return types.NewError(types.ErrConnectionFailed, "store unreachable")
	}
	return nil
}

func rowMatches(row map[string]any, filters []Filter) bool {
	for _, f := range filters {
		if !filterMatches(row, f) {
			return false
		}
	}
	return true
}

func filterMatches(row map[string]any, f Filter) bool {
	switch f.Op {
	case OpEq:
		if f.Value == nil {
			return row[f.Column] == nil || fmt.Sprint(row[f.Column]) == ""
		}
		return fmt.Sprint(row[f.Column]) == fmt.Sprint(f.Value)
	case OpIn:
		values, _ := f.Value.([]any)
		for _, v := range values {
			if fmt.Sprint(row[f.Column]) == fmt.Sprint(v) {
				return true
			}
		}
		return false
	case OpOr:
		parts, _ := f.Value.([]Filter)
		for _, part := range parts {
			if filterMatches(row, part) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

func copyRow(row map[string]any) map[string]any {
	out := make(map[string]any, len(row))
	for k, v := range row {
		out[k] = v
	}
	return out
}
