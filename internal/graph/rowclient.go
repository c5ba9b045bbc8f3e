package graph

import "context"

// FilterOp is a comparison operator for row filters.
type FilterOp string

const (
	OpEq FilterOp = "eq"
	OpIn FilterOp = "in"
	OpOr FilterOp = "or" // Value holds []Filter combined with OR
)

// Filter is one predicate pushed down to the relational store.
type Filter struct {
	Column string
	Op     FilterOp
	Value  any
}

// Eq builds an equality filter.
func Eq(column string, value any) Filter {
	return Filter{Column: column, Op: OpEq, Value: value}
}

// In builds a set-membership filter.
func In(column string, values []any) Filter {
	return Filter{Column: column, Op: OpIn, Value: values}
}

// Or combines filters disjunctively.
func Or(filters ...Filter) Filter {
	return Filter{Op: OpOr, Value: filters}
}

// RowClient is the opaque relational client the engine is built on: row CRUD,
// equality/membership filtering, and counting over named tables. Rows travel
// as column-keyed maps; JSON columns are marshaled by the client.
//
// A client must surface a missing table as a *types.Error with code
// SCHEMA_MISSING so the engine can treat it as a pending migration rather
// than a hard store fault.
type RowClient interface {
	// Select fetches rows from table matching every filter (AND semantics).
	// limit <= 0 means no limit.
	Select(ctx context.Context, table string, filters []Filter, limit int) ([]map[string]any, error)

	// Upsert inserts the row or, on conflict over conflictColumns, overwrites
	// the non-key columns.
	Upsert(ctx context.Context, table string, row map[string]any, conflictColumns []string) error

	// Delete removes rows matching every filter and returns the count removed.
	Delete(ctx context.Context, table string, filters []Filter) (int64, error)

	// Count returns the number of rows matching every filter.
	Count(ctx context.Context, table string, filters []Filter) (int64, error)

	// Distinct returns the distinct values of one column.
	Distinct(ctx context.Context, table string, column string, filters []Filter) ([]any, error)

	// WithTx runs fn against a transaction-scoped client, committing on nil
	// and rolling back on error.
	WithTx(ctx context.Context, fn func(RowClient) error) error

	// Ping verifies connectivity.
	Ping(ctx context.Context) error
}

// Table names this engine depends on.
const (
	TableNodes         = "graph_nodes"
	TableRelationships = "graph_relationships"
	TableSyncStatus    = "graph_sync_status"
)

// graphConflictKey is the upsert key shared by the node and relationship
// tables, matching their composite (id, graph_name) primary key.
var graphConflictKey = []string{"id", "graph_name"}
