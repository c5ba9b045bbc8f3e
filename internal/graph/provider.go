package graph

import (
	"context"

	"github.com/rpad300/godmode-sub011/internal/types"
)

// GraphProvider is the capability contract every graph backend implements.
//
// Expected failure modes are returned as *types.Error values with a code from
// the package taxonomy (NOT_CONNECTED, SCHEMA_MISSING, ACCESS_DENIED,
// NOT_FOUND, UNSUPPORTED_QUERY, STORE_ERROR); no panics cross this boundary.
//
// Every operation takes an explicit Scope. A zero Scope falls back to the
// provider's configured default partition. Implementations must be safe for
// concurrent use.
type GraphProvider interface {
	// Connect establishes a connection to the backing store.
	Connect(ctx context.Context) error

	// Close releases the connection. Safe to call on a never-connected provider.
	Close(ctx context.Context) error

	// IsConfigured reports whether the provider has a usable client. All
	// operations on an unconfigured provider fail with NOT_CONNECTED.
	IsConfigured() bool

	// Health checks connectivity to the backing store.
	Health(ctx context.Context) types.HealthStatus

	// Capabilities returns the static capability descriptor for this backend.
	Capabilities() Capabilities

	// CreateNode upserts a node keyed by id: re-ingesting the same id
	// overwrites the existing row rather than duplicating it.
	CreateNode(ctx context.Context, scope Scope, node Node) (Node, error)

	// CreateNodes upserts nodes one by one and reports partial success.
	CreateNodes(ctx context.Context, scope Scope, nodes []Node) BatchResult

	// GetNode fetches a node by id. Returns NOT_FOUND if absent.
	GetNode(ctx context.Context, scope Scope, id types.ID) (*Node, error)

	// UpdateNode merges props into the node's existing properties and writes
	// the result back. Fails with ACCESS_DENIED when the scope's project id is
	// set and differs from the node's project_id.
	UpdateNode(ctx context.Context, scope Scope, id types.ID, props map[string]any) (*Node, error)

	// DeleteNode removes the node and every relationship touching it, in a
	// single transaction.
	DeleteNode(ctx context.Context, scope Scope, id types.ID) error

	// FindNodes fetches nodes by label and exact property equality.
	// Empty label matches all labels; nil filter matches all nodes in scope.
	FindNodes(ctx context.Context, scope Scope, label string, filter map[string]any, limit int) ([]Node, error)

	// CreateRelationship upserts a relationship. When rel.ID is empty the
	// deterministic id "{type}:{fromId}:{toId}" is used, so repeating the call
	// yields one row.
	CreateRelationship(ctx context.Context, scope Scope, rel Relationship) (Relationship, error)

	// CreateRelationships upserts relationships one by one, partial success.
	CreateRelationships(ctx context.Context, scope Scope, rels []Relationship) BatchResult

	// GetRelationship fetches a relationship by id. Returns NOT_FOUND if absent.
	GetRelationship(ctx context.Context, scope Scope, id types.ID) (*Relationship, error)

	// DeleteRelationship removes a relationship by id.
	DeleteRelationship(ctx context.Context, scope Scope, id types.ID) error

	// FindRelationships fetches relationships matching the filter.
	FindRelationships(ctx context.Context, scope Scope, filter RelFilter) ([]Relationship, error)

	// Query executes a Cypher-subset query. Text outside the recognized subset
	// returns an empty result with OutcomeUnsupported, never an error; the
	// fallthrough is logged at Warn.
	Query(ctx context.Context, scope Scope, cypher string, params map[string]any) (QueryResult, error)

	// TraversePath walks the graph breadth-first from start, following edges
	// of the given types (nil means all) in the given direction, up to
	// maxDepth hops. Returns every traversed edge; nodes are never revisited.
	TraversePath(ctx context.Context, scope Scope, start types.ID, relTypes []string, maxDepth int, direction Direction) ([]Relationship, error)

	// SearchNodes performs a case-insensitive substring search over node
	// property values, optionally restricted to labels.
	SearchNodes(ctx context.Context, scope Scope, text string, labels []string, limit int) ([]Node, error)

	// VectorSearch returns nodes ranked by cosine similarity between their
	// stored embedding property and the query embedding. Backends whose
	// Capabilities report VectorSearch false fail with UNSUPPORTED_QUERY.
	VectorSearch(ctx context.Context, scope Scope, embedding []float64, topK int) ([]VectorResult, error)

	// GetStats computes node/relationship counts and label/type histograms
	// for the scoped graph.
	GetStats(ctx context.Context, scope Scope) (Stats, error)

	// ClearGraph deletes every relationship and node in the scoped partition.
	ClearGraph(ctx context.Context, scope Scope) error

	// DropGraph removes the logical partition. For virtual partitions this is
	// equivalent to ClearGraph.
	DropGraph(ctx context.Context, scope Scope) error

	// ListGraphs returns the distinct partition names present in the store.
	ListGraphs(ctx context.Context) ([]string, error)
}

// SyncStatusStore is implemented by providers that track per-partition sync
// health. The Manager uses it when present; backends without the concept can
// skip it.
type SyncStatusStore interface {
	// UpsertSyncStatus creates or updates the (project, partition) row.
	UpsertSyncStatus(ctx context.Context, status SyncStatus) error

	// GetSyncStatus fetches the row for a (project, partition) pair.
	// Returns NOT_FOUND if absent.
	GetSyncStatus(ctx context.Context, projectID, graphName string) (*SyncStatus, error)
}
