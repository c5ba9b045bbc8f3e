// Package graph implements a relational-backed property graph: nodes and typed
// relationships stored in conventional tables, partitioned into logical graphs
// by a graph_name column and optionally scoped to a project.
//
// The package exposes a backend-agnostic GraphProvider contract, a Factory that
// registers and caches provider instances, a Manager that routes entities to a
// shared or project-scoped logical graph, and the concrete RelationalProvider
// that translates a constrained Cypher subset into filtered row fetches.
package graph

import (
	"fmt"
	"time"

	"github.com/rpad300/godmode-sub011/internal/types"
)

// SharedGraphName is the logical partition holding cross-project entities.
const SharedGraphName = "_shared"

// ProjectGraphName returns the logical partition name for a project.
func ProjectGraphName(projectID string) string {
	return "project_" + projectID
}

// Scope identifies the logical graph a call operates on: a partition name plus
// an optional project id. Scope is an explicit per-call value; providers hold
// no mutable "current graph" state, so one provider instance can serve
// concurrent operations targeting different partitions.
type Scope struct {
	GraphName string `json:"graph_name"`
	ProjectID string `json:"project_id,omitempty"`
}

// SharedScope returns the scope of the shared partition.
func SharedScope() Scope {
	return Scope{GraphName: SharedGraphName}
}

// ProjectScope returns the scope of a project partition.
func ProjectScope(projectID string) Scope {
	return Scope{GraphName: ProjectGraphName(projectID), ProjectID: projectID}
}

// IsZero reports whether the scope carries no routing information.
func (s Scope) IsZero() bool {
	return s.GraphName == "" && s.ProjectID == ""
}

// String returns a short human-readable form, e.g. "project_p1 (p1)".
func (s Scope) String() string {
	if s.ProjectID == "" {
		return s.GraphName
	}
	return fmt.Sprintf("%s (%s)", s.GraphName, s.ProjectID)
}

// Node is a labeled vertex carrying an open string-keyed property map.
// Properties always mirror the id under the "id" key.
type Node struct {
	ID         types.ID       `json:"id"`
	Label      string         `json:"label"`
	Properties map[string]any `json:"properties"`
	GraphName  string         `json:"graph_name"`
	ProjectID  string         `json:"project_id,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

// NewNode creates a Node with the given id and label. The id is mirrored into
// the property map.
func NewNode(id types.ID, label string) *Node {
	now := time.Now()
	return &Node{
		ID:         id,
		Label:      label,
		Properties: map[string]any{"id": id.String()},
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// WithProperty sets a property and returns the node for chaining.
func (n *Node) WithProperty(key string, value any) *Node {
	n.Properties[key] = value
	n.UpdatedAt = time.Now()
	return n
}

// WithProperties merges props into the node's property map.
func (n *Node) WithProperties(props map[string]any) *Node {
	for k, v := range props {
		n.Properties[k] = v
	}
	n.UpdatedAt = time.Now()
	return n
}

// GetProperty retrieves a property value, or nil when absent.
func (n *Node) GetProperty(key string) any {
	return n.Properties[key]
}

// GetStringProperty retrieves a string property, or "" when absent or not a string.
func (n *Node) GetStringProperty(key string) string {
	if v, ok := n.Properties[key].(string); ok {
		return v
	}
	return ""
}

// StringSliceProperty retrieves a property as a []string, tolerating the
// []any form produced by JSON round-trips.
func (n *Node) StringSliceProperty(key string) []string {
	switch v := n.Properties[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

// Validate checks the node's required fields.
func (n *Node) Validate() error {
	if err := n.ID.Validate(); err != nil {
		return fmt.Errorf("invalid node ID: %w", err)
	}
	if n.Label == "" {
		return fmt.Errorf("node must have a label")
	}
	return nil
}

// Relationship is a typed, directed edge between two nodes.
//
// When ID is left empty the engine derives it as "{type}:{fromId}:{toId}",
// which makes edge creation idempotent and limits each (type, from, to) triple
// to a single edge. Callers that need parallel edges of the same type between
// the same ordered pair must supply an explicit id.
type Relationship struct {
	ID         types.ID       `json:"id"`
	FromID     types.ID       `json:"from_id"`
	ToID       types.ID       `json:"to_id"`
	Type       string         `json:"type"`
	Properties map[string]any `json:"properties,omitempty"`
	GraphName  string         `json:"graph_name"`
	ProjectID  string         `json:"project_id,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}

// NewRelationship creates a Relationship between two nodes. The default
// deterministic id is assigned when the relationship is stored.
func NewRelationship(fromID, toID types.ID, relType string) *Relationship {
	return &Relationship{
		FromID:     fromID,
		ToID:       toID,
		Type:       relType,
		Properties: make(map[string]any),
		CreatedAt:  time.Now(),
	}
}

// DefaultID returns the deterministic id "{type}:{fromId}:{toId}".
func (r *Relationship) DefaultID() types.ID {
	return types.ID(fmt.Sprintf("%s:%s:%s", r.Type, r.FromID, r.ToID))
}

// WithProperty sets a property and returns the relationship for chaining.
func (r *Relationship) WithProperty(key string, value any) *Relationship {
	if r.Properties == nil {
		r.Properties = make(map[string]any)
	}
	r.Properties[key] = value
	return r
}

// Validate checks the relationship's required fields.
func (r *Relationship) Validate() error {
	if err := r.FromID.Validate(); err != nil {
		return fmt.Errorf("invalid from_id: %w", err)
	}
	if err := r.ToID.Validate(); err != nil {
		return fmt.Errorf("invalid to_id: %w", err)
	}
	if r.Type == "" {
		return fmt.Errorf("relationship must have a type")
	}
	return nil
}

// SyncStatus records the health of one (project, partition) pair. Rows are
// upserted on demand and never deleted by this package.
type SyncStatus struct {
	ProjectID       string    `json:"project_id"`
	GraphName       string    `json:"graph_name"`
	HealthStatus    string    `json:"health_status"`
	PendingCount    int       `json:"pending_count"`
	LastError       string    `json:"last_error,omitempty"`
	LastConnectedAt time.Time `json:"last_connected_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Direction selects which incident edges a traversal follows.
type Direction string

const (
	DirectionOutgoing Direction = "outgoing"
	DirectionIncoming Direction = "incoming"
	DirectionBoth     Direction = "both"
)

// IsValid checks if the Direction is a known value.
func (d Direction) IsValid() bool {
	switch d {
	case DirectionOutgoing, DirectionIncoming, DirectionBoth:
		return true
	default:
		return false
	}
}

// Outcome distinguishes why a query produced the rows it did. An empty result
// from a recognized pattern (OutcomeEmpty) is semantically different from a
// pattern the translator cannot execute (OutcomeUnsupported).
type Outcome string

const (
	OutcomeRows        Outcome = "rows"
	OutcomeEmpty       Outcome = "empty"
	OutcomeUnsupported Outcome = "unsupported"
)

// QueryResult is the uniform result of Query. Records hold one map per row;
// node and relationship values are rendered as nested maps.
type QueryResult struct {
	Records  []map[string]any `json:"data"`
	Outcome  Outcome          `json:"outcome"`
	Metadata map[string]any   `json:"metadata,omitempty"`
}

// Unsupported reports whether the query text fell outside the recognized subset.
func (qr QueryResult) Unsupported() bool {
	return qr.Outcome == OutcomeUnsupported
}

// emptyResult builds an empty QueryResult with the given outcome.
func emptyResult(outcome Outcome) QueryResult {
	return QueryResult{Records: []map[string]any{}, Outcome: outcome}
}

// RelFilter narrows a relationship fetch. Zero-valued fields are ignored.
type RelFilter struct {
	FromID   *types.ID
	ToID     *types.ID
	EitherID *types.ID // matches from_id OR to_id
	Types    []string
	Limit    int
}

// VectorResult is one hit of a vector similarity search, ranked by cosine
// similarity to the query embedding.
type VectorResult struct {
	NodeID     types.ID `json:"node_id"`
	Similarity float64  `json:"similarity"`
	Node       *Node    `json:"node,omitempty"`
}

// Stats summarizes one logical graph: counts plus label and type histograms.
type Stats struct {
	Nodes             int64            `json:"nodes"`
	Relationships     int64            `json:"relationships"`
	Labels            map[string]int64 `json:"labels"`
	RelationshipTypes map[string]int64 `json:"relationship_types"`
}

// BatchResult reports a partial-success bulk operation. Bulk writes iterate
// item by item and are not transactional; callers must treat Created and
// Errors as a partial-success report, not all-or-nothing.
type BatchResult struct {
	Created int     `json:"created"`
	Errors  []error `json:"errors,omitempty"`
}

// Capabilities is a static descriptor of what a backend can do.
type Capabilities struct {
	CypherLevel    string `json:"cypher_level"` // "none", "subset", "full"
	Transactions   bool   `json:"transactions"`
	FullTextSearch bool   `json:"full_text_search"`
	VectorSearch   bool   `json:"vector_search"`
	Realtime       bool   `json:"realtime"`
}
