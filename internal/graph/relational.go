package graph

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/rpad300/godmode-sub011/internal/types"
)

// RelationalProvider emulates a property graph on top of a conventional
// relational store. Nodes and relationships live in shared tables; logical
// graphs are virtual column filters (graph_name, project_id), not separate
// physical stores.
type RelationalProvider struct {
	client       RowClient
	defaultScope Scope
	logger       *slog.Logger
}

// NewRelationalProvider builds a provider over the injected relational client.
// A nil client leaves the provider unconfigured: IsConfigured reports false
// and every operation fails with NOT_CONNECTED.
func NewRelationalProvider(cfg Config, logger *slog.Logger) *RelationalProvider {
	if logger == nil {
		logger = slog.Default()
	}
	graphName := cfg.GraphName
	if graphName == "" {
		graphName = SharedGraphName
	}
	return &RelationalProvider{
		client:       cfg.Client,
		defaultScope: Scope{GraphName: graphName, ProjectID: cfg.ProjectID},
		logger:       logger,
	}
}

// scope resolves a caller scope against the provider's configured default.
// Only a zero Scope falls back; a caller naming a partition gets exactly that
// partition, so SharedScope never inherits the configured project id.
func (p *RelationalProvider) scope(s Scope) Scope {
	if s.IsZero() {
		return p.defaultScope
	}
	if s.GraphName == "" {
		s.GraphName = SharedGraphName
	}
	return s
}

// Connect verifies the injected client is reachable.
func (p *RelationalProvider) Connect(ctx context.Context) error {
	if p.client == nil {
		return errNotConnected()
	}
	if err := p.client.Ping(ctx); err != nil {
		return types.NewRetryableError(types.ErrConnectionFailed, "relational store unreachable", err)
	}
	return nil
}

// Close releases nothing: the relational client is owned by the caller.
func (p *RelationalProvider) Close(ctx context.Context) error {
	return nil
}

// IsConfigured reports whether a relational client was injected.
func (p *RelationalProvider) IsConfigured() bool {
	return p.client != nil
}

// Health probes the store with a ping.
func (p *RelationalProvider) Health(ctx context.Context) types.HealthStatus {
	if p.client == nil {
		return types.Unhealthy("no relational client configured")
	}
	if err := p.client.Ping(ctx); err != nil {
		return types.Unhealthyf("ping failed: %v", err)
	}
	return types.Healthy("relational store reachable")
}

// Capabilities describes what the relational emulation can do.
func (p *RelationalProvider) Capabilities() Capabilities {
	return Capabilities{
		CypherLevel:    "subset",
		Transactions:   true,
		FullTextSearch: true,
		VectorSearch:   false,
		Realtime:       false,
	}
}

// scopeFilters builds the partition filters every scoped fetch carries.
func scopeFilters(s Scope) []Filter {
	filters := []Filter{Eq("graph_name", s.GraphName)}
	if s.ProjectID != "" {
		filters = append(filters, Eq("project_id", s.ProjectID))
	}
	return filters
}

// CreateNode upserts the node keyed by id. Reprocessing the same source (for
// example re-ingesting a transcript) therefore produces one row, not
// duplicates. The node's properties always mirror its id.
func (p *RelationalProvider) CreateNode(ctx context.Context, scope Scope, node Node) (Node, error) {
	if p.client == nil {
		return Node{}, errNotConnected()
	}
	scope = p.scope(scope)
	if node.ID.IsZero() {
		node.ID = types.NewID()
	}
	if err := node.Validate(); err != nil {
		return Node{}, types.WrapError(types.ErrInvalidConfig, "invalid node", err)
	}
	if node.Properties == nil {
		node.Properties = make(map[string]any)
	}
	node.Properties["id"] = node.ID.String()
	node.GraphName = scope.GraphName
	node.ProjectID = scope.ProjectID

	now := time.Now().UTC()
	if node.CreatedAt.IsZero() {
		node.CreatedAt = now
	}
	node.UpdatedAt = now

	row := nodeToRow(node)
	if err := p.client.Upsert(ctx, TableNodes, row, graphConflictKey); err != nil {
		return Node{}, wrapStore("failed to upsert node", err)
	}
	return node, nil
}

// CreateNodes upserts nodes one by one. Not transactional: the result is a
// partial-success report.
func (p *RelationalProvider) CreateNodes(ctx context.Context, scope Scope, nodes []Node) BatchResult {
	var result BatchResult
	for i, node := range nodes {
		if _, err := p.CreateNode(ctx, scope, node); err != nil {
			result.Errors = append(result.Errors, fmt.Errorf("node %d (%s): %w", i, node.ID, err))
			continue
		}
		result.Created++
	}
	return result
}

// GetNode fetches a node by id within the scope.
func (p *RelationalProvider) GetNode(ctx context.Context, scope Scope, id types.ID) (*Node, error) {
	if p.client == nil {
		return nil, errNotConnected()
	}
	scope = p.scope(scope)
	filters := append(scopeFilters(scope), Eq("id", id.String()))
	rows, err := p.client.Select(ctx, TableNodes, filters, 1)
	if err != nil {
		return nil, wrapStore("failed to fetch node", err)
	}
	if len(rows) == 0 {
		return nil, errNotFound("node", id)
	}
	node := rowToNode(rows[0])
	return &node, nil
}

// UpdateNode reads the existing properties, merges props over them, and
// writes the result back inside a transaction. The write is rejected with
// ACCESS_DENIED when the scope names a project other than the node's owner.
// The read-merge-write carries no optimistic token, so concurrent updates to
// the same node are last-write-wins.
func (p *RelationalProvider) UpdateNode(ctx context.Context, scope Scope, id types.ID, props map[string]any) (*Node, error) {
	if p.client == nil {
		return nil, errNotConnected()
	}
	scope = p.scope(scope)

	var updated Node
	err := p.client.WithTx(ctx, func(tx RowClient) error {
		rows, err := tx.Select(ctx, TableNodes, []Filter{Eq("graph_name", scope.GraphName), Eq("id", id.String())}, 1)
		if err != nil {
			return wrapStore("failed to fetch node for update", err)
		}
		if len(rows) == 0 {
			return errNotFound("node", id)
		}
		node := rowToNode(rows[0])
		if scope.ProjectID != "" && node.ProjectID != "" && node.ProjectID != scope.ProjectID {
			return errAccessDenied(id, node.ProjectID, scope.ProjectID)
		}
		for k, v := range props {
			node.Properties[k] = v
		}
		node.Properties["id"] = node.ID.String()
		node.UpdatedAt = time.Now().UTC()
		if err := tx.Upsert(ctx, TableNodes, nodeToRow(node), graphConflictKey); err != nil {
			return wrapStore("failed to write node update", err)
		}
		updated = node
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// DeleteNode removes every relationship touching the node (both directions)
// and then the node itself, in a single transaction.
func (p *RelationalProvider) DeleteNode(ctx context.Context, scope Scope, id types.ID) error {
	if p.client == nil {
		return errNotConnected()
	}
	scope = p.scope(scope)
	return p.client.WithTx(ctx, func(tx RowClient) error {
		relFilters := []Filter{
			Eq("graph_name", scope.GraphName),
			Or(Eq("from_id", id.String()), Eq("to_id", id.String())),
		}
		if _, err := tx.Delete(ctx, TableRelationships, relFilters); err != nil {
			return wrapStore("failed to delete incident relationships", err)
		}
		if _, err := tx.Delete(ctx, TableNodes, []Filter{Eq("graph_name", scope.GraphName), Eq("id", id.String())}); err != nil {
			return wrapStore("failed to delete node", err)
		}
		return nil
	})
}

// FindNodes fetches nodes by label and exact property equality. Property
// matching runs in memory on the scoped fetch, like the WHERE evaluation.
func (p *RelationalProvider) FindNodes(ctx context.Context, scope Scope, label string, filter map[string]any, limit int) ([]Node, error) {
	if p.client == nil {
		return nil, errNotConnected()
	}
	scope = p.scope(scope)
	filters := scopeFilters(scope)
	if label != "" {
		filters = append(filters, Eq("label", label))
	}
	fetchLimit := limit
	if len(filter) > 0 {
		fetchLimit = 0 // filter in memory, cannot push limit down
	}
	rows, err := p.client.Select(ctx, TableNodes, filters, fetchLimit)
	if err != nil {
		return nil, wrapStore("failed to fetch nodes", err)
	}
	nodes := make([]Node, 0, len(rows))
	for _, row := range rows {
		node := rowToNode(row)
		if !propsMatch(node.Properties, filter) {
			continue
		}
		nodes = append(nodes, node)
		if limit > 0 && len(nodes) >= limit {
			break
		}
	}
	return nodes, nil
}

// CreateRelationship upserts the relationship. An empty id defaults to
// "{type}:{fromId}:{toId}", making the call idempotent and restricting each
// ordered pair to one edge per type unless an explicit id is supplied.
func (p *RelationalProvider) CreateRelationship(ctx context.Context, scope Scope, rel Relationship) (Relationship, error) {
	if p.client == nil {
		return Relationship{}, errNotConnected()
	}
	scope = p.scope(scope)
	if err := rel.Validate(); err != nil {
		return Relationship{}, types.WrapError(types.ErrInvalidConfig, "invalid relationship", err)
	}
	if rel.ID.IsZero() {
		rel.ID = rel.DefaultID()
	}
	if rel.Properties == nil {
		rel.Properties = make(map[string]any)
	}
	rel.GraphName = scope.GraphName
	rel.ProjectID = scope.ProjectID
	if rel.CreatedAt.IsZero() {
		rel.CreatedAt = time.Now().UTC()
	}
	if err := p.client.Upsert(ctx, TableRelationships, relToRow(rel), graphConflictKey); err != nil {
		return Relationship{}, wrapStore("failed to upsert relationship", err)
	}
	return rel, nil
}

// CreateRelationships upserts relationships one by one, partial success.
func (p *RelationalProvider) CreateRelationships(ctx context.Context, scope Scope, rels []Relationship) BatchResult {
	var result BatchResult
	for i, rel := range rels {
		if _, err := p.CreateRelationship(ctx, scope, rel); err != nil {
			result.Errors = append(result.Errors, fmt.Errorf("relationship %d (%s): %w", i, rel.Type, err))
			continue
		}
		result.Created++
	}
	return result
}

// GetRelationship fetches a relationship by id within the scope.
func (p *RelationalProvider) GetRelationship(ctx context.Context, scope Scope, id types.ID) (*Relationship, error) {
	if p.client == nil {
		return nil, errNotConnected()
	}
	scope = p.scope(scope)
	rows, err := p.client.Select(ctx, TableRelationships, append(scopeFilters(scope), Eq("id", id.String())), 1)
	if err != nil {
		return nil, wrapStore("failed to fetch relationship", err)
	}
	if len(rows) == 0 {
		return nil, errNotFound("relationship", id)
	}
	rel := rowToRel(rows[0])
	return &rel, nil
}

// DeleteRelationship removes a relationship by id.
func (p *RelationalProvider) DeleteRelationship(ctx context.Context, scope Scope, id types.ID) error {
	if p.client == nil {
		return errNotConnected()
	}
	scope = p.scope(scope)
	n, err := p.client.Delete(ctx, TableRelationships, []Filter{Eq("graph_name", scope.GraphName), Eq("id", id.String())})
	if err != nil {
		return wrapStore("failed to delete relationship", err)
	}
	if n == 0 {
		return errNotFound("relationship", id)
	}
	return nil
}

// FindRelationships fetches relationships matching the filter within the scope.
func (p *RelationalProvider) FindRelationships(ctx context.Context, scope Scope, filter RelFilter) ([]Relationship, error) {
	if p.client == nil {
		return nil, errNotConnected()
	}
	scope = p.scope(scope)
	filters := scopeFilters(scope)
	if filter.FromID != nil {
		filters = append(filters, Eq("from_id", filter.FromID.String()))
	}
	if filter.ToID != nil {
		filters = append(filters, Eq("to_id", filter.ToID.String()))
	}
	if filter.EitherID != nil {
		filters = append(filters, Or(Eq("from_id", filter.EitherID.String()), Eq("to_id", filter.EitherID.String())))
	}
	if len(filter.Types) > 0 {
		values := make([]any, len(filter.Types))
		for i, t := range filter.Types {
			values[i] = t
		}
		filters = append(filters, In("type", values))
	}
	rows, err := p.client.Select(ctx, TableRelationships, filters, filter.Limit)
	if err != nil {
		return nil, wrapStore("failed to fetch relationships", err)
	}
	rels := make([]Relationship, 0, len(rows))
	for _, row := range rows {
		rels = append(rels, rowToRel(row))
	}
	return rels, nil
}

// SearchNodes performs a case-insensitive substring search over property
// values, in memory on the scoped fetch.
func (p *RelationalProvider) SearchNodes(ctx context.Context, scope Scope, text string, labels []string, limit int) ([]Node, error) {
	if p.client == nil {
		return nil, errNotConnected()
	}
	scope = p.scope(scope)
	filters := scopeFilters(scope)
	if len(labels) > 0 {
		values := make([]any, len(labels))
		for i, l := range labels {
			values[i] = l
		}
		filters = append(filters, In("label", values))
	}
	rows, err := p.client.Select(ctx, TableNodes, filters, 0)
	if err != nil {
		return nil, wrapStore("failed to fetch nodes for search", err)
	}
	needle := strings.ToLower(text)
	nodes := make([]Node, 0)
	for _, row := range rows {
		node := rowToNode(row)
		if nodeContainsText(node, needle) {
			nodes = append(nodes, node)
			if limit > 0 && len(nodes) >= limit {
				break
			}
		}
	}
	return nodes, nil
}

// VectorSearch is not available on the relational emulation (Capabilities
// reports VectorSearch false); callers needing it route to a backend that
// supports embeddings natively.
func (p *RelationalProvider) VectorSearch(ctx context.Context, scope Scope, embedding []float64, topK int) ([]VectorResult, error) {
	if p.client == nil {
		return nil, errNotConnected()
	}
	return nil, types.NewError(types.ErrUnsupportedQuery, "vector search is not supported by the relational backend")
}

// nodeContainsText reports whether any property value contains needle
// (already lowercased).
func nodeContainsText(node Node, needle string) bool {
	for _, v := range node.Properties {
		if s, ok := v.(string); ok && strings.Contains(strings.ToLower(s), needle) {
			return true
		}
	}
	return false
}

// GetStats runs four independent scoped aggregates: node count, relationship
// count, label histogram, relationship-type histogram. Counts are computed on
// demand, not incrementally maintained.
func (p *RelationalProvider) GetStats(ctx context.Context, scope Scope) (Stats, error) {
	if p.client == nil {
		return Stats{}, errNotConnected()
	}
	scope = p.scope(scope)
	stats := Stats{
		Labels:            make(map[string]int64),
		RelationshipTypes: make(map[string]int64),
	}

	var err error
	if stats.Nodes, err = p.client.Count(ctx, TableNodes, scopeFilters(scope)); err != nil {
		return Stats{}, wrapStore("failed to count nodes", err)
	}
	if stats.Relationships, err = p.client.Count(ctx, TableRelationships, scopeFilters(scope)); err != nil {
		return Stats{}, wrapStore("failed to count relationships", err)
	}

	labels, err := p.client.Distinct(ctx, TableNodes, "label", scopeFilters(scope))
	if err != nil {
		return Stats{}, wrapStore("failed to list labels", err)
	}
	for _, l := range labels {
		label, ok := l.(string)
		if !ok {
			continue
		}
		n, err := p.client.Count(ctx, TableNodes, append(scopeFilters(scope), Eq("label", label)))
		if err != nil {
			return Stats{}, wrapStore("failed to count label "+label, err)
		}
		stats.Labels[label] = n
	}

	relTypes, err := p.client.Distinct(ctx, TableRelationships, "type", scopeFilters(scope))
	if err != nil {
		return Stats{}, wrapStore("failed to list relationship types", err)
	}
	for _, t := range relTypes {
		relType, ok := t.(string)
		if !ok {
			continue
		}
		n, err := p.client.Count(ctx, TableRelationships, append(scopeFilters(scope), Eq("type", relType)))
		if err != nil {
			return Stats{}, wrapStore("failed to count relationship type "+relType, err)
		}
		stats.RelationshipTypes[relType] = n
	}

	return stats, nil
}

// ClearGraph deletes all in-scope relationships, then all in-scope nodes,
// in one transaction.
func (p *RelationalProvider) ClearGraph(ctx context.Context, scope Scope) error {
	if p.client == nil {
		return errNotConnected()
	}
	scope = p.scope(scope)
	return p.client.WithTx(ctx, func(tx RowClient) error {
		if _, err := tx.Delete(ctx, TableRelationships, scopeFilters(scope)); err != nil {
			return wrapStore("failed to clear relationships", err)
		}
		if _, err := tx.Delete(ctx, TableNodes, scopeFilters(scope)); err != nil {
			return wrapStore("failed to clear nodes", err)
		}
		return nil
	})
}

// DropGraph removes the virtual partition. Partitions are column filters over
// shared tables, so dropping is clearing.
func (p *RelationalProvider) DropGraph(ctx context.Context, scope Scope) error {
	return p.ClearGraph(ctx, scope)
}

// ListGraphs returns the distinct graph_name values present in the node table.
func (p *RelationalProvider) ListGraphs(ctx context.Context) ([]string, error) {
	if p.client == nil {
		return nil, errNotConnected()
	}
	values, err := p.client.Distinct(ctx, TableNodes, "graph_name", nil)
	if err != nil {
		return nil, wrapStore("failed to list graphs", err)
	}
	names := make([]string, 0, len(values))
	for _, v := range values {
		if s, ok := v.(string); ok {
			names = append(names, s)
		}
	}
	return names, nil
}

// UpsertSyncStatus creates or updates the sync row for a (project, partition)
// pair. Sync rows are never deleted by this engine.
func (p *RelationalProvider) UpsertSyncStatus(ctx context.Context, status SyncStatus) error {
	if p.client == nil {
		return errNotConnected()
	}
	if status.UpdatedAt.IsZero() {
		status.UpdatedAt = time.Now().UTC()
	}
	row := map[string]any{
		"project_id":        status.ProjectID,
		"graph_name":        status.GraphName,
		"health_status":     status.HealthStatus,
		"pending_count":     status.PendingCount,
		"last_error":        status.LastError,
		"last_connected_at": status.LastConnectedAt,
		"updated_at":        status.UpdatedAt,
	}
	if err := p.client.Upsert(ctx, TableSyncStatus, row, []string{"project_id", "graph_name"}); err != nil {
		return wrapStore("failed to upsert sync status", err)
	}
	return nil
}

// GetSyncStatus fetches the sync row for a (project, partition) pair.
func (p *RelationalProvider) GetSyncStatus(ctx context.Context, projectID, graphName string) (*SyncStatus, error) {
	if p.client == nil {
		return nil, errNotConnected()
	}
	rows, err := p.client.Select(ctx, TableSyncStatus,
		[]Filter{Eq("project_id", projectID), Eq("graph_name", graphName)}, 1)
	if err != nil {
		return nil, wrapStore("failed to fetch sync status", err)
	}
	if len(rows) == 0 {
		return nil, types.NewError(types.ErrNotFound,
			fmt.Sprintf("no sync status for project %q graph %q", projectID, graphName))
	}
	row := rows[0]
	status := SyncStatus{
		ProjectID:       asString(row["project_id"]),
		GraphName:       asString(row["graph_name"]),
		HealthStatus:    asString(row["health_status"]),
		PendingCount:    int(asInt64(row["pending_count"])),
		LastError:       asString(row["last_error"]),
		LastConnectedAt: asTime(row["last_connected_at"]),
		UpdatedAt:       asTime(row["updated_at"]),
	}
	return &status, nil
}

// propsMatch reports whether props satisfies every exact-equality entry in
// filter. Values are compared via fmt.Sprint to tolerate numeric widening
// from JSON round-trips.
func propsMatch(props, filter map[string]any) bool {
	for k, want := range filter {
		got, ok := props[k]
		if !ok {
			return false
		}
		if fmt.Sprint(got) != fmt.Sprint(want) {
			return false
		}
	}
	return true
}
