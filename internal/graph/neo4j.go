package graph

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/rpad300/godmode-sub011/internal/types"
)

// Neo4jOptions are the backend-specific knobs decoded from Config.Options.
type Neo4jOptions struct {
	URI                     string        `mapstructure:"uri"`
	Username                string        `mapstructure:"username"`
	Password                string        `mapstructure:"password"`
	Database                string        `mapstructure:"database"`
	MaxConnectionPoolSize   int           `mapstructure:"max_connection_pool_size"`
	ConnectionTimeout       time.Duration `mapstructure:"connection_timeout"`
	MaxTransactionRetryTime time.Duration `mapstructure:"max_transaction_retry_time"`
}

func defaultNeo4jOptions() Neo4jOptions {
	return Neo4jOptions{
		URI:                     "bolt://localhost:7687",
		Username:                "neo4j",
		MaxConnectionPoolSize:   50,
		ConnectionTimeout:       30 * time.Second,
		MaxTransactionRetryTime: 30 * time.Second,
	}
}

// Neo4jProvider implements GraphProvider on a native Neo4j instance. Logical
// partitions are emulated the same way the relational backend does it: every
// node and relationship carries graph_name (and optionally project_id)
// properties, and every operation filters on them.
//
// The driver handles session pooling, so the provider is safe for concurrent
// use once connected.
type Neo4jProvider struct {
	cfg    Config
	opts   Neo4jOptions
	driver neo4j.DriverWithContext
	logger *slog.Logger
}

// NewNeo4jProvider builds an unconnected provider from Config.Options.
func NewNeo4jProvider(cfg Config, logger *slog.Logger) (*Neo4jProvider, error) {
	opts := defaultNeo4jOptions()
	if len(cfg.Options) > 0 {
		decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
			Result:     &opts,
			DecodeHook: mapstructure.StringToTimeDurationHookFunc(),
		})
		if err != nil {
			return nil, types.WrapError(types.ErrInvalidConfig, "invalid neo4j options", err)
		}
		if err := decoder.Decode(cfg.Options); err != nil {
			return nil, types.WrapError(types.ErrInvalidConfig, "invalid neo4j options", err)
		}
	}
	if opts.URI == "" {
		return nil, types.NewError(types.ErrInvalidConfig, "neo4j uri is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Neo4jProvider{
		cfg:    cfg,
		opts:   opts,
		logger: logger.With("provider", ProviderNeo4j),
	}, nil
}

// Connect creates the driver and verifies connectivity with exponential
// backoff, capped at the configured connection timeout.
func (p *Neo4jProvider) Connect(ctx context.Context) error {
	auth := neo4j.BasicAuth(p.opts.Username, p.opts.Password, "")
	configure := func(cfg *neo4j.Config) {
		cfg.MaxConnectionPoolSize = p.opts.MaxConnectionPoolSize
		cfg.ConnectionAcquisitionTimeout = p.opts.ConnectionTimeout
		cfg.MaxTransactionRetryTime = p.opts.MaxTransactionRetryTime
	}

	var lastErr error
	maxRetries := 5
	baseDelay := 100 * time.Millisecond

	for attempt := 0; attempt < maxRetries; attempt++ {
		driver, err := neo4j.NewDriverWithContext(p.opts.URI, auth, configure)
		if err == nil {
			if err = driver.VerifyConnectivity(ctx); err == nil {
				p.driver = driver
				p.logger.Info("connected to neo4j", "uri", p.opts.URI)
				return nil
			}
		}
		lastErr = err

		delay := baseDelay * time.Duration(math.Pow(2, float64(attempt)))
		if delay > p.opts.ConnectionTimeout {
			delay = p.opts.ConnectionTimeout
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return types.WrapError(types.ErrConnectionFailed,
				"connection attempt cancelled", ctx.Err())
		}
	}

	return types.WrapError(types.ErrConnectionFailed,
		fmt.Sprintf("failed to connect after %d attempts", maxRetries), lastErr)
}

// Close shuts the driver down. Safe on a never-connected provider.
func (p *Neo4jProvider) Close(ctx context.Context) error {
	if p.driver == nil {
		return nil
	}
	if err := p.driver.Close(ctx); err != nil {
		return types.WrapError(types.ErrStore, "failed to close neo4j driver", err)
	}
	p.driver = nil
	return nil
}

// IsConfigured reports whether Connect has succeeded.
func (p *Neo4jProvider) IsConfigured() bool {
	return p.driver != nil
}

// Health verifies connectivity with a bounded timeout.
func (p *Neo4jProvider) Health(ctx context.Context) types.HealthStatus {
	if p.driver == nil {
		return types.Unhealthy("not connected")
	}
	healthCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := p.driver.VerifyConnectivity(healthCtx); err != nil {
		return types.Unhealthyf("connectivity check failed: %v", err)
	}
	return types.Healthy("connected to neo4j")
}

// Capabilities reports native Cypher support.
func (p *Neo4jProvider) Capabilities() Capabilities {
	return Capabilities{
		CypherLevel:    "full",
		Transactions:   true,
		FullTextSearch: true,
		VectorSearch:   true,
	}
}

func (p *Neo4jProvider) scope(s Scope) Scope {
	if s.IsZero() {
		s = Scope{GraphName: p.cfg.GraphName, ProjectID: p.cfg.ProjectID}
	}
	if s.GraphName == "" {
		s.GraphName = SharedGraphName
	}
	return s
}

// scopeParams returns the partition properties stamped on every stored entity
// and used by every match.
func scopeParams(s Scope) map[string]any {
	params := map[string]any{"graph_name": s.GraphName}
	if s.ProjectID != "" {
		params["project_id"] = s.ProjectID
	}
	return params
}

// scopePredicate renders the partition filter for an alias, e.g.
// "n.graph_name = $graph_name AND n.project_id = $project_id".
func scopePredicate(alias string, s Scope) string {
	pred := alias + ".graph_name = $graph_name"
	if s.ProjectID != "" {
		pred += " AND " + alias + ".project_id = $project_id"
	}
	return pred
}

func (p *Neo4jProvider) session(ctx context.Context) neo4j.SessionWithContext {
	return p.driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: p.opts.Database})
}

// read runs cypher in a read transaction and collects all records.
func (p *Neo4jProvider) read(ctx context.Context, cypher string, params map[string]any) ([]*neo4j.Record, error) {
	if p.driver == nil {
		return nil, errNotConnected()
	}
	session := p.session(ctx)
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, cypher, params)
		if err != nil {
			return nil, err
		}
		return res.Collect(ctx)
	})
	if err != nil {
		return nil, wrapStore("neo4j read failed", err)
	}
	return result.([]*neo4j.Record), nil
}

// write runs cypher in a write transaction and collects all records.
func (p *Neo4jProvider) write(ctx context.Context, cypher string, params map[string]any) ([]*neo4j.Record, error) {
	if p.driver == nil {
		return nil, errNotConnected()
	}
	session := p.session(ctx)
	defer session.Close(ctx)

	result, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, cypher, params)
		if err != nil {
			return nil, err
		}
		return res.Collect(ctx)
	})
	if err != nil {
		return nil, wrapStore("neo4j write failed", err)
	}
	return result.([]*neo4j.Record), nil
}

// CreateNode upserts by id within the partition via MERGE.
func (p *Neo4jProvider) CreateNode(ctx context.Context, scope Scope, node Node) (Node, error) {
	scope = p.scope(scope)
	if err := node.Validate(); err != nil {
		return Node{}, types.WrapError(types.ErrInvalidConfig, "invalid node", err)
	}
	now := time.Now().UTC()
	if node.CreatedAt.IsZero() {
		node.CreatedAt = now
	}
	node.UpdatedAt = now
	node.GraphName = scope.GraphName
	node.ProjectID = scope.ProjectID
	node.WithProperty("id", node.ID.String())

	cypher := fmt.Sprintf(`
		MERGE (n:%s {id: $id, graph_name: $graph_name})
		ON CREATE SET n.created_at = $created_at
		SET n += $props, n.updated_at = $updated_at
		RETURN n`, sanitizeLabel(node.Label))

	params := scopeParams(scope)
	params["id"] = node.ID.String()
	params["props"] = flattenProps(node.Properties)
	params["created_at"] = node.CreatedAt.Format(time.RFC3339Nano)
	params["updated_at"] = node.UpdatedAt.Format(time.RFC3339Nano)
	if scope.ProjectID != "" {
		params["props"].(map[string]any)["project_id"] = scope.ProjectID
	}

	if _, err := p.write(ctx, cypher, params); err != nil {
		return Node{}, err
	}
	return node, nil
}

// CreateNodes upserts nodes one by one, partial success.
func (p *Neo4jProvider) CreateNodes(ctx context.Context, scope Scope, nodes []Node) BatchResult {
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

// GetNode fetches a node by id within the partition.
func (p *Neo4jProvider) GetNode(ctx context.Context, scope Scope, id types.ID) (*Node, error) {
	scope = p.scope(scope)
	cypher := fmt.Sprintf("MATCH (n {id: $node_id}) WHERE %s RETURN n, labels(n) AS labels",
		scopePredicate("n", scope))
	params := scopeParams(scope)
	params["node_id"] = id.String()

	records, err := p.read(ctx, cypher, params)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, errNotFound("node", id)
	}
	node := recordToNode(records[0], scope)
	return &node, nil
}

// UpdateNode merges props into the node. Cross-project writes are rejected.
func (p *Neo4jProvider) UpdateNode(ctx context.Context, scope Scope, id types.ID, props map[string]any) (*Node, error) {
	scope = p.scope(scope)
	existing, err := p.GetNode(ctx, scope, id)
	if err != nil {
		return nil, err
	}
	if scope.ProjectID != "" && existing.ProjectID != "" && existing.ProjectID != scope.ProjectID {
		return nil, errAccessDenied(id, existing.ProjectID, scope.ProjectID)
	}

	cypher := fmt.Sprintf(`
		MATCH (n {id: $node_id}) WHERE %s
		SET n += $props, n.updated_at = $updated_at
		RETURN n, labels(n) AS labels`, scopePredicate("n", scope))
	params := scopeParams(scope)
	params["node_id"] = id.String()
	params["props"] = flattenProps(props)
	params["updated_at"] = time.Now().UTC().Format(time.RFC3339Nano)

	records, err := p.write(ctx, cypher, params)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, errNotFound("node", id)
	}
	node := recordToNode(records[0], scope)
	return &node, nil
}

// DeleteNode removes the node and its incident relationships atomically;
// DETACH DELETE is the native form of the cascade.
func (p *Neo4jProvider) DeleteNode(ctx context.Context, scope Scope, id types.ID) error {
	scope = p.scope(scope)
	cypher := fmt.Sprintf("MATCH (n {id: $node_id}) WHERE %s DETACH DELETE n",
		scopePredicate("n", scope))
	params := scopeParams(scope)
	params["node_id"] = id.String()
	_, err := p.write(ctx, cypher, params)
	return err
}

// FindNodes fetches nodes by label and exact property equality.
func (p *Neo4jProvider) FindNodes(ctx context.Context, scope Scope, label string, filter map[string]any, limit int) ([]Node, error) {
	scope = p.scope(scope)
	pattern := "(n)"
	if label != "" {
		pattern = fmt.Sprintf("(n:%s)", sanitizeLabel(label))
	}
	predicates := []string{scopePredicate("n", scope)}
	params := scopeParams(scope)
	for i, key := range sortedKeys(filter) {
		param := fmt.Sprintf("fv%d", i)
		predicates = append(predicates, fmt.Sprintf("n.%s = $%s", sanitizeLabel(key), param))
		params[param] = filter[key]
	}
	cypher := fmt.Sprintf("MATCH %s WHERE %s RETURN n, labels(n) AS labels",
		pattern, strings.Join(predicates, " AND "))
	if limit > 0 {
		cypher += fmt.Sprintf(" LIMIT %d", limit)
	}

	records, err := p.read(ctx, cypher, params)
	if err != nil {
		return nil, err
	}
	nodes := make([]Node, 0, len(records))
	for _, record := range records {
		nodes = append(nodes, recordToNode(record, scope))
	}
	return nodes, nil
}

// CreateRelationship upserts an edge by id within the partition.
func (p *Neo4jProvider) CreateRelationship(ctx context.Context, scope Scope, rel Relationship) (Relationship, error) {
	scope = p.scope(scope)
	if err := rel.Validate(); err != nil {
		return Relationship{}, types.WrapError(types.ErrInvalidConfig, "invalid relationship", err)
	}
	if rel.ID.IsZero() {
		rel.ID = rel.DefaultID()
	}
	if rel.CreatedAt.IsZero() {
		rel.CreatedAt = time.Now().UTC()
	}
	rel.GraphName = scope.GraphName
	rel.ProjectID = scope.ProjectID

	cypher := fmt.Sprintf(`
		MATCH (from {id: $from_id}), (to {id: $to_id})
		WHERE %s AND %s
		MERGE (from)-[r:%s {id: $rel_id}]->(to)
		SET r += $props, r.graph_name = $graph_name, r.created_at = $created_at
		RETURN r`,
		scopePredicate("from", scope), scopePredicate("to", scope), sanitizeLabel(rel.Type))
	params := scopeParams(scope)
	params["from_id"] = rel.FromID.String()
	params["to_id"] = rel.ToID.String()
	params["rel_id"] = rel.ID.String()
	params["props"] = flattenProps(rel.Properties)
	params["created_at"] = rel.CreatedAt.Format(time.RFC3339Nano)
	if scope.ProjectID != "" {
		params["props"].(map[string]any)["project_id"] = scope.ProjectID
	}

	records, err := p.write(ctx, cypher, params)
	if err != nil {
		return Relationship{}, err
	}
	if len(records) == 0 {
		return Relationship{}, errNotFound("node", rel.FromID)
	}
	return rel, nil
}

// CreateRelationships upserts edges one by one, partial success.
func (p *Neo4jProvider) CreateRelationships(ctx context.Context, scope Scope, rels []Relationship) BatchResult {
	var result BatchResult
	for i, rel := range rels {
		if _, err := p.CreateRelationship(ctx, scope, rel); err != nil {
			result.Errors = append(result.Errors, fmt.Errorf("relationship %d: %w", i, err))
			continue
		}
		result.Created++
	}
	return result
}

// GetRelationship fetches an edge by id within the partition.
func (p *Neo4jProvider) GetRelationship(ctx context.Context, scope Scope, id types.ID) (*Relationship, error) {
	scope = p.scope(scope)
	cypher := fmt.Sprintf(`
		MATCH (from)-[r {id: $rel_id}]->(to)
		WHERE %s
		RETURN r, type(r) AS rel_type, from.id AS from_id, to.id AS to_id`,
		scopePredicate("r", scope))
	params := scopeParams(scope)
	params["rel_id"] = id.String()

	records, err := p.read(ctx, cypher, params)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, errNotFound("relationship", id)
	}
	rel := recordToRel(records[0], scope)
	return &rel, nil
}

// DeleteRelationship removes an edge by id within the partition.
func (p *Neo4jProvider) DeleteRelationship(ctx context.Context, scope Scope, id types.ID) error {
	scope = p.scope(scope)
	cypher := fmt.Sprintf("MATCH ()-[r {id: $rel_id}]->() WHERE %s DELETE r",
		scopePredicate("r", scope))
	params := scopeParams(scope)
	params["rel_id"] = id.String()
	_, err := p.write(ctx, cypher, params)
	return err
}

// FindRelationships fetches edges matching the filter.
func (p *Neo4jProvider) FindRelationships(ctx context.Context, scope Scope, filter RelFilter) ([]Relationship, error) {
	scope = p.scope(scope)
	predicates := []string{scopePredicate("r", scope)}
	params := scopeParams(scope)
	if filter.FromID != nil {
		predicates = append(predicates, "from.id = $filter_from")
		params["filter_from"] = filter.FromID.String()
	}
	if filter.ToID != nil {
		predicates = append(predicates, "to.id = $filter_to")
		params["filter_to"] = filter.ToID.String()
	}
	if filter.EitherID != nil {
		predicates = append(predicates, "(from.id = $filter_either OR to.id = $filter_either)")
		params["filter_either"] = filter.EitherID.String()
	}
	if len(filter.Types) > 0 {
		predicates = append(predicates, "type(r) IN $filter_types")
		params["filter_types"] = filter.Types
	}
	cypher := fmt.Sprintf(`
		MATCH (from)-[r]->(to)
		WHERE %s
		RETURN r, type(r) AS rel_type, from.id AS from_id, to.id AS to_id`,
		strings.Join(predicates, " AND "))
	if filter.Limit > 0 {
		cypher += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}

	records, err := p.read(ctx, cypher, params)
	if err != nil {
		return nil, err
	}
	rels := make([]Relationship, 0, len(records))
	for _, record := range records {
		rels = append(rels, recordToRel(record, scope))
	}
	return rels, nil
}

// Query passes Cypher through to the server verbatim. The partition filter is
// the caller's responsibility here; native Cypher has no safe rewrite point.
// A write transaction is used because arbitrary text may mutate.
func (p *Neo4jProvider) Query(ctx context.Context, scope Scope, cypher string, params map[string]any) (QueryResult, error) {
	records, err := p.write(ctx, cypher, params)
	if err != nil {
		return QueryResult{}, err
	}
	result := QueryResult{Records: make([]map[string]any, 0, len(records)), Outcome: OutcomeRows}
	for _, record := range records {
		row := make(map[string]any, len(record.Keys))
		for i, key := range record.Keys {
			row[key] = record.Values[i]
		}
		result.Records = append(result.Records, row)
	}
	if len(result.Records) == 0 {
		result.Outcome = OutcomeEmpty
	}
	return result, nil
}

// TraversePath runs a native variable-length expansion.
func (p *Neo4jProvider) TraversePath(ctx context.Context, scope Scope, start types.ID, relTypes []string, maxDepth int, direction Direction) ([]Relationship, error) {
	scope = p.scope(scope)
	if maxDepth <= 0 {
		maxDepth = 3
	}
	typeExpr := ""
	if len(relTypes) > 0 {
		sanitized := make([]string, len(relTypes))
		for i, t := range relTypes {
			sanitized[i] = sanitizeLabel(t)
		}
		typeExpr = ":" + strings.Join(sanitized, "|")
	}
	var pattern string
	switch direction {
	case DirectionOutgoing:
		pattern = fmt.Sprintf("(start {id: $start_id})-[rels%s*1..%d]->()", typeExpr, maxDepth)
	case DirectionIncoming:
		pattern = fmt.Sprintf("(start {id: $start_id})<-[rels%s*1..%d]-()", typeExpr, maxDepth)
	default:
		pattern = fmt.Sprintf("(start {id: $start_id})-[rels%s*1..%d]-()", typeExpr, maxDepth)
	}
	cypher := fmt.Sprintf(`
		MATCH %s
		WHERE %s
		UNWIND rels AS r
		WITH DISTINCT r
		MATCH (from)-[r]->(to)
		RETURN r, type(r) AS rel_type, from.id AS from_id, to.id AS to_id`,
		pattern, scopePredicate("start", scope))
	params := scopeParams(scope)
	params["start_id"] = start.String()

	records, err := p.read(ctx, cypher, params)
	if err != nil {
		return nil, err
	}
	rels := make([]Relationship, 0, len(records))
	for _, record := range records {
		rels = append(rels, recordToRel(record, scope))
	}
	return rels, nil
}

// SearchNodes does a case-insensitive substring scan over property values.
func (p *Neo4jProvider) SearchNodes(ctx context.Context, scope Scope, text string, labels []string, limit int) ([]Node, error) {
	scope = p.scope(scope)
	predicates := []string{
		scopePredicate("n", scope),
		"any(k IN keys(n) WHERE toLower(toString(n[k])) CONTAINS toLower($search))",
	}
	params := scopeParams(scope)
	params["search"] = text
	if len(labels) > 0 {
		sanitized := make([]string, len(labels))
		for i, l := range labels {
			sanitized[i] = "'" + sanitizeLabel(l) + "'"
		}
		predicates = append(predicates, fmt.Sprintf("any(l IN labels(n) WHERE l IN [%s])", strings.Join(sanitized, ", ")))
	}
	cypher := fmt.Sprintf("MATCH (n) WHERE %s RETURN n, labels(n) AS labels",
		strings.Join(predicates, " AND "))
	if limit > 0 {
		cypher += fmt.Sprintf(" LIMIT %d", limit)
	}

	records, err := p.read(ctx, cypher, params)
	if err != nil {
		return nil, err
	}
	nodes := make([]Node, 0, len(records))
	for _, record := range records {
		nodes = append(nodes, recordToNode(record, scope))
	}
	return nodes, nil
}

// VectorSearch ranks nodes carrying an `embedding` property by cosine
// similarity to the query embedding, computed natively in Cypher.
func (p *Neo4jProvider) VectorSearch(ctx context.Context, scope Scope, embedding []float64, topK int) ([]VectorResult, error) {
	if len(embedding) == 0 {
		return nil, types.NewError(types.ErrUnsupportedQuery, "vector search requires a non-empty embedding")
	}
	scope = p.scope(scope)
	if topK <= 0 {
		topK = 10
	}
	cypher := fmt.Sprintf(`
		MATCH (n) WHERE %s AND n.embedding IS NOT NULL
		WITH n, labels(n) AS labels, vector.similarity.cosine(n.embedding, $embedding) AS score
		ORDER BY score DESC
		LIMIT %d
		RETURN n, labels, score`, scopePredicate("n", scope), topK)
	params := scopeParams(scope)
	params["embedding"] = embedding

	records, err := p.read(ctx, cypher, params)
	if err != nil {
		return nil, err
	}
	results := make([]VectorResult, 0, len(records))
	for _, record := range records {
		node := recordToNode(record, scope)
		result := VectorResult{NodeID: node.ID, Node: &node}
		if score, ok := record.Get("score"); ok {
			result.Similarity = asFloat64(score)
		}
		results = append(results, result)
	}
	return results, nil
}

// GetStats aggregates counts and histograms for the partition.
func (p *Neo4jProvider) GetStats(ctx context.Context, scope Scope) (Stats, error) {
	scope = p.scope(scope)
	stats := Stats{Labels: map[string]int64{}, RelationshipTypes: map[string]int64{}}

	labelCypher := fmt.Sprintf(`
		MATCH (n) WHERE %s
		UNWIND labels(n) AS label
		RETURN label, count(*) AS cnt`, scopePredicate("n", scope))
	records, err := p.read(ctx, labelCypher, scopeParams(scope))
	if err != nil {
		return Stats{}, err
	}
	for _, record := range records {
		label, _ := record.Get("label")
		cnt, _ := record.Get("cnt")
		if name, ok := label.(string); ok {
			stats.Labels[name] = asInt64(cnt)
			stats.Nodes += asInt64(cnt)
		}
	}

	typeCypher := fmt.Sprintf(`
		MATCH ()-[r]->() WHERE %s
		RETURN type(r) AS rel_type, count(*) AS cnt`, scopePredicate("r", scope))
	records, err = p.read(ctx, typeCypher, scopeParams(scope))
	if err != nil {
		return Stats{}, err
	}
	for _, record := range records {
		relType, _ := record.Get("rel_type")
		cnt, _ := record.Get("cnt")
		if name, ok := relType.(string); ok {
			stats.RelationshipTypes[name] = asInt64(cnt)
			stats.Relationships += asInt64(cnt)
		}
	}
	return stats, nil
}

// ClearGraph detach-deletes every node in the partition.
func (p *Neo4jProvider) ClearGraph(ctx context.Context, scope Scope) error {
	scope = p.scope(scope)
	cypher := fmt.Sprintf("MATCH (n) WHERE %s DETACH DELETE n", scopePredicate("n", scope))
	_, err := p.write(ctx, cypher, scopeParams(scope))
	return err
}

// DropGraph is ClearGraph for a property-emulated partition.
func (p *Neo4jProvider) DropGraph(ctx context.Context, scope Scope) error {
	return p.ClearGraph(ctx, scope)
}

// ListGraphs returns the distinct partition names present in the store.
func (p *Neo4jProvider) ListGraphs(ctx context.Context) ([]string, error) {
	records, err := p.read(ctx,
		"MATCH (n) WHERE n.graph_name IS NOT NULL RETURN DISTINCT n.graph_name AS graph_name", nil)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(records))
	for _, record := range records {
		if v, ok := record.Get("graph_name"); ok {
			if name, ok := v.(string); ok {
				names = append(names, name)
			}
		}
	}
	sort.Strings(names)
	return names, nil
}

// sanitizeLabel strips everything but word characters so labels, relationship
// types, and property keys can never break out of the generated Cypher.
func sanitizeLabel(label string) string {
	var b strings.Builder
	for _, r := range label {
		if r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "_"
	}
	return b.String()
}

// flattenProps drops nested maps, which Neo4j properties cannot hold.
func flattenProps(props map[string]any) map[string]any {
	flat := make(map[string]any, len(props))
	for key, value := range props {
		if _, ok := value.(map[string]any); ok {
			continue
		}
		flat[key] = value
	}
	return flat
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// recordToNode rebuilds a Node from a "RETURN n, labels(n) AS labels" row.
func recordToNode(record *neo4j.Record, scope Scope) Node {
	node := Node{GraphName: scope.GraphName, Properties: map[string]any{}}
	if v, ok := record.Get("n"); ok {
		if n, ok := v.(neo4j.Node); ok {
			for key, value := range n.Props {
				node.Properties[key] = value
			}
		}
	}
	if v, ok := record.Get("labels"); ok {
		if labels, ok := v.([]any); ok && len(labels) > 0 {
			if label, ok := labels[0].(string); ok {
				node.Label = label
			}
		}
	}
	node.ID = types.ID(asText(node.Properties["id"]))
	if projectID, ok := node.Properties["project_id"].(string); ok {
		node.ProjectID = projectID
	}
	if ts, ok := node.Properties["created_at"].(string); ok {
		node.CreatedAt, _ = time.Parse(time.RFC3339Nano, ts)
	}
	if ts, ok := node.Properties["updated_at"].(string); ok {
		node.UpdatedAt, _ = time.Parse(time.RFC3339Nano, ts)
	}
	return node
}

// recordToRel rebuilds a Relationship from a
// "RETURN r, type(r) AS rel_type, from.id AS from_id, to.id AS to_id" row.
func recordToRel(record *neo4j.Record, scope Scope) Relationship {
	rel := Relationship{GraphName: scope.GraphName, Properties: map[string]any{}}
	if v, ok := record.Get("r"); ok {
		if r, ok := v.(neo4j.Relationship); ok {
			for key, value := range r.Props {
				rel.Properties[key] = value
			}
		}
	}
	if v, ok := record.Get("rel_type"); ok {
		if relType, ok := v.(string); ok {
			rel.Type = relType
		}
	}
	if v, ok := record.Get("from_id"); ok {
		rel.FromID = types.ID(asText(v))
	}
	if v, ok := record.Get("to_id"); ok {
		rel.ToID = types.ID(asText(v))
	}
	rel.ID = types.ID(asText(rel.Properties["id"]))
	if projectID, ok := rel.Properties["project_id"].(string); ok {
		rel.ProjectID = projectID
	}
	if ts, ok := rel.Properties["created_at"].(string); ok {
		rel.CreatedAt, _ = time.Parse(time.RFC3339Nano, ts)
	}
	return rel
}
