package graph

import (
	"context"

	"github.com/rpad300/godmode-sub011/internal/types"
)

// Query executes a Cypher-subset statement against the relational store.
//
// Recognized shapes are lowered to scoped fetches per the translator table;
// unrecognized text returns an empty result with OutcomeUnsupported and a
// warning log, never an error. A missing schema is likewise soft: the result
// is empty with metadata {"schema_missing": true}, signaling a pending
// migration instead of a store fault.
func (p *RelationalProvider) Query(ctx context.Context, scope Scope, cypher string, params map[string]any) (QueryResult, error) {
	if p.client == nil {
		return QueryResult{}, errNotConnected()
	}
	scope = p.scope(scope)

	var (
		result QueryResult
		err    error
	)
	switch stmt := ParseCypher(cypher).(type) {
	case ReturnOneStmt:
		result = QueryResult{Records: []map[string]any{{"1": int64(1)}}, Outcome: OutcomeRows}
	case MatchNodeStmt:
		result, err = p.execMatchNode(ctx, scope, stmt, params)
	case MatchRelStmt:
		result, err = p.execMatchRel(ctx, scope, stmt, params)
	case DetachDeleteStmt:
		result, err = p.execDetachDelete(ctx, scope, stmt)
	case MergeStmt:
		result, err = p.execMerge(ctx, scope, stmt, params)
	case UnsupportedStmt:
		p.logger.Warn("cypher text outside the supported subset",
			"graph", scope.GraphName, "query", stmt.Text)
		result = emptyResult(OutcomeUnsupported)
		result.Metadata = map[string]any{"unsupported": true}
	}

	if err != nil {
		if isSchemaMissing(err) {
			p.logger.Warn("graph tables missing, returning empty result",
				"graph", scope.GraphName, "error", err)
			result = emptyResult(OutcomeEmpty)
			result.Metadata = map[string]any{"schema_missing": true}
			return result, nil
		}
		return QueryResult{}, err
	}
	return result, nil
}

// execMatchNode lowers a node match to a scoped node fetch plus in-memory
// property and WHERE filtering.
func (p *RelationalProvider) execMatchNode(ctx context.Context, scope Scope, stmt MatchNodeStmt, params map[string]any) (QueryResult, error) {
	filters := scopeFilters(scope)
	if stmt.Label != "" {
		filters = append(filters, Eq("label", stmt.Label))
	}

	// Fast path: a bare count needs no row materialization.
	if stmt.ReturnCount && len(stmt.Where) == 0 && len(stmt.PropsEq) == 0 {
		n, err := p.client.Count(ctx, TableNodes, filters)
		if err != nil {
			return QueryResult{}, wrapStore("failed to count nodes", err)
		}
		return countResult(n), nil
	}

	rows, err := p.client.Select(ctx, TableNodes, filters, 0)
	if err != nil {
		return QueryResult{}, wrapStore("failed to fetch nodes", err)
	}

	records := make([]map[string]any, 0, len(rows))
	matched := int64(0)
	for _, row := range rows {
		node := rowToNode(row)
		if !inlinePropsMatch(node.Properties, stmt.PropsEq, params) {
			continue
		}
		if !evalPredicates(stmt.Where, params, aliasProps{stmt.Alias: node.Properties}) {
			continue
		}
		matched++
		if stmt.ReturnCount {
			continue
		}
		records = append(records, map[string]any{stmt.Alias: nodeToRecord(node)})
		if stmt.Limit > 0 && len(records) >= stmt.Limit {
			break
		}
	}
	if stmt.ReturnCount {
		return countResult(matched), nil
	}
	return rowsResult(records), nil
}

// execMatchRel lowers a relationship match to a scoped relationship fetch
// with endpoint rows joined in memory, then label and WHERE filtering.
func (p *RelationalProvider) execMatchRel(ctx context.Context, scope Scope, stmt MatchRelStmt, params map[string]any) (QueryResult, error) {
	relFilters := scopeFilters(scope)
	if stmt.RelType != "" {
		relFilters = append(relFilters, Eq("type", stmt.RelType))
	}

	if stmt.ReturnCount && len(stmt.Where) == 0 && stmt.FromLabel == "" && stmt.ToLabel == "" {
		n, err := p.client.Count(ctx, TableRelationships, relFilters)
		if err != nil {
			return QueryResult{}, wrapStore("failed to count relationships", err)
		}
		return countResult(n), nil
	}

	relRows, err := p.client.Select(ctx, TableRelationships, relFilters, 0)
	if err != nil {
		return QueryResult{}, wrapStore("failed to fetch relationships", err)
	}

	// Join endpoint nodes in one fetch keyed by id.
	endpointIDs := make(map[string]struct{}, len(relRows)*2)
	for _, row := range relRows {
		endpointIDs[asString(row["from_id"])] = struct{}{}
		endpointIDs[asString(row["to_id"])] = struct{}{}
	}
	nodesByID, err := p.fetchNodesByID(ctx, scope, endpointIDs)
	if err != nil {
		return QueryResult{}, err
	}

	records := make([]map[string]any, 0, len(relRows))
	matched := int64(0)
	for _, row := range relRows {
		rel := rowToRel(row)
		from, okFrom := nodesByID[rel.FromID.String()]
		to, okTo := nodesByID[rel.ToID.String()]
		if !okFrom || !okTo {
			continue
		}
		if stmt.FromLabel != "" && from.Label != stmt.FromLabel {
			continue
		}
		if stmt.ToLabel != "" && to.Label != stmt.ToLabel {
			continue
		}
		bound := aliasProps{stmt.RelAlias: rel.Properties}
		if stmt.FromAlias != "" {
			bound[stmt.FromAlias] = from.Properties
		}
		if stmt.ToAlias != "" {
			bound[stmt.ToAlias] = to.Properties
		}
		if !evalPredicates(stmt.Where, params, bound) {
			continue
		}
		matched++
		if stmt.ReturnCount {
			continue
		}
		record := map[string]any{stmt.RelAlias: relToRecord(rel)}
		if stmt.FromAlias != "" {
			record[stmt.FromAlias] = nodeToRecord(from)
		}
		if stmt.ToAlias != "" {
			record[stmt.ToAlias] = nodeToRecord(to)
		}
		records = append(records, record)
		if stmt.Limit > 0 && len(records) >= stmt.Limit {
			break
		}
	}
	if stmt.ReturnCount {
		return countResult(matched), nil
	}
	return rowsResult(records), nil
}

// execDetachDelete bulk-deletes relationships then nodes within the scope,
// optionally restricted to a label, in one transaction.
func (p *RelationalProvider) execDetachDelete(ctx context.Context, scope Scope, stmt DetachDeleteStmt) (QueryResult, error) {
	var nodesDeleted, relsDeleted int64
	err := p.client.WithTx(ctx, func(tx RowClient) error {
		if stmt.Label == "" {
			var err error
			if relsDeleted, err = tx.Delete(ctx, TableRelationships, scopeFilters(scope)); err != nil {
				return wrapStore("failed to delete relationships", err)
			}
			if nodesDeleted, err = tx.Delete(ctx, TableNodes, scopeFilters(scope)); err != nil {
				return wrapStore("failed to delete nodes", err)
			}
			return nil
		}

		nodeFilters := append(scopeFilters(scope), Eq("label", stmt.Label))
		rows, err := tx.Select(ctx, TableNodes, nodeFilters, 0)
		if err != nil {
			return wrapStore("failed to fetch nodes for delete", err)
		}
		if len(rows) == 0 {
			return nil
		}
		ids := make([]any, 0, len(rows))
		for _, row := range rows {
			ids = append(ids, asString(row["id"]))
		}
		relFilters := append(scopeFilters(scope), Or(In("from_id", ids), In("to_id", ids)))
		if relsDeleted, err = tx.Delete(ctx, TableRelationships, relFilters); err != nil {
			return wrapStore("failed to delete incident relationships", err)
		}
		if nodesDeleted, err = tx.Delete(ctx, TableNodes, nodeFilters); err != nil {
			return wrapStore("failed to delete nodes", err)
		}
		return nil
	})
	if err != nil {
		return QueryResult{}, err
	}
	result := emptyResult(OutcomeRows)
	result.Metadata = map[string]any{
		"nodes_deleted":         nodesDeleted,
		"relationships_deleted": relsDeleted,
	}
	return result, nil
}

// execMerge lowers MERGE to a create-or-update: existing properties are
// preserved, SET assignments overwrite.
func (p *RelationalProvider) execMerge(ctx context.Context, scope Scope, stmt MergeStmt, params map[string]any) (QueryResult, error) {
	idValue, ok := params[stmt.IDParam]
	if !ok {
		return QueryResult{}, types.NewError(types.ErrUnsupportedQuery,
			"MERGE id parameter $"+stmt.IDParam+" is not bound")
	}
	id := types.ID(asText(idValue))
	if id.IsZero() {
		return QueryResult{}, types.NewError(types.ErrUnsupportedQuery,
			"MERGE id parameter $"+stmt.IDParam+" is empty")
	}

	var merged Node
	err := p.client.WithTx(ctx, func(tx RowClient) error {
		rows, err := tx.Select(ctx, TableNodes,
			append(scopeFilters(scope), Eq("id", id.String())), 1)
		if err != nil {
			return wrapStore("failed to fetch node for merge", err)
		}
		if len(rows) > 0 {
			merged = rowToNode(rows[0])
		} else {
			merged = *NewNode(id, stmt.Label)
			merged.GraphName = scope.GraphName
			merged.ProjectID = scope.ProjectID
		}
		for _, assign := range stmt.Set {
			merged.Properties[assign.Key] = assign.Value.Resolve(params)
		}
		merged.Properties["id"] = id.String()
		if err := tx.Upsert(ctx, TableNodes, nodeToRow(merged), graphConflictKey); err != nil {
			return wrapStore("failed to upsert merged node", err)
		}
		return nil
	})
	if err != nil {
		return QueryResult{}, err
	}
	return rowsResult([]map[string]any{{stmt.Alias: nodeToRecord(merged)}}), nil
}

// fetchNodesByID fetches the given ids within scope and indexes them by id.
func (p *RelationalProvider) fetchNodesByID(ctx context.Context, scope Scope, ids map[string]struct{}) (map[string]Node, error) {
	nodesByID := make(map[string]Node, len(ids))
	if len(ids) == 0 {
		return nodesByID, nil
	}
	values := make([]any, 0, len(ids))
	for id := range ids {
		values = append(values, id)
	}
	rows, err := p.client.Select(ctx, TableNodes, append(scopeFilters(scope), In("id", values)), 0)
	if err != nil {
		return nil, wrapStore("failed to fetch endpoint nodes", err)
	}
	for _, row := range rows {
		node := rowToNode(row)
		nodesByID[node.ID.String()] = node
	}
	return nodesByID, nil
}

// inlinePropsMatch applies an inline `{key: value}` pattern as equality
// predicates over node properties.
func inlinePropsMatch(props map[string]any, inline map[string]Value, params map[string]any) bool {
	for key, value := range inline {
		raw, ok := props[key]
		if !ok {
			return false
		}
		if asText(raw) != asText(value.Resolve(params)) {
			return false
		}
	}
	return true
}

// nodeToRecord renders a node as a query result value.
func nodeToRecord(node Node) map[string]any {
	record := map[string]any{
		"id":         node.ID.String(),
		"label":      node.Label,
		"properties": node.Properties,
		"graph_name": node.GraphName,
	}
	if node.ProjectID != "" {
		record["project_id"] = node.ProjectID
	}
	return record
}

// relToRecord renders a relationship as a query result value.
func relToRecord(rel Relationship) map[string]any {
	return map[string]any{
		"id":         rel.ID.String(),
		"from_id":    rel.FromID.String(),
		"to_id":      rel.ToID.String(),
		"type":       rel.Type,
		"properties": rel.Properties,
		"graph_name": rel.GraphName,
	}
}

func countResult(n int64) QueryResult {
	return QueryResult{
		Records: []map[string]any{{"count": n}},
		Outcome: OutcomeRows,
	}
}

func rowsResult(records []map[string]any) QueryResult {
	outcome := OutcomeRows
	if len(records) == 0 {
		outcome = OutcomeEmpty
	}
	return QueryResult{Records: records, Outcome: outcome}
}
