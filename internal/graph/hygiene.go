package graph

import (
	"context"
	"strings"
)

// Data-hygiene routines. Duplicate meetings appear when the same transcript
// is ingested under different ids; orphaned relationships appear when node
// deletion raced or failed mid-sequence before transactional deletes existed.

// deterministicMeetingPrefix marks ids minted from a meeting's source, the
// preferred survivor when merging duplicates.
const deterministicMeetingPrefix = "meeting:"

// MergeReport summarizes one duplicate-cleanup run.
type MergeReport struct {
	GroupsMerged    int      `json:"groups_merged"`
	NodesRemoved    int      `json:"nodes_removed"`
	EdgesRemapped   int      `json:"edges_remapped"`
	SurvivorNodeIDs []string `json:"survivor_node_ids,omitempty"`
}

// CleanupDuplicateMeetings groups Meeting nodes by their `source` property
// and collapses each multi-node group onto one survivor: the node whose id
// carries the deterministic "meeting:" prefix, or the first seen otherwise.
// Every relationship endpoint pointing at a loser is remapped to the
// survivor, then the losers are deleted. Each group's remap-and-delete runs
// in its own transaction, so a failure leaves at most one group untouched
// rather than half-migrated.
func (p *RelationalProvider) CleanupDuplicateMeetings(ctx context.Context, scope Scope) (MergeReport, error) {
	if p.client == nil {
		return MergeReport{}, errNotConnected()
	}
	scope = p.scope(scope)

	meetings, err := p.FindNodes(ctx, scope, "Meeting", nil, 0)
	if err != nil {
		return MergeReport{}, err
	}

	groups := make(map[string][]Node)
	order := make([]string, 0)
	for _, node := range meetings {
		source := node.GetStringProperty("source")
		if source == "" {
			continue
		}
		if _, seen := groups[source]; !seen {
			order = append(order, source)
		}
		groups[source] = append(groups[source], node)
	}

	var report MergeReport
	for _, source := range order {
		group := groups[source]
		if len(group) < 2 {
			continue
		}
		survivor := pickSurvivor(group)
		remapped, removed, err := p.mergeGroup(ctx, scope, survivor, group)
		if err != nil {
			return report, err
		}
		report.GroupsMerged++
		report.EdgesRemapped += remapped
		report.NodesRemoved += removed
		report.SurvivorNodeIDs = append(report.SurvivorNodeIDs, survivor.ID.String())
	}
	return report, nil
}

// pickSurvivor prefers the node with the deterministic id prefix, falling
// back to the first of the group.
func pickSurvivor(group []Node) Node {
	for _, node := range group {
		if strings.HasPrefix(node.ID.String(), deterministicMeetingPrefix) {
			return node
		}
	}
	return group[0]
}

// mergeGroup remaps every relationship endpoint from the losers to the
// survivor and deletes the losers, inside one transaction.
func (p *RelationalProvider) mergeGroup(ctx context.Context, scope Scope, survivor Node, group []Node) (remapped, removed int, err error) {
	err = p.client.WithTx(ctx, func(tx RowClient) error {
		for _, loser := range group {
			if loser.ID == survivor.ID {
				continue
			}
			filters := []Filter{
				Eq("graph_name", scope.GraphName),
				Or(Eq("from_id", loser.ID.String()), Eq("to_id", loser.ID.String())),
			}
			rows, err := tx.Select(ctx, TableRelationships, filters, 0)
			if err != nil {
				return wrapStore("failed to fetch relationships for remap", err)
			}
			for _, row := range rows {
				rel := rowToRel(row)
				if rel.FromID == loser.ID {
					rel.FromID = survivor.ID
				}
				if rel.ToID == loser.ID {
					rel.ToID = survivor.ID
				}
				if err := tx.Upsert(ctx, TableRelationships, relToRow(rel), graphConflictKey); err != nil {
					return wrapStore("failed to remap relationship", err)
				}
				remapped++
			}
			if _, err := tx.Delete(ctx, TableNodes,
				[]Filter{Eq("graph_name", scope.GraphName), Eq("id", loser.ID.String())}); err != nil {
				return wrapStore("failed to delete duplicate node", err)
			}
			removed++
		}
		return nil
	})
	return remapped, removed, err
}

// CleanupOrphanedRelationships deletes every relationship whose from_id or
// to_id no longer resolves to a live node. Relationships between two live
// nodes are untouched. Returns the number of relationships removed.
func (p *RelationalProvider) CleanupOrphanedRelationships(ctx context.Context, scope Scope) (int, error) {
	if p.client == nil {
		return 0, errNotConnected()
	}
	scope = p.scope(scope)

	liveIDs, err := p.client.Distinct(ctx, TableNodes, "id", scopeFilters(scope))
	if err != nil {
		return 0, wrapStore("failed to list live node ids", err)
	}
	live := make(map[string]struct{}, len(liveIDs))
	for _, v := range liveIDs {
		if id, ok := v.(string); ok {
			live[id] = struct{}{}
		}
	}

	rows, err := p.client.Select(ctx, TableRelationships, scopeFilters(scope), 0)
	if err != nil {
		return 0, wrapStore("failed to fetch relationships", err)
	}

	orphans := make([]any, 0)
	for _, row := range rows {
		fromID := asString(row["from_id"])
		toID := asString(row["to_id"])
		if _, okFrom := live[fromID]; !okFrom {
			orphans = append(orphans, asString(row["id"]))
			continue
		}
		if _, okTo := live[toID]; !okTo {
			orphans = append(orphans, asString(row["id"]))
		}
	}
	if len(orphans) == 0 {
		return 0, nil
	}

	deleted, err := p.client.Delete(ctx, TableRelationships,
		append(scopeFilters(scope), In("id", orphans)))
	if err != nil {
		return 0, wrapStore("failed to delete orphaned relationships", err)
	}
	return int(deleted), nil
}
