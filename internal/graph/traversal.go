package graph

import (
	"context"

	"github.com/rpad300/godmode-sub011/internal/types"
)

// neighborFetchLimit caps the relationship rows fetched per frontier node per
// hop, bounding the fan-out cost of dense nodes.
const neighborFetchLimit = 50

// TraversePath walks the graph breadth-first from start.
//
// Each hop issues one scoped relationship query per frontier node per
// direction, filtered by the allowed types (nil means any). A visited set
// guarantees nodes are expanded at most once, so cycles terminate; every
// traversed edge is accumulated into a flat list, not just shortest paths.
// Traversal stops after maxDepth hops or when the frontier empties.
func (p *RelationalProvider) TraversePath(ctx context.Context, scope Scope, start types.ID, relTypes []string, maxDepth int, direction Direction) ([]Relationship, error) {
	if p.client == nil {
		return nil, errNotConnected()
	}
	if maxDepth <= 0 {
		maxDepth = 3
	}
	if !direction.IsValid() {
		direction = DirectionBoth
	}
	scope = p.scope(scope)

	visited := map[types.ID]struct{}{start: {}}
	seenEdges := make(map[types.ID]struct{})
	frontier := []types.ID{start}
	edges := make([]Relationship, 0)

	for depth := 0; depth < maxDepth && len(frontier) > 0; depth++ {
		next := make([]types.ID, 0)
		for _, nodeID := range frontier {
			rels, err := p.incidentRelationships(ctx, scope, nodeID, relTypes, direction)
			if err != nil {
				return nil, err
			}
			for _, rel := range rels {
				if _, dup := seenEdges[rel.ID]; !dup {
					seenEdges[rel.ID] = struct{}{}
					edges = append(edges, rel)
				}
				neighbor := rel.ToID
				if neighbor == nodeID {
					neighbor = rel.FromID
				}
				if _, seen := visited[neighbor]; seen {
					continue
				}
				visited[neighbor] = struct{}{}
				next = append(next, neighbor)
			}
		}
		frontier = next
	}
	return edges, nil
}

// incidentRelationships fetches the edges touching nodeID in the requested
// direction, capped at neighborFetchLimit rows per direction.
func (p *RelationalProvider) incidentRelationships(ctx context.Context, scope Scope, nodeID types.ID, relTypes []string, direction Direction) ([]Relationship, error) {
	filter := RelFilter{Types: relTypes, Limit: neighborFetchLimit}
	switch direction {
	case DirectionOutgoing:
		filter.FromID = &nodeID
	case DirectionIncoming:
		filter.ToID = &nodeID
	default:
		filter.EitherID = &nodeID
	}
	return p.FindRelationships(ctx, scope, filter)
}
