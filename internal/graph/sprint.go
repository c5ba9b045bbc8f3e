package graph

import (
	"context"
	"sort"

	"github.com/rpad300/godmode-sub011/internal/types"
)

// SprintContext is the assembled report input for one sprint: the sprint
// node, the actions filed into it, and the deduplicated assignee names.
type SprintContext struct {
	Sprint    *Node    `json:"sprint,omitempty"`
	Actions   []Node   `json:"actions"`
	Assignees []string `json:"assignees"`
}

// SprintReportContext emulates the fixed three-hop pattern
//
//	(Person)-[ASSIGNED_TO]->(Action)-[IN_SPRINT]->(Sprint)
//
// which the generic translator cannot express, via three sequential scoped
// queries. It is the template for any further fixed multi-hop lookup that has
// to be hand-written rather than derived: fetch the anchor, walk one edge
// type per step, join in memory.
func (p *RelationalProvider) SprintReportContext(ctx context.Context, scope Scope, sprintID types.ID) (SprintContext, error) {
	if p.client == nil {
		return SprintContext{}, errNotConnected()
	}
	scope = p.scope(scope)

	sprint, err := p.GetNode(ctx, scope, sprintID)
	if err != nil {
		return SprintContext{}, err
	}

	// Hop 1: actions filed into the sprint.
	inSprint, err := p.FindRelationships(ctx, scope, RelFilter{
		ToID:  &sprintID,
		Types: []string{"IN_SPRINT"},
	})
	if err != nil {
		return SprintContext{}, err
	}
	actionIDs := make(map[string]struct{}, len(inSprint))
	for _, rel := range inSprint {
		actionIDs[rel.FromID.String()] = struct{}{}
	}
	actionsByID, err := p.fetchNodesByID(ctx, scope, actionIDs)
	if err != nil {
		return SprintContext{}, err
	}
	actions := make([]Node, 0, len(actionsByID))
	for _, node := range actionsByID {
		actions = append(actions, node)
	}
	sort.Slice(actions, func(i, j int) bool { return actions[i].ID < actions[j].ID })

	// Hop 2: assignments targeting those actions, filtered in memory.
	assigned, err := p.FindRelationships(ctx, scope, RelFilter{Types: []string{"ASSIGNED_TO"}})
	if err != nil {
		return SprintContext{}, err
	}
	personIDs := make(map[string]struct{})
	for _, rel := range assigned {
		if _, ok := actionIDs[rel.ToID.String()]; ok {
			personIDs[rel.FromID.String()] = struct{}{}
		}
	}

	// Hop 3: the people behind the assignments, names deduplicated.
	peopleByID, err := p.fetchNodesByID(ctx, scope, personIDs)
	if err != nil {
		return SprintContext{}, err
	}
	seen := make(map[string]struct{})
	assignees := make([]string, 0, len(peopleByID))
	for _, person := range peopleByID {
		name := person.GetStringProperty("name")
		if name == "" {
			name = person.ID.String()
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		assignees = append(assignees, name)
	}
	sort.Strings(assignees)

	return SprintContext{Sprint: sprint, Actions: actions, Assignees: assignees}, nil
}
