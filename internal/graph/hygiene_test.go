package graph

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rpad300/godmode-sub011/internal/types"
)

func TestCleanupDuplicateMeetings(t *testing.T) {
	provider, _ := newTestProvider(t)
	scope := ProjectScope("p1")
	ctx := context.Background()

	// Three ingests of the same transcript under different ids; the
	// deterministic "meeting:" id must survive.
	dups := []Node{
		*NewNode("uuid-1111", "Meeting").WithProperty("source", "kickoff.txt"),
		*NewNode("meeting:kickoff", "Meeting").WithProperty("source", "kickoff.txt"),
		*NewNode("uuid-2222", "Meeting").WithProperty("source", "kickoff.txt"),
		*NewNode("meeting:retro", "Meeting").WithProperty("source", "retro.txt"),
	}
	for _, node := range dups {
		_, err := provider.CreateNode(ctx, scope, node)
		require.NoError(t, err)
	}
	_, err := provider.CreateNode(ctx, scope, *NewNode("task:1", "Task"))
	require.NoError(t, err)

	// Edges hang off the duplicates and must follow the survivor.
	_, err = provider.CreateRelationship(ctx, scope, *NewRelationship("uuid-1111", "task:1", "PRODUCED"))
	require.NoError(t, err)
	_, err = provider.CreateRelationship(ctx, scope, *NewRelationship("task:1", "uuid-2222", "DISCUSSED_IN"))
	require.NoError(t, err)

	report, err := provider.CleanupDuplicateMeetings(ctx, scope)
	require.NoError(t, err)
	assert.Equal(t, 1, report.GroupsMerged)
	assert.Equal(t, 2, report.NodesRemoved)
	assert.Equal(t, 2, report.EdgesRemapped)
	assert.Equal(t, []string{"meeting:kickoff"}, report.SurvivorNodeIDs)

	_, err = provider.GetNode(ctx, scope, "uuid-1111")
	assert.Equal(t, types.ErrNotFound, types.CodeOf(err))
	_, err = provider.GetNode(ctx, scope, "meeting:kickoff")
	assert.NoError(t, err)

	produced, err := provider.FindRelationships(ctx, scope, RelFilter{Types: []string{"PRODUCED"}})
	require.NoError(t, err)
	require.Len(t, produced, 1)
	assert.Equal(t, types.ID("meeting:kickoff"), produced[0].FromID)

	discussed, err := provider.FindRelationships(ctx, scope, RelFilter{Types: []string{"DISCUSSED_IN"}})
	require.NoError(t, err)
	require.Len(t, discussed, 1)
	assert.Equal(t, types.ID("meeting:kickoff"), discussed[0].ToID)

	// A second run finds nothing to merge.
	report, err = provider.CleanupDuplicateMeetings(ctx, scope)
	require.NoError(t, err)
	assert.Zero(t, report.GroupsMerged)
}

func TestCleanupDuplicateMeetingsIgnoresSourcelessNodes(t *testing.T) {
	provider, _ := newTestProvider(t)
	scope := ProjectScope("p1")
	ctx := context.Background()

	_, err := provider.CreateNode(ctx, scope, *NewNode("m1", "Meeting"))
	require.NoError(t, err)
	_, err = provider.CreateNode(ctx, scope, *NewNode("m2", "Meeting"))
	require.NoError(t, err)

	report, err := provider.CleanupDuplicateMeetings(ctx, scope)
	require.NoError(t, err)
	assert.Zero(t, report.GroupsMerged, "nodes without a source cannot be grouped")
}

func TestCleanupOrphanedRelationships(t *testing.T) {
	provider, client := newTestProvider(t)
	scope := ProjectScope("p1")
	ctx := context.Background()

	_, err := provider.CreateNode(ctx, scope, *NewNode("a", "Task"))
	require.NoError(t, err)
	_, err = provider.CreateNode(ctx, scope, *NewNode("b", "Task"))
	require.NoError(t, err)
	_, err = provider.CreateRelationship(ctx, scope, *NewRelationship("a", "b", "BLOCKS"))
	require.NoError(t, err)

	// Simulate a pre-transactional partial delete: drop the node row directly,
	// leaving its edges behind.
	_, err = client.Delete(ctx, TableNodes, []Filter{Eq("id", "b")})
	require.NoError(t, err)
	ghost := *NewRelationship("ghost", "a", "BLOCKS")
	_, err = provider.CreateRelationship(ctx, scope, ghost)
	require.NoError(t, err)

	removed, err := provider.CleanupOrphanedRelationships(ctx, scope)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	remaining, err := provider.FindRelationships(ctx, scope, RelFilter{})
	require.NoError(t, err)
	assert.Empty(t, remaining)

	// Idempotent on a clean graph.
	removed, err = provider.CleanupOrphanedRelationships(ctx, scope)
	require.NoError(t, err)
	assert.Zero(t, removed)
}

func TestSprintReportContext(t *testing.T) {
	provider, _ := newTestProvider(t)
	scope := ProjectScope("p1")
	ctx := context.Background()

	nodes := []Node{
		*NewNode("sprint:7", "Sprint").WithProperty("name", "Sprint 7"),
		*NewNode("action:1", "Action").WithProperty("title", "ship schema"),
		*NewNode("action:2", "Action").WithProperty("title", "fix sync"),
		*NewNode("action:3", "Action").WithProperty("title", "unrelated"),
		*NewNode("person:ana", "Person").WithProperty("name", "Ana"),
		*NewNode("person:rui", "Person").WithProperty("name", "Rui"),
	}
	for _, node := range nodes {
		_, err := provider.CreateNode(ctx, scope, node)
		require.NoError(t, err)
	}
	rels := []Relationship{
		*NewRelationship("action:1", "sprint:7", "IN_SPRINT"),
		*NewRelationship("action:2", "sprint:7", "IN_SPRINT"),
		*NewRelationship("person:ana", "action:1", "ASSIGNED_TO"),
		*NewRelationship("person:ana", "action:2", "ASSIGNED_TO"),
		*NewRelationship("person:rui", "action:2", "ASSIGNED_TO"),
		// Assignment outside the sprint must not leak in.
		*NewRelationship("person:rui", "action:3", "ASSIGNED_TO"),
	}
	for _, rel := range rels {
		_, err := provider.CreateRelationship(ctx, scope, rel)
		require.NoError(t, err)
	}

	report, err := provider.SprintReportContext(ctx, scope, "sprint:7")
	require.NoError(t, err)
	require.NotNil(t, report.Sprint)
	assert.Equal(t, "Sprint 7", report.Sprint.GetStringProperty("name"))
	require.Len(t, report.Actions, 2)
	assert.Equal(t, types.ID("action:1"), report.Actions[0].ID)
	assert.Equal(t, types.ID("action:2"), report.Actions[1].ID)
	assert.Equal(t, []string{"Ana", "Rui"}, report.Assignees, "names are deduplicated and sorted")
}

func TestSprintReportContextMissingSprint(t *testing.T) {
	provider, _ := newTestProvider(t)

	_, err := provider.SprintReportContext(context.Background(), ProjectScope("p1"), "sprint:404")
	assert.Equal(t, types.ErrNotFound, types.CodeOf(err))
}
