package graph

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rpad300/godmode-sub011/internal/types"
)

func newTestManager(t *testing.T) (*Manager, *RelationalProvider) {
	t.Helper()
	provider, _ := newTestProvider(t)
	return NewManager(provider, nil), provider
}

func TestPlacementForIsTotal(t *testing.T) {
	shared := []EntityKind{KindPerson, KindTechnology, KindClient, KindOrganization}
	for _, kind := range shared {
		assert.Equal(t, PlacementShared, PlacementFor(kind), "%s belongs to the shared graph", kind)
	}
	scoped := []EntityKind{KindFact, KindMeeting, KindDecision, KindRisk, KindTask, KindDocument, KindProject}
	for _, kind := range scoped {
		assert.Equal(t, PlacementProjectScoped, PlacementFor(kind), "%s belongs to a project graph", kind)
	}
	// Unknown labels route to the project side, never panic.
	assert.Equal(t, PlacementProjectScoped, PlacementFor(EntityKind("Widget")))
}

func TestManagerGraphFor(t *testing.T) {
	m, _ := newTestManager(t)

	assert.Equal(t, SharedScope(), m.GraphFor("Person", "p1"))
	assert.Equal(t, ProjectScope("p1"), m.GraphFor("Task", "p1"))
	assert.Equal(t, ProjectScope("p1"), m.GraphFor("Widget", "p1"))
}

func TestManagerCreateNodeRouting(t *testing.T) {
	m, provider := newTestManager(t)
	ctx := context.Background()

	person, err := m.CreateNode(ctx, "Person", map[string]any{"id": "person:ana", "name": "Ana"}, "p1")
	require.NoError(t, err)
	assert.Equal(t, SharedGraphName, person.GraphName)
	assert.Equal(t, []string{"p1"}, person.StringSliceProperty("projects"))

	task, err := m.CreateNode(ctx, "Task", map[string]any{"id": "task:1"}, "p1")
	require.NoError(t, err)
	assert.Equal(t, ProjectGraphName("p1"), task.GraphName)
	assert.Nil(t, task.StringSliceProperty("projects"), "project-scoped nodes carry no projects array")

	// The shared row is visible in the shared scope only.
	_, err = provider.GetNode(ctx, SharedScope(), "person:ana")
	assert.NoError(t, err)
	_, err = provider.GetNode(ctx, ProjectScope("p1"), "person:ana")
	assert.Equal(t, types.ErrNotFound, types.CodeOf(err))
}

func TestManagerSharedProjectsAccumulate(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	for _, projectID := range []string{"p1", "p2", "p1"} {
		_, err := m.CreateNode(ctx, "Person", map[string]any{"id": "person:ana", "name": "Ana"}, projectID)
		require.NoError(t, err)
	}

	projects, count, err := m.FindPersonProjects(ctx, "person:ana")
	require.NoError(t, err)
	assert.Equal(t, 2, count, "repeated project must not duplicate")
	assert.Equal(t, []string{"p1", "p2"}, projects)
}

func TestManagerFindCrossProjectPeople(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	_, err := m.CreateNode(ctx, "Person", map[string]any{"id": "person:ana"}, "p1")
	require.NoError(t, err)
	_, err = m.CreateNode(ctx, "Person", map[string]any{"id": "person:ana"}, "p2")
	require.NoError(t, err)
	_, err = m.CreateNode(ctx, "Person", map[string]any{"id": "person:rui"}, "p1")
	require.NoError(t, err)

	people, err := m.FindCrossProjectPeople(ctx)
	require.NoError(t, err)
	require.Len(t, people, 1)
	assert.Equal(t, types.ID("person:ana"), people[0].ID)
}

func TestManagerQueryAcrossProjects(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	_, err := m.CreateNode(ctx, "Person", map[string]any{"id": "person:ana"}, "p1")
	require.NoError(t, err)
	_, err = m.CreateNode(ctx, "Task", map[string]any{"id": "task:1"}, "p1")
	require.NoError(t, err)
	_, err = m.CreateNode(ctx, "Task", map[string]any{"id": "task:2"}, "p2")
	require.NoError(t, err)

	result, err := m.QueryAcrossProjects(ctx, "MATCH (n:Task) RETURN count(n)", nil, []string{"p1", "p2"})
	require.NoError(t, err)
	assert.Equal(t, int64(0), result.Shared.Records[0]["count"])
	assert.Equal(t, int64(1), result.Projects["p1"].Records[0]["count"])
	assert.Equal(t, int64(1), result.Projects["p2"].Records[0]["count"])

	// Empty project list fans out to every known project partition.
	result, err = m.QueryAcrossProjects(ctx, "MATCH (n:Task) RETURN count(n)", nil, nil)
	require.NoError(t, err)
	assert.Len(t, result.Projects, 2)
}

func TestManagerSyncData(t *testing.T) {
	m, provider := newTestManager(t)
	ctx := context.Background()

	data := map[string][]map[string]any{
		"people": {
			{"id": "person:ana", "name": "Ana"},
			{"id": "person:rui", "name": "Rui"},
		},
		"tasks": {
			{"id": "task:1", "status": "open"},
		},
		"technologies": {
			{"id": "tech:go", "name": "Go"},
		},
		"unknown_collection": {
			{"id": "x"},
		},
	}

	report := m.SyncData(ctx, data, "p1")
	assert.Empty(t, report.Errors)
	assert.Equal(t, 2, report.CreatedByType["Person"])
	assert.Equal(t, 1, report.CreatedByType["Task"])
	assert.Equal(t, 1, report.CreatedByType["Technology"])
	assert.NotContains(t, report.CreatedByType, "unknown_collection")

	// People land shared, tasks in the project partition.
	_, err := provider.GetNode(ctx, SharedScope(), "person:ana")
	assert.NoError(t, err)
	_, err = provider.GetNode(ctx, ProjectScope("p1"), "task:1")
	assert.NoError(t, err)

	status, err := provider.GetSyncStatus(ctx, "p1", ProjectGraphName("p1"))
	require.NoError(t, err)
	assert.Equal(t, "healthy", status.HealthStatus)
	assert.Zero(t, status.PendingCount)
}

func TestLookupCollectionNaming(t *testing.T) {
	data := map[string][]map[string]any{
		"Person":       {{"id": "a"}},
		"technologies": {{"id": "b"}},
		"facts":        {{"id": "c"}},
	}

	items, ok := lookupCollection(data, KindPerson)
	require.True(t, ok)
	assert.Equal(t, "a", items[0]["id"])

	items, ok = lookupCollection(data, KindTechnology)
	require.True(t, ok)
	assert.Equal(t, "b", items[0]["id"])

	items, ok = lookupCollection(data, KindFact)
	require.True(t, ok)
	assert.Equal(t, "c", items[0]["id"])

	_, ok = lookupCollection(data, KindRisk)
	assert.False(t, ok)
}

func TestManagerCreateCrossReference(t *testing.T) {
	m, provider := newTestManager(t)
	ctx := context.Background()

	xref, err := m.CreateCrossReference(ctx, "p1", "person:ana", "task:1", "OWNS")
	require.NoError(t, err)
	assert.Equal(t, ProjectGraphName("p1"), xref.GraphName)
	assert.Equal(t, "person:ana", xref.GetStringProperty("shared_id"))
	assert.Equal(t, "task:1", xref.GetStringProperty("project_entity_id"))
	assert.Equal(t, "OWNS", xref.GetStringProperty("relation"))

	// Deterministic id: repeating the call keeps one pseudo-node.
	again, err := m.CreateCrossReference(ctx, "p1", "person:ana", "task:1", "OWNS")
	require.NoError(t, err)
	assert.Equal(t, xref.ID, again.ID)

	refs, err := provider.FindNodes(ctx, ProjectScope("p1"), "_CrossRef", nil, 0)
	require.NoError(t, err)
	assert.Len(t, refs, 1)

	_, err = m.CreateCrossReference(ctx, "", "a", "b", "OWNS")
	assert.Equal(t, types.ErrInvalidConfig, types.CodeOf(err))
}
