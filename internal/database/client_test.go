package database

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rpad300/godmode-sub011/internal/graph"
	"github.com/rpad300/godmode-sub011/internal/types"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "graph.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func openMigratedClient(t *testing.T) *Client {
	t.Helper()
	db := openTestDB(t)
	require.NoError(t, NewMigrator(db).Migrate(context.Background()))
	return NewClient(db)
}

func nodeRow(id, graphName, label string, props map[string]any) map[string]any {
	return map[string]any{
		"id":         id,
		"graph_name": graphName,
		"label":      label,
		"properties": props,
	}
}

func TestMigrateIsIdempotent(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	m := NewMigrator(db)

	version, err := m.CurrentVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, version)

	require.NoError(t, m.Migrate(ctx))
	require.NoError(t, m.Migrate(ctx))

	version, err = m.CurrentVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, version)

	applied, err := m.GetAppliedMigrations(ctx)
	require.NoError(t, err)
	require.Len(t, applied, 1)
	assert.Equal(t, "graph_schema", applied[0].Name)
	assert.False(t, applied[0].AppliedAt.IsZero())
}

func TestSelectBeforeMigrationIsSchemaMissing(t *testing.T) {
	client := NewClient(openTestDB(t))

	_, err := client.Select(context.Background(), graph.TableNodes, nil, 0)
	assert.Equal(t, types.ErrSchemaMissing, types.CodeOf(err))

	err = client.Upsert(context.Background(), graph.TableNodes,
		nodeRow("n1", "_shared", "Person", nil), []string{"id", "graph_name"})
	assert.Equal(t, types.ErrSchemaMissing, types.CodeOf(err))
}

func TestUpsertSelectRoundTrip(t *testing.T) {
	client := openMigratedClient(t)
	ctx := context.Background()

	props := map[string]any{"name": "Ana", "projects": []any{"p1", "p2"}, "level": float64(3)}
	err := client.Upsert(ctx, graph.TableNodes,
		nodeRow("person:ana", "_shared", "Person", props), []string{"id", "graph_name"})
	require.NoError(t, err)

	rows, err := client.Select(ctx, graph.TableNodes, []graph.Filter{
		graph.Eq("id", "person:ana"),
		graph.Eq("graph_name", "_shared"),
	}, 0)
	require.NoError(t, err)
	require.Len(t, rows, 1)

	assert.Equal(t, "Person", rows[0]["label"])
	got, ok := rows[0]["properties"].(map[string]any)
	require.True(t, ok, "properties must decode back into a map")
	assert.Equal(t, "Ana", got["name"])
	assert.Equal(t, []any{"p1", "p2"}, got["projects"])
	assert.Equal(t, float64(3), got["level"])
}

func TestUpsertNilPropertiesStoresEmptyObject(t *testing.T) {
	client := openMigratedClient(t)
	ctx := context.Background()

	err := client.Upsert(ctx, graph.TableNodes,
		nodeRow("n1", "g1", "Fact", nil), []string{"id", "graph_name"})
	require.NoError(t, err)

	rows, err := client.Select(ctx, graph.TableNodes, []graph.Filter{graph.Eq("id", "n1")}, 0)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, map[string]any{}, rows[0]["properties"])
}

func TestUpsertConflictOverwritesNonKeyColumns(t *testing.T) {
	client := openMigratedClient(t)
	ctx := context.Background()
	key := []string{"id", "graph_name"}

	require.NoError(t, client.Upsert(ctx, graph.TableNodes,
		nodeRow("n1", "g1", "Meeting", map[string]any{"title": "kickoff"}), key))
	require.NoError(t, client.Upsert(ctx, graph.TableNodes,
		nodeRow("n1", "g1", "Meeting", map[string]any{"title": "kickoff v2"}), key))
	// Same id in another partition is a distinct row.
	require.NoError(t, client.Upsert(ctx, graph.TableNodes,
		nodeRow("n1", "g2", "Meeting", map[string]any{"title": "other"}), key))

	count, err := client.Count(ctx, graph.TableNodes, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	rows, err := client.Select(ctx, graph.TableNodes, []graph.Filter{
		graph.Eq("id", "n1"), graph.Eq("graph_name", "g1"),
	}, 0)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	props := rows[0]["properties"].(map[string]any)
	assert.Equal(t, "kickoff v2", props["title"])
}

func TestDeleteReturnsAffectedCount(t *testing.T) {
	client := openMigratedClient(t)
	ctx := context.Background()
	key := []string{"id", "graph_name"}

	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, client.Upsert(ctx, graph.TableNodes,
			nodeRow(id, "g1", "Task", nil), key))
	}

	deleted, err := client.Delete(ctx, graph.TableNodes, []graph.Filter{
		graph.In("id", []any{"a", "b"}),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	deleted, err = client.Delete(ctx, graph.TableNodes, []graph.Filter{graph.Eq("id", "missing")})
	require.NoError(t, err)
	assert.Zero(t, deleted)

	count, err := client.Count(ctx, graph.TableNodes, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestFilterSemantics(t *testing.T) {
	client := openMigratedClient(t)
	ctx := context.Background()
	key := []string{"id", "graph_name"}

	seed := []map[string]any{
		{"id": "a", "graph_name": "g1", "label": "Task", "properties": nil, "project_id": "p1"},
		{"id": "b", "graph_name": "g1", "label": "Fact", "properties": nil, "project_id": "p2"},
		{"id": "c", "graph_name": "g1", "label": "Task", "properties": nil, "project_id": nil},
	}
	for _, row := range seed {
		require.NoError(t, client.Upsert(ctx, graph.TableNodes, row, key))
	}

	tests := []struct {
		name    string
		filters []graph.Filter
		wantIDs []string
	}{
		{
			name:    "eq",
			filters: []graph.Filter{graph.Eq("label", "Task")},
			wantIDs: []string{"a", "c"},
		},
		{
			name:    "eq nil matches NULL",
			filters: []graph.Filter{graph.Eq("project_id", nil)},
			wantIDs: []string{"c"},
		},
		{
			name:    "in",
			filters: []graph.Filter{graph.In("id", []any{"a", "b"})},
			wantIDs: []string{"a", "b"},
		},
		{
			name:    "empty in matches nothing",
			filters: []graph.Filter{graph.In("id", nil)},
			wantIDs: nil,
		},
		{
			name: "or",
			filters: []graph.Filter{graph.Or(
				graph.Eq("project_id", "p2"),
				graph.Eq("project_id", nil),
			)},
			wantIDs: []string{"b", "c"},
		},
		{
			name: "and across filters",
			filters: []graph.Filter{
				graph.Eq("label", "Task"),
				graph.Eq("project_id", "p1"),
			},
			wantIDs: []string{"a"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows, err := client.Select(ctx, graph.TableNodes, tt.filters, 0)
			require.NoError(t, err)
			ids := make([]string, 0, len(rows))
			for _, row := range rows {
				ids = append(ids, row["id"].(string))
			}
			assert.ElementsMatch(t, tt.wantIDs, ids)
		})
	}
}

func TestSelectLimit(t *testing.T) {
	client := openMigratedClient(t)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, client.Upsert(ctx, graph.TableNodes,
			nodeRow(id, "g1", "Task", nil), []string{"id", "graph_name"}))
	}

	rows, err := client.Select(ctx, graph.TableNodes, nil, 2)
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestDistinct(t *testing.T) {
	client := openMigratedClient(t)
	ctx := context.Background()
	key := []string{"id", "graph_name"}

	require.NoError(t, client.Upsert(ctx, graph.TableNodes, nodeRow("a", "_shared", "Person", nil), key))
	require.NoError(t, client.Upsert(ctx, graph.TableNodes, nodeRow("b", "project_p1", "Task", nil), key))
	require.NoError(t, client.Upsert(ctx, graph.TableNodes, nodeRow("c", "project_p1", "Fact", nil), key))

	values, err := client.Distinct(ctx, graph.TableNodes, "graph_name", nil)
	require.NoError(t, err)
	assert.ElementsMatch(t, []any{"_shared", "project_p1"}, values)

	values, err = client.Distinct(ctx, graph.TableNodes, "graph_name",
		[]graph.Filter{graph.Eq("label", "Task")})
	require.NoError(t, err)
	assert.Equal(t, []any{"project_p1"}, values)
}

func TestWithTxRollsBackOnError(t *testing.T) {
	client := openMigratedClient(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := client.WithTx(ctx, func(tx graph.RowClient) error {
		if err := tx.Upsert(ctx, graph.TableNodes,
			nodeRow("n1", "g1", "Task", nil), []string{"id", "graph_name"}); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	count, err := client.Count(ctx, graph.TableNodes, nil)
	require.NoError(t, err)
	assert.Zero(t, count, "rolled-back writes must not be visible")
}

func TestWithTxCommits(t *testing.T) {
	client := openMigratedClient(t)
	ctx := context.Background()

	err := client.WithTx(ctx, func(tx graph.RowClient) error {
		return tx.Upsert(ctx, graph.TableNodes,
			nodeRow("n1", "g1", "Task", nil), []string{"id", "graph_name"})
	})
	require.NoError(t, err)

	count, err := client.Count(ctx, graph.TableNodes, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestWithTxNestedReusesTransaction(t *testing.T) {
	client := openMigratedClient(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := client.WithTx(ctx, func(outer graph.RowClient) error {
		if err := outer.Upsert(ctx, graph.TableNodes,
			nodeRow("n1", "g1", "Task", nil), []string{"id", "graph_name"}); err != nil {
			return err
		}
		return outer.WithTx(ctx, func(inner graph.RowClient) error {
			if err := inner.Upsert(ctx, graph.TableNodes,
				nodeRow("n2", "g1", "Task", nil), []string{"id", "graph_name"}); err != nil {
				return err
			}
			return boom
		})
	})
	assert.ErrorIs(t, err, boom)

	// The inner failure unwinds the single shared transaction.
	count, err := client.Count(ctx, graph.TableNodes, nil)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestPing(t *testing.T) {
	client := openMigratedClient(t)
	assert.NoError(t, client.Ping(context.Background()))
}

func TestHealth(t *testing.T) {
	db := openTestDB(t)
	assert.NoError(t, db.Health(context.Background()))
}

func TestForeignKeysAndJournalMode(t *testing.T) {
	db := openTestDB(t)

	var journalMode string
	require.NoError(t, db.Conn().QueryRow("PRAGMA journal_mode").Scan(&journalMode))
	assert.Equal(t, "wal", journalMode)

	var fk int
	require.NoError(t, db.Conn().QueryRow("PRAGMA foreign_keys").Scan(&fk))
	assert.Equal(t, 1, fk)
}
