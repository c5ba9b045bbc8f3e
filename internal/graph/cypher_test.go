package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCypherReturnOne(t *testing.T) {
	stmt := ParseCypher("RETURN 1")
	assert.IsType(t, ReturnOneStmt{}, stmt)

	stmt = ParseCypher("  return 1 ; ")
	assert.IsType(t, ReturnOneStmt{}, stmt)
}

func TestParseCypherMatchNode(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  MatchNodeStmt
	}{
		{
			name:  "bare label match",
			query: "MATCH (n:Person) RETURN n",
			want:  MatchNodeStmt{Alias: "n", Label: "Person"},
		},
		{
			name:  "count aggregate",
			query: "MATCH (n:Task) RETURN count(n)",
			want:  MatchNodeStmt{Alias: "n", Label: "Task", ReturnCount: true},
		},
		{
			name:  "count star",
			query: "MATCH (n) RETURN count(*)",
			want:  MatchNodeStmt{Alias: "n", ReturnCount: true},
		},
		{
			name:  "inline props with param",
			query: "MATCH (m:Meeting {source: $src}) RETURN m",
			want: MatchNodeStmt{Alias: "m", Label: "Meeting",
				PropsEq: map[string]Value{"source": {Param: "src"}}},
		},
		{
			name:  "limit",
			query: "MATCH (n:Fact) RETURN n LIMIT 25",
			want:  MatchNodeStmt{Alias: "n", Label: "Fact", Limit: 25},
		},
		{
			name:  "where ilike with param",
			query: "MATCH (p:Person) WHERE p.properties->>'name' ILIKE '%'||$q||'%' RETURN p",
			want: MatchNodeStmt{Alias: "p", Label: "Person",
				Where: []Predicate{{Alias: "p", Key: "name", Op: PredILike, Value: Value{Param: "q"}}}},
		},
		{
			name:  "where eq literal and in list",
			query: "MATCH (t:Task) WHERE t.properties->>'status' = 'open' AND t.properties->>'owner' IN ['ana', 'rui'] RETURN t",
			want: MatchNodeStmt{Alias: "t", Label: "Task",
				Where: []Predicate{
					{Alias: "t", Key: "status", Op: PredEq, Value: Value{Literal: "open"}},
					{Alias: "t", Key: "owner", Op: PredIn, Values: []any{"ana", "rui"}},
				}},
		},
		{
			name:  "where contains",
			query: "MATCH (d:Document) WHERE d.properties->>'body' CONTAINS $frag RETURN d",
			want: MatchNodeStmt{Alias: "d", Label: "Document",
				Where: []Predicate{{Alias: "d", Key: "body", Op: PredContains, Value: Value{Param: "frag"}}}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stmt := ParseCypher(tt.query)
			got, ok := stmt.(MatchNodeStmt)
			require.True(t, ok, "expected MatchNodeStmt, got %T", stmt)
			assert.Equal(t, tt.want.Alias, got.Alias)
			assert.Equal(t, tt.want.Label, got.Label)
			assert.Equal(t, tt.want.Limit, got.Limit)
			assert.Equal(t, tt.want.ReturnCount, got.ReturnCount)
			assert.Equal(t, tt.want.Where, got.Where)
			if tt.want.PropsEq != nil {
				assert.Equal(t, tt.want.PropsEq, got.PropsEq)
			}
		})
	}
}

func TestParseCypherMatchRel(t *testing.T) {
	stmt := ParseCypher("MATCH (a:Task)-[r:ASSIGNED_TO]->(p:Person) RETURN a, r, p")
	got, ok := stmt.(MatchRelStmt)
	require.True(t, ok, "expected MatchRelStmt, got %T", stmt)
	assert.Equal(t, "a", got.FromAlias)
	assert.Equal(t, "Task", got.FromLabel)
	assert.Equal(t, "r", got.RelAlias)
	assert.Equal(t, "ASSIGNED_TO", got.RelType)
	assert.Equal(t, "p", got.ToAlias)
	assert.Equal(t, "Person", got.ToLabel)
	assert.False(t, got.ReturnCount)

	stmt = ParseCypher("MATCH ()-[r]->() RETURN count(r)")
	counted, ok := stmt.(MatchRelStmt)
	require.True(t, ok, "expected MatchRelStmt, got %T", stmt)
	assert.True(t, counted.ReturnCount)
	assert.Empty(t, counted.RelType)
}

func TestParseCypherDetachDelete(t *testing.T) {
	stmt := ParseCypher("MATCH (n) DETACH DELETE n")
	got, ok := stmt.(DetachDeleteStmt)
	require.True(t, ok, "expected DetachDeleteStmt, got %T", stmt)
	assert.Empty(t, got.Label)

	stmt = ParseCypher("MATCH (m:Meeting) DETACH DELETE m")
	got, ok = stmt.(DetachDeleteStmt)
	require.True(t, ok)
	assert.Equal(t, "Meeting", got.Label)
}

func TestParseCypherMerge(t *testing.T) {
	stmt := ParseCypher("MERGE (p:Person {id: $id}) SET p.name = $name, p.active = true, p.score = 4.5, p.team = 'core' RETURN p")
	got, ok := stmt.(MergeStmt)
	require.True(t, ok, "expected MergeStmt, got %T", stmt)
	assert.Equal(t, "p", got.Alias)
	assert.Equal(t, "Person", got.Label)
	assert.Equal(t, "id", got.IDParam)
	require.Len(t, got.Set, 4)
	assert.Equal(t, Assignment{Key: "name", Value: Value{Param: "name"}}, got.Set[0])
	assert.Equal(t, Assignment{Key: "active", Value: Value{Literal: true}}, got.Set[1])
	assert.Equal(t, Assignment{Key: "score", Value: Value{Literal: 4.5}}, got.Set[2])
	assert.Equal(t, Assignment{Key: "team", Value: Value{Literal: "core"}}, got.Set[3])
}

func TestParseCypherMergeWithoutSet(t *testing.T) {
	stmt := ParseCypher("MERGE (n:Technology {id: $tid})")
	got, ok := stmt.(MergeStmt)
	require.True(t, ok)
	assert.Empty(t, got.Set)
}

func TestParseCypherUnsupported(t *testing.T) {
	queries := []string{
		"",
		"CREATE INDEX ON :Person(name)",
		"MATCH (a)-[r*1..3]->(b) RETURN a",
		"MATCH (n) RETURN n.name ORDER BY n.name",
		"MATCH (n:Person) WHERE n.age > 30 RETURN n",
		"CALL db.labels()",
		"MERGE (p:Person {name: $name}) RETURN p", // merge key must be id
		"MATCH (t:Task) WHERE t.properties->>'owner' IN [] RETURN t",
	}
	for _, q := range queries {
		t.Run(q, func(t *testing.T) {
			assert.IsType(t, UnsupportedStmt{}, ParseCypher(q), "query %q must not be recognized", q)
		})
	}
}

func TestSplitOutsideQuotes(t *testing.T) {
	parts := splitTopLevelAnd("a.properties->>'x' = 'one AND two' AND b.properties->>'y' = 'z'")
	require.Len(t, parts, 2, "AND inside quotes must not split")

	parts = splitTopLevelComma("p.a = 'x, y', p.b = 'z'")
	require.Len(t, parts, 2, "comma inside quotes must not split")
}
