package graph

import (
	"time"

	"github.com/rpad300/godmode-sub011/internal/types"
)

// Row conversion between the relational column shape and the graph types.
// JSON property columns travel as already-decoded maps; the RowClient owns
// the (de)serialization.

func nodeToRow(node Node) map[string]any {
	row := map[string]any{
		"id":         node.ID.String(),
		"label":      node.Label,
		"properties": node.Properties,
		"graph_name": node.GraphName,
		"created_at": node.CreatedAt,
		"updated_at": node.UpdatedAt,
	}
	if node.ProjectID != "" {
		row["project_id"] = node.ProjectID
	} else {
		row["project_id"] = nil
	}
	return row
}

func rowToNode(row map[string]any) Node {
	return Node{
		ID:         types.ID(asString(row["id"])),
		Label:      asString(row["label"]),
		Properties: asProps(row["properties"]),
		GraphName:  asString(row["graph_name"]),
		ProjectID:  asString(row["project_id"]),
		CreatedAt:  asTime(row["created_at"]),
		UpdatedAt:  asTime(row["updated_at"]),
	}
}

func relToRow(rel Relationship) map[string]any {
	row := map[string]any{
		"id":         rel.ID.String(),
		"from_id":    rel.FromID.String(),
		"to_id":      rel.ToID.String(),
		"type":       rel.Type,
		"properties": rel.Properties,
		"graph_name": rel.GraphName,
		"created_at": rel.CreatedAt,
	}
	if rel.ProjectID != "" {
		row["project_id"] = rel.ProjectID
	} else {
		row["project_id"] = nil
	}
	return row
}

func rowToRel(row map[string]any) Relationship {
	return Relationship{
		ID:         types.ID(asString(row["id"])),
		FromID:     types.ID(asString(row["from_id"])),
		ToID:       types.ID(asString(row["to_id"])),
		Type:       asString(row["type"]),
		Properties: asProps(row["properties"]),
		GraphName:  asString(row["graph_name"]),
		ProjectID:  asString(row["project_id"]),
		CreatedAt:  asTime(row["created_at"]),
	}
}

func asString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

func asInt64(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case float64:
		return int64(n)
	default:
		return 0
	}
}

func asFloat64(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int64:
		return float64(n)
	case int:
		return float64(n)
	default:
		return 0
	}
}

func asTime(v any) time.Time {
	switch t := v.(type) {
	case time.Time:
		return t
	case string:
		if parsed, err := time.Parse(time.RFC3339Nano, t); err == nil {
			return parsed
		}
		if parsed, err := time.Parse("2006-01-02 15:04:05.999999999-07:00", t); err == nil {
			return parsed
		}
		return time.Time{}
	default:
		return time.Time{}
	}
}

func asProps(v any) map[string]any {
	if m, ok := v.(map[string]any); ok {
		return m
	}
	return make(map[string]any)
}
