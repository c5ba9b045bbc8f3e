package graph

import (
	"fmt"
	"strings"
)

// WHERE evaluation runs in memory on rows the scoped fetch already returned;
// predicates are not pushed down to the store. That bounds scalability to the
// unfiltered fetch size, matching the translator's design.

// aliasProps maps a pattern alias to the property map of the bound entity.
type aliasProps map[string]map[string]any

// evalPredicates reports whether every predicate holds (AND semantics).
func evalPredicates(preds []Predicate, params map[string]any, bound aliasProps) bool {
	for _, pred := range preds {
		if !evalPredicate(pred, params, bound) {
			return false
		}
	}
	return true
}

// evalPredicate evaluates one predicate against the bound entities. The
// `properties->>'key'` operand extracts text, so comparisons are string-wise.
func evalPredicate(pred Predicate, params map[string]any, bound aliasProps) bool {
	props, ok := bound[pred.Alias]
	if !ok {
		return false
	}
	raw, ok := props[pred.Key]
	if !ok || raw == nil {
		return false
	}
	operand := asText(raw)

	switch pred.Op {
	case PredEq:
		return operand == asText(pred.Value.Resolve(params))
	case PredILike:
		needle := asText(pred.Value.Resolve(params))
		return strings.Contains(strings.ToLower(operand), strings.ToLower(needle))
	case PredContains:
		return strings.Contains(operand, asText(pred.Value.Resolve(params)))
	case PredIn:
		for _, candidate := range pred.Values {
			if operand == asText(candidate) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// asText renders a property value the way a ->> text extraction would.
func asText(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		if t {
			return "true"
		}
		return "false"
	case float64:
		// JSON numbers decode as float64; print integers without a decimal.
		if t == float64(int64(t)) {
			return fmt.Sprintf("%d", int64(t))
		}
		return fmt.Sprintf("%v", t)
	default:
		return fmt.Sprint(t)
	}
}
