package graph

import (
	"regexp"
	"strconv"
	"strings"
)

// The Cypher subset is a closed set of textual shapes, each parsed into a
// tagged statement variant and lowered to equivalent relational fetches.
// This is deliberately not a grammar-complete parser: text outside the
// recognized shapes parses to UnsupportedStmt, which executes to an empty
// result with OutcomeUnsupported rather than an error, so speculative
// capability probes never crash callers.

// Statement is a parsed Cypher-subset statement.
type Statement interface {
	stmt()
}

// Value is either a bound parameter reference or an inline literal.
type Value struct {
	Param   string
	Literal any
}

// Resolve returns the concrete value, looking params up for bound references.
func (v Value) Resolve(params map[string]any) any {
	if v.Param != "" {
		return params[v.Param]
	}
	return v.Literal
}

// PredicateOp is a WHERE comparison operator.
type PredicateOp string

const (
	PredEq       PredicateOp = "eq"
	PredILike    PredicateOp = "ilike"
	PredIn       PredicateOp = "in"
	PredContains PredicateOp = "contains"
)

// Predicate is one WHERE clause term over a `<alias>.properties->>'<key>'`
// operand.
type Predicate struct {
	Alias  string
	Key    string
	Op     PredicateOp
	Value  Value
	Values []any // for IN lists
}

// Assignment is one `SET alias.key = value` term of a MERGE statement.
type Assignment struct {
	Key   string
	Value Value
}

// MatchNodeStmt is a plain node match with optional inline equality props,
// WHERE terms, and LIMIT. ReturnCount marks `RETURN count(alias)`.
type MatchNodeStmt struct {
	Alias       string
	Label       string
	PropsEq     map[string]Value
	Where       []Predicate
	Limit       int
	ReturnCount bool
}

func (MatchNodeStmt) stmt() {}

// MatchRelStmt matches `(a:L1)-[r:TYPE]->(b:L2)` with every part of the
// pattern optional except the arrow. ReturnCount marks `RETURN count(r)`.
type MatchRelStmt struct {
	FromAlias   string
	FromLabel   string
	RelAlias    string
	RelType     string
	ToAlias     string
	ToLabel     string
	Where       []Predicate
	Limit       int
	ReturnCount bool
}

func (MatchRelStmt) stmt() {}

// DetachDeleteStmt bulk-deletes all in-scope relationships, then all in-scope
// nodes (optionally restricted by label).
type DetachDeleteStmt struct {
	Alias string
	Label string
}

func (DetachDeleteStmt) stmt() {}

// MergeStmt is `MERGE (n:Label {id: $param}) SET n.k = v, ...`, lowered to a
// create-or-update upsert.
type MergeStmt struct {
	Alias   string
	Label   string
	IDParam string
	Set     []Assignment
}

func (MergeStmt) stmt() {}

// ReturnOneStmt is the constant connectivity probe `RETURN 1`.
type ReturnOneStmt struct{}

func (ReturnOneStmt) stmt() {}

// UnsupportedStmt is any text outside the recognized subset.
type UnsupportedStmt struct {
	Text string
}

func (UnsupportedStmt) stmt() {}

var (
	reReturnOne = regexp.MustCompile(`(?i)^\s*RETURN\s+1\s*;?\s*$`)

	reMerge = regexp.MustCompile(
		`(?is)^\s*MERGE\s*\(\s*(\w+)\s*:\s*(\w+)\s*\{\s*id\s*:\s*\$(\w+)\s*\}\s*\)\s*(?:SET\s+(.+?))?\s*(?:RETURN\s+.+)?\s*;?\s*$`)

	reDetachDelete = regexp.MustCompile(
		`(?is)^\s*MATCH\s*\(\s*(\w+)\s*(?::\s*(\w+))?\s*\)\s*DETACH\s+DELETE\s+\w+\s*;?\s*$`)

	reMatchRel = regexp.MustCompile(
		`(?is)^\s*MATCH\s*\(\s*(\w*)\s*(?::\s*(\w+))?\s*\)\s*-\s*\[\s*(\w+)\s*(?::\s*(\w+))?\s*\]\s*->\s*\(\s*(\w*)\s*(?::\s*(\w+))?\s*\)\s*(?:WHERE\s+(.+?)\s+)?RETURN\s+(.+?)(?:\s+LIMIT\s+(\d+))?\s*;?\s*$`)

	reMatchNode = regexp.MustCompile(
		`(?is)^\s*MATCH\s*\(\s*(\w+)\s*(?::\s*(\w+))?\s*(?:\{([^}]*)\})?\s*\)\s*(?:WHERE\s+(.+?)\s+)?RETURN\s+(.+?)(?:\s+LIMIT\s+(\d+))?\s*;?\s*$`)

	reCountExpr = regexp.MustCompile(`(?i)^count\s*\(\s*\*?\s*\w*\s*\)$`)

	rePredILike = regexp.MustCompile(
		`(?i)^(\w+)\.properties\s*->>\s*'([^']+)'\s+ILIKE\s+(?:'%'\s*\|\|\s*\$(\w+)\s*\|\|\s*'%'|'%([^']*)%')$`)
	rePredEq = regexp.MustCompile(
		`(?i)^(\w+)\.properties\s*->>\s*'([^']+)'\s*=\s*(?:\$(\w+)|'([^']*)')$`)
	rePredIn = regexp.MustCompile(
		`(?i)^(\w+)\.properties\s*->>\s*'([^']+)'\s+IN\s+[\[(](.*)[\])]$`)
	rePredContains = regexp.MustCompile(
		`(?i)^(\w+)\.properties\s*->>\s*'([^']+)'\s+CONTAINS\s+(?:\$(\w+)|'([^']*)')$`)

	rePropPair = regexp.MustCompile(`^\s*(\w+)\s*:\s*(?:\$(\w+)|'([^']*)')\s*$`)
	reAssign   = regexp.MustCompile(`^\s*(\w+)\.(\w+)\s*=\s*(?:\$(\w+)|'([^']*)'|(\d+(?:\.\d+)?)|(true|false))\s*$`)
)

// ParseCypher parses query text into one of the tagged statement variants.
// It never returns an error: unrecognized text yields UnsupportedStmt.
func ParseCypher(text string) Statement {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return UnsupportedStmt{Text: text}
	}

	if reReturnOne.MatchString(trimmed) {
		return ReturnOneStmt{}
	}

	if m := reMerge.FindStringSubmatch(trimmed); m != nil {
		set, ok := parseAssignments(m[1], m[4])
		if !ok {
			return UnsupportedStmt{Text: text}
		}
		return MergeStmt{Alias: m[1], Label: m[2], IDParam: m[3], Set: set}
	}

	if m := reDetachDelete.FindStringSubmatch(trimmed); m != nil {
		return DetachDeleteStmt{Alias: m[1], Label: m[2]}
	}

	if m := reMatchRel.FindStringSubmatch(trimmed); m != nil {
		where, ok := parseWhere(m[7])
		if !ok {
			return UnsupportedStmt{Text: text}
		}
		if !validReturnExpr(m[8], m[1], m[3], m[5]) {
			return UnsupportedStmt{Text: text}
		}
		limit, _ := strconv.Atoi(m[9])
		return MatchRelStmt{
			FromAlias:   m[1],
			FromLabel:   m[2],
			RelAlias:    m[3],
			RelType:     m[4],
			ToAlias:     m[5],
			ToLabel:     m[6],
			Where:       where,
			Limit:       limit,
			ReturnCount: reCountExpr.MatchString(strings.TrimSpace(m[8])),
		}
	}

	if m := reMatchNode.FindStringSubmatch(trimmed); m != nil {
		props, ok := parsePropPairs(m[3])
		if !ok {
			return UnsupportedStmt{Text: text}
		}
		where, ok := parseWhere(m[4])
		if !ok {
			return UnsupportedStmt{Text: text}
		}
		if !validReturnExpr(m[5], m[1]) {
			return UnsupportedStmt{Text: text}
		}
		limit, _ := strconv.Atoi(m[6])
		return MatchNodeStmt{
			Alias:       m[1],
			Label:       m[2],
			PropsEq:     props,
			Where:       where,
			Limit:       limit,
			ReturnCount: reCountExpr.MatchString(strings.TrimSpace(m[5])),
		}
	}

	return UnsupportedStmt{Text: text}
}

// validReturnExpr accepts a count aggregate or a comma list of the pattern's
// bound aliases. Projections, expressions, and ORDER BY fall outside the
// subset.
func validReturnExpr(expr string, aliases ...string) bool {
	expr = strings.TrimSpace(expr)
	if reCountExpr.MatchString(expr) {
		return true
	}
	bound := make(map[string]bool, len(aliases))
	for _, a := range aliases {
		if a != "" {
			bound[a] = true
		}
	}
	for _, part := range strings.Split(expr, ",") {
		if !bound[strings.TrimSpace(part)] {
			return false
		}
	}
	return true
}

// parseWhere splits a WHERE clause on top-level ANDs and parses each term.
// Returns ok=false when any term falls outside the supported predicate forms.
func parseWhere(clause string) ([]Predicate, bool) {
	clause = strings.TrimSpace(clause)
	if clause == "" {
		return nil, true
	}
	terms := splitTopLevelAnd(clause)
	predicates := make([]Predicate, 0, len(terms))
	for _, term := range terms {
		pred, ok := parsePredicate(strings.TrimSpace(term))
		if !ok {
			return nil, false
		}
		predicates = append(predicates, pred)
	}
	return predicates, true
}

// parsePredicate parses one WHERE term. The only supported operand is
// `<alias>.properties->>'<key>'`.
func parsePredicate(term string) (Predicate, bool) {
	if m := rePredILike.FindStringSubmatch(term); m != nil {
		return Predicate{Alias: m[1], Key: m[2], Op: PredILike, Value: valueFrom(m[3], m[4])}, true
	}
	if m := rePredIn.FindStringSubmatch(term); m != nil {
		values, ok := parseInList(m[3])
		if !ok {
			return Predicate{}, false
		}
		return Predicate{Alias: m[1], Key: m[2], Op: PredIn, Values: values}, true
	}
	if m := rePredContains.FindStringSubmatch(term); m != nil {
		return Predicate{Alias: m[1], Key: m[2], Op: PredContains, Value: valueFrom(m[3], m[4])}, true
	}
	if m := rePredEq.FindStringSubmatch(term); m != nil {
		return Predicate{Alias: m[1], Key: m[2], Op: PredEq, Value: valueFrom(m[3], m[4])}, true
	}
	return Predicate{}, false
}

func valueFrom(param, literal string) Value {
	if param != "" {
		return Value{Param: param}
	}
	return Value{Literal: literal}
}

// parseInList parses the body of an IN list of quoted strings.
func parseInList(body string) ([]any, bool) {
	values := make([]any, 0)
	for _, part := range strings.Split(body, ",") {
		part = strings.TrimSpace(part)
		if len(part) < 2 || part[0] != '\'' || part[len(part)-1] != '\'' {
			return nil, false
		}
		values = append(values, part[1:len(part)-1])
	}
	return values, len(values) > 0
}

// parsePropPairs parses an inline property map `{k: $p, k2: 'lit'}` into
// equality values.
func parsePropPairs(body string) (map[string]Value, bool) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, true
	}
	props := make(map[string]Value)
	for _, part := range strings.Split(body, ",") {
		m := rePropPair.FindStringSubmatch(part)
		if m == nil {
			return nil, false
		}
		props[m[1]] = valueFrom(m[2], m[3])
	}
	return props, true
}

// parseAssignments parses the SET clause of a MERGE. Only assignments on the
// merged alias are accepted.
func parseAssignments(alias, clause string) ([]Assignment, bool) {
	clause = strings.TrimSpace(clause)
	if clause == "" {
		return nil, true
	}
	assignments := make([]Assignment, 0)
	for _, part := range splitTopLevelComma(clause) {
		m := reAssign.FindStringSubmatch(strings.TrimSpace(part))
		if m == nil || m[1] != alias {
			return nil, false
		}
		var value Value
		switch {
		case m[3] != "":
			value = Value{Param: m[3]}
		case m[5] != "":
			if f, err := strconv.ParseFloat(m[5], 64); err == nil {
				value = Value{Literal: f}
			}
		case m[6] != "":
			value = Value{Literal: m[6] == "true"}
		default:
			value = Value{Literal: m[4]}
		}
		assignments = append(assignments, Assignment{Key: m[2], Value: value})
	}
	return assignments, true
}

// splitTopLevelAnd splits on AND keywords outside single-quoted strings.
func splitTopLevelAnd(s string) []string {
	return splitOutsideQuotes(s, func(rest string) int {
		upper := strings.ToUpper(rest)
		if strings.HasPrefix(upper, " AND ") {
			return 5
		}
		return 0
	})
}

// splitTopLevelComma splits on commas outside single-quoted strings.
func splitTopLevelComma(s string) []string {
	return splitOutsideQuotes(s, func(rest string) int {
		if rest[0] == ',' {
			return 1
		}
		return 0
	})
}

// splitOutsideQuotes walks s, splitting wherever sep matches a delimiter at
// the current position and no single-quoted string is open.
func splitOutsideQuotes(s string, sep func(rest string) int) []string {
	var parts []string
	var inQuote bool
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\'' {
			inQuote = !inQuote
			continue
		}
		if inQuote {
			continue
		}
		if n := sep(s[i:]); n > 0 {
			parts = append(parts, s[start:i])
			i += n - 1
			start = i + 1
		}
	}
	parts = append(parts, s[start:])
	return parts
}
