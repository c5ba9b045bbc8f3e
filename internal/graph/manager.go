package graph

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/rpad300/godmode-sub011/internal/types"
)

// EntityKind enumerates the entity labels the manager knows how to route.
type EntityKind string

const (
	KindPerson       EntityKind = "Person"
	KindTechnology   EntityKind = "Technology"
	KindClient       EntityKind = "Client"
	KindOrganization EntityKind = "Organization"
	KindFact         EntityKind = "Fact"
	KindMeeting      EntityKind = "Meeting"
	KindDecision     EntityKind = "Decision"
	KindRisk         EntityKind = "Risk"
	KindTask         EntityKind = "Task"
	KindDocument     EntityKind = "Document"
	KindProject      EntityKind = "Project"
)

// AllEntityKinds lists every routable kind, shared kinds first.
var AllEntityKinds = []EntityKind{
	KindPerson, KindTechnology, KindClient, KindOrganization,
	KindFact, KindMeeting, KindDecision, KindRisk, KindTask, KindDocument, KindProject,
}

// Placement decides which logical graph a kind lives in.
type Placement int

const (
	// PlacementShared stores one node in the _shared partition, tracked
	// across projects via an accumulated `projects` array property.
	PlacementShared Placement = iota
	// PlacementProjectScoped stores one node per project partition.
	PlacementProjectScoped
)

// PlacementFor is the total routing function over EntityKind. Adding a kind
// without extending this switch is a compile-visible decision point: the
// default places unknown labels in the project partition, the safe side for
// tenancy.
func PlacementFor(kind EntityKind) Placement {
	switch kind {
	case KindPerson, KindTechnology, KindClient, KindOrganization:
		return PlacementShared
	case KindFact, KindMeeting, KindDecision, KindRisk, KindTask, KindDocument, KindProject:
		return PlacementProjectScoped
	default:
		return PlacementProjectScoped
	}
}

// crossRefLabel is the pseudo-node label linking a shared entity to
// project-scoped data; there is no native cross-partition edge.
const crossRefLabel = "_CrossRef"

// Manager routes entities between the shared and project-scoped logical
// graphs over a single provider. Scope is an explicit argument everywhere;
// the manager holds no mutable "current project" state, so one instance can
// serve concurrent operations for different projects.
type Manager struct {
	provider GraphProvider
	logger   *slog.Logger
}

// NewManager creates a Manager over the given provider. Construct one per
// composition root and inject it; there is no package-level singleton.
func NewManager(provider GraphProvider, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{provider: provider, logger: logger}
}

// GraphFor resolves the scope an entity label belongs to under a project.
func (m *Manager) GraphFor(label string, projectID string) Scope {
	if PlacementFor(EntityKind(label)) == PlacementShared {
		return SharedScope()
	}
	return ProjectScope(projectID)
}

// CreateNode routes the node by label. Shared entities accumulate the
// current project id in a deduplicated `projects` array property, so a
// Person spans projects without row duplication; project-scoped entities get
// one node per project partition. The accumulation is a read-then-write with
// no concurrency token, so concurrent creates of the same shared entity are
// last-write-wins on the projects array.
func (m *Manager) CreateNode(ctx context.Context, label string, props map[string]any, projectID string) (Node, error) {
	scope := m.GraphFor(label, projectID)

	id := types.ID(asText(props["id"]))
	if id.IsZero() {
		id = types.NewID()
	}
	node := NewNode(id, label)
	node.WithProperties(props)

	if scope.GraphName == SharedGraphName && projectID != "" {
		projects, err := m.sharedProjects(ctx, id)
		if err != nil {
			return Node{}, err
		}
		node.WithProperty("projects", appendProject(projects, projectID))
	}

	return m.provider.CreateNode(ctx, scope, *node)
}

// CreateNodesBatch routes and creates nodes of one label, best effort.
func (m *Manager) CreateNodesBatch(ctx context.Context, label string, items []map[string]any, projectID string) BatchResult {
	var result BatchResult
	for i, props := range items {
		if _, err := m.CreateNode(ctx, label, props, projectID); err != nil {
			result.Errors = append(result.Errors, fmt.Errorf("item %d: %w", i, err))
			continue
		}
		result.Created++
	}
	return result
}

// sharedProjects returns the existing `projects` array of a shared node, or
// nil when the node does not exist yet.
func (m *Manager) sharedProjects(ctx context.Context, id types.ID) ([]string, error) {
	existing, err := m.provider.GetNode(ctx, SharedScope(), id)
	if err != nil {
		if types.CodeOf(err) == types.ErrNotFound {
			return nil, nil
		}
		return nil, err
	}
	return existing.StringSliceProperty("projects"), nil
}

// appendProject adds projectID to the set unless already present.
func appendProject(projects []string, projectID string) []string {
	for _, p := range projects {
		if p == projectID {
			return projects
		}
	}
	return append(projects, projectID)
}

// FindPersonProjects looks a person up in the shared graph and returns the
// projects it participates in.
func (m *Manager) FindPersonProjects(ctx context.Context, id types.ID) ([]string, int, error) {
	node, err := m.provider.GetNode(ctx, SharedScope(), id)
	if err != nil {
		return nil, 0, err
	}
	projects := node.StringSliceProperty("projects")
	return projects, len(projects), nil
}

// FindCrossProjectPeople scans the shared graph for Person nodes whose
// `projects` array spans more than one project.
func (m *Manager) FindCrossProjectPeople(ctx context.Context) ([]Node, error) {
	people, err := m.provider.FindNodes(ctx, SharedScope(), string(KindPerson), nil, 0)
	if err != nil {
		return nil, err
	}
	crossProject := make([]Node, 0)
	for _, person := range people {
		if len(person.StringSliceProperty("projects")) > 1 {
			crossProject = append(crossProject, person)
		}
	}
	return crossProject, nil
}

// CrossGraphResult merges one query's results across the shared graph and
// every project graph it ran against.
type CrossGraphResult struct {
	Shared   QueryResult            `json:"shared"`
	Projects map[string]QueryResult `json:"projects"`
}

// QueryAcrossProjects runs the same Cypher-subset query against the shared
// graph and every listed project graph, sequentially. An empty projectIDs
// slice fans out to every project partition known to the store. Per-graph
// failures are recorded as empty results and logged, not fatal.
func (m *Manager) QueryAcrossProjects(ctx context.Context, cypher string, params map[string]any, projectIDs []string) (CrossGraphResult, error) {
	if len(projectIDs) == 0 {
		known, err := m.knownProjectIDs(ctx)
		if err != nil {
			return CrossGraphResult{}, err
		}
		projectIDs = known
	}

	result := CrossGraphResult{Projects: make(map[string]QueryResult, len(projectIDs))}

	shared, err := m.provider.Query(ctx, SharedScope(), cypher, params)
	if err != nil {
		m.logger.Warn("cross-graph query failed on shared graph", "error", err)
		shared = emptyResult(OutcomeEmpty)
	}
	result.Shared = shared

	for _, projectID := range projectIDs {
		projectResult, err := m.provider.Query(ctx, ProjectScope(projectID), cypher, params)
		if err != nil {
			m.logger.Warn("cross-graph query failed on project graph",
				"project", projectID, "error", err)
			projectResult = emptyResult(OutcomeEmpty)
		}
		result.Projects[projectID] = projectResult
	}
	return result, nil
}

// knownProjectIDs derives project ids from the partition names in the store.
func (m *Manager) knownProjectIDs(ctx context.Context) ([]string, error) {
	graphs, err := m.provider.ListGraphs(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(graphs))
	for _, name := range graphs {
		if id, ok := strings.CutPrefix(name, "project_"); ok && id != "" {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// SyncReport summarizes a best-effort bulk sync: per-type creation counts and
// the failures collected along the way.
type SyncReport struct {
	CreatedByType map[string]int `json:"created_by_type"`
	Errors        []error        `json:"errors,omitempty"`
}

// SyncData ingests a document of entity collections. For each statically
// known entity kind it locates a matching input collection by a lenient
// naming convention (exact label, lowercase, plural forms), routes and
// creates the items in a best-effort batch, and records per-type failures
// without aborting the whole sync. The provider's sync status row is updated
// at the end when the backend tracks one.
func (m *Manager) SyncData(ctx context.Context, data map[string][]map[string]any, projectID string) SyncReport {
	report := SyncReport{CreatedByType: make(map[string]int)}
	pending := 0

	for _, kind := range AllEntityKinds {
		items, ok := lookupCollection(data, kind)
		if !ok || len(items) == 0 {
			continue
		}
		batch := m.CreateNodesBatch(ctx, string(kind), items, projectID)
		report.CreatedByType[string(kind)] = batch.Created
		if len(batch.Errors) > 0 {
			pending += len(batch.Errors)
			report.Errors = append(report.Errors,
				fmt.Errorf("%s: %d of %d items failed: %w", kind, len(batch.Errors), len(items), batch.Errors[0]))
		}
	}

	if store, ok := m.provider.(SyncStatusStore); ok && projectID != "" {
		status := SyncStatus{
			ProjectID:       projectID,
			GraphName:       ProjectGraphName(projectID),
			HealthStatus:    "healthy",
			PendingCount:    pending,
			LastConnectedAt: time.Now().UTC(),
		}
		if len(report.Errors) > 0 {
			status.HealthStatus = "degraded"
			status.LastError = report.Errors[0].Error()
		}
		if err := store.UpsertSyncStatus(ctx, status); err != nil {
			m.logger.Warn("failed to record sync status", "project", projectID, "error", err)
		}
	}
	return report
}

// lookupCollection finds the input collection for a kind by trying the exact
// label, its lowercase form, and common plural spellings ("tasks",
// "technologies").
func lookupCollection(data map[string][]map[string]any, kind EntityKind) ([]map[string]any, bool) {
	label := string(kind)
	lower := strings.ToLower(label)
	candidates := []string{label, lower, lower + "s"}
	if strings.HasSuffix(lower, "y") {
		candidates = append(candidates, strings.TrimSuffix(lower, "y")+"ies")
	}
	if lower == "person" {
		candidates = append(candidates, "people", "persons")
	}
	for _, key := range candidates {
		if items, ok := data[key]; ok {
			return items, true
		}
	}
	return nil, false
}

// CreateCrossReference stores a _CrossRef pseudo-node in the project graph
// linking a shared entity to project-scoped data. Partitions have no native
// cross-partition edge, so the reference carries both ids as properties.
func (m *Manager) CreateCrossReference(ctx context.Context, projectID string, sharedID, projectEntityID types.ID, relation string) (Node, error) {
	if projectID == "" {
		return Node{}, types.NewError(types.ErrInvalidConfig, "cross reference requires a project id")
	}
	id := types.ID(fmt.Sprintf("xref:%s:%s:%s", relation, sharedID, projectEntityID))
	node := NewNode(id, crossRefLabel)
	node.WithProperties(map[string]any{
		"shared_id":         sharedID.String(),
		"project_entity_id": projectEntityID.String(),
		"relation":          relation,
	})
	return m.provider.CreateNode(ctx, ProjectScope(projectID), *node)
}
