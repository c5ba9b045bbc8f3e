package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rpad300/godmode-sub011/internal/types"
)

// Config is the provider construction input: the default partition, an
// optional project scope, the injected relational client, and backend-specific
// options (decoded by each backend with mapstructure).
type Config struct {
	GraphName string         `json:"graph_name" yaml:"graph_name" mapstructure:"graph_name"`
	ProjectID string         `json:"project_id,omitempty" yaml:"project_id" mapstructure:"project_id"`
	Options   map[string]any `json:"options,omitempty" yaml:"options" mapstructure:"options"`
	Client    RowClient      `json:"-" yaml:"-" mapstructure:"-"`
}

// FeatureConfig is the graph section of the application configuration.
type FeatureConfig struct {
	Enabled   bool           `yaml:"enabled" json:"enabled" mapstructure:"enabled"`
	Provider  string         `yaml:"provider" json:"provider" mapstructure:"provider"`
	GraphName string         `yaml:"graph_name" json:"graph_name" mapstructure:"graph_name"`
	ProjectID string         `yaml:"project_id" json:"project_id" mapstructure:"project_id"`
	Options   map[string]any `yaml:"options" json:"options" mapstructure:"options"`
}

// Constructor builds an unconnected provider from a Config.
type Constructor func(cfg Config, logger *slog.Logger) (GraphProvider, error)

// ProviderInfo is one entry of the capability manifest.
type ProviderInfo struct {
	ID           string       `json:"id"`
	Capabilities Capabilities `json:"capabilities"`
}

// ConnectionReport is the outcome of a TestConnection cycle.
type ConnectionReport struct {
	OK        bool   `json:"ok"`
	Error     string `json:"error,omitempty"`
	LatencyMS int64  `json:"latency_ms,omitempty"`
}

// Factory registers graph backends and caches constructed instances so
// identical configurations reuse one connection.
type Factory struct {
	mu           sync.Mutex
	constructors map[string]Constructor
	capabilities map[string]Capabilities
	cache        map[string]GraphProvider
	logger       *slog.Logger
}

// ProviderRelational and ProviderNeo4j are the builtin backend ids.
const (
	ProviderRelational = "relational"
	ProviderNeo4j      = "neo4j"
)

// NewFactory creates a factory with the builtin backends registered.
func NewFactory(logger *slog.Logger) *Factory {
	if logger == nil {
		logger = slog.Default()
	}
	f := &Factory{
		constructors: make(map[string]Constructor),
		capabilities: make(map[string]Capabilities),
		cache:        make(map[string]GraphProvider),
		logger:       logger,
	}
	f.Register(ProviderRelational,
		Capabilities{CypherLevel: "subset", Transactions: true, FullTextSearch: true},
		func(cfg Config, logger *slog.Logger) (GraphProvider, error) {
			return NewRelationalProvider(cfg, logger), nil
		})
	f.Register(ProviderNeo4j,
		Capabilities{CypherLevel: "full", Transactions: true, FullTextSearch: true, VectorSearch: true},
		func(cfg Config, logger *slog.Logger) (GraphProvider, error) {
			return NewNeo4jProvider(cfg, logger)
		})
	return f
}

// Register adds (or replaces) a backend under the given id.
func (f *Factory) Register(id string, caps Capabilities, ctor Constructor) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.constructors[id] = ctor
	f.capabilities[id] = caps
}

// Providers returns the capability manifest, sorted by id.
func (f *Factory) Providers() []ProviderInfo {
	f.mu.Lock()
	defer f.mu.Unlock()
	infos := make([]ProviderInfo, 0, len(f.capabilities))
	for id, caps := range f.capabilities {
		infos = append(infos, ProviderInfo{ID: id, Capabilities: caps})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].ID < infos[j].ID })
	return infos
}

// CreateProvider instantiates a registered backend without connecting it.
// An unknown id fails with a listing of the available ids.
func (f *Factory) CreateProvider(id string, cfg Config) (GraphProvider, error) {
	f.mu.Lock()
	ctor, ok := f.constructors[id]
	available := make([]string, 0, len(f.constructors))
	for registered := range f.constructors {
		available = append(available, registered)
	}
	f.mu.Unlock()

	if !ok {
		sort.Strings(available)
		return nil, types.NewError(types.ErrInvalidConfig,
			fmt.Sprintf("unknown graph provider %q (available: %s)", id, strings.Join(available, ", ")))
	}
	return ctor(cfg, f.logger)
}

// GetProvider returns a connected provider, reusing a cached instance when
// the id and the structural JSON of the config match a previous call.
func (f *Factory) GetProvider(ctx context.Context, id string, cfg Config) (GraphProvider, error) {
	key := cacheKey(id, cfg)

	f.mu.Lock()
	if cached, ok := f.cache[key]; ok {
		f.mu.Unlock()
		return cached, nil
	}
	f.mu.Unlock()

	provider, err := f.CreateProvider(id, cfg)
	if err != nil {
		return nil, err
	}
	if err := provider.Connect(ctx); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	// Another goroutine may have populated the key while we connected.
	if cached, ok := f.cache[key]; ok {
		_ = provider.Close(ctx)
		return cached, nil
	}
	f.cache[key] = provider
	return provider, nil
}

// ClearCache disconnects every cached instance, tolerating individual close
// errors, and then evicts them all.
func (f *Factory) ClearCache(ctx context.Context) {
	f.mu.Lock()
	cached := f.cache
	f.cache = make(map[string]GraphProvider)
	f.mu.Unlock()

	for key, provider := range cached {
		if err := provider.Close(ctx); err != nil {
			f.logger.Warn("failed to disconnect cached graph provider",
				"cache_key", key, "error", err)
		}
	}
}

// TestConnection performs a full connect -> probe -> disconnect cycle and
// reports the outcome without leaving a live connection behind.
func (f *Factory) TestConnection(ctx context.Context, id string, cfg Config) ConnectionReport {
	started := time.Now()

	provider, err := f.CreateProvider(id, cfg)
	if err != nil {
		return ConnectionReport{Error: err.Error()}
	}
	if err := provider.Connect(ctx); err != nil {
		return ConnectionReport{Error: err.Error()}
	}
	defer func() {
		if err := provider.Close(ctx); err != nil {
			f.logger.Warn("failed to disconnect after connection test", "provider", id, "error", err)
		}
	}()

	if _, err := provider.Query(ctx, Scope{}, "RETURN 1", nil); err != nil {
		return ConnectionReport{Error: err.Error()}
	}
	return ConnectionReport{OK: true, LatencyMS: time.Since(started).Milliseconds()}
}

// CreateFromConfig builds the application's provider from the graph feature
// configuration. Returns (nil, nil) when the feature is disabled or the
// initial connect fails: nil means "graph unavailable", and callers must
// degrade rather than crash.
func (f *Factory) CreateFromConfig(ctx context.Context, feature FeatureConfig, client RowClient) (GraphProvider, error) {
	if !feature.Enabled {
		f.logger.Info("graph feature disabled")
		return nil, nil
	}
	providerID := feature.Provider
	if providerID == "" {
		providerID = ProviderRelational
	}
	cfg := Config{
		GraphName: feature.GraphName,
		ProjectID: feature.ProjectID,
		Options:   feature.Options,
		Client:    client,
	}
	provider, err := f.CreateProvider(providerID, cfg)
	if err != nil {
		return nil, err
	}
	if err := provider.Connect(ctx); err != nil {
		f.logger.Warn("graph store unreachable, continuing without graph",
			"provider", providerID, "error", err)
		return nil, nil
	}
	return provider, nil
}

// cacheKey derives the cache identity from the backend id plus the structural
// JSON of the config. encoding/json sorts map keys, so two configs with the
// same content produce the same key regardless of construction order. The
// injected client is excluded by its json:"-" tag.
func cacheKey(id string, cfg Config) string {
	data, err := json.Marshal(cfg)
	if err != nil {
		data = []byte(fmt.Sprintf("%+v", cfg))
	}
	return id + "\n" + string(data)
}
