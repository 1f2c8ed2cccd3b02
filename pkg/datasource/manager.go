// Package datasource fetches declared data sources in the background and
// exposes their loading/success/error state to read-only fields.
package datasource

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/goliatone/go-formflow/pkg/async"
	"github.com/goliatone/go-formflow/pkg/schema"
	"github.com/goliatone/go-formflow/pkg/visibility"
)

// ErrUnknownSource is returned for ids that were never declared.
var ErrUnknownSource = errors.New("datasource: unknown source")

// Transform reshapes a fetched payload before it is stored.
type Transform func(payload any) (any, error)

// Manager owns the fetch state of every declared data source. It is safe for
// concurrent use.
type Manager struct {
	mu         sync.RWMutex
	sources    map[string]schema.DataSource
	transforms map[string]Transform
	fetcher    Fetcher
	tracker    *async.Tracker
	logger     *zap.Logger
}

// Option configures a Manager.
type Option func(*Manager)

// WithFetcher swaps the fetcher; the default is an HTTPFetcher on
// http.DefaultClient.
func WithFetcher(f Fetcher) Option {
	return func(m *Manager) {
		if f != nil {
			m.fetcher = f
		}
	}
}

// WithTransform registers a named transform that sources reference through
// their transform key.
func WithTransform(name string, fn Transform) Option {
	return func(m *Manager) {
		if name = strings.TrimSpace(name); name != "" && fn != nil {
			m.transforms[name] = fn
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *zap.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// NewManager registers sources. Duplicate ids keep the last declaration.
func NewManager(sources []schema.DataSource, opts ...Option) *Manager {
	m := &Manager{
		sources:    make(map[string]schema.DataSource, len(sources)),
		transforms: make(map[string]Transform),
		fetcher:    NewHTTPFetcher(nil, 0),
		tracker:    async.NewTracker(),
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	for _, src := range sources {
		if id := strings.TrimSpace(src.ID); id != "" {
			m.sources[id] = src
		}
	}
	return m
}

// IDs lists the declared source ids, sorted.
func (m *Manager) IDs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.sources))
	for id := range m.sources {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Fetch loads source id and blocks until it settles. A fetch for the same id
// started later cancels this one, which then returns async.ErrSuperseded.
func (m *Manager) Fetch(ctx context.Context, id string) (any, error) {
	src, fn, err := m.prepare(id)
	if err != nil {
		return nil, err
	}
	return m.tracker.Run(ctx, id, func(ctx context.Context) (any, error) {
		return m.load(ctx, src, fn)
	})
}

// Start loads source id in the background.
func (m *Manager) Start(ctx context.Context, id string) error {
	src, fn, err := m.prepare(id)
	if err != nil {
		return err
	}
	return m.tracker.Go(ctx, id, func(ctx context.Context) (any, error) {
		return m.load(ctx, src, fn)
	})
}

// FetchAll loads every declared source concurrently and waits. Failures are
// recorded per source; the returned error joins them.
func (m *Manager) FetchAll(ctx context.Context) error {
	ids := m.IDs()
	errs := make([]error, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	for i, id := range ids {
		g.Go(func() error {
			if _, err := m.Fetch(gctx, id); err != nil {
				errs[i] = fmt.Errorf("%s: %w", id, err)
			}
			// Sibling fetches keep going when one source fails.
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(errs...)
}

// State returns the fetch state of id.
func (m *Manager) State(id string) async.State {
	return m.tracker.State(id)
}

// States returns every known state keyed by id.
func (m *Manager) States() map[string]async.State {
	return m.tracker.Snapshot()
}

// Lookup resolves path inside the fetched value of id. Loading and error
// states are returned as is; a success whose payload lacks path reports an
// error state.
func (m *Manager) Lookup(id, path string) async.State {
	state := m.tracker.State(id)
	if state.Status != async.StatusSuccess || strings.TrimSpace(path) == "" {
		return state
	}
	value, ok := resolvePath(state.Value, path)
	if !ok {
		return async.State{Status: async.StatusError, Error: fmt.Sprintf("path %q not found in %s", path, id)}
	}
	return async.State{Status: async.StatusSuccess, Value: value}
}

// Close cancels in-flight fetches and waits for them.
func (m *Manager) Close() {
	m.tracker.Close()
}

func (m *Manager) prepare(id string) (schema.DataSource, Transform, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	src, ok := m.sources[id]
	if !ok {
		return schema.DataSource{}, nil, fmt.Errorf("%w: %q", ErrUnknownSource, id)
	}
	var fn Transform
	if name := strings.TrimSpace(src.Transform); name != "" {
		fn, ok = m.transforms[name]
		if !ok {
			return schema.DataSource{}, nil, fmt.Errorf("datasource: %s: unknown transform %q", id, name)
		}
	}
	return src, fn, nil
}

func (m *Manager) load(ctx context.Context, src schema.DataSource, fn Transform) (any, error) {
	m.logger.Debug("fetching data source", zap.String("id", src.ID), zap.String("url", src.URL))
	payload, err := m.fetcher.Fetch(ctx, src)
	if err != nil {
		m.logger.Warn("data source fetch failed", zap.String("id", src.ID), zap.Error(err))
		return nil, err
	}
	if fn == nil {
		return payload, nil
	}
	out, err := fn(payload)
	if err != nil {
		return nil, fmt.Errorf("datasource: %s: transform: %w", src.ID, err)
	}
	return out, nil
}

func resolvePath(value any, path string) (any, bool) {
	switch v := value.(type) {
	case map[string]any:
		return visibility.LookupPath(v, path)
	case []any:
		return visibility.LookupPath(map[string]any{"$": v}, "$."+path)
	default:
		return nil, false
	}
}
