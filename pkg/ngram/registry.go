package ngram

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

// Registry holds the ActiveSet currently served and replaces it on reload.
// Readers take a snapshot with a single atomic load and are never blocked by a
// reload in progress.
type Registry struct {
	source           Source
	cache            *ModelCache
	maxOrder         int
	defaultIntensity float64
	workers          int
	pruneMinWeight   int
	logger           *slog.Logger

	reloadMu sync.Mutex // serializes Load calls, never taken by readers
	active   atomic.Pointer[ActiveSet]
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithCache stores and reuses compiled models in c.
func WithCache(c *ModelCache) RegistryOption {
	return func(r *Registry) { r.cache = c }
}

// WithMaxOrder sets the highest order models are trained with. 0, the
// default, trains every word up to its full length.
func WithMaxOrder(k int) RegistryOption {
	return func(r *Registry) { r.maxOrder = k }
}

// WithDefaultIntensity sets the intensity of a loaded model no intensity was
// given for. It defaults to DefaultIntensity.
func WithDefaultIntensity(v float64) RegistryOption {
	return func(r *Registry) { r.defaultIntensity = v }
}

// WithWorkers sets the number of goroutines used to build models.
func WithWorkers(n int) RegistryOption {
	return func(r *Registry) {
		if n > 0 {
			r.workers = n
		}
	}
}

// WithPruneMinWeight drops, from every loaded model, the transitions of order 2
// and above whose weight is at most w.
func WithPruneMinWeight(w int) RegistryOption {
	return func(r *Registry) { r.pruneMinWeight = w }
}

// NewRegistry returns a Registry serving models built from source. It starts
// with an empty ActiveSet.
func NewRegistry(source Source, opts ...RegistryOption) (*Registry, error) {
	if source == nil {
		return nil, errors.New("registry needs a corpus source")
	}
	r := &Registry{
		source:           source,
		defaultIntensity: DefaultIntensity,
		workers:          runtime.GOMAXPROCS(0),
		logger:           discardLogger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if !validIntensity(r.defaultIntensity) {
		return nil, validationf("default intensity %v is outside [0, %v]", r.defaultIntensity, MaxIntensity)
	}
	empty, _ := NewActiveSet(nil)
	r.active.Store(empty)
	return r, nil
}

// SetLogger sets the logger of the registry. By default, all logs are
// discarded.
func (r *Registry) SetLogger(logger *slog.Logger) {
	if logger != nil {
		r.logger = logger
	}
}

// Snapshot returns the ActiveSet currently served. The result stays valid and
// unchanged for as long as the caller holds it, whatever reloads happen.
func (r *Registry) Snapshot() *ActiveSet {
	return r.active.Load()
}

// ListAvailable returns the names of every corpus of the source, sorted.
func (r *Registry) ListAvailable(ctx context.Context) ([]string, error) {
	return r.source.List(ctx)
}

// ListLoaded returns the names of the models currently served, sorted.
func (r *Registry) ListLoaded() []string {
	return r.Snapshot().Names()
}

// Stats returns the statistics of every model currently served.
func (r *Registry) Stats() []ModelStats {
	return r.Snapshot().Stats()
}

// Generate runs one generation call against the current snapshot.
func (r *Registry) Generate(ctx context.Context, req Request, opts ...GenerateOption) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	return Generate(r.Snapshot(), req, opts...)
}

// Load builds a model for every name, then replaces the served ActiveSet with
// one holding exactly those models. Intensities not given default to the
// registry's default intensity.
//
// Load is all-or-nothing: when any source is missing or fails to parse, the
// served ActiveSet is left untouched.
func (r *Registry) Load(ctx context.Context, names []string, intensities map[string]float64) error {
	if len(names) == 0 {
		return validationf("no model name given")
	}
	wanted := make(map[string]struct{}, len(names))
	for _, name := range names {
		if _, dup := wanted[name]; dup {
			return validationf("model %q given twice", name)
		}
		wanted[name] = struct{}{}
	}
	for name, v := range intensities {
		if _, ok := wanted[name]; !ok {
			return validationf("intensity given for model %q which is not being loaded", name)
		}
		if !validIntensity(v) {
			return validationf("intensity for %q must be in [0, %v], got %v", name, MaxIntensity, v)
		}
	}

	r.reloadMu.Lock()
	defer r.reloadMu.Unlock()

	start := time.Now()
	models := make([]*Model, len(names))
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(r.workers)
	for i, name := range names {
		eg.Go(func() error {
			m, err := r.buildModel(egCtx, name)
			if err != nil {
				return err
			}
			models[i] = m
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		r.logger.WarnContext(ctx, "Model reload failed, keeping the current set",
			slog.Any("names", names),
			slog.Any("error", err),
		)
		return err
	}

	entries := make(map[string]Entry, len(names))
	for i, name := range names {
		intensity, ok := intensities[name]
		if !ok {
			intensity = r.defaultIntensity
		}
		entries[name] = Entry{Model: models[i], Intensity: intensity}
	}
	set, err := NewActiveSet(entries)
	if err != nil {
		return err
	}
	r.active.Store(set)

	r.logger.InfoContext(ctx, "Models loaded",
		slog.Any("names", set.Names()),
		slog.Duration("duration", time.Since(start)),
	)
	return nil
}

// buildModel reads the named corpus and returns its model, from the cache when
// the corpus is unchanged.
func (r *Registry) buildModel(ctx context.Context, name string) (*Model, error) {
	rc, err := r.source.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	data, err := io.ReadAll(rc)
	_ = rc.Close()
	if err != nil {
		return nil, &ParseError{Source: name, Err: fmt.Errorf("read failed: %w", err)}
	}

	var fp uint64
	if r.cache != nil {
		fp = Fingerprint(data)
		if m, ok := r.cache.Get(name, fp, r.maxOrder); ok {
			r.logger.DebugContext(ctx, "Model loaded from cache", slog.String("model", name))
			return r.prune(m), nil
		}
	}

	words, err := ReadCorpus(name, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	m, err := BuildConcurrent(ctx, name, words, r.maxOrder, r.workers)
	if err != nil {
		return nil, err
	}
	r.logger.DebugContext(ctx, "Model built",
		slog.String("model", name),
		slog.Int("words", len(m.words)),
		slog.Int("max_order", m.MaxOrder()),
	)

	if r.cache != nil {
		if err := r.cache.Put(name, fp, r.maxOrder, m); err != nil {
			r.logger.WarnContext(ctx, "Failed to cache model", slog.String("model", name), slog.Any("error", err))
		}
	}
	return r.prune(m), nil
}

func (r *Registry) prune(m *Model) *Model {
	if r.pruneMinWeight <= 0 {
		return m
	}
	return m.Prune(r.pruneMinWeight)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
