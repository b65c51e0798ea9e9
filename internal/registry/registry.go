// Package registry keeps one half-life model per scope.
//
// A halflife.Model is not safe for concurrent mutation. The registry wraps
// each scope's model in its own RWMutex: predictions share a read lock, while
// training and weight loading take the write lock. Different scopes never
// contend with each other.
//
// Models are created lazily. On first use of a scope the registry asks its
// Persister for a checkpoint and falls back to a fresh model when there is
// none. Scopes changed since the last checkpoint are marked dirty and written
// back by Flush, or periodically by Run.
package registry

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/noema/hlr/core/model"
	"github.com/noema/hlr/halflife"
	"github.com/noema/hlr/pkg/errors"
	"github.com/noema/hlr/pkg/log"
)

// DefaultScope is used when a request names no scope.
const DefaultScope = "global"

// Persister stores and retrieves checkpoints. *store.Store implements it.
type Persister interface {
	Save(ctx context.Context, cp *model.Checkpoint) error
	Load(ctx context.Context, scope string) (*model.Checkpoint, error)
}

type entry struct {
	mu    sync.RWMutex
	model *halflife.Model
	dirty atomic.Bool

	// saveMu serializes checkpoint writes of this scope, so an older
	// snapshot is never stored after a newer one.
	saveMu sync.Mutex
}

// Registry owns the models of all scopes.
type Registry struct {
	mu      sync.Mutex
	entries map[string]*entry

	cfg     halflife.Config
	persist Persister
	logger  log.Logger
}

// Option configures a Registry.
type Option func(*Registry)

// WithPersister sets the checkpoint backend. Without one the registry is
// memory only and Flush is a no-op.
func WithPersister(p Persister) Option {
	return func(r *Registry) {
		r.persist = p
	}
}

// WithLogger sets the registry logger.
func WithLogger(logger log.Logger) Option {
	return func(r *Registry) {
		r.logger = logger
	}
}

// New creates a registry whose new models use cfg.
func New(cfg halflife.Config, options ...Option) *Registry {
	r := &Registry{
		entries: make(map[string]*entry),
		cfg:     cfg,
		logger:  log.GetLoggerWithName("registry"),
	}
	for _, opt := range options {
		opt(r)
	}
	return r
}

func normalizeScope(scope string) string {
	if scope == "" {
		return DefaultScope
	}
	return scope
}

// get returns the entry for scope, restoring or creating it on first use.
// The persister is consulted without holding the registry lock, so a slow
// load of one scope does not stall the others. A failed restore is not
// cached, so the next call retries.
func (r *Registry) get(ctx context.Context, scope string) (*entry, error) {
	r.mu.Lock()
	e, ok := r.entries[scope]
	r.mu.Unlock()
	if ok {
		return e, nil
	}

	m := halflife.NewModel(
		halflife.WithConfig(r.cfg),
		halflife.WithLogger(r.logger.With(log.ScopeKey, scope)),
	)
	if r.persist != nil {
		cp, err := r.persist.Load(ctx, scope)
		switch {
		case err == nil:
			if err := m.Restore(cp); err != nil {
				return nil, errors.Wrapf(err, "restore scope %q", scope)
			}
			r.logger.Info("scope restored from checkpoint",
				log.ScopeKey, scope,
				log.FeaturesKey, len(cp.Weights),
				log.SamplesKey, cp.Observations,
			)
		case errors.Is(err, errors.ErrNotFound):
			r.logger.Debug("scope created", log.ScopeKey, scope)
		default:
			return nil, errors.Wrapf(err, "load scope %q", scope)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	// another first use of scope may have finished meanwhile
	if e, ok := r.entries[scope]; ok {
		return e, nil
	}
	e = &entry{model: m}
	r.entries[scope] = e
	return e, nil
}

// Predict returns the recall probability and half-life for scope.
func (r *Registry) Predict(ctx context.Context, scope string, features halflife.FeatureVector, deltaDays float64) (halflife.Prediction, error) {
	e, err := r.get(ctx, normalizeScope(scope))
	if err != nil {
		return halflife.Prediction{}, err
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.model.Predict(features, deltaDays), nil
}

// Train applies one observation to scope and returns the training result
// together with the prediction made after the update.
func (r *Registry) Train(ctx context.Context, scope string, features halflife.FeatureVector, obs halflife.Observation) (halflife.TrainResult, halflife.Prediction, error) {
	e, err := r.get(ctx, normalizeScope(scope))
	if err != nil {
		return halflife.TrainResult{}, halflife.Prediction{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	res := e.model.Train(features, obs)
	if !res.Rejected {
		e.dirty.Store(true)
	}
	return res, e.model.Predict(features, obs.DeltaDays), nil
}

// LoadWeights replaces the weights of scope. Feature counts are kept.
func (r *Registry) LoadWeights(ctx context.Context, scope string, weights map[string]float64) error {
	e, err := r.get(ctx, normalizeScope(scope))
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	e.model.LoadWeights(weights)
	e.dirty.Store(true)
	return nil
}

// State returns copies of the weights and feature counts of scope.
func (r *Registry) State(ctx context.Context, scope string) (map[string]float64, map[string]int, error) {
	e, err := r.get(ctx, normalizeScope(scope))
	if err != nil {
		return nil, nil, err
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.model.Weights(), e.model.FeatureCounts(), nil
}

// Checkpoint snapshots scope.
func (r *Registry) Checkpoint(ctx context.Context, scope string) (*model.Checkpoint, error) {
	scope = normalizeScope(scope)
	e, err := r.get(ctx, scope)
	if err != nil {
		return nil, err
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.model.Checkpoint(scope), nil
}

// Scopes returns the scopes currently held in memory, sorted.
func (r *Registry) Scopes() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	scopes := make([]string, 0, len(r.entries))
	for scope := range r.entries {
		scopes = append(scopes, scope)
	}
	sort.Strings(scopes)
	return scopes
}

// Flush checkpoints every dirty scope and returns how many were written.
// Scopes that fail to save stay dirty; the first error is returned after
// all scopes have been tried.
func (r *Registry) Flush(ctx context.Context) (int, error) {
	if r.persist == nil {
		return 0, nil
	}

	start := time.Now()
	r.mu.Lock()
	pending := make(map[string]*entry, len(r.entries))
	for scope, e := range r.entries {
		if e.dirty.Load() {
			pending[scope] = e
		}
	}
	r.mu.Unlock()

	var (
		written  int
		firstErr error
	)
	for scope, e := range pending {
		saved, err := r.save(ctx, scope, e)
		if err != nil {
			r.logger.Error("checkpoint failed",
				log.OperationKey, log.OperationCheckpoint,
				log.ScopeKey, scope,
				log.ErrorKey, err.Error(),
			)
			if firstErr == nil {
				firstErr = errors.Wrapf(err, "checkpoint scope %q", scope)
			}
			continue
		}
		if saved {
			written++
		}
	}

	if written > 0 {
		r.logger.Info("checkpoints written",
			log.OperationKey, log.OperationCheckpoint,
			log.PhaseKey, log.PhasePersist,
			"scopes", written,
			log.DurationMsKey, time.Since(start).Milliseconds(),
		)
	}
	return written, firstErr
}

// save writes one scope if it is still dirty once its save lock is held.
// A concurrent Flush may already have stored it.
func (r *Registry) save(ctx context.Context, scope string, e *entry) (bool, error) {
	e.saveMu.Lock()
	defer e.saveMu.Unlock()

	// Cleared before the snapshot so an update racing with the save marks
	// the scope dirty again.
	if !e.dirty.Swap(false) {
		return false, nil
	}
	e.mu.RLock()
	cp := e.model.Checkpoint(scope)
	e.mu.RUnlock()

	if err := r.persist.Save(ctx, cp); err != nil {
		e.dirty.Store(true)
		return false, err
	}
	return true, nil
}

// Run flushes every interval until ctx is done, then flushes once more with
// a context that is no longer cancelled. A non-positive interval only
// flushes on exit.
func (r *Registry) Run(ctx context.Context, interval time.Duration) error {
	var tick <-chan time.Time
	if interval > 0 {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			_, err := r.Flush(context.WithoutCancel(ctx))
			return err
		case <-tick:
			// errors are logged by Flush and retried on the next tick
			_, _ = r.Flush(ctx)
		}
	}
}
