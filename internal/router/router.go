// Package router composes the playlist returned to the display agent.
package router

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/koios/flipdot-renderer/internal/cache"
	"github.com/koios/flipdot-renderer/internal/render"
	"github.com/koios/flipdot-renderer/internal/source"
	"github.com/koios/flipdot-renderer/pkg/models"
	"go.uber.org/zap"
)

// ErrSourceNotFound is returned when unregistering an unknown source
var ErrSourceNotFound = errors.New("source not found")

// Options tunes playlist composition
type Options struct {
	// DefaultPollMS is the poll interval when no source expires sooner
	DefaultPollMS int
	// PollBufferMS is added to the time until the earliest expiry so the
	// agent polls just after a source drops out
	PollBufferMS int
}

// Router owns the registry and turns registered sources into playlists
type Router struct {
	registry *Registry
	cache    *cache.ContentCache
	pool     *render.Pool
	env      source.Env
	opts     Options
	logger   *zap.Logger
	now      func() time.Time
}

// New creates a router. pool may be nil, in which case sources are
// generated one after another on the calling goroutine.
func New(registry *Registry, contentCache *cache.ContentCache, pool *render.Pool, env source.Env, opts Options, logger *zap.Logger) *Router {
	if opts.DefaultPollMS < models.MinPollIntervalMS {
		opts.DefaultPollMS = models.MinPollIntervalMS
	}
	if opts.PollBufferMS < 0 {
		opts.PollBufferMS = 0
	}
	return &Router{
		registry: registry,
		cache:    contentCache,
		pool:     pool,
		env:      env,
		opts:     opts,
		logger:   logger,
		now:      time.Now,
	}
}

// Registry returns the router's source registry
func (r *Router) Registry() *Registry {
	return r.registry
}

// Env returns the rendering environment handed to sources
func (r *Router) Env() source.Env {
	return r.env
}

// Now is the router's clock
func (r *Router) Now() time.Time {
	return r.now()
}

// SetClock replaces the router's clock
func (r *Router) SetClock(now func() time.Time) {
	r.now = now
}

// Register validates and adds a source, dropping any content cached under
// its id
func (r *Router) Register(ctx context.Context, s *source.Source) error {
	if err := s.Validate(); err != nil {
		return err
	}
	if s.RegisteredAt.IsZero() {
		s.RegisteredAt = r.now()
	}
	r.registry.Add(s)
	r.cache.Invalidate(ctx, s.ID)

	r.logger.Info("Registered source",
		zap.String("source_id", s.ID),
		zap.String("type", string(s.Kind())),
		zap.Int("priority", s.Priority),
		zap.Int("ttl_ms", s.TTLMS))
	return nil
}

// Unregister removes a source and its cached content
func (r *Router) Unregister(ctx context.Context, id string) error {
	if !r.registry.Remove(id) {
		return fmt.Errorf("%w: %s", ErrSourceNotFound, id)
	}
	r.cache.Invalidate(ctx, id)
	r.logger.Info("Unregistered source", zap.String("source_id", id))
	return nil
}

// RemoveWhere unregisters every source matching fn
func (r *Router) RemoveWhere(ctx context.Context, fn func(*source.Source) bool) []string {
	removed := r.registry.RemoveWhere(fn)
	for _, id := range removed {
		r.cache.Invalidate(ctx, id)
	}
	if len(removed) > 0 {
		r.logger.Info("Unregistered sources", zap.Strings("source_ids", removed))
	}
	return removed
}

// Invalidate drops a source's cached content so the next poll regenerates it
func (r *Router) Invalidate(ctx context.Context, id string) {
	r.cache.Invalidate(ctx, id)
}

// Compose builds the poll response at the router's current time
func (r *Router) Compose(ctx context.Context) models.ContentResponse {
	return r.ComposeAt(ctx, r.now())
}

type pair struct {
	src     *source.Source
	content models.Content
}

// ComposeAt builds the poll response as of now:
//  1. evict sources whose expiry has passed
//  2. fetch every remaining source's content, cache first
//  3. drop sources whose generation failed
//  4. order by priority, highest first, keeping registration order on ties
//
// The poll interval is the time until the earliest expiry plus the buffer,
// capped at the default and never below one second.
func (r *Router) ComposeAt(ctx context.Context, now time.Time) models.ContentResponse {
	for _, id := range r.registry.EvictExpired(now) {
		r.cache.Invalidate(ctx, id)
		r.logger.Debug("Evicted expired source", zap.String("source_id", id))
	}

	snapshot := r.registry.Snapshot()
	results := r.fetchAll(ctx, snapshot, now)

	pairs := make([]pair, 0, len(snapshot))
	for i, s := range snapshot {
		res := results[i]
		switch {
		case errors.Is(res.Err, source.ErrInactive):
			inactive := s
			r.registry.RemoveWhere(func(x *source.Source) bool { return x == inactive })
			r.cache.Invalidate(ctx, s.ID)
			r.logger.Debug("Source became inactive", zap.String("source_id", s.ID))
		case res.Err != nil:
			r.logger.Warn("Source generation failed, skipping",
				zap.String("source_id", s.ID),
				zap.String("type", string(s.Kind())),
				zap.Error(res.Err))
		default:
			pairs = append(pairs, pair{src: s, content: res.Content})
		}
	}

	if len(pairs) == 0 {
		return models.ContentResponse{
			Status:         models.StatusClear,
			Playlist:       []models.Content{},
			PollIntervalMS: r.opts.DefaultPollMS,
		}
	}

	sort.SliceStable(pairs, func(i, j int) bool {
		return pairs[i].src.Priority > pairs[j].src.Priority
	})

	playlist := make([]models.Content, len(pairs))
	active := make([]*source.Source, len(pairs))
	for i, p := range pairs {
		playlist[i] = p.content
		active[i] = p.src
	}

	interval := r.pollInterval(active, now)
	r.logger.Debug("Composed playlist",
		zap.Int("items", len(playlist)),
		zap.Int("poll_interval_ms", interval))

	return models.ContentResponse{
		Status:         models.StatusUpdated,
		Playlist:       playlist,
		PollIntervalMS: interval,
	}
}

func (r *Router) pollInterval(active []*source.Source, now time.Time) int {
	interval := r.opts.DefaultPollMS
	for _, s := range active {
		if s.ExpiresAt == nil {
			continue
		}
		until := int(s.ExpiresAt.Sub(now)/time.Millisecond) + r.opts.PollBufferMS
		if until < interval {
			interval = until
		}
	}
	if interval < models.MinPollIntervalMS {
		interval = models.MinPollIntervalMS
	}
	return interval
}

func (r *Router) fetchAll(ctx context.Context, sources []*source.Source, now time.Time) []render.Result {
	jobs := make([]render.Job, len(sources))
	for i, s := range sources {
		s := s
		jobs[i] = func(ctx context.Context) (models.Content, error) {
			return r.content(ctx, s, now)
		}
	}

	if r.pool == nil {
		results := make([]render.Result, len(jobs))
		for i, job := range jobs {
			c, err := job(ctx)
			results[i] = render.Result{Content: c, Err: err}
		}
		return results
	}
	return r.pool.Run(ctx, jobs)
}

// content returns a source's content from the cache, generating and storing
// it on a miss. Inactive sources are reported before the cache is consulted.
func (r *Router) content(ctx context.Context, s *source.Source, now time.Time) (models.Content, error) {
	if err := s.Active(now); err != nil {
		return models.Content{}, err
	}
	if c, ok := r.cache.Get(ctx, s.ID, now); ok {
		return c, nil
	}
	c, err := s.Generate(ctx, r.env, now)
	if err != nil {
		return models.Content{}, err
	}
	r.cache.Set(ctx, s.ID, c, s.TTLMS, now)
	return c, nil
}
