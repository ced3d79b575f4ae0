package poller

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Faultbox/scape/internal/scene"
)

// Fetcher returns the authoritative list for one entity kind.
type Fetcher interface {
	FetchEntities(ctx context.Context, kind scene.Kind, decode func([]byte, scene.Kind) ([]scene.Entity, error)) ([]scene.Entity, error)
}

// Stats describes the polling history.
type Stats struct {
	Cycles      int
	Failures    int
	LastSuccess time.Time
	LastError   error
}

// Poller fetches every kind once per interval and reconciles the combined
// list into a registry. A cycle in which any fetch fails leaves the scene
// untouched.
type Poller struct {
	fetcher  Fetcher
	registry *scene.Registry
	interval time.Duration
	kinds    []scene.Kind
	log      *zap.Logger

	mu       sync.Mutex
	stats    Stats
	onChange func(scene.Diff)
}

// New creates a poller for devices and participants.
func New(f Fetcher, r *scene.Registry, interval time.Duration, log *zap.Logger) *Poller {
	if log == nil {
		log = zap.NewNop()
	}
	return &Poller{
		fetcher:  f,
		registry: r,
		interval: interval,
		kinds:    []scene.Kind{scene.KindDevice, scene.KindParticipant},
		log:      log,
	}
}

// OnChange registers a callback fired after a cycle that changed the scene.
func (p *Poller) OnChange(fn func(scene.Diff)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onChange = fn
}

// Stats returns a snapshot of the polling history.
func (p *Poller) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats
}

// Run polls immediately and then on every tick until ctx is done. Fetch
// failures are logged and retried on the next tick; Run only returns when
// ctx ends.
func (p *Poller) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		if _, err := p.Poll(ctx); err != nil && ctx.Err() == nil {
			p.log.Warn("poll failed, keeping previous scene", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Poll runs a single fetch and reconcile cycle.
func (p *Poller) Poll(ctx context.Context) (scene.Diff, error) {
	lists := make([][]scene.Entity, len(p.kinds))

	g, gctx := errgroup.WithContext(ctx)
	for i, kind := range p.kinds {
		g.Go(func() error {
			entities, err := p.fetcher.FetchEntities(gctx, kind, p.decode)
			if err != nil {
				return err
			}
			lists[i] = entities
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		p.record(err)
		return scene.Diff{}, err
	}

	var all []scene.Entity
	for _, l := range lists {
		all = append(all, l...)
	}
	diff := p.registry.Reconcile(all)
	p.record(nil)

	p.mu.Lock()
	fn := p.onChange
	p.mu.Unlock()
	if fn != nil && diff.Changed() {
		fn(diff)
	}
	return diff, nil
}

func (p *Poller) decode(data []byte, kind scene.Kind) ([]scene.Entity, error) {
	return scene.DecodeEntities(data, kind, p.log)
}

func (p *Poller) record(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stats.Cycles++
	if err != nil {
		p.stats.Failures++
		p.stats.LastError = err
		return
	}
	p.stats.LastSuccess = time.Now()
	p.stats.LastError = nil
}

// IsNotFound reports whether err is a 404 from the server.
func IsNotFound(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Status == 404
}
