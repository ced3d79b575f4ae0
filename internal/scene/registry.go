package scene

import (
	"sort"
	"sync"

	"go.uber.org/zap"
)

// Handle is the registry's owned reference to a created marker. Its identity
// is stable for as long as the entity stays in the authoritative list.
type Handle struct {
	key    Key
	entity Entity
	marker Marker
}

// Key returns the handle's entity key.
func (h *Handle) Key() Key { return h.key }

// Entity returns the entity state last applied to the marker.
func (h *Handle) Entity() Entity { return h.entity }

// Marker returns the backend object.
func (h *Handle) Marker() Marker { return h.marker }

// Diff lists what one reconciliation did, each slice sorted by key.
type Diff struct {
	Created   []Key
	Updated   []Key
	Destroyed []Key
	Dropped   int // Invalid or duplicate records ignored
}

// Changed reports whether any marker was created, updated or destroyed.
func (d Diff) Changed() bool {
	return len(d.Created)+len(d.Updated)+len(d.Destroyed) > 0
}

// Reconcile brings the markers on s in line with current and returns the new
// handle set. Entities present in previous keep their handle and are updated
// in place only when their state changed; new entities get a marker; handles
// whose key is absent from current are destroyed. previous must not be used
// after the call.
func Reconcile(s Surface, current []Entity, previous map[Key]*Handle, log *zap.Logger) (map[Key]*Handle, Diff) {
	if log == nil {
		log = zap.NewNop()
	}

	var diff Diff
	next := make(map[Key]*Handle, len(current))

	for _, e := range current {
		if err := e.Validate(); err != nil {
			log.Warn("dropping entity", zap.String("key", e.Key().String()), zap.Error(err))
			diff.Dropped++
			continue
		}
		k := e.Key()
		if _, dup := next[k]; dup {
			log.Warn("dropping duplicate entity", zap.String("key", k.String()))
			diff.Dropped++
			continue
		}

		if h, ok := previous[k]; ok {
			next[k] = h
			if h.entity == e {
				continue
			}
			if err := s.UpdateMarker(h.marker, e); err != nil {
				// Keep the old state so the next cycle retries.
				log.Warn("updating marker", zap.String("key", k.String()), zap.Error(err))
				continue
			}
			h.entity = e
			diff.Updated = append(diff.Updated, k)
			continue
		}

		m, err := s.CreateMarker(e)
		if err != nil {
			log.Warn("creating marker", zap.String("key", k.String()), zap.Error(err))
			continue
		}
		next[k] = &Handle{key: k, entity: e, marker: m}
		diff.Created = append(diff.Created, k)
	}

	for k, h := range previous {
		if _, ok := next[k]; ok {
			continue
		}
		s.DestroyMarker(h.marker)
		diff.Destroyed = append(diff.Destroyed, k)
	}

	sortKeys(diff.Created)
	sortKeys(diff.Updated)
	sortKeys(diff.Destroyed)
	return next, diff
}

func sortKeys(keys []Key) {
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })
}

// Registry owns the handle set for one surface. A single mutex covers
// reconcile and hit-testing, so a hit test never sees a half-applied cycle.
type Registry struct {
	mu      sync.Mutex
	surface Surface
	handles map[Key]*Handle
	radii   Radii
	onClick func(Entity)
	log     *zap.Logger
}

// NewRegistry creates an empty registry drawing on s.
func NewRegistry(s Surface, log *zap.Logger) *Registry {
	if log == nil {
		log = zap.NewNop()
	}
	return &Registry{
		surface: s,
		handles: make(map[Key]*Handle),
		radii:   DefaultRadii(),
		log:     log,
	}
}

// SetRadii replaces the per-kind hit radii.
func (r *Registry) SetRadii(radii Radii) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.radii = radii
}

// OnClick registers the callback fired by Click when a hit resolves.
func (r *Registry) OnClick(fn func(Entity)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onClick = fn
}

// Reconcile applies the latest authoritative entity list.
func (r *Registry) Reconcile(entities []Entity) Diff {
	r.mu.Lock()
	defer r.mu.Unlock()

	var diff Diff
	r.handles, diff = Reconcile(r.surface, entities, r.handles, r.log)

	if diff.Changed() || diff.Dropped > 0 {
		r.log.Debug("reconciled scene",
			zap.Int("created", len(diff.Created)),
			zap.Int("updated", len(diff.Updated)),
			zap.Int("destroyed", len(diff.Destroyed)),
			zap.Int("dropped", diff.Dropped),
			zap.Int("markers", len(r.handles)))
	}
	return diff
}

// Handle returns the live handle for k.
func (r *Registry) Handle(k Key) (*Handle, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.handles[k]
	return h, ok
}

// Len returns the number of live markers.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.handles)
}

// Entities returns the current entity states ordered by key.
func (r *Registry) Entities() []Entity {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.entitiesLocked()
}

func (r *Registry) entitiesLocked() []Entity {
	out := make([]Entity, 0, len(r.handles))
	for _, h := range r.handles {
		out = append(out, h.entity)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key().Less(out[j].Key()) })
	return out
}

// HitTest resolves a surface pixel to the entity under it.
func (r *Registry) HitTest(x, y float32) (Entity, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return HitTest(x, y, r.entitiesLocked(), r.surface, r.radii)
}

// Click hit-tests and, on a hit, fires the OnClick callback outside the
// registry lock.
func (r *Registry) Click(x, y float32) (Entity, bool) {
	r.mu.Lock()
	e, ok := HitTest(x, y, r.entitiesLocked(), r.surface, r.radii)
	fn := r.onClick
	r.mu.Unlock()

	if ok && fn != nil {
		fn(e)
	}
	return e, ok
}

// Clear destroys every marker.
func (r *Registry) Clear() {
	r.Reconcile(nil)
}
