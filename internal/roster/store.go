// Package roster is the server-side registry of devices and participants
// that backs the REST lists.
package roster

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/Faultbox/scape/internal/config"
	"github.com/Faultbox/scape/internal/scene"
	"github.com/Faultbox/scape/pkg/geom"
)

// ErrInvalid wraps rejected entries.
var ErrInvalid = errors.New("invalid roster entry")

// Snapshot is the full roster at one version.
type Snapshot struct {
	Version      uint64         `json:"version"`
	Devices      []scene.Entity `json:"devices"`
	Participants []scene.Entity `json:"participants"`
}

// Store is a concurrency-safe map of entities keyed by (kind, id).
// Subscribers receive the latest snapshot after every change; a slow
// subscriber skips intermediate versions.
type Store struct {
	mu      sync.RWMutex
	entries map[scene.Key]scene.Entity
	version uint64

	subMu  sync.Mutex
	subs   map[int]*subscriber
	nextID int
}

type subscriber struct {
	ch   chan Snapshot
	last uint64 // Newest version handed to ch
}

// New creates an empty store.
func New() *Store {
	return &Store{
		entries: make(map[scene.Key]scene.Entity),
		subs:    make(map[int]*subscriber),
	}
}

// Seed loads the configured entries.
func (s *Store) Seed(seed []config.SeedEntity) error {
	for i, se := range seed {
		e := scene.Entity{
			ID:       se.ID,
			Kind:     scene.Kind(se.Kind),
			Name:     se.Name,
			Status:   se.Status,
			Position: geom.Vec3{X: se.Position[0], Y: se.Position[1], Z: se.Position[2]},
		}
		if _, err := s.Upsert(e); err != nil {
			return fmt.Errorf("seed[%d]: %w", i, err)
		}
	}
	return nil
}

// Upsert inserts or replaces e and reports whether it was new.
func (s *Store) Upsert(e scene.Entity) (bool, error) {
	if err := e.Validate(); err != nil {
		return false, fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	s.mu.Lock()
	old, exists := s.entries[e.Key()]
	if exists && old == e {
		s.mu.Unlock()
		return false, nil
	}
	s.entries[e.Key()] = e
	s.version++
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.publish(snap)
	return !exists, nil
}

// Remove deletes the entry for k and reports whether it existed.
func (s *Store) Remove(k scene.Key) bool {
	s.mu.Lock()
	if _, ok := s.entries[k]; !ok {
		s.mu.Unlock()
		return false
	}
	delete(s.entries, k)
	s.version++
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.publish(snap)
	return true
}

// Get returns the entry for k.
func (s *Store) Get(k scene.Key) (scene.Entity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[k]
	return e, ok
}

// List returns every entry of kind ordered by id.
func (s *Store) List(kind scene.Kind) []scene.Entity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listLocked(kind)
}

// Snapshot returns the current roster.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *Store) listLocked(kind scene.Kind) []scene.Entity {
	out := make([]scene.Entity, 0)
	for k, e := range s.entries {
		if k.Kind == kind {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *Store) snapshotLocked() Snapshot {
	return Snapshot{
		Version:      s.version,
		Devices:      s.listLocked(scene.KindDevice),
		Participants: s.listLocked(scene.KindParticipant),
	}
}

// Subscribe returns a channel that receives the current snapshot and then
// every later one. cancel closes the channel.
func (s *Store) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 1)

	s.subMu.Lock()
	id := s.nextID
	s.nextID++
	snap := s.Snapshot()
	ch <- snap
	s.subs[id] = &subscriber{ch: ch, last: snap.Version}
	s.subMu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.subMu.Lock()
			delete(s.subs, id)
			close(ch)
			s.subMu.Unlock()
		})
	}
	return ch, cancel
}

// Subscribers returns the number of live subscriptions.
func (s *Store) Subscribers() int {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	return len(s.subs)
}

func (s *Store) publish(snap Snapshot) {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	for _, sub := range s.subs {
		if snap.Version <= sub.last {
			continue
		}
		// Replace a pending, unread snapshot with the newer one.
		select {
		case <-sub.ch:
		default:
		}
		sub.ch <- snap
		sub.last = snap.Version
	}
}
