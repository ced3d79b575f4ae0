package scene

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/scape/pkg/geom"
)

// recordingSurface counts calls and can be told to fail creation.
type recordingSurface struct {
	TopDownProjection
	creates, updates, destroys int
	failCreate                 map[Key]bool
	live                       map[*int]Key
}

func newRecordingSurface() *recordingSurface {
	return &recordingSurface{
		TopDownProjection: TopDownProjection{Scale: 1},
		failCreate:        map[Key]bool{},
		live:              map[*int]Key{},
	}
}

func (s *recordingSurface) CreateMarker(e Entity) (Marker, error) {
	if s.failCreate[e.Key()] {
		return nil, errors.New("backend busy")
	}
	s.creates++
	m := new(int)
	s.live[m] = e.Key()
	return m, nil
}

func (s *recordingSurface) UpdateMarker(m Marker, e Entity) error {
	s.updates++
	return nil
}

func (s *recordingSurface) DestroyMarker(m Marker) {
	s.destroys++
	delete(s.live, m.(*int))
}

func device(id string, x, z float32) Entity {
	return Entity{ID: id, Kind: KindDevice, Position: geom.Vec3{X: x, Z: z}}
}

func participant(id string, x, z float32) Entity {
	return Entity{ID: id, Kind: KindParticipant, Position: geom.Vec3{X: x, Z: z}}
}

func TestReconcile_Idempotent(t *testing.T) {
	s := newRecordingSurface()
	r := NewRegistry(s, nil)
	list := []Entity{device("a", 1, 1), participant("b", 2, 2)}

	first := r.Reconcile(list)
	assert.Len(t, first.Created, 2)

	second := r.Reconcile(list)
	assert.False(t, second.Changed(), "second pass should be a no-op: %+v", second)
	assert.Equal(t, 2, s.creates)
	assert.Equal(t, 0, s.destroys)
	assert.Equal(t, 0, s.updates)
}

func TestReconcile_AppearDisappearPreservesIdentity(t *testing.T) {
	s := newRecordingSurface()
	r := NewRegistry(s, nil)

	deviceA := device("A", 0, 0)
	r.Reconcile([]Entity{deviceA, participant("B", 1, 1)})

	hA, ok := r.Handle(deviceA.Key())
	require.True(t, ok)
	markerA := hA.Marker()

	diff := r.Reconcile([]Entity{deviceA, participant("C", 2, 2)})

	assert.Equal(t, []Key{{KindParticipant, "C"}}, diff.Created)
	assert.Equal(t, []Key{{KindParticipant, "B"}}, diff.Destroyed)
	assert.Empty(t, diff.Updated)

	hA2, ok := r.Handle(deviceA.Key())
	require.True(t, ok)
	assert.Same(t, hA, hA2, "deviceA handle must survive the cycle")
	assert.Equal(t, markerA, hA2.Marker())

	_, ok = r.Handle(Key{KindParticipant, "B"})
	assert.False(t, ok)
	assert.Equal(t, 2, r.Len())
	assert.Len(t, s.live, 2)
}

func TestReconcile_UpdatesInPlace(t *testing.T) {
	g := NewGraph(TopDownProjection{Scale: 1})
	r := NewRegistry(g, nil)

	r.Reconcile([]Entity{device("lock", 1, 1)})
	before, _ := r.Handle(Key{KindDevice, "lock"})

	moved := device("lock", 5, 5)
	moved.Status = "alert"
	diff := r.Reconcile([]Entity{moved})

	assert.Equal(t, []Key{{KindDevice, "lock"}}, diff.Updated)
	assert.Empty(t, diff.Created)
	assert.Empty(t, diff.Destroyed)

	after, _ := r.Handle(Key{KindDevice, "lock"})
	assert.Same(t, before, after)
	assert.Equal(t, moved, after.Entity())

	nodes := g.Nodes()
	require.Len(t, nodes, 1)
	assert.Equal(t, geom.Vec3{X: 5, Z: 5}, nodes[0].Position)
	assert.Equal(t, ColorAlert, nodes[0].Color)
	assert.Equal(t, 1, nodes[0].Updates)
	assert.Equal(t, GraphStats{Created: 1, Updated: 1}, g.Stats())
}

func TestReconcile_SameIDDifferentKinds(t *testing.T) {
	s := newRecordingSurface()
	r := NewRegistry(s, nil)

	diff := r.Reconcile([]Entity{device("7", 0, 0), participant("7", 0, 0)})
	assert.Len(t, diff.Created, 2)
	assert.Equal(t, 2, r.Len())
}

func TestReconcile_DropsBadAndDuplicateEntities(t *testing.T) {
	s := newRecordingSurface()
	r := NewRegistry(s, nil)

	diff := r.Reconcile([]Entity{
		device("a", 1, 1),
		device("a", 9, 9), // duplicate key, first wins
		{Kind: KindDevice},
		{ID: "orphan"},
	})

	assert.Equal(t, 3, diff.Dropped)
	assert.Len(t, diff.Created, 1)
	h, ok := r.Handle(Key{KindDevice, "a"})
	require.True(t, ok)
	assert.Equal(t, float32(1), h.Entity().Position.X)
}

func TestReconcile_CreateFailureRetried(t *testing.T) {
	s := newRecordingSurface()
	r := NewRegistry(s, nil)
	k := Key{KindParticipant, "p1"}
	s.failCreate[k] = true

	diff := r.Reconcile([]Entity{participant("p1", 0, 0)})
	assert.Empty(t, diff.Created)
	assert.Equal(t, 0, r.Len())

	s.failCreate[k] = false
	diff = r.Reconcile([]Entity{participant("p1", 0, 0)})
	assert.Equal(t, []Key{k}, diff.Created)
	assert.Equal(t, 1, r.Len())
}

func TestReconcile_Clear(t *testing.T) {
	g := NewGraph(TopDownProjection{Scale: 1})
	r := NewRegistry(g, nil)
	r.Reconcile([]Entity{device("a", 0, 0), participant("b", 0, 0)})

	r.Clear()
	assert.Equal(t, 0, r.Len())
	assert.Empty(t, g.Nodes())
	assert.Equal(t, 2, g.Stats().Destroyed)
}

func TestReconcileFunc_Pure(t *testing.T) {
	s := newRecordingSurface()

	handles, diff := Reconcile(s, []Entity{device("a", 0, 0)}, nil, nil)
	assert.Len(t, diff.Created, 1)

	handles, diff = Reconcile(s, []Entity{device("a", 0, 0)}, handles, nil)
	assert.False(t, diff.Changed())
	assert.Len(t, handles, 1)

	handles, diff = Reconcile(s, nil, handles, nil)
	assert.Equal(t, []Key{{KindDevice, "a"}}, diff.Destroyed)
	assert.Empty(t, handles)
}

func TestRegistry_Entities(t *testing.T) {
	r := NewRegistry(newRecordingSurface(), nil)
	r.Reconcile([]Entity{participant("b", 0, 0), device("z", 0, 0), device("c", 0, 0)})

	var keys []Key
	for _, e := range r.Entities() {
		keys = append(keys, e.Key())
	}
	assert.Equal(t, []Key{
		{KindDevice, "c"},
		{KindDevice, "z"},
		{KindParticipant, "b"},
	}, keys)
}
