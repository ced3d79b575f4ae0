package scene

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/Faultbox/scape/pkg/geom"
)

// Node is one marker in a Graph.
type Node struct {
	ID       uint64     `json:"id"`
	Kind     Kind       `json:"kind"`
	EntityID string     `json:"entityId"`
	Label    string     `json:"label"`
	Position geom.Vec3  `json:"position"`
	Color    [4]float32 `json:"color"`
	Updates  int        `json:"updates"` // In-place restyles since creation
}

// GraphStats counts surface calls.
type GraphStats struct {
	Created   int
	Updated   int
	Destroyed int
}

// Graph is a retained in-memory scene graph implementing Surface. It backs
// the headless viewer and can be serialized for a browser renderer.
type Graph struct {
	mu        sync.Mutex
	projector Projector
	nextID    uint64
	nodes     map[uint64]*Node
	stats     GraphStats
}

// NewGraph creates an empty graph that projects through p.
func NewGraph(p Projector) *Graph {
	return &Graph{
		projector: p,
		nodes:     make(map[uint64]*Node),
	}
}

// SetProjector swaps the projection, e.g. after the camera is refitted.
func (g *Graph) SetProjector(p Projector) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.projector = p
}

// ProjectPoint implements Projector.
func (g *Graph) ProjectPoint(v geom.Vec3) (geom.Vec2, bool) {
	g.mu.Lock()
	p := g.projector
	g.mu.Unlock()
	if p == nil {
		return geom.Vec2{}, false
	}
	return p.ProjectPoint(v)
}

// CreateMarker implements Surface.
func (g *Graph) CreateMarker(e Entity) (Marker, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.nextID++
	n := &Node{ID: g.nextID, Kind: e.Kind, EntityID: e.ID}
	style(n, e)
	g.nodes[n.ID] = n
	g.stats.Created++
	return n, nil
}

// UpdateMarker implements Surface.
func (g *Graph) UpdateMarker(m Marker, e Entity) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	n, ok := m.(*Node)
	if !ok || g.nodes[n.ID] != n {
		return fmt.Errorf("unknown marker %v", m)
	}
	style(n, e)
	n.Updates++
	g.stats.Updated++
	return nil
}

// DestroyMarker implements Surface.
func (g *Graph) DestroyMarker(m Marker) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if n, ok := m.(*Node); ok {
		if _, live := g.nodes[n.ID]; live {
			delete(g.nodes, n.ID)
			g.stats.Destroyed++
		}
	}
}

// Nodes returns copies of the live nodes ordered by kind and entity id.
func (g *Graph) Nodes() []Node {
	g.mu.Lock()
	defer g.mu.Unlock()

	out := make([]Node, 0, len(g.nodes))
	for _, n := range g.nodes {
		out = append(out, *n)
	}
	sort.Slice(out, func(i, j int) bool {
		return Key{out[i].Kind, out[i].EntityID}.Less(Key{out[j].Kind, out[j].EntityID})
	})
	return out
}

// Stats returns the cumulative surface call counts.
func (g *Graph) Stats() GraphStats {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.stats
}

func style(n *Node, e Entity) {
	n.Position = e.Position
	n.Label = e.Name
	if n.Label == "" {
		n.Label = e.Key().String()
	}
	n.Color = StatusColor(e.Kind, e.Status)
}

// Marker colors.
var (
	ColorDeviceOnline  = [4]float32{0.20, 0.80, 0.40, 1}
	ColorDeviceOffline = [4]float32{0.50, 0.50, 0.50, 1}
	ColorDeviceIdle    = [4]float32{0.25, 0.55, 0.95, 1}
	ColorParticipant   = [4]float32{0.95, 0.70, 0.20, 1}
	ColorAlert         = [4]float32{0.90, 0.15, 0.15, 1}
)

// StatusColor derives a marker color from kind and status.
func StatusColor(kind Kind, status string) [4]float32 {
	switch strings.ToLower(status) {
	case "alert", "error", "critical", "stressed":
		return ColorAlert
	}
	if kind == KindParticipant {
		return ColorParticipant
	}
	switch strings.ToLower(status) {
	case "online", "active", "connected":
		return ColorDeviceOnline
	case "offline", "disconnected":
		return ColorDeviceOffline
	default:
		return ColorDeviceIdle
	}
}
