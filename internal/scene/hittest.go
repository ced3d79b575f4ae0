package scene

import (
	"math"

	"github.com/Faultbox/scape/pkg/geom"
)

// Default hit radii in surface pixels. Participants get the larger target.
const (
	DefaultDeviceRadius      float32 = 12
	DefaultParticipantRadius float32 = 20
)

// Radii maps an entity kind to its hit radius.
type Radii map[Kind]float32

// DefaultRadii returns the stock device and participant radii.
func DefaultRadii() Radii {
	return Radii{
		KindDevice:      DefaultDeviceRadius,
		KindParticipant: DefaultParticipantRadius,
	}
}

// Radius returns the radius for kind, falling back to the device radius for
// kinds without an entry.
func (r Radii) Radius(kind Kind) float32 {
	if v, ok := r[kind]; ok {
		return v
	}
	if v, ok := r[KindDevice]; ok {
		return v
	}
	return DefaultDeviceRadius
}

// HitTest projects every entity through proj and picks the one nearest the
// pointer. The nearest candidate wins only if it lies within its kind's
// radius; a farther entity is never chosen instead. Equal distances prefer
// a candidate inside its radius, then the smaller key. Entities that do not
// project to a finite point are ignored.
func HitTest(x, y float32, entities []Entity, proj Projector, radii Radii) (Entity, bool) {
	pointer := geom.Vec2{X: x, Y: y}

	var (
		best     Entity
		bestDist = float32(math.Inf(1))
		bestIn   bool
		found    bool
	)
	for _, e := range entities {
		p, ok := proj.ProjectPoint(e.Position)
		if !ok || !p.IsFinite() {
			continue
		}
		d := pointer.Distance(p)
		if math.IsNaN(float64(d)) {
			continue
		}
		in := d <= radii.Radius(e.Kind)

		better := !found || d < bestDist
		if !better && d == bestDist {
			better = (in && !bestIn) || (in == bestIn && e.Key().Less(best.Key()))
		}
		if better {
			best, bestDist, bestIn, found = e, d, in, true
		}
	}

	if !found || !bestIn {
		return Entity{}, false
	}
	return best, true
}
