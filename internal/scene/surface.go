package scene

import "github.com/Faultbox/scape/pkg/geom"

// Projector maps room-space points to surface pixels. ok is false when the
// point is not visible (for example behind a perspective camera).
type Projector interface {
	ProjectPoint(p geom.Vec3) (px geom.Vec2, ok bool)
}

// Marker is a rendering backend's object for one entity. The registry never
// looks inside it.
type Marker any

// Surface is the rendering capability the registry drives: a 2D canvas, a 3D
// scene graph, or the in-memory Graph.
type Surface interface {
	Projector

	// CreateMarker adds a visual for e and returns the backend object.
	CreateMarker(e Entity) (Marker, error)
	// UpdateMarker restyles an existing marker in place.
	UpdateMarker(m Marker, e Entity) error
	// DestroyMarker removes the marker from the surface.
	DestroyMarker(m Marker)
}
