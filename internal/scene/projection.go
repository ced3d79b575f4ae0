package scene

import "github.com/Faultbox/scape/pkg/geom"

// PerspectiveProjection projects through a fixed 3D camera.
type PerspectiveProjection struct {
	viewport geom.Viewport
	viewProj geom.Mat4
	inverse  geom.Mat4
}

// NewPerspectiveProjection snapshots the camera for the given viewport.
func NewPerspectiveProjection(cam *OrbitCamera, vp geom.Viewport) *PerspectiveProjection {
	vpm := cam.ViewProjection(vp.Width / vp.Height)
	return &PerspectiveProjection{
		viewport: vp,
		viewProj: vpm,
		inverse:  vpm.Inverse(),
	}
}

// ProjectPoint implements Projector.
func (p *PerspectiveProjection) ProjectPoint(v geom.Vec3) (geom.Vec2, bool) {
	return p.viewport.Project(p.viewProj, v)
}

// FloorPoint casts a ray through a surface pixel onto the horizontal plane
// at height floorY.
func (p *PerspectiveProjection) FloorPoint(x, y, floorY float32) (geom.Vec3, bool) {
	return p.viewport.ScreenToRay(x, y, p.inverse).IntersectPlaneY(floorY)
}

// RoomPoint is FloorPoint on the room's floor, limited to pixels whose ray
// enters the room box and lands inside its footprint.
func (p *PerspectiveProjection) RoomPoint(x, y float32, room geom.Box) (geom.Vec3, bool) {
	if _, ok := p.viewport.ScreenToRay(x, y, p.inverse).IntersectBox(room); !ok {
		return geom.Vec3{}, false
	}
	hit, ok := p.FloorPoint(x, y, room.Min.Y)
	if !ok || hit.X < room.Min.X || hit.X > room.Max.X || hit.Z < room.Min.Z || hit.Z > room.Max.Z {
		return geom.Vec3{}, false
	}
	hit.Y = room.Min.Y
	return hit, true
}

// TopDownProjection is the 2D floor-plan view: room x maps to surface x and
// room z to surface y. Height is ignored.
type TopDownProjection struct {
	Scale   float32 // Pixels per room unit
	OffsetX float32
	OffsetY float32
}

// FitTopDown scales and centers the floor footprint of box inside vp,
// leaving margin pixels on every side.
func FitTopDown(box geom.Box, vp geom.Viewport, margin float32) TopDownProjection {
	if box.Empty() {
		return TopDownProjection{Scale: 1, OffsetX: vp.Width / 2, OffsetY: vp.Height / 2}
	}
	size := box.Size()
	availW := max(vp.Width-2*margin, 1)
	availH := max(vp.Height-2*margin, 1)

	scale := float32(1)
	if size.X > 0 || size.Z > 0 {
		scale = min(availW/max(size.X, 1e-6), availH/max(size.Z, 1e-6))
	}
	center := box.Center()
	return TopDownProjection{
		Scale:   scale,
		OffsetX: vp.Width/2 - center.X*scale,
		OffsetY: vp.Height/2 - center.Z*scale,
	}
}

// ProjectPoint implements Projector.
func (p TopDownProjection) ProjectPoint(v geom.Vec3) (geom.Vec2, bool) {
	return geom.Vec2{
		X: v.X*p.Scale + p.OffsetX,
		Y: v.Z*p.Scale + p.OffsetY,
	}, true
}

// Unproject maps a surface pixel back to the floor plane (y = 0).
func (p TopDownProjection) Unproject(x, y float32) geom.Vec3 {
	if p.Scale == 0 {
		return geom.Vec3{}
	}
	return geom.Vec3{X: (x - p.OffsetX) / p.Scale, Z: (y - p.OffsetY) / p.Scale}
}
