package scene

import (
	"math"

	"github.com/Faultbox/scape/pkg/geom"
)

// OrbitCamera looks at a center point from a pitch/yaw/distance offset.
type OrbitCamera struct {
	Center geom.Vec3

	Distance float32
	Pitch    float32 // Vertical angle above the floor (radians)
	Yaw      float32 // Horizontal angle around y (radians)

	FovY float32 // Vertical field of view (radians)
	Near float32
	Far  float32
}

// NewOrbitCamera creates a camera looking down at the origin at ~35 degrees.
func NewOrbitCamera(fovY float32) *OrbitCamera {
	return &OrbitCamera{
		Distance: 10,
		Pitch:    0.6,
		FovY:     fovY,
		Near:     0.05,
		Far:      500,
	}
}

// Position returns the eye position in room space.
func (c *OrbitCamera) Position() geom.Vec3 {
	cp, sp := math.Cos(float64(c.Pitch)), math.Sin(float64(c.Pitch))
	cy, sy := math.Cos(float64(c.Yaw)), math.Sin(float64(c.Yaw))
	return c.Center.Add(geom.Vec3{
		X: c.Distance * float32(cp*sy),
		Y: c.Distance * float32(sp),
		Z: c.Distance * float32(cp*cy),
	})
}

// ViewMatrix returns the view matrix for this camera.
func (c *OrbitCamera) ViewMatrix() geom.Mat4 {
	return geom.LookAt(c.Position(), c.Center, geom.Vec3{Y: 1})
}

// ViewProjection returns projection * view for the given aspect ratio.
func (c *OrbitCamera) ViewProjection(aspect float32) geom.Mat4 {
	return geom.Perspective(c.FovY, aspect, c.Near, c.Far).Mul(c.ViewMatrix())
}

// FitToBox centers the camera on box and backs off far enough for its
// bounding sphere to fill the vertical field of view. An empty box leaves
// the camera unchanged.
func (c *OrbitCamera) FitToBox(box geom.Box) {
	if box.Empty() {
		return
	}
	c.Center = box.Center()

	radius := box.Size().Length() / 2
	if radius == 0 {
		radius = 1
	}
	c.Distance = radius / float32(math.Sin(float64(c.FovY)/2))
	c.Near = c.Distance / 100
	c.Far = c.Distance + radius*4
}
