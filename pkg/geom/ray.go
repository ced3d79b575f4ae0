package geom

import "math"

// Ray is a half-line with a normalized direction.
type Ray struct {
	Origin    Vec3
	Direction Vec3
}

// ScreenToRay converts a surface pixel into a room-space ray.
// invViewProj is the inverse of the view-projection matrix.
func (vp Viewport) ScreenToRay(screenX, screenY float32, invViewProj Mat4) Ray {
	ndcX := 2.0*screenX/vp.Width - 1.0
	ndcY := 1.0 - 2.0*screenY/vp.Height // Flip Y

	nearWorld := invViewProj.MulVec4(Vec4{ndcX, ndcY, -1.0, 1.0})
	farWorld := invViewProj.MulVec4(Vec4{ndcX, ndcY, 1.0, 1.0})

	near := perspectiveDivide(nearWorld)
	far := perspectiveDivide(farWorld)

	return Ray{Origin: near, Direction: far.Sub(near).Normalize()}
}

func perspectiveDivide(v Vec4) Vec3 {
	if v[3] != 0 {
		return Vec3{v[0] / v[3], v[1] / v[3], v[2] / v[3]}
	}
	return Vec3{v[0], v[1], v[2]}
}

// IntersectPlaneY intersects the ray with a horizontal plane at height y.
func (r Ray) IntersectPlaneY(y float32) (Vec3, bool) {
	if math.Abs(float64(r.Direction.Y)) < 1e-6 {
		return Vec3{}, false // Parallel
	}
	t := (y - r.Origin.Y) / r.Direction.Y
	if t < 0 {
		return Vec3{}, false // Behind origin
	}
	return r.Origin.Add(r.Direction.Scale(t)), true
}

// IntersectBox runs the slab test against b. It returns the entry distance,
// or the exit distance when the ray starts inside the box.
func (r Ray) IntersectBox(b Box) (float32, bool) {
	tmin := float32(-math.MaxFloat32)
	tmax := float32(math.MaxFloat32)

	origin := r.Origin.Array()
	dir := r.Direction.Array()
	lo := b.Min.Array()
	hi := b.Max.Array()

	for axis := 0; axis < 3; axis++ {
		if dir[axis] == 0 {
			if origin[axis] < lo[axis] || origin[axis] > hi[axis] {
				return 0, false
			}
			continue
		}
		t1 := (lo[axis] - origin[axis]) / dir[axis]
		t2 := (hi[axis] - origin[axis]) / dir[axis]
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		tmin = max(tmin, t1)
		tmax = min(tmax, t2)
	}

	if tmax < tmin || tmax < 0 {
		return 0, false
	}
	if tmin < 0 {
		return tmax, true
	}
	return tmin, true
}

// Inverse returns the inverse of the matrix, or identity if it is singular.
func (m Mat4) Inverse() Mat4 {
	var inv Mat4

	inv[0] = m[5]*m[10]*m[15] - m[5]*m[11]*m[14] - m[9]*m[6]*m[15] + m[9]*m[7]*m[14] + m[13]*m[6]*m[11] - m[13]*m[7]*m[10]
	inv[1] = -m[1]*m[10]*m[15] + m[1]*m[11]*m[14] + m[9]*m[2]*m[15] - m[9]*m[3]*m[14] - m[13]*m[2]*m[11] + m[13]*m[3]*m[10]
	inv[2] = m[1]*m[6]*m[15] - m[1]*m[7]*m[14] - m[5]*m[2]*m[15] + m[5]*m[3]*m[14] + m[13]*m[2]*m[7] - m[13]*m[3]*m[6]
	inv[3] = -m[1]*m[6]*m[11] + m[1]*m[7]*m[10] + m[5]*m[2]*m[11] - m[5]*m[3]*m[10] - m[9]*m[2]*m[7] + m[9]*m[3]*m[6]

	inv[4] = -m[4]*m[10]*m[15] + m[4]*m[11]*m[14] + m[8]*m[6]*m[15] - m[8]*m[7]*m[14] - m[12]*m[6]*m[11] + m[12]*m[7]*m[10]
	inv[5] = m[0]*m[10]*m[15] - m[0]*m[11]*m[14] - m[8]*m[2]*m[15] + m[8]*m[3]*m[14] + m[12]*m[2]*m[11] - m[12]*m[3]*m[10]
	inv[6] = -m[0]*m[6]*m[15] + m[0]*m[7]*m[14] + m[4]*m[2]*m[15] - m[4]*m[3]*m[14] - m[12]*m[2]*m[7] + m[12]*m[3]*m[6]
	inv[7] = m[0]*m[6]*m[11] - m[0]*m[7]*m[10] - m[4]*m[2]*m[11] + m[4]*m[3]*m[10] + m[8]*m[2]*m[7] - m[8]*m[3]*m[6]

	inv[8] = m[4]*m[9]*m[15] - m[4]*m[11]*m[13] - m[8]*m[5]*m[15] + m[8]*m[7]*m[13] + m[12]*m[5]*m[11] - m[12]*m[7]*m[9]
	inv[9] = -m[0]*m[9]*m[15] + m[0]*m[11]*m[13] + m[8]*m[1]*m[15] - m[8]*m[3]*m[13] - m[12]*m[1]*m[11] + m[12]*m[3]*m[9]
	inv[10] = m[0]*m[5]*m[15] - m[0]*m[7]*m[13] - m[4]*m[1]*m[15] + m[4]*m[3]*m[13] + m[12]*m[1]*m[7] - m[12]*m[3]*m[5]
	inv[11] = -m[0]*m[5]*m[11] + m[0]*m[7]*m[9] + m[4]*m[1]*m[11] - m[4]*m[3]*m[9] - m[8]*m[1]*m[7] + m[8]*m[3]*m[5]

	inv[12] = -m[4]*m[9]*m[14] + m[4]*m[10]*m[13] + m[8]*m[5]*m[14] - m[8]*m[6]*m[13] - m[12]*m[5]*m[10] + m[12]*m[6]*m[9]
	inv[13] = m[0]*m[9]*m[14] - m[0]*m[10]*m[13] - m[8]*m[1]*m[14] + m[8]*m[2]*m[13] + m[12]*m[1]*m[10] - m[12]*m[2]*m[9]
	inv[14] = -m[0]*m[5]*m[14] + m[0]*m[6]*m[13] + m[4]*m[1]*m[14] - m[4]*m[2]*m[13] - m[12]*m[1]*m[6] + m[12]*m[2]*m[5]
	inv[15] = m[0]*m[5]*m[10] - m[0]*m[6]*m[9] - m[4]*m[1]*m[10] + m[4]*m[2]*m[9] + m[8]*m[1]*m[6] - m[8]*m[2]*m[5]

	det := m[0]*inv[0] + m[4]*inv[1] + m[8]*inv[2] + m[12]*inv[3]
	if det == 0 {
		return Identity()
	}

	invDet := 1.0 / det
	for i := range inv {
		inv[i] *= invDet
	}
	return inv
}
