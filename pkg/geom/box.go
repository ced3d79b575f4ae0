package geom

import "math"

// Box is an axis-aligned bounding box. The zero value is not empty; use
// EmptyBox to start an accumulation.
type Box struct {
	Min Vec3
	Max Vec3
}

// EmptyBox returns a box with inverted infinite extents, ready to be widened
// by Extend.
func EmptyBox() Box {
	inf := float32(math.Inf(1))
	return Box{
		Min: Vec3{inf, inf, inf},
		Max: Vec3{-inf, -inf, -inf},
	}
}

// Empty reports whether no point has been folded into the box.
func (b Box) Empty() bool {
	return b.Min.X > b.Max.X || b.Min.Y > b.Max.Y || b.Min.Z > b.Max.Z
}

// Extend widens the box to include p.
func (b *Box) Extend(p Vec3) {
	b.Min.X = min(b.Min.X, p.X)
	b.Min.Y = min(b.Min.Y, p.Y)
	b.Min.Z = min(b.Min.Z, p.Z)
	b.Max.X = max(b.Max.X, p.X)
	b.Max.Y = max(b.Max.Y, p.Y)
	b.Max.Z = max(b.Max.Z, p.Z)
}

// ExtendFlat widens the box by every x,y,z triple in a flat slice.
// A trailing partial triple is ignored.
func (b *Box) ExtendFlat(xyz []float32) {
	for i := 0; i+2 < len(xyz); i += 3 {
		b.Extend(Vec3{xyz[i], xyz[i+1], xyz[i+2]})
	}
}

// Contains reports whether p lies inside the box (inclusive).
func (b Box) Contains(p Vec3) bool {
	return p.X >= b.Min.X && p.X <= b.Max.X &&
		p.Y >= b.Min.Y && p.Y <= b.Max.Y &&
		p.Z >= b.Min.Z && p.Z <= b.Max.Z
}

// Center returns the midpoint. Undefined for an empty box.
func (b Box) Center() Vec3 {
	return b.Min.Add(b.Max).Scale(0.5)
}

// Size returns the extent along each axis. Undefined for an empty box.
func (b Box) Size() Vec3 {
	return b.Max.Sub(b.Min)
}
