package glb

import (
	"encoding/json"

	"github.com/Faultbox/scape/pkg/geom"
)

// MeshPrimitive is the geometry of one glTF primitive.
type MeshPrimitive struct {
	Name     string    `json:"name"`              // <meshName>_<meshIndex>_<primitiveIndex>
	Vertices []float32 `json:"vertices"`          // x, y, z per vertex
	Indices  []uint32  `json:"indices,omitempty"` // nil for non-indexed primitives
	Normals  []float32 `json:"normals"`           // x, y, z per vertex, or empty
	UVs      []float32 `json:"uvs"`               // u, v per vertex, or empty
}

// VertexCount returns the number of vertices.
func (m MeshPrimitive) VertexCount() int {
	return len(m.Vertices) / 3
}

// TriangleCount returns the number of triangles drawn by the primitive.
func (m MeshPrimitive) TriangleCount() int {
	if m.Indices != nil {
		return len(m.Indices) / 3
	}
	return m.VertexCount() / 3
}

// BoundingBox is the axis-aligned extent of every decoded vertex.
type BoundingBox struct {
	geom.Box
}

type boundingBoxJSON struct {
	Min *[3]float32 `json:"min"`
	Max *[3]float32 `json:"max"`
}

// MarshalJSON encodes min/max as [x, y, z], or null for an empty box whose
// infinite sentinels JSON cannot carry.
func (b BoundingBox) MarshalJSON() ([]byte, error) {
	var out boundingBoxJSON
	if !b.Empty() {
		lo, hi := b.Min.Array(), b.Max.Array()
		out.Min, out.Max = &lo, &hi
	}
	return json.Marshal(out)
}

// UnmarshalJSON is the inverse of MarshalJSON.
func (b *BoundingBox) UnmarshalJSON(data []byte) error {
	var in boundingBoxJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	if in.Min == nil || in.Max == nil {
		b.Box = geom.EmptyBox()
		return nil
	}
	b.Min = geom.Vec3{X: in.Min[0], Y: in.Min[1], Z: in.Min[2]}
	b.Max = geom.Vec3{X: in.Max[0], Y: in.Max[1], Z: in.Max[2]}
	return nil
}

// MaterialSummary holds the PBR scalars of a primitive's material.
type MaterialSummary struct {
	Name      string     `json:"name"`
	Mesh      string     `json:"mesh"` // MeshPrimitive.Name the material was declared on
	BaseColor [4]float32 `json:"baseColor"`
	Metallic  float32    `json:"metallic"`
	Roughness float32    `json:"roughness"`
}

// ProcessedGLB is the summary of one file.
type ProcessedGLB struct {
	Meshes      []MeshPrimitive   `json:"meshes"`
	BoundingBox BoundingBox       `json:"boundingBox"`
	Materials   []MaterialSummary `json:"materials"`

	// Warnings lists the primitives and attributes that were skipped.
	Warnings []PartialDataWarning `json:"-"`
}

// VertexCount returns the total vertex count across all meshes.
func (p *ProcessedGLB) VertexCount() int {
	n := 0
	for _, m := range p.Meshes {
		n += m.VertexCount()
	}
	return n
}

// TriangleCount returns the total triangle count across all meshes.
func (p *ProcessedGLB) TriangleCount() int {
	n := 0
	for _, m := range p.Meshes {
		n += m.TriangleCount()
	}
	return n
}
