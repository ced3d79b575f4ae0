package glb

import (
	"encoding/binary"
	"encoding/json"
	"math"
	"testing"

	"github.com/qmuntal/gltf"
)

// fixture assembles a glTF document and its binary chunk for tests.
type fixture struct {
	doc *gltf.Document
	bin []byte
}

func newFixture() *fixture {
	return &fixture{
		doc: &gltf.Document{
			Asset:   gltf.Asset{Version: "2.0", Generator: "scape tests"},
			Buffers: []*gltf.Buffer{{}},
		},
	}
}

func (f *fixture) addView(data []byte, stride uint32) uint32 {
	for len(f.bin)%4 != 0 {
		f.bin = append(f.bin, 0)
	}
	f.doc.BufferViews = append(f.doc.BufferViews, &gltf.BufferView{
		Buffer:     0,
		ByteOffset: uint32(len(f.bin)),
		ByteLength: uint32(len(data)),
		ByteStride: stride,
	})
	f.bin = append(f.bin, data...)
	return uint32(len(f.doc.BufferViews) - 1)
}

func (f *fixture) addAccessor(acc *gltf.Accessor) uint32 {
	f.doc.Accessors = append(f.doc.Accessors, acc)
	return uint32(len(f.doc.Accessors) - 1)
}

func (f *fixture) addFloats(typ gltf.AccessorType, values ...float32) uint32 {
	buf := make([]byte, 4*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(v))
	}
	bv := f.addView(buf, 0)
	return f.addAccessor(&gltf.Accessor{
		BufferView:    gltf.Index(bv),
		ComponentType: gltf.ComponentFloat,
		Type:          typ,
		Count:         uint32(len(values) / componentCount(typ)),
	})
}

func (f *fixture) addUbyteIndices(values ...uint8) uint32 {
	bv := f.addView(append([]byte(nil), values...), 0)
	return f.addAccessor(&gltf.Accessor{
		BufferView:    gltf.Index(bv),
		ComponentType: gltf.ComponentUbyte,
		Type:          gltf.AccessorScalar,
		Count:         uint32(len(values)),
	})
}

func (f *fixture) addUshortIndices(values ...uint16) uint32 {
	buf := make([]byte, 2*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint16(buf[2*i:], v)
	}
	bv := f.addView(buf, 0)
	return f.addAccessor(&gltf.Accessor{
		BufferView:    gltf.Index(bv),
		ComponentType: gltf.ComponentUshort,
		Type:          gltf.AccessorScalar,
		Count:         uint32(len(values)),
	})
}

func (f *fixture) addUintIndices(values ...uint32) uint32 {
	buf := make([]byte, 4*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint32(buf[4*i:], v)
	}
	bv := f.addView(buf, 0)
	return f.addAccessor(&gltf.Accessor{
		BufferView:    gltf.Index(bv),
		ComponentType: gltf.ComponentUint,
		Type:          gltf.AccessorScalar,
		Count:         uint32(len(values)),
	})
}

func (f *fixture) addMaterial(m *gltf.Material) uint32 {
	f.doc.Materials = append(f.doc.Materials, m)
	return uint32(len(f.doc.Materials) - 1)
}

func (f *fixture) addMesh(name string, prims ...*gltf.Primitive) {
	f.doc.Meshes = append(f.doc.Meshes, &gltf.Mesh{Name: name, Primitives: prims})
}

// triangle returns a primitive over the given position accessor.
func triangle(pos uint32) *gltf.Primitive {
	return &gltf.Primitive{
		Mode:       gltf.PrimitiveTriangles,
		Attributes: map[string]uint32{"POSITION": pos},
	}
}

func (f *fixture) bytes(t *testing.T) []byte {
	t.Helper()
	f.doc.Buffers[0].ByteLength = uint32(len(f.bin))
	js, err := json.Marshal(f.doc)
	if err != nil {
		t.Fatalf("marshal document: %v", err)
	}
	return frameGLB(js, f.bin)
}

// frameGLB wraps a JSON document and optional binary payload in a GLB
// container with correctly padded chunks.
func frameGLB(js, bin []byte) []byte {
	for len(js)%4 != 0 {
		js = append(js, ' ')
	}
	bin = append([]byte(nil), bin...)
	for len(bin)%4 != 0 {
		bin = append(bin, 0)
	}

	total := HeaderSize + chunkHeaderSize + len(js)
	if len(bin) > 0 {
		total += chunkHeaderSize + len(bin)
	}

	out := make([]byte, 0, total)
	out = binary.LittleEndian.AppendUint32(out, Magic)
	out = binary.LittleEndian.AppendUint32(out, Version)
	out = binary.LittleEndian.AppendUint32(out, uint32(total))
	out = binary.LittleEndian.AppendUint32(out, uint32(len(js)))
	out = binary.LittleEndian.AppendUint32(out, ChunkJSON)
	out = append(out, js...)
	if len(bin) > 0 {
		out = binary.LittleEndian.AppendUint32(out, uint32(len(bin)))
		out = binary.LittleEndian.AppendUint32(out, ChunkBIN)
		out = append(out, bin...)
	}
	return out
}

// unitTriangle is the (0,0,0), (1,0,0), (0,1,0) triangle.
func unitTriangle() *fixture {
	f := newFixture()
	pos := f.addFloats(gltf.AccessorVec3,
		0, 0, 0,
		1, 0, 0,
		0, 1, 0,
	)
	f.addMesh("Floor", triangle(pos))
	return f
}
