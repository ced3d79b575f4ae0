package glb

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/qmuntal/gltf"
)

// maxZeroElements bounds accessors without a bufferView, which decode as
// zeros and would otherwise allocate whatever count the document claims.
const maxZeroElements = 1 << 24

// accessorReader decodes accessors against the GLB binary chunk.
type accessorReader struct {
	doc *gltf.Document
	bin []byte
}

func componentCount(t gltf.AccessorType) int {
	switch t {
	case gltf.AccessorScalar:
		return 1
	case gltf.AccessorVec2:
		return 2
	case gltf.AccessorVec3:
		return 3
	case gltf.AccessorVec4, gltf.AccessorMat2:
		return 4
	case gltf.AccessorMat3:
		return 9
	case gltf.AccessorMat4:
		return 16
	default:
		return 0
	}
}

func (r *accessorReader) accessor(idx uint32) (*gltf.Accessor, error) {
	if int(idx) >= len(r.doc.Accessors) || r.doc.Accessors[idx] == nil {
		return nil, fmt.Errorf("%w: accessor %d (have %d)", ErrOutOfRange, idx, len(r.doc.Accessors))
	}
	return r.doc.Accessors[idx], nil
}

// region returns the bytes of acc's first element onwards and the element
// stride. data is nil for an accessor without a bufferView.
func (r *accessorReader) region(acc *gltf.Accessor, elemSize int) (data []byte, stride int, err error) {
	if acc.BufferView == nil {
		if acc.Count > maxZeroElements {
			return nil, 0, fmt.Errorf("%w: %d zero-filled elements", ErrOutOfRange, acc.Count)
		}
		return nil, elemSize, nil
	}

	bvIdx := *acc.BufferView
	if int(bvIdx) >= len(r.doc.BufferViews) || r.doc.BufferViews[bvIdx] == nil {
		return nil, 0, fmt.Errorf("%w: bufferView %d (have %d)", ErrOutOfRange, bvIdx, len(r.doc.BufferViews))
	}
	bv := r.doc.BufferViews[bvIdx]

	// Only buffer 0 without a URI is stored in the container.
	if bv.Buffer != 0 || len(r.doc.Buffers) == 0 || r.doc.Buffers[0] == nil || r.doc.Buffers[0].URI != "" {
		return nil, 0, fmt.Errorf("%w: bufferView %d uses buffer %d outside the BIN chunk", ErrOutOfRange, bvIdx, bv.Buffer)
	}

	end := uint64(bv.ByteOffset) + uint64(bv.ByteLength)
	if end > uint64(len(r.bin)) {
		return nil, 0, fmt.Errorf("%w: bufferView %d spans [%d, %d), BIN chunk has %d bytes",
			ErrOutOfRange, bvIdx, bv.ByteOffset, end, len(r.bin))
	}
	view := r.bin[bv.ByteOffset:end]

	stride = int(bv.ByteStride)
	if stride == 0 {
		stride = elemSize
	}
	if stride < elemSize {
		return nil, 0, fmt.Errorf("%w: bufferView %d stride %d smaller than element size %d", ErrFormat, bvIdx, stride, elemSize)
	}

	if uint64(acc.ByteOffset) > uint64(len(view)) {
		return nil, 0, fmt.Errorf("%w: accessor offset %d past bufferView %d", ErrOutOfRange, acc.ByteOffset, bvIdx)
	}
	if acc.Count > 0 {
		need := uint64(acc.ByteOffset) + uint64(stride)*uint64(acc.Count-1) + uint64(elemSize)
		if need > uint64(len(view)) {
			return nil, 0, fmt.Errorf("%w: accessor needs %d bytes of bufferView %d, has %d", ErrOutOfRange, need, bvIdx, len(view))
		}
	}
	return view[acc.ByteOffset:], stride, nil
}

// floats decodes a float accessor of the given type into a flat slice.
func (r *accessorReader) floats(idx uint32, want gltf.AccessorType) ([]float32, error) {
	acc, err := r.accessor(idx)
	if err != nil {
		return nil, err
	}
	if acc.ComponentType != gltf.ComponentFloat || acc.Type != want {
		return nil, fmt.Errorf("%w: accessor %d is %v/%v", errAccessorLayout, idx, acc.Type, acc.ComponentType)
	}

	n := componentCount(want)
	data, stride, err := r.region(acc, 4*n)
	if err != nil {
		return nil, err
	}

	out := make([]float32, int(acc.Count)*n)
	if data == nil {
		return out, nil
	}
	for i := 0; i < int(acc.Count); i++ {
		base := i * stride
		for c := 0; c < n; c++ {
			v := math.Float32frombits(binary.LittleEndian.Uint32(data[base+4*c:]))
			if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
				return nil, fmt.Errorf("%w: accessor %d element %d is %v", errNonFinite, idx, i, v)
			}
			out[i*n+c] = v
		}
	}
	return out, nil
}

// indices decodes an unsigned scalar accessor, widening to 32 bits.
func (r *accessorReader) indices(idx uint32) ([]uint32, error) {
	acc, err := r.accessor(idx)
	if err != nil {
		return nil, err
	}

	var size int
	switch acc.ComponentType {
	case gltf.ComponentUbyte:
		size = 1
	case gltf.ComponentUshort:
		size = 2
	case gltf.ComponentUint:
		size = 4
	}
	if size == 0 || acc.Type != gltf.AccessorScalar {
		return nil, fmt.Errorf("%w: index accessor %d is %v/%v", errAccessorLayout, idx, acc.Type, acc.ComponentType)
	}

	data, stride, err := r.region(acc, size)
	if err != nil {
		return nil, err
	}

	out := make([]uint32, acc.Count)
	if data == nil {
		return out, nil
	}
	for i := range out {
		b := data[i*stride:]
		switch size {
		case 1:
			out[i] = uint32(b[0])
		case 2:
			out[i] = uint32(binary.LittleEndian.Uint16(b))
		case 4:
			out[i] = binary.LittleEndian.Uint32(b)
		}
	}
	return out, nil
}
